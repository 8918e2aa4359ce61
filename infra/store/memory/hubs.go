package memory

import (
	"context"
	"fmt"

	"github.com/kilianp07/haulshare/core/geo"
	"github.com/kilianp07/haulshare/core/model"
)

type hubRepo struct{ st *state }

func (r hubRepo) Put(_ context.Context, h model.Hub) error {
	if h.ID == "" {
		return fmt.Errorf("hub id: %w", model.ErrValidation)
	}
	r.st.hubs[h.ID] = h
	return nil
}

func (r hubRepo) Nearest(_ context.Context, p model.GeoPoint, radiusKm float64) (model.Hub, error) {
	c := geo.CapFor(p, radiusKm)
	var (
		best  model.Hub
		bestD = radiusKm
		found bool
	)
	for _, id := range sortedKeys(r.st.hubs) {
		h := r.st.hubs[id]
		if !c.ContainsPoint(geo.Point(h.Location)) {
			continue
		}
		d := geo.Distance(p, h.Location)
		if d <= radiusKm && (!found || d < bestD) {
			best, bestD, found = h, d, true
		}
	}
	if !found {
		return model.Hub{}, fmt.Errorf("hub within %.1f km: %w", radiusKm, model.ErrNotFound)
	}
	return best, nil
}
