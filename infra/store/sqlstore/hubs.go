package sqlstore

import (
	"context"
	"fmt"

	"github.com/kilianp07/haulshare/core/geo"
	"github.com/kilianp07/haulshare/core/model"
)

type hubRepo struct{ q querier }

func (r hubRepo) Put(ctx context.Context, h model.Hub) error {
	if h.ID == "" {
		return fmt.Errorf("hub id: %w", model.ErrValidation)
	}
	_, err := r.q.exec(ctx, `INSERT INTO hubs (id, name, lat, lng, radius_km) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, lat = excluded.lat,
			lng = excluded.lng, radius_km = excluded.radius_km`,
		h.ID, h.Name, h.Location.Lat, h.Location.Lng, h.RadiusKm)
	if err != nil {
		return fmt.Errorf("put hub %s: %w", h.ID, err)
	}
	return nil
}

func (r hubRepo) Nearest(ctx context.Context, p model.GeoPoint, radiusKm float64) (model.Hub, error) {
	clause, args := boundingBox(p.Lat, p.Lng, radiusKm).where("lat", "lng")
	rows, err := r.q.query(ctx, `SELECT id, name, lat, lng, radius_km FROM hubs WHERE `+clause+` ORDER BY id`, args...)
	if err != nil {
		return model.Hub{}, fmt.Errorf("query hubs: %w", err)
	}
	defer rows.Close()
	var (
		best  model.Hub
		bestD float64
		found bool
	)
	for rows.Next() {
		var h model.Hub
		if err := rows.Scan(&h.ID, &h.Name, &h.Location.Lat, &h.Location.Lng, &h.RadiusKm); err != nil {
			return model.Hub{}, fmt.Errorf("scan hub: %w", err)
		}
		d := geo.Distance(p, h.Location)
		if d <= radiusKm && (!found || d < bestD) {
			best, bestD, found = h, d, true
		}
	}
	if err := rows.Err(); err != nil {
		return model.Hub{}, err
	}
	if !found {
		return model.Hub{}, fmt.Errorf("hub within %.1f km: %w", radiusKm, model.ErrNotFound)
	}
	return best, nil
}
