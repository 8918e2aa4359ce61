package memory

import (
	"context"
	"fmt"

	"github.com/kilianp07/haulshare/core/geo"
	"github.com/kilianp07/haulshare/core/model"
)

type truckRepo struct{ st *state }

func cloneTruck(t model.Truck) model.Truck {
	t.MaxWeight = cloneFloat(t.MaxWeight)
	t.MaxVolume = cloneFloat(t.MaxVolume)
	t.CO2PerKm = cloneFloat(t.CO2PerKm)
	if t.Position != nil {
		p := *t.Position
		t.Position = &p
	}
	return t
}

func (r truckRepo) Get(_ context.Context, id string) (model.Truck, error) {
	t, ok := r.st.trucks[id]
	if !ok {
		return model.Truck{}, fmt.Errorf("truck %s: %w", id, model.ErrNotFound)
	}
	return cloneTruck(t), nil
}

func (r truckRepo) Put(_ context.Context, t model.Truck) error {
	if t.ID == "" {
		return fmt.Errorf("truck id: %w", model.ErrValidation)
	}
	r.st.trucks[t.ID] = cloneTruck(t)
	return nil
}

func (r truckRepo) ListEligible(_ context.Context, companyID string) ([]model.Truck, error) {
	var out []model.Truck
	for _, id := range sortedKeys(r.st.trucks) {
		t := r.st.trucks[id]
		if t.CompanyID == companyID && t.Eligible() {
			out = append(out, cloneTruck(t))
		}
	}
	return out, nil
}

// FindWithin checks positions against an s2 cap first and confirms with the
// haversine distance.
func (r truckRepo) FindWithin(_ context.Context, p model.GeoPoint, radiusKm float64) ([]model.Truck, error) {
	c := geo.CapFor(p, radiusKm)
	var out []model.Truck
	for _, id := range sortedKeys(r.st.trucks) {
		t := r.st.trucks[id]
		if t.Position == nil || !c.ContainsPoint(geo.Point(*t.Position)) {
			continue
		}
		if geo.Distance(p, *t.Position) <= radiusKm {
			out = append(out, cloneTruck(t))
		}
	}
	return out, nil
}

func (r truckRepo) Claim(_ context.Context, id string) error {
	t, ok := r.st.trucks[id]
	if !ok {
		return fmt.Errorf("truck %s: %w", id, model.ErrNotFound)
	}
	if !t.Available {
		return fmt.Errorf("truck %s already claimed: %w", id, model.ErrStateConflict)
	}
	t.Available = false
	r.st.trucks[id] = t
	return nil
}
