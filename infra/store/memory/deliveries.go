package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/kilianp07/haulshare/core/model"
)

type deliveryRepo struct{ st *state }

func (r deliveryRepo) Get(_ context.Context, id string) (model.Delivery, error) {
	d, ok := r.st.deliveries[id]
	if !ok {
		return model.Delivery{}, fmt.Errorf("delivery %s: %w", id, model.ErrNotFound)
	}
	return d, nil
}

func (r deliveryRepo) Put(_ context.Context, d model.Delivery) error {
	if d.ID == "" {
		return fmt.Errorf("delivery id: %w", model.ErrValidation)
	}
	r.st.deliveries[d.ID] = d
	return nil
}

func (r deliveryRepo) filter(keep func(model.Delivery) bool) []model.Delivery {
	var out []model.Delivery
	for _, id := range sortedKeys(r.st.deliveries) {
		if d := r.st.deliveries[id]; keep(d) {
			out = append(out, d)
		}
	}
	return out
}

func (r deliveryRepo) ListPending(_ context.Context, companyID string) ([]model.Delivery, error) {
	out := r.filter(func(d model.Delivery) bool {
		return d.CompanyID == companyID && d.Status == model.DeliveryPending
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].WindowStart.Before(out[j].WindowStart)
	})
	return out, nil
}

func (r deliveryRepo) ListActive(_ context.Context) ([]model.Delivery, error) {
	return r.filter(func(d model.Delivery) bool {
		return d.TruckID != "" && d.Status.Active()
	}), nil
}

func (r deliveryRepo) ListActiveByTruck(_ context.Context, truckID string) ([]model.Delivery, error) {
	return r.filter(func(d model.Delivery) bool {
		return d.TruckID == truckID && d.Status.Active()
	}), nil
}

func (r deliveryRepo) ListByRoute(_ context.Context, routeID string) ([]model.Delivery, error) {
	return r.filter(func(d model.Delivery) bool { return d.RouteID == routeID }), nil
}

func (r deliveryRepo) UpdateMany(_ context.Context, ids []string, u model.DeliveryUpdate) error {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		d, ok := r.st.deliveries[id]
		if !ok || !u.Allows(d.Status) {
			return fmt.Errorf("delivery %s not updatable to %s: %w", id, u.Status, model.ErrStateConflict)
		}
		d.Status = u.Status
		d.TruckID = u.TruckID
		d.DriverID = u.DriverID
		d.RouteID = u.RouteID
		r.st.deliveries[id] = d
	}
	return nil
}
