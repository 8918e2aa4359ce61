package memory

import (
	"context"
	"fmt"

	"github.com/kilianp07/haulshare/core/model"
)

type routeRepo struct{ st *state }

func (r routeRepo) Create(_ context.Context, rt model.Route) error {
	if rt.ID == "" {
		return fmt.Errorf("route id: %w", model.ErrValidation)
	}
	if _, ok := r.st.routes[rt.ID]; ok {
		return fmt.Errorf("route %s: %w", rt.ID, model.ErrAlreadyExists)
	}
	rt.DeliveryIDs = nil
	r.st.routes[rt.ID] = rt
	return nil
}

func (r routeRepo) Get(_ context.Context, id string) (model.Route, error) {
	rt, ok := r.st.routes[id]
	if !ok {
		return model.Route{}, fmt.Errorf("route %s: %w", id, model.ErrNotFound)
	}
	return r.withDeliveries(rt), nil
}

func (r routeRepo) withDeliveries(rt model.Route) model.Route {
	rt.DeliveryIDs = nil
	for _, id := range sortedKeys(r.st.deliveries) {
		if r.st.deliveries[id].RouteID == rt.ID {
			rt.DeliveryIDs = append(rt.DeliveryIDs, id)
		}
	}
	return rt
}

func (r routeRepo) ListByTruck(_ context.Context, truckID string, status model.RouteStatus) ([]model.Route, error) {
	var out []model.Route
	for _, id := range sortedKeys(r.st.routes) {
		rt := r.st.routes[id]
		if rt.TruckID == truckID && rt.Status == status {
			out = append(out, r.withDeliveries(rt))
		}
	}
	return out, nil
}

func (r routeRepo) SetStatus(_ context.Context, id string, from, to model.RouteStatus) error {
	rt, ok := r.st.routes[id]
	if !ok {
		return fmt.Errorf("route %s: %w", id, model.ErrNotFound)
	}
	if rt.Status != from {
		return fmt.Errorf("route %s is %s, not %s: %w", id, rt.Status, from, model.ErrStateConflict)
	}
	rt.Status = to
	r.st.routes[id] = rt
	return nil
}

type driverRepo struct{ st *state }

func (r driverRepo) Get(_ context.Context, id string) (model.Driver, error) {
	d, ok := r.st.drivers[id]
	if !ok {
		return model.Driver{}, fmt.Errorf("driver %s: %w", id, model.ErrNotFound)
	}
	return d, nil
}

func (r driverRepo) Put(_ context.Context, d model.Driver) error {
	if d.ID == "" {
		return fmt.Errorf("driver id: %w", model.ErrValidation)
	}
	r.st.drivers[d.ID] = d
	return nil
}
