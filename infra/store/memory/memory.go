// Package memory is an in-process implementation of store.Store. Each
// transaction works on a private copy of the state which replaces the
// shared state on success.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/kilianp07/haulshare/core/model"
	"github.com/kilianp07/haulshare/core/store"
)

type state struct {
	trucks     map[string]model.Truck
	deliveries map[string]model.Delivery
	routes     map[string]model.Route
	drivers    map[string]model.Driver
	hubs       map[string]model.Hub
	opps       map[string]model.Opportunity
	// route id -> id of the non-terminal opportunity holding it
	claims map[string]string
}

func newState() *state {
	return &state{
		trucks:     map[string]model.Truck{},
		deliveries: map[string]model.Delivery{},
		routes:     map[string]model.Route{},
		drivers:    map[string]model.Driver{},
		hubs:       map[string]model.Hub{},
		opps:       map[string]model.Opportunity{},
		claims:     map[string]string{},
	}
}

// clone copies the maps. Stored values are never modified in place, so a
// shallow copy of each entry is enough.
func (s *state) clone() *state {
	return &state{
		trucks:     copyMap(s.trucks),
		deliveries: copyMap(s.deliveries),
		routes:     copyMap(s.routes),
		drivers:    copyMap(s.drivers),
		hubs:       copyMap(s.hubs),
		opps:       copyMap(s.opps),
		claims:     copyMap(s.claims),
	}
}

// Store is a mutex guarded in-memory store.
type Store struct {
	mu sync.Mutex
	st *state
}

// New returns an empty Store.
func New() *Store {
	return &Store{st: newState()}
}

var _ store.Store = (*Store)(nil)

// Atomic serializes transactions. Changes become visible only when fn
// returns nil.
func (s *Store) Atomic(ctx context.Context, fn func(r store.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.st.clone()
	if err := fn(repos{st: work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) Close() error { return nil }

type repos struct{ st *state }

func (r repos) Trucks() store.TruckRepo              { return truckRepo(r) }
func (r repos) Deliveries() store.DeliveryRepo       { return deliveryRepo(r) }
func (r repos) Routes() store.RouteRepo              { return routeRepo(r) }
func (r repos) Drivers() store.DriverRepo            { return driverRepo(r) }
func (r repos) Hubs() store.HubRepo                  { return hubRepo(r) }
func (r repos) Opportunities() store.OpportunityRepo { return oppRepo(r) }

func copyMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
