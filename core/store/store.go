// Package store defines the repositories the matching engine reads and
// mutates. Every access goes through Store.Atomic so multi-record changes
// commit or roll back as one unit.
//
// Listings are returned in store order: ascending id, except pending
// deliveries which are ordered by window start then id.
package store

import (
	"context"
	"time"

	"github.com/kilianp07/haulshare/core/model"
)

// Store opens transactional scopes over the repositories.
type Store interface {
	// Atomic runs fn inside one transaction. A non-nil error from fn, or a
	// failed commit, discards every change made through r.
	Atomic(ctx context.Context, fn func(r Repos) error) error
	Close() error
}

// Repos gives access to the repositories bound to one transaction.
type Repos interface {
	Trucks() TruckRepo
	Deliveries() DeliveryRepo
	Routes() RouteRepo
	Drivers() DriverRepo
	Hubs() HubRepo
	Opportunities() OpportunityRepo
}

type TruckRepo interface {
	Get(ctx context.Context, id string) (model.Truck, error)
	// Put inserts or replaces a truck.
	Put(ctx context.Context, t model.Truck) error
	// ListEligible returns available, approved trucks of a company.
	ListEligible(ctx context.Context, companyID string) ([]model.Truck, error)
	// FindWithin returns trucks with a known position at most radiusKm
	// from p.
	FindWithin(ctx context.Context, p model.GeoPoint, radiusKm float64) ([]model.Truck, error)
	// Claim flips availability from true to false. ErrStateConflict when
	// the truck is no longer available.
	Claim(ctx context.Context, id string) error
}

type DeliveryRepo interface {
	Get(ctx context.Context, id string) (model.Delivery, error)
	Put(ctx context.Context, d model.Delivery) error
	ListPending(ctx context.Context, companyID string) ([]model.Delivery, error)
	// ListActive returns every active delivery bound to a truck.
	ListActive(ctx context.Context) ([]model.Delivery, error)
	ListActiveByTruck(ctx context.Context, truckID string) ([]model.Delivery, error)
	ListByRoute(ctx context.Context, routeID string) ([]model.Delivery, error)
	// UpdateMany applies u to every id. ErrStateConflict when an id is
	// missing or rejected by the update guard.
	UpdateMany(ctx context.Context, ids []string, u model.DeliveryUpdate) error
}

type RouteRepo interface {
	Create(ctx context.Context, r model.Route) error
	// Get fills DeliveryIDs from the deliveries currently on the route.
	Get(ctx context.Context, id string) (model.Route, error)
	ListByTruck(ctx context.Context, truckID string, status model.RouteStatus) ([]model.Route, error)
	// SetStatus moves a route from one status to another, ErrStateConflict
	// when the current status differs from from.
	SetStatus(ctx context.Context, id string, from, to model.RouteStatus) error
}

type DriverRepo interface {
	Get(ctx context.Context, id string) (model.Driver, error)
	Put(ctx context.Context, d model.Driver) error
}

type HubRepo interface {
	Put(ctx context.Context, h model.Hub) error
	// Nearest returns the closest hub at most radiusKm from p, ErrNotFound
	// when there is none.
	Nearest(ctx context.Context, p model.GeoPoint, radiusKm float64) (model.Hub, error)
}

type OpportunityRepo interface {
	// Create stores a new opportunity and claims both routes.
	// ErrAlreadyExists when the id is taken or a route is already claimed
	// by a non-terminal opportunity.
	Create(ctx context.Context, o model.Opportunity) error
	Get(ctx context.Context, id string) (model.Opportunity, error)
	// CompareAndSwap replaces the stored opportunity when its status still
	// equals expected, ErrStateConflict otherwise. Moving to a terminal
	// status releases the route claims.
	CompareAndSwap(ctx context.Context, o model.Opportunity, expected model.OpportunityStatus) error
	// ListDue returns expirable opportunities with ExpiresAt at or before now.
	ListDue(ctx context.Context, now time.Time) ([]model.Opportunity, error)
	List(ctx context.Context, liveOnly bool) ([]model.Opportunity, error)
}
