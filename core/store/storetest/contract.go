// Package storetest provides contract tests for [store.Store]
// implementations.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kilianp07/haulshare/core/model"
	"github.com/kilianp07/haulshare/core/store"
)

// Factory creates a fresh, empty [store.Store] for each test invocation.
type Factory func(t *testing.T) store.Store

var base = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

// paris and a point roughly 3 km north of it.
var (
	paris      = model.GeoPoint{Lat: 48.8566, Lng: 2.3522}
	parisNorth = model.GeoPoint{Lat: 48.8836, Lng: 2.3522}
	lyon       = model.GeoPoint{Lat: 45.764, Lng: 4.8357}
)

func atomic(t *testing.T, s store.Store, fn func(r store.Repos) error) {
	t.Helper()
	if err := s.Atomic(context.Background(), fn); err != nil {
		t.Fatalf("Atomic: %v", err)
	}
}

func pos(p model.GeoPoint) *model.GeoPoint { return &p }

// Run exercises the [store.Store] contract.
func Run(t *testing.T, factory Factory) {
	ctx := context.Background()

	t.Run("TruckPutAndGet", func(t *testing.T) {
		s := factory(t)
		tr := model.Truck{
			ID: "t1", CompanyID: "c1", DriverID: "d1", Plate: "AB-123-CD",
			MaxWeight: model.Float(12), CurrentWeight: 2, Position: pos(paris),
			Available: true, Registration: model.RegistrationApproved, CO2PerKm: model.Float(0.8),
		}
		atomic(t, s, func(r store.Repos) error { return r.Trucks().Put(ctx, tr) })
		atomic(t, s, func(r store.Repos) error {
			got, err := r.Trucks().Get(ctx, "t1")
			if err != nil {
				return err
			}
			if got.MaxWeight == nil || *got.MaxWeight != 12 || got.MaxVolume != nil {
				t.Errorf("capacity = %v/%v, want 12/nil", got.MaxWeight, got.MaxVolume)
			}
			if got.Position == nil || *got.Position != paris {
				t.Errorf("Position = %v, want %v", got.Position, paris)
			}
			if !got.Available || got.Registration != model.RegistrationApproved || got.Plate != "AB-123-CD" {
				t.Errorf("unexpected truck %+v", got)
			}
			return nil
		})
	})

	t.Run("GetNotFound", func(t *testing.T) {
		s := factory(t)
		err := s.Atomic(ctx, func(r store.Repos) error {
			_, err := r.Trucks().Get(ctx, "missing")
			return err
		})
		if !errors.Is(err, model.ErrNotFound) {
			t.Fatalf("Get: got %v, want ErrNotFound", err)
		}
	})

	t.Run("ListEligible", func(t *testing.T) {
		s := factory(t)
		atomic(t, s, func(r store.Repos) error {
			for _, tr := range []model.Truck{
				{ID: "b", CompanyID: "c1", Available: true, Registration: model.RegistrationApproved},
				{ID: "a", CompanyID: "c1", Available: true, Registration: model.RegistrationApproved},
				{ID: "c", CompanyID: "c1", Available: false, Registration: model.RegistrationApproved},
				{ID: "d", CompanyID: "c1", Available: true, Registration: model.RegistrationPending},
				{ID: "e", CompanyID: "c2", Available: true, Registration: model.RegistrationApproved},
			} {
				if err := r.Trucks().Put(ctx, tr); err != nil {
					return err
				}
			}
			return nil
		})
		atomic(t, s, func(r store.Repos) error {
			got, err := r.Trucks().ListEligible(ctx, "c1")
			if err != nil {
				return err
			}
			if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
				t.Errorf("ListEligible = %v, want [a b]", ids(got))
			}
			return nil
		})
	})

	t.Run("FindWithin", func(t *testing.T) {
		s := factory(t)
		atomic(t, s, func(r store.Repos) error {
			for _, tr := range []model.Truck{
				{ID: "far", CompanyID: "c", Position: pos(lyon), Registration: model.RegistrationApproved},
				{ID: "near", CompanyID: "c", Position: pos(parisNorth), Registration: model.RegistrationApproved},
				{ID: "here", CompanyID: "c", Position: pos(paris), Registration: model.RegistrationApproved},
				{ID: "nopos", CompanyID: "c", Registration: model.RegistrationApproved},
			} {
				if err := r.Trucks().Put(ctx, tr); err != nil {
					return err
				}
			}
			return nil
		})
		atomic(t, s, func(r store.Repos) error {
			got, err := r.Trucks().FindWithin(ctx, paris, 5)
			if err != nil {
				return err
			}
			if len(got) != 2 || got[0].ID != "here" || got[1].ID != "near" {
				t.Errorf("FindWithin = %v, want [here near]", ids(got))
			}
			got, err = r.Trucks().FindWithin(ctx, paris, 1)
			if err != nil {
				return err
			}
			if len(got) != 1 || got[0].ID != "here" {
				t.Errorf("FindWithin(1km) = %v, want [here]", ids(got))
			}
			return nil
		})
	})

	t.Run("ClaimOnce", func(t *testing.T) {
		s := factory(t)
		atomic(t, s, func(r store.Repos) error {
			return r.Trucks().Put(ctx, model.Truck{ID: "t1", CompanyID: "c", Available: true, Registration: model.RegistrationApproved})
		})
		atomic(t, s, func(r store.Repos) error { return r.Trucks().Claim(ctx, "t1") })
		err := s.Atomic(ctx, func(r store.Repos) error { return r.Trucks().Claim(ctx, "t1") })
		if !errors.Is(err, model.ErrStateConflict) {
			t.Fatalf("second Claim: got %v, want ErrStateConflict", err)
		}
		err = s.Atomic(ctx, func(r store.Repos) error { return r.Trucks().Claim(ctx, "nope") })
		if !errors.Is(err, model.ErrNotFound) {
			t.Fatalf("Claim missing: got %v, want ErrNotFound", err)
		}
	})

	t.Run("RollbackOnError", func(t *testing.T) {
		s := factory(t)
		atomic(t, s, func(r store.Repos) error {
			return r.Trucks().Put(ctx, model.Truck{ID: "t1", CompanyID: "c", Available: true, Registration: model.RegistrationApproved})
		})
		boom := errors.New("boom")
		err := s.Atomic(ctx, func(r store.Repos) error {
			if err := r.Trucks().Claim(ctx, "t1"); err != nil {
				return err
			}
			if err := r.Drivers().Put(ctx, model.Driver{ID: "d1"}); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("Atomic: got %v, want boom", err)
		}
		atomic(t, s, func(r store.Repos) error {
			tr, err := r.Trucks().Get(ctx, "t1")
			if err != nil {
				return err
			}
			if !tr.Available {
				t.Errorf("claim survived a rolled back transaction")
			}
			if _, err := r.Drivers().Get(ctx, "d1"); !errors.Is(err, model.ErrNotFound) {
				t.Errorf("driver survived a rolled back transaction: %v", err)
			}
			return nil
		})
	})

	t.Run("ListPendingOrderedByWindow", func(t *testing.T) {
		s := factory(t)
		atomic(t, s, func(r store.Repos) error {
			for _, d := range []model.Delivery{
				{ID: "d1", CompanyID: "c1", Weight: 1, WindowStart: base.Add(2 * time.Hour), Status: model.DeliveryPending},
				{ID: "d2", CompanyID: "c1", Weight: 1, WindowStart: base, Status: model.DeliveryPending},
				{ID: "d3", CompanyID: "c1", Weight: 1, WindowStart: base.Add(time.Hour), Status: model.DeliveryPending},
				{ID: "d4", CompanyID: "c1", Weight: 1, WindowStart: base, Status: model.DeliveryAllocated, TruckID: "t"},
				{ID: "d5", CompanyID: "c2", Weight: 1, WindowStart: base, Status: model.DeliveryPending},
			} {
				if err := r.Deliveries().Put(ctx, d); err != nil {
					return err
				}
			}
			return nil
		})
		atomic(t, s, func(r store.Repos) error {
			got, err := r.Deliveries().ListPending(ctx, "c1")
			if err != nil {
				return err
			}
			want := []string{"d2", "d3", "d1"}
			if len(got) != len(want) {
				t.Fatalf("ListPending returned %d deliveries, want %d", len(got), len(want))
			}
			for i, d := range got {
				if d.ID != want[i] {
					t.Errorf("ListPending[%d] = %s, want %s", i, d.ID, want[i])
				}
			}
			if !got[0].WindowStart.Equal(base) {
				t.Errorf("WindowStart = %v, want %v", got[0].WindowStart, base)
			}
			active, err := r.Deliveries().ListActive(ctx)
			if err != nil {
				return err
			}
			if len(active) != 1 || active[0].ID != "d4" {
				t.Errorf("ListActive = %d entries, want [d4]", len(active))
			}
			return nil
		})
	})

	t.Run("UpdateManyGuard", func(t *testing.T) {
		s := factory(t)
		atomic(t, s, func(r store.Repos) error {
			for _, d := range []model.Delivery{
				{ID: "d1", CompanyID: "c", WindowStart: base, Status: model.DeliveryPending},
				{ID: "d2", CompanyID: "c", WindowStart: base, Status: model.DeliveryDelivered},
			} {
				if err := r.Deliveries().Put(ctx, d); err != nil {
					return err
				}
			}
			return nil
		})
		alloc := model.DeliveryUpdate{
			From:   []model.DeliveryStatus{model.DeliveryPending},
			Status: model.DeliveryAllocated, TruckID: "t1", DriverID: "dr1", RouteID: "r1",
		}
		err := s.Atomic(ctx, func(r store.Repos) error {
			return r.Deliveries().UpdateMany(ctx, []string{"d1", "d2"}, alloc)
		})
		if !errors.Is(err, model.ErrStateConflict) {
			t.Fatalf("UpdateMany: got %v, want ErrStateConflict", err)
		}
		atomic(t, s, func(r store.Repos) error {
			d, err := r.Deliveries().Get(ctx, "d1")
			if err != nil {
				return err
			}
			if d.Status != model.DeliveryPending {
				t.Errorf("d1 status = %s after failed bulk update, want PENDING", d.Status)
			}
			return r.Deliveries().UpdateMany(ctx, []string{"d1", "d1"}, alloc)
		})
		atomic(t, s, func(r store.Repos) error {
			d, err := r.Deliveries().Get(ctx, "d1")
			if err != nil {
				return err
			}
			if d.Status != model.DeliveryAllocated || d.TruckID != "t1" || d.DriverID != "dr1" || d.RouteID != "r1" {
				t.Errorf("unexpected delivery after update %+v", d)
			}
			byTruck, err := r.Deliveries().ListActiveByTruck(ctx, "t1")
			if err != nil {
				return err
			}
			if len(byTruck) != 1 {
				t.Errorf("ListActiveByTruck = %d, want 1", len(byTruck))
			}
			return nil
		})
	})

	t.Run("RouteLifecycle", func(t *testing.T) {
		s := factory(t)
		atomic(t, s, func(r store.Repos) error {
			if err := r.Routes().Create(ctx, model.Route{ID: "r1", CompanyID: "c", TruckID: "t1", DriverID: "d1",
				TotalWeight: 5, Utilization: 100, Status: model.RouteAllocated, CreatedAt: base}); err != nil {
				return err
			}
			return r.Deliveries().Put(ctx, model.Delivery{ID: "x1", CompanyID: "c", WindowStart: base,
				Status: model.DeliveryAllocated, TruckID: "t1", RouteID: "r1"})
		})
		err := s.Atomic(ctx, func(r store.Repos) error {
			return r.Routes().Create(ctx, model.Route{ID: "r1", TruckID: "t1", Status: model.RouteAllocated, CreatedAt: base})
		})
		if !errors.Is(err, model.ErrAlreadyExists) {
			t.Fatalf("duplicate Create: got %v, want ErrAlreadyExists", err)
		}
		atomic(t, s, func(r store.Repos) error {
			rt, err := r.Routes().Get(ctx, "r1")
			if err != nil {
				return err
			}
			if len(rt.DeliveryIDs) != 1 || rt.DeliveryIDs[0] != "x1" || rt.TotalWeight != 5 {
				t.Errorf("unexpected route %+v", rt)
			}
			return r.Routes().SetStatus(ctx, "r1", model.RouteAllocated, model.RouteActive)
		})
		err = s.Atomic(ctx, func(r store.Repos) error {
			return r.Routes().SetStatus(ctx, "r1", model.RouteAllocated, model.RouteActive)
		})
		if !errors.Is(err, model.ErrStateConflict) {
			t.Fatalf("stale SetStatus: got %v, want ErrStateConflict", err)
		}
		atomic(t, s, func(r store.Repos) error {
			active, err := r.Routes().ListByTruck(ctx, "t1", model.RouteActive)
			if err != nil {
				return err
			}
			if len(active) != 1 || active[0].ID != "r1" {
				t.Errorf("ListByTruck(ACTIVE) = %d routes, want [r1]", len(active))
			}
			return nil
		})
	})

	t.Run("NearestHub", func(t *testing.T) {
		s := factory(t)
		atomic(t, s, func(r store.Repos) error {
			for _, h := range []model.Hub{
				{ID: "h-north", Name: "North", Location: parisNorth, RadiusKm: 1},
				{ID: "h-center", Name: "Center", Location: model.GeoPoint{Lat: 48.8600, Lng: 2.3522}, RadiusKm: 1},
				{ID: "h-lyon", Name: "Lyon", Location: lyon, RadiusKm: 1},
			} {
				if err := r.Hubs().Put(ctx, h); err != nil {
					return err
				}
			}
			return nil
		})
		atomic(t, s, func(r store.Repos) error {
			h, err := r.Hubs().Nearest(ctx, paris, 5)
			if err != nil {
				return err
			}
			if h.ID != "h-center" {
				t.Errorf("Nearest = %s, want h-center", h.ID)
			}
			if _, err := r.Hubs().Nearest(ctx, model.GeoPoint{Lat: 43.6, Lng: 1.44}, 5); !errors.Is(err, model.ErrNotFound) {
				t.Errorf("Nearest far away: got %v, want ErrNotFound", err)
			}
			return nil
		})
	})

	t.Run("OpportunityClaims", func(t *testing.T) {
		s := factory(t)
		o := opportunity("o1", "r1", "r2")
		atomic(t, s, func(r store.Repos) error { return r.Opportunities().Create(ctx, o) })

		err := s.Atomic(ctx, func(r store.Repos) error {
			return r.Opportunities().Create(ctx, opportunity("o2", "r2", "r3"))
		})
		if !errors.Is(err, model.ErrAlreadyExists) {
			t.Fatalf("Create on claimed route: got %v, want ErrAlreadyExists", err)
		}

		o.Status = model.OpportunityAcceptedByRoute1
		now := base.Add(time.Minute)
		o.AcceptedByRoute1At = &now
		err = s.Atomic(ctx, func(r store.Repos) error {
			return r.Opportunities().CompareAndSwap(ctx, o, model.OpportunityAcceptedByRoute2)
		})
		if !errors.Is(err, model.ErrStateConflict) {
			t.Fatalf("CAS with stale status: got %v, want ErrStateConflict", err)
		}
		atomic(t, s, func(r store.Repos) error {
			return r.Opportunities().CompareAndSwap(ctx, o, model.OpportunityPending)
		})
		atomic(t, s, func(r store.Repos) error {
			got, err := r.Opportunities().Get(ctx, "o1")
			if err != nil {
				return err
			}
			if got.Status != model.OpportunityAcceptedByRoute1 || got.AcceptedByRoute1At == nil || !got.AcceptedByRoute1At.Equal(now) {
				t.Errorf("unexpected opportunity after CAS %+v", got)
			}
			if got.AcceptedByRoute2At != nil {
				t.Errorf("AcceptedByRoute2At = %v, want nil", got.AcceptedByRoute2At)
			}
			return nil
		})

		o.Status = model.OpportunityExpired
		atomic(t, s, func(r store.Repos) error {
			return r.Opportunities().CompareAndSwap(ctx, o, model.OpportunityAcceptedByRoute1)
		})
		atomic(t, s, func(r store.Repos) error {
			return r.Opportunities().Create(ctx, opportunity("o3", "r2", "r3"))
		})
		atomic(t, s, func(r store.Repos) error {
			live, err := r.Opportunities().List(ctx, true)
			if err != nil {
				return err
			}
			if len(live) != 1 || live[0].ID != "o3" {
				t.Errorf("List(live) = %d entries, want [o3]", len(live))
			}
			all, err := r.Opportunities().List(ctx, false)
			if err != nil {
				return err
			}
			if len(all) != 2 {
				t.Errorf("List(all) = %d entries, want 2", len(all))
			}
			return nil
		})
	})

	t.Run("ListDue", func(t *testing.T) {
		s := factory(t)
		due := opportunity("due", "r1", "r2")
		due.ExpiresAt = base
		later := opportunity("later", "r3", "r4")
		later.ExpiresAt = base.Add(2 * time.Hour)
		both := opportunity("both", "r5", "r6")
		both.ExpiresAt = base
		both.Status = model.OpportunityBothAccepted
		atomic(t, s, func(r store.Repos) error {
			for _, o := range []model.Opportunity{due, later, both} {
				if err := r.Opportunities().Create(ctx, o); err != nil {
					return err
				}
			}
			return nil
		})
		atomic(t, s, func(r store.Repos) error {
			got, err := r.Opportunities().ListDue(ctx, base.Add(time.Minute))
			if err != nil {
				return err
			}
			if len(got) != 1 || got[0].ID != "due" {
				t.Errorf("ListDue = %d entries, want [due]", len(got))
			}
			return nil
		})
	})

	t.Run("OpportunityGetNotFound", func(t *testing.T) {
		s := factory(t)
		err := s.Atomic(ctx, func(r store.Repos) error {
			_, err := r.Opportunities().Get(ctx, "nope")
			return err
		})
		if !errors.Is(err, model.ErrNotFound) {
			t.Fatalf("Get: got %v, want ErrNotFound", err)
		}
	})
}

func opportunity(id, r1, r2 string) model.Opportunity {
	return model.Opportunity{
		ID: id, Route1ID: r1, Route2ID: r2, Truck1ID: "t-" + r1, Truck2ID: "t-" + r2, HubID: "h1",
		DistanceSavedKm: 3, CarbonSavedKg: 1.5, Center: paris,
		Route1AvailableWeight: 10, Route1AvailableVolume: 10, Route2RequiredWeight: 8, Route2RequiredVolume: 4,
		EstimatedMeetAt: base.Add(30 * time.Minute), AcceptanceDeadline: base.Add(30 * time.Minute),
		ExpiresAt: base.Add(time.Hour), Status: model.OpportunityPending, CreatedAt: base,
	}
}

func ids(ts []model.Truck) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.ID
	}
	return out
}
