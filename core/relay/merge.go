package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/haulshare/core/logger"
	"github.com/kilianp07/haulshare/core/model"
	"github.com/kilianp07/haulshare/core/store"
)

// MergeResult describes a confirmed truck merge. TruckID and DriverID are
// decided independently.
type MergeResult struct {
	TruckID     string   `json:"truck_id"`
	DriverID    string   `json:"driver_id"`
	RouteID     string   `json:"route_id,omitempty"`
	DeliveryIDs []string `json:"delivery_ids"`
}

// Merger moves a candidate truck's cargo onto a searching truck outside
// the opportunity flow.
type Merger struct {
	store store.Store
	log   logger.Logger
}

func NewMerger(s store.Store, log logger.Logger) *Merger {
	return &Merger{store: s, log: logger.OrNop(log)}
}

// ConfirmMerge consolidates the candidate's active deliveries onto the
// searching truck and assigns them to whichever of the two owning drivers
// carries the higher workload.
func (m *Merger) ConfirmMerge(ctx context.Context, searchingTruckID, candidateTruckID string) (MergeResult, error) {
	if searchingTruckID == "" || candidateTruckID == "" {
		return MergeResult{}, fmt.Errorf("confirm merge: truck ids required: %w", model.ErrValidation)
	}
	if searchingTruckID == candidateTruckID {
		return MergeResult{}, fmt.Errorf("confirm merge: truck %s cannot merge with itself: %w", searchingTruckID, model.ErrValidation)
	}
	start := time.Now()
	var res MergeResult
	err := m.store.Atomic(ctx, func(r store.Repos) error {
		searching, err := r.Trucks().Get(ctx, searchingTruckID)
		if err != nil {
			return err
		}
		candidate, err := r.Trucks().Get(ctx, candidateTruckID)
		if err != nil {
			return err
		}
		sd, err := r.Drivers().Get(ctx, searching.DriverID)
		if err != nil {
			return err
		}
		cd, err := r.Drivers().Get(ctx, candidate.DriverID)
		if err != nil {
			return err
		}
		moving, err := r.Deliveries().ListActiveByTruck(ctx, candidate.ID)
		if err != nil {
			return err
		}
		if len(moving) == 0 {
			return fmt.Errorf("truck %s has no active delivery to merge: %w", candidate.ID, model.ErrStateConflict)
		}
		routeID, err := liveRoute(ctx, r, searching.ID)
		if err != nil {
			return err
		}

		top := Rank(sd, cd)[0]
		res = MergeResult{TruckID: searching.ID, DriverID: top.ID, RouteID: routeID}
		for _, d := range moving {
			res.DeliveryIDs = append(res.DeliveryIDs, d.ID)
		}
		return r.Deliveries().UpdateMany(ctx, res.DeliveryIDs, model.DeliveryUpdate{
			From:     []model.DeliveryStatus{model.DeliveryAllocated, model.DeliveryInTransit, model.DeliveryAbsorptionTransferred},
			Status:   model.DeliveryAbsorptionTransferred,
			TruckID:  res.TruckID,
			DriverID: res.DriverID,
			RouteID:  res.RouteID,
		})
	})
	if err != nil {
		return MergeResult{}, fmt.Errorf("confirm merge %s<-%s: %w", searchingTruckID, candidateTruckID, err)
	}
	m.log.Infof("merged %d deliveries from %s onto %s, driver %s (%s)",
		len(res.DeliveryIDs), candidateTruckID, res.TruckID, res.DriverID, time.Since(start))
	return res, nil
}

// liveRoute returns the truck's ACTIVE route, else its ALLOCATED one, else
// an empty id.
func liveRoute(ctx context.Context, r store.Repos, truckID string) (string, error) {
	for _, st := range []model.RouteStatus{model.RouteActive, model.RouteAllocated} {
		routes, err := r.Routes().ListByTruck(ctx, truckID, st)
		if err != nil {
			return "", err
		}
		if len(routes) > 0 {
			return routes[0].ID, nil
		}
	}
	return "", nil
}
