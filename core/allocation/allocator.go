// Package allocation assigns pending deliveries to available trucks.
package allocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/haulshare/core/logger"
	"github.com/kilianp07/haulshare/core/metrics"
	"github.com/kilianp07/haulshare/core/model"
	"github.com/kilianp07/haulshare/core/store"
)

// Result is the outcome of one allocation run.
type Result struct {
	CompanyID       string        `json:"company_id"`
	NothingToDo     bool          `json:"nothing_to_do"`
	Routes          []model.Route `json:"routes"`
	Unassigned      []string      `json:"unassigned"`
	MeanUtilization float64       `json:"mean_utilization"`
}

// Allocator builds routes for a company in one transaction.
type Allocator struct {
	store   store.Store
	metrics metrics.MetricsSink
	log     logger.Logger
	now     func() time.Time
	newID   func() string
}

func NewAllocator(s store.Store, sink metrics.MetricsSink, log logger.Logger) *Allocator {
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Allocator{
		store:   s,
		metrics: sink,
		log:     logger.OrNop(log),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

var errNothingToDo = errors.New("no pending deliveries")

// Allocate packs the company's pending deliveries, earliest window first,
// into its available approved trucks. Every route, delivery update and
// truck claim commits together or not at all.
func (a *Allocator) Allocate(ctx context.Context, companyID string) (Result, error) {
	if companyID == "" {
		return Result{}, fmt.Errorf("allocate: company id required: %w", model.ErrValidation)
	}
	start := a.now()
	res := Result{CompanyID: companyID}
	var assigned int

	err := a.store.Atomic(ctx, func(r store.Repos) error {
		pending, err := r.Deliveries().ListPending(ctx, companyID)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			return errNothingToDo
		}
		trucks, err := r.Trucks().ListEligible(ctx, companyID)
		if err != nil {
			return err
		}
		if len(trucks) == 0 {
			return fmt.Errorf("%d pending deliveries and no eligible truck: %w", len(pending), model.ErrCapacity)
		}

		bins, left := Plan(trucks, pending)
		for _, b := range bins {
			route, err := a.materialize(ctx, r, companyID, b, start)
			if err != nil {
				return err
			}
			res.Routes = append(res.Routes, route)
			assigned += len(b.Deliveries)
		}
		for _, d := range left {
			res.Unassigned = append(res.Unassigned, d.ID)
		}
		return nil
	})
	if errors.Is(err, errNothingToDo) {
		a.log.Debugf("allocate %s: nothing to do", companyID)
		return Result{CompanyID: companyID, NothingToDo: true}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("allocate %s: %w", companyID, err)
	}

	if len(res.Routes) > 0 {
		util := make([]float64, len(res.Routes))
		for i, rt := range res.Routes {
			util[i] = rt.Utilization
		}
		res.MeanUtilization = stat.Mean(util, nil)
	}
	if err := a.metrics.RecordAllocation(metrics.AllocationEvent{
		CompanyID:       companyID,
		Routes:          len(res.Routes),
		Deliveries:      assigned,
		Unassigned:      len(res.Unassigned),
		MeanUtilization: res.MeanUtilization,
		Duration:        a.now().Sub(start),
		Time:            start,
	}); err != nil {
		a.log.Warnf("record allocation metrics: %v", err)
	}
	a.log.Infof("allocate %s: %d routes, %d deliveries assigned, %d left pending",
		companyID, len(res.Routes), assigned, len(res.Unassigned))
	return res, nil
}

func (a *Allocator) materialize(ctx context.Context, r store.Repos, companyID string, b Bin, at time.Time) (model.Route, error) {
	if err := r.Trucks().Claim(ctx, b.Truck.ID); err != nil {
		return model.Route{}, err
	}
	route := model.Route{
		ID:          a.newID(),
		CompanyID:   companyID,
		TruckID:     b.Truck.ID,
		DriverID:    b.Truck.DriverID,
		TotalWeight: b.Weight,
		TotalVolume: b.Volume,
		Utilization: b.Utilization(),
		Status:      model.RouteAllocated,
		CreatedAt:   at,
	}
	if err := r.Routes().Create(ctx, route); err != nil {
		return model.Route{}, err
	}
	ids := make([]string, len(b.Deliveries))
	for i, d := range b.Deliveries {
		ids[i] = d.ID
	}
	if err := r.Deliveries().UpdateMany(ctx, ids, model.DeliveryUpdate{
		From:     []model.DeliveryStatus{model.DeliveryPending},
		Status:   model.DeliveryAllocated,
		TruckID:  b.Truck.ID,
		DriverID: b.Truck.DriverID,
		RouteID:  route.ID,
	}); err != nil {
		return model.Route{}, err
	}
	route.DeliveryIDs = ids
	return route, nil
}
