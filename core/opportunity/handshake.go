package opportunity

import (
	"context"
	"fmt"

	"github.com/kilianp07/haulshare/core/events"
	"github.com/kilianp07/haulshare/core/metrics"
	"github.com/kilianp07/haulshare/core/model"
	"github.com/kilianp07/haulshare/core/relay"
	"github.com/kilianp07/haulshare/core/store"
)

type side struct {
	route  model.Route
	truck  model.Truck
	driver model.Driver
}

func loadSide(ctx context.Context, r store.Repos, routeID string) (side, error) {
	var s side
	var err error
	if s.route, err = r.Routes().Get(ctx, routeID); err != nil {
		return s, err
	}
	if s.truck, err = r.Trucks().Get(ctx, s.route.TruckID); err != nil {
		return s, err
	}
	driverID := s.truck.DriverID
	if driverID == "" {
		driverID = s.route.DriverID
	}
	s.driver, err = r.Drivers().Get(ctx, driverID)
	return s, err
}

// Handshake completes an opportunity: the driver with the larger workload
// keeps driving and the other route's cargo moves onto their truck. It
// does not wait for both sides to accept.
func (l *Ledger) Handshake(ctx context.Context, opportunityID string) (HandshakeResult, error) {
	if opportunityID == "" {
		return HandshakeResult{}, fmt.Errorf("handshake: opportunity id required: %w", model.ErrValidation)
	}
	var res HandshakeResult
	err := l.store.Atomic(ctx, func(r store.Repos) error {
		o, err := r.Opportunities().Get(ctx, opportunityID)
		if err != nil {
			return err
		}
		if o.Status.Terminal() {
			return fmt.Errorf("opportunity %s is %s: %w", o.ID, o.Status, model.ErrStateConflict)
		}
		s1, err := loadSide(ctx, r, o.Route1ID)
		if err != nil {
			return err
		}
		s2, err := loadSide(ctx, r, o.Route2ID)
		if err != nil {
			return err
		}

		asg := relay.Assign(s1.driver, s2.driver)
		winner, loser := s1, s2
		if asg.LongHaul.ID != s1.driver.ID {
			winner, loser = s2, s1
		}
		// the driver record may point at another truck; cargo follows the
		// winning route's truck
		truckID := winner.truck.ID

		moving, err := r.Deliveries().ListByRoute(ctx, loser.route.ID)
		if err != nil {
			return err
		}
		var ids []string
		for _, d := range moving {
			if d.Status.Active() {
				ids = append(ids, d.ID)
			}
		}
		if len(ids) > 0 {
			if err := r.Deliveries().UpdateMany(ctx, ids, model.DeliveryUpdate{
				From:     []model.DeliveryStatus{model.DeliveryAllocated, model.DeliveryInTransit, model.DeliveryAbsorptionTransferred},
				Status:   model.DeliveryAbsorptionTransferred,
				TruckID:  truckID,
				DriverID: asg.LongHaul.ID,
				RouteID:  winner.route.ID,
			}); err != nil {
				return err
			}
		}
		if err := r.Routes().SetStatus(ctx, loser.route.ID, loser.route.Status, model.RouteMerged); err != nil {
			return err
		}

		now := l.now().UTC()
		prev := o.Status
		o.Status = model.OpportunityCompleted
		o.CompletedAt = &now
		o.AssignedDriverID = asg.LongHaul.ID
		if err := r.Opportunities().CompareAndSwap(ctx, o, prev); err != nil {
			return err
		}

		res = HandshakeResult{
			Opportunity:       o,
			LongHaulDriverID:  asg.LongHaul.ID,
			ShortHaulDriverID: asg.ShortHaul.ID,
			WinningTruckID:    truckID,
			WinningRouteID:    winner.route.ID,
			MergedRouteID:     loser.route.ID,
			MovedDeliveryIDs:  ids,
		}
		return nil
	})
	if err != nil {
		return HandshakeResult{}, fmt.Errorf("handshake %s: %w", opportunityID, err)
	}

	transitions.WithLabelValues(string(model.OpportunityCompleted)).Inc()
	l.record(res.Opportunity, metrics.StageCompleted)
	l.log.Infof("opportunity %s completed: driver %s keeps truck %s, route %s merged (%d deliveries)",
		opportunityID, res.LongHaulDriverID, res.WinningTruckID, res.MergedRouteID, len(res.MovedDeliveryIDs))
	events.Emit(ctx, l.publisher, l.log, events.OpportunityCompleted{
		OpportunityID:  opportunityID,
		AssignedDriver: res.LongHaulDriverID,
	})
	return res, nil
}
