// Package opportunity drives consolidation opportunities from detection to
// completion or expiry.
package opportunity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/haulshare/core/events"
	"github.com/kilianp07/haulshare/core/logger"
	"github.com/kilianp07/haulshare/core/metrics"
	"github.com/kilianp07/haulshare/core/model"
	"github.com/kilianp07/haulshare/core/store"
)

// maxAttempts bounds the compare-and-swap retries of Accept.
const maxAttempts = 5

// Ledger owns opportunity status transitions.
type Ledger struct {
	store     store.Store
	publisher events.Publisher
	metrics   metrics.MetricsSink
	log       logger.Logger
	now       func() time.Time
}

func NewLedger(s store.Store, pub events.Publisher, sink metrics.MetricsSink, log logger.Logger) *Ledger {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Ledger{store: s, publisher: pub, metrics: sink, log: logger.OrNop(log), now: time.Now}
}

// Get returns one opportunity.
func (l *Ledger) Get(ctx context.Context, id string) (model.Opportunity, error) {
	var o model.Opportunity
	err := l.store.Atomic(ctx, func(r store.Repos) error {
		var err error
		o, err = r.Opportunities().Get(ctx, id)
		return err
	})
	return o, err
}

// List returns stored opportunities, only non-terminal ones when liveOnly.
func (l *Ledger) List(ctx context.Context, liveOnly bool) ([]model.Opportunity, error) {
	var out []model.Opportunity
	err := l.store.Atomic(ctx, func(r store.Repos) error {
		var err error
		out, err = r.Opportunities().List(ctx, liveOnly)
		return err
	})
	return out, err
}

// Accept records the acceptance of one side of the pair. The status only
// becomes BOTH_ACCEPTED when the other side alone had accepted; a repeat
// accept on BOTH_ACCEPTED falls back to the caller's side.
func (l *Ledger) Accept(ctx context.Context, opportunityID, routeID string) (model.Opportunity, error) {
	if opportunityID == "" {
		return model.Opportunity{}, fmt.Errorf("accept: opportunity id required: %w", model.ErrValidation)
	}
	if routeID == "" {
		return model.Opportunity{}, fmt.Errorf("accept %s: route id required: %w", opportunityID, model.ErrInvalidArgument)
	}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var next model.Opportunity
		err := l.store.Atomic(ctx, func(r store.Repos) error {
			cur, err := r.Opportunities().Get(ctx, opportunityID)
			if err != nil {
				return err
			}
			next, err = l.accepted(cur, routeID)
			if err != nil {
				return err
			}
			err = r.Opportunities().CompareAndSwap(ctx, next, cur.Status)
			if errors.Is(err, model.ErrStateConflict) {
				return fmt.Errorf("%w: %v", errLostRace, err)
			}
			return err
		})
		switch {
		case err == nil:
			transitions.WithLabelValues(string(next.Status)).Inc()
			l.record(next, metrics.StageAccepted)
			l.log.Infof("opportunity %s accepted by route %s: %s", next.ID, routeID, next.Status)
			return next, nil
		case errors.Is(err, errLostRace):
			l.log.Debugf("accept %s: lost race, attempt %d", opportunityID, attempt)
			continue
		default:
			return model.Opportunity{}, fmt.Errorf("accept %s: %w", opportunityID, err)
		}
	}
	return model.Opportunity{}, fmt.Errorf("accept %s: too much contention: %w", opportunityID, model.ErrStateConflict)
}

// errLostRace marks a compare-and-swap lost to a concurrent writer.
var errLostRace = errors.New("opportunity changed concurrently")

func (l *Ledger) accepted(cur model.Opportunity, routeID string) (model.Opportunity, error) {
	if cur.Status.Terminal() {
		return cur, fmt.Errorf("opportunity %s is %s: %w", cur.ID, cur.Status, model.ErrStateConflict)
	}
	next := cur
	now := l.now().UTC()
	switch cur.Side(routeID) {
	case 1:
		next.Status = model.OpportunityAcceptedByRoute1
		if cur.Status == model.OpportunityAcceptedByRoute2 {
			next.Status = model.OpportunityBothAccepted
		}
		next.AcceptedByRoute1At = &now
	case 2:
		next.Status = model.OpportunityAcceptedByRoute2
		if cur.Status == model.OpportunityAcceptedByRoute1 {
			next.Status = model.OpportunityBothAccepted
		}
		next.AcceptedByRoute2At = &now
	default:
		return cur, fmt.Errorf("route %s is not part of opportunity %s: %w: %w",
			routeID, cur.ID, model.ErrInvalidArgument, model.ErrStateConflict)
	}
	return next, nil
}

// HandshakeResult describes a completed opportunity.
type HandshakeResult struct {
	Opportunity       model.Opportunity `json:"opportunity"`
	LongHaulDriverID  string            `json:"long_haul_driver_id"`
	ShortHaulDriverID string            `json:"short_haul_driver_id"`
	WinningTruckID    string            `json:"winning_truck_id"`
	WinningRouteID    string            `json:"winning_route_id"`
	MergedRouteID     string            `json:"merged_route_id"`
	MovedDeliveryIDs  []string          `json:"moved_delivery_ids"`
}

// ExpireDue moves every expirable opportunity with ExpiresAt at or before
// now to EXPIRED and returns their ids.
func (l *Ledger) ExpireDue(ctx context.Context, now time.Time) ([]string, error) {
	var expired []model.Opportunity
	err := l.store.Atomic(ctx, func(r store.Repos) error {
		due, err := r.Opportunities().ListDue(ctx, now)
		if err != nil {
			return err
		}
		for _, o := range due {
			prev := o.Status
			o.Status = model.OpportunityExpired
			if err := r.Opportunities().CompareAndSwap(ctx, o, prev); err != nil {
				return err
			}
			expired = append(expired, o)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("expire opportunities: %w", err)
	}
	ids := make([]string, 0, len(expired))
	for _, o := range expired {
		ids = append(ids, o.ID)
		transitions.WithLabelValues(string(model.OpportunityExpired)).Inc()
		l.record(o, metrics.StageExpired)
	}
	if len(ids) > 0 {
		l.log.Infof("expired %d opportunities", len(ids))
	}
	return ids, nil
}

func (l *Ledger) record(o model.Opportunity, stage string) {
	rec, ok := l.metrics.(metrics.OpportunityRecorder)
	if !ok {
		return
	}
	if err := rec.RecordOpportunity(metrics.OpportunityEvent{
		OpportunityID: o.ID,
		Stage:         stage,
		HubID:         o.HubID,
		CarbonSavedKg: o.CarbonSavedKg,
		DistanceKm:    o.DistanceSavedKm,
		Time:          l.now(),
	}); err != nil {
		l.log.Warnf("record opportunity metrics: %v", err)
	}
}
