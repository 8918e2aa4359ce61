// Package proximity detects consolidation opportunities between trucks
// that are close to each other.
package proximity

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/haulshare/core/events"
	"github.com/kilianp07/haulshare/core/geo"
	"github.com/kilianp07/haulshare/core/logger"
	"github.com/kilianp07/haulshare/core/metrics"
	"github.com/kilianp07/haulshare/core/model"
	"github.com/kilianp07/haulshare/core/monitoring"
	"github.com/kilianp07/haulshare/core/store"
)

// Matcher runs proximity detection and synergy searches.
type Matcher struct {
	store     store.Store
	publisher events.Publisher
	metrics   metrics.MetricsSink
	log       logger.Logger
	cfg       Config
	now       func() time.Time
	newID     func() string
}

func NewMatcher(s store.Store, pub events.Publisher, sink metrics.MetricsSink, log logger.Logger, cfg Config) *Matcher {
	cfg.SetDefaults()
	if pub == nil {
		pub = events.NopPublisher{}
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Matcher{
		store:     s,
		publisher: pub,
		metrics:   sink,
		log:       logger.OrNop(log),
		cfg:       cfg,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Detect looks for a truck near (lat, lng) whose load the given truck can
// absorb at a nearby hub. It stores and returns the first feasible
// opportunity, or nil. Failures are logged and reported, never returned:
// detection runs on every position update.
func (m *Matcher) Detect(ctx context.Context, truckID string, lat, lng float64) *model.Opportunity {
	opp, err := m.detect(ctx, truckID, model.GeoPoint{Lat: lat, Lng: lng})
	if err != nil {
		detections.WithLabelValues("error").Inc()
		m.log.Errorf("detect %s: %v", truckID, err)
		monitoring.Capture(err, "detect", "truck_id", truckID)
		return nil
	}
	if opp == nil {
		detections.WithLabelValues("none").Inc()
		return nil
	}
	detections.WithLabelValues("created").Inc()
	m.log.Infof("opportunity %s: truck %s can absorb %s at hub %s (%.1f kg CO2)",
		opp.ID, opp.Truck1ID, opp.Truck2ID, opp.HubID, opp.CarbonSavedKg)

	events.Emit(ctx, m.publisher, m.log, events.OpportunityDetected{
		OpportunityID: opp.ID,
		TruckA:        opp.Truck1ID,
		TruckB:        opp.Truck2ID,
		Hub:           opp.HubID,
		CarbonSaved:   int64(math.Round(opp.CarbonSavedKg)),
	})
	if rec, ok := m.metrics.(metrics.OpportunityRecorder); ok {
		if err := rec.RecordOpportunity(metrics.OpportunityEvent{
			OpportunityID: opp.ID,
			Stage:         metrics.StageDetected,
			HubID:         opp.HubID,
			CarbonSavedKg: opp.CarbonSavedKg,
			DistanceKm:    opp.DistanceSavedKm,
			Time:          opp.CreatedAt,
		}); err != nil {
			m.log.Warnf("record opportunity metrics: %v", err)
		}
	}
	return opp
}

func (m *Matcher) detect(ctx context.Context, truckID string, p model.GeoPoint) (*model.Opportunity, error) {
	if truckID == "" {
		return nil, fmt.Errorf("truck id required: %w", model.ErrValidation)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	var created *model.Opportunity
	err := m.store.Atomic(ctx, func(r store.Repos) error {
		a, err := r.Trucks().Get(ctx, truckID)
		if err != nil {
			return err
		}
		routeA, ok, err := singleActiveRoute(ctx, r, a.ID)
		if err != nil || !ok {
			return err
		}
		near, err := r.Trucks().FindWithin(ctx, p, m.cfg.GeofenceKm)
		if err != nil {
			return err
		}

		var (
			hub       model.Hub
			hubLooked bool
		)
		for _, b := range near {
			if b.ID == a.ID {
				continue
			}
			dist := geo.Distance(p, *b.Position)
			if dist >= m.cfg.GeofenceKm {
				continue
			}
			routeB, ok, err := singleActiveRoute(ctx, r, b.ID)
			if err != nil {
				return err
			}
			if !ok || routeB.ID == routeA.ID {
				continue
			}
			if !hubLooked {
				hubLooked = true
				hub, err = r.Hubs().Nearest(ctx, p, m.cfg.HubRadiusKm)
				if err != nil && !errors.Is(err, model.ErrNotFound) {
					return err
				}
			}
			if hub.ID == "" {
				continue
			}
			resW, resV := a.Residual()
			if resW < b.CurrentWeight || resV < b.CurrentVolume {
				continue
			}

			opp := m.newOpportunity(a, b, routeA, routeB, hub, dist, resW, resV)
			if err := r.Opportunities().Create(ctx, opp); err != nil {
				if errors.Is(err, model.ErrAlreadyExists) {
					m.log.Debugf("detect %s: pair with %s skipped: %v", a.ID, b.ID, err)
					continue
				}
				return err
			}
			created = &opp
			return nil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (m *Matcher) newOpportunity(a, b model.Truck, routeA, routeB model.Route, hub model.Hub, dist, resW, resV float64) model.Opportunity {
	factor := m.cfg.DefaultCO2PerKm
	if a.CO2PerKm != nil {
		factor = *a.CO2PerKm
	}
	now := m.now().UTC()
	return model.Opportunity{
		ID:                    m.newID(),
		Route1ID:              routeA.ID,
		Route2ID:              routeB.ID,
		Truck1ID:              a.ID,
		Truck2ID:              b.ID,
		HubID:                 hub.ID,
		DistanceSavedKm:       dist,
		CarbonSavedKg:         dist * factor,
		Center:                hub.Location,
		Route1AvailableWeight: finite(resW),
		Route1AvailableVolume: finite(resV),
		Route2RequiredWeight:  b.CurrentWeight,
		Route2RequiredVolume:  b.CurrentVolume,
		EstimatedMeetAt:       now.Add(m.cfg.MeetOffset),
		AcceptanceDeadline:    now.Add(m.cfg.AcceptanceWindow),
		ExpiresAt:             now.Add(m.cfg.Expiry),
		Status:                model.OpportunityPending,
		CreatedAt:             now,
	}
}

// singleActiveRoute returns the truck's ACTIVE route when it has exactly
// one.
func singleActiveRoute(ctx context.Context, r store.Repos, truckID string) (model.Route, bool, error) {
	routes, err := r.Routes().ListByTruck(ctx, truckID, model.RouteActive)
	if err != nil {
		return model.Route{}, false, err
	}
	if len(routes) != 1 {
		return model.Route{}, false, nil
	}
	return routes[0], true, nil
}

// finite caps unbounded capacities so they survive JSON and SQL.
func finite(v float64) float64 {
	if math.IsInf(v, 1) {
		return math.MaxFloat64
	}
	return v
}
