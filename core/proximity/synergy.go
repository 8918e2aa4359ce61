package proximity

import (
	"context"
	"fmt"

	"github.com/kilianp07/haulshare/core/events"
	"github.com/kilianp07/haulshare/core/geo"
	"github.com/kilianp07/haulshare/core/metrics"
	"github.com/kilianp07/haulshare/core/model"
	"github.com/kilianp07/haulshare/core/store"
)

// Constraints is the per-candidate breakdown of a synergy search.
type Constraints struct {
	Geofence        bool `json:"geofence"`
	Capacity        bool `json:"capacity"`
	CargoCompatible bool `json:"cargo_compatible"`
	PathAligned     bool `json:"path_aligned"`
}

// All reports whether every constraint holds.
func (c Constraints) All() bool {
	return c.Geofence && c.Capacity && c.CargoCompatible && c.PathAligned
}

// SynergyCandidate is a truck within the synergy geofence.
type SynergyCandidate struct {
	TruckID         string      `json:"truck_id"`
	DeliveryID      string      `json:"delivery_id"`
	DistanceKm      float64     `json:"distance_km"`
	Constraints     Constraints `json:"constraints"`
	HighProbability bool        `json:"high_probability"`
}

// SynergyReport lists candidates for a searching truck.
type SynergyReport struct {
	TruckID    string             `json:"truck_id"`
	DeliveryID string             `json:"delivery_id"`
	Candidates []SynergyCandidate `json:"candidates"`
}

// HighProbability returns the candidates meeting every constraint.
func (r SynergyReport) HighProbability() []SynergyCandidate {
	var out []SynergyCandidate
	for _, c := range r.Candidates {
		if c.HighProbability {
			out = append(out, c)
		}
	}
	return out
}

// SearchSynergy evaluates every other truck holding an active delivery
// against the searching truck and its own active delivery. Nothing is
// written; high probability matches are published as one batch.
func (m *Matcher) SearchSynergy(ctx context.Context, truckID string) (SynergyReport, error) {
	if truckID == "" {
		return SynergyReport{}, fmt.Errorf("search synergy: truck id required: %w", model.ErrValidation)
	}
	report := SynergyReport{TruckID: truckID}
	err := m.store.Atomic(ctx, func(r store.Repos) error {
		searching, err := r.Trucks().Get(ctx, truckID)
		if err != nil {
			return err
		}
		if searching.Position == nil {
			return fmt.Errorf("truck %s has no known position: %w", truckID, model.ErrValidation)
		}
		own, err := r.Deliveries().ListActiveByTruck(ctx, truckID)
		if err != nil {
			return err
		}
		if len(own) == 0 {
			return fmt.Errorf("truck %s has no active delivery: %w", truckID, model.ErrStateConflict)
		}
		mine := own[0]
		report.DeliveryID = mine.ID

		active, err := r.Deliveries().ListActive(ctx)
		if err != nil {
			return err
		}
		seen := map[string]bool{truckID: true}
		for _, d := range active {
			if seen[d.TruckID] {
				continue
			}
			seen[d.TruckID] = true
			cand, err := r.Trucks().Get(ctx, d.TruckID)
			if err != nil || cand.Position == nil {
				m.log.Debugf("synergy %s: skip truck %s without position (%v)", truckID, d.TruckID, err)
				continue
			}
			dist := geo.Distance(*searching.Position, *cand.Position)
			c := Constraints{
				Geofence:        dist <= m.cfg.SynergyGeofenceKm,
				Capacity:        searching.MaxWeight == nil || *searching.MaxWeight-mine.Weight >= d.Weight,
				CargoCompatible: geo.Compatible(mine.CargoType, d.CargoType),
				PathAligned:     mine.Drop.Label == d.Drop.Label,
			}
			if !c.Geofence {
				continue
			}
			report.Candidates = append(report.Candidates, SynergyCandidate{
				TruckID:         cand.ID,
				DeliveryID:      d.ID,
				DistanceKm:      dist,
				Constraints:     c,
				HighProbability: c.All(),
			})
		}
		return nil
	})
	if err != nil {
		return SynergyReport{}, fmt.Errorf("search synergy %s: %w", truckID, err)
	}

	high := report.HighProbability()
	if len(high) == 0 {
		synergySearches.WithLabelValues("none").Inc()
	} else {
		synergySearches.WithLabelValues("match").Inc()
		ev := events.SynergyMatch{SearchingTruck: truckID}
		for _, c := range high {
			ev.Matches = append(ev.Matches, events.SynergyEntry{TruckID: c.TruckID, DeliveryID: c.DeliveryID, DistanceKm: c.DistanceKm})
		}
		events.Emit(ctx, m.publisher, m.log, ev)
	}
	if rec, ok := m.metrics.(metrics.SynergyRecorder); ok {
		if err := rec.RecordSynergySearch(metrics.SynergySearchEvent{
			TruckID:         truckID,
			Candidates:      len(report.Candidates),
			HighProbability: len(high),
			Time:            m.now(),
		}); err != nil {
			m.log.Warnf("record synergy metrics: %v", err)
		}
	}
	return report, nil
}
