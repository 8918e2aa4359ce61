package metrics

import "time"

// AllocationEvent summarizes one allocation run.
type AllocationEvent struct {
	CompanyID       string
	Routes          int
	Deliveries      int
	Unassigned      int
	MeanUtilization float64
	Duration        time.Duration
	Time            time.Time
}

// MetricsSink records allocation runs for observability purposes.
type MetricsSink interface {
	RecordAllocation(ev AllocationEvent) error
}

// OpportunityEvent captures a change in an opportunity's life.
type OpportunityEvent struct {
	OpportunityID string
	Stage         string
	HubID         string
	CarbonSavedKg float64
	DistanceKm    float64
	Time          time.Time
}

// Opportunity stages reported through OpportunityRecorder.
const (
	StageDetected  = "detected"
	StageAccepted  = "accepted"
	StageCompleted = "completed"
	StageExpired   = "expired"
)

// OpportunityRecorder records opportunity lifecycle events.
type OpportunityRecorder interface {
	RecordOpportunity(ev OpportunityEvent) error
}

// SynergySearchEvent records one advisory synergy search.
type SynergySearchEvent struct {
	TruckID         string
	Candidates      int
	HighProbability int
	Time            time.Time
}

// SynergyRecorder records synergy searches.
type SynergyRecorder interface {
	RecordSynergySearch(ev SynergySearchEvent) error
}

// EventRecorder counts published domain events by topic.
type EventRecorder interface {
	RecordEvent(topic string, at time.Time) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordAllocation(AllocationEvent) error       { return nil }
func (NopSink) RecordOpportunity(OpportunityEvent) error     { return nil }
func (NopSink) RecordSynergySearch(SynergySearchEvent) error { return nil }
func (NopSink) RecordEvent(string, time.Time) error          { return nil }
