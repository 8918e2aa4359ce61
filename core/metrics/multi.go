package metrics

import (
	"errors"
	"time"
)

// MultiSink forwards metrics to multiple sinks. Optional recorders are only
// called on sinks that implement them.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

func (m *MultiSink) RecordAllocation(ev AllocationEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordAllocation(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordOpportunity(ev OpportunityEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(OpportunityRecorder); ok {
			if err := r.RecordOpportunity(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordSynergySearch(ev SynergySearchEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(SynergyRecorder); ok {
			if err := r.RecordSynergySearch(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordEvent(topic string, at time.Time) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(EventRecorder); ok {
			if err := r.RecordEvent(topic, at); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
