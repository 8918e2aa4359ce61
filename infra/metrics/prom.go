package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/haulshare/core/metrics"
)

// PromSink records allocation and opportunity events in Prometheus metrics.
type PromSink struct {
	allocations *prometheus.CounterVec
	routes      *prometheus.CounterVec
	unassigned  *prometheus.CounterVec
	utilization *prometheus.GaugeVec
	duration    prometheus.Histogram
	opps        *prometheus.CounterVec
	carbon      prometheus.Counter
	candidates  prometheus.Histogram
	events      *prometheus.CounterVec
}

// NewPromSink registers metrics on the default Prometheus registerer. The
// /metrics endpoint is served separately by the API.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Metrics
// already registered by an earlier sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		allocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "haulshare_allocations_total",
			Help: "Allocation runs per company",
		}, []string{"company_id"}),
		routes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "haulshare_routes_created_total",
			Help: "Routes created by allocation runs",
		}, []string{"company_id"}),
		unassigned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "haulshare_deliveries_unassigned_total",
			Help: "Deliveries left pending by allocation runs",
		}, []string{"company_id"}),
		utilization: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "haulshare_route_utilization_ratio",
			Help: "Mean weight utilization of the routes created by the last run",
		}, []string{"company_id"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "haulshare_allocation_duration_seconds",
			Help:    "Duration of allocation runs",
			Buckets: prometheus.DefBuckets,
		}),
		opps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "haulshare_opportunities_total",
			Help: "Opportunity lifecycle events by stage",
		}, []string{"stage"}),
		carbon: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "haulshare_carbon_saved_kg_total",
			Help: "Estimated CO2 saved by completed opportunities",
		}),
		candidates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "haulshare_synergy_candidates",
			Help:    "Candidates returned per synergy search",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "haulshare_events_published_total",
			Help: "Domain events published by topic",
		}, []string{"topic"}),
	}
	var err error
	if s.allocations, err = register(reg, s.allocations); err != nil {
		return nil, err
	}
	if s.routes, err = register(reg, s.routes); err != nil {
		return nil, err
	}
	if s.unassigned, err = register(reg, s.unassigned); err != nil {
		return nil, err
	}
	if s.utilization, err = register(reg, s.utilization); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, s.duration); err != nil {
		return nil, err
	}
	if s.opps, err = register(reg, s.opps); err != nil {
		return nil, err
	}
	if s.carbon, err = register(reg, s.carbon); err != nil {
		return nil, err
	}
	if s.candidates, err = register(reg, s.candidates); err != nil {
		return nil, err
	}
	if s.events, err = register(reg, s.events); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordAllocation updates the allocation counters and utilization gauge.
func (s *PromSink) RecordAllocation(ev coremetrics.AllocationEvent) error {
	s.allocations.WithLabelValues(ev.CompanyID).Inc()
	s.routes.WithLabelValues(ev.CompanyID).Add(float64(ev.Routes))
	s.unassigned.WithLabelValues(ev.CompanyID).Add(float64(ev.Unassigned))
	if ev.Routes > 0 {
		s.utilization.WithLabelValues(ev.CompanyID).Set(ev.MeanUtilization)
	}
	s.duration.Observe(ev.Duration.Seconds())
	return nil
}

// RecordOpportunity counts lifecycle stages; completions add their carbon
// estimate.
func (s *PromSink) RecordOpportunity(ev coremetrics.OpportunityEvent) error {
	s.opps.WithLabelValues(ev.Stage).Inc()
	if ev.Stage == coremetrics.StageCompleted && ev.CarbonSavedKg > 0 {
		s.carbon.Add(ev.CarbonSavedKg)
	}
	return nil
}

func (s *PromSink) RecordSynergySearch(ev coremetrics.SynergySearchEvent) error {
	s.candidates.Observe(float64(ev.Candidates))
	return nil
}

func (s *PromSink) RecordEvent(topic string, _ time.Time) error {
	s.events.WithLabelValues(topic).Inc()
	return nil
}
