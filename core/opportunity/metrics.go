package opportunity

import "github.com/prometheus/client_golang/prometheus"

var transitions *prometheus.CounterVec

// newCollectors creates new metric collectors.
func newCollectors() *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "haulshare_opportunity_transitions_total",
			Help: "Opportunity status transitions by target status",
		},
		[]string{"status"},
	)
}

func init() {
	transitions = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers ledger metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(transitions)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	transitions = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
