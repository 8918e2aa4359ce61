package proximity

import "github.com/prometheus/client_golang/prometheus"

var (
	detections      *prometheus.CounterVec
	synergySearches *prometheus.CounterVec
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, *prometheus.CounterVec) {
	det := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "haulshare_detections_total",
			Help: "Proximity detections by outcome (created, none, error)",
		},
		[]string{"outcome"},
	)
	syn := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "haulshare_synergy_searches_total",
			Help: "Synergy searches by result (match, none)",
		},
		[]string{"result"},
	)
	return det, syn
}

func init() {
	detections, synergySearches = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers matching metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(detections, synergySearches)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	detections, synergySearches = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
