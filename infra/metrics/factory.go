// Package metrics provides the Prometheus and InfluxDB metrics sinks.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/haulshare/core/factory"
	coremetrics "github.com/kilianp07/haulshare/core/metrics"
	"github.com/kilianp07/haulshare/infra/logger"
)

// init registers built-in metrics sinks.
func init() {
	_ = coremetrics.RegisterMetricsSink("nop", func(map[string]any) (coremetrics.MetricsSink, error) {
		return coremetrics.NopSink{}, nil
	})

	_ = coremetrics.RegisterMetricsSink("prometheus", func(map[string]any) (coremetrics.MetricsSink, error) {
		s, err := NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
		if err != nil {
			return nil, err
		}
		return s, nil
	})

	_ = coremetrics.RegisterMetricsSink("influx", func(conf map[string]any) (coremetrics.MetricsSink, error) {
		var c InfluxConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewInfluxSinkWithFallback(c, logger.New("influx-sink", "")), nil
	})
}
