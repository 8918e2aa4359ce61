// Package metrics defines the sinks used to observe allocation runs and the
// opportunity lifecycle. Sinks like PromSink and InfluxSink live in
// infra/metrics and can be combined with NewMultiSink. The factory helpers
// return a MultiSink automatically when multiple sinks are configured.
package metrics
