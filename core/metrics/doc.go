// Package metrics defines the sinks that record planning activity: batch
// runs, per-student outcomes, hook failures, saved plans and carryover
// passes. Sinks such as PromSink and InfluxSink live in infra/metrics and
// register themselves by name; NewMetricsSink builds one sink, or a
// MultiSink when several are configured.
package metrics
