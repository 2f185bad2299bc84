package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/studyplan/core/metrics"
)

// PromSink records planning activity in Prometheus metrics.
type PromSink struct {
	runs        *prometheus.CounterVec
	lastFailed  prometheus.Gauge
	runDuration prometheus.Histogram
	students    *prometheus.HistogramVec
	hooks       prometheus.Counter
	plans       *prometheus.CounterVec
	carryover   *prometheus.CounterVec
}

// NewPromSink registers metrics on the default Prometheus registerer.
// The HTTP endpoint is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by an earlier sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studyplan_batch_runs_total",
			Help: "Batch runs recorded by the metrics sink",
		}, []string{"cancelled"}),
		lastFailed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "studyplan_batch_last_failures",
			Help: "Failed students in the most recent batch run",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "studyplan_batch_run_seconds",
			Help:    "Wall time of batch runs recorded by the metrics sink",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		students: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "studyplan_student_generation_seconds",
			Help:    "Time spent generating one student's plan",
			Buckets: prometheus.DefBuckets,
		}, []string{"success"}),
		hooks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "studyplan_hook_failures_recorded_total",
			Help: "Notification hook failures seen by the metrics sink",
		}),
		plans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studyplan_allocations_saved_total",
			Help: "Allocations written to the plan store",
		}, []string{"timed"}),
		carryover: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studyplan_carryover_plans_total",
			Help: "Plans considered and moved by carryover passes",
		}, []string{"stage"}),
	}
	var err error
	if s.runs, err = register(reg, s.runs); err != nil {
		return nil, err
	}
	if s.lastFailed, err = register(reg, s.lastFailed); err != nil {
		return nil, err
	}
	if s.runDuration, err = register(reg, s.runDuration); err != nil {
		return nil, err
	}
	if s.students, err = register(reg, s.students); err != nil {
		return nil, err
	}
	if s.hooks, err = register(reg, s.hooks); err != nil {
		return nil, err
	}
	if s.plans, err = register(reg, s.plans); err != nil {
		return nil, err
	}
	if s.carryover, err = register(reg, s.carryover); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordBatch counts the run and updates the last-run gauges.
func (s *PromSink) RecordBatch(b coremetrics.BatchSummary) error {
	s.runs.WithLabelValues(strconv.FormatBool(b.Cancelled)).Inc()
	s.lastFailed.Set(float64(b.FailureCount))
	s.runDuration.Observe(b.Duration.Seconds())
	return nil
}

// RecordStudent observes the generation time of one student.
func (s *PromSink) RecordStudent(o coremetrics.StudentOutcome) error {
	s.students.WithLabelValues(strconv.FormatBool(o.Success)).Observe(o.Duration.Seconds())
	return nil
}

// RecordHookFailure increments the hook failure counter.
func (s *PromSink) RecordHookFailure(coremetrics.HookFailure) error {
	s.hooks.Inc()
	return nil
}

// RecordPlan counts saved allocations split by timed and untimed.
func (s *PromSink) RecordPlan(p coremetrics.PlanSaved) error {
	s.plans.WithLabelValues("true").Add(float64(p.Allocations - p.Untimed))
	s.plans.WithLabelValues("false").Add(float64(p.Untimed))
	return nil
}

// RecordCarryover counts eligible and applied plans.
func (s *PromSink) RecordCarryover(c coremetrics.CarryoverSummary) error {
	s.carryover.WithLabelValues("eligible").Add(float64(c.Records))
	s.carryover.WithLabelValues("applied").Add(float64(c.Applied))
	return nil
}
