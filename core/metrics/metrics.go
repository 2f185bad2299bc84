package metrics

import "time"

// BatchSummary describes one completed batch run.
type BatchSummary struct {
	RunID        string
	SuccessCount int
	FailureCount int
	Cancelled    bool
	Duration     time.Duration
	Time         time.Time
}

// MetricsSink records batch summaries. Sinks may additionally implement the
// optional recorder interfaces below.
type MetricsSink interface {
	RecordBatch(s BatchSummary) error
}

// StudentOutcome is the result of generating one student's plan.
type StudentOutcome struct {
	RunID     string
	StudentID string
	Success   bool
	Error     string
	Duration  time.Duration
	Time      time.Time
}

// StudentRecorder records per-student outcomes.
type StudentRecorder interface {
	RecordStudent(o StudentOutcome) error
}

// HookFailure captures a failed post-success notification.
type HookFailure struct {
	RunID     string
	StudentID string
	Error     string
	Time      time.Time
}

// HookFailureRecorder records hook failures.
type HookFailureRecorder interface {
	RecordHookFailure(f HookFailure) error
}

// PlanSaved describes a plan written to the store.
type PlanSaved struct {
	StudentID   string
	Allocations int
	Untimed     int
	Time        time.Time
}

// PlanRecorder records saved plans.
type PlanRecorder interface {
	RecordPlan(p PlanSaved) error
}

// CarryoverSummary describes one carryover pass.
type CarryoverSummary struct {
	Cutoff  string
	Records int
	Applied int
	Time    time.Time
}

// CarryoverRecorder records carryover passes.
type CarryoverRecorder interface {
	RecordCarryover(c CarryoverSummary) error
}

// NopSink is a MetricsSink that does nothing.
type NopSink struct{}

func (NopSink) RecordBatch(BatchSummary) error { return nil }

// MultiSink fans records out to several sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordBatch forwards the summary to all sinks, returning the first error encountered.
func (m *MultiSink) RecordBatch(s BatchSummary) error {
	for _, sink := range m.Sinks {
		if err := sink.RecordBatch(s); err != nil {
			return err
		}
	}
	return nil
}

// RecordStudent forwards to sinks implementing StudentRecorder.
func (m *MultiSink) RecordStudent(o StudentOutcome) error {
	for _, sink := range m.Sinks {
		if r, ok := sink.(StudentRecorder); ok {
			if err := r.RecordStudent(o); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordHookFailure forwards to sinks implementing HookFailureRecorder.
func (m *MultiSink) RecordHookFailure(f HookFailure) error {
	for _, sink := range m.Sinks {
		if r, ok := sink.(HookFailureRecorder); ok {
			if err := r.RecordHookFailure(f); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordPlan forwards to sinks implementing PlanRecorder.
func (m *MultiSink) RecordPlan(p PlanSaved) error {
	for _, sink := range m.Sinks {
		if r, ok := sink.(PlanRecorder); ok {
			if err := r.RecordPlan(p); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordCarryover forwards to sinks implementing CarryoverRecorder.
func (m *MultiSink) RecordCarryover(c CarryoverSummary) error {
	for _, sink := range m.Sinks {
		if r, ok := sink.(CarryoverRecorder); ok {
			if err := r.RecordCarryover(c); err != nil {
				return err
			}
		}
	}
	return nil
}
