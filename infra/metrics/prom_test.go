package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	coremetrics "github.com/kilianp07/studyplan/core/metrics"
)

func TestPromSink_RecordBatch(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	if err := sink.RecordBatch(coremetrics.BatchSummary{SuccessCount: 9, FailureCount: 1, Duration: time.Second}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := sink.RecordBatch(coremetrics.BatchSummary{FailureCount: 2, Cancelled: true}); err != nil {
		t.Fatalf("record: %v", err)
	}

	expected := `
# HELP studyplan_batch_runs_total Batch runs recorded by the metrics sink
# TYPE studyplan_batch_runs_total counter
studyplan_batch_runs_total{cancelled="false"} 1
studyplan_batch_runs_total{cancelled="true"} 1
`
	if err := testutil.CollectAndCompare(sink.runs, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
	if v := testutil.ToFloat64(sink.lastFailed); v != 2 {
		t.Errorf("last failures = %v, want 2", v)
	}
	if c := testutil.CollectAndCount(sink.runDuration); c == 0 {
		t.Errorf("duration not recorded")
	}
}

func TestPromSink_Recorders(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	_ = sink.RecordStudent(coremetrics.StudentOutcome{Success: true, Duration: 10 * time.Millisecond})
	_ = sink.RecordHookFailure(coremetrics.HookFailure{})
	_ = sink.RecordHookFailure(coremetrics.HookFailure{})
	_ = sink.RecordPlan(coremetrics.PlanSaved{Allocations: 10, Untimed: 3})
	_ = sink.RecordCarryover(coremetrics.CarryoverSummary{Records: 4, Applied: 3})

	if c := testutil.CollectAndCount(sink.students); c != 1 {
		t.Errorf("student series = %d, want 1", c)
	}
	if v := testutil.ToFloat64(sink.hooks); v != 2 {
		t.Errorf("hooks = %v, want 2", v)
	}
	if v := testutil.ToFloat64(sink.plans.WithLabelValues("true")); v != 7 {
		t.Errorf("timed allocations = %v, want 7", v)
	}
	if v := testutil.ToFloat64(sink.carryover.WithLabelValues("applied")); v != 3 {
		t.Errorf("applied = %v, want 3", v)
	}
}

func TestPromSink_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	_ = first.RecordHookFailure(coremetrics.HookFailure{})
	_ = second.RecordHookFailure(coremetrics.HookFailure{})
	if v := testutil.ToFloat64(first.hooks); v != 2 {
		t.Fatalf("expected shared counter at 2, got %v", v)
	}
}
