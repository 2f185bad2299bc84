package metrics

import (
	"errors"
	"testing"
)

type countingSink struct {
	batches, students, hooks, plans, carry int
	err                                    error
}

func (c *countingSink) RecordBatch(BatchSummary) error { c.batches++; return c.err }
func (c *countingSink) RecordStudent(StudentOutcome) error {
	c.students++
	return nil
}
func (c *countingSink) RecordHookFailure(HookFailure) error { c.hooks++; return nil }
func (c *countingSink) RecordPlan(PlanSaved) error          { c.plans++; return nil }
func (c *countingSink) RecordCarryover(CarryoverSummary) error {
	c.carry++
	return nil
}

func TestMultiSinkForwards(t *testing.T) {
	a, b := &countingSink{}, &countingSink{}
	m := NewMultiSink(a, NopSink{}, b)
	_ = m.RecordBatch(BatchSummary{})
	_ = m.RecordStudent(StudentOutcome{})
	_ = m.RecordHookFailure(HookFailure{})
	_ = m.RecordPlan(PlanSaved{})
	_ = m.RecordCarryover(CarryoverSummary{})
	for _, s := range []*countingSink{a, b} {
		if s.batches != 1 || s.students != 1 || s.hooks != 1 || s.plans != 1 || s.carry != 1 {
			t.Fatalf("unexpected counts %+v", s)
		}
	}
}

func TestMultiSinkStopsOnError(t *testing.T) {
	failing := &countingSink{err: errors.New("down")}
	after := &countingSink{}
	m := NewMultiSink(failing, after)
	if err := m.RecordBatch(BatchSummary{}); err == nil {
		t.Fatal("expected error")
	}
	if after.batches != 0 {
		t.Fatalf("sink after failure should not be called")
	}
}
