package metrics

import (
	"context"
	"time"

	"github.com/kilianp07/studyplan/core/events"
	coremetrics "github.com/kilianp07/studyplan/core/metrics"
	"github.com/kilianp07/studyplan/infra/logger"
	"github.com/kilianp07/studyplan/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and forwards events to the
// sink's recorders. It stops when the context is canceled or the bus closes.
// The returned channel is closed once the collector has exited.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := record(sink, ev, time.Now()); err != nil {
					log.Warnf("metrics sink: %v", err)
				}
			}
		}
	}()
	return done
}

func record(sink coremetrics.MetricsSink, ev eventbus.Event, now time.Time) error {
	switch e := ev.(type) {
	case events.BatchEvent:
		return sink.RecordBatch(coremetrics.BatchSummary{
			RunID:        e.RunID,
			SuccessCount: e.SuccessCount,
			FailureCount: e.FailureCount,
			Cancelled:    e.Cancelled,
			Duration:     e.Duration,
			Time:         e.Started,
		})
	case events.StudentEvent:
		if r, ok := sink.(coremetrics.StudentRecorder); ok {
			return r.RecordStudent(coremetrics.StudentOutcome{
				RunID:     e.RunID,
				StudentID: e.StudentID,
				Success:   e.Success,
				Error:     errString(e.Err),
				Duration:  e.Duration,
				Time:      now,
			})
		}
	case events.HookEvent:
		if r, ok := sink.(coremetrics.HookFailureRecorder); ok {
			return r.RecordHookFailure(coremetrics.HookFailure{
				RunID: e.RunID, StudentID: e.StudentID, Error: errString(e.Err), Time: now,
			})
		}
	case events.PlanEvent:
		if r, ok := sink.(coremetrics.PlanRecorder); ok {
			return r.RecordPlan(coremetrics.PlanSaved{
				StudentID: e.StudentID, Allocations: e.Allocations, Untimed: e.Untimed, Time: now,
			})
		}
	case events.CarryoverEvent:
		if r, ok := sink.(coremetrics.CarryoverRecorder); ok {
			return r.RecordCarryover(coremetrics.CarryoverSummary{
				Cutoff: e.Cutoff, Records: e.Records, Applied: e.Applied, Time: now,
			})
		}
	}
	return nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
