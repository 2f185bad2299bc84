package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/studyplan/core/metrics"
)

type bodyRecorder struct {
	mu     sync.Mutex
	bodies []string
}

func (b *bodyRecorder) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		b.mu.Lock()
		b.bodies = append(b.bodies, strings.TrimSpace(string(data)))
		b.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (b *bodyRecorder) all() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.bodies...)
}

func line(p *write.Point) string {
	return strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
}

func TestInfluxSink_RecordBatch(t *testing.T) {
	var rec bodyRecorder
	srv := rec.server(t)
	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()

	now := time.Now()
	if err := sink.RecordBatch(coremetrics.BatchSummary{
		RunID: "r1", SuccessCount: 9, FailureCount: 1, Duration: 1500 * time.Millisecond, Time: now,
	}); err != nil {
		t.Fatalf("record error: %v", err)
	}
	exp := line(write.NewPointWithMeasurement("batch_run").
		AddTag("run_id", "r1").
		AddTag("cancelled", "false").
		AddField("success", 9).
		AddField("failure", 1).
		AddField("duration_ms", 1500.0).
		SetTime(now))
	if got := rec.all(); len(got) != 1 || got[0] != exp {
		t.Errorf("unexpected bodies: %#v", got)
	}
}

func TestInfluxSink_Recorders(t *testing.T) {
	var rec bodyRecorder
	srv := rec.server(t)
	sink := NewInfluxSink(srv.URL+"/api/v2/write", "token", "org", "bucket")
	defer sink.Close()

	now := time.Now()
	if err := sink.RecordStudent(coremetrics.StudentOutcome{RunID: "r1", StudentID: "s5", Error: "boom", Duration: 20 * time.Millisecond, Time: now}); err != nil {
		t.Fatalf("student: %v", err)
	}
	if err := sink.RecordHookFailure(coremetrics.HookFailure{RunID: "r1", StudentID: "s2", Error: "timeout", Time: now}); err != nil {
		t.Fatalf("hook: %v", err)
	}
	if err := sink.RecordPlan(coremetrics.PlanSaved{StudentID: "s1", Allocations: 10, Untimed: 2, Time: now}); err != nil {
		t.Fatalf("plan: %v", err)
	}
	if err := sink.RecordCarryover(coremetrics.CarryoverSummary{Cutoff: "2025-03-05", Records: 3, Applied: 3, Time: now}); err != nil {
		t.Fatalf("carryover: %v", err)
	}
	want := []string{
		line(write.NewPointWithMeasurement("student_generation").
			AddTag("run_id", "r1").AddTag("student_id", "s5").AddTag("success", "false").
			AddField("duration_ms", 20.0).AddField("error", "boom").SetTime(now)),
		line(write.NewPointWithMeasurement("hook_failure").
			AddTag("run_id", "r1").AddTag("student_id", "s2").
			AddField("error", "timeout").SetTime(now)),
		line(write.NewPointWithMeasurement("plan_saved").
			AddTag("student_id", "s1").AddField("allocations", 10).AddField("untimed", 2).SetTime(now)),
		line(write.NewPointWithMeasurement("carryover_run").
			AddTag("cutoff", "2025-03-05").AddField("records", 3).AddField("applied", 3).SetTime(now)),
	}
	got := rec.all()
	if len(got) != len(want) {
		t.Fatalf("expected %d writes, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("write %d:\n got %s\nwant %s", i, got[i], want[i])
		}
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}
