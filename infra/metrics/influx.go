package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/studyplan/core/metrics"
	"github.com/kilianp07/studyplan/infra/logger"
)

// InfluxSink writes planning activity to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the client.
func (s *InfluxSink) Close() { s.client.Close() }

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordBatch writes a batch_run point.
func (s *InfluxSink) RecordBatch(b coremetrics.BatchSummary) error {
	p := write.NewPointWithMeasurement("batch_run").
		AddTag("run_id", b.RunID).
		AddTag("cancelled", strconv.FormatBool(b.Cancelled)).
		AddField("success", b.SuccessCount).
		AddField("failure", b.FailureCount).
		AddField("duration_ms", round3(b.Duration.Seconds()*1000)).
		SetTime(b.Time)
	return s.write(p)
}

// RecordStudent writes a student_generation point.
func (s *InfluxSink) RecordStudent(o coremetrics.StudentOutcome) error {
	p := write.NewPointWithMeasurement("student_generation").
		AddTag("run_id", o.RunID).
		AddTag("student_id", o.StudentID).
		AddTag("success", strconv.FormatBool(o.Success)).
		AddField("duration_ms", round3(o.Duration.Seconds()*1000)).
		AddField("error", o.Error).
		SetTime(o.Time)
	return s.write(p)
}

// RecordHookFailure writes a hook_failure point.
func (s *InfluxSink) RecordHookFailure(f coremetrics.HookFailure) error {
	p := write.NewPointWithMeasurement("hook_failure").
		AddTag("run_id", f.RunID).
		AddTag("student_id", f.StudentID).
		AddField("error", f.Error).
		SetTime(f.Time)
	return s.write(p)
}

// RecordPlan writes a plan_saved point.
func (s *InfluxSink) RecordPlan(ps coremetrics.PlanSaved) error {
	p := write.NewPointWithMeasurement("plan_saved").
		AddTag("student_id", ps.StudentID).
		AddField("allocations", ps.Allocations).
		AddField("untimed", ps.Untimed).
		SetTime(ps.Time)
	return s.write(p)
}

// RecordCarryover writes a carryover_run point.
func (s *InfluxSink) RecordCarryover(c coremetrics.CarryoverSummary) error {
	p := write.NewPointWithMeasurement("carryover_run").
		AddTag("cutoff", c.Cutoff).
		AddField("records", c.Records).
		AddField("applied", c.Applied).
		SetTime(c.Time)
	return s.write(p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
