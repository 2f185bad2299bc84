package batch

import "github.com/prometheus/client_golang/prometheus"

var (
	studentsProcessed *prometheus.CounterVec
	batchDuration     prometheus.Histogram
	hookFailures      prometheus.Counter
	inFlight          prometheus.Gauge
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, prometheus.Histogram, prometheus.Counter, prometheus.Gauge) {
	students := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyplan_batch_students_total",
			Help: "Number of students processed by batch runs",
		},
		[]string{"outcome"},
	)
	dur := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "studyplan_batch_duration_seconds",
			Help:    "Wall time of a complete batch run",
			Buckets: prometheus.DefBuckets,
		},
	)
	hooks := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "studyplan_batch_hook_failures_total",
			Help: "Number of failed post-success notification hooks",
		},
	)
	running := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "studyplan_batch_students_in_flight",
			Help: "Number of student generations currently running",
		},
	)
	return students, dur, hooks, running
}

func init() {
	studentsProcessed, batchDuration, hookFailures, inFlight = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers batch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(studentsProcessed, batchDuration, hookFailures, inFlight)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	studentsProcessed, batchDuration, hookFailures, inFlight = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
