// Package batch generates plans for many students with a fixed concurrency
// ceiling while isolating each student's failure from its siblings.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/studyplan/core/events"
	"github.com/kilianp07/studyplan/core/logger"
	"github.com/kilianp07/studyplan/internal/eventbus"
)

// ErrCancelled is recorded for students that were never started because the
// run was cancelled.
var ErrCancelled = errors.New("batch cancelled before student started")

// GenerateFunc produces and persists the plan of one student.
type GenerateFunc func(ctx context.Context, studentID string) error

// Notifier is the post-success hook invoked for each successful student.
// Its failure is logged and reported on the hook error channel, never
// reflected in the student's result.
type Notifier interface {
	Notify(ctx context.Context, studentID string) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, studentID string) error

func (f NotifierFunc) Notify(ctx context.Context, studentID string) error { return f(ctx, studentID) }

// HookError reports a failed notification.
type HookError struct {
	StudentID string
	Err       error
}

// StudentResult is the outcome of one student.
type StudentResult struct {
	StudentID string        `json:"student_id"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
	err       error
}

// Err returns the underlying error of a failed student.
func (r StudentResult) Err() error { return r.err }

// Result summarizes a batch run. Students is in input order.
type Result struct {
	RunID        string          `json:"run_id"`
	SuccessCount int             `json:"success_count"`
	FailureCount int             `json:"failure_count"`
	Cancelled    bool            `json:"cancelled"`
	Students     []StudentResult `json:"students"`
}

// FailedIDs returns the failed student ids in input order, ready for a retry.
func (r Result) FailedIDs() []string {
	var ids []string
	for _, s := range r.Students {
		if !s.Success {
			ids = append(ids, s.StudentID)
		}
	}
	return ids
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithNotifier sets the post-success hook.
func WithNotifier(n Notifier) Option { return func(o *Orchestrator) { o.notifier = n } }

// WithHookErrors sets the channel receiving hook failures. Sends never block;
// errors are dropped when the channel is full.
func WithHookErrors(ch chan<- HookError) Option { return func(o *Orchestrator) { o.hookErrs = ch } }

// WithBus publishes student, hook and batch events on bus.
func WithBus(bus eventbus.EventBus) Option { return func(o *Orchestrator) { o.bus = bus } }

// Orchestrator runs GenerateFunc for many students.
type Orchestrator struct {
	cfg      Config
	notifier Notifier
	hookErrs chan<- HookError
	bus      eventbus.EventBus
	logger   logger.Logger
	hooks    sync.WaitGroup
}

// NewOrchestrator creates an orchestrator; zero config fields take their defaults.
func NewOrchestrator(cfg Config, log logger.Logger, opts ...Option) *Orchestrator {
	cfg.SetDefaults()
	if log == nil {
		log = nopLogger{}
	}
	o := &Orchestrator{cfg: cfg, logger: log}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunBatch runs generate for every student with the given concurrency limit
// and no hook. A limit <= 0 uses DefaultConcurrencyLimit.
func RunBatch(ctx context.Context, studentIDs []string, generate GenerateFunc, concurrencyLimit int, log logger.Logger) Result {
	return NewOrchestrator(Config{ConcurrencyLimit: concurrencyLimit}, log).Run(ctx, studentIDs, generate)
}

// Run partitions studentIDs into sequential batches of ConcurrencyLimit
// students; the students of a batch run concurrently. Cancelling ctx stops
// new students from starting; students already running finish undisturbed.
func (o *Orchestrator) Run(ctx context.Context, studentIDs []string, generate GenerateFunc) Result {
	start := time.Now()
	res := Result{RunID: uuid.NewString(), Students: make([]StudentResult, len(studentIDs))}
	o.logger.Infof("batch %s: generating %d students, concurrency %d", res.RunID, len(studentIDs), o.cfg.ConcurrencyLimit)

	limit := o.cfg.ConcurrencyLimit
	for lo := 0; lo < len(studentIDs); lo += limit {
		hi := lo + limit
		if hi > len(studentIDs) {
			hi = len(studentIDs)
		}
		var g errgroup.Group
		for i := lo; i < hi; i++ {
			if ctx.Err() != nil {
				res.Cancelled = true
				res.Students[i] = StudentResult{StudentID: studentIDs[i], Error: ErrCancelled.Error(), err: ErrCancelled}
				continue
			}
			i := i
			g.Go(func() error {
				res.Students[i] = o.runOne(ctx, res.RunID, studentIDs[i], generate)
				return nil
			})
		}
		_ = g.Wait()
	}

	for _, s := range res.Students {
		if s.Success {
			res.SuccessCount++
			studentsProcessed.WithLabelValues("success").Inc()
		} else {
			res.FailureCount++
			studentsProcessed.WithLabelValues("failure").Inc()
		}
	}
	elapsed := time.Since(start)
	batchDuration.Observe(elapsed.Seconds())
	if o.bus != nil {
		o.bus.Publish(events.BatchEvent{
			RunID:        res.RunID,
			SuccessCount: res.SuccessCount,
			FailureCount: res.FailureCount,
			Cancelled:    res.Cancelled,
			Started:      start,
			Duration:     elapsed,
		})
	}
	o.logger.Infof("batch %s: %d succeeded, %d failed in %s", res.RunID, res.SuccessCount, res.FailureCount, elapsed)
	return res
}

// Wait blocks until every notification hook started by Run has returned.
func (o *Orchestrator) Wait() { o.hooks.Wait() }

func (o *Orchestrator) runOne(ctx context.Context, runID, id string, generate GenerateFunc) StudentResult {
	inFlight.Inc()
	defer inFlight.Dec()
	start := time.Now()

	// Running students are not interrupted by batch cancellation.
	wctx := context.WithoutCancel(ctx)
	if d := o.cfg.studentTimeout(); d > 0 {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(wctx, d)
		defer cancel()
	}
	err := safeGenerate(wctx, id, generate)
	res := StudentResult{StudentID: id, Success: err == nil, Duration: time.Since(start), err: err}
	if err != nil {
		res.Error = err.Error()
		o.logger.Warnf("batch %s: student %s failed: %v", runID, id, err)
	} else {
		o.notify(ctx, runID, id)
	}
	if o.bus != nil {
		o.bus.Publish(events.StudentEvent{RunID: runID, StudentID: id, Success: res.Success, Err: err, Duration: res.Duration})
	}
	return res
}

func safeGenerate(ctx context.Context, id string, generate GenerateFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("student %s: panic: %v", id, r)
		}
	}()
	return generate(ctx, id)
}

// notify fires the hook without waiting for it.
func (o *Orchestrator) notify(ctx context.Context, runID, id string) {
	if o.notifier == nil {
		return
	}
	o.hooks.Add(1)
	go func() {
		defer o.hooks.Done()
		hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.hookTimeout())
		defer cancel()
		err := func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("panic: %v", r)
				}
			}()
			return o.notifier.Notify(hctx, id)
		}()
		if err == nil {
			return
		}
		hookFailures.Inc()
		o.logger.Errorf("batch %s: notify %s: %v", runID, id, err)
		if o.bus != nil {
			o.bus.Publish(events.HookEvent{RunID: runID, StudentID: id, Err: err})
		}
		if o.hookErrs != nil {
			select {
			case o.hookErrs <- HookError{StudentID: id, Err: err}:
			default:
			}
		}
	}()
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}
