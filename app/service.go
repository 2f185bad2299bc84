// Package app wires configuration, the planning core and the infrastructure
// adapters into one service used by the command line.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/studyplan/config"
	"github.com/kilianp07/studyplan/core/batch"
	"github.com/kilianp07/studyplan/core/calendar"
	"github.com/kilianp07/studyplan/core/carryover"
	"github.com/kilianp07/studyplan/core/distribution"
	"github.com/kilianp07/studyplan/core/events"
	coremetrics "github.com/kilianp07/studyplan/core/metrics"
	"github.com/kilianp07/studyplan/core/model"
	"github.com/kilianp07/studyplan/core/monitoring"
	"github.com/kilianp07/studyplan/core/planner"
	"github.com/kilianp07/studyplan/core/timeline"
	"github.com/kilianp07/studyplan/infra/logger"
	"github.com/kilianp07/studyplan/infra/metrics"
	inframon "github.com/kilianp07/studyplan/infra/monitoring"
	"github.com/kilianp07/studyplan/infra/mqtt"
	"github.com/kilianp07/studyplan/infra/runlog"
	"github.com/kilianp07/studyplan/infra/source"
	"github.com/kilianp07/studyplan/infra/store"
	"github.com/kilianp07/studyplan/infra/webhook"
	"github.com/kilianp07/studyplan/internal/eventbus"
)

// Service runs plan generation, batch runs and carryover passes.
type Service struct {
	cfg      *config.Config
	planner  *planner.Planner
	source   source.Source
	store    *store.PlanStore
	runs     runlog.RunStore
	notifier batch.Notifier
	mqtt     *mqtt.Notifier
	sink     coremetrics.MetricsSink
	monitor  monitoring.Monitor
	bus      *eventbus.Bus
	orch     *batch.Orchestrator
	log      logger.Logger

	collectorDone <-chan struct{}
}

// Option customises a Service.
type Option func(*Service)

// WithSource replaces the YAML profile source.
func WithSource(src source.Source) Option { return func(s *Service) { s.source = src } }

// WithNotifier replaces the MQTT notifier.
func WithNotifier(n batch.Notifier) Option { return func(s *Service) { s.notifier = n } }

// WithRunStore replaces the configured run log.
func WithRunStore(r runlog.RunStore) Option { return func(s *Service) { s.runs = r } }

// WithMonitor replaces the Sentry monitor.
func WithMonitor(m monitoring.Monitor) Option { return func(s *Service) { s.monitor = m } }

// WithLogger replaces the service logger.
func WithLogger(l logger.Logger) Option { return func(s *Service) { s.log = l } }

// New opens every configured adapter. Adapters supplied through options are
// used as given.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	s := &Service{cfg: cfg, bus: eventbus.New()}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.New("service")
	}
	s.planner = planner.New(cfg.Scheduler, distribution.New(cfg.Distribution))

	var err error
	if s.source == nil {
		if s.source, err = source.Open(cfg.Source.Path); err != nil {
			return nil, fmt.Errorf("source: %w", err)
		}
	}
	if s.store, err = store.Open(cfg.Store.Path); err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	if s.runs == nil {
		if s.runs, err = runlog.New(cfg.RunLog); err != nil {
			_ = s.store.Close()
			return nil, fmt.Errorf("runlog: %w", err)
		}
	}
	if s.sink, err = coremetrics.NewMetricsSink(cfg.Metrics.Sinks); err != nil {
		_ = s.closeStores()
		return nil, fmt.Errorf("metrics: %w", err)
	}
	if s.monitor == nil {
		if s.monitor, err = inframon.NewSentryMonitor(cfg.Sentry); err != nil {
			_ = s.closeStores()
			return nil, err
		}
	}
	if s.notifier == nil {
		if err := s.openNotifiers(); err != nil {
			_ = s.closeStores()
			return nil, err
		}
	}

	bopts := []batch.Option{batch.WithBus(s.bus)}
	if s.notifier != nil {
		bopts = append(bopts, batch.WithNotifier(s.notifier))
	}
	s.orch = batch.NewOrchestrator(cfg.Batch, logger.New("batch"), bopts...)
	return s, nil
}

// openNotifiers builds the configured plan-ready hooks. Both MQTT and the
// webhook may be enabled at once.
func (s *Service) openNotifiers() error {
	var hooks multiNotifier
	if s.cfg.NotifierEnabled() {
		n, err := mqtt.NewNotifier(s.cfg.MQTT)
		if err != nil {
			return fmt.Errorf("mqtt notifier: %w", err)
		}
		s.mqtt = n
		hooks = append(hooks, n)
	}
	if s.cfg.Webhook.Enabled() {
		n, err := webhook.NewNotifier(s.cfg.Webhook)
		if err != nil {
			return fmt.Errorf("webhook notifier: %w", err)
		}
		hooks = append(hooks, n)
	}
	switch len(hooks) {
	case 0:
	case 1:
		s.notifier = hooks[0]
	default:
		s.notifier = hooks
	}
	return nil
}

// multiNotifier calls every hook and joins their errors.
type multiNotifier []batch.Notifier

func (m multiNotifier) Notify(ctx context.Context, studentID string) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, studentID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Start runs the metrics collector and, when configured, the Prometheus
// endpoint until ctx is canceled.
func (s *Service) Start(ctx context.Context) {
	s.collectorDone = metrics.StartEventCollector(ctx, s.bus, s.sink, s.log)
	if addr := metrics.PromAddr(s.cfg.Metrics.Sinks); addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr, s.log); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
}

// Bus exposes the event bus for additional subscribers.
func (s *Service) Bus() eventbus.EventBus { return s.bus }

// Store exposes the plan store.
func (s *Service) Store() *store.PlanStore { return s.store }

// input loads the student's profile and appends the saved plans that stay
// put as commitments. With replacing set, the plans a new generation would
// replace are left out.
func (s *Service) input(ctx context.Context, studentID string, replacing bool) (planner.StudentInput, store.Scope, error) {
	in, err := s.source.Load(ctx, studentID)
	if err != nil {
		return in, store.Scope{}, err
	}
	scope := store.Scope{StudentID: studentID, Start: in.PeriodStart, End: in.PeriodEnd}
	for _, c := range in.Content {
		scope.ContentIDs = append(scope.ContentIDs, c.Item.ID)
	}
	query := scope
	if !replacing {
		query.ContentIDs = nil
	}
	commitments, err := s.store.Commitments(ctx, query)
	if err != nil {
		return in, scope, fmt.Errorf("student %s: commitments: %w", studentID, err)
	}
	in.Commitments = append(in.Commitments, commitments...)
	return in, scope, nil
}

// Preview computes a student's plan without saving it, as Generate would.
func (s *Service) Preview(ctx context.Context, studentID string) (planner.StudentPlan, error) {
	plan, _, err := s.compute(ctx, studentID)
	return plan, err
}

func (s *Service) compute(ctx context.Context, studentID string) (planner.StudentPlan, store.Scope, error) {
	in, scope, err := s.input(ctx, studentID, true)
	if err != nil {
		return planner.StudentPlan{}, scope, err
	}
	plan, err := s.planner.Plan(in)
	return plan, scope, err
}

// Generate computes a student's plan and saves its allocations. Pending
// plans left by an earlier generation of the same contents and period are
// replaced, so running it again does not duplicate work.
func (s *Service) Generate(ctx context.Context, studentID string) (planner.StudentPlan, error) {
	plan, scope, err := s.compute(ctx, studentID)
	if err != nil {
		return plan, err
	}
	if _, err := s.store.SaveAllocations(ctx, scope, plan.Allocations); err != nil {
		return plan, fmt.Errorf("student %s: save: %w", studentID, err)
	}
	untimed := 0
	for _, a := range plan.Allocations {
		if !a.Timed() {
			untimed++
		}
	}
	s.bus.Publish(events.PlanEvent{StudentID: studentID, Allocations: len(plan.Allocations), Untimed: untimed})
	s.log.Debugw("plan saved", map[string]any{"student_id": studentID, "allocations": len(plan.Allocations), "untimed": untimed})
	return plan, nil
}

// Plans returns the saved plans of a student ordered by date.
func (s *Service) Plans(ctx context.Context, studentID string) ([]model.Plan, error) {
	return s.store.Plans(ctx, studentID)
}

// Slots returns the schedule of a student and the free slots left after
// existing commitments.
func (s *Service) Slots(ctx context.Context, studentID string) (calendar.Schedule, model.DaySlots, error) {
	in, _, err := s.input(ctx, studentID, false)
	if err != nil {
		return calendar.Schedule{}, nil, err
	}
	sched, err := calendar.ComputeSchedule(in.PeriodStart, in.PeriodEnd, in.WeeklyBlocks, in.Exclusions, in.Academies, s.cfg.Scheduler)
	if err != nil {
		return calendar.Schedule{}, nil, err
	}
	return sched, timeline.Reduce(sched.Slots, in.Commitments), nil
}

// RunBatch generates and saves plans for studentIDs, or for every known
// student when the list is empty, and records the run.
func (s *Service) RunBatch(ctx context.Context, studentIDs []string) (batch.Result, error) {
	if len(studentIDs) == 0 {
		ids, err := s.source.StudentIDs(ctx)
		if err != nil {
			return batch.Result{}, fmt.Errorf("list students: %w", err)
		}
		studentIDs = ids
	}
	started := time.Now()
	res := s.orch.Run(ctx, studentIDs, func(ctx context.Context, id string) error {
		_, err := s.Generate(ctx, id)
		return err
	})
	for _, r := range res.Students {
		if err := r.Err(); err != nil && !errors.Is(err, batch.ErrCancelled) {
			s.monitor.CaptureException(err, map[string]string{"student_id": r.StudentID, "run_id": res.RunID})
		}
	}
	if s.runs != nil {
		rec := runlog.FromResult(res, started, time.Since(started))
		if err := s.runs.Append(context.WithoutCancel(ctx), rec); err != nil {
			s.log.Errorf("run log: %v", err)
		}
	}
	return res, nil
}

// CarryoverResult summarises a carryover pass.
type CarryoverResult struct {
	Records []model.CarryoverRecord `json:"records"`
	Applied int                     `json:"applied"`
}

// Carryover moves the incomplete daily plans dated before cutoff to the
// unfinished bucket. An empty studentID covers every student.
func (s *Service) Carryover(ctx context.Context, studentID string, cutoff model.Date) (CarryoverResult, error) {
	plans, err := s.store.IncompleteDailyPlans(ctx, studentID, cutoff)
	if err != nil {
		return CarryoverResult{}, err
	}
	records, err := carryover.Carryover(plans, cutoff)
	if err != nil {
		return CarryoverResult{}, err
	}
	applied, err := s.store.ApplyCarryover(ctx, records)
	if err != nil {
		return CarryoverResult{}, err
	}
	s.bus.Publish(events.CarryoverEvent{Cutoff: string(cutoff), Records: len(records), Applied: applied})
	s.log.Infof("carryover %s: %d eligible, %d applied", cutoff, len(records), applied)
	return CarryoverResult{Records: records, Applied: applied}, nil
}

// Plan returns one saved plan.
func (s *Service) Plan(ctx context.Context, id string) (model.Plan, error) {
	return s.store.Get(ctx, id)
}

// Reschedule moves an unfinished plan back to the daily bucket on date and
// returns it. The next carryover pass counts it again from its first date.
func (s *Service) Reschedule(ctx context.Context, id string, date model.Date) (model.Plan, error) {
	if err := s.store.Reschedule(ctx, id, date); err != nil {
		return model.Plan{}, err
	}
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return model.Plan{}, err
	}
	s.log.Infof("plan %s rescheduled to %s", id, date)
	return p, nil
}

// Runs queries the run log. It returns an error when no run log is configured.
func (s *Service) Runs(ctx context.Context, q runlog.RunQuery) ([]runlog.RunRecord, error) {
	if s.runs == nil {
		return nil, errors.New("run log disabled")
	}
	return s.runs.Query(ctx, q)
}

// Close waits for pending notifications, drains the metrics collector and
// releases every adapter.
func (s *Service) Close() error {
	s.orch.Wait()
	s.bus.Close()
	if s.collectorDone != nil {
		<-s.collectorDone
	}
	if s.mqtt != nil {
		s.mqtt.Disconnect()
	}
	if !s.monitor.Flush(2 * time.Second) {
		s.log.Warnf("monitor: pending reports dropped")
	}
	return s.closeStores()
}

func (s *Service) closeStores() error {
	var errs []error
	if s.runs != nil {
		errs = append(errs, s.runs.Close())
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	return errors.Join(errs...)
}
