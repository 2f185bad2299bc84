// Package api exposes plans, slots, batch runs and carryover over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kilianp07/studyplan/app"
	"github.com/kilianp07/studyplan/auth"
	"github.com/kilianp07/studyplan/config"
	"github.com/kilianp07/studyplan/core/batch"
	"github.com/kilianp07/studyplan/core/calendar"
	"github.com/kilianp07/studyplan/core/model"
	"github.com/kilianp07/studyplan/core/planner"
	"github.com/kilianp07/studyplan/infra/logger"
	"github.com/kilianp07/studyplan/infra/runlog"
	"github.com/kilianp07/studyplan/infra/source"
	"github.com/kilianp07/studyplan/infra/store"
)

// Backend is the part of app.Service the API depends on.
type Backend interface {
	Preview(ctx context.Context, studentID string) (planner.StudentPlan, error)
	Generate(ctx context.Context, studentID string) (planner.StudentPlan, error)
	Slots(ctx context.Context, studentID string) (calendar.Schedule, model.DaySlots, error)
	Plans(ctx context.Context, studentID string) ([]model.Plan, error)
	Plan(ctx context.Context, id string) (model.Plan, error)
	Reschedule(ctx context.Context, id string, date model.Date) (model.Plan, error)
	RunBatch(ctx context.Context, studentIDs []string) (batch.Result, error)
	Carryover(ctx context.Context, studentID string, cutoff model.Date) (app.CarryoverResult, error)
	Runs(ctx context.Context, q runlog.RunQuery) ([]runlog.RunRecord, error)
}

var _ Backend = (*app.Service)(nil)

// NewRouter builds the API routes.
func NewRouter(b Backend, cfg config.APIConfig, log logger.Logger) http.Handler {
	cfg.SetDefaults()
	if log == nil {
		log = logger.NopLogger{}
	}
	h := &handlers{b: b, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(time.Duration(cfg.TimeoutSeconds) * time.Second))
		r.Use(auth.Middleware([]byte(cfg.JWTSecret)))

		r.Route("/students/{id}", func(r chi.Router) {
			r.Use(studentAccess)
			r.Get("/plans", h.listPlans)
			r.Post("/plan", h.generatePlan)
			r.Get("/slots", h.slots)
		})
		r.Post("/plans/{id}/reschedule", h.reschedule)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			r.Get("/runs", h.runs)
			r.Post("/batch", h.runBatch)
			r.Post("/carryover", h.carryover)
		})
	})
	return r
}

type handlers struct {
	b   Backend
	log logger.Logger
}

// studentAccess limits non-admin tokens to their own student.
func studentAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.ClaimsFromContext(r.Context())
		if !ok || !claims.CanAccess(chi.URLParam(r, "id")) {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debugw("http request", map[string]any{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"duration_ms": time.Since(start).Milliseconds(),
				"request_id":  middleware.GetReqID(r.Context()),
			})
		})
	}
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, source.ErrUnknownStudent), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrNotUnfinished):
		return http.StatusConflict
	case errors.Is(err, model.ErrInvalidRange),
		errors.Is(err, model.ErrInvalidContent),
		errors.Is(err, model.ErrInvalidTime),
		errors.Is(err, model.ErrInvalidOptions):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Errorf("%s %s: %v", r.Method, r.URL.Path, err)
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
