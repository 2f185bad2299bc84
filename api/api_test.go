package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/studyplan/app"
	"github.com/kilianp07/studyplan/auth"
	"github.com/kilianp07/studyplan/config"
	"github.com/kilianp07/studyplan/core/batch"
	"github.com/kilianp07/studyplan/core/calendar"
	"github.com/kilianp07/studyplan/core/model"
	"github.com/kilianp07/studyplan/core/planner"
	"github.com/kilianp07/studyplan/infra/runlog"
	"github.com/kilianp07/studyplan/infra/source"
	"github.com/kilianp07/studyplan/infra/store"
)

type fakeBackend struct {
	saved     []string
	batchIDs  []string
	cutoff    model.Date
	runsQuery runlog.RunQuery
	moved     model.Date
}

func (f *fakeBackend) plan(id string) (planner.StudentPlan, error) {
	if id == "ghost" {
		return planner.StudentPlan{}, fmt.Errorf("%w: %s", source.ErrUnknownStudent, id)
	}
	start := model.MustClock("09:00")
	end := model.MustClock("09:20")
	return planner.StudentPlan{StudentID: id, Allocations: []model.PlannedAllocation{
		{ContentID: "book", Date: "2025-03-03", StartTime: &start, EndTime: &end, RangeStart: 1, RangeEnd: 10},
	}}, nil
}

func (f *fakeBackend) Preview(_ context.Context, id string) (planner.StudentPlan, error) {
	return f.plan(id)
}

func (f *fakeBackend) Generate(_ context.Context, id string) (planner.StudentPlan, error) {
	f.saved = append(f.saved, id)
	return f.plan(id)
}

func (f *fakeBackend) Slots(_ context.Context, id string) (calendar.Schedule, model.DaySlots, error) {
	return calendar.Schedule{}, model.DaySlots{"2025-03-03": {{Type: model.SlotStudy, Range: model.MustRange("09:00", "12:00")}}}, nil
}

func (f *fakeBackend) Plans(_ context.Context, id string) ([]model.Plan, error) {
	return []model.Plan{{ID: "p1", StudentID: id, PlanDate: "2025-03-03"}}, nil
}

func (f *fakeBackend) Plan(_ context.Context, id string) (model.Plan, error) {
	switch id {
	case "p1":
		return model.Plan{ID: id, StudentID: "s1", Container: model.ContainerUnfinished, PlanDate: "2025-03-03"}, nil
	case "p2":
		return model.Plan{ID: id, StudentID: "s1", Container: model.ContainerDaily, PlanDate: "2025-03-03"}, nil
	}
	return model.Plan{}, fmt.Errorf("%w: %s", store.ErrNotFound, id)
}

func (f *fakeBackend) Reschedule(ctx context.Context, id string, date model.Date) (model.Plan, error) {
	p, err := f.Plan(ctx, id)
	if err != nil {
		return p, err
	}
	if p.Container != model.ContainerUnfinished {
		return model.Plan{}, fmt.Errorf("%w: %s", store.ErrNotUnfinished, id)
	}
	f.moved = date
	p.Container = model.ContainerDaily
	p.PlanDate = date
	return p, nil
}

func (f *fakeBackend) RunBatch(_ context.Context, ids []string) (batch.Result, error) {
	f.batchIDs = ids
	return batch.Result{RunID: "run-1", SuccessCount: len(ids)}, nil
}

func (f *fakeBackend) Carryover(_ context.Context, _ string, cutoff model.Date) (app.CarryoverResult, error) {
	f.cutoff = cutoff
	return app.CarryoverResult{Applied: 2}, nil
}

func (f *fakeBackend) Runs(_ context.Context, q runlog.RunQuery) ([]runlog.RunRecord, error) {
	f.runsQuery = q
	return nil, nil
}

const secret = "test-secret"

func token(t *testing.T, claims auth.Claims) string {
	t.Helper()
	tok, err := auth.Issue([]byte(secret), claims, time.Minute)
	require.NoError(t, err)
	return "Bearer " + tok
}

func do(h http.Handler, method, path, authz, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestStudentRoutes(t *testing.T) {
	fb := &fakeBackend{}
	h := NewRouter(fb, config.APIConfig{JWTSecret: secret}, nil)
	student := token(t, auth.Claims{StudentID: "s1"})

	rr := do(h, http.MethodGet, "/api/students/s1/plans", student, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var plans []model.Plan
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &plans))
	assert.Len(t, plans, 1)

	rr = do(h, http.MethodGet, "/api/students/s2/plans", student, "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(h, http.MethodGet, "/api/students/s1/plans", "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(h, http.MethodPost, "/api/students/s1/plan?dry_run=true", student, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, fb.saved)

	rr = do(h, http.MethodPost, "/api/students/s1/plan?format=csv", student, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv", rr.Header().Get("Content-Type"))
	assert.Equal(t, []string{"s1"}, fb.saved)

	rr = do(h, http.MethodGet, "/api/students/s1/slots?format=xml", student, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(h, http.MethodGet, "/api/students/s1/slots", student, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "09:00")
}

func TestUnknownStudentIsNotFound(t *testing.T) {
	h := NewRouter(&fakeBackend{}, config.APIConfig{JWTSecret: secret}, nil)
	rr := do(h, http.MethodPost, "/api/students/ghost/plan", token(t, auth.Claims{Roles: []string{auth.RoleAdmin}}), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAdminRoutes(t *testing.T) {
	fb := &fakeBackend{}
	h := NewRouter(fb, config.APIConfig{JWTSecret: secret}, nil)
	admin := token(t, auth.Claims{Roles: []string{auth.RoleAdmin}})

	rr := do(h, http.MethodPost, "/api/batch", token(t, auth.Claims{StudentID: "s1"}), `{"student_ids":["s1"]}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(h, http.MethodPost, "/api/batch", admin, `{"student_ids":["a","b"]}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"a", "b"}, fb.batchIDs)
	var res batch.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, "run-1", res.RunID)

	rr = do(h, http.MethodPost, "/api/batch", admin, `{"ids":["a"]}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(h, http.MethodPost, "/api/carryover?cutoff=2025-03-06", admin, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, model.Date("2025-03-06"), fb.cutoff)

	rr = do(h, http.MethodPost, "/api/carryover?cutoff=06/03/2025", admin, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(h, http.MethodGet, "/api/runs?student_id=s1&failed=true", admin, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]\n", rr.Body.String())
	assert.Equal(t, "s1", fb.runsQuery.StudentID)
	assert.True(t, fb.runsQuery.FailedOnly)
}

func TestReschedulePlan(t *testing.T) {
	fb := &fakeBackend{}
	h := NewRouter(fb, config.APIConfig{JWTSecret: secret}, nil)
	student := token(t, auth.Claims{StudentID: "s1"})

	rr := do(h, http.MethodPost, "/api/plans/p1/reschedule", student, `{"date":"2025-03-05"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var p model.Plan
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	assert.Equal(t, model.ContainerDaily, p.Container)
	assert.Equal(t, model.Date("2025-03-05"), fb.moved)

	tests := map[string]struct {
		path, authz, body string
		want              int
	}{
		"other student": {"/api/plans/p1/reschedule", token(t, auth.Claims{StudentID: "s2"}), `{"date":"2025-03-05"}`, http.StatusForbidden},
		"daily plan":    {"/api/plans/p2/reschedule", student, `{"date":"2025-03-05"}`, http.StatusConflict},
		"missing plan":  {"/api/plans/p9/reschedule", student, `{"date":"2025-03-05"}`, http.StatusNotFound},
		"bad date":      {"/api/plans/p1/reschedule", student, `{"date":"05/03/2025"}`, http.StatusBadRequest},
		"unknown field": {"/api/plans/p1/reschedule", student, `{"day":"2025-03-05"}`, http.StatusBadRequest},
		"no token":      {"/api/plans/p1/reschedule", "", `{"date":"2025-03-05"}`, http.StatusUnauthorized},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			rr := do(h, http.MethodPost, tt.path, tt.authz, tt.body)
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}

func TestHealthzWithoutAuth(t *testing.T) {
	h := NewRouter(&fakeBackend{}, config.APIConfig{JWTSecret: secret}, nil)
	rr := do(h, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: s9", source.ErrUnknownStudent), http.StatusNotFound},
		{fmt.Errorf("%w: p9", store.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: p2", store.ErrNotUnfinished), http.StatusConflict},
		{fmt.Errorf("book: %w", model.ErrInvalidContent), http.StatusBadRequest},
		{model.ErrInvalidRange, http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{fmt.Errorf("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
