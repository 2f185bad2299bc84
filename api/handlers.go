package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kilianp07/studyplan/auth"
	"github.com/kilianp07/studyplan/core/model"
	"github.com/kilianp07/studyplan/infra/runlog"
	"github.com/kilianp07/studyplan/pkg/export"
)

func formatParam(r *http.Request) (export.Format, error) {
	f := r.URL.Query().Get("format")
	if f == "" {
		return export.FormatJSON, nil
	}
	return export.ParseFormat(f)
}

func writeExport(w http.ResponseWriter, f export.Format, write func(*bytes.Buffer) error) error {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return err
	}
	ct := "application/json"
	if f == export.FormatCSV {
		ct = "text/csv"
	}
	w.Header().Set("Content-Type", ct)
	w.WriteHeader(http.StatusOK)
	_, err := w.Write(buf.Bytes())
	return err
}

// GET /api/students/{id}/plans
func (h *handlers) listPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.b.Plans(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if plans == nil {
		plans = []model.Plan{}
	}
	writeJSON(w, http.StatusOK, plans)
}

// POST /api/students/{id}/plan?dry_run=true&format=csv
func (h *handlers) generatePlan(w http.ResponseWriter, r *http.Request) {
	format, err := formatParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	generate := h.b.Generate
	if dry, _ := strconv.ParseBool(r.URL.Query().Get("dry_run")); dry {
		generate = h.b.Preview
	}
	plan, err := generate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_ = writeExport(w, format, func(b *bytes.Buffer) error {
		return export.WriteAllocations(b, format, plan.Allocations)
	})
}

// GET /api/students/{id}/slots?format=csv
func (h *handlers) slots(w http.ResponseWriter, r *http.Request) {
	format, err := formatParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	_, free, err := h.b.Slots(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_ = writeExport(w, format, func(b *bytes.Buffer) error {
		return export.WriteSlots(b, format, free)
	})
}

// GET /api/runs?start=&end=&student_id=&failed=true
func (h *handlers) runs(w http.ResponseWriter, r *http.Request) {
	q := runlog.RunQuery{StudentID: r.URL.Query().Get("student_id")}
	if s := r.URL.Query().Get("start"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			q.Start = t
		}
	}
	if s := r.URL.Query().Get("end"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			q.End = t
		}
	}
	q.FailedOnly, _ = strconv.ParseBool(r.URL.Query().Get("failed"))
	recs, err := h.b.Runs(r.Context(), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if recs == nil {
		recs = []runlog.RunRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

type batchRequest struct {
	StudentIDs []string `json:"student_ids"`
}

// POST /api/batch {"student_ids": [...]}; an empty list runs every student.
func (h *handlers) runBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if r.ContentLength != 0 {
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
			return
		}
	}
	res, err := h.b.RunBatch(r.Context(), req.StudentIDs)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// POST /api/carryover?cutoff=YYYY-MM-DD&student_id=
func (h *handlers) carryover(w http.ResponseWriter, r *http.Request) {
	cutoff := model.DateOf(time.Now())
	if s := r.URL.Query().Get("cutoff"); s != "" {
		d, err := model.ParseDate(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		cutoff = d
	}
	res, err := h.b.Carryover(r.Context(), r.URL.Query().Get("student_id"), cutoff)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type rescheduleRequest struct {
	Date string `json:"date"`
}

// POST /api/plans/{id}/reschedule {"date":"YYYY-MM-DD"}
func (h *handlers) reschedule(w http.ResponseWriter, r *http.Request) {
	var req rescheduleRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := chi.URLParam(r, "id")
	p, err := h.b.Plan(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok || !claims.CanAccess(p.StudentID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	p, err = h.b.Reschedule(r.Context(), id, date)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
