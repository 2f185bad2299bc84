// Package store persists generated plans in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/kilianp07/studyplan/core/carryover"
	"github.com/kilianp07/studyplan/core/model"
)

var (
	// ErrNotFound is returned when a plan id does not exist.
	ErrNotFound = errors.New("plan not found")
	// ErrNotUnfinished is returned when rescheduling a plan that is not in
	// the unfinished bucket.
	ErrNotUnfinished = errors.New("plan is not unfinished")
)

const schema = `CREATE TABLE IF NOT EXISTS plans (
        id TEXT PRIMARY KEY,
        student_id TEXT NOT NULL,
        content_id TEXT NOT NULL,
        plan_date TEXT NOT NULL,
        start_time INTEGER,
        end_time INTEGER,
        container TEXT NOT NULL,
        status TEXT NOT NULL,
        planned_start INTEGER NOT NULL,
        planned_end INTEGER NOT NULL,
        completed_start INTEGER,
        completed_end INTEGER,
        carryover_from TEXT,
        carryover_count INTEGER NOT NULL DEFAULT 0
    );
    CREATE INDEX IF NOT EXISTS plans_student_date ON plans (student_id, plan_date);`

const planColumns = `id, student_id, content_id, plan_date, start_time, end_time, container, status,
        planned_start, planned_end, completed_start, completed_end, carryover_from, carryover_count`

// PlanStore persists plans to a SQLite database.
type PlanStore struct {
	db *sql.DB
}

// Open opens or creates the database at path and ensures schema.
func Open(path string) (*PlanStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer; batch workers queue on the single connection
	// instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &PlanStore{db: db}, nil
}

// Close closes the underlying database.
func (s *PlanStore) Close() error { return s.db.Close() }

// Scope names the plans of one student that a regeneration owns: the
// contents being planned over [Start, End].
type Scope struct {
	StudentID  string
	ContentIDs []string
	Start, End model.Date
}

// replaceable matches the scope's daily plans that are still pending, have no
// recorded progress and were never carried over.
func (sc Scope) replaceable() (string, []any) {
	clause := `container = ? AND status = ? AND completed_start IS NULL AND carryover_count = 0
           AND content_id IN (` + placeholders(len(sc.ContentIDs)) + `)`
	args := []any{string(model.ContainerDaily), string(model.StatusPending)}
	for _, id := range sc.ContentIDs {
		args = append(args, id)
	}
	return clause, args
}

// SaveAllocations replaces the replaceable plans of scope with one pending
// daily plan per allocation, in a single transaction, and returns the created
// rows. Plans with progress or a carryover history are kept.
func (s *PlanStore) SaveAllocations(ctx context.Context, scope Scope, allocs []model.PlannedAllocation) ([]model.Plan, error) {
	plans := make([]model.Plan, 0, len(allocs))
	for _, a := range allocs {
		plans = append(plans, model.Plan{
			ID:           uuid.NewString(),
			StudentID:    scope.StudentID,
			ContentID:    a.ContentID,
			PlanDate:     a.Date,
			StartTime:    a.StartTime,
			EndTime:      a.EndTime,
			Container:    model.ContainerDaily,
			Status:       model.StatusPending,
			PlannedStart: a.RangeStart,
			PlannedEnd:   a.RangeEnd,
		})
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if len(scope.ContentIDs) > 0 {
			clause, args := scope.replaceable()
			args = append([]any{scope.StudentID, string(scope.Start), string(scope.End)}, args...)
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM plans WHERE student_id = ? AND plan_date >= ? AND plan_date <= ? AND `+clause,
				args...); err != nil {
				return fmt.Errorf("replace plans of %s: %w", scope.StudentID, err)
			}
		}
		return insert(ctx, tx, plans)
	})
	if err != nil {
		return nil, err
	}
	return plans, nil
}

func insert(ctx context.Context, tx *sql.Tx, plans []model.Plan) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO plans (`+planColumns+`)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()
	for _, p := range plans {
		if _, err := stmt.ExecContext(ctx,
			p.ID, p.StudentID, p.ContentID, string(p.PlanDate),
			clockArg(p.StartTime), clockArg(p.EndTime),
			string(p.Container), string(p.Status),
			p.PlannedStart, p.PlannedEnd,
			intArg(p.CompletedStart), intArg(p.CompletedEnd),
			dateArg(p.CarryoverFrom), p.CarryoverCount,
		); err != nil {
			return fmt.Errorf("insert plan %s: %w", p.ID, err)
		}
	}
	return nil
}

// Get returns the plan with the given id.
func (s *PlanStore) Get(ctx context.Context, id string) (model.Plan, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+planColumns+` FROM plans WHERE id = ?`, id)
	if err != nil {
		return model.Plan{}, err
	}
	plans, err := scanPlans(rows)
	if err != nil {
		return model.Plan{}, err
	}
	if len(plans) == 0 {
		return model.Plan{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return plans[0], nil
}

// Plans returns every plan of the student ordered by date.
func (s *PlanStore) Plans(ctx context.Context, studentID string) ([]model.Plan, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+planColumns+` FROM plans WHERE student_id = ? ORDER BY plan_date, start_time, id`, studentID)
	if err != nil {
		return nil, err
	}
	return scanPlans(rows)
}

// Commitments returns the timed, non-completed plans of the student dated
// within [scope.Start, scope.End] as commitments for the next generation.
// Plans that saving scope would replace are left out.
func (s *PlanStore) Commitments(ctx context.Context, scope Scope) ([]model.ExistingCommitment, error) {
	query := `SELECT plan_date, start_time, end_time FROM plans
         WHERE student_id = ? AND plan_date >= ? AND plan_date <= ?
           AND start_time IS NOT NULL AND end_time IS NOT NULL AND status != ?`
	args := []any{scope.StudentID, string(scope.Start), string(scope.End), string(model.StatusCompleted)}
	if len(scope.ContentIDs) > 0 {
		clause, cargs := scope.replaceable()
		query += ` AND NOT (` + clause + `)`
		args = append(args, cargs...)
	}
	rows, err := s.db.QueryContext(ctx, query+` ORDER BY plan_date, start_time`, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.ExistingCommitment
	for rows.Next() {
		var date string
		var st, et int
		if err := rows.Scan(&date, &st, &et); err != nil {
			return nil, err
		}
		res = append(res, model.ExistingCommitment{Date: model.Date(date), Start: model.Clock(st), End: model.Clock(et)})
	}
	return res, rows.Err()
}

// IncompleteDailyPlans returns the student's plans eligible for carryover at
// cutoff. An empty studentID selects every student.
func (s *PlanStore) IncompleteDailyPlans(ctx context.Context, studentID string, cutoff model.Date) ([]model.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans WHERE container = ? AND status != ? AND plan_date < ?`
	args := []any{string(model.ContainerDaily), string(model.StatusCompleted), string(cutoff)}
	if studentID != "" {
		query += ` AND student_id = ?`
		args = append(args, studentID)
	}
	query += ` ORDER BY plan_date, id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanPlans(rows)
}

// RecordProgress stores the completed range and status of a plan.
func (s *PlanStore) RecordProgress(ctx context.Context, id string, completedStart, completedEnd int, status model.PlanStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE plans SET completed_start = ?, completed_end = ?, status = ? WHERE id = ?`,
		completedStart, completedEnd, string(status), id)
	if err != nil {
		return err
	}
	return expectRow(res, id)
}

// ApplyCarryover moves every plan named by records to the unfinished bucket
// in one transaction. Plans that are no longer daily are left untouched so a
// repeated run cannot increment the count twice.
func (s *PlanStore) ApplyCarryover(ctx context.Context, records []model.CarryoverRecord) (int, error) {
	applied := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, rec := range records {
			updated := carryover.Apply(model.Plan{}, rec)
			res, err := tx.ExecContext(ctx,
				`UPDATE plans SET container = ?, carryover_from = ?, carryover_count = ?
                 WHERE id = ? AND container = ?`,
				string(updated.Container), dateArg(updated.CarryoverFrom), updated.CarryoverCount,
				rec.PlanID, string(model.ContainerDaily))
			if err != nil {
				return fmt.Errorf("carry over plan %s: %w", rec.PlanID, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			applied += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return applied, nil
}

// Reschedule moves an unfinished plan back to the daily bucket on date. The
// plan keeps its carryover origin and count; its times are cleared.
func (s *PlanStore) Reschedule(ctx context.Context, id string, date model.Date) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE plans SET container = ?, plan_date = ?, start_time = NULL, end_time = NULL
         WHERE id = ? AND container = ?`,
		string(model.ContainerDaily), string(date), id, string(model.ContainerUnfinished))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("%w: %s", ErrNotUnfinished, id)
}

func (s *PlanStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return fmt.Errorf("rollback: %v (cause: %w)", rerr, err)
		}
		return err
	}
	return tx.Commit()
}

func expectRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func scanPlans(rows *sql.Rows) ([]model.Plan, error) {
	defer func() { _ = rows.Close() }()
	var res []model.Plan
	for rows.Next() {
		var (
			p                  model.Plan
			date, cont, status string
			st, et, cs, ce     sql.NullInt64
			from               sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.StudentID, &p.ContentID, &date, &st, &et, &cont, &status,
			&p.PlannedStart, &p.PlannedEnd, &cs, &ce, &from, &p.CarryoverCount); err != nil {
			return nil, err
		}
		p.PlanDate = model.Date(date)
		p.Container = model.ContainerType(cont)
		p.Status = model.PlanStatus(status)
		p.StartTime = clockPtr(st)
		p.EndTime = clockPtr(et)
		p.CompletedStart = intPtr(cs)
		p.CompletedEnd = intPtr(ce)
		if from.Valid {
			d := model.Date(from.String)
			p.CarryoverFrom = &d
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

func clockArg(c *model.Clock) any {
	if c == nil {
		return nil
	}
	return int(*c)
}

func intArg(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func dateArg(d *model.Date) any {
	if d == nil {
		return nil
	}
	return string(*d)
}

func clockPtr(v sql.NullInt64) *model.Clock {
	if !v.Valid {
		return nil
	}
	c := model.Clock(v.Int64)
	return &c
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
