// Package runlog records batch run outcomes for later inspection.
package runlog

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/studyplan/core/batch"
)

// StudentOutcome is the persisted form of one student's batch result.
type StudentOutcome struct {
	StudentID  string `json:"student_id"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// RunRecord captures one batch run.
type RunRecord struct {
	Timestamp    time.Time        `json:"timestamp"`
	RunID        string           `json:"run_id"`
	SuccessCount int              `json:"success_count"`
	FailureCount int              `json:"failure_count"`
	Cancelled    bool             `json:"cancelled"`
	DurationMS   int64            `json:"duration_ms"`
	Students     []StudentOutcome `json:"students"`
}

// FromResult converts a batch result into a RunRecord.
func FromResult(res batch.Result, started time.Time, elapsed time.Duration) RunRecord {
	rec := RunRecord{
		Timestamp:    started.UTC(),
		RunID:        res.RunID,
		SuccessCount: res.SuccessCount,
		FailureCount: res.FailureCount,
		Cancelled:    res.Cancelled,
		DurationMS:   elapsed.Milliseconds(),
		Students:     make([]StudentOutcome, 0, len(res.Students)),
	}
	for _, s := range res.Students {
		rec.Students = append(rec.Students, StudentOutcome{
			StudentID:  s.StudentID,
			Success:    s.Success,
			Error:      s.Error,
			DurationMS: s.Duration.Milliseconds(),
		})
	}
	return rec
}

// RunQuery defines filters for retrieving records.
type RunQuery struct {
	Start      time.Time
	End        time.Time
	StudentID  string
	FailedOnly bool
}

// Matches reports whether rec satisfies q.
func (q RunQuery) Matches(rec RunRecord) bool {
	if !q.Start.IsZero() && rec.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && rec.Timestamp.After(q.End) {
		return false
	}
	if q.FailedOnly && rec.FailureCount == 0 {
		return false
	}
	if q.StudentID == "" {
		return true
	}
	for _, s := range rec.Students {
		if s.StudentID != q.StudentID {
			continue
		}
		if q.FailedOnly && s.Success {
			return false
		}
		return true
	}
	return false
}

// RunStore persists RunRecords and supports querying.
type RunStore interface {
	Append(ctx context.Context, rec RunRecord) error
	Query(ctx context.Context, q RunQuery) ([]RunRecord, error)
	Close() error
}

// Config selects and configures the run log backend.
type Config struct {
	// Backend selects the store type: "none", "jsonl" or "sqlite".
	Backend string `json:"backend"`
	// Path is the file location of the store.
	Path string `json:"path"`
	// MaxSizeMB enables rotation of the jsonl backend above this size.
	MaxSizeMB int `json:"max_size_mb"`
	// MaxBackups limits the number of rotated files to keep.
	MaxBackups int `json:"max_backups"`
	// MaxAgeDays removes rotated files older than this number of days.
	MaxAgeDays int `json:"max_age_days"`
}

// SetDefaults fills the path of file backends.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "none"
	}
	if c.Path == "" {
		switch c.Backend {
		case "jsonl":
			c.Path = "batch_runs.jsonl"
		case "sqlite":
			c.Path = "batch_runs.db"
		}
	}
}

// Validate checks the backend name and path.
func (c Config) Validate() error {
	switch c.Backend {
	case "", "none":
		return nil
	case "jsonl", "sqlite":
	default:
		return fmt.Errorf("unknown runlog backend %s", c.Backend)
	}
	if c.Path == "" {
		return fmt.Errorf("runlog path is required")
	}
	if c.MaxSizeMB < 0 || c.MaxBackups < 0 || c.MaxAgeDays < 0 {
		return fmt.Errorf("runlog rotation settings must not be negative")
	}
	return nil
}
