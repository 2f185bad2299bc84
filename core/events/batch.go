package events

import "time"

// StudentEvent is published once per student processed by a batch run.
type StudentEvent struct {
	RunID     string
	StudentID string
	Success   bool
	Err       error
	Duration  time.Duration
}

// HookEvent is published when the post-success notification hook fails.
type HookEvent struct {
	RunID     string
	StudentID string
	Err       error
}

// BatchEvent is published when a batch run completes.
type BatchEvent struct {
	RunID        string
	SuccessCount int
	FailureCount int
	Cancelled    bool
	Started      time.Time
	Duration     time.Duration
}

// PlanEvent is published when a student's plan has been generated and saved.
type PlanEvent struct {
	StudentID   string
	Allocations int
	Untimed     int
}

// CarryoverEvent is published after a carryover pass.
type CarryoverEvent struct {
	Cutoff  string
	Records int
	Applied int
}
