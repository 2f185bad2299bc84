package model

// ContainerType is the scheduling bucket of a persisted plan.
type ContainerType string

const (
	ContainerDaily      ContainerType = "daily"
	ContainerWeekly     ContainerType = "weekly"
	ContainerUnfinished ContainerType = "unfinished"
)

// PlanStatus is the completion state of a persisted plan.
type PlanStatus string

const (
	StatusPending    PlanStatus = "pending"
	StatusInProgress PlanStatus = "in_progress"
	StatusCompleted  PlanStatus = "completed"
)

// Plan is a persisted daily plan row as seen by the carryover engine.
// CompletedStart/CompletedEnd are nil when no progress was recorded.
type Plan struct {
	ID             string        `json:"id"`
	StudentID      string        `json:"student_id"`
	ContentID      string        `json:"content_id"`
	PlanDate       Date          `json:"plan_date"`
	StartTime      *Clock        `json:"start_time,omitempty"`
	EndTime        *Clock        `json:"end_time,omitempty"`
	Container      ContainerType `json:"container"`
	Status         PlanStatus    `json:"status"`
	PlannedStart   int           `json:"planned_start"`
	PlannedEnd     int           `json:"planned_end"`
	CompletedStart *int          `json:"completed_start,omitempty"`
	CompletedEnd   *int          `json:"completed_end,omitempty"`
	CarryoverFrom  *Date         `json:"carryover_from,omitempty"`
	CarryoverCount int           `json:"carryover_count"`
}

// CarryoverRecord describes one plan moved to the unfinished bucket.
// FromDate is the first date the plan was left incomplete.
type CarryoverRecord struct {
	PlanID          string `json:"plan_id"`
	FromDate        Date   `json:"from_date"`
	ToDate          Date   `json:"to_date"`
	CarryoverCount  int    `json:"carryover_count"`
	RemainingVolume int    `json:"remaining_volume"`
}
