package model

import "fmt"

// ContentType is the kind of study material.
type ContentType string

const (
	ContentBook    ContentType = "book"
	ContentLecture ContentType = "lecture"
	ContentCustom  ContentType = "custom"
)

// ContentItem is a range of units (pages, episodes, ...) to plan.
// Both bounds are inclusive.
type ContentItem struct {
	ID         string      `json:"id" yaml:"id"`
	Type       ContentType `json:"type" yaml:"type"`
	RangeStart int         `json:"range_start" yaml:"range_start"`
	RangeEnd   int         `json:"range_end" yaml:"range_end"`
}

// Units returns the number of units in the item.
func (c ContentItem) Units() int { return c.RangeEnd - c.RangeStart + 1 }

// Validate rejects inverted or non-positive ranges.
func (c ContentItem) Validate() error {
	if c.RangeStart < 1 || c.RangeEnd < 1 {
		return fmt.Errorf("%w: %s range %d-%d is non-positive", ErrInvalidContent, c.ID, c.RangeStart, c.RangeEnd)
	}
	if c.RangeStart > c.RangeEnd {
		return fmt.Errorf("%w: %s range %d-%d is inverted", ErrInvalidContent, c.ID, c.RangeStart, c.RangeEnd)
	}
	return nil
}

// PlannedAllocation is one (content, day) placement.
// Start/End are nil when no time was assigned. PartIndex/TotalParts are set
// only when an item is split across two or more days.
type PlannedAllocation struct {
	ContentID  string `json:"content_id,omitempty"`
	Date       Date   `json:"date"`
	StartTime  *Clock `json:"start_time,omitempty"`
	EndTime    *Clock `json:"end_time,omitempty"`
	RangeStart int    `json:"range_start"`
	RangeEnd   int    `json:"range_end"`
	PartIndex  *int   `json:"part_index,omitempty"`
	TotalParts *int   `json:"total_parts,omitempty"`
}

// Units returns the number of units covered by the allocation.
func (a PlannedAllocation) Units() int { return a.RangeEnd - a.RangeStart + 1 }

// Timed reports whether the allocation carries a time placement.
func (a PlannedAllocation) Timed() bool { return a.StartTime != nil && a.EndTime != nil }

// Commitment converts a timed allocation into an ExistingCommitment.
func (a PlannedAllocation) Commitment() (ExistingCommitment, bool) {
	if !a.Timed() {
		return ExistingCommitment{}, false
	}
	return ExistingCommitment{Date: a.Date, Start: *a.StartTime, End: *a.EndTime}, true
}

// ExistingCommitment is previously booked time that must not be double-booked.
type ExistingCommitment struct {
	Date  Date  `json:"date"`
	Start Clock `json:"start"`
	End   Clock `json:"end"`
}

// Range returns the commitment as a TimeRange.
func (c ExistingCommitment) Range() TimeRange { return TimeRange{Start: c.Start, End: c.End} }
