// Package carryover moves incomplete daily plans into the unfinished bucket.
package carryover

import (
	"fmt"
	"sort"

	"github.com/kilianp07/studyplan/core/model"
)

// Eligible reports whether p is an incomplete daily plan dated before cutoff.
// Plans already moved to the unfinished bucket are never eligible, which makes
// repeated runs on the same day free of double increments.
func Eligible(p model.Plan, cutoff model.Date) bool {
	return p.Container == model.ContainerDaily &&
		p.Status != model.StatusCompleted &&
		p.PlanDate.Before(cutoff)
}

// RemainingVolume returns max(0, planned - completed), each measured as end - start.
func RemainingVolume(p model.Plan) int {
	planned := p.PlannedEnd - p.PlannedStart
	completed := 0
	if p.CompletedStart != nil && p.CompletedEnd != nil {
		completed = *p.CompletedEnd - *p.CompletedStart
	}
	if rem := planned - completed; rem > 0 {
		return rem
	}
	return 0
}

// Carryover builds one record per eligible plan. Ineligible plans are skipped,
// so callers may pass a superset. Records are ordered by plan date then id.
func Carryover(plans []model.Plan, cutoff model.Date) ([]model.CarryoverRecord, error) {
	if !cutoff.Valid() {
		return nil, fmt.Errorf("%w: cutoff %q", model.ErrInvalidRange, cutoff)
	}
	selected := make([]model.Plan, 0, len(plans))
	for _, p := range plans {
		if Eligible(p, cutoff) {
			selected = append(selected, p)
		}
	}
	sort.SliceStable(selected, func(i, j int) bool {
		if selected[i].PlanDate != selected[j].PlanDate {
			return selected[i].PlanDate < selected[j].PlanDate
		}
		return selected[i].ID < selected[j].ID
	})
	out := make([]model.CarryoverRecord, 0, len(selected))
	for _, p := range selected {
		from := p.PlanDate
		if p.CarryoverFrom != nil && p.CarryoverFrom.Valid() {
			from = *p.CarryoverFrom
		}
		out = append(out, model.CarryoverRecord{
			PlanID:          p.ID,
			FromDate:        from,
			ToDate:          cutoff,
			CarryoverCount:  p.CarryoverCount + 1,
			RemainingVolume: RemainingVolume(p),
		})
	}
	return out, nil
}

// Apply returns p updated by rec: unfinished container, carry-from date and count.
func Apply(p model.Plan, rec model.CarryoverRecord) model.Plan {
	from := rec.FromDate
	p.Container = model.ContainerUnfinished
	p.CarryoverFrom = &from
	p.CarryoverCount = rec.CarryoverCount
	return p
}
