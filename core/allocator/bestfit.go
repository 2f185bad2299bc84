// Package allocator places a single study item inside the free slots of one day.
package allocator

import "github.com/kilianp07/studyplan/core/model"

// Placement is the time assigned to an item. Partial is true when the chosen
// slot was shorter than the required duration and the end was truncated to
// the slot boundary.
type Placement struct {
	Range   model.TimeRange `json:"range"`
	Partial bool            `json:"partial"`
}

// FindAvailableTimeSlot picks the STUDY slot that leaves the smallest
// remainder after placing requiredMinutes, breaking ties by earliest start.
// When no slot is long enough, the largest slot is used and the placement is
// truncated. ok is false only when the day has no STUDY slot at all.
func FindAvailableTimeSlot(slots []model.DaySlot, requiredMinutes int) (Placement, bool) {
	if requiredMinutes < 1 {
		requiredMinutes = 1
	}
	var (
		best, largest       model.TimeRange
		haveBest, haveLarge bool
	)
	for _, s := range slots {
		if s.Type != model.SlotStudy {
			continue
		}
		r := s.Range
		if !haveLarge || r.Minutes() > largest.Minutes() ||
			(r.Minutes() == largest.Minutes() && r.Start < largest.Start) {
			largest, haveLarge = r, true
		}
		if r.Minutes() < requiredMinutes {
			continue
		}
		if !haveBest || fitsBetter(r, best, requiredMinutes) {
			best, haveBest = r, true
		}
	}
	switch {
	case haveBest:
		return Placement{Range: model.TimeRange{Start: best.Start, End: best.Start + model.Clock(requiredMinutes)}}, true
	case haveLarge:
		return Placement{Range: largest, Partial: true}, true
	default:
		return Placement{}, false
	}
}

// fitsBetter reports whether candidate leaves less waste than current.
func fitsBetter(candidate, current model.TimeRange, required int) bool {
	cw := candidate.Minutes() - required
	bw := current.Minutes() - required
	if cw != bw {
		return cw < bw
	}
	return candidate.Start < current.Start
}
