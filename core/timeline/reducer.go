package timeline

import "github.com/kilianp07/studyplan/core/model"

// Reduce subtracts each existing commitment from the allocatable slots of its
// date. Non-allocatable slots are never touched and the input is not modified.
// Reduce is idempotent and independent of commitment order.
func Reduce(slots model.DaySlots, commitments []model.ExistingCommitment) model.DaySlots {
	byDate := make(map[model.Date][]model.TimeRange)
	for _, c := range commitments {
		r := c.Range()
		if r.Validate() != nil {
			continue
		}
		byDate[c.Date] = append(byDate[c.Date], r)
	}
	out := make(model.DaySlots, len(slots))
	for date, day := range slots {
		cuts, ok := byDate[date]
		if !ok {
			out[date] = append([]model.DaySlot(nil), day...)
			continue
		}
		out[date] = ReduceDay(day, cuts)
	}
	return out
}

// ReduceDay removes the cuts from the allocatable slots of a single day.
func ReduceDay(day []model.DaySlot, cuts []model.TimeRange) []model.DaySlot {
	return SubtractFromSlots(day, cuts, model.SlotType.Allocatable)
}
