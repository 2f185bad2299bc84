// Package timeline implements wall-clock interval arithmetic and the reduction
// of computed day slots by time that is already committed elsewhere.
package timeline

import (
	"sort"

	"github.com/kilianp07/studyplan/core/model"
)

// MinSlotMinutes is the shortest slot piece kept after a subtraction.
// Shorter pieces are noise and are dropped.
const MinSlotMinutes = 5

// Subtract removes cut from r. A cut inside r splits it into up to two
// pieces, a cut covering r removes it, a disjoint cut leaves it untouched.
// Pieces shorter than MinSlotMinutes are discarded.
func Subtract(r, cut model.TimeRange) []model.TimeRange {
	if !r.Overlaps(cut) {
		return []model.TimeRange{r}
	}
	var out []model.TimeRange
	if cut.Start > r.Start {
		out = appendPiece(out, model.TimeRange{Start: r.Start, End: cut.Start})
	}
	if cut.End < r.End {
		out = appendPiece(out, model.TimeRange{Start: cut.End, End: r.End})
	}
	return out
}

// SubtractAll removes every cut from r, in any order.
func SubtractAll(r model.TimeRange, cuts []model.TimeRange) []model.TimeRange {
	pieces := []model.TimeRange{r}
	for _, c := range cuts {
		var next []model.TimeRange
		for _, p := range pieces {
			next = append(next, Subtract(p, c)...)
		}
		pieces = next
		if len(pieces) == 0 {
			break
		}
	}
	return pieces
}

// SubtractFromSlots applies the cuts to every slot whose type satisfies
// affected; other slots are passed through unchanged. The result is ordered.
func SubtractFromSlots(slots []model.DaySlot, cuts []model.TimeRange, affected func(model.SlotType) bool) []model.DaySlot {
	out := make([]model.DaySlot, 0, len(slots))
	for _, s := range slots {
		if !affected(s.Type) {
			out = append(out, s)
			continue
		}
		for _, p := range SubtractAll(s.Range, cuts) {
			out = append(out, model.DaySlot{Type: s.Type, Range: p, Label: s.Label})
		}
	}
	model.SortSlots(out)
	return out
}

// Merge sorts ranges and coalesces overlapping or touching ones.
func Merge(ranges []model.TimeRange) []model.TimeRange {
	if len(ranges) == 0 {
		return nil
	}
	sorted := append([]model.TimeRange(nil), ranges...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	out := []model.TimeRange{sorted[0]}
	for _, r := range sorted[1:] {
		last := &out[len(out)-1]
		if r.Start <= last.End {
			if r.End > last.End {
				last.End = r.End
			}
			continue
		}
		out = append(out, r)
	}
	return out
}

func appendPiece(out []model.TimeRange, p model.TimeRange) []model.TimeRange {
	if p.Minutes() < MinSlotMinutes {
		return out
	}
	return append(out, p)
}
