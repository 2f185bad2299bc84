package model

import (
	"encoding/json"
	"fmt"
	"sort"
)

// SlotType classifies a DaySlot.
type SlotType int

const (
	SlotStudy SlotType = iota
	SlotSelfStudy
	SlotLunch
	SlotAcademy
	SlotTravel
)

var slotTypeNames = map[SlotType]string{
	SlotStudy:     "STUDY",
	SlotSelfStudy: "SELF_STUDY",
	SlotLunch:     "LUNCH",
	SlotAcademy:   "ACADEMY",
	SlotTravel:    "TRAVEL",
}

// String returns the wire name of the slot type.
func (t SlotType) String() string {
	if n, ok := slotTypeNames[t]; ok {
		return n
	}
	return "unknown"
}

// Allocatable reports whether content may be placed in slots of this type.
func (t SlotType) Allocatable() bool {
	switch t {
	case SlotStudy, SlotSelfStudy:
		return true
	case SlotLunch, SlotAcademy, SlotTravel:
		return false
	default:
		return false
	}
}

func (t SlotType) MarshalJSON() ([]byte, error) { return json.Marshal(t.String()) }

func (t *SlotType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for k, v := range slotTypeNames {
		if v == s {
			*t = k
			return nil
		}
	}
	return fmt.Errorf("unknown slot type %q", s)
}

// DaySlot is a concrete typed interval on one date.
type DaySlot struct {
	Type  SlotType  `json:"type"`
	Range TimeRange `json:"range"`
	Label string    `json:"label,omitempty"`
}

// Minutes returns the slot duration.
func (s DaySlot) Minutes() int { return s.Range.Minutes() }

// SortSlots orders slots by start time, then end time, then type.
func SortSlots(slots []DaySlot) {
	sort.SliceStable(slots, func(i, j int) bool {
		a, b := slots[i], slots[j]
		if a.Range.Start != b.Range.Start {
			return a.Range.Start < b.Range.Start
		}
		if a.Range.End != b.Range.End {
			return a.Range.End < b.Range.End
		}
		return a.Type < b.Type
	})
}

// StudyMinutes sums the duration of STUDY slots.
func StudyMinutes(slots []DaySlot) int {
	total := 0
	for _, s := range slots {
		if s.Type == SlotStudy {
			total += s.Minutes()
		}
	}
	return total
}

// DaySlots maps each date to its ordered slots.
type DaySlots map[Date][]DaySlot

// Clone deep-copies the map so callers can mutate the result freely.
func (d DaySlots) Clone() DaySlots {
	out := make(DaySlots, len(d))
	for k, v := range d {
		out[k] = append([]DaySlot(nil), v...)
	}
	return out
}
