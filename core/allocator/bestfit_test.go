package allocator

import (
	"testing"

	"github.com/kilianp07/studyplan/core/model"
)

func study(s, e string) model.DaySlot {
	return model.DaySlot{Type: model.SlotStudy, Range: model.MustRange(s, e)}
}

func TestFindAvailableTimeSlot(t *testing.T) {
	day := []model.DaySlot{
		study("09:00", "10:30"),
		{Type: model.SlotLunch, Range: model.MustRange("12:00", "13:00")},
		study("13:00", "14:00"),
		study("15:00", "18:00"),
	}
	tests := []struct {
		name     string
		slots    []model.DaySlot
		required int
		want     model.TimeRange
		partial  bool
		ok       bool
	}{
		{"tightest fit wins", day, 60, model.MustRange("13:00", "14:00"), false, true},
		{"smaller remainder", day, 80, model.MustRange("09:00", "10:20"), false, true},
		{"too long uses largest", day, 200, model.MustRange("15:00", "18:00"), true, true},
		{"zero clamps to one minute", day, 0, model.MustRange("13:00", "13:01"), false, true},
		{"tie breaks on start", []model.DaySlot{study("14:00", "15:00"), study("08:00", "09:00")}, 30, model.MustRange("08:00", "08:30"), false, true},
		{"reserved only", []model.DaySlot{{Type: model.SlotAcademy, Range: model.MustRange("09:00", "18:00")}}, 30, model.TimeRange{}, false, false},
		{"self study ignored", []model.DaySlot{{Type: model.SlotSelfStudy, Range: model.MustRange("19:00", "21:00")}}, 30, model.TimeRange{}, false, false},
		{"empty day", nil, 30, model.TimeRange{}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := FindAvailableTimeSlot(tt.slots, tt.required)
			if ok != tt.ok {
				t.Fatalf("expected ok=%v got %v", tt.ok, ok)
			}
			if !ok {
				return
			}
			if p.Range != tt.want || p.Partial != tt.partial {
				t.Fatalf("expected %s partial=%v got %s partial=%v", tt.want, tt.partial, p.Range, p.Partial)
			}
		})
	}
}
