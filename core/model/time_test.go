package model

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    Clock
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:30", 570, false},
		{"23:59", 1439, false},
		{" 7:05 ", 425, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"12:5", 0, true},
		{"noon", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseClock(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidTime) {
				t.Fatalf("%q: expected ErrInvalidTime, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("%q: expected %d got %d (%v)", tt.in, tt.want, got, err)
		}
	}
}

func TestClockJSON(t *testing.T) {
	b, err := json.Marshal(MustClock("08:05"))
	if err != nil || string(b) != `"08:05"` {
		t.Fatalf("marshal: %s %v", b, err)
	}
	var c Clock
	if err := json.Unmarshal([]byte(`"18:45"`), &c); err != nil || c != MustClock("18:45") {
		t.Fatalf("unmarshal: %v %v", c, err)
	}
}

func TestTimeRange(t *testing.T) {
	a := MustRange("09:00", "12:00")
	b := MustRange("12:00", "13:00")
	if a.Overlaps(b) {
		t.Fatal("touching ranges must not overlap")
	}
	if !a.Overlaps(MustRange("11:59", "12:30")) {
		t.Fatal("expected overlap")
	}
	if !a.Contains(MustRange("10:00", "11:00")) {
		t.Fatal("expected containment")
	}
	if a.Minutes() != 180 {
		t.Fatalf("expected 180 got %d", a.Minutes())
	}
	if _, err := NewTimeRange("13:00", "12:00"); !errors.Is(err, ErrInvalidTime) {
		t.Fatalf("inverted range accepted: %v", err)
	}
}

func TestDatesBetween(t *testing.T) {
	days, err := DatesBetween("2024-02-27", "2024-03-02")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Date{"2024-02-27", "2024-02-28", "2024-02-29", "2024-03-01", "2024-03-02"}
	if len(days) != len(want) {
		t.Fatalf("expected %d days got %d", len(want), len(days))
	}
	for i := range want {
		if days[i] != want[i] {
			t.Fatalf("day %d: expected %s got %s", i, want[i], days[i])
		}
	}
	if _, err := DatesBetween("2024-03-02", "2024-03-01"); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange got %v", err)
	}
	if _, err := DatesBetween("2024-13-01", "2024-03-01"); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange got %v", err)
	}
}

func TestDateHelpers(t *testing.T) {
	d := MustDate("2025-03-03")
	if d.Weekday().String() != "Monday" {
		t.Fatalf("expected Monday got %s", d.Weekday())
	}
	if d.AddDays(-3) != "2025-02-28" {
		t.Fatalf("unexpected AddDays result %s", d.AddDays(-3))
	}
	if d.DaysUntil("2025-03-10") != 7 {
		t.Fatalf("expected 7 got %d", d.DaysUntil("2025-03-10"))
	}
}

func TestContentItemValidate(t *testing.T) {
	if err := (ContentItem{ID: "a", RangeStart: 1, RangeEnd: 1}).Validate(); err != nil {
		t.Fatalf("single unit rejected: %v", err)
	}
	for _, c := range []ContentItem{{RangeStart: 0, RangeEnd: 3}, {RangeStart: 5, RangeEnd: 4}} {
		if err := c.Validate(); !errors.Is(err, ErrInvalidContent) {
			t.Fatalf("%+v: expected ErrInvalidContent got %v", c, err)
		}
	}
}

func TestSlotTypeAllocatable(t *testing.T) {
	for typ, want := range map[SlotType]bool{
		SlotStudy: true, SlotSelfStudy: true, SlotLunch: false, SlotAcademy: false, SlotTravel: false,
	} {
		if typ.Allocatable() != want {
			t.Fatalf("%s: expected %v", typ, want)
		}
	}
}
