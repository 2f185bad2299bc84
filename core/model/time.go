package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MinutesPerDay bounds every Clock value.
const MinutesPerDay = 24 * 60

// DateLayout is the ISO 8601 calendar date layout used on every boundary.
const DateLayout = "2006-01-02"

// Clock is a wall-clock time expressed in minutes from midnight.
type Clock int

// ParseClock parses an "HH:MM" string.
func ParseClock(s string) (Clock, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || len(mm) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return Clock(h*60 + m), nil
}

// MustClock is ParseClock for literals; it panics on malformed input.
func MustClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// String formats the clock as "HH:MM".
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Valid reports whether the clock lies within a single day.
func (c Clock) Valid() bool { return c >= 0 && c < MinutesPerDay }

func (c Clock) MarshalJSON() ([]byte, error) { return json.Marshal(c.String()) }

func (c *Clock) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

func (c Clock) MarshalYAML() (any, error) { return c.String(), nil }

func (c *Clock) UnmarshalText(b []byte) error {
	v, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// TimeRange is a half-open [Start, End) wall-clock interval that never crosses midnight.
type TimeRange struct {
	Start Clock `json:"start" yaml:"start"`
	End   Clock `json:"end" yaml:"end"`
}

// NewTimeRange parses both bounds and validates the result.
func NewTimeRange(start, end string) (TimeRange, error) {
	s, err := ParseClock(start)
	if err != nil {
		return TimeRange{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return TimeRange{}, err
	}
	r := TimeRange{Start: s, End: e}
	return r, r.Validate()
}

// MustRange is NewTimeRange for literals.
func MustRange(start, end string) TimeRange {
	r, err := NewTimeRange(start, end)
	if err != nil {
		panic(err)
	}
	return r
}

// Validate checks start < end within one day.
func (r TimeRange) Validate() error {
	if !r.Start.Valid() || !r.End.Valid() || r.Start >= r.End {
		return fmt.Errorf("%w: %s-%s", ErrInvalidTime, r.Start, r.End)
	}
	return nil
}

// Minutes returns the duration of the range.
func (r TimeRange) Minutes() int { return int(r.End - r.Start) }

// Overlaps reports whether the two ranges share at least one minute.
func (r TimeRange) Overlaps(o TimeRange) bool { return r.Start < o.End && o.Start < r.End }

// Contains reports whether o lies entirely inside r.
func (r TimeRange) Contains(o TimeRange) bool { return r.Start <= o.Start && o.End <= r.End }

func (r TimeRange) String() string { return r.Start.String() + "-" + r.End.String() }

// Date is a calendar day in ISO 8601 form (YYYY-MM-DD). The zero value is invalid.
// Lexicographic order equals chronological order.
type Date string

// ParseDate validates s and returns it as a Date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("%w: date %q", ErrInvalidRange, s)
	}
	return DateOf(t), nil
}

// MustDate is ParseDate for literals.
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date { return Date(t.Format(DateLayout)) }

// Time returns the date at UTC midnight.
func (d Date) Time() time.Time {
	t, err := time.Parse(DateLayout, string(d))
	if err != nil {
		return time.Time{}
	}
	return t
}

// Valid reports whether d parses as a calendar date.
func (d Date) Valid() bool {
	_, err := time.Parse(DateLayout, string(d))
	return err == nil
}

// AddDays returns the date n days later (n may be negative).
func (d Date) AddDays(n int) Date { return DateOf(d.Time().AddDate(0, 0, n)) }

// Weekday returns the day of week (Sunday = 0).
func (d Date) Weekday() time.Weekday { return d.Time().Weekday() }

func (d Date) Before(o Date) bool { return d < o }
func (d Date) After(o Date) bool  { return d > o }

// DaysUntil returns the number of days from d to o.
func (d Date) DaysUntil(o Date) int {
	return int(o.Time().Sub(d.Time()).Hours() / 24)
}

func (d Date) String() string { return string(d) }

// DatesBetween lists every date in [start, end] inclusive.
func DatesBetween(start, end Date) ([]Date, error) {
	if !start.Valid() || !end.Valid() {
		return nil, fmt.Errorf("%w: %q..%q", ErrInvalidRange, start, end)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: period ends %s before it starts %s", ErrInvalidRange, end, start)
	}
	n := start.DaysUntil(end) + 1
	out := make([]Date, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, start.AddDays(i))
	}
	return out, nil
}
