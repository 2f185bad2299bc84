package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// DayType classifies a calendar day inside a plan period.
type DayType int

const (
	StudyDay DayType = iota
	ReviewDay
	DesignatedHoliday
	Vacation
	PersonalEvent
)

var dayTypeNames = map[DayType]string{
	StudyDay:          "STUDY_DAY",
	ReviewDay:         "REVIEW_DAY",
	DesignatedHoliday: "DESIGNATED_HOLIDAY",
	Vacation:          "VACATION",
	PersonalEvent:     "PERSONAL_EVENT",
}

func (t DayType) String() string {
	if n, ok := dayTypeNames[t]; ok {
		return n
	}
	return "unknown"
}

func (t DayType) MarshalJSON() ([]byte, error) { return json.Marshal(t.String()) }

func (t *DayType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for k, v := range dayTypeNames {
		if v == s {
			*t = k
			return nil
		}
	}
	return fmt.Errorf("unknown day type %q", s)
}

// DailyScheduleInfo describes one date of the period.
// WeekNumber and CycleDayNumber are nil on excluded dates.
type DailyScheduleInfo struct {
	Date           Date    `json:"date"`
	DayType        DayType `json:"day_type"`
	WeekNumber     *int    `json:"week_number,omitempty"`
	CycleDayNumber *int    `json:"cycle_day_number,omitempty"`
}

// ExclusionType is the caller-side reason a date leaves the default cycle.
type ExclusionType string

const (
	ExclusionHoliday  ExclusionType = "holiday"
	ExclusionVacation ExclusionType = "vacation"
	ExclusionPersonal ExclusionType = "personal"
)

// DayType maps the exclusion onto the day type it forces.
func (t ExclusionType) DayType() (DayType, error) {
	switch t {
	case ExclusionHoliday:
		return DesignatedHoliday, nil
	case ExclusionVacation:
		return Vacation, nil
	case ExclusionPersonal:
		return PersonalEvent, nil
	default:
		return 0, fmt.Errorf("%w: unknown exclusion type %q", ErrInvalidOptions, t)
	}
}

// Exclusion marks a date as non-default.
type Exclusion struct {
	Date   Date          `json:"date" yaml:"date"`
	Type   ExclusionType `json:"type" yaml:"type"`
	Reason string        `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// WeeklyBlock is a recurring weekly availability window.
type WeeklyBlock struct {
	DayOfWeek time.Weekday `json:"day_of_week" yaml:"day_of_week"`
	Start     Clock        `json:"start" yaml:"start"`
	End       Clock        `json:"end" yaml:"end"`
}

// Range returns the block as a TimeRange.
func (b WeeklyBlock) Range() TimeRange { return TimeRange{Start: b.Start, End: b.End} }

// Validate checks the weekday and the time bounds.
func (b WeeklyBlock) Validate() error {
	if b.DayOfWeek < time.Sunday || b.DayOfWeek > time.Saturday {
		return fmt.Errorf("%w: day_of_week %d", ErrInvalidOptions, b.DayOfWeek)
	}
	return b.Range().Validate()
}

// AcademySchedule is a recurring weekly commitment outside self-directed study.
type AcademySchedule struct {
	DayOfWeek     time.Weekday `json:"day_of_week" yaml:"day_of_week"`
	Start         Clock        `json:"start" yaml:"start"`
	End           Clock        `json:"end" yaml:"end"`
	Name          string       `json:"name,omitempty" yaml:"name,omitempty"`
	Subject       string       `json:"subject,omitempty" yaml:"subject,omitempty"`
	TravelMinutes int          `json:"travel_minutes,omitempty" yaml:"travel_minutes,omitempty"`
}

// Range returns the academy block as a TimeRange.
func (a AcademySchedule) Range() TimeRange { return TimeRange{Start: a.Start, End: a.End} }

// Validate checks the weekday, bounds and travel time.
func (a AcademySchedule) Validate() error {
	if a.DayOfWeek < time.Sunday || a.DayOfWeek > time.Saturday {
		return fmt.Errorf("%w: day_of_week %d", ErrInvalidOptions, a.DayOfWeek)
	}
	if a.TravelMinutes < 0 {
		return fmt.Errorf("%w: negative travel minutes", ErrInvalidOptions)
	}
	return a.Range().Validate()
}
