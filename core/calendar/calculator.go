package calendar

import (
	"fmt"
	"slices"
	"time"

	"github.com/kilianp07/studyplan/core/model"
	"github.com/kilianp07/studyplan/core/timeline"
)

// Schedule is the calculator output for a period.
type Schedule struct {
	Daily []model.DailyScheduleInfo `json:"daily_schedule"`
	Slots model.DaySlots            `json:"day_slots"`
}

// ComputeSchedule produces the day types and day slots of every date in
// [periodStart, periodEnd]. Exclusions override the study/review cycle for
// their date only.
func ComputeSchedule(
	periodStart, periodEnd model.Date,
	weeklyBlocks []model.WeeklyBlock,
	exclusions []model.Exclusion,
	academies []model.AcademySchedule,
	opts Options,
) (Schedule, error) {
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return Schedule{}, err
	}
	dates, err := model.DatesBetween(periodStart, periodEnd)
	if err != nil {
		return Schedule{}, err
	}
	if len(dates) == 0 {
		return Schedule{}, fmt.Errorf("%w: empty period", model.ErrInvalidRange)
	}
	if len(dates) > MaxPeriodDays {
		return Schedule{}, fmt.Errorf("%w: period of %d days exceeds %d", model.ErrInvalidRange, len(dates), MaxPeriodDays)
	}
	for _, b := range weeklyBlocks {
		if err := b.Validate(); err != nil {
			return Schedule{}, fmt.Errorf("weekly block: %w", err)
		}
	}
	for _, a := range academies {
		if err := a.Validate(); err != nil {
			return Schedule{}, fmt.Errorf("academy %q: %w", a.Name, err)
		}
	}
	overrides, err := exclusionIndex(exclusions)
	if err != nil {
		return Schedule{}, err
	}

	sched := Schedule{
		Daily: make([]model.DailyScheduleInfo, 0, len(dates)),
		Slots: make(model.DaySlots, len(dates)),
	}
	for i, date := range dates {
		info := cycleInfo(date, i, opts)
		if t, ok := overrides[date]; ok {
			info = model.DailyScheduleInfo{Date: date, DayType: t}
		}
		sched.Daily = append(sched.Daily, info)
		sched.Slots[date] = daySlots(date, info.DayType, weeklyBlocks, academies, opts)
	}
	return sched, nil
}

// DayTypeAt returns the cyclic day type of the date at offset i from the
// period start, ignoring exclusions.
func DayTypeAt(i int, opts Options) model.DayType {
	pos := i % opts.CycleLength()
	if pos < opts.StudyDays {
		return model.StudyDay
	}
	return model.ReviewDay
}

func cycleInfo(date model.Date, i int, opts Options) model.DailyScheduleInfo {
	week := i/opts.CycleLength() + 1
	cycleDay := i%opts.CycleLength() + 1
	return model.DailyScheduleInfo{
		Date:           date,
		DayType:        DayTypeAt(i, opts),
		WeekNumber:     &week,
		CycleDayNumber: &cycleDay,
	}
}

// exclusionIndex keeps the first exclusion per date.
func exclusionIndex(exclusions []model.Exclusion) (map[model.Date]model.DayType, error) {
	idx := make(map[model.Date]model.DayType, len(exclusions))
	for _, e := range exclusions {
		if !e.Date.Valid() {
			return nil, fmt.Errorf("exclusion: %w: date %q", model.ErrInvalidRange, e.Date)
		}
		t, err := e.Type.DayType()
		if err != nil {
			return nil, fmt.Errorf("exclusion %s: %w", e.Date, err)
		}
		if _, dup := idx[e.Date]; dup {
			continue
		}
		idx[e.Date] = t
	}
	return idx, nil
}

// baseWindows returns the availability windows of a date before any
// reservation is carved out.
func baseWindows(wd time.Weekday, dayType model.DayType, blocks []model.WeeklyBlock, opts Options) []model.TimeRange {
	switch dayType {
	case model.PersonalEvent:
		return nil
	case model.DesignatedHoliday, model.Vacation:
		if opts.DesignatedHolidayHours == nil {
			return nil
		}
		return []model.TimeRange{*opts.DesignatedHolidayHours}
	case model.StudyDay, model.ReviewDay:
		if len(blocks) == 0 {
			if opts.StudyHours == nil {
				return nil
			}
			return []model.TimeRange{*opts.StudyHours}
		}
		var out []model.TimeRange
		for _, b := range blocks {
			if b.DayOfWeek == wd {
				out = append(out, b.Range())
			}
		}
		return timeline.Merge(out)
	default:
		return nil
	}
}

func selfStudyEnabled(dayType model.DayType, opts Options) bool {
	switch dayType {
	case model.StudyDay, model.ReviewDay:
		return opts.EnableSelfStudyForStudyDays
	case model.DesignatedHoliday, model.Vacation:
		return opts.EnableSelfStudyForHolidays
	case model.PersonalEvent:
		return false
	default:
		return false
	}
}

func daySlots(date model.Date, dayType model.DayType, blocks []model.WeeklyBlock, academies []model.AcademySchedule, opts Options) []model.DaySlot {
	if dayType == model.PersonalEvent {
		return []model.DaySlot{}
	}
	wd := date.Weekday()
	base := baseWindows(wd, dayType, blocks, opts)

	var reserved []model.DaySlot
	if opts.LunchTime != nil && overlapsAny(*opts.LunchTime, base) {
		reserved = append(reserved, model.DaySlot{Type: model.SlotLunch, Range: *opts.LunchTime})
	}
	var todays []model.AcademySchedule
	for _, a := range academies {
		if a.DayOfWeek == wd {
			todays = append(todays, a)
			reserved = append(reserved, model.DaySlot{Type: model.SlotAcademy, Range: a.Range(), Label: academyLabel(a)})
		}
	}
	slices.SortStableFunc(todays, func(x, y model.AcademySchedule) int { return int(x.Start) - int(y.Start) })
	blockers := rangesOf(reserved)
	for _, a := range todays {
		travel := travelSlots(a, blockers)
		reserved = append(reserved, travel...)
		// Travel between two close academies is shared, not counted twice.
		blockers = append(blockers, rangesOf(travel)...)
	}
	cuts := rangesOf(reserved)

	var slots []model.DaySlot
	for _, w := range base {
		for _, p := range timeline.SubtractAll(w, cuts) {
			slots = append(slots, model.DaySlot{Type: model.SlotStudy, Range: p})
		}
	}
	if selfStudyEnabled(dayType, opts) && opts.SelfStudyHours != nil {
		taken := append(rangesOf(slots), cuts...)
		for _, p := range timeline.SubtractAll(*opts.SelfStudyHours, taken) {
			slots = append(slots, model.DaySlot{Type: model.SlotSelfStudy, Range: p})
		}
	}
	slots = append(slots, reserved...)
	if slots == nil {
		slots = []model.DaySlot{}
	}
	model.SortSlots(slots)
	return slots
}

// travelSlots materializes travel time around an academy block, clipped so
// it never crosses a neighbouring reserved slot, travel already placed for
// another academy, or the day boundary.
func travelSlots(a model.AcademySchedule, blockers []model.TimeRange) []model.DaySlot {
	if a.TravelMinutes <= 0 {
		return nil
	}
	own := a.Range()
	lo := a.Start - model.Clock(a.TravelMinutes)
	if lo < 0 {
		lo = 0
	}
	hi := a.End + model.Clock(a.TravelMinutes)
	if hi > model.MinutesPerDay-1 {
		hi = model.MinutesPerDay - 1
	}
	for _, b := range blockers {
		if b == own {
			continue
		}
		if b.End <= a.Start && b.End > lo {
			lo = b.End
		}
		if b.Start >= a.End && b.Start < hi {
			hi = b.Start
		}
	}
	var out []model.DaySlot
	label := academyLabel(a)
	if lo < a.Start {
		out = append(out, model.DaySlot{Type: model.SlotTravel, Range: model.TimeRange{Start: lo, End: a.Start}, Label: label})
	}
	if hi > a.End {
		out = append(out, model.DaySlot{Type: model.SlotTravel, Range: model.TimeRange{Start: a.End, End: hi}, Label: label})
	}
	return out
}

func academyLabel(a model.AcademySchedule) string {
	if a.Name != "" {
		return a.Name
	}
	return a.Subject
}

func overlapsAny(r model.TimeRange, windows []model.TimeRange) bool {
	for _, w := range windows {
		if r.Overlaps(w) {
			return true
		}
	}
	return false
}

func rangesOf(slots []model.DaySlot) []model.TimeRange {
	out := make([]model.TimeRange, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Range)
	}
	return out
}
