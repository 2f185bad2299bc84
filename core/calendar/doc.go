// Package calendar turns recurring availability into concrete, typed day
// slots for a date range.
//
// For each date it decides the day type (study, review, holiday, vacation,
// personal event) from a study/review cycle anchored at the period start and
// from caller-supplied exclusions, then builds the slots for that date from
// the weekly blocks, the lunch window, the academy schedules with their
// travel time, and the optional self-study window. The computation is pure:
// identical inputs always produce identical output.
package calendar
