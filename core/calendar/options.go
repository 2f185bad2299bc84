package calendar

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/studyplan/core/model"
)

// Options configures the slot calculator. Unset optional windows disable the
// matching feature.
type Options struct {
	// StudyDays and ReviewDays define the repeating cycle, e.g. 6 + 1.
	StudyDays  int `json:"study_days" yaml:"study_days"`
	ReviewDays int `json:"review_days" yaml:"review_days"`
	// StudyHours is the availability window used on study and review days
	// when no weekly blocks are configured.
	StudyHours *model.TimeRange `json:"study_hours,omitempty" yaml:"study_hours,omitempty"`
	// DesignatedHolidayHours replaces the weekly blocks on holidays and vacations.
	DesignatedHolidayHours *model.TimeRange `json:"designated_holiday_hours,omitempty" yaml:"designated_holiday_hours,omitempty"`
	LunchTime              *model.TimeRange `json:"lunch_time,omitempty" yaml:"lunch_time,omitempty"`
	SelfStudyHours         *model.TimeRange `json:"self_study_hours,omitempty" yaml:"self_study_hours,omitempty"`

	EnableSelfStudyForStudyDays bool `json:"enable_self_study_for_study_days" yaml:"enable_self_study_for_study_days"`
	EnableSelfStudyForHolidays  bool `json:"enable_self_study_for_holidays" yaml:"enable_self_study_for_holidays"`
}

// MaxPeriodDays caps the length of a computed period.
const MaxPeriodDays = 731

// SetDefaults applies the 6 study + 1 review day cycle when none is set.
func (o *Options) SetDefaults() {
	if o.StudyDays == 0 && o.ReviewDays == 0 {
		o.StudyDays = 6
		o.ReviewDays = 1
	}
}

// Validate checks the cycle and every configured window.
func (o Options) Validate() error {
	if o.StudyDays < 0 || o.ReviewDays < 0 {
		return fmt.Errorf("%w: negative cycle length", model.ErrInvalidOptions)
	}
	if o.StudyDays+o.ReviewDays == 0 {
		return fmt.Errorf("%w: study_days + review_days must be positive", model.ErrInvalidOptions)
	}
	windows := map[string]*model.TimeRange{
		"study_hours":              o.StudyHours,
		"designated_holiday_hours": o.DesignatedHolidayHours,
		"lunch_time":               o.LunchTime,
		"self_study_hours":         o.SelfStudyHours,
	}
	for name, w := range windows {
		if w == nil {
			continue
		}
		if err := w.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %v", model.ErrInvalidOptions, name, err)
		}
	}
	if (o.EnableSelfStudyForStudyDays || o.EnableSelfStudyForHolidays) && o.SelfStudyHours == nil {
		return fmt.Errorf("%w: self-study enabled without self_study_hours", model.ErrInvalidOptions)
	}
	return nil
}

// CycleLength returns the number of days in one study/review cycle.
func (o Options) CycleLength() int { return o.StudyDays + o.ReviewDays }

// DecodeOptions decodes Options from r. Unknown fields are rejected. Defaults
// are applied before validation.
func DecodeOptions(r io.Reader, format string) (Options, error) {
	var o Options
	switch strings.ToLower(format) {
	case "yaml", "yml":
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&o); err != nil && err != io.EOF {
			return o, fmt.Errorf("%w: %v", model.ErrInvalidOptions, err)
		}
	case "json":
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&o); err != nil {
			return o, fmt.Errorf("%w: %v", model.ErrInvalidOptions, err)
		}
	default:
		return o, fmt.Errorf("unsupported format: %s", format)
	}
	o.SetDefaults()
	return o, o.Validate()
}
