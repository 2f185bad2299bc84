// Package source loads student profiles from YAML files.
package source

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/studyplan/core/model"
	"github.com/kilianp07/studyplan/core/planner"
)

// Weekday accepts either an English day name ("monday", "Mon") or the
// number 0-6 with Sunday as 0.
type Weekday time.Weekday

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

func (w *Weekday) UnmarshalYAML(n *yaml.Node) error {
	s := strings.ToLower(strings.TrimSpace(n.Value))
	if d, ok := weekdayNames[s]; ok {
		*w = Weekday(d)
		return nil
	}
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 || i > 6 {
		return fmt.Errorf("line %d: invalid weekday %q", n.Line, n.Value)
	}
	*w = Weekday(i)
	return nil
}

func (w Weekday) MarshalYAML() (any, error) {
	return strings.ToLower(time.Weekday(w).String()), nil
}

// Block is a weekly availability window as written in a profile.
type Block struct {
	Day   Weekday     `yaml:"day"`
	Start model.Clock `yaml:"start"`
	End   model.Clock `yaml:"end"`
}

// Academy is a recurring academy session as written in a profile.
type Academy struct {
	Day           Weekday     `yaml:"day"`
	Start         model.Clock `yaml:"start"`
	End           model.Clock `yaml:"end"`
	Name          string      `yaml:"name,omitempty"`
	Subject       string      `yaml:"subject,omitempty"`
	TravelMinutes int         `yaml:"travel_minutes,omitempty"`
}

// Profile is the on-disk description of one student.
type Profile struct {
	ID           string                   `yaml:"id"`
	PeriodStart  model.Date               `yaml:"period_start"`
	PeriodEnd    model.Date               `yaml:"period_end"`
	WeeklyBlocks []Block                  `yaml:"weekly_blocks"`
	Exclusions   []model.Exclusion        `yaml:"exclusions"`
	Academies    []Academy                `yaml:"academies"`
	Content      []planner.ContentRequest `yaml:"content"`
}

// Validate checks the fields the planner cannot default.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("profile: missing id")
	}
	if !p.PeriodStart.Valid() || !p.PeriodEnd.Valid() {
		return fmt.Errorf("profile %s: %w: period %q..%q", p.ID, model.ErrInvalidRange, p.PeriodStart, p.PeriodEnd)
	}
	for _, c := range p.Content {
		if err := c.Item.Validate(); err != nil {
			return fmt.Errorf("profile %s: %w", p.ID, err)
		}
	}
	return nil
}

// Input converts the profile into planner input. Commitments are left for
// the caller to fill from the plan store.
func (p Profile) Input() planner.StudentInput {
	in := planner.StudentInput{
		StudentID:   p.ID,
		PeriodStart: p.PeriodStart,
		PeriodEnd:   p.PeriodEnd,
		Exclusions:  p.Exclusions,
		Content:     p.Content,
	}
	for _, b := range p.WeeklyBlocks {
		in.WeeklyBlocks = append(in.WeeklyBlocks, model.WeeklyBlock{
			DayOfWeek: time.Weekday(b.Day), Start: b.Start, End: b.End,
		})
	}
	for _, a := range p.Academies {
		in.Academies = append(in.Academies, model.AcademySchedule{
			DayOfWeek: time.Weekday(a.Day), Start: a.Start, End: a.End,
			Name: a.Name, Subject: a.Subject, TravelMinutes: a.TravelMinutes,
		})
	}
	return in
}
