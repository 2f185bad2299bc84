// Package planner runs the pure per-student pipeline: slot calculation,
// reduction by existing commitments, then distribution of each content item.
package planner

import (
	"fmt"

	"github.com/kilianp07/studyplan/core/calendar"
	"github.com/kilianp07/studyplan/core/distribution"
	"github.com/kilianp07/studyplan/core/model"
	"github.com/kilianp07/studyplan/core/timeline"
)

// ContentRequest pairs a content item with its planning mode.
// An empty mode means distribution.ModePeriod.
type ContentRequest struct {
	Item model.ContentItem `json:"item" yaml:"item"`
	Mode distribution.Mode `json:"mode,omitempty" yaml:"mode,omitempty"`
}

// StudentInput is everything needed to plan one student.
type StudentInput struct {
	StudentID    string                     `json:"student_id"`
	PeriodStart  model.Date                 `json:"period_start"`
	PeriodEnd    model.Date                 `json:"period_end"`
	WeeklyBlocks []model.WeeklyBlock        `json:"weekly_blocks"`
	Exclusions   []model.Exclusion          `json:"exclusions"`
	Academies    []model.AcademySchedule    `json:"academies"`
	Content      []ContentRequest           `json:"content"`
	Commitments  []model.ExistingCommitment `json:"commitments"`
}

// StudentPlan is the pipeline output for one student.
type StudentPlan struct {
	StudentID   string                    `json:"student_id"`
	Schedule    calendar.Schedule         `json:"schedule"`
	Free        model.DaySlots            `json:"free_slots"`
	Allocations []model.PlannedAllocation `json:"allocations"`
}

// Planner holds the static configuration shared by every student.
type Planner struct {
	opts calendar.Options
	dist *distribution.Distributor
}

// New returns a Planner. A nil distributor uses the default configuration.
func New(opts calendar.Options, dist *distribution.Distributor) *Planner {
	if dist == nil {
		dist = distribution.New(distribution.Config{})
	}
	opts.SetDefaults()
	return &Planner{opts: opts, dist: dist}
}

// Plan computes the schedule of in and distributes its content in order.
// Timed allocations of earlier items consume free time before later items
// are placed, so a student is never double-booked.
func (p *Planner) Plan(in StudentInput) (StudentPlan, error) {
	sched, err := calendar.ComputeSchedule(in.PeriodStart, in.PeriodEnd, in.WeeklyBlocks, in.Exclusions, in.Academies, p.opts)
	if err != nil {
		return StudentPlan{}, fmt.Errorf("student %s: schedule: %w", in.StudentID, err)
	}
	free := timeline.Reduce(sched.Slots, in.Commitments)

	out := StudentPlan{StudentID: in.StudentID, Schedule: sched}
	for _, req := range in.Content {
		mode := req.Mode
		if mode == "" {
			mode = distribution.ModePeriod
		}
		allocs, err := p.dist.Distribute(req.Item, in.PeriodStart, in.PeriodEnd, free, mode)
		if err != nil {
			return StudentPlan{}, fmt.Errorf("student %s: content %s: %w", in.StudentID, req.Item.ID, err)
		}
		free = consume(free, allocs)
		out.Allocations = append(out.Allocations, allocs...)
	}
	out.Free = free
	return out, nil
}

// consume removes the timed allocations from the free slots of their day.
func consume(free model.DaySlots, allocs []model.PlannedAllocation) model.DaySlots {
	var used []model.ExistingCommitment
	for _, a := range allocs {
		if c, ok := a.Commitment(); ok {
			used = append(used, c)
		}
	}
	if len(used) == 0 {
		return free
	}
	return timeline.Reduce(free, used)
}
