// Package distribution spreads a content range across the days of a period
// and places each day's share inside that day's free study slots.
package distribution

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/studyplan/core/allocator"
	"github.com/kilianp07/studyplan/core/model"
)

// Mode selects how an item is planned.
type Mode string

const (
	// ModeToday places the whole item on the first day with a time slot.
	ModeToday Mode = "today"
	// ModeWeekly places the whole item on the first day without a time.
	ModeWeekly Mode = "weekly"
	// ModePeriod splits the item across every day of the period.
	ModePeriod Mode = "period"
)

// Weighting selects how PERIOD mode sizes each day's share.
type Weighting string

const (
	// WeightEven gives every day ceil(total/days) units.
	WeightEven Weighting = "even"
	// WeightCapacity sizes shares by each day's free study minutes.
	WeightCapacity Weighting = "capacity"
)

// Config configures a Distributor.
type Config struct {
	Weighting Weighting     `json:"weighting"`
	Duration  DurationModel `json:"duration"`
}

// SetDefaults applies even weighting and the default duration model.
func (c *Config) SetDefaults() {
	if c.Weighting == "" {
		c.Weighting = WeightEven
	}
	c.Duration.SetDefaults()
}

// Validate checks the weighting and duration model.
func (c Config) Validate() error {
	switch c.Weighting {
	case WeightEven, WeightCapacity:
	default:
		return fmt.Errorf("%w: unknown weighting %q", model.ErrInvalidOptions, c.Weighting)
	}
	return c.Duration.Validate()
}

// Distributor turns content items into planned allocations.
type Distributor struct {
	cfg Config
}

// New returns a Distributor; zero config fields take their defaults.
func New(cfg Config) *Distributor {
	cfg.SetDefaults()
	return &Distributor{cfg: cfg}
}

// Config returns the effective configuration.
func (d *Distributor) Config() Config { return d.cfg }

// Distribute plans item over [start, end] using the reduced day slots.
func (d *Distributor) Distribute(item model.ContentItem, start, end model.Date, slots model.DaySlots, mode Mode) ([]model.PlannedAllocation, error) {
	dates, err := model.DatesBetween(start, end)
	if err != nil {
		return nil, err
	}
	if len(dates) == 0 {
		return nil, fmt.Errorf("%w: empty period", model.ErrInvalidRange)
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	switch mode {
	case ModeToday:
		return []model.PlannedAllocation{d.today(item, dates[0], slots[dates[0]])}, nil
	case ModeWeekly:
		return []model.PlannedAllocation{whole(item, dates[0])}, nil
	case ModePeriod:
		return d.period(item, dates, slots), nil
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", model.ErrInvalidOptions, mode)
	}
}

func whole(item model.ContentItem, date model.Date) model.PlannedAllocation {
	return model.PlannedAllocation{
		ContentID:  item.ID,
		Date:       date,
		RangeStart: item.RangeStart,
		RangeEnd:   item.RangeEnd,
	}
}

func (d *Distributor) today(item model.ContentItem, date model.Date, day []model.DaySlot) model.PlannedAllocation {
	a := whole(item, date)
	d.place(&a, item.Type, day)
	return a
}

// place assigns a time to a when the day has a STUDY slot.
func (d *Distributor) place(a *model.PlannedAllocation, t model.ContentType, day []model.DaySlot) {
	need := d.cfg.Duration.RequiredMinutes(t, a.Units())
	p, ok := allocator.FindAvailableTimeSlot(day, need)
	if !ok {
		return
	}
	start, end := p.Range.Start, p.Range.End
	a.StartTime, a.EndTime = &start, &end
}

func (d *Distributor) period(item model.ContentItem, dates []model.Date, slots model.DaySlots) []model.PlannedAllocation {
	capacity := make([]int, len(dates))
	var eligible []int
	for i, date := range dates {
		capacity[i] = model.StudyMinutes(slots[date])
		if capacity[i] > 0 {
			eligible = append(eligible, i)
		}
	}
	// Without any capacity information every day takes a share, untimed.
	if len(eligible) == 0 {
		for i := range dates {
			eligible = append(eligible, i)
		}
	}

	var shares []int
	if d.cfg.Weighting == WeightCapacity {
		shares = capacityShares(item.Units(), eligible, capacity)
	} else {
		shares = evenShares(item.Units(), len(dates), len(eligible))
	}

	var out []model.PlannedAllocation
	cursor := item.RangeStart
	for k, idx := range eligible {
		n := shares[k]
		if n <= 0 {
			continue
		}
		a := model.PlannedAllocation{
			ContentID:  item.ID,
			Date:       dates[idx],
			RangeStart: cursor,
			RangeEnd:   cursor + n - 1,
		}
		cursor += n
		if capacity[idx] > 0 {
			d.place(&a, item.Type, slots[dates[idx]])
		}
		out = append(out, a)
	}
	if total := len(out); total > 1 {
		for i := range out {
			part, parts := i+1, total
			out[i].PartIndex, out[i].TotalParts = &part, &parts
		}
	}
	return out
}

// evenShares hands ceil(total/dayCount) units to each eligible day in order;
// the last eligible day absorbs whatever is left.
func evenShares(total, dayCount, eligible int) []int {
	shares := make([]int, eligible)
	per := (total + dayCount - 1) / dayCount
	remaining := total
	for k := range shares {
		if remaining == 0 {
			break
		}
		n := per
		if k == eligible-1 || n > remaining {
			n = remaining
		}
		shares[k] = n
		remaining -= n
	}
	return shares
}

// capacityShares sizes each eligible day by its share of the total study
// minutes, rounding down; the last eligible day absorbs the remainder.
func capacityShares(total int, eligible []int, capacity []int) []int {
	weights := make([]float64, len(eligible))
	for k, idx := range eligible {
		weights[k] = float64(capacity[idx])
	}
	sum := floats.Sum(weights)
	if sum == 0 {
		for k := range weights {
			weights[k] = 1
		}
		sum = float64(len(weights))
	}
	floats.Scale(float64(total)/sum, weights)

	shares := make([]int, len(eligible))
	remaining := total
	for k := range shares {
		n := int(math.Floor(weights[k]))
		if k == len(shares)-1 || n > remaining {
			n = remaining
		}
		shares[k] = n
		remaining -= n
	}
	return shares
}
