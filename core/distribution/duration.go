package distribution

import (
	"fmt"
	"math"

	"github.com/kilianp07/studyplan/core/model"
)

// DurationModel converts a content volume into study minutes.
type DurationModel struct {
	LectureMinutesPerEpisode float64 `json:"lecture_minutes_per_episode"`
	BookMinutesPerPage       float64 `json:"book_minutes_per_page"`
	CustomMinutesPerUnit     float64 `json:"custom_minutes_per_unit"`
	// FallbackMinutes is used for unknown content types or a missing volume.
	FallbackMinutes int `json:"fallback_minutes"`
}

// DefaultDurationModel returns 30 min/episode, 2 min/page, 1.5 min/unit and a
// flat 30 minutes otherwise.
func DefaultDurationModel() DurationModel {
	return DurationModel{
		LectureMinutesPerEpisode: 30,
		BookMinutesPerPage:       2,
		CustomMinutesPerUnit:     1.5,
		FallbackMinutes:          30,
	}
}

// SetDefaults fills zero rates from DefaultDurationModel.
func (m *DurationModel) SetDefaults() {
	d := DefaultDurationModel()
	if m.LectureMinutesPerEpisode == 0 {
		m.LectureMinutesPerEpisode = d.LectureMinutesPerEpisode
	}
	if m.BookMinutesPerPage == 0 {
		m.BookMinutesPerPage = d.BookMinutesPerPage
	}
	if m.CustomMinutesPerUnit == 0 {
		m.CustomMinutesPerUnit = d.CustomMinutesPerUnit
	}
	if m.FallbackMinutes == 0 {
		m.FallbackMinutes = d.FallbackMinutes
	}
}

// Validate rejects negative rates.
func (m DurationModel) Validate() error {
	if m.LectureMinutesPerEpisode < 0 || m.BookMinutesPerPage < 0 || m.CustomMinutesPerUnit < 0 || m.FallbackMinutes < 0 {
		return fmt.Errorf("%w: negative duration rate", model.ErrInvalidOptions)
	}
	return nil
}

// RequiredMinutes returns the minutes needed to study volume units of type t,
// rounded up to a whole minute.
func (m DurationModel) RequiredMinutes(t model.ContentType, volume int) int {
	if volume <= 0 {
		return m.FallbackMinutes
	}
	var rate float64
	switch t {
	case model.ContentLecture:
		rate = m.LectureMinutesPerEpisode
	case model.ContentBook:
		rate = m.BookMinutesPerPage
	case model.ContentCustom:
		rate = m.CustomMinutesPerUnit
	default:
		return m.FallbackMinutes
	}
	return int(math.Ceil(rate * float64(volume)))
}
