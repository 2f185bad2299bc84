package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/studyplan/core/distribution"
	"github.com/kilianp07/studyplan/core/model"
)

const aliceYAML = `id: alice
period_start: "2025-03-03"
period_end: "2025-03-09"
weekly_blocks:
  - {day: monday, start: "09:00", end: "12:00"}
  - {day: 3, start: "14:00", end: "18:00"}
exclusions:
  - {date: "2025-03-05", type: holiday, reason: school trip}
academies:
  - {day: tue, start: "16:00", end: "18:00", name: Math Academy, subject: math, travel_minutes: 20}
content:
  - item: {id: book-1, type: book, range_start: 1, range_end: 120}
  - item: {id: lec-1, type: lecture, range_start: 1, range_end: 6}
    mode: weekly
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestDecodeProfile(t *testing.T) {
	profiles, err := Decode(strings.NewReader(aliceYAML))
	require.NoError(t, err)
	require.Len(t, profiles, 1)

	in := profiles[0].Input()
	assert.Equal(t, "alice", in.StudentID)
	assert.Equal(t, model.Date("2025-03-03"), in.PeriodStart)
	require.Len(t, in.WeeklyBlocks, 2)
	assert.Equal(t, time.Monday, in.WeeklyBlocks[0].DayOfWeek)
	assert.Equal(t, model.MustClock("09:00"), in.WeeklyBlocks[0].Start)
	assert.Equal(t, time.Wednesday, in.WeeklyBlocks[1].DayOfWeek)
	require.Len(t, in.Academies, 1)
	assert.Equal(t, time.Tuesday, in.Academies[0].DayOfWeek)
	assert.Equal(t, 20, in.Academies[0].TravelMinutes)
	require.Len(t, in.Exclusions, 1)
	assert.Equal(t, model.ExclusionHoliday, in.Exclusions[0].Type)
	require.Len(t, in.Content, 2)
	assert.Equal(t, 120, in.Content[0].Item.RangeEnd)
	assert.Equal(t, distribution.ModeWeekly, in.Content[1].Mode)
}

func TestDecodeListAndDocuments(t *testing.T) {
	list := `- {id: a, period_start: "2025-03-03", period_end: "2025-03-04"}
- {id: b, period_start: "2025-03-03", period_end: "2025-03-04"}
`
	profiles, err := Decode(strings.NewReader(list))
	require.NoError(t, err)
	assert.Len(t, profiles, 2)

	docs := "id: a\nperiod_start: \"2025-03-03\"\nperiod_end: \"2025-03-04\"\n---\nid: b\nperiod_start: \"2025-03-03\"\nperiod_end: \"2025-03-04\"\n"
	profiles, err = Decode(strings.NewReader(docs))
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "b", profiles[1].ID)
}

func TestDecodeRejects(t *testing.T) {
	tests := map[string]string{
		"unknown field": "id: a\nperiod_start: \"2025-03-03\"\nperiod_end: \"2025-03-04\"\ncolour: red\n",
		"bad weekday":   "id: a\nweekly_blocks:\n  - {day: funday, start: \"09:00\", end: \"10:00\"}\n",
		"bad clock":     "id: a\nweekly_blocks:\n  - {day: 1, start: \"25:00\", end: \"10:00\"}\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(body))
			assert.Error(t, err)
		})
	}
}

func TestOpenDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "alice.yaml", aliceYAML)
	writeFile(t, dir, "bob.yml", "id: bob\nperiod_start: \"2025-03-03\"\nperiod_end: \"2025-03-09\"\n")
	writeFile(t, dir, "notes.txt", "ignored")

	src, err := Open(dir)
	require.NoError(t, err)
	ids, err := src.StudentIDs(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, ids)

	in, err := src.Load(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, in.Content, 2)

	_, err = src.Load(context.Background(), "carol")
	assert.ErrorIs(t, err, ErrUnknownStudent)
}

func TestOpenRejectsInvalidProfiles(t *testing.T) {
	dir := t.TempDir()
	dup := writeFile(t, dir, "dup.yaml", "id: a\nperiod_start: \"2025-03-03\"\nperiod_end: \"2025-03-04\"\n---\nid: a\nperiod_start: \"2025-03-03\"\nperiod_end: \"2025-03-04\"\n")
	_, err := Open(dup)
	assert.ErrorContains(t, err, "duplicate")

	noID := writeFile(t, dir, "noid.yaml", "period_start: \"2025-03-03\"\nperiod_end: \"2025-03-04\"\n")
	_, err = Open(noID)
	assert.Error(t, err)

	badContent := writeFile(t, dir, "content.yaml", "id: a\nperiod_start: \"2025-03-03\"\nperiod_end: \"2025-03-04\"\ncontent:\n  - item: {id: x, type: book, range_start: 10, range_end: 2}\n")
	_, err = Open(badContent)
	assert.ErrorIs(t, err, model.ErrInvalidContent)

	_, err = Open(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadHonoursContext(t *testing.T) {
	src, err := NewYAMLSource(Profile{ID: "a", PeriodStart: "2025-03-03", PeriodEnd: "2025-03-04"})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.Load(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)
}
