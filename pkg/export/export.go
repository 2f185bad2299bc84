// Package export writes plans and day slots as JSON or CSV.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/kilianp07/studyplan/core/model"
)

// Format names an output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat accepts "json" or "csv".
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatCSV:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// WriteJSON writes v to w as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteAllocations writes allocations in the requested format.
func WriteAllocations(w io.Writer, f Format, allocs []model.PlannedAllocation) error {
	if f == FormatCSV {
		return WriteAllocationsCSV(w, allocs)
	}
	return WriteJSON(w, allocs)
}

// WriteAllocationsCSV writes one row per allocation. Untimed allocations
// leave the time columns empty.
func WriteAllocationsCSV(w io.Writer, allocs []model.PlannedAllocation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"content_id", "date", "start_time", "end_time", "range_start", "range_end", "part", "total_parts"}); err != nil {
		return err
	}
	for _, a := range allocs {
		rec := []string{
			a.ContentID,
			string(a.Date),
			clockCell(a.StartTime),
			clockCell(a.EndTime),
			strconv.Itoa(a.RangeStart),
			strconv.Itoa(a.RangeEnd),
			intCell(a.PartIndex),
			intCell(a.TotalParts),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSlots writes day slots in the requested format.
func WriteSlots(w io.Writer, f Format, slots model.DaySlots) error {
	if f == FormatCSV {
		return WriteSlotsCSV(w, slots)
	}
	return WriteJSON(w, slots)
}

// WriteSlotsCSV writes one row per slot ordered by date then start time.
func WriteSlotsCSV(w io.Writer, slots model.DaySlots) error {
	dates := make([]string, 0, len(slots))
	for d := range slots {
		dates = append(dates, string(d))
	}
	sort.Strings(dates)
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "type", "start", "end", "minutes", "label"}); err != nil {
		return err
	}
	for _, d := range dates {
		for _, s := range slots[model.Date(d)] {
			rec := []string{
				d,
				s.Type.String(),
				s.Range.Start.String(),
				s.Range.End.String(),
				strconv.Itoa(s.Range.Minutes()),
				s.Label,
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func clockCell(c *model.Clock) string {
	if c == nil {
		return ""
	}
	return c.String()
}

func intCell(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
