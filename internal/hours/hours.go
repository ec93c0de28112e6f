// Package hours evaluates opening-hours records against wall-clock instants
// and windows (spec.md §4.1, component C1).
package hours

import (
	"fmt"
	"time"

	"github.com/tourloop/planner/internal/model"
)

var weekdayNames = [...]string{
	"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday",
}

func dayName(t time.Time) string {
	return weekdayNames[int(t.Weekday())]
}

func prevDayName(t time.Time) string {
	return weekdayNames[int(t.Add(-24*time.Hour).Weekday())]
}

// minutesOfDay returns the minute-of-day (0..1439) for t's wall-clock time.
func minutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// parseHHMM parses "HH:MM" into minutes since midnight. Returns ok=false on
// any malformed input — callers treat that as "always open" per spec.md §3.
func parseHHMM(s string) (int, bool) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, false
	}
	if h < 0 || h > 24 || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

// intervalContains reports whether minute-of-day `probe` falls inside the
// interval [start, end) on the day the interval is attached to. If end <= start
// the interval crosses midnight; `spillover` controls whether we test the
// same-day portion (probe in [start, 1440)) or the spillover portion on the
// following day (probe in [0, end)).
func intervalContains(iv model.Interval, probe int, spillover bool) bool {
	start, ok1 := parseHHMM(iv.Start)
	end, ok2 := parseHHMM(iv.End)
	if !ok1 || !ok2 {
		return false
	}
	if end > start {
		if spillover {
			return false
		}
		return probe >= start && probe < end
	}
	// Overnight interval: start..24:00 today, 00:00..end tomorrow.
	if spillover {
		return probe < end
	}
	return probe >= start
}

// isMalformed reports whether h is absent or holds any interval whose start
// or end does not parse as "HH:MM".
func isMalformed(h *model.OpeningHours) bool {
	if h == nil {
		return true
	}
	for _, name := range weekdayNames {
		intervals, _ := h.Day(name)
		for _, iv := range intervals {
			_, okStart := parseHHMM(iv.Start)
			_, okEnd := parseHHMM(iv.End)
			if !okStart || !okEnd {
				return true
			}
		}
	}
	return false
}

// IsOpenAt reports whether the POI described by h is open at instant t.
// Absent or malformed hours are treated as "always open" (spec.md §3 policy).
func IsOpenAt(h *model.OpeningHours, t time.Time) bool {
	if isMalformed(h) {
		return true
	}

	probe := minutesOfDay(t)

	today, ok := h.Day(dayName(t))
	if ok {
		for _, iv := range today {
			if intervalContains(iv, probe, false) {
				return true
			}
		}
	}

	// Overnight spillover from the previous day's intervals.
	yesterday, ok := h.Day(prevDayName(t))
	if ok {
		for _, iv := range yesterday {
			if intervalContains(iv, probe, true) {
				return true
			}
		}
	}

	return false
}

// OverlapsWindow reports whether any open interval on any day touched by
// [a, b] intersects [a, b]. If b is before a, the two are swapped first.
// Absent/malformed hours policy matches IsOpenAt.
func OverlapsWindow(h *model.OpeningHours, a, b time.Time) bool {
	if isMalformed(h) {
		return true
	}
	if b.Before(a) {
		a, b = b, a
	}

	// Walk every calendar day touched by [a, b] plus the day before (for
	// overnight spillover into a's morning).
	cursor := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, a.Location()).Add(-24 * time.Hour)
	end := b

	for !cursor.After(end) {
		dayStart := time.Date(cursor.Year(), cursor.Month(), cursor.Day(), 0, 0, 0, 0, cursor.Location())
		name := dayName(dayStart)
		intervals, ok := h.Day(name)
		if ok {
			for _, iv := range intervals {
				if windowIntersectsInterval(dayStart, iv, a, b) {
					return true
				}
			}
		}
		cursor = cursor.Add(24 * time.Hour)
	}
	return false
}

// windowIntersectsInterval converts iv (attached to the day starting at
// dayStart) to absolute instants and tests overlap against [a, b].
func windowIntersectsInterval(dayStart time.Time, iv model.Interval, a, b time.Time) bool {
	startMin, ok1 := parseHHMM(iv.Start)
	endMin, ok2 := parseHHMM(iv.End)
	if !ok1 || !ok2 {
		return false
	}
	ivStart := dayStart.Add(time.Duration(startMin) * time.Minute)
	ivEnd := dayStart.Add(time.Duration(endMin) * time.Minute)
	if endMin <= startMin {
		// Overnight: runs into the next calendar day.
		ivEnd = ivEnd.Add(24 * time.Hour)
	}
	return ivStart.Before(b) && ivEnd.After(a)
}

// Summary describes the opening-hours state for a single calendar date,
// used to annotate route stop arrivals (spec.md §4.1).
type Summary struct {
	DayName string
	Date    string
	IsOpen  bool
	Hours   []model.Interval
	Note    string
}

// SummaryForDate returns the opening-hours summary for the calendar date of t.
func SummaryForDate(h *model.OpeningHours, t time.Time) Summary {
	name := dayName(t)
	date := t.Format("2006-01-02")

	if isMalformed(h) {
		return Summary{DayName: name, Date: date, IsOpen: true, Note: "hours unavailable; assumed open"}
	}

	intervals, _ := h.Day(name)
	return Summary{
		DayName: name,
		Date:    date,
		IsOpen:  IsOpenAt(h, t),
		Hours:   intervals,
	}
}

// ToModel converts a Summary to the model.DaySummary wire shape.
func (s Summary) ToModel() model.DaySummary {
	return model.DaySummary{
		DayName: s.DayName,
		Date:    s.Date,
		IsOpen:  s.IsOpen,
		Hours:   s.Hours,
		Note:    s.Note,
	}
}
