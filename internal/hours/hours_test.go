package hours

import (
	"testing"
	"time"

	"github.com/tourloop/planner/internal/model"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02T15:04:05", s)
	if err != nil {
		t.Fatalf("parse time %q: %v", s, err)
	}
	return ts
}

func TestIsOpenAt_NilHoursAlwaysOpen(t *testing.T) {
	if !IsOpenAt(nil, mustTime(t, "2026-02-05T03:00:00")) {
		t.Errorf("nil hours should be treated as always open")
	}
}

func TestIsOpenAt_SimpleDayWindow(t *testing.T) {
	h := &model.OpeningHours{
		Thursday: []model.Interval{{Start: "08:00", End: "18:00"}},
	}
	// 2026-02-05 is a Thursday.
	if !IsOpenAt(h, mustTime(t, "2026-02-05T09:00:00")) {
		t.Errorf("expected open at 09:00 Thursday")
	}
	if IsOpenAt(h, mustTime(t, "2026-02-05T07:30:00")) {
		t.Errorf("expected closed at 07:30 Thursday (opens 08:00)")
	}
}

func TestIsOpenAt_OvernightInterval(t *testing.T) {
	// Bar open Friday 20:00 -> Saturday 02:00.
	h := &model.OpeningHours{
		Friday: []model.Interval{{Start: "20:00", End: "02:00"}},
	}
	// 2026-02-06 is a Friday night; 2026-02-07 01:00 is the Saturday spillover.
	if !IsOpenAt(h, mustTime(t, "2026-02-06T23:00:00")) {
		t.Errorf("expected open at 23:00 Friday (within overnight window)")
	}
	if !IsOpenAt(h, mustTime(t, "2026-02-07T01:00:00")) {
		t.Errorf("expected open at 01:00 Saturday (overnight spillover from Friday)")
	}
	if IsOpenAt(h, mustTime(t, "2026-02-07T03:00:00")) {
		t.Errorf("expected closed at 03:00 Saturday (past overnight spillover)")
	}
}

func TestIsOpenAt_MalformedIntervalTreatedAsAlwaysOpen(t *testing.T) {
	h := &model.OpeningHours{
		Thursday: []model.Interval{{Start: "not-a-time", End: "18:00"}},
	}
	// An interval that does not parse makes the whole record malformed,
	// which falls under the same always-open policy as a nil record.
	if !IsOpenAt(h, mustTime(t, "2026-02-05T09:00:00")) {
		t.Errorf("a record with a malformed interval should be treated as always open")
	}
}

func TestOverlapsWindow_LunchWindow(t *testing.T) {
	h := &model.OpeningHours{
		Thursday: []model.Interval{{Start: "12:00", End: "22:00"}},
	}
	a := mustTime(t, "2026-02-05T11:30:00")
	b := mustTime(t, "2026-02-05T13:30:00")
	if !OverlapsWindow(h, a, b) {
		t.Errorf("expected overlap with lunch window")
	}
}

func TestOverlapsWindow_NoOverlap(t *testing.T) {
	h := &model.OpeningHours{
		Thursday: []model.Interval{{Start: "18:00", End: "22:00"}},
	}
	a := mustTime(t, "2026-02-05T11:30:00")
	b := mustTime(t, "2026-02-05T13:30:00")
	if OverlapsWindow(h, a, b) {
		t.Errorf("expected no overlap")
	}
}

func TestSummaryForDate_ClosedDay(t *testing.T) {
	h := &model.OpeningHours{
		Thursday: []model.Interval{{Start: "08:00", End: "18:00"}},
		// Friday intentionally empty = closed.
	}
	s := SummaryForDate(h, mustTime(t, "2026-02-06T09:00:00"))
	if s.IsOpen {
		t.Errorf("expected closed on Friday with no intervals")
	}
	if s.DayName != "Friday" {
		t.Errorf("DayName = %q, want Friday", s.DayName)
	}
}

func TestSummaryForDate_NilHours(t *testing.T) {
	s := SummaryForDate(nil, mustTime(t, "2026-02-06T09:00:00"))
	if !s.IsOpen {
		t.Errorf("nil hours should summarize as open")
	}
	if s.Note == "" {
		t.Errorf("expected a note explaining the always-open assumption")
	}
}
