package route

import (
	"strings"
	"testing"
	"time"

	"github.com/tourloop/planner/internal/model"
)

func TestValidate_OpenStopNoWarning(t *testing.T) {
	r := model.Route{
		Stops: []model.Stop{
			{POIID: "a", Name: "Always Open Cafe", TravelFromPrevMin: 10, StayMinutes: 30},
		},
	}
	start := time.Date(2026, 2, 5, 9, 0, 0, 0, time.UTC)
	out := Validate(r, start, func(string) *model.OpeningHours { return nil })

	if !out.IsValidTiming {
		t.Errorf("expected IsValidTiming=true with no hours restrictions")
	}
	if len(out.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", out.Warnings)
	}
	if out.Stops[0].ArrivalTime == nil {
		t.Fatalf("expected arrival time to be set")
	}
}

func TestValidate_ClosedStopWarningFormat(t *testing.T) {
	r := model.Route{
		Stops: []model.Stop{
			{POIID: "b", Name: "Night Bar", TravelFromPrevMin: 0, StayMinutes: 30},
		},
	}
	// 2026-02-05 is a Thursday; bar only open 20:00-23:00.
	hoursFn := func(string) *model.OpeningHours {
		return &model.OpeningHours{Thursday: []model.Interval{{Start: "20:00", End: "23:00"}}}
	}
	start := time.Date(2026, 2, 5, 9, 0, 0, 0, time.UTC)
	out := Validate(r, start, hoursFn)

	if out.IsValidTiming {
		t.Errorf("expected IsValidTiming=false for a closed arrival")
	}
	if len(out.Warnings) != 1 {
		t.Fatalf("expected exactly 1 warning, got %v", out.Warnings)
	}
	want := "POI 'Night Bar' is closed at Thursday 09:00"
	if out.Warnings[0] != want {
		t.Errorf("warning = %q, want %q", out.Warnings[0], want)
	}
	if !strings.Contains(out.Stops[0].ClosedWarning, "Night Bar") {
		t.Errorf("stop ClosedWarning missing POI name: %q", out.Stops[0].ClosedWarning)
	}
}

func TestValidate_CursorAdvancesAcrossStops(t *testing.T) {
	r := model.Route{
		Stops: []model.Stop{
			{POIID: "a", Name: "First", TravelFromPrevMin: 10, StayMinutes: 30},
			{POIID: "b", Name: "Second", TravelFromPrevMin: 15, StayMinutes: 20},
		},
	}
	start := time.Date(2026, 2, 5, 9, 0, 0, 0, time.UTC)
	out := Validate(r, start, func(string) *model.OpeningHours { return nil })

	wantFirstArrival := start.Add(10 * time.Minute)
	wantSecondArrival := wantFirstArrival.Add(30 * time.Minute).Add(15 * time.Minute)

	if !out.Stops[0].ArrivalTime.Equal(wantFirstArrival) {
		t.Errorf("first arrival = %v, want %v", out.Stops[0].ArrivalTime, wantFirstArrival)
	}
	if !out.Stops[1].ArrivalTime.Equal(wantSecondArrival) {
		t.Errorf("second arrival = %v, want %v", out.Stops[1].ArrivalTime, wantSecondArrival)
	}
}
