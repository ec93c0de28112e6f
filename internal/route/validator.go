package route

import (
	"fmt"
	"time"

	"github.com/tourloop/planner/internal/hours"
	"github.com/tourloop/planner/internal/model"
)

// Validate walks route's stops in order starting from currentTime,
// accumulating arrival times and flagging any stop that is closed at
// arrival (spec.md §4.7). It mutates and returns the route.
func Validate(route model.Route, currentTime time.Time, openHours func(poiID string) *model.OpeningHours) model.Route {
	cursor := currentTime
	route.Warnings = nil

	for i := range route.Stops {
		stop := &route.Stops[i]
		arrival := cursor.Add(time.Duration(stop.TravelFromPrevMin * float64(time.Minute)))

		h := openHours(stop.POIID)
		summary := hours.SummaryForDate(h, arrival)
		stopSummary := summary.ToModel()
		stop.ArrivalTime = &arrival
		stop.DaySummary = &stopSummary

		if !hours.IsOpenAt(h, arrival) {
			warning := fmt.Sprintf("POI '%s' is closed at %s %s", stop.Name, summary.DayName, arrival.Format("15:04"))
			stop.ClosedWarning = warning
			route.Warnings = append(route.Warnings, warning)
		}

		cursor = arrival.Add(time.Duration(stop.StayMinutes * float64(time.Minute)))
	}

	route.IsValidTiming = len(route.Warnings) == 0
	return route
}
