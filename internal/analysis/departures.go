package analysis

import (
	"sort"

	"github.com/rickb777/date"
)

// DepartureRow is one scheduled departure candidate: a trip on a route
// calling at a stop on a concrete service date. Departure is elapsed seconds
// since the service day's midnight and may exceed 86400 for post-midnight
// trips.
type DepartureRow struct {
	RouteID   string
	TripID    string
	StopID    string
	Date      date.Date
	Departure int
}

// StopDay is the ordered departure sequence for one stop on one service date
// within the analysis window.
type StopDay struct {
	StopID     string
	Date       date.Date
	Departures []int // ascending
}

type stopDayKey struct {
	stopID string
	day    date.Date
}

// CollectStopDays filters departure rows by the mode predicate and the
// window, deduplicates identical (route, trip, stop, date, departure) tuples
// (feeds can list the same physical departure several times through shape
// duplication), and groups the survivors into per-stop per-date sorted
// departure sequences. Window bounds are inclusive.
func CollectStopDays(m Mode, routes map[string]Route, rows []DepartureRow, w Window) []StopDay {
	type rowKey struct {
		routeID   string
		tripID    string
		stopID    string
		day       date.Date
		departure int
	}
	seen := make(map[rowKey]struct{})
	grouped := make(map[stopDayKey][]int)

	for _, row := range rows {
		if row.Departure < w.Start || row.Departure > w.End {
			continue
		}
		route, ok := routes[row.RouteID]
		if !ok || !m.MatchesRoute(route) {
			continue
		}
		key := rowKey{row.RouteID, row.TripID, row.StopID, row.Date, row.Departure}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		groupKey := stopDayKey{row.StopID, row.Date}
		grouped[groupKey] = append(grouped[groupKey], row.Departure)
	}

	result := make([]StopDay, 0, len(grouped))
	for key, times := range grouped {
		sort.Ints(times)
		result = append(result, StopDay{StopID: key.stopID, Date: key.day, Departures: times})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].StopID != result[j].StopID {
			return result[i].StopID < result[j].StopID
		}
		return result[i].Date.Before(result[j].Date)
	})
	return result
}

// Gaps returns the elapsed seconds between temporally adjacent departures.
// The last departure has no successor, so n departures yield n-1 gaps; zero
// or one departure yields none.
func Gaps(departures []int) []int {
	if len(departures) < 2 {
		return nil
	}
	gaps := make([]int, len(departures)-1)
	for i := 0; i < len(departures)-1; i++ {
		gaps[i] = departures[i+1] - departures[i]
	}
	return gaps
}
