package analysis

import (
	"sort"
	"strings"
)

// Mode is an immutable analysis configuration for one transit mode: which
// routes belong to it, the daytime windows to examine, and the headway
// thresholds to test. Mode values are built once from configuration and
// passed in explicitly; nothing reads mode definitions from ambient state.
type Mode struct {
	Name       string
	RouteTypes []int

	// AgencyIDs, when non-empty, restricts the mode to routes operated by
	// the listed agencies.
	AgencyIDs []string

	// ExcludeRouteColors, when non-empty, drops routes carrying one of the
	// listed colours. Some feeds distinguish coach services from local buses
	// only by livery colour while sharing route type 3; the colour codes are
	// feed-specific, so the exclusion is always configured, never built in.
	ExcludeRouteColors []string

	Windows   []Window
	Intervals []int // headway thresholds, elapsed seconds
}

// Window is a daytime analysis window in elapsed seconds since midnight.
type Window struct {
	Start int
	End   int
}

// Span returns the window length in seconds.
func (w Window) Span() int {
	return w.End - w.Start
}

// Route carries the route columns the mode predicate needs.
type Route struct {
	ID       string
	AgencyID string
	Type     int
	Color    string
}

// StopRoute is one (stop, route) pair with at least one trip linking them.
type StopRoute struct {
	StopID  string
	RouteID string
}

// MatchesRoute reports whether a route belongs to this mode: its route type
// is in the mode's set, the agency filter (if any) admits it, and its colour
// is not excluded.
func (m Mode) MatchesRoute(r Route) bool {
	typeOK := false
	for _, t := range m.RouteTypes {
		if r.Type == t {
			typeOK = true
			break
		}
	}
	if !typeOK {
		return false
	}

	if len(m.AgencyIDs) > 0 {
		agencyOK := false
		for _, id := range m.AgencyIDs {
			if r.AgencyID == id {
				agencyOK = true
				break
			}
		}
		if !agencyOK {
			return false
		}
	}

	for _, c := range m.ExcludeRouteColors {
		if strings.EqualFold(r.Color, c) {
			return false
		}
	}

	return true
}

// StopUniverse computes the mode's stop universe: every stop called at by at
// least one trip on a route matching the mode predicate. The universe is the
// denominator against which frequent stops are counted.
func StopUniverse(m Mode, routes map[string]Route, pairs []StopRoute) []string {
	seen := make(map[string]struct{})
	for _, pair := range pairs {
		route, ok := routes[pair.RouteID]
		if !ok || !m.MatchesRoute(route) {
			continue
		}
		seen[pair.StopID] = struct{}{}
	}

	stops := make([]string, 0, len(seen))
	for id := range seen {
		stops = append(stops, id)
	}
	sort.Strings(stops)
	return stops
}
