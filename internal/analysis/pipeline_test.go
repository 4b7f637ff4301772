package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/rickb777/date"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStopTime struct {
	routeID   string
	tripID    string
	stopID    string
	departure int
}

// fakeStore is an in-memory Store for pipeline tests: reads come from
// fixture slices, derived writes are captured for assertions. DepartureRows
// joins stop times to the service dates the pipeline itself persisted,
// mirroring how the SQL store works.
type fakeStore struct {
	calendars   []ServiceCalendar
	exceptions  []ServiceException
	routes      map[string]Route
	tripService map[string]string
	stopTimes   []fakeStopTime
	details     map[string]StopDetail

	serviceDates  []ServiceDate
	modeStops     map[string][]string
	verdicts      map[ResultKey][]Verdict
	frequentStops map[ResultKey][]FrequentStop
	comparisons   map[int][]ModeSummary
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		routes:        make(map[string]Route),
		tripService:   make(map[string]string),
		details:       make(map[string]StopDetail),
		modeStops:     make(map[string][]string),
		verdicts:      make(map[ResultKey][]Verdict),
		frequentStops: make(map[ResultKey][]FrequentStop),
		comparisons:   make(map[int][]ModeSummary),
	}
}

func (f *fakeStore) ServiceCalendars(context.Context) ([]ServiceCalendar, error) {
	return f.calendars, nil
}

func (f *fakeStore) ServiceExceptions(context.Context) ([]ServiceException, error) {
	return f.exceptions, nil
}

func (f *fakeStore) Routes(context.Context) (map[string]Route, error) {
	return f.routes, nil
}

func (f *fakeStore) StopRoutePairs(_ context.Context, routeTypes []int) ([]StopRoute, error) {
	types := make(map[int]bool)
	for _, t := range routeTypes {
		types[t] = true
	}
	seen := make(map[StopRoute]bool)
	var pairs []StopRoute
	for _, st := range f.stopTimes {
		if !types[f.routes[st.routeID].Type] {
			continue
		}
		pair := StopRoute{StopID: st.stopID, RouteID: st.routeID}
		if !seen[pair] {
			seen[pair] = true
			pairs = append(pairs, pair)
		}
	}
	return pairs, nil
}

func (f *fakeStore) DepartureRows(_ context.Context, routeTypes []int, w Window, p Period) ([]DepartureRow, error) {
	types := make(map[int]bool)
	for _, t := range routeTypes {
		types[t] = true
	}
	var rows []DepartureRow
	for _, sd := range f.serviceDates {
		if !p.Contains(sd.Date) {
			continue
		}
		for _, st := range f.stopTimes {
			if f.tripService[st.tripID] != sd.ServiceID {
				continue
			}
			if !types[f.routes[st.routeID].Type] {
				continue
			}
			if st.departure < w.Start || st.departure > w.End {
				continue
			}
			rows = append(rows, DepartureRow{
				RouteID:   st.routeID,
				TripID:    st.tripID,
				StopID:    st.stopID,
				Date:      sd.Date,
				Departure: st.departure,
			})
		}
	}
	return rows, nil
}

func (f *fakeStore) StopDetails(_ context.Context, stopIDs []string) (map[string]StopDetail, error) {
	details := make(map[string]StopDetail)
	for _, id := range stopIDs {
		details[id] = f.details[id]
	}
	return details, nil
}

func (f *fakeStore) ReplaceServiceDates(_ context.Context, dates []ServiceDate) error {
	f.serviceDates = dates
	return nil
}

func (f *fakeStore) ReplaceModeStops(_ context.Context, mode string, stopIDs []string) error {
	f.modeStops[mode] = stopIDs
	return nil
}

func (f *fakeStore) ReplaceVerdicts(_ context.Context, key ResultKey, verdicts []Verdict) error {
	f.verdicts[key] = verdicts
	return nil
}

func (f *fakeStore) ReplaceFrequentStops(_ context.Context, key ResultKey, stops []FrequentStop) error {
	f.frequentStops[key] = stops
	return nil
}

func (f *fakeStore) ReplaceModeComparison(_ context.Context, interval int, summaries []ModeSummary) error {
	f.comparisons[interval] = summaries
	return nil
}

func testOptions(p Period) Options {
	return Options{
		Modes: []Mode{{
			Name:       "bus",
			RouteTypes: []int{3},
			Windows:    []Window{{Start: secsAt("07:00"), End: secsAt("19:00")}},
			Intervals:  []int{halfHour},
		}},
		Period:    p,
		Tolerance: halfHour,
		CutoffPct: 90,
	}
}

func fourWeekdayWeeks(store *fakeStore) Period {
	start := date.New(2018, time.July, 2) // Monday
	end := start.Add(27)
	store.calendars = []ServiceCalendar{
		{ServiceID: "WD", Weekdays: weekdaysOnly(), Start: start, End: end},
	}
	return Period{Start: start, End: end}
}

func TestAnalyzerRun(t *testing.T) {
	t.Run("morning-only service fails the window end condition", func(t *testing.T) {
		// Five departures 07:00..08:50 with gaps 25,30,25,30 minutes: the
		// max gap meets the threshold, but the last departure is long
		// before 18:30, so the stop is not frequent.
		store := newFakeStore()
		period := fourWeekdayWeeks(store)

		store.routes["r1"] = Route{ID: "r1", AgencyID: "4", Type: 3}
		store.tripService = map[string]string{
			"t1": "WD", "t2": "WD", "t3": "WD", "t4": "WD", "t5": "WD",
		}
		for i, departure := range []string{"07:00", "07:25", "07:55", "08:20", "08:50"} {
			store.stopTimes = append(store.stopTimes, fakeStopTime{
				routeID:   "r1",
				tripID:    []string{"t1", "t2", "t3", "t4", "t5"}[i],
				stopID:    "s1",
				departure: secsAt(departure),
			})
		}
		store.details["s1"] = StopDetail{ID: "s1", Name: "Main St", Lat: -37.8, Lon: 144.9}

		analyzer := NewAnalyzer(store, nil)
		result, err := analyzer.Run(context.Background(), testOptions(period))
		require.NoError(t, err)

		key := ResultKey{Mode: "bus", Interval: halfHour, WindowStart: secsAt("07:00")}
		verdicts := store.verdicts[key]
		require.NotEmpty(t, verdicts)
		for _, v := range verdicts {
			assert.False(t, v.Frequent)
			assert.Equal(t, halfHour, v.MaxGap, "gaps are 25,30,25,30 so max is 30 minutes")
		}

		assert.Empty(t, store.frequentStops[key])
		require.Len(t, result.Intervals, 1)
		require.Len(t, result.Intervals[0].Summaries, 1)
		assert.Equal(t, 1, result.Intervals[0].Summaries[0].UniverseCount)
		assert.Zero(t, result.Intervals[0].Summaries[0].FrequentCount)
	})

	t.Run("all-day regular service is frequent and persisted with coordinates", func(t *testing.T) {
		store := newFakeStore()
		period := fourWeekdayWeeks(store)

		store.routes["r1"] = Route{ID: "r1", AgencyID: "4", Type: 3}
		for s := secsAt("07:00"); s <= secsAt("19:00"); s += 20 * 60 {
			tripID := "t" + FormatServiceTime(s)
			store.tripService[tripID] = "WD"
			store.stopTimes = append(store.stopTimes, fakeStopTime{
				routeID: "r1", tripID: tripID, stopID: "s1", departure: s,
			})
		}
		store.details["s1"] = StopDetail{ID: "s1", Name: "Main St", Lat: -37.8, Lon: 144.9}

		analyzer := NewAnalyzer(store, nil)
		result, err := analyzer.Run(context.Background(), testOptions(period))
		require.NoError(t, err)
		assert.Empty(t, result.Warnings)

		key := ResultKey{Mode: "bus", Interval: halfHour, WindowStart: secsAt("07:00")}
		frequent := store.frequentStops[key]
		require.Len(t, frequent, 1)
		assert.Equal(t, "s1", frequent[0].StopID)
		assert.Equal(t, "Main St", frequent[0].Name)
		assert.Equal(t, -37.8, frequent[0].Lat)
		assert.Equal(t, 100.0, frequent[0].ConsistencyPct)

		require.Len(t, result.Intervals, 1)
		summary := result.Intervals[0].Summaries[0]
		assert.Equal(t, 1, summary.FrequentCount)
		assert.Equal(t, 100.0, summary.FrequentPct)
		assert.Equal(t, store.comparisons[halfHour], result.Intervals[0].Summaries)
	})

	t.Run("empty universe raises a warning and empty results", func(t *testing.T) {
		store := newFakeStore()
		period := fourWeekdayWeeks(store)
		// No routes at all: the mode matches nothing.

		analyzer := NewAnalyzer(store, nil)
		result, err := analyzer.Run(context.Background(), testOptions(period))
		require.NoError(t, err)

		require.NotEmpty(t, result.Warnings)
		assert.Equal(t, WarnEmptyUniverse, result.Warnings[0].Kind)
		assert.Equal(t, "bus", result.Warnings[0].Mode)
		assert.Empty(t, store.modeStops["bus"])
	})

	t.Run("degenerate window warns but still completes", func(t *testing.T) {
		store := newFakeStore()
		period := fourWeekdayWeeks(store)
		store.routes["r1"] = Route{ID: "r1", Type: 3}
		store.tripService["t1"] = "WD"
		store.stopTimes = append(store.stopTimes, fakeStopTime{
			routeID: "r1", tripID: "t1", stopID: "s1", departure: secsAt("07:05"),
		})

		opts := testOptions(period)
		opts.Modes[0].Windows = []Window{{Start: secsAt("07:00"), End: secsAt("07:10")}}

		analyzer := NewAnalyzer(store, nil)
		result, err := analyzer.Run(context.Background(), opts)
		require.NoError(t, err)

		require.NotEmpty(t, result.Warnings)
		assert.Equal(t, WarnDegenerateWindow, result.Warnings[0].Kind)
		require.Len(t, result.Intervals, 1)
		assert.Zero(t, result.Intervals[0].Summaries[0].FrequentCount)
	})

	t.Run("service dates are expanded and persisted before departures", func(t *testing.T) {
		store := newFakeStore()
		period := fourWeekdayWeeks(store)

		analyzer := NewAnalyzer(store, nil)
		_, err := analyzer.Run(context.Background(), testOptions(period))
		require.NoError(t, err)

		// 4 weeks of weekday service.
		assert.Len(t, store.serviceDates, 20)
	})
}
