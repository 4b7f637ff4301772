package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/carlhiggs/GTFS-ANT/internal/logging"
)

// Store is the tabular data source the pipeline runs against: the imported
// GTFS tables plus persistence for the derived analysis tables. Derived data
// is replaced, never merged; re-running an analysis with a different
// configuration fully replaces prior rows scoped to the same key.
type Store interface {
	ServiceCalendars(ctx context.Context) ([]ServiceCalendar, error)
	ServiceExceptions(ctx context.Context) ([]ServiceException, error)
	Routes(ctx context.Context) (map[string]Route, error)
	StopRoutePairs(ctx context.Context, routeTypes []int) ([]StopRoute, error)
	DepartureRows(ctx context.Context, routeTypes []int, w Window, p Period) ([]DepartureRow, error)
	StopDetails(ctx context.Context, stopIDs []string) (map[string]StopDetail, error)

	ReplaceServiceDates(ctx context.Context, dates []ServiceDate) error
	ReplaceModeStops(ctx context.Context, mode string, stopIDs []string) error
	ReplaceVerdicts(ctx context.Context, key ResultKey, verdicts []Verdict) error
	ReplaceFrequentStops(ctx context.Context, key ResultKey, stops []FrequentStop) error
	ReplaceModeComparison(ctx context.Context, interval int, summaries []ModeSummary) error
}

// ResultKey scopes one derived dataset: a mode analysed at one window and one
// headway threshold.
type ResultKey struct {
	Mode        string
	Interval    int // seconds
	WindowStart int // seconds
}

// StopDetail carries the stop columns persisted with final results.
type StopDetail struct {
	ID   string
	Name string
	Lat  float64
	Lon  float64
}

// FrequentStop is one row of the persisted final frequent-stop set.
type FrequentStop struct {
	StopID         string
	Name           string
	Lat            float64
	Lon            float64
	ConsistencyPct float64
}

// Options configures one analysis run.
type Options struct {
	Modes           []Mode
	Period          Period
	Tolerance       int // window edge tolerance, seconds
	CutoffPct       float64
	IncludeWeekends bool
}

// IntervalResult is the cross-mode combination for one headway threshold.
type IntervalResult struct {
	Interval  int // seconds
	Union     []UnionRow
	Summaries []ModeSummary
}

// Result is the output of one full analysis run over one feed.
type Result struct {
	Outcomes  []ModeOutcome
	Intervals []IntervalResult
	Warnings  []Warning
}

// Analyzer runs the frequent-service pipeline against one feed's store.
type Analyzer struct {
	store  Store
	logger *slog.Logger
}

// NewAnalyzer returns an Analyzer writing derived tables through store.
func NewAnalyzer(store Store, logger *slog.Logger) *Analyzer {
	return &Analyzer{store: store, logger: logger}
}

// Run executes the pipeline: calendar expansion, per-mode universes,
// per-combination departure gaps, verdicts and aggregation, then the
// cross-mode combination per interval. Stages run strictly in sequence;
// every stage consumes the previous stage's complete output.
func (a *Analyzer) Run(ctx context.Context, opts Options) (*Result, error) {
	result := &Result{}

	calendars, err := a.store.ServiceCalendars(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading calendars: %w", err)
	}
	exceptions, err := a.store.ServiceExceptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading calendar exceptions: %w", err)
	}

	serviceDates := ExpandCalendars(calendars, exceptions)
	if err := a.store.ReplaceServiceDates(ctx, serviceDates); err != nil {
		return nil, fmt.Errorf("storing service dates: %w", err)
	}
	logging.LogOperation(a.logger, "calendar_expanded",
		slog.Int("calendars", len(calendars)),
		slog.Int("exceptions", len(exceptions)),
		slog.Int("service_dates", len(serviceDates)))

	routes, err := a.store.Routes(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading routes: %w", err)
	}

	universes := make(map[string][]string, len(opts.Modes))
	for _, mode := range opts.Modes {
		pairs, err := a.store.StopRoutePairs(ctx, mode.RouteTypes)
		if err != nil {
			return nil, fmt.Errorf("reading stop universe for %s: %w", mode.Name, err)
		}
		universe := StopUniverse(mode, routes, pairs)
		if len(universe) == 0 {
			result.Warnings = append(result.Warnings, Warning{
				Kind:   WarnEmptyUniverse,
				Mode:   mode.Name,
				Detail: "mode configuration matched no routes",
			})
		}
		if err := a.store.ReplaceModeStops(ctx, mode.Name, universe); err != nil {
			return nil, fmt.Errorf("storing stop universe for %s: %w", mode.Name, err)
		}
		universes[mode.Name] = universe
		logging.LogOperation(a.logger, "mode_universe_computed",
			slog.String("mode", mode.Name),
			slog.Int("stops", len(universe)))
	}

	for _, mode := range opts.Modes {
		for _, window := range mode.Windows {
			rows, err := a.store.DepartureRows(ctx, mode.RouteTypes, window, opts.Period)
			if err != nil {
				return nil, fmt.Errorf("reading departures for %s: %w", mode.Name, err)
			}
			stopDays := CollectStopDays(mode, routes, rows, window)

			for _, interval := range mode.Intervals {
				if DegenerateWindow(window, interval) {
					result.Warnings = append(result.Warnings, Warning{
						Kind: WarnDegenerateWindow,
						Mode: mode.Name,
						Detail: fmt.Sprintf("threshold %s exceeds window %s-%s",
							FormatServiceTime(interval),
							FormatServiceTime(window.Start),
							FormatServiceTime(window.End)),
					})
				}

				outcome, warnings, err := a.runCombination(ctx, mode, window, interval, stopDays, universes[mode.Name], opts)
				if err != nil {
					return nil, err
				}
				result.Warnings = append(result.Warnings, warnings...)
				result.Outcomes = append(result.Outcomes, outcome)
			}
		}
	}

	intervals := distinctIntervals(result.Outcomes)
	for _, interval := range intervals {
		var scoped []ModeOutcome
		for _, outcome := range result.Outcomes {
			if outcome.Interval == interval {
				scoped = append(scoped, outcome)
			}
		}
		union, summaries := Combine(scoped)
		if err := a.store.ReplaceModeComparison(ctx, interval, summaries); err != nil {
			return nil, fmt.Errorf("storing mode comparison: %w", err)
		}
		result.Intervals = append(result.Intervals, IntervalResult{
			Interval:  interval,
			Union:     union,
			Summaries: summaries,
		})
	}

	return result, nil
}

func (a *Analyzer) runCombination(ctx context.Context, mode Mode, window Window, interval int, stopDays []StopDay, universe []string, opts Options) (ModeOutcome, []Warning, error) {
	key := ResultKey{Mode: mode.Name, Interval: interval, WindowStart: window.Start}
	var warnings []Warning

	verdicts := Evaluate(stopDays, window, interval, opts.Tolerance)
	if err := a.store.ReplaceVerdicts(ctx, key, verdicts); err != nil {
		return ModeOutcome{}, nil, fmt.Errorf("storing verdicts for %s: %w", mode.Name, err)
	}

	agg := Aggregate(verdicts, opts.Period, opts.IncludeWeekends, opts.CutoffPct)
	if len(agg.InsufficientData) > 0 {
		warnings = append(warnings, Warning{
			Kind:   WarnInsufficientData,
			Mode:   mode.Name,
			Detail: fmt.Sprintf("%d stops excluded: no countable weekdays in period", len(agg.InsufficientData)),
		})
	}

	var frequent []StopStatus
	for _, status := range agg.Statuses {
		if status.Frequent {
			frequent = append(frequent, status)
		}
	}

	stopIDs := make([]string, len(frequent))
	for i, status := range frequent {
		stopIDs[i] = status.StopID
	}
	details, err := a.store.StopDetails(ctx, stopIDs)
	if err != nil {
		return ModeOutcome{}, nil, fmt.Errorf("reading stop details for %s: %w", mode.Name, err)
	}

	rows := make([]FrequentStop, 0, len(frequent))
	for _, status := range frequent {
		detail := details[status.StopID]
		rows = append(rows, FrequentStop{
			StopID:         status.StopID,
			Name:           detail.Name,
			Lat:            detail.Lat,
			Lon:            detail.Lon,
			ConsistencyPct: status.ConsistencyPct,
		})
	}
	if err := a.store.ReplaceFrequentStops(ctx, key, rows); err != nil {
		return ModeOutcome{}, nil, fmt.Errorf("storing frequent stops for %s: %w", mode.Name, err)
	}

	logging.LogOperation(a.logger, "mode_analysis_completed",
		slog.String("mode", mode.Name),
		slog.String("interval", FormatServiceTime(interval)),
		slog.Int("stop_days", len(stopDays)),
		slog.Int("frequent_stops", len(frequent)))

	return ModeOutcome{
		Mode:          mode.Name,
		Window:        window,
		Interval:      interval,
		UniverseCount: len(universe),
		Frequent:      frequent,
	}, warnings, nil
}

func distinctIntervals(outcomes []ModeOutcome) []int {
	seen := make(map[int]struct{})
	var intervals []int
	for _, outcome := range outcomes {
		if _, ok := seen[outcome.Interval]; !ok {
			seen[outcome.Interval] = struct{}{}
			intervals = append(intervals, outcome.Interval)
		}
	}
	sort.Ints(intervals)
	return intervals
}
