package config

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rickb777/date"
	"gopkg.in/yaml.v3"

	"github.com/carlhiggs/GTFS-ANT/internal/analysis"
)

const (
	defaultTolerance = "00:30:00"
	defaultCutoffPct = 90
)

// Load reads and validates an analysis configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	for name, mode := range cfg.Modes {
		if err := v.Struct(mode); err != nil {
			return nil, fmt.Errorf("invalid mode %q in %s: %w", name, path, err)
		}
	}

	if cfg.Tolerance == "" {
		cfg.Tolerance = defaultTolerance
	}
	if cfg.ConsistencyCutoffPct == nil {
		cutoff := float64(defaultCutoffPct)
		cfg.ConsistencyCutoffPct = &cutoff
	}

	return &cfg, nil
}

// AnalysisModes converts the configured modes into analysis values, parsing
// every time string up front so a malformed configuration fails before any
// feed is touched. Windows are the cartesian product of start and end times,
// matching how multiple windows are declared.
func (c *Config) AnalysisModes() ([]analysis.Mode, error) {
	names := make([]string, 0, len(c.Modes))
	for name := range c.Modes {
		names = append(names, name)
	}
	sort.Strings(names)

	modes := make([]analysis.Mode, 0, len(names))
	for _, name := range names {
		mc := c.Modes[name]

		var windows []analysis.Window
		for _, startStr := range mc.StartTimes {
			start, err := analysis.ParseServiceTime(startStr)
			if err != nil {
				return nil, fmt.Errorf("mode %q start time: %w", name, err)
			}
			for _, endStr := range mc.EndTimes {
				end, err := analysis.ParseServiceTime(endStr)
				if err != nil {
					return nil, fmt.Errorf("mode %q end time: %w", name, err)
				}
				if end <= start {
					return nil, fmt.Errorf("mode %q: window end %s not after start %s", name, endStr, startStr)
				}
				windows = append(windows, analysis.Window{Start: start, End: end})
			}
		}

		var intervals []int
		for _, intervalStr := range mc.Intervals {
			interval, err := analysis.ParseServiceTime(intervalStr)
			if err != nil {
				return nil, fmt.Errorf("mode %q interval: %w", name, err)
			}
			if interval <= 0 {
				return nil, fmt.Errorf("mode %q: interval %s must be positive", name, intervalStr)
			}
			intervals = append(intervals, interval)
		}

		modes = append(modes, analysis.Mode{
			Name:               name,
			RouteTypes:         mc.RouteTypes,
			AgencyIDs:          mc.AgencyIDs,
			ExcludeRouteColors: mc.ExcludeRouteColors,
			Windows:            windows,
			Intervals:          intervals,
		})
	}
	return modes, nil
}

// AnalysisOptions resolves the run options for a feed published in the given
// year (derived from the feed name's date suffix).
func (c *Config) AnalysisOptions(year int) (analysis.Options, error) {
	modes, err := c.AnalysisModes()
	if err != nil {
		return analysis.Options{}, err
	}

	tolerance, err := analysis.ParseServiceTime(c.Tolerance)
	if err != nil {
		return analysis.Options{}, fmt.Errorf("tolerance: %w", err)
	}

	period, err := c.Period.resolve(year)
	if err != nil {
		return analysis.Options{}, err
	}

	cutoff := float64(defaultCutoffPct)
	if c.ConsistencyCutoffPct != nil {
		cutoff = *c.ConsistencyCutoffPct
	}

	return analysis.Options{
		Modes:           modes,
		Period:          period,
		Tolerance:       tolerance,
		CutoffPct:       cutoff,
		IncludeWeekends: c.IncludeWeekends,
	}, nil
}

func (p PeriodConfig) resolve(year int) (analysis.Period, error) {
	start, err := resolveBound(p.StartDate, p.StartMMDD, "0101", year)
	if err != nil {
		return analysis.Period{}, fmt.Errorf("period start: %w", err)
	}
	end, err := resolveBound(p.EndDate, p.EndMMDD, "1231", year)
	if err != nil {
		return analysis.Period{}, fmt.Errorf("period end: %w", err)
	}
	if end.Before(start) {
		return analysis.Period{}, fmt.Errorf("period end %s before start %s", end, start)
	}
	return analysis.Period{Start: start, End: end}, nil
}

func resolveBound(isoDate, mmdd, defaultMMDD string, year int) (date.Date, error) {
	if isoDate != "" {
		t, err := time.Parse("2006-01-02", isoDate)
		if err != nil {
			return date.Date{}, err
		}
		return date.NewAt(t), nil
	}
	if mmdd == "" {
		mmdd = defaultMMDD
	}
	t, err := time.Parse("20060102", fmt.Sprintf("%04d%s", year, mmdd))
	if err != nil {
		return date.Date{}, fmt.Errorf("bad MMDD value %q: %w", mmdd, err)
	}
	return date.NewAt(t), nil
}
