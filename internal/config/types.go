package config

// ModeConfig defines one transit mode to analyse, keyed by name in the
// configuration file. Route types follow the GTFS routes.txt taxonomy;
// agency IDs follow the feed's own agency.txt coding. All times are HH:MM:SS
// strings and intervals are HH:MM:SS durations.
type ModeConfig struct {
	RouteTypes         []int    `yaml:"route_types" validate:"required,min=1"`
	AgencyIDs          []string `yaml:"agency_ids"`
	ExcludeRouteColors []string `yaml:"exclude_route_colors"`
	StartTimes         []string `yaml:"start_times" validate:"required,min=1"`
	EndTimes           []string `yaml:"end_times" validate:"required,min=1"`
	Intervals          []string `yaml:"intervals" validate:"required,min=1"`
}

// PeriodConfig bounds the analysis date range. StartDate/EndDate are
// explicit ISO dates and take precedence; otherwise the MMDD bounds are
// combined with the year derived from the feed name's _yyyymmdd suffix.
type PeriodConfig struct {
	StartMMDD string `yaml:"start_mmdd" validate:"omitempty,len=4,numeric"`
	EndMMDD   string `yaml:"end_mmdd" validate:"omitempty,len=4,numeric"`
	StartDate string `yaml:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `yaml:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

// Config is the full analysis configuration, loaded once and passed into the
// pipeline as an immutable value.
type Config struct {
	Modes map[string]ModeConfig `yaml:"modes" validate:"required,min=1"`

	// Tolerance is the window edge tolerance (default 00:30:00): the first
	// departure must be within it of the window start, the last within it
	// of the window end.
	Tolerance string `yaml:"tolerance"`

	// ConsistencyCutoffPct is the weekday-consistency percentage a stop
	// must exceed to be finally frequent (default 90). A pointer so that an
	// explicit zero is distinguishable from the field being absent.
	ConsistencyCutoffPct *float64 `yaml:"consistency_cutoff_pct" validate:"omitempty,gte=0,lte=100"`

	IncludeWeekends bool         `yaml:"include_weekends"`
	Period          PeriodConfig `yaml:"period"`
}
