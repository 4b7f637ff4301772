package analysis

import "math"

// ModeOutcome is the finished analysis of one (mode, window, interval)
// combination: the universe size and the stops that passed the consistency
// cutoff.
type ModeOutcome struct {
	Mode          string
	Window        Window
	Interval      int // seconds
	UniverseCount int
	Frequent      []StopStatus
}

// UnionRow is one entry of the combined cross-mode stop list. A stop serving
// two modes appears once per mode; the union never merges.
type UnionRow struct {
	Mode           string
	StopID         string
	ConsistencyPct float64
}

// ModeSummary compares one mode's frequent-stop count against its universe.
type ModeSummary struct {
	Mode          string
	UniverseCount int
	FrequentCount int
	FrequentPct   float64
}

// Combine unions per-mode frequent-stop sets into one tagged list and
// derives the per-mode comparison summary. Counts are taken directly from
// the outcomes, so the summary always reconciles exactly with the aggregator
// output. An empty universe yields a zero percentage rather than a division
// fault; the warning for it is raised where the universe was computed.
func Combine(outcomes []ModeOutcome) ([]UnionRow, []ModeSummary) {
	var union []UnionRow
	summaries := make([]ModeSummary, 0, len(outcomes))

	for _, outcome := range outcomes {
		for _, status := range outcome.Frequent {
			union = append(union, UnionRow{
				Mode:           outcome.Mode,
				StopID:         status.StopID,
				ConsistencyPct: status.ConsistencyPct,
			})
		}

		pct := 0.0
		if outcome.UniverseCount > 0 {
			pct = 100 * float64(len(outcome.Frequent)) / float64(outcome.UniverseCount)
			pct = math.Round(pct*100) / 100
		}
		summaries = append(summaries, ModeSummary{
			Mode:          outcome.Mode,
			UniverseCount: outcome.UniverseCount,
			FrequentCount: len(outcome.Frequent),
			FrequentPct:   pct,
		})
	}

	return union, summaries
}
