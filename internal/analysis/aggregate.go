package analysis

import (
	"math"
	"sort"
	"time"

	"github.com/rickb777/date"
)

// Period is an inclusive analysis date range, typically a representative
// slice of the feed's calendar coverage with school-holiday weeks excluded.
type Period struct {
	Start date.Date
	End   date.Date
}

// Contains reports whether d falls inside the period.
func (p Period) Contains(d date.Date) bool {
	return !d.Before(p.Start) && !d.After(p.End)
}

// WeekdayCounts returns how many times each weekday occurs in the period,
// regardless of service. This is the aggregation denominator.
func (p Period) WeekdayCounts() map[time.Weekday]int {
	counts := make(map[time.Weekday]int)
	for d := p.Start; !d.After(p.End); d = d.Add(1) {
		counts[d.Weekday()]++
	}
	return counts
}

// StopStatus is the final per-stop aggregation outcome for one mode.
type StopStatus struct {
	StopID         string
	ConsistencyPct float64
	Frequent       bool
}

// AggregateResult carries the aggregated statuses plus the stops excluded
// for lack of data (denominator zero).
type AggregateResult struct {
	Statuses         []StopStatus
	InsufficientData []string
}

// Aggregate summarises per-date verdicts into a stable per-stop decision.
// For each stop it counts frequent-verdict dates per weekday bucket (Mon-Fri,
// plus Sat/Sun when includeWeekends is set) against the number of times each
// weekday occurs in the period. A stop is frequent when the resulting
// percentage exceeds cutoffPct. A period with no in-bucket days yields no
// division fault: every observed stop is excluded as insufficient data.
// Aggregate is a pure function of its input; re-running it on identical
// verdicts yields identical output.
func Aggregate(verdicts []Verdict, period Period, includeWeekends bool, cutoffPct float64) AggregateResult {
	buckets := []time.Weekday{
		time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
	}
	if includeWeekends {
		buckets = append(buckets, time.Saturday, time.Sunday)
	}
	inBucket := make(map[time.Weekday]bool, len(buckets))
	for _, wd := range buckets {
		inBucket[wd] = true
	}

	possible := 0
	for wd, n := range period.WeekdayCounts() {
		if inBucket[wd] {
			possible += n
		}
	}

	if possible == 0 {
		// No countable days in the period at all, so no verdict can be
		// in-bucket either; every stop observed in the period is excluded
		// rather than marked non-frequent.
		seen := make(map[string]struct{})
		for _, v := range verdicts {
			if period.Contains(v.Date) {
				seen[v.StopID] = struct{}{}
			}
		}
		skipped := make([]string, 0, len(seen))
		for id := range seen {
			skipped = append(skipped, id)
		}
		sort.Strings(skipped)
		return AggregateResult{InsufficientData: skipped}
	}

	observed := make(map[string]int)
	stops := make(map[string]struct{})
	for _, v := range verdicts {
		if !period.Contains(v.Date) || !inBucket[v.Date.Weekday()] {
			continue
		}
		stops[v.StopID] = struct{}{}
		if v.Frequent {
			observed[v.StopID]++
		}
	}

	statuses := make([]StopStatus, 0, len(stops))
	for id := range stops {
		pct := 100 * float64(observed[id]) / float64(possible)
		pct = math.Round(pct*100) / 100
		statuses = append(statuses, StopStatus{
			StopID:         id,
			ConsistencyPct: pct,
			Frequent:       pct > cutoffPct,
		})
	}
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].StopID < statuses[j].StopID
	})
	return AggregateResult{Statuses: statuses}
}
