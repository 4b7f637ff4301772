package analysis

import (
	"github.com/rickb777/date"
)

// Verdict is the per-date frequency decision for one stop.
type Verdict struct {
	StopID   string
	Date     date.Date
	Frequent bool
	MaxGap   int // seconds; 0 when fewer than two departures
}

// EvaluateStopDay decides whether a stop's departure sequence meets the
// headway threshold throughout the window on one date. All three conditions
// must hold:
//
//	(a) the earliest departure is no later than windowStart + tolerance,
//	(b) the latest departure is no earlier than windowEnd - tolerance,
//	(c) the maximum inter-departure gap is <= threshold (inclusive).
//
// Conditions (a) and (b) guard against stops whose only service sits at the
// window fringes; a large threshold would otherwise let two departures hours
// apart pass on the gap rule alone. Fewer than two departures produce no gap
// and are never frequent. A degenerate window (span shorter than the
// threshold) is a valid negative result: the gap rule cannot meaningfully
// bind there, so nothing is frequent, but the max gap is still reported.
func EvaluateStopDay(departures []int, w Window, threshold, tolerance int) (frequent bool, maxGap int) {
	if len(departures) < 2 {
		return false, 0
	}

	for _, gap := range Gaps(departures) {
		if gap > maxGap {
			maxGap = gap
		}
	}

	if DegenerateWindow(w, threshold) {
		return false, maxGap
	}

	first := departures[0]
	last := departures[len(departures)-1]

	frequent = first <= w.Start+tolerance &&
		last >= w.End-tolerance &&
		maxGap <= threshold
	return frequent, maxGap
}

// Evaluate applies EvaluateStopDay across all stop-days. Under a degenerate
// configuration (threshold larger than the window span) it still runs and
// simply finds nothing frequent.
func Evaluate(stopDays []StopDay, w Window, threshold, tolerance int) []Verdict {
	verdicts := make([]Verdict, 0, len(stopDays))
	for _, sd := range stopDays {
		frequent, maxGap := EvaluateStopDay(sd.Departures, w, threshold, tolerance)
		verdicts = append(verdicts, Verdict{
			StopID:   sd.StopID,
			Date:     sd.Date,
			Frequent: frequent,
			MaxGap:   maxGap,
		})
	}
	return verdicts
}

// DegenerateWindow reports whether the threshold cannot be met inside the
// window at all. This is reported as a warning, never an error.
func DegenerateWindow(w Window, threshold int) bool {
	return w.Span() < threshold
}
