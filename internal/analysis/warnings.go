package analysis

import "fmt"

// WarningKind classifies non-fatal anomalies raised during an analysis run.
// Warnings never abort the pipeline; they are collected on the Result so the
// caller can surface them.
type WarningKind int

const (
	// WarnEmptyUniverse: a mode's route-type/agency configuration matched
	// zero routes, so its universe (and frequent set) is empty.
	WarnEmptyUniverse WarningKind = iota

	// WarnDegenerateWindow: a headway threshold exceeds the window span, so
	// no stop can ever be frequent for that combination.
	WarnDegenerateWindow

	// WarnInsufficientData: the analysis period contains no countable
	// weekdays, so the listed stops were excluded rather than marked
	// non-frequent.
	WarnInsufficientData
)

func (k WarningKind) String() string {
	switch k {
	case WarnEmptyUniverse:
		return "empty_universe"
	case WarnDegenerateWindow:
		return "degenerate_window"
	case WarnInsufficientData:
		return "insufficient_data"
	default:
		return "unknown"
	}
}

// Warning is one non-fatal anomaly, scoped to a mode.
type Warning struct {
	Kind   WarningKind
	Mode   string
	Detail string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s [%s]: %s", w.Kind, w.Mode, w.Detail)
}
