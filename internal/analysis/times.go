package analysis

import (
	"fmt"
	"strconv"
	"strings"
)

// Service times are elapsed seconds since the service day's midnight, not
// wall-clock times. GTFS allows hours past 24 for trips that run beyond
// midnight (e.g. "25:10:00"), and all gap arithmetic relies on the elapsed
// representation staying monotonic across that boundary.

// ParseServiceTime parses an HH:MM:SS GTFS time value into elapsed seconds.
// Hours may exceed 24. A single-digit hour ("7:05:00") is accepted, as some
// feeds omit the leading zero.
func ParseServiceTime(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("malformed time value %q: expected HH:MM:SS", s)
	}

	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 {
		return 0, fmt.Errorf("malformed time value %q: bad hours", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("malformed time value %q: bad minutes", s)
	}
	sec, err := strconv.Atoi(parts[2])
	if err != nil || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("malformed time value %q: bad seconds", s)
	}

	return h*3600 + m*60 + sec, nil
}

// FormatServiceTime renders elapsed seconds as HH:MM:SS. Hours past 24 are
// kept as-is ("25:10:00"), matching the GTFS convention.
func FormatServiceTime(secs int) string {
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs/60)%60, secs%60)
}
