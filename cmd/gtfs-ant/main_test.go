package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carlhiggs/GTFS-ANT/internal/analysis"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFeedYear(t *testing.T) {
	logger := discardLogger()

	tests := []struct {
		name string
		feed string
		want int
	}{
		{"full date suffix", "gtfs_vic_ptv_20180413", 2018},
		{"year-only suffix", "feed_2020", 2020},
		{"no suffix falls back to current year", "melbourne-gtfs", time.Now().Year()},
		{"non-numeric suffix falls back", "gtfs_latest", time.Now().Year()},
		{"implausible year falls back", "feed_00010101", time.Now().Year()},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, feedYear(tc.feed, logger))
		})
	}
}

func TestFindFeeds(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.zip", "a.zip", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "c.zip"), []byte("x"), 0o644))

	feeds, err := findFeeds(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.zip"),
		filepath.Join(dir, "b.zip"),
		filepath.Join(dir, "nested", "c.zip"),
	}, feeds)
}

func TestPrintComparison(t *testing.T) {
	result := &analysis.Result{
		Intervals: []analysis.IntervalResult{
			{
				Interval: 30 * 60,
				Summaries: []analysis.ModeSummary{
					{Mode: "bus", UniverseCount: 120, FrequentCount: 30, FrequentPct: 25},
					{Mode: "tram", UniverseCount: 40, FrequentCount: 20, FrequentPct: 50},
				},
			},
		},
	}

	var buf bytes.Buffer
	printComparison(&buf, "gtfs_vic_ptv_20180413", result)

	out := buf.String()
	assert.Contains(t, out, "gtfs_vic_ptv_20180413: frequency 00:30:00")
	assert.Contains(t, out, "bus")
	assert.Contains(t, out, "25.00")
	assert.Contains(t, out, "50.00")
}
