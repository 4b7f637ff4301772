package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombine(t *testing.T) {
	t.Run("shared stop appears once per mode", func(t *testing.T) {
		outcomes := []ModeOutcome{
			{
				Mode:          "bus",
				Interval:      1800,
				UniverseCount: 100,
				Frequent: []StopStatus{
					{StopID: "shared", ConsistencyPct: 95, Frequent: true},
					{StopID: "busonly", ConsistencyPct: 92, Frequent: true},
				},
			},
			{
				Mode:          "tram",
				Interval:      1800,
				UniverseCount: 40,
				Frequent: []StopStatus{
					{StopID: "shared", ConsistencyPct: 100, Frequent: true},
				},
			},
		}

		union, summaries := Combine(outcomes)

		sharedCount := 0
		for _, row := range union {
			if row.StopID == "shared" {
				sharedCount++
			}
		}
		assert.Equal(t, 2, sharedCount, "stop under two modes appears twice, tagged by mode")
		assert.Len(t, union, 3)

		require.Len(t, summaries, 2)
		assert.Equal(t, ModeSummary{Mode: "bus", UniverseCount: 100, FrequentCount: 2, FrequentPct: 2}, summaries[0])
		assert.Equal(t, ModeSummary{Mode: "tram", UniverseCount: 40, FrequentCount: 1, FrequentPct: 2.5}, summaries[1])
	})

	t.Run("summary reconciles with outcomes exactly", func(t *testing.T) {
		outcomes := []ModeOutcome{
			{Mode: "train", Interval: 900, UniverseCount: 7, Frequent: []StopStatus{
				{StopID: "a"}, {StopID: "b"}, {StopID: "c"},
			}},
		}

		union, summaries := Combine(outcomes)
		require.Len(t, summaries, 1)
		assert.Equal(t, len(union), summaries[0].FrequentCount)
		assert.InDelta(t, 42.86, summaries[0].FrequentPct, 0.001)
	})

	t.Run("empty universe yields zero percentage", func(t *testing.T) {
		_, summaries := Combine([]ModeOutcome{
			{Mode: "ferry", Interval: 1800, UniverseCount: 0},
		})
		require.Len(t, summaries, 1)
		assert.Zero(t, summaries[0].FrequentPct)
		assert.Zero(t, summaries[0].FrequentCount)
	})
}
