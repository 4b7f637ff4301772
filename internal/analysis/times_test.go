package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServiceTime(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
		wantErr  bool
	}{
		{name: "midnight", input: "00:00:00", expected: 0},
		{name: "morning peak", input: "07:00:00", expected: 7 * 3600},
		{name: "single digit hour", input: "7:05:00", expected: 7*3600 + 5*60},
		{name: "evening", input: "19:00:00", expected: 19 * 3600},
		{name: "past midnight", input: "25:10:00", expected: 25*3600 + 10*60},
		{name: "surrounding whitespace", input: " 08:30:00 ", expected: 8*3600 + 30*60},
		{name: "missing seconds", input: "07:00", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "minutes out of range", input: "07:61:00", wantErr: true},
		{name: "seconds out of range", input: "07:00:61", wantErr: true},
		{name: "negative hours", input: "-1:00:00", wantErr: true},
		{name: "non-numeric", input: "ab:cd:ef", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secs, err := ParseServiceTime(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, secs)
		})
	}
}

func TestFormatServiceTime(t *testing.T) {
	assert.Equal(t, "07:00:00", FormatServiceTime(7*3600))
	assert.Equal(t, "19:30:15", FormatServiceTime(19*3600+30*60+15))
	assert.Equal(t, "25:10:00", FormatServiceTime(25*3600+10*60))
	assert.Equal(t, "00:00:00", FormatServiceTime(0))
}

func TestServiceTimeRoundTrip(t *testing.T) {
	for _, s := range []string{"00:00:00", "07:25:30", "24:00:00", "26:45:00"} {
		secs, err := ParseServiceTime(s)
		require.NoError(t, err)
		assert.Equal(t, s, FormatServiceTime(secs))
	}
}
