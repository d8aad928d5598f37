package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"":          0,
		"perm":      0,
		"Permanent": 0,
		"10m":       10 * time.Minute,
		"3d":        72 * time.Hour,
		"1w":        7 * 24 * time.Hour,
		"1w2d":      9 * 24 * time.Hour,
		"1d12h":     36 * time.Hour,
		"90s":       90 * time.Second,
	}
	for in, want := range cases {
		got, err := ParseDuration(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"abc", "3x", "d", "-5m"} {
		_, err := ParseDuration(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "10m", FormatDuration(10*time.Minute))
	assert.Equal(t, "2d 3h", FormatDuration(51*time.Hour))
	assert.Equal(t, "1h 30m 5s", FormatDuration(time.Hour+30*time.Minute+5*time.Second))
	assert.Equal(t, "0s", FormatDuration(0))
	assert.Equal(t, "500ms", FormatDuration(500*time.Millisecond))
}
