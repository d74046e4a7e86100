package timeseries

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRange(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		code        string
		daysBack    int
		granularity Granularity
	}{
		{"1M", 30, Daily},
		{"3M", 90, Daily},
		{"1Y", 365, Weekly},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			w, err := ResolveRange(tt.code, now)
			require.NoError(t, err)
			require.NotNil(t, w.Start)

			assert.Equal(t, now.AddDate(0, 0, -tt.daysBack), *w.Start)
			assert.Equal(t, now, w.End)
			assert.Equal(t, tt.granularity, w.Granularity)
			assert.Equal(t, tt.code, w.Code)
			assert.True(t, w.Bounded())
		})
	}
}

func TestResolveRangeAll(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	w, err := ResolveRange("ALL", now)
	require.NoError(t, err)

	assert.Nil(t, w.Start)
	assert.Equal(t, now, w.End)
	assert.Equal(t, Monthly, w.Granularity)
	assert.False(t, w.Bounded())
}

func TestResolveRangeCaseInsensitive(t *testing.T) {
	now := time.Now()

	w, err := ResolveRange(" 1m ", now)
	require.NoError(t, err)
	assert.Equal(t, "1M", w.Code)
}

func TestResolveRangeInvalid(t *testing.T) {
	for _, code := range []string{"", "2W", "5Y", "forever"} {
		_, err := ResolveRange(code, time.Now())
		assert.ErrorIs(t, err, ErrInvalidRange, "code %q", code)
	}
}
