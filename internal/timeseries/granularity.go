// Package timeseries implements the bucketing, reduction and merge logic
// behind the portfolio history charts. Everything in this package is pure:
// no I/O, no shared state, safe for concurrent use.
package timeseries

import "time"

// Granularity selects the bucket width used when reducing snapshot history.
type Granularity string

const (
	Daily   Granularity = "DAILY"
	Weekly  Granularity = "WEEKLY"
	Monthly Granularity = "MONTHLY"
)

// BucketStart rounds a timestamp down to the start of its containing bucket.
// All rounding happens in UTC so bucket boundaries are deterministic
// regardless of where the input timestamp came from.
func BucketStart(t time.Time, g Granularity) time.Time {
	t = t.UTC()

	switch g {
	case Weekly:
		// Weeks start on Monday
		offset := (int(t.Weekday()) + 6) % 7
		t = t.AddDate(0, 0, -offset)
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case Monthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
}

// AutoDetect picks a granularity from the span of the data. An absent start
// means "from inception", which always charts monthly.
func AutoDetect(start *time.Time, end time.Time) Granularity {
	if start == nil {
		return Monthly
	}

	span := end.Sub(*start)
	switch {
	case span <= 90*24*time.Hour:
		return Daily
	case span <= 365*24*time.Hour:
		return Weekly
	default:
		return Monthly
	}
}
