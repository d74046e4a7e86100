package timeseries

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidRange is returned when a range shorthand is not recognized.
var ErrInvalidRange = errors.New("invalid range code")

// Window is the resolved time range for one dashboard request.
// A nil Start means "from portfolio inception"; the concrete lower bound is
// pinned later from the earliest stored snapshot, not computed here.
type Window struct {
	Start       *time.Time
	End         time.Time
	Granularity Granularity
	Code        string
}

// ResolveRange maps a shorthand range code to a Window anchored at now.
// Granularity is derived from the resolved span: 30 and 90 days chart
// daily, a year charts weekly, an open-ended range charts monthly.
func ResolveRange(code string, now time.Time) (Window, error) {
	now = now.UTC()

	var start *time.Time
	normalized := strings.ToUpper(strings.TrimSpace(code))

	switch normalized {
	case "1M":
		t := now.AddDate(0, 0, -30)
		start = &t
	case "3M":
		t := now.AddDate(0, 0, -90)
		start = &t
	case "1Y":
		t := now.AddDate(0, 0, -365)
		start = &t
	case "ALL":
	default:
		return Window{}, fmt.Errorf("%w: %q", ErrInvalidRange, code)
	}

	return Window{Start: start, End: now, Granularity: AutoDetect(start, now), Code: normalized}, nil
}

// Bounded reports whether the window has an explicit lower bound.
func (w Window) Bounded() bool {
	return w.Start != nil
}
