package timeseries

import "time"

// Point is one sample of a bucketed series.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Series is an ordered sequence of points, strictly increasing in timestamp.
type Series []Point

// Merge combines two bucketed series onto the union of their timestamps.
// At each timestamp the result is lastKnown(a) + lastKnown(b), with both
// accumulators starting at zero. No timestamp from either input is dropped,
// and values never fall back to zero between samples of one input.
func Merge(a, b Series) Series {
	if len(a) == 0 && len(b) == 0 {
		return Series{}
	}

	out := make(Series, 0, len(a)+len(b))
	var lastA, lastB float64
	i, j := 0, 0

	for i < len(a) || j < len(b) {
		var ts time.Time
		switch {
		case j >= len(b):
			ts = a[i].Timestamp
		case i >= len(a):
			ts = b[j].Timestamp
		case a[i].Timestamp.Before(b[j].Timestamp):
			ts = a[i].Timestamp
		default:
			ts = b[j].Timestamp
		}

		if i < len(a) && a[i].Timestamp.Equal(ts) {
			lastA = a[i].Value
			i++
		}
		if j < len(b) && b[j].Timestamp.Equal(ts) {
			lastB = b[j].Value
			j++
		}

		out = append(out, Point{Timestamp: ts, Value: lastA + lastB})
	}

	return out
}

// Cumulative returns a running-sum copy of the series. Used to turn
// per-bucket cash flow totals into a cumulative cash line.
func Cumulative(s Series) Series {
	out := make(Series, len(s))
	var sum float64
	for i, p := range s {
		sum += p.Value
		out[i] = Point{Timestamp: p.Timestamp, Value: sum}
	}
	return out
}

// First returns the first value, or 0 for an empty series.
func (s Series) First() float64 {
	if len(s) == 0 {
		return 0
	}
	return s[0].Value
}

// Last returns the last value, or 0 for an empty series.
func (s Series) Last() float64 {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1].Value
}
