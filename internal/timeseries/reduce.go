package timeseries

import "time"

// rawPassthroughLimit caps how many records a thin intraday window may
// return unbucketed.
const rawPassthroughLimit = 30

// Reduce selects one representative point per bucket from a newest-first
// sequence of portfolio-level samples and returns the result in
// chronological order, together with the granularity actually used.
//
// Tie-break policy: the latest sample within a bucket wins, always. Since
// the input is newest-first, that is simply the first sample seen per
// bucket.
//
// Two adjustments protect thin datasets from collapsing into a flat chart:
//   - A DAILY request spanning at most one day with at most 30 samples
//     returns every raw sample unbucketed.
//   - A MONTHLY request whose samples all fall in one calendar month is
//     re-reduced at DAILY so a sparse history still draws a line.
func Reduce(points []Point, g Granularity) (Series, Granularity) {
	if len(points) == 0 {
		return Series{}, g
	}

	if g == Daily && len(points) <= rawPassthroughLimit {
		span := points[0].Timestamp.Sub(points[len(points)-1].Timestamp)
		if span <= 24*time.Hour {
			out := make(Series, len(points))
			for i, p := range points {
				out[len(points)-1-i] = p
			}
			return out, Daily
		}
	}

	reduced := reduceOnce(points, g)

	if g == Monthly && len(reduced) <= 1 && len(points) > 1 {
		return reduceOnce(points, Daily), Daily
	}

	return reduced, g
}

func reduceOnce(points []Point, g Granularity) Series {
	seen := make(map[time.Time]struct{}, len(points))
	out := make(Series, 0, len(points))

	for _, p := range points {
		bucket := BucketStart(p.Timestamp, g)
		if _, ok := seen[bucket]; ok {
			continue
		}
		seen[bucket] = struct{}{}
		out = append(out, Point{Timestamp: bucket, Value: p.Value})
	}

	// Newest-first scan built the series backwards
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}

	return out
}
