package dashboard

import (
	"sort"

	"github.com/foliotrack/foliotrack/internal/modules/positions"
)

// unlabeledKey collects records with no ticker instead of dropping them
const unlabeledKey = "OTHER"

// CalculateAllocation groups end-of-range snapshots by instrument and
// computes each group's share of the total. Sorted by value descending,
// ties broken by key so the order is deterministic.
func CalculateAllocation(end []positions.Snapshot) []AllocationSlice {
	if len(end) == 0 {
		return []AllocationSlice{}
	}

	groups := make(map[string]float64)
	var total float64

	for _, s := range end {
		key := s.Ticker
		if key == "" {
			key = unlabeledKey
		}
		groups[key] += s.Value
		total += s.Value
	}

	slices := make([]AllocationSlice, 0, len(groups))
	for key, value := range groups {
		var percent float64
		if total != 0 {
			percent = value / total * 100
		}
		slices = append(slices, AllocationSlice{Key: key, Value: value, Percent: percent})
	}

	sort.Slice(slices, func(i, j int) bool {
		if slices[i].Value != slices[j].Value {
			return slices[i].Value > slices[j].Value
		}
		return slices[i].Key < slices[j].Key
	})

	return slices
}
