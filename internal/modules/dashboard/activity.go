package dashboard

import (
	"sort"

	"github.com/foliotrack/foliotrack/internal/modules/cashflows"
)

// activityLimit caps the dashboard's activity feed
const activityLimit = 10

// BuildActivity merges recent paid and upcoming cash flows into one feed,
// newest first, capped at the feed limit.
func BuildActivity(paid, upcoming []cashflows.Event) []ActivityItem {
	items := make([]ActivityItem, 0, len(paid)+len(upcoming))

	for _, e := range paid {
		items = append(items, ActivityItem{
			Type:   "cash_flow",
			Ticker: e.Ticker,
			Amount: round(e.Amount, 2),
			Date:   e.PayDate,
			Status: e.Status,
		})
	}
	for _, e := range upcoming {
		items = append(items, ActivityItem{
			Type:   "cash_flow",
			Ticker: e.Ticker,
			Amount: round(e.Amount, 2),
			Date:   e.PayDate,
			Status: e.Status,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Date.After(items[j].Date)
	})

	if len(items) > activityLimit {
		items = items[:activityLimit]
	}

	return items
}
