// Package cashflows provides access to dividend and distribution events.
package cashflows

import "time"

// Event status values. Upcoming events are scheduled but not yet paid and
// are excluded from all cash flow aggregation.
const (
	StatusPaid     = "paid"
	StatusUpcoming = "upcoming"
)

// Event is one dividend or distribution attributed to an owner.
// Paid events are immutable.
type Event struct {
	ID             int64      `json:"id"`
	OwnerID        string     `json:"owner_id"`
	Ticker         string     `json:"ticker"`
	Amount         float64    `json:"amount"`
	Status         string     `json:"status"`
	PayDate        time.Time  `json:"pay_date"`
	ExDate         *time.Time `json:"ex_date,omitempty"`
	SharesAtExDate *float64   `json:"shares_at_ex_date,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
