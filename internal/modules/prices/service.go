package prices

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/foliotrack/foliotrack/internal/modules/positions"
)

// HoldingSource supplies current holdings for an owner.
// Defined here to avoid a hard dependency on the positions repository.
type HoldingSource interface {
	CurrentHoldings(ownerID string) ([]positions.Holding, error)
}

// CashFlowSource supplies cumulative paid cash flow totals.
type CashFlowSource interface {
	TotalPaidThrough(ownerID string, end time.Time) (float64, error)
}

// CurrentValue is the live portfolio valuation at one instant.
type CurrentValue struct {
	Value      float64   `json:"value"`       // positions at live prices plus paid cash flows
	Positions  float64   `json:"positions"`   // positions component only
	CashFlows  float64   `json:"cash_flows"`  // cumulative paid cash flows
	PriceFresh bool      `json:"price_fresh"` // all quotes newer than the freshness threshold
	AsOf       time.Time `json:"as_of"`
}

// Service computes live portfolio values from cached quotes.
// When a symbol has no cached quote, the holding's stored market value is
// used instead so one missing quote never zeroes out a position.
type Service struct {
	repo      *Repository
	holdings  HoldingSource
	cashFlows CashFlowSource
	maxAge    time.Duration
	log       zerolog.Logger
}

// NewService creates a new live value service
func NewService(repo *Repository, holdings HoldingSource, cashFlows CashFlowSource, maxAge time.Duration, log zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		holdings:  holdings,
		cashFlows: cashFlows,
		maxAge:    maxAge,
		log:       log.With().Str("component", "prices").Logger(),
	}
}

// CurrentValue computes the live portfolio value for an owner as of now.
// Quotes older than the freshness threshold, or holdings with no cached
// quote at all, mark the result as not fresh.
func (s *Service) CurrentValue(ownerID string, now time.Time) (CurrentValue, error) {
	now = now.UTC()

	holdings, err := s.holdings.CurrentHoldings(ownerID)
	if err != nil {
		return CurrentValue{}, fmt.Errorf("failed to load holdings: %w", err)
	}

	cached, err := s.repo.GetAll()
	if err != nil {
		return CurrentValue{}, fmt.Errorf("failed to load price cache: %w", err)
	}

	var positionsValue float64
	fresh := len(holdings) > 0

	for _, h := range holdings {
		quote, ok := cached[h.Ticker]
		if !ok {
			// No live quote, fall back to the stored valuation
			positionsValue += h.MarketValue
			fresh = false
			continue
		}

		positionsValue += h.Shares * quote.Price
		if now.Sub(quote.UpdatedAt) > s.maxAge {
			fresh = false
		}
	}

	cashTotal, err := s.cashFlows.TotalPaidThrough(ownerID, now)
	if err != nil {
		return CurrentValue{}, fmt.Errorf("failed to sum cash flows: %w", err)
	}

	return CurrentValue{
		Value:      positionsValue + cashTotal,
		Positions:  positionsValue,
		CashFlows:  cashTotal,
		PriceFresh: fresh,
		AsOf:       now,
	}, nil
}
