// Package marketdata fetches live quotes from an Alpaca-compatible data API.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Quoter fetches the latest trade price for a set of symbols.
// The price refresh job depends on this interface, not the HTTP client.
type Quoter interface {
	LatestPrices(ctx context.Context, symbols []string) (map[string]float64, error)
}

// Client talks to the data API over HTTP
type Client struct {
	baseURL   string
	apiKey    string
	apiSecret string
	client    *http.Client
	log       zerolog.Logger
}

// NewClient creates a new market data client
func NewClient(baseURL, apiKey, apiSecret string, log zerolog.Logger) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		apiSecret: apiSecret,
		client:    &http.Client{Timeout: 10 * time.Second},
		log:       log.With().Str("client", "marketdata").Logger(),
	}
}

// Configured reports whether API credentials are present
func (c *Client) Configured() bool {
	return c.apiKey != "" && c.apiSecret != ""
}

type latestTradesResponse struct {
	Trades map[string]struct {
		Price     float64   `json:"p"`
		Timestamp time.Time `json:"t"`
	} `json:"trades"`
}

// LatestPrices fetches the latest trade price for each symbol. Symbols the
// API does not know are simply absent from the result, never an error.
func (c *Client) LatestPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	if len(symbols) == 0 {
		return map[string]float64{}, nil
	}

	endpoint := fmt.Sprintf("%s/v2/stocks/trades/latest?symbols=%s",
		c.baseURL, url.QueryEscape(strings.Join(symbols, ",")))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("APCA-API-KEY-ID", c.apiKey)
	req.Header.Set("APCA-API-SECRET-KEY", c.apiSecret)

	c.log.Debug().Int("symbols", len(symbols)).Msg("Fetching latest prices")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var result latestTradesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	prices := make(map[string]float64, len(result.Trades))
	for symbol, trade := range result.Trades {
		if trade.Price > 0 {
			prices[symbol] = trade.Price
		}
	}

	return prices, nil
}
