package collector

import (
	"context"

	"CoinScreener/internal/model"
)

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	// FetchQuotes returns the latest quote of every listed symbol, keyed by symbol.
	FetchQuotes(ctx context.Context) (map[string]model.Quote, error)
	// FetchDailySeries returns daily closes of one symbol, oldest first.
	FetchDailySeries(ctx context.Context, symbol string) ([]float64, error)
	Name() string
}
