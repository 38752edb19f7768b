package collector

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"CoinScreener/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Quotes   map[string]model.Quote
	Series   map[string][]float64 // oldest first
	QuoteErr error
	// SeriesErr fails the listed symbols only.
	SeriesErr map[string]error
	// Delay is applied to every series fetch.
	Delay time.Duration

	quoteCalls  atomic.Int64
	seriesCalls atomic.Int64

	mu       sync.Mutex
	inFlight int
	peak     int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchQuotes(_ context.Context) (map[string]model.Quote, error) {
	m.quoteCalls.Add(1)
	if m.QuoteErr != nil {
		return nil, m.QuoteErr
	}
	out := make(map[string]model.Quote, len(m.Quotes))
	for k, v := range m.Quotes {
		out[k] = v
	}
	return out, nil
}

func (m *MockFetcher) FetchDailySeries(ctx context.Context, symbol string) ([]float64, error) {
	m.seriesCalls.Add(1)
	m.mu.Lock()
	m.inFlight++
	if m.inFlight > m.peak {
		m.peak = m.inFlight
	}
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.Delay):
		}
	}
	if err, ok := m.SeriesErr[symbol]; ok {
		return nil, err
	}
	s, ok := m.Series[symbol]
	if !ok {
		return nil, fmt.Errorf("no series for %s", symbol)
	}
	return append([]float64(nil), s...), nil
}

// QuoteCalls reports how many times FetchQuotes ran.
func (m *MockFetcher) QuoteCalls() int64 { return m.quoteCalls.Load() }

// SeriesCalls reports how many times FetchDailySeries ran.
func (m *MockFetcher) SeriesCalls() int64 { return m.seriesCalls.Load() }

// PeakConcurrency reports the largest number of simultaneous series fetches observed.
func (m *MockFetcher) PeakConcurrency() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peak
}

// NewDemoFetcher builds a MockFetcher with synthetic symbols, for running without network access.
func NewDemoFetcher(symbols []string, days int) *MockFetcher {
	m := &MockFetcher{
		Quotes: make(map[string]model.Quote, len(symbols)),
		Series: make(map[string][]float64, len(symbols)),
	}
	for i, sym := range symbols {
		base := 100 * float64(i+1)
		series := generateMockSeries(base, days, float64(i%5-2)*0.001)
		last := series[len(series)-1]
		prev := series[len(series)-2]
		m.Series[sym] = series
		m.Quotes[sym] = model.Quote{
			Symbol: sym,
			Price:  last,
			Change: (last - prev) / prev,
			Volume: base * 1e6,
		}
	}
	return m
}

func generateMockSeries(basePrice float64, count int, drift float64) []float64 {
	if count < 2 {
		count = 2
	}
	closes := make([]float64, count)
	for i := 0; i < count; i++ {
		wave := 0.03 * math.Sin(float64(i)/9)
		closes[i] = basePrice * (1 + drift*float64(i) + wave)
	}
	return closes
}
