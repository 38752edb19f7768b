package collector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"CoinScreener/internal/calculator"
	"CoinScreener/internal/model"

	"go.uber.org/zap"
)

// Builder defaults.
const (
	DefaultWorkers  = 15
	DefaultMinPrice = 0.01
)

// DefaultExcluded lists stable coins that never enter a snapshot.
var DefaultExcluded = []string{
	"USDT", "USDC", "DAI", "TUSD", "BUSD", "USDP", "USDD", "FDUSD", "PYUSD", "USDE", "USDS", "USD1",
}

// BuildStats summarises one snapshot build.
type BuildStats struct {
	Candidates int
	Built      int
	Dropped    int
	Duration   time.Duration
}

// Collector builds snapshots: it fetches the quote list, then fans per-symbol
// series fetches out to a fixed pool of workers.
type Collector struct {
	Fetcher       Fetcher
	QuoteCurrency string
	Workers       int
	MinPrice      float64
	Exclude       map[string]struct{}
	Logger        *zap.Logger
	Now           func() time.Time
}

// NewCollector creates a new Collector with default pool size, price floor and exclusions.
func NewCollector(fetcher Fetcher, quoteCurrency string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		Fetcher:       fetcher,
		QuoteCurrency: strings.ToUpper(quoteCurrency),
		Workers:       DefaultWorkers,
		MinPrice:      DefaultMinPrice,
		Logger:        logger,
		Now:           time.Now,
	}
	c.SetExcluded(DefaultExcluded)
	return c
}

// SetExcluded replaces the exclusion list.
func (c *Collector) SetExcluded(symbols []string) {
	c.Exclude = make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		c.Exclude[strings.ToUpper(strings.TrimSpace(s))] = struct{}{}
	}
}

// Build fetches every eligible symbol and returns the assembled snapshot.
// A quote feed failure aborts the build; per-symbol failures only drop that symbol.
func (c *Collector) Build(ctx context.Context) (*model.Snapshot, BuildStats, error) {
	start := time.Now()
	var stats BuildStats

	quotes, err := c.Fetcher.FetchQuotes(ctx)
	if err != nil {
		return nil, stats, fmt.Errorf("fetch quotes: %w", err)
	}

	symbols := c.eligible(quotes)
	stats.Candidates = len(symbols)

	queue := make(chan string, len(symbols))
	for _, s := range symbols {
		queue <- s
	}
	close(queue)

	var (
		mu      sync.Mutex
		rows    = make([]model.QuoteRow, 0, len(symbols))
		dropped int
		wg      sync.WaitGroup
	)
	workers := c.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range queue {
				if ctx.Err() != nil {
					continue // drain without fetching
				}
				row, err := c.buildRow(ctx, quotes[symbol])
				mu.Lock()
				if err != nil {
					dropped++
				} else {
					rows = append(rows, row)
				}
				mu.Unlock()
				if err != nil {
					c.Logger.Warn("symbol dropped", zap.String("symbol", symbol), zap.Error(err))
				}
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, stats, fmt.Errorf("build interrupted: %w", err)
	}

	stats.Built = len(rows)
	stats.Dropped = dropped
	stats.Duration = time.Since(start)
	c.Logger.Info("snapshot built",
		zap.String("source", c.Fetcher.Name()),
		zap.Int("candidates", stats.Candidates),
		zap.Int("rows", stats.Built),
		zap.Int("dropped", stats.Dropped),
		zap.Duration("took", stats.Duration),
	)
	return model.NewSnapshot(rows, c.now()), stats, nil
}

// eligible returns the symbols worth fetching, sorted for a stable queue order.
func (c *Collector) eligible(quotes map[string]model.Quote) []string {
	out := make([]string, 0, len(quotes))
	for symbol, q := range quotes {
		if strings.EqualFold(symbol, "date") {
			continue
		}
		if _, skip := c.Exclude[strings.ToUpper(symbol)]; skip {
			continue
		}
		if math.IsNaN(q.Price) || math.IsInf(q.Price, 0) || q.Price < c.MinPrice {
			continue
		}
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}

func (c *Collector) buildRow(ctx context.Context, q model.Quote) (model.QuoteRow, error) {
	closes, err := c.Fetcher.FetchDailySeries(ctx, q.Symbol)
	if err != nil {
		return model.QuoteRow{}, err
	}
	if len(closes) < 2 {
		return model.QuoteRow{}, ErrInsufficientHistory
	}
	for _, v := range closes {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return model.QuoteRow{}, ErrInvalidClose
		}
	}

	daily := calculator.Reverse(closes)
	monthly := calculator.MonthlyProxy(daily)

	return model.QuoteRow{
		Symbol:             q.Symbol,
		Market:             q.Symbol + "/" + c.QuoteCurrency,
		Price:              q.Price,
		Change:             q.Change,
		Volume:             q.Volume,
		RSI14:              calculator.RSI(daily, calculator.PeriodRSI),
		MA20:               calculator.MovingAverage(daily, calculator.PeriodMA20),
		MA60:               calculator.MovingAverage(daily, calculator.PeriodMA60),
		MA120:              calculator.MovingAverage(daily, calculator.PeriodMA120),
		MA240:              calculator.MovingAverage(daily, calculator.PeriodMA240),
		MA120Monthly:       calculator.MovingAverage(monthly, calculator.PeriodMA120),
		MonthlyCandleCount: len(monthly),
	}, nil
}

func (c *Collector) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}
