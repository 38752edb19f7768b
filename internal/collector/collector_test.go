package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"CoinScreener/internal/model"
)

func series(n int, start, step float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = start + step*float64(i)
	}
	return s
}

func newMock() *MockFetcher {
	return &MockFetcher{
		Quotes: map[string]model.Quote{
			"BTC":  {Symbol: "BTC", Price: 300, Change: 0.01, Volume: 1e9},
			"ETH":  {Symbol: "ETH", Price: 50, Change: -0.02, Volume: 1e8},
			"USDT": {Symbol: "USDT", Price: 1400, Volume: 1e10},
			"DUST": {Symbol: "DUST", Price: 0.001, Volume: 1},
			"NEW":  {Symbol: "NEW", Price: 5, Volume: 10},
			"BAD":  {Symbol: "BAD", Price: 5, Volume: 10},
			"date": {Symbol: "date", Price: 1700000000000},
		},
		Series: map[string][]float64{
			"BTC":  series(300, 1, 1),
			"ETH":  series(61, 100, -1),
			"USDT": series(300, 1400, 0),
			"DUST": series(300, 0.001, 0),
			"NEW":  {5},
		},
		SeriesErr: map[string]error{"BAD": errors.New("boom")},
	}
}

func TestBuild_FiltersAndComputes(t *testing.T) {
	c := NewCollector(newMock(), "KRW", nil)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c.Now = func() time.Time { return fixed }

	snap, stats, err := c.Build(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Candidates != 4 { // BTC ETH NEW BAD
		t.Errorf("expected 4 candidates, got %d", stats.Candidates)
	}
	if stats.Dropped != 2 || stats.Built != 2 {
		t.Errorf("expected 2 built / 2 dropped, got %+v", stats)
	}
	if snap.Count != 2 || len(snap.Rows) != 2 || !snap.UpdatedAt.Equal(fixed) {
		t.Fatalf("unexpected snapshot header: count=%d rows=%d at=%v", snap.Count, len(snap.Rows), snap.UpdatedAt)
	}

	rows := map[string]model.QuoteRow{}
	for _, r := range snap.Rows {
		if _, dup := rows[r.Symbol]; dup {
			t.Fatalf("duplicate symbol %s", r.Symbol)
		}
		rows[r.Symbol] = r
	}

	btc := rows["BTC"]
	if btc.Market != "BTC/KRW" || btc.Price != 300 {
		t.Errorf("unexpected BTC row: %+v", btc)
	}
	// oldest-first 1..300, newest-first 300..1: ma20 = mean(300..281)
	if btc.MA20 == nil || *btc.MA20 != 290.5 {
		t.Errorf("expected ma20 290.5, got %v", btc.MA20)
	}
	if btc.MA240 == nil || btc.RSI14 == nil || *btc.RSI14 != 100 {
		t.Errorf("expected ma240 present and rsi 100, got %v %v", btc.MA240, btc.RSI14)
	}
	if btc.MonthlyCandleCount != 10 || btc.MA120Monthly != nil {
		t.Errorf("expected 10 monthly samples and no monthly MA, got %d %v", btc.MonthlyCandleCount, btc.MA120Monthly)
	}

	eth := rows["ETH"]
	if eth.MA60 == nil || eth.MA120 != nil || eth.MA240 != nil {
		t.Errorf("ETH with 61 closes: expected ma60 only, got %v %v %v", eth.MA60, eth.MA120, eth.MA240)
	}
	if eth.RSI14 == nil || *eth.RSI14 != 0 {
		t.Errorf("ETH falling series: expected rsi 0, got %v", eth.RSI14)
	}
}

func TestBuild_DescendingScenario(t *testing.T) {
	m := &MockFetcher{
		Quotes: map[string]model.Quote{"AAA": {Symbol: "AAA", Price: 1}},
		Series: map[string][]float64{"AAA": series(100, 100, -1)}, // 100 down to 1, oldest first
	}
	snap, _, err := NewCollector(m, "KRW", nil).Build(context.Background())
	if err != nil || snap.Count != 1 {
		t.Fatalf("unexpected result: %v %+v", err, snap)
	}
	row := snap.Rows[0]
	if row.MA20 == nil {
		t.Error("expected ma20 to be defined")
	}
	if row.RSI14 == nil || *row.RSI14 != 0 {
		t.Errorf("expected rsi 0, got %v", row.RSI14)
	}
}

func TestBuild_UpstreamFailureAborts(t *testing.T) {
	m := newMock()
	m.QuoteErr = &UpstreamError{Endpoint: "ticker", Status: "5500"}

	snap, _, err := NewCollector(m, "KRW", nil).Build(context.Background())
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if snap != nil {
		t.Error("expected no snapshot")
	}
	if m.SeriesCalls() != 0 {
		t.Errorf("expected no series fetches, got %d", m.SeriesCalls())
	}
}

func TestBuild_BoundedConcurrency(t *testing.T) {
	m := &MockFetcher{
		Quotes: map[string]model.Quote{},
		Series: map[string][]float64{},
		Delay:  5 * time.Millisecond,
	}
	for i := 0; i < 60; i++ {
		sym := string(rune('A'+i/26)) + string(rune('A'+i%26))
		m.Quotes[sym] = model.Quote{Symbol: sym, Price: 10}
		m.Series[sym] = series(30, 10, 0.1)
	}

	c := NewCollector(m, "KRW", nil)
	snap, stats, err := c.Build(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Count != 60 || stats.Dropped != 0 {
		t.Fatalf("expected 60 rows, got %d (dropped %d)", snap.Count, stats.Dropped)
	}
	if m.SeriesCalls() != 60 {
		t.Errorf("each symbol must be fetched exactly once, got %d fetches", m.SeriesCalls())
	}
	if peak := m.PeakConcurrency(); peak > DefaultWorkers || peak < 2 {
		t.Errorf("expected 2..%d concurrent fetches, got %d", DefaultWorkers, peak)
	}
}

func TestBuild_Cancelled(t *testing.T) {
	m := newMock()
	m.Delay = 50 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := NewCollector(m, "KRW", nil).Build(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation error, got %v", err)
	}
}

func TestBuild_CustomExclusions(t *testing.T) {
	c := NewCollector(newMock(), "KRW", nil)
	c.SetExcluded([]string{"btc", "bad"})

	snap, stats, err := c.Build(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// ETH, NEW, USDT remain candidates; NEW drops for short history
	if stats.Candidates != 3 || snap.Count != 2 {
		t.Errorf("expected 3 candidates and 2 rows, got %d and %d", stats.Candidates, snap.Count)
	}
}

func TestNewDemoFetcher(t *testing.T) {
	m := NewDemoFetcher([]string{"AAA", "BBB"}, 400)
	snap, _, err := NewCollector(m, "KRW", nil).Build(context.Background())
	if err != nil || snap.Count != 2 {
		t.Fatalf("unexpected demo build: %v %+v", err, snap)
	}
	for _, r := range snap.Rows {
		if r.MA240 == nil || r.MonthlyCandleCount != 14 {
			t.Errorf("unexpected demo row: %+v", r)
		}
	}
}

func TestBuild_NonFiniteCloseDropsOnlyThatSymbol(t *testing.T) {
	candles := func(last string) string {
		rows := make([]string, 0, 20)
		for i := 0; i < 19; i++ {
			rows = append(rows, fmt.Sprintf(`[%d,"1","%d","1","1","1"]`, i, 100+i))
		}
		rows = append(rows, fmt.Sprintf(`[19,"1",%q,"1","1","1"]`, last))
		return `{"status":"0000","data":[` + strings.Join(rows, ",") + `]}`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/public/ticker/ALL_KRW":
			fmt.Fprint(w, `{"status":"0000","data":{
				"GOOD":{"closing_price":"120","fluctate_rate_24H":"1","acc_trade_value_24H":"5"},
				"BAD":{"closing_price":"120","fluctate_rate_24H":"1","acc_trade_value_24H":"5"}}}`)
		case "/public/candlestick/GOOD_KRW/24h":
			fmt.Fprint(w, candles("119"))
		case "/public/candlestick/BAD_KRW/24h":
			fmt.Fprint(w, candles("NaN"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewBithumbFetcher(srv.URL, "KRW", "", 2*time.Second)
	snap, stats, err := NewCollector(f, "KRW", nil).Build(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Count != 1 || snap.Rows[0].Symbol != "GOOD" || stats.Dropped != 1 {
		t.Fatalf("expected only GOOD, got %+v (stats %+v)", snap.Rows, stats)
	}
	if snap.Rows[0].MA20 == nil || snap.Rows[0].RSI14 == nil {
		t.Errorf("expected ma20 and rsi on GOOD, got %+v", snap.Rows[0])
	}
	if _, err := json.Marshal(snap); err != nil {
		t.Errorf("snapshot must encode: %v", err)
	}
}

func TestBuild_NonFiniteMockValuesDropped(t *testing.T) {
	m := &MockFetcher{
		Quotes: map[string]model.Quote{
			"OK":     {Symbol: "OK", Price: 10},
			"NANPX":  {Symbol: "NANPX", Price: math.NaN()},
			"INFSER": {Symbol: "INFSER", Price: 10},
		},
		Series: map[string][]float64{
			"OK":     series(30, 10, 0.1),
			"NANPX":  series(30, 10, 0.1),
			"INFSER": append(series(29, 10, 0.1), math.Inf(1)),
		},
	}
	snap, stats, err := NewCollector(m, "KRW", nil).Build(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Candidates != 2 || snap.Count != 1 || snap.Rows[0].Symbol != "OK" {
		t.Errorf("expected OK only from 2 candidates, got %+v (stats %+v)", snap.Rows, stats)
	}
}
