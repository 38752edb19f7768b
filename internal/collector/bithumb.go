package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"CoinScreener/internal/model"
)

const (
	statusOK = "0000"

	// candleCloseIndex is the position of the close price in a candlestick row:
	// [timestamp, open, close, high, low, volume].
	candleCloseIndex = 2
)

// BithumbFetcher implements Fetcher using the Bithumb public REST API.
type BithumbFetcher struct {
	BaseURL       string
	QuoteCurrency string
	Client        *http.Client
	Timeout       time.Duration // per request attempt
	Retries       int
	RetryDelay    time.Duration
}

// NewBithumbFetcher creates a new fetcher with optional proxy support.
func NewBithumbFetcher(baseURL, quoteCurrency, proxyURL string, timeout time.Duration) *BithumbFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &BithumbFetcher{
		BaseURL:       strings.TrimRight(baseURL, "/"),
		QuoteCurrency: strings.ToUpper(quoteCurrency),
		Client: &http.Client{
			Timeout:   timeout + 5*time.Second,
			Transport: transport,
		},
		Timeout:    timeout,
		Retries:    1,
		RetryDelay: 300 * time.Millisecond,
	}
}

func (f *BithumbFetcher) Name() string { return "bithumb" }

// bithumbResponse is the envelope shared by all public endpoints.
type bithumbResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type bithumbTicker struct {
	ClosingPrice     flexFloat `json:"closing_price"`
	FluctateRate24H  flexFloat `json:"fluctate_rate_24H"`
	AccTradeValue24H flexFloat `json:"acc_trade_value_24H"`
}

// flexFloat decodes numbers that may arrive either as JSON numbers or as strings.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		unq, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		s = strings.TrimSpace(unq)
		if s == "" {
			*f = 0
			return nil
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parse number %q: %w", s, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("parse number %q: not finite", s)
	}
	*f = flexFloat(v)
	return nil
}

// FetchQuotes loads the ticker of every symbol quoted in QuoteCurrency.
func (f *BithumbFetcher) FetchQuotes(ctx context.Context) (map[string]model.Quote, error) {
	endpoint := fmt.Sprintf("%s/public/ticker/ALL_%s", f.BaseURL, f.QuoteCurrency)
	data, err := f.call(ctx, endpoint, "ticker")
	if err != nil {
		return nil, err
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode ticker data: %w", err)
	}

	quotes := make(map[string]model.Quote, len(entries))
	for symbol, raw := range entries {
		var t bithumbTicker
		if err := json.Unmarshal(raw, &t); err != nil {
			continue // "date", non-ticker keys and non-finite numbers
		}
		quotes[symbol] = model.Quote{
			Symbol: symbol,
			Price:  float64(t.ClosingPrice),
			Change: float64(t.FluctateRate24H) / 100,
			Volume: float64(t.AccTradeValue24H),
		}
	}
	return quotes, nil
}

// FetchDailySeries loads the daily candles of one symbol and returns their closes, oldest first.
func (f *BithumbFetcher) FetchDailySeries(ctx context.Context, symbol string) ([]float64, error) {
	endpoint := fmt.Sprintf("%s/public/candlestick/%s_%s/24h",
		f.BaseURL, url.PathEscape(symbol), f.QuoteCurrency)
	data, err := f.call(ctx, endpoint, "candlestick")
	if err != nil {
		return nil, err
	}

	var rows [][]json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode candles: %w", err)
	}
	closes := make([]float64, 0, len(rows))
	for i, row := range rows {
		if len(row) <= candleCloseIndex {
			return nil, fmt.Errorf("candle %d: expected at least %d fields, got %d", i, candleCloseIndex+1, len(row))
		}
		var c flexFloat
		if err := json.Unmarshal(row[candleCloseIndex], &c); err != nil {
			return nil, fmt.Errorf("candle %d close: %w", i, err)
		}
		closes = append(closes, float64(c))
	}
	return closes, nil
}

func (f *BithumbFetcher) call(ctx context.Context, endpoint, name string) (json.RawMessage, error) {
	body, err := getWithRetry(ctx, f.Client, endpoint, f.Timeout, f.Retries, f.RetryDelay)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	var resp bithumbResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	if resp.Status != statusOK {
		return nil, &UpstreamError{Endpoint: name, Status: resp.Status, Message: resp.Message}
	}
	return resp.Data, nil
}
