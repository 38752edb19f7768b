package scheduler

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"CoinScreener/internal/collector"
	"CoinScreener/internal/export"
	"CoinScreener/internal/model"
	"CoinScreener/internal/screener"
	"CoinScreener/internal/store"
)

type captureNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (c *captureNotifier) SendWithRetry(_ context.Context, text string, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, text)
	return nil
}

func newTestScheduler(t *testing.T, quoteErr error) (*Scheduler, *captureNotifier) {
	t.Helper()
	closes := make([]float64, 300)
	for i := range closes {
		closes[i] = float64(i + 1)
	}
	m := &collector.MockFetcher{
		Quotes:   map[string]model.Quote{"UP": {Symbol: "UP", Price: 300}},
		Series:   map[string][]float64{"UP": closes},
		QuoteErr: quoteErr,
	}
	dir := t.TempDir()
	svc := screener.NewService(
		collector.NewCollector(m, "KRW", nil),
		store.NewSnapshotStore(filepath.Join(dir, "snapshot.json"), nil),
		export.NewExporter(filepath.Join(dir, "screen.csv")),
		nil, nil)
	n := &captureNotifier{}
	return NewScheduler(context.Background(), svc, n, nil), n
}

func TestRegister_InvalidCron(t *testing.T) {
	s, _ := newTestScheduler(t, nil)
	if err := s.Register("not a cron"); err == nil {
		t.Error("expected error for invalid expression")
	}
	if err := s.Register("0 */30 * * * *"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunNow_SendsReport(t *testing.T) {
	s, n := newTestScheduler(t, nil)
	s.RunNow()
	if len(n.sent) != 1 || !strings.Contains(n.sent[0], "Snapshot refreshed") {
		t.Errorf("unexpected notifications %v", n.sent)
	}
}

func TestRunNow_ReportsUpstreamFailure(t *testing.T) {
	s, n := newTestScheduler(t, &collector.UpstreamError{Endpoint: "ticker", Status: "5600"})
	s.RunNow()
	if len(n.sent) != 1 || !strings.Contains(n.sent[0], "Refresh failed") {
		t.Errorf("unexpected notifications %v", n.sent)
	}
}

func TestHandleCommand(t *testing.T) {
	s, _ := newTestScheduler(t, nil)
	ctx := context.Background()

	if got := s.HandleCommand(ctx, "/status"); !strings.Contains(got, "No snapshot yet") {
		t.Errorf("status before refresh: %q", got)
	}
	if got := s.HandleCommand(ctx, "/refresh"); !strings.Contains(got, "Symbols: 1") {
		t.Errorf("refresh: %q", got)
	}
	if got := s.HandleCommand(ctx, "/screen 3 0"); !strings.Contains(got, "UP/KRW") {
		t.Errorf("screen: %q", got)
	}
	if got := s.HandleCommand(ctx, "/screen 1"); !strings.Contains(got, "No matches.") {
		t.Errorf("screen near ma60: %q", got)
	}
	if got := s.HandleCommand(ctx, "/screen 9"); !strings.Contains(got, "unknown condition id 9") {
		t.Errorf("bad screen: %q", got)
	}
	if got := s.HandleCommand(ctx, "/STATUS"); !strings.Contains(got, "Generation: 1") {
		t.Errorf("status after refresh: %q", got)
	}
	if got := s.HandleCommand(ctx, "hello"); !strings.Contains(got, "Available commands") {
		t.Errorf("help: %q", got)
	}
}

func TestParseScreenArgs(t *testing.T) {
	tests := []struct {
		args    []string
		want    screener.FilterParams
		wantErr bool
	}{
		{args: []string{"2"}, want: screener.FilterParams{Condition: 2, RSIFloor: 50}},
		{args: []string{"4", "30.5", "12"}, want: screener.FilterParams{Condition: 4, RSIFloor: 30.5, MonthlyMin: 12}},
		{args: nil, wantErr: true},
		{args: []string{"x"}, wantErr: true},
		{args: []string{"5"}, wantErr: true},
		{args: []string{"1", "abc"}, wantErr: true},
		{args: []string{"1", "50", "-2"}, wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseScreenArgs(tt.args)
		if (err != nil) != tt.wantErr {
			t.Errorf("%v: unexpected error state: %v", tt.args, err)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("%v: got %+v, want %+v", tt.args, got, tt.want)
		}
	}
}
