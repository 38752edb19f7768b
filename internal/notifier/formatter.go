package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"CoinScreener/internal/screener"
	"CoinScreener/internal/strategy"
)

// maxListedRows caps how many matches a screen reply lists.
const maxListedRows = 20

// FormatRefreshReport formats a successful snapshot refresh.
func FormatRefreshReport(res screener.RefreshResult) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>Snapshot refreshed</b> | %s\n\n", res.UpdatedAt.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Symbols: %d\n", res.Count))
	if res.Stats.Candidates > 0 {
		b.WriteString(fmt.Sprintf("Candidates: %d | Dropped: %d\n", res.Stats.Candidates, res.Stats.Dropped))
		b.WriteString(fmt.Sprintf("Took: %s\n", res.Stats.Duration.Round(time.Millisecond)))
	}
	b.WriteString(fmt.Sprintf("Generation: %d\n", res.Generation))
	return b.String()
}

// FormatRefreshFailure formats a failed refresh.
func FormatRefreshFailure(err error) string {
	if screener.IsUpstream(err) {
		return "❌ <b>Refresh failed</b>\n\nThe market data provider reported an error. The previous snapshot is kept."
	}
	return fmt.Sprintf("❌ <b>Refresh failed</b>\n\n%s", html.EscapeString(err.Error()))
}

// FormatScreenResult formats a filter result for chat.
func FormatScreenResult(p screener.FilterParams, res *screener.FilterResult) string {
	var b strings.Builder
	name := fmt.Sprintf("#%d", p.Condition)
	if c, ok := strategy.Lookup(p.Condition); ok {
		name = fmt.Sprintf("#%d %s", c.ID, c.Name)
	}
	b.WriteString(fmt.Sprintf("🔎 <b>Screen %s</b> | RSI ≥ %.0f", html.EscapeString(name), p.RSIFloor))
	if p.MonthlyMin > 0 {
		b.WriteString(fmt.Sprintf(" | months ≥ %d", p.MonthlyMin))
	}
	b.WriteString(fmt.Sprintf("\nSnapshot: %s\n\n", res.SnapshotUpdatedAt.Format("2006-01-02 15:04")))

	if res.Count == 0 {
		b.WriteString("No matches.")
		return b.String()
	}
	for i, r := range res.Rows {
		if i == maxListedRows {
			b.WriteString(fmt.Sprintf("… and %d more\n", res.Count-maxListedRows))
			break
		}
		rsi := "N/A"
		if r.RSI14 != nil {
			rsi = fmt.Sprintf("%.1f", *r.RSI14)
		}
		b.WriteString(fmt.Sprintf("• %s %g (RSI %s, %+.2f%%)\n", html.EscapeString(r.Market), r.Price, rsi, r.Change*100))
	}
	b.WriteString(fmt.Sprintf("\nTotal: %d", res.Count))
	return b.String()
}

// FormatStatus formats the cached snapshot state.
func FormatStatus(st screener.Status) string {
	if st.Generation == 0 {
		return "📦 No snapshot yet. Send /refresh to build one."
	}
	var b strings.Builder
	b.WriteString("📦 <b>Snapshot status</b>\n\n")
	b.WriteString(fmt.Sprintf("Updated: %s\n", st.UpdatedAt.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Symbols: %d\n", st.Count))
	b.WriteString(fmt.Sprintf("Generation: %d\n", st.Generation))
	if st.Building {
		b.WriteString("A refresh is running.\n")
	}
	if len(st.Recent) > 0 {
		b.WriteString("\nRecent refreshes:\n")
		for _, r := range st.Recent {
			outcome := fmt.Sprintf("%d symbols", r.Rows)
			if r.Err != "" {
				outcome = "failed"
			}
			b.WriteString(fmt.Sprintf("• %s %s: %s\n", r.StartedAt.Format("01-02 15:04"), html.EscapeString(r.Trigger), outcome))
		}
	}
	return b.String()
}

// FormatHelp lists the commands and screening conditions.
func FormatHelp() string {
	var b strings.Builder
	b.WriteString("Available commands:\n")
	b.WriteString("• /refresh\n")
	b.WriteString("• /screen &lt;id&gt; [rsiFloor] [monthlyMin]\n")
	b.WriteString("• /status\n\nConditions:\n")
	for _, c := range strategy.Conditions {
		b.WriteString(fmt.Sprintf("%d. %s: %s\n", c.ID, c.Name, html.EscapeString(c.Description)))
	}
	return b.String()
}
