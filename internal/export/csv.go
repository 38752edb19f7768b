package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"CoinScreener/internal/model"

	"github.com/shopspring/decimal"
)

// Missing is written in place of an absent indicator.
const Missing = "N/A"

// Header is the fixed column row of every export.
var Header = []string{
	"Market", "Price", "RSI14",
	"MA20(D)", "MA60(D)", "MA120(D)", "MA240(D)", "MA120(M)",
	"MonthlyCandles",
}

// WriteCSV renders rows with RSI at 2 decimals and moving averages at 0 decimals.
func WriteCSV(w io.Writer, rows []model.QuoteRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(record(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func record(r model.QuoteRow) []string {
	return []string{
		r.Market,
		strconv.FormatFloat(r.Price, 'f', -1, 64),
		fixed(r.RSI14, 2),
		fixed(r.MA20, 0),
		fixed(r.MA60, 0),
		fixed(r.MA120, 0),
		fixed(r.MA240, 0),
		fixed(r.MA120Monthly, 0),
		strconv.Itoa(r.MonthlyCandleCount),
	}
}

func fixed(v *float64, places int32) string {
	if v == nil {
		return Missing
	}
	return decimal.NewFromFloat(*v).StringFixed(places)
}
