package model

// QuoteRow is the per-symbol record stored in a snapshot.
// Indicator fields are nil when the price history is too short for the period.
type QuoteRow struct {
	Symbol             string   `json:"symbol"`
	Market             string   `json:"market"`
	Price              float64  `json:"price"`
	Change             float64  `json:"change"`
	Volume             float64  `json:"volume"`
	RSI14              *float64 `json:"rsi14"`
	MA20               *float64 `json:"ma20"`
	MA60               *float64 `json:"ma60"`
	MA120              *float64 `json:"ma120"`
	MA240              *float64 `json:"ma240"`
	MA120Monthly       *float64 `json:"ma120Monthly"`
	MonthlyCandleCount int      `json:"monthlyCandleCount"`
}

// Float returns a pointer to v, for building optional indicator fields.
func Float(v float64) *float64 { return &v }
