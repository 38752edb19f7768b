package calculator

import "CoinScreener/internal/model"

// MonthlyStride is the number of daily closes between two monthly proxy samples.
const MonthlyStride = 30

// Moving average periods stored on every row.
const (
	PeriodMA20  = 20
	PeriodMA60  = 60
	PeriodMA120 = 120
	PeriodMA240 = 240
)

// MovingAverage returns the simple average of the first period values of a newest-first series.
// It returns nil when the series holds fewer than period values.
func MovingAverage(series []float64, period int) *float64 {
	if period <= 0 || len(series) < period {
		return nil
	}
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += series[i]
	}
	return model.Float(sum / float64(period))
}

// MonthlyProxy samples every MonthlyStride-th close of a newest-first daily series,
// starting with the newest close. It approximates monthly closes without a monthly feed.
func MonthlyProxy(daily []float64) []float64 {
	if len(daily) == 0 {
		return nil
	}
	out := make([]float64, 0, (len(daily)+MonthlyStride-1)/MonthlyStride)
	for i := 0; i < len(daily); i += MonthlyStride {
		out = append(out, daily[i])
	}
	return out
}

// Reverse returns a reversed copy of s.
func Reverse(s []float64) []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		out[len(s)-1-i] = v
	}
	return out
}
