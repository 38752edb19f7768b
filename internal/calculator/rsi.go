package calculator

import "CoinScreener/internal/model"

// PeriodRSI is the default RSI lookback.
const PeriodRSI = 14

// RSI computes the Wilder-smoothed RSI of a newest-first series.
// Requires at least period+1 values, otherwise returns nil.
func RSI(series []float64, period int) *float64 {
	if period <= 0 || len(series) < period+1 {
		return nil
	}

	closes := Reverse(series)

	// Initial average gain/loss over the first `period` changes
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	// Wilder smoothing for remaining closes
	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return model.Float(100)
	}
	rs := avgGain / avgLoss
	return model.Float(100 - 100/(1+rs))
}
