package strategy

import "CoinScreener/internal/model"

// nearBand is how far above an average the price may sit and still count as "near" it.
const nearBand = 1.05

// selloffRatio marks a deep selloff when price is at or under this share of every average.
const selloffRatio = 0.95

// nearAbove reports whether price is above avg but within nearBand of it.
func nearAbove(price float64, avg *float64) bool {
	if avg == nil {
		return false
	}
	return price > *avg && price <= *avg*nearBand
}

func ruleNearMA60(r *model.QuoteRow) bool  { return nearAbove(r.Price, r.MA60) }
func ruleNearMA120(r *model.QuoteRow) bool { return nearAbove(r.Price, r.MA120) }

// ruleAlignment requires ma20 > ma60, and ma60 > ma120 when ma120 exists.
func ruleAlignment(r *model.QuoteRow) bool {
	if r.MA20 == nil || r.MA60 == nil {
		return false
	}
	if *r.MA20 <= *r.MA60 {
		return false
	}
	if r.MA120 != nil && *r.MA60 <= *r.MA120 {
		return false
	}
	return true
}

// ruleExcludeWeak rejects rows under the monthly average, in a deep selloff
// across every daily average, or with daily averages stacked in descending order.
func ruleExcludeWeak(r *model.QuoteRow) bool {
	if r.MA120Monthly != nil && r.Price <= *r.MA120Monthly {
		return false
	}
	if deepSelloff(r) {
		return false
	}
	if descendingStack(r) {
		return false
	}
	return true
}

func deepSelloff(r *model.QuoteRow) bool {
	avgs := []*float64{r.MA20, r.MA60, r.MA120, r.MA240}
	for _, a := range avgs {
		if a == nil || r.Price > *a*selloffRatio {
			return false
		}
	}
	return true
}

// descendingStack reports ma20 < ma60 < ma120, extended to ma240 when present.
func descendingStack(r *model.QuoteRow) bool {
	if r.MA20 == nil || r.MA60 == nil || r.MA120 == nil {
		return false
	}
	if !(*r.MA20 < *r.MA60 && *r.MA60 < *r.MA120) {
		return false
	}
	if r.MA240 != nil && !(*r.MA120 < *r.MA240) {
		return false
	}
	return true
}
