package strategy

import "CoinScreener/internal/model"

// Condition is one selectable screening rule.
type Condition struct {
	ID          model.ConditionID
	Name        string
	Description string
	Match       func(*model.QuoteRow) bool
}

// Conditions is the closed rule set, indexed by id order.
var Conditions = []Condition{
	{
		ID:          model.ConditionNearMA60,
		Name:        "near-ma60",
		Description: "Price above MA60 by at most 5%",
		Match:       ruleNearMA60,
	},
	{
		ID:          model.ConditionNearMA120,
		Name:        "near-ma120",
		Description: "Price above MA120 by at most 5%",
		Match:       ruleNearMA120,
	},
	{
		ID:          model.ConditionAlignment,
		Name:        "alignment",
		Description: "MA20 > MA60, and MA60 > MA120 when MA120 exists",
		Match:       ruleAlignment,
	},
	{
		ID:          model.ConditionExcludeWeak,
		Name:        "exclude-weak",
		Description: "Drops rows under monthly MA120, 5% under every daily MA, or with descending MAs",
		Match:       ruleExcludeWeak,
	},
}

// Lookup returns the condition with the given id.
func Lookup(id model.ConditionID) (Condition, bool) {
	for _, c := range Conditions {
		if c.ID == id {
			return c, true
		}
	}
	return Condition{}, false
}

// Passes evaluates one rule against a row. Unknown ids never pass.
// The row is read only.
func Passes(row model.QuoteRow, id model.ConditionID) bool {
	c, ok := Lookup(id)
	if !ok {
		return false
	}
	return c.Match(&row)
}

// Gates are the numeric pre-filters applied before a rule.
type Gates struct {
	RSIFloor   float64
	MonthlyMin int // 0 disables
}

// DefaultGates returns the gates used when a caller supplies none.
func DefaultGates() Gates {
	return Gates{RSIFloor: model.DefaultRSIFloor, MonthlyMin: model.DefaultMonthlyMin}
}

// Allow reports whether a row clears both gates. A row without RSI never clears the floor.
func (g Gates) Allow(row model.QuoteRow) bool {
	if g.MonthlyMin > 0 && row.MonthlyCandleCount < g.MonthlyMin {
		return false
	}
	if row.RSI14 == nil || *row.RSI14 < g.RSIFloor {
		return false
	}
	return true
}

// Screen returns the rows that clear the gates and the rule, in input order.
func Screen(rows []model.QuoteRow, id model.ConditionID, gates Gates) []model.QuoteRow {
	out := make([]model.QuoteRow, 0)
	for _, r := range rows {
		if !gates.Allow(r) {
			continue
		}
		if Passes(r, id) {
			out = append(out, r)
		}
	}
	return out
}
