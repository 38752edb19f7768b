package model

import "fmt"

// ConditionID selects one of the screening rules.
type ConditionID int

const (
	ConditionNearMA60    ConditionID = 1
	ConditionNearMA120   ConditionID = 2
	ConditionAlignment   ConditionID = 3
	ConditionExcludeWeak ConditionID = 4
)

// Filter defaults applied when a caller omits a parameter.
const (
	DefaultRSIFloor   = 50.0
	DefaultMonthlyMin = 0
)

// ParseConditionID validates a numeric rule identifier.
func ParseConditionID(n int) (ConditionID, error) {
	id := ConditionID(n)
	switch id {
	case ConditionNearMA60, ConditionNearMA120, ConditionAlignment, ConditionExcludeWeak:
		return id, nil
	}
	return 0, fmt.Errorf("unknown condition id %d", n)
}
