package risk

import "errors"

var (
	ErrInvalidPointValue   = errors.New("point value must be > 0")
	ErrNonPositiveUnitRisk = errors.New("unit risk must be > 0")
	ErrInvalidRiskBudget   = errors.New("max risk must be > 0")
)
