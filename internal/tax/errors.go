package tax

import (
	"errors"
	"fmt"
)

// ErrSpecificLotsRequired is returned when the specific_id method is
// requested without an ordered list of lot ids. The engine never falls back
// to another method.
var ErrSpecificLotsRequired = errors.New("specific lot IDs required for specific_id method")

// InsufficientLotsError reports a disposal whose quantity exceeds what the
// available open lots can satisfy under the chosen method. Requested and
// Available carry enough data for an actionable upstream message.
type InsufficientLotsError struct {
	MarketID  string
	Outcome   Outcome
	Method    CostBasisMethod
	Requested float64
	Available float64
}

func (e *InsufficientLotsError) Error() string {
	if e.MarketID != "" {
		return fmt.Sprintf("insufficient lots for %s:%s (%s): need %g, found %g",
			e.MarketID, e.Outcome, e.Method, e.Requested, e.Available)
	}
	return fmt.Sprintf("insufficient lots (%s): need %g, found %g", e.Method, e.Requested, e.Available)
}
