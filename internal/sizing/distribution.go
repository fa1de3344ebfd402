package sizing

import (
	"math"

	"github.com/shopspring/decimal"
)

// DistributionTotal is the parts-per-billion total of a distribution hint.
const DistributionTotal int64 = 1_000_000_000

// DistributionHint maps a YES probability to the (yes, no) integer split
// seeded into a new AMM market. The NO part is derived from pYes first and YES
// takes the remainder; contract callers depend on that ordering.
// A nil or NaN probability is treated as 0.5.
func DistributionHint(pYes *float64) (yes, no int64) {
	p := 0.5
	if pYes != nil && !math.IsNaN(*pYes) {
		p = clamp(*pYes, 0, 1)
	}
	// Round the float product itself, half away from zero.
	no = decimal.NewFromFloat(float64(DistributionTotal) * p).Round(0).IntPart()
	return DistributionTotal - no, no
}
