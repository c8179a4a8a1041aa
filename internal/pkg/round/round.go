package round

import (
	"math"

	"github.com/shopspring/decimal"
)

func fromFloat(val float64) decimal.Decimal {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(val)
}

// Price rounds to 2 decimal places, the precision used for stops, targets
// and realized PnL throughout the engine.
func Price(val float64) float64 {
	f, _ := fromFloat(val).Round(2).Float64()
	return f
}

// Qty rounds a position quantity to 4 decimal places.
func Qty(val float64) float64 {
	f, _ := fromFloat(val).Round(4).Float64()
	return f
}

// Pct rounds a percentage to 1 decimal place.
func Pct(val float64) float64 {
	f, _ := fromFloat(val).Round(1).Float64()
	return f
}

func compare(a, b float64) int {
	return fromFloat(a).Cmp(fromFloat(b))
}

// GTE and LTE compare prices without float drift; stop-trigger checks use
// these so a stop set from the same arithmetic as the bar price compares
// equal instead of missing by one ulp.
func GTE(a, b float64) bool { return compare(a, b) >= 0 }

func LTE(a, b float64) bool { return compare(a, b) <= 0 }
