package ledger

import "github.com/holiman/uint256"

// GrowthWindow bundles the inputs of the fee-growth-inside computation for
// one position range: the pool's global counters, the two tick-boundary
// snapshots, and the tick coordinates.
type GrowthWindow struct {
	TickCurrent int32
	TickLower   int32
	TickUpper   int32

	Global0X128 *uint256.Int
	Global1X128 *uint256.Int
	Lower       TickOutside
	Upper       TickOutside
}

// GrowthInside returns the fee growth accrued strictly inside the tick range
// for each token side. All counters are unsigned Q128 accumulators that wrap
// at 2^256; subtraction must wrap the same way, which uint256 arithmetic does
// natively. The result is always in [0, 2^256).
func GrowthInside(w GrowthWindow) (*uint256.Int, *uint256.Int) {
	inside0 := growthInsideSide(w.Global0X128, w.Lower.FeeGrowthOutside0X128, w.Upper.FeeGrowthOutside0X128, w.TickCurrent, w.TickLower, w.TickUpper)
	inside1 := growthInsideSide(w.Global1X128, w.Lower.FeeGrowthOutside1X128, w.Upper.FeeGrowthOutside1X128, w.TickCurrent, w.TickLower, w.TickUpper)
	return inside0, inside1
}

func growthInsideSide(global, lowerOutside, upperOutside *uint256.Int, tickCurrent, tickLower, tickUpper int32) *uint256.Int {
	global = valueOrZero(global)
	lowerOutside = valueOrZero(lowerOutside)
	upperOutside = valueOrZero(upperOutside)

	below := new(uint256.Int)
	if tickCurrent >= tickLower {
		below.Set(lowerOutside)
	} else {
		below.Sub(global, lowerOutside)
	}

	above := new(uint256.Int)
	if tickCurrent < tickUpper {
		above.Set(upperOutside)
	} else {
		above.Sub(global, upperOutside)
	}

	inside := new(uint256.Int).Sub(global, below)
	inside.Sub(inside, above)
	return inside
}

func valueOrZero(value *uint256.Int) *uint256.Int {
	if value == nil {
		return new(uint256.Int)
	}
	return value
}
