package ledger

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func TestSqrtRatioAtTickZero(t *testing.T) {
	got := SqrtRatioAtTick(0)
	if got.Cmp(fixedPointQ96) != 0 {
		t.Fatalf("sqrt ratio at tick 0 = %s, want 2^96", got)
	}
}

func TestSqrtRatioAtTickMonotonic(t *testing.T) {
	prev := SqrtRatioAtTick(-1200)
	for _, tick := range []int32{-600, 0, 600, 1200} {
		next := SqrtRatioAtTick(tick)
		if next.Cmp(prev) <= 0 {
			t.Fatalf("sqrt ratio not increasing at tick %d", tick)
		}
		prev = next
	}
}

func TestAmount0Delta(t *testing.T) {
	sqrtA := new(big.Int).Set(fixedPointQ96)
	sqrtB := new(big.Int).Lsh(fixedPointQ96, 1)

	// L * 2^96 * (2*2^96 - 2^96) / (2*2^96) / 2^96 = L/2.
	got := amount0Delta(sqrtA, sqrtB, big.NewInt(4))
	if got.Cmp(big.NewInt(2)) != 0 {
		t.Fatalf("amount0 = %s, want 2", got)
	}

	// Argument order must not matter.
	swapped := amount0Delta(sqrtB, sqrtA, big.NewInt(4))
	if swapped.Cmp(got) != 0 {
		t.Fatalf("amount0 depends on argument order: %s != %s", swapped, got)
	}
}

func TestAmount1Delta(t *testing.T) {
	sqrtA := new(big.Int).Set(fixedPointQ96)
	sqrtB := new(big.Int).Lsh(fixedPointQ96, 1)

	// L * (2*2^96 - 2^96) / 2^96 = L.
	got := amount1Delta(sqrtA, sqrtB, big.NewInt(5))
	if got.Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("amount1 = %s, want 5", got)
	}
}

func valuationTestParams(tick int32) ValuationParams {
	return ValuationParams{
		SqrtPriceX96:      SqrtRatioAtTick(tick),
		TickCurrent:       tick,
		FundTokenPriceUSD: decimal.New(1, 0),
		Token0PriceUSD:    decimal.New(1, 0),
		Token1PriceUSD:    decimal.New(1, 0),
		Decimals0:         18,
		Decimals1:         18,
	}
}

func TestPositionValueBelowRange(t *testing.T) {
	liquidity, _ := new(big.Int).SetString("1000000000000000000", 10)
	value := PositionValue(valuationTestParams(-1200), -600, 600, liquidity)

	if !value.Amount0.IsPositive() {
		t.Fatalf("amount0 = %s, want positive", value.Amount0)
	}
	if !value.Amount1.IsZero() {
		t.Fatalf("amount1 = %s, want zero below range", value.Amount1)
	}
}

func TestPositionValueInRange(t *testing.T) {
	liquidity, _ := new(big.Int).SetString("1000000000000000000", 10)
	value := PositionValue(valuationTestParams(0), -600, 600, liquidity)

	if !value.Amount0.IsPositive() || !value.Amount1.IsPositive() {
		t.Fatalf("amounts = (%s, %s), want both positive in range", value.Amount0, value.Amount1)
	}

	// At tick 0 a symmetric range holds near-equal token amounts.
	diff := value.Amount0.Sub(value.Amount1).Abs()
	if diff.Cmp(value.Amount0.Mul(decimal.New(1, -2))) > 0 {
		t.Fatalf("amounts should be near-equal at the range midpoint: %s vs %s", value.Amount0, value.Amount1)
	}
}

func TestPositionValueAboveRange(t *testing.T) {
	liquidity, _ := new(big.Int).SetString("1000000000000000000", 10)
	value := PositionValue(valuationTestParams(600), -600, 600, liquidity)

	if !value.Amount0.IsZero() {
		t.Fatalf("amount0 = %s, want zero at or above range", value.Amount0)
	}
	if !value.Amount1.IsPositive() {
		t.Fatalf("amount1 = %s, want positive", value.Amount1)
	}
}

func TestPositionValueRangeBoundaries(t *testing.T) {
	liquidity, _ := new(big.Int).SetString("1000000000000000000", 10)

	// The lower bound tick is in range. The sqrt price sits strictly
	// between ratio(-600) and ratio(-599) so the position holds a
	// sliver of token1 on top of the token0 side.
	params := valuationTestParams(-600)
	params.SqrtPriceX96 = new(big.Int).Add(SqrtRatioAtTick(-600), SqrtRatioAtTick(-599))
	params.SqrtPriceX96.Rsh(params.SqrtPriceX96, 1)
	value := PositionValue(params, -600, 600, liquidity)
	if !value.Amount0.IsPositive() || !value.Amount1.IsPositive() {
		t.Fatalf("amounts at lower bound = (%s, %s), want both positive", value.Amount0, value.Amount1)
	}

	// The last tick before the upper bound is still in range.
	value = PositionValue(valuationTestParams(599), -600, 600, liquidity)
	if !value.Amount0.IsPositive() || !value.Amount1.IsPositive() {
		t.Fatalf("amounts at tick 599 = (%s, %s), want both positive", value.Amount0, value.Amount1)
	}

	// The upper bound tick itself is out of range.
	value = PositionValue(valuationTestParams(600), -600, 600, liquidity)
	if !value.Amount0.IsZero() {
		t.Fatalf("amount0 at upper bound = %s, want zero", value.Amount0)
	}
	if !value.Amount1.IsPositive() {
		t.Fatalf("amount1 at upper bound = %s, want positive", value.Amount1)
	}
}

func TestPositionValueZeroLiquidity(t *testing.T) {
	value := PositionValue(valuationTestParams(0), -600, 600, nil)
	if !value.Amount.IsZero() || !value.AmountUSD.IsZero() {
		t.Fatalf("zero liquidity must value at zero, got %+v", value)
	}
}

func TestPositionValueUSDConversion(t *testing.T) {
	params := valuationTestParams(600)
	params.Token1PriceUSD = decimal.New(3, 0)
	params.FundTokenPriceUSD = decimal.New(2, 0)

	liquidity, _ := new(big.Int).SetString("1000000000000000000", 10)
	value := PositionValue(params, -600, 600, liquidity)

	wantUSD := value.Amount1.Mul(decimal.New(3, 0))
	if !value.AmountUSD.Equal(wantUSD) {
		t.Fatalf("amountUSD = %s, want %s", value.AmountUSD, wantUSD)
	}
	wantFund := wantUSD.DivRound(decimal.New(2, 0), 18)
	if !value.Amount.Equal(wantFund) {
		t.Fatalf("amount = %s, want %s", value.Amount, wantFund)
	}
}

func TestProportionFromX128(t *testing.T) {
	half := new(big.Int).Lsh(big.NewInt(1), 127)
	if got := ProportionFromX128(half); !got.Equal(decimal.New(5, -1)) {
		t.Fatalf("proportion = %s, want 0.5", got)
	}
	if got := ProportionFromX128(nil); !got.IsZero() {
		t.Fatalf("nil proportion = %s, want 0", got)
	}
	whole := new(big.Int).Lsh(big.NewInt(1), 128)
	if got := ProportionFromX128(whole); !got.Equal(decimal.New(1, 0)) {
		t.Fatalf("proportion = %s, want 1", got)
	}
}

func TestSafeDivZeroDenominator(t *testing.T) {
	if got := safeDiv(decimal.New(7, 0), decimal.Zero); !got.IsZero() {
		t.Fatalf("safeDiv by zero = %s, want 0", got)
	}
}
