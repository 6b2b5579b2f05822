package ledger

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"fundScope/internal/model"
)

func u256(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

func q128Times(n uint64) *uint256.Int {
	out := new(uint256.Int).Lsh(uint256.NewInt(1), 128)
	return out.Mul(out, uint256.NewInt(n))
}

func TestGrowthInsideCurrentInRange(t *testing.T) {
	inside0, inside1 := GrowthInside(GrowthWindow{
		TickCurrent: 0,
		TickLower:   -600,
		TickUpper:   600,
		Global0X128: u256(500),
		Global1X128: u256(800),
		Lower:       TickOutside{FeeGrowthOutside0X128: u256(100), FeeGrowthOutside1X128: u256(200)},
		Upper:       TickOutside{FeeGrowthOutside0X128: u256(50), FeeGrowthOutside1X128: u256(300)},
	})

	if !inside0.Eq(u256(350)) {
		t.Fatalf("inside0 = %s, want 350", inside0.Dec())
	}
	if !inside1.Eq(u256(300)) {
		t.Fatalf("inside1 = %s, want 300", inside1.Dec())
	}
}

func TestGrowthInsideCurrentBelowRange(t *testing.T) {
	// below = global - lowerOutside, above = upperOutside.
	inside0, _ := GrowthInside(GrowthWindow{
		TickCurrent: -1200,
		TickLower:   -600,
		TickUpper:   600,
		Global0X128: u256(500),
		Global1X128: u256(0),
		Lower:       TickOutside{FeeGrowthOutside0X128: u256(400)},
		Upper:       TickOutside{FeeGrowthOutside0X128: u256(50)},
	})

	if !inside0.Eq(u256(50)) {
		t.Fatalf("inside0 = %s, want 50", inside0.Dec())
	}
}

func TestGrowthInsideCurrentAboveRange(t *testing.T) {
	// below = lowerOutside, above = global - upperOutside.
	inside0, _ := GrowthInside(GrowthWindow{
		TickCurrent: 600,
		TickLower:   -600,
		TickUpper:   600,
		Global0X128: u256(1000),
		Global1X128: u256(0),
		Lower:       TickOutside{FeeGrowthOutside0X128: u256(100)},
		Upper:       TickOutside{FeeGrowthOutside0X128: u256(300)},
	})

	if !inside0.Eq(u256(200)) {
		t.Fatalf("inside0 = %s, want 200", inside0.Dec())
	}
}

func TestGrowthInsideWrapsBelowZero(t *testing.T) {
	// Outside snapshots can exceed the global counter; the difference must
	// wrap mod 2^256 instead of clamping or overflowing.
	inside0, _ := GrowthInside(GrowthWindow{
		TickCurrent: 0,
		TickLower:   -600,
		TickUpper:   600,
		Global0X128: u256(10),
		Global1X128: u256(0),
		Lower:       TickOutside{FeeGrowthOutside0X128: u256(100)},
		Upper:       TickOutside{FeeGrowthOutside0X128: u256(0)},
	})

	want := new(uint256.Int).Sub(u256(10), u256(100))
	if !inside0.Eq(want) {
		t.Fatalf("inside0 = %s, want %s", inside0.Dec(), want.Dec())
	}
}

func TestGrowthInsideNilCountersTreatedAsZero(t *testing.T) {
	inside0, inside1 := GrowthInside(GrowthWindow{
		TickCurrent: 0,
		TickLower:   -600,
		TickUpper:   600,
	})

	if !inside0.IsZero() || !inside1.IsZero() {
		t.Fatalf("inside = (%s, %s), want zero", inside0.Dec(), inside1.Dec())
	}
}

func TestPositionFeesSeedsZeroCheckpoint(t *testing.T) {
	params := ValuationParams{
		TickCurrent:       0,
		Global0X128:       q128Times(2),
		Global1X128:       q128Times(3),
		FundTokenPriceUSD: decimal.New(1, 0),
		Token0PriceUSD:    decimal.New(1, 0),
		Token1PriceUSD:    decimal.New(1, 0),
		Decimals0:         6,
		Decimals1:         6,
	}
	position := &model.Position{
		TickLower: -600,
		TickUpper: 600,
		Liquidity: big.NewInt(1_000_000),
	}

	fees := PositionFees(params, position, TickOutside{}, TickOutside{})

	if !fees.Fees0.IsZero() || !fees.Fees1.IsZero() {
		t.Fatalf("first observation must accrue nothing, got fees0=%s fees1=%s", fees.Fees0, fees.Fees1)
	}
	if !fees.Inside0X128.Eq(q128Times(2)) {
		t.Fatalf("checkpoint0 = %s, want current growth-inside", fees.Inside0X128.Dec())
	}
	if !fees.Inside1X128.Eq(q128Times(3)) {
		t.Fatalf("checkpoint1 = %s, want current growth-inside", fees.Inside1X128.Dec())
	}
}

func TestPositionFeesAccruesSinceCheckpoint(t *testing.T) {
	params := ValuationParams{
		TickCurrent:       0,
		Global0X128:       q128Times(2),
		Global1X128:       q128Times(5),
		FundTokenPriceUSD: decimal.New(4, 0),
		Token0PriceUSD:    decimal.New(2, 0),
		Token1PriceUSD:    decimal.New(1, 0),
		Decimals0:         6,
		Decimals1:         6,
	}
	position := &model.Position{
		TickLower:                -600,
		TickUpper:                600,
		Liquidity:                big.NewInt(1_000_000),
		FeeGrowthInside0LastX128: q128Times(1),
		FeeGrowthInside1LastX128: q128Times(5),
	}

	fees := PositionFees(params, position, TickOutside{}, TickOutside{})

	// Side 0 grew by exactly one Q128 unit per unit liquidity: one raw token
	// per liquidity unit, 1.0 at six decimals.
	if !fees.Fees0.Equal(decimal.New(1, 0)) {
		t.Fatalf("fees0 = %s, want 1", fees.Fees0)
	}
	if !fees.Fees1.IsZero() {
		t.Fatalf("fees1 = %s, want 0", fees.Fees1)
	}
	if !fees.FeesUSD.Equal(decimal.New(2, 0)) {
		t.Fatalf("feesUSD = %s, want 2", fees.FeesUSD)
	}
	if !fees.Fees.Equal(decimal.New(5, -1)) {
		t.Fatalf("fees = %s, want 0.5 fund tokens", fees.Fees)
	}
}

func TestPositionFeesSurvivesCheckpointWraparound(t *testing.T) {
	// A checkpoint near 2^256 and a wrapped current value still yield the
	// true small delta.
	nearMax := new(uint256.Int).Sub(new(uint256.Int), q128Times(1))

	params := ValuationParams{
		TickCurrent:       0,
		Global0X128:       q128Times(1),
		Global1X128:       u256(0),
		FundTokenPriceUSD: decimal.New(1, 0),
		Token0PriceUSD:    decimal.New(1, 0),
		Token1PriceUSD:    decimal.New(1, 0),
		Decimals0:         6,
		Decimals1:         6,
	}
	position := &model.Position{
		TickLower:                -600,
		TickUpper:                600,
		Liquidity:                big.NewInt(500_000),
		FeeGrowthInside0LastX128: nearMax,
		FeeGrowthInside1LastX128: u256(1),
	}

	fees := PositionFees(params, position, TickOutside{}, TickOutside{})

	// inside - last = 2^128 - (2^256 - 2^128) = 2*2^128 mod 2^256, so two raw
	// tokens per liquidity unit.
	if !fees.Fees0.Equal(decimal.New(1, 0)) {
		t.Fatalf("fees0 = %s, want 1", fees.Fees0)
	}
}
