package ledger

import (
	"math"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"fundScope/internal/model"
)

var (
	fixedPointQ96  = new(big.Int).Lsh(big.NewInt(1), 96)
	fixedPointQ128 = new(big.Int).Lsh(big.NewInt(1), 128)
)

// ValuationParams carries the per-pool context shared by every position of
// one pool during a resync: current price state, global growth counters,
// token prices, and token precisions.
type ValuationParams struct {
	SqrtPriceX96 *big.Int
	TickCurrent  int32

	Global0X128 *uint256.Int
	Global1X128 *uint256.Int

	FundTokenPriceUSD decimal.Decimal
	Token0PriceUSD    decimal.Decimal
	Token1PriceUSD    decimal.Decimal
	Decimals0         uint8
	Decimals1         uint8
}

// FeeDelta is the outcome of one position fee computation: the per-side token
// amounts accrued since the last checkpoint, their USD and fund-token value,
// and the new checkpoint values the caller must store.
type FeeDelta struct {
	Fees0   decimal.Decimal
	Fees1   decimal.Decimal
	Fees    decimal.Decimal
	FeesUSD decimal.Decimal

	Inside0X128 *uint256.Int
	Inside1X128 *uint256.Int
}

// PositionFees computes the fees a position accrued since its stored
// checkpoints, given fresh tick-boundary snapshots. A zero checkpoint means
// the position has never been observed; it is seeded to the current
// growth-inside instead of producing a fee over an undefined baseline.
func PositionFees(params ValuationParams, position *model.Position, lower, upper TickOutside) FeeDelta {
	inside0, inside1 := GrowthInside(GrowthWindow{
		TickCurrent: params.TickCurrent,
		TickLower:   position.TickLower,
		TickUpper:   position.TickUpper,
		Global0X128: params.Global0X128,
		Global1X128: params.Global1X128,
		Lower:       lower,
		Upper:       upper,
	})

	last0 := valueOrZero(position.FeeGrowthInside0LastX128)
	last1 := valueOrZero(position.FeeGrowthInside1LastX128)
	if last0.IsZero() {
		last0 = inside0
	}
	if last1.IsZero() {
		last1 = inside1
	}

	fees0 := growthDeltaAmount(inside0, last0, position.Liquidity, params.Decimals0)
	fees1 := growthDeltaAmount(inside1, last1, position.Liquidity, params.Decimals1)

	feesUSD := fees0.Mul(params.Token0PriceUSD).Add(fees1.Mul(params.Token1PriceUSD))

	return FeeDelta{
		Fees0:   fees0,
		Fees1:   fees1,
		Fees:    safeDiv(feesUSD, params.FundTokenPriceUSD),
		FeesUSD: feesUSD,
		Inside0X128: inside0,
		Inside1X128: inside1,
	}
}

// growthDeltaAmount converts a wrapped growth delta into a token amount:
// (now - last) * liquidity / 2^128, scaled by the token precision.
func growthDeltaAmount(now, last *uint256.Int, liquidity *big.Int, decimals uint8) decimal.Decimal {
	if liquidity == nil || liquidity.Sign() == 0 {
		return decimal.Zero
	}
	delta := new(uint256.Int).Sub(now, last)
	raw := new(big.Int).Mul(delta.ToBig(), liquidity)
	raw.Div(raw, fixedPointQ128)
	return model.TokenAmount(raw, decimals)
}

// Valuation is the principal value currently represented by a position's
// liquidity, in both tokens, USD, and fund-token units.
type Valuation struct {
	Amount0   decimal.Decimal
	Amount1   decimal.Decimal
	Amount    decimal.Decimal
	AmountUSD decimal.Decimal
}

// PositionValue converts liquidity into token amounts using the three-regime
// range valuation: all token0 below the range, both sides inside, all token1
// at or above. Amounts round down, the direction that does not overstate a
// withdrawal.
func PositionValue(params ValuationParams, tickLower, tickUpper int32, liquidity *big.Int) Valuation {
	value := Valuation{}
	if liquidity == nil || liquidity.Sign() == 0 {
		return value
	}

	sqrtLower := SqrtRatioAtTick(tickLower)
	sqrtUpper := SqrtRatioAtTick(tickUpper)

	switch {
	case params.TickCurrent < tickLower:
		value.Amount0 = model.TokenAmount(amount0Delta(sqrtLower, sqrtUpper, liquidity), params.Decimals0)
	case params.TickCurrent < tickUpper:
		value.Amount0 = model.TokenAmount(amount0Delta(params.SqrtPriceX96, sqrtUpper, liquidity), params.Decimals0)
		value.Amount1 = model.TokenAmount(amount1Delta(sqrtLower, params.SqrtPriceX96, liquidity), params.Decimals1)
	default:
		value.Amount1 = model.TokenAmount(amount1Delta(sqrtLower, sqrtUpper, liquidity), params.Decimals1)
	}

	value.AmountUSD = value.Amount0.Mul(params.Token0PriceUSD).Add(value.Amount1.Mul(params.Token1PriceUSD))
	value.Amount = safeDiv(value.AmountUSD, params.FundTokenPriceUSD)
	return value
}

// SqrtRatioAtTick returns sqrt(1.0001^tick) in Q96 fixed point.
func SqrtRatioAtTick(tick int32) *big.Int {
	sqrtRatio := math.Sqrt(math.Pow(1.0001, float64(tick)))
	scaled := new(big.Float).Mul(big.NewFloat(sqrtRatio), new(big.Float).SetInt(fixedPointQ96))
	out, _ := scaled.Int(nil)
	return out
}

// amount0 = liquidity * 2^96 * (sqrtB - sqrtA) / sqrtB / sqrtA, rounded down.
func amount0Delta(sqrtA, sqrtB *big.Int, liquidity *big.Int) *big.Int {
	if sqrtA.Cmp(sqrtB) > 0 {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	if sqrtA.Sign() == 0 {
		return new(big.Int)
	}
	numerator := new(big.Int).Mul(liquidity, fixedPointQ96)
	numerator.Mul(numerator, new(big.Int).Sub(sqrtB, sqrtA))
	numerator.Div(numerator, sqrtB)
	return numerator.Div(numerator, sqrtA)
}

// amount1 = liquidity * (sqrtB - sqrtA) / 2^96, rounded down.
func amount1Delta(sqrtA, sqrtB *big.Int, liquidity *big.Int) *big.Int {
	if sqrtA.Cmp(sqrtB) > 0 {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	amount := new(big.Int).Mul(liquidity, new(big.Int).Sub(sqrtB, sqrtA))
	return amount.Div(amount, fixedPointQ96)
}

// ProportionFromX128 converts a Q128 fixed point fraction to a decimal.
func ProportionFromX128(value *big.Int) decimal.Decimal {
	if value == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(value, 0).DivRound(decimal.NewFromBigInt(fixedPointQ128, 0), 18)
}

// safeDiv divides n by d, defining division by zero as zero.
func safeDiv(n, d decimal.Decimal) decimal.Decimal {
	if d.IsZero() {
		return decimal.Zero
	}
	return n.DivRound(d, 18)
}
