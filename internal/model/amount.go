package model

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// TokenAmount converts a raw integer token amount to a decimal using the
// token's precision.
func TokenAmount(value *big.Int, decimals uint8) decimal.Decimal {
	if value == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(value, -int32(decimals))
}

// Uint256Amount converts a raw uint256 token amount to a decimal using the
// token's precision.
func Uint256Amount(value *uint256.Int, decimals uint8) decimal.Decimal {
	if value == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(value.ToBig(), -int32(decimals))
}
