package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Position is a fund-owned liquidity range in one pool. The tick range is
// immutable; liquidity and the growth checkpoints are refreshed on every
// fund resync.
type Position struct {
	ID            string      `json:"id"`
	Pool          string      `json:"pool"`
	Fund          string      `json:"fund"`
	PoolIndex     int         `json:"pool_index"`
	PositionIndex int         `json:"position_index"`
	PositionKey   common.Hash `json:"position_key"`
	TickLower     int32       `json:"tick_lower"`
	TickUpper     int32       `json:"tick_upper"`
	IsEmpty       bool        `json:"is_empty"`

	Liquidity                *big.Int     `json:"liquidity"`
	FeeGrowthInside0LastX128 *uint256.Int `json:"fee_growth_inside0_last_x128"`
	FeeGrowthInside1LastX128 *uint256.Int `json:"fee_growth_inside1_last_x128"`

	AssetAmount    decimal.Decimal `json:"asset_amount"`
	AssetAmountUSD decimal.Decimal `json:"asset_amount_usd"`
	AssetShare     decimal.Decimal `json:"asset_share"`
}
