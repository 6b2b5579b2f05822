package model

import "github.com/shopspring/decimal"

// Pool is a fund-owned reference to a V3 pool. Created lazily the first time
// the fund opens a position against a previously-unseen pool.
type Pool struct {
	ID              string          `json:"id"`
	Fund            string          `json:"fund"`
	Address         string          `json:"address"`
	Token0          string          `json:"token0"`
	Token1          string          `json:"token1"`
	Fee             uint32          `json:"fee"`
	PositionsLength int             `json:"positions_length"`
	AssetAmount     decimal.Decimal `json:"asset_amount"`
	AssetAmountUSD  decimal.Decimal `json:"asset_amount_usd"`
	AssetShare      decimal.Decimal `json:"asset_share"`
}
