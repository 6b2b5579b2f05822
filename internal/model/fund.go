package model

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Fund is a vault entity. SettlementPrice is the fund-wide fees-per-share
// accumulator, denominated in the fund token; it only ever increases.
// TotalPendingFees must equal TotalFees - TotalWithdrawnFees after every write.
type Fund struct {
	Address   string `json:"address"`
	Manager   string `json:"manager"`
	FundToken string `json:"fund_token"`
	Decimals  uint8  `json:"decimals"`

	TotalSupply *big.Int `json:"total_supply"`
	PoolsLength int      `json:"pools_length"`

	Balance        decimal.Decimal `json:"balance"`
	TotalAssets    decimal.Decimal `json:"total_assets"`
	TotalAssetsUSD decimal.Decimal `json:"total_assets_usd"`

	TotalInvestment         decimal.Decimal `json:"total_investment"`
	TotalInvestmentUSD      decimal.Decimal `json:"total_investment_usd"`
	TotalDepositedAmount    decimal.Decimal `json:"total_deposited_amount"`
	TotalDepositedAmountUSD decimal.Decimal `json:"total_deposited_amount_usd"`
	TotalWithdrawnAmount    decimal.Decimal `json:"total_withdrawn_amount"`
	TotalWithdrawnAmountUSD decimal.Decimal `json:"total_withdrawn_amount_usd"`

	SettlementPrice    decimal.Decimal `json:"settlement_price"`
	TotalFees          decimal.Decimal `json:"total_fees"`
	TotalPendingFees   decimal.Decimal `json:"total_pending_fees"`
	TotalWithdrawnFees decimal.Decimal `json:"total_withdrawn_fees"`

	TotalProtocolFees    decimal.Decimal `json:"total_protocol_fees"`
	TotalProtocolFeesUSD decimal.Decimal `json:"total_protocol_fees_usd"`
}
