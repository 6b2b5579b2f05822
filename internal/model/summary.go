package model

import "github.com/shopspring/decimal"

// FundSummary rolls up fee and asset totals across every fund. It is updated
// with the exact deltas applied to the owning fund in the same handler, never
// recomputed independently.
type FundSummary struct {
	Funds []string `json:"funds"`

	TotalFees            decimal.Decimal `json:"total_fees"`
	TotalPendingFees     decimal.Decimal `json:"total_pending_fees"`
	TotalWithdrawnFees   decimal.Decimal `json:"total_withdrawn_fees"`
	TotalInvestmentUSD   decimal.Decimal `json:"total_investment_usd"`
	TotalAssetsUSD       decimal.Decimal `json:"total_assets_usd"`
	TotalProtocolFeesUSD decimal.Decimal `json:"total_protocol_fees_usd"`
}

// HarvestSummary rolls up protocol fee harvests.
type HarvestSummary struct {
	TxCount        uint64          `json:"tx_count"`
	TotalBurned    decimal.Decimal `json:"total_burned"`
	TotalAmountUSD decimal.Decimal `json:"total_amount_usd"`
}

// Aggregates is the process-wide aggregate state threaded explicitly through
// the handlers instead of being loaded by a magic singleton key.
type Aggregates struct {
	FundSummary    FundSummary
	HarvestSummary HarvestSummary
}

// Manager rolls up totals across one manager's funds.
type Manager struct {
	Address string `json:"address"`

	TotalFees          decimal.Decimal `json:"total_fees"`
	TotalPendingFees   decimal.Decimal `json:"total_pending_fees"`
	TotalWithdrawnFees decimal.Decimal `json:"total_withdrawn_fees"`
	TotalInvestmentUSD decimal.Decimal `json:"total_investment_usd"`
	TotalAssetsUSD     decimal.Decimal `json:"total_assets_usd"`
}

// InvestorSummary rolls up one holder's totals across funds.
type InvestorSummary struct {
	Address              string          `json:"address"`
	TotalInvestmentUSD   decimal.Decimal `json:"total_investment_usd"`
	TotalProtocolFeesUSD decimal.Decimal `json:"total_protocol_fees_usd"`
	CreatedTimestamp     uint64          `json:"created_timestamp"`
	CreatedBlock         uint64          `json:"created_block"`
}
