package model

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Investor tracks one holder's stake in one fund. SettlementPrice is the fund
// accumulator value last observed by this investor; the accrual since then is
// (fund.SettlementPrice - investor.SettlementPrice) * share at last sync.
type Investor struct {
	ID      string `json:"id"`
	Fund    string `json:"fund"`
	Address string `json:"address"`

	Share        *big.Int `json:"share"`
	StakingShare *big.Int `json:"staking_share"`

	TotalInvestment         decimal.Decimal `json:"total_investment"`
	TotalInvestmentUSD      decimal.Decimal `json:"total_investment_usd"`
	TotalDepositedAmount    decimal.Decimal `json:"total_deposited_amount"`
	TotalDepositedAmountUSD decimal.Decimal `json:"total_deposited_amount_usd"`
	TotalWithdrawnAmount    decimal.Decimal `json:"total_withdrawn_amount"`
	TotalWithdrawnAmountUSD decimal.Decimal `json:"total_withdrawn_amount_usd"`
	LastDepositTime         uint64          `json:"last_deposit_time"`

	SettlementPrice    decimal.Decimal `json:"settlement_price"`
	TotalFees          decimal.Decimal `json:"total_fees"`
	TotalPendingFees   decimal.Decimal `json:"total_pending_fees"`
	TotalWithdrawnFees decimal.Decimal `json:"total_withdrawn_fees"`

	TotalProtocolFees    decimal.Decimal `json:"total_protocol_fees"`
	TotalProtocolFeesUSD decimal.Decimal `json:"total_protocol_fees_usd"`
}

// NewInvestor returns a zeroed investor for a (fund, holder) pair.
func NewInvestor(fund, holder string) *Investor {
	return &Investor{
		ID:           InvestorID(fund, holder),
		Fund:         fund,
		Address:      holder,
		Share:        big.NewInt(0),
		StakingShare: big.NewInt(0),
	}
}
