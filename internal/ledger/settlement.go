package ledger

import (
	"github.com/shopspring/decimal"

	"fundScope/internal/model"
)

// protocolFeeDivisor implements the flat performance fee on withdrawal
// profit: excess / 4, i.e. profit/0.8*0.2.
var protocolFeeDivisor = decimal.New(4, 0)

// AccrueFund folds a fund-wide fee delta into the fund's per-share
// accumulator and fee counters. totalShare is the share supply outstanding
// before the triggering event; a zero supply yields a zero increment.
// The returned value is the advanced settlement price investors sync to.
func AccrueFund(fund *model.Fund, deltaFees, totalShare decimal.Decimal) decimal.Decimal {
	increment := decimal.Zero
	if totalShare.IsPositive() {
		increment = deltaFees.DivRound(totalShare, 18)
	}
	fund.SettlementPrice = fund.SettlementPrice.Add(increment)
	fund.TotalFees = fund.TotalFees.Add(deltaFees)
	fund.TotalPendingFees = fund.TotalPendingFees.Add(deltaFees)
	return fund.SettlementPrice
}

// SettleInvestor credits an investor with the fees accrued since their last
// sync and advances their checkpoint. share is the investor's share balance
// at the time of the prior sync, so this must run before any balance change.
// Returns the accrued amount.
func SettleInvestor(investor *model.Investor, settlementPrice, share decimal.Decimal) decimal.Decimal {
	accrued := settlementPrice.Sub(investor.SettlementPrice).Mul(share)
	investor.SettlementPrice = settlementPrice
	investor.TotalFees = investor.TotalFees.Add(accrued)
	investor.TotalPendingFees = investor.TotalPendingFees.Add(accrued)
	investor.TotalWithdrawnFees = investor.TotalFees.Sub(investor.TotalPendingFees)
	return accrued
}

// WithdrawalSettlement is the outcome of settling an outbound share change.
type WithdrawalSettlement struct {
	// Accrued is the full catch-up credit since the last sync.
	Accrued decimal.Decimal
	// Withdrawn is the portion of fees leaving pending along with the
	// withdrawn shares.
	Withdrawn decimal.Decimal
}

// SettleWithdrawal settles an investor losing withdrawnShare of their share
// shares: the catch-up credit is applied, and a proportional slice of pending
// fees moves to withdrawn. Both terms use the checkpoint delta observed
// before this call, so it must run before the balance change. Applies to
// withdrawals and to the outbound leg of a transfer alike.
func SettleWithdrawal(investor *model.Investor, settlementPrice, share, withdrawnShare decimal.Decimal) WithdrawalSettlement {
	priceDelta := settlementPrice.Sub(investor.SettlementPrice)
	accrued := priceDelta.Mul(share)

	withdrawn := priceDelta.Mul(withdrawnShare)
	if share.IsPositive() {
		withdrawn = withdrawn.Add(investor.TotalPendingFees.Mul(withdrawnShare).DivRound(share, 18))
	}

	investor.SettlementPrice = settlementPrice
	investor.TotalFees = investor.TotalFees.Add(accrued)
	investor.TotalPendingFees = investor.TotalPendingFees.Add(accrued).Sub(withdrawn)
	investor.TotalWithdrawnFees = investor.TotalFees.Sub(investor.TotalPendingFees)

	return WithdrawalSettlement{Accrued: accrued, Withdrawn: withdrawn}
}

// ApplyFundWithdrawnFees moves a withdrawn-fee slice from pending to
// withdrawn at the fund level, after AccrueFund folded in the delta.
func ApplyFundWithdrawnFees(fund *model.Fund, withdrawnFees decimal.Decimal) {
	fund.TotalPendingFees = fund.TotalPendingFees.Sub(withdrawnFees)
	fund.TotalWithdrawnFees = fund.TotalFees.Sub(fund.TotalPendingFees)
}

// ProtocolFee computes the performance fee charged when withdrawn principal
// exceeds the cost basis being retired. Flat 25% of the excess; zero when
// there is no profit.
func ProtocolFee(withdrawnAmount, retiredInvestment decimal.Decimal) decimal.Decimal {
	if withdrawnAmount.Cmp(retiredInvestment) <= 0 {
		return decimal.Zero
	}
	return withdrawnAmount.Sub(retiredInvestment).DivRound(protocolFeeDivisor, 18)
}

// ApplyFeeDelta folds the same fee delta and withdrawn-fee slice applied to a
// fund into an aggregate roll-up, keeping leaf and aggregate in lockstep.
func ApplyFeeDelta(summary *model.FundSummary, deltaFees, withdrawnFees decimal.Decimal) {
	summary.TotalFees = summary.TotalFees.Add(deltaFees)
	summary.TotalPendingFees = summary.TotalPendingFees.Add(deltaFees).Sub(withdrawnFees)
	summary.TotalWithdrawnFees = summary.TotalFees.Sub(summary.TotalPendingFees)
}

// ApplyManagerFeeDelta mirrors ApplyFeeDelta for a manager roll-up.
func ApplyManagerFeeDelta(manager *model.Manager, deltaFees, withdrawnFees decimal.Decimal) {
	manager.TotalFees = manager.TotalFees.Add(deltaFees)
	manager.TotalPendingFees = manager.TotalPendingFees.Add(deltaFees).Sub(withdrawnFees)
	manager.TotalWithdrawnFees = manager.TotalFees.Sub(manager.TotalPendingFees)
}
