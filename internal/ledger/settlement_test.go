package ledger

import (
	"testing"

	"github.com/shopspring/decimal"

	"fundScope/internal/model"
)

func dec(v int64) decimal.Decimal {
	return decimal.New(v, 0)
}

func TestAccrueFundAdvancesAccumulator(t *testing.T) {
	fund := &model.Fund{}

	price := AccrueFund(fund, dec(6), dec(3))

	if !price.Equal(dec(2)) {
		t.Fatalf("settlement price = %s, want 2", price)
	}
	if !fund.TotalFees.Equal(dec(6)) || !fund.TotalPendingFees.Equal(dec(6)) {
		t.Fatalf("fund fees = %s pending = %s, want 6/6", fund.TotalFees, fund.TotalPendingFees)
	}
}

func TestAccrueFundZeroSupply(t *testing.T) {
	fund := &model.Fund{SettlementPrice: dec(3)}

	price := AccrueFund(fund, dec(6), decimal.Zero)

	if !price.Equal(dec(3)) {
		t.Fatalf("settlement price = %s, want unchanged 3", price)
	}
	if !fund.TotalFees.Equal(dec(6)) {
		t.Fatalf("fee counters must still absorb the delta, got %s", fund.TotalFees)
	}
}

func TestSettlementIsProRata(t *testing.T) {
	fund := &model.Fund{}
	alice := &model.Investor{}
	bob := &model.Investor{}

	price := AccrueFund(fund, dec(6), dec(3))

	accruedAlice := SettleInvestor(alice, price, dec(1))
	accruedBob := SettleInvestor(bob, price, dec(2))

	if !accruedAlice.Equal(dec(2)) || !accruedBob.Equal(dec(4)) {
		t.Fatalf("accrued = (%s, %s), want (2, 4)", accruedAlice, accruedBob)
	}
	if !accruedAlice.Add(accruedBob).Equal(dec(6)) {
		t.Fatalf("settled total %s must equal the fund delta", accruedAlice.Add(accruedBob))
	}
}

func TestSettleInvestorIdempotentAtSamePrice(t *testing.T) {
	investor := &model.Investor{}

	SettleInvestor(investor, dec(2), dec(5))
	second := SettleInvestor(investor, dec(2), dec(5))

	if !second.IsZero() {
		t.Fatalf("re-settling at the same price accrued %s, want 0", second)
	}
}

func TestSettleWithdrawalTwoTerms(t *testing.T) {
	investor := &model.Investor{
		SettlementPrice:  dec(1),
		TotalFees:        dec(8),
		TotalPendingFees: dec(8),
	}

	// Price delta 0.5 over 4 shares, withdrawing 2 of them.
	settlement := SettleWithdrawal(investor, decimal.New(15, -1), dec(4), dec(2))

	if !settlement.Accrued.Equal(dec(2)) {
		t.Fatalf("accrued = %s, want 2", settlement.Accrued)
	}
	// 0.5*2 new fees on the withdrawn shares plus 8*2/4 of prior pending.
	if !settlement.Withdrawn.Equal(dec(5)) {
		t.Fatalf("withdrawn = %s, want 5", settlement.Withdrawn)
	}
	if !investor.TotalPendingFees.Equal(dec(5)) {
		t.Fatalf("pending = %s, want 8+2-5", investor.TotalPendingFees)
	}
	if !investor.TotalWithdrawnFees.Equal(investor.TotalFees.Sub(investor.TotalPendingFees)) {
		t.Fatalf("withdrawn fees %s must equal total minus pending", investor.TotalWithdrawnFees)
	}
}

func TestSettleWithdrawalFullExit(t *testing.T) {
	investor := &model.Investor{
		SettlementPrice:  dec(1),
		TotalPendingFees: dec(6),
		TotalFees:        dec(6),
	}

	settlement := SettleWithdrawal(investor, dec(2), dec(3), dec(3))

	// All pending plus the full new accrual leaves with the shares.
	if !settlement.Withdrawn.Equal(dec(9)) {
		t.Fatalf("withdrawn = %s, want 9", settlement.Withdrawn)
	}
	if !investor.TotalPendingFees.IsZero() {
		t.Fatalf("pending = %s, want 0 after full exit", investor.TotalPendingFees)
	}
}

func TestFundWithdrawnFeesInvariant(t *testing.T) {
	fund := &model.Fund{}

	AccrueFund(fund, dec(10), dec(5))
	ApplyFundWithdrawnFees(fund, dec(4))

	if !fund.TotalPendingFees.Equal(dec(6)) {
		t.Fatalf("pending = %s, want 6", fund.TotalPendingFees)
	}
	if !fund.TotalWithdrawnFees.Equal(fund.TotalFees.Sub(fund.TotalPendingFees)) {
		t.Fatalf("withdrawn %s must equal total %s minus pending %s",
			fund.TotalWithdrawnFees, fund.TotalFees, fund.TotalPendingFees)
	}
}

func TestProtocolFee(t *testing.T) {
	if got := ProtocolFee(dec(100), dec(60)); !got.Equal(dec(10)) {
		t.Fatalf("protocol fee = %s, want 10", got)
	}
	if got := ProtocolFee(dec(50), dec(60)); !got.IsZero() {
		t.Fatalf("protocol fee on a loss = %s, want 0", got)
	}
	if got := ProtocolFee(dec(60), dec(60)); !got.IsZero() {
		t.Fatalf("protocol fee at break-even = %s, want 0", got)
	}
}

func TestAggregateFeeDeltasMirrorFund(t *testing.T) {
	fund := &model.Fund{}
	summary := &model.FundSummary{}
	manager := &model.Manager{}

	AccrueFund(fund, dec(10), dec(5))
	ApplyFundWithdrawnFees(fund, dec(4))
	ApplyFeeDelta(summary, dec(10), dec(4))
	ApplyManagerFeeDelta(manager, dec(10), dec(4))

	if !summary.TotalPendingFees.Equal(fund.TotalPendingFees) {
		t.Fatalf("summary pending %s diverged from fund %s", summary.TotalPendingFees, fund.TotalPendingFees)
	}
	if !manager.TotalWithdrawnFees.Equal(fund.TotalWithdrawnFees) {
		t.Fatalf("manager withdrawn %s diverged from fund %s", manager.TotalWithdrawnFees, fund.TotalWithdrawnFees)
	}
}
