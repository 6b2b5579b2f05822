package handler

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"fundScope/internal/ledger"
	"fundScope/internal/model"
)

// HandleDeposit settles an investor's pending fees at the pre-deposit share
// balance, then applies the new shares and principal.
func (d *Dispatcher) HandleDeposit(ctx context.Context, event *model.DepositEvent) error {
	fund, fundToken, price, err := d.fundContext(ctx, event.Fund)
	if err != nil {
		return err
	}

	amount := model.TokenAmount(event.Amount, fundToken.Decimals)
	amountUSD := amount.Mul(price)

	if err := d.driver.SyncFundStatus(ctx, fund, fundToken, price); err != nil {
		return err
	}
	fund.TotalSupply, err = d.reader.TotalSupply(ctx, event.Fund)
	if err != nil {
		return fmt.Errorf("fund total supply: %w", err)
	}
	totalInvestment, err := d.reader.TotalInvestment(ctx, event.Fund)
	if err != nil {
		return fmt.Errorf("fund total investment: %w", err)
	}
	fund.TotalInvestment = model.TokenAmount(totalInvestment, fundToken.Decimals)
	fund.TotalInvestmentUSD = fund.TotalInvestmentUSD.Add(amountUSD)
	fund.TotalDepositedAmount = fund.TotalDepositedAmount.Add(amount)
	fund.TotalDepositedAmountUSD = fund.TotalDepositedAmountUSD.Add(amountUSD)

	deltaFees, err := d.driver.SyncFundPools(ctx, fund, fundToken, price)
	if err != nil {
		return err
	}
	// Accrue over the share supply as it stood before this deposit minted.
	totalShare := model.TokenAmount(new(big.Int).Sub(fund.TotalSupply, event.Share), fund.Decimals)
	ledger.AccrueFund(fund, deltaFees, totalShare)

	holder := strings.ToLower(event.Owner.Hex())
	investor, err := d.ensureInvestor(ctx, fund.Address, holder, event.Meta)
	if err != nil {
		return err
	}
	shareAtLastSync := model.TokenAmount(investor.Share, fund.Decimals)
	ledger.SettleInvestor(investor, fund.SettlementPrice, shareAtLastSync)

	investor.Share = new(big.Int).Add(investor.Share, event.Share)
	investor.TotalInvestment = investor.TotalInvestment.Add(amount)
	investor.TotalInvestmentUSD = investor.TotalInvestmentUSD.Add(amountUSD)
	investor.TotalDepositedAmount = investor.TotalDepositedAmount.Add(amount)
	investor.TotalDepositedAmountUSD = investor.TotalDepositedAmountUSD.Add(amountUSD)
	investor.LastDepositTime = event.Meta.Timestamp

	investorSummary, err := d.store.InvestorSummary(ctx, holder)
	if err != nil {
		return err
	}
	investorSummary.TotalInvestmentUSD = investorSummary.TotalInvestmentUSD.Add(amountUSD)

	summary := &d.aggregates.FundSummary
	ledger.ApplyFeeDelta(summary, deltaFees, decimal.Zero)
	summary.TotalInvestmentUSD = summary.TotalInvestmentUSD.Add(amountUSD)
	summary.TotalAssetsUSD = summary.TotalAssetsUSD.Add(amountUSD)

	manager, err := d.ensureManager(ctx, fund.Manager)
	if err != nil {
		return err
	}
	ledger.ApplyManagerFeeDelta(manager, deltaFees, decimal.Zero)
	manager.TotalInvestmentUSD = manager.TotalInvestmentUSD.Add(amountUSD)
	manager.TotalAssetsUSD = manager.TotalAssetsUSD.Add(amountUSD)

	if err := d.putSettlementEntities(ctx, fund, investor, investorSummary, manager); err != nil {
		return err
	}

	record := auditRecord("deposit", event.Meta)
	record.Fund = fund.Address
	record.Owner = holder
	record.Amount = amount
	record.AmountUSD = amountUSD
	record.Share = event.Share.String()
	if err := d.appendAudit(record); err != nil {
		return err
	}

	d.logger.Debug("deposit settled",
		zap.String("fund", fund.Address),
		zap.String("owner", holder),
		zap.String("amount", amount.String()))
	return d.store.Flush(ctx)
}

// HandleWithdraw settles the investor at the pre-withdrawal share balance,
// retires the withdrawn share of pending fees, and charges the protocol fee
// on any profit above the retired principal.
func (d *Dispatcher) HandleWithdraw(ctx context.Context, event *model.WithdrawEvent) error {
	fund, fundToken, price, err := d.fundContext(ctx, event.Fund)
	if err != nil {
		return err
	}

	amount := model.TokenAmount(event.Amount, fundToken.Decimals)
	amountUSD := amount.Mul(price)

	if err := d.driver.SyncFundStatus(ctx, fund, fundToken, price); err != nil {
		return err
	}
	fund.TotalSupply, err = d.reader.TotalSupply(ctx, event.Fund)
	if err != nil {
		return fmt.Errorf("fund total supply: %w", err)
	}
	totalInvestment, err := d.reader.TotalInvestment(ctx, event.Fund)
	if err != nil {
		return fmt.Errorf("fund total investment: %w", err)
	}
	fund.TotalInvestment = model.TokenAmount(totalInvestment, fundToken.Decimals)
	fund.TotalWithdrawnAmount = fund.TotalWithdrawnAmount.Add(amount)

	deltaFees, err := d.driver.SyncFundPools(ctx, fund, fundToken, price)
	if err != nil {
		return err
	}
	// Accrue over the share supply as it stood before this withdrawal burned.
	totalShare := model.TokenAmount(new(big.Int).Add(fund.TotalSupply, event.Share), fund.Decimals)
	ledger.AccrueFund(fund, deltaFees, totalShare)

	holder := strings.ToLower(event.Owner.Hex())
	investor, err := d.ensureInvestor(ctx, fund.Address, holder, event.Meta)
	if err != nil {
		return err
	}
	shareAtLastSync := model.TokenAmount(investor.Share, fund.Decimals)
	withdrawnShare := model.TokenAmount(event.Share, fund.Decimals)
	settlement := ledger.SettleWithdrawal(investor, fund.SettlementPrice, shareAtLastSync, withdrawnShare)
	ledger.ApplyFundWithdrawnFees(fund, settlement.Withdrawn)

	investor.Share = new(big.Int).Sub(investor.Share, event.Share)

	// Retired principal comes from the contract's cost basis, not the payout.
	previousInvestment := investor.TotalInvestment
	remaining, err := d.reader.InvestmentOf(ctx, event.Fund, event.Owner)
	if err != nil {
		return fmt.Errorf("investment of %s: %w", holder, err)
	}
	investor.TotalInvestment = model.TokenAmount(remaining, fundToken.Decimals)
	withdrawnInvestment := previousInvestment.Sub(investor.TotalInvestment)
	withdrawnInvestmentUSD := decimal.Zero
	if previousInvestment.IsPositive() {
		withdrawnInvestmentUSD = withdrawnInvestment.Mul(investor.TotalInvestmentUSD).DivRound(previousInvestment, 18)
	}

	protocolFees := ledger.ProtocolFee(amount, withdrawnInvestment)
	protocolFeesUSD := protocolFees.Mul(price)

	investor.TotalProtocolFees = investor.TotalProtocolFees.Add(protocolFees)
	investor.TotalProtocolFeesUSD = investor.TotalProtocolFeesUSD.Add(protocolFeesUSD)
	investor.TotalInvestmentUSD = investor.TotalInvestmentUSD.Sub(withdrawnInvestmentUSD)
	investor.TotalWithdrawnAmount = investor.TotalWithdrawnAmount.Add(amount)
	investor.TotalWithdrawnAmountUSD = investor.TotalWithdrawnAmountUSD.Add(amountUSD)

	investorSummary, err := d.store.InvestorSummary(ctx, holder)
	if err != nil {
		return err
	}
	investorSummary.TotalInvestmentUSD = investorSummary.TotalInvestmentUSD.Sub(withdrawnInvestmentUSD)
	investorSummary.TotalProtocolFeesUSD = investorSummary.TotalProtocolFeesUSD.Add(protocolFeesUSD)

	fund.TotalInvestmentUSD = fund.TotalInvestmentUSD.Sub(withdrawnInvestmentUSD)
	fund.TotalWithdrawnAmountUSD = fund.TotalWithdrawnAmountUSD.Add(amountUSD)
	fund.TotalProtocolFees = fund.TotalProtocolFees.Add(protocolFees)
	fund.TotalProtocolFeesUSD = fund.TotalProtocolFeesUSD.Add(protocolFeesUSD)

	summary := &d.aggregates.FundSummary
	ledger.ApplyFeeDelta(summary, deltaFees, settlement.Withdrawn)
	summary.TotalInvestmentUSD = summary.TotalInvestmentUSD.Sub(withdrawnInvestmentUSD)
	summary.TotalAssetsUSD = summary.TotalAssetsUSD.Sub(amountUSD)
	summary.TotalProtocolFeesUSD = summary.TotalProtocolFeesUSD.Add(protocolFeesUSD)

	manager, err := d.ensureManager(ctx, fund.Manager)
	if err != nil {
		return err
	}
	ledger.ApplyManagerFeeDelta(manager, deltaFees, settlement.Withdrawn)
	manager.TotalInvestmentUSD = manager.TotalInvestmentUSD.Sub(withdrawnInvestmentUSD)
	manager.TotalAssetsUSD = manager.TotalAssetsUSD.Sub(amountUSD)

	if err := d.putSettlementEntities(ctx, fund, investor, investorSummary, manager); err != nil {
		return err
	}

	record := auditRecord("withdraw", event.Meta)
	record.Fund = fund.Address
	record.Owner = holder
	record.Amount = amount
	record.AmountUSD = amountUSD
	record.Share = event.Share.String()
	record.ProtocolFees = protocolFees
	record.ProtocolFeesUSD = protocolFeesUSD
	if err := d.appendAudit(record); err != nil {
		return err
	}

	d.logger.Debug("withdrawal settled",
		zap.String("fund", fund.Address),
		zap.String("owner", holder),
		zap.String("amount", amount.String()),
		zap.String("protocol_fees", protocolFees.String()))
	return d.store.Flush(ctx)
}

// HandleTransfer settles both sides of a share transfer at their pre-transfer
// balances. Mint and burn transfers are covered by Deposit and Withdraw and
// are skipped here. Transfers to or from a staking contract adjust the
// holder's staked share instead of changing ownership.
func (d *Dispatcher) HandleTransfer(ctx context.Context, event *model.TransferEvent) error {
	zero := common.Address{}
	if event.From == zero || event.To == zero {
		return nil
	}

	fund, fundToken, price, err := d.fundContext(ctx, event.Fund)
	if err != nil {
		return err
	}

	deltaFees, err := d.driver.SyncFundPools(ctx, fund, fundToken, price)
	if err != nil {
		return err
	}
	totalShare := model.TokenAmount(fund.TotalSupply, fund.Decimals)
	ledger.AccrueFund(fund, deltaFees, totalShare)

	fromHolder := strings.ToLower(event.From.Hex())
	fromInvestor, err := d.ensureInvestor(ctx, fund.Address, fromHolder, event.Meta)
	if err != nil {
		return err
	}
	fromShare := model.TokenAmount(fromInvestor.Share, fund.Decimals)
	movedShare := model.TokenAmount(event.Value, fund.Decimals)
	settlement := ledger.SettleWithdrawal(fromInvestor, fund.SettlementPrice, fromShare, movedShare)

	fromInvestor.Share = new(big.Int).Sub(fromInvestor.Share, event.Value)
	if d.reader.IsStakingContract(ctx, event.To, event.Fund) {
		fromInvestor.StakingShare = new(big.Int).Add(fromInvestor.StakingShare, event.Value)
	}

	toHolder := strings.ToLower(event.To.Hex())
	toInvestor, err := d.ensureInvestor(ctx, fund.Address, toHolder, event.Meta)
	if err != nil {
		return err
	}
	toShare := model.TokenAmount(toInvestor.Share, fund.Decimals)
	ledger.SettleInvestor(toInvestor, fund.SettlementPrice, toShare)

	toInvestor.Share = new(big.Int).Add(toInvestor.Share, event.Value)
	if d.reader.IsStakingContract(ctx, event.From, event.Fund) {
		toInvestor.StakingShare = new(big.Int).Sub(toInvestor.StakingShare, event.Value)
	}

	ledger.ApplyFundWithdrawnFees(fund, settlement.Withdrawn)
	ledger.ApplyFeeDelta(&d.aggregates.FundSummary, deltaFees, settlement.Withdrawn)

	manager, err := d.ensureManager(ctx, fund.Manager)
	if err != nil {
		return err
	}
	ledger.ApplyManagerFeeDelta(manager, deltaFees, settlement.Withdrawn)

	if err := d.store.PutInvestor(ctx, fromInvestor); err != nil {
		return err
	}
	if err := d.store.PutInvestor(ctx, toInvestor); err != nil {
		return err
	}
	if err := d.store.PutFund(ctx, fund); err != nil {
		return err
	}
	if err := d.store.PutManager(ctx, manager); err != nil {
		return err
	}

	record := auditRecord("transfer", event.Meta)
	record.Fund = fund.Address
	record.Owner = fromHolder + ">" + toHolder
	record.Share = event.Value.String()
	if err := d.appendAudit(record); err != nil {
		return err
	}
	return d.store.Flush(ctx)
}

func (d *Dispatcher) putSettlementEntities(ctx context.Context, fund *model.Fund, investor *model.Investor, summary *model.InvestorSummary, manager *model.Manager) error {
	if err := d.store.PutFund(ctx, fund); err != nil {
		return err
	}
	if err := d.store.PutInvestor(ctx, investor); err != nil {
		return err
	}
	if err := d.store.PutInvestorSummary(ctx, summary); err != nil {
		return err
	}
	return d.store.PutManager(ctx, manager)
}
