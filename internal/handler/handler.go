package handler

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"fundScope/internal/ledger"
	"fundScope/internal/model"
	"fundScope/internal/store"
)

// ChainReader is the full contract read surface the handlers need.
type ChainReader interface {
	ledger.StateReader
	ledger.FundReader
	FetchToken(ctx context.Context, token common.Address) (*model.Token, error)
	FundManager(ctx context.Context, fund common.Address) (common.Address, error)
	FundToken(ctx context.Context, fund common.Address) (common.Address, error)
	IsStakingContract(ctx context.Context, target, fund common.Address) bool
}

// AuditSink receives one record per handled trigger leg.
type AuditSink interface {
	Append(records ...model.TxRecord) error
}

// Dispatcher owns the per-trigger handlers. Handlers run strictly serially;
// all entity writes go through the store and are flushed once per trigger.
type Dispatcher struct {
	store      store.Store
	reader     ChainReader
	driver     *ledger.Driver
	aggregates *model.Aggregates
	audit      AuditSink
	sweep      SweepPolicy
	logger     *zap.Logger
}

func NewDispatcher(entityStore store.Store, reader ChainReader, driver *ledger.Driver, aggregates *model.Aggregates, audit AuditSink, sweep SweepPolicy, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		store:      entityStore,
		reader:     reader,
		driver:     driver,
		aggregates: aggregates,
		audit:      audit,
		sweep:      sweep,
		logger:     logger,
	}
}

// Dispatch routes a decoded trigger to its handler.
func (d *Dispatcher) Dispatch(ctx context.Context, trigger interface{}) error {
	switch event := trigger.(type) {
	case *model.ChangeVerifiedTokenEvent:
		return d.HandleChangeVerifiedToken(ctx, event)
	case *model.HarvestEvent:
		return d.HandleHarvest(ctx, event)
	case *model.SetPathCall:
		return d.HandleSetPath(ctx, event)
	case *model.SetHarvestPathCall:
		return d.HandleSetHarvestPath(ctx, event)
	case *model.InitCall:
		return d.HandleInit(ctx, event)
	case *model.AddCall:
		return d.HandleAdd(ctx, event)
	case *model.SubCall:
		return d.HandleSub(ctx, event)
	case *model.MoveCall:
		return d.HandleMove(ctx, event)
	case *model.DepositEvent:
		return d.HandleDeposit(ctx, event)
	case *model.WithdrawEvent:
		return d.HandleWithdraw(ctx, event)
	case *model.TransferEvent:
		return d.HandleTransfer(ctx, event)
	case *model.BlockEvent:
		return d.HandleBlock(ctx, event)
	default:
		return fmt.Errorf("unsupported trigger type %T", trigger)
	}
}

// EnsureFund bootstraps the tracked entity for a fund address, reading its
// manager and denomination token from chain. Idempotent.
func (d *Dispatcher) EnsureFund(ctx context.Context, fund common.Address) (*model.Fund, error) {
	key := strings.ToLower(fund.Hex())
	entity, err := d.store.Fund(ctx, key)
	if err == nil {
		return entity, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	manager, err := d.reader.FundManager(ctx, fund)
	if err != nil {
		return nil, fmt.Errorf("fund %s manager: %w", key, err)
	}
	fundToken, err := d.reader.FundToken(ctx, fund)
	if err != nil {
		return nil, fmt.Errorf("fund %s token: %w", key, err)
	}
	tokenEntity, err := d.ensureToken(ctx, fundToken)
	if err != nil {
		return nil, err
	}

	entity = &model.Fund{
		Address:     key,
		Manager:     strings.ToLower(manager.Hex()),
		FundToken:   tokenEntity.Address,
		Decimals:    tokenEntity.Decimals,
		TotalSupply: new(big.Int),
	}
	if err := d.store.PutFund(ctx, entity); err != nil {
		return nil, err
	}

	if _, err := d.ensureManager(ctx, entity.Manager); err != nil {
		return nil, err
	}

	d.aggregates.FundSummary.Funds = append(d.aggregates.FundSummary.Funds, key)
	d.logger.Info("tracking fund", zap.String("fund", key), zap.String("manager", entity.Manager))
	return entity, nil
}

// ensureToken loads a token entity, fetching chain metadata on first sight.
func (d *Dispatcher) ensureToken(ctx context.Context, token common.Address) (*model.Token, error) {
	key := strings.ToLower(token.Hex())
	entity, err := d.store.Token(ctx, key)
	if err == nil {
		return entity, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	entity, err = d.reader.FetchToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("fetch token %s: %w", key, err)
	}
	if err := d.store.PutToken(ctx, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

func (d *Dispatcher) ensureManager(ctx context.Context, address string) (*model.Manager, error) {
	entity, err := d.store.Manager(ctx, address)
	if err == nil {
		return entity, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	entity = &model.Manager{Address: address}
	if err := d.store.PutManager(ctx, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

// ensureInvestor loads or creates the investor row and its holder summary.
func (d *Dispatcher) ensureInvestor(ctx context.Context, fund, holder string, meta model.EventMeta) (*model.Investor, error) {
	id := model.InvestorID(fund, holder)
	investor, err := d.store.Investor(ctx, id)
	if err == nil {
		return investor, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	investor = model.NewInvestor(fund, holder)
	if err := d.store.PutInvestor(ctx, investor); err != nil {
		return nil, err
	}

	if _, err := d.store.InvestorSummary(ctx, holder); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		summary := &model.InvestorSummary{
			Address:          strings.ToLower(holder),
			CreatedTimestamp: meta.Timestamp,
			CreatedBlock:     meta.BlockNumber,
		}
		if err := d.store.PutInvestorSummary(ctx, summary); err != nil {
			return nil, err
		}
	}
	return investor, nil
}

// fundContext loads the fund entity, its denomination token, and the token's
// current USD price. Most handlers start here.
func (d *Dispatcher) fundContext(ctx context.Context, fund common.Address) (*model.Fund, *model.Token, decimal.Decimal, error) {
	fundEntity, err := d.store.Fund(ctx, strings.ToLower(fund.Hex()))
	if err != nil {
		return nil, nil, decimal.Zero, fmt.Errorf("fund %s: %w", fund.Hex(), err)
	}
	fundToken, err := d.store.Token(ctx, fundEntity.FundToken)
	if err != nil {
		return nil, nil, decimal.Zero, fmt.Errorf("fund token %s: %w", fundEntity.FundToken, err)
	}
	price := d.driver.Oracle().TokenPriceUSD(ctx, fundToken)
	return fundEntity, fundToken, price, nil
}

// updateFees runs the full resync for a fund: status, every pool and
// position, then the settlement accumulator and the aggregate roll-ups.
// Aggregates receive the exact same delta as the fund.
func (d *Dispatcher) updateFees(ctx context.Context, fund *model.Fund, fundToken *model.Token, fundTokenPriceUSD decimal.Decimal) error {
	if err := d.driver.SyncFundStatus(ctx, fund, fundToken, fundTokenPriceUSD); err != nil {
		return err
	}

	deltaFees, err := d.driver.SyncFundPools(ctx, fund, fundToken, fundTokenPriceUSD)
	if err != nil {
		return err
	}
	totalShare := model.TokenAmount(fund.TotalSupply, fund.Decimals)
	ledger.AccrueFund(fund, deltaFees, totalShare)

	ledger.ApplyFeeDelta(&d.aggregates.FundSummary, deltaFees, decimal.Zero)
	manager, err := d.ensureManager(ctx, fund.Manager)
	if err != nil {
		return err
	}
	ledger.ApplyManagerFeeDelta(manager, deltaFees, decimal.Zero)
	return d.store.PutManager(ctx, manager)
}

func (d *Dispatcher) appendAudit(record model.TxRecord) error {
	if d.audit == nil {
		return nil
	}
	return d.audit.Append(record)
}

func auditRecord(kind string, meta model.EventMeta) model.TxRecord {
	return model.TxRecord{
		Kind:        kind,
		TxHash:      meta.TxHash.Hex(),
		LogIndex:    meta.LogIndex,
		BlockNumber: meta.BlockNumber,
		Timestamp:   meta.Timestamp,
		From:        strings.ToLower(meta.From.Hex()),
	}
}
