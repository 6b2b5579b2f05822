package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"fundScope/internal/dex"
	"fundScope/internal/ledger"
	"fundScope/internal/model"
	"fundScope/internal/store"
)

// HandleChangeVerifiedToken bootstraps the token entity on first sight and
// flips its verification flag.
func (d *Dispatcher) HandleChangeVerifiedToken(ctx context.Context, event *model.ChangeVerifiedTokenEvent) error {
	token, err := d.ensureToken(ctx, event.Token)
	if err != nil {
		return err
	}
	token.IsVerified = event.IsVerified
	if err := d.store.PutToken(ctx, token); err != nil {
		return err
	}
	return d.store.Flush(ctx)
}

// HandleHarvest records a protocol fee harvest and rolls it into the harvest
// summary.
func (d *Dispatcher) HandleHarvest(ctx context.Context, event *model.HarvestEvent) error {
	token, err := d.ensureToken(ctx, event.Token)
	if err != nil {
		return err
	}

	amount := model.TokenAmount(event.Amount, token.Decimals)
	burned := model.TokenAmount(event.Burned, 18)
	amountUSD := d.driver.Oracle().TokenPriceUSD(ctx, token).Mul(amount)

	summary := &d.aggregates.HarvestSummary
	summary.TxCount++
	summary.TotalBurned = summary.TotalBurned.Add(burned)
	summary.TotalAmountUSD = summary.TotalAmountUSD.Add(amountUSD)

	record := auditRecord("harvest", event.Meta)
	record.Token = token.Address
	record.Amount = amount
	record.AmountUSD = amountUSD
	record.Burned = burned
	if err := d.appendAudit(record); err != nil {
		return err
	}
	return d.store.Flush(ctx)
}

// HandleSetPath stores a fund's swap route for a distribution token.
func (d *Dispatcher) HandleSetPath(ctx context.Context, call *model.SetPathCall) error {
	fund := strings.ToLower(call.Fund.Hex())
	distToken := strings.ToLower(call.DistToken.Hex())

	pools, err := dex.DecodePath(call.Path)
	if err != nil {
		return fmt.Errorf("decode path %s-%s: %w", fund, distToken, err)
	}

	path := &model.Path{
		ID:        model.InvestorID(fund, distToken),
		Fund:      fund,
		DistToken: distToken,
		Raw:       call.Path,
		PathPools: pools,
	}
	if err := d.store.PutPath(ctx, path); err != nil {
		return err
	}

	record := auditRecord("set_path", call.Meta)
	record.Fund = fund
	record.Token = distToken
	record.PathPools = pools
	if err := d.appendAudit(record); err != nil {
		return err
	}
	return d.store.Flush(ctx)
}

// HandleSetHarvestPath bootstraps the harvested token and stores the
// controller-level route for it.
func (d *Dispatcher) HandleSetHarvestPath(ctx context.Context, call *model.SetHarvestPathCall) error {
	token, err := d.ensureToken(ctx, call.Token)
	if err != nil {
		return err
	}

	pools, err := dex.DecodePath(call.Path)
	if err != nil {
		return fmt.Errorf("decode harvest path %s: %w", token.Address, err)
	}

	path := &model.Path{
		ID:        "harvest-" + token.Address,
		DistToken: token.Address,
		Raw:       call.Path,
		PathPools: pools,
	}
	if err := d.store.PutPath(ctx, path); err != nil {
		return err
	}

	record := auditRecord("set_harvest_path", call.Meta)
	record.Token = token.Address
	record.PathPools = pools
	if err := d.appendAudit(record); err != nil {
		return err
	}
	return d.store.Flush(ctx)
}

// HandleInit opens a new position for a fund, creating the pool row lazily
// the first time the fund touches a previously-unseen pool. The full fee
// resync runs before the new position appears so it cannot contribute a
// phantom fee delta.
func (d *Dispatcher) HandleInit(ctx context.Context, call *model.InitCall) error {
	fund, fundToken, price, err := d.fundContext(ctx, call.Fund)
	if err != nil {
		return err
	}

	amount := model.TokenAmount(call.Amount, fundToken.Decimals)
	if err := d.updateFees(ctx, fund, fundToken, price); err != nil {
		return err
	}

	if _, err := d.ensureToken(ctx, call.Token0); err != nil {
		return err
	}
	if _, err := d.ensureToken(ctx, call.Token1); err != nil {
		return err
	}

	poolAddress, err := d.reader.PoolByPair(ctx, call.Token0, call.Token1, call.Fee)
	if err != nil {
		return fmt.Errorf("resolve pool: %w", err)
	}

	chainPoolsLength, err := d.reader.PoolsLength(ctx, call.Fund)
	if err != nil {
		return fmt.Errorf("fund pools length: %w", err)
	}

	var pool *model.Pool
	poolIndex := fund.PoolsLength
	if chainPoolsLength > fund.PoolsLength {
		fund.PoolsLength = chainPoolsLength
		pool = &model.Pool{
			ID:      model.PoolID{Fund: fund.Address, PoolIndex: poolIndex}.String(),
			Fund:    fund.Address,
			Address: strings.ToLower(poolAddress.Hex()),
			Token0:  strings.ToLower(call.Token0.Hex()),
			Token1:  strings.ToLower(call.Token1.Hex()),
			Fee:     call.Fee,
		}
	} else {
		// Reinit against a known pool: walk back to the latest existing row.
		for poolIndex > 0 {
			poolIndex--
			pool, err = d.store.Pool(ctx, model.PoolID{Fund: fund.Address, PoolIndex: poolIndex}.String())
			if err == nil {
				break
			}
			if !errors.Is(err, store.ErrNotFound) {
				return err
			}
		}
		if pool == nil {
			return fmt.Errorf("fund %s has no pool for reinit", fund.Address)
		}
	}

	positionIndex := pool.PositionsLength
	pool.PositionsLength++

	state, err := d.reader.PoolState(ctx, poolAddress)
	if err != nil {
		return fmt.Errorf("pool %s state: %w", pool.Address, err)
	}

	position := &model.Position{
		ID:            model.PositionID{Fund: fund.Address, PoolIndex: poolIndex, PositionIndex: positionIndex}.String(),
		Pool:          pool.ID,
		Fund:          fund.Address,
		PoolIndex:     poolIndex,
		PositionIndex: positionIndex,
		PositionKey:   model.PositionKey(call.Fund, call.TickLower, call.TickUpper),
		TickLower:     call.TickLower,
		TickUpper:     call.TickUpper,
		IsEmpty:       amount.IsZero(),
		// Seed the checkpoints from the current globals so the first resync
		// starts from zero accrued fees.
		FeeGrowthInside0LastX128: state.FeeGrowthGlobal0X128,
		FeeGrowthInside1LastX128: state.FeeGrowthGlobal1X128,
	}

	onchain, err := d.reader.PositionState(ctx, poolAddress, position.PositionKey)
	if err != nil {
		return fmt.Errorf("position %s chain state: %w", position.ID, err)
	}
	position.Liquidity = onchain.Liquidity

	if err := d.driver.ValuePosition(ctx, fund, fundToken, price, pool, position); err != nil {
		return err
	}

	pool.AssetAmount = pool.AssetAmount.Add(position.AssetAmount)
	pool.AssetAmountUSD = pool.AssetAmountUSD.Add(position.AssetAmountUSD)
	if fund.TotalAssets.IsPositive() {
		pool.AssetShare = pool.AssetAmount.DivRound(fund.TotalAssets, 18)
	}

	if err := d.store.PutPool(ctx, pool); err != nil {
		return err
	}
	if err := d.store.PutPosition(ctx, position); err != nil {
		return err
	}
	if err := d.store.PutFund(ctx, fund); err != nil {
		return err
	}

	record := auditRecord("init", call.Meta)
	record.Fund = fund.Address
	record.Position = position.ID
	record.Amount = amount
	record.AmountUSD = amount.Mul(price)
	if err := d.appendAudit(record); err != nil {
		return err
	}

	d.logger.Info("position opened",
		zap.String("fund", fund.Address),
		zap.String("position", position.ID),
		zap.Int32("tick_lower", call.TickLower),
		zap.Int32("tick_upper", call.TickUpper))
	return d.store.Flush(ctx)
}

// HandleAdd resyncs fees after liquidity is added to a position.
func (d *Dispatcher) HandleAdd(ctx context.Context, call *model.AddCall) error {
	fund, fundToken, price, err := d.fundContext(ctx, call.Fund)
	if err != nil {
		return err
	}

	amount := model.TokenAmount(call.Amount, fundToken.Decimals)
	if err := d.updateFees(ctx, fund, fundToken, price); err != nil {
		return err
	}
	if err := d.store.PutFund(ctx, fund); err != nil {
		return err
	}

	record := auditRecord("add", call.Meta)
	record.Fund = fund.Address
	record.Position = model.PositionID{Fund: fund.Address, PoolIndex: call.PoolIndex, PositionIndex: call.PositionIndex}.String()
	record.Amount = amount
	record.AmountUSD = amount.Mul(price)
	if err := d.appendAudit(record); err != nil {
		return err
	}
	return d.store.Flush(ctx)
}

// HandleSub resyncs fees after liquidity is removed from a position. The leg
// amount is the position's valuation change across the resync.
func (d *Dispatcher) HandleSub(ctx context.Context, call *model.SubCall) error {
	fund, fundToken, price, err := d.fundContext(ctx, call.Fund)
	if err != nil {
		return err
	}

	positionID := model.PositionID{Fund: fund.Address, PoolIndex: call.PoolIndex, PositionIndex: call.PositionIndex}.String()
	previous, err := d.positionAssetAmount(ctx, positionID)
	if err != nil {
		return err
	}

	if err := d.updateFees(ctx, fund, fundToken, price); err != nil {
		return err
	}
	if err := d.store.PutFund(ctx, fund); err != nil {
		return err
	}

	current, err := d.positionAssetAmount(ctx, positionID)
	if err != nil {
		return err
	}

	record := auditRecord("sub", call.Meta)
	record.Fund = fund.Address
	record.Position = positionID
	record.Amount = previous.Sub(current).Abs()
	record.AmountUSD = record.Amount.Mul(price)
	record.Proportion = ledger.ProportionFromX128(call.ProportionX128)
	if err := d.appendAudit(record); err != nil {
		return err
	}
	return d.store.Flush(ctx)
}

// HandleMove resyncs fees after liquidity moves between two positions of the
// same pool.
func (d *Dispatcher) HandleMove(ctx context.Context, call *model.MoveCall) error {
	fund, fundToken, price, err := d.fundContext(ctx, call.Fund)
	if err != nil {
		return err
	}

	subID := model.PositionID{Fund: fund.Address, PoolIndex: call.PoolIndex, PositionIndex: call.SubIndex}.String()
	addID := model.PositionID{Fund: fund.Address, PoolIndex: call.PoolIndex, PositionIndex: call.AddIndex}.String()
	previous, err := d.positionAssetAmount(ctx, subID)
	if err != nil {
		return err
	}

	if err := d.updateFees(ctx, fund, fundToken, price); err != nil {
		return err
	}
	if err := d.store.PutFund(ctx, fund); err != nil {
		return err
	}

	current, err := d.positionAssetAmount(ctx, subID)
	if err != nil {
		return err
	}

	record := auditRecord("move", call.Meta)
	record.Fund = fund.Address
	record.Position = subID + ">" + addID
	record.Amount = previous.Sub(current).Abs()
	record.AmountUSD = record.Amount.Mul(price)
	record.Proportion = ledger.ProportionFromX128(call.ProportionX128)
	if err := d.appendAudit(record); err != nil {
		return err
	}
	return d.store.Flush(ctx)
}

func (d *Dispatcher) positionAssetAmount(ctx context.Context, id string) (decimal.Decimal, error) {
	position, err := d.store.Position(ctx, id)
	if err != nil {
		return decimal.Zero, fmt.Errorf("position %s: %w", id, err)
	}
	return position.AssetAmount, nil
}
