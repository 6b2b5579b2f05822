package ledger

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"fundScope/internal/model"
	"fundScope/internal/store"
)

// PriceHint models an optionally precomputed fund token price. It is resolved
// exactly once at the handler boundary, never re-derived mid-computation.
type PriceHint struct {
	computed bool
	value    decimal.Decimal
}

// ComputedPrice wraps an already-known price.
func ComputedPrice(value decimal.Decimal) PriceHint {
	return PriceHint{computed: true, value: value}
}

// Resolve returns the wrapped price, or invokes compute when none was given.
func (h PriceHint) Resolve(compute func() decimal.Decimal) decimal.Decimal {
	if h.computed {
		return h.value
	}
	return compute()
}

// Driver walks all pools and positions of a fund, reconciling each position's fee
// checkpoints and valuation against current chain state, and returns the
// fund-wide fee delta to feed the settlement ledger.
type Driver struct {
	reader StateReader
	funds  FundReader
	oracle *Oracle
	store  store.Store
	logger *zap.Logger
}

func NewDriver(reader StateReader, funds FundReader, oracle *Oracle, entityStore store.Store, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		reader: reader,
		funds:  funds,
		oracle: oracle,
		store:  entityStore,
		logger: logger,
	}
}

// Oracle exposes the driver's price oracle for handler-boundary price hints.
func (d *Driver) Oracle() *Oracle {
	return d.oracle
}

// SyncFundStatus refreshes the fund's balance and total assets from chain
// state. fundTokenPriceUSD must already be resolved by the caller.
func (d *Driver) SyncFundStatus(ctx context.Context, fund *model.Fund, fundToken *model.Token, fundTokenPriceUSD decimal.Decimal) error {
	fundAddress := common.HexToAddress(fund.Address)

	balance, err := d.reader.TokenBalance(ctx, common.HexToAddress(fund.FundToken), fundAddress)
	if err != nil {
		return fmt.Errorf("fund %s balance: %w", fund.Address, err)
	}
	fund.Balance = model.TokenAmount(balance, fundToken.Decimals)

	totalAssets, err := d.funds.TotalAssets(ctx, fundAddress)
	if err != nil {
		return fmt.Errorf("fund %s total assets: %w", fund.Address, err)
	}
	fund.TotalAssets = model.TokenAmount(totalAssets, fundToken.Decimals)
	fund.TotalAssetsUSD = fund.TotalAssets.Mul(fundTokenPriceUSD)
	return nil
}

// SyncFundPools revisits every position of every pool the fund has opened,
// computing accrued fees against the stored checkpoints and refreshing
// liquidity and valuation fields. Returns the aggregate fee delta in fund
// token units.
func (d *Driver) SyncFundPools(ctx context.Context, fund *model.Fund, fundToken *model.Token, fundTokenPriceUSD decimal.Decimal) (decimal.Decimal, error) {
	deltaFees := decimal.Zero

	for poolIndex := 0; poolIndex < fund.PoolsLength; poolIndex++ {
		pool, err := d.store.Pool(ctx, model.PoolID{Fund: fund.Address, PoolIndex: poolIndex}.String())
		if err != nil {
			return decimal.Zero, fmt.Errorf("fund %s pool %d: %w", fund.Address, poolIndex, err)
		}

		poolDelta, err := d.syncPool(ctx, fund, fundToken, fundTokenPriceUSD, pool, poolIndex)
		if err != nil {
			return decimal.Zero, err
		}
		deltaFees = deltaFees.Add(poolDelta)
	}

	return deltaFees, nil
}

func (d *Driver) syncPool(ctx context.Context, fund *model.Fund, fundToken *model.Token, fundTokenPriceUSD decimal.Decimal, pool *model.Pool, poolIndex int) (decimal.Decimal, error) {
	token0, err := d.store.Token(ctx, pool.Token0)
	if err != nil {
		return decimal.Zero, fmt.Errorf("pool %s token0 %s: %w", pool.ID, pool.Token0, err)
	}
	token1, err := d.store.Token(ctx, pool.Token1)
	if err != nil {
		return decimal.Zero, fmt.Errorf("pool %s token1 %s: %w", pool.ID, pool.Token1, err)
	}

	poolAddress := common.HexToAddress(pool.Address)
	params, err := d.valuationParams(ctx, fundToken, fundTokenPriceUSD, pool, token0, token1)
	if err != nil {
		return decimal.Zero, err
	}

	deltaFees := decimal.Zero
	poolAmount := decimal.Zero
	poolAmountUSD := decimal.Zero

	for positionIndex := 0; positionIndex < pool.PositionsLength; positionIndex++ {
		id := model.PositionID{Fund: fund.Address, PoolIndex: poolIndex, PositionIndex: positionIndex}
		position, err := d.store.Position(ctx, id.String())
		if err != nil {
			return decimal.Zero, fmt.Errorf("position %s: %w", id.String(), err)
		}

		onchain, err := d.reader.PositionState(ctx, poolAddress, position.PositionKey)
		if err != nil {
			return decimal.Zero, fmt.Errorf("position %s chain state: %w", id.String(), err)
		}

		// Abandoned ranges stay untouched until liquidity returns.
		if position.IsEmpty && (onchain.Liquidity == nil || onchain.Liquidity.Sign() == 0) {
			poolAmount = poolAmount.Add(position.AssetAmount)
			poolAmountUSD = poolAmountUSD.Add(position.AssetAmountUSD)
			continue
		}

		lower, err := d.reader.TickState(ctx, poolAddress, position.TickLower)
		if err != nil {
			return decimal.Zero, fmt.Errorf("position %s lower tick: %w", id.String(), err)
		}
		upper, err := d.reader.TickState(ctx, poolAddress, position.TickUpper)
		if err != nil {
			return decimal.Zero, fmt.Errorf("position %s upper tick: %w", id.String(), err)
		}

		fees := PositionFees(params, position, lower, upper)
		deltaFees = deltaFees.Add(fees.Fees)

		position.Liquidity = onchain.Liquidity
		position.IsEmpty = onchain.Liquidity == nil || onchain.Liquidity.Sign() == 0
		position.FeeGrowthInside0LastX128 = fees.Inside0X128
		position.FeeGrowthInside1LastX128 = fees.Inside1X128

		value := PositionValue(params, position.TickLower, position.TickUpper, position.Liquidity)
		position.AssetAmount = value.Amount
		position.AssetAmountUSD = value.AmountUSD
		if fund.TotalAssets.IsPositive() {
			position.AssetShare = position.AssetAmount.DivRound(fund.TotalAssets, 18)
		} else {
			position.AssetShare = decimal.Zero
		}

		if err := d.store.PutPosition(ctx, position); err != nil {
			return decimal.Zero, fmt.Errorf("save position %s: %w", id.String(), err)
		}

		poolAmount = poolAmount.Add(position.AssetAmount)
		poolAmountUSD = poolAmountUSD.Add(position.AssetAmountUSD)
	}

	pool.AssetAmount = poolAmount
	pool.AssetAmountUSD = poolAmountUSD
	if fund.TotalAssets.IsPositive() {
		pool.AssetShare = pool.AssetAmount.DivRound(fund.TotalAssets, 18)
	} else {
		pool.AssetShare = decimal.Zero
	}
	if err := d.store.PutPool(ctx, pool); err != nil {
		return decimal.Zero, fmt.Errorf("save pool %s: %w", pool.ID, err)
	}

	return deltaFees, nil
}

func (d *Driver) valuationParams(ctx context.Context, fundToken *model.Token, fundTokenPriceUSD decimal.Decimal, pool *model.Pool, token0, token1 *model.Token) (ValuationParams, error) {
	state, err := d.reader.PoolState(ctx, common.HexToAddress(pool.Address))
	if err != nil {
		return ValuationParams{}, fmt.Errorf("pool %s state: %w", pool.Address, err)
	}

	params := ValuationParams{
		SqrtPriceX96:      state.SqrtPriceX96,
		TickCurrent:       state.Tick,
		Global0X128:       state.FeeGrowthGlobal0X128,
		Global1X128:       state.FeeGrowthGlobal1X128,
		FundTokenPriceUSD: fundTokenPriceUSD,
		Decimals0:         token0.Decimals,
		Decimals1:         token1.Decimals,
	}
	if fundToken.Address == token0.Address {
		params.Token0PriceUSD = fundTokenPriceUSD
	} else {
		params.Token0PriceUSD = d.oracle.TokenPriceUSD(ctx, token0)
	}
	if fundToken.Address == token1.Address {
		params.Token1PriceUSD = fundTokenPriceUSD
	} else {
		params.Token1PriceUSD = d.oracle.TokenPriceUSD(ctx, token1)
	}
	return params, nil
}

// ValuePosition refreshes one position's asset amounts from current pool
// state, without touching its fee checkpoints.
func (d *Driver) ValuePosition(ctx context.Context, fund *model.Fund, fundToken *model.Token, fundTokenPriceUSD decimal.Decimal, pool *model.Pool, position *model.Position) error {
	token0, err := d.store.Token(ctx, pool.Token0)
	if err != nil {
		return fmt.Errorf("pool %s token0 %s: %w", pool.ID, pool.Token0, err)
	}
	token1, err := d.store.Token(ctx, pool.Token1)
	if err != nil {
		return fmt.Errorf("pool %s token1 %s: %w", pool.ID, pool.Token1, err)
	}
	params, err := d.valuationParams(ctx, fundToken, fundTokenPriceUSD, pool, token0, token1)
	if err != nil {
		return err
	}

	value := PositionValue(params, position.TickLower, position.TickUpper, position.Liquidity)
	position.AssetAmount = value.Amount
	position.AssetAmountUSD = value.AmountUSD
	if fund.TotalAssets.IsPositive() {
		position.AssetShare = position.AssetAmount.DivRound(fund.TotalAssets, 18)
	} else {
		position.AssetShare = decimal.Zero
	}
	return nil
}
