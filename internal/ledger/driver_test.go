package ledger

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"fundScope/internal/model"
	"fundScope/internal/store"
)

var (
	testFundAddr  = common.HexToAddress("0x00000000000000000000000000000000000000f0")
	testFundToken = common.HexToAddress("0x0000000000000000000000000000000000000004")
	testFundPool  = common.HexToAddress("0x00000000000000000000000000000000000000b1")
)

type driverFixture struct {
	driver   *Driver
	reader   *stubReader
	store    *store.Memory
	fund     *model.Fund
	token    *model.Token
	position *model.Position
}

func newDriverFixture(t *testing.T) *driverFixture {
	t.Helper()
	ctx := context.Background()

	reader := newStubReader()
	memory := store.NewMemory()

	oracle := NewOracle(OracleConfig{
		WrappedNative:   testWETH,
		ReferencePool:   testPoolRef,
		ReferenceStable: testStable,
		StableTokens:    []common.Address{testStable},
		QuoteFeeTier:    3000,
	}, reader, nil)
	driver := NewDriver(reader, reader, oracle, memory, nil)

	fundToken := &model.Token{Address: testFundToken.Hex(), Symbol: "FUND", Decimals: 6}
	stable := &model.Token{Address: testStable.Hex(), Symbol: "USD", Decimals: 6}
	if err := memory.PutToken(ctx, fundToken); err != nil {
		t.Fatalf("put token: %v", err)
	}
	if err := memory.PutToken(ctx, stable); err != nil {
		t.Fatalf("put token: %v", err)
	}

	fund := &model.Fund{
		Address:     testFundAddr.Hex(),
		FundToken:   fundToken.Address,
		Decimals:    6,
		PoolsLength: 1,
		TotalAssets: decimal.New(10, 0),
	}

	poolID := model.PoolID{Fund: fund.Address, PoolIndex: 0}.String()
	pool := &model.Pool{
		ID:              poolID,
		Fund:            fund.Address,
		Address:         testFundPool.Hex(),
		Token0:          fundToken.Address,
		Token1:          stable.Address,
		Fee:             3000,
		PositionsLength: 1,
	}
	if err := memory.PutPool(ctx, pool); err != nil {
		t.Fatalf("put pool: %v", err)
	}

	key := common.HexToHash("0x01")
	position := &model.Position{
		ID:                       model.PositionID{Fund: fund.Address, PoolIndex: 0, PositionIndex: 0}.String(),
		Pool:                     poolID,
		Fund:                     fund.Address,
		PositionKey:              key,
		TickLower:                -600,
		TickUpper:                600,
		Liquidity:                big.NewInt(1_000_000),
		FeeGrowthInside0LastX128: q128Times(1),
		FeeGrowthInside1LastX128: q128Times(1),
	}
	if err := memory.PutPosition(ctx, position); err != nil {
		t.Fatalf("put position: %v", err)
	}

	reader.pools[testFundPool] = PoolState{
		SqrtPriceX96:         new(big.Int).Set(fixedPointQ96),
		Tick:                 0,
		FeeGrowthGlobal0X128: q128Times(2),
		FeeGrowthGlobal1X128: q128Times(1),
	}
	reader.positions[testFundPool] = map[common.Hash]PositionState{
		key: {Liquidity: big.NewInt(1_000_000)},
	}

	return &driverFixture{
		driver:   driver,
		reader:   reader,
		store:    memory,
		fund:     fund,
		token:    fundToken,
		position: position,
	}
}

func TestSyncFundStatus(t *testing.T) {
	f := newDriverFixture(t)
	ctx := context.Background()

	f.reader.setBalance(testFundToken, testFundAddr, big.NewInt(5_000_000))
	f.reader.totalAssets = big.NewInt(10_000_000)

	if err := f.driver.SyncFundStatus(ctx, f.fund, f.token, decimal.New(2, 0)); err != nil {
		t.Fatalf("sync status: %v", err)
	}

	if !f.fund.Balance.Equal(decimal.New(5, 0)) {
		t.Fatalf("balance = %s, want 5", f.fund.Balance)
	}
	if !f.fund.TotalAssets.Equal(decimal.New(10, 0)) {
		t.Fatalf("total assets = %s, want 10", f.fund.TotalAssets)
	}
	if !f.fund.TotalAssetsUSD.Equal(decimal.New(20, 0)) {
		t.Fatalf("total assets USD = %s, want 20", f.fund.TotalAssetsUSD)
	}
}

func TestSyncFundPoolsAccruesAndRefreshes(t *testing.T) {
	f := newDriverFixture(t)
	ctx := context.Background()

	deltaFees, err := f.driver.SyncFundPools(ctx, f.fund, f.token, decimal.New(1, 0))
	if err != nil {
		t.Fatalf("sync pools: %v", err)
	}

	// Growth-inside on side 0 moved one Q128 unit past the checkpoint: one
	// raw token per liquidity unit, 1.0 at six decimals, priced at one fund
	// token. Side 1 is unchanged.
	if !deltaFees.Equal(decimal.New(1, 0)) {
		t.Fatalf("delta fees = %s, want 1", deltaFees)
	}

	position, err := f.store.Position(ctx, f.position.ID)
	if err != nil {
		t.Fatalf("reload position: %v", err)
	}
	if !position.FeeGrowthInside0LastX128.Eq(q128Times(2)) {
		t.Fatalf("checkpoint0 = %s, want advanced to current growth", position.FeeGrowthInside0LastX128.Dec())
	}
	if !position.AssetAmount.IsPositive() {
		t.Fatalf("asset amount = %s, want positive", position.AssetAmount)
	}
	wantShare := position.AssetAmount.DivRound(f.fund.TotalAssets, 18)
	if !position.AssetShare.Equal(wantShare) {
		t.Fatalf("asset share = %s, want %s", position.AssetShare, wantShare)
	}

	pool, err := f.store.Pool(ctx, f.position.Pool)
	if err != nil {
		t.Fatalf("reload pool: %v", err)
	}
	if !pool.AssetAmount.Equal(position.AssetAmount) {
		t.Fatalf("pool amount = %s, want %s", pool.AssetAmount, position.AssetAmount)
	}
}

func TestSyncFundPoolsIsStableAcrossRepeats(t *testing.T) {
	f := newDriverFixture(t)
	ctx := context.Background()

	if _, err := f.driver.SyncFundPools(ctx, f.fund, f.token, decimal.New(1, 0)); err != nil {
		t.Fatalf("first sync: %v", err)
	}
	deltaFees, err := f.driver.SyncFundPools(ctx, f.fund, f.token, decimal.New(1, 0))
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}

	if !deltaFees.IsZero() {
		t.Fatalf("second sync accrued %s, want 0 with unchanged chain state", deltaFees)
	}
}

func TestSyncFundPoolsSkipsRetiredPositions(t *testing.T) {
	f := newDriverFixture(t)
	ctx := context.Background()

	f.position.IsEmpty = true
	f.position.Liquidity = big.NewInt(0)
	f.position.AssetAmount = decimal.New(3, 0)
	f.position.FeeGrowthInside0LastX128 = q128Times(1)
	if err := f.store.PutPosition(ctx, f.position); err != nil {
		t.Fatalf("put position: %v", err)
	}
	f.reader.positions[testFundPool][f.position.PositionKey] = PositionState{Liquidity: big.NewInt(0)}

	deltaFees, err := f.driver.SyncFundPools(ctx, f.fund, f.token, decimal.New(1, 0))
	if err != nil {
		t.Fatalf("sync pools: %v", err)
	}

	if !deltaFees.IsZero() {
		t.Fatalf("retired position accrued %s, want 0", deltaFees)
	}
	position, err := f.store.Position(ctx, f.position.ID)
	if err != nil {
		t.Fatalf("reload position: %v", err)
	}
	if !position.FeeGrowthInside0LastX128.Eq(q128Times(1)) {
		t.Fatalf("retired checkpoint moved to %s", position.FeeGrowthInside0LastX128.Dec())
	}

	// The stored valuation still carries into the pool totals.
	pool, err := f.store.Pool(ctx, f.position.Pool)
	if err != nil {
		t.Fatalf("reload pool: %v", err)
	}
	if !pool.AssetAmount.Equal(decimal.New(3, 0)) {
		t.Fatalf("pool amount = %s, want carried 3", pool.AssetAmount)
	}
}

func TestValuePosition(t *testing.T) {
	f := newDriverFixture(t)
	ctx := context.Background()

	pool, err := f.store.Pool(ctx, f.position.Pool)
	if err != nil {
		t.Fatalf("load pool: %v", err)
	}

	checkpoint := f.position.FeeGrowthInside0LastX128.Clone()
	if err := f.driver.ValuePosition(ctx, f.fund, f.token, decimal.New(1, 0), pool, f.position); err != nil {
		t.Fatalf("value position: %v", err)
	}

	if !f.position.AssetAmount.IsPositive() {
		t.Fatalf("asset amount = %s, want positive", f.position.AssetAmount)
	}
	if !f.position.FeeGrowthInside0LastX128.Eq(checkpoint) {
		t.Fatalf("valuation must not move fee checkpoints")
	}
}
