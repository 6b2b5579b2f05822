package ledger

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// PoolState is a point-in-time read of a pool's slot0 and global fee growth.
type PoolState struct {
	SqrtPriceX96         *big.Int
	Tick                 int32
	FeeGrowthGlobal0X128 *uint256.Int
	FeeGrowthGlobal1X128 *uint256.Int
}

// TickOutside is a tick boundary's fee-growth-outside snapshot.
type TickOutside struct {
	FeeGrowthOutside0X128 *uint256.Int
	FeeGrowthOutside1X128 *uint256.Int
}

// PositionState is a point-in-time read of an on-chain position.
type PositionState struct {
	Liquidity                *big.Int
	FeeGrowthInside0LastX128 *uint256.Int
	FeeGrowthInside1LastX128 *uint256.Int
	TokensOwed0              *big.Int
	TokensOwed1              *big.Int
}

// StateReader provides read-only chain state queries against pool, token, and
// factory contracts. Failed reads surface as errors; callers decide whether a
// defined fallback applies.
type StateReader interface {
	PoolState(ctx context.Context, pool common.Address) (PoolState, error)
	TickState(ctx context.Context, pool common.Address, tick int32) (TickOutside, error)
	PositionState(ctx context.Context, pool common.Address, key common.Hash) (PositionState, error)
	// PoolByPair resolves a pool address from the factory; the zero address
	// means no pool exists for the pair and fee tier.
	PoolByPair(ctx context.Context, tokenA, tokenB common.Address, fee uint32) (common.Address, error)
	TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error)
	TokenDecimals(ctx context.Context, token common.Address) (uint8, error)
}

// FundReader provides read-only queries against a fund vault contract.
type FundReader interface {
	TotalSupply(ctx context.Context, fund common.Address) (*big.Int, error)
	TotalInvestment(ctx context.Context, fund common.Address) (*big.Int, error)
	TotalAssets(ctx context.Context, fund common.Address) (*big.Int, error)
	InvestmentOf(ctx context.Context, fund, owner common.Address) (*big.Int, error)
	PoolsLength(ctx context.Context, fund common.Address) (int, error)
}
