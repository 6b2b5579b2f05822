package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"fundScope/internal/ledger"
)

// ContractCaller executes a read-only contract call. chain.Client satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
}

// Reader performs contract reads against pools, tokens, funds, and the
// factory. It implements ledger.StateReader and ledger.FundReader.
type Reader struct {
	chain        ContractCaller
	factory      common.Address
	rewardsToken common.Address
	logger       *zap.Logger
}

// NewReader builds a Reader. rewardsToken may be the zero address, in which
// case staking contract detection accepts any rewards token.
func NewReader(caller ContractCaller, factory, rewardsToken common.Address, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{
		chain:        caller,
		factory:      factory,
		rewardsToken: rewardsToken,
		logger:       logger,
	}
}

func (r *Reader) call(ctx context.Context, to common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &to, Data: data}
	resp, err := r.chain.CallContract(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

// PoolState reads slot0 and both global fee growth accumulators.
func (r *Reader) PoolState(ctx context.Context, pool common.Address) (ledger.PoolState, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return ledger.PoolState{}, fmt.Errorf("parse pool abi: %w", err)
	}

	values, err := r.call(ctx, pool, poolABI, "slot0")
	if err != nil {
		return ledger.PoolState{}, err
	}
	sqrtPrice, err := asBigInt(values[0])
	if err != nil {
		return ledger.PoolState{}, fmt.Errorf("sqrtPriceX96: %w", err)
	}
	tickInt, err := asBigInt(values[1])
	if err != nil {
		return ledger.PoolState{}, fmt.Errorf("tick: %w", err)
	}
	tick, err := int24FromBig(tickInt)
	if err != nil {
		return ledger.PoolState{}, fmt.Errorf("tick: %w", err)
	}

	values, err = r.call(ctx, pool, poolABI, "feeGrowthGlobal0X128")
	if err != nil {
		return ledger.PoolState{}, err
	}
	global0, err := asUint256(values[0])
	if err != nil {
		return ledger.PoolState{}, fmt.Errorf("feeGrowthGlobal0X128: %w", err)
	}

	values, err = r.call(ctx, pool, poolABI, "feeGrowthGlobal1X128")
	if err != nil {
		return ledger.PoolState{}, err
	}
	global1, err := asUint256(values[0])
	if err != nil {
		return ledger.PoolState{}, fmt.Errorf("feeGrowthGlobal1X128: %w", err)
	}

	return ledger.PoolState{
		SqrtPriceX96:         sqrtPrice,
		Tick:                 tick,
		FeeGrowthGlobal0X128: global0,
		FeeGrowthGlobal1X128: global1,
	}, nil
}

// TickState reads the fee-growth-outside snapshots of a tick boundary.
func (r *Reader) TickState(ctx context.Context, pool common.Address, tick int32) (ledger.TickOutside, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return ledger.TickOutside{}, fmt.Errorf("parse pool abi: %w", err)
	}

	values, err := r.call(ctx, pool, poolABI, "ticks", big.NewInt(int64(tick)))
	if err != nil {
		return ledger.TickOutside{}, err
	}
	outside0, err := asUint256(values[2])
	if err != nil {
		return ledger.TickOutside{}, fmt.Errorf("feeGrowthOutside0X128: %w", err)
	}
	outside1, err := asUint256(values[3])
	if err != nil {
		return ledger.TickOutside{}, fmt.Errorf("feeGrowthOutside1X128: %w", err)
	}

	return ledger.TickOutside{
		FeeGrowthOutside0X128: outside0,
		FeeGrowthOutside1X128: outside1,
	}, nil
}

// PositionState reads a position slot by its keccak key.
func (r *Reader) PositionState(ctx context.Context, pool common.Address, key common.Hash) (ledger.PositionState, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return ledger.PositionState{}, fmt.Errorf("parse pool abi: %w", err)
	}

	values, err := r.call(ctx, pool, poolABI, "positions", [32]byte(key))
	if err != nil {
		return ledger.PositionState{}, err
	}
	liquidity, err := asBigInt(values[0])
	if err != nil {
		return ledger.PositionState{}, fmt.Errorf("liquidity: %w", err)
	}
	inside0, err := asUint256(values[1])
	if err != nil {
		return ledger.PositionState{}, fmt.Errorf("feeGrowthInside0LastX128: %w", err)
	}
	inside1, err := asUint256(values[2])
	if err != nil {
		return ledger.PositionState{}, fmt.Errorf("feeGrowthInside1LastX128: %w", err)
	}
	owed0, err := asBigInt(values[3])
	if err != nil {
		return ledger.PositionState{}, fmt.Errorf("tokensOwed0: %w", err)
	}
	owed1, err := asBigInt(values[4])
	if err != nil {
		return ledger.PositionState{}, fmt.Errorf("tokensOwed1: %w", err)
	}

	return ledger.PositionState{
		Liquidity:                liquidity,
		FeeGrowthInside0LastX128: inside0,
		FeeGrowthInside1LastX128: inside1,
		TokensOwed0:              owed0,
		TokensOwed1:              owed1,
	}, nil
}

// PoolByPair resolves a pool address from the factory. The zero address means
// no pool exists for the pair and fee tier.
func (r *Reader) PoolByPair(ctx context.Context, tokenA, tokenB common.Address, fee uint32) (common.Address, error) {
	factoryABI, err := V3FactoryABI()
	if err != nil {
		return common.Address{}, fmt.Errorf("parse factory abi: %w", err)
	}

	values, err := r.call(ctx, r.factory, factoryABI, "getPool", tokenA, tokenB, big.NewInt(int64(fee)))
	if err != nil {
		return common.Address{}, err
	}
	return asAddress(values[0])
}

// TokenBalance reads balanceOf(owner) for an ERC20 token.
func (r *Reader) TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	erc20ABI, err := erc20ABIStringInstance()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}

	values, err := r.call(ctx, token, erc20ABI, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// TokenDecimals reads decimals() for an ERC20 token.
func (r *Reader) TokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	erc20ABI, err := erc20ABIStringInstance()
	if err != nil {
		return 0, fmt.Errorf("parse erc20 abi: %w", err)
	}

	values, err := r.call(ctx, token, erc20ABI, "decimals")
	if err != nil {
		return 0, err
	}
	return asUint8(values[0])
}

func (r *Reader) fundUint(ctx context.Context, fund common.Address, method string, args ...interface{}) (*big.Int, error) {
	parsed, err := FundABI()
	if err != nil {
		return nil, fmt.Errorf("parse fund abi: %w", err)
	}
	values, err := r.call(ctx, fund, parsed, method, args...)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// TotalSupply reads the fund share token supply.
func (r *Reader) TotalSupply(ctx context.Context, fund common.Address) (*big.Int, error) {
	return r.fundUint(ctx, fund, "totalSupply")
}

// TotalInvestment reads the fund's aggregate outstanding principal.
func (r *Reader) TotalInvestment(ctx context.Context, fund common.Address) (*big.Int, error) {
	return r.fundUint(ctx, fund, "totalInvestment")
}

// TotalAssets reads the fund's total assets in fund token units.
func (r *Reader) TotalAssets(ctx context.Context, fund common.Address) (*big.Int, error) {
	return r.fundUint(ctx, fund, "totalAssets")
}

// InvestmentOf reads an investor's outstanding principal.
func (r *Reader) InvestmentOf(ctx context.Context, fund, owner common.Address) (*big.Int, error) {
	return r.fundUint(ctx, fund, "investmentOf", owner)
}

func (r *Reader) fundAddress(ctx context.Context, fund common.Address, method string) (common.Address, error) {
	parsed, err := FundABI()
	if err != nil {
		return common.Address{}, fmt.Errorf("parse fund abi: %w", err)
	}
	values, err := r.call(ctx, fund, parsed, method)
	if err != nil {
		return common.Address{}, err
	}
	return asAddress(values[0])
}

// FundManager reads the fund's manager address.
func (r *Reader) FundManager(ctx context.Context, fund common.Address) (common.Address, error) {
	return r.fundAddress(ctx, fund, "manager")
}

// FundToken reads the fund's denomination token address.
func (r *Reader) FundToken(ctx context.Context, fund common.Address) (common.Address, error) {
	return r.fundAddress(ctx, fund, "token")
}

// PoolsLength reads the number of pools the fund has opened.
func (r *Reader) PoolsLength(ctx context.Context, fund common.Address) (int, error) {
	length, err := r.fundUint(ctx, fund, "poolsLength")
	if err != nil {
		return 0, err
	}
	return int(length.Int64()), nil
}

// IsStakingContract reports whether the address behaves like a staking rewards
// contract for the fund share token. Both calls must succeed, stakingToken
// must match the fund, and when the reader was configured with a rewards
// token, rewardsToken must match it too.
func (r *Reader) IsStakingContract(ctx context.Context, target, fund common.Address) bool {
	parsed, err := StakingABI()
	if err != nil {
		return false
	}

	values, err := r.call(ctx, target, parsed, "stakingToken")
	if err != nil {
		return false
	}
	stakingToken, err := asAddress(values[0])
	if err != nil || stakingToken != fund {
		return false
	}

	values, err = r.call(ctx, target, parsed, "rewardsToken")
	if err != nil {
		return false
	}
	rewards, err := asAddress(values[0])
	if err != nil {
		return false
	}
	if r.rewardsToken != (common.Address{}) && rewards != r.rewardsToken {
		return false
	}
	return true
}
