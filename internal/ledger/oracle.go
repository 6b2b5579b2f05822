package ledger

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"fundScope/internal/model"
)

// OracleConfig names the quote assets the oracle may price against.
type OracleConfig struct {
	// WrappedNative is the network's wrapped native asset (e.g. WETH).
	WrappedNative common.Address
	// ReferencePool is one designated high-liquidity pool pairing
	// WrappedNative with ReferenceStable, used for the native USD price.
	ReferencePool   common.Address
	ReferenceStable common.Address
	// StableTokens are assumed pegged to exactly one USD.
	StableTokens []common.Address
	// QuoteFeeTier is the fee tier used for factory pool lookups.
	QuoteFeeTier uint32
}

// Oracle resolves USD prices from pool square-root prices. A token with no
// quoting pool prices at zero; downstream math treats zero price as
// "unvalued", never as an error.
type Oracle struct {
	cfg    OracleConfig
	reader StateReader
	logger *zap.Logger

	mu       sync.RWMutex
	decimals map[common.Address]uint8
}

func NewOracle(cfg OracleConfig, reader StateReader, logger *zap.Logger) *Oracle {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.QuoteFeeTier == 0 {
		cfg.QuoteFeeTier = 3000
	}
	return &Oracle{
		cfg:      cfg,
		reader:   reader,
		logger:   logger,
		decimals: make(map[common.Address]uint8),
	}
}

// NativePriceUSD reads the reference pool's square-root price and returns the
// wrapped native asset's USD price, or zero when the read fails.
func (o *Oracle) NativePriceUSD(ctx context.Context) decimal.Decimal {
	state, err := o.reader.PoolState(ctx, o.cfg.ReferencePool)
	if err != nil {
		o.logger.Warn("reference pool read failed", zap.String("pool", o.cfg.ReferencePool.Hex()), zap.Error(err))
		return decimal.Zero
	}

	stableDecimals := o.tokenDecimals(ctx, o.cfg.ReferenceStable)
	return priceFromSqrt(state.SqrtPriceX96, o.cfg.WrappedNative, o.cfg.ReferenceStable, 18, stableDecimals)
}

// TokenPriceUSD resolves a token's USD price. The wrapped native asset uses
// the reference pool; registered stables are pegged at one; anything else is
// priced from the candidate quoting pool holding the largest quote-token USD
// liquidity.
func (o *Oracle) TokenPriceUSD(ctx context.Context, token *model.Token) decimal.Decimal {
	if token == nil {
		return decimal.Zero
	}
	address := common.HexToAddress(token.Address)

	nativeUSD := o.NativePriceUSD(ctx)
	if address == o.cfg.WrappedNative {
		return nativeUSD
	}
	for _, stable := range o.cfg.StableTokens {
		if address == stable {
			return decimal.New(1, 0)
		}
	}

	largestLiquidity := decimal.Zero
	priceSoFar := decimal.Zero

	if pool, ok := o.quotePool(ctx, address, o.cfg.WrappedNative); ok {
		liquidity := o.quoteLiquidity(ctx, o.cfg.WrappedNative, pool, 18).Mul(nativeUSD)
		if price, ok := o.poolPrice(ctx, pool, address, o.cfg.WrappedNative, token.Decimals, 18); ok {
			largestLiquidity = liquidity
			priceSoFar = price.Mul(nativeUSD)
		}
	}

	for _, stable := range o.cfg.StableTokens {
		pool, ok := o.quotePool(ctx, address, stable)
		if !ok {
			continue
		}
		stableDecimals := o.tokenDecimals(ctx, stable)
		liquidity := o.quoteLiquidity(ctx, stable, pool, stableDecimals)
		if liquidity.Cmp(largestLiquidity) <= 0 {
			continue
		}
		if price, ok := o.poolPrice(ctx, pool, address, stable, token.Decimals, stableDecimals); ok {
			largestLiquidity = liquidity
			priceSoFar = price
		}
	}

	return priceSoFar
}

func (o *Oracle) quotePool(ctx context.Context, token, quote common.Address) (common.Address, bool) {
	pool, err := o.reader.PoolByPair(ctx, token, quote, o.cfg.QuoteFeeTier)
	if err != nil {
		o.logger.Warn("factory lookup failed", zap.String("token", token.Hex()), zap.String("quote", quote.Hex()), zap.Error(err))
		return common.Address{}, false
	}
	if pool == (common.Address{}) {
		return common.Address{}, false
	}
	return pool, true
}

// quoteLiquidity is the quote token's balance held by the pool, in quote units.
func (o *Oracle) quoteLiquidity(ctx context.Context, quote, pool common.Address, quoteDecimals uint8) decimal.Decimal {
	balance, err := o.reader.TokenBalance(ctx, quote, pool)
	if err != nil {
		o.logger.Warn("quote balance read failed", zap.String("quote", quote.Hex()), zap.String("pool", pool.Hex()), zap.Error(err))
		return decimal.Zero
	}
	return model.TokenAmount(balance, quoteDecimals)
}

func (o *Oracle) poolPrice(ctx context.Context, pool, base, quote common.Address, baseDecimals, quoteDecimals uint8) (decimal.Decimal, bool) {
	state, err := o.reader.PoolState(ctx, pool)
	if err != nil {
		o.logger.Warn("pool price read failed", zap.String("pool", pool.Hex()), zap.Error(err))
		return decimal.Zero, false
	}
	return priceFromSqrt(state.SqrtPriceX96, base, quote, baseDecimals, quoteDecimals), true
}

func (o *Oracle) tokenDecimals(ctx context.Context, token common.Address) uint8 {
	o.mu.RLock()
	cached, ok := o.decimals[token]
	o.mu.RUnlock()
	if ok {
		return cached
	}

	decimals, err := o.reader.TokenDecimals(ctx, token)
	if err != nil {
		o.logger.Warn("decimals read failed", zap.String("token", token.Hex()), zap.Error(err))
		return 18
	}
	o.mu.Lock()
	o.decimals[token] = decimals
	o.mu.Unlock()
	return decimals
}

// priceFromSqrt converts a pool's Q96 square-root price into the unit price
// of base denominated in quote, inverting when the addresses sort the base
// to the token1 slot.
func priceFromSqrt(sqrtPriceX96 *big.Int, base, quote common.Address, baseDecimals, quoteDecimals uint8) decimal.Decimal {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() == 0 {
		return decimal.Zero
	}
	sqrt := decimal.NewFromBigInt(sqrtPriceX96, 0).DivRound(decimal.NewFromBigInt(fixedPointQ96, 0), 40)
	ratio := sqrt.Mul(sqrt)

	if lessAddress(base, quote) {
		// base is token0: price0 is already quote per base.
		return ratio.Mul(decimal.New(1, int32(baseDecimals))).DivRound(decimal.New(1, int32(quoteDecimals)), 18)
	}
	price0 := ratio.Mul(decimal.New(1, int32(quoteDecimals))).DivRound(decimal.New(1, int32(baseDecimals)), 40)
	if price0.IsZero() {
		return decimal.Zero
	}
	return decimal.New(1, 0).DivRound(price0, 18)
}

func lessAddress(a, b common.Address) bool {
	return a.Cmp(b) < 0
}
