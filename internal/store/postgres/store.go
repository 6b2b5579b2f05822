package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fundScope/internal/model"
	"fundScope/internal/store"
)

// Store provides Postgres persistence for fund accounting entities. Writes
// are staged in memory and sent as one batch on Flush, so a handler's entity
// updates land together. Reads serve staged entities first; a staged write is
// visible to later reads before Flush.
type Store struct {
	pool *pgxpool.Pool

	tokens    map[string]*model.Token
	funds     map[string]*model.Fund
	investors map[string]*model.Investor
	pools     map[string]*model.Pool
	positions map[string]*model.Position
	managers  map[string]*model.Manager
	summaries map[string]*model.InvestorSummary
	paths     map[string]*model.Path
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	s := &Store{pool: pool}
	s.resetStage()
	return s, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) resetStage() {
	s.tokens = make(map[string]*model.Token)
	s.funds = make(map[string]*model.Fund)
	s.investors = make(map[string]*model.Investor)
	s.pools = make(map[string]*model.Pool)
	s.positions = make(map[string]*model.Position)
	s.managers = make(map[string]*model.Manager)
	s.summaries = make(map[string]*model.InvestorSummary)
	s.paths = make(map[string]*model.Path)
}

func key(id string) string {
	return strings.ToLower(id)
}

func (s *Store) Token(ctx context.Context, address string) (*model.Token, error) {
	if token, ok := s.tokens[key(address)]; ok {
		return token, nil
	}
	token := &model.Token{}
	var totalSupply string
	row := s.pool.QueryRow(ctx, `
		SELECT address, symbol, name, decimals, total_supply, is_verified
		FROM tokens WHERE address = $1
	`, key(address))
	err := row.Scan(&token.Address, &token.Symbol, &token.Name, &token.Decimals, &totalSupply, &token.IsVerified)
	if err != nil {
		return nil, mapErr(err)
	}
	token.TotalSupply, err = parseBig(totalSupply)
	if err != nil {
		return nil, fmt.Errorf("token %s: %w", address, err)
	}
	s.tokens[key(address)] = token
	return token, nil
}

func (s *Store) PutToken(_ context.Context, token *model.Token) error {
	s.tokens[key(token.Address)] = token
	return nil
}

func (s *Store) Fund(ctx context.Context, address string) (*model.Fund, error) {
	if fund, ok := s.funds[key(address)]; ok {
		return fund, nil
	}
	fund := &model.Fund{}
	var totalSupply string
	row := s.pool.QueryRow(ctx, `
		SELECT address, manager, fund_token, decimals, total_supply, pools_length,
			balance, total_assets, total_assets_usd,
			total_investment, total_investment_usd,
			total_deposited_amount, total_deposited_amount_usd,
			total_withdrawn_amount, total_withdrawn_amount_usd,
			settlement_price, total_fees, total_pending_fees, total_withdrawn_fees,
			total_protocol_fees, total_protocol_fees_usd
		FROM funds WHERE address = $1
	`, key(address))
	err := row.Scan(
		&fund.Address, &fund.Manager, &fund.FundToken, &fund.Decimals, &totalSupply, &fund.PoolsLength,
		&fund.Balance, &fund.TotalAssets, &fund.TotalAssetsUSD,
		&fund.TotalInvestment, &fund.TotalInvestmentUSD,
		&fund.TotalDepositedAmount, &fund.TotalDepositedAmountUSD,
		&fund.TotalWithdrawnAmount, &fund.TotalWithdrawnAmountUSD,
		&fund.SettlementPrice, &fund.TotalFees, &fund.TotalPendingFees, &fund.TotalWithdrawnFees,
		&fund.TotalProtocolFees, &fund.TotalProtocolFeesUSD,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	fund.TotalSupply, err = parseBig(totalSupply)
	if err != nil {
		return nil, fmt.Errorf("fund %s: %w", address, err)
	}
	s.funds[key(address)] = fund
	return fund, nil
}

func (s *Store) PutFund(_ context.Context, fund *model.Fund) error {
	s.funds[key(fund.Address)] = fund
	return nil
}

func (s *Store) Investor(ctx context.Context, id string) (*model.Investor, error) {
	if investor, ok := s.investors[key(id)]; ok {
		return investor, nil
	}
	investor := &model.Investor{}
	var share, stakingShare string
	row := s.pool.QueryRow(ctx, `
		SELECT id, fund, address, share, staking_share,
			total_investment, total_investment_usd,
			total_deposited_amount, total_deposited_amount_usd,
			total_withdrawn_amount, total_withdrawn_amount_usd, last_deposit_time,
			settlement_price, total_fees, total_pending_fees, total_withdrawn_fees,
			total_protocol_fees, total_protocol_fees_usd
		FROM investors WHERE id = $1
	`, key(id))
	err := row.Scan(
		&investor.ID, &investor.Fund, &investor.Address, &share, &stakingShare,
		&investor.TotalInvestment, &investor.TotalInvestmentUSD,
		&investor.TotalDepositedAmount, &investor.TotalDepositedAmountUSD,
		&investor.TotalWithdrawnAmount, &investor.TotalWithdrawnAmountUSD, &investor.LastDepositTime,
		&investor.SettlementPrice, &investor.TotalFees, &investor.TotalPendingFees, &investor.TotalWithdrawnFees,
		&investor.TotalProtocolFees, &investor.TotalProtocolFeesUSD,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	if investor.Share, err = parseBig(share); err != nil {
		return nil, fmt.Errorf("investor %s: %w", id, err)
	}
	if investor.StakingShare, err = parseBig(stakingShare); err != nil {
		return nil, fmt.Errorf("investor %s: %w", id, err)
	}
	s.investors[key(id)] = investor
	return investor, nil
}

func (s *Store) PutInvestor(_ context.Context, investor *model.Investor) error {
	s.investors[key(investor.ID)] = investor
	return nil
}

func (s *Store) Pool(ctx context.Context, id string) (*model.Pool, error) {
	if pool, ok := s.pools[key(id)]; ok {
		return pool, nil
	}
	pool := &model.Pool{}
	row := s.pool.QueryRow(ctx, `
		SELECT id, fund, address, token0, token1, fee, positions_length,
			asset_amount, asset_amount_usd, asset_share
		FROM pools WHERE id = $1
	`, key(id))
	err := row.Scan(
		&pool.ID, &pool.Fund, &pool.Address, &pool.Token0, &pool.Token1, &pool.Fee, &pool.PositionsLength,
		&pool.AssetAmount, &pool.AssetAmountUSD, &pool.AssetShare,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	s.pools[key(id)] = pool
	return pool, nil
}

func (s *Store) PutPool(_ context.Context, pool *model.Pool) error {
	s.pools[key(pool.ID)] = pool
	return nil
}

func (s *Store) Position(ctx context.Context, id string) (*model.Position, error) {
	if position, ok := s.positions[key(id)]; ok {
		return position, nil
	}
	position := &model.Position{}
	var positionKey, liquidity, inside0, inside1 string
	row := s.pool.QueryRow(ctx, `
		SELECT id, pool, fund, pool_index, position_index, position_key,
			tick_lower, tick_upper, is_empty, liquidity,
			fee_growth_inside0_last_x128, fee_growth_inside1_last_x128,
			asset_amount, asset_amount_usd, asset_share
		FROM positions WHERE id = $1
	`, key(id))
	err := row.Scan(
		&position.ID, &position.Pool, &position.Fund, &position.PoolIndex, &position.PositionIndex, &positionKey,
		&position.TickLower, &position.TickUpper, &position.IsEmpty, &liquidity,
		&inside0, &inside1,
		&position.AssetAmount, &position.AssetAmountUSD, &position.AssetShare,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	position.PositionKey = common.HexToHash(positionKey)
	if position.Liquidity, err = parseBig(liquidity); err != nil {
		return nil, fmt.Errorf("position %s: %w", id, err)
	}
	if position.FeeGrowthInside0LastX128, err = parseUint256(inside0); err != nil {
		return nil, fmt.Errorf("position %s: %w", id, err)
	}
	if position.FeeGrowthInside1LastX128, err = parseUint256(inside1); err != nil {
		return nil, fmt.Errorf("position %s: %w", id, err)
	}
	s.positions[key(id)] = position
	return position, nil
}

func (s *Store) PutPosition(_ context.Context, position *model.Position) error {
	s.positions[key(position.ID)] = position
	return nil
}

func (s *Store) Manager(ctx context.Context, address string) (*model.Manager, error) {
	if manager, ok := s.managers[key(address)]; ok {
		return manager, nil
	}
	manager := &model.Manager{}
	row := s.pool.QueryRow(ctx, `
		SELECT address, total_fees, total_pending_fees, total_withdrawn_fees,
			total_investment_usd, total_assets_usd
		FROM managers WHERE address = $1
	`, key(address))
	err := row.Scan(
		&manager.Address, &manager.TotalFees, &manager.TotalPendingFees, &manager.TotalWithdrawnFees,
		&manager.TotalInvestmentUSD, &manager.TotalAssetsUSD,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	s.managers[key(address)] = manager
	return manager, nil
}

func (s *Store) PutManager(_ context.Context, manager *model.Manager) error {
	s.managers[key(manager.Address)] = manager
	return nil
}

func (s *Store) InvestorSummary(ctx context.Context, address string) (*model.InvestorSummary, error) {
	if summary, ok := s.summaries[key(address)]; ok {
		return summary, nil
	}
	summary := &model.InvestorSummary{}
	row := s.pool.QueryRow(ctx, `
		SELECT address, total_investment_usd, total_protocol_fees_usd, created_timestamp, created_block
		FROM investor_summaries WHERE address = $1
	`, key(address))
	err := row.Scan(
		&summary.Address, &summary.TotalInvestmentUSD, &summary.TotalProtocolFeesUSD,
		&summary.CreatedTimestamp, &summary.CreatedBlock,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	s.summaries[key(address)] = summary
	return summary, nil
}

func (s *Store) PutInvestorSummary(_ context.Context, summary *model.InvestorSummary) error {
	s.summaries[key(summary.Address)] = summary
	return nil
}

func (s *Store) Path(ctx context.Context, id string) (*model.Path, error) {
	if path, ok := s.paths[key(id)]; ok {
		return path, nil
	}
	path := &model.Path{}
	var pathPools []byte
	row := s.pool.QueryRow(ctx, `
		SELECT id, fund, dist_token, raw, path_pools FROM paths WHERE id = $1
	`, key(id))
	err := row.Scan(&path.ID, &path.Fund, &path.DistToken, &path.Raw, &pathPools)
	if err != nil {
		return nil, mapErr(err)
	}
	if err := json.Unmarshal(pathPools, &path.PathPools); err != nil {
		return nil, fmt.Errorf("path %s: %w", id, err)
	}
	s.paths[key(id)] = path
	return path, nil
}

func (s *Store) PutPath(_ context.Context, path *model.Path) error {
	s.paths[key(path.ID)] = path
	return nil
}

// Flush sends every cached entity as one upsert batch. The working set is
// retained so reads after Flush stay warm.
func (s *Store) Flush(ctx context.Context) error {
	batch := &pgx.Batch{}
	queued := 0

	for _, token := range s.tokens {
		batch.Queue(`
			INSERT INTO tokens (address, symbol, name, decimals, total_supply, is_verified, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, now())
			ON CONFLICT (address) DO UPDATE SET
				symbol = EXCLUDED.symbol,
				name = EXCLUDED.name,
				decimals = EXCLUDED.decimals,
				total_supply = EXCLUDED.total_supply,
				is_verified = EXCLUDED.is_verified,
				updated_at = now()
		`,
			key(token.Address), token.Symbol, token.Name, token.Decimals,
			bigString(token.TotalSupply), token.IsVerified,
		)
		queued++
	}

	for _, fund := range s.funds {
		batch.Queue(`
			INSERT INTO funds (
				address, manager, fund_token, decimals, total_supply, pools_length,
				balance, total_assets, total_assets_usd,
				total_investment, total_investment_usd,
				total_deposited_amount, total_deposited_amount_usd,
				total_withdrawn_amount, total_withdrawn_amount_usd,
				settlement_price, total_fees, total_pending_fees, total_withdrawn_fees,
				total_protocol_fees, total_protocol_fees_usd, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,now())
			ON CONFLICT (address) DO UPDATE SET
				manager = EXCLUDED.manager,
				fund_token = EXCLUDED.fund_token,
				decimals = EXCLUDED.decimals,
				total_supply = EXCLUDED.total_supply,
				pools_length = EXCLUDED.pools_length,
				balance = EXCLUDED.balance,
				total_assets = EXCLUDED.total_assets,
				total_assets_usd = EXCLUDED.total_assets_usd,
				total_investment = EXCLUDED.total_investment,
				total_investment_usd = EXCLUDED.total_investment_usd,
				total_deposited_amount = EXCLUDED.total_deposited_amount,
				total_deposited_amount_usd = EXCLUDED.total_deposited_amount_usd,
				total_withdrawn_amount = EXCLUDED.total_withdrawn_amount,
				total_withdrawn_amount_usd = EXCLUDED.total_withdrawn_amount_usd,
				settlement_price = EXCLUDED.settlement_price,
				total_fees = EXCLUDED.total_fees,
				total_pending_fees = EXCLUDED.total_pending_fees,
				total_withdrawn_fees = EXCLUDED.total_withdrawn_fees,
				total_protocol_fees = EXCLUDED.total_protocol_fees,
				total_protocol_fees_usd = EXCLUDED.total_protocol_fees_usd,
				updated_at = now()
		`,
			key(fund.Address), key(fund.Manager), key(fund.FundToken), fund.Decimals,
			bigString(fund.TotalSupply), fund.PoolsLength,
			fund.Balance, fund.TotalAssets, fund.TotalAssetsUSD,
			fund.TotalInvestment, fund.TotalInvestmentUSD,
			fund.TotalDepositedAmount, fund.TotalDepositedAmountUSD,
			fund.TotalWithdrawnAmount, fund.TotalWithdrawnAmountUSD,
			fund.SettlementPrice, fund.TotalFees, fund.TotalPendingFees, fund.TotalWithdrawnFees,
			fund.TotalProtocolFees, fund.TotalProtocolFeesUSD,
		)
		queued++
	}

	for _, investor := range s.investors {
		batch.Queue(`
			INSERT INTO investors (
				id, fund, address, share, staking_share,
				total_investment, total_investment_usd,
				total_deposited_amount, total_deposited_amount_usd,
				total_withdrawn_amount, total_withdrawn_amount_usd, last_deposit_time,
				settlement_price, total_fees, total_pending_fees, total_withdrawn_fees,
				total_protocol_fees, total_protocol_fees_usd, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,now())
			ON CONFLICT (id) DO UPDATE SET
				share = EXCLUDED.share,
				staking_share = EXCLUDED.staking_share,
				total_investment = EXCLUDED.total_investment,
				total_investment_usd = EXCLUDED.total_investment_usd,
				total_deposited_amount = EXCLUDED.total_deposited_amount,
				total_deposited_amount_usd = EXCLUDED.total_deposited_amount_usd,
				total_withdrawn_amount = EXCLUDED.total_withdrawn_amount,
				total_withdrawn_amount_usd = EXCLUDED.total_withdrawn_amount_usd,
				last_deposit_time = EXCLUDED.last_deposit_time,
				settlement_price = EXCLUDED.settlement_price,
				total_fees = EXCLUDED.total_fees,
				total_pending_fees = EXCLUDED.total_pending_fees,
				total_withdrawn_fees = EXCLUDED.total_withdrawn_fees,
				total_protocol_fees = EXCLUDED.total_protocol_fees,
				total_protocol_fees_usd = EXCLUDED.total_protocol_fees_usd,
				updated_at = now()
		`,
			key(investor.ID), key(investor.Fund), key(investor.Address),
			bigString(investor.Share), bigString(investor.StakingShare),
			investor.TotalInvestment, investor.TotalInvestmentUSD,
			investor.TotalDepositedAmount, investor.TotalDepositedAmountUSD,
			investor.TotalWithdrawnAmount, investor.TotalWithdrawnAmountUSD, investor.LastDepositTime,
			investor.SettlementPrice, investor.TotalFees, investor.TotalPendingFees, investor.TotalWithdrawnFees,
			investor.TotalProtocolFees, investor.TotalProtocolFeesUSD,
		)
		queued++
	}

	for _, pool := range s.pools {
		batch.Queue(`
			INSERT INTO pools (
				id, fund, address, token0, token1, fee, positions_length,
				asset_amount, asset_amount_usd, asset_share, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,now())
			ON CONFLICT (id) DO UPDATE SET
				positions_length = EXCLUDED.positions_length,
				asset_amount = EXCLUDED.asset_amount,
				asset_amount_usd = EXCLUDED.asset_amount_usd,
				asset_share = EXCLUDED.asset_share,
				updated_at = now()
		`,
			key(pool.ID), key(pool.Fund), key(pool.Address), key(pool.Token0), key(pool.Token1),
			pool.Fee, pool.PositionsLength,
			pool.AssetAmount, pool.AssetAmountUSD, pool.AssetShare,
		)
		queued++
	}

	for _, position := range s.positions {
		batch.Queue(`
			INSERT INTO positions (
				id, pool, fund, pool_index, position_index, position_key,
				tick_lower, tick_upper, is_empty, liquidity,
				fee_growth_inside0_last_x128, fee_growth_inside1_last_x128,
				asset_amount, asset_amount_usd, asset_share, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,now())
			ON CONFLICT (id) DO UPDATE SET
				is_empty = EXCLUDED.is_empty,
				liquidity = EXCLUDED.liquidity,
				fee_growth_inside0_last_x128 = EXCLUDED.fee_growth_inside0_last_x128,
				fee_growth_inside1_last_x128 = EXCLUDED.fee_growth_inside1_last_x128,
				asset_amount = EXCLUDED.asset_amount,
				asset_amount_usd = EXCLUDED.asset_amount_usd,
				asset_share = EXCLUDED.asset_share,
				updated_at = now()
		`,
			key(position.ID), key(position.Pool), key(position.Fund),
			position.PoolIndex, position.PositionIndex, position.PositionKey.Hex(),
			position.TickLower, position.TickUpper, position.IsEmpty, bigString(position.Liquidity),
			uintString(position.FeeGrowthInside0LastX128), uintString(position.FeeGrowthInside1LastX128),
			position.AssetAmount, position.AssetAmountUSD, position.AssetShare,
		)
		queued++
	}

	for _, manager := range s.managers {
		batch.Queue(`
			INSERT INTO managers (
				address, total_fees, total_pending_fees, total_withdrawn_fees,
				total_investment_usd, total_assets_usd, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,now())
			ON CONFLICT (address) DO UPDATE SET
				total_fees = EXCLUDED.total_fees,
				total_pending_fees = EXCLUDED.total_pending_fees,
				total_withdrawn_fees = EXCLUDED.total_withdrawn_fees,
				total_investment_usd = EXCLUDED.total_investment_usd,
				total_assets_usd = EXCLUDED.total_assets_usd,
				updated_at = now()
		`,
			key(manager.Address), manager.TotalFees, manager.TotalPendingFees, manager.TotalWithdrawnFees,
			manager.TotalInvestmentUSD, manager.TotalAssetsUSD,
		)
		queued++
	}

	for _, summary := range s.summaries {
		batch.Queue(`
			INSERT INTO investor_summaries (
				address, total_investment_usd, total_protocol_fees_usd,
				created_timestamp, created_block, updated_at
			) VALUES ($1,$2,$3,$4,$5,now())
			ON CONFLICT (address) DO UPDATE SET
				total_investment_usd = EXCLUDED.total_investment_usd,
				total_protocol_fees_usd = EXCLUDED.total_protocol_fees_usd,
				updated_at = now()
		`,
			key(summary.Address), summary.TotalInvestmentUSD, summary.TotalProtocolFeesUSD,
			summary.CreatedTimestamp, summary.CreatedBlock,
		)
		queued++
	}

	for _, path := range s.paths {
		pathPools, err := json.Marshal(path.PathPools)
		if err != nil {
			return fmt.Errorf("marshal path %s: %w", path.ID, err)
		}
		batch.Queue(`
			INSERT INTO paths (id, fund, dist_token, raw, path_pools, updated_at)
			VALUES ($1,$2,$3,$4,$5,now())
			ON CONFLICT (id) DO UPDATE SET
				raw = EXCLUDED.raw,
				path_pools = EXCLUDED.path_pools,
				updated_at = now()
		`,
			key(path.ID), key(path.Fund), key(path.DistToken), path.Raw, pathPools,
		)
		queued++
	}

	if queued == 0 {
		return nil
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < queued; i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadAggregates returns the persisted aggregate snapshot, if any.
func (s *Store) LoadAggregates(ctx context.Context) (*model.Aggregates, bool, error) {
	var body []byte
	row := s.pool.QueryRow(ctx, `SELECT body FROM aggregates WHERE name = 'global'`)
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	aggregates := &model.Aggregates{}
	if err := json.Unmarshal(body, aggregates); err != nil {
		return nil, false, err
	}
	return aggregates, true, nil
}

// SaveAggregates upserts the aggregate snapshot.
func (s *Store) SaveAggregates(ctx context.Context, aggregates *model.Aggregates) error {
	body, err := json.Marshal(aggregates)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO aggregates (name, body, updated_at)
		VALUES ('global', $1, now())
		ON CONFLICT (name) DO UPDATE
		SET body = EXCLUDED.body, updated_at = now()
	`, body)
	return err
}

func mapErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func bigString(value *big.Int) string {
	if value == nil {
		return "0"
	}
	return value.String()
}

func uintString(value *uint256.Int) string {
	if value == nil {
		return "0"
	}
	return value.Dec()
}

func parseBig(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", value)
	}
	return parsed, nil
}

func parseUint256(value string) (*uint256.Int, error) {
	parsed, err := parseBig(value)
	if err != nil {
		return nil, err
	}
	converted, overflow := uint256.FromBig(parsed)
	if overflow {
		return nil, fmt.Errorf("integer %q overflows 256 bits", value)
	}
	return converted, nil
}
