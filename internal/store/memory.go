package store

import (
	"context"
	"strings"

	"fundScope/internal/model"
)

// Memory is a map-backed Store used by tests and as a working set. The event
// model is strictly serial, so no locking is needed.
type Memory struct {
	tokens    map[string]*model.Token
	funds     map[string]*model.Fund
	investors map[string]*model.Investor
	pools     map[string]*model.Pool
	positions map[string]*model.Position
	managers  map[string]*model.Manager
	summaries map[string]*model.InvestorSummary
	paths     map[string]*model.Path
}

func NewMemory() *Memory {
	return &Memory{
		tokens:    make(map[string]*model.Token),
		funds:     make(map[string]*model.Fund),
		investors: make(map[string]*model.Investor),
		pools:     make(map[string]*model.Pool),
		positions: make(map[string]*model.Position),
		managers:  make(map[string]*model.Manager),
		summaries: make(map[string]*model.InvestorSummary),
		paths:     make(map[string]*model.Path),
	}
}

func (m *Memory) Token(_ context.Context, address string) (*model.Token, error) {
	return getEntity(m.tokens, address)
}

func (m *Memory) PutToken(_ context.Context, token *model.Token) error {
	m.tokens[normalizeKey(token.Address)] = token
	return nil
}

func (m *Memory) Fund(_ context.Context, address string) (*model.Fund, error) {
	return getEntity(m.funds, address)
}

func (m *Memory) PutFund(_ context.Context, fund *model.Fund) error {
	m.funds[normalizeKey(fund.Address)] = fund
	return nil
}

func (m *Memory) Investor(_ context.Context, id string) (*model.Investor, error) {
	return getEntity(m.investors, id)
}

func (m *Memory) PutInvestor(_ context.Context, investor *model.Investor) error {
	m.investors[normalizeKey(investor.ID)] = investor
	return nil
}

func (m *Memory) Pool(_ context.Context, id string) (*model.Pool, error) {
	return getEntity(m.pools, id)
}

func (m *Memory) PutPool(_ context.Context, pool *model.Pool) error {
	m.pools[normalizeKey(pool.ID)] = pool
	return nil
}

func (m *Memory) Position(_ context.Context, id string) (*model.Position, error) {
	return getEntity(m.positions, id)
}

func (m *Memory) PutPosition(_ context.Context, position *model.Position) error {
	m.positions[normalizeKey(position.ID)] = position
	return nil
}

func (m *Memory) Manager(_ context.Context, address string) (*model.Manager, error) {
	return getEntity(m.managers, address)
}

func (m *Memory) PutManager(_ context.Context, manager *model.Manager) error {
	m.managers[normalizeKey(manager.Address)] = manager
	return nil
}

func (m *Memory) InvestorSummary(_ context.Context, address string) (*model.InvestorSummary, error) {
	return getEntity(m.summaries, address)
}

func (m *Memory) PutInvestorSummary(_ context.Context, summary *model.InvestorSummary) error {
	m.summaries[normalizeKey(summary.Address)] = summary
	return nil
}

func (m *Memory) Path(_ context.Context, id string) (*model.Path, error) {
	return getEntity(m.paths, id)
}

func (m *Memory) PutPath(_ context.Context, path *model.Path) error {
	m.paths[normalizeKey(path.ID)] = path
	return nil
}

func (m *Memory) Flush(_ context.Context) error {
	return nil
}

func getEntity[T any](entities map[string]*T, key string) (*T, error) {
	entity, ok := entities[normalizeKey(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return entity, nil
}

func normalizeKey(key string) string {
	return strings.ToLower(key)
}
