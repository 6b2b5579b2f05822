package store

import (
	"context"
	"errors"

	"fundScope/internal/model"
)

// ErrNotFound reports a missing entity. Handlers that require an existing
// parent treat it as a data-integrity violation; handlers that create on
// first encounter branch on it.
var ErrNotFound = errors.New("entity not found")

// Store is the entity persistence collaborator. Writes are staged per
// handler invocation; Flush makes them durable together.
type Store interface {
	Token(ctx context.Context, address string) (*model.Token, error)
	PutToken(ctx context.Context, token *model.Token) error

	Fund(ctx context.Context, address string) (*model.Fund, error)
	PutFund(ctx context.Context, fund *model.Fund) error

	Investor(ctx context.Context, id string) (*model.Investor, error)
	PutInvestor(ctx context.Context, investor *model.Investor) error

	Pool(ctx context.Context, id string) (*model.Pool, error)
	PutPool(ctx context.Context, pool *model.Pool) error

	Position(ctx context.Context, id string) (*model.Position, error)
	PutPosition(ctx context.Context, position *model.Position) error

	Manager(ctx context.Context, address string) (*model.Manager, error)
	PutManager(ctx context.Context, manager *model.Manager) error

	InvestorSummary(ctx context.Context, address string) (*model.InvestorSummary, error)
	PutInvestorSummary(ctx context.Context, summary *model.InvestorSummary) error

	Path(ctx context.Context, id string) (*model.Path, error)
	PutPath(ctx context.Context, path *model.Path) error

	Flush(ctx context.Context) error
}
