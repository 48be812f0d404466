package repo

import (
	"context"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/matching"
	"server/internal/sqlinline"
)

// MatchingStore opens distribution transactions.
type MatchingStore struct {
	runner *infra.SQLRunner
}

func NewMatchingStore(runner *infra.SQLRunner) *MatchingStore {
	return &MatchingStore{runner: runner}
}

var _ matching.Store = (*MatchingStore)(nil)

// DistributeTx locks the pool row for update and runs fn. The exclusive lock
// keeps the aggregate snapshot stable for the whole run: donations take the
// share lock and wait.
func (s *MatchingStore) DistributeTx(ctx context.Context, poolID string, fn func(p domain.Pool, mtx matching.Tx) error) error {
	return s.runner.WithTx(ctx, func(q infra.SQLExecutor) error {
		p, err := lockPool(ctx, q, sqlinline.QGetPoolForUpdate, poolID)
		if err != nil {
			return err
		}
		return fn(*p, &tx{q: q, poolID: p.ID})
	})
}
