package repo

import (
	"context"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/pool"
	"server/internal/sqlinline"
)

// PoolStore persists matching pools.
type PoolStore struct {
	runner *infra.SQLRunner
}

func NewPoolStore(runner *infra.SQLRunner) *PoolStore {
	return &PoolStore{runner: runner}
}

var _ pool.Store = (*PoolStore)(nil)

func (s *PoolStore) Insert(ctx context.Context, p *domain.Pool) error {
	return s.runner.QueryRow(ctx, sqlinline.QInsertPool,
		p.Name, p.SponsorID, p.TotalFunds, p.StartTime, p.EndTime,
	).Scan(&p.ID, &p.CreatedAt)
}

// UpdateTx locks the pool row for update and runs fn against it. Lifecycle
// writes on one pool serialize here.
func (s *PoolStore) UpdateTx(ctx context.Context, poolID string, fn func(p domain.Pool, ptx pool.Tx) error) error {
	return s.runner.WithTx(ctx, func(q infra.SQLExecutor) error {
		p, err := lockPool(ctx, q, sqlinline.QGetPoolForUpdate, poolID)
		if err != nil {
			return err
		}
		return fn(*p, &tx{q: q, poolID: p.ID})
	})
}
