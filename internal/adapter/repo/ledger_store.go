package repo

import (
	"context"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/ledger"
	"server/internal/sqlinline"
)

// LedgerStore persists donations and their aggregates.
type LedgerStore struct {
	runner *infra.SQLRunner
}

func NewLedgerStore(runner *infra.SQLRunner) *LedgerStore {
	return &LedgerStore{runner: runner}
}

var _ ledger.Store = (*LedgerStore)(nil)

// RecordTx locks the pool row for share and runs fn. Concurrent donations
// proceed in parallel; a distribution holding the exclusive lock blocks them
// until it commits or rolls back.
func (s *LedgerStore) RecordTx(ctx context.Context, poolID string, fn func(p domain.Pool, ltx ledger.Tx) error) error {
	return s.runner.WithTx(ctx, func(q infra.SQLExecutor) error {
		p, err := lockPool(ctx, q, sqlinline.QGetPoolForShare, poolID)
		if err != nil {
			return err
		}
		return fn(*p, &tx{q: q, poolID: p.ID})
	})
}
