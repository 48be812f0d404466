package repo

import (
	"context"

	"server/internal/infra"
	"server/internal/transfer"
)

// TransferStore opens execution and settlement transactions.
type TransferStore struct {
	runner *infra.SQLRunner
}

func NewTransferStore(runner *infra.SQLRunner) *TransferStore {
	return &TransferStore{runner: runner}
}

var _ transfer.Store = (*TransferStore)(nil)

func (s *TransferStore) Tx(ctx context.Context, fn func(ttx transfer.Tx) error) error {
	return s.runner.WithTx(ctx, func(q infra.SQLExecutor) error {
		return fn(&tx{q: q})
	})
}
