package repo

import (
	"context"

	"server/internal/infra"
	"server/internal/proposal"
	"server/internal/sqlinline"
)

// ProposalStore persists withdrawal proposals and votes.
type ProposalStore struct {
	runner *infra.SQLRunner
}

func NewProposalStore(runner *infra.SQLRunner) *ProposalStore {
	return &ProposalStore{runner: runner}
}

var _ proposal.Store = (*ProposalStore)(nil)

func (s *ProposalStore) Tx(ctx context.Context, fn func(ptx proposal.Tx) error) error {
	return s.runner.WithTx(ctx, func(q infra.SQLExecutor) error {
		return fn(&tx{q: q})
	})
}

// ScoreProposal lands the advisory score on a still-pending row. One guarded
// statement, no surrounding transaction needed.
func (s *ProposalStore) ScoreProposal(ctx context.Context, id string, score int, notes string) (bool, error) {
	tag, err := s.runner.Exec(ctx, sqlinline.QScoreProposal, id, score, notes)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
