// Package repo implements the component store interfaces on PostgreSQL
// through the marker-checked SQL runner. One transactional surface backs all
// write paths; row locks are taken by the stores before control reaches the
// component code.
package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/ledger"
	"server/internal/matching"
	"server/internal/pool"
	"server/internal/proposal"
	"server/internal/sqlinline"
	"server/internal/transfer"
)

// tx is the concrete transactional surface handed to the component services.
// Pool-scoped methods operate on the pool row locked when the transaction
// opened; entity-scoped methods take explicit ids.
type tx struct {
	q      infra.SQLExecutor
	poolID string
}

var (
	_ pool.Tx     = (*tx)(nil)
	_ ledger.Tx   = (*tx)(nil)
	_ matching.Tx = (*tx)(nil)
	_ proposal.Tx = (*tx)(nil)
	_ transfer.Tx = (*tx)(nil)
)

func (t *tx) Fund(ctx context.Context, amount int64) (int64, error) {
	var total int64
	if err := t.q.QueryRow(ctx, sqlinline.QFundPool, t.poolID, amount).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (t *tx) EndEarly(ctx context.Context) error {
	_, err := t.q.Exec(ctx, sqlinline.QEndPoolEarly, t.poolID)
	return err
}

func (t *tx) ProjectExists(ctx context.Context, projectID string) (bool, error) {
	var exists bool
	err := t.q.QueryRow(ctx, sqlinline.QProjectExists, projectID).Scan(&exists)
	return exists, err
}

func (t *tx) Register(ctx context.Context, projectID string) error {
	_, err := t.q.Exec(ctx, sqlinline.QRegisterPoolProject, t.poolID, projectID)
	return err
}

func (t *tx) Registered(ctx context.Context, projectID string) (bool, error) {
	var registered bool
	err := t.q.QueryRow(ctx, sqlinline.QPoolProjectRegistered, t.poolID, projectID).Scan(&registered)
	return registered, err
}

func (t *tx) InsertDonation(ctx context.Context, d *domain.Donation) error {
	country := ""
	if d.DonorCountry != nil {
		country = *d.DonorCountry
	}
	return t.q.QueryRow(ctx, sqlinline.QInsertDonation,
		d.PoolID, d.ProjectID, d.DonorID, d.Amount, d.Eligible, country,
	).Scan(&d.ID, &d.CreatedAt)
}

func (t *tx) ApplyAggregate(ctx context.Context, d domain.Donation) error {
	_, err := t.q.Exec(ctx, sqlinline.QApplyDonationAggregate,
		d.PoolID, d.ProjectID, d.DonorID, d.Amount, d.Eligible)
	return err
}

func (t *tx) Aggregates(ctx context.Context) ([]domain.Aggregate, error) {
	rows, err := t.q.Query(ctx, sqlinline.QPoolAggregates, t.poolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Aggregate
	for rows.Next() {
		var a domain.Aggregate
		if err := rows.Scan(&a.PoolID, &a.ProjectID, &a.RawTotal, &a.EligibleTotal, &a.ContributorCount, &a.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (t *tx) Wallets(ctx context.Context, projectIDs []string) (map[string]string, error) {
	rows, err := t.q.Query(ctx, sqlinline.QProjectWallets, projectIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	wallets := make(map[string]string, len(projectIDs))
	for rows.Next() {
		var id, wallet string
		if err := rows.Scan(&id, &wallet); err != nil {
			return nil, err
		}
		wallets[id] = wallet
	}
	return wallets, rows.Err()
}

func (t *tx) SaveAllocations(ctx context.Context, allocs map[string]int64) error {
	for projectID, amount := range allocs {
		if _, err := t.q.Exec(ctx, sqlinline.QInsertAllocation, t.poolID, projectID, amount); err != nil {
			return err
		}
	}
	return nil
}

func (t *tx) MarkDistributed(ctx context.Context) error {
	_, err := t.q.Exec(ctx, sqlinline.QMarkPoolDistributed, t.poolID)
	return err
}

func (t *tx) Project(ctx context.Context, id string) (*domain.Project, error) {
	var p domain.Project
	err := t.q.QueryRow(ctx, sqlinline.QGetProject, id).
		Scan(&p.ID, &p.Name, &p.FundingGoal, &p.WalletID, &p.AdminUserID, &p.CreatedAt)
	if infra.IsNoRows(err) {
		return nil, fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *tx) Milestone(ctx context.Context, id string) (*domain.Milestone, error) {
	var m domain.Milestone
	err := t.q.QueryRow(ctx, sqlinline.QGetMilestone, id).
		Scan(&m.ID, &m.ProjectID, &m.Title, &m.Percentage, &m.Position, &m.CreatedAt)
	if infra.IsNoRows(err) {
		return nil, fmt.Errorf("milestone %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (t *tx) MilestoneExecutedTotal(ctx context.Context, milestoneID string) (int64, error) {
	var total int64
	err := t.q.QueryRow(ctx, sqlinline.QMilestoneExecutedTotal, milestoneID).Scan(&total)
	return total, err
}

func (t *tx) OpenProposalExists(ctx context.Context, milestoneID string) (bool, error) {
	var exists bool
	err := t.q.QueryRow(ctx, sqlinline.QOpenProposalExists, milestoneID).Scan(&exists)
	return exists, err
}

func (t *tx) InsertProposal(ctx context.Context, p *domain.Proposal) error {
	return t.q.QueryRow(ctx, sqlinline.QInsertProposal,
		p.ProjectID, p.MilestoneID, p.Amount, p.EvidenceRef, string(p.TransferType), p.DestinationRef,
	).Scan(&p.ID, &p.CreatedAt)
}

func (t *tx) ProposalForUpdate(ctx context.Context, id string) (*domain.Proposal, error) {
	p, err := scanProposal(t.q.QueryRow(ctx, sqlinline.QGetProposalForUpdate, id))
	if infra.IsNoRows(err) {
		return nil, fmt.Errorf("proposal %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (t *tx) UpsertVote(ctx context.Context, v domain.Vote) error {
	_, err := t.q.Exec(ctx, sqlinline.QUpsertVote, v.ProposalID, v.VoterID, v.Approve, v.Comment)
	return err
}

func (t *tx) RecountVotes(ctx context.Context, proposalID string) (int, int, error) {
	var approvals, rejections int
	err := t.q.QueryRow(ctx, sqlinline.QRecountProposalVotes, proposalID).Scan(&approvals, &rejections)
	return approvals, rejections, err
}

// Decide flips a pending or scored proposal to its decision. The guard lives
// in the statement; zero rows back means the status changed underneath.
func (t *tx) Decide(ctx context.Context, proposalID string, status domain.ProposalStatus, deciderID, note string) (bool, error) {
	var got string
	err := t.q.QueryRow(ctx, sqlinline.QDecideProposal, proposalID, string(status), deciderID, note).Scan(&got)
	if infra.IsNoRows(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (t *tx) MarkExecuting(ctx context.Context, proposalID string) (bool, error) {
	tag, err := t.q.Exec(ctx, sqlinline.QMarkProposalExecuting, proposalID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t *tx) MarkExecuted(ctx context.Context, proposalID, txRef string) (bool, error) {
	tag, err := t.q.Exec(ctx, sqlinline.QMarkProposalExecuted, proposalID, txRef)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t *tx) MarkFailed(ctx context.Context, proposalID, reason string) (bool, error) {
	tag, err := t.q.Exec(ctx, sqlinline.QMarkProposalFailed, proposalID, reason)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t *tx) InsertTransfer(ctx context.Context, tr *domain.Transfer) error {
	return t.q.QueryRow(ctx, sqlinline.QInsertTransfer,
		tr.ProposalID, tr.ProviderRef, tr.Amount, tr.Currency,
	).Scan(&tr.ID)
}

func (t *tx) TransferByProviderRef(ctx context.Context, ref string) (*domain.Transfer, error) {
	var tr domain.Transfer
	err := t.q.QueryRow(ctx, sqlinline.QGetTransferByProviderRef, ref).
		Scan(&tr.ID, &tr.ProposalID, &tr.ProviderRef, &tr.Status, &tr.Amount, &tr.Currency, &tr.FailureReason, &tr.CreatedAt, &tr.UpdatedAt)
	if infra.IsNoRows(err) {
		return nil, fmt.Errorf("transfer ref %s: %w", ref, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &tr, nil
}

func (t *tx) SettleTransfer(ctx context.Context, transferID string, status domain.TransferStatus, reason string) (bool, error) {
	tag, err := t.q.Exec(ctx, sqlinline.QSettleTransfer, transferID, string(status), reason)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func scanPool(row pgx.Row) (*domain.Pool, error) {
	var p domain.Pool
	err := row.Scan(&p.ID, &p.Name, &p.SponsorID, &p.TotalFunds, &p.StartTime, &p.EndTime,
		&p.EndedEarly, &p.Distributed, &p.DistributedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanProposal(row pgx.Row) (*domain.Proposal, error) {
	var p domain.Proposal
	err := row.Scan(&p.ID, &p.ProjectID, &p.MilestoneID, &p.Amount, &p.EvidenceRef, &p.TransferType, &p.DestinationRef, &p.Status,
		&p.AIScore, &p.AINotes, &p.AIStartedAt, &p.Approvals, &p.Rejections, &p.RequiredApprovals,
		&p.DecidedBy, &p.DecisionNote, &p.FailureReason, &p.TxRef, &p.CreatedAt, &p.UpdatedAt, &p.ExecutedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// lockPool loads the pool row under the given locking query.
func lockPool(ctx context.Context, q infra.SQLExecutor, query, poolID string) (*domain.Pool, error) {
	p, err := scanPool(q.QueryRow(ctx, query, poolID))
	if infra.IsNoRows(err) {
		return nil, fmt.Errorf("pool %s: %w", poolID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}
