// Package transfer moves approved proposal funds out of custody. Crypto
// payouts settle synchronously against the custodian; bank payouts are
// dispatched and settle later through the provider webhook.
package transfer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/metrics"
)

// Custodian is the slice of the custody client the executor drives.
// Withdraw must be idempotent on ref: a retried execution reuses the same
// ref.
type Custodian interface {
	Balance(ctx context.Context, walletID string) (int64, error)
	Withdraw(ctx context.Context, walletID, destination string, amount int64, ref string) (string, error)
}

// Bank dispatches a fiat payout request. Settlement arrives asynchronously
// via webhook, keyed by transferRef.
type Bank interface {
	Dispatch(ctx context.Context, transferRef, destination string, amount int64, currency string) error
}

// Tx is the transactional surface for executions and settlements.
type Tx interface {
	ProposalForUpdate(ctx context.Context, id string) (*domain.Proposal, error)
	Project(ctx context.Context, id string) (*domain.Project, error)
	MarkExecuting(ctx context.Context, proposalID string) (bool, error)
	MarkExecuted(ctx context.Context, proposalID, txRef string) (bool, error)
	MarkFailed(ctx context.Context, proposalID, reason string) (bool, error)
	InsertTransfer(ctx context.Context, t *domain.Transfer) error
	TransferByProviderRef(ctx context.Context, ref string) (*domain.Transfer, error)
	SettleTransfer(ctx context.Context, transferID string, status domain.TransferStatus, reason string) (bool, error)
}

// Store opens executor transactions. Returning an error from fn rolls the
// whole attempt back.
type Store interface {
	Tx(ctx context.Context, fn func(tx Tx) error) error
}

// Executor settles approved withdrawal proposals.
type Executor struct {
	store     Store
	custodian Custodian
	bank      Bank
	secret    []byte
	currency  string
	logger    infra.Logger
	now       func() time.Time
}

// NewExecutor wires the executor. secret signs inbound bank webhooks;
// currency denominates dispatched bank transfers.
func NewExecutor(store Store, custodian Custodian, bank Bank, secret, currency string, logger infra.Logger) *Executor {
	return &Executor{
		store:     store,
		custodian: custodian,
		bank:      bank,
		secret:    []byte(secret),
		currency:  currency,
		logger:    logger.With().Str("component", "transfer").Logger(),
		now:       time.Now,
	}
}

// Execute pays out an approved proposal. Crypto settles inside the call:
// the proposal leaves as executed, or the transaction rolls back and it
// stays approved. Bank only dispatches: the proposal leaves as executing
// with a pending transfer row, and the webhook finishes the job.
func (e *Executor) Execute(ctx context.Context, actor domain.User, proposalID string) (*domain.Proposal, error) {
	if !domain.CanExecute(actor) {
		return nil, fmt.Errorf("execute proposal: %w", domain.ErrUnauthorized)
	}

	var out *domain.Proposal
	err := e.store.Tx(ctx, func(tx Tx) error {
		p, err := tx.ProposalForUpdate(ctx, proposalID)
		if err != nil {
			return fmt.Errorf("load proposal: %w", err)
		}
		if p.Status != domain.ProposalApproved {
			return fmt.Errorf("proposal %s is %s, want approved: %w", p.ID, p.Status, domain.ErrState)
		}
		project, err := tx.Project(ctx, p.ProjectID)
		if err != nil {
			return fmt.Errorf("load project: %w", err)
		}

		balance, err := e.custodian.Balance(ctx, project.WalletID)
		if err != nil {
			return fmt.Errorf("custody balance: %w", err)
		}
		if balance < p.Amount {
			return fmt.Errorf("wallet %s holds %d, need %d: %w", project.WalletID, balance, p.Amount, domain.ErrInsufficientBalance)
		}

		ok, err := tx.MarkExecuting(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("mark executing: %w", err)
		}
		if !ok {
			return fmt.Errorf("proposal %s changed underneath: %w", p.ID, domain.ErrState)
		}

		switch p.TransferType {
		case domain.TransferCrypto:
			out, err = e.executeCrypto(ctx, tx, p, project.WalletID)
		case domain.TransferBank:
			out, err = e.dispatchBank(ctx, tx, p)
		default:
			err = fmt.Errorf("unknown transfer type %q: %w", p.TransferType, domain.ErrIntegrity)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info().
		Str("proposal_id", out.ID).
		Str("status", string(out.Status)).
		Str("rail", string(out.TransferType)).
		Int64("amount", out.Amount).
		Msg("proposal execution dispatched")
	return out, nil
}

func (e *Executor) executeCrypto(ctx context.Context, tx Tx, p *domain.Proposal, walletID string) (*domain.Proposal, error) {
	ref := WithdrawRef(p.ID)
	txHash, err := e.custodian.Withdraw(ctx, walletID, p.DestinationRef, p.Amount, ref)
	if err != nil {
		return nil, fmt.Errorf("custodian withdraw: %w", err)
	}
	ok, err := tx.MarkExecuted(ctx, p.ID, txHash)
	if err != nil {
		return nil, fmt.Errorf("mark executed: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("proposal %s not executing: %w", p.ID, domain.ErrState)
	}
	metrics.ProposalsSettled.WithLabelValues("executed").Inc()

	now := e.now()
	p.Status = domain.ProposalExecuted
	p.TxRef = &txHash
	p.ExecutedAt = &now
	return p, nil
}

func (e *Executor) dispatchBank(ctx context.Context, tx Tx, p *domain.Proposal) (*domain.Proposal, error) {
	t := &domain.Transfer{
		ProposalID:  p.ID,
		ProviderRef: ulid.Make().String(),
		Status:      domain.TransferPending,
		Amount:      p.Amount,
		Currency:    e.currency,
	}
	if err := tx.InsertTransfer(ctx, t); err != nil {
		return nil, fmt.Errorf("insert transfer: %w", err)
	}
	if err := e.bank.Dispatch(ctx, t.ProviderRef, p.DestinationRef, p.Amount, e.currency); err != nil {
		return nil, fmt.Errorf("bank dispatch: %w", err)
	}
	p.Status = domain.ProposalExecuting
	return p, nil
}

// WithdrawRef derives the custodian idempotency reference for one proposal
// payout. Stable across retries so a re-run after a rolled-back attempt
// cannot double-withdraw.
func WithdrawRef(proposalID string) string {
	h := sha256.New()
	h.Write([]byte("milestone-withdrawal"))
	h.Write([]byte(proposalID))
	return "wd_" + hex.EncodeToString(h.Sum(nil))[:24]
}
