// Package ledger records donations and keeps the per-pool aggregates the
// allocation engine reads.
package ledger

import (
	"context"
	"fmt"
	"time"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/metrics"
)

// Tx is the write surface of one donation transaction. Implementations hand
// it over with the pool row locked for share: donors do not serialize with
// each other, but every donation serializes against a concurrent
// distribution taking the exclusive lock.
type Tx interface {
	Registered(ctx context.Context, projectID string) (bool, error)
	InsertDonation(ctx context.Context, d *domain.Donation) error
	ApplyAggregate(ctx context.Context, d domain.Donation) error
}

// Store opens donation transactions against one pool.
type Store interface {
	RecordTx(ctx context.Context, poolID string, fn func(pool domain.Pool, tx Tx) error) error
}

// Service is the donation ledger.
type Service struct {
	store  Store
	logger infra.Logger
	now    func() time.Time
}

func NewService(store Store, logger infra.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.With().Str("component", "ledger").Logger(),
		now:    time.Now,
	}
}

// Record appends one immutable donation and folds it into the pool's
// aggregates in the same transaction. The eligible flag is capped by the
// donor's verification state: an unverified donor can never produce an
// eligible donation, whatever the caller claims.
func (s *Service) Record(ctx context.Context, donor domain.User, poolID, projectID string, amount int64, eligible bool, country *string) (*domain.Donation, error) {
	if !domain.CanDonate(donor) {
		return nil, fmt.Errorf("record donation: %w", domain.ErrUnauthorized)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("donation amount %d must be positive: %w", amount, domain.ErrValidation)
	}
	eligible = eligible && donor.EligibleDonor()

	var out *domain.Donation
	err := s.store.RecordTx(ctx, poolID, func(pool domain.Pool, tx Tx) error {
		now := s.now().UTC()
		if !pool.AcceptsDonationsAt(now) {
			return fmt.Errorf("pool %s is %s: %w", pool.ID, pool.StatusAt(now), domain.ErrPoolClosed)
		}

		registered, err := tx.Registered(ctx, projectID)
		if err != nil {
			return fmt.Errorf("check registration: %w", err)
		}
		if !registered {
			return fmt.Errorf("project %s not registered in pool %s: %w", projectID, pool.ID, domain.ErrState)
		}

		d := &domain.Donation{
			PoolID:       pool.ID,
			ProjectID:    projectID,
			DonorID:      donor.ID,
			Amount:       amount,
			Eligible:     eligible,
			DonorCountry: country,
		}
		if err := tx.InsertDonation(ctx, d); err != nil {
			return fmt.Errorf("insert donation: %w", err)
		}
		if err := tx.ApplyAggregate(ctx, *d); err != nil {
			return fmt.Errorf("apply aggregate: %w", err)
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.DonationsRecorded.Inc()
	s.logger.Info().
		Str("pool_id", out.PoolID).
		Str("project_id", out.ProjectID).
		Int64("amount", out.Amount).
		Bool("eligible", out.Eligible).
		Msg("donation recorded")
	return out, nil
}
