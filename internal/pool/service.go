// Package pool manages matching pool lifecycle: creation, sponsor funding,
// project registration and early termination. Status is always derived from
// the row and the clock, never stored.
package pool

import (
	"context"
	"fmt"
	"strings"
	"time"

	"server/internal/domain"
	"server/internal/infra"
)

// Tx is the guarded write surface for one pool. Implementations lock the
// pool row for update before handing it over.
type Tx interface {
	Fund(ctx context.Context, amount int64) (int64, error)
	EndEarly(ctx context.Context) error
	ProjectExists(ctx context.Context, projectID string) (bool, error)
	Register(ctx context.Context, projectID string) error
}

// Store persists pools.
type Store interface {
	Insert(ctx context.Context, p *domain.Pool) error
	UpdateTx(ctx context.Context, poolID string, fn func(pool domain.Pool, tx Tx) error) error
}

// Service drives the pool lifecycle.
type Service struct {
	store  Store
	logger infra.Logger
	now    func() time.Time
}

func NewService(store Store, logger infra.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.With().Str("component", "pool").Logger(),
		now:    time.Now,
	}
}

// Create opens a new matching pool sponsored by the actor.
func (s *Service) Create(ctx context.Context, actor domain.User, name string, totalFunds int64, start, end time.Time) (*domain.Pool, error) {
	if !domain.CanCreatePool(actor) {
		return nil, fmt.Errorf("create pool: %w", domain.ErrUnauthorized)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("pool name is required: %w", domain.ErrValidation)
	}
	if totalFunds < 0 {
		return nil, fmt.Errorf("pool funds %d must not be negative: %w", totalFunds, domain.ErrValidation)
	}
	if !end.After(start) {
		return nil, fmt.Errorf("pool window end must follow start: %w", domain.ErrValidation)
	}
	if !end.After(s.now().UTC()) {
		return nil, fmt.Errorf("pool window must end in the future: %w", domain.ErrValidation)
	}

	p := &domain.Pool{
		Name:       name,
		SponsorID:  actor.ID,
		TotalFunds: totalFunds,
		StartTime:  start.UTC(),
		EndTime:    end.UTC(),
	}
	if err := s.store.Insert(ctx, p); err != nil {
		return nil, fmt.Errorf("insert pool: %w", err)
	}
	s.logger.Info().Str("pool_id", p.ID).Str("sponsor_id", p.SponsorID).Msg("pool created")
	return p, nil
}

// Fund tops up the matching pot. Allowed only while the pool has not ended:
// total funds grow monotonically and freeze with the donation window.
func (s *Service) Fund(ctx context.Context, actor domain.User, poolID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("funding amount %d must be positive: %w", amount, domain.ErrValidation)
	}
	var total int64
	err := s.store.UpdateTx(ctx, poolID, func(pool domain.Pool, tx Tx) error {
		if !domain.CanManagePool(actor, pool) {
			return fmt.Errorf("fund pool %s: %w", pool.ID, domain.ErrUnauthorized)
		}
		now := s.now().UTC()
		if !pool.AcceptsFundingAt(now) {
			return fmt.Errorf("pool %s is %s: %w", pool.ID, pool.StatusAt(now), domain.ErrState)
		}
		var err error
		total, err = tx.Fund(ctx, amount)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info().Str("pool_id", poolID).Int64("amount", amount).Int64("total_funds", total).Msg("pool funded")
	return total, nil
}

// RegisterProject links a project into the pool. Idempotent: registering an
// already linked project is a no-op.
func (s *Service) RegisterProject(ctx context.Context, actor domain.User, poolID, projectID string) error {
	err := s.store.UpdateTx(ctx, poolID, func(pool domain.Pool, tx Tx) error {
		if !domain.CanManagePool(actor, pool) {
			return fmt.Errorf("register project: %w", domain.ErrUnauthorized)
		}
		now := s.now().UTC()
		if !pool.AcceptsFundingAt(now) {
			return fmt.Errorf("pool %s is %s: %w", pool.ID, pool.StatusAt(now), domain.ErrState)
		}
		exists, err := tx.ProjectExists(ctx, projectID)
		if err != nil {
			return fmt.Errorf("check project: %w", err)
		}
		if !exists {
			return fmt.Errorf("project %s: %w", projectID, domain.ErrNotFound)
		}
		return tx.Register(ctx, projectID)
	})
	if err != nil {
		return err
	}
	s.logger.Info().Str("pool_id", poolID).Str("project_id", projectID).Msg("project registered")
	return nil
}

// EndEarly closes an active pool's donation window ahead of schedule. The
// pool becomes distributable immediately.
func (s *Service) EndEarly(ctx context.Context, actor domain.User, poolID string) error {
	err := s.store.UpdateTx(ctx, poolID, func(pool domain.Pool, tx Tx) error {
		if !domain.CanManagePool(actor, pool) {
			return fmt.Errorf("end pool %s: %w", pool.ID, domain.ErrUnauthorized)
		}
		now := s.now().UTC()
		if st := pool.StatusAt(now); st != domain.PoolActive {
			return fmt.Errorf("pool %s is %s: %w", pool.ID, st, domain.ErrState)
		}
		return tx.EndEarly(ctx)
	})
	if err != nil {
		return err
	}
	s.logger.Info().Str("pool_id", poolID).Msg("pool ended early")
	return nil
}
