package matching

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/metrics"
)

// Custodian is the slice of the custody client the engine drives. PayOut
// must be idempotent on ref: a retried distribution reuses the same refs.
type Custodian interface {
	PayOut(ctx context.Context, walletID string, amount int64, ref string) (string, error)
}

// Tx is the transactional surface of one distribution run. Implementations
// hand it to the engine with the pool row already locked for update, so the
// whole run serializes against concurrent distributions and donations.
type Tx interface {
	Aggregates(ctx context.Context) ([]domain.Aggregate, error)
	Wallets(ctx context.Context, projectIDs []string) (map[string]string, error)
	SaveAllocations(ctx context.Context, allocs map[string]int64) error
	MarkDistributed(ctx context.Context) error
}

// Store opens distribution transactions. fn runs at most once; returning an
// error rolls everything back, leaving the pool un-distributed and
// retryable.
type Store interface {
	DistributeTx(ctx context.Context, poolID string, fn func(pool domain.Pool, tx Tx) error) error
}

// Result is one completed distribution.
type Result struct {
	PoolID      string
	Allocations map[string]int64
	Remainder   int64
	Funded      int
}

// Engine runs the quadratic matching distribution for ended pools.
type Engine struct {
	store     Store
	custodian Custodian
	logger    infra.Logger
	now       func() time.Time
}

// NewEngine wires the distribution engine.
func NewEngine(store Store, custodian Custodian, logger infra.Logger) *Engine {
	return &Engine{
		store:     store,
		custodian: custodian,
		logger:    logger.With().Str("component", "matching_engine").Logger(),
		now:       time.Now,
	}
}

// Distribute allocates the pool's matching funds exactly once. The pool must
// have ended; the caller must be the sponsor or a platform operator. On any
// payout failure the transaction rolls back whole: no allocation rows, flag
// unset, pool retryable.
func (e *Engine) Distribute(ctx context.Context, actor domain.User, poolID string) (*Result, error) {
	var res *Result
	err := e.store.DistributeTx(ctx, poolID, func(pool domain.Pool, tx Tx) error {
		if !domain.CanManagePool(actor, pool) {
			return fmt.Errorf("distribute pool %s: %w", pool.ID, domain.ErrUnauthorized)
		}
		if pool.Distributed {
			return fmt.Errorf("pool %s: %w", pool.ID, domain.ErrAlreadyDistributed)
		}
		now := e.now().UTC()
		if !pool.ReadyForDistributionAt(now) {
			return fmt.Errorf("pool %s is %s: %w", pool.ID, pool.StatusAt(now), domain.ErrState)
		}

		aggs, err := tx.Aggregates(ctx)
		if err != nil {
			return fmt.Errorf("load aggregates: %w", err)
		}
		eligible := make(map[string]int64, len(aggs))
		for _, a := range aggs {
			if a.EligibleTotal > 0 {
				eligible[a.ProjectID] = a.EligibleTotal
			}
		}

		allocs, remainder := Allocate(pool.TotalFunds, eligible)
		ids := sortedProjectIDs(allocs)

		if len(ids) > 0 {
			wallets, err := tx.Wallets(ctx, ids)
			if err != nil {
				return fmt.Errorf("load project wallets: %w", err)
			}
			for _, projectID := range ids {
				amount := allocs[projectID]
				if amount == 0 {
					continue
				}
				wallet, ok := wallets[projectID]
				if !ok {
					return fmt.Errorf("project %s has no wallet: %w", projectID, domain.ErrIntegrity)
				}
				ref := PayoutRef(pool.ID, projectID)
				if _, err := e.custodian.PayOut(ctx, wallet, amount, ref); err != nil {
					return fmt.Errorf("payout project %s: %w", projectID, err)
				}
			}
		}

		if err := tx.SaveAllocations(ctx, allocs); err != nil {
			return fmt.Errorf("save allocations: %w", err)
		}
		if err := tx.MarkDistributed(ctx); err != nil {
			return fmt.Errorf("mark distributed: %w", err)
		}

		funded := 0
		for _, amount := range allocs {
			if amount > 0 {
				funded++
			}
		}
		res = &Result{PoolID: pool.ID, Allocations: allocs, Remainder: remainder, Funded: funded}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var allocated int64
	for _, amount := range res.Allocations {
		allocated += amount
	}
	metrics.PoolsDistributed.Inc()
	e.logger.Info().
		Str("pool_id", res.PoolID).
		Int("projects_funded", res.Funded).
		Int64("allocated", allocated).
		Int64("remainder", res.Remainder).
		Msg("pool distributed")
	return res, nil
}

// PayoutRef derives the custodian idempotency reference for one pool payout.
// Stable across retries so a re-run after a mid-distribution failure cannot
// double-pay.
func PayoutRef(poolID, projectID string) string {
	h := sha256.New()
	h.Write([]byte("qf-payout"))
	h.Write([]byte(poolID))
	h.Write([]byte(projectID))
	return "qf_" + hex.EncodeToString(h.Sum(nil))[:24]
}
