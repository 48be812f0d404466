package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LerianStudio/lib-uncommons/v2/uncommons/backoff"
	"github.com/joho/godotenv"

	"server/internal/adapter/repo"
	"server/internal/domain"
	"server/internal/infra"
	"server/internal/infra/credentials"
	"server/internal/metrics"
	"server/internal/proposal"
	"server/internal/providers/aiverify"
	"server/internal/sqlinline"
)

const (
	scoreRetryAttempts = 3
	scoreRetryBase     = 500 * time.Millisecond
)

type claim struct {
	ID          string
	ProjectID   string
	MilestoneID string
	Amount      int64
	EvidenceRef string
}

type scoringWorker struct {
	ctx       context.Context
	runner    *infra.SQLRunner
	logger    infra.Logger
	verifier  *aiverify.Client
	service   *proposal.Service
	pollEvery time.Duration
}

var errNoProposalReady = errors.New("no proposal ready")

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)

	apiKey := cfg.AIVerifyAPIKey
	if apiKey == "" {
		credStore := credentials.NewStore(runner)
		keyFromStore, err := credStore.Token(ctx, credentials.ProviderAIVerify)
		if err != nil {
			logger.Warn().Err(err).Msg("worker: failed to load verification api key from store")
		} else {
			apiKey = keyFromStore
		}
	}

	verifier, err := aiverify.New(aiverify.Options{
		APIKey:  apiKey,
		BaseURL: cfg.AIVerifyBaseURL,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure verification client")
	}
	if !verifier.HasCredentials() {
		logger.Warn().Msg("worker: verification api key missing, using synthetic scoring")
	}

	worker := &scoringWorker{
		ctx:       ctx,
		runner:    runner,
		logger:    logger,
		verifier:  verifier,
		service:   proposal.NewService(repo.NewProposalStore(runner), logger),
		pollEvery: cfg.WorkerPollEvery,
	}

	if err := worker.Run(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

func (w *scoringWorker) Run() error {
	w.logger.Info().Msg("worker: started")
	for {
		select {
		case <-w.ctx.Done():
			return w.ctx.Err()
		default:
		}

		c, err := w.claimNext()
		if err != nil {
			if !errors.Is(err, errNoProposalReady) {
				w.logger.Error().Err(err).Msg("worker: failed to claim proposal")
			}
			if err := backoff.SleepWithContext(w.ctx, w.pollEvery); err != nil {
				return w.ctx.Err()
			}
			continue
		}

		w.handle(c)
	}
}

func (w *scoringWorker) claimNext() (claim, error) {
	row := w.runner.QueryRow(w.ctx, sqlinline.QWorkerClaimScoring)
	var c claim
	if err := row.Scan(&c.ID, &c.ProjectID, &c.MilestoneID, &c.Amount, &c.EvidenceRef); err != nil {
		if infra.IsNoRows(err) {
			return claim{}, errNoProposalReady
		}
		return claim{}, err
	}
	return c, nil
}

func (w *scoringWorker) handle(c claim) {
	w.logger.Info().Str("proposal_id", c.ID).Msg("worker: picked proposal")

	result, err := w.evaluate(c)
	if err != nil {
		w.logger.Error().Err(err).Str("proposal_id", c.ID).Msg("worker: scoring failed")
		metrics.ScoringRuns.WithLabelValues("error").Inc()
		w.release(c.ID)
		return
	}

	if err := w.service.Score(w.ctx, c.ID, result.Score, result.Notes); err != nil {
		// The proposal moved on while we scored it; the result is stale.
		w.logger.Warn().Err(err).Str("proposal_id", c.ID).Msg("worker: score not applied")
		metrics.ScoringRuns.WithLabelValues("stale").Inc()
		return
	}
	metrics.ScoringRuns.WithLabelValues("scored").Inc()
}

// evaluate retries transient provider failures with jittered exponential
// backoff before giving the claim back.
func (w *scoringWorker) evaluate(c claim) (*aiverify.Result, error) {
	title := w.milestoneTitle(c.MilestoneID)

	var lastErr error
	for attempt := 0; attempt < scoreRetryAttempts; attempt++ {
		if attempt > 0 {
			if err := backoff.SleepWithContext(w.ctx, backoff.ExponentialWithJitter(scoreRetryBase, attempt)); err != nil {
				return nil, err
			}
		}
		result, err := w.verifier.Evaluate(w.ctx, aiverify.Request{
			ProposalID:     c.ID,
			EvidenceRef:    c.EvidenceRef,
			MilestoneTitle: title,
			Amount:         c.Amount,
		})
		if err == nil {
			return result, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (w *scoringWorker) milestoneTitle(id string) string {
	row := w.runner.QueryRow(w.ctx, sqlinline.QGetMilestone, id)
	var m domain.Milestone
	if err := row.Scan(&m.ID, &m.ProjectID, &m.Title, &m.Percentage, &m.Position, &m.CreatedAt); err != nil {
		return ""
	}
	return m.Title
}

func (w *scoringWorker) release(id string) {
	if _, err := w.runner.Exec(w.ctx, sqlinline.QWorkerReleaseScoring, id); err != nil {
		w.logger.Error().Err(err).Str("proposal_id", id).Msg("worker: release claim failed")
	}
}
