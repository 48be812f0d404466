package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"server/internal/adapter/repo"
	"server/internal/http/handlers"
	"server/internal/http/httpapi"
	"server/internal/infra"
	"server/internal/infra/credentials"
	"server/internal/infra/geoip"
	"server/internal/ledger"
	"server/internal/matching"
	"server/internal/middleware"
	"server/internal/pool"
	"server/internal/proposal"
	"server/internal/providers/bank"
	"server/internal/providers/custodian"
	"server/internal/transfer"
	"server/migrations"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	if err := infra.RunMigrations(migrations.FS, cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	runner := infra.NewSQLRunner(dbpool, logger)
	creds := credentials.NewStore(runner)

	custodianClient, err := custodian.New(custodian.Options{
		APIKey:  resolveKey(ctx, creds, credentials.ProviderCustodian, cfg.CustodianAPIKey),
		BaseURL: cfg.CustodianBaseURL,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init custodian client")
	}
	bankClient, err := bank.New(bank.Options{
		APIKey:  resolveKey(ctx, creds, credentials.ProviderBank, cfg.BankAPIKey),
		BaseURL: cfg.BankBaseURL,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init bank client")
	}

	app := &handlers.App{
		SQL:       runner,
		Logger:    logger,
		Config:    cfg,
		Pools:     pool.NewService(repo.NewPoolStore(runner), logger),
		Ledger:    ledger.NewService(repo.NewLedgerStore(runner), logger),
		Engine:    matching.NewEngine(repo.NewMatchingStore(runner), custodianClient, logger),
		Proposals: proposal.NewService(repo.NewProposalStore(runner), logger),
		Transfers: transfer.NewExecutor(repo.NewTransferStore(runner), custodianClient, bankClient,
			cfg.BankWebhookSecret, cfg.Currency, logger),
		Validate: validator.New(),
	}

	var lookup middleware.CountryLookup
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open geoip database")
	}
	if resolver != nil {
		lookup = resolver.CountryCode
	}

	router := httpapi.NewRouter(app, lookup)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

// resolveKey prefers the environment variable over a stored credential, so
// deploys can pin keys while operators rotate the rest through the store.
func resolveKey(ctx context.Context, store *credentials.Store, provider, envValue string) string {
	if envValue != "" {
		return envValue
	}
	key, err := store.Token(ctx, provider)
	if err != nil {
		return ""
	}
	return key
}
