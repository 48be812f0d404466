package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/infra"
	"server/internal/middleware"
	"server/internal/sqlinline"
)

func main() {
	var (
		emailFlag    string
		nameFlag     string
		roleFlag     string
		verifiedFlag bool
		ttlFlag      time.Duration
	)
	flag.StringVar(&emailFlag, "email", "", "account email (provisioned when missing)")
	flag.StringVar(&nameFlag, "name", "", "display name to set")
	flag.StringVar(&roleFlag, "role", "donor", "role to assign (owner, platform, charity_admin, donor)")
	flag.BoolVar(&verifiedFlag, "verified", false, "mark the account identity-verified")
	flag.DurationVar(&ttlFlag, "ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	email := strings.TrimSpace(strings.ToLower(emailFlag))
	if email == "" {
		exitWithError(errors.New("-email is required"))
	}
	role := strings.TrimSpace(strings.ToLower(roleFlag))
	switch role {
	case "owner", "platform", "charity_admin", "donor":
	default:
		exitWithError(fmt.Errorf("unsupported role %q", roleFlag))
	}

	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if secret == "" {
		exitWithError(errors.New("JWT_SECRET is required"))
	}
	issuer := strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	if issuer == "" {
		issuer = "charity-core"
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "tokengen").Logger()
	runner := infra.NewSQLRunner(pool, logger)

	upsertCtx, cancelUpsert := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelUpsert()
	row := runner.QueryRow(upsertCtx, sqlinline.QUpsertUserByEmail,
		email, strings.TrimSpace(nameFlag), role, verifiedFlag)

	var (
		id          string
		gotEmail    string
		gotName     string
		gotRole     string
		gotVerified bool
	)
	if err := row.Scan(&id, &gotEmail, &gotName, &gotRole, &gotVerified); err != nil {
		exitWithError(fmt.Errorf("failed to provision user: %w", err))
	}

	token, err := middleware.SignJWT(secret, issuer, id, gotRole, ttlFlag)
	if err != nil {
		exitWithError(fmt.Errorf("failed to sign token: %w", err))
	}

	fmt.Printf("User %s (%s) role=%s verified=%v\n", id, gotEmail, gotRole, gotVerified)
	fmt.Println(token)
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
