// Command sweeper runs the periodic cleanup pass: expired sessions,
// expired memberships, and expired payment orders. It runs once and
// exits; schedule it with cron or a Kubernetes CronJob.
package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quesbackend/ques-core/internal/audit"
	"github.com/quesbackend/ques-core/internal/clock"
	"github.com/quesbackend/ques-core/internal/collaborators"
	"github.com/quesbackend/ques-core/internal/config"
	"github.com/quesbackend/ques-core/internal/dbx"
	"github.com/quesbackend/ques-core/internal/identity"
	"github.com/quesbackend/ques-core/internal/membership"
	"github.com/quesbackend/ques-core/internal/payments"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = log.With().Str("service", "ques-sweeper").Logger()

	cfg := config.Load()
	if cfg.IsDev() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}

	ctx := context.Background()

	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is required")
	}

	pool, err := dbx.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()

	clk := clock.System{}
	auditLog := audit.New(pool)

	identitySvc := identity.NewService(
		identity.NewStore(pool),
		clk,
		identity.JWTCfg{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer, TTL: cfg.AccessTokenTTL},
		&collaborators.FakeNotifier{},
		auditLog,
	)
	membershipSvc := membership.NewService(pool, clk)
	paymentsSvc := payments.NewService(pool, clk, membershipSvc, map[payments.Provider]payments.Verifier{})

	sessions, err := identitySvc.SweepSessions(ctx)
	if err != nil {
		log.Error().Err(err).Msg("session sweep failed")
	} else {
		log.Info().Int64("expired_sessions", sessions).Msg("session sweep complete")
	}

	memberships, err := membershipSvc.SweepExpired(ctx)
	if err != nil {
		log.Error().Err(err).Msg("membership sweep failed")
	} else {
		log.Info().Int64("expired_memberships", memberships).Msg("membership sweep complete")
	}

	orders, err := paymentsSvc.SweepExpired(ctx)
	if err != nil {
		log.Error().Err(err).Msg("payment order sweep failed")
	} else {
		log.Info().Int64("expired_orders", orders).Msg("payment order sweep complete")
	}
}
