package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/workos/workos-go/v6/pkg/usermanagement"

	"github.com/quesbackend/ques-core/internal/agent"
	"github.com/quesbackend/ques-core/internal/audit"
	"github.com/quesbackend/ques-core/internal/chat"
	"github.com/quesbackend/ques-core/internal/clock"
	"github.com/quesbackend/ques-core/internal/collaborators"
	"github.com/quesbackend/ques-core/internal/config"
	"github.com/quesbackend/ques-core/internal/dbx"
	"github.com/quesbackend/ques-core/internal/httpapi"
	"github.com/quesbackend/ques-core/internal/identity"
	"github.com/quesbackend/ques-core/internal/membership"
	"github.com/quesbackend/ques-core/internal/payments"
	"github.com/quesbackend/ques-core/internal/quota"
	"github.com/quesbackend/ques-core/internal/ratelimit"
	"github.com/quesbackend/ques-core/internal/swipe"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = log.With().Str("service", "ques-core").Logger()

	cfg := config.Load()
	if cfg.IsDev() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}

	ctx := context.Background()

	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is required")
	}

	if err := dbx.Migrate(ctx, cfg.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	pool, err := dbx.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()

	clk := clock.System{}
	auditLog := audit.New(pool)

	notifier := &collaborators.FakeNotifier{}
	identitySvc := identity.NewService(
		identity.NewStore(pool),
		clk,
		identity.JWTCfg{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer, TTL: cfg.AccessTokenTTL},
		notifier,
		auditLog,
	)

	rateLimiter := ratelimit.NewLimiter()

	membershipSvc := membership.NewService(pool, clk)
	quotaSvc := quota.NewService(pool, clk, membershipSvc)

	verifiers := map[payments.Provider]payments.Verifier{}
	if cfg.WeChatAppID != "" {
		verifiers[payments.ProviderWeChat] = payments.NewWeChatClient(payments.WeChatConfig{
			AppID:  cfg.WeChatAppID,
			APIKey: cfg.WeChatAppSecret,
		})
	}
	if cfg.AlipayAppID != "" {
		alipayClient, err := payments.NewAlipayClient(payments.AlipayConfig{
			AppID:        cfg.AlipayAppID,
			AlipayPubPEM: cfg.AlipayPrivateKey,
		})
		if err != nil {
			log.Warn().Err(err).Msg("alipay client not configured, provider disabled")
		} else {
			verifiers[payments.ProviderAlipay] = alipayClient
		}
	}
	if cfg.StripeSecretKey != "" {
		verifiers[payments.ProviderBank] = payments.NewStripeClient(payments.StripeConfig{
			WebhookSecret: cfg.StripeSecretKey,
		})
	}
	paymentsSvc := payments.NewService(pool, clk, membershipSvc, verifiers)

	swipeSvc := swipe.NewService(pool, clk)
	chatSvc := chat.NewService(chat.NewStore(pool), clk, swipeSvc, nil)

	agentDispatcher := agent.NewDispatcher(
		collaborators.RulesClassifier{},
		&collaborators.FakeSemanticSearch{},
		&collaborators.FakeProfileStore{Profiles: map[int64]*collaborators.Profile{}},
		collaborators.FakeAnswerer{},
		swipeSvc,
	)

	var oauthBinder *identity.OAuthBinder
	if cfg.WorkOSAPIKey != "" {
		oauthBinder = identity.NewOAuthBinder(usermanagement.NewClient(cfg.WorkOSAPIKey), cfg.WorkOSClientID)
	} else {
		log.Info().Msg("WORKOS_API_KEY not set; /auth/oauth disabled")
	}

	srv := httpapi.NewServer(identitySvc, rateLimiter, quotaSvc, membershipSvc, paymentsSvc, swipeSvc, chatSvc, agentDispatcher, auditLog, clk, oauthBinder)

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("server stopped")
}
