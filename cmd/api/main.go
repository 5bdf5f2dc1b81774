package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nodefoundry-ledger/config"
	"nodefoundry-ledger/internal/adapter/directory"
	httpHandler "nodefoundry-ledger/internal/adapter/http/handler"
	pgStorage "nodefoundry-ledger/internal/adapter/storage/postgres"
	redisStorage "nodefoundry-ledger/internal/adapter/storage/redis"
	"nodefoundry-ledger/internal/core/ports"
	"nodefoundry-ledger/internal/service"
	"nodefoundry-ledger/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting NodeFoundry Ledger")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	accountRepo := pgStorage.NewAccountRepo(pool)
	balanceRepo := pgStorage.NewBalanceRepo(pool)
	txRepo := pgStorage.NewTransactionRepo(pool)
	sessionRepo := pgStorage.NewSessionRepo(pool)
	orderRepo := pgStorage.NewOrderRepo(pool)
	referralRepo := pgStorage.NewReferralRepo(pool)
	assetRepo := pgStorage.NewAssetRepo(pool)
	pricingRepo := pgStorage.NewPricingRepo(pool)
	auditRepo := pgStorage.NewAuditRepository(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)
	statsCache := redisStorage.NewStatsCache(rdb)

	// Infra directory collaborator
	directoryClient := directory.NewClient(cfg.Directory, nil, log)

	// Initialize core services
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	// Initialize business services
	authSvc := service.NewAuthService(accountRepo, hashSvc, tokenSvc)
	ledgerSvc := service.NewLedgerService(accountRepo, balanceRepo, txRepo, referralRepo, assetRepo, transactor, cfg.Platform, log)
	usageSvc := service.NewUsageService(sessionRepo, pricingRepo, ledgerSvc, directoryClient, accountRepo, transactor, cfg.Platform, log)
	subscriptionSvc := service.NewSubscriptionService(accountRepo, pricingRepo, ledgerSvc, transactor, log)
	referralSvc := service.NewReferralService(referralRepo, ledgerSvc, transactor, log)
	adminSvc := service.NewAdminService(accountRepo, assetRepo, pricingRepo, cfg.Platform, log)
	escrowSvc := service.NewEscrowService(orderRepo, accountRepo, ledgerSvc, directoryClient, adminSvc, transactor, cfg.Platform, log)
	reportingSvc := service.NewReportingService(accountRepo, sessionRepo, orderRepo, txRepo, statsCache, cfg.Platform, log)
	auditSvc := service.NewAuditService(auditRepo, log)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Load OpenAPI spec for Swagger UI
	if specBytes, err := os.ReadFile("docs/api/openapi.yaml"); err == nil {
		httpHandler.SetSwaggerSpec(specBytes)
		log.Info().Msg("OpenAPI spec loaded for Swagger UI at /swagger")
	} else {
		log.Warn().Err(err).Msg("OpenAPI spec not found, Swagger UI will be unavailable")
	}

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:         authSvc,
		LedgerSvc:       ledgerSvc,
		UsageSvc:        usageSvc,
		SubscriptionSvc: subscriptionSvc,
		ReferralSvc:     referralSvc,
		EscrowSvc:       escrowSvc,
		AdminSvc:        adminSvc,
		ReportingSvc:    reportingSvc,
		TokenSvc:        tokenSvc,
		RateLimitStore:  rateLimitStore,
		HealthCheckers:  []ports.HealthChecker{pgHealth, redisHealth},
		AuditSvc:        auditSvc,
		Logger:          log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
