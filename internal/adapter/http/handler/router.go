package handler

import (
	"nodefoundry-ledger/internal/adapter/http/middleware"
	redisStore "nodefoundry-ledger/internal/adapter/storage/redis"
	"nodefoundry-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc         ports.AuthService
	LedgerSvc       ports.LedgerService
	UsageSvc        ports.UsageService
	SubscriptionSvc ports.SubscriptionService
	ReferralSvc     ports.ReferralService
	EscrowSvc       ports.EscrowService
	AdminSvc        ports.AdminService
	ReportingSvc    ports.ReportingService
	TokenSvc        ports.TokenService
	RateLimitStore  *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers  []ports.HealthChecker
	AuditSvc        ports.AuditService // nil = audit logging disabled
	Logger          zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Swagger documentation
	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", rl("auth_register"), authHandler.Register)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
	}

	// --- JWT-authenticated routes ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	walletHandler := NewWalletHandler(deps.LedgerSvc)
	usageHandler := NewUsageHandler(deps.UsageSvc)
	accountHandler := NewAccountHandler(deps.SubscriptionSvc, deps.ReferralSvc)
	orderHandler := NewOrderHandler(deps.EscrowSvc)
	dashboardHandler := NewDashboardHandler(deps.ReportingSvc)

	v1.GET("/auth/me", jwtAuth, rl("dashboard"), authHandler.Me)

	wallet := v1.Group("/wallet", jwtAuth)
	{
		wallet.POST("/deposit", rl("wallet"), walletHandler.Deposit)
		wallet.POST("/withdraw", rl("wallet"), walletHandler.Withdraw)
		wallet.GET("/balances", rl("wallet"), walletHandler.ListBalances)
		wallet.GET("/balances/:asset", rl("wallet"), walletHandler.GetBalance)
	}

	usage := v1.Group("/usage", jwtAuth)
	{
		usage.POST("/start", rl("usage"), usageHandler.Start)
		usage.POST("/:id/stop", rl("usage"), usageHandler.Stop)
		usage.GET("/:id", rl("usage"), usageHandler.Get)
	}

	v1.POST("/subscription/upgrade", jwtAuth, rl("dashboard"), accountHandler.UpgradeSubscription)

	referrals := v1.Group("/referrals", jwtAuth)
	{
		referrals.POST("/claim", rl("dashboard"), accountHandler.ClaimReferralBonus)
		referrals.GET("", rl("dashboard"), accountHandler.ListReferrals)
	}

	orders := v1.Group("/orders", jwtAuth)
	{
		orders.POST("", rl("orders"), orderHandler.Create)
		orders.POST("/:id/fund", rl("orders"), orderHandler.Fund)
		orders.POST("/:id/release", rl("orders"), orderHandler.Release)
		orders.POST("/:id/refund", rl("orders"), orderHandler.Refund)
		orders.POST("/:id/dispute", rl("orders"), orderHandler.Dispute)
		orders.POST("/:id/cancel", rl("orders"), orderHandler.Cancel)
		orders.GET("/:id", rl("orders"), orderHandler.Get)
		orders.GET("", rl("orders"), orderHandler.List)
	}

	dashboard := v1.Group("/dashboard", jwtAuth)
	{
		dashboard.GET("/stats", rl("dashboard"), dashboardHandler.GetStats)
	}

	transactions := v1.Group("/transactions", jwtAuth)
	{
		transactions.GET("", rl("dashboard"), dashboardHandler.ListTransactions)
	}

	// --- Admin routes (JWT-authenticated; the admin check lives in the service) ---
	adminHandler := NewAdminHandler(deps.AdminSvc)
	admin := v1.Group("/admin", jwtAuth)
	{
		admin.POST("/tokens/whitelist", rl("admin"), adminHandler.WhitelistToken)
		admin.DELETE("/tokens/whitelist/:asset", rl("admin"), adminHandler.RemoveTokenWhitelist)
		admin.POST("/pricing/infra", rl("admin"), adminHandler.SetInfraPricing)
		admin.POST("/pricing/tier", rl("admin"), adminHandler.SetTierPrice)
		admin.POST("/accounts/:address/verify", rl("admin"), adminHandler.VerifyAccount)
		admin.POST("/accounts/:address/deactivate", rl("admin"), adminHandler.DeactivateAccount)
	}

	return r
}
