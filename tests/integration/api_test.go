package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nodefoundry-ledger/config"
	httpHandler "nodefoundry-ledger/internal/adapter/http/handler"
	redisStorage "nodefoundry-ledger/internal/adapter/storage/redis"
	"nodefoundry-ledger/internal/core/domain"
	"nodefoundry-ledger/internal/core/ports"
	"nodefoundry-ledger/internal/service"
	"nodefoundry-ledger/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testApp builds the full application stack on in-memory repos plus a real
// miniredis instance behind the Redis stores. This exercises the HTTP layer,
// middleware, handlers, services, and Redis-backed stores end-to-end.

type testApp struct {
	server *httptest.Server
	redis  *miniredis.Miniredis

	accounts  *memAccountRepo
	balances  *memBalanceRepo
	assets    *memAssetRepo
	directory *fakeDirectory
	hashSvc   ports.HashService
	platform  config.PlatformConfig
}

func newTestApp(t *testing.T, withRateLimit bool) *testApp {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	statsCache := redisStorage.NewStatsCache(rdb)
	var rateLimitStore *redisStorage.RateLimitStore
	if withRateLimit {
		rateLimitStore = redisStorage.NewRateLimitStore(rdb)
	}

	accounts := newMemAccountRepo()
	balances := newMemBalanceRepo()
	txs := newMemTransactionRepo()
	sessions := newMemSessionRepo()
	orders := newMemOrderRepo()
	referrals := newMemReferralRepo()
	assets := newMemAssetRepo()
	pricing := newMemPricingRepo()
	transactor := newInMemoryTransactor()
	dir := newFakeDirectory()

	platform := config.PlatformConfig{
		AdminAddress:    "addr_admin",
		TreasuryAddress: "addr_treasury",
		FeeBps:          400,
		CommissionBps:   500,
		LoyaltyUnit:     1_000_000,
		MaxSessionHours: 720,
	}

	log := logger.New("error", false)

	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService("test-jwt-secret-key-32bytes!!", 24*time.Hour, "test-issuer")

	authSvc := service.NewAuthService(accounts, hashSvc, tokenSvc)
	ledgerSvc := service.NewLedgerService(accounts, balances, txs, referrals, assets, transactor, platform, log)
	usageSvc := service.NewUsageService(sessions, pricing, ledgerSvc, dir, accounts, transactor, platform, log)
	subscriptionSvc := service.NewSubscriptionService(accounts, pricing, ledgerSvc, transactor, log)
	referralSvc := service.NewReferralService(referrals, ledgerSvc, transactor, log)
	adminSvc := service.NewAdminService(accounts, assets, pricing, platform, log)
	escrowSvc := service.NewEscrowService(orders, accounts, ledgerSvc, dir, adminSvc, transactor, platform, log)
	reportingSvc := service.NewReportingService(accounts, sessions, orders, txs, statsCache, platform, log)
	auditSvc := service.NewAuditService(newMemAuditRepo(), log)

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
		HealthCheckers:  []ports.HealthChecker{redisStorage.NewHealthCheck(rdb)},
		AuditSvc:        auditSvc,
		Logger:          log,
	})

	// Every test needs at least one spendable asset.
	require.NoError(t, assets.SetWhitelisted(t.Context(), "USDC", true))

	return &testApp{
		server:    httptest.NewServer(router),
		redis:     mr,
		accounts:  accounts,
		balances:  balances,
		assets:    assets,
		directory: dir,
		hashSvc:   hashSvc,
		platform:  platform,
	}
}

func (a *testApp) close() {
	a.server.Close()
	a.redis.Close()
}

// --- HTTP helpers ---

func postJSON(t *testing.T, app *testApp, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(http.MethodPost, app.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func getJSON(t *testing.T, app *testApp, path, token string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, app.server.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), "body: %s", string(raw))
	}
	return out
}

func data(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	d, ok := body["data"].(map[string]interface{})
	require.True(t, ok, "response has no data object: %v", body)
	return d
}

// registerAccount registers a fresh account and returns its address and
// referral code.
func registerAccount(t *testing.T, app *testApp, username string, referralCode *string) (string, string) {
	t.Helper()
	body := map[string]interface{}{
		"username": username,
		"email":    username + "@example.com",
		"password": "StrongPass123!",
	}
	if referralCode != nil {
		body["referral_code"] = *referralCode
	}
	resp, parsed := postJSON(t, app, "/api/v1/auth/register", "", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode, "register %s: %v", username, parsed)
	d := data(t, parsed)
	return d["address"].(string), d["referral_code"].(string)
}

func loginToken(t *testing.T, app *testApp, username, password string) string {
	t.Helper()
	resp, parsed := postJSON(t, app, "/api/v1/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "login %s: %v", username, parsed)
	return data(t, parsed)["token"].(string)
}

// seedAdmin inserts the platform admin account directly (its address is fixed
// by configuration, so it cannot come from the register flow) and logs in.
func seedAdmin(t *testing.T, app *testApp) string {
	t.Helper()
	hash, err := app.hashSvc.Hash("AdminPass123!")
	require.NoError(t, err)
	now := time.Now().UTC()
	require.NoError(t, app.accounts.Create(t.Context(), &domain.Account{
		Address:          app.platform.AdminAddress,
		Username:         "platform_admin",
		Email:            "admin@example.com",
		PasswordHash:     hash,
		ReferralCode:     "NFADMIN",
		SubscriptionTier: domain.TierBasic,
		IsVerified:       true,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}))
	return loginToken(t, app, "platform_admin", "AdminPass123!")
}

// --- Integration Tests ---

func TestIntegration_HealthCheck(t *testing.T) {
	app := newTestApp(t, false)
	defer app.close()

	resp, body := getJSON(t, app, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
}

func TestIntegration_RegisterAndLogin(t *testing.T) {
	app := newTestApp(t, false)
	defer app.close()

	address, referralCode := registerAccount(t, app, "alice", nil)
	assert.NotEmpty(t, address)
	assert.NotEmpty(t, referralCode)

	token := loginToken(t, app, "alice", "StrongPass123!")
	assert.NotEmpty(t, token)

	resp, body := getJSON(t, app, "/api/v1/auth/me", token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, address, data(t, body)["address"])
}

func TestIntegration_DuplicateUsername(t *testing.T) {
	app := newTestApp(t, false)
	defer app.close()

	registerAccount(t, app, "alice", nil)

	resp, parsed := postJSON(t, app, "/api/v1/auth/register", "", map[string]string{
		"username": "alice",
		"email":    "other@example.com",
		"password": "StrongPass123!",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "AUTH_003", parsed["error_code"])
}

func TestIntegration_LoginWrongCredentials(t *testing.T) {
	app := newTestApp(t, false)
	defer app.close()

	registerAccount(t, app, "alice", nil)

	resp, _ := postJSON(t, app, "/api/v1/auth/login", "", map[string]string{
		"username": "alice",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestIntegration_JWT_Unauthorized(t *testing.T) {
	app := newTestApp(t, false)
	defer app.close()

	resp, _ := getJSON(t, app, "/api/v1/wallet/balances", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestIntegration_DepositWithdrawFlow(t *testing.T) {
	app := newTestApp(t, false)
	defer app.close()

	registerAccount(t, app, "alice", nil)
	token := loginToken(t, app, "alice", "StrongPass123!")

	resp, parsed := postJSON(t, app, "/api/v1/wallet/deposit", token, map[string]interface{}{
		"asset": "USDC", "amount": 1000,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "deposit: %v", parsed)
	assert.Equal(t, "DEPOSIT", data(t, parsed)["kind"])

	resp, parsed = postJSON(t, app, "/api/v1/wallet/withdraw", token, map[string]interface{}{
		"asset": "USDC", "amount": 400,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "withdraw: %v", parsed)

	resp, parsed = getJSON(t, app, "/api/v1/wallet/balances", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	balances := data(t, parsed)["balances"].([]interface{})
	require.Len(t, balances, 1)
	entry := balances[0].(map[string]interface{})
	assert.Equal(t, "USDC", entry["asset"])
	assert.Equal(t, float64(600), entry["amount"])

	resp, parsed = getJSON(t, app, "/api/v1/wallet/balances/USDC", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(600), data(t, parsed)["amount"])

	// Overdraw
	resp, parsed = postJSON(t, app, "/api/v1/wallet/withdraw", token, map[string]interface{}{
		"asset": "USDC", "amount": 1000,
	})
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	assert.Equal(t, "LED_002", parsed["error_code"])
}

func TestIntegration_DepositUnlistedAsset(t *testing.T) {
	app := newTestApp(t, false)
	defer app.close()

	registerAccount(t, app, "alice", nil)
	token := loginToken(t, app, "alice", "StrongPass123!")

	resp, parsed := postJSON(t, app, "/api/v1/wallet/deposit", token, map[string]interface{}{
		"asset": "DOGE", "amount": 1000,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "LED_003", parsed["error_code"])
}

func TestIntegration_EscrowEndToEnd(t *testing.T) {
	app := newTestApp(t, false)
	defer app.close()

	buyerAddr, _ := registerAccount(t, app, "buyer", nil)
	providerAddr, _ := registerAccount(t, app, "provider", nil)
	app.directory.add("infra-east-1", providerAddr, domain.InfraStatusActive)

	buyerToken := loginToken(t, app, "buyer", "StrongPass123!")
	providerToken := loginToken(t, app, "provider", "StrongPass123!")

	resp, parsed := postJSON(t, app, "/api/v1/wallet/deposit", buyerToken, map[string]interface{}{
		"asset": "USDC", "amount": 100000,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Create
	resp, parsed = postJSON(t, app, "/api/v1/orders", buyerToken, map[string]interface{}{
		"provider_infra_id": "infra-east-1", "amount": 50000, "asset": "USDC",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "create order: %v", parsed)
	orderData := data(t, parsed)
	assert.Equal(t, "CREATED", orderData["state"])
	assert.Equal(t, providerAddr, orderData["provider_address"])
	orderID := int64(orderData["id"].(float64))

	// Fund
	resp, parsed = postJSON(t, app, fmt.Sprintf("/api/v1/orders/%d/fund", orderID), buyerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "fund order: %v", parsed)
	assert.Equal(t, "FUNDED", data(t, parsed)["state"])

	// Funding again conflicts
	resp, parsed = postJSON(t, app, fmt.Sprintf("/api/v1/orders/%d/fund", orderID), buyerToken, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "ORD_001", parsed["error_code"])

	// Release: provider gets the escrow minus the 4% platform fee
	resp, parsed = postJSON(t, app, fmt.Sprintf("/api/v1/orders/%d/release", orderID), buyerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "release order: %v", parsed)
	assert.Equal(t, "CLOSED", data(t, parsed)["state"])

	resp, parsed = getJSON(t, app, "/api/v1/wallet/balances", providerToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entry := data(t, parsed)["balances"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, float64(48000), entry["amount"])

	treasuryBal, err := app.balances.Get(t.Context(), app.platform.TreasuryAddress, "USDC")
	require.NoError(t, err)
	assert.Equal(t, int64(2000), treasuryBal)

	// Buyer kept the other half of the deposit
	buyerBal, err := app.balances.Get(t.Context(), buyerAddr, "USDC")
	require.NoError(t, err)
	assert.Equal(t, int64(50000), buyerBal)
}

func TestIntegration_AdminGate(t *testing.T) {
	app := newTestApp(t, false)
	defer app.close()

	registerAccount(t, app, "alice", nil)
	aliceToken := loginToken(t, app, "alice", "StrongPass123!")

	// Non-admin callers are rejected by the service-level gate.
	resp, parsed := postJSON(t, app, "/api/v1/admin/tokens/whitelist", aliceToken, map[string]string{
		"asset": "DAI",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "AUTH_001", parsed["error_code"])

	adminToken := seedAdmin(t, app)

	resp, parsed = postJSON(t, app, "/api/v1/admin/tokens/whitelist", adminToken, map[string]string{
		"asset": "DAI",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "whitelist: %v", parsed)

	// Newly whitelisted asset is immediately usable.
	resp, parsed = postJSON(t, app, "/api/v1/wallet/deposit", aliceToken, map[string]interface{}{
		"asset": "DAI", "amount": 500,
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode, "deposit DAI: %v", parsed)
}

func TestIntegration_UsageSessionLifecycle(t *testing.T) {
	app := newTestApp(t, false)
	defer app.close()

	userAddr, _ := registerAccount(t, app, "renter", nil)
	token := loginToken(t, app, "renter", "StrongPass123!")
	adminToken := seedAdmin(t, app)

	// Admin verifies the account and prices the infra listing.
	resp, parsed := postJSON(t, app, "/api/v1/admin/accounts/"+userAddr+"/verify", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "verify: %v", parsed)

	resp, parsed = postJSON(t, app, "/api/v1/admin/pricing/infra", adminToken, map[string]interface{}{
		"infra_id": "gpu-node-7", "model": "HOURLY", "rate": 250, "asset": "USDC",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "pricing: %v", parsed)

	app.directory.add("gpu-node-7", "addr_some_provider", domain.InfraStatusActive)

	resp, parsed = postJSON(t, app, "/api/v1/wallet/deposit", token, map[string]interface{}{
		"asset": "USDC", "amount": 10000,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Start
	resp, parsed = postJSON(t, app, "/api/v1/usage/start", token, map[string]string{
		"infra_id": "gpu-node-7", "pricing_model": "HOURLY",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "start: %v", parsed)
	sessionData := data(t, parsed)
	assert.Equal(t, true, sessionData["is_active"])
	sessionID := int64(sessionData["id"].(float64))

	// Second start on the same infra conflicts
	resp, parsed = postJSON(t, app, "/api/v1/usage/start", token, map[string]string{
		"infra_id": "gpu-node-7", "pricing_model": "HOURLY",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "USE_002", parsed["error_code"])

	// Stop: a partial hour bills as one full hour
	resp, parsed = postJSON(t, app, fmt.Sprintf("/api/v1/usage/%d/stop", sessionID), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "stop: %v", parsed)
	stopped := data(t, parsed)
	assert.Equal(t, false, stopped["is_active"])
	assert.Equal(t, float64(250), stopped["accrued_cost"])

	bal, err := app.balances.Get(t.Context(), userAddr, "USDC")
	require.NoError(t, err)
	assert.Equal(t, int64(9750), bal)
}

func TestIntegration_ReferralCommissionFlow(t *testing.T) {
	app := newTestApp(t, false)
	defer app.close()

	_, aliceCode := registerAccount(t, app, "alice", nil)
	registerAccount(t, app, "bob", &aliceCode)

	aliceToken := loginToken(t, app, "alice", "StrongPass123!")
	bobToken := loginToken(t, app, "bob", "StrongPass123!")
	adminToken := seedAdmin(t, app)

	// Admin prices the Premium tier, bob funds his wallet and upgrades.
	resp, parsed := postJSON(t, app, "/api/v1/admin/pricing/tier", adminToken, map[string]interface{}{
		"tier": "PREMIUM", "asset": "USDC", "price": 20000,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "tier price: %v", parsed)

	resp, _ = postJSON(t, app, "/api/v1/wallet/deposit", bobToken, map[string]interface{}{
		"asset": "USDC", "amount": 50000,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, parsed = postJSON(t, app, "/api/v1/subscription/upgrade", bobToken, map[string]string{
		"tier": "PREMIUM", "asset": "USDC",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "upgrade: %v", parsed)

	// Alice sees 5% of bob's spend as pending commission.
	resp, parsed = getJSON(t, app, "/api/v1/referrals", aliceToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Claim credits the commission onto alice's balance.
	resp, parsed = postJSON(t, app, "/api/v1/referrals/claim", aliceToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "claim: %v", parsed)
	claimed := data(t, parsed)["claimed"].([]interface{})
	require.Len(t, claimed, 1)
	entry := claimed[0].(map[string]interface{})
	assert.Equal(t, "USDC", entry["asset"])
	assert.Equal(t, float64(1000), entry["amount"])

	// A second claim finds nothing pending.
	resp, parsed = postJSON(t, app, "/api/v1/referrals/claim", aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "REF_001", parsed["error_code"])
}

func TestIntegration_DashboardStatsAndTransactions(t *testing.T) {
	app := newTestApp(t, false)
	defer app.close()

	registerAccount(t, app, "alice", nil)
	token := loginToken(t, app, "alice", "StrongPass123!")

	resp, _ := postJSON(t, app, "/api/v1/wallet/deposit", token, map[string]interface{}{
		"asset": "USDC", "amount": 7500,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, parsed := getJSON(t, app, "/api/v1/dashboard/stats", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := data(t, parsed)
	assert.Equal(t, float64(1), stats["total_accounts"])
	assert.Equal(t, float64(7500), stats["total_deposits"])

	resp, parsed = getJSON(t, app, "/api/v1/transactions?page=1&page_size=10", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	listData := data(t, parsed)
	assert.Equal(t, float64(1), listData["total"])
	items := listData["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "DEPOSIT", items[0].(map[string]interface{})["kind"])
}

func TestIntegration_LoginRateLimit(t *testing.T) {
	app := newTestApp(t, true)
	defer app.close()

	registerAccount(t, app, "alice", nil)

	// The login rule allows 10 requests per window per client.
	for i := 0; i < 10; i++ {
		resp, _ := postJSON(t, app, "/api/v1/auth/login", "", map[string]string{
			"username": "alice",
			"password": "wrong-password",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "attempt %d", i)
	}

	resp, parsed := postJSON(t, app, "/api/v1/auth/login", "", map[string]string{
		"username": "alice",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "RATE_001", parsed["error_code"])
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}
