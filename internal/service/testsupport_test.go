package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"nodefoundry-ledger/config"
	"nodefoundry-ledger/internal/core/domain"
	"nodefoundry-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// --- In-Memory Account Repo ---

type memAccountRepo struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{accounts: make(map[string]*domain.Account)}
}

func (r *memAccountRepo) Create(ctx context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if existing.Username == a.Username {
			return fmt.Errorf("username already exists")
		}
	}
	r.accounts[a.Address] = a
	return nil
}

func (r *memAccountRepo) GetByAddress(ctx context.Context, address string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[address]
	if !ok {
		return nil, nil
	}
	return a, nil
}

func (r *memAccountRepo) GetByAddressForUpdate(ctx context.Context, tx pgx.Tx, address string) (*domain.Account, error) {
	return r.GetByAddress(ctx, address)
}

func (r *memAccountRepo) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.accounts {
		if a.Username == username {
			return a, nil
		}
	}
	return nil, nil
}

func (r *memAccountRepo) GetByReferralCode(ctx context.Context, code string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.accounts {
		if a.ReferralCode == code {
			return a, nil
		}
	}
	return nil, nil
}

func (r *memAccountRepo) UpdateTier(ctx context.Context, tx pgx.Tx, address string, tier domain.SubscriptionTier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[address]
	if !ok {
		return fmt.Errorf("account not found")
	}
	a.SubscriptionTier = tier
	return nil
}

func (r *memAccountRepo) AddSpend(ctx context.Context, tx pgx.Tx, address string, amount, points int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[address]
	if !ok {
		return fmt.Errorf("account not found")
	}
	a.TotalSpent += amount
	a.LoyaltyPoints += points
	return nil
}

func (r *memAccountRepo) SetVerified(ctx context.Context, address string, verified bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[address]
	if !ok {
		return fmt.Errorf("account not found")
	}
	a.IsVerified = verified
	return nil
}

func (r *memAccountRepo) SetActive(ctx context.Context, address string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[address]
	if !ok {
		return fmt.Errorf("account not found")
	}
	a.IsActive = active
	return nil
}

func (r *memAccountRepo) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.accounts)), nil
}

func (r *memAccountRepo) CountActiveSubscriptions(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, a := range r.accounts {
		if a.IsActive && a.SubscriptionTier > domain.TierBasic {
			n++
		}
	}
	return n, nil
}

// --- In-Memory Balance Repo ---

type memBalanceRepo struct {
	mu       sync.RWMutex
	balances map[string]int64 // address/asset -> amount
}

func newMemBalanceRepo() *memBalanceRepo {
	return &memBalanceRepo{balances: make(map[string]int64)}
}

func balanceKey(address, asset string) string { return address + "/" + asset }

func (r *memBalanceRepo) Get(ctx context.Context, address, asset string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.balances[balanceKey(address, asset)], nil
}

func (r *memBalanceRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, address, asset string) (int64, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	amount, found := r.balances[balanceKey(address, asset)]
	return amount, found, nil
}

func (r *memBalanceRepo) Upsert(ctx context.Context, tx pgx.Tx, address, asset string, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if amount < 0 {
		return fmt.Errorf("balance check violated")
	}
	r.balances[balanceKey(address, asset)] = amount
	return nil
}

func (r *memBalanceRepo) ListByAccount(ctx context.Context, address string) ([]domain.AssetBalance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.AssetBalance
	prefix := address + "/"
	for key, amount := range r.balances {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			out = append(out, domain.AssetBalance{Asset: key[len(prefix):], Amount: amount})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Asset < out[j].Asset })
	return out, nil
}

// --- In-Memory Transaction Repo ---

type memTransactionRepo struct {
	mu  sync.RWMutex
	txs []domain.Transaction
}

func newMemTransactionRepo() *memTransactionRepo {
	return &memTransactionRepo{}
}

func (r *memTransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txs = append(r.txs, *t)
	return nil
}

func (r *memTransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.txs {
		if r.txs[i].ID == id {
			t := r.txs[i]
			return &t, nil
		}
	}
	return nil, nil
}

func (r *memTransactionRepo) List(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Transaction
	for _, t := range r.txs {
		if params.AccountAddress != "" && t.AccountAddress != params.AccountAddress {
			continue
		}
		if params.Kind != nil && t.Kind != *params.Kind {
			continue
		}
		if params.Asset != nil && t.Asset != *params.Asset {
			continue
		}
		out = append(out, t)
	}
	return out, int64(len(out)), nil
}

func (r *memTransactionRepo) PlatformTotals(ctx context.Context, treasuryAddress string) (*ports.PlatformTotals, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	totals := &ports.PlatformTotals{}
	for _, t := range r.txs {
		switch {
		case t.Kind == domain.TransactionKindDeposit:
			totals.TotalDeposits += t.Amount
		case t.Kind == domain.TransactionKindWithdrawal:
			totals.TotalWithdrawals += t.Amount
		case t.Kind == domain.TransactionKindEscrowRelease && t.AccountAddress == treasuryAddress:
			totals.FeesCollected += t.Amount
		}
	}
	return totals, nil
}

// byKind returns every recorded transaction of one kind, for assertions.
func (r *memTransactionRepo) byKind(kind domain.TransactionKind) []domain.Transaction {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Transaction
	for _, t := range r.txs {
		if t.Kind == kind {
			out = append(out, t)
		}
	}
	return out
}

// --- In-Memory Session Repo ---

type memSessionRepo struct {
	mu       sync.RWMutex
	sessions map[int64]*domain.UsageSession
	nextID   int64
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[int64]*domain.UsageSession)}
}

func (r *memSessionRepo) Create(ctx context.Context, tx pgx.Tx, s *domain.UsageSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.IsActive {
		for _, existing := range r.sessions {
			if existing.IsActive && existing.AccountAddress == s.AccountAddress && existing.InfraID == s.InfraID {
				return ports.ErrDuplicateActiveSession
			}
		}
	}
	r.nextID++
	s.ID = r.nextID
	cp := *s
	r.sessions[s.ID] = &cp
	return nil
}

func (r *memSessionRepo) GetByID(ctx context.Context, id int64) (*domain.UsageSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *memSessionRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.UsageSession, error) {
	return r.GetByID(ctx, id)
}

func (r *memSessionRepo) HasActive(ctx context.Context, address, infraID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		if s.AccountAddress == address && s.InfraID == infraID && s.IsActive {
			return true, nil
		}
	}
	return false, nil
}

func (r *memSessionRepo) Close(ctx context.Context, tx pgx.Tx, id int64, accruedCost int64, endedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || !s.IsActive {
		return fmt.Errorf("active session not found")
	}
	s.AccruedCost = accruedCost
	s.EndedAt = &endedAt
	s.IsActive = false
	return nil
}

func (r *memSessionRepo) CountActive(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, s := range r.sessions {
		if s.IsActive {
			n++
		}
	}
	return n, nil
}

// --- In-Memory Order Repo ---

type memOrderRepo struct {
	mu     sync.RWMutex
	orders map[int64]*domain.Order
	nextID int64
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[int64]*domain.Order)}
}

func (r *memOrderRepo) Create(ctx context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	o.ID = r.nextID
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *memOrderRepo) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (r *memOrderRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Order, error) {
	return r.GetByID(ctx, id)
}

func (r *memOrderRepo) UpdateState(ctx context.Context, tx pgx.Tx, id int64, state domain.OrderState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("order not found")
	}
	o.State = state
	return nil
}

func (r *memOrderRepo) SetFunded(ctx context.Context, tx pgx.Tx, id int64, escrowed int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("order not found")
	}
	o.EscrowedAmount = escrowed
	o.State = domain.OrderStateFunded
	return nil
}

func (r *memOrderRepo) Resolve(ctx context.Context, tx pgx.Tx, id int64, state domain.OrderState, resolvedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("order not found")
	}
	o.EscrowedAmount = 0
	o.State = state
	o.ResolvedAt = &resolvedAt
	return nil
}

func (r *memOrderRepo) SumEscrowed(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var total int64
	for _, o := range r.orders {
		total += o.EscrowedAmount
	}
	return total, nil
}

func (r *memOrderRepo) ListByBuyer(ctx context.Context, address string) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Order
	for _, o := range r.orders {
		if o.BuyerAddress == address {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// --- In-Memory Referral Repo ---

type memReferralRepo struct {
	mu      sync.RWMutex
	records map[string]*domain.ReferralRecord // referrer/referee/asset
}

func newMemReferralRepo() *memReferralRepo {
	return &memReferralRepo{records: make(map[string]*domain.ReferralRecord)}
}

func referralKey(referrer, referee, asset string) string {
	return referrer + "/" + referee + "/" + asset
}

func (r *memReferralRepo) Accrue(ctx context.Context, tx pgx.Tx, referrer, referee, asset string, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := referralKey(referrer, referee, asset)
	rec, ok := r.records[key]
	if !ok {
		rec = &domain.ReferralRecord{
			ReferrerAddress: referrer,
			RefereeAddress:  referee,
			Asset:           asset,
		}
		r.records[key] = rec
	}
	rec.PendingCommission += amount
	return nil
}

func (r *memReferralRepo) ListPendingForUpdate(ctx context.Context, tx pgx.Tx, referrer string) ([]domain.ReferralRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.ReferralRecord
	for _, rec := range r.records {
		if rec.ReferrerAddress == referrer && rec.PendingCommission > 0 {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Asset < out[j].Asset })
	return out, nil
}

func (r *memReferralRepo) ZeroPending(ctx context.Context, tx pgx.Tx, referrer string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ReferrerAddress == referrer {
			rec.PendingCommission = 0
		}
	}
	return nil
}

func (r *memReferralRepo) ListByReferrer(ctx context.Context, referrer string) ([]domain.ReferralRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.ReferralRecord
	for _, rec := range r.records {
		if rec.ReferrerAddress == referrer {
			out = append(out, *rec)
		}
	}
	return out, nil
}

// --- In-Memory Asset Repo ---

type memAssetRepo struct {
	mu     sync.RWMutex
	assets map[string]bool
}

func newMemAssetRepo() *memAssetRepo {
	return &memAssetRepo{assets: make(map[string]bool)}
}

func (r *memAssetRepo) SetWhitelisted(ctx context.Context, asset string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assets[asset] = enabled
	return nil
}

func (r *memAssetRepo) IsWhitelisted(ctx context.Context, asset string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.assets[asset], nil
}

func (r *memAssetRepo) List(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for asset, enabled := range r.assets {
		if enabled {
			out = append(out, asset)
		}
	}
	sort.Strings(out)
	return out, nil
}

// --- In-Memory Pricing Repo ---

type memPricingRepo struct {
	mu         sync.RWMutex
	infra      map[string]*domain.InfraPricing // infraID/model
	tierPrices map[string]int64                // tier/asset
}

func newMemPricingRepo() *memPricingRepo {
	return &memPricingRepo{
		infra:      make(map[string]*domain.InfraPricing),
		tierPrices: make(map[string]int64),
	}
}

func (r *memPricingRepo) SetInfraPricing(ctx context.Context, p *domain.InfraPricing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.infra[p.InfraID+"/"+string(p.Model)] = &cp
	return nil
}

func (r *memPricingRepo) GetInfraPricing(ctx context.Context, infraID string, model domain.PricingModel) (*domain.InfraPricing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.infra[infraID+"/"+string(model)]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *memPricingRepo) SetTierPrice(ctx context.Context, tier domain.SubscriptionTier, asset string, price int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tierPrices[tier.String()+"/"+asset] = price
	return nil
}

func (r *memPricingRepo) GetTierPrice(ctx context.Context, tier domain.SubscriptionTier, asset string) (int64, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	price, ok := r.tierPrices[tier.String()+"/"+asset]
	return price, ok, nil
}

// --- Fake Directory ---

type fakeDirectory struct {
	mu     sync.RWMutex
	infras map[string]fakeInfra
}

type fakeInfra struct {
	owner  string
	status domain.InfraStatus
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{infras: make(map[string]fakeInfra)}
}

func (d *fakeDirectory) add(infraID, owner string, status domain.InfraStatus) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.infras[infraID] = fakeInfra{owner: owner, status: status}
}

func (d *fakeDirectory) InfraExists(ctx context.Context, infraID string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.infras[infraID]
	return ok, nil
}

func (d *fakeDirectory) InfraStatus(ctx context.Context, infraID string) (domain.InfraStatus, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	infra, ok := d.infras[infraID]
	if !ok {
		return domain.InfraStatusInactive, nil
	}
	return infra.status, nil
}

func (d *fakeDirectory) InfraOwner(ctx context.Context, infraID string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	infra, ok := d.infras[infraID]
	if !ok {
		return "", fmt.Errorf("infra not found")
	}
	return infra.owner, nil
}

// --- Fake Transactor ---

type fakeTransactor struct{}

func (f *fakeTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &noopTx{}, nil
}

// noopTx is a no-op pgx.Tx implementation for in-memory testing.
type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *noopTx) Conn() *pgx.Conn { return nil }

// --- Test environment ---

// testEnv wires every service against the in-memory fakes with a fixed
// platform configuration: 4% escrow fee, 5% referral commission, one loyalty
// point per 1,000,000 minor units spent.
type testEnv struct {
	accounts  *memAccountRepo
	balances  *memBalanceRepo
	txs       *memTransactionRepo
	sessions  *memSessionRepo
	orders    *memOrderRepo
	referrals *memReferralRepo
	assets    *memAssetRepo
	pricing   *memPricingRepo
	directory *fakeDirectory

	platform config.PlatformConfig

	ledger        *LedgerServiceImpl
	usage         *UsageServiceImpl
	subscriptions *SubscriptionServiceImpl
	referralSvc   *ReferralServiceImpl
	escrow        *EscrowServiceImpl
	admin         *AdminServiceImpl
	reporting     ports.ReportingService
}

func newTestEnv() *testEnv {
	env := &testEnv{
		accounts:  newMemAccountRepo(),
		balances:  newMemBalanceRepo(),
		txs:       newMemTransactionRepo(),
		sessions:  newMemSessionRepo(),
		orders:    newMemOrderRepo(),
		referrals: newMemReferralRepo(),
		assets:    newMemAssetRepo(),
		pricing:   newMemPricingRepo(),
		directory: newFakeDirectory(),
		platform: config.PlatformConfig{
			AdminAddress:    "addr_admin",
			TreasuryAddress: "addr_treasury",
			FeeBps:          400,
			CommissionBps:   500,
			LoyaltyUnit:     1_000_000,
			MaxSessionHours: 720,
		},
	}

	log := zerolog.Nop()
	transactor := &fakeTransactor{}

	env.ledger = NewLedgerService(env.accounts, env.balances, env.txs, env.referrals, env.assets, transactor, env.platform, log)
	env.usage = NewUsageService(env.sessions, env.pricing, env.ledger, env.directory, env.accounts, transactor, env.platform, log)
	env.subscriptions = NewSubscriptionService(env.accounts, env.pricing, env.ledger, transactor, log)
	env.referralSvc = NewReferralService(env.referrals, env.ledger, transactor, log)
	env.admin = NewAdminService(env.accounts, env.assets, env.pricing, env.platform, log)
	env.escrow = NewEscrowService(env.orders, env.accounts, env.ledger, env.directory, env.admin, transactor, env.platform, log)
	env.reporting = NewReportingService(env.accounts, env.sessions, env.orders, env.txs, nil, env.platform, log)

	return env
}

// addAccount seeds a verified, active account.
func (env *testEnv) addAccount(address string, referredBy *string) *domain.Account {
	now := time.Now().UTC()
	a := &domain.Account{
		Address:          address,
		Username:         "user_" + address,
		Email:            address + "@example.com",
		PasswordHash:     "x",
		ReferralCode:     "NF" + address,
		ReferredBy:       referredBy,
		SubscriptionTier: domain.TierBasic,
		IsVerified:       true,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	env.accounts.accounts[address] = a
	return a
}

// fund seeds a balance directly, bypassing the ledger.
func (env *testEnv) fund(address, asset string, amount int64) {
	env.balances.balances[balanceKey(address, asset)] = amount
}

func (env *testEnv) balance(address, asset string) int64 {
	amount, _ := env.balances.Get(context.Background(), address, asset)
	return amount
}
