package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nodefoundry-ledger/internal/core/domain"
	"nodefoundry-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint
// violations, raised by the partial unique index on active sessions.
const pgUniqueViolation = "23505"

// SessionRepo implements ports.SessionRepository.
// Session ids come from the usage_sessions id sequence, allocated inside the
// same transaction as the insert. A partial unique index on
// (account_address, infra_id) WHERE is_active backs the one-active-session
// invariant at the storage layer.
type SessionRepo struct {
	pool Pool
}

// NewSessionRepo creates a new SessionRepo.
func NewSessionRepo(pool Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

const sessionColumns = `id, infra_id, account_address, pricing_model, rate, asset,
		accrued_cost, is_active, started_at, ended_at`

func scanSession(row pgx.Row) (*domain.UsageSession, error) {
	s := &domain.UsageSession{}
	err := row.Scan(
		&s.ID, &s.InfraID, &s.AccountAddress, &s.PricingModel, &s.Rate, &s.Asset,
		&s.AccruedCost, &s.IsActive, &s.StartedAt, &s.EndedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// Create inserts a session and fills its generated ID.
func (r *SessionRepo) Create(ctx context.Context, tx pgx.Tx, s *domain.UsageSession) error {
	query := `INSERT INTO usage_sessions (infra_id, account_address, pricing_model, rate, asset, accrued_cost, is_active, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`

	err := tx.QueryRow(ctx, query,
		s.InfraID, s.AccountAddress, s.PricingModel, s.Rate, s.Asset,
		s.AccruedCost, s.IsActive, s.StartedAt,
	).Scan(&s.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ports.ErrDuplicateActiveSession
		}
		return fmt.Errorf("insert usage session: %w", err)
	}
	return nil
}

// GetByID fetches a session by id (non-locking read).
func (r *SessionRepo) GetByID(ctx context.Context, id int64) (*domain.UsageSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM usage_sessions WHERE id = $1`
	s, err := scanSession(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get session by id: %w", err)
	}
	return s, nil
}

// GetByIDForUpdate fetches a session with pessimistic locking.
// This MUST be called within a transaction.
func (r *SessionRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.UsageSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM usage_sessions WHERE id = $1 FOR UPDATE`
	s, err := scanSession(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get session for update: %w", err)
	}
	return s, nil
}

// HasActive reports whether an active session exists for (account, infra).
func (r *SessionRepo) HasActive(ctx context.Context, address, infraID string) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM usage_sessions WHERE account_address = $1 AND infra_id = $2 AND is_active
	)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, address, infraID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check active session: %w", err)
	}
	return exists, nil
}

// Close finalizes a session within a transaction.
func (r *SessionRepo) Close(ctx context.Context, tx pgx.Tx, id int64, accruedCost int64, endedAt time.Time) error {
	query := `UPDATE usage_sessions
		SET accrued_cost = $1, ended_at = $2, is_active = FALSE
		WHERE id = $3 AND is_active`

	tag, err := tx.Exec(ctx, query, accruedCost, endedAt, id)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("active session not found: %d", id)
	}
	return nil
}

// CountActive returns the number of active sessions platform-wide.
func (r *SessionRepo) CountActive(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM usage_sessions WHERE is_active`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count active sessions: %w", err)
	}
	return n, nil
}
