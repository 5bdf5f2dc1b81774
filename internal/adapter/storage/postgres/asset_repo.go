package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// AssetRepo implements ports.AssetRepository, the admin-managed asset
// whitelist. Removal flips the enabled flag rather than deleting the row so
// historical transactions keep a valid asset reference.
type AssetRepo struct {
	pool Pool
}

// NewAssetRepo creates a new AssetRepo.
func NewAssetRepo(pool Pool) *AssetRepo {
	return &AssetRepo{pool: pool}
}

// SetWhitelisted enables or disables an asset.
func (r *AssetRepo) SetWhitelisted(ctx context.Context, asset string, enabled bool) error {
	query := `INSERT INTO assets (asset, enabled, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (asset) DO UPDATE SET enabled = $2, updated_at = NOW()`

	if _, err := r.pool.Exec(ctx, query, asset, enabled); err != nil {
		return fmt.Errorf("set asset whitelist: %w", err)
	}
	return nil
}

// IsWhitelisted reports whether the asset is currently enabled.
func (r *AssetRepo) IsWhitelisted(ctx context.Context, asset string) (bool, error) {
	query := `SELECT enabled FROM assets WHERE asset = $1`

	var enabled bool
	err := r.pool.QueryRow(ctx, query, asset).Scan(&enabled)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check asset whitelist: %w", err)
	}
	return enabled, nil
}

// List returns all enabled assets.
func (r *AssetRepo) List(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT asset FROM assets WHERE enabled ORDER BY asset`)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}
