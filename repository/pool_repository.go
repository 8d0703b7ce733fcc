package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lumenlater/lumen-later/database"
	"github.com/lumenlater/lumen-later/domain/entities"
)

// PoolRepository implements the pool ledger state over Postgres. The state is
// a single row; share holdings are one row per account.
type PoolRepository struct {
	q Queryable
}

// NewPoolRepository creates a new pool repository on the connection pool.
func NewPoolRepository(db *database.DB) *PoolRepository {
	return &PoolRepository{q: db.Pool}
}

func newPoolRepository(tx Queryable) *PoolRepository {
	return &PoolRepository{q: tx}
}

// GetState returns the singleton pool state, creating the initial row at
// index 1.0 on first access.
func (r *PoolRepository) GetState(ctx context.Context) (*entities.PoolState, error) {
	insertQuery := `
		INSERT INTO pool_state (id, idx, total_shares, total_borrowed)
		VALUES (1, $1, 0, 0)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := r.q.Exec(ctx, insertQuery, entities.IndexScale); err != nil {
		return nil, fmt.Errorf("failed to ensure pool state row: %w", err)
	}

	query := `
		SELECT idx, total_shares, total_borrowed, updated_at
		FROM pool_state
		WHERE id = 1
	`
	var state entities.PoolState
	err := r.q.QueryRow(ctx, query).Scan(
		&state.Index,
		&state.Supply,
		&state.Borrowed,
		&state.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get pool state: %w", err)
	}

	return &state, nil
}

// SaveState persists the singleton pool state.
func (r *PoolRepository) SaveState(ctx context.Context, state *entities.PoolState) error {
	query := `
		UPDATE pool_state
		SET idx = $1, total_shares = $2, total_borrowed = $3, updated_at = NOW()
		WHERE id = 1
	`
	tag, err := r.q.Exec(ctx, query, state.Index, state.Supply, state.Borrowed)
	if err != nil {
		return fmt.Errorf("failed to save pool state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("pool state row missing")
	}
	return nil
}

// GetShares returns the raw share balance of an account, zero if none.
func (r *PoolRepository) GetShares(ctx context.Context, account string) (int64, error) {
	query := `SELECT shares FROM pool_shares WHERE account = $1`

	var shares int64
	err := r.q.QueryRow(ctx, query, account).Scan(&shares)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get shares for %s: %w", account, err)
	}
	return shares, nil
}

// SetShares sets the raw share balance of an account.
func (r *PoolRepository) SetShares(ctx context.Context, account string, shares int64) error {
	query := `
		INSERT INTO pool_shares (account, shares)
		VALUES ($1, $2)
		ON CONFLICT (account) DO UPDATE SET shares = EXCLUDED.shares
	`
	if _, err := r.q.Exec(ctx, query, account, shares); err != nil {
		return fmt.Errorf("failed to set shares for %s: %w", account, err)
	}
	return nil
}
