package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lumenlater/lumen-later/database"
	"github.com/lumenlater/lumen-later/domain/entities"
)

// MerchantRepository implements merchant persistence over Postgres.
type MerchantRepository struct {
	q Queryable
}

// NewMerchantRepository creates a new merchant repository on the connection
// pool.
func NewMerchantRepository(db *database.DB) *MerchantRepository {
	return &MerchantRepository{q: db.Pool}
}

func newMerchantRepository(tx Queryable) *MerchantRepository {
	return &MerchantRepository{q: tx}
}

// Create inserts a new merchant record.
func (r *MerchantRepository) Create(ctx context.Context, merchant *entities.Merchant) error {
	query := `
		INSERT INTO merchants (account, info_id, status)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`
	err := r.q.QueryRow(ctx, query,
		merchant.Account,
		merchant.InfoID,
		merchant.Status,
	).Scan(&merchant.CreatedAt, &merchant.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create merchant %s: %w", merchant.Account, err)
	}
	return nil
}

// GetByAccount returns a merchant by account, or nil when not enrolled.
func (r *MerchantRepository) GetByAccount(ctx context.Context, account string) (*entities.Merchant, error) {
	query := `
		SELECT account, info_id, status, created_at, updated_at
		FROM merchants
		WHERE account = $1
	`
	var merchant entities.Merchant
	err := r.q.QueryRow(ctx, query, account).Scan(
		&merchant.Account,
		&merchant.InfoID,
		&merchant.Status,
		&merchant.CreatedAt,
		&merchant.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get merchant %s: %w", account, err)
	}
	return &merchant, nil
}

// Update persists status changes.
func (r *MerchantRepository) Update(ctx context.Context, merchant *entities.Merchant) error {
	query := `
		UPDATE merchants
		SET info_id = $2, status = $3, updated_at = NOW()
		WHERE account = $1
	`
	tag, err := r.q.Exec(ctx, query, merchant.Account, merchant.InfoID, merchant.Status)
	if err != nil {
		return fmt.Errorf("failed to update merchant %s: %w", merchant.Account, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("merchant %s not found", merchant.Account)
	}
	return nil
}
