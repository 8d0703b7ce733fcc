package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lumenlater/lumen-later/database"
	"github.com/lumenlater/lumen-later/domain/entities"
)

// AssetLedger implements the settlement-asset ledger over Postgres. Balances
// are plain integer rows; transfers run inside the caller's transaction so a
// failed operation leaves no partial movement.
type AssetLedger struct {
	q Queryable
}

// NewAssetLedger creates a new asset ledger on the connection pool.
func NewAssetLedger(db *database.DB) *AssetLedger {
	return &AssetLedger{q: db.Pool}
}

func newAssetLedger(tx Queryable) *AssetLedger {
	return &AssetLedger{q: tx}
}

// Balance returns the settlement-asset balance of an account, zero if the
// account has never held funds.
func (l *AssetLedger) Balance(ctx context.Context, account string) (int64, error) {
	query := `SELECT balance FROM asset_balances WHERE account = $1`

	var balance int64
	err := l.q.QueryRow(ctx, query, account).Scan(&balance)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get balance for %s: %w", account, err)
	}
	return balance, nil
}

// Transfer moves amount from one account to another. The debit is guarded by
// the current balance, so an overdraw fails without touching either row.
func (l *AssetLedger) Transfer(ctx context.Context, from, to string, amount int64) error {
	if amount < 0 {
		return entities.ErrInvalidAmount
	}
	if amount == 0 || from == to {
		return nil
	}

	debitQuery := `
		UPDATE asset_balances
		SET balance = balance - $2
		WHERE account = $1 AND balance >= $2
	`
	tag, err := l.q.Exec(ctx, debitQuery, from, amount)
	if err != nil {
		return fmt.Errorf("failed to debit %s: %w", from, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %s cannot cover %d: %w", from, amount, entities.ErrInsufficientFunds)
	}

	creditQuery := `
		INSERT INTO asset_balances (account, balance)
		VALUES ($1, $2)
		ON CONFLICT (account) DO UPDATE SET balance = asset_balances.balance + EXCLUDED.balance
	`
	if _, err := l.q.Exec(ctx, creditQuery, to, amount); err != nil {
		return fmt.Errorf("failed to credit %s: %w", to, err)
	}
	return nil
}

// Mint credits freshly issued settlement asset to an account.
func (l *AssetLedger) Mint(ctx context.Context, to string, amount int64) error {
	if amount <= 0 {
		return entities.ErrInvalidAmount
	}

	query := `
		INSERT INTO asset_balances (account, balance)
		VALUES ($1, $2)
		ON CONFLICT (account) DO UPDATE SET balance = asset_balances.balance + EXCLUDED.balance
	`
	if _, err := l.q.Exec(ctx, query, to, amount); err != nil {
		return fmt.Errorf("failed to mint to %s: %w", to, err)
	}
	return nil
}
