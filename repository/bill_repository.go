package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lumenlater/lumen-later/database"
	"github.com/lumenlater/lumen-later/domain/entities"
)

// BillRepository implements bill persistence over Postgres.
type BillRepository struct {
	q Queryable
}

// NewBillRepository creates a new bill repository on the connection pool.
func NewBillRepository(db *database.DB) *BillRepository {
	return &BillRepository{q: db.Pool}
}

func newBillRepository(tx Queryable) *BillRepository {
	return &BillRepository{q: tx}
}

// Create inserts a new bill and fills in its assigned ID.
func (r *BillRepository) Create(ctx context.Context, bill *entities.Bill) error {
	query := `
		INSERT INTO bills (merchant_account, user_account, principal, status, order_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := r.q.QueryRow(ctx, query,
		bill.Merchant,
		bill.User,
		bill.Principal,
		bill.Status,
		bill.OrderRef,
		bill.CreatedAt,
	).Scan(&bill.ID)
	if err != nil {
		return fmt.Errorf("failed to create bill: %w", err)
	}
	return nil
}

// GetByID returns a bill by ID, or nil when it does not exist.
func (r *BillRepository) GetByID(ctx context.Context, id int64) (*entities.Bill, error) {
	query := `
		SELECT id, merchant_account, user_account, principal, status, order_ref, created_at, paid_at
		FROM bills
		WHERE id = $1
	`
	bill, err := scanBill(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill %d: %w", id, err)
	}
	return bill, nil
}

// Update persists status and paid-at changes.
func (r *BillRepository) Update(ctx context.Context, bill *entities.Bill) error {
	query := `
		UPDATE bills
		SET status = $2, paid_at = $3
		WHERE id = $1
	`
	tag, err := r.q.Exec(ctx, query, bill.ID, bill.Status, bill.PaidAt)
	if err != nil {
		return fmt.Errorf("failed to update bill %d: %w", bill.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("bill %d not found", bill.ID)
	}
	return nil
}

// GetOpenByUser returns the user's open bills (paid or overdue), oldest
// first.
func (r *BillRepository) GetOpenByUser(ctx context.Context, user string) ([]*entities.Bill, error) {
	query := `
		SELECT id, merchant_account, user_account, principal, status, order_ref, created_at, paid_at
		FROM bills
		WHERE user_account = $1 AND status IN ($2, $3)
		ORDER BY id
	`
	rows, err := r.q.Query(ctx, query, user, entities.BillStatusPaid, entities.BillStatusOverdue)
	if err != nil {
		return nil, fmt.Errorf("failed to query open bills for %s: %w", user, err)
	}
	defer rows.Close()

	return collectBills(rows)
}

// GetCreatedBefore returns still-created bills issued before the cutoff.
func (r *BillRepository) GetCreatedBefore(ctx context.Context, cutoff time.Time) ([]*entities.Bill, error) {
	query := `
		SELECT id, merchant_account, user_account, principal, status, order_ref, created_at, paid_at
		FROM bills
		WHERE status = $1 AND created_at < $2
		ORDER BY id
	`
	rows, err := r.q.Query(ctx, query, entities.BillStatusCreated, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query expirable bills: %w", err)
	}
	defer rows.Close()

	return collectBills(rows)
}

// GetPaidBefore returns paid bills whose payment happened before the cutoff.
func (r *BillRepository) GetPaidBefore(ctx context.Context, cutoff time.Time) ([]*entities.Bill, error) {
	query := `
		SELECT id, merchant_account, user_account, principal, status, order_ref, created_at, paid_at
		FROM bills
		WHERE status = $1 AND paid_at < $2
		ORDER BY id
	`
	rows, err := r.q.Query(ctx, query, entities.BillStatusPaid, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query overdue candidates: %w", err)
	}
	defer rows.Close()

	return collectBills(rows)
}

func scanBill(row pgx.Row) (*entities.Bill, error) {
	var bill entities.Bill
	err := row.Scan(
		&bill.ID,
		&bill.Merchant,
		&bill.User,
		&bill.Principal,
		&bill.Status,
		&bill.OrderRef,
		&bill.CreatedAt,
		&bill.PaidAt,
	)
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

func collectBills(rows pgx.Rows) ([]*entities.Bill, error) {
	var bills []*entities.Bill
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		bills = append(bills, bill)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bills: %w", err)
	}
	return bills, nil
}
