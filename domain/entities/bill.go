package entities

import "time"

// BillStatus is the lifecycle state of a bill. Transitions are monotonic:
// terminal states (expired, repaid, liquidated) are never left.
type BillStatus string

const (
	BillStatusCreated    BillStatus = "created"
	BillStatusExpired    BillStatus = "expired"
	BillStatusPaid       BillStatus = "paid"
	BillStatusOverdue    BillStatus = "overdue"
	BillStatusRepaid     BillStatus = "repaid"
	BillStatusLiquidated BillStatus = "liquidated"
)

// Bill is a single extension of credit from the pool to a user on behalf of
// a merchant. Principal is in the settlement asset's smallest unit.
type Bill struct {
	ID        int64      `db:"id"`
	Merchant  string     `db:"merchant_account"`
	User      string     `db:"user_account"`
	Principal int64      `db:"principal"`
	Status    BillStatus `db:"status"`
	OrderRef  string     `db:"order_ref"`
	CreatedAt time.Time  `db:"created_at"`
	PaidAt    *time.Time `db:"paid_at"`
}

// IsOpen reports whether the bill contributes to the user's outstanding debt.
func (b *Bill) IsOpen() bool {
	return b.Status == BillStatusPaid || b.Status == BillStatusOverdue
}

// ExpiresAt returns the end of the issuance window.
func (b *Bill) ExpiresAt() time.Time {
	return b.CreatedAt.Add(BillDuration)
}

// LiquidatableAt returns the earliest time a forced liquidation is allowed.
func (b *Bill) LiquidatableAt() time.Time {
	return b.CreatedAt.Add(LiquidationThreshold)
}
