package interfaces

import (
	"context"

	"github.com/lumenlater/lumen-later/domain/entities"
)

// CollateralOracle answers how much of an account's pool balance is locked
// as collateral. Implemented by the credit ledger; consumed by the pool
// ledger's withdraw checks.
type CollateralOracle interface {
	RequiredCollateral(ctx context.Context, user string) (int64, error)
}

// PoolService is the rebasing pool ledger.
type PoolService interface {
	CollateralAware

	// Deposit pulls amount of settlement asset from the account and mints
	// shares at the current index. Returns the underlying value credited.
	Deposit(ctx context.Context, account string, amount int64) (int64, error)

	// Withdraw burns shares worth amount and pushes the settlement asset
	// back to the account. Amount must not exceed the available balance.
	Withdraw(ctx context.Context, account string, amount int64) (int64, error)

	// UpdateIndex reconciles the index against pool assets plus the loan
	// book. The index never decreases.
	UpdateIndex(ctx context.Context) error

	// Borrow lends amount out of the pool to the credit ledger's core
	// account. Credit-ledger use only.
	Borrow(ctx context.Context, amount int64) error

	// Repay returns up to amount of borrowed value from the core account.
	// Returns the amount actually applied to the loan book.
	Repay(ctx context.Context, amount int64) (int64, error)

	// RepayWithBurn burns shares worth principal+fee from the delinquent
	// account, settles the loan book, and forwards fee to the core
	// account. Credit-ledger use only.
	RepayWithBurn(ctx context.Context, account string, principal, fee int64) error

	// Balance returns the account's pool balance in underlying value.
	Balance(ctx context.Context, account string) (int64, error)

	// BalanceInfo returns total, locked, and available balance.
	BalanceInfo(ctx context.Context, account string) (*entities.BalanceInfo, error)

	// TotalSupply returns the pool's total underlying value.
	TotalSupply(ctx context.Context) (int64, error)

	// UtilizationRatio returns borrowed/(assets+borrowed) in basis points.
	UtilizationRatio(ctx context.Context) (int64, error)
}

// CollateralAware lets the pool ledger be wired to a collateral oracle after
// construction, breaking the pool/credit constructor cycle.
type CollateralAware interface {
	SetCollateralOracle(oracle CollateralOracle)
}

// BillingService is the credit ledger.
type BillingService interface {
	CollateralOracle

	// CreateBill issues a new bill for an approved merchant. Returns the
	// bill ID.
	CreateBill(ctx context.Context, merchant, user string, amount int64, orderRef string) (int64, error)

	// PayBill settles a created bill with pool credit. Caller must be the
	// bill's user.
	PayBill(ctx context.Context, billID int64, caller string) error

	// RepayBill repays principal plus accrued late fee. Caller must be
	// the bill's user.
	RepayBill(ctx context.Context, billID int64, caller string) error

	// LiquidateBill force-closes a delinquent bill against the user's
	// pool collateral.
	LiquidateBill(ctx context.Context, billID int64, liquidator string) error

	// GetBill returns a bill by ID.
	GetBill(ctx context.Context, billID int64) (*entities.Bill, error)

	// UserDebt returns outstanding principal and accrued late fees over
	// the user's open bills.
	UserDebt(ctx context.Context, user string) (principal, interest int64, err error)

	// BorrowingPower returns the user's derived credit view.
	BorrowingPower(ctx context.Context, user string) (*entities.BorrowingPower, error)

	// ExpireBills moves created bills past their issuance window to
	// expired. Returns the number of bills transitioned.
	ExpireBills(ctx context.Context) (int, error)

	// MarkOverdueBills moves paid bills past the grace period to overdue.
	// Returns the number of bills transitioned.
	MarkOverdueBills(ctx context.Context) (int, error)
}

// MerchantService manages merchant enrollment.
type MerchantService interface {
	// Enroll registers the account as a pending merchant.
	Enroll(ctx context.Context, account, infoID string) (*entities.Merchant, error)

	// UpdateStatus changes a merchant's status. Admin only.
	UpdateStatus(ctx context.Context, admin, account string, status entities.MerchantStatus) error

	// Get returns the merchant record for an account.
	Get(ctx context.Context, account string) (*entities.Merchant, error)
}
