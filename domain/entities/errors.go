package entities

import "errors"

// Domain errors. Services wrap these with context; callers test with
// errors.Is to map them onto API responses.
var (
	// Initialization
	ErrAlreadyInitialized = errors.New("protocol already initialized")
	ErrNotInitialized     = errors.New("protocol not initialized")

	// Authorization
	ErrNotAdmin     = errors.New("caller is not the protocol admin")
	ErrUnauthorized = errors.New("caller is not authorized for this account")

	// Bills
	ErrBillNotFound           = errors.New("bill not found")
	ErrBillNotPayable         = errors.New("bill is not payable")
	ErrBillNotPaid            = errors.New("bill has not been paid")
	ErrBillExpired            = errors.New("bill has expired")
	ErrLiquidationNotPossible = errors.New("liquidation not possible")
	ErrInvalidAmount          = errors.New("amount must be positive")
	ErrInvalidAccount         = errors.New("account must not be empty")

	// Liquidation
	ErrInsufficientCollateralForLiquidation = errors.New("insufficient collateral for liquidation")
	ErrGracePeriodNotExpired                = errors.New("liquidation grace period not expired")
	ErrNotPoolShareHolder                   = errors.New("liquidator holds no pool shares")

	// Pool
	ErrInsufficientAvailableBalance = errors.New("insufficient available balance")
	ErrInsufficientShares           = errors.New("insufficient share balance")
	ErrInsufficientCollateral       = errors.New("insufficient collateral")

	// Merchants
	ErrMerchantAlreadyEnrolled = errors.New("merchant already enrolled")
	ErrMerchantNotFound        = errors.New("merchant not found")
	ErrMerchantNotApproved     = errors.New("merchant not approved")

	// Settlement asset
	ErrInsufficientFunds = errors.New("insufficient funds")
)
