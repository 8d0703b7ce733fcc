package entities

import "time"

// PoolState is the singleton accounting state of the rebasing liquidity
// pool. Index converts shares to underlying value (scaled by IndexScale) and
// only ever increases; Borrowed is the value currently lent out to the
// credit ledger and not yet returned.
type PoolState struct {
	Index     int64     `db:"idx"`
	Supply    int64     `db:"total_shares"`
	Borrowed  int64     `db:"total_borrowed"`
	UpdatedAt time.Time `db:"updated_at"`
}

// BalanceInfo is the per-account pool balance breakdown in underlying value.
// Available clamps at zero when required collateral exceeds the balance.
type BalanceInfo struct {
	Total     int64
	Locked    int64
	Available int64
}

// BorrowingPower is the derived per-user credit view. All values are in
// underlying units except HealthFactor, which is scaled by RateScale and
// saturates at HealthFactorMax when the user has no debt.
type BorrowingPower struct {
	PoolBalance        int64
	MaxBorrowing       int64
	CurrentBorrowed    int64
	CurrentDebt        int64
	AvailableBorrowing int64
	RequiredCollateral int64
	HealthFactor       int64
}
