package entities

import "time"

// Fixed-point scales. Rates are scaled by 1e7, the pool index by 1e9.
const (
	RateScale  int64 = 10_000_000
	IndexScale int64 = 1_000_000_000
)

// Protocol rates, all scaled by RateScale.
const (
	MerchantFeeRate        int64 = 150_000   // 1.5% of principal
	LateInterestAPR        int64 = 3_000_000 // 30% simple APR on principal
	LiquidationPenaltyRate int64 = 100_000   // 1% of principal

	// Fee distribution ratios. The three must sum to exactly RateScale.
	FeeToPoolRatio      int64 = 7_000_000 // 70% to liquidity providers
	FeeToTreasuryRatio  int64 = 2_000_000 // 20% to treasury
	FeeToInsuranceRatio int64 = 1_000_000 // 10% to insurance fund

	MaxLTV          int64 = 9_000_000  // 90% of pool balance is borrowable
	CollateralRatio int64 = 11_100_000 // 111% of debt stays locked
)

// Time windows of the bill lifecycle.
const (
	BillDuration         = 24 * time.Hour      // issuance window before a created bill expires
	GracePeriod          = 14 * 24 * time.Hour // no late fee inside it, measured from payment
	LiquidationThreshold = 28 * 24 * time.Hour // from bill creation
)

// HealthFactorMax is the sentinel health factor reported when a user has no
// open debt.
const HealthFactorMax int64 = 1<<63 - 1

// System account identifiers of the settlement-asset ledger. User, merchant,
// treasury and insurance accounts are free-form; these two are reserved for
// the protocol itself.
const (
	PoolAccount = "system:pool"
	CoreAccount = "system:core"
)

// ProtocolConfig is the singleton protocol configuration, set once at
// initialization.
type ProtocolConfig struct {
	Admin         string    `db:"admin_account"`
	Treasury      string    `db:"treasury_account"`
	InsuranceFund string    `db:"insurance_account"`
	CreatedAt     time.Time `db:"created_at"`
}

// ProtocolConstants returns the protocol parameters as a flat map, the shape
// consumed by frontends.
func ProtocolConstants() map[string]int64 {
	return map[string]int64{
		"MERCHANT_FEE_RATE":        MerchantFeeRate,
		"LATE_INTEREST_APR":        LateInterestAPR,
		"LIQUIDATION_PENALTY_RATE": LiquidationPenaltyRate,
		"MAX_LTV":                  MaxLTV,
		"COLLATERAL_RATIO":         CollateralRatio,
		"FEE_TO_POOL_RATIO":        FeeToPoolRatio,
		"FEE_TO_TREASURY_RATIO":    FeeToTreasuryRatio,
		"FEE_TO_INSURANCE_RATIO":   FeeToInsuranceRatio,
		"BILL_DURATION_DAYS":       int64(BillDuration / (24 * time.Hour)),
		"GRACE_PERIOD_DAYS":        int64(GracePeriod / (24 * time.Hour)),
		"LIQUIDATION_THRESHOLD_DAYS": int64(
			LiquidationThreshold / (24 * time.Hour)),
	}
}
