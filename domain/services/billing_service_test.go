package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenlater/lumen-later/domain/entities"
	"github.com/lumenlater/lumen-later/domain/events"
	"github.com/lumenlater/lumen-later/domain/interfaces"
	"github.com/lumenlater/lumen-later/domain/testhelpers"
)

type billingFixture struct {
	bills     *testhelpers.MemoryBillRepository
	merchants *testhelpers.MemoryMerchantRepository
	config    *testhelpers.MemoryConfigRepository
	pool      *testhelpers.MemoryPoolRepository
	assets    *testhelpers.MemoryAssetLedger
	publisher *testhelpers.RecordingPublisher

	poolSvc interfaces.PoolService
	billing interfaces.BillingService

	clock time.Time
}

func newBillingFixture(t *testing.T) *billingFixture {
	t.Helper()
	f := &billingFixture{
		bills:     testhelpers.NewMemoryBillRepository(),
		merchants: testhelpers.NewMemoryMerchantRepository(),
		config:    testhelpers.NewMemoryConfigRepository(),
		pool:      testhelpers.NewMemoryPoolRepository(),
		assets:    testhelpers.NewMemoryAssetLedger(),
		publisher: &testhelpers.RecordingPublisher{},
		clock:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.poolSvc = NewPoolService(f.pool, f.assets, f.publisher)
	f.billing = NewBillingService(f.bills, f.merchants, f.config, f.poolSvc, f.assets, f.publisher)
	f.billing.(*billingService).now = func() time.Time { return f.clock }

	require.NoError(t, f.config.Set(context.Background(), &entities.ProtocolConfig{
		Admin:         "admin",
		Treasury:      "treasury",
		InsuranceFund: "insurance",
		CreatedAt:     f.clock,
	}))
	require.NoError(t, f.merchants.Create(context.Background(), &entities.Merchant{
		Account:   "merchant",
		InfoID:    "info-1",
		Status:    entities.MerchantStatusApproved,
		CreatedAt: f.clock,
		UpdatedAt: f.clock,
	}))
	return f
}

func (f *billingFixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func (f *billingFixture) deposit(t *testing.T, account string, amount int64) {
	t.Helper()
	require.NoError(t, f.assets.Mint(context.Background(), account, amount))
	_, err := f.poolSvc.Deposit(context.Background(), account, amount)
	require.NoError(t, err)
}

func (f *billingFixture) createPaidBill(t *testing.T, user string, principal int64) int64 {
	t.Helper()
	ctx := context.Background()
	billID, err := f.billing.CreateBill(ctx, "merchant", user, principal, "order-1")
	require.NoError(t, err)
	require.NoError(t, f.billing.PayBill(ctx, billID, user))
	return billID
}

func TestBillingService_CreateBill(t *testing.T) {
	ctx := context.Background()
	f := newBillingFixture(t)

	billID, err := f.billing.CreateBill(ctx, "merchant", "alice", 1_000_000, "order-42")
	require.NoError(t, err)
	assert.Equal(t, int64(1), billID)

	bill, err := f.billing.GetBill(ctx, billID)
	require.NoError(t, err)
	assert.Equal(t, entities.BillStatusCreated, bill.Status)
	assert.Equal(t, "order-42", bill.OrderRef)
	assert.Nil(t, bill.PaidAt)
}

func TestBillingService_CreateBill_Guards(t *testing.T) {
	ctx := context.Background()
	f := newBillingFixture(t)

	_, err := f.billing.CreateBill(ctx, "unknown", "alice", 1_000, "o")
	assert.ErrorIs(t, err, entities.ErrMerchantNotApproved)

	require.NoError(t, f.merchants.Create(ctx, &entities.Merchant{
		Account: "pending-merchant",
		Status:  entities.MerchantStatusPending,
	}))
	_, err = f.billing.CreateBill(ctx, "pending-merchant", "alice", 1_000, "o")
	assert.ErrorIs(t, err, entities.ErrMerchantNotApproved)

	_, err = f.billing.CreateBill(ctx, "merchant", "alice", 0, "o")
	assert.ErrorIs(t, err, entities.ErrInvalidAmount)
}

func TestBillingService_PayBill_SettlesWithPoolCredit(t *testing.T) {
	ctx := context.Background()
	f := newBillingFixture(t)
	f.deposit(t, "alice", 10_000_000)

	billID, err := f.billing.CreateBill(ctx, "merchant", "alice", 1_000_000, "order-1")
	require.NoError(t, err)
	require.NoError(t, f.billing.PayBill(ctx, billID, "alice"))

	// Merchant fee is 1.5%: the merchant nets 985,000 and the 15,000 fee
	// splits 70/20/10 between pool, treasury, and insurance.
	assert.Equal(t, int64(985_000), f.assets.Balances["merchant"])
	assert.Equal(t, int64(3_000), f.assets.Balances["treasury"])
	assert.Equal(t, int64(1_500), f.assets.Balances["insurance"])
	assert.Equal(t, int64(1_000_000), f.pool.State.Borrowed)

	// The pool's 70% cut lands as yield on all share holders.
	balance, err := f.poolSvc.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(10_010_500), balance)

	bill, err := f.billing.GetBill(ctx, billID)
	require.NoError(t, err)
	assert.Equal(t, entities.BillStatusPaid, bill.Status)
	require.NotNil(t, bill.PaidAt)
	assert.Equal(t, f.clock, *bill.PaidAt)

	assert.Len(t, f.publisher.ByType(events.EventTypePaymentCompleted), 1)
}

func TestBillingService_PayBill_Guards(t *testing.T) {
	ctx := context.Background()
	f := newBillingFixture(t)
	f.deposit(t, "alice", 10_000_000)

	billID, err := f.billing.CreateBill(ctx, "merchant", "alice", 1_000_000, "order-1")
	require.NoError(t, err)

	err = f.billing.PayBill(ctx, 999, "alice")
	assert.ErrorIs(t, err, entities.ErrBillNotFound)

	err = f.billing.PayBill(ctx, billID, "mallory")
	assert.ErrorIs(t, err, entities.ErrUnauthorized)

	require.NoError(t, f.billing.PayBill(ctx, billID, "alice"))
	err = f.billing.PayBill(ctx, billID, "alice")
	assert.ErrorIs(t, err, entities.ErrBillNotPayable)
}

func TestBillingService_PayBill_ExpiredWindow(t *testing.T) {
	ctx := context.Background()
	f := newBillingFixture(t)
	f.deposit(t, "alice", 10_000_000)

	billID, err := f.billing.CreateBill(ctx, "merchant", "alice", 1_000_000, "order-1")
	require.NoError(t, err)

	f.advance(25 * time.Hour)
	err = f.billing.PayBill(ctx, billID, "alice")
	assert.ErrorIs(t, err, entities.ErrBillExpired)
}

func TestBillingService_PayBill_InsufficientBorrowingPower(t *testing.T) {
	ctx := context.Background()
	f := newBillingFixture(t)
	f.deposit(t, "alice", 1_000_000)

	// Max LTV is 90%, so a 950,000 bill exceeds the 900,000 limit.
	billID, err := f.billing.CreateBill(ctx, "merchant", "alice", 950_000, "order-1")
	require.NoError(t, err)

	err = f.billing.PayBill(ctx, billID, "alice")
	assert.ErrorIs(t, err, entities.ErrInsufficientCollateral)
}

func TestBillingService_PayBill_RequiresInitializedProtocol(t *testing.T) {
	ctx := context.Background()
	f := newBillingFixture(t)
	f.config.Config = nil
	f.deposit(t, "alice", 10_000_000)

	billID, err := f.billing.CreateBill(ctx, "merchant", "alice", 1_000_000, "order-1")
	require.NoError(t, err)

	err = f.billing.PayBill(ctx, billID, "alice")
	assert.ErrorIs(t, err, entities.ErrNotInitialized)
}

func TestBillingService_RepayBill_WithinGrace(t *testing.T) {
	ctx := context.Background()
	f := newBillingFixture(t)
	f.deposit(t, "alice", 10_000_000)
	billID := f.createPaidBill(t, "alice", 1_000_000)

	f.advance(10 * 24 * time.Hour)

	// Within the grace period only the principal is due.
	require.NoError(t, f.assets.Mint(ctx, "alice", 1_000_000))
	require.NoError(t, f.billing.RepayBill(ctx, billID, "alice"))

	assert.Equal(t, int64(0), f.assets.Balances["alice"])
	assert.Equal(t, int64(0), f.pool.State.Borrowed)

	bill, err := f.billing.GetBill(ctx, billID)
	require.NoError(t, err)
	assert.Equal(t, entities.BillStatusRepaid, bill.Status)
}

func TestBillingService_RepayBill_AccruesLateFee(t *testing.T) {
	ctx := context.Background()
	f := newBillingFixture(t)
	f.deposit(t, "alice", 10_000_000)
	billID := f.createPaidBill(t, "alice", 4_500_000)

	treasuryBefore := f.assets.Balances["treasury"]
	insuranceBefore := f.assets.Balances["insurance"]

	// One whole day past the 14-day grace period:
	// 4,500,000 * 30% * 1/365 = 3,698.
	f.advance(15*24*time.Hour + time.Hour)
	require.NoError(t, f.assets.Mint(ctx, "alice", 4_503_698))
	require.NoError(t, f.billing.RepayBill(ctx, billID, "alice"))

	assert.Equal(t, int64(0), f.assets.Balances["alice"])
	assert.Equal(t, int64(0), f.pool.State.Borrowed)
	assert.Equal(t, int64(739), f.assets.Balances["treasury"]-treasuryBefore)
	assert.Equal(t, int64(369), f.assets.Balances["insurance"]-insuranceBefore)

	bill, err := f.billing.GetBill(ctx, billID)
	require.NoError(t, err)
	assert.Equal(t, entities.BillStatusRepaid, bill.Status)
}

func TestBillingService_RepayBill_Guards(t *testing.T) {
	ctx := context.Background()
	f := newBillingFixture(t)
	f.deposit(t, "alice", 10_000_000)

	err := f.billing.RepayBill(ctx, 999, "alice")
	assert.ErrorIs(t, err, entities.ErrBillNotFound)

	billID, err := f.billing.CreateBill(ctx, "merchant", "alice", 1_000_000, "order-1")
	require.NoError(t, err)

	// A bill that was never paid has no debt to repay.
	err = f.billing.RepayBill(ctx, billID, "alice")
	assert.ErrorIs(t, err, entities.ErrBillNotPaid)

	require.NoError(t, f.billing.PayBill(ctx, billID, "alice"))
	err = f.billing.RepayBill(ctx, billID, "mallory")
	assert.ErrorIs(t, err, entities.ErrUnauthorized)
}

func TestBillingService_UserDebt_GraceBoundary(t *testing.T) {
	ctx := context.Background()
	f := newBillingFixture(t)
	f.deposit(t, "alice", 10_000_000)
	f.createPaidBill(t, "alice", 4_500_000)

	// Exactly at the grace boundary the fee is still zero.
	f.advance(14 * 24 * time.Hour)
	principal, interest, err := f.billing.UserDebt(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(4_500_000), principal)
	assert.Equal(t, int64(0), interest)

	// Past the boundary but under a whole day: still zero.
	f.advance(23 * time.Hour)
	_, interest, err = f.billing.UserDebt(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), interest)

	// One whole day overdue.
	f.advance(time.Hour)
	_, interest, err = f.billing.UserDebt(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(3_698), interest)
}

func TestBillingService_LiquidateBill(t *testing.T) {
	ctx := context.Background()
	f := newBillingFixture(t)
	f.deposit(t, "alice", 10_000_000)
	f.deposit(t, "larry", 50_000)
	billID := f.createPaidBill(t, "alice", 2_000_000)

	// 29 days after payment: 15 days past grace.
	// Late fee = 2,000,000 * 30% * 15/365 = 24,657.
	// Penalty  = 2,000,000 * 1% = 20,000, half to the liquidator.
	f.advance(29 * 24 * time.Hour)
	treasuryBefore := f.assets.Balances["treasury"]

	require.NoError(t, f.billing.LiquidateBill(ctx, billID, "larry"))

	assert.Equal(t, int64(10_000), f.assets.Balances["larry"])
	assert.Equal(t, int64(0), f.pool.State.Borrowed)

	// The remaining penalty half plus the late fee is distributed:
	// treasury takes 20% of 34,657.
	assert.Equal(t, int64(6_931), f.assets.Balances["treasury"]-treasuryBefore)

	bill, err := f.billing.GetBill(ctx, billID)
	require.NoError(t, err)
	assert.Equal(t, entities.BillStatusLiquidated, bill.Status)

	// The user's debt is gone, so their remaining balance unlocks.
	power, err := f.billing.BorrowingPower(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), power.CurrentDebt)
	assert.Equal(t, entities.HealthFactorMax, power.HealthFactor)
}

func TestBillingService_LiquidateBill_OverdueStatus(t *testing.T) {
	ctx := context.Background()
	f := newBillingFixture(t)
	f.deposit(t, "alice", 10_000_000)
	f.deposit(t, "larry", 50_000)
	billID := f.createPaidBill(t, "alice", 1_000_000)

	f.advance(15 * 24 * time.Hour)
	marked, err := f.billing.MarkOverdueBills(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	// Overdue bills stay liquidatable once the threshold passes.
	f.advance(13 * 24 * time.Hour)
	require.NoError(t, f.billing.LiquidateBill(ctx, billID, "larry"))

	bill, err := f.billing.GetBill(ctx, billID)
	require.NoError(t, err)
	assert.Equal(t, entities.BillStatusLiquidated, bill.Status)
}

func TestBillingService_LiquidateBill_Guards(t *testing.T) {
	ctx := context.Background()
	f := newBillingFixture(t)
	f.deposit(t, "alice", 10_000_000)
	f.deposit(t, "larry", 50_000)
	billID := f.createPaidBill(t, "alice", 1_000_000)

	// Only pool share holders may liquidate.
	f.advance(28 * 24 * time.Hour)
	err := f.billing.LiquidateBill(ctx, billID, "stranger")
	assert.ErrorIs(t, err, entities.ErrNotPoolShareHolder)

	err = f.billing.LiquidateBill(ctx, 999, "larry")
	assert.ErrorIs(t, err, entities.ErrBillNotFound)
}

func TestBillingService_LiquidateBill_BeforeThreshold(t *testing.T) {
	ctx := context.Background()
	f := newBillingFixture(t)
	f.deposit(t, "alice", 10_000_000)
	f.deposit(t, "larry", 50_000)
	billID := f.createPaidBill(t, "alice", 1_000_000)

	f.advance(27 * 24 * time.Hour)
	err := f.billing.LiquidateBill(ctx, billID, "larry")
	assert.ErrorIs(t, err, entities.ErrGracePeriodNotExpired)
}

func TestBillingService_LiquidateBill_AlreadyClosed(t *testing.T) {
	ctx := context.Background()
	f := newBillingFixture(t)
	f.deposit(t, "alice", 10_000_000)
	f.deposit(t, "larry", 50_000)
	billID := f.createPaidBill(t, "alice", 1_000_000)

	f.advance(28 * 24 * time.Hour)
	principal, interest, err := f.billing.UserDebt(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, f.assets.Mint(ctx, "alice", principal+interest))
	require.NoError(t, f.billing.RepayBill(ctx, billID, "alice"))

	err = f.billing.LiquidateBill(ctx, billID, "larry")
	assert.ErrorIs(t, err, entities.ErrLiquidationNotPossible)
}

func TestBillingService_BorrowingPower(t *testing.T) {
	ctx := context.Background()
	f := newBillingFixture(t)
	f.deposit(t, "alice", 10_000_000)

	power, err := f.billing.BorrowingPower(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(10_000_000), power.PoolBalance)
	assert.Equal(t, int64(9_000_000), power.MaxBorrowing)
	assert.Equal(t, int64(9_000_000), power.AvailableBorrowing)
	assert.Equal(t, int64(0), power.CurrentDebt)
	assert.Equal(t, entities.HealthFactorMax, power.HealthFactor)

	f.createPaidBill(t, "alice", 1_000_000)

	power, err = f.billing.BorrowingPower(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), power.CurrentBorrowed)
	assert.Equal(t, int64(1_000_000), power.CurrentDebt)
	assert.Equal(t, int64(1_110_000), power.RequiredCollateral)
	assert.True(t, power.HealthFactor > entities.RateScale)
	assert.True(t, power.HealthFactor < entities.HealthFactorMax)
}

func TestBillingService_DebtLocksWithdrawals(t *testing.T) {
	ctx := context.Background()
	f := newBillingFixture(t)
	f.deposit(t, "alice", 10_000_000)
	f.createPaidBill(t, "alice", 1_000_000)

	// 111% of the 1,000,000 debt stays locked.
	info, err := f.poolSvc.BalanceInfo(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1_110_000), info.Locked)

	_, err = f.poolSvc.Withdraw(ctx, "alice", info.Available+1)
	assert.ErrorIs(t, err, entities.ErrInsufficientAvailableBalance)

	withdrawn, err := f.poolSvc.Withdraw(ctx, "alice", info.Available)
	require.NoError(t, err)
	assert.Equal(t, info.Available, withdrawn)
}

func TestBillingService_ExpireBills(t *testing.T) {
	ctx := context.Background()
	f := newBillingFixture(t)
	f.deposit(t, "alice", 10_000_000)

	billID, err := f.billing.CreateBill(ctx, "merchant", "alice", 1_000_000, "order-1")
	require.NoError(t, err)

	// Still inside the issuance window: nothing to expire.
	count, err := f.billing.ExpireBills(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	f.advance(25 * time.Hour)
	count, err = f.billing.ExpireBills(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	bill, err := f.billing.GetBill(ctx, billID)
	require.NoError(t, err)
	assert.Equal(t, entities.BillStatusExpired, bill.Status)

	err = f.billing.PayBill(ctx, billID, "alice")
	assert.ErrorIs(t, err, entities.ErrBillNotPayable)
}

func TestBillingService_MarkOverdueBills(t *testing.T) {
	ctx := context.Background()
	f := newBillingFixture(t)
	f.deposit(t, "alice", 10_000_000)
	billID := f.createPaidBill(t, "alice", 1_000_000)

	f.advance(10 * 24 * time.Hour)
	count, err := f.billing.MarkOverdueBills(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	f.advance(5 * 24 * time.Hour)
	count, err = f.billing.MarkOverdueBills(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	bill, err := f.billing.GetBill(ctx, billID)
	require.NoError(t, err)
	assert.Equal(t, entities.BillStatusOverdue, bill.Status)

	// Overdue bills remain repayable.
	principal, interest, err := f.billing.UserDebt(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, f.assets.Mint(ctx, "alice", principal+interest))
	require.NoError(t, f.billing.RepayBill(ctx, billID, "alice"))
}
