package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenlater/lumen-later/domain/entities"
	"github.com/lumenlater/lumen-later/domain/events"
	"github.com/lumenlater/lumen-later/domain/interfaces"
	"github.com/lumenlater/lumen-later/domain/testhelpers"
	"github.com/lumenlater/lumen-later/infrastructure"
	"github.com/lumenlater/lumen-later/repository"
	"github.com/lumenlater/lumen-later/repository/testutil"
)

type appFixture struct {
	app    *App
	events *testhelpers.RecordingPublisher
}

func setupApp(t *testing.T) *appFixture {
	t.Helper()
	testDB := testutil.SetupTestDatabase(t)

	downstream := &testhelpers.RecordingPublisher{}
	factory := repository.NewUnitOfWorkFactory(testDB.DB, func() interfaces.TransactionalEventPublisher {
		return infrastructure.NewTransactionalPublisher(downstream)
	})
	return &appFixture{
		app:    NewApp(factory),
		events: downstream,
	}
}

func TestApp_BillLifecycle(t *testing.T) {
	t.Parallel()
	f := setupApp(t)
	ctx := context.Background()

	require.NoError(t, f.app.Initialize(ctx, "admin", "treasury", "insurance"))
	require.NoError(t, f.app.MintAsset(ctx, "admin", "alice", 10_000_000))

	credited, err := f.app.Deposit(ctx, "alice", 10_000_000)
	require.NoError(t, err)
	assert.Equal(t, int64(10_000_000), credited)

	_, err = f.app.EnrollMerchant(ctx, "merchant", "ipfs://merchant-info")
	require.NoError(t, err)
	require.NoError(t, f.app.UpdateMerchantStatus(ctx, "admin", "merchant", entities.MerchantStatusApproved))

	billID, err := f.app.CreateBill(ctx, "merchant", "alice", 1_000_000, "order-1")
	require.NoError(t, err)
	require.NoError(t, f.app.PayBill(ctx, billID, "alice"))

	t.Run("merchant settled net of fee", func(t *testing.T) {
		merchantBalance, err := f.app.AssetBalance(ctx, "merchant")
		require.NoError(t, err)
		assert.Equal(t, int64(985_000), merchantBalance)

		treasuryBalance, err := f.app.AssetBalance(ctx, "treasury")
		require.NoError(t, err)
		assert.Equal(t, int64(3_000), treasuryBalance)

		insuranceBalance, err := f.app.AssetBalance(ctx, "insurance")
		require.NoError(t, err)
		assert.Equal(t, int64(1_500), insuranceBalance)
	})

	t.Run("pool share of fee raises the index", func(t *testing.T) {
		stats, err := f.app.GetPoolStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1_001_050_000), stats.Index)
		assert.Equal(t, int64(1_000_000), stats.TotalBorrowed)

		balance, err := f.app.PoolBalance(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, int64(10_010_500), balance.Total)
	})

	t.Run("open debt locks collateral", func(t *testing.T) {
		balance, err := f.app.PoolBalance(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, int64(1_110_000), balance.Locked)

		power, err := f.app.GetBorrowingPower(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, int64(1_000_000), power.CurrentDebt)
	})

	t.Run("repay within grace closes the bill", func(t *testing.T) {
		require.NoError(t, f.app.MintAsset(ctx, "admin", "alice", 1_000_000))
		require.NoError(t, f.app.RepayBill(ctx, billID, "alice"))

		bill, err := f.app.GetBill(ctx, billID)
		require.NoError(t, err)
		assert.Equal(t, entities.BillStatusRepaid, bill.Status)

		stats, err := f.app.GetPoolStats(ctx)
		require.NoError(t, err)
		assert.Zero(t, stats.TotalBorrowed)

		balance, err := f.app.PoolBalance(ctx, "alice")
		require.NoError(t, err)
		assert.Zero(t, balance.Locked)
	})

	t.Run("events published in order", func(t *testing.T) {
		var types []events.EventType
		for _, e := range f.events.Events {
			types = append(types, e.Type())
		}
		assert.Equal(t, []events.EventType{
			events.EventTypeProtocolInitialized,
			events.EventTypePoolDeposit,
			events.EventTypeMerchantEnrolled,
			events.EventTypeMerchantStatusUpdated,
			events.EventTypeBillCreated,
			events.EventTypePoolBorrow,
			events.EventTypePoolIndexUpdated,
			events.EventTypePaymentCompleted,
			events.EventTypePoolRepay,
			events.EventTypeRepaymentCompleted,
		}, types)
	})
}

func TestApp_FailedOperationLeavesNoTrace(t *testing.T) {
	t.Parallel()
	f := setupApp(t)
	ctx := context.Background()

	require.NoError(t, f.app.Initialize(ctx, "admin", "treasury", "insurance"))
	require.NoError(t, f.app.MintAsset(ctx, "admin", "alice", 10_000_000))
	_, err := f.app.Deposit(ctx, "alice", 10_000_000)
	require.NoError(t, err)

	_, err = f.app.EnrollMerchant(ctx, "merchant", "ipfs://merchant-info")
	require.NoError(t, err)
	require.NoError(t, f.app.UpdateMerchantStatus(ctx, "admin", "merchant", entities.MerchantStatusApproved))

	billID, err := f.app.CreateBill(ctx, "merchant", "alice", 1_000_000, "order-1")
	require.NoError(t, err)

	published := len(f.events.Events)

	// A stranger cannot settle someone else's bill, and the failed attempt
	// must not leak partial writes or events.
	err = f.app.PayBill(ctx, billID, "mallory")
	require.ErrorIs(t, err, entities.ErrUnauthorized)

	bill, err := f.app.GetBill(ctx, billID)
	require.NoError(t, err)
	assert.Equal(t, entities.BillStatusCreated, bill.Status)

	merchantBalance, err := f.app.AssetBalance(ctx, "merchant")
	require.NoError(t, err)
	assert.Zero(t, merchantBalance)

	stats, err := f.app.GetPoolStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalBorrowed)

	assert.Len(t, f.events.Events, published)
}

func TestApp_AdminGuards(t *testing.T) {
	t.Parallel()
	f := setupApp(t)
	ctx := context.Background()

	t.Run("operations require initialization", func(t *testing.T) {
		_, err := f.app.GetConfig(ctx)
		assert.ErrorIs(t, err, entities.ErrNotInitialized)

		err = f.app.MintAsset(ctx, "admin", "alice", 1_000)
		assert.ErrorIs(t, err, entities.ErrNotInitialized)
	})

	t.Run("initialization rejects empty accounts", func(t *testing.T) {
		err := f.app.Initialize(ctx, "", "treasury", "insurance")
		assert.ErrorIs(t, err, entities.ErrInvalidAccount)

		err = f.app.Initialize(ctx, "admin", "treasury", "")
		assert.ErrorIs(t, err, entities.ErrInvalidAccount)

		_, err = f.app.GetConfig(ctx)
		assert.ErrorIs(t, err, entities.ErrNotInitialized)
	})

	require.NoError(t, f.app.Initialize(ctx, "admin", "treasury", "insurance"))

	t.Run("double initialization rejected", func(t *testing.T) {
		err := f.app.Initialize(ctx, "other", "other", "other")
		assert.ErrorIs(t, err, entities.ErrAlreadyInitialized)
	})

	t.Run("mint is admin only", func(t *testing.T) {
		err := f.app.MintAsset(ctx, "mallory", "mallory", 1_000_000)
		assert.ErrorIs(t, err, entities.ErrNotAdmin)

		balance, err := f.app.AssetBalance(ctx, "mallory")
		require.NoError(t, err)
		assert.Zero(t, balance)
	})

	t.Run("merchant status change is admin only", func(t *testing.T) {
		_, err := f.app.EnrollMerchant(ctx, "merchant", "ipfs://info")
		require.NoError(t, err)

		err = f.app.UpdateMerchantStatus(ctx, "mallory", "merchant", entities.MerchantStatusApproved)
		assert.ErrorIs(t, err, entities.ErrNotAdmin)
	})
}
