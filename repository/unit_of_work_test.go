package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenlater/lumen-later/domain/events"
	"github.com/lumenlater/lumen-later/domain/interfaces"
	"github.com/lumenlater/lumen-later/domain/testhelpers"
	"github.com/lumenlater/lumen-later/infrastructure"
	"github.com/lumenlater/lumen-later/repository/testutil"
)

func TestUnitOfWork_CommitPersistsAndFlushesEvents(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	downstream := &testhelpers.RecordingPublisher{}
	factory := NewUnitOfWorkFactory(testDB.DB, func() interfaces.TransactionalEventPublisher {
		return infrastructure.NewTransactionalPublisher(downstream)
	})

	ctx := context.Background()
	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))

	require.NoError(t, uow.AssetLedger().Mint(ctx, "alice", 1_000_000))
	require.NoError(t, uow.EventBus().Publish(events.PoolDepositEvent{
		Account:      "alice",
		Amount:       1_000_000,
		SharesMinted: 1_000_000,
	}))

	// Buffered, not yet visible downstream.
	assert.Empty(t, downstream.Events)

	require.NoError(t, uow.Commit())

	balance, err := NewAssetLedger(testDB.DB).Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), balance)

	require.Len(t, downstream.Events, 1)
	assert.Equal(t, events.EventTypePoolDeposit, downstream.Events[0].Type())
}

func TestUnitOfWork_RollbackDiscardsWritesAndEvents(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	downstream := &testhelpers.RecordingPublisher{}
	factory := NewUnitOfWorkFactory(testDB.DB, func() interfaces.TransactionalEventPublisher {
		return infrastructure.NewTransactionalPublisher(downstream)
	})

	ctx := context.Background()
	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))

	require.NoError(t, uow.AssetLedger().Mint(ctx, "alice", 1_000_000))
	require.NoError(t, uow.EventBus().Publish(events.PoolDepositEvent{
		Account: "alice",
		Amount:  1_000_000,
	}))

	require.NoError(t, uow.Rollback())

	balance, err := NewAssetLedger(testDB.DB).Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, balance)
	assert.Empty(t, downstream.Events)
}

func TestUnitOfWork_Lifecycle(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	factory := NewUnitOfWorkFactory(testDB.DB, func() interfaces.TransactionalEventPublisher {
		return infrastructure.NewTransactionalPublisher(&testhelpers.RecordingPublisher{})
	})

	ctx := context.Background()

	t.Run("repositories panic before Begin", func(t *testing.T) {
		uow := factory.Create()
		assert.Panics(t, func() { uow.PoolRepository() })
	})

	t.Run("double Begin fails", func(t *testing.T) {
		uow := factory.Create()
		require.NoError(t, uow.Begin(ctx))
		defer uow.Rollback()
		assert.Error(t, uow.Begin(ctx))
	})

	t.Run("commit without Begin fails", func(t *testing.T) {
		uow := factory.Create()
		assert.Error(t, uow.Commit())
	})

	t.Run("rollback after commit is a no-op", func(t *testing.T) {
		uow := factory.Create()
		require.NoError(t, uow.Begin(ctx))
		require.NoError(t, uow.Commit())
		assert.NoError(t, uow.Rollback())
	})
}
