package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenlater/lumen-later/domain/entities"
	"github.com/lumenlater/lumen-later/repository/testutil"
)

func TestMerchantRepository(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewMerchantRepository(testDB.DB)
	ctx := context.Background()

	t.Run("unknown merchant returns nil", func(t *testing.T) {
		merchant, err := repo.GetByAccount(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, merchant)
	})

	t.Run("create fills timestamps", func(t *testing.T) {
		merchant := &entities.Merchant{
			Account: "shop-1",
			InfoID:  "ipfs://merchant-info",
			Status:  entities.MerchantStatusPending,
		}
		require.NoError(t, repo.Create(ctx, merchant))
		assert.False(t, merchant.CreatedAt.IsZero())
		assert.False(t, merchant.UpdatedAt.IsZero())

		loaded, err := repo.GetByAccount(ctx, "shop-1")
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, "ipfs://merchant-info", loaded.InfoID)
		assert.Equal(t, entities.MerchantStatusPending, loaded.Status)
	})

	t.Run("duplicate enrollment fails", func(t *testing.T) {
		err := repo.Create(ctx, &entities.Merchant{
			Account: "shop-1",
			InfoID:  "ipfs://other",
			Status:  entities.MerchantStatusPending,
		})
		assert.Error(t, err)
	})

	t.Run("update status", func(t *testing.T) {
		merchant, err := repo.GetByAccount(ctx, "shop-1")
		require.NoError(t, err)

		merchant.Status = entities.MerchantStatusApproved
		require.NoError(t, repo.Update(ctx, merchant))

		loaded, err := repo.GetByAccount(ctx, "shop-1")
		require.NoError(t, err)
		assert.Equal(t, entities.MerchantStatusApproved, loaded.Status)
		assert.True(t, loaded.UpdatedAt.After(loaded.CreatedAt) || loaded.UpdatedAt.Equal(loaded.CreatedAt))
	})

	t.Run("update missing merchant fails", func(t *testing.T) {
		err := repo.Update(ctx, &entities.Merchant{Account: "ghost", Status: entities.MerchantStatusApproved})
		assert.Error(t, err)
	})
}

func TestConfigRepository(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewConfigRepository(testDB.DB)
	ctx := context.Background()

	t.Run("empty before initialization", func(t *testing.T) {
		cfg, err := repo.Get(ctx)
		require.NoError(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("set once", func(t *testing.T) {
		require.NoError(t, repo.Set(ctx, &entities.ProtocolConfig{
			Admin:         "admin",
			Treasury:      "treasury",
			InsuranceFund: "insurance",
		}))

		cfg, err := repo.Get(ctx)
		require.NoError(t, err)
		require.NotNil(t, cfg)
		assert.Equal(t, "admin", cfg.Admin)
		assert.Equal(t, "treasury", cfg.Treasury)
		assert.Equal(t, "insurance", cfg.InsuranceFund)
		assert.False(t, cfg.CreatedAt.IsZero())
	})

	t.Run("second set is rejected", func(t *testing.T) {
		err := repo.Set(ctx, &entities.ProtocolConfig{
			Admin:         "other",
			Treasury:      "other",
			InsuranceFund: "other",
		})
		assert.ErrorIs(t, err, entities.ErrAlreadyInitialized)

		cfg, err := repo.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, "admin", cfg.Admin)
	})
}

func TestMerchantStatusPending(t *testing.T) {
	t.Parallel()
	assert.False(t, (&entities.Merchant{Status: entities.MerchantStatusPending}).IsApproved())
	assert.True(t, (&entities.Merchant{Status: entities.MerchantStatusApproved}).IsApproved())
	assert.False(t, (&entities.Merchant{Status: entities.MerchantStatusSuspended}).IsApproved())
}
