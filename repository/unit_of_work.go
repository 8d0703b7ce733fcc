package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lumenlater/lumen-later/database"
	"github.com/lumenlater/lumen-later/domain/interfaces"
)

// unitOfWork implements one atomic ledger operation: all repositories share a
// single transaction, and buffered events are released only on commit.
type unitOfWork struct {
	db        *database.DB
	tx        pgx.Tx
	ctx       context.Context
	publisher interfaces.TransactionalEventPublisher

	poolRepo     interfaces.PoolRepository
	billRepo     interfaces.BillRepository
	merchantRepo interfaces.MerchantRepository
	configRepo   interfaces.ConfigRepository
	assetLedger  interfaces.AssetLedger
}

type unitOfWorkFactory struct {
	db           *database.DB
	newPublisher func() interfaces.TransactionalEventPublisher
}

// NewUnitOfWorkFactory creates a unit of work factory. newPublisher is called
// once per unit of work to get a fresh transactional event buffer.
func NewUnitOfWorkFactory(db *database.DB, newPublisher func() interfaces.TransactionalEventPublisher) interfaces.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:           db,
		newPublisher: newPublisher,
	}
}

// Create returns a new, unstarted unit of work.
func (f *unitOfWorkFactory) Create() interfaces.UnitOfWork {
	return &unitOfWork{
		db:        f.db,
		publisher: f.newPublisher(),
	}
}

// Begin starts a new transaction and binds all repositories to it.
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	u.poolRepo = newPoolRepository(tx)
	u.billRepo = newBillRepository(tx)
	u.merchantRepo = newMerchantRepository(tx)
	u.configRepo = newConfigRepository(tx)
	u.assetLedger = newAssetLedger(tx)

	return nil
}

// Commit commits the transaction and flushes buffered events.
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	if err := u.tx.Commit(u.ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	u.tx = nil

	if u.publisher != nil {
		u.publisher.Flush(u.ctx)
	}

	return nil
}

// Rollback rolls back the transaction and discards buffered events.
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	u.tx = nil

	if u.publisher != nil {
		u.publisher.Discard()
	}

	return nil
}

// PoolRepository returns the pool repository for this unit of work.
func (u *unitOfWork) PoolRepository() interfaces.PoolRepository {
	if u.poolRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.poolRepo
}

// BillRepository returns the bill repository for this unit of work.
func (u *unitOfWork) BillRepository() interfaces.BillRepository {
	if u.billRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.billRepo
}

// MerchantRepository returns the merchant repository for this unit of work.
func (u *unitOfWork) MerchantRepository() interfaces.MerchantRepository {
	if u.merchantRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.merchantRepo
}

// ConfigRepository returns the config repository for this unit of work.
func (u *unitOfWork) ConfigRepository() interfaces.ConfigRepository {
	if u.configRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.configRepo
}

// AssetLedger returns the asset ledger for this unit of work.
func (u *unitOfWork) AssetLedger() interfaces.AssetLedger {
	if u.assetLedger == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.assetLedger
}

// EventBus returns the transactional event publisher for this unit of work.
func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	if u.publisher == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.publisher
}
