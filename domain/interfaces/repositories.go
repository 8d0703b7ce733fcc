package interfaces

import (
	"context"
	"time"

	"github.com/lumenlater/lumen-later/domain/entities"
	"github.com/lumenlater/lumen-later/domain/events"
)

// PoolRepository defines data access for the rebasing pool ledger state.
type PoolRepository interface {
	// GetState returns the singleton pool state, creating the initial row
	// (index 1.0, zero supply, zero borrowed) if it does not exist yet.
	GetState(ctx context.Context) (*entities.PoolState, error)

	// SaveState persists the singleton pool state.
	SaveState(ctx context.Context, state *entities.PoolState) error

	// GetShares returns the raw share balance of an account (0 if none).
	GetShares(ctx context.Context, account string) (int64, error)

	// SetShares sets the raw share balance of an account.
	SetShares(ctx context.Context, account string, shares int64) error
}

// BillRepository defines data access for bills.
type BillRepository interface {
	// Create inserts a new bill and fills in its assigned ID.
	Create(ctx context.Context, bill *entities.Bill) error

	// GetByID returns a bill by ID, or nil when it does not exist.
	GetByID(ctx context.Context, id int64) (*entities.Bill, error)

	// Update persists status and paid-at changes.
	Update(ctx context.Context, bill *entities.Bill) error

	// GetOpenByUser returns the user's open bills (paid or overdue),
	// oldest first.
	GetOpenByUser(ctx context.Context, user string) ([]*entities.Bill, error)

	// GetCreatedBefore returns still-created bills whose issuance window
	// ended before the cutoff.
	GetCreatedBefore(ctx context.Context, cutoff time.Time) ([]*entities.Bill, error)

	// GetPaidBefore returns paid bills whose payment happened before the
	// cutoff and that have not yet been marked overdue.
	GetPaidBefore(ctx context.Context, cutoff time.Time) ([]*entities.Bill, error)
}

// MerchantRepository defines data access for merchant enrollment records.
type MerchantRepository interface {
	// Create inserts a new merchant record.
	Create(ctx context.Context, merchant *entities.Merchant) error

	// GetByAccount returns a merchant by account, or nil when not enrolled.
	GetByAccount(ctx context.Context, account string) (*entities.Merchant, error)

	// Update persists status changes.
	Update(ctx context.Context, merchant *entities.Merchant) error
}

// ConfigRepository defines access to the singleton protocol configuration.
type ConfigRepository interface {
	// Get returns the protocol config, or nil when not initialized.
	Get(ctx context.Context) (*entities.ProtocolConfig, error)

	// Set stores the protocol config. Fails if one already exists.
	Set(ctx context.Context, cfg *entities.ProtocolConfig) error
}

// AssetLedger is the fungible settlement-asset ledger. It is the internal
// stand-in for the external token collaborator: balances move atomically
// inside the calling operation's transaction.
type AssetLedger interface {
	// Balance returns the settlement-asset balance of an account.
	Balance(ctx context.Context, account string) (int64, error)

	// Transfer moves amount between accounts. Zero amounts and
	// self-transfers are no-ops. Fails with entities.ErrInsufficientFunds
	// when the source balance is too small.
	Transfer(ctx context.Context, from, to string, amount int64) error

	// Mint credits freshly issued settlement asset to an account.
	Mint(ctx context.Context, to string, amount int64) error
}

// EventPublisher publishes domain events. Inside a unit of work the
// publisher buffers; events reach the bus only after commit.
type EventPublisher interface {
	Publish(event events.Event) error
}

// TransactionalEventPublisher buffers events during a transaction and
// releases or discards them with its outcome.
type TransactionalEventPublisher interface {
	EventPublisher

	// Flush publishes all buffered events. Called after commit.
	Flush(ctx context.Context) error

	// Discard drops all buffered events. Called on rollback.
	Discard()
}

// UnitOfWork is one atomic ledger operation: every repository obtained from
// it runs on the same database transaction, and buffered events are
// published only if the transaction commits.
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	PoolRepository() PoolRepository
	BillRepository() BillRepository
	MerchantRepository() MerchantRepository
	ConfigRepository() ConfigRepository
	AssetLedger() AssetLedger
	EventBus() EventPublisher
}

// UnitOfWorkFactory creates units of work.
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
