package application

import (
	"context"
	"fmt"

	"github.com/lumenlater/lumen-later/domain/entities"
	"github.com/lumenlater/lumen-later/domain/events"
	"github.com/lumenlater/lumen-later/domain/interfaces"
	"github.com/lumenlater/lumen-later/domain/services"
)

// App is the application facade. Every public method is one atomic ledger
// operation: it runs inside a fresh unit of work and either commits fully or
// leaves no trace. Buffered events reach the bus only after commit.
type App struct {
	uowFactory interfaces.UnitOfWorkFactory
}

// NewApp creates the application facade over a unit of work factory.
func NewApp(uowFactory interfaces.UnitOfWorkFactory) *App {
	return &App{uowFactory: uowFactory}
}

// withUnitOfWork runs fn inside a transaction, committing on success and
// rolling back on error or panic.
func (a *App) withUnitOfWork(ctx context.Context, fn func(uow interfaces.UnitOfWork) error) error {
	uow := a.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			uow.Rollback()
			panic(r)
		}
	}()

	if err := fn(uow); err != nil {
		uow.Rollback()
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// buildServices constructs the domain services bound to one unit of work's
// transaction. The billing service registers itself as the pool's collateral
// oracle.
func buildServices(uow interfaces.UnitOfWork) (interfaces.PoolService, interfaces.BillingService, interfaces.MerchantService) {
	pool := services.NewPoolService(uow.PoolRepository(), uow.AssetLedger(), uow.EventBus())
	billing := services.NewBillingService(
		uow.BillRepository(),
		uow.MerchantRepository(),
		uow.ConfigRepository(),
		pool,
		uow.AssetLedger(),
		uow.EventBus(),
	)
	merchant := services.NewMerchantService(uow.MerchantRepository(), uow.ConfigRepository(), uow.EventBus())
	return pool, billing, merchant
}

// Initialize writes the protocol configuration. It can succeed exactly once.
func (a *App) Initialize(ctx context.Context, admin, treasury, insuranceFund string) error {
	return a.withUnitOfWork(ctx, func(uow interfaces.UnitOfWork) error {
		if admin == "" || treasury == "" || insuranceFund == "" {
			return entities.ErrInvalidAccount
		}
		cfg := &entities.ProtocolConfig{
			Admin:         admin,
			Treasury:      treasury,
			InsuranceFund: insuranceFund,
		}
		if err := uow.ConfigRepository().Set(ctx, cfg); err != nil {
			return err
		}
		return uow.EventBus().Publish(events.ProtocolInitializedEvent{
			Admin:         admin,
			Treasury:      treasury,
			InsuranceFund: insuranceFund,
		})
	})
}

// GetConfig returns the protocol configuration.
func (a *App) GetConfig(ctx context.Context) (*entities.ProtocolConfig, error) {
	var cfg *entities.ProtocolConfig
	err := a.withUnitOfWork(ctx, func(uow interfaces.UnitOfWork) error {
		var err error
		cfg, err = uow.ConfigRepository().Get(ctx)
		if err != nil {
			return err
		}
		if cfg == nil {
			return entities.ErrNotInitialized
		}
		return nil
	})
	return cfg, err
}

// MintAsset credits settlement asset to an account. Admin only; used for
// test environments and yield injection.
func (a *App) MintAsset(ctx context.Context, caller, to string, amount int64) error {
	return a.withUnitOfWork(ctx, func(uow interfaces.UnitOfWork) error {
		cfg, err := uow.ConfigRepository().Get(ctx)
		if err != nil {
			return err
		}
		if cfg == nil {
			return entities.ErrNotInitialized
		}
		if caller != cfg.Admin {
			return entities.ErrNotAdmin
		}
		return uow.AssetLedger().Mint(ctx, to, amount)
	})
}

// AssetBalance returns the settlement-asset balance of an account.
func (a *App) AssetBalance(ctx context.Context, account string) (int64, error) {
	var balance int64
	err := a.withUnitOfWork(ctx, func(uow interfaces.UnitOfWork) error {
		var err error
		balance, err = uow.AssetLedger().Balance(ctx, account)
		return err
	})
	return balance, err
}

// Deposit adds liquidity to the pool. Returns the value credited.
func (a *App) Deposit(ctx context.Context, account string, amount int64) (int64, error) {
	var credited int64
	err := a.withUnitOfWork(ctx, func(uow interfaces.UnitOfWork) error {
		pool, _, _ := buildServices(uow)
		var err error
		credited, err = pool.Deposit(ctx, account, amount)
		return err
	})
	return credited, err
}

// Withdraw removes available liquidity from the pool. Returns the value
// returned to the account.
func (a *App) Withdraw(ctx context.Context, account string, amount int64) (int64, error) {
	var withdrawn int64
	err := a.withUnitOfWork(ctx, func(uow interfaces.UnitOfWork) error {
		pool, _, _ := buildServices(uow)
		var err error
		withdrawn, err = pool.Withdraw(ctx, account, amount)
		return err
	})
	return withdrawn, err
}

// UpdateIndex reconciles the pool index against held assets plus the loan
// book.
func (a *App) UpdateIndex(ctx context.Context) error {
	return a.withUnitOfWork(ctx, func(uow interfaces.UnitOfWork) error {
		pool, _, _ := buildServices(uow)
		return pool.UpdateIndex(ctx)
	})
}

// PoolBalance returns the account's total/locked/available pool balance.
func (a *App) PoolBalance(ctx context.Context, account string) (*entities.BalanceInfo, error) {
	var info *entities.BalanceInfo
	err := a.withUnitOfWork(ctx, func(uow interfaces.UnitOfWork) error {
		pool, _, _ := buildServices(uow)
		var err error
		info, err = pool.BalanceInfo(ctx, account)
		return err
	})
	return info, err
}

// PoolStats is a read-only snapshot of the pool ledger.
type PoolStats struct {
	Index         int64 `json:"index"`
	TotalSupply   int64 `json:"total_supply"`
	TotalBorrowed int64 `json:"total_borrowed"`
	Utilization   int64 `json:"utilization_bps"`
}

// GetPoolStats returns a snapshot of the pool ledger.
func (a *App) GetPoolStats(ctx context.Context) (*PoolStats, error) {
	var stats *PoolStats
	err := a.withUnitOfWork(ctx, func(uow interfaces.UnitOfWork) error {
		pool, _, _ := buildServices(uow)

		state, err := uow.PoolRepository().GetState(ctx)
		if err != nil {
			return err
		}
		total, err := pool.TotalSupply(ctx)
		if err != nil {
			return err
		}
		utilization, err := pool.UtilizationRatio(ctx)
		if err != nil {
			return err
		}

		stats = &PoolStats{
			Index:         state.Index,
			TotalSupply:   total,
			TotalBorrowed: state.Borrowed,
			Utilization:   utilization,
		}
		return nil
	})
	return stats, err
}

// EnrollMerchant registers an account as a pending merchant.
func (a *App) EnrollMerchant(ctx context.Context, account, infoID string) (*entities.Merchant, error) {
	var merchant *entities.Merchant
	err := a.withUnitOfWork(ctx, func(uow interfaces.UnitOfWork) error {
		_, _, merchants := buildServices(uow)
		var err error
		merchant, err = merchants.Enroll(ctx, account, infoID)
		return err
	})
	return merchant, err
}

// UpdateMerchantStatus changes a merchant's status. Admin only.
func (a *App) UpdateMerchantStatus(ctx context.Context, admin, account string, status entities.MerchantStatus) error {
	return a.withUnitOfWork(ctx, func(uow interfaces.UnitOfWork) error {
		_, _, merchants := buildServices(uow)
		return merchants.UpdateStatus(ctx, admin, account, status)
	})
}

// GetMerchant returns the merchant record for an account.
func (a *App) GetMerchant(ctx context.Context, account string) (*entities.Merchant, error) {
	var merchant *entities.Merchant
	err := a.withUnitOfWork(ctx, func(uow interfaces.UnitOfWork) error {
		_, _, merchants := buildServices(uow)
		var err error
		merchant, err = merchants.Get(ctx, account)
		return err
	})
	return merchant, err
}

// CreateBill issues a bill for an approved merchant. Returns the bill ID.
func (a *App) CreateBill(ctx context.Context, merchant, user string, amount int64, orderRef string) (int64, error) {
	var billID int64
	err := a.withUnitOfWork(ctx, func(uow interfaces.UnitOfWork) error {
		_, billing, _ := buildServices(uow)
		var err error
		billID, err = billing.CreateBill(ctx, merchant, user, amount, orderRef)
		return err
	})
	return billID, err
}

// PayBill settles a created bill with pool credit.
func (a *App) PayBill(ctx context.Context, billID int64, caller string) error {
	return a.withUnitOfWork(ctx, func(uow interfaces.UnitOfWork) error {
		_, billing, _ := buildServices(uow)
		return billing.PayBill(ctx, billID, caller)
	})
}

// RepayBill repays principal plus accrued late fee.
func (a *App) RepayBill(ctx context.Context, billID int64, caller string) error {
	return a.withUnitOfWork(ctx, func(uow interfaces.UnitOfWork) error {
		_, billing, _ := buildServices(uow)
		return billing.RepayBill(ctx, billID, caller)
	})
}

// LiquidateBill force-closes a delinquent bill against the user's pool
// collateral.
func (a *App) LiquidateBill(ctx context.Context, billID int64, liquidator string) error {
	return a.withUnitOfWork(ctx, func(uow interfaces.UnitOfWork) error {
		_, billing, _ := buildServices(uow)
		return billing.LiquidateBill(ctx, billID, liquidator)
	})
}

// GetBill returns a bill by ID.
func (a *App) GetBill(ctx context.Context, billID int64) (*entities.Bill, error) {
	var bill *entities.Bill
	err := a.withUnitOfWork(ctx, func(uow interfaces.UnitOfWork) error {
		_, billing, _ := buildServices(uow)
		var err error
		bill, err = billing.GetBill(ctx, billID)
		return err
	})
	return bill, err
}

// GetBorrowingPower returns the user's derived credit view.
func (a *App) GetBorrowingPower(ctx context.Context, user string) (*entities.BorrowingPower, error) {
	var power *entities.BorrowingPower
	err := a.withUnitOfWork(ctx, func(uow interfaces.UnitOfWork) error {
		_, billing, _ := buildServices(uow)
		var err error
		power, err = billing.BorrowingPower(ctx, user)
		return err
	})
	return power, err
}

// ExpireBills moves created bills past their issuance window to expired.
func (a *App) ExpireBills(ctx context.Context) (int, error) {
	var count int
	err := a.withUnitOfWork(ctx, func(uow interfaces.UnitOfWork) error {
		_, billing, _ := buildServices(uow)
		var err error
		count, err = billing.ExpireBills(ctx)
		return err
	})
	return count, err
}

// MarkOverdueBills moves paid bills past the grace period to overdue.
func (a *App) MarkOverdueBills(ctx context.Context) (int, error) {
	var count int
	err := a.withUnitOfWork(ctx, func(uow interfaces.UnitOfWork) error {
		_, billing, _ := buildServices(uow)
		var err error
		count, err = billing.MarkOverdueBills(ctx)
		return err
	})
	return count, err
}
