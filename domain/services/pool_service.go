package services

import (
	"context"
	"fmt"

	"github.com/lumenlater/lumen-later/domain/entities"
	"github.com/lumenlater/lumen-later/domain/events"
	"github.com/lumenlater/lumen-later/domain/interfaces"
	"github.com/lumenlater/lumen-later/domain/utils"
)

type poolService struct {
	pool      interfaces.PoolRepository
	assets    interfaces.AssetLedger
	publisher interfaces.EventPublisher
	oracle    interfaces.CollateralOracle
}

// NewPoolService creates the pool ledger over the given repositories. The
// collateral oracle is attached afterwards via SetCollateralOracle because
// the pool and credit ledgers reference each other.
func NewPoolService(pool interfaces.PoolRepository, assets interfaces.AssetLedger, publisher interfaces.EventPublisher) interfaces.PoolService {
	return &poolService{
		pool:      pool,
		assets:    assets,
		publisher: publisher,
	}
}

// SetCollateralOracle wires the credit ledger's required-collateral query.
// Without an oracle no balance is considered locked.
func (s *poolService) SetCollateralOracle(oracle interfaces.CollateralOracle) {
	s.oracle = oracle
}

// Deposit pulls amount of settlement asset from the account and credits
// shares at the current index. The index is refreshed first so depositors
// get the post-yield exchange rate.
func (s *poolService) Deposit(ctx context.Context, account string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, entities.ErrInvalidAmount
	}

	if err := s.UpdateIndex(ctx); err != nil {
		return 0, err
	}

	if err := s.assets.Transfer(ctx, account, entities.PoolAccount, amount); err != nil {
		return 0, fmt.Errorf("failed to pull deposit: %w", err)
	}

	state, err := s.pool.GetState(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load pool state: %w", err)
	}

	shares := utils.MulDiv(amount, entities.IndexScale, state.Index)

	current, err := s.pool.GetShares(ctx, account)
	if err != nil {
		return 0, fmt.Errorf("failed to load shares: %w", err)
	}
	if err := s.pool.SetShares(ctx, account, current+shares); err != nil {
		return 0, fmt.Errorf("failed to credit shares: %w", err)
	}

	state.Supply += shares
	if err := s.pool.SaveState(ctx, state); err != nil {
		return 0, fmt.Errorf("failed to save pool state: %w", err)
	}

	if err := s.publisher.Publish(events.PoolDepositEvent{
		Account:      account,
		Amount:       amount,
		SharesMinted: shares,
	}); err != nil {
		return 0, fmt.Errorf("failed to publish deposit event: %w", err)
	}

	return amount, nil
}

// Withdraw burns shares worth amount and returns the settlement asset to the
// account. Only the available (unlocked) part of the balance can leave.
func (s *poolService) Withdraw(ctx context.Context, account string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, entities.ErrInvalidAmount
	}

	info, err := s.BalanceInfo(ctx, account)
	if err != nil {
		return 0, err
	}
	if amount > info.Available {
		return 0, fmt.Errorf("withdraw %d exceeds available %d: %w",
			amount, info.Available, entities.ErrInsufficientAvailableBalance)
	}

	state, err := s.pool.GetState(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load pool state: %w", err)
	}

	shares := utils.MulDiv(amount, entities.IndexScale, state.Index)
	current, err := s.pool.GetShares(ctx, account)
	if err != nil {
		return 0, fmt.Errorf("failed to load shares: %w", err)
	}
	if shares > current {
		return 0, entities.ErrInsufficientShares
	}

	if err := s.pool.SetShares(ctx, account, current-shares); err != nil {
		return 0, fmt.Errorf("failed to debit shares: %w", err)
	}
	state.Supply -= shares
	if err := s.pool.SaveState(ctx, state); err != nil {
		return 0, fmt.Errorf("failed to save pool state: %w", err)
	}

	if err := s.assets.Transfer(ctx, entities.PoolAccount, account, amount); err != nil {
		return 0, fmt.Errorf("failed to push withdrawal: %w", err)
	}

	if err := s.publisher.Publish(events.PoolWithdrawEvent{
		Account:      account,
		Amount:       amount,
		SharesBurned: shares,
	}); err != nil {
		return 0, fmt.Errorf("failed to publish withdraw event: %w", err)
	}

	return amount, nil
}

// UpdateIndex distributes any excess settlement asset held by the pool to
// all share holders by raising the index. Shortfalls never lower it: losses
// are recovered through liquidation burns, not socialized.
func (s *poolService) UpdateIndex(ctx context.Context) error {
	state, err := s.pool.GetState(ctx)
	if err != nil {
		return fmt.Errorf("failed to load pool state: %w", err)
	}
	if state.Supply == 0 {
		return nil
	}

	held, err := s.assets.Balance(ctx, entities.PoolAccount)
	if err != nil {
		return fmt.Errorf("failed to read pool asset balance: %w", err)
	}
	totalAssets := held + state.Borrowed
	if totalAssets <= 0 {
		return nil
	}

	expected := utils.MulDiv(state.Supply, state.Index, entities.IndexScale)
	if totalAssets <= expected {
		return nil
	}

	oldIndex := state.Index
	state.Index = utils.MulDiv(totalAssets, entities.IndexScale, state.Supply)
	if err := s.pool.SaveState(ctx, state); err != nil {
		return fmt.Errorf("failed to save pool state: %w", err)
	}

	return s.publisher.Publish(events.PoolIndexUpdatedEvent{
		OldIndex: oldIndex,
		NewIndex: state.Index,
	})
}

// Borrow lends amount from the pool to the core account and grows the loan
// book. Shares are untouched; UpdateIndex reconciles against Borrowed.
func (s *poolService) Borrow(ctx context.Context, amount int64) error {
	if amount <= 0 {
		return entities.ErrInvalidAmount
	}

	state, err := s.pool.GetState(ctx)
	if err != nil {
		return fmt.Errorf("failed to load pool state: %w", err)
	}
	state.Borrowed += amount
	if err := s.pool.SaveState(ctx, state); err != nil {
		return fmt.Errorf("failed to save pool state: %w", err)
	}

	if err := s.assets.Transfer(ctx, entities.PoolAccount, entities.CoreAccount, amount); err != nil {
		return fmt.Errorf("failed to move borrowed funds: %w", err)
	}

	return s.publisher.Publish(events.PoolBorrowEvent{Amount: amount})
}

// Repay returns up to amount of borrowed value from the core account,
// clamped at the outstanding loan book. Returns the amount applied.
func (s *poolService) Repay(ctx context.Context, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, entities.ErrInvalidAmount
	}

	state, err := s.pool.GetState(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load pool state: %w", err)
	}

	applied := utils.Min(amount, state.Borrowed)
	state.Borrowed -= applied
	if err := s.pool.SaveState(ctx, state); err != nil {
		return 0, fmt.Errorf("failed to save pool state: %w", err)
	}

	if err := s.assets.Transfer(ctx, entities.CoreAccount, entities.PoolAccount, applied); err != nil {
		return 0, fmt.Errorf("failed to move repaid funds: %w", err)
	}

	if err := s.publisher.Publish(events.PoolRepayEvent{Amount: applied}); err != nil {
		return 0, err
	}
	return applied, nil
}

// RepayWithBurn settles a liquidation: shares worth principal+fee are burned
// straight from the delinquent account, the loan book shrinks by the
// principal, and the fee is forwarded to the core account for distribution.
// Other holders' index is unaffected.
func (s *poolService) RepayWithBurn(ctx context.Context, account string, principal, fee int64) error {
	total := principal + fee
	if total <= 0 {
		return entities.ErrInvalidAmount
	}

	state, err := s.pool.GetState(ctx)
	if err != nil {
		return fmt.Errorf("failed to load pool state: %w", err)
	}

	shares := utils.MulDiv(total, entities.IndexScale, state.Index)
	current, err := s.pool.GetShares(ctx, account)
	if err != nil {
		return fmt.Errorf("failed to load shares: %w", err)
	}
	if shares > current {
		return fmt.Errorf("need %d shares, account %s holds %d: %w",
			shares, account, current, entities.ErrInsufficientCollateralForLiquidation)
	}

	if err := s.pool.SetShares(ctx, account, current-shares); err != nil {
		return fmt.Errorf("failed to burn shares: %w", err)
	}
	state.Supply -= shares
	state.Borrowed -= utils.Min(principal, state.Borrowed)
	if err := s.pool.SaveState(ctx, state); err != nil {
		return fmt.Errorf("failed to save pool state: %w", err)
	}

	if fee > 0 {
		if err := s.assets.Transfer(ctx, entities.PoolAccount, entities.CoreAccount, fee); err != nil {
			return fmt.Errorf("failed to forward liquidation fee: %w", err)
		}
	}

	return s.publisher.Publish(events.PoolLiquidationBurnEvent{
		Account:      account,
		AmountBurned: total,
		Fee:          fee,
	})
}

// Balance returns the account's balance in underlying value at the current
// index.
func (s *poolService) Balance(ctx context.Context, account string) (int64, error) {
	state, err := s.pool.GetState(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load pool state: %w", err)
	}
	shares, err := s.pool.GetShares(ctx, account)
	if err != nil {
		return 0, fmt.Errorf("failed to load shares: %w", err)
	}
	return utils.MulDiv(shares, state.Index, entities.IndexScale), nil
}

// BalanceInfo returns the total/locked/available breakdown. Available clamps
// at zero: required collateral may exceed the balance after yield burns.
func (s *poolService) BalanceInfo(ctx context.Context, account string) (*entities.BalanceInfo, error) {
	total, err := s.Balance(ctx, account)
	if err != nil {
		return nil, err
	}

	var locked int64
	if s.oracle != nil {
		locked, err = s.oracle.RequiredCollateral(ctx, account)
		if err != nil {
			return nil, fmt.Errorf("failed to query required collateral: %w", err)
		}
	}

	return &entities.BalanceInfo{
		Total:     total,
		Locked:    locked,
		Available: utils.Clamp0(total - locked),
	}, nil
}

// TotalSupply returns the pool's total underlying value implied by supply
// and index.
func (s *poolService) TotalSupply(ctx context.Context) (int64, error) {
	state, err := s.pool.GetState(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load pool state: %w", err)
	}
	return utils.MulDiv(state.Supply, state.Index, entities.IndexScale), nil
}

// UtilizationRatio returns borrowed over total deposits in basis points.
func (s *poolService) UtilizationRatio(ctx context.Context) (int64, error) {
	state, err := s.pool.GetState(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load pool state: %w", err)
	}
	held, err := s.assets.Balance(ctx, entities.PoolAccount)
	if err != nil {
		return 0, fmt.Errorf("failed to read pool asset balance: %w", err)
	}

	deposits := held + state.Borrowed
	if deposits == 0 {
		return 0, nil
	}
	return utils.MulDiv(state.Borrowed, 10_000, deposits), nil
}
