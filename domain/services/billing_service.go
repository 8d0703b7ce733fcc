package services

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/lumenlater/lumen-later/domain/entities"
	"github.com/lumenlater/lumen-later/domain/events"
	"github.com/lumenlater/lumen-later/domain/interfaces"
	"github.com/lumenlater/lumen-later/domain/utils"
)

type billingService struct {
	bills     interfaces.BillRepository
	merchants interfaces.MerchantRepository
	config    interfaces.ConfigRepository
	pool      interfaces.PoolService
	assets    interfaces.AssetLedger
	publisher interfaces.EventPublisher
	now       func() time.Time
}

// NewBillingService creates the credit ledger. It registers itself as the
// pool ledger's collateral oracle so withdrawals respect open debt.
func NewBillingService(
	bills interfaces.BillRepository,
	merchants interfaces.MerchantRepository,
	config interfaces.ConfigRepository,
	pool interfaces.PoolService,
	assets interfaces.AssetLedger,
	publisher interfaces.EventPublisher,
) interfaces.BillingService {
	s := &billingService{
		bills:     bills,
		merchants: merchants,
		config:    config,
		pool:      pool,
		assets:    assets,
		publisher: publisher,
		now:       time.Now,
	}
	pool.SetCollateralOracle(s)
	return s
}

// CreateBill issues a bill on behalf of an approved merchant. The bill
// starts in the created state and must be paid within the issuance window.
func (s *billingService) CreateBill(ctx context.Context, merchant, user string, amount int64, orderRef string) (int64, error) {
	m, err := s.merchants.GetByAccount(ctx, merchant)
	if err != nil {
		return 0, fmt.Errorf("failed to get merchant: %w", err)
	}
	if m == nil || !m.IsApproved() {
		return 0, entities.ErrMerchantNotApproved
	}
	if amount <= 0 {
		return 0, entities.ErrInvalidAmount
	}

	bill := &entities.Bill{
		Merchant:  merchant,
		User:      user,
		Principal: amount,
		Status:    entities.BillStatusCreated,
		OrderRef:  orderRef,
		CreatedAt: s.now(),
	}
	if err := s.bills.Create(ctx, bill); err != nil {
		return 0, fmt.Errorf("failed to create bill: %w", err)
	}

	if err := s.publisher.Publish(events.BillCreatedEvent{
		BillID:    bill.ID,
		Merchant:  merchant,
		User:      user,
		Amount:    amount,
		OrderRef:  orderRef,
		CreatedAt: bill.CreatedAt,
	}); err != nil {
		return 0, fmt.Errorf("failed to publish bill created event: %w", err)
	}

	return bill.ID, nil
}

// PayBill settles a created bill with pool credit: the pool lends the
// principal, the merchant receives principal minus the merchant fee, and the
// fee is distributed. The user's pool balance backs the new debt.
func (s *billingService) PayBill(ctx context.Context, billID int64, caller string) error {
	bill, err := s.bills.GetByID(ctx, billID)
	if err != nil {
		return fmt.Errorf("failed to get bill: %w", err)
	}
	if bill == nil {
		return entities.ErrBillNotFound
	}
	if caller != bill.User {
		return entities.ErrUnauthorized
	}
	if bill.Status != entities.BillStatusCreated {
		return entities.ErrBillNotPayable
	}

	now := s.now()
	if now.After(bill.ExpiresAt()) {
		return entities.ErrBillExpired
	}

	power, err := s.BorrowingPower(ctx, bill.User)
	if err != nil {
		return err
	}
	if power.AvailableBorrowing < bill.Principal {
		return fmt.Errorf("principal %d exceeds available borrowing %d: %w",
			bill.Principal, power.AvailableBorrowing, entities.ErrInsufficientCollateral)
	}

	merchantFee := utils.MulDiv(bill.Principal, entities.MerchantFeeRate, entities.RateScale)

	if err := s.pool.Borrow(ctx, bill.Principal); err != nil {
		return fmt.Errorf("failed to borrow from pool: %w", err)
	}
	if err := s.assets.Transfer(ctx, entities.CoreAccount, bill.Merchant, bill.Principal-merchantFee); err != nil {
		return fmt.Errorf("failed to pay merchant: %w", err)
	}
	if err := s.distributeFees(ctx, merchantFee); err != nil {
		return err
	}

	bill.Status = entities.BillStatusPaid
	bill.PaidAt = &now
	if err := s.bills.Update(ctx, bill); err != nil {
		return fmt.Errorf("failed to update bill: %w", err)
	}

	return s.publisher.Publish(events.PaymentCompletedEvent{
		BillID:      bill.ID,
		User:        bill.User,
		Merchant:    bill.Merchant,
		Principal:   bill.Principal,
		MerchantFee: merchantFee,
	})
}

// RepayBill collects principal plus accrued late fee from the user, settles
// the pool loan book, and distributes the late fee.
func (s *billingService) RepayBill(ctx context.Context, billID int64, caller string) error {
	bill, err := s.bills.GetByID(ctx, billID)
	if err != nil {
		return fmt.Errorf("failed to get bill: %w", err)
	}
	if bill == nil {
		return entities.ErrBillNotFound
	}
	if caller != bill.User {
		return entities.ErrUnauthorized
	}
	if !bill.IsOpen() {
		return entities.ErrBillNotPaid
	}

	lateFee := s.lateFee(bill, s.now())

	if err := s.assets.Transfer(ctx, bill.User, entities.CoreAccount, bill.Principal+lateFee); err != nil {
		return fmt.Errorf("failed to collect repayment: %w", err)
	}
	if _, err := s.pool.Repay(ctx, bill.Principal); err != nil {
		return fmt.Errorf("failed to repay pool: %w", err)
	}
	if err := s.distributeFees(ctx, lateFee); err != nil {
		return err
	}

	bill.Status = entities.BillStatusRepaid
	if err := s.bills.Update(ctx, bill); err != nil {
		return fmt.Errorf("failed to update bill: %w", err)
	}

	return s.publisher.Publish(events.RepaymentCompletedEvent{
		BillID:    bill.ID,
		User:      bill.User,
		Principal: bill.Principal,
		LateFee:   lateFee,
		Timestamp: s.now(),
	})
}

// LiquidateBill force-closes a delinquent bill: the user's pool shares are
// burned to cover principal, late fee, and penalty. Half the penalty rewards
// the liquidator; the rest joins the regular fee distribution. Any pool
// share holder may liquidate once the threshold has passed.
func (s *billingService) LiquidateBill(ctx context.Context, billID int64, liquidator string) error {
	liquidatorBalance, err := s.pool.Balance(ctx, liquidator)
	if err != nil {
		return fmt.Errorf("failed to check liquidator balance: %w", err)
	}
	if liquidatorBalance == 0 {
		return entities.ErrNotPoolShareHolder
	}

	bill, err := s.bills.GetByID(ctx, billID)
	if err != nil {
		return fmt.Errorf("failed to get bill: %w", err)
	}
	if bill == nil {
		return entities.ErrBillNotFound
	}
	if s.now().Before(bill.LiquidatableAt()) {
		return entities.ErrGracePeriodNotExpired
	}
	if !bill.IsOpen() {
		return entities.ErrLiquidationNotPossible
	}

	lateFee := s.lateFee(bill, s.now())
	penalty := utils.MulDiv(bill.Principal, entities.LiquidationPenaltyRate, entities.RateScale)

	if err := s.pool.RepayWithBurn(ctx, bill.User, bill.Principal, lateFee+penalty); err != nil {
		return err
	}
	if err := s.assets.Transfer(ctx, entities.CoreAccount, liquidator, penalty/2); err != nil {
		return fmt.Errorf("failed to reward liquidator: %w", err)
	}
	if err := s.distributeFees(ctx, penalty/2+lateFee); err != nil {
		return err
	}

	bill.Status = entities.BillStatusLiquidated
	if err := s.bills.Update(ctx, bill); err != nil {
		return fmt.Errorf("failed to update bill: %w", err)
	}

	return s.publisher.Publish(events.BillLiquidatedEvent{
		BillID:          bill.ID,
		Liquidator:      liquidator,
		User:            bill.User,
		TotalLiquidated: bill.Principal + lateFee + penalty,
	})
}

// GetBill returns a bill by ID.
func (s *billingService) GetBill(ctx context.Context, billID int64) (*entities.Bill, error) {
	bill, err := s.bills.GetByID(ctx, billID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}
	if bill == nil {
		return nil, entities.ErrBillNotFound
	}
	return bill, nil
}

// UserDebt sums outstanding principal and accrued late fees over the user's
// open bills.
func (s *billingService) UserDebt(ctx context.Context, user string) (int64, int64, error) {
	bills, err := s.bills.GetOpenByUser(ctx, user)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get open bills: %w", err)
	}

	now := s.now()
	var principal, interest int64
	for _, bill := range bills {
		principal += bill.Principal
		interest += s.lateFee(bill, now)
	}
	return principal, interest, nil
}

// RequiredCollateral is the collateral oracle consumed by the pool ledger:
// 111% of the user's current debt stays locked.
func (s *billingService) RequiredCollateral(ctx context.Context, user string) (int64, error) {
	principal, interest, err := s.UserDebt(ctx, user)
	if err != nil {
		return 0, err
	}
	return utils.MulDiv(principal+interest, entities.CollateralRatio, entities.RateScale), nil
}

// BorrowingPower computes the user's derived credit view against their pool
// balance.
func (s *billingService) BorrowingPower(ctx context.Context, user string) (*entities.BorrowingPower, error) {
	balance, err := s.pool.Balance(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to get pool balance: %w", err)
	}

	principal, interest, err := s.UserDebt(ctx, user)
	if err != nil {
		return nil, err
	}
	debt := principal + interest

	maxBorrowing := utils.MulDiv(balance, entities.MaxLTV, entities.RateScale)

	health := entities.HealthFactorMax
	if debt > 0 {
		health = utils.MulDiv(maxBorrowing, entities.RateScale, debt)
	}

	return &entities.BorrowingPower{
		PoolBalance:        balance,
		MaxBorrowing:       maxBorrowing,
		CurrentBorrowed:    principal,
		CurrentDebt:        debt,
		AvailableBorrowing: utils.Clamp0(maxBorrowing - debt),
		RequiredCollateral: utils.MulDiv(debt, entities.CollateralRatio, entities.RateScale),
		HealthFactor:       health,
	}, nil
}

// ExpireBills transitions created bills past their issuance window to
// expired.
func (s *billingService) ExpireBills(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-entities.BillDuration)
	bills, err := s.bills.GetCreatedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list expirable bills: %w", err)
	}

	for _, bill := range bills {
		bill.Status = entities.BillStatusExpired
		if err := s.bills.Update(ctx, bill); err != nil {
			return 0, fmt.Errorf("failed to expire bill %d: %w", bill.ID, err)
		}
		if err := s.publisher.Publish(events.BillExpiredEvent{BillID: bill.ID, User: bill.User}); err != nil {
			return 0, err
		}
	}

	if len(bills) > 0 {
		log.WithField("count", len(bills)).Info("Expired unpaid bills")
	}
	return len(bills), nil
}

// MarkOverdueBills transitions paid bills past the grace period to overdue.
func (s *billingService) MarkOverdueBills(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-entities.GracePeriod)
	bills, err := s.bills.GetPaidBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list overdue candidates: %w", err)
	}

	for _, bill := range bills {
		bill.Status = entities.BillStatusOverdue
		if err := s.bills.Update(ctx, bill); err != nil {
			return 0, fmt.Errorf("failed to mark bill %d overdue: %w", bill.ID, err)
		}
		if err := s.publisher.Publish(events.BillOverdueEvent{BillID: bill.ID, User: bill.User}); err != nil {
			return 0, err
		}
	}

	if len(bills) > 0 {
		log.WithField("count", len(bills)).Info("Marked bills overdue")
	}
	return len(bills), nil
}

// lateFee computes simple interest on principal past the grace period. The
// reference time is paid_at everywhere fees are computed; only expiry and
// liquidation eligibility run off creation time. Elapsed time counts in
// whole days, so the fee is zero at the exact boundary and steps up per day.
func (s *billingService) lateFee(bill *entities.Bill, at time.Time) int64 {
	if bill.PaidAt == nil {
		return 0
	}
	graceEnd := bill.PaidAt.Add(entities.GracePeriod)
	if !at.After(graceEnd) {
		return 0
	}

	daysOverdue := int64(at.Sub(graceEnd) / (24 * time.Hour))
	return utils.MulDiv(bill.Principal, entities.LateInterestAPR*daysOverdue, 365*entities.RateScale)
}

// distributeFees splits a collected fee 70/20/10 between the pool, the
// treasury, and the insurance fund. The pool's share is yield: the index is
// refreshed immediately so it reaches all holders.
func (s *billingService) distributeFees(ctx context.Context, amount int64) error {
	if amount <= 0 {
		return nil
	}

	cfg, err := s.config.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to load protocol config: %w", err)
	}
	if cfg == nil {
		return entities.ErrNotInitialized
	}

	treasuryCut := utils.MulDiv(amount, entities.FeeToTreasuryRatio, entities.RateScale)
	insuranceCut := utils.MulDiv(amount, entities.FeeToInsuranceRatio, entities.RateScale)
	poolCut := utils.MulDiv(amount, entities.FeeToPoolRatio, entities.RateScale)

	if err := s.assets.Transfer(ctx, entities.CoreAccount, cfg.Treasury, treasuryCut); err != nil {
		return fmt.Errorf("failed to pay treasury: %w", err)
	}
	if err := s.assets.Transfer(ctx, entities.CoreAccount, cfg.InsuranceFund, insuranceCut); err != nil {
		return fmt.Errorf("failed to pay insurance fund: %w", err)
	}
	if poolCut > 0 {
		if err := s.assets.Transfer(ctx, entities.CoreAccount, entities.PoolAccount, poolCut); err != nil {
			return fmt.Errorf("failed to pay pool yield: %w", err)
		}
		if err := s.pool.UpdateIndex(ctx); err != nil {
			return err
		}
	}

	return nil
}
