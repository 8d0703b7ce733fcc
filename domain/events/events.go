package events

import (
	"time"

	"github.com/lumenlater/lumen-later/domain/entities"
)

// EventType identifies the kind of a domain event.
type EventType string

const (
	EventTypeProtocolInitialized    EventType = "protocol_initialized"
	EventTypeMerchantEnrolled       EventType = "merchant_enrolled"
	EventTypeMerchantStatusUpdated  EventType = "merchant_status_updated"
	EventTypeBillCreated            EventType = "bill_created"
	EventTypeBillExpired            EventType = "bill_expired"
	EventTypeBillOverdue            EventType = "bill_overdue"
	EventTypePaymentCompleted       EventType = "payment_completed"
	EventTypeRepaymentCompleted     EventType = "repayment_completed"
	EventTypeBillLiquidated         EventType = "bill_liquidated"
	EventTypePoolDeposit            EventType = "pool_deposit"
	EventTypePoolWithdraw           EventType = "pool_withdraw"
	EventTypePoolBorrow             EventType = "pool_borrow"
	EventTypePoolRepay              EventType = "pool_repay"
	EventTypePoolLiquidationBurn    EventType = "pool_liquidation_burn"
	EventTypePoolIndexUpdated       EventType = "pool_index_updated"
)

// Event is the base interface for all events published by the ledgers.
// Events are fire-and-forget: the core never reads them back.
type Event interface {
	Type() EventType
}

// ProtocolInitializedEvent is published once when the protocol config is set.
type ProtocolInitializedEvent struct {
	Admin         string `json:"admin"`
	Treasury      string `json:"treasury"`
	InsuranceFund string `json:"insurance_fund"`
}

func (e ProtocolInitializedEvent) Type() EventType { return EventTypeProtocolInitialized }

// MerchantEnrolledEvent is published when a merchant enrolls.
type MerchantEnrolledEvent struct {
	Merchant  string    `json:"merchant"`
	InfoID    string    `json:"info_id"`
	Timestamp time.Time `json:"timestamp"`
}

func (e MerchantEnrolledEvent) Type() EventType { return EventTypeMerchantEnrolled }

// MerchantStatusUpdatedEvent is published on an admin status change.
type MerchantStatusUpdatedEvent struct {
	Merchant  string                  `json:"merchant"`
	OldStatus entities.MerchantStatus `json:"old_status"`
	NewStatus entities.MerchantStatus `json:"new_status"`
	Timestamp time.Time               `json:"timestamp"`
}

func (e MerchantStatusUpdatedEvent) Type() EventType { return EventTypeMerchantStatusUpdated }

// BillCreatedEvent is published when a merchant issues a bill.
type BillCreatedEvent struct {
	BillID    int64     `json:"bill_id"`
	Merchant  string    `json:"merchant"`
	User      string    `json:"user"`
	Amount    int64     `json:"amount"`
	OrderRef  string    `json:"order_ref"`
	CreatedAt time.Time `json:"created_at"`
}

func (e BillCreatedEvent) Type() EventType { return EventTypeBillCreated }

// BillExpiredEvent is published by the expiry sweep.
type BillExpiredEvent struct {
	BillID int64  `json:"bill_id"`
	User   string `json:"user"`
}

func (e BillExpiredEvent) Type() EventType { return EventTypeBillExpired }

// BillOverdueEvent is published by the overdue sweep.
type BillOverdueEvent struct {
	BillID int64  `json:"bill_id"`
	User   string `json:"user"`
}

func (e BillOverdueEvent) Type() EventType { return EventTypeBillOverdue }

// PaymentCompletedEvent is published when a bill is paid with credit.
type PaymentCompletedEvent struct {
	BillID      int64  `json:"bill_id"`
	User        string `json:"user"`
	Merchant    string `json:"merchant"`
	Principal   int64  `json:"principal"`
	MerchantFee int64  `json:"merchant_fee"`
}

func (e PaymentCompletedEvent) Type() EventType { return EventTypePaymentCompleted }

// RepaymentCompletedEvent is published when a user repays a bill.
type RepaymentCompletedEvent struct {
	BillID    int64     `json:"bill_id"`
	User      string    `json:"user"`
	Principal int64     `json:"principal"`
	LateFee   int64     `json:"late_fee"`
	Timestamp time.Time `json:"timestamp"`
}

func (e RepaymentCompletedEvent) Type() EventType { return EventTypeRepaymentCompleted }

// BillLiquidatedEvent is published when a delinquent bill is liquidated.
type BillLiquidatedEvent struct {
	BillID          int64  `json:"bill_id"`
	Liquidator      string `json:"liquidator"`
	User            string `json:"user"`
	TotalLiquidated int64  `json:"total_liquidated"`
}

func (e BillLiquidatedEvent) Type() EventType { return EventTypeBillLiquidated }

// PoolDepositEvent is published when a liquidity provider deposits.
type PoolDepositEvent struct {
	Account      string `json:"account"`
	Amount       int64  `json:"amount"`
	SharesMinted int64  `json:"shares_minted"`
}

func (e PoolDepositEvent) Type() EventType { return EventTypePoolDeposit }

// PoolWithdrawEvent is published when a liquidity provider withdraws.
type PoolWithdrawEvent struct {
	Account      string `json:"account"`
	Amount       int64  `json:"amount"`
	SharesBurned int64  `json:"shares_burned"`
}

func (e PoolWithdrawEvent) Type() EventType { return EventTypePoolWithdraw }

// PoolBorrowEvent is published when the credit ledger draws on the pool.
type PoolBorrowEvent struct {
	Amount int64 `json:"amount"`
}

func (e PoolBorrowEvent) Type() EventType { return EventTypePoolBorrow }

// PoolRepayEvent is published when borrowed value is returned to the pool.
type PoolRepayEvent struct {
	Amount int64 `json:"amount"`
}

func (e PoolRepayEvent) Type() EventType { return EventTypePoolRepay }

// PoolLiquidationBurnEvent is published when a delinquent user's shares are
// burned to cover principal and penalty.
type PoolLiquidationBurnEvent struct {
	Account      string `json:"account"`
	AmountBurned int64  `json:"amount_burned"`
	Fee          int64  `json:"fee"`
}

func (e PoolLiquidationBurnEvent) Type() EventType { return EventTypePoolLiquidationBurn }

// PoolIndexUpdatedEvent is published when yield raises the pool index.
type PoolIndexUpdatedEvent struct {
	OldIndex int64 `json:"old_index"`
	NewIndex int64 `json:"new_index"`
}

func (e PoolIndexUpdatedEvent) Type() EventType { return EventTypePoolIndexUpdated }
