package infrastructure

import (
	"fmt"

	"github.com/lumenlater/lumen-later/domain/events"
)

// EventSubjectMapper handles mapping between domain events and NATS subjects.
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper.
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts a domain event to its corresponding NATS
// subject.
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	switch event.Type() {
	case events.EventTypeProtocolInitialized:
		return "protocol.initialized"
	case events.EventTypeMerchantEnrolled:
		return "merchants.enrolled"
	case events.EventTypeMerchantStatusUpdated:
		return "merchants.status_updated"
	case events.EventTypeBillCreated:
		return "bills.created"
	case events.EventTypeBillExpired:
		return "bills.expired"
	case events.EventTypeBillOverdue:
		return "bills.overdue"
	case events.EventTypePaymentCompleted:
		return "bills.payment_completed"
	case events.EventTypeRepaymentCompleted:
		return "bills.repayment_completed"
	case events.EventTypeBillLiquidated:
		return "bills.liquidated"
	case events.EventTypePoolDeposit:
		return "pool.deposited"
	case events.EventTypePoolWithdraw:
		return "pool.withdrawn"
	case events.EventTypePoolBorrow:
		return "pool.borrowed"
	case events.EventTypePoolRepay:
		return "pool.repaid"
	case events.EventTypePoolLiquidationBurn:
		return "pool.liquidation_burned"
	case events.EventTypePoolIndexUpdated:
		return "pool.index_updated"
	default:
		return fmt.Sprintf("unknown.%s", event.Type())
	}
}

// GetAllSubjects returns all subjects that this service publishes to.
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{
		"protocol.initialized",
		"merchants.enrolled",
		"merchants.status_updated",
		"bills.created",
		"bills.expired",
		"bills.overdue",
		"bills.payment_completed",
		"bills.repayment_completed",
		"bills.liquidated",
		"pool.deposited",
		"pool.withdrawn",
		"pool.borrowed",
		"pool.repaid",
		"pool.liquidation_burned",
		"pool.index_updated",
	}
}
