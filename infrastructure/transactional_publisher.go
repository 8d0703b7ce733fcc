package infrastructure

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/lumenlater/lumen-later/domain/events"
	"github.com/lumenlater/lumen-later/domain/interfaces"
)

// TransactionalPublisher holds events until flush, then forwards them to the
// real publisher. Units of work flush on commit and discard on rollback so
// downstream consumers never see events from aborted operations.
type TransactionalPublisher struct {
	realPublisher interfaces.EventPublisher
	pending       []events.Event
}

// NewTransactionalPublisher creates a new transactional publisher.
func NewTransactionalPublisher(realPublisher interfaces.EventPublisher) *TransactionalPublisher {
	return &TransactionalPublisher{
		realPublisher: realPublisher,
		pending:       make([]events.Event, 0),
	}
}

// Publish stores an event in the pending queue without publishing it.
func (p *TransactionalPublisher) Publish(event events.Event) error {
	p.pending = append(p.pending, event)
	return nil
}

// Flush forwards all pending events to the real publisher. A failing event is
// logged and skipped so one bad event does not block the rest.
func (p *TransactionalPublisher) Flush(ctx context.Context) error {
	for _, event := range p.pending {
		if err := p.realPublisher.Publish(event); err != nil {
			log.WithFields(log.Fields{
				"eventType": event.Type(),
				"error":     err,
			}).Error("Failed to publish event during flush")
		}
	}
	p.pending = p.pending[:0]
	return nil
}

// Discard clears all pending events without publishing them.
func (p *TransactionalPublisher) Discard() {
	if len(p.pending) > 0 {
		log.WithField("discardedEventCount", len(p.pending)).Debug("Discarding pending events")
	}
	p.pending = p.pending[:0]
}

// NoopPublisher drops all events. Used when no message bus is configured.
type NoopPublisher struct{}

// Publish discards the event.
func (NoopPublisher) Publish(event events.Event) error {
	log.WithField("eventType", event.Type()).Debug("Event bus disabled, dropping event")
	return nil
}
