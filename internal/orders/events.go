package orders

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"
)

// Event is emitted whenever an order changes state. Subscribers get the full
// order view so they never need a follow-up read.
type Event struct {
	Type       string    `json:"type"`
	OrderID    int64     `json:"order_id"`
	Status     Status    `json:"status"`
	Order      OrderView `json:"order"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Event types.
const (
	EventOrderCreated   = "order.created"
	EventOrderFailed    = "order.failed"
	EventOrderCancelled = "order.cancelled"
)

// EventPublisher delivers order events to interested parties. Publishing is
// best-effort from the workflow's point of view; a failed publish never
// fails the order.
type EventPublisher interface {
	Publish(ev Event) error
}

// FanoutPublisher delivers every event to each wrapped publisher and joins
// their errors.
type FanoutPublisher []EventPublisher

func (f FanoutPublisher) Publish(ev Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogPublisher writes events to a log function.
type LogPublisher struct {
	Logf func(format string, args ...any)
}

func (l LogPublisher) Publish(ev Event) error {
	logf := l.Logf
	if logf == nil {
		logf = log.Printf
	}
	logf("order event %s: order=%d status=%s", ev.Type, ev.OrderID, ev.Status)
	return nil
}

// BroadcastPublisher encodes events as JSON and pushes them onto a channel,
// typically a realtime hub's broadcast input. A full channel drops the event
// rather than blocking order processing.
type BroadcastPublisher struct {
	Ch chan<- []byte
}

func (b BroadcastPublisher) Publish(ev Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	select {
	case b.Ch <- raw:
		return nil
	default:
		return fmt.Errorf("broadcast channel full, dropped %s for order %d", ev.Type, ev.OrderID)
	}
}
