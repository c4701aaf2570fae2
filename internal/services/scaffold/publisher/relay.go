package publisher

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/skafu/skafu/internal/services/scaffold/domain/event"
)

const (
	defaultRelayInterval  = 2 * time.Second
	defaultRelayBatchSize = 32
)

// Outbox drains due publish work from the journal store.
type Outbox interface {
	ProcessPublishOutbox(ctx context.Context, now time.Time, limit int, publish func(context.Context, event.Event) error) (int, error)
}

// Relay moves appended events from the durable outbox to the bus.
//
// Delivery is at-least-once: publish failures stay in the outbox for retry,
// so subscribers must dedupe on event id.
type Relay struct {
	Outbox    Outbox
	Bus       Bus
	Interval  time.Duration
	BatchSize int
	Now       func() time.Time
}

// Drain runs one outbox pass and returns the number of rows processed.
func (r Relay) Drain(ctx context.Context) (int, error) {
	if r.Outbox == nil {
		return 0, fmt.Errorf("outbox is required")
	}
	if r.Bus == nil {
		return 0, fmt.Errorf("bus is required")
	}
	batch := r.BatchSize
	if batch <= 0 {
		batch = defaultRelayBatchSize
	}
	now := time.Now().UTC()
	if r.Now != nil {
		now = r.Now()
	}
	return r.Outbox.ProcessPublishOutbox(ctx, now, batch, func(ctx context.Context, evt event.Event) error {
		return r.Bus.Publish(ctx, NewEnvelope(evt))
	})
}

// Run drains the outbox on an interval until the context is canceled.
// Drain errors are logged and the loop keeps going; the outbox holds the
// undelivered rows.
func (r Relay) Run(ctx context.Context) error {
	interval := r.Interval
	if interval <= 0 {
		interval = defaultRelayInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.Drain(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Printf("publisher: drain outbox: %v", err)
			}
		}
	}
}
