// Package audit records operational audit events.
package audit

import (
	"context"
	"time"

	"github.com/skafu/skafu/internal/services/scaffold/storage"
)

// Emitter records operational audit events.
type Emitter struct {
	store storage.AuditStore
	clock func() time.Time
}

// NewEmitter creates a new audit event emitter.
func NewEmitter(store storage.AuditStore) *Emitter {
	return &Emitter{store: store, clock: time.Now}
}

// Emit records an audit event. It is a no-op when the store is nil.
func (e *Emitter) Emit(ctx context.Context, entry storage.AuditEvent) error {
	if e == nil || e.store == nil {
		return nil
	}
	if entry.Timestamp.IsZero() {
		if e.clock == nil {
			entry.Timestamp = time.Now().UTC()
		} else {
			entry.Timestamp = e.clock().UTC()
		}
	}
	return e.store.PutAuditEvent(ctx, entry)
}
