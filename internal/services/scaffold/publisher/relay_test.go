package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/skafu/skafu/internal/services/scaffold/domain/event"
	"github.com/skafu/skafu/internal/services/scaffold/domain/project"
	"github.com/skafu/skafu/internal/services/scaffold/storage/sqlite"
)

type fakeBus struct {
	envelopes []Envelope
	failWith  error
}

func (b *fakeBus) Publish(_ context.Context, envelope Envelope) error {
	if b.failWith != nil {
		return b.failWith
	}
	b.envelopes = append(b.envelopes, envelope)
	return nil
}

func (b *fakeBus) Close() error { return nil }

func openJournalWithEvent(t *testing.T) *sqlite.Store {
	t.Helper()
	registry, err := project.NewEventRegistry()
	if err != nil {
		t.Fatalf("event registry: %v", err)
	}
	store, err := sqlite.OpenJournal(filepath.Join(t.TempDir(), "journal.db"), registry, sqlite.WithPublishOutboxEnabled(true))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	payload, _ := json.Marshal(project.CreatePayload{Name: "Orders", TemplateID: "tmpl-1"})
	if _, err := store.AppendEvents(context.Background(), "proj-1", 0, []event.Event{{
		ProjectID:   "proj-1",
		Type:        event.TypeProjectCreated,
		ActorID:     "user-1",
		Timestamp:   time.Date(2026, 5, 10, 8, 30, 0, 0, time.UTC),
		PayloadJSON: payload,
	}}); err != nil {
		t.Fatalf("append: %v", err)
	}
	return store
}

func TestDrainPublishesEnvelope(t *testing.T) {
	store := openJournalWithEvent(t)
	bus := &fakeBus{}

	relay := Relay{Outbox: store, Bus: bus}
	processed, err := relay.Drain(context.Background())
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if processed != 1 || len(bus.envelopes) != 1 {
		t.Fatalf("expected one envelope, got %d processed, %d published", processed, len(bus.envelopes))
	}

	envelope := bus.envelopes[0]
	if envelope.Type != string(event.TypeProjectCreated) || envelope.Seq != 1 || envelope.ProjectID != "proj-1" {
		t.Fatalf("unexpected envelope %+v", envelope)
	}
	if envelope.EventID == "" || envelope.SchemaVersion != event.SchemaVersion {
		t.Fatalf("expected envelope identity fields, got %+v", envelope)
	}
}

func TestDrainKeepsFailedRows(t *testing.T) {
	store := openJournalWithEvent(t)
	bus := &fakeBus{failWith: errors.New("broker unavailable")}

	relay := Relay{Outbox: store, Bus: bus}
	if _, err := relay.Drain(context.Background()); err != nil {
		t.Fatalf("drain: %v", err)
	}

	summary, err := store.GetPublishOutboxSummary(context.Background())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.FailedCount != 1 {
		t.Fatalf("expected failed row retained, got %+v", summary)
	}
}

func TestDrainRequiresDependencies(t *testing.T) {
	if _, err := (Relay{Bus: &fakeBus{}}).Drain(context.Background()); err == nil {
		t.Fatal("expected error without outbox")
	}
	if _, err := (Relay{Outbox: openJournalWithEvent(t)}).Drain(context.Background()); err == nil {
		t.Fatal("expected error without bus")
	}
}
