package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	registry := NewRegistry()
	if err := registry.Register(Definition{Type: TypeProjectCreated, EntityType: "project"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	return registry
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	registry := testRegistry(t)
	err := registry.Register(Definition{Type: TypeProjectCreated})
	if err == nil {
		t.Fatal("expected duplicate registration error")
	}
}

func TestValidateForAppendRequiresProjectID(t *testing.T) {
	registry := testRegistry(t)
	_, err := registry.ValidateForAppend(Event{Type: TypeProjectCreated, Timestamp: time.Now()})
	if !errors.Is(err, ErrProjectIDRequired) {
		t.Fatalf("expected ErrProjectIDRequired, got %v", err)
	}
}

func TestValidateForAppendRejectsUnknownType(t *testing.T) {
	registry := testRegistry(t)
	_, err := registry.ValidateForAppend(Event{
		ProjectID: "proj-1",
		Type:      Type("project.exploded"),
		Timestamp: time.Now(),
	})
	if !errors.Is(err, ErrTypeUnknown) {
		t.Fatalf("expected ErrTypeUnknown, got %v", err)
	}
}

func TestValidateForAppendDefaults(t *testing.T) {
	registry := testRegistry(t)
	evt, err := registry.ValidateForAppend(Event{
		ProjectID: "proj-1",
		Type:      TypeProjectCreated,
		Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if evt.SchemaVersion != SchemaVersion {
		t.Fatalf("expected default schema version, got %q", evt.SchemaVersion)
	}
	if evt.EntityType != "project" {
		t.Fatalf("expected entity type from definition, got %q", evt.EntityType)
	}
	if string(evt.PayloadJSON) != "{}" {
		t.Fatalf("expected empty payload default, got %s", evt.PayloadJSON)
	}
}

func TestValidateForAppendRunsPayloadValidator(t *testing.T) {
	registry := NewRegistry()
	err := registry.Register(Definition{
		Type: TypeServiceAdded,
		ValidatePayload: func(raw json.RawMessage) error {
			var payload struct {
				ServiceID string `json:"service_id"`
			}
			if err := json.Unmarshal(raw, &payload); err != nil {
				return err
			}
			if payload.ServiceID == "" {
				return fmt.Errorf("service_id is required")
			}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err = registry.ValidateForAppend(Event{
		ProjectID:   "proj-1",
		Type:        TypeServiceAdded,
		Timestamp:   time.Now(),
		PayloadJSON: []byte(`{}`),
	})
	if err == nil {
		t.Fatal("expected payload validation error")
	}
}

func TestTypeDomain(t *testing.T) {
	if got := TypeServiceAdded.Domain(); got != "service" {
		t.Fatalf("expected service, got %s", got)
	}
	if got := Type("plain").Domain(); got != "plain" {
		t.Fatalf("expected plain, got %s", got)
	}
}
