package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/skafu/skafu/internal/services/scaffold/domain/event"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	registry := NewRegistry()
	if err := registry.Register(Definition{Type: "project.create", Origin: OriginUser}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register(Definition{Type: "deployment.complete", Origin: OriginCollaborator}); err != nil {
		t.Fatalf("register: %v", err)
	}
	return registry
}

func TestRegisterRejectsInvalidOrigin(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(Definition{Type: "project.create"}); err == nil {
		t.Fatal("expected origin validation error")
	}
}

func TestValidateForDecisionRequiresProjectID(t *testing.T) {
	registry := testRegistry(t)
	_, err := registry.ValidateForDecision(Command{Type: "project.create", ActorID: "user-1"})
	if !errors.Is(err, ErrProjectIDRequired) {
		t.Fatalf("expected ErrProjectIDRequired, got %v", err)
	}
}

func TestValidateForDecisionRequiresActorForUserCommands(t *testing.T) {
	registry := testRegistry(t)
	_, err := registry.ValidateForDecision(Command{ProjectID: "proj-1", Type: "project.create"})
	if !errors.Is(err, ErrActorIDRequired) {
		t.Fatalf("expected ErrActorIDRequired, got %v", err)
	}

	// Collaborator commands carry no user actor.
	_, err = registry.ValidateForDecision(Command{ProjectID: "proj-1", Type: "deployment.complete"})
	if err != nil {
		t.Fatalf("expected collaborator command to pass, got %v", err)
	}
}

func TestValidateForDecisionRejectsUnknownType(t *testing.T) {
	registry := testRegistry(t)
	_, err := registry.ValidateForDecision(Command{ProjectID: "proj-1", Type: "project.explode"})
	if !errors.Is(err, ErrTypeUnknown) {
		t.Fatalf("expected ErrTypeUnknown, got %v", err)
	}
}

func TestValidateForDecisionDefaultsPayload(t *testing.T) {
	registry := testRegistry(t)
	cmd, err := registry.ValidateForDecision(Command{ProjectID: "proj-1", Type: "project.create", ActorID: "user-1"})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if string(cmd.PayloadJSON) != "{}" {
		t.Fatalf("expected payload default, got %s", cmd.PayloadJSON)
	}
}

func TestValidateForDecisionRunsPayloadValidator(t *testing.T) {
	registry := NewRegistry()
	err := registry.Register(Definition{
		Type:   "service.add",
		Origin: OriginUser,
		ValidatePayload: func(raw json.RawMessage) error {
			var payload struct {
				Name string `json:"name"`
			}
			if err := json.Unmarshal(raw, &payload); err != nil {
				return err
			}
			if payload.Name == "" {
				return fmt.Errorf("name is required")
			}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err = registry.ValidateForDecision(Command{
		ProjectID:   "proj-1",
		Type:        "service.add",
		ActorID:     "user-1",
		PayloadJSON: []byte(`{}`),
	})
	if err == nil {
		t.Fatal("expected payload validation error")
	}
}

func TestNewEventCopiesEnvelope(t *testing.T) {
	cmd := Command{
		ProjectID:     "proj-1",
		Type:          "service.add",
		ActorID:       "user-1",
		RequestID:     "req-1",
		CorrelationID: "corr-1",
		CausationID:   "cause-1",
	}
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	evt := NewEvent(cmd, event.TypeServiceAdded, "service", "svc-1", []byte(`{"name":"api"}`), now)

	if evt.ProjectID != "proj-1" || evt.ActorID != "user-1" {
		t.Fatal("expected envelope fields copied from command")
	}
	if evt.CorrelationID != "corr-1" || evt.CausationID != "cause-1" || evt.RequestID != "req-1" {
		t.Fatal("expected correlation metadata copied from command")
	}
	if evt.EntityType != "service" || evt.EntityID != "svc-1" {
		t.Fatal("expected entity addressing set")
	}
	if evt.SchemaVersion != event.SchemaVersion {
		t.Fatalf("expected schema version stamped, got %q", evt.SchemaVersion)
	}
	if !evt.Timestamp.Equal(now) {
		t.Fatal("expected timestamp set")
	}
}
