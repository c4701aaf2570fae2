package project

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/skafu/skafu/internal/services/scaffold/domain/command"
	"github.com/skafu/skafu/internal/services/scaffold/domain/event"
)

func fixedNow() time.Time {
	return time.Date(2026, 5, 10, 8, 30, 0, 0, time.UTC)
}

func testCommand(cmdType command.Type, payload any) command.Command {
	raw, _ := json.Marshal(payload)
	return command.Command{
		ProjectID:   "proj-1",
		Type:        cmdType,
		ActorID:     "user-1",
		PayloadJSON: raw,
	}
}

func createdState(t *testing.T) State {
	t.Helper()
	cmd := testCommand(CommandTypeCreate, CreatePayload{
		Name:           "Order Platform",
		OrganizationID: "org-1",
		TemplateID:     "tmpl-1",
	})
	decision := Decide(State{}, cmd, fixedNow)
	if len(decision.Rejections) > 0 {
		t.Fatalf("create rejected: %+v", decision.Rejections)
	}
	state := State{}
	for _, evt := range decision.Events {
		state = Fold(state, evt)
	}
	return state
}

func applyDecision(t *testing.T, state State, decision command.Decision) State {
	t.Helper()
	if len(decision.Rejections) > 0 {
		t.Fatalf("unexpected rejections: %+v", decision.Rejections)
	}
	for _, evt := range decision.Events {
		state = Fold(state, evt)
	}
	return state
}

func addService(t *testing.T, state State, id, name string, svcType ServiceType) State {
	t.Helper()
	decision := Decide(state, testCommand(CommandTypeServiceAdd, ServiceAddPayload{
		ServiceID: id,
		Name:      name,
		Type:      string(svcType),
	}), fixedNow)
	return applyDecision(t, state, decision)
}

func establish(t *testing.T, state State, relID, source, target string, relType RelationshipType) State {
	t.Helper()
	decision := Decide(state, testCommand(CommandTypeRelationshipEstablish, RelationshipEstablishPayload{
		RelationshipID: relID,
		SourceID:       source,
		TargetID:       target,
		Type:           string(relType),
	}), fixedNow)
	return applyDecision(t, state, decision)
}

func rejectionCode(t *testing.T, decision command.Decision) string {
	t.Helper()
	if len(decision.Rejections) == 0 {
		t.Fatalf("expected rejection, got events %+v", decision.Events)
	}
	return decision.Rejections[0].Code
}

func TestCreateEmitsProjectCreated(t *testing.T) {
	cmd := testCommand(CommandTypeCreate, CreatePayload{
		Name:           "Order Platform",
		Description:    "order management",
		OrganizationID: "org-1",
		TemplateID:     "tmpl-1",
	})
	decision := Decide(State{}, cmd, fixedNow)
	if len(decision.Events) != 1 {
		t.Fatalf("expected one event, got %d", len(decision.Events))
	}
	evt := decision.Events[0]
	if evt.Type != event.TypeProjectCreated {
		t.Fatalf("expected project.created, got %s", evt.Type)
	}
	if evt.EntityType != "project" || evt.EntityID != "proj-1" {
		t.Fatalf("unexpected entity addressing %s/%s", evt.EntityType, evt.EntityID)
	}
}

func TestCreateRejectsDuplicate(t *testing.T) {
	state := createdState(t)
	decision := Decide(state, testCommand(CommandTypeCreate, CreatePayload{Name: "Again", TemplateID: "tmpl-1"}), fixedNow)
	if got := rejectionCode(t, decision); got != rejectionCodeProjectAlreadyExists {
		t.Fatalf("expected PROJECT_ALREADY_EXISTS, got %s", got)
	}
}

func TestCreateValidatesName(t *testing.T) {
	cases := []string{"", " ", "bad_name!", strings.Repeat("a", 101)}
	for _, name := range cases {
		decision := Decide(State{}, testCommand(CommandTypeCreate, CreatePayload{Name: name, TemplateID: "tmpl-1"}), fixedNow)
		if got := rejectionCode(t, decision); got != rejectionCodeProjectNameInvalid {
			t.Fatalf("name %q: expected PROJECT_NAME_INVALID, got %s", name, got)
		}
	}

	// 100 characters is the inclusive upper bound, and hyphens may appear
	// anywhere, leading included.
	for _, name := range []string{strings.Repeat("a", 100), "-internal", "Order - Platform"} {
		decision := Decide(State{}, testCommand(CommandTypeCreate, CreatePayload{
			Name:       name,
			TemplateID: "tmpl-1",
		}), fixedNow)
		if len(decision.Rejections) > 0 {
			t.Fatalf("expected name %q to pass, got %+v", name, decision.Rejections)
		}
	}
}

func TestCreateValidatesDescriptionLength(t *testing.T) {
	decision := Decide(State{}, testCommand(CommandTypeCreate, CreatePayload{
		Name:        "Orders",
		Description: strings.Repeat("d", 501),
		TemplateID:  "tmpl-1",
	}), fixedNow)
	if got := rejectionCode(t, decision); got != rejectionCodeProjectDescriptionLong {
		t.Fatalf("expected PROJECT_DESCRIPTION_TOO_LONG, got %s", got)
	}
}

func TestCommandsRejectedBeforeCreate(t *testing.T) {
	decision := Decide(State{}, testCommand(CommandTypeArchive, nil), fixedNow)
	if got := rejectionCode(t, decision); got != rejectionCodeProjectNotCreated {
		t.Fatalf("expected PROJECT_NOT_CREATED, got %s", got)
	}
}

func TestDeletedIsTerminal(t *testing.T) {
	state := createdState(t)
	state = applyDecision(t, state, Decide(state, testCommand(CommandTypeDelete, DeletePayload{}), fixedNow))
	if state.Status != StatusDeleted {
		t.Fatalf("expected deleted status, got %s", state.Status)
	}

	for _, cmdType := range []command.Type{
		CommandTypeUpdate, CommandTypeActivate, CommandTypeArchive,
		CommandTypeReactivate, CommandTypeDelete, CommandTypeServiceAdd,
	} {
		decision := Decide(state, testCommand(cmdType, nil), fixedNow)
		if got := rejectionCode(t, decision); got != rejectionCodeProjectDeleted {
			t.Fatalf("%s: expected PROJECT_DELETED, got %s", cmdType, got)
		}
	}
}

func TestStatusMachine(t *testing.T) {
	state := createdState(t)

	// Draft -> Archived is not allowed.
	decision := Decide(state, testCommand(CommandTypeArchive, nil), fixedNow)
	if got := rejectionCode(t, decision); got != rejectionCodeStatusTransition {
		t.Fatalf("expected INVALID_STATUS_TRANSITION, got %s", got)
	}

	// Draft -> Active -> Archived -> Active.
	state = applyDecision(t, state, Decide(state, testCommand(CommandTypeActivate, nil), fixedNow))
	if state.Status != StatusActive {
		t.Fatalf("expected active, got %s", state.Status)
	}
	state = applyDecision(t, state, Decide(state, testCommand(CommandTypeArchive, nil), fixedNow))
	if state.Status != StatusArchived {
		t.Fatalf("expected archived, got %s", state.Status)
	}
	state = applyDecision(t, state, Decide(state, testCommand(CommandTypeReactivate, nil), fixedNow))
	if state.Status != StatusActive {
		t.Fatalf("expected active after reactivate, got %s", state.Status)
	}
}

func TestReactivateRequiresArchived(t *testing.T) {
	state := createdState(t)

	// Draft projects go active through deployment, not reactivation.
	decision := Decide(state, testCommand(CommandTypeReactivate, nil), fixedNow)
	if got := rejectionCode(t, decision); got != rejectionCodeStatusTransition {
		t.Fatalf("expected INVALID_STATUS_TRANSITION from draft, got %s", got)
	}

	state = applyDecision(t, state, Decide(state, testCommand(CommandTypeActivate, nil), fixedNow))
	decision = Decide(state, testCommand(CommandTypeReactivate, nil), fixedNow)
	if got := rejectionCode(t, decision); got != rejectionCodeStatusTransition {
		t.Fatalf("expected INVALID_STATUS_TRANSITION from active, got %s", got)
	}
}

func TestServiceAddValidatesName(t *testing.T) {
	state := createdState(t)
	for _, name := range []string{"", "API", "has space", "-leading", "trailing-", "double--dash", strings.Repeat("a", 51)} {
		decision := Decide(state, testCommand(CommandTypeServiceAdd, ServiceAddPayload{
			ServiceID: "svc-x",
			Name:      name,
			Type:      "backend",
		}), fixedNow)
		if got := rejectionCode(t, decision); got != rejectionCodeServiceNameInvalid {
			t.Fatalf("name %q: expected SERVICE_NAME_INVALID, got %s", name, got)
		}
	}
}

func TestServiceAddRejectsDuplicateName(t *testing.T) {
	state := createdState(t)
	state = addService(t, state, "svc-1", "orders-api", ServiceTypeBackend)
	decision := Decide(state, testCommand(CommandTypeServiceAdd, ServiceAddPayload{
		ServiceID: "svc-2",
		Name:      "orders-api",
		Type:      "backend",
	}), fixedNow)
	if got := rejectionCode(t, decision); got != rejectionCodeServiceNameTaken {
		t.Fatalf("expected SERVICE_NAME_TAKEN, got %s", got)
	}
}

func TestServiceLimit(t *testing.T) {
	cmd := testCommand(CommandTypeCreate, CreatePayload{
		Name:        "Tiny",
		TemplateID:  "tmpl-1",
		MaxServices: 2,
	})
	state := applyDecision(t, State{}, Decide(State{}, cmd, fixedNow))
	state = addService(t, state, "svc-1", "one", ServiceTypeBackend)
	state = addService(t, state, "svc-2", "two", ServiceTypeBackend)

	decision := Decide(state, testCommand(CommandTypeServiceAdd, ServiceAddPayload{
		ServiceID: "svc-3",
		Name:      "three",
		Type:      "backend",
	}), fixedNow)
	if got := rejectionCode(t, decision); got != rejectionCodeServiceLimitExceeded {
		t.Fatalf("expected SERVICE_LIMIT_EXCEEDED, got %s", got)
	}
}

func TestDefaultServiceLimitIsFifty(t *testing.T) {
	state := createdState(t)
	for i := 0; i < DefaultMaxServices; i++ {
		state = addService(t, state, fmt.Sprintf("svc-%02d", i), fmt.Sprintf("service-%02d", i), ServiceTypeBackend)
	}
	decision := Decide(state, testCommand(CommandTypeServiceAdd, ServiceAddPayload{
		ServiceID: "svc-overflow",
		Name:      "service-overflow",
		Type:      "backend",
	}), fixedNow)
	if got := rejectionCode(t, decision); got != rejectionCodeServiceLimitExceeded {
		t.Fatalf("expected SERVICE_LIMIT_EXCEEDED at %d services, got %s", DefaultMaxServices, got)
	}
}

func TestServiceRemoveBlockedByActiveDependents(t *testing.T) {
	state := createdState(t)
	state = addService(t, state, "svc-a", "api", ServiceTypeBackend)
	state = addService(t, state, "svc-b", "db", ServiceTypeDatabase)
	state = establish(t, state, "rel-1", "svc-a", "svc-b", RelationshipData)

	// Activate the dependent via deployment completion.
	state = applyDecision(t, state, Decide(state, testCommand(CommandTypeDeploymentComplete, DeploymentCompletePayload{
		ServiceID:    "svc-a",
		DeploymentID: "dep-1",
	}), fixedNow))

	decision := Decide(state, testCommand(CommandTypeServiceRemove, ServiceRemovePayload{ServiceID: "svc-b"}), fixedNow)
	if got := rejectionCode(t, decision); got != rejectionCodeServiceDependents {
		t.Fatalf("expected SERVICE_HAS_ACTIVE_DEPENDENTS, got %s", got)
	}

	// Removing the dependent itself is fine.
	decision = Decide(state, testCommand(CommandTypeServiceRemove, ServiceRemovePayload{ServiceID: "svc-a"}), fixedNow)
	if len(decision.Rejections) > 0 {
		t.Fatalf("expected removal to pass, got %+v", decision.Rejections)
	}
}

func TestServiceDeactivateBlockedByActiveDependents(t *testing.T) {
	state := createdState(t)
	state = addService(t, state, "svc-a", "api", ServiceTypeBackend)
	state = addService(t, state, "svc-b", "db", ServiceTypeDatabase)
	state = establish(t, state, "rel-1", "svc-a", "svc-b", RelationshipData)
	state = applyDecision(t, state, Decide(state, testCommand(CommandTypeDeploymentComplete, DeploymentCompletePayload{
		ServiceID: "svc-a", DeploymentID: "dep-1",
	}), fixedNow))
	state = applyDecision(t, state, Decide(state, testCommand(CommandTypeDeploymentComplete, DeploymentCompletePayload{
		ServiceID: "svc-b", DeploymentID: "dep-2",
	}), fixedNow))

	decision := Decide(state, testCommand(CommandTypeServiceUpdate, ServiceUpdatePayload{
		ServiceID: "svc-b",
		Fields:    map[string]string{"status": "inactive"},
	}), fixedNow)
	if got := rejectionCode(t, decision); got != rejectionCodeServiceDependents {
		t.Fatalf("expected SERVICE_HAS_ACTIVE_DEPENDENTS, got %s", got)
	}
}

func TestServiceDeprecation(t *testing.T) {
	state := createdState(t)
	state = addService(t, state, "svc-a", "api", ServiceTypeBackend)
	state = addService(t, state, "svc-b", "db", ServiceTypeDatabase)
	state = establish(t, state, "rel-1", "svc-a", "svc-b", RelationshipData)
	state = applyDecision(t, state, Decide(state, testCommand(CommandTypeDeploymentComplete, DeploymentCompletePayload{
		ServiceID: "svc-a", DeploymentID: "dep-1",
	}), fixedNow))
	state = applyDecision(t, state, Decide(state, testCommand(CommandTypeDeploymentComplete, DeploymentCompletePayload{
		ServiceID: "svc-b", DeploymentID: "dep-2",
	}), fixedNow))

	// Deprecating takes the service out of rotation, so active dependents
	// block it the same way deactivation is blocked.
	decision := Decide(state, testCommand(CommandTypeServiceUpdate, ServiceUpdatePayload{
		ServiceID: "svc-b",
		Fields:    map[string]string{"status": "deprecated"},
	}), fixedNow)
	if got := rejectionCode(t, decision); got != rejectionCodeServiceDependents {
		t.Fatalf("expected SERVICE_HAS_ACTIVE_DEPENDENTS, got %s", got)
	}

	// The dependent itself has no dependents and can be deprecated.
	state = applyDecision(t, state, Decide(state, testCommand(CommandTypeServiceUpdate, ServiceUpdatePayload{
		ServiceID: "svc-a",
		Fields:    map[string]string{"status": "deprecated"},
	}), fixedNow))
	if state.Services["svc-a"].Status != ServiceStatusDeprecated {
		t.Fatalf("expected deprecated status, got %s", state.Services["svc-a"].Status)
	}
}

func TestRelationshipRejectsDuplicateShape(t *testing.T) {
	state := createdState(t)
	state = addService(t, state, "svc-a", "api", ServiceTypeBackend)
	state = addService(t, state, "svc-b", "db", ServiceTypeDatabase)
	state = establish(t, state, "rel-1", "svc-a", "svc-b", RelationshipData)

	decision := Decide(state, testCommand(CommandTypeRelationshipEstablish, RelationshipEstablishPayload{
		RelationshipID: "rel-2",
		SourceID:       "svc-a",
		TargetID:       "svc-b",
		Type:           "data",
	}), fixedNow)
	if got := rejectionCode(t, decision); got != rejectionCodeRelationshipExists {
		t.Fatalf("expected RELATIONSHIP_EXISTS, got %s", got)
	}

	// A different type between the same pair is a distinct relationship.
	decision = Decide(state, testCommand(CommandTypeRelationshipEstablish, RelationshipEstablishPayload{
		RelationshipID: "rel-3",
		SourceID:       "svc-a",
		TargetID:       "svc-b",
		Type:           "sync_api",
	}), fixedNow)
	if len(decision.Rejections) > 0 {
		t.Fatalf("expected mixed-type edge to pass, got %+v", decision.Rejections)
	}
}

func TestRelationshipRejectsCycle(t *testing.T) {
	state := createdState(t)
	state = addService(t, state, "svc-a", "one", ServiceTypeBackend)
	state = addService(t, state, "svc-b", "two", ServiceTypeBackend)
	state = addService(t, state, "svc-c", "three", ServiceTypeBackend)
	state = establish(t, state, "rel-1", "svc-a", "svc-b", RelationshipSyncAPI)
	state = establish(t, state, "rel-2", "svc-b", "svc-c", RelationshipSyncAPI)

	decision := Decide(state, testCommand(CommandTypeRelationshipEstablish, RelationshipEstablishPayload{
		RelationshipID: "rel-3",
		SourceID:       "svc-c",
		TargetID:       "svc-a",
		Type:           "sync_api",
	}), fixedNow)
	if got := rejectionCode(t, decision); got != rejectionCodeCycleDetected {
		t.Fatalf("expected CYCLE_DETECTED, got %s", got)
	}
}

func TestRelationshipRejectsSelfReference(t *testing.T) {
	state := createdState(t)
	state = addService(t, state, "svc-a", "one", ServiceTypeBackend)
	decision := Decide(state, testCommand(CommandTypeRelationshipEstablish, RelationshipEstablishPayload{
		RelationshipID: "rel-1",
		SourceID:       "svc-a",
		TargetID:       "svc-a",
		Type:           "sync_api",
	}), fixedNow)
	if got := rejectionCode(t, decision); got != rejectionCodeRelationshipSelf {
		t.Fatalf("expected RELATIONSHIP_SELF_REFERENCE, got %s", got)
	}
}

func TestRelationshipDepthLimit(t *testing.T) {
	state := createdState(t)
	for i := 0; i < 7; i++ {
		state = addService(t, state, fmt.Sprintf("svc-%d", i), fmt.Sprintf("service-%d", i), ServiceTypeBackend)
	}
	// Build a five-hop chain: svc-0 -> ... -> svc-5.
	for i := 0; i < 5; i++ {
		state = establish(t, state, fmt.Sprintf("rel-%d", i), fmt.Sprintf("svc-%d", i), fmt.Sprintf("svc-%d", i+1), RelationshipSyncAPI)
	}

	// A sixth hop exceeds the depth limit.
	decision := Decide(state, testCommand(CommandTypeRelationshipEstablish, RelationshipEstablishPayload{
		RelationshipID: "rel-6",
		SourceID:       "svc-5",
		TargetID:       "svc-6",
		Type:           "sync_api",
	}), fixedNow)
	if got := rejectionCode(t, decision); got != rejectionCodeDepthExceeded {
		t.Fatalf("expected DEPENDENCY_DEPTH_EXCEEDED, got %s", got)
	}
}

func TestFrontendOutboundMustBeSyncAPI(t *testing.T) {
	state := createdState(t)
	state = addService(t, state, "svc-web", "web", ServiceTypeFrontend)
	state = addService(t, state, "svc-api", "api", ServiceTypeBackend)

	decision := Decide(state, testCommand(CommandTypeRelationshipEstablish, RelationshipEstablishPayload{
		RelationshipID: "rel-1",
		SourceID:       "svc-web",
		TargetID:       "svc-api",
		Type:           "async_api",
	}), fixedNow)
	if got := rejectionCode(t, decision); got != rejectionCodeFrontendOutboundInvalid {
		t.Fatalf("expected FRONTEND_OUTBOUND_INVALID, got %s", got)
	}

	decision = Decide(state, testCommand(CommandTypeRelationshipEstablish, RelationshipEstablishPayload{
		RelationshipID: "rel-2",
		SourceID:       "svc-web",
		TargetID:       "svc-api",
		Type:           "sync_api",
	}), fixedNow)
	if len(decision.Rejections) > 0 {
		t.Fatalf("expected sync_api from frontend to pass, got %+v", decision.Rejections)
	}
}

func TestDeploymentCompleteActivatesServiceAndProject(t *testing.T) {
	state := createdState(t)
	state = addService(t, state, "svc-a", "api", ServiceTypeBackend)
	if state.Status != StatusDraft {
		t.Fatalf("expected draft, got %s", state.Status)
	}

	state = applyDecision(t, state, Decide(state, testCommand(CommandTypeDeploymentComplete, DeploymentCompletePayload{
		ServiceID:    "svc-a",
		DeploymentID: "dep-1",
	}), fixedNow))

	if state.Services["svc-a"].Status != ServiceStatusActive {
		t.Fatalf("expected service active, got %s", state.Services["svc-a"].Status)
	}
	if state.Status != StatusActive {
		t.Fatalf("expected project active after first deployment, got %s", state.Status)
	}
}

func TestDeploymentCompleteRedeliveryIsNoOp(t *testing.T) {
	state := createdState(t)
	state = addService(t, state, "svc-a", "api", ServiceTypeBackend)
	cmd := testCommand(CommandTypeDeploymentComplete, DeploymentCompletePayload{
		ServiceID:    "svc-a",
		DeploymentID: "dep-1",
	})
	state = applyDecision(t, state, Decide(state, cmd, fixedNow))

	decision := Decide(state, cmd, fixedNow)
	if len(decision.Events) != 0 || len(decision.Rejections) != 0 {
		t.Fatalf("expected re-delivery no-op, got %+v", decision)
	}
}

func TestRepositoryAttachIsIdempotent(t *testing.T) {
	state := createdState(t)
	cmd := testCommand(CommandTypeRepositoryAttach, RepositoryAttachPayload{
		RepositoryURL: "https://github.com/org/orders",
	})
	state = applyDecision(t, state, Decide(state, cmd, fixedNow))
	if state.RepositoryURL != "https://github.com/org/orders" {
		t.Fatalf("expected repository url folded, got %s", state.RepositoryURL)
	}

	decision := Decide(state, cmd, fixedNow)
	if len(decision.Events) != 0 || len(decision.Rejections) != 0 {
		t.Fatalf("expected re-delivery no-op, got %+v", decision)
	}
}

func TestTemplateRecheckIsIdempotent(t *testing.T) {
	state := createdState(t)
	cmd := testCommand(CommandTypeTemplateRecheck, TemplateRecheckPayload{
		TemplateID:      "tmpl-1",
		TemplateVersion: "2.0",
		Compatible:      true,
	})
	state = applyDecision(t, state, Decide(state, cmd, fixedNow))
	if state.TemplateVersion != "2.0" {
		t.Fatalf("expected template version folded, got %s", state.TemplateVersion)
	}

	decision := Decide(state, cmd, fixedNow)
	if len(decision.Events) != 0 || len(decision.Rejections) != 0 {
		t.Fatalf("expected re-delivery no-op, got %+v", decision)
	}
}
