package project

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/skafu/skafu/internal/services/scaffold/domain/command"
	"github.com/skafu/skafu/internal/services/scaffold/domain/event"
	"github.com/skafu/skafu/internal/services/scaffold/domain/graph"
)

// Command types handled by the project decider.
const (
	CommandTypeCreate     command.Type = "project.create"
	CommandTypeUpdate     command.Type = "project.update"
	CommandTypeActivate   command.Type = "project.activate"
	CommandTypeArchive    command.Type = "project.archive"
	CommandTypeReactivate command.Type = "project.reactivate"
	CommandTypeDelete     command.Type = "project.delete"

	CommandTypeServiceAdd    command.Type = "service.add"
	CommandTypeServiceUpdate command.Type = "service.update"
	CommandTypeServiceRemove command.Type = "service.remove"

	CommandTypeRelationshipEstablish command.Type = "relationship.establish"
	CommandTypeRelationshipRemove    command.Type = "relationship.remove"

	CommandTypeTemplateRecheck    command.Type = "template.recheck"
	CommandTypeRepositoryAttach   command.Type = "repository.attach"
	CommandTypeDeploymentComplete command.Type = "deployment.complete"
)

// Rejection codes emitted by the project decider.
const (
	rejectionCodeProjectAlreadyExists      = "PROJECT_ALREADY_EXISTS"
	rejectionCodeProjectNotCreated         = "PROJECT_NOT_CREATED"
	rejectionCodeProjectDeleted            = "PROJECT_DELETED"
	rejectionCodeProjectNameInvalid        = "PROJECT_NAME_INVALID"
	rejectionCodeProjectDescriptionLong    = "PROJECT_DESCRIPTION_TOO_LONG"
	rejectionCodeProjectUpdateEmpty        = "PROJECT_UPDATE_EMPTY"
	rejectionCodeProjectUpdateFieldInvalid = "PROJECT_UPDATE_FIELD_INVALID"
	rejectionCodeTemplateRequired          = "PROJECT_TEMPLATE_REQUIRED"
	rejectionCodeStatusTransition          = "INVALID_STATUS_TRANSITION"

	rejectionCodeServiceNameInvalid   = "SERVICE_NAME_INVALID"
	rejectionCodeServiceNameTaken     = "SERVICE_NAME_TAKEN"
	rejectionCodeServiceTypeInvalid   = "SERVICE_TYPE_INVALID"
	rejectionCodeServiceStatusInvalid = "SERVICE_STATUS_INVALID"
	rejectionCodeServiceIDRequired    = "SERVICE_ID_REQUIRED"
	rejectionCodeServiceNotFound      = "SERVICE_NOT_FOUND"
	rejectionCodeServiceLimitExceeded = "SERVICE_LIMIT_EXCEEDED"
	rejectionCodeServiceDependents    = "SERVICE_HAS_ACTIVE_DEPENDENTS"
	rejectionCodeServiceUpdateEmpty   = "SERVICE_UPDATE_EMPTY"

	rejectionCodeRelationshipIDRequired  = "RELATIONSHIP_ID_REQUIRED"
	rejectionCodeRelationshipExists      = "RELATIONSHIP_EXISTS"
	rejectionCodeRelationshipNotFound    = "RELATIONSHIP_NOT_FOUND"
	rejectionCodeRelationshipTypeInvalid = "RELATIONSHIP_TYPE_INVALID"
	rejectionCodeRelationshipSelf        = "RELATIONSHIP_SELF_REFERENCE"
	rejectionCodeFrontendOutboundInvalid = "FRONTEND_OUTBOUND_INVALID"
	rejectionCodeCycleDetected           = "CYCLE_DETECTED"
	rejectionCodeDepthExceeded           = "DEPENDENCY_DEPTH_EXCEEDED"
)

var (
	projectNamePattern = regexp.MustCompile(`^[A-Za-z0-9 -]{1,100}$`)
	serviceNamePattern = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)*$`)
)

const maxDescriptionLength = 500

// isProjectNameValid enforces 1-100 characters of alphanumerics, spaces, hyphens.
func isProjectNameValid(name string) bool {
	return projectNamePattern.MatchString(name)
}

// isServiceNameValid enforces 1-50 character kebab-case names.
func isServiceNameValid(name string) bool {
	if len(name) == 0 || len(name) > 50 {
		return false
	}
	return serviceNamePattern.MatchString(name)
}

// Decide returns the decision for a project command against current state.
//
// Decisions are pure: the only inputs are the folded state, the command, and
// the clock. Collaborator-driven commands are idempotent; re-delivering a fact
// the state already reflects emits no events and no rejections.
func Decide(state State, cmd command.Command, now func() time.Time) command.Decision {
	if now == nil {
		now = time.Now
	}

	if cmd.Type == CommandTypeCreate {
		return decideCreate(state, cmd, now)
	}

	if !state.Created {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeProjectNotCreated,
			Message: "project does not exist",
		})
	}
	if state.Status == StatusDeleted {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeProjectDeleted,
			Message: "project is deleted",
		})
	}

	switch cmd.Type {
	case CommandTypeUpdate:
		return decideUpdate(state, cmd, now)
	case CommandTypeActivate:
		return decideStatusChange(state, cmd, StatusActive, now)
	case CommandTypeArchive:
		return decideStatusChange(state, cmd, StatusArchived, now)
	case CommandTypeReactivate:
		return decideReactivate(state, cmd, now)
	case CommandTypeDelete:
		return decideDelete(state, cmd, now)
	case CommandTypeServiceAdd:
		return decideServiceAdd(state, cmd, now)
	case CommandTypeServiceUpdate:
		return decideServiceUpdate(state, cmd, now)
	case CommandTypeServiceRemove:
		return decideServiceRemove(state, cmd, now)
	case CommandTypeRelationshipEstablish:
		return decideRelationshipEstablish(state, cmd, now)
	case CommandTypeRelationshipRemove:
		return decideRelationshipRemove(state, cmd, now)
	case CommandTypeTemplateRecheck:
		return decideTemplateRecheck(state, cmd, now)
	case CommandTypeRepositoryAttach:
		return decideRepositoryAttach(state, cmd, now)
	case CommandTypeDeploymentComplete:
		return decideDeploymentComplete(state, cmd, now)
	}

	return command.Decision{}
}

func decideCreate(state State, cmd command.Command, now func() time.Time) command.Decision {
	if state.Created {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeProjectAlreadyExists,
			Message: "project already exists",
		})
	}
	var payload CreatePayload
	_ = json.Unmarshal(cmd.PayloadJSON, &payload)

	name := strings.TrimSpace(payload.Name)
	if !isProjectNameValid(name) {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeProjectNameInvalid,
			Message: "project name must be 1-100 alphanumeric, space, or hyphen characters",
		})
	}
	description := strings.TrimSpace(payload.Description)
	if len(description) > maxDescriptionLength {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeProjectDescriptionLong,
			Message: fmt.Sprintf("project description must be at most %d characters", maxDescriptionLength),
		})
	}
	templateID := strings.TrimSpace(payload.TemplateID)
	if templateID == "" {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeTemplateRequired,
			Message: "template id is required",
		})
	}

	normalized := CreatePayload{
		Name:            name,
		Description:     description,
		OrganizationID:  strings.TrimSpace(payload.OrganizationID),
		TemplateID:      templateID,
		TemplateVersion: strings.TrimSpace(payload.TemplateVersion),
		MaxServices:     payload.MaxServices,
	}
	if normalized.MaxServices < 0 {
		normalized.MaxServices = 0
	}
	payloadJSON, _ := json.Marshal(normalized)

	return command.Accept(command.NewEvent(cmd, event.TypeProjectCreated, "project", cmd.ProjectID, payloadJSON, now().UTC()))
}

func decideUpdate(state State, cmd command.Command, now func() time.Time) command.Decision {
	var payload UpdatePayload
	_ = json.Unmarshal(cmd.PayloadJSON, &payload)
	if len(payload.Fields) == 0 {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeProjectUpdateEmpty,
			Message: "project update requires fields",
		})
	}

	normalized := make(map[string]string, len(payload.Fields))
	for key, value := range payload.Fields {
		switch key {
		case "name":
			trimmed := strings.TrimSpace(value)
			if !isProjectNameValid(trimmed) {
				return command.Reject(command.Rejection{
					Code:    rejectionCodeProjectNameInvalid,
					Message: "project name must be 1-100 alphanumeric, space, or hyphen characters",
				})
			}
			normalized[key] = trimmed
		case "description":
			trimmed := strings.TrimSpace(value)
			if len(trimmed) > maxDescriptionLength {
				return command.Reject(command.Rejection{
					Code:    rejectionCodeProjectDescriptionLong,
					Message: fmt.Sprintf("project description must be at most %d characters", maxDescriptionLength),
				})
			}
			normalized[key] = trimmed
		default:
			return command.Reject(command.Rejection{
				Code:    rejectionCodeProjectUpdateFieldInvalid,
				Message: "project update field is invalid",
			})
		}
	}

	payloadJSON, _ := json.Marshal(UpdatePayload{Fields: normalized})
	return command.Accept(command.NewEvent(cmd, event.TypeProjectUpdated, "project", cmd.ProjectID, payloadJSON, now().UTC()))
}

func decideStatusChange(state State, cmd command.Command, target Status, now func() time.Time) command.Decision {
	current := state.Status
	if current == "" {
		current = StatusDraft
	}
	if !isStatusTransitionAllowed(current, target) {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeStatusTransition,
			Message: fmt.Sprintf("project status transition %s to %s is not allowed", current, target),
		})
	}
	payloadJSON, _ := json.Marshal(UpdatePayload{Fields: map[string]string{"status": string(target)}})
	return command.Accept(command.NewEvent(cmd, event.TypeProjectUpdated, "project", cmd.ProjectID, payloadJSON, now().UTC()))
}

// decideReactivate restores an archived project. Draft projects go active
// through deployment success, not reactivation.
func decideReactivate(state State, cmd command.Command, now func() time.Time) command.Decision {
	if state.Status != StatusArchived {
		current := state.Status
		if current == "" {
			current = StatusDraft
		}
		return command.Reject(command.Rejection{
			Code:    rejectionCodeStatusTransition,
			Message: fmt.Sprintf("project status transition %s to %s is not allowed", current, StatusActive),
		})
	}
	return decideStatusChange(state, cmd, StatusActive, now)
}

func decideDelete(state State, cmd command.Command, now func() time.Time) command.Decision {
	var payload DeletePayload
	_ = json.Unmarshal(cmd.PayloadJSON, &payload)
	normalized := DeletePayload{Reason: strings.TrimSpace(payload.Reason)}
	payloadJSON, _ := json.Marshal(normalized)
	return command.Accept(command.NewEvent(cmd, event.TypeProjectDeleted, "project", cmd.ProjectID, payloadJSON, now().UTC()))
}

func decideServiceAdd(state State, cmd command.Command, now func() time.Time) command.Decision {
	var payload ServiceAddPayload
	_ = json.Unmarshal(cmd.PayloadJSON, &payload)

	serviceID := strings.TrimSpace(payload.ServiceID)
	if serviceID == "" {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeServiceIDRequired,
			Message: "service id is required",
		})
	}
	name := strings.TrimSpace(payload.Name)
	if !isServiceNameValid(name) {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeServiceNameInvalid,
			Message: "service name must be 1-50 character kebab-case",
		})
	}
	if _, taken := state.ServiceByName(name); taken {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeServiceNameTaken,
			Message: "service name is already in use",
		})
	}
	serviceType, ok := normalizeServiceTypeLabel(payload.Type)
	if !ok {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeServiceTypeInvalid,
			Message: "service type is invalid",
		})
	}
	if len(state.Services) >= state.MaxServices() {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeServiceLimitExceeded,
			Message: fmt.Sprintf("project allows at most %d services", state.MaxServices()),
		})
	}

	normalized := ServiceAddPayload{ServiceID: serviceID, Name: name, Type: string(serviceType)}
	payloadJSON, _ := json.Marshal(normalized)
	return command.Accept(command.NewEvent(cmd, event.TypeServiceAdded, "service", serviceID, payloadJSON, now().UTC()))
}

func decideServiceUpdate(state State, cmd command.Command, now func() time.Time) command.Decision {
	var payload ServiceUpdatePayload
	_ = json.Unmarshal(cmd.PayloadJSON, &payload)

	serviceID := strings.TrimSpace(payload.ServiceID)
	svc, ok := state.Services[serviceID]
	if !ok {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeServiceNotFound,
			Message: "service does not exist",
		})
	}
	if len(payload.Fields) == 0 {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeServiceUpdateEmpty,
			Message: "service update requires fields",
		})
	}

	normalized := make(map[string]string, len(payload.Fields))
	for key, value := range payload.Fields {
		switch key {
		case "name":
			trimmed := strings.TrimSpace(value)
			if !isServiceNameValid(trimmed) {
				return command.Reject(command.Rejection{
					Code:    rejectionCodeServiceNameInvalid,
					Message: "service name must be 1-50 character kebab-case",
				})
			}
			if existing, taken := state.ServiceByName(trimmed); taken && existing.ID != svc.ID {
				return command.Reject(command.Rejection{
					Code:    rejectionCodeServiceNameTaken,
					Message: "service name is already in use",
				})
			}
			normalized[key] = trimmed
		case "status":
			status, ok := normalizeServiceStatusLabel(value)
			if !ok {
				return command.Reject(command.Rejection{
					Code:    rejectionCodeServiceStatusInvalid,
					Message: "service status is invalid",
				})
			}
			if status != ServiceStatusActive && svc.Status == ServiceStatusActive {
				if dependents := state.ActiveDependents(svc.ID); len(dependents) > 0 {
					return command.Reject(command.Rejection{
						Code:    rejectionCodeServiceDependents,
						Message: fmt.Sprintf("service has active dependents: %s", strings.Join(dependents, ", ")),
					})
				}
			}
			normalized[key] = string(status)
		default:
			return command.Reject(command.Rejection{
				Code:    rejectionCodeProjectUpdateFieldInvalid,
				Message: "service update field is invalid",
			})
		}
	}

	payloadJSON, _ := json.Marshal(ServiceUpdatePayload{ServiceID: serviceID, Fields: normalized})
	return command.Accept(command.NewEvent(cmd, event.TypeServiceUpdated, "service", serviceID, payloadJSON, now().UTC()))
}

func decideServiceRemove(state State, cmd command.Command, now func() time.Time) command.Decision {
	var payload ServiceRemovePayload
	_ = json.Unmarshal(cmd.PayloadJSON, &payload)

	serviceID := strings.TrimSpace(payload.ServiceID)
	svc, ok := state.Services[serviceID]
	if !ok {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeServiceNotFound,
			Message: "service does not exist",
		})
	}
	if dependents := state.ActiveDependents(svc.ID); len(dependents) > 0 {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeServiceDependents,
			Message: fmt.Sprintf("service has active dependents: %s", strings.Join(dependents, ", ")),
		})
	}

	payloadJSON, _ := json.Marshal(ServiceRemovePayload{ServiceID: serviceID})
	return command.Accept(command.NewEvent(cmd, event.TypeServiceRemoved, "service", serviceID, payloadJSON, now().UTC()))
}

func decideRelationshipEstablish(state State, cmd command.Command, now func() time.Time) command.Decision {
	var payload RelationshipEstablishPayload
	_ = json.Unmarshal(cmd.PayloadJSON, &payload)

	relationshipID := strings.TrimSpace(payload.RelationshipID)
	if relationshipID == "" {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeRelationshipIDRequired,
			Message: "relationship id is required",
		})
	}
	sourceID := strings.TrimSpace(payload.SourceID)
	targetID := strings.TrimSpace(payload.TargetID)
	source, ok := state.Services[sourceID]
	if !ok {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeServiceNotFound,
			Message: "source service does not exist",
		})
	}
	if _, ok := state.Services[targetID]; !ok {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeServiceNotFound,
			Message: "target service does not exist",
		})
	}
	if sourceID == targetID {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeRelationshipSelf,
			Message: "a service cannot depend on itself",
		})
	}
	relType, ok := normalizeRelationshipTypeLabel(payload.Type)
	if !ok {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeRelationshipTypeInvalid,
			Message: "relationship type is invalid",
		})
	}
	if _, exists := state.RelationshipByShape(sourceID, targetID, relType); exists {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeRelationshipExists,
			Message: "relationship already exists",
		})
	}
	if source.Type == ServiceTypeFrontend && relType != RelationshipSyncAPI {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeFrontendOutboundInvalid,
			Message: "frontend services may only establish sync_api dependencies",
		})
	}

	g := state.Graph()
	if g.WouldCreateCycle(sourceID, targetID) {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeCycleDetected,
			Message: "relationship would create a dependency cycle",
		})
	}

	// Depth is checked on the topology including the candidate edge. Parallel
	// edges of other types between the same pair never change the graph, so the
	// candidate is the only addition.
	depth, err := graphWithCandidate(state, sourceID, targetID).MaxDepth()
	if err != nil {
		// Unreachable after the cycle check above; reject defensively.
		return command.Reject(command.Rejection{
			Code:    rejectionCodeCycleDetected,
			Message: "relationship would create a dependency cycle",
		})
	}
	if depth > MaxDependencyDepth {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeDepthExceeded,
			Message: fmt.Sprintf("dependency chains may be at most %d services deep", MaxDependencyDepth),
		})
	}

	normalized := RelationshipEstablishPayload{
		RelationshipID: relationshipID,
		SourceID:       sourceID,
		TargetID:       targetID,
		Type:           string(relType),
	}
	payloadJSON, _ := json.Marshal(normalized)
	return command.Accept(command.NewEvent(cmd, event.TypeRelationshipEstablished, "relationship", relationshipID, payloadJSON, now().UTC()))
}

// graphWithCandidate builds the dependency graph with the candidate edge added.
func graphWithCandidate(state State, sourceID, targetID string) *graph.Graph {
	ids := make([]string, 0, len(state.Services))
	for id := range state.Services {
		ids = append(ids, id)
	}
	edges := make([]graph.Edge, 0, len(state.Relationships)+1)
	for _, rel := range state.Relationships {
		edges = append(edges, graph.Edge{Source: rel.SourceID, Target: rel.TargetID})
	}
	edges = append(edges, graph.Edge{Source: sourceID, Target: targetID})
	return graph.Build(ids, edges)
}

func decideRelationshipRemove(state State, cmd command.Command, now func() time.Time) command.Decision {
	var payload RelationshipRemovePayload
	_ = json.Unmarshal(cmd.PayloadJSON, &payload)

	relationshipID := strings.TrimSpace(payload.RelationshipID)
	if _, ok := state.Relationships[relationshipID]; !ok {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeRelationshipNotFound,
			Message: "relationship does not exist",
		})
	}

	payloadJSON, _ := json.Marshal(RelationshipRemovePayload{RelationshipID: relationshipID})
	return command.Accept(command.NewEvent(cmd, event.TypeRelationshipRemoved, "relationship", relationshipID, payloadJSON, now().UTC()))
}

func decideTemplateRecheck(state State, cmd command.Command, now func() time.Time) command.Decision {
	var payload TemplateRecheckPayload
	_ = json.Unmarshal(cmd.PayloadJSON, &payload)

	templateVersion := strings.TrimSpace(payload.TemplateVersion)
	// Re-delivered rechecks for a version the state already reflects are no-ops.
	if templateVersion == state.TemplateVersion && payload.Compatible == state.TemplateCompatible {
		return command.Decision{}
	}

	normalized := TemplateRecheckPayload{
		TemplateID:      strings.TrimSpace(payload.TemplateID),
		TemplateVersion: templateVersion,
		Compatible:      payload.Compatible,
	}
	payloadJSON, _ := json.Marshal(normalized)
	return command.Accept(command.NewEvent(cmd, event.TypeTemplateRechecked, "project", cmd.ProjectID, payloadJSON, now().UTC()))
}

func decideRepositoryAttach(state State, cmd command.Command, now func() time.Time) command.Decision {
	var payload RepositoryAttachPayload
	_ = json.Unmarshal(cmd.PayloadJSON, &payload)

	repositoryURL := strings.TrimSpace(payload.RepositoryURL)
	if repositoryURL == "" || repositoryURL == state.RepositoryURL {
		return command.Decision{}
	}

	payloadJSON, _ := json.Marshal(RepositoryAttachPayload{RepositoryURL: repositoryURL})
	return command.Accept(command.NewEvent(cmd, event.TypeRepositoryAttached, "project", cmd.ProjectID, payloadJSON, now().UTC()))
}

func decideDeploymentComplete(state State, cmd command.Command, now func() time.Time) command.Decision {
	var payload DeploymentCompletePayload
	_ = json.Unmarshal(cmd.PayloadJSON, &payload)

	serviceID := strings.TrimSpace(payload.ServiceID)
	svc, ok := state.Services[serviceID]
	if !ok {
		return command.Reject(command.Rejection{
			Code:    rejectionCodeServiceNotFound,
			Message: "service does not exist",
		})
	}
	deploymentID := strings.TrimSpace(payload.DeploymentID)
	// Re-delivered completions for a deployment the state already reflects are no-ops.
	if svc.Status == ServiceStatusActive && svc.DeploymentID == deploymentID {
		return command.Decision{}
	}

	normalized := DeploymentCompletePayload{ServiceID: serviceID, DeploymentID: deploymentID}
	payloadJSON, _ := json.Marshal(normalized)
	return command.Accept(command.NewEvent(cmd, event.TypeDeploymentCompleted, "service", serviceID, payloadJSON, now().UTC()))
}
