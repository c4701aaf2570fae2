package project

import (
	"encoding/json"
	"strings"

	"github.com/skafu/skafu/internal/services/scaffold/domain/event"
)

// Fold applies an event to project state.
//
// Fold is total: unknown event types leave the state untouched, and payloads
// are trusted because deciders normalize them before append.
func Fold(state State, evt event.Event) State {
	switch evt.Type {
	case event.TypeProjectCreated:
		var payload CreatePayload
		_ = json.Unmarshal(evt.PayloadJSON, &payload)
		state.Created = true
		state.Name = payload.Name
		state.Description = payload.Description
		state.OwnerID = evt.ActorID
		state.OrganizationID = payload.OrganizationID
		state.TemplateID = payload.TemplateID
		state.TemplateVersion = payload.TemplateVersion
		state.TemplateCompatible = true
		state.Status = StatusDraft
		state.Config = Config{MaxServices: payload.MaxServices}
		state.Services = make(map[string]Service)
		state.Relationships = make(map[string]Relationship)

	case event.TypeProjectUpdated:
		var payload UpdatePayload
		_ = json.Unmarshal(evt.PayloadJSON, &payload)
		for key, value := range payload.Fields {
			switch key {
			case "name":
				state.Name = strings.TrimSpace(value)
			case "description":
				state.Description = strings.TrimSpace(value)
			case "status":
				if status, ok := normalizeStatusLabel(value); ok {
					state.Status = status
				}
			}
		}

	case event.TypeProjectDeleted:
		state.Status = StatusDeleted

	case event.TypeServiceAdded:
		var payload ServiceAddPayload
		_ = json.Unmarshal(evt.PayloadJSON, &payload)
		if state.Services == nil {
			state.Services = make(map[string]Service)
		}
		state.Services[payload.ServiceID] = Service{
			ID:     payload.ServiceID,
			Name:   payload.Name,
			Type:   ServiceType(payload.Type),
			Status: ServiceStatusPending,
		}

	case event.TypeServiceUpdated:
		var payload ServiceUpdatePayload
		_ = json.Unmarshal(evt.PayloadJSON, &payload)
		svc, ok := state.Services[payload.ServiceID]
		if !ok {
			return state
		}
		for key, value := range payload.Fields {
			switch key {
			case "name":
				svc.Name = strings.TrimSpace(value)
			case "status":
				if status, ok := normalizeServiceStatusLabel(value); ok {
					svc.Status = status
				}
			}
		}
		state.Services[payload.ServiceID] = svc

	case event.TypeServiceRemoved:
		var payload ServiceRemovePayload
		_ = json.Unmarshal(evt.PayloadJSON, &payload)
		delete(state.Services, payload.ServiceID)
		// Relationships referencing the removed service go with it.
		for id, rel := range state.Relationships {
			if rel.SourceID == payload.ServiceID || rel.TargetID == payload.ServiceID {
				delete(state.Relationships, id)
			}
		}

	case event.TypeRelationshipEstablished:
		var payload RelationshipEstablishPayload
		_ = json.Unmarshal(evt.PayloadJSON, &payload)
		if state.Relationships == nil {
			state.Relationships = make(map[string]Relationship)
		}
		state.Relationships[payload.RelationshipID] = Relationship{
			ID:       payload.RelationshipID,
			SourceID: payload.SourceID,
			TargetID: payload.TargetID,
			Type:     RelationshipType(payload.Type),
		}

	case event.TypeRelationshipRemoved:
		var payload RelationshipRemovePayload
		_ = json.Unmarshal(evt.PayloadJSON, &payload)
		delete(state.Relationships, payload.RelationshipID)

	case event.TypeTemplateRechecked:
		var payload TemplateRecheckPayload
		_ = json.Unmarshal(evt.PayloadJSON, &payload)
		if payload.TemplateVersion != "" {
			state.TemplateVersion = payload.TemplateVersion
		}
		state.TemplateCompatible = payload.Compatible

	case event.TypeRepositoryAttached:
		var payload RepositoryAttachPayload
		_ = json.Unmarshal(evt.PayloadJSON, &payload)
		state.RepositoryURL = payload.RepositoryURL

	case event.TypeDeploymentCompleted:
		var payload DeploymentCompletePayload
		_ = json.Unmarshal(evt.PayloadJSON, &payload)
		svc, ok := state.Services[payload.ServiceID]
		if !ok {
			return state
		}
		svc.Status = ServiceStatusActive
		svc.DeploymentID = payload.DeploymentID
		state.Services[payload.ServiceID] = svc
		// The first successful deployment activates a draft project.
		if state.Status == StatusDraft {
			state.Status = StatusActive
		}
	}
	return state
}
