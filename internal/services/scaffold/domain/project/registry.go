package project

import (
	"encoding/json"
	"fmt"

	"github.com/skafu/skafu/internal/services/scaffold/domain/command"
	"github.com/skafu/skafu/internal/services/scaffold/domain/event"
)

// NewCommandRegistry builds the command registry for the project aggregate.
func NewCommandRegistry() (*command.Registry, error) {
	registry := command.NewRegistry()
	definitions := []command.Definition{
		{Type: CommandTypeCreate, Origin: command.OriginUser, ValidatePayload: validateCreatePayload},
		{Type: CommandTypeUpdate, Origin: command.OriginUser},
		{Type: CommandTypeActivate, Origin: command.OriginUser},
		{Type: CommandTypeArchive, Origin: command.OriginUser},
		{Type: CommandTypeReactivate, Origin: command.OriginUser},
		{Type: CommandTypeDelete, Origin: command.OriginUser},
		{Type: CommandTypeServiceAdd, Origin: command.OriginUser, ValidatePayload: validateServiceAddPayload},
		{Type: CommandTypeServiceUpdate, Origin: command.OriginUser},
		{Type: CommandTypeServiceRemove, Origin: command.OriginUser},
		{Type: CommandTypeRelationshipEstablish, Origin: command.OriginUser, ValidatePayload: validateRelationshipPayload},
		{Type: CommandTypeRelationshipRemove, Origin: command.OriginUser},
		{Type: CommandTypeTemplateRecheck, Origin: command.OriginCollaborator},
		{Type: CommandTypeRepositoryAttach, Origin: command.OriginCollaborator},
		{Type: CommandTypeDeploymentComplete, Origin: command.OriginCollaborator, ValidatePayload: validateDeploymentPayload},
	}
	for _, def := range definitions {
		if err := registry.Register(def); err != nil {
			return nil, fmt.Errorf("register command %s: %w", def.Type, err)
		}
	}
	return registry, nil
}

// NewEventRegistry builds the event registry for the project journal.
func NewEventRegistry() (*event.Registry, error) {
	registry := event.NewRegistry()
	definitions := []event.Definition{
		{Type: event.TypeProjectCreated, EntityType: "project"},
		{Type: event.TypeProjectUpdated, EntityType: "project"},
		{Type: event.TypeProjectDeleted, EntityType: "project"},
		{Type: event.TypeServiceAdded, EntityType: "service"},
		{Type: event.TypeServiceUpdated, EntityType: "service"},
		{Type: event.TypeServiceRemoved, EntityType: "service"},
		{Type: event.TypeRelationshipEstablished, EntityType: "relationship"},
		{Type: event.TypeRelationshipRemoved, EntityType: "relationship"},
		{Type: event.TypeTemplateRechecked, EntityType: "project"},
		{Type: event.TypeRepositoryAttached, EntityType: "project"},
		{Type: event.TypeDeploymentCompleted, EntityType: "service"},
	}
	for _, def := range definitions {
		if err := registry.Register(def); err != nil {
			return nil, fmt.Errorf("register event %s: %w", def.Type, err)
		}
	}
	return registry, nil
}

func validateCreatePayload(raw json.RawMessage) error {
	var payload CreatePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("decode create payload: %w", err)
	}
	if payload.Name == "" {
		return fmt.Errorf("name is required")
	}
	if payload.TemplateID == "" {
		return fmt.Errorf("template_id is required")
	}
	return nil
}

func validateServiceAddPayload(raw json.RawMessage) error {
	var payload ServiceAddPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("decode service add payload: %w", err)
	}
	if payload.Name == "" {
		return fmt.Errorf("name is required")
	}
	if payload.Type == "" {
		return fmt.Errorf("type is required")
	}
	return nil
}

func validateRelationshipPayload(raw json.RawMessage) error {
	var payload RelationshipEstablishPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("decode relationship payload: %w", err)
	}
	if payload.SourceID == "" || payload.TargetID == "" {
		return fmt.Errorf("source_id and target_id are required")
	}
	if payload.Type == "" {
		return fmt.Errorf("type is required")
	}
	return nil
}

func validateDeploymentPayload(raw json.RawMessage) error {
	var payload DeploymentCompletePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("decode deployment payload: %w", err)
	}
	if payload.ServiceID == "" {
		return fmt.Errorf("service_id is required")
	}
	if payload.DeploymentID == "" {
		return fmt.Errorf("deployment_id is required")
	}
	return nil
}
