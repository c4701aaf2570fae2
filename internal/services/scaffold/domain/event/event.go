// Package event defines the event envelope and registry for the project journal.
package event

import (
	"strings"
	"time"
)

// Type identifies the type of a project event.
type Type string

// Project lifecycle events.
const (
	// TypeProjectCreated records the creation of a project from a template.
	TypeProjectCreated Type = "project.created"
	// TypeProjectUpdated records updates to project metadata or status.
	TypeProjectUpdated Type = "project.updated"
	// TypeProjectDeleted records the deletion of a project. Terminal.
	TypeProjectDeleted Type = "project.deleted"
)

// Service events.
const (
	// TypeServiceAdded records a service added to the project topology.
	TypeServiceAdded Type = "service.added"
	// TypeServiceUpdated records updates to a service.
	TypeServiceUpdated Type = "service.updated"
	// TypeServiceRemoved records a service removed from the topology.
	TypeServiceRemoved Type = "service.removed"
)

// Relationship events.
const (
	// TypeRelationshipEstablished records a dependency between two services.
	TypeRelationshipEstablished Type = "relationship.established"
	// TypeRelationshipRemoved records a dependency removal.
	TypeRelationshipRemoved Type = "relationship.removed"
)

// Collaborator-driven events.
const (
	// TypeTemplateRechecked records a template compatibility re-check.
	TypeTemplateRechecked Type = "template.rechecked"
	// TypeRepositoryAttached records a source repository attached to the project.
	TypeRepositoryAttached Type = "repository.attached"
	// TypeDeploymentCompleted records a successful service deployment.
	TypeDeploymentCompleted Type = "deployment.completed"
)

// SchemaVersion is the envelope schema version stamped on every event.
const SchemaVersion = "1.0"

// Event represents an immutable event in the project journal.
type Event struct {
	// ProjectID is the aggregate this event belongs to.
	ProjectID string
	// Seq is the event sequence number within the project (starts at 1).
	// Assigned by storage on append.
	Seq uint64
	// EventID is the globally unique event identifier.
	// Assigned by storage on append when empty.
	EventID string
	// SchemaVersion is the envelope schema version.
	SchemaVersion string
	// Timestamp is when the event occurred.
	Timestamp time.Time
	// Type identifies the kind of event.
	Type Type
	// ActorID identifies the user or collaborator that caused the event.
	ActorID string
	// RequestID correlates events with the request that produced them.
	RequestID string
	// CorrelationID links events across aggregates and collaborators.
	CorrelationID string
	// CausationID identifies the command or event that caused this one.
	CausationID string
	// EntityType is the type of entity affected (project, service, relationship).
	EntityType string
	// EntityID is the ID of the entity affected.
	EntityID string
	// PayloadJSON holds event-specific data as JSON.
	PayloadJSON []byte
}

// IsValid reports whether the event type is usable.
func (t Type) IsValid() bool {
	return strings.TrimSpace(string(t)) != ""
}

// Domain returns the domain prefix of the event type (e.g., "project", "service").
func (t Type) Domain() string {
	for i, c := range t {
		if c == '.' {
			return string(t[:i])
		}
	}
	return string(t)
}
