package project

import "strings"

// Status is the project lifecycle status.
type Status string

const (
	// StatusDraft is the initial status after creation.
	StatusDraft Status = "draft"
	// StatusActive indicates at least one successful deployment.
	StatusActive Status = "active"
	// StatusArchived indicates a discontinued project kept for reference.
	StatusArchived Status = "archived"
	// StatusDeleted is terminal. No command is accepted afterwards.
	StatusDeleted Status = "deleted"
)

// statusTransitions enumerates the allowed lifecycle moves.
var statusTransitions = map[Status][]Status{
	StatusDraft:    {StatusActive, StatusDeleted},
	StatusActive:   {StatusArchived, StatusDeleted},
	StatusArchived: {StatusActive, StatusDeleted},
	StatusDeleted:  {},
}

// isStatusTransitionAllowed reports whether moving from one status to another is legal.
func isStatusTransitionAllowed(from, to Status) bool {
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// normalizeStatusLabel canonicalizes a status label.
func normalizeStatusLabel(value string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(value))) {
	case StatusDraft:
		return StatusDraft, true
	case StatusActive:
		return StatusActive, true
	case StatusArchived:
		return StatusArchived, true
	case StatusDeleted:
		return StatusDeleted, true
	default:
		return "", false
	}
}

// ServiceStatus is the per-service lifecycle status.
type ServiceStatus string

const (
	// ServiceStatusPending indicates a service that has not deployed yet.
	ServiceStatusPending ServiceStatus = "pending"
	// ServiceStatusActive indicates a successfully deployed service.
	ServiceStatusActive ServiceStatus = "active"
	// ServiceStatusInactive indicates a deliberately deactivated service.
	ServiceStatusInactive ServiceStatus = "inactive"
	// ServiceStatusDeprecated indicates a service scheduled for removal.
	ServiceStatusDeprecated ServiceStatus = "deprecated"
)

// normalizeServiceStatusLabel canonicalizes a service status label.
func normalizeServiceStatusLabel(value string) (ServiceStatus, bool) {
	switch ServiceStatus(strings.ToLower(strings.TrimSpace(value))) {
	case ServiceStatusPending:
		return ServiceStatusPending, true
	case ServiceStatusActive:
		return ServiceStatusActive, true
	case ServiceStatusInactive:
		return ServiceStatusInactive, true
	case ServiceStatusDeprecated:
		return ServiceStatusDeprecated, true
	default:
		return "", false
	}
}

// ServiceType classifies a service in the topology.
type ServiceType string

const (
	// ServiceTypeFrontend is a user-facing web or mobile surface.
	ServiceTypeFrontend ServiceType = "frontend"
	// ServiceTypeBackend is an API or business-logic service.
	ServiceTypeBackend ServiceType = "backend"
	// ServiceTypeWorker is an asynchronous background processor.
	ServiceTypeWorker ServiceType = "worker"
	// ServiceTypeDatabase is a managed data store.
	ServiceTypeDatabase ServiceType = "database"
)

// normalizeServiceTypeLabel canonicalizes a service type label.
func normalizeServiceTypeLabel(value string) (ServiceType, bool) {
	switch ServiceType(strings.ToLower(strings.TrimSpace(value))) {
	case ServiceTypeFrontend:
		return ServiceTypeFrontend, true
	case ServiceTypeBackend:
		return ServiceTypeBackend, true
	case ServiceTypeWorker:
		return ServiceTypeWorker, true
	case ServiceTypeDatabase:
		return ServiceTypeDatabase, true
	default:
		return "", false
	}
}

// RelationshipType classifies a dependency between two services.
type RelationshipType string

const (
	// RelationshipSyncAPI is a synchronous request/response dependency.
	RelationshipSyncAPI RelationshipType = "sync_api"
	// RelationshipAsyncAPI is a queue or event driven dependency.
	RelationshipAsyncAPI RelationshipType = "async_api"
	// RelationshipData is a direct data-store dependency.
	RelationshipData RelationshipType = "data"
)

// normalizeRelationshipTypeLabel canonicalizes a relationship type label.
func normalizeRelationshipTypeLabel(value string) (RelationshipType, bool) {
	switch RelationshipType(strings.ToLower(strings.TrimSpace(value))) {
	case RelationshipSyncAPI:
		return RelationshipSyncAPI, true
	case RelationshipAsyncAPI:
		return RelationshipAsyncAPI, true
	case RelationshipData:
		return RelationshipData, true
	default:
		return "", false
	}
}
