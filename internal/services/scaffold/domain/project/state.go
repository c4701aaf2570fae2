package project

import (
	"sort"

	"github.com/skafu/skafu/internal/services/scaffold/domain/graph"
)

const (
	// DefaultMaxServices bounds topology size unless the project overrides it.
	DefaultMaxServices = 50
	// MaxDependencyDepth bounds the longest dependency chain, counted in edges.
	MaxDependencyDepth = 5
)

// Service is a deployable unit inside the project topology.
type Service struct {
	// ID is the stable service identifier.
	ID string
	// Name is the kebab-case display name, unique within the project.
	Name string
	// Type classifies the service for policy checks.
	Type ServiceType
	// Status is the per-service lifecycle status.
	Status ServiceStatus
	// DeploymentID records the last completed deployment, for idempotent replays.
	DeploymentID string
}

// Relationship is a directed dependency: Source depends on Target.
type Relationship struct {
	ID       string
	SourceID string
	TargetID string
	Type     RelationshipType
}

// Config holds per-project tunables carried in the created event.
type Config struct {
	// MaxServices overrides DefaultMaxServices when greater than zero.
	MaxServices int
}

// State captures the replayed project aggregate used by deciders.
//
// It is derived entirely from events: fold the journal from seq 1 and every
// decision-relevant fact about the project is here.
type State struct {
	// Created indicates whether project.create has been successfully applied.
	Created bool
	// Name is the project display name, unique per organization.
	Name string
	// Description is optional free text.
	Description string
	// OwnerID is the user that created the project.
	OwnerID string
	// OrganizationID scopes the project for listing and name uniqueness.
	OrganizationID string
	// TemplateID and TemplateVersion pin the scaffold template in use.
	TemplateID      string
	TemplateVersion string
	// TemplateCompatible records the latest compatibility re-check outcome.
	TemplateCompatible bool
	// RepositoryURL is the attached source repository, when present.
	RepositoryURL string
	// Status is the lifecycle status that gates what operations are legal.
	Status Status
	// Config holds per-project tunables.
	Config Config
	// Services indexes topology members by service id.
	Services map[string]Service
	// Relationships indexes dependencies by relationship id.
	Relationships map[string]Relationship
}

// MaxServices returns the effective service limit for the project.
func (s State) MaxServices() int {
	if s.Config.MaxServices > 0 {
		return s.Config.MaxServices
	}
	return DefaultMaxServices
}

// ServiceByName returns the service with the given name, if any.
func (s State) ServiceByName(name string) (Service, bool) {
	for _, svc := range s.Services {
		if svc.Name == name {
			return svc, true
		}
	}
	return Service{}, false
}

// RelationshipByShape returns the relationship matching (source, target, type).
func (s State) RelationshipByShape(sourceID, targetID string, relType RelationshipType) (Relationship, bool) {
	for _, rel := range s.Relationships {
		if rel.SourceID == sourceID && rel.TargetID == targetID && rel.Type == relType {
			return rel, true
		}
	}
	return Relationship{}, false
}

// Graph builds the type-agnostic dependency graph over current relationships.
// Parallel edges of different types between the same pair collapse to one.
func (s State) Graph() *graph.Graph {
	ids := make([]string, 0, len(s.Services))
	for id := range s.Services {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	edges := make([]graph.Edge, 0, len(s.Relationships))
	for _, rel := range s.Relationships {
		edges = append(edges, graph.Edge{Source: rel.SourceID, Target: rel.TargetID})
	}
	return graph.Build(ids, edges)
}

// ActiveDependents returns ids of active services that depend on the given
// service, id-ascending. A service with active dependents cannot be removed
// or deactivated.
func (s State) ActiveDependents(serviceID string) []string {
	seen := make(map[string]bool)
	for _, rel := range s.Relationships {
		if rel.TargetID != serviceID {
			continue
		}
		dependent, ok := s.Services[rel.SourceID]
		if !ok || dependent.Status != ServiceStatusActive {
			continue
		}
		seen[dependent.ID] = true
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
