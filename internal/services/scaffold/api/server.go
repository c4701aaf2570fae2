// Package api exposes the scaffold service over HTTP.
package api

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/skafu/skafu/internal/services/scaffold/domain/command"
	"github.com/skafu/skafu/internal/services/scaffold/domain/engine"
	"github.com/skafu/skafu/internal/services/scaffold/domain/event"
	"github.com/skafu/skafu/internal/services/scaffold/integration"
	"github.com/skafu/skafu/internal/services/scaffold/storage"
)

// Executor runs validated commands against the aggregate.
type Executor interface {
	Execute(ctx context.Context, cmd command.Command) (engine.Result, error)
}

// TemplateChecker resolves templates before project creation.
type TemplateChecker interface {
	GetTemplate(ctx context.Context, templateID string) (integration.TemplateInfo, error)
}

// Projector applies stored events to the read model. The applier is watermark
// guarded, so applying here and from the relay is safe.
type Projector interface {
	Apply(ctx context.Context, evt event.Event) (bool, error)
}

// ReadStore bundles the read-model queries the API serves.
type ReadStore interface {
	GetProject(ctx context.Context, projectID string) (storage.ProjectRecord, error)
	ListProjectsByOrganization(ctx context.Context, organizationID string) ([]storage.ProjectRecord, error)
	ListServices(ctx context.Context, projectID string) ([]storage.ServiceRecord, error)
	ListRelationships(ctx context.Context, projectID string) ([]storage.RelationshipRecord, error)
}

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	Engine     Executor
	Reads      ReadStore
	Templates  TemplateChecker
	Projection Projector
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", s.healthz)

	v1 := router.Group("/v1")
	v1.Use(identityMiddleware())
	{
		v1.POST("/projects", s.createProject)
		v1.GET("/projects", s.listProjects)
		v1.GET("/projects/:id", s.getProject)
		v1.GET("/projects/:id/graph", s.getProjectGraph)
		v1.PATCH("/projects/:id", s.updateProject)
		v1.POST("/projects/:id/activate", s.activateProject)
		v1.POST("/projects/:id/archive", s.archiveProject)
		v1.POST("/projects/:id/reactivate", s.reactivateProject)
		v1.DELETE("/projects/:id", s.deleteProject)

		v1.POST("/projects/:id/services", s.addService)
		v1.PATCH("/projects/:id/services/:serviceID", s.updateService)
		v1.DELETE("/projects/:id/services/:serviceID", s.removeService)

		v1.POST("/projects/:id/relationships", s.establishRelationship)
		v1.DELETE("/projects/:id/relationships/:relationshipID", s.removeRelationship)
	}
	return router
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}
