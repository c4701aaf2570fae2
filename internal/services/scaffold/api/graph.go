package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/skafu/skafu/internal/platform/errors"
	"github.com/skafu/skafu/internal/services/scaffold/domain/graph"
)

type graphServiceNode struct {
	ServiceID    string   `json:"service_id"`
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Status       string   `json:"status"`
	Depth        int      `json:"depth"`
	Dependencies []string `json:"dependencies"`
	Dependents   []string `json:"dependents"`
}

type graphResponse struct {
	ProjectID string             `json:"project_id"`
	MaxDepth  int                `json:"max_depth"`
	Order     []string           `json:"order"`
	Services  []graphServiceNode `json:"services"`
}

// getProjectGraph renders the dependency view computed over the read model.
// Order lists service ids so every service appears after its dependencies.
func (s *Server) getProjectGraph(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := c.Param("id")

	if _, err := s.Reads.GetProject(ctx, projectID); err != nil {
		renderError(c, err)
		return
	}
	services, err := s.Reads.ListServices(ctx, projectID)
	if err != nil {
		renderError(c, err)
		return
	}
	relationships, err := s.Reads.ListRelationships(ctx, projectID)
	if err != nil {
		renderError(c, err)
		return
	}

	ids := make([]string, 0, len(services))
	for _, svc := range services {
		ids = append(ids, svc.ServiceID)
	}
	edges := make([]graph.Edge, 0, len(relationships))
	for _, rel := range relationships {
		edges = append(edges, graph.Edge{Source: rel.SourceID, Target: rel.TargetID})
	}
	g := graph.Build(ids, edges)

	// Writes reject cycles, so a cycle here means the read model is corrupt.
	order, err := g.TopologicalOrder()
	if err != nil {
		renderError(c, apperrors.Wrap(apperrors.CodeIntegrationFailure, "dependency graph is not consistent", err))
		return
	}
	maxDepth, err := g.MaxDepth()
	if err != nil {
		renderError(c, apperrors.Wrap(apperrors.CodeIntegrationFailure, "dependency graph is not consistent", err))
		return
	}

	nodes := make([]graphServiceNode, 0, len(services))
	for _, svc := range services {
		depth, err := g.DepthOf(svc.ServiceID)
		if err != nil {
			renderError(c, apperrors.Wrap(apperrors.CodeIntegrationFailure, "dependency graph is not consistent", err))
			return
		}
		nodes = append(nodes, graphServiceNode{
			ServiceID:    svc.ServiceID,
			Name:         svc.Name,
			Type:         string(svc.Type),
			Status:       string(svc.Status),
			Depth:        depth,
			Dependencies: g.Dependencies(svc.ServiceID),
			Dependents:   g.Dependents(svc.ServiceID),
		})
	}

	c.JSON(http.StatusOK, graphResponse{
		ProjectID: projectID,
		MaxDepth:  maxDepth,
		Order:     order,
		Services:  nodes,
	})
}
