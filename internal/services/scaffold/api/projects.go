package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/skafu/skafu/internal/platform/errors"
	"github.com/skafu/skafu/internal/platform/id"
	"github.com/skafu/skafu/internal/services/scaffold/domain/command"
	"github.com/skafu/skafu/internal/services/scaffold/domain/project"
	"github.com/skafu/skafu/internal/services/scaffold/storage"
)

type createProjectRequest struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	OrganizationID string `json:"organization_id"`
	TemplateID     string `json:"template_id"`
	MaxServices    int    `json:"max_services"`
}

type updateProjectRequest struct {
	Fields map[string]string `json:"fields"`
}

type deleteProjectRequest struct {
	Reason string `json:"reason"`
}

type projectResponse struct {
	ProjectID          string    `json:"project_id"`
	Name               string    `json:"name"`
	Description        string    `json:"description,omitempty"`
	OwnerID            string    `json:"owner_id"`
	OrganizationID     string    `json:"organization_id"`
	TemplateID         string    `json:"template_id"`
	TemplateVersion    string    `json:"template_version,omitempty"`
	TemplateCompatible bool      `json:"template_compatible"`
	RepositoryURL      string    `json:"repository_url,omitempty"`
	Status             string    `json:"status"`
	ServiceCount       int       `json:"service_count"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func toProjectResponse(record storage.ProjectRecord) projectResponse {
	return projectResponse{
		ProjectID:          record.ProjectID,
		Name:               record.Name,
		Description:        record.Description,
		OwnerID:            record.OwnerID,
		OrganizationID:     record.OrganizationID,
		TemplateID:         record.TemplateID,
		TemplateVersion:    record.TemplateVersion,
		TemplateCompatible: record.TemplateCompatible,
		RepositoryURL:      record.RepositoryURL,
		Status:             string(record.Status),
		ServiceCount:       record.ServiceCount,
		CreatedAt:          record.CreatedAt,
		UpdatedAt:          record.UpdatedAt,
	}
}

func (s *Server) createProject(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, apperrors.Wrap(apperrors.CodeValidation, "invalid request body", err))
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.OrganizationID = strings.TrimSpace(req.OrganizationID)
	req.TemplateID = strings.TrimSpace(req.TemplateID)
	if req.OrganizationID == "" {
		renderError(c, apperrors.WithMetadata(apperrors.CodeValidation, "organization id is required", map[string]string{"field": "organization_id"}))
		return
	}
	if req.TemplateID == "" {
		renderError(c, apperrors.WithMetadata(apperrors.CodeValidation, "template id is required", map[string]string{"field": "template_id"}))
		return
	}

	// Name uniqueness spans aggregates, so the decider cannot enforce it. The
	// pre-check reads the org listing; the projection upsert keeps it honest.
	existing, err := s.Reads.ListProjectsByOrganization(c.Request.Context(), req.OrganizationID)
	if err != nil {
		renderError(c, err)
		return
	}
	for _, record := range existing {
		if strings.EqualFold(record.Name, req.Name) {
			renderError(c, apperrors.WithMetadata(apperrors.CodeProjectNameTaken, "project name already used in organization", map[string]string{
				"name":            req.Name,
				"organization_id": req.OrganizationID,
			}))
			return
		}
	}

	info, err := s.Templates.GetTemplate(c.Request.Context(), req.TemplateID)
	if err != nil {
		renderError(c, err)
		return
	}
	if !info.Compatible {
		renderError(c, apperrors.WithMetadata(apperrors.CodeBusinessRuleViolation, "template is not compatible with the current platform", map[string]string{
			"template_id":      req.TemplateID,
			"template_version": info.LatestVersion,
		}))
		return
	}

	projectID, err := id.New()
	if err != nil {
		renderError(c, err)
		return
	}

	result, ok := s.execute(c, command.Command{
		ProjectID:  projectID,
		Type:       project.CommandTypeCreate,
		EntityType: "project",
		EntityID:   projectID,
	}, project.CreatePayload{
		Name:            req.Name,
		Description:     req.Description,
		OrganizationID:  req.OrganizationID,
		TemplateID:      req.TemplateID,
		TemplateVersion: info.LatestVersion,
		MaxServices:     req.MaxServices,
	})
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, commandResult(projectID, result))
}

func (s *Server) listProjects(c *gin.Context) {
	organizationID := strings.TrimSpace(c.Query("organization_id"))
	if organizationID == "" {
		renderError(c, apperrors.WithMetadata(apperrors.CodeValidation, "organization id is required", map[string]string{"field": "organization_id"}))
		return
	}
	records, err := s.Reads.ListProjectsByOrganization(c.Request.Context(), organizationID)
	if err != nil {
		renderError(c, err)
		return
	}
	projects := make([]projectResponse, 0, len(records))
	for _, record := range records {
		projects = append(projects, toProjectResponse(record))
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

func (s *Server) getProject(c *gin.Context) {
	record, err := s.Reads.GetProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProjectResponse(record))
}

func (s *Server) updateProject(c *gin.Context) {
	var req updateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, apperrors.Wrap(apperrors.CodeValidation, "invalid request body", err))
		return
	}
	projectID := c.Param("id")
	result, ok := s.execute(c, command.Command{
		ProjectID:  projectID,
		Type:       project.CommandTypeUpdate,
		EntityType: "project",
		EntityID:   projectID,
	}, project.UpdatePayload{Fields: req.Fields})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, commandResult(projectID, result))
}

func (s *Server) activateProject(c *gin.Context) {
	s.transitionProject(c, project.CommandTypeActivate)
}

func (s *Server) archiveProject(c *gin.Context) {
	s.transitionProject(c, project.CommandTypeArchive)
}

func (s *Server) reactivateProject(c *gin.Context) {
	s.transitionProject(c, project.CommandTypeReactivate)
}

func (s *Server) transitionProject(c *gin.Context, cmdType command.Type) {
	projectID := c.Param("id")
	result, ok := s.execute(c, command.Command{
		ProjectID:  projectID,
		Type:       cmdType,
		EntityType: "project",
		EntityID:   projectID,
	}, struct{}{})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, commandResult(projectID, result))
}

func (s *Server) deleteProject(c *gin.Context) {
	var req deleteProjectRequest
	// The body is optional on delete.
	_ = c.ShouldBindJSON(&req)

	projectID := c.Param("id")
	result, ok := s.execute(c, command.Command{
		ProjectID:  projectID,
		Type:       project.CommandTypeDelete,
		EntityType: "project",
		EntityID:   projectID,
	}, project.DeletePayload{Reason: strings.TrimSpace(req.Reason)})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, commandResult(projectID, result))
}
