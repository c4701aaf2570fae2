package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/skafu/skafu/internal/platform/errors"
	"github.com/skafu/skafu/internal/platform/id"
	"github.com/skafu/skafu/internal/services/scaffold/domain/command"
	"github.com/skafu/skafu/internal/services/scaffold/domain/project"
)

type addServiceRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type updateServiceRequest struct {
	Fields map[string]string `json:"fields"`
}

type serviceCommandResponse struct {
	commandResponse
	ServiceID string `json:"service_id"`
}

func (s *Server) addService(c *gin.Context) {
	var req addServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, apperrors.Wrap(apperrors.CodeValidation, "invalid request body", err))
		return
	}
	serviceID, err := id.New()
	if err != nil {
		renderError(c, err)
		return
	}
	projectID := c.Param("id")
	result, ok := s.execute(c, command.Command{
		ProjectID:  projectID,
		Type:       project.CommandTypeServiceAdd,
		EntityType: "service",
		EntityID:   serviceID,
	}, project.ServiceAddPayload{
		ServiceID: serviceID,
		Name:      req.Name,
		Type:      req.Type,
	})
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, serviceCommandResponse{
		commandResponse: commandResult(projectID, result),
		ServiceID:       serviceID,
	})
}

func (s *Server) updateService(c *gin.Context) {
	var req updateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, apperrors.Wrap(apperrors.CodeValidation, "invalid request body", err))
		return
	}
	projectID := c.Param("id")
	serviceID := c.Param("serviceID")
	result, ok := s.execute(c, command.Command{
		ProjectID:  projectID,
		Type:       project.CommandTypeServiceUpdate,
		EntityType: "service",
		EntityID:   serviceID,
	}, project.ServiceUpdatePayload{
		ServiceID: serviceID,
		Fields:    req.Fields,
	})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, serviceCommandResponse{
		commandResponse: commandResult(projectID, result),
		ServiceID:       serviceID,
	})
}

func (s *Server) removeService(c *gin.Context) {
	projectID := c.Param("id")
	serviceID := c.Param("serviceID")
	result, ok := s.execute(c, command.Command{
		ProjectID:  projectID,
		Type:       project.CommandTypeServiceRemove,
		EntityType: "service",
		EntityID:   serviceID,
	}, project.ServiceRemovePayload{ServiceID: serviceID})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, serviceCommandResponse{
		commandResponse: commandResult(projectID, result),
		ServiceID:       serviceID,
	})
}
