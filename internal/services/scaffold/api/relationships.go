package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/skafu/skafu/internal/platform/errors"
	"github.com/skafu/skafu/internal/platform/id"
	"github.com/skafu/skafu/internal/services/scaffold/domain/command"
	"github.com/skafu/skafu/internal/services/scaffold/domain/project"
)

type establishRelationshipRequest struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
	Type     string `json:"type"`
}

type relationshipCommandResponse struct {
	commandResponse
	RelationshipID string `json:"relationship_id"`
}

func (s *Server) establishRelationship(c *gin.Context) {
	var req establishRelationshipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, apperrors.Wrap(apperrors.CodeValidation, "invalid request body", err))
		return
	}
	relationshipID, err := id.New()
	if err != nil {
		renderError(c, err)
		return
	}
	projectID := c.Param("id")
	result, ok := s.execute(c, command.Command{
		ProjectID:  projectID,
		Type:       project.CommandTypeRelationshipEstablish,
		EntityType: "relationship",
		EntityID:   relationshipID,
	}, project.RelationshipEstablishPayload{
		RelationshipID: relationshipID,
		SourceID:       req.SourceID,
		TargetID:       req.TargetID,
		Type:           req.Type,
	})
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, relationshipCommandResponse{
		commandResponse: commandResult(projectID, result),
		RelationshipID:  relationshipID,
	})
}

func (s *Server) removeRelationship(c *gin.Context) {
	projectID := c.Param("id")
	relationshipID := c.Param("relationshipID")
	result, ok := s.execute(c, command.Command{
		ProjectID:  projectID,
		Type:       project.CommandTypeRelationshipRemove,
		EntityType: "relationship",
		EntityID:   relationshipID,
	}, project.RelationshipRemovePayload{RelationshipID: relationshipID})
	if !ok {
		return
	}
	c.JSON(http.StatusOK, relationshipCommandResponse{
		commandResponse: commandResult(projectID, result),
		RelationshipID:  relationshipID,
	})
}
