package api

import (
	"encoding/json"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/skafu/skafu/internal/platform/errors"
	"github.com/skafu/skafu/internal/platform/id"
	"github.com/skafu/skafu/internal/services/scaffold/domain/command"
	"github.com/skafu/skafu/internal/services/scaffold/domain/engine"
)

type commandResponse struct {
	ProjectID string `json:"project_id"`
	Version   uint64 `json:"version"`
	Status    string `json:"status"`
}

// execute marshals the payload, runs the command, and renders any error or
// rejection. The boolean reports whether the caller should keep going.
func (s *Server) execute(c *gin.Context, cmd command.Command, payload any) (engine.Result, bool) {
	raw, err := json.Marshal(payload)
	if err != nil {
		renderError(c, apperrors.Wrap(apperrors.CodeValidation, "encode command payload", err))
		return engine.Result{}, false
	}
	cmd.ActorID = actorID(c)
	cmd.RequestID = requestID(c)
	cmd.PayloadJSON = raw

	result, err := s.Engine.Execute(c.Request.Context(), cmd)
	if err != nil {
		renderError(c, err)
		return engine.Result{}, false
	}
	if len(result.Decision.Rejections) > 0 {
		renderRejection(c, result.Decision.Rejections[0])
		return engine.Result{}, false
	}
	s.applyProjection(c, result)
	return result, true
}

// applyProjection folds stored events into the read model inline so API reads
// observe their own writes. Failures are logged, not surfaced: the journal is
// the source of truth and the catch-up worker replays the tail on its next
// pass.
func (s *Server) applyProjection(c *gin.Context, result engine.Result) {
	if s.Projection == nil {
		return
	}
	for _, evt := range result.Decision.Events {
		if _, err := s.Projection.Apply(c.Request.Context(), evt); err != nil {
			log.Printf("apply projection for %s seq %d: %v", evt.ProjectID, evt.Seq, err)
			return
		}
	}
}

func requestID(c *gin.Context) string {
	if rid := strings.TrimSpace(c.GetHeader("X-Request-ID")); rid != "" {
		return rid
	}
	return id.MustNew()
}

func commandResult(projectID string, result engine.Result) commandResponse {
	return commandResponse{
		ProjectID: projectID,
		Version:   result.Version,
		Status:    string(result.State.Status),
	}
}
