package api

import (
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/skafu/skafu/internal/platform/errors"
)

const contextKeyActorID = "actor_id"

// identityMiddleware requires the caller identity forwarded by the identity
// collaborator in the X-User-ID header.
func identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := strings.TrimSpace(c.GetHeader("X-User-ID"))
		if actorID == "" {
			renderError(c, apperrors.New(apperrors.CodeUnauthorized, "caller identity is required"))
			c.Abort()
			return
		}
		c.Set(contextKeyActorID, actorID)
		c.Next()
	}
}

func actorID(c *gin.Context) string {
	return c.GetString(contextKeyActorID)
}
