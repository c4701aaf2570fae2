package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/skafu/skafu/internal/platform/errors"
	"github.com/skafu/skafu/internal/services/scaffold/domain/command"
)

type errorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// renderError maps a domain error onto the HTTP response. Errors without a
// domain code are hidden behind a generic 500 so internals do not leak.
func renderError(c *gin.Context, err error) {
	code := apperrors.CodeOf(err)
	if code == apperrors.CodeUnknown {
		c.JSON(http.StatusInternalServerError, errorResponse{
			Code:    string(apperrors.CodeUnknown),
			Message: "internal error",
		})
		return
	}
	resp := errorResponse{
		Code:    string(code),
		Message: err.Error(),
	}
	var domainErr *apperrors.Error
	if errors.As(err, &domainErr) && len(domainErr.Metadata) > 0 {
		resp.Details = domainErr.Metadata
	}
	c.JSON(code.HTTPStatus(), resp)
}

// renderRejection surfaces the first decision rejection. Rejection codes share
// the platform error taxonomy, so the HTTP mapping applies directly.
func renderRejection(c *gin.Context, rejection command.Rejection) {
	code := apperrors.Code(rejection.Code)
	c.JSON(code.HTTPStatus(), errorResponse{
		Code:    rejection.Code,
		Message: rejection.Message,
	})
}
