package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperr "github.com/yungbote/cyclecoach-backend/internal/pkg/errors"
	"github.com/yungbote/cyclecoach-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
	// ActiveJob is set on 409 responses caused by another in-flight job.
	ActiveJob any `json:"active_job,omitempty"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondAPIError maps a service error through apierr. Internal errors are not
// echoed to the client.
func RespondAPIError(c *gin.Context, err error) {
	ae := apierr.From(err)
	if ae == nil {
		ae = apierr.New(http.StatusInternalServerError, "internal", nil)
	}
	env := ErrorEnvelope{Error: APIError{Message: ae.Error(), Code: ae.Code}}
	if ae.Status >= http.StatusInternalServerError {
		env.Error.Message = "internal error"
	}
	var ce *apperr.ConflictError
	if errors.As(err, &ce) && ce.Active != nil {
		env.ActiveJob = ce.Active
	}
	c.JSON(ae.Status, env)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
