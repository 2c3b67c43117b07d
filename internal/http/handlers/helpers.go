package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/cyclecoach-backend/internal/http/response"
	"github.com/yungbote/cyclecoach-backend/internal/platform/ctxutil"
)

// requestUser writes 401 and returns false when the request is unauthenticated.
func requestUser(c *gin.Context) (uuid.UUID, bool) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("not authenticated"))
		return uuid.Nil, false
	}
	return rd.UserID, true
}

func requestIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("request_id"))
	if err != nil || id == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request_id", fmt.Errorf("request_id must be a uuid"))
		return uuid.Nil, false
	}
	return id, true
}
