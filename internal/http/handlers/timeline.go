package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/cyclecoach-backend/internal/http/response"
	apperr "github.com/yungbote/cyclecoach-backend/internal/pkg/errors"
	"github.com/yungbote/cyclecoach-backend/internal/services"
)

type TimelineHandler struct {
	timeline services.TimelineService
}

func NewTimelineHandler(timeline services.TimelineService) *TimelineHandler {
	return &TimelineHandler{timeline: timeline}
}

// GET /api/timeline
//
// A user without an active plan gets {"timeline": null}, not a 404.
func (h *TimelineHandler) GetTimeline(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	tl, err := h.timeline.GetTimeline(c.Request.Context(), userID)
	if errors.Is(err, apperr.ErrNotFound) {
		response.RespondOK(c, gin.H{"timeline": nil})
		return
	}
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"timeline": tl})
}
