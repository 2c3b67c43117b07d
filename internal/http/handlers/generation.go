package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/yungbote/cyclecoach-backend/internal/domain"
	"github.com/yungbote/cyclecoach-backend/internal/http/response"
	"github.com/yungbote/cyclecoach-backend/internal/platform/logger"
	"github.com/yungbote/cyclecoach-backend/internal/realtime"
	"github.com/yungbote/cyclecoach-backend/internal/services"
)

type GenerationHandlerDeps struct {
	Log      *logger.Logger
	Queue    services.GenerationQueue
	Verifier services.CompletionVerifier
	Hub      *realtime.SSEHub

	VerifyMaxAttempts int
	VerifyInterval    time.Duration
	// StreamPollInterval bounds how long a stream goes without re-reading the job.
	StreamPollInterval time.Duration
}

type GenerationHandler struct {
	log      *logger.Logger
	queue    services.GenerationQueue
	verifier services.CompletionVerifier
	hub      *realtime.SSEHub

	verifyMaxAttempts int
	verifyInterval    time.Duration
	streamPoll        time.Duration
}

func NewGenerationHandler(deps GenerationHandlerDeps) *GenerationHandler {
	h := &GenerationHandler{
		log:               deps.Log.With("handler", "GenerationHandler"),
		queue:             deps.Queue,
		verifier:          deps.Verifier,
		hub:               deps.Hub,
		verifyMaxAttempts: deps.VerifyMaxAttempts,
		verifyInterval:    deps.VerifyInterval,
		streamPoll:        deps.StreamPollInterval,
	}
	if h.verifyMaxAttempts <= 0 {
		h.verifyMaxAttempts = services.DefaultVerifyMaxAttempts
	}
	if h.verifyInterval <= 0 {
		h.verifyInterval = services.DefaultVerifyInterval
	}
	if h.streamPoll <= 0 {
		h.streamPoll = 2 * time.Second
	}
	return h
}

type startGenerationRequest struct {
	RequestID    string         `json:"request_id"`
	Kind         string         `json:"kind"`
	OwnerContext string         `json:"owner_context"`
	Input        datatypes.JSON `json:"input"`
}

// POST /api/generation-jobs
func (h *GenerationHandler) Start(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	var req startGenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	requestID, err := uuid.Parse(strings.TrimSpace(req.RequestID))
	if err != nil || requestID == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request_id", fmt.Errorf("request_id must be a client-generated uuid"))
		return
	}

	job, err := h.queue.Start(c.Request.Context(), services.StartRequest{
		UserID:       userID,
		RequestID:    requestID,
		Kind:         req.Kind,
		OwnerContext: req.OwnerContext,
		Input:        req.Input,
	})
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job": job})
}

// GET /api/generation-jobs/active
func (h *GenerationHandler) Resume(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	job, err := h.queue.Resume(c.Request.Context(), userID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}

// GET /api/generation-jobs/:request_id
func (h *GenerationHandler) Poll(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	requestID, ok := requestIDParam(c)
	if !ok {
		return
	}
	snap, err := h.queue.Poll(c.Request.Context(), userID, requestID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, snap)
}

// POST /api/generation-jobs/:request_id/cancel
func (h *GenerationHandler) Cancel(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	requestID, ok := requestIDParam(c)
	if !ok {
		return
	}
	job, err := h.queue.Cancel(c.Request.Context(), requestID, userID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}

type awaitVisibilityRequest struct {
	MaxAttempts int `json:"max_attempts"`
	IntervalMS  int `json:"interval_ms"`
}

// POST /api/generation-jobs/:request_id/await-visibility
//
// Blocks for at most max_attempts*interval. visible=false is not an error: the
// client proceeds and the destination view re-fetches.
func (h *GenerationHandler) AwaitVisibility(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	requestID, ok := requestIDParam(c)
	if !ok {
		return
	}
	var req awaitVisibilityRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
			return
		}
	}

	snap, err := h.queue.Poll(c.Request.Context(), userID, requestID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	job := snap.Job
	if job.Status != types.GenerationStatusCompleted || job.ProducedArtifactID == nil {
		response.RespondError(c, http.StatusConflict, "invalid_transition", fmt.Errorf("generation job is %s", job.Status))
		return
	}
	artifactID := *job.ProducedArtifactID

	// Workouts are written before the job completes and have no cached projection.
	if job.Kind != types.GenerationKindSplit {
		response.RespondOK(c, gin.H{"visible": true, "artifact_id": artifactID, "kind": job.Kind})
		return
	}

	maxAttempts := h.verifyMaxAttempts
	if req.MaxAttempts > 0 && req.MaxAttempts < maxAttempts {
		maxAttempts = req.MaxAttempts
	}
	interval := h.verifyInterval
	if req.IntervalMS > 0 {
		if d := time.Duration(req.IntervalMS) * time.Millisecond; d < interval {
			interval = d
		}
	}
	visible := h.verifier.AwaitVisibility(c.Request.Context(), userID, artifactID, maxAttempts, interval)
	response.RespondOK(c, gin.H{"visible": visible, "artifact_id": artifactID, "kind": job.Kind})
}

// GET /api/generation-jobs/:request_id/stream
//
// Emits a poll-equivalent snapshot on every job event for the request, and at
// least every StreamPollInterval, until the job is terminal or stale or the
// client disconnects. Disconnecting never touches the job.
func (h *GenerationHandler) Stream(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	requestID, ok := requestIDParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	snap, err := h.queue.Poll(ctx, userID, requestID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}

	flusher, ok := realtime.PrepareStream(c.Writer)
	if !ok {
		return
	}
	channel := realtime.GenerationChannel(requestID)
	var events <-chan realtime.SSEMessage
	if h.hub != nil {
		client := h.hub.NewSSEClient(userID)
		h.hub.AddChannel(client, channel)
		defer h.hub.CloseClient(client)
		events = client.Outbound
	}
	c.Status(http.StatusOK)

	write := func(s *services.JobSnapshot) bool {
		if err := realtime.WriteSSE(c.Writer, realtime.SSEMessage{
			Channel: channel,
			Event:   realtime.SSEEventJobSnapshot,
			Data:    s,
		}); err != nil {
			h.log.Debug("Stream write failed", "request_id", requestID, "error", err)
			return false
		}
		flusher.Flush()
		return !s.Job.IsTerminal() && !s.Stale
	}
	if !write(snap) {
		return
	}

	ticker := time.NewTicker(h.streamPoll)
	defer ticker.Stop()
	last := snap.Job.UpdatedAt
	for {
		select {
		case <-ctx.Done():
			return
		case _, open := <-events:
			if !open {
				return
			}
		case <-ticker.C:
		}
		next, err := h.queue.Poll(ctx, userID, requestID)
		if err != nil {
			h.log.Warn("Stream poll failed", "request_id", requestID, "error", err)
			return
		}
		changed := !next.Job.UpdatedAt.Equal(last) || next.Stale != snap.Stale
		snap, last = next, next.Job.UpdatedAt
		if !changed {
			continue
		}
		if !write(next) {
			return
		}
	}
}
