package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/cyclecoach-backend/internal/http/response"
	"github.com/yungbote/cyclecoach-backend/internal/platform/ctxutil"
	"github.com/yungbote/cyclecoach-backend/internal/platform/logger"
	"github.com/yungbote/cyclecoach-backend/internal/realtime"
	"github.com/yungbote/cyclecoach-backend/internal/services"
)

// RealtimeHandler serves the per-user event stream. Every stream joins the
// user channel; generation channels can be added per session.
type RealtimeHandler struct {
	log   *logger.Logger
	hub   *realtime.SSEHub
	queue services.GenerationQueue

	mu      sync.RWMutex
	clients map[uuid.UUID]*realtime.SSEClient // key: session id
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub, queue services.GenerationQueue) *RealtimeHandler {
	return &RealtimeHandler{
		log:     log.With("handler", "RealtimeHandler"),
		hub:     hub,
		queue:   queue,
		clients: make(map[uuid.UUID]*realtime.SSEClient),
	}
}

// GET /api/sse/stream
func (h *RealtimeHandler) SSEStream(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	sessionID := uuid.Nil
	if rd := ctxutil.GetRequestData(c.Request.Context()); rd != nil {
		sessionID = rd.SessionID
	}

	client := h.hub.NewSSEClient(userID)
	if sessionID != uuid.Nil {
		h.mu.Lock()
		// A reconnecting session replaces its previous stream.
		if existing, ok := h.clients[sessionID]; ok {
			h.hub.CloseClient(existing)
		}
		h.clients[sessionID] = client
		h.mu.Unlock()
	}
	h.hub.AddChannel(client, realtime.UserChannel(userID))
	h.log.Debug("SSE stream open", "user_id", userID, "session_id", sessionID, "client_id", client.ID)

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	if sessionID != uuid.Nil {
		h.mu.Lock()
		if h.clients[sessionID] == client {
			delete(h.clients, sessionID)
		}
		h.mu.Unlock()
	}
	h.hub.CloseClient(client)
}

type channelRequest struct {
	RequestID string `json:"request_id"`
}

// POST /api/sse/subscribe adds a generation channel the caller owns.
func (h *RealtimeHandler) SSESubscribe(c *gin.Context) {
	client, channel, ok := h.sessionChannel(c)
	if !ok {
		return
	}
	h.hub.AddChannel(client, channel)
	response.RespondOK(c, gin.H{"message": "subscribed", "channel": channel})
}

// POST /api/sse/unsubscribe
func (h *RealtimeHandler) SSEUnsubscribe(c *gin.Context) {
	client, channel, ok := h.sessionChannel(c)
	if !ok {
		return
	}
	h.hub.RemoveChannel(client, channel)
	response.RespondOK(c, gin.H{"message": "unsubscribed", "channel": channel})
}

func (h *RealtimeHandler) sessionChannel(c *gin.Context) (*realtime.SSEClient, string, bool) {
	userID, ok := requestUser(c)
	if !ok {
		return nil, "", false
	}
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.SessionID == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "missing_session", fmt.Errorf("token carries no session id"))
		return nil, "", false
	}
	var req channelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return nil, "", false
	}
	requestID, err := uuid.Parse(strings.TrimSpace(req.RequestID))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request_id", fmt.Errorf("request_id must be a uuid"))
		return nil, "", false
	}
	if _, err := h.queue.Poll(c.Request.Context(), userID, requestID); err != nil {
		response.RespondAPIError(c, err)
		return nil, "", false
	}

	h.mu.RLock()
	client, exists := h.clients[rd.SessionID]
	h.mu.RUnlock()
	if !exists {
		response.RespondError(c, http.StatusConflict, "no_stream", fmt.Errorf("no active SSE connection for this session"))
		return nil, "", false
	}
	return client, realtime.GenerationChannel(requestID), true
}
