package realtime

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
)

type SSEEvent string

const (
	SSEEventJobCreated  SSEEvent = "JobCreated"
	SSEEventJobProgress SSEEvent = "JobProgress"
	SSEEventJobDone     SSEEvent = "JobDone"
	SSEEventJobFailed   SSEEvent = "JobFailed"
	// SSEEventJobSnapshot carries a full poll-equivalent job snapshot.
	SSEEventJobSnapshot SSEEvent = "JobSnapshot"
)

type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

// UserChannel is the per-user channel every authenticated stream joins.
func UserChannel(userID uuid.UUID) string {
	return userID.String()
}

// GenerationChannel carries events for a single generation request.
func GenerationChannel(requestID uuid.UUID) string {
	return "generation:" + requestID.String()
}

// WriteSSE encodes msg as one server-sent event frame.
func WriteSSE(w io.Writer, msg SSEMessage) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, raw); err != nil {
		return err
	}
	return nil
}
