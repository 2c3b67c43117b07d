package realtime

import (
	"sync"

	"github.com/google/uuid"

	"github.com/yungbote/cyclecoach-backend/internal/platform/logger"
)

type SSEClient struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Channels map[string]bool
	Outbound chan SSEMessage
	done     chan struct{}
	once     sync.Once
	Logger   *logger.Logger

	// closed is guarded by SSEHub.mu.
	closed bool
}

// Done is closed when the client is torn down.
func (c *SSEClient) Done() <-chan struct{} {
	return c.done
}
