package bus

import (
	"context"

	"github.com/yungbote/cyclecoach-backend/internal/realtime"
)

// Bus fans SSE messages out across API instances so a worker on one node can
// reach a stream held open on another.
type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}
