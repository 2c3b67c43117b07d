package shutdown

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/yungbote/cyclecoach-backend/internal/platform/envutil"
)

func NotifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// Grace is how long in-flight requests and generation runs get to finish.
func Grace() time.Duration {
	return envutil.Duration("SHUTDOWN_GRACE", 30*time.Second)
}
