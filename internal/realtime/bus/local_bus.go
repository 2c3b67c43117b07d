package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/yungbote/cyclecoach-backend/internal/realtime"
)

// localBus is the single-process Bus used when no Redis is configured.
type localBus struct {
	mu       sync.RWMutex
	handlers []func(realtime.SSEMessage)
}

func NewLocalBus() Bus {
	return &localBus{}
}

func (b *localBus) Publish(ctx context.Context, msg realtime.SSEMessage) error {
	b.mu.RLock()
	handlers := append([]func(realtime.SSEMessage){}, b.handlers...)
	b.mu.RUnlock()
	for _, h := range handlers {
		h(msg)
	}
	return nil
}

func (b *localBus) StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error {
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}
	b.mu.Lock()
	b.handlers = append(b.handlers, onMsg)
	b.mu.Unlock()
	return nil
}

func (b *localBus) Close() error {
	b.mu.Lock()
	b.handlers = nil
	b.mu.Unlock()
	return nil
}
