package bus

import (
	"context"
	"testing"

	"github.com/yungbote/cyclecoach-backend/internal/realtime"
)

func TestLocalBusForwards(t *testing.T) {
	b := NewLocalBus()
	var got []realtime.SSEMessage
	if err := b.StartForwarder(context.Background(), func(m realtime.SSEMessage) { got = append(got, m) }); err != nil {
		t.Fatalf("StartForwarder: %v", err)
	}
	_ = b.Publish(context.Background(), realtime.SSEMessage{Channel: "u", Event: realtime.SSEEventJobProgress})
	_ = b.Publish(context.Background(), realtime.SSEMessage{Channel: "u", Event: realtime.SSEEventJobDone})
	if len(got) != 2 || got[1].Event != realtime.SSEEventJobDone {
		t.Fatalf("unexpected forwarded messages %+v", got)
	}
	_ = b.Close()
	_ = b.Publish(context.Background(), realtime.SSEMessage{Channel: "u"})
	if len(got) != 2 {
		t.Fatalf("closed bus should not forward")
	}
	if err := b.StartForwarder(context.Background(), nil); err == nil {
		t.Fatalf("nil callback should be rejected")
	}
}
