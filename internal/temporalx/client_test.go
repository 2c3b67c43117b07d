package temporalx

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestClampBackoff(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{10, time.Second},
	}
	for _, c := range cases {
		if got := clampBackoff(100*time.Millisecond, time.Second, c.attempt); got != c.want {
			t.Fatalf("attempt %d: got %v want %v", c.attempt, got, c.want)
		}
	}
	if got := clampBackoff(0, 0, 1); got != 250*time.Millisecond {
		t.Fatalf("default base: got %v", got)
	}
}

func TestIsRetryableRPC(t *testing.T) {
	if !isRetryableRPC(status.Error(codes.Unavailable, "connecting")) {
		t.Fatalf("unavailable should retry")
	}
	if isRetryableRPC(status.Error(codes.PermissionDenied, "nope")) {
		t.Fatalf("permission denied should not retry")
	}
	if !isRetryableRPC(context.DeadlineExceeded) {
		t.Fatalf("plain deadline should retry")
	}
	if isRetryableRPC(errors.New("boom")) || isRetryableRPC(nil) {
		t.Fatalf("unknown errors should not retry")
	}
}

func TestConfigEnabled(t *testing.T) {
	t.Setenv("TEMPORAL_ADDRESS", "")
	t.Setenv("TEMPORAL_NAMESPACE", "")
	cfg := LoadConfig()
	if cfg.Enabled() || cfg.Namespace != "cyclecoach" || cfg.TaskQueue != "cyclecoach" {
		t.Fatalf("defaults = %+v", cfg)
	}
	t.Setenv("TEMPORAL_ADDRESS", "localhost:7233")
	if !LoadConfig().Enabled() {
		t.Fatalf("address should enable temporal")
	}
}
