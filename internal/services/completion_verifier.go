package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	apperr "github.com/yungbote/cyclecoach-backend/internal/pkg/errors"
	"github.com/yungbote/cyclecoach-backend/internal/platform/logger"
)

const (
	DefaultVerifyMaxAttempts = 10
	DefaultVerifyInterval    = 500 * time.Millisecond
)

// CompletionVerifier waits for a produced artifact to show up as the user's
// active plan. Projection lag is expected after Complete, so callers poll this
// before navigating.
type CompletionVerifier interface {
	AwaitVisibility(ctx context.Context, userID, artifactID uuid.UUID, maxAttempts int, interval time.Duration) bool
}

type completionVerifier struct {
	log    *logger.Logger
	reader ActivePlanReader
}

func NewCompletionVerifier(baseLog *logger.Logger, reader ActivePlanReader) CompletionVerifier {
	return &completionVerifier{
		log:    baseLog.With("service", "CompletionVerifier"),
		reader: reader,
	}
}

// AwaitVisibility never returns an error: a timeout is logged and reported as false.
func (v *completionVerifier) AwaitVisibility(ctx context.Context, userID, artifactID uuid.UUID, maxAttempts int, interval time.Duration) bool {
	if maxAttempts <= 0 {
		maxAttempts = DefaultVerifyMaxAttempts
	}
	if interval <= 0 {
		interval = DefaultVerifyInterval
	}
	if ctx == nil {
		ctx = context.Background()
	}

	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		current, err := v.reader.ActivePlanID(ctx, userID)
		if err != nil {
			v.log.Debug("Active plan read failed", "user_id", userID, "attempt", attempt, "error", err)
		} else if current != nil && *current == artifactID {
			return true
		}
		if attempt == maxAttempts {
			break
		}
		timer.Reset(interval)
		select {
		case <-ctx.Done():
			v.log.Warn("Artifact visibility wait aborted",
				"user_id", userID,
				"artifact_id", artifactID,
				"attempts", attempt,
				"error", ctx.Err(),
			)
			return false
		case <-timer.C:
		}
	}
	v.log.Warn("Artifact never became visible",
		"user_id", userID,
		"artifact_id", artifactID,
		"attempts", maxAttempts,
		"error", apperr.ErrVerificationTimeout,
	)
	return false
}
