package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yungbote/cyclecoach-backend/internal/observability"
	types "github.com/yungbote/cyclecoach-backend/internal/domain"
	apperr "github.com/yungbote/cyclecoach-backend/internal/pkg/errors"
	"github.com/yungbote/cyclecoach-backend/internal/platform/logger"
	"github.com/yungbote/cyclecoach-backend/internal/services"
)

// Execute runs job through its registered handler. Panics and handler errors
// end the job as a worker failure; a job that already reached a terminal
// status keeps it.
func Execute(ctx context.Context, log *logger.Logger, registry *Registry, queue services.GenerationQueue, job *types.GenerationJob) (err error) {
	if job == nil {
		return nil
	}
	jc := NewContext(ctx, job, queue)
	start := time.Now()
	outcome := "ok"
	defer func() {
		observability.Current().ObserveGeneration(job.Kind, outcome, time.Since(start))
	}()

	h, ok := registry.Get(job.Kind)
	if !ok {
		outcome = "missing_handler"
		missing := &MissingHandlerError{Kind: job.Kind}
		log.Warn("No handler registered for kind", "kind", job.Kind, "request_id", job.RequestID)
		if ferr := jc.Fail(types.FailureKindWorkerError, missing); ferr != nil {
			log.Warn("Recording dispatch failure failed", "request_id", job.RequestID, "error", ferr)
		}
		return missing
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("Job handler panic", "request_id", job.RequestID, "kind", job.Kind, "panic", r)
			outcome = "panic"
			err = &PanicError{Val: r}
			if ferr := jc.Fail(types.FailureKindWorkerError, err); ferr != nil {
				log.Warn("Recording panic failed", "request_id", job.RequestID, "error", ferr)
			}
		}
	}()

	if runErr := h.Run(jc); runErr != nil {
		outcome = "error"
		// Handlers record their own failures; this is the safety net.
		if ferr := jc.Fail(types.FailureKindWorkerError, runErr); ferr != nil && !errors.Is(ferr, apperr.ErrInvalidTransition) {
			log.Warn("Recording handler failure failed", "request_id", job.RequestID, "error", ferr)
		}
		return runErr
	}
	return nil
}

type MissingHandlerError struct{ Kind string }

func (e *MissingHandlerError) Error() string { return "no handler registered for kind=" + e.Kind }

type PanicError struct{ Val any }

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Val) }
