package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	types "github.com/yungbote/cyclecoach-backend/internal/domain"
	"github.com/yungbote/cyclecoach-backend/internal/platform/ctxutil"
	"github.com/yungbote/cyclecoach-backend/internal/services"
)

/*
Context is the execution handle for one claimed generation job.
It wraps:
	- the run's context.Context (cancellation, trace data),
	- the in-memory job row as claimed,
	- the queue, which is the only sanctioned way to report progress or end the job.
Handlers never write generation_job directly.
*/
type Context struct {
	Ctx   context.Context
	Job   *types.GenerationJob
	Queue services.GenerationQueue

	input map[string]any
}

func NewContext(ctx context.Context, job *types.GenerationJob, queue services.GenerationQueue) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	c := &Context{Ctx: ctx, Job: job, Queue: queue}
	_ = c.decodeInput()
	c.applyTraceData()
	return c
}

// decodeInput leaves an empty map on malformed input; handlers validate what they need.
func (c *Context) decodeInput() error {
	c.input = map[string]any{}
	if c.Job == nil || len(c.Job.Input) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(c.Job.Input, &m); err != nil {
		return err
	}
	if m != nil {
		c.input = m
	}
	return nil
}

func (c *Context) applyTraceData() {
	if c.Job == nil {
		return
	}
	traceID := strings.TrimSpace(fmt.Sprint(c.Input()["trace_id"]))
	if traceID == "<nil>" {
		traceID = ""
	}
	c.Ctx = ctxutil.WithTraceData(c.Ctx, &ctxutil.TraceData{
		TraceID:   traceID,
		RequestID: c.Job.RequestID.String(),
	})
}

// Input never returns nil.
func (c *Context) Input() map[string]any {
	if c.input == nil {
		c.input = map[string]any{}
	}
	return c.input
}

func (c *Context) InputUUID(key string) (uuid.UUID, bool) {
	v, ok := c.Input()[key]
	if !ok || v == nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(fmt.Sprint(v))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

func (c *Context) requestID() uuid.UUID {
	if c == nil || c.Job == nil {
		return uuid.Nil
	}
	return c.Job.RequestID
}

// Progress is a no-op once the job is terminal.
func (c *Context) Progress(phase string, pct int) error {
	if c == nil || c.Queue == nil {
		return nil
	}
	return c.Queue.ReportProgress(c.Ctx, c.requestID(), phase, pct)
}

// Fail records a worker-side failure. Failing an already failed job is a no-op.
func (c *Context) Fail(failureKind string, err error) error {
	if c == nil || c.Queue == nil {
		return nil
	}
	msg := "generation failed"
	if err != nil {
		msg = err.Error()
	}
	ctx := c.Ctx
	if ctx.Err() != nil {
		ctx = context.WithoutCancel(ctx)
	}
	return c.Queue.FailWithKind(ctx, c.requestID(), failureKind, msg)
}

func (c *Context) Succeed(artifactID uuid.UUID) error {
	if c == nil || c.Queue == nil {
		return nil
	}
	return c.Queue.Complete(c.Ctx, c.requestID(), artifactID)
}
