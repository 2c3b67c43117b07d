package generation

import (
	"fmt"

	types "github.com/yungbote/cyclecoach-backend/internal/domain"
	"github.com/yungbote/cyclecoach-backend/internal/jobs/runtime"
	"github.com/yungbote/cyclecoach-backend/internal/services"
)

// Handler adapts the generation runner to one job kind.
type Handler struct {
	kind   string
	runner services.GenerationRunner
}

func New(kind string, runner services.GenerationRunner) *Handler {
	return &Handler{kind: kind, runner: runner}
}

func (h *Handler) Type() string { return h.kind }

func (h *Handler) Run(jc *runtime.Context) error {
	if jc == nil || jc.Job == nil {
		return fmt.Errorf("generation: missing job")
	}
	return h.runner.Run(jc.Ctx, jc.Job)
}

// Register wires every generation kind to runner.
func Register(reg *runtime.Registry, runner services.GenerationRunner) error {
	for _, kind := range []string{types.GenerationKindSplit, types.GenerationKindWorkout} {
		if err := reg.Register(New(kind, runner)); err != nil {
			return err
		}
	}
	return nil
}
