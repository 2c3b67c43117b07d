package generationrun

import "github.com/yungbote/cyclecoach-backend/internal/services"

const (
	WorkflowName = services.GenerationWorkflowName
	ActivityRun  = "generation_run_execute"
)

type RunResult struct {
	RequestID   string `json:"request_id"`
	Status      string `json:"status"`
	Phase       string `json:"phase,omitempty"`
	FailureKind string `json:"failure_kind,omitempty"`
}
