package generationrun

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/cyclecoach-backend/internal/data/repos"
	"github.com/yungbote/cyclecoach-backend/internal/data/repos/testutil"
	types "github.com/yungbote/cyclecoach-backend/internal/domain"
	"github.com/yungbote/cyclecoach-backend/internal/jobs/runtime"
	"github.com/yungbote/cyclecoach-backend/internal/services"
)

type succeedHandler struct{ artifact uuid.UUID }

func (succeedHandler) Type() string { return types.GenerationKindSplit }
func (h succeedHandler) Run(jc *runtime.Context) error {
	if err := jc.Progress("drafting", 40); err != nil {
		return err
	}
	return jc.Succeed(h.artifact)
}

func newActivities(t *testing.T) (*Activities, services.GenerationQueue) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	q := services.NewGenerationQueue(db, log, repos.NewGenerationJobRepo(db, log), nil, nil, 0)
	reg := runtime.NewRegistry()
	if err := reg.Register(succeedHandler{artifact: uuid.New()}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return &Activities{Log: log, Queue: q, Registry: reg}, q
}

func TestActivityRunsJob(t *testing.T) {
	acts, q := newActivities(t)
	job, err := q.Start(context.Background(), services.StartRequest{UserID: uuid.New(), RequestID: uuid.New()})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	env.RegisterActivityWithOptions(acts.Run, activity.RegisterOptions{Name: ActivityRun})

	val, err := env.ExecuteActivity(ActivityRun, job.RequestID.String())
	if err != nil {
		t.Fatalf("ExecuteActivity: %v", err)
	}
	var res RunResult
	if err := val.Get(&res); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if res.Status != types.GenerationStatusCompleted {
		t.Fatalf("result = %+v", res)
	}

	// A second delivery must not run the handler again.
	val, err = env.ExecuteActivity(ActivityRun, job.RequestID.String())
	if err != nil {
		t.Fatalf("second ExecuteActivity: %v", err)
	}
	_ = val.Get(&res)
	if res.Status != types.GenerationStatusCompleted || res.Phase != "completed" {
		t.Fatalf("second result = %+v", res)
	}
}

func TestActivityRejectsBadRequestID(t *testing.T) {
	acts, _ := newActivities(t)
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	env.RegisterActivityWithOptions(acts.Run, activity.RegisterOptions{Name: ActivityRun})

	if _, err := env.ExecuteActivity(ActivityRun, "not-a-uuid"); err == nil {
		t.Fatalf("expected an error for a malformed request_id")
	}
}

func TestWorkflowReportsFailedJobs(t *testing.T) {
	cases := []struct {
		status  string
		wantErr bool
	}{
		{types.GenerationStatusCompleted, false},
		{types.GenerationStatusFailed, true},
	}
	for _, c := range cases {
		var ts testsuite.WorkflowTestSuite
		env := ts.NewTestWorkflowEnvironment()
		env.RegisterWorkflowWithOptions(Workflow, workflow.RegisterOptions{Name: WorkflowName})
		status := c.status
		env.RegisterActivityWithOptions(func(ctx context.Context, requestID string) (RunResult, error) {
			return RunResult{RequestID: requestID, Status: status, FailureKind: types.FailureKindWorkerError}, nil
		}, activity.RegisterOptions{Name: ActivityRun})

		env.ExecuteWorkflow(WorkflowName, uuid.NewString())
		if !env.IsWorkflowCompleted() {
			t.Fatalf("%s: workflow did not complete", c.status)
		}
		if got := env.GetWorkflowError() != nil; got != c.wantErr {
			t.Fatalf("%s: workflow error = %v", c.status, env.GetWorkflowError())
		}
	}
}
