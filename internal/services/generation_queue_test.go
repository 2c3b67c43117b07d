package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/cyclecoach-backend/internal/data/repos"
	"github.com/yungbote/cyclecoach-backend/internal/data/repos/testutil"
	types "github.com/yungbote/cyclecoach-backend/internal/domain"
	apperr "github.com/yungbote/cyclecoach-backend/internal/pkg/errors"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) add(ev string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) JobCreated(job *types.GenerationJob)  { n.add("created") }
func (n *recordingNotifier) JobProgress(job *types.GenerationJob) { n.add("progress:" + job.Phase) }
func (n *recordingNotifier) JobFailed(job *types.GenerationJob)   { n.add("failed") }
func (n *recordingNotifier) JobDone(job *types.GenerationJob)     { n.add("done") }

func (n *recordingNotifier) count(ev string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e == ev {
			c++
		}
	}
	return c
}

type failingDispatcher struct{ err error }

func (d failingDispatcher) Dispatch(ctx context.Context, job *types.GenerationJob) error { return d.err }

func newTestQueue(t *testing.T, dispatch GenerationDispatcher) (GenerationQueue, *gorm.DB, *recordingNotifier) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	notify := &recordingNotifier{}
	q := NewGenerationQueue(db, log, repos.NewGenerationJobRepo(db, log), notify, dispatch, 0)
	return q, db, notify
}

func startJob(t *testing.T, q GenerationQueue, userID, requestID uuid.UUID) *types.GenerationJob {
	t.Helper()
	job, err := q.Start(context.Background(), StartRequest{UserID: userID, RequestID: requestID, Kind: types.GenerationKindSplit})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return job
}

func TestStartIsIdempotentPerRequestID(t *testing.T) {
	q, db, notify := newTestQueue(t, nil)
	userID, requestID := uuid.New(), uuid.New()

	first := startJob(t, q, userID, requestID)
	if first.Status != types.GenerationStatusPending {
		t.Fatalf("new job status = %q, want pending", first.Status)
	}
	second := startJob(t, q, userID, requestID)
	if second.ID != first.ID {
		t.Fatalf("retry created a new job: %s vs %s", second.ID, first.ID)
	}

	var n int64
	if err := db.Model(&types.GenerationJob{}).Where("request_id = ?", requestID).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("rows for request_id = %d, want 1", n)
	}
	if got := notify.count("created"); got != 1 {
		t.Fatalf("created events = %d, want 1", got)
	}

	_, err := q.Start(context.Background(), StartRequest{UserID: uuid.New(), RequestID: requestID})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("foreign user reusing request_id: err = %v, want conflict", err)
	}
}

func TestStartRejectsSecondActiveJob(t *testing.T) {
	q, _, _ := newTestQueue(t, nil)
	userID := uuid.New()
	first := startJob(t, q, userID, uuid.New())

	_, err := q.Start(context.Background(), StartRequest{UserID: userID, RequestID: uuid.New()})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
	var ce *apperr.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ConflictError, got %T", err)
	}
	active, ok := ce.Active.(*types.GenerationJob)
	if !ok || active.RequestID != first.RequestID {
		t.Fatalf("conflict should carry the active job %s, got %#v", first.RequestID, ce.Active)
	}

	// Another user is unaffected.
	startJob(t, q, uuid.New(), uuid.New())
}

func TestStaleJobDoesNotBlockStart(t *testing.T) {
	q, db, _ := newTestQueue(t, nil)
	ctx := context.Background()
	userID := uuid.New()
	stale := testutil.SeedGenerationJob(t, ctx, db, userID, types.GenerationStatusInProgress, time.Now().UTC().Add(-11*time.Minute))

	resumed, err := q.Resume(ctx, userID)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if resumed != nil {
		t.Fatalf("stale job must not be resumable, got %s", resumed.RequestID)
	}

	fresh := startJob(t, q, userID, uuid.New())
	resumed, err = q.Resume(ctx, userID)
	if err != nil || resumed == nil || resumed.ID != fresh.ID {
		t.Fatalf("Resume = %#v err=%v, want %s", resumed, err, fresh.ID)
	}

	snap, err := q.Poll(ctx, userID, stale.RequestID)
	if err != nil {
		t.Fatalf("Poll stale: %v", err)
	}
	if !snap.Stale || snap.Job.Status != types.GenerationStatusInProgress {
		t.Fatalf("stale snapshot = %+v, want stale in_progress untouched", snap)
	}
}

func TestCancelLeavesStaleJobUntouched(t *testing.T) {
	q, db, notify := newTestQueue(t, nil)
	ctx := context.Background()
	userID := uuid.New()
	stale := testutil.SeedGenerationJob(t, ctx, db, userID, types.GenerationStatusInProgress, time.Now().UTC().Add(-11*time.Minute))

	got, err := q.Cancel(ctx, stale.RequestID, userID)
	if err != nil {
		t.Fatalf("Cancel stale: %v", err)
	}
	if got.Status != types.GenerationStatusInProgress || got.ErrorMessage != "" {
		t.Fatalf("stale job mutated by cancel: status=%s error=%q", got.Status, got.ErrorMessage)
	}
	if n := notify.count("failed"); n != 0 {
		t.Fatalf("failed events = %d, want 0", n)
	}
}

func TestProgressMovesPendingToInProgress(t *testing.T) {
	q, _, notify := newTestQueue(t, nil)
	ctx := context.Background()
	userID := uuid.New()
	job := startJob(t, q, userID, uuid.New())

	if err := q.ReportProgress(ctx, job.RequestID, "drafting", 150); err != nil {
		t.Fatalf("ReportProgress: %v", err)
	}
	got, _ := q.Get(ctx, job.RequestID)
	if got.Status != types.GenerationStatusInProgress || got.Progress != 100 || got.Phase != "drafting" {
		t.Fatalf("after progress: status=%s progress=%d phase=%s", got.Status, got.Progress, got.Phase)
	}
	if got.StartedAt == nil {
		t.Fatalf("started_at should be set on first progress")
	}
	startedAt := *got.StartedAt

	if err := q.ReportProgress(ctx, job.RequestID, "validating", -3); err != nil {
		t.Fatalf("ReportProgress: %v", err)
	}
	got, _ = q.Get(ctx, job.RequestID)
	if got.Progress != 0 || !got.StartedAt.Equal(startedAt) {
		t.Fatalf("second progress: progress=%d started_at=%v want 0 and %v", got.Progress, got.StartedAt, startedAt)
	}
	if notify.count("progress:validating") != 1 {
		t.Fatalf("expected one progress event for validating, got %v", notify.events)
	}

	if err := q.ReportProgress(ctx, uuid.New(), "x", 1); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("progress on unknown job: err = %v, want not found", err)
	}
}

func TestTerminalJobsAreSticky(t *testing.T) {
	q, _, notify := newTestQueue(t, nil)
	ctx := context.Background()
	userID := uuid.New()
	job := startJob(t, q, userID, uuid.New())

	if err := q.Complete(ctx, job.RequestID, uuid.New()); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Fatalf("complete from pending: err = %v, want invalid transition", err)
	}

	if err := q.ReportProgress(ctx, job.RequestID, "drafting", 40); err != nil {
		t.Fatalf("ReportProgress: %v", err)
	}
	artifact := uuid.New()
	if err := q.Complete(ctx, job.RequestID, artifact); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if err := q.ReportProgress(ctx, job.RequestID, "late", 10); err != nil {
		t.Fatalf("progress on terminal job should be a no-op, got %v", err)
	}
	if err := q.Fail(ctx, job.RequestID, "boom"); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Fatalf("fail after complete: err = %v, want invalid transition", err)
	}
	if err := q.Complete(ctx, job.RequestID, uuid.New()); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Fatalf("second complete: err = %v, want invalid transition", err)
	}
	canceled, err := q.Cancel(ctx, job.RequestID, userID)
	if err != nil {
		t.Fatalf("cancel of completed job: %v", err)
	}

	got, _ := q.Get(ctx, job.RequestID)
	if got.Status != types.GenerationStatusCompleted || got.Progress != 100 || got.Phase != "completed" {
		t.Fatalf("completed job mutated: %+v", got)
	}
	if got.ProducedArtifactID == nil || *got.ProducedArtifactID != artifact {
		t.Fatalf("produced artifact = %v, want %s", got.ProducedArtifactID, artifact)
	}
	if canceled.Status != types.GenerationStatusCompleted {
		t.Fatalf("cancel should report the completed job, got %s", canceled.Status)
	}
	if notify.count("done") != 1 || notify.count("failed") != 0 {
		t.Fatalf("events = %v", notify.events)
	}
}

func TestCancelFreesTheSlotAndBeatsLateCompletion(t *testing.T) {
	q, _, _ := newTestQueue(t, nil)
	ctx := context.Background()
	userID := uuid.New()
	job := startJob(t, q, userID, uuid.New())
	if err := q.ReportProgress(ctx, job.RequestID, "drafting", 30); err != nil {
		t.Fatalf("ReportProgress: %v", err)
	}

	if _, err := q.Cancel(ctx, job.RequestID, uuid.New()); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("cancel by stranger: err = %v, want not found", err)
	}

	canceled, err := q.Cancel(ctx, job.RequestID, userID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if canceled.Status != types.GenerationStatusFailed ||
		canceled.ErrorMessage != types.CancelReason ||
		canceled.FailureKind != types.FailureKindUserCanceled {
		t.Fatalf("canceled job = %+v", canceled)
	}

	if err := q.Complete(ctx, job.RequestID, uuid.New()); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Fatalf("complete after cancel: err = %v, want invalid transition", err)
	}
	if err := q.Fail(ctx, job.RequestID, "worker gave up"); err != nil {
		t.Fatalf("fail on failed job should be idempotent, got %v", err)
	}
	got, _ := q.Get(ctx, job.RequestID)
	if got.ErrorMessage != types.CancelReason {
		t.Fatalf("idempotent fail overwrote reason: %q", got.ErrorMessage)
	}

	active, err := q.Resume(ctx, userID)
	if err != nil || active != nil {
		t.Fatalf("Resume after cancel = %#v err=%v, want none", active, err)
	}
	startJob(t, q, userID, uuid.New())
}

func TestConcurrentCompleteAndCancelHaveOneWinner(t *testing.T) {
	q, _, _ := newTestQueue(t, nil)
	ctx := context.Background()
	userID := uuid.New()
	job := startJob(t, q, userID, uuid.New())
	if err := q.ReportProgress(ctx, job.RequestID, "saving", 90); err != nil {
		t.Fatalf("ReportProgress: %v", err)
	}

	var (
		wg          sync.WaitGroup
		completeErr error
		cancelErr   error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		completeErr = q.Complete(ctx, job.RequestID, uuid.New())
	}()
	go func() {
		defer wg.Done()
		_, cancelErr = q.Cancel(ctx, job.RequestID, userID)
	}()
	wg.Wait()

	if cancelErr != nil {
		t.Fatalf("Cancel: %v", cancelErr)
	}
	got, _ := q.Get(ctx, job.RequestID)
	switch got.Status {
	case types.GenerationStatusCompleted:
		if completeErr != nil {
			t.Fatalf("completed but Complete returned %v", completeErr)
		}
	case types.GenerationStatusFailed:
		if !errors.Is(completeErr, apperr.ErrInvalidTransition) {
			t.Fatalf("canceled but Complete returned %v", completeErr)
		}
		if got.ProducedArtifactID != nil {
			t.Fatalf("canceled job must not carry an artifact")
		}
	default:
		t.Fatalf("job left in %s", got.Status)
	}
}

func TestPollIsScopedToOwner(t *testing.T) {
	q, _, _ := newTestQueue(t, nil)
	ctx := context.Background()
	userID := uuid.New()
	job := startJob(t, q, userID, uuid.New())

	snap, err := q.Poll(ctx, userID, job.RequestID)
	if err != nil || snap.Job.ID != job.ID || snap.Stale {
		t.Fatalf("Poll = %+v err=%v", snap, err)
	}
	if _, err := q.Poll(ctx, uuid.New(), job.RequestID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("foreign poll: err = %v, want not found", err)
	}
}

func TestDispatchFailureIsRecordedOnJob(t *testing.T) {
	q, _, notify := newTestQueue(t, failingDispatcher{err: errors.New("temporal down")})
	userID := uuid.New()

	job := startJob(t, q, userID, uuid.New())
	if job.Status != types.GenerationStatusFailed || job.FailureKind != types.FailureKindWorkerError {
		t.Fatalf("undispatched job = %+v, want failed worker_error", job)
	}
	if notify.count("failed") != 1 {
		t.Fatalf("events = %v", notify.events)
	}
	// The failed job does not hold the slot.
	startJob(t, q, userID, uuid.New())
}

func TestStartValidatesInput(t *testing.T) {
	q, _, _ := newTestQueue(t, nil)
	cases := []StartRequest{
		{RequestID: uuid.New()},
		{UserID: uuid.New()},
		{UserID: uuid.New(), RequestID: uuid.New(), Kind: "deload"},
	}
	for i, req := range cases {
		if _, err := q.Start(context.Background(), req); !errors.Is(err, apperr.ErrInvalidArgument) {
			t.Fatalf("case %d: err = %v, want invalid argument", i, err)
		}
	}
}
