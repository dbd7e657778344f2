package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"taskdeck-cli/internal/fakeservice"
	"taskdeck-cli/internal/model"
	"taskdeck-cli/internal/statusutil"
	"taskdeck-cli/internal/store"
	"taskdeck-cli/internal/taskapi"
)

type countingRefresher struct{ n atomic.Int32 }

func (r *countingRefresher) Refresh() { r.n.Add(1) }

// blockingService holds RestartTask until release is closed.
type blockingService struct {
	restarts atomic.Int32
	release  chan struct{}
}

func (s *blockingService) CreateTask(ctx context.Context, rawURL, language string) (model.Task, error) {
	return model.Task{ID: "new", Name: "new", Language: language}, nil
}
func (s *blockingService) CancelTask(ctx context.Context, id string) (string, error) {
	return "cancelled", nil
}
func (s *blockingService) RestartTask(ctx context.Context, id string) (string, error) {
	s.restarts.Add(1)
	<-s.release
	return "restarted", nil
}
func (s *blockingService) RestartTaskOverwrite(ctx context.Context, id string) (string, error) {
	return "restarted", nil
}
func (s *blockingService) DeleteTask(ctx context.Context, id string) (string, error) {
	return "deleted", nil
}
func (s *blockingService) SetLanguage(ctx context.Context, id, language string) (string, error) {
	return "ok", nil
}
func (s *blockingService) ResetAll(ctx context.Context) (string, error) {
	return "reset", nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDispatch_InFlightGuardSendsOneCommand(t *testing.T) {
	svc := &blockingService{release: make(chan struct{})}
	ref := &countingRefresher{}
	d := New(svc, Options{Refresher: ref})

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		_, firstErr = d.Dispatch(context.Background(), Restart("t1"))
	}()
	waitFor(t, func() bool { return d.InFlight("t1") })

	if _, err := d.Dispatch(context.Background(), Restart("t1")); !errors.Is(err, ErrInFlight) {
		t.Fatalf("expected ErrInFlight, got %v", err)
	}
	// Another task is not blocked by t1.
	if _, err := d.Dispatch(context.Background(), Cancel("t2")); err != nil {
		t.Fatalf("cancel t2: %v", err)
	}

	close(svc.release)
	wg.Wait()

	if firstErr != nil {
		t.Fatalf("first restart: %v", firstErr)
	}
	if got := svc.restarts.Load(); got != 1 {
		t.Fatalf("expected exactly one restart call, got %d", got)
	}
	if d.InFlight("t1") {
		t.Fatalf("expected guard released")
	}
	// t2 cancel + t1 restart; the dropped duplicate does not refresh.
	if got := ref.n.Load(); got != 2 {
		t.Fatalf("expected 2 refreshes, got %d", got)
	}
}

func TestDispatch_UnscopedCommandsBypassGuard(t *testing.T) {
	svc := &blockingService{release: make(chan struct{})}
	d := New(svc, Options{})
	if _, err := d.Dispatch(context.Background(), ResetAll().Confirm()); err != nil {
		t.Fatalf("reset all: %v", err)
	}
	if _, err := d.Dispatch(context.Background(), ResetAll().Confirm()); err != nil {
		t.Fatalf("second reset all: %v", err)
	}
	res, err := d.Dispatch(context.Background(), Create("https://music.apple.com/us/album/x/1", ""))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.Task == nil || res.Task.Language != model.DefaultLanguage {
		t.Fatalf("expected default language on create, got %+v", res.Task)
	}
}

func TestDispatch_RequiresConfirmation(t *testing.T) {
	svc := &blockingService{release: make(chan struct{})}
	ref := &countingRefresher{}
	d := New(svc, Options{Refresher: ref})

	if _, err := d.Dispatch(context.Background(), Delete("x")); !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("expected ErrNotConfirmed for delete, got %v", err)
	}
	if _, err := d.Dispatch(context.Background(), RestartOverwrite("x")); !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("expected ErrNotConfirmed for restart-overwrite, got %v", err)
	}
	half := ResetAll()
	half.Confirmed = 1
	if _, err := d.Dispatch(context.Background(), half); !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("expected reset-all to need two confirmations, got %v", err)
	}
	if ref.n.Load() != 0 {
		t.Fatalf("local refusals must not refresh")
	}
}

func TestCommand_Warnings(t *testing.T) {
	tests := []struct {
		kind Kind
		n    int
	}{
		{KindCreate, 0},
		{KindCancel, 0},
		{KindRestart, 0},
		{KindSetLanguage, 0},
		{KindDelete, 1},
		{KindRestartOverwrite, 1},
		{KindResetAll, 2},
	}
	for _, tt := range tests {
		if got := len(tt.kind.Warnings()); got != tt.n {
			t.Errorf("%s: expected %d warnings, got %d", tt.kind, tt.n, got)
		}
	}

	c := ResetAll()
	w1, ok := c.NextWarning()
	if !ok || w1 == "" {
		t.Fatalf("expected first warning")
	}
	c.Confirmed++
	w2, ok := c.NextWarning()
	if !ok || w2 == w1 {
		t.Fatalf("expected a distinct second warning")
	}
	c.Confirmed++
	if _, ok := c.NextWarning(); ok || c.NeedsConfirmation() {
		t.Fatalf("expected no more warnings")
	}
}

func TestDispatch_ValidatesLocally(t *testing.T) {
	d := New(&blockingService{}, Options{})
	cases := []Command{
		{Kind: KindCancel},
		{Kind: KindCreate},
		{Kind: KindSetLanguage, TaskID: "a"},
		{Kind: Kind(99)},
	}
	for _, c := range cases {
		if _, err := d.Dispatch(context.Background(), c); err == nil {
			t.Fatalf("expected validation error for %+v", c)
		}
	}
}

func TestForAction(t *testing.T) {
	for _, a := range statusutil.Actions(model.StatusCompleted) {
		c, ok := ForAction(a, "id")
		if !ok || c.TaskID != "id" {
			t.Fatalf("expected command for %s", a)
		}
	}
	if _, ok := ForAction(statusutil.ActionSetLanguage, "id"); ok {
		t.Fatalf("set-language needs a value and has no direct mapping")
	}
}

type memJournal struct {
	mu      sync.Mutex
	entries []store.JournalEntry
}

func (j *memJournal) AppendJournal(ctx context.Context, e store.JournalEntry) error {
	j.mu.Lock()
	j.entries = append(j.entries, e)
	j.mu.Unlock()
	return nil
}

func newFakeDispatcher(t *testing.T) (*fakeservice.Service, *Dispatcher, *countingRefresher, *memJournal) {
	t.Helper()
	fs := fakeservice.New()
	srv, base := fs.Start()
	t.Cleanup(srv.Close)
	c, err := taskapi.New(taskapi.Options{BaseURL: base})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	ref := &countingRefresher{}
	j := &memJournal{}
	return fs, New(c, Options{Server: base, Refresher: ref, Journal: j}), ref, j
}

func TestDispatch_CancelThenRejectedSecondCancel(t *testing.T) {
	fs, d, ref, j := newFakeDispatcher(t)
	fs.Seed(model.Task{ID: "p", Name: "Queued", Status: model.StatusPending})

	if _, err := d.Dispatch(context.Background(), Cancel("p")); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got, _ := fs.Task("p"); got.Status != model.StatusCancelled {
		t.Fatalf("expected cancelled, got %v", got.Status)
	}

	_, err := d.Dispatch(context.Background(), Cancel("p"))
	if !taskapi.IsRejected(err) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if taskapi.Message(err) != "只能取消等待中的任务" {
		t.Fatalf("expected verbatim detail, got %q", taskapi.Message(err))
	}
	if ref.n.Load() != 2 {
		t.Fatalf("expected refresh after success and failure, got %d", ref.n.Load())
	}
	if fs.Calls("POST /api/tasks/:id/cancel") != 2 {
		t.Fatalf("expected both cancels to reach the service")
	}
	if len(j.entries) != 2 || !j.entries[0].OK || j.entries[1].OK {
		t.Fatalf("unexpected journal: %+v", j.entries)
	}
	if j.entries[1].Message != "只能取消等待中的任务" {
		t.Fatalf("expected failure detail in journal, got %q", j.entries[1].Message)
	}
}

func TestDispatch_SetLanguageFailureRefreshes(t *testing.T) {
	fs, d, ref, _ := newFakeDispatcher(t)
	fs.Seed(model.Task{ID: "a", Name: "A", Language: model.LanguageChinese, Status: model.StatusCompleted})
	fs.FailNext("PATCH /api/tasks/:id/language", 500)

	_, err := d.Dispatch(context.Background(), SetLanguage("a", model.LanguageEnglish))
	if !taskapi.IsRejected(err) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if ref.n.Load() != 1 {
		t.Fatalf("expected reconciling refresh")
	}
	if got, _ := fs.Task("a"); got.Language != model.LanguageChinese {
		t.Fatalf("expected unchanged language, got %q", got.Language)
	}
}

func TestDispatch_TransportFailureSurfaces(t *testing.T) {
	fs := fakeservice.New()
	srv, base := fs.Start()
	srv.Close()
	c, err := taskapi.New(taskapi.Options{BaseURL: base})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	ref := &countingRefresher{}
	d := New(c, Options{Refresher: ref})

	_, err = d.Dispatch(context.Background(), Restart("x"))
	if !taskapi.IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if ref.n.Load() != 1 {
		t.Fatalf("expected refresh after transport failure")
	}
	if d.InFlight("x") {
		t.Fatalf("guard must be released after failure")
	}
}
