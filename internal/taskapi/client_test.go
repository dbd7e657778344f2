package taskapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"taskdeck-cli/internal/fakeservice"
	"taskdeck-cli/internal/model"
)

func newTestClient(t *testing.T, base string) *Client {
	t.Helper()
	c, err := New(Options{BaseURL: base})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func startFake(t *testing.T) (*fakeservice.Service, *Client) {
	t.Helper()
	fs := fakeservice.New()
	srv, base := fs.Start()
	t.Cleanup(srv.Close)
	return fs, newTestClient(t, base)
}

func TestNew_RejectsBadURL(t *testing.T) {
	if _, err := New(Options{BaseURL: "ftp://host/api"}); err == nil {
		t.Fatalf("expected error for non-http scheme")
	}
	c, err := New(Options{})
	if err != nil {
		t.Fatalf("default url: %v", err)
	}
	if c.BaseURL() != DefaultBaseURL {
		t.Fatalf("expected default base url, got %q", c.BaseURL())
	}
}

func TestListTasks_EmptyRegistry(t *testing.T) {
	_, c := startFake(t)
	snap, err := c.ListTasks(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if snap.Tasks == nil || len(snap.Tasks) != 0 {
		t.Fatalf("expected empty non-nil tasks, got %#v", snap.Tasks)
	}
	if snap.HasLog() {
		t.Fatalf("expected no log")
	}
}

func TestCreateTask_AndList(t *testing.T) {
	fs, c := startFake(t)
	fs.SetLog("fetching album")
	task, err := c.CreateTask(context.Background(), "https://music.apple.com/cn/album/%E4%BD%A0%E5%A5%BD/1440", model.LanguageEnglish)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.ID != "1440" || task.Status != model.StatusPending || task.Language != model.LanguageEnglish {
		t.Fatalf("unexpected task: %+v", task)
	}
	snap, err := c.ListTasks(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(snap.Tasks) != 1 || snap.Tasks[0].Name != "你好" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.CurrentLog != "fetching album" {
		t.Fatalf("expected log, got %q", snap.CurrentLog)
	}
}

func TestCancel_RejectedCarriesDetailVerbatim(t *testing.T) {
	fs, c := startFake(t)
	fs.Seed(model.Task{ID: "a", Name: "A", Status: model.StatusCancelled})

	_, err := c.CancelTask(context.Background(), "a")
	if err == nil {
		t.Fatalf("expected rejection")
	}
	if !IsRejected(err) || IsTransport(err) {
		t.Fatalf("expected RejectedError, got %T", err)
	}
	if Message(err) != "只能取消等待中的任务" {
		t.Fatalf("expected service detail verbatim, got %q", Message(err))
	}
}

func TestCommands_HitExpectedRoutes(t *testing.T) {
	fs, c := startFake(t)
	fs.Seed(
		model.Task{ID: "p", Name: "P", Status: model.StatusPending},
		model.Task{ID: "c", Name: "C", Status: model.StatusCompleted},
		model.Task{ID: "e", Name: "E", Status: model.StatusError},
	)
	ctx := context.Background()

	if _, err := c.CancelTask(ctx, "p"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := c.RestartTask(ctx, "c"); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if _, err := c.RestartTaskOverwrite(ctx, "e"); err != nil {
		t.Fatalf("restart overwrite: %v", err)
	}
	if got, _ := fs.Task("e"); !got.Overwrite || got.Status != model.StatusPending {
		t.Fatalf("expected overwrite restart, got %+v", got)
	}
	if _, err := c.SetLanguage(ctx, "c", model.LanguageEnglish); err != nil {
		t.Fatalf("set language: %v", err)
	}
	if _, err := c.DeleteTask(ctx, "p"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	msg, err := c.ResetAll(ctx)
	if err != nil {
		t.Fatalf("reset all: %v", err)
	}
	if msg != "已重置 2 个任务" {
		t.Fatalf("unexpected reset message %q", msg)
	}

	routes := []string{
		"POST /api/tasks/:id/cancel",
		"POST /api/tasks/:id/restart",
		"POST /api/tasks/:id/restart-overwrite",
		"PATCH /api/tasks/:id/language",
		"DELETE /api/tasks/:id",
		"POST /api/tasks/reset-all",
	}
	for _, r := range routes {
		if fs.Calls(r) != 1 {
			t.Fatalf("expected one call to %s, got %d", r, fs.Calls(r))
		}
	}
}

func TestBlobs_RoundTrip(t *testing.T) {
	_, c := startFake(t)
	ctx := context.Background()

	st, err := c.BlobStatus(ctx, BlobCookies)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.Configured {
		t.Fatalf("expected unconfigured cookies")
	}
	if _, err := c.SaveBlob(ctx, BlobCookies, "# Netscape HTTP Cookie File\n"); err != nil {
		t.Fatalf("save: %v", err)
	}
	st, _ = c.BlobStatus(ctx, BlobCookies)
	if !st.Configured {
		t.Fatalf("expected configured after save")
	}
	content, err := c.BlobContent(ctx, BlobCookies)
	if err != nil {
		t.Fatalf("content: %v", err)
	}
	if content != "# Netscape HTTP Cookie File\n" {
		t.Fatalf("unexpected content %q", content)
	}
}

func TestTransportError_WhenServiceDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL + "/api"
	srv.Close()

	c := newTestClient(t, base)
	_, err := c.ListTasks(context.Background())
	if !IsTransport(err) {
		t.Fatalf("expected TransportError, got %T (%v)", err, err)
	}
}

func TestTransportError_OnUndecodableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tasks": [`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	if _, err := c.ListTasks(context.Background()); !IsTransport(err) {
		t.Fatalf("expected TransportError for truncated body, got %v", err)
	}
}

func TestErrorDetail(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"detail string", `{"detail": "任务不存在"}`, "任务不存在"},
		{"error field", `{"error": "boom", "success": false}`, "boom"},
		{"structured detail", `{"detail": [{"loc": ["body", "url"], "msg": "field required"}]}`, `[{"loc":["body","url"],"msg":"field required"}]`},
		{"plain text", "Bad Gateway\n", "Bad Gateway"},
		{"empty json", `{}`, ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := errorDetail([]byte(tt.body)); got != tt.want {
				t.Fatalf("errorDetail = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRejectedError_FallsBackToStatusText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.ResetAll(context.Background())
	if !IsRejected(err) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if Message(err) != "reset all tasks: Service Unavailable" {
		t.Fatalf("unexpected message %q", Message(err))
	}
}
