package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"taskdeck-cli/internal/fakeservice"
	"taskdeck-cli/internal/model"
)

type cliEnv struct {
	fs   *fakeservice.Service
	base string
	dir  string
}

func newCLIEnv(t *testing.T, tasks ...model.Task) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("TASKDECK_CONFIG_DIR", dir)
	for _, k := range []string{"TASKDECK_SERVER", "TASKDECK_CONFIG", "TASKDECK_FORMAT", "TASKDECK_LOG_LEVEL", "TASKDECK_LOG_FILE"} {
		t.Setenv(k, "")
	}
	fs := fakeservice.New()
	fs.Seed(tasks...)
	srv, base := fs.Start()
	t.Cleanup(srv.Close)
	return &cliEnv{fs: fs, base: base, dir: dir}
}

func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func (e *cliEnv) run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	return runCLI(t, stdin, append([]string{"--server", e.base}, args...)...)
}

func (e *cliEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, errOut, err := e.run(t, "", args...)
	if err != nil {
		t.Fatalf("taskdeck %v failed: %v\nstderr:\n%s", args, err, errOut)
	}
	return out
}

func TestTasksList_OrdersDownloadingFirst(t *testing.T) {
	env := newCLIEnv(t,
		model.Task{ID: "p", Name: "Queued", Status: model.StatusPending},
		model.Task{ID: "x", Name: "Broken", Status: model.StatusError},
		model.Task{ID: "d", Name: "Busy", Status: model.StatusDownloading},
	)
	env.fs.SetLog("line 1\nline 2")

	var got struct {
		Tasks      []model.Task `json:"tasks"`
		CurrentLog string       `json:"current_log"`
	}
	if err := json.Unmarshal([]byte(env.mustRun(t, "tasks", "list")), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	ids := []string{}
	for _, tk := range got.Tasks {
		ids = append(ids, tk.ID)
	}
	if strings.Join(ids, ",") != "d,p,x" {
		t.Fatalf("unexpected order %v", ids)
	}
	if got.CurrentLog != "line 1\nline 2" {
		t.Fatalf("unexpected log %q", got.CurrentLog)
	}

	text := env.mustRun(t, "--format", "text", "tasks", "list")
	if !strings.HasPrefix(text, "log: line 2\n") || !strings.Contains(text, "[cancel]") {
		t.Fatalf("unexpected text output:\n%s", text)
	}
}

func TestTasksList_EmptyText(t *testing.T) {
	env := newCLIEnv(t)
	out := env.mustRun(t, "--format", "text", "tasks", "list")
	if strings.TrimSpace(out) != "No tasks yet" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestTasksDelete_PromptsForConfirmation(t *testing.T) {
	env := newCLIEnv(t, model.Task{ID: "c", Name: "Done", Status: model.StatusCompleted})

	_, errOut, err := env.run(t, "n\n", "tasks", "delete", "c")
	if err == nil || !strings.Contains(errOut, "aborted") {
		t.Fatalf("expected abort, got err=%v stderr=%q", err, errOut)
	}
	if env.fs.Calls("DELETE /api/tasks/:id") != 0 {
		t.Fatalf("expected no request after declining")
	}

	out, _, err := env.run(t, "y\n", "--format", "text", "tasks", "delete", "c")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if strings.TrimSpace(out) != "任务 Done 已删除" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestTasksResetAll_NeedsBothConfirmations(t *testing.T) {
	env := newCLIEnv(t, model.Task{ID: "c", Name: "Done", Status: model.StatusCompleted})

	if _, _, err := env.run(t, "", "tasks", "reset-all", "-y"); err == nil {
		t.Fatalf("expected a single --yes to leave the second warning unanswered")
	}
	if env.fs.Calls("POST /api/tasks/reset-all") != 0 {
		t.Fatalf("expected no request")
	}

	out, _, err := env.run(t, "y\n", "--format", "text", "tasks", "reset-all", "-y")
	if err != nil {
		t.Fatalf("reset-all: %v", err)
	}
	if strings.TrimSpace(out) != "已重置 1 个任务" {
		t.Fatalf("unexpected output %q", out)
	}

	env.mustRun(t, "tasks", "reset-all", "-yy")
	if env.fs.Calls("POST /api/tasks/reset-all") != 2 {
		t.Fatalf("expected two reset-all requests")
	}
}

func TestTasksCancel_RejectionPrintsDetail(t *testing.T) {
	env := newCLIEnv(t, model.Task{ID: "d", Name: "Busy", Status: model.StatusDownloading})
	_, errOut, err := env.run(t, "", "tasks", "cancel", "d")
	if err == nil {
		t.Fatalf("expected failure")
	}
	if !strings.Contains(errOut, "只能取消等待中的任务") {
		t.Fatalf("expected service detail on stderr, got %q", errOut)
	}

	var hist struct {
		Entries []struct {
			Kind    string `json:"kind"`
			TaskID  string `json:"taskId"`
			OK      bool   `json:"ok"`
			Message string `json:"message"`
		} `json:"entries"`
	}
	if err := json.Unmarshal([]byte(env.mustRun(t, "history", "--task", "d")), &hist); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(hist.Entries) != 1 || hist.Entries[0].Kind != "cancel" || hist.Entries[0].OK {
		t.Fatalf("unexpected history %+v", hist.Entries)
	}
}

func TestTasksAdd_DecodesURLAndDirectShortcutLanguage(t *testing.T) {
	env := newCLIEnv(t)
	out := env.mustRun(t, "tasks", "add", "https://music.apple.com/us/album/Blue%20Train/42", "--language", "en-US")

	var res struct {
		Kind string      `json:"kind"`
		Task *model.Task `json:"task"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Kind != "create" || res.Task == nil || res.Task.Name != "Blue Train" || res.Task.Language != "en-US" {
		t.Fatalf("unexpected result %+v", res)
	}
	got, ok := env.fs.Task("42")
	if !ok || got.URL != "https://music.apple.com/us/album/Blue Train/42" {
		t.Fatalf("expected decoded url stored, got %+v", got)
	}

	if _, _, err := env.run(t, "", "tasks", "add", "https://music.apple.com/us/album/x/1", "--language", "fr"); err == nil {
		t.Fatalf("expected unsupported language to fail locally")
	}
}

func TestTasksLanguageAndRestart(t *testing.T) {
	env := newCLIEnv(t, model.Task{ID: "e", Name: "Err", Language: model.LanguageChinese, Status: model.StatusError})
	env.mustRun(t, "tasks", "language", "e", "en-US")
	env.mustRun(t, "tasks", "restart-overwrite", "e", "--yes")

	got, _ := env.fs.Task("e")
	if got.Language != model.LanguageEnglish || got.Status != model.StatusPending || !got.Overwrite {
		t.Fatalf("unexpected task %+v", got)
	}
}

func TestSettings_SetAndShow(t *testing.T) {
	env := newCLIEnv(t)
	if _, _, err := env.run(t, "cookie=1\n", "settings", "set", "cookies"); err != nil {
		t.Fatalf("set: %v", err)
	}
	out := env.mustRun(t, "--format", "text", "settings", "show")
	if !strings.Contains(out, "[cookies] configured") || !strings.Contains(out, "cookie=1") || !strings.Contains(out, "[config] not set") {
		t.Fatalf("unexpected settings output:\n%s", out)
	}
	if _, _, err := env.run(t, "", "settings", "show", "passwords"); err == nil {
		t.Fatalf("expected unknown blob error")
	}
}

func TestWatch_PrintsRefreshes(t *testing.T) {
	env := newCLIEnv(t, model.Task{ID: "p", Name: "Queued", Status: model.StatusPending})
	out := env.mustRun(t, "--interval", "20ms", "watch", "--count", "2")
	if strings.Count(out, "-- ") != 2 || strings.Count(out, "Queued") != 2 {
		t.Fatalf("expected two refreshes, got:\n%s", out)
	}
}

func TestConfig_Precedence(t *testing.T) {
	env := newCLIEnv(t)
	ini := "[server]\nurl = http://file.example:5800/api\n\n[sync]\ninterval = 7s\n"
	if err := os.WriteFile(filepath.Join(env.dir, "config.ini"), []byte(ini), 0o644); err != nil {
		t.Fatalf("write ini: %v", err)
	}

	var got struct {
		ServerURL string `json:"server_url"`
		Interval  string `json:"interval"`
	}
	decode := func(out string) {
		t.Helper()
		if err := json.Unmarshal([]byte(out), &got); err != nil {
			t.Fatalf("decode: %v\n%s", err, out)
		}
	}

	out, _, err := runCLI(t, "", "config")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	decode(out)
	if got.ServerURL != "http://file.example:5800/api" || got.Interval != "7s" {
		t.Fatalf("expected file values, got %+v", got)
	}

	t.Setenv("TASKDECK_SERVER", "http://env.example/api")
	out, _, _ = runCLI(t, "", "config")
	decode(out)
	if got.ServerURL != "http://env.example/api" {
		t.Fatalf("expected env to beat file, got %q", got.ServerURL)
	}

	out, _, _ = runCLI(t, "", "--server", "http://flag.example/api", "--interval", "2s", "config")
	decode(out)
	if got.ServerURL != "http://flag.example/api" || got.Interval != "2s" {
		t.Fatalf("expected flags to win, got %+v", got)
	}
}

func TestRoot_RejectsUnknownFormat(t *testing.T) {
	env := newCLIEnv(t)
	if _, _, err := env.run(t, "", "--format", "yaml", "tasks", "list"); err == nil {
		t.Fatalf("expected unknown format error")
	}
}
