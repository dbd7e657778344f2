package tui

import (
	"context"
	"time"

	"taskdeck-cli/internal/dispatch"
	"taskdeck-cli/internal/model"
	"taskdeck-cli/internal/render"
	"taskdeck-cli/internal/syncer"
	"taskdeck-cli/internal/taskapi"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type blobService interface {
	BlobStatus(ctx context.Context, name string) (taskapi.BlobStatus, error)
	BlobContent(ctx context.Context, name string) (string, error)
	SaveBlob(ctx context.Context, name, content string) (string, error)
}

type syncControl interface {
	Start(ctx context.Context)
	Stop()
	Refresh()
}

type appDeps struct {
	ctx        context.Context
	server     string
	language   string
	blobs      blobService
	dispatcher *dispatch.Dispatcher
	loop       syncControl
	mailbox    *syncer.Mailbox

	// cached is shown, marked stale, until the first live snapshot arrives.
	cached   *render.View
	cachedAt time.Time
}

type appModel struct {
	appDeps

	keys keyMap
	help help.Model

	width  int
	height int

	view     render.View
	hasView  bool
	stale    bool
	staleAt  time.Time
	syncErr  string
	failures int

	cursor     int
	selectedID string

	modal        modalKind
	pending      dispatch.Command
	confirmFocus confirmModalFocus

	input       textinput.Model
	addLanguage string

	languageIdx int

	textarea     textarea.Model
	blobNames    []string
	blobIdx      int
	blobData     map[string]blob
	blobsLoading bool

	minibufferText  string
	minibufferSetAt time.Time
}

func newAppModel(deps appDeps) appModel {
	if deps.ctx == nil {
		deps.ctx = context.Background()
	}
	if !model.ValidLanguage(deps.language) {
		deps.language = model.DefaultLanguage
	}
	m := appModel{
		appDeps:     deps,
		keys:        newKeyMap(),
		help:        help.New(),
		addLanguage: deps.language,
		blobNames:   []string{taskapi.BlobCookies, taskapi.BlobConfig},
		blobData:    map[string]blob{},
	}

	m.input = textinput.New()
	m.input.Placeholder = "https://music.apple.com/…"
	m.input.CharLimit = 2048
	m.input.Width = 60

	m.textarea = textarea.New()
	m.textarea.Placeholder = "Paste contents…"
	m.textarea.CharLimit = 0
	m.textarea.SetWidth(72)
	m.textarea.SetHeight(12)
	m.textarea.ShowLineNumbers = false

	if deps.cached != nil {
		m.view = *deps.cached
		m.hasView = true
		m.stale = true
		m.staleAt = deps.cachedAt
	}
	return m
}

func (m appModel) Init() tea.Cmd {
	if m.loop != nil {
		m.loop.Start(m.ctx)
	}
	return tea.Batch(m.waitForSync(), tickClock())
}

func tickClock() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return clockTickMsg{} })
}

// waitForSync blocks on the mailbox and turns the next update into a message.
func (m appModel) waitForSync() tea.Cmd {
	mb := m.mailbox
	if mb == nil {
		return nil
	}
	ctx := m.ctx
	return func() tea.Msg {
		select {
		case <-mb.Notify():
		case <-ctx.Done():
			return nil
		}
		u, ok := mb.Take()
		if !ok {
			return syncMsg{}
		}
		return syncMsg{update: u}
	}
}

func (m *appModel) showMinibuffer(s string) {
	m.minibufferText = s
	m.minibufferSetAt = time.Now()
}

func (m *appModel) selectedRow() (render.Row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.view.Rows) {
		return render.Row{}, false
	}
	return m.view.Rows[m.cursor], true
}

// applyView swaps in a new view and keeps the cursor on the same task when it
// still exists; ordering may have moved it.
func (m *appModel) applyView(v render.View) {
	m.view = v
	m.hasView = true
	m.stale = false
	if m.selectedID != "" {
		for i, r := range v.Rows {
			if r.Task.ID == m.selectedID {
				m.cursor = i
				return
			}
		}
	}
	m.clampCursor()
}

func (m *appModel) clampCursor() {
	if m.cursor >= len(m.view.Rows) {
		m.cursor = len(m.view.Rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if r, ok := m.selectedRow(); ok {
		m.selectedID = r.Task.ID
	} else {
		m.selectedID = ""
	}
}

func (m *appModel) moveCursor(delta int) {
	m.cursor += delta
	m.clampCursor()
}
