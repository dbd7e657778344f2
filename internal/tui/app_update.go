package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"taskdeck-cli/internal/dispatch"
	"taskdeck-cli/internal/model"
	"taskdeck-cli/internal/statusutil"
	"taskdeck-cli/internal/taskapi"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		w := modalBodyWidth(msg.Width)
		m.input.Width = w - 4
		m.textarea.SetWidth(w)
		return m, nil

	case clockTickMsg:
		if m.minibufferText != "" && time.Since(m.minibufferSetAt) > minibufferAutoClearAfter {
			m.minibufferText = ""
		}
		return m, tickClock()

	case syncMsg:
		u := msg.update
		if u.View != nil {
			m.applyView(*u.View)
			m.syncErr = ""
			m.failures = 0
		}
		if u.Err != nil {
			m.syncErr = taskapi.Message(u.Err)
			m.failures = u.Failures
		}
		return m, m.waitForSync()

	case dispatchDoneMsg:
		return m.handleDispatchDone(msg), nil

	case urlOpenDoneMsg:
		if msg.err != nil {
			m.showMinibuffer("Open URL: " + msg.err.Error())
		}
		return m, nil

	case blobsLoadedMsg:
		m.blobsLoading = false
		if msg.err != nil {
			m.showMinibuffer("Settings: " + taskapi.Message(msg.err))
			if m.modal == modalSettings {
				m.modal = modalNone
			}
			return m, nil
		}
		m.blobData = msg.blobs
		m.loadBlobIntoEditor()
		return m, nil

	case blobSavedMsg:
		if msg.err != nil {
			m.showMinibuffer("Save " + msg.name + ": " + taskapi.Message(msg.err))
			return m, nil
		}
		b := m.blobData[msg.name]
		b.content = msg.content
		b.status.Configured = strings.TrimSpace(msg.content) != ""
		m.blobData[msg.name] = b
		if msg.message != "" {
			m.showMinibuffer(msg.message)
		} else {
			m.showMinibuffer("Saved " + msg.name)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.modal {
		case modalConfirm:
			return m.updateConfirm(msg)
		case modalAddTask:
			return m.updateAddTask(msg)
		case modalLanguage:
			return m.updateLanguage(msg)
		case modalSettings:
			return m.updateSettings(msg)
		case modalHelp:
			switch msg.String() {
			case "esc", "ctrl+g", "?", "q", "enter":
				m.modal = modalNone
			}
			return m, nil
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m appModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.loop != nil {
			m.loop.Stop()
		}
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.Cancel):
		return m.triggerAction(statusutil.ActionCancel)
	case key.Matches(msg, m.keys.Restart):
		return m.triggerAction(statusutil.ActionRestart)
	case key.Matches(msg, m.keys.RestartOverwrite):
		return m.triggerAction(statusutil.ActionRestartOverwrite)
	case key.Matches(msg, m.keys.Delete):
		return m.triggerAction(statusutil.ActionDelete)
	case key.Matches(msg, m.keys.Language):
		r, ok := m.selectedRow()
		if !ok {
			return m, nil
		}
		m.languageIdx = 0
		for i, l := range r.Languages {
			if l == r.Task.Language {
				m.languageIdx = i
			}
		}
		m.modal = modalLanguage
	case key.Matches(msg, m.keys.OpenURL):
		r, ok := m.selectedRow()
		if !ok {
			return m, nil
		}
		return m, openURL(r.Task.URL)
	case key.Matches(msg, m.keys.Add):
		m.input.SetValue("")
		m.addLanguage = m.language
		m.modal = modalAddTask
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.ResetAll):
		return m.startCommand(dispatch.ResetAll())
	case key.Matches(msg, m.keys.Refresh):
		if m.loop != nil {
			m.loop.Refresh()
		}
	case key.Matches(msg, m.keys.Settings):
		m.modal = modalSettings
		m.blobIdx = 0
		m.blobsLoading = true
		m.textarea.SetValue("")
		return m, loadBlobs(m.ctx, m.blobs, m.blobNames)
	case key.Matches(msg, m.keys.Help):
		m.modal = modalHelp
	}
	return m, nil
}

// triggerAction turns a row affordance into a command. Actions the row does
// not offer are refused locally with a hint.
func (m appModel) triggerAction(a statusutil.Action) (tea.Model, tea.Cmd) {
	r, ok := m.selectedRow()
	if !ok {
		return m, nil
	}
	if !statusutil.Allowed(r.Task.Status, a) {
		m.showMinibuffer(fmt.Sprintf("%s is not available for %s tasks", a, strings.ToLower(r.Label)))
		return m, nil
	}
	cmd, ok := dispatch.ForAction(a, r.Task.ID)
	if !ok {
		return m, nil
	}
	return m.startCommand(cmd)
}

func (m appModel) startCommand(cmd dispatch.Command) (tea.Model, tea.Cmd) {
	if cmd.Kind.Scoped() && m.dispatcher != nil && m.dispatcher.InFlight(cmd.TaskID) {
		return m, nil
	}
	if cmd.NeedsConfirmation() {
		m.pending = cmd
		m.confirmFocus = confirmFocusCancel
		m.modal = modalConfirm
		return m, nil
	}
	return m, m.dispatchCmd(cmd)
}

func (m appModel) dispatchCmd(cmd dispatch.Command) tea.Cmd {
	d := m.dispatcher
	if d == nil {
		return nil
	}
	ctx := m.ctx
	return func() tea.Msg {
		res, err := d.Dispatch(ctx, cmd)
		return dispatchDoneMsg{cmd: cmd, res: res, err: err}
	}
}

func (m appModel) handleDispatchDone(msg dispatchDoneMsg) appModel {
	if errors.Is(msg.err, dispatch.ErrInFlight) {
		return m
	}
	if msg.err != nil {
		m.showMinibuffer("Error: " + taskapi.Message(msg.err))
		return m
	}
	switch msg.cmd.Kind {
	case dispatch.KindCreate:
		name := ""
		if msg.res.Task != nil {
			name = msg.res.Task.Name
		}
		if name == "" {
			name = msg.cmd.URL
		}
		m.showMinibuffer("Added: " + name)
	default:
		if msg.res.Message != "" {
			m.showMinibuffer(msg.res.Message)
		} else {
			m.showMinibuffer(msg.cmd.Kind.String() + ": ok")
		}
	}
	return m
}

func (m appModel) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+g", "n", "N":
		m.modal = modalNone
		m.pending = dispatch.Command{}
		return m, nil
	case "tab", "shift+tab", "left", "right":
		m.confirmFocus = m.confirmFocus.toggle()
		return m, nil
	case "y", "Y":
		return m.acceptWarning()
	case "enter":
		if m.confirmFocus == confirmFocusConfirm {
			return m.acceptWarning()
		}
		m.modal = modalNone
		m.pending = dispatch.Command{}
		return m, nil
	}
	return m, nil
}

// acceptWarning records one accepted warning. Commands with several warnings
// keep the modal open, showing the next one.
func (m appModel) acceptWarning() (tea.Model, tea.Cmd) {
	m.pending.Confirmed++
	if m.pending.NeedsConfirmation() {
		m.confirmFocus = confirmFocusCancel
		return m, nil
	}
	cmd := m.pending
	m.pending = dispatch.Command{}
	m.modal = modalNone
	return m, m.dispatchCmd(cmd)
}

func (m appModel) updateAddTask(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+g":
		m.input.Blur()
		m.modal = modalNone
		return m, nil
	case "tab":
		m.addLanguage = model.NextLanguage(m.addLanguage)
		return m, nil
	case "enter":
		raw := model.DecodeURL(m.input.Value())
		m.input.Blur()
		m.modal = modalNone
		if raw == "" {
			return m, nil
		}
		return m, m.dispatchCmd(dispatch.Create(raw, m.addLanguage))
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if msg.Paste {
		m.input.SetValue(model.DecodeURL(m.input.Value()))
		m.input.CursorEnd()
	}
	return m, cmd
}

func (m appModel) updateLanguage(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	r, ok := m.selectedRow()
	if !ok {
		m.modal = modalNone
		return m, nil
	}
	switch msg.String() {
	case "esc", "ctrl+g", "q":
		m.modal = modalNone
	case "up", "k":
		if m.languageIdx > 0 {
			m.languageIdx--
		}
	case "down", "j":
		if m.languageIdx < len(r.Languages)-1 {
			m.languageIdx++
		}
	case "enter":
		m.modal = modalNone
		if m.languageIdx < 0 || m.languageIdx >= len(r.Languages) {
			return m, nil
		}
		lang := r.Languages[m.languageIdx]
		if lang == r.Task.Language {
			return m, nil
		}
		return m.startCommand(dispatch.SetLanguage(r.Task.ID, lang))
	}
	return m, nil
}
