package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"
)

// loadBlobs fetches status and content of every blob concurrently.
func loadBlobs(ctx context.Context, svc blobService, names []string) tea.Cmd {
	if svc == nil {
		return func() tea.Msg { return blobsLoadedMsg{err: errors.New("settings are not available")} }
	}
	return func() tea.Msg {
		var (
			mu  sync.Mutex
			out = make(map[string]blob, len(names))
		)
		g, gctx := errgroup.WithContext(ctx)
		for _, name := range names {
			g.Go(func() error {
				st, err := svc.BlobStatus(gctx, name)
				if err != nil {
					return err
				}
				content, err := svc.BlobContent(gctx, name)
				if err != nil {
					return err
				}
				mu.Lock()
				out[name] = blob{status: st, content: content}
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return blobsLoadedMsg{err: err}
		}
		return blobsLoadedMsg{blobs: out}
	}
}

func saveBlob(ctx context.Context, svc blobService, name, content string) tea.Cmd {
	return func() tea.Msg {
		msg, err := svc.SaveBlob(ctx, name, content)
		return blobSavedMsg{name: name, content: content, message: msg, err: err}
	}
}

func (m *appModel) currentBlobName() string {
	if m.blobIdx < 0 || m.blobIdx >= len(m.blobNames) {
		return ""
	}
	return m.blobNames[m.blobIdx]
}

func (m *appModel) loadBlobIntoEditor() {
	m.textarea.SetValue(m.blobData[m.currentBlobName()].content)
	m.textarea.Focus()
}

func (m appModel) updateSettings(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+g":
		m.textarea.Blur()
		m.modal = modalNone
		return m, nil
	case "tab":
		if m.blobsLoading {
			return m, nil
		}
		// Unsaved edits to the current blob are kept while switching.
		name := m.currentBlobName()
		b := m.blobData[name]
		b.content = m.textarea.Value()
		m.blobData[name] = b
		m.blobIdx = (m.blobIdx + 1) % len(m.blobNames)
		m.loadBlobIntoEditor()
		return m, nil
	case "ctrl+s":
		if m.blobsLoading || m.blobs == nil {
			return m, nil
		}
		return m, saveBlob(m.ctx, m.blobs, m.currentBlobName(), m.textarea.Value())
	}
	if m.blobsLoading {
		return m, nil
	}
	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m appModel) renderSettingsModal() string {
	bodyW := modalBodyWidth(m.width)
	if m.blobsLoading {
		return renderModalBox(m.width, "Settings", styleMuted().Render("Loading"+glyphEllipsis()))
	}

	tabs := make([]string, 0, len(m.blobNames))
	for i, name := range m.blobNames {
		label := name
		if m.blobData[name].status.Configured {
			label += " (configured)"
		} else {
			label += " (not set)"
		}
		if i == m.blobIdx {
			tabs = append(tabs, "["+label+"]")
		} else {
			tabs = append(tabs, " "+label+" ")
		}
	}
	path := m.blobData[m.currentBlobName()].status.Path
	header := strings.Join(tabs, "  ")
	if path != "" {
		header += "\n" + styleMuted().Render(fmt.Sprintf("stored at %s", path))
	}
	help := styleMuted().Width(bodyW).Render("tab: switch   ctrl+s: save   esc: close")
	return renderModalBox(m.width, "Settings", strings.Join([]string{header, "", m.textarea.View(), "", help}, "\n"))
}
