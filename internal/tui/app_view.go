package tui

import (
	"fmt"
	"strings"

	"taskdeck-cli/internal/dispatch"
	"taskdeck-cli/internal/model"
	"taskdeck-cli/internal/render"
	"taskdeck-cli/internal/statusutil"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

const maxLogLines = 6

func (m appModel) View() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	if m.modal != modalNone {
		box := m.renderModal()
		if m.height > 0 {
			return lipgloss.Place(width, m.height, lipgloss.Center, lipgloss.Center, box)
		}
		return box
	}

	var b strings.Builder
	b.WriteString(m.renderHeader(width))
	b.WriteString("\n")
	b.WriteString(styleMuted().Render(strings.Repeat(glyphHRule(), width)))
	b.WriteString("\n")
	b.WriteString(m.renderRows(width))

	if m.view.ShowLog {
		b.WriteString("\n")
		b.WriteString(styleMuted().Render(strings.Repeat(glyphHRule(), width)))
		b.WriteString("\n")
		b.WriteString(renderLog(m.view.Log, width))
	}

	b.WriteString("\n\n")
	if m.minibufferText != "" {
		b.WriteString(xansi.Truncate(m.minibufferText, width, glyphEllipsis()))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m appModel) renderHeader(width int) string {
	title := lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Render("taskdeck")
	parts := []string{title, styleMuted().Render(m.server)}
	if m.stale {
		when := "earlier"
		if !m.staleAt.IsZero() {
			when = m.staleAt.Local().Format("2006-01-02 15:04")
		}
		parts = append(parts, lipgloss.NewStyle().Foreground(colorChromeMutedFg).Render("cached "+when))
	}
	line := strings.Join(parts, "  ")
	if m.syncErr != "" {
		line += "  " + styleError().Render(fmt.Sprintf("sync failing (%d): %s", m.failures, m.syncErr))
	}
	return xansi.Truncate(line, width, glyphEllipsis())
}

func (m appModel) renderRows(width int) string {
	if !m.hasView {
		return styleMuted().Render("Loading" + glyphEllipsis())
	}
	if m.view.Empty {
		return styleMuted().Render(render.EmptyText)
	}
	lines := make([]string, 0, len(m.view.Rows))
	for i, r := range m.view.Rows {
		lines = append(lines, m.renderRow(r, i == m.cursor, width))
	}
	return strings.Join(lines, "\n")
}

func (m appModel) renderRow(r render.Row, selected bool, width int) string {
	cursor := " "
	if selected {
		cursor = glyphCursor()
	}
	glyph := r.Glyph
	if asciiGlyphs() {
		glyph = statusutil.Glyph(r.Task.Status, true)
	}
	busy := " "
	if m.dispatcher != nil && m.dispatcher.InFlight(r.Task.ID) {
		busy = glyphInFlight()
	}
	st := styleStatus(r.Class)
	name := r.Task.Name
	if name == "" {
		name = r.Task.URL
	}
	line := fmt.Sprintf("%s %s%s %-8s %-10s %-5s %s",
		cursor,
		st.Render(glyph),
		busy,
		st.Render(r.Label),
		r.Task.Type,
		model.LanguageLabel(r.Task.Language),
		name,
	)
	if hints := actionHints(r.Actions); hints != "" {
		line += "  " + styleMuted().Render(hints)
	}
	line = xansi.Truncate(line, width, glyphEllipsis())
	if selected {
		line = lipgloss.NewStyle().Background(colorSelectedBg).Foreground(colorSelectedFg).Render(line)
	}
	return line
}

func actionHints(actions []statusutil.Action) string {
	if len(actions) == 0 {
		return ""
	}
	keys := map[statusutil.Action]string{
		statusutil.ActionCancel:           "c",
		statusutil.ActionRestart:          "r",
		statusutil.ActionRestartOverwrite: "R",
		statusutil.ActionDelete:           "d",
	}
	out := make([]string, 0, len(actions))
	for _, a := range actions {
		if k, ok := keys[a]; ok {
			out = append(out, k+":"+string(a))
		}
	}
	return "[" + strings.Join(out, " ") + "]"
}

// renderLog shows the tail of the service activity log.
func renderLog(log string, width int) string {
	lines := strings.Split(strings.TrimRight(log, "\n"), "\n")
	if len(lines) > maxLogLines {
		lines = lines[len(lines)-maxLogLines:]
	}
	for i, l := range lines {
		lines[i] = styleMuted().Render(xansi.Truncate(l, width, glyphEllipsis()))
	}
	return strings.Join(lines, "\n")
}

func (m appModel) renderModal() string {
	switch m.modal {
	case modalConfirm:
		warning, _ := m.pending.NextWarning()
		total := len(m.pending.Kind.Warnings())
		title := "Confirm " + m.pending.Kind.String()
		if total > 1 {
			title = fmt.Sprintf("%s (%d/%d)", title, m.pending.Confirmed+1, total)
		}
		body := warning
		if m.pending.Kind != dispatch.KindResetAll {
			if r, ok := m.view.FindRow(m.pending.TaskID); ok {
				body = r.Task.Name + "\n\n" + warning
			}
		}
		return renderConfirmModal(m.width, title, body, "Yes", "No", m.confirmFocus)

	case modalAddTask:
		bodyW := modalBodyWidth(m.width)
		lang := styleMuted().Render("language: " + model.LanguageLabel(m.addLanguage) + " (tab to change)")
		help := styleMuted().Width(bodyW).Render("enter: add   esc: cancel")
		return renderModalBox(m.width, "Add task", strings.Join([]string{
			renderInputLine(bodyW, m.input.View()),
			"",
			lang,
			"",
			help,
		}, "\n"))

	case modalLanguage:
		r, _ := m.selectedRow()
		lines := make([]string, 0, len(r.Languages)+2)
		for i, l := range r.Languages {
			prefix := "  "
			if i == m.languageIdx {
				prefix = glyphCursor() + " "
			}
			label := model.LanguageLabel(l)
			if l == r.Task.Language {
				label += " (current)"
			}
			lines = append(lines, prefix+label)
		}
		lines = append(lines, "", styleMuted().Render("enter: select   esc: cancel"))
		return renderModalBox(m.width, "Language: "+r.Task.Name, strings.Join(lines, "\n"))

	case modalSettings:
		return m.renderSettingsModal()

	case modalHelp:
		return renderModalBox(m.width, "Help", renderMarkdown(helpMarkdown, modalBodyWidth(m.width)))
	}
	return ""
}
