// Package render projects an ordered task list and the service activity log
// into a View. It performs no I/O and issues no commands; the action lists it
// exposes are affordances that callers hand to the dispatcher.
package render

import (
	"fmt"
	"strings"

	"taskdeck-cli/internal/model"
	"taskdeck-cli/internal/statusutil"

	"github.com/charmbracelet/x/ansi"
)

const EmptyText = "No tasks yet"

type Row struct {
	Task    model.Task          `json:"task"`
	Glyph   string              `json:"glyph"`
	Class   string              `json:"class"`
	Label   string              `json:"label"`
	Actions []statusutil.Action `json:"actions"`
	// Languages are the choices offered by the language selector; Task.Language is the selected one.
	Languages []string `json:"languages"`
}

type View struct {
	Empty   bool   `json:"empty"`
	Rows    []Row  `json:"rows"`
	ShowLog bool   `json:"showLog"`
	Log     string `json:"log,omitempty"`
}

type Options struct {
	ASCII bool
}

// Build renders tasks in the given order. Callers pass tasks already ordered
// by statusutil.Order.
func Build(tasks []model.Task, currentLog string, opts Options) View {
	v := View{
		Empty:   len(tasks) == 0,
		ShowLog: currentLog != "",
		Log:     currentLog,
		Rows:    make([]Row, 0, len(tasks)),
	}
	for _, t := range tasks {
		v.Rows = append(v.Rows, Row{
			Task:      t,
			Glyph:     statusutil.Glyph(t.Status, opts.ASCII),
			Class:     t.Status.Class(),
			Label:     t.Label(),
			Actions:   statusutil.Actions(t.Status),
			Languages: model.Languages(),
		})
	}
	return v
}

// FindRow returns the row for task id.
func (v View) FindRow(id string) (Row, bool) {
	for _, r := range v.Rows {
		if r.Task.ID == id {
			return r, true
		}
	}
	return Row{}, false
}

// Text is the plain-text projection of v used by non-interactive output.
// width <= 0 disables truncation.
func Text(v View, width int) string {
	var b strings.Builder
	if v.ShowLog {
		b.WriteString("log: ")
		b.WriteString(lastLine(v.Log))
		b.WriteString("\n")
	}
	if v.Empty {
		b.WriteString(EmptyText)
		b.WriteString("\n")
		return b.String()
	}
	for _, r := range v.Rows {
		line := fmt.Sprintf("%s %-12s %-8s %-5s %s  %s", r.Glyph, r.Label, r.Task.Type, r.Task.Language, r.Task.ID, r.Task.Name)
		if len(r.Actions) > 0 {
			parts := make([]string, 0, len(r.Actions))
			for _, a := range r.Actions {
				parts = append(parts, string(a))
			}
			line += "  [" + strings.Join(parts, " ") + "]"
		}
		if width > 0 {
			line = ansi.Truncate(line, width, "…")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func lastLine(s string) string {
	s = strings.TrimRight(s, "\r\n")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
