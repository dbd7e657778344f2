package statusutil

import (
	"sort"

	"taskdeck-cli/internal/model"
)

// Action is a task-level affordance offered to the user.
type Action string

const (
	ActionCancel           Action = "cancel"
	ActionRestart          Action = "restart"
	ActionRestartOverwrite Action = "restart-overwrite"
	ActionDelete           Action = "delete"
	ActionSetLanguage      Action = "set-language"
	ActionOpenURL          Action = "open-url"
)

// Rank is the display priority of a status: active work first, then queued,
// then finished states (successes, failures, cancellations). Unknown statuses
// sort last.
func Rank(s model.Status) int {
	switch s {
	case model.StatusDownloading:
		return 0
	case model.StatusPending:
		return 1
	case model.StatusCompleted:
		return 2
	case model.StatusError:
		return 3
	case model.StatusCancelled:
		return 4
	default:
		return 5
	}
}

// Order returns tasks sorted by Rank. Tasks with the same rank keep their
// snapshot order. When an id repeats, only its last occurrence is kept. The
// input slice is not modified.
func Order(tasks []model.Task) []model.Task {
	last := make(map[string]int, len(tasks))
	for i, t := range tasks {
		last[t.ID] = i
	}
	out := make([]model.Task, 0, len(last))
	for i, t := range tasks {
		if last[t.ID] == i {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return Rank(out[i].Status) < Rank(out[j].Status)
	})
	return out
}

// Actions returns the status-scoped actions legal for s. Language changes and
// opening the store link are available for every task and are not included.
func Actions(s model.Status) []Action {
	switch s {
	case model.StatusPending:
		return []Action{ActionCancel}
	case model.StatusCompleted, model.StatusError, model.StatusCancelled:
		return []Action{ActionRestart, ActionRestartOverwrite, ActionDelete}
	default:
		// Downloading, or a state this client does not know.
		return nil
	}
}

// Allowed reports whether action may be offered for a task in status s.
func Allowed(s model.Status, action Action) bool {
	switch action {
	case ActionSetLanguage, ActionOpenURL:
		return true
	}
	for _, a := range Actions(s) {
		if a == action {
			return true
		}
	}
	return false
}

// Glyph is the single-character status marker. ascii selects a fallback set
// for terminals without good unicode coverage.
func Glyph(s model.Status, ascii bool) string {
	if ascii {
		switch s {
		case model.StatusPending:
			return "o"
		case model.StatusDownloading:
			return "*"
		case model.StatusCompleted:
			return "+"
		case model.StatusError:
			return "x"
		case model.StatusCancelled:
			return "-"
		default:
			return "?"
		}
	}
	switch s {
	case model.StatusPending:
		return "○"
	case model.StatusDownloading:
		return "●"
	case model.StatusCompleted:
		return "✓"
	case model.StatusError:
		return "✗"
	case model.StatusCancelled:
		return "◌"
	default:
		return "?"
	}
}
