package dispatch

import (
	"fmt"
	"strings"

	"taskdeck-cli/internal/statusutil"
)

type Kind int

const (
	KindCreate Kind = iota
	KindCancel
	KindRestart
	KindRestartOverwrite
	KindDelete
	KindSetLanguage
	KindResetAll
)

func (k Kind) String() string {
	switch k {
	case KindCreate:
		return "create"
	case KindCancel:
		return "cancel"
	case KindRestart:
		return "restart"
	case KindRestartOverwrite:
		return "restart-overwrite"
	case KindDelete:
		return "delete"
	case KindSetLanguage:
		return "set-language"
	case KindResetAll:
		return "reset-all"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Scoped reports whether the command targets one task and takes part in the
// per-task in-flight guard.
func (k Kind) Scoped() bool {
	switch k {
	case KindCancel, KindRestart, KindRestartOverwrite, KindDelete, KindSetLanguage:
		return true
	default:
		return false
	}
}

// Warnings are the confirmation prompts a user must accept, in order, before
// the command is sent.
func (k Kind) Warnings() []string {
	switch k {
	case KindDelete:
		return []string{"Delete this task? It is removed from the service registry."}
	case KindRestartOverwrite:
		return []string{"Download again and overwrite files that already exist?"}
	case KindResetAll:
		return []string{
			"Download every task again?",
			"All tasks that are not downloading will be reset to pending. This cannot be undone. Continue?",
		}
	default:
		return nil
	}
}

// Command is one user intent. Confirmed counts the warnings the user accepted.
type Command struct {
	Kind      Kind
	TaskID    string
	URL       string
	Language  string
	Confirmed int
}

func Create(url, language string) Command {
	return Command{Kind: KindCreate, URL: url, Language: language}
}

func Cancel(id string) Command { return Command{Kind: KindCancel, TaskID: id} }

func Restart(id string) Command { return Command{Kind: KindRestart, TaskID: id} }

func RestartOverwrite(id string) Command { return Command{Kind: KindRestartOverwrite, TaskID: id} }

func Delete(id string) Command { return Command{Kind: KindDelete, TaskID: id} }

func SetLanguage(id, language string) Command {
	return Command{Kind: KindSetLanguage, TaskID: id, Language: language}
}

func ResetAll() Command { return Command{Kind: KindResetAll} }

// Confirm returns c with every warning accepted.
func (c Command) Confirm() Command {
	c.Confirmed = len(c.Kind.Warnings())
	return c
}

func (c Command) NeedsConfirmation() bool {
	return c.Confirmed < len(c.Kind.Warnings())
}

// NextWarning is the prompt still to be accepted, if any.
func (c Command) NextWarning() (string, bool) {
	ws := c.Kind.Warnings()
	if c.Confirmed < 0 || c.Confirmed >= len(ws) {
		return "", false
	}
	return ws[c.Confirmed], true
}

func (c Command) validate() error {
	switch {
	case c.Kind < KindCreate || c.Kind > KindResetAll:
		return ErrUnknownCommand
	case c.Kind.Scoped() && strings.TrimSpace(c.TaskID) == "":
		return fmt.Errorf("%s: task id required", c.Kind)
	case c.Kind == KindCreate && strings.TrimSpace(c.URL) == "":
		return fmt.Errorf("%s: url required", c.Kind)
	case c.Kind == KindSetLanguage && strings.TrimSpace(c.Language) == "":
		return fmt.Errorf("%s: language required", c.Kind)
	}
	return nil
}

// ForAction maps a rendered row affordance to its command. Language changes
// need the new value and are built with SetLanguage.
func ForAction(a statusutil.Action, taskID string) (Command, bool) {
	switch a {
	case statusutil.ActionCancel:
		return Cancel(taskID), true
	case statusutil.ActionRestart:
		return Restart(taskID), true
	case statusutil.ActionRestartOverwrite:
		return RestartOverwrite(taskID), true
	case statusutil.ActionDelete:
		return Delete(taskID), true
	default:
		return Command{}, false
	}
}
