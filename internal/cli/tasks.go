package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"taskdeck-cli/internal/dispatch"
	"taskdeck-cli/internal/model"
	"taskdeck-cli/internal/render"
	"taskdeck-cli/internal/statusutil"

	"github.com/spf13/cobra"
)

var errAborted = errors.New("aborted")

type listResult struct {
	Tasks      []model.Task `json:"tasks"`
	CurrentLog string       `json:"current_log,omitempty"`

	view render.View
}

func (r listResult) Text() string { return render.Text(r.view, 0) }

type commandResult struct {
	Kind    string      `json:"kind"`
	TaskID  string      `json:"task_id,omitempty"`
	Message string      `json:"message,omitempty"`
	Task    *model.Task `json:"task,omitempty"`
}

func (r commandResult) Text() string {
	if r.Message != "" {
		return r.Message
	}
	return r.Kind + ": ok"
}

func newTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Task commands",
	}

	cmd.AddCommand(newTasksListCmd(app))
	cmd.AddCommand(newTasksAddCmd(app))
	cmd.AddCommand(newTaskActionCmd(app, "cancel", "Cancel a pending task", dispatch.Cancel))
	cmd.AddCommand(newTaskActionCmd(app, "restart", "Restart a completed, failed or cancelled task", dispatch.Restart))
	cmd.AddCommand(newTaskActionCmd(app, "restart-overwrite", "Restart a task and overwrite existing files", dispatch.RestartOverwrite))
	cmd.AddCommand(newTaskActionCmd(app, "delete", "Remove a task from the service", dispatch.Delete))
	cmd.AddCommand(newTasksLanguageCmd(app))
	cmd.AddCommand(newTasksResetAllCmd(app))

	return cmd
}

func newTasksListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tasks, downloading first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.newClient()
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmdContext(cmd)
			snap, err := c.ListTasks(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			if st, err := app.localStore(); err == nil {
				if err := st.SaveSnapshot(ctx, c.BaseURL(), snap); err != nil {
					app.entry().WithError(err).Debug("snapshot cache write failed")
				}
			}
			ordered := statusutil.Order(snap.Tasks)
			return writeOut(cmd, app, listResult{
				Tasks:      ordered,
				CurrentLog: snap.CurrentLog,
				view:       render.Build(ordered, snap.CurrentLog, render.Options{ASCII: app.cfg.ASCIIGlyphs()}),
			})
		},
	}
}

func newTasksAddCmd(app *App) *cobra.Command {
	var language string
	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Queue a download for a store URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lang := strings.TrimSpace(language)
			if lang == "" {
				lang = app.cfg.UI.Language
			}
			if !model.ValidLanguage(lang) {
				return writeErr(cmd, fmt.Errorf("unsupported language %q (want one of %s)", lang, strings.Join(model.Languages(), ", ")))
			}
			return runCommand(cmd, app, dispatch.Create(model.DecodeURL(args[0]), lang), 0)
		},
	}
	cmd.Flags().StringVar(&language, "language", "", "Metadata language (zh-CN|en-US; default from config.ini)")
	return cmd
}

func newTaskActionCmd(app *App, use, short string, build func(id string) dispatch.Command) *cobra.Command {
	var yes int
	cmd := &cobra.Command{
		Use:   use + " <task-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, app, build(strings.TrimSpace(args[0])), yes)
		},
	}
	if n := len(build("x").Kind.Warnings()); n > 0 {
		cmd.Flags().CountVarP(&yes, "yes", "y", "Accept the confirmation prompt")
	}
	return cmd
}

func newTasksLanguageCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "language <task-id> <language>",
		Short: "Change a task's metadata language",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lang := strings.TrimSpace(args[1])
			if !model.ValidLanguage(lang) {
				return writeErr(cmd, fmt.Errorf("unsupported language %q (want one of %s)", lang, strings.Join(model.Languages(), ", ")))
			}
			return runCommand(cmd, app, dispatch.SetLanguage(strings.TrimSpace(args[0]), lang), 0)
		},
	}
}

func newTasksResetAllCmd(app *App) *cobra.Command {
	var yes int
	cmd := &cobra.Command{
		Use:   "reset-all",
		Short: "Reset every task that is not downloading back to pending",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, app, dispatch.ResetAll(), yes)
		},
	}
	cmd.Flags().CountVarP(&yes, "yes", "y", "Accept a confirmation prompt (repeat to accept both: -yy)")
	return cmd
}

// runCommand counts --yes flags as accepted warnings, prompts for the rest and
// dispatches the command.
func runCommand(cmd *cobra.Command, app *App, c dispatch.Command, accepted int) error {
	c.Confirmed = accepted
	if err := confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), &c); err != nil {
		return writeErr(cmd, err)
	}

	client, err := app.newClient()
	if err != nil {
		return writeErr(cmd, err)
	}
	res, err := app.newDispatcher(client).Dispatch(cmdContext(cmd), c)
	if err != nil {
		return writeErr(cmd, err)
	}
	return writeOut(cmd, app, commandResult{
		Kind:    res.Kind.String(),
		TaskID:  res.TaskID,
		Message: res.Message,
		Task:    res.Task,
	})
}

// confirm asks for each warning not yet accepted. Anything but y/yes aborts.
func confirm(in io.Reader, out io.Writer, c *dispatch.Command) error {
	var r *bufio.Reader
	for {
		w, ok := c.NextWarning()
		if !ok {
			return nil
		}
		if r == nil {
			r = bufio.NewReader(in)
		}
		fmt.Fprintf(out, "%s [y/N]: ", w)
		line, err := r.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return errAborted
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			c.Confirmed++
		default:
			return errAborted
		}
	}
}
