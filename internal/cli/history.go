package cli

import (
	"fmt"
	"strings"
	"time"

	"taskdeck-cli/internal/store"

	"github.com/spf13/cobra"
)

type historyResult struct {
	Entries []store.JournalEntry `json:"entries"`
}

func (r historyResult) Text() string {
	if len(r.Entries) == 0 {
		return "No commands recorded"
	}
	var b strings.Builder
	for _, e := range r.Entries {
		outcome := "ok"
		if !e.OK {
			outcome = "failed"
		}
		fmt.Fprintf(&b, "%s  %-17s %-6s %s", e.At.Local().Format(time.DateTime), e.Kind, outcome, e.TaskID)
		if e.Message != "" {
			b.WriteString("  " + e.Message)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func newHistoryCmd(app *App) *cobra.Command {
	var taskID string
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show commands sent from this machine, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.localStore()
			if err != nil {
				return writeErr(cmd, err)
			}
			entries, err := st.ReadJournal(cmdContext(cmd), strings.TrimSpace(taskID), limit)
			if err != nil {
				return writeErr(cmd, err)
			}
			if entries == nil {
				entries = []store.JournalEntry{}
			}
			return writeOut(cmd, app, historyResult{Entries: entries})
		},
	}
	cmd.Flags().StringVar(&taskID, "task", "", "Only show commands for this task id")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum entries (0 = all)")
	return cmd
}
