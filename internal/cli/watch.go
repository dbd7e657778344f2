package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskdeck-cli/internal/render"
	"taskdeck-cli/internal/syncer"
	"taskdeck-cli/internal/taskapi"

	"github.com/spf13/cobra"
)

func newWatchCmd(app *App) *cobra.Command {
	var count int
	var width int
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the task list every sync interval until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.newClient()
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			mb := syncer.NewMailbox()
			opts := syncer.Options{
				Interval:         app.cfg.Sync.Interval.Std(),
				FailureThreshold: app.cfg.Sync.FailureThreshold,
				ASCII:            app.cfg.ASCIIGlyphs(),
				Server:           c.BaseURL(),
				Logger:           app.entry(),
			}
			if st, err := app.localStore(); err == nil {
				opts.Cache = st
			}
			loop := syncer.New(c, mb, opts)
			loop.Start(ctx)
			defer loop.Stop()

			out := cmd.OutOrStdout()
			shown := 0
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-mb.Notify():
				}
				u, ok := mb.Take()
				if !ok {
					continue
				}
				if u.Err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "sync failing (%d): %s\n", u.Failures, taskapi.Message(u.Err))
				}
				if u.View == nil {
					continue
				}
				fmt.Fprintf(out, "-- %s\n", time.Now().Format(time.TimeOnly))
				fmt.Fprint(out, render.Text(*u.View, width))
				shown++
				if count > 0 && shown >= count {
					return nil
				}
			}
		},
	}
	cmd.Flags().IntVar(&count, "count", 0, "Exit after this many refreshes (0 = until interrupted)")
	cmd.Flags().IntVar(&width, "width", 0, "Truncate rows to this many columns (0 = no truncation)")
	return cmd
}
