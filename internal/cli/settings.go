package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"taskdeck-cli/internal/taskapi"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type blobResult struct {
	Name       string `json:"name"`
	Configured bool   `json:"configured"`
	Path       string `json:"path,omitempty"`
	Content    string `json:"content"`
}

type settingsResult struct {
	Blobs []blobResult `json:"blobs"`
}

func (r settingsResult) Text() string {
	var b strings.Builder
	for i, bl := range r.Blobs {
		if i > 0 {
			b.WriteString("\n")
		}
		state := "not set"
		if bl.Configured {
			state = "configured"
		}
		fmt.Fprintf(&b, "[%s] %s", bl.Name, state)
		if bl.Path != "" {
			fmt.Fprintf(&b, " (%s)", bl.Path)
		}
		b.WriteString("\n")
		if bl.Content != "" {
			b.WriteString(strings.TrimRight(bl.Content, "\n"))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func validBlobName(name string) error {
	switch name {
	case taskapi.BlobCookies, taskapi.BlobConfig:
		return nil
	}
	return fmt.Errorf("unknown settings blob %q (want %s or %s)", name, taskapi.BlobCookies, taskapi.BlobConfig)
}

func newSettingsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Service settings blobs (cookies, config)",
	}
	cmd.AddCommand(newSettingsShowCmd(app))
	cmd.AddCommand(newSettingsSetCmd(app))
	return cmd
}

func newSettingsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show [cookies|config]",
		Short: "Show whether each blob is configured, and its contents",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := []string{taskapi.BlobCookies, taskapi.BlobConfig}
			if len(args) == 1 {
				if err := validBlobName(args[0]); err != nil {
					return writeErr(cmd, err)
				}
				names = args
			}
			c, err := app.newClient()
			if err != nil {
				return writeErr(cmd, err)
			}

			results := make([]blobResult, len(names))
			var mu sync.Mutex
			g, ctx := errgroup.WithContext(cmdContext(cmd))
			for i, name := range names {
				g.Go(func() error {
					st, err := c.BlobStatus(ctx, name)
					if err != nil {
						return err
					}
					content, err := c.BlobContent(ctx, name)
					if err != nil {
						return err
					}
					mu.Lock()
					results[i] = blobResult{Name: name, Configured: st.Configured, Path: st.Path, Content: content}
					mu.Unlock()
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, settingsResult{Blobs: results})
		},
	}
}

func newSettingsSetCmd(app *App) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "set <cookies|config>",
		Short: "Replace a blob with the contents of --file or stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if err := validBlobName(name); err != nil {
				return writeErr(cmd, err)
			}
			var (
				b   []byte
				err error
			)
			if file != "" && file != "-" {
				b, err = os.ReadFile(file)
			} else {
				b, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return writeErr(cmd, err)
			}

			c, err := app.newClient()
			if err != nil {
				return writeErr(cmd, err)
			}
			msg, err := c.SaveBlob(cmdContext(cmd), name, string(b))
			if err != nil {
				return writeErr(cmd, err)
			}
			app.entry().WithField("blob", name).Info("settings blob saved")
			return writeOut(cmd, app, commandResult{Kind: "save-" + name, Message: msg})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read contents from this file (default: stdin)")
	return cmd
}
