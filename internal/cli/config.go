package cli

import (
	"fmt"

	"taskdeck-cli/internal/store"

	"github.com/spf13/cobra"
)

type configResult struct {
	ConfigDir        string `json:"config_dir"`
	ServerURL        string `json:"server_url"`
	Timeout          string `json:"timeout"`
	Interval         string `json:"interval"`
	FailureThreshold int    `json:"failure_threshold"`
	Glyphs           string `json:"glyphs"`
	Language         string `json:"language"`
	LogLevel         string `json:"log_level"`
	LogFile          string `json:"log_file,omitempty"`
}

func (r configResult) Text() string {
	return fmt.Sprintf(`[server]
url = %s
timeout = %s

[sync]
interval = %s
failure-threshold = %d

[ui]
glyphs = %s
language = %s

[log]
level = %s
file = %s
`, r.ServerURL, r.Timeout, r.Interval, r.FailureThreshold, r.Glyphs, r.Language, r.LogLevel, r.LogFile)
}

func newConfigCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration after flags and environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := store.ConfigDir()
			if err != nil {
				return writeErr(cmd, err)
			}
			c := app.cfg
			return writeOut(cmd, app, configResult{
				ConfigDir:        dir,
				ServerURL:        c.Server.URL,
				Timeout:          c.Server.Timeout.Std().String(),
				Interval:         c.Sync.Interval.Std().String(),
				FailureThreshold: c.Sync.FailureThreshold,
				Glyphs:           c.UI.Glyphs,
				Language:         c.UI.Language,
				LogLevel:         c.Log.Level,
				LogFile:          c.Log.File,
			})
		},
	}
}
