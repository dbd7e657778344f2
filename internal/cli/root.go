package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"taskdeck-cli/internal/dispatch"
	"taskdeck-cli/internal/format"
	"taskdeck-cli/internal/store"
	"taskdeck-cli/internal/taskapi"
	"taskdeck-cli/internal/tui"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type App struct {
	Server     string
	ConfigPath string
	PrettyJSON bool
	Format     string
	LogLevel   string
	LogFile    string
	Interval   time.Duration

	cfg     store.Config
	logger  *log.Logger
	logFile io.Closer
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "taskdeck",
		Short:        "Terminal client for the download task service",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive task list
  taskdeck

  # Queue a download (shortcut for: taskdeck tasks add <url>)
  taskdeck https://music.apple.com/cn/album/name/123456789

  # Scriptable commands
  taskdeck tasks list --format edn
  taskdeck tasks restart 123456789
  taskdeck watch
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.prepare(cmd)
	}
	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		app.close()
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.Server, "server", envOr("TASKDECK_SERVER", ""), "Task service API base URL (default from config.ini, then "+taskapi.DefaultBaseURL+")")
	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", envOr("TASKDECK_CONFIG", ""), "Path to config.ini (default: <config dir>/config.ini)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON/EDN output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("TASKDECK_FORMAT", format.JSON), "Output format (json|edn|text)")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", envOr("TASKDECK_LOG_LEVEL", ""), "Log level (panic|fatal|error|warn|info|debug|trace)")
	cmd.PersistentFlags().StringVar(&app.LogFile, "log-file", envOr("TASKDECK_LOG_FILE", ""), "Write logs to this file instead of stderr")
	cmd.PersistentFlags().DurationVar(&app.Interval, "interval", 0, "Sync interval for the task list and watch (default from config.ini, then 5s)")

	cmd.AddCommand(newTasksCmd(app))
	cmd.AddCommand(newWatchCmd(app))
	cmd.AddCommand(newSettingsCmd(app))
	cmd.AddCommand(newHistoryCmd(app))
	cmd.AddCommand(newConfigCmd(app))

	return cmd
}

// prepare resolves configuration (flag > env > config.ini > defaults) and
// sets up logging.
func (app *App) prepare(cmd *cobra.Command) error {
	if !format.Valid(app.Format) {
		return writeErr(cmd, fmt.Errorf("unknown format: %s", app.Format))
	}

	p := strings.TrimSpace(app.ConfigPath)
	if p == "" {
		def, err := store.ConfigPath()
		if err != nil {
			return writeErr(cmd, err)
		}
		p = def
	}
	cfg, err := store.LoadConfig(p)
	if err != nil {
		return writeErr(cmd, err)
	}
	if s := strings.TrimSpace(app.Server); s != "" {
		cfg.Server.URL = s
	}
	if app.Interval > 0 {
		cfg.Sync.Interval = store.Duration(app.Interval)
	}
	if s := strings.TrimSpace(app.LogLevel); s != "" {
		cfg.Log.Level = s
	}
	if s := strings.TrimSpace(app.LogFile); s != "" {
		cfg.Log.File = s
	}
	app.cfg = cfg

	return app.setupLogging(cmd.ErrOrStderr(), cfg.Log.File)
}

func (app *App) setupLogging(stderr io.Writer, file string) error {
	lvl, err := log.ParseLevel(app.cfg.Log.Level)
	if err != nil {
		return err
	}
	if app.logFile != nil {
		_ = app.logFile.Close()
		app.logFile = nil
	}

	logger := log.New()
	logger.SetLevel(lvl)
	logger.SetFormatter(&log.TextFormatter{
		DisableColors:    true,
		DisableTimestamp: file == "",
		FullTimestamp:    true,
	})
	logger.SetOutput(stderr)
	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			return err
		}
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		logger.SetOutput(f)
		app.logFile = f
	}
	app.logger = logger
	return nil
}

func (app *App) close() {
	if app.logFile != nil {
		_ = app.logFile.Close()
		app.logFile = nil
	}
}

func (app *App) entry() *log.Entry {
	if app.logger == nil {
		return log.NewEntry(log.StandardLogger())
	}
	return log.NewEntry(app.logger)
}

func (app *App) newClient() (*taskapi.Client, error) {
	return taskapi.New(taskapi.Options{
		BaseURL: app.cfg.Server.URL,
		Timeout: app.cfg.Server.Timeout.Std(),
		Logger:  app.entry(),
	})
}

// localStore is the snapshot cache and command journal next to config.ini.
func (app *App) localStore() (store.Store, error) {
	dir, err := store.ConfigDir()
	if err != nil {
		return store.Store{}, err
	}
	return store.Store{Dir: dir}, nil
}

func (app *App) newDispatcher(c *taskapi.Client) *dispatch.Dispatcher {
	opts := dispatch.Options{Server: c.BaseURL(), Logger: app.entry()}
	if st, err := app.localStore(); err == nil {
		opts.Journal = st
	}
	return dispatch.New(c, opts)
}

func runTUI(cmd *cobra.Command, app *App) error {
	c, err := app.newClient()
	if err != nil {
		return writeErr(cmd, err)
	}
	// The TUI owns the terminal; logs go to a file.
	if app.cfg.Log.File == "" {
		dir, err := store.ConfigDir()
		if err != nil {
			return writeErr(cmd, err)
		}
		if err := app.setupLogging(cmd.ErrOrStderr(), filepath.Join(dir, "taskdeck.log")); err != nil {
			return writeErr(cmd, err)
		}
	}
	opts := tui.Options{Client: c, Config: app.cfg, Logger: app.entry()}
	if st, err := app.localStore(); err == nil {
		opts.Store = &st
	}
	if err := tui.Run(cmdContext(cmd), opts); err != nil {
		return writeErr(cmd, err)
	}
	return nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

// writeErr prints err (the service's own detail for rejected commands) to
// stderr and returns it so the process exits non-zero.
func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), taskapi.Message(err))
	return err
}
