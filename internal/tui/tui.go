// Package tui is the interactive task list.
package tui

import (
	"context"

	"taskdeck-cli/internal/dispatch"
	"taskdeck-cli/internal/render"
	"taskdeck-cli/internal/statusutil"
	"taskdeck-cli/internal/store"
	"taskdeck-cli/internal/syncer"
	"taskdeck-cli/internal/taskapi"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
)

type Options struct {
	Client *taskapi.Client
	// Store holds the snapshot cache and command journal; nil disables both.
	Store  *store.Store
	Config store.Config
	Logger *log.Entry
}

func Run(ctx context.Context, opts Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	applyColorProfilePreference()
	applyThemePreference()
	applyGlyphPreference(opts.Config.ASCIIGlyphs())

	logger := opts.Logger
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	server := opts.Client.BaseURL()

	mailbox := syncer.NewMailbox()
	loopOpts := syncer.Options{
		Interval:         opts.Config.Sync.Interval.Std(),
		FailureThreshold: opts.Config.Sync.FailureThreshold,
		ASCII:            asciiGlyphs(),
		Server:           server,
		Logger:           logger,
	}
	dispOpts := dispatch.Options{Server: server, Logger: logger}
	if opts.Store != nil {
		loopOpts.Cache = *opts.Store
		dispOpts.Journal = *opts.Store
	}
	loop := syncer.New(opts.Client, mailbox, loopOpts)
	dispOpts.Refresher = loop
	d := dispatch.New(opts.Client, dispOpts)

	deps := appDeps{
		ctx:        ctx,
		server:     server,
		language:   opts.Config.UI.Language,
		blobs:      opts.Client,
		dispatcher: d,
		loop:       loop,
		mailbox:    mailbox,
	}
	if opts.Store != nil {
		if cached, ok, err := opts.Store.LoadSnapshot(ctx, server); err != nil {
			logger.WithError(err).Debug("snapshot cache unavailable")
		} else if ok {
			v := render.Build(statusutil.Order(cached.Snapshot.Tasks), cached.Snapshot.CurrentLog, render.Options{ASCII: asciiGlyphs()})
			deps.cached = &v
			deps.cachedAt = cached.FetchedAt
		}
	}

	m := newAppModel(deps)
	defer loop.Stop()
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
