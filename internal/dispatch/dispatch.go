// Package dispatch sends state-changing commands to the task service, one at
// a time per task, and asks the sync loop for a refresh after each attempt.
package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"taskdeck-cli/internal/model"
	"taskdeck-cli/internal/store"
	"taskdeck-cli/internal/taskapi"

	log "github.com/sirupsen/logrus"
)

var (
	// ErrInFlight means a command for the same task has not completed yet.
	// Callers drop the second request silently.
	ErrInFlight = errors.New("a command for this task is already in flight")
	// ErrNotConfirmed means a destructive command was dispatched before all of its warnings were accepted.
	ErrNotConfirmed = errors.New("command not confirmed")

	ErrUnknownCommand = errors.New("unknown command")
)

// Service is the subset of the task service the dispatcher drives.
type Service interface {
	CreateTask(ctx context.Context, rawURL, language string) (model.Task, error)
	CancelTask(ctx context.Context, id string) (string, error)
	RestartTask(ctx context.Context, id string) (string, error)
	RestartTaskOverwrite(ctx context.Context, id string) (string, error)
	DeleteTask(ctx context.Context, id string) (string, error)
	SetLanguage(ctx context.Context, id, language string) (string, error)
	ResetAll(ctx context.Context) (string, error)
}

// Refresher triggers an out-of-cycle snapshot fetch without waiting for it.
type Refresher interface {
	Refresh()
}

type Journal interface {
	AppendJournal(ctx context.Context, e store.JournalEntry) error
}

type Result struct {
	Kind    Kind
	TaskID  string
	Message string
	// Task is set for KindCreate.
	Task *model.Task
}

type Options struct {
	// Server labels journal entries.
	Server    string
	Refresher Refresher
	Journal   Journal
	Logger    *log.Entry
}

type Dispatcher struct {
	svc       Service
	refresher Refresher
	journal   Journal
	server    string
	log       *log.Entry

	mu       sync.Mutex
	inflight map[string]Kind
}

func New(svc Service, opts Options) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Dispatcher{
		svc:       svc,
		refresher: opts.Refresher,
		journal:   opts.Journal,
		server:    opts.Server,
		log:       logger.WithField("component", "dispatch"),
		inflight:  map[string]Kind{},
	}
}

// SetRefresher replaces the refresher. The TUI wires the loop after both are built.
func (d *Dispatcher) SetRefresher(r Refresher) {
	d.mu.Lock()
	d.refresher = r
	d.mu.Unlock()
}

// InFlight reports whether a command for task id is outstanding.
func (d *Dispatcher) InFlight(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.inflight[id]
	return ok
}

// Dispatch sends cmd and waits for the service response. Service failures are
// returned as *taskapi.RejectedError or *taskapi.TransportError. Local
// refusals (ErrInFlight, ErrNotConfirmed, validation) never reach the network
// and do not trigger a refresh.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) (Result, error) {
	if err := cmd.validate(); err != nil {
		return Result{}, err
	}
	if cmd.NeedsConfirmation() {
		return Result{}, ErrNotConfirmed
	}
	if cmd.Kind.Scoped() {
		if !d.acquire(cmd.TaskID, cmd.Kind) {
			d.log.WithFields(log.Fields{"kind": cmd.Kind.String(), "task": cmd.TaskID}).Debug("dropped: command already in flight")
			return Result{}, ErrInFlight
		}
	}

	res, err := d.send(ctx, cmd)

	if cmd.Kind.Scoped() {
		d.release(cmd.TaskID)
	}

	entry := d.log.WithFields(log.Fields{"kind": cmd.Kind.String(), "task": cmd.TaskID})
	if err != nil {
		entry.WithError(err).Warn("command failed")
	} else {
		entry.Info("command ok")
	}
	d.record(ctx, cmd, res, err)

	// Success shows the new state right away; failure reconciles anything the
	// UI assumed while the request was outstanding.
	d.refresh()
	return res, err
}

func (d *Dispatcher) send(ctx context.Context, cmd Command) (Result, error) {
	res := Result{Kind: cmd.Kind, TaskID: cmd.TaskID}
	var (
		msg string
		err error
	)
	switch cmd.Kind {
	case KindCreate:
		lang := cmd.Language
		if lang == "" {
			lang = model.DefaultLanguage
		}
		var t model.Task
		t, err = d.svc.CreateTask(ctx, cmd.URL, lang)
		if err == nil {
			res.Task = &t
			res.TaskID = t.ID
			msg = t.Name
		}
	case KindCancel:
		msg, err = d.svc.CancelTask(ctx, cmd.TaskID)
	case KindRestart:
		msg, err = d.svc.RestartTask(ctx, cmd.TaskID)
	case KindRestartOverwrite:
		msg, err = d.svc.RestartTaskOverwrite(ctx, cmd.TaskID)
	case KindDelete:
		msg, err = d.svc.DeleteTask(ctx, cmd.TaskID)
	case KindSetLanguage:
		msg, err = d.svc.SetLanguage(ctx, cmd.TaskID, cmd.Language)
	case KindResetAll:
		msg, err = d.svc.ResetAll(ctx)
	default:
		return res, ErrUnknownCommand
	}
	res.Message = msg
	return res, err
}

func (d *Dispatcher) acquire(id string, k Kind) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, busy := d.inflight[id]; busy {
		return false
	}
	d.inflight[id] = k
	return true
}

func (d *Dispatcher) release(id string) {
	d.mu.Lock()
	delete(d.inflight, id)
	d.mu.Unlock()
}

func (d *Dispatcher) refresh() {
	d.mu.Lock()
	r := d.refresher
	d.mu.Unlock()
	if r != nil {
		r.Refresh()
	}
}

func (d *Dispatcher) record(ctx context.Context, cmd Command, res Result, err error) {
	if d.journal == nil {
		return
	}
	e := store.JournalEntry{
		Server: d.server,
		Kind:   cmd.Kind.String(),
		TaskID: res.TaskID,
		OK:     err == nil,
		At:     time.Now(),
	}
	switch cmd.Kind {
	case KindCreate:
		e.Detail = cmd.URL
	case KindSetLanguage:
		e.Detail = cmd.Language
	}
	if err != nil {
		e.Message = taskapi.Message(err)
	} else {
		e.Message = res.Message
	}
	// The command already reached the service; a journal failure must not mask its outcome.
	if jerr := d.journal.AppendJournal(context.WithoutCancel(ctx), e); jerr != nil {
		d.log.WithError(jerr).Warn("journal append failed")
	}
}
