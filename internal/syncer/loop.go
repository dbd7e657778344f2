// Package syncer keeps a view of the task service current by polling it on a
// fixed period and on demand.
package syncer

import (
	"context"
	"sync"
	"time"

	"taskdeck-cli/internal/model"
	"taskdeck-cli/internal/render"
	"taskdeck-cli/internal/statusutil"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultInterval         = 5 * time.Second
	DefaultFailureThreshold = 3
)

type Fetcher interface {
	ListTasks(ctx context.Context) (model.Snapshot, error)
}

// Sink receives rendered views and persistent failures. Both methods are
// called with the loop's lock held and must not block.
type Sink interface {
	Render(v render.View)
	SyncFailed(err error, consecutive int)
}

// Cache remembers the last applied snapshot per server.
type Cache interface {
	SaveSnapshot(ctx context.Context, server string, snap model.Snapshot) error
}

type Options struct {
	Interval         time.Duration
	FailureThreshold int
	ASCII            bool

	Cache  Cache
	Server string
	Logger *log.Entry
}

// Loop polls a Fetcher and pushes ordered views to a Sink. Responses are
// applied in request order: a completion older than the last applied one, or
// arriving after Stop, is dropped.
type Loop struct {
	fetcher Fetcher
	sink    Sink
	opts    Options
	log     *log.Entry

	mu         sync.Mutex
	running    bool
	gen        uint64
	runCtx     context.Context
	cancel     context.CancelFunc
	nextSeq    uint64
	appliedSeq uint64
	failures   int

	// cacheMu orders snapshot cache writes; cachedSeq is the last seq written.
	cacheMu   sync.Mutex
	cachedSeq uint64
}

func New(f Fetcher, sink Sink, opts Options) *Loop {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = DefaultFailureThreshold
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Loop{
		fetcher: f,
		sink:    sink,
		opts:    opts,
		log:     logger.WithField("component", "sync"),
	}
}

// Start fetches immediately and then once per interval until Stop or until
// ctx is done. Calling Start on a running loop does nothing.
func (l *Loop) Start(ctx context.Context) {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	l.running = true
	l.gen++
	l.runCtx = runCtx
	l.cancel = cancel
	l.failures = 0
	gen := l.gen
	l.mu.Unlock()

	l.log.WithField("interval", l.opts.Interval).Debug("sync started")
	go l.run(runCtx, gen)
}

// Stop cancels outstanding fetches and stops the ticker. Nothing reaches the
// sink after Stop returns.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return
	}
	l.running = false
	l.cancel()
	l.cancel = nil
	l.runCtx = nil
	l.log.Debug("sync stopped")
}

func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Failures is the number of consecutive failed fetches.
func (l *Loop) Failures() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failures
}

// Refresh starts an out-of-cycle fetch and returns without waiting for it.
// It is a no-op while the loop is stopped.
func (l *Loop) Refresh() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	ctx, gen := l.runCtx, l.gen
	l.mu.Unlock()
	go l.fetch(ctx, gen)
}

func (l *Loop) run(ctx context.Context, gen uint64) {
	t := time.NewTicker(l.opts.Interval)
	defer t.Stop()

	l.fetch(ctx, gen)
	for {
		select {
		case <-ctx.Done():
			l.mu.Lock()
			// A parent context ending stops the loop; Start may run it again.
			if l.running && l.gen == gen {
				l.running = false
				l.cancel()
				l.cancel = nil
				l.runCtx = nil
				l.log.Debug("sync stopped: context done")
			}
			l.mu.Unlock()
			return
		case <-t.C:
			l.fetch(ctx, gen)
		}
	}
}

func (l *Loop) fetch(ctx context.Context, gen uint64) {
	l.mu.Lock()
	l.nextSeq++
	seq := l.nextSeq
	l.mu.Unlock()

	snap, err := l.fetcher.ListTasks(ctx)

	l.mu.Lock()
	if !l.running || l.gen != gen || seq <= l.appliedSeq {
		l.mu.Unlock()
		l.log.WithField("seq", seq).Debug("discarded stale sync response")
		return
	}
	if err != nil && ctx.Err() != nil {
		l.mu.Unlock()
		l.log.WithField("seq", seq).Debug("sync fetch cancelled")
		return
	}
	if err != nil {
		l.failures++
		n := l.failures
		entry := l.log.WithError(err).WithField("consecutive", n)
		if n >= l.opts.FailureThreshold {
			entry.Error("sync failing")
			l.sink.SyncFailed(err, n)
		} else {
			entry.Warn("sync failed")
		}
		l.mu.Unlock()
		return
	}
	l.appliedSeq = seq
	l.failures = 0
	view := render.Build(statusutil.Order(snap.Tasks), snap.CurrentLog, render.Options{ASCII: l.opts.ASCII})
	l.sink.Render(view)
	l.mu.Unlock()

	l.saveCache(ctx, seq, snap)
}

// saveCache writes snap unless a newer applied snapshot was already written.
func (l *Loop) saveCache(ctx context.Context, seq uint64, snap model.Snapshot) {
	if l.opts.Cache == nil {
		return
	}
	l.cacheMu.Lock()
	defer l.cacheMu.Unlock()
	if seq <= l.cachedSeq {
		return
	}
	if err := l.opts.Cache.SaveSnapshot(context.WithoutCancel(ctx), l.opts.Server, snap); err != nil {
		l.log.WithError(err).Debug("snapshot cache write failed")
		return
	}
	l.cachedSeq = seq
}
