package syncer

import (
	"sync"

	"taskdeck-cli/internal/render"
)

// Update is what a Mailbox holds between reads: the newest view, the newest
// persistent failure, or both.
type Update struct {
	View     *render.View
	Err      error
	Failures int
}

// Mailbox is a Sink that keeps only the latest value. Readers wait on Notify
// and then Take; writers never block.
type Mailbox struct {
	mu      sync.Mutex
	pending Update
	has     bool
	notify  chan struct{}
}

func NewMailbox() *Mailbox {
	return &Mailbox{notify: make(chan struct{}, 1)}
}

func (m *Mailbox) Render(v render.View) {
	m.mu.Lock()
	m.pending.View = &v
	// A good fetch supersedes any failure still waiting to be read.
	m.pending.Err = nil
	m.pending.Failures = 0
	m.has = true
	m.mu.Unlock()
	m.signal()
}

func (m *Mailbox) SyncFailed(err error, consecutive int) {
	m.mu.Lock()
	m.pending.Err = err
	m.pending.Failures = consecutive
	m.has = true
	m.mu.Unlock()
	m.signal()
}

func (m *Mailbox) signal() {
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

func (m *Mailbox) Notify() <-chan struct{} { return m.notify }

// Take returns and clears the pending update.
func (m *Mailbox) Take() (Update, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.has {
		return Update{}, false
	}
	u := m.pending
	m.pending = Update{}
	m.has = false
	return u, true
}
