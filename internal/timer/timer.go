// Package timer implements the Timer primitive plugins use in place
// of `await` semantics (spec.md §9 "Coroutine-style plugin code"): a
// single-shot or periodic callback that posts back onto the reactor
// through the manager's own post function, rather than a raw
// goroutine the plugin ABI would have to reason about concurrently.
package timer

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes a one-shot timer from a repeating one.
type Kind int

const (
	Single Kind = iota
	Periodic
)

// Manager owns every live timer created by plugin code (through
// Irccd.Timer) and schedules their callbacks via time.AfterFunc,
// delivering each fire through post so it always runs on the bot's
// single cooperative reactor goroutine (spec.md §5's "post(callable)"
// escape hatch), never directly on a timer goroutine.
type Manager struct {
	logger *slog.Logger
	post   func(func())

	mu     sync.Mutex
	timers map[string]*entry
}

type entry struct {
	kind     Kind
	delay    time.Duration
	callback func()
	t        *time.Timer
	stopped  bool
}

// New creates a Manager. post is called whenever a timer fires, with
// the plugin callback to run; it must marshal execution onto the
// reactor (the bot composition root supplies this).
func New(logger *slog.Logger, post func(func())) *Manager {
	return &Manager{
		logger: logger,
		post:   post,
		timers: make(map[string]*entry),
	}
}

// Create schedules callback to run once after delay (kind Single) or
// every delay (kind Periodic), returning an id that Stop accepts.
func (m *Manager) Create(kind Kind, delay time.Duration, callback func()) string {
	id := uuid.NewString()

	m.mu.Lock()
	e := &entry{kind: kind, delay: delay, callback: callback}
	m.timers[id] = e
	m.mu.Unlock()

	e.t = time.AfterFunc(delay, func() { m.fire(id) })
	return id
}

func (m *Manager) fire(id string) {
	m.mu.Lock()
	e, ok := m.timers[id]
	if !ok || e.stopped {
		m.mu.Unlock()
		return
	}
	if e.kind == Single {
		delete(m.timers, id)
	}
	m.mu.Unlock()

	m.post(e.callback)

	if e.kind == Periodic {
		m.mu.Lock()
		if cur, ok := m.timers[id]; ok && !cur.stopped {
			cur.t = time.AfterFunc(e.delay, func() { m.fire(id) })
		}
		m.mu.Unlock()
	}
}

// Stop cancels a timer; safe to call more than once or with an
// unknown id.
func (m *Manager) Stop(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.timers[id]
	if !ok {
		return
	}
	e.stopped = true
	if e.t != nil {
		e.t.Stop()
	}
	delete(m.timers, id)
}

// StopAll cancels every live timer, used at bot shutdown so no timer
// fires once the bot is stopping.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, e := range m.timers {
		e.stopped = true
		if e.t != nil {
			e.t.Stop()
		}
		delete(m.timers, id)
	}
}

// Count reports the number of live timers, for observability.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}
