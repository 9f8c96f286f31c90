// Package loop implements the single cooperative reactor goroutine
// spec.md §5 describes: every IRC event, rule evaluation, plugin
// handler call and command dispatch runs on this one goroutine, never
// concurrently with another. Auxiliary goroutines (a server's socket
// reader, the timer manager's time.AfterFunc callbacks, the MQTT
// publisher, the dashboard's websocket writer) never call into the bot
// directly; they reach it only through Post, the "post(callable)"
// escape hatch spec.md §5 requires.
package loop

import "sync"

// Loop runs queued callbacks one at a time, in the order they were
// posted, on a single internal goroutine.
type Loop struct {
	mu      sync.Mutex
	pending []func()
	wake    chan struct{}
	done    chan struct{}
}

// New creates a Loop. Call Run in its own goroutine before posting.
func New() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Post enqueues fn to run on the loop goroutine. Safe to call from any
// goroutine, including before Run has started or after Stop — a post
// after Stop is silently dropped.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	select {
	case <-l.done:
		l.mu.Unlock()
		return
	default:
	}
	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run drains posted callbacks until Stop is called. Blocks; run it in
// its own goroutine.
func (l *Loop) Run() {
	for {
		l.mu.Lock()
		batch := l.pending
		l.pending = nil
		l.mu.Unlock()

		for _, fn := range batch {
			fn()
		}

		select {
		case <-l.done:
			return
		case <-l.wake:
		}
	}
}

// Stop terminates Run once its current batch finishes. Idempotent.
func (l *Loop) Stop() {
	l.mu.Lock()
	select {
	case <-l.done:
	default:
		close(l.done)
	}
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}
