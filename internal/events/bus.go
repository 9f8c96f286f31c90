// Package events provides a publish/subscribe bus broadcasting
// bot-wide occurrences — IRC events and plugin handler failures, both
// published by the bot's dispatcher — to subscribers, currently the
// dashboard's WebSocket stream (§4.10). `watch`-enabled transport
// clients (§4.6) are fed by the dispatcher directly, not through the bus.
// The bus is nil-safe: calling Publish on a nil *Bus is a no-op, so
// components do not need guard checks.
package events

import (
	"sync"
	"time"

	"github.com/markand/irccd/internal/event"
)

// Source constants identify which subsystem published an envelope.
const (
	// SourceServer identifies events produced by a server connection's
	// IRC state machine.
	SourceServer = "server"
	// SourcePlugin identifies lifecycle notices from the plugin runtime
	// (load/reload/unload, handler errors).
	SourcePlugin = "plugin"
	// SourceRule identifies rule-engine decision traces (debug only).
	SourceRule = "rule"
	// SourceHook identifies hook process spawn/exit notices.
	SourceHook = "hook"
	// SourceTransport identifies transport client lifecycle notices.
	SourceTransport = "transport"
)

// Kind constants describe the type of envelope within a source, for
// the sources that are not already self-describing IRC events (an IRC
// occurrence's Kind lives on its embedded event.Event instead — see
// Envelope.IRC).
const (
	KindIRC            = "irc"
	KindPluginLoaded   = "plugin_loaded"
	KindPluginUnloaded = "plugin_unloaded"
	KindPluginError    = "plugin_error"
	KindRuleDecision   = "rule_decision"
	KindHookSpawned    = "hook_spawned"
	KindHookExited     = "hook_exited"
	KindClientOpened   = "client_opened"
	KindClientClosed   = "client_closed"
)

// Envelope is a single bus message. Kind selects the interpretation of
// Data; when Kind is KindIRC, IRC carries the structured payload
// (callers should prefer marshaling IRC directly over Data in that
// case).
type Envelope struct {
	Timestamp time.Time      `json:"ts"`
	Source    string         `json:"source"`
	Kind      string         `json:"kind"`
	IRC       *event.Event   `json:"irc,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Bus is a non-blocking broadcast event bus. Subscribers receive
// envelopes on buffered channels; slow subscribers miss events rather
// than blocking publishers — acceptable here since every subscriber is
// either best-effort observability (dashboard) or already covered by
// the authoritative in-process dispatch path (rule engine -> plugin
// calls directly; the bus is a side channel, not the delivery
// mechanism).
type Bus struct {
	mu   sync.RWMutex
	subs map[chan Envelope]struct{}
	// recvToSend maps the receive-only channel returned by Subscribe
	// back to the bidirectional channel stored in subs. This allows
	// Unsubscribe to accept <-chan Envelope (the caller's view) without
	// an illegal type conversion.
	recvToSend map[<-chan Envelope]chan Envelope
}

// New creates a new event bus ready for use.
func New() *Bus {
	return &Bus{
		subs:       make(map[chan Envelope]struct{}),
		recvToSend: make(map[<-chan Envelope]chan Envelope),
	}
}

// Publish sends an envelope to all subscribers. Non-blocking: if a
// subscriber's channel is full, the event is dropped for that
// subscriber. Safe to call on a nil receiver (no-op).
func (b *Bus) Publish(e Envelope) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			// Subscriber is full — drop the event rather than block.
		}
	}
}

// PublishIRC wraps an IRC occurrence into a KindIRC envelope and
// publishes it, stamping Timestamp. The bot's dispatcher calls it for
// every IRC event it receives, before rule evaluation.
func (b *Bus) PublishIRC(e event.Event) {
	b.Publish(Envelope{Timestamp: time.Now(), Source: SourceServer, Kind: KindIRC, IRC: &e})
}

// Subscribe returns a channel that receives published envelopes. The
// caller must eventually call Unsubscribe to avoid resource leaks.
// bufSize controls the channel buffer; 64 is a reasonable default for
// WebSocket consumers.
func (b *Bus) Subscribe(bufSize int) <-chan Envelope {
	ch := make(chan Envelope, bufSize)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[ch] = struct{}{}
	b.recvToSend[ch] = ch
	return ch
}

// Unsubscribe removes a subscription and closes the channel. Safe to
// call with a channel that is already unsubscribed (no-op).
func (b *Bus) Unsubscribe(ch <-chan Envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sendCh, ok := b.recvToSend[ch]
	if !ok {
		return
	}
	delete(b.subs, sendCh)
	delete(b.recvToSend, ch)
	close(sendCh)
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
