// Package server implements the per-connection IRC client state
// machine (spec.md §4.2): TCP/TLS dial, registration (NICK/USER, SASL
// PLAIN), line parsing, channel membership tracking, outbound flood
// control, ping discipline, and reconnect-with-backoff.
package server

import (
	"log/slog"
	"sync"
	"time"

	"github.com/markand/irccd/internal/config"
	"github.com/markand/irccd/internal/event"
	"github.com/markand/irccd/internal/ircwire"
)

// State is one node of the connection state machine (spec.md §4.2).
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateTLSHandshaking
	StateIdentifying
	StateConnected
	StateWaitingToReconnect
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateTLSHandshaking:
		return "tls_handshaking"
	case StateIdentifying:
		return "identifying"
	case StateConnected:
		return "connected"
	case StateWaitingToReconnect:
		return "waiting_to_reconnect"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Member is one user's membership record in a channel: nickname plus
// the highest-priority mode prefix the bot has observed for them
// (e.g. "@", "+", "").
type Member struct {
	Nick   string
	Prefix string
}

// Channel tracks a joined channel's membership and topic.
type Channel struct {
	Name    string
	Key     string
	Topic   string
	Members map[string]Member // nick (case-folded) -> Member
}

// EventHandler receives IRC occurrences and lifecycle notices produced
// by a Server after rule evaluation would apply — the caller (the bot
// composition root) is responsible for rule gating and plugin
// dispatch; Server itself only produces typed events.
type EventHandler func(event.Event)

// Dialer opens the underlying transport for a server connection.
// Abstracted so tests can substitute an in-memory pipe instead of a
// real TCP/TLS dial.
type Dialer interface {
	Dial(hostname string, port int, ssl, verify bool) (Conn, error)
}

// Conn is the minimal byte-stream surface Server needs from a dialed
// connection.
type Conn interface {
	ReadLine() (string, error)
	WriteLine(string) error
	Close() error
}

// Server is one configured IRC network connection and everything the
// bot tracks about it: registration identity, auto-join list,
// reconnect policy, live channel membership, and the current FSM
// state.
type Server struct {
	mu sync.Mutex

	id     string
	cfg    config.ServerConfig
	dialer Dialer
	logger *slog.Logger
	onEvt  EventHandler

	state       State
	nickname    string
	conn        Conn
	channels    map[string]*Channel // case-folded name -> Channel
	reconnectN  int                 // attempts since last successful connect
	lastActive  time.Time
	sendQueue   chan string
	stopCh      chan struct{}
	doneCh      chan struct{}
	nickSuffix  int // underscores appended so far during 433 retries
	rng         func(n int) int

	pluginLister PluginLister
	pendingNames map[string][]string // channel (case-folded) -> nicks accumulated from 353 until 366
	pendingWhois map[string]*event.WhoisPayload
}

// New creates a Server in the disconnected state. dialer and logger
// must be non-nil; onEvent may be nil (events are dropped).
func New(id string, cfg config.ServerConfig, dialer Dialer, logger *slog.Logger, onEvent EventHandler) *Server {
	if onEvent == nil {
		onEvent = func(event.Event) {}
	}
	return &Server{
		id:           id,
		cfg:          cfg,
		dialer:       dialer,
		logger:       logger.With("server", id),
		onEvt:        onEvent,
		state:        StateDisconnected,
		nickname:     cfg.Nickname,
		channels:     make(map[string]*Channel),
		sendQueue:    make(chan string, 256),
		rng:          defaultJitter,
		pendingNames: make(map[string][]string),
		pendingWhois: make(map[string]*event.WhoisPayload),
	}
}

// ID returns the server's configured identifier.
func (s *Server) ID() string { return s.id }

// State reports the current FSM state.
func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Nickname returns the last nickname accepted by the network (which
// may differ from the configured one after a 433 collision).
func (s *Server) Nickname() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nickname
}

// Channels returns a snapshot of the current channel membership.
func (s *Server) Channels() []Channel {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Channel, 0, len(s.channels))
	for _, c := range s.channels {
		cp := *c
		cp.Members = make(map[string]Member, len(c.Members))
		for k, v := range c.Members {
			cp.Members[k] = v
		}
		out = append(out, cp)
	}
	return out
}

// Config returns the server's configuration, for server-info/
// server-list reporting.
func (s *Server) Config() config.ServerConfig {
	return s.cfg
}

func (s *Server) setState(next State) {
	s.mu.Lock()
	prev := s.state
	s.state = next
	s.mu.Unlock()
	if prev != next {
		s.logger.Debug("state transition", "from", prev, "to", next)
	}
}

func foldChannel(name string) string {
	// IRC channel/nick casefolding treats [ ] \ as the lowercase forms
	// of { } | (RFC 1459 §2.2); approximated here with ASCII lowering,
	// sufficient for the ASCII-only channel names irccd targets.
	out := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

func defaultJitter(n int) int {
	if n <= 0 {
		return 0
	}
	// time-seeded linear congruential step, good enough for spreading
	// reconnect attempts without pulling in a full PRNG dependency at
	// this layer — not used for anything security-sensitive.
	seed := time.Now().UnixNano()
	return int((seed >> 13) % int64(n))
}

// ircLine is a convenience for building simple commands without
// trailing parameters.
func ircLine(cmd string, params ...string) string {
	return ircwire.Encode(ircwire.Message{Command: cmd, Params: params})
}
