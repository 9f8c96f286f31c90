// Package transport implements the control-plane server (spec.md
// §4.6): framed JSON requests/responses over Unix domain or TCP
// (optionally TLS) sockets, a greeting/auth/ready client state
// machine, FIFO response/notification ordering per client, and the
// "watch" broadcast of live IRC events to subscribed clients.
package transport

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/markand/irccd/internal/buildinfo"
	"github.com/markand/irccd/internal/command"
	"github.com/markand/irccd/internal/event"
	"github.com/markand/irccd/internal/ircerr"
	"golang.org/x/crypto/bcrypt"
)

// greeting is the first frame sent to every newly connected client,
// before authentication, identifying this daemon (spec.md §4.6 step 1).
type greeting struct {
	Program    string `json:"program"`
	Major      int    `json:"major"`
	Minor      int    `json:"minor"`
	Patch      int    `json:"patch"`
	Javascript bool   `json:"javascript"`
	SSL        bool   `json:"ssl"`
}

// Server accepts control-plane connections and dispatches frames
// through a command.Registry.
type Server struct {
	logger       *slog.Logger
	registry     *command.Registry
	services     *command.Services
	authRequired bool
	passwordHash []byte
	greeting     greeting

	mu        sync.Mutex
	listeners []net.Listener
	clients   map[*client]struct{}
}

// New creates a Server. password, if non-empty, is required via the
// "auth" command before any other command is accepted; it is hashed
// with bcrypt immediately so the plaintext value is never retained or
// compared directly against what a client sends (the config loader
// keeps the plaintext only long enough to hand it here — see
// internal/config's TransportConfig.Password). authRequired stays set
// even if hashing fails, so a hashing error can never downgrade a
// configured server into one that accepts any password.
func New(logger *slog.Logger, registry *command.Registry, services *command.Services, password string, javascript, ssl bool) *Server {
	var hash []byte
	required := password != ""
	if required {
		h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			logger.Warn("failed to hash transport password", "error", err)
		} else {
			hash = h
		}
	}

	return &Server{
		logger:       logger,
		registry:     registry,
		services:     services,
		authRequired: required,
		passwordHash: hash,
		greeting: greeting{
			Program:    "irccd",
			Major:      buildinfo.Major,
			Minor:      buildinfo.Minor,
			Patch:      buildinfo.Patch,
			Javascript: javascript,
			SSL:        ssl,
		},
		clients: make(map[*client]struct{}),
	}
}

// Serve accepts connections from ln until it errors (typically
// because Close stopped it), running each client on its own goroutine.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.listeners = append(s.listeners, ln)
	s.mu.Unlock()

	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.handle(conn)
	}
}

// Close stops every listener this Server is serving.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ln := range s.listeners {
		ln.Close()
	}
}

// Broadcast pushes e as an unsolicited event notification to every
// client that has sent "watch" (spec.md §4.6).
func (s *Server) Broadcast(e event.Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		s.logger.Warn("marshal broadcast event", "error", err)
		return
	}
	framed := append(payload, []byte(frameDelim)...)

	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		if c.closed() || !c.isWatching() {
			continue
		}
		if err := c.write(framed); err != nil {
			s.logger.Debug("broadcast write failed", "error", err)
		}
	}
}

func (s *Server) handle(conn net.Conn) {
	c := newClient(conn, s.authRequired, s.passwordHash)

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
		conn.Close()
	}()

	greetingJSON, err := json.Marshal(s.greeting)
	if err != nil {
		s.logger.Error("marshal greeting", "error", err)
		return
	}
	if err := c.write(append(greetingJSON, []byte(frameDelim)...)); err != nil {
		return
	}

	for {
		frame, err := readFrame(c.reader)
		if err == errFrameTooLarge {
			c.write(s.errorFrame("", ircerr.Irccd(ircerr.InvalidMessage, "frame too large")))
			return
		}
		if err != nil {
			if err != io.EOF {
				s.logger.Debug("read frame", "error", err)
			}
			return
		}

		resp, closeAfter := s.dispatch(c, frame)
		if err := c.write(resp); err != nil {
			return
		}
		if closeAfter {
			return
		}
	}
}

// dispatch decodes one frame, runs it through the command registry,
// and builds the response frame. The second return value reports
// whether the connection must be closed after writing the response
// (spec.md §7: protocol-level errors drive the client to closing).
func (s *Server) dispatch(c *client, frame []byte) ([]byte, bool) {
	var raw map[string]any
	if err := json.Unmarshal(frame, &raw); err != nil {
		return s.errorFrame("", ircerr.Irccd(ircerr.InvalidMessage, "malformed JSON frame")), true
	}

	name, _ := raw["command"].(string)
	if name == "" {
		return s.errorFrame("", ircerr.Irccd(ircerr.InvalidMessage, "missing command field")), true
	}
	delete(raw, "command")

	resp, err := s.registry.Dispatch(name, s.services, c, command.Request(raw))
	if err != nil {
		return s.errorFrame(name, err), ircerr.IsProtocolError(err)
	}

	out := map[string]any{"command": name}
	for k, v := range resp {
		out[k] = v
	}
	body, merr := json.Marshal(out)
	if merr != nil {
		return s.errorFrame(name, ircerr.Irccd(ircerr.InvalidMessage, "marshal response")), true
	}
	return append(body, []byte(frameDelim)...), false
}

func (s *Server) errorFrame(command string, err error) []byte {
	e, ok := ircerr.As(err)
	if !ok {
		e = ircerr.Irccd(ircerr.InvalidCommand, err.Error())
	}
	out := map[string]any{
		"command":       command,
		"error":         int(e.Code),
		"errorCategory": string(e.Category),
	}
	body, _ := json.Marshal(out)
	return append(body, []byte(frameDelim)...)
}

// errFrameTooLarge is returned by readFrame when a client exceeds
// maxFrameSize without sending a terminator.
var errFrameTooLarge = fmt.Errorf("frame exceeds %d bytes", maxFrameSize)

// readFrame reads bytes from r until frameDelim is seen, enforcing
// maxFrameSize.
func readFrame(r *bufio.Reader) ([]byte, error) {
	var buf []byte
	delim := []byte(frameDelim)

	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		buf = append(buf, b)
		if len(buf) > maxFrameSize {
			return nil, errFrameTooLarge
		}
		if len(buf) >= len(delim) && string(buf[len(buf)-len(delim):]) == frameDelim {
			return buf[:len(buf)-len(delim)], nil
		}
	}
}
