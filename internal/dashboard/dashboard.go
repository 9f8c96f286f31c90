// Package dashboard implements the read-only operator view of
// SPEC_FULL.md §4.10: an HTTP page summarizing servers/plugins/rules/
// hooks plus a WebSocket endpoint streaming the same event-bus traffic
// the transport server's `watch` subscribers see. It is strictly
// additive — a bot started without a `[dashboard]` config section
// never constructs a Server, and nothing in spec.md's conformance
// depends on it.
package dashboard

import (
	"context"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/markand/irccd/internal/buildinfo"
	"github.com/markand/irccd/internal/events"
)

// ServerSnapshot is one connected server's read-only dashboard row.
type ServerSnapshot struct {
	ID       string
	Hostname string
	State    string
	Nickname string
	Channels []string
}

// PluginSnapshot is one loaded plugin's read-only dashboard row.
// SummaryHTML is the plugin's Markdown summary field rendered to HTML
// via goldmark for display — transport's plugin-info still returns the
// raw Summary string per spec.md §6, this is display-only.
type PluginSnapshot struct {
	ID          string
	Author      string
	Version     string
	SummaryHTML template.HTML
}

// Snapshot is the full template context for the overview page.
type Snapshot struct {
	Uptime     time.Duration
	Version    string
	Servers    []ServerSnapshot
	Plugins    []PluginSnapshot
	RuleCount  int
	HookCount  int
	Subscribed int
}

// SnapshotFunc produces a fresh Snapshot on each request; the Server
// never reaches into bot state directly, matching the façade
// discipline the rest of this module uses to keep the bot the sole
// owner of server/plugin/rule state.
type SnapshotFunc func() Snapshot

// Server is the dashboard's HTTP+WebSocket listener.
type Server struct {
	logger   *slog.Logger
	bus      *events.Bus
	snapshot SnapshotFunc
	mux      *http.ServeMux
	http     *http.Server
}

// New builds a dashboard Server. bus may be nil (the stream endpoint
// then serves no events, but the overview page still renders).
func New(logger *slog.Logger, bus *events.Bus, snapshot SnapshotFunc) *Server {
	s := &Server{logger: logger, bus: bus, snapshot: snapshot, mux: http.NewServeMux()}
	s.mux.HandleFunc("/", s.handleOverview)
	s.mux.HandleFunc("/ws", s.handleStream)
	s.http = &http.Server{Handler: s.mux}
	return s
}

// Serve blocks accepting connections on ln until Close is called.
func (s *Server) Serve(ln net.Listener) error {
	err := s.http.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Close shuts the HTTP server down, closing any open WebSocket
// streams along with it.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.http.Shutdown(ctx)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	data := Snapshot{Uptime: buildinfo.Uptime(), Version: buildinfo.Version}
	if s.snapshot != nil {
		data = s.snapshot()
	}
	if s.bus != nil {
		data.Subscribed = s.bus.SubscriberCount()
	}

	s.render(w, r, data)
}
