package dashboard

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/markand/irccd/internal/events"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandleOverviewRendersSnapshot(t *testing.T) {
	snap := Snapshot{
		Uptime:    90 * time.Second,
		Version:   "3.2.0",
		RuleCount: 2,
		HookCount: 1,
		Servers: []ServerSnapshot{
			{ID: "freenode", Hostname: "irc.freenode.net", State: "connected", Nickname: "irccd", Channels: []string{"#irccd"}},
		},
		Plugins: []PluginSnapshot{
			{ID: "logger", Author: "david", Version: "1.0", SummaryHTML: RenderSummary("**logs** things")},
		},
	}

	s := New(discardLogger(), events.New(), func() Snapshot { return snap })

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	s.mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"freenode", "irc.freenode.net", "logger", "<strong>logs</strong>", "1m 30s"} {
		if !strings.Contains(body, want) {
			t.Errorf("response body missing %q:\n%s", want, body)
		}
	}
}

func TestHandleOverviewUnknownPath404(t *testing.T) {
	s := New(discardLogger(), nil, func() Snapshot { return Snapshot{} })

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	s.mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestStreamRelaysBusEnvelopes(t *testing.T) {
	bus := events.New()
	s := New(discardLogger(), bus, func() Snapshot { return Snapshot{} })

	srv := httptest.NewServer(s.mux)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Give the handler a moment to subscribe before publishing.
	time.Sleep(50 * time.Millisecond)
	bus.Publish(events.Envelope{Source: events.SourcePlugin, Kind: events.KindPluginLoaded, Data: map[string]any{"plugin": "ask"}})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got events.Envelope
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Kind != events.KindPluginLoaded {
		t.Errorf("got kind %q, want %q", got.Kind, events.KindPluginLoaded)
	}
}

func TestStreamUnavailableWithoutBus(t *testing.T) {
	s := New(discardLogger(), nil, func() Snapshot { return Snapshot{} })

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	s.mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}
}
