package dashboard

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// streamBuf is the bus subscription's channel buffer; matches the
// size events.Bus's own doc comment recommends for WebSocket
// consumers.
const streamBuf = 64

// writeWait bounds how long a single WebSocket write may take before
// the connection is considered dead and torn down.
const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The dashboard is a same-origin operator tool served over
	// loopback/private addresses, not a public API; same-origin
	// checking from arbitrary browser tabs isn't the threat model
	// here, so any origin may upgrade.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleStream upgrades to a WebSocket and relays every envelope
// published on the event bus for as long as the connection stays
// open, mirroring the transport server's `watch` broadcast (§4.6) for
// browser consumers.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.bus == nil {
		http.Error(w, "dashboard event stream unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("dashboard websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sub := s.bus.Subscribe(streamBuf)
	defer s.bus.Unsubscribe(sub)

	// Drain incoming frames (the client never sends any we act on) so
	// a closed connection is detected promptly via the read error.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case env, ok := <-sub:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(env); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
