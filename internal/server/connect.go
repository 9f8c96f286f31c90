package server

import (
	"errors"
	"time"

	"github.com/markand/irccd/internal/event"
	"github.com/markand/irccd/internal/ircwire"
)

// maxNickSuffix bounds the number of underscores appended to the
// configured nickname on repeated 433 (nickname in use) replies before
// giving up and reconnecting, matching the "small limit" spec.md §4.2
// describes.
const maxNickSuffix = 5

// Run drives the server's connection lifecycle until Stop is called:
// dial, register, read, and on any failure wait out the reconnect
// backoff and try again, up to cfg.ReconnectTries attempts (-1 =
// infinite). Run blocks; callers run it in its own goroutine — each
// Server owns exactly one such goroutine, preserving the "one
// outstanding connection per server" invariant (spec.md §3).
func (s *Server) Run() {
	s.mu.Lock()
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	stopCh := s.stopCh
	doneCh := s.doneCh
	s.mu.Unlock()
	defer close(doneCh)

	attempt := 0
	for {
		select {
		case <-stopCh:
			s.setState(StateStopped)
			return
		default:
		}

		s.setState(StateConnecting)
		conn, err := s.dial()
		if err != nil {
			s.logger.Warn("dial failed", "error", err)
			if !s.awaitReconnect(&attempt, stopCh) {
				s.setState(StateStopped)
				return
			}
			continue
		}

		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()

		if err := s.register(); err != nil {
			s.logger.Warn("registration failed", "error", err)
			conn.Close()
			if !s.awaitReconnect(&attempt, stopCh) {
				s.setState(StateStopped)
				return
			}
			continue
		}

		attempt = 0
		s.reconnectN = 0
		s.runConnected(stopCh)

		select {
		case <-stopCh:
			s.setState(StateStopped)
			return
		default:
		}

		if !s.awaitReconnect(&attempt, stopCh) {
			s.setState(StateStopped)
			return
		}
	}
}

// Stop requests the run loop to exit, closing the active connection if
// any, and blocks until the loop has observed the request.
func (s *Server) Stop() {
	s.mu.Lock()
	stopCh := s.stopCh
	conn := s.conn
	doneCh := s.doneCh
	s.mu.Unlock()
	if stopCh == nil {
		return
	}
	select {
	case <-stopCh:
	default:
		close(stopCh)
	}
	if conn != nil {
		conn.Close()
	}
	if doneCh != nil {
		<-doneCh
	}
}

func (s *Server) dial() (Conn, error) {
	s.setState(StateTLSHandshaking)
	if !s.cfg.SSL {
		s.setState(StateIdentifying)
	}
	return s.dialer.Dial(s.cfg.Hostname, s.cfg.Port, s.cfg.SSL, s.cfg.SSLVerify)
}

// register performs NICK/USER (and SASL PLAIN when configured),
// blocking until RPL_WELCOME (001) arrives or an unrecoverable error
// occurs. It also absorbs 433 (nickname in use) by appending
// underscores, per spec.md §4.2.
func (s *Server) register() error {
	s.setState(StateIdentifying)
	s.mu.Lock()
	nick := s.nickname
	s.mu.Unlock()

	if s.cfg.Password != "" {
		if err := s.writeLine(ircLine("PASS", s.cfg.Password)); err != nil {
			return err
		}
	}
	if err := s.authenticateIfConfigured(); err != nil {
		return err
	}
	if err := s.writeLine(ircLine("NICK", nick)); err != nil {
		return err
	}
	if err := s.writeLine(ircLine("USER", s.cfg.Username, "0", "*", s.cfg.Realname)); err != nil {
		return err
	}

	suffixes := 0
	for {
		line, err := s.conn.ReadLine()
		if err != nil {
			return err
		}
		msg, perr := ircwire.Parse(line)
		if perr != nil {
			s.logger.Debug("dropping malformed line during registration", "error", perr)
			continue
		}
		switch msg.Command {
		case "001":
			s.mu.Lock()
			s.nickname = nick
			s.mu.Unlock()
			return nil
		case "433":
			if suffixes >= maxNickSuffix {
				return errors.New("nickname in use, exceeded retry limit")
			}
			suffixes++
			nick = nick + "_"
			if err := s.writeLine(ircLine("NICK", nick)); err != nil {
				return err
			}
		case "ERROR":
			return errors.New("server sent ERROR during registration")
		}
	}
}

// runConnected enters the connected state, joins the auto-join
// channel set, starts the outbound flood-controlled writer, and reads
// lines until the connection fails or Stop is requested.
func (s *Server) runConnected(stopCh chan struct{}) {
	s.setState(StateConnected)
	s.onEvt(event.Connect(s.id))

	go s.writerLoop(stopCh)

	for _, ch := range s.cfg.Channels {
		s.Send(ircLine("JOIN", joinArg(ch.Name, ch.Key)))
	}

	timeout := time.Duration(s.cfg.PingTimeout) * time.Second
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	linesCh := make(chan string)
	errCh := make(chan error, 1)
	go func() {
		for {
			line, err := s.conn.ReadLine()
			if err != nil {
				errCh <- err
				return
			}
			linesCh <- line
		}
	}()

	for {
		select {
		case <-stopCh:
			s.conn.Close()
			s.onEvt(event.Disconnect(s.id))
			return
		case <-deadline.C:
			s.logger.Warn("ping timeout, reconnecting")
			s.conn.Close()
			s.onEvt(event.Disconnect(s.id))
			return
		case err := <-errCh:
			s.logger.Info("connection closed", "error", err)
			s.onEvt(event.Disconnect(s.id))
			return
		case line := <-linesCh:
			if !deadline.Stop() {
				<-deadline.C
			}
			deadline.Reset(timeout)
			s.handleLine(line)
		}
	}
}

func joinArg(name, key string) string {
	if key == "" {
		return name
	}
	return name + " " + key
}

// awaitReconnect sleeps for the reconnect delay plus bounded additive
// jitter (REDESIGN FLAG, spec.md §9: default delay unchanged, jitter
// additive and ≤20% of the configured delay) and reports whether
// another attempt should be made. *attempt is incremented on entry.
func (s *Server) awaitReconnect(attempt *int, stopCh chan struct{}) bool {
	*attempt++
	if s.cfg.ReconnectTries >= 0 && *attempt > s.cfg.ReconnectTries {
		return false
	}

	s.setState(StateWaitingToReconnect)
	delay := time.Duration(s.cfg.ReconnectDelay) * time.Second
	jitterMax := int(delay / 5) // 20% bound
	jitter := time.Duration(s.rng(jitterMax+1)) * time.Nanosecond
	if jitterMax > 0 {
		jitter = time.Duration(s.rng(jitterMax))
	}

	timer := time.NewTimer(delay + jitter)
	defer timer.Stop()
	select {
	case <-stopCh:
		return false
	case <-timer.C:
		return true
	}
}
