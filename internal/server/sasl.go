package server

import (
	"errors"
	"fmt"

	"github.com/emersion/go-sasl"
	"github.com/markand/irccd/internal/ircwire"
)

// authenticateIfConfigured performs the CAP/AUTHENTICATE exchange for
// SASL PLAIN when the server config enables it, using go-sasl's
// client-side PLAIN mechanism for the credential encoding step —
// irccd itself only drives the IRC-side negotiation (CAP REQ,
// AUTHENTICATE PLAIN, base64 payload, CAP END).
func (s *Server) authenticateIfConfigured() error {
	if s.cfg.SASLMechanism == "" {
		return nil
	}
	if s.cfg.SASLMechanism != "plain" {
		return fmt.Errorf("unsupported sasl mechanism %q", s.cfg.SASLMechanism)
	}

	if err := s.writeLine(ircLine("CAP", "REQ", "sasl")); err != nil {
		return err
	}

	// Wait for the server's CAP ACK before starting AUTHENTICATE.
	for {
		line, err := s.conn.ReadLine()
		if err != nil {
			return err
		}
		msg, perr := ircwire.Parse(line)
		if perr != nil {
			continue
		}
		if msg.Command == "CAP" && len(msg.Params) >= 2 && msg.Params[1] == "ACK" {
			break
		}
		if msg.Command == "CAP" && len(msg.Params) >= 2 && msg.Params[1] == "NAK" {
			return errors.New("server rejected sasl capability request")
		}
	}

	username := s.cfg.SASLUsername
	if username == "" {
		username = s.cfg.Nickname
	}
	client := sasl.NewPlainClient("", username, s.cfg.SASLPassword)
	_, resp, err := client.Start()
	if err != nil {
		return err
	}

	if err := s.writeLine(ircLine("AUTHENTICATE", "PLAIN")); err != nil {
		return err
	}
	if err := s.writeLine(ircLine("AUTHENTICATE", encodeBase64(resp))); err != nil {
		return err
	}

	for {
		line, err := s.conn.ReadLine()
		if err != nil {
			return err
		}
		msg, perr := ircwire.Parse(line)
		if perr != nil {
			continue
		}
		switch msg.Command {
		case ircwire.RplSaslSuccess:
			return s.writeLine(ircLine("CAP", "END"))
		case ircwire.ErrSaslFail, ircwire.ErrSaslTooLong, ircwire.ErrSaslAborted, ircwire.ErrSaslAlready:
			return fmt.Errorf("sasl authentication failed (%s)", msg.Command)
		}
	}
}
