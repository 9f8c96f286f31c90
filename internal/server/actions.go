package server

import (
	"fmt"
	"strings"

	"github.com/markand/irccd/internal/ircwire"
)

// Message sends a PRIVMSG to target (a channel or nickname), enqueued
// through the flood-controlled send queue.
func (s *Server) Message(target, text string) {
	s.Send(fmt.Sprintf("PRIVMSG %s :%s", target, text))
}

// Notice sends a NOTICE to target.
func (s *Server) Notice(target, text string) {
	s.Send(fmt.Sprintf("NOTICE %s :%s", target, text))
}

// Me sends a CTCP ACTION to target (the "/me" convention).
func (s *Server) Me(target, text string) {
	s.Send(fmt.Sprintf("PRIVMSG %s :%s", target, ircwire.WrapCTCP(ircwire.ActionPayload(text))))
}

// Join requests the bot joins channel, with an optional key.
func (s *Server) Join(channel, key string) {
	if key != "" {
		s.Send(fmt.Sprintf("JOIN %s %s", channel, key))
		return
	}
	s.Send(fmt.Sprintf("JOIN %s", channel))
}

// Part leaves channel with an optional reason.
func (s *Server) Part(channel, reason string) {
	if reason != "" {
		s.Send(fmt.Sprintf("PART %s :%s", channel, reason))
		return
	}
	s.Send(fmt.Sprintf("PART %s", channel))
}

// Kick removes target from channel with an optional reason.
func (s *Server) Kick(channel, target, reason string) {
	if reason != "" {
		s.Send(fmt.Sprintf("KICK %s %s :%s", channel, target, reason))
		return
	}
	s.Send(fmt.Sprintf("KICK %s %s", channel, target))
}

// Invite invites target to channel.
func (s *Server) Invite(channel, target string) {
	s.Send(fmt.Sprintf("INVITE %s %s", target, channel))
}

// Mode changes channel or user mode, appending any mode arguments.
func (s *Server) Mode(channel, mode string, args []string) {
	line := fmt.Sprintf("MODE %s %s", channel, mode)
	if len(args) > 0 {
		line += " " + strings.Join(args, " ")
	}
	s.Send(line)
}

// Topic sets channel's topic.
func (s *Server) Topic(channel, topic string) {
	s.Send(fmt.Sprintf("TOPIC %s :%s", channel, topic))
}

// Nick requests a nickname change; NICK acceptance/rejection is
// observed asynchronously via the dispatcher's onNick handling.
func (s *Server) Nick(nickname string) {
	s.Send(fmt.Sprintf("NICK %s", nickname))
}

// Whois issues a WHOIS query for nickname; the result arrives
// asynchronously as an onWhois event once the 311..318 sequence
// completes.
func (s *Server) Whois(nickname string) {
	s.Send(fmt.Sprintf("WHOIS %s", nickname))
}
