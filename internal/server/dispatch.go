package server

import (
	"strings"

	"github.com/markand/irccd/internal/event"
	"github.com/markand/irccd/internal/ircwire"
)

// PluginLister returns the set of currently loaded plugin ids. Set by
// the bot composition root after construction, so handleLine can
// recognize `<prefix><id> ...` messages as command events instead of
// plain messages (spec.md §4.2).
type PluginLister func() []string

// SetPluginLister installs the callback handleLine uses to recognize
// command events. Must be called before Run.
func (s *Server) SetPluginLister(fn PluginLister) {
	s.mu.Lock()
	s.pluginLister = fn
	s.mu.Unlock()
}

// handleLine parses one raw IRC line and updates state/emits events.
// Unknown or malformed lines are logged and dropped, per spec.md §4.2.
func (s *Server) handleLine(line string) {
	msg, err := ircwire.Parse(line)
	if err != nil {
		s.logger.Debug("dropping malformed line", "error", err, "line", line)
		return
	}

	switch {
	case msg.Command == "PING":
		s.Send(ircLine("PONG", msg.Params...))
		return
	case msg.Command == "NICK":
		s.handleNick(msg)
	case msg.Command == "JOIN":
		s.handleJoin(msg)
	case msg.Command == "PART":
		s.handlePart(msg)
	case msg.Command == "KICK":
		s.handleKick(msg)
	case msg.Command == "QUIT":
		s.handleQuit(msg)
	case msg.Command == "TOPIC":
		s.handleTopic(msg)
	case msg.Command == "MODE":
		s.handleMode(msg)
	case msg.Command == ircwire.RplNameReply:
		s.handleNamesReply(msg)
	case msg.Command == ircwire.RplEndOfNames:
		s.flushNames(msg)
	case msg.Command == "INVITE":
		s.handleInvite(msg)
	case msg.Command == "NOTICE":
		s.handleNotice(msg)
	case msg.Command == "PRIVMSG":
		s.handlePrivmsg(msg)
	case msg.Command == ircwire.RplWhoisUser:
		s.handleWhoisUser(msg)
	case msg.Command == ircwire.RplEndOfWhois:
		s.flushWhois(msg)
	default:
		s.logger.Debug("unhandled command", "command", msg.Command)
	}
}

func (s *Server) handleNick(msg ircwire.Message) {
	oldNick := msg.Nick()
	newNick := msg.Param(0)

	s.mu.Lock()
	if strings.EqualFold(oldNick, s.nickname) {
		s.nickname = newNick
	}
	for _, ch := range s.channels {
		if m, ok := ch.Members[foldChannel(oldNick)]; ok {
			delete(ch.Members, foldChannel(oldNick))
			m.Nick = newNick
			ch.Members[foldChannel(newNick)] = m
		}
	}
	s.mu.Unlock()

	s.onEvt(event.Nick(s.id, msg.Prefix, newNick))
}

func (s *Server) handleJoin(msg ircwire.Message) {
	channel := msg.Param(0)
	nick := msg.Nick()

	s.mu.Lock()
	ch := s.channelOrCreate(channel)
	ch.Members[foldChannel(nick)] = Member{Nick: nick}
	s.mu.Unlock()

	s.onEvt(event.Join(s.id, msg.Prefix, channel))
}

func (s *Server) handlePart(msg ircwire.Message) {
	channel := msg.Param(0)
	nick := msg.Nick()
	reason := msg.Param(1)

	s.mu.Lock()
	if ch, ok := s.channels[foldChannel(channel)]; ok {
		delete(ch.Members, foldChannel(nick))
		if strings.EqualFold(nick, s.nickname) {
			delete(s.channels, foldChannel(channel))
		}
	}
	s.mu.Unlock()

	s.onEvt(event.Part(s.id, msg.Prefix, channel, reason))
}

func (s *Server) handleKick(msg ircwire.Message) {
	channel := msg.Param(0)
	target := msg.Param(1)
	reason := msg.Param(2)

	s.mu.Lock()
	if ch, ok := s.channels[foldChannel(channel)]; ok {
		delete(ch.Members, foldChannel(target))
	}
	if strings.EqualFold(target, s.nickname) {
		delete(s.channels, foldChannel(channel))
	}
	s.mu.Unlock()

	s.onEvt(event.Kick(s.id, msg.Prefix, channel, target, reason))
}

func (s *Server) handleQuit(msg ircwire.Message) {
	nick := msg.Nick()
	s.mu.Lock()
	for _, ch := range s.channels {
		delete(ch.Members, foldChannel(nick))
	}
	s.mu.Unlock()
}

func (s *Server) handleTopic(msg ircwire.Message) {
	channel := msg.Param(0)
	topic := msg.Param(1)

	s.mu.Lock()
	ch := s.channelOrCreate(channel)
	ch.Topic = topic
	s.mu.Unlock()

	s.onEvt(event.Topic(s.id, msg.Prefix, channel, topic))
}

func (s *Server) handleMode(msg ircwire.Message) {
	target := msg.Param(0)
	mode := msg.Param(1)
	var args []string
	if len(msg.Params) > 2 {
		args = msg.Params[2:]
	}
	channel := ""
	if strings.HasPrefix(target, "#") || strings.HasPrefix(target, "&") {
		channel = target
	}
	s.onEvt(event.Mode(s.id, msg.Prefix, channel, mode, args))
}

func (s *Server) handleInvite(msg ircwire.Message) {
	target := msg.Param(0)
	channel := msg.Param(1)
	s.onEvt(event.Invite(s.id, msg.Prefix, target, channel))

	if s.cfg.AutoJoinOnInvite {
		s.Send(ircLine("JOIN", channel))
	}
}

func (s *Server) handleNotice(msg ircwire.Message) {
	target := msg.Param(0)
	text := msg.Param(1)
	channel := ""
	if strings.HasPrefix(target, "#") || strings.HasPrefix(target, "&") {
		channel = target
	}
	s.onEvt(event.Notice(s.id, msg.Prefix, channel, text))
}

func (s *Server) handlePrivmsg(msg ircwire.Message) {
	target := msg.Param(0)
	text := msg.Param(1)
	channel := ""
	if strings.HasPrefix(target, "#") || strings.HasPrefix(target, "&") {
		channel = target
	}

	if payload, ok := ircwire.UnwrapCTCP(text); ok {
		if strings.HasPrefix(payload, "ACTION ") {
			s.onEvt(event.Me(s.id, msg.Prefix, channel, strings.TrimPrefix(payload, "ACTION ")))
			return
		}
		if payload == "VERSION" {
			s.Send(ircwire.Encode(ircwire.Message{
				Command: "NOTICE",
				Params:  []string{msg.Nick(), ircwire.WrapCTCP("VERSION " + s.cfg.CtcpVersion)},
			}))
			return
		}
	}

	if plugin, rest, ok := s.matchCommandPrefix(text); ok {
		s.onEvt(event.Command(s.id, plugin, msg.Prefix, channel, rest))
		return
	}

	s.onEvt(event.Message(s.id, msg.Prefix, channel, text))
}

// matchCommandPrefix reports whether text begins with the server's
// command prefix immediately followed by a currently-loaded plugin id
// (spec.md §4.2), returning the plugin id and the remaining text.
func (s *Server) matchCommandPrefix(text string) (plugin, rest string, ok bool) {
	prefix := s.cfg.CommandChar
	if prefix == "" || !strings.HasPrefix(text, prefix) {
		return "", "", false
	}
	s.mu.Lock()
	lister := s.pluginLister
	s.mu.Unlock()
	if lister == nil {
		return "", "", false
	}

	body := strings.TrimPrefix(text, prefix)
	for _, id := range lister() {
		if body == id {
			return id, "", true
		}
		if strings.HasPrefix(body, id+" ") {
			return id, strings.TrimPrefix(body, id+" "), true
		}
	}
	return "", "", false
}

// handleNamesReply accumulates one 353 (RPL_NAMREPLY) line's nicks
// into the pending buffer for its channel; flushNames (366) emits the
// completed onNames event, per spec.md §4.2's membership tracking.
func (s *Server) handleNamesReply(msg ircwire.Message) {
	if len(msg.Params) < 3 {
		return
	}
	channel := msg.Param(1)
	names := strings.Fields(msg.Param(2))

	s.mu.Lock()
	key := foldChannel(channel)
	s.pendingNames[key] = append(s.pendingNames[key], names...)
	ch := s.channelOrCreate(channel)
	for _, n := range names {
		nick, prefix := splitNamePrefix(n)
		ch.Members[foldChannel(nick)] = Member{Nick: nick, Prefix: prefix}
	}
	s.mu.Unlock()
}

// flushNames is called on 366 (RPL_ENDOFNAMES), emitting the onNames
// event for the channel and clearing its pending buffer.
func (s *Server) flushNames(msg ircwire.Message) {
	channel := msg.Param(1)
	key := foldChannel(channel)

	s.mu.Lock()
	names := s.pendingNames[key]
	delete(s.pendingNames, key)
	s.mu.Unlock()

	s.onEvt(event.Names(s.id, channel, names))
}

// splitNamePrefix strips a leading membership prefix (@, +, %, ~, &)
// from a NAMES-reply token, returning the bare nick and the prefix.
func splitNamePrefix(tok string) (nick, prefix string) {
	if tok == "" {
		return "", ""
	}
	switch tok[0] {
	case '@', '+', '%', '~', '&':
		return tok[1:], tok[:1]
	default:
		return tok, ""
	}
}

// handleWhoisUser starts (or continues) accumulating a WHOIS reply
// from 311 (RPL_WHOISUSER); flushWhois (318) emits the completed
// onWhois event.
func (s *Server) handleWhoisUser(msg ircwire.Message) {
	if len(msg.Params) < 5 {
		return
	}
	nick := msg.Param(1)
	s.mu.Lock()
	s.pendingWhois[foldChannel(nick)] = &event.WhoisPayload{
		Nick:     nick,
		User:     msg.Param(2),
		Host:     msg.Param(3),
		Realname: msg.Param(4),
	}
	s.mu.Unlock()
}

// flushWhois is called on 318 (RPL_ENDOFWHOIS), emitting the
// accumulated onWhois event and clearing its pending entry.
func (s *Server) flushWhois(msg ircwire.Message) {
	if len(msg.Params) < 2 {
		return
	}
	nick := msg.Param(1)
	key := foldChannel(nick)

	s.mu.Lock()
	payload := s.pendingWhois[key]
	delete(s.pendingWhois, key)
	s.mu.Unlock()

	if payload == nil {
		payload = &event.WhoisPayload{Nick: nick}
	}
	s.onEvt(event.Whois(s.id, *payload))
}

func (s *Server) channelOrCreate(name string) *Channel {
	key := foldChannel(name)
	ch, ok := s.channels[key]
	if !ok {
		ch = &Channel{Name: name, Members: make(map[string]Member)}
		s.channels[key] = ch
	}
	return ch
}
