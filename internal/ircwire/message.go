// Package ircwire implements the client-side RFC 1459/2812 wire
// grammar: parsing and encoding of IRC lines, CTCP payload wrapping,
// and the numeric reply / command name vocabulary the server state
// machine dispatches on.
package ircwire

import "strings"

// Message is one parsed IRC line: an optional prefix, a command
// (textual like "PRIVMSG" or numeric like "001"), and a parameter
// list where the last entry may have contained a leading ':' in the
// wire form (the "trailing" parameter).
type Message struct {
	Prefix  string
	Command string
	Params  []string
}

// Nick returns the nickname portion of Prefix ("nick!user@host" ->
// "nick"). Returns the whole prefix unchanged if it carries no '!'.
func (m Message) Nick() string {
	if i := strings.IndexByte(m.Prefix, '!'); i >= 0 {
		return m.Prefix[:i]
	}
	return m.Prefix
}

// User returns the username portion of Prefix, or "" if absent.
func (m Message) User() string {
	bang := strings.IndexByte(m.Prefix, '!')
	if bang < 0 {
		return ""
	}
	rest := m.Prefix[bang+1:]
	at := strings.IndexByte(rest, '@')
	if at < 0 {
		return rest
	}
	return rest[:at]
}

// Host returns the hostname portion of Prefix, or "" if absent.
func (m Message) Host() string {
	at := strings.IndexByte(m.Prefix, '@')
	if at < 0 {
		return ""
	}
	return m.Prefix[at+1:]
}

// Param returns Params[i], or "" if the message has fewer parameters.
func (m Message) Param(i int) string {
	if i < 0 || i >= len(m.Params) {
		return ""
	}
	return m.Params[i]
}

// Parse decodes a single IRC line (without the trailing CR LF) into a
// Message. Returns an error if the line has no command.
func Parse(line string) (Message, error) {
	var m Message

	if strings.HasPrefix(line, ":") {
		sp := strings.IndexByte(line, ' ')
		if sp < 0 {
			return Message{}, errMalformed("missing content after prefix")
		}
		m.Prefix = line[1:sp]
		line = strings.TrimLeft(line[sp+1:], " ")
	}

	if line == "" {
		return Message{}, errMalformed("empty command")
	}

	// Split off the trailing ":..." parameter first, since it may
	// itself contain spaces.
	var trailing string
	hasTrailing := false
	if i := strings.Index(line, " :"); i >= 0 {
		trailing = line[i+2:]
		hasTrailing = true
		line = line[:i]
	} else if strings.HasPrefix(line, ":") {
		trailing = line[1:]
		hasTrailing = true
		line = ""
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		if !hasTrailing {
			return Message{}, errMalformed("empty command")
		}
		return Message{}, errMalformed("missing command")
	}

	m.Command = strings.ToUpper(fields[0])
	m.Params = append(m.Params, fields[1:]...)
	if hasTrailing {
		m.Params = append(m.Params, trailing)
	}

	return m, nil
}

// Encode renders m back into wire form, without the terminating CR
// LF (callers append that at the write boundary). The last parameter
// is sent as a trailing (":"-prefixed) parameter whenever it is empty,
// contains a space or begins with ':', matching what real IRC servers
// require.
func Encode(m Message) string {
	var b strings.Builder
	if m.Prefix != "" {
		b.WriteByte(':')
		b.WriteString(m.Prefix)
		b.WriteByte(' ')
	}
	b.WriteString(m.Command)
	for i, p := range m.Params {
		b.WriteByte(' ')
		if i == len(m.Params)-1 && (p == "" || strings.ContainsRune(p, ' ') || strings.HasPrefix(p, ":")) {
			b.WriteByte(':')
		}
		b.WriteString(p)
	}
	return b.String()
}

type malformedError string

func (e malformedError) Error() string { return "malformed irc line: " + string(e) }

func errMalformed(reason string) error { return malformedError(reason) }
