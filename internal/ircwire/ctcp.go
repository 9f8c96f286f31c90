package ircwire

import "strings"

const ctcpDelim = '\x01'

// WrapCTCP wraps payload in the \x01...\x01 envelope used for CTCP
// requests/replies (e.g. ACTION, VERSION), per spec.md §6.
func WrapCTCP(payload string) string {
	var b strings.Builder
	b.WriteByte(ctcpDelim)
	b.WriteString(payload)
	b.WriteByte(ctcpDelim)
	return b.String()
}

// UnwrapCTCP reports whether s is a complete CTCP-wrapped payload and,
// if so, returns the inner text.
func UnwrapCTCP(s string) (payload string, ok bool) {
	if len(s) < 2 || s[0] != ctcpDelim || s[len(s)-1] != ctcpDelim {
		return "", false
	}
	return s[1 : len(s)-1], true
}

// ActionPayload builds the payload for a CTCP ACTION (used by the
// "me" server action — §4.3 callback b).
func ActionPayload(text string) string {
	return "ACTION " + text
}
