// Package ircerr implements the four-category typed error taxonomy
// spec.md §7 defines for command handlers: every command either
// succeeds or raises exactly one *Error, which the transport server
// serializes as {"error":int,"errorCategory":string} and, for the two
// protocol-level irccd codes that indicate the client itself is
// misbehaving, uses to drive the client to the closing state.
package ircerr

import "fmt"

// Category names one of the four error taxonomies spec.md §7 groups
// codes into.
type Category string

const (
	CategoryIrccd  Category = "irccd"
	CategoryServer Category = "server"
	CategoryPlugin Category = "plugin"
	CategoryRule   Category = "rule"
)

// irccd category codes: protocol-level failures, not specific to any
// server/plugin/rule.
const (
	NotIrccd Code = iota + 1
	IncompatibleVersion
	AuthRequired
	InvalidAuth
	InvalidMessage
	InvalidCommand
	IncompleteMessage
)

// server category codes.
const (
	ServerNotFound Code = iota + 1
	ServerAlreadyExists
	ServerInvalidIdentifier
	ServerInvalidHostname
	ServerInvalidPort
	ServerInvalidChannel
	ServerInvalidTarget
	ServerNotConnected
	ServerAlreadyConnected
)

// plugin category codes.
const (
	PluginNotFound Code = iota + 1
	PluginAlreadyExists
	PluginExecError
	PluginInvalidIdentifier
)

// rule category codes.
const (
	RuleInvalidIndex Code = iota + 1
	RuleInvalidAction
)

// Code is a small per-category integer, meaningful only together with
// its Category.
type Code int

// Error is the typed error every command handler raises instead of a
// bare error, so the dispatcher can build the {error, errorCategory}
// response envelope (spec.md §7) without guessing at intent.
type Error struct {
	Category Category
	Code     Code
	Message  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error %d: %s", e.Category, e.Code, e.Message)
}

// New builds an *Error for the given category/code/message.
func New(category Category, code Code, message string) *Error {
	return &Error{Category: category, Code: code, Message: message}
}

// Irccd builds a CategoryIrccd error.
func Irccd(code Code, message string) *Error { return New(CategoryIrccd, code, message) }

// Server builds a CategoryServer error.
func Server(code Code, message string) *Error { return New(CategoryServer, code, message) }

// Plugin builds a CategoryPlugin error.
func Plugin(code Code, message string) *Error { return New(CategoryPlugin, code, message) }

// Rule builds a CategoryRule error.
func Rule(code Code, message string) *Error { return New(CategoryRule, code, message) }

// IsProtocolError reports whether err is an *Error whose category and
// code indicate a protocol violation that should close the connection
// (spec.md §4.7: "invalid_auth, invalid_message" — auth failures and
// malformed frames, not ordinary command-level errors like
// invalid_command, which only fails the one request).
func IsProtocolError(err error) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	if e.Category != CategoryIrccd {
		return false
	}
	return e.Code == InvalidAuth || e.Code == InvalidMessage
}

// As attempts to extract an *Error from err, returning ok=false for
// any other error (which callers should treat as an unexpected
// internal failure, not a well-formed command rejection).
func As(err error) (*Error, bool) {
	e, ok := err.(*Error)
	return e, ok
}
