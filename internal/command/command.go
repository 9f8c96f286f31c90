// Package command implements the transport command registry (spec.md
// §4.7): roughly thirty typed commands grouped into plugin/server/
// rule/hook/control families, each validating its request fields then
// invoking the matching Services method, converting any resulting
// error into the {error, errorCategory} envelope via internal/ircerr.
package command

import (
	"fmt"

	"github.com/markand/irccd/internal/hook"
	"github.com/markand/irccd/internal/ircerr"
	"github.com/markand/irccd/internal/rule"
)

// Request is one decoded transport frame's fields beyond "command"
// itself; transport JSON maps directly onto this loosely-typed form
// since the thirty commands share no single schema.
type Request map[string]any

// Response is the success-path payload merged under the echoed
// "command" field; transport is responsible for adding "command" and,
// on failure, the error envelope.
type Response map[string]any

// Session is the per-client authentication/subscription state the
// "auth" and "watch" control commands mutate. The transport server
// implements this; the command registry only needs to flip state on
// it, never to own a socket.
type Session interface {
	RequiresAuth() bool
	Authenticated() bool
	CheckPassword(password string) bool
	Authenticate()
	Watch()
}

// PluginService is the bot operation surface the plugin-* command
// family invokes.
type PluginService interface {
	List() []string
	Load(id, nameOrPath string) error
	Unload(id string) error
	Reload(id string) error
	Info(id string) (author, license, summary, version string, err error)
	Options(id string) (map[string]string, error)
	SetOption(id, key, value string) error
	Templates(id string) (map[string]string, error)
	SetTemplate(id, key, value string) error
	Paths(id string) (map[string]string, error)
	SetPath(id, key, value string) error
}

// ServerInfo is the server-info/server-list reporting shape.
type ServerInfo struct {
	ID       string
	Hostname string
	Port     int
	SSL      bool
	Nickname string
	State    string
	Channels []string
}

// ServerConnectParams mirrors the server-connect request's extra
// fields (spec.md §6).
type ServerConnectParams struct {
	ID        string
	Hostname  string
	Port      int
	SSL       bool
	SSLVerify bool
	IPv6      bool
	Nickname  string
	Username  string
	Realname  string
	Channels  []string
}

// ServerService is the bot operation surface the server-* command
// family invokes.
type ServerService interface {
	List() []string
	Info(id string) (ServerInfo, error)
	Connect(params ServerConnectParams) error
	Disconnect(id string) error
	Reconnect(id string) error
	Join(id, channel, password string) error
	Part(id, channel, reason string) error
	Message(id, target, text string) error
	Notice(id, target, text string) error
	Me(id, target, text string) error
	Mode(id, channel, mode string, args []string) error
	Invite(id, channel, target string) error
	Kick(id, channel, target, reason string) error
	Nick(id, nickname string) error
	Topic(id, channel, topic string) error
}

// RuleService is the bot operation surface the rule-* command family
// invokes.
type RuleService interface {
	List() []rule.Rule
	Add(r rule.Rule, index int) int
	Edit(index int, patch rule.Patch) error
	Move(from, to int) error
	Remove(index int) error
}

// HookService is the bot operation surface the hook-* command family
// invokes.
type HookService interface {
	List() []hook.Hook
	Add(id, target string) error
	Remove(id string) error
}

// Services aggregates every service family a command handler may need.
type Services struct {
	Plugin PluginService
	Server ServerService
	Rule   RuleService
	Hook   HookService
}

// Handler processes one command's request against svc/sess and
// returns the success payload, or a *ircerr.Error on failure.
type Handler func(svc *Services, sess Session, req Request) (Response, error)

// Registry maps command name to Handler; built once at startup via
// NewRegistry and never mutated afterward, so Dispatch needs no lock.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry builds the registry with all ~30 commands wired in.
func NewRegistry() *Registry {
	r := &Registry{handlers: make(map[string]Handler)}
	r.registerControl()
	r.registerPlugin()
	r.registerServer()
	r.registerRule()
	r.registerHook()
	return r
}

func (r *Registry) register(name string, h Handler) {
	r.handlers[name] = h
}

// Dispatch looks up name and runs it. An unknown command yields
// invalid_command (spec.md §7); auth is always permitted even when
// the session isn't yet authenticated, since it's how authentication
// happens, and every other command requires prior authentication when
// a password is configured.
func (r *Registry) Dispatch(name string, svc *Services, sess Session, req Request) (Response, error) {
	h, ok := r.handlers[name]
	if !ok {
		return nil, ircerr.Irccd(ircerr.InvalidCommand, fmt.Sprintf("unknown command: %s", name))
	}
	if name != "auth" && sess != nil && sess.RequiresAuth() && !sess.Authenticated() {
		return nil, ircerr.Irccd(ircerr.AuthRequired, "authentication required")
	}
	return h(svc, sess, req)
}

// --- request-field helpers ---

func reqString(req Request, key string) (string, error) {
	v, ok := req[key]
	if !ok {
		return "", ircerr.Irccd(ircerr.InvalidMessage, fmt.Sprintf("missing field: %s", key))
	}
	s, ok := v.(string)
	if !ok {
		return "", ircerr.Irccd(ircerr.InvalidMessage, fmt.Sprintf("field %s must be a string", key))
	}
	return s, nil
}

func optString(req Request, key string) string {
	v, ok := req[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func optBool(req Request, key string) bool {
	v, ok := req[key]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

func reqInt(req Request, key string) (int, error) {
	v, ok := req[key]
	if !ok {
		return 0, ircerr.Irccd(ircerr.InvalidMessage, fmt.Sprintf("missing field: %s", key))
	}
	switch n := v.(type) {
	case float64:
		return int(n), nil
	case int:
		return n, nil
	}
	return 0, ircerr.Irccd(ircerr.InvalidMessage, fmt.Sprintf("field %s must be a number", key))
}

func optInt(req Request, key string, def int) int {
	v, ok := req[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return def
}

func optStrings(req Request, key string) []string {
	v, ok := req[key]
	if !ok {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func optArgs(req Request, key string) []string {
	return optStrings(req, key)
}
