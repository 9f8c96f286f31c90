// Package plugin defines the plugin runtime contract (spec.md §4.3):
// the event handler capability set every loaded plugin exposes, the
// PluginLoader strategy interface, the façade plugins use to call
// back into the bot, and the Registry that owns the loaded-plugin
// lookup table. Dynamic dispatch over event kinds is resolved (per
// spec.md §9) with a tagged Event type plus this package's
// struct-of-function-pointers Handlers, filled in by whichever loader
// produced the plugin — never by a virtual-method hierarchy.
package plugin

import (
	"regexp"

	"github.com/markand/irccd/internal/event"
)

// idPattern is the identifier grammar spec.md §3 requires for both
// Server and Plugin ids.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidID reports whether id matches the required `[A-Za-z0-9-_]+`
// grammar.
func ValidID(id string) bool {
	return id != "" && idPattern.MatchString(id)
}

// Handlers is the struct-of-function-pointers dispatch table a loader
// fills in for the handlers a plugin actually implements; a nil field
// is treated as a no-op, matching spec.md §4.3's "a plugin implements
// only the handlers it cares about".
type Handlers struct {
	OnConnect    func()
	OnDisconnect func()
	OnInvite     func(origin, channel, target string)
	OnJoin       func(origin, channel string)
	OnKick       func(origin, channel, target, reason string)
	OnMe         func(origin, channel, message string)
	OnMessage    func(origin, channel, message string)
	OnMode       func(origin, channel, mode string, args []string)
	OnNames      func(channel string, names []string)
	OnNick       func(origin, nickname string)
	OnNotice     func(origin, channel, message string)
	OnPart       func(origin, channel, reason string)
	OnTopic      func(origin, channel, topic string)
	OnWhois      func(payload event.WhoisPayload)
	OnCommand    func(origin, channel, message string)

	// OnLoad, OnReload and OnUnload are the lifecycle triple spec.md
	// §3 describes. OnLoad errors abort the load (exec_error). An
	// OnReload error is logged at warning and returned as exec_error,
	// leaving the plugin loaded; a panic in OnUnload is recovered and
	// ignored since there is no well-formed recovery from a failed
	// teardown.
	OnLoad   func() error
	OnReload func() error
	OnUnload func()
}

// Plugin is one loaded plugin: its identity strings, its three
// configuration maps, and its handler table. Info fields are
// immutable after load; the config maps may be mutated in place by
// plugin-config/-template/-path.
type Plugin struct {
	ID      string
	Author  string
	License string
	Summary string
	Version string

	Options   map[string]string
	Templates map[string]string
	Paths     map[string]string

	Handlers Handlers

	// Close releases loader-specific resources (a goja runtime, a
	// dlopen'd shared object) when the plugin is unloaded. May be nil.
	Close func() error
}

// Invoke calls the Handlers field matching e.Kind, if the plugin
// implements it, recovering any panic so a misbehaving handler can
// never reach the reactor (spec.md §7: "do not propagate into the
// loop"). Returns the recovered value, or nil if the handler ran
// cleanly or was absent.
func (p *Plugin) Invoke(e event.Event) (recovered any) {
	defer func() {
		recovered = recover()
	}()

	h := p.Handlers
	switch e.Kind {
	case event.KindConnect:
		if h.OnConnect != nil {
			h.OnConnect()
		}
	case event.KindDisconnect:
		if h.OnDisconnect != nil {
			h.OnDisconnect()
		}
	case event.KindInvite:
		if h.OnInvite != nil {
			p := e.Invite
			h.OnInvite(p.Origin, p.Channel, p.Target)
		}
	case event.KindJoin:
		if h.OnJoin != nil {
			p := e.Join
			h.OnJoin(p.Origin, p.Channel)
		}
	case event.KindKick:
		if h.OnKick != nil {
			p := e.Kick
			h.OnKick(p.Origin, p.Channel, p.Target, p.Reason)
		}
	case event.KindMe:
		if h.OnMe != nil {
			p := e.Me
			h.OnMe(p.Origin, p.Channel, p.Message)
		}
	case event.KindMessage:
		if h.OnMessage != nil {
			p := e.Message
			h.OnMessage(p.Origin, p.Channel, p.Message)
		}
	case event.KindMode:
		if h.OnMode != nil {
			p := e.Mode
			h.OnMode(p.Origin, p.Channel, p.Mode, p.Args)
		}
	case event.KindNames:
		if h.OnNames != nil {
			p := e.Names
			h.OnNames(p.Channel, p.Names)
		}
	case event.KindNick:
		if h.OnNick != nil {
			p := e.Nick
			h.OnNick(p.Origin, p.Nick)
		}
	case event.KindNotice:
		if h.OnNotice != nil {
			p := e.Notice
			h.OnNotice(p.Origin, p.Channel, p.Message)
		}
	case event.KindPart:
		if h.OnPart != nil {
			p := e.Part
			h.OnPart(p.Origin, p.Channel, p.Reason)
		}
	case event.KindTopic:
		if h.OnTopic != nil {
			p := e.Topic
			h.OnTopic(p.Origin, p.Channel, p.Topic)
		}
	case event.KindWhois:
		if h.OnWhois != nil {
			h.OnWhois(*e.Whois)
		}
	case event.KindCommand:
		if h.OnCommand != nil {
			p := e.Command
			h.OnCommand(p.Origin, p.Channel, p.Message)
		}
	}
	return nil
}
