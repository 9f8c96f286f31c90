// Package nativeplugin implements the optional native plugin loader
// (spec.md §4.3): a plugin compiled as a Go shared object (`go build
// -buildmode=plugin`) exposing a fixed set of exported symbols. Go's
// plugin package only works on POSIX platforms with cgo-capable
// linking. Accepts only checks that a matching `.so` file exists, on
// every platform; where plugin.Open is unsupported, Load returns its
// error. The loader is otherwise wired exactly like the Javascript
// loader into the same Registry.
package nativeplugin

import (
	"fmt"
	"os"
	"path/filepath"
	stdplugin "plugin"
	"strings"

	"github.com/markand/irccd/internal/config"
	"github.com/markand/irccd/internal/event"
	irccdplugin "github.com/markand/irccd/internal/plugin"
)

// Loader resolves `.so` files for the plugin registry.
type Loader struct{}

// New returns the native loader.
func New() *Loader { return &Loader{} }

func (*Loader) Name() string { return "native" }

// Accepts resolves nameOrPath to a `.so` file the same way jsplugin
// resolves `.js` files.
func (*Loader) Accepts(nameOrPath string, paths []string) (string, bool) {
	if strings.HasSuffix(nameOrPath, ".so") {
		if _, err := os.Stat(nameOrPath); err == nil {
			return nameOrPath, true
		}
		return "", false
	}
	for _, dir := range paths {
		candidate := filepath.Join(dir, nameOrPath+".so")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	return "", false
}

// Load opens the shared object at path and resolves its exported
// symbols. Every symbol is optional: the Author, License, Summary and
// Version *string variables supply the plugin's static metadata when
// exported, and missing handler symbols are treated as
// no-ops, exactly like a Javascript plugin that never defines the
// matching onXxx function.
func (l *Loader) Load(id, path string, cfg config.PluginConfig, facade irccdplugin.Facade) (*irccdplugin.Plugin, error) {
	so, err := stdplugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	p := &irccdplugin.Plugin{
		ID:        id,
		Options:   cloneMap(cfg.Options),
		Templates: cloneMap(cfg.Templates),
		Paths:     cloneMap(cfg.Paths),
		Close:     func() error { return nil },
	}

	if sym, err := so.Lookup("Author"); err == nil {
		if s, ok := sym.(*string); ok {
			p.Author = *s
		}
	}
	if sym, err := so.Lookup("License"); err == nil {
		if s, ok := sym.(*string); ok {
			p.License = *s
		}
	}
	if sym, err := so.Lookup("Summary"); err == nil {
		if s, ok := sym.(*string); ok {
			p.Summary = *s
		}
	}
	if sym, err := so.Lookup("Version"); err == nil {
		if s, ok := sym.(*string); ok {
			p.Version = *s
		}
	}

	// Setup, if exported, receives the facade and this plugin's
	// configuration maps before any event handler may fire.
	if sym, err := so.Lookup("Setup"); err == nil {
		if setup, ok := sym.(func(irccdplugin.Facade, map[string]string, map[string]string, map[string]string)); ok {
			setup(facade, p.Options, p.Templates, p.Paths)
		}
	}

	p.Handlers = irccdplugin.Handlers{
		OnConnect:    lookupVoid(so, "OnConnect"),
		OnDisconnect: lookupVoid(so, "OnDisconnect"),
		OnUnload:     lookupVoid(so, "OnUnload"),
	}
	if sym, err := so.Lookup("OnInvite"); err == nil {
		if fn, ok := sym.(func(string, string, string)); ok {
			p.Handlers.OnInvite = fn
		}
	}
	if sym, err := so.Lookup("OnJoin"); err == nil {
		if fn, ok := sym.(func(string, string)); ok {
			p.Handlers.OnJoin = fn
		}
	}
	if sym, err := so.Lookup("OnKick"); err == nil {
		if fn, ok := sym.(func(string, string, string, string)); ok {
			p.Handlers.OnKick = fn
		}
	}
	if sym, err := so.Lookup("OnMe"); err == nil {
		if fn, ok := sym.(func(string, string, string)); ok {
			p.Handlers.OnMe = fn
		}
	}
	if sym, err := so.Lookup("OnMessage"); err == nil {
		if fn, ok := sym.(func(string, string, string)); ok {
			p.Handlers.OnMessage = fn
		}
	}
	if sym, err := so.Lookup("OnMode"); err == nil {
		if fn, ok := sym.(func(string, string, string, []string)); ok {
			p.Handlers.OnMode = fn
		}
	}
	if sym, err := so.Lookup("OnNames"); err == nil {
		if fn, ok := sym.(func(string, []string)); ok {
			p.Handlers.OnNames = fn
		}
	}
	if sym, err := so.Lookup("OnNick"); err == nil {
		if fn, ok := sym.(func(string, string)); ok {
			p.Handlers.OnNick = fn
		}
	}
	if sym, err := so.Lookup("OnNotice"); err == nil {
		if fn, ok := sym.(func(string, string, string)); ok {
			p.Handlers.OnNotice = fn
		}
	}
	if sym, err := so.Lookup("OnPart"); err == nil {
		if fn, ok := sym.(func(string, string, string)); ok {
			p.Handlers.OnPart = fn
		}
	}
	if sym, err := so.Lookup("OnTopic"); err == nil {
		if fn, ok := sym.(func(string, string, string)); ok {
			p.Handlers.OnTopic = fn
		}
	}
	if sym, err := so.Lookup("OnWhois"); err == nil {
		if fn, ok := sym.(func(event.WhoisPayload)); ok {
			p.Handlers.OnWhois = fn
		}
	}
	if sym, err := so.Lookup("OnCommand"); err == nil {
		if fn, ok := sym.(func(string, string, string)); ok {
			p.Handlers.OnCommand = fn
		}
	}
	if sym, err := so.Lookup("OnLoad"); err == nil {
		if fn, ok := sym.(func() error); ok {
			p.Handlers.OnLoad = fn
		}
	}
	if sym, err := so.Lookup("OnReload"); err == nil {
		if fn, ok := sym.(func() error); ok {
			p.Handlers.OnReload = fn
		}
	}

	return p, nil
}

func lookupVoid(so *stdplugin.Plugin, symbol string) func() {
	sym, err := so.Lookup(symbol)
	if err != nil {
		return nil
	}
	fn, ok := sym.(func())
	if !ok {
		return nil
	}
	return fn
}

func cloneMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
