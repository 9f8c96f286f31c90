// Package jsplugin implements the mandatory Javascript plugin loader
// (spec.md §4.3) on top of goja, a pure-Go ECMAScript runtime — the
// only scripting engine this module depends on, since embedding a
// second runtime (PCRE's original V8-based quickjs binding) would
// reintroduce cgo the rest of this project avoids. Every plugin gets
// its own goja.Runtime; nothing is shared across plugins, so one
// script crashing cannot corrupt another's globals.
package jsplugin

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dop251/goja"

	"github.com/markand/irccd/internal/config"
	"github.com/markand/irccd/internal/event"
	"github.com/markand/irccd/internal/plugin"
)

// Loader resolves `.js` files for the plugin registry.
type Loader struct{}

// New returns the Javascript loader.
func New() *Loader { return &Loader{} }

func (*Loader) Name() string { return "javascript" }

// Accepts resolves nameOrPath to a `.js` file: an absolute/relative
// path ending in .js is used directly, otherwise each entry in paths
// is tried as a directory holding "<name>.js".
func (*Loader) Accepts(nameOrPath string, paths []string) (string, bool) {
	if strings.HasSuffix(nameOrPath, ".js") {
		if _, err := os.Stat(nameOrPath); err == nil {
			return nameOrPath, true
		}
		return "", false
	}
	for _, dir := range paths {
		candidate := filepath.Join(dir, nameOrPath+".js")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	return "", false
}

// Load compiles the script at path into a fresh goja.Runtime, wires
// the Irccd.* global namespaces, runs the script's top-level code, and
// collects the onXxx handler functions it defined.
func (l *Loader) Load(id, path string, cfg config.PluginConfig, facade plugin.Facade) (*plugin.Plugin, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))

	rt := &runtime{vm: vm, facade: facade, pluginID: id}
	if err := rt.install(); err != nil {
		return nil, fmt.Errorf("install globals: %w", err)
	}

	if _, err := vm.RunScript(path, string(src)); err != nil {
		return nil, fmt.Errorf("run %s: %w", path, err)
	}

	p := &plugin.Plugin{
		ID:        id,
		Author:    globalString(vm, "author"),
		License:   globalString(vm, "license"),
		Summary:   globalString(vm, "summary"),
		Version:   globalString(vm, "version"),
		Options:   cloneMap(cfg.Options),
		Templates: cloneMap(cfg.Templates),
		Paths:     cloneMap(cfg.Paths),
		Close:     func() error { return nil },
	}
	p.Handlers = rt.handlers(vm)

	return p, nil
}

func cloneMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func globalString(vm *goja.Runtime, name string) string {
	v := vm.Get(name)
	if v == nil || goja.IsUndefined(v) {
		return ""
	}
	return v.String()
}

// handlers binds each optional top-level onXxx function, defined per
// plugin.Handlers, to a Go closure that marshals native arguments into
// goja values, invokes the script function, and surfaces a script
// exception as a recovered panic (caught by plugin.Plugin.Invoke)
// rather than letting it escape as a Go error type the reactor doesn't
// expect.
func (rt *runtime) handlers(vm *goja.Runtime) plugin.Handlers {
	call := func(name string, args ...any) {
		fn, ok := goja.AssertFunction(vm.Get(name))
		if !ok {
			return
		}
		jsArgs := make([]goja.Value, len(args))
		for i, a := range args {
			jsArgs[i] = vm.ToValue(a)
		}
		if _, err := fn(goja.Undefined(), jsArgs...); err != nil {
			panic(fmt.Sprintf("%s: %s", name, err))
		}
	}

	has := func(name string) bool {
		_, ok := goja.AssertFunction(vm.Get(name))
		return ok
	}

	var h plugin.Handlers
	if has("onConnect") {
		h.OnConnect = func() { call("onConnect") }
	}
	if has("onDisconnect") {
		h.OnDisconnect = func() { call("onDisconnect") }
	}
	if has("onInvite") {
		h.OnInvite = func(origin, channel, target string) { call("onInvite", origin, channel, target) }
	}
	if has("onJoin") {
		h.OnJoin = func(origin, channel string) { call("onJoin", origin, channel) }
	}
	if has("onKick") {
		h.OnKick = func(origin, channel, target, reason string) { call("onKick", origin, channel, target, reason) }
	}
	if has("onMe") {
		h.OnMe = func(origin, channel, message string) { call("onMe", origin, channel, message) }
	}
	if has("onMessage") {
		h.OnMessage = func(origin, channel, message string) { call("onMessage", origin, channel, message) }
	}
	if has("onMode") {
		h.OnMode = func(origin, channel, mode string, args []string) { call("onMode", origin, channel, mode, args) }
	}
	if has("onNames") {
		h.OnNames = func(channel string, names []string) { call("onNames", channel, names) }
	}
	if has("onNick") {
		h.OnNick = func(origin, nickname string) { call("onNick", origin, nickname) }
	}
	if has("onNotice") {
		h.OnNotice = func(origin, channel, message string) { call("onNotice", origin, channel, message) }
	}
	if has("onPart") {
		h.OnPart = func(origin, channel, reason string) { call("onPart", origin, channel, reason) }
	}
	if has("onTopic") {
		h.OnTopic = func(origin, channel, topic string) { call("onTopic", origin, channel, topic) }
	}
	if has("onWhois") {
		h.OnWhois = func(payload event.WhoisPayload) { call("onWhois", payload) }
	}
	if has("onCommand") {
		h.OnCommand = func(origin, channel, message string) { call("onCommand", origin, channel, message) }
	}
	if has("onLoad") {
		h.OnLoad = func() error { return callErr(vm, "onLoad") }
	}
	if has("onReload") {
		h.OnReload = func() error { return callErr(vm, "onReload") }
	}
	if has("onUnload") {
		h.OnUnload = func() { call("onUnload") }
	}
	return h
}

func callErr(vm *goja.Runtime, name string) error {
	fn, ok := goja.AssertFunction(vm.Get(name))
	if !ok {
		return nil
	}
	_, err := fn(goja.Undefined())
	return err
}

// runtime bundles the goja.Runtime and the facade a script's Irccd.*
// namespace calls are dispatched through.
type runtime struct {
	vm       *goja.Runtime
	facade   plugin.Facade
	pluginID string
}

// install populates the global Irccd object with the namespaces
// spec.md §4.3's Javascript API describes: Server (message/notice/...
// operations resolved by server id, never a captured handle), Logger,
// Timer, Util, and System.
func (rt *runtime) install() error {
	vm := rt.vm
	irccd := vm.NewObject()

	server := vm.NewObject()
	must(server.Set("message", rt.jsServerCall(rt.facade.Message)))
	must(server.Set("notice", rt.jsServerCall(rt.facade.Notice)))
	must(server.Set("me", rt.jsServerCall(rt.facade.Me)))
	must(server.Set("join", func(id, channel, password string) { _ = rt.facade.Join(id, channel, password) }))
	must(server.Set("part", func(id, channel, reason string) { _ = rt.facade.Part(id, channel, reason) }))
	must(server.Set("kick", func(id, channel, target, reason string) { _ = rt.facade.Kick(id, channel, target, reason) }))
	must(server.Set("invite", func(id, channel, target string) { _ = rt.facade.Invite(id, channel, target) }))
	must(server.Set("mode", func(id, channel, mode string, args []string) { _ = rt.facade.Mode(id, channel, mode, args) }))
	must(server.Set("topic", func(id, channel, topic string) { _ = rt.facade.Topic(id, channel, topic) }))
	must(server.Set("nick", func(id, nickname string) { _ = rt.facade.Nick(id, nickname) }))
	must(server.Set("list", func() []string { return rt.facade.Servers() }))
	must(irccd.Set("Server", server))

	logger := vm.NewObject()
	must(logger.Set("info", func(msg string) { rt.facade.Log(rt.pluginID, "info", msg) }))
	must(logger.Set("warning", func(msg string) { rt.facade.Log(rt.pluginID, "warning", msg) }))
	must(logger.Set("debug", func(msg string) { rt.facade.Log(rt.pluginID, "debug", msg) }))
	must(irccd.Set("Logger", logger))

	timer := vm.NewObject()
	must(timer.Set("create", func(periodic bool, delayMs int64, callback goja.Callable) string {
		return rt.facade.CreateTimer(periodic, delayMs, func() {
			if _, err := callback(goja.Undefined()); err != nil {
				rt.facade.Log(rt.pluginID, "warning", fmt.Sprintf("timer callback: %s", err))
			}
		})
	}))
	must(timer.Set("clear", func(id string) { rt.facade.StopTimer(id) }))
	must(irccd.Set("Timer", timer))

	sys := vm.NewObject()
	must(sys.Set("name", func() string { return "irccd" }))
	must(sys.Set("uptime", func() int64 { return int64(time.Since(startedAt).Seconds()) }))
	must(irccd.Set("System", sys))

	util := vm.NewObject()
	must(util.Set("splituser", func(mask string) string {
		if i := strings.IndexByte(mask, '!'); i >= 0 {
			return mask[:i]
		}
		return mask
	}))
	must(irccd.Set("Util", util))

	return vm.Set("Irccd", irccd)
}

var startedAt = time.Now()

// jsServerCall adapts a (serverID, channel, text string) error facade
// method into a goja-callable function ignoring the error return,
// matching the fire-and-forget style of the original scripting API.
func (rt *runtime) jsServerCall(fn func(serverID, channel, text string) error) func(string, string, string) {
	return func(id, channel, text string) {
		_ = fn(id, channel, text)
	}
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
