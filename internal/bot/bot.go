// Package bot is the composition root: it owns every subsystem
// (servers, plugins, rules, hooks, timers, transport listeners, the
// optional store and MQTT sink) and wires them together behind the
// single cooperative reactor loop.Loop describes (spec.md §5). Nothing
// outside this package constructs a Server, Registry or Store
// directly; internal/bot is where their lifetimes and each other's
// references live.
package bot

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/markand/irccd/internal/buildinfo"
	"github.com/markand/irccd/internal/command"
	"github.com/markand/irccd/internal/config"
	"github.com/markand/irccd/internal/connwatch"
	"github.com/markand/irccd/internal/dashboard"
	"github.com/markand/irccd/internal/event"
	"github.com/markand/irccd/internal/events"
	"github.com/markand/irccd/internal/hook"
	"github.com/markand/irccd/internal/loop"
	"github.com/markand/irccd/internal/mqtt"
	"github.com/markand/irccd/internal/paths"
	"github.com/markand/irccd/internal/plugin"
	"github.com/markand/irccd/internal/plugin/jsplugin"
	"github.com/markand/irccd/internal/plugin/nativeplugin"
	"github.com/markand/irccd/internal/rule"
	"github.com/markand/irccd/internal/server"
	"github.com/markand/irccd/internal/store"
	"github.com/markand/irccd/internal/timer"
	"github.com/markand/irccd/internal/transport"
)

// Bot holds every live subsystem and is the sole owner of the bot's
// mutable state (servers, loaded plugins, the rule list, hooks): every
// IRC event, timer callback and rule decision flows through the single
// loop goroutine this struct starts in Start.
type Bot struct {
	cfg    *config.Config
	logger *slog.Logger
	xdg    paths.XDG

	loop    *loop.Loop
	rules   *rule.List
	hooks   *hook.Registry
	plugins *plugin.Registry
	timers  *timer.Manager
	bus     *events.Bus

	store      *store.Store
	mqttPub    *mqtt.Publisher
	connwatch  *connwatch.Watcher
	transports []*transport.Server
	listeners  []net.Listener

	dashboard    *dashboard.Server
	dashboardLn  net.Listener
	dashboardCfg *config.DashboardConfig

	mu      sync.RWMutex
	servers map[string]*server.Server
}

// New builds a Bot from cfg but does not start any network activity;
// call Start for that. Plugin search paths and the per-plugin XDG
// resolver are resolved from the environment at construction time,
// matching spec.md §4.3's "no captured pointers across suspension
// points" by keeping the Facade stateless beyond the Bot pointer
// itself.
func New(cfg *config.Config, logger *slog.Logger) (*Bot, error) {
	xdg, err := paths.LoadXDG()
	if err != nil {
		return nil, fmt.Errorf("load xdg dirs: %w", err)
	}

	b := &Bot{
		cfg:     cfg,
		logger:  logger,
		xdg:     xdg,
		loop:    loop.New(),
		rules:   rule.NewList(),
		bus:     events.New(),
		servers: make(map[string]*server.Server),
	}
	b.timers = timer.New(logger.With("component", "timer"), b.loop.Post)

	if cfg.General.DataDir != "" {
		dbPath := cfg.General.DataDir + "/irccd.db"
		st, err := store.Open(dbPath)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		b.store = st
	}

	if cfg.MQTT != nil {
		b.mqttPub = mqtt.New(mqtt.Config{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
		}, logger.With("component", "mqtt"))
	}
	b.hooks = hook.New(logger.With("component", "hook"), b.publisher())

	b.plugins = plugin.NewRegistry(logger.With("component", "plugin"), jsplugin.New(), nativeplugin.New())

	b.seedRules()
	b.seedHooks()

	for id, sc := range cfg.Servers {
		b.addServer(id, sc)
	}

	svc := &command.Services{
		Plugin: &pluginService{b: b},
		Server: &serverService{b: b},
		Rule:   b.rules,
		Hook:   b.hooks,
	}
	registry := command.NewRegistry()
	for _, tc := range cfg.Transport {
		ts := transport.New(logger.With("component", "transport"), registry, svc, tc.Password, true, tc.SSL)
		b.transports = append(b.transports, ts)
	}

	if cfg.Dashboard != nil {
		b.dashboardCfg = cfg.Dashboard
		b.dashboard = dashboard.New(logger.With("component", "dashboard"), b.bus, b.dashboardSnapshot)
	}

	return b, nil
}

// dashboardSnapshot builds the read-only overview dashboard.New renders;
// it is the only point where internal/dashboard reaches into bot
// state, kept as a closure rather than handing dashboard.Server a Bot
// pointer so the package stays decoupled per spec.md §4.3's façade
// discipline.
func (b *Bot) dashboardSnapshot() dashboard.Snapshot {
	b.mu.RLock()
	servers := make([]*server.Server, 0, len(b.servers))
	for _, srv := range b.servers {
		servers = append(servers, srv)
	}
	b.mu.RUnlock()

	snap := dashboard.Snapshot{
		Uptime:    buildinfo.Uptime(),
		Version:   buildinfo.Version,
		RuleCount: b.rules.Len(),
		HookCount: len(b.hooks.List()),
	}

	for _, srv := range servers {
		channels := srv.Channels()
		names := make([]string, 0, len(channels))
		for _, ch := range channels {
			names = append(names, ch.Name)
		}
		sort.Strings(names)
		snap.Servers = append(snap.Servers, dashboard.ServerSnapshot{
			ID:       srv.ID(),
			Hostname: srv.Config().Hostname,
			State:    srv.State().String(),
			Nickname: srv.Nickname(),
			Channels: names,
		})
	}
	sort.Slice(snap.Servers, func(i, j int) bool { return snap.Servers[i].ID < snap.Servers[j].ID })

	for _, id := range b.plugins.List() {
		pl, ok := b.plugins.Get(id)
		if !ok {
			continue
		}
		snap.Plugins = append(snap.Plugins, dashboard.PluginSnapshot{
			ID:          pl.ID,
			Author:      pl.Author,
			Version:     pl.Version,
			SummaryHTML: dashboard.RenderSummary(pl.Summary),
		})
	}
	sort.Slice(snap.Plugins, func(i, j int) bool { return snap.Plugins[i].ID < snap.Plugins[j].ID })

	return snap
}

// publisher returns the hook Publisher to wire in: the real MQTT
// publisher when configured, or a stub that fails clearly so an
// "mqtt://" hook target misconfigured without an [mqtt] section
// reports a sensible error instead of a nil-pointer panic.
func (b *Bot) publisher() hook.Publisher {
	if b.mqttPub != nil {
		return b.mqttPub
	}
	return unconfiguredPublisher{}
}

type unconfiguredPublisher struct{}

func (unconfiguredPublisher) Publish(context.Context, string, []byte) error {
	return fmt.Errorf("mqtt hook target configured without an [mqtt] section")
}

// seedRules loads the persisted rule list from the store if one is
// open and non-empty, falling back to the config file's [rule]
// sections otherwise — a fresh bot with no store behaves exactly per
// spec.md, while one with persistence resumes whatever rule-add/-edit/
// -move/-remove commands last left in place.
func (b *Bot) seedRules() {
	if b.store != nil {
		if saved, err := b.store.LoadRules(); err != nil {
			b.logger.Warn("failed to load persisted rules", "error", err)
		} else if len(saved) > 0 {
			b.rules.Replace(saved)
			return
		}
	}

	rules := make([]rule.Rule, 0, len(b.cfg.Rules))
	for _, rc := range b.cfg.Rules {
		rules = append(rules, rule.Rule{
			Servers:  rc.Servers,
			Channels: rc.Channels,
			Origins:  rc.Origins,
			Plugins:  rc.Plugins,
			Events:   rc.Events,
			Action:   rule.Action(rc.Action),
		})
	}
	b.rules.Replace(rules)
}

// seedHooks loads persisted hooks from the store (if any) then adds
// every config-file hook not already present, so a hook-add command's
// effect survives restart alongside the hooks irccd.conf declares.
func (b *Bot) seedHooks() {
	if b.store != nil {
		saved, err := b.store.LoadHooks()
		if err != nil {
			b.logger.Warn("failed to load persisted hooks", "error", err)
		}
		for _, h := range saved {
			if err := b.hooks.Add(h.ID, h.Target); err != nil {
				b.logger.Warn("failed to restore persisted hook", "hook", h.ID, "error", err)
			}
		}
	}

	for id, hc := range b.cfg.Hooks {
		if _, found := find(b.hooks.List(), id); found {
			continue
		}
		if err := b.hooks.Add(id, hc.Target); err != nil {
			b.logger.Warn("failed to add configured hook", "hook", id, "error", err)
		}
	}
}

func find(hooks []hook.Hook, id string) (hook.Hook, bool) {
	for _, h := range hooks {
		if h.ID == id {
			return h, true
		}
	}
	return hook.Hook{}, false
}

// addServer constructs a server.Server for sc and registers it under
// id, without starting its connection goroutine.
func (b *Bot) addServer(id string, sc config.ServerConfig) {
	srv := server.New(id, sc, server.NewNetDialer(), b.logger, func(e event.Event) {
		b.loop.Post(func() { b.dispatchEvent(e) })
	})
	srv.SetPluginLister(b.plugins.List)

	b.mu.Lock()
	b.servers[id] = srv
	b.mu.Unlock()
}

func (b *Bot) serverIDs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make([]string, 0, len(b.servers))
	for id := range b.servers {
		ids = append(ids, id)
	}
	return ids
}

func (b *Bot) getServer(id string) (*server.Server, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	srv, ok := b.servers[id]
	return srv, ok
}

// pluginConfigFor merges a plugin's config-file options/templates/
// paths with whatever the store has persisted for it, the persisted
// values winning since they reflect the most recent plugin-config/
// plugin-template/plugin-path writes.
func (b *Bot) pluginConfigFor(id string) config.PluginConfig {
	pc := b.cfg.Plugins[id]
	cfg := config.PluginConfig{
		ID:        id,
		Load:      pc.Load,
		Options:   cloneStrMap(pc.Options),
		Templates: cloneStrMap(pc.Templates),
		Paths:     cloneStrMap(pc.Paths),
	}

	if b.store == nil {
		return cfg
	}
	opts, tmpls, ps, err := b.store.LoadPluginConfig(id)
	if err != nil {
		b.logger.Warn("failed to load persisted plugin config", "plugin", id, "error", err)
		return cfg
	}
	for k, v := range opts {
		cfg.Options[k] = v
	}
	for k, v := range tmpls {
		cfg.Templates[k] = v
	}
	for k, v := range ps {
		cfg.Paths[k] = v
	}
	return cfg
}

func cloneStrMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Start brings every subsystem online: the reactor goroutine, every
// configured server's connection goroutine, every plugin configured to
// load at startup, every transport listener, and (when configured) the
// MQTT publisher and its connwatch reachability probe.
func (b *Bot) Start(ctx context.Context) error {
	go b.loop.Run()

	if b.mqttPub != nil {
		if err := b.mqttPub.Start(ctx); err != nil {
			b.logger.Warn("mqtt publisher failed to start", "error", err)
		}
		b.connwatch = connwatch.Watch(ctx, connwatch.WatchConfig{
			Name:    "mqtt",
			Probe:   func(probeCtx context.Context) error { return b.mqttPub.AwaitConnection(probeCtx) },
			Backoff: connwatch.DefaultBackoffConfig(),
			OnReady: func() { b.logger.Info("mqtt broker reachable") },
			OnDown:  func(err error) { b.logger.Warn("mqtt broker unreachable", "error", err) },
			Logger:  b.logger.With("component", "connwatch"),
		})
	}

	for id, pc := range b.cfg.Plugins {
		if !pc.Load {
			continue
		}
		if err := b.loadPlugin(id, id); err != nil {
			b.logger.Warn("failed to load plugin at startup", "plugin", id, "error", err)
		}
	}

	b.mu.RLock()
	servers := make([]*server.Server, 0, len(b.servers))
	for _, srv := range b.servers {
		servers = append(servers, srv)
	}
	b.mu.RUnlock()
	for _, srv := range servers {
		go srv.Run()
	}

	for i, tc := range b.cfg.Transport {
		ln, err := b.buildListener(tc)
		if err != nil {
			return fmt.Errorf("build transport listener: %w", err)
		}
		b.listeners = append(b.listeners, ln)
		ts := b.transports[i]
		go func(ts *transport.Server, ln net.Listener) {
			if err := ts.Serve(ln); err != nil {
				b.logger.Warn("transport listener exited", "error", err)
			}
		}(ts, ln)
	}

	if b.dashboard != nil {
		ln, err := net.Listen("tcp", b.dashboardCfg.Address)
		if err != nil {
			return fmt.Errorf("build dashboard listener: %w", err)
		}
		b.dashboardLn = ln
		go func() {
			if err := b.dashboard.Serve(ln); err != nil {
				b.logger.Warn("dashboard listener exited", "error", err)
			}
		}()
	}

	return nil
}

func (b *Bot) loadPlugin(id, nameOrPath string) error {
	cfg := b.pluginConfigFor(id)
	_, err := b.plugins.Load(id, nameOrPath, b.xdg.PluginSearchPath(), cfg, &facade{b: b})
	return err
}

// buildListener opens the net.Listener a TransportConfig describes,
// wrapping it in TLS when the section enables SSL.
func (b *Bot) buildListener(tc config.TransportConfig) (net.Listener, error) {
	var ln net.Listener
	var err error

	switch tc.Type {
	case "unix":
		_ = os.Remove(tc.Path)
		ln, err = net.Listen("unix", tc.Path)
	case "tcp":
		network := "tcp"
		switch tc.Family {
		case "ipv4":
			network = "tcp4"
		case "ipv6":
			network = "tcp6"
		}
		ln, err = net.Listen(network, fmt.Sprintf("%s:%d", tc.Address, tc.Port))
	default:
		return nil, fmt.Errorf("unknown transport type: %s", tc.Type)
	}
	if err != nil {
		return nil, err
	}

	if tc.SSL {
		cert, err := tls.LoadX509KeyPair(tc.Cert, tc.Key)
		if err != nil {
			ln.Close()
			return nil, fmt.Errorf("load transport tls cert: %w", err)
		}
		ln = tls.NewListener(ln, &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12})
	}
	return ln, nil
}

// Stop shuts down every subsystem in roughly the reverse order Start
// brought them up, blocking until each has released its resources.
func (b *Bot) Stop(ctx context.Context) {
	if b.dashboard != nil {
		if err := b.dashboard.Close(); err != nil {
			b.logger.Warn("dashboard close failed", "error", err)
		}
	}

	for _, ln := range b.listeners {
		ln.Close()
	}
	for _, ts := range b.transports {
		ts.Close()
	}

	b.mu.RLock()
	servers := make([]*server.Server, 0, len(b.servers))
	for _, srv := range b.servers {
		servers = append(servers, srv)
	}
	b.mu.RUnlock()
	for _, srv := range servers {
		srv.Stop()
	}

	b.timers.StopAll()
	if b.connwatch != nil {
		b.connwatch.Stop()
	}

	if b.mqttPub != nil {
		stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := b.mqttPub.Stop(stopCtx); err != nil {
			b.logger.Warn("mqtt publisher stop failed", "error", err)
		}
	}

	b.loop.Stop()

	if b.store != nil {
		if err := b.store.Close(); err != nil {
			b.logger.Warn("store close failed", "error", err)
		}
	}
}
