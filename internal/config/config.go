// Package config loads irccd's extended-INI configuration file into a
// typed, validated [Config] tree. The grammar (sections, @include/
// @tryinclude, quoted values, `( "a", "b" )` lists, repeatable
// appending keys) has no ecosystem implementation, so the parser in
// ini.go is hand-written; every other concern of this package follows
// the teacher's conventions (search-path discovery, Load/Validate
// split, a package-level override hook for tests).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/markand/irccd/internal/paths"
)

// Config holds the fully parsed, defaulted and validated bot
// configuration.
type Config struct {
	General   GeneralConfig
	Logs      LogsConfig
	Transport []TransportConfig
	Servers   map[string]ServerConfig
	Plugins   map[string]PluginConfig
	Rules     []RuleConfig
	Hooks     map[string]HookConfig

	// Dashboard and MQTT are nil unless the corresponding section is
	// present, matching SPEC_FULL.md §4.10/§4.5's "strictly additive"
	// requirement: a bot with neither configured behaves exactly as
	// spec.md describes.
	Dashboard *DashboardConfig
	MQTT      *MQTTConfig
}

// GeneralConfig corresponds to the `[general]` section: process-wide
// switches that aren't specific to any other subsystem.
type GeneralConfig struct {
	Verbose    bool
	Foreground bool
	PidFile    string

	// DataDir is the directory the store package's SQLite database
	// lives in (rules/hooks/plugin-config persistence, SPEC_FULL.md
	// §4.8). Empty means persistence is disabled and the bot runs
	// purely off the config file, exactly as spec.md describes.
	DataDir string
}

// LogsConfig corresponds to the `[logs]` section.
type LogsConfig struct {
	// Type selects the sink: "console" (default) or "file".
	Type string
	Path string // required when Type == "file"
}

// TransportConfig corresponds to one `[transport]` section (the
// section may repeat to listen on several endpoints at once).
type TransportConfig struct {
	// Type is "unix" or "tcp".
	Type     string
	Path     string // unix
	Address  string // tcp
	Port     int    // tcp
	Family   string // tcp: "ipv4", "ipv6", or "" for both
	SSL      bool
	Cert     string
	Key      string
	Password string
}

// ServerConfig corresponds to a `[server.<id>]` section.
type ServerConfig struct {
	ID               string
	Hostname         string
	Port             int
	SSL              bool
	SSLVerify        bool
	IPv6             bool
	Password         string
	Nickname         string
	Username         string
	Realname         string
	CtcpVersion      string
	CommandChar      string
	SASLMechanism    string // "" (disabled) or "plain"
	SASLUsername     string
	SASLPassword     string
	Channels         []ChannelConfig
	ReconnectTries   int
	ReconnectDelay   int
	PingTimeout      int
	AutoJoinOnInvite bool
}

// ChannelConfig is one entry of a server's auto-join list, optionally
// carrying a join key.
type ChannelConfig struct {
	Name string
	Key  string
}

// PluginConfig corresponds to a `[plugin.<id>]` section: three plain
// string maps matching the Plugin entity's options/templates/paths
// (spec.md §3), plus whether the plugin loads at startup.
type PluginConfig struct {
	ID        string
	Load      bool
	Options   map[string]string
	Templates map[string]string
	Paths     map[string]string
}

// RuleConfig corresponds to one `[rule]` section, preserving list
// order as the rule engine's index.
type RuleConfig struct {
	Servers  []string
	Channels []string
	Origins  []string
	Plugins  []string
	Events   []string
	Action   string // "accept" or "drop"
}

// HookConfig corresponds to a `[hook.<id>]` section. Target is either
// a filesystem executable path or, as a domain extension beyond the
// original implementation, an `mqtt://` topic sunk through the hook's
// MQTT publisher (see internal/hook).
type HookConfig struct {
	ID     string
	Target string
}

// DashboardConfig corresponds to the optional `[dashboard]` section
// (SPEC_FULL.md §4.10): a read-only HTTP+WebSocket view over the event
// bus. Address defaults to "127.0.0.1:8080" when the section is
// present but the key is omitted.
type DashboardConfig struct {
	Address string
}

// MQTTConfig corresponds to the optional `[mqtt]` section
// (SPEC_FULL.md §4.5): broker connection details for "mqtt://" hook
// targets.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

// searchPathsFunc is overridable in tests, mirroring the teacher's
// pattern for avoiding real filesystem search paths during testing.
var searchPathsFunc = defaultSearchPaths

// defaultSearchPaths returns the config file search order: the
// IRCCD_CONFIG environment variable's directory (if set) is handled by
// FindConfig directly; this slice is the XDG-derived fallback chain,
// most specific first.
func defaultSearchPaths() []string {
	x, err := paths.LoadXDG()
	if err != nil {
		return []string{"irccd.conf"}
	}
	var out []string
	for _, dir := range x.ConfigSearchPath() {
		out = append(out, dir+"/irccd.conf")
	}
	return out
}

// FindConfig locates the configuration file. Precedence: an explicit
// path (from -c/--config), then $IRCCD_CONFIG, then the XDG search
// path. Returns an error if nothing is found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}
	if env := os.Getenv("IRCCD_CONFIG"); env != "" {
		if _, err := os.Stat(env); err != nil {
			return "", fmt.Errorf("IRCCD_CONFIG file not found: %s", env)
		}
		return env, nil
	}
	for _, p := range searchPathsFunc() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no config file found (searched: %v)", searchPathsFunc())
}

// Load reads, parses and validates the configuration file at path,
// expanding @include/@tryinclude directives relative to their
// including file. After Load returns successfully every field is
// usable without additional nil/empty checks: Servers, Plugins and
// Hooks are always non-nil maps.
func Load(path string) (*Config, error) {
	doc, err := parseFile(path, map[string]bool{})
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Servers: map[string]ServerConfig{},
		Plugins: map[string]PluginConfig{},
		Hooks:   map[string]HookConfig{},
	}

	for _, s := range doc.sections {
		switch s.name {
		case "general":
			cfg.General = parseGeneral(s)
		case "logs":
			cfg.Logs = parseLogs(s)
		case "transport":
			t, err := parseTransport(s)
			if err != nil {
				return nil, err
			}
			cfg.Transport = append(cfg.Transport, t)
		case "server":
			srv, err := parseServer(s)
			if err != nil {
				return nil, fmt.Errorf("server.%s: %w", s.id, err)
			}
			cfg.Servers[srv.ID] = srv
		case "plugin":
			cfg.Plugins[s.id] = parsePlugin(s)
		case "rule":
			cfg.Rules = append(cfg.Rules, parseRule(s))
		case "hook":
			h, err := parseHook(s)
			if err != nil {
				return nil, fmt.Errorf("hook.%s: %w", s.id, err)
			}
			cfg.Hooks[h.ID] = h
		case "dashboard":
			d := parseDashboard(s)
			cfg.Dashboard = &d
		case "mqtt":
			m := parseMQTT(s)
			cfg.MQTT = &m
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func parseGeneral(s section) GeneralConfig {
	var g GeneralConfig
	g.Verbose = boolField(s, "verbose")
	g.Foreground = boolField(s, "foreground")
	g.PidFile, _ = s.get("pidfile")
	g.DataDir, _ = s.get("datadir")
	return g
}

func parseLogs(s section) LogsConfig {
	var l LogsConfig
	l.Type, _ = s.get("type")
	l.Path, _ = s.get("path")
	return l
}

func parseTransport(s section) (TransportConfig, error) {
	var t TransportConfig
	t.Type, _ = s.get("type")
	t.Path, _ = s.get("path")
	t.Address, _ = s.get("address")
	t.Family, _ = s.get("family")
	t.Cert, _ = s.get("certificate")
	t.Key, _ = s.get("key")
	t.Password, _ = s.get("password")
	t.SSL = boolField(s, "ssl")
	if port, ok := s.get("port"); ok {
		n, err := strconv.Atoi(port)
		if err != nil {
			return TransportConfig{}, fmt.Errorf("invalid port %q: %w", port, err)
		}
		t.Port = n
	}
	return t, nil
}

func parseServer(s section) (ServerConfig, error) {
	srv := ServerConfig{
		ID:             s.id,
		Port:           6667,
		Nickname:       "irccd",
		Username:       "irccd",
		Realname:       "irccd",
		CtcpVersion:    "irccd",
		CommandChar:    "!",
		ReconnectTries: -1,
		ReconnectDelay: 30,
		PingTimeout:    300,
	}
	srv.Hostname, _ = s.get("hostname")
	if v, ok := s.get("port"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return ServerConfig{}, fmt.Errorf("invalid port %q: %w", v, err)
		}
		srv.Port = n
	}
	srv.SSL = boolField(s, "ssl")
	srv.SSLVerify = boolField(s, "ssl-verify")
	srv.IPv6 = boolField(s, "ipv6")
	srv.Password, _ = s.get("password")
	if v, ok := s.get("nickname"); ok {
		srv.Nickname = v
	}
	if v, ok := s.get("username"); ok {
		srv.Username = v
	}
	if v, ok := s.get("realname"); ok {
		srv.Realname = v
	}
	if v, ok := s.get("ctcp-version"); ok {
		srv.CtcpVersion = v
	}
	if v, ok := s.get("command-char"); ok {
		srv.CommandChar = v
	}
	srv.SASLMechanism, _ = s.get("sasl")
	srv.SASLUsername, _ = s.get("sasl-username")
	srv.SASLPassword, _ = s.get("sasl-password")
	srv.AutoJoinOnInvite = boolField(s, "join-invite")

	if v, ok := s.get("reconnect-tries"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return ServerConfig{}, fmt.Errorf("invalid reconnect-tries %q: %w", v, err)
		}
		srv.ReconnectTries = n
	}
	if v, ok := s.get("reconnect-delay"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return ServerConfig{}, fmt.Errorf("invalid reconnect-delay %q: %w", v, err)
		}
		srv.ReconnectDelay = n
	}
	if v, ok := s.get("ping-timeout"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return ServerConfig{}, fmt.Errorf("invalid ping-timeout %q: %w", v, err)
		}
		srv.PingTimeout = n
	}

	if list, ok := s.getList("channels"); ok {
		for _, c := range list {
			srv.Channels = append(srv.Channels, parseChannel(c))
		}
	}
	for _, c := range s.getAll("channel") {
		srv.Channels = append(srv.Channels, parseChannel(c))
	}

	return srv, nil
}

// parseChannel splits a "#chan:key" auto-join entry into name and key.
func parseChannel(raw string) ChannelConfig {
	name, key, _ := strings.Cut(raw, ":")
	return ChannelConfig{Name: name, Key: key}
}

func parsePlugin(s section) PluginConfig {
	p := PluginConfig{
		ID:        s.id,
		Load:      true,
		Options:   map[string]string{},
		Templates: map[string]string{},
		Paths:     map[string]string{},
	}
	if v, ok := s.get("load"); ok {
		p.Load = parseBool(v)
	}
	for _, k := range s.keys {
		switch {
		case strings.HasPrefix(k.key, "path."):
			p.Paths[strings.TrimPrefix(k.key, "path.")] = k.value
		case strings.HasPrefix(k.key, "template."):
			p.Templates[strings.TrimPrefix(k.key, "template.")] = k.value
		case k.key == "load":
			// handled above
		default:
			p.Options[k.key] = k.value
		}
	}
	return p
}

func parseRule(s section) RuleConfig {
	var r RuleConfig
	r.Servers = ruleSet(s, "servers")
	r.Channels = ruleSet(s, "channels")
	r.Origins = ruleSet(s, "origins")
	r.Plugins = ruleSet(s, "plugins")
	r.Events = ruleSet(s, "events")
	r.Action, _ = s.get("action")
	if r.Action == "" {
		r.Action = "accept"
	}
	return r
}

func ruleSet(s section, key string) []string {
	if list, ok := s.getList(key); ok {
		return list
	}
	if v, ok := s.get(key); ok && v != "" {
		return []string{v}
	}
	return nil
}

func parseHook(s section) (HookConfig, error) {
	target, ok := s.get("path")
	if !ok {
		target, ok = s.get("target")
	}
	if !ok {
		return HookConfig{}, fmt.Errorf("missing path/target")
	}
	return HookConfig{ID: s.id, Target: target}, nil
}

func parseDashboard(s section) DashboardConfig {
	d := DashboardConfig{Address: "127.0.0.1:8080"}
	if v, ok := s.get("address"); ok {
		d.Address = v
	}
	return d
}

func parseMQTT(s section) MQTTConfig {
	var m MQTTConfig
	m.Broker, _ = s.get("broker")
	m.ClientID, _ = s.get("client-id")
	m.Username, _ = s.get("username")
	m.Password, _ = s.get("password")
	return m
}

func boolField(s section, key string) bool {
	v, ok := s.get(key)
	if !ok {
		return false
	}
	return parseBool(v)
}

func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "true", "yes", "on", "1":
		return true
	default:
		return false
	}
}

// applyDefaults fills in zero-value fields with sensible defaults. The
// per-server defaults are already applied in parseServer since they
// depend on presence-of-key, not zero-value (a port of 0 is invalid,
// so it cannot double as "unset").
func (c *Config) applyDefaults() {
	if c.Logs.Type == "" {
		c.Logs.Type = "console"
	}
	if len(c.Transport) == 0 {
		c.Transport = []TransportConfig{{Type: "unix", Path: "/tmp/irccd.sock"}}
	}
}

// Validate checks that the configuration is internally consistent. It
// runs after applyDefaults, so it can assume defaults are populated.
func (c *Config) Validate() error {
	if c.Logs.Type == "file" && c.Logs.Path == "" {
		return fmt.Errorf("logs: type=file requires path")
	}
	for _, t := range c.Transport {
		switch t.Type {
		case "unix":
			if t.Path == "" {
				return fmt.Errorf("transport: type=unix requires path")
			}
		case "tcp":
			if t.Port < 1 || t.Port > 65535 {
				return fmt.Errorf("transport: port %d out of range (1-65535)", t.Port)
			}
		default:
			return fmt.Errorf("transport: unknown type %q", t.Type)
		}
	}
	for id, srv := range c.Servers {
		if srv.Hostname == "" {
			return fmt.Errorf("server.%s: missing hostname", id)
		}
		if srv.Port < 1 || srv.Port > 65535 {
			return fmt.Errorf("server.%s: port %d out of range (1-65535)", id, srv.Port)
		}
		if srv.SASLMechanism != "" && srv.SASLMechanism != "plain" {
			return fmt.Errorf("server.%s: unsupported sasl mechanism %q", id, srv.SASLMechanism)
		}
	}
	for i, r := range c.Rules {
		if r.Action != "accept" && r.Action != "drop" {
			return fmt.Errorf("rule %d: invalid action %q", i, r.Action)
		}
	}
	for id, h := range c.Hooks {
		if h.Target == "" {
			return fmt.Errorf("hook.%s: empty target", id)
		}
	}
	if c.MQTT != nil && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt: missing broker")
	}
	return nil
}
