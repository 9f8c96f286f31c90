package plugin

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/markand/irccd/internal/config"
	"github.com/markand/irccd/internal/event"
	"github.com/markand/irccd/internal/ircerr"
)

// Facade is the set of bot callbacks a loaded plugin may invoke. It is
// passed to a Loader at Load time rather than captured by the plugin
// itself, so every call resolves servers by id fresh (spec.md §9: "no
// captured pointers across suspension points" — a server may have
// reconnected, or vanished, between two calls from the same plugin).
type Facade interface {
	// Servers returns the ids of every configured server, for
	// Irccd.Server listing in script code.
	Servers() []string

	Message(serverID, channel, text string) error
	Notice(serverID, channel, text string) error
	Me(serverID, channel, text string) error
	Join(serverID, channel, password string) error
	Part(serverID, channel, reason string) error
	Kick(serverID, channel, target, reason string) error
	Invite(serverID, channel, target string) error
	Mode(serverID, channel, mode string, args []string) error
	Topic(serverID, channel, topic string) error
	Nick(serverID, nickname string) error

	// Log writes a plugin-attributed log line at the given level
	// ("info", "warning", "debug").
	Log(pluginID, level, message string)

	// CreateTimer schedules callback through the bot's timer manager
	// and post-to-reactor path; periodic selects a repeating timer.
	CreateTimer(periodic bool, delayMs int64, callback func()) string
	StopTimer(id string)
}

// Loader is the strategy a Registry uses to turn a configured plugin
// entry into a live Plugin. Exactly two loaders exist (spec.md §4.3):
// the Javascript loader (goja) and the native loader (Go's plugin
// package, POSIX-only); Accepts lets the Registry pick the first
// loader willing to handle a given path/module name without either
// loader needing to know about the other.
type Loader interface {
	// Name identifies the loader for logging ("javascript", "native").
	Name() string

	// Accepts reports whether this loader can handle nameOrPath,
	// returning the resolved filesystem path to load if so.
	Accepts(nameOrPath string, paths []string) (path string, ok bool)

	// Load compiles/opens the plugin at path, runs its top-level
	// registration code, and returns the populated Plugin. cfg carries
	// the options/templates/paths this plugin was configured with
	// (config file sections merged with store-persisted overrides).
	Load(id, path string, cfg config.PluginConfig, facade Facade) (*Plugin, error)
}

// Registry owns the set of loaded plugins plus the ordered list of
// loaders tried when resolving a configured plugin entry to a file.
type Registry struct {
	logger  *slog.Logger
	loaders []Loader

	mu      sync.RWMutex
	plugins map[string]*Plugin
}

// NewRegistry creates an empty Registry. loaders is tried in order;
// the bot composition root registers the Javascript loader first, then
// the native loader, matching spec.md §4.3's precedence.
func NewRegistry(logger *slog.Logger, loaders ...Loader) *Registry {
	return &Registry{
		logger:  logger,
		loaders: loaders,
		plugins: make(map[string]*Plugin),
	}
}

// Load resolves nameOrPath against every registered loader in order,
// loads the plugin under id, and runs its on_load hook if present.
// Returns plugin_already_exists if id is already loaded.
func (r *Registry) Load(id, nameOrPath string, searchPaths []string, cfg config.PluginConfig, facade Facade) (*Plugin, error) {
	if !ValidID(id) {
		return nil, ircerr.Plugin(ircerr.PluginInvalidIdentifier, fmt.Sprintf("invalid plugin identifier: %s", id))
	}

	r.mu.Lock()
	if _, exists := r.plugins[id]; exists {
		r.mu.Unlock()
		return nil, ircerr.Plugin(ircerr.PluginAlreadyExists, fmt.Sprintf("plugin %s already exists", id))
	}
	r.mu.Unlock()

	for _, ldr := range r.loaders {
		path, ok := ldr.Accepts(nameOrPath, searchPaths)
		if !ok {
			continue
		}

		p, err := ldr.Load(id, path, cfg, facade)
		if err != nil {
			return nil, ircerr.Plugin(ircerr.PluginExecError, fmt.Sprintf("%s: %s", id, err))
		}

		if p.Handlers.OnLoad != nil {
			if err := p.invokeLoad(); err != nil {
				if p.Close != nil {
					_ = p.Close()
				}
				return nil, ircerr.Plugin(ircerr.PluginExecError, fmt.Sprintf("%s: on_load: %s", id, err))
			}
		}

		r.mu.Lock()
		r.plugins[id] = p
		r.mu.Unlock()
		r.logger.Info("plugin loaded", "plugin", id, "loader", ldr.Name(), "path", path)
		return p, nil
	}

	return nil, ircerr.Plugin(ircerr.PluginNotFound, fmt.Sprintf("no loader accepts %s", nameOrPath))
}

// invokeLoad calls on_load with panic recovery, same guard as Invoke.
func (p *Plugin) invokeLoad() (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return p.Handlers.OnLoad()
}

func (p *Plugin) invokeReload() (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	if p.Handlers.OnReload == nil {
		return nil
	}
	return p.Handlers.OnReload()
}

func (p *Plugin) invokeUnload() {
	defer func() {
		_ = recover()
	}()
	if p.Handlers.OnUnload != nil {
		p.Handlers.OnUnload()
	}
}

// Unload runs on_unload, releases loader resources, and forgets id.
func (r *Registry) Unload(id string) error {
	r.mu.Lock()
	p, ok := r.plugins[id]
	if ok {
		delete(r.plugins, id)
	}
	r.mu.Unlock()

	if !ok {
		return ircerr.Plugin(ircerr.PluginNotFound, fmt.Sprintf("plugin %s not found", id))
	}

	p.invokeUnload()
	if p.Close != nil {
		return p.Close()
	}
	return nil
}

// Reload runs on_reload for a loaded plugin, logging any error at
// warning and returning it as exec_error (spec.md §4.3: a failed
// reload leaves the prior state intact rather than unloading).
func (r *Registry) Reload(id string) error {
	r.mu.RLock()
	p, ok := r.plugins[id]
	r.mu.RUnlock()

	if !ok {
		return ircerr.Plugin(ircerr.PluginNotFound, fmt.Sprintf("plugin %s not found", id))
	}
	if err := p.invokeReload(); err != nil {
		r.logger.Warn("plugin reload failed", "plugin", id, "error", err)
		return ircerr.Plugin(ircerr.PluginExecError, fmt.Sprintf("%s: on_reload: %s", id, err))
	}
	return nil
}

// Get returns the loaded plugin with the given id.
func (r *Registry) Get(id string) (*Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[id]
	return p, ok
}

// List returns every loaded plugin id, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.plugins))
	for id := range r.plugins {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Dispatch delivers e to every loaded plugin's matching handler,
// recovering and logging any panic so one misbehaving plugin can never
// take down another or the reactor.
func (r *Registry) Dispatch(e event.Event) {
	r.mu.RLock()
	plugins := make([]*Plugin, 0, len(r.plugins))
	for _, p := range r.plugins {
		plugins = append(plugins, p)
	}
	r.mu.RUnlock()

	for _, p := range plugins {
		if rec := p.Invoke(e); rec != nil {
			r.logger.Warn("plugin handler panicked", "plugin", p.ID, "event", e.Kind, "recovered", rec)
		}
	}
}
