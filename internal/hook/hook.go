// Package hook implements the hook subsystem (spec.md §4.5): a named
// id -> target registry, launched asynchronously on every dispatched
// event after rule evaluation. A target is ordinarily a filesystem
// executable path; as a domain extension (SPEC_FULL.md §4.5) a target
// may instead be an "mqtt://topic" URL, in which case the event is
// published as MQTT rather than spawning a process.
package hook

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"github.com/markand/irccd/internal/event"
)

// Hook is one id -> target association.
type Hook struct {
	ID     string
	Target string
}

// IsMQTT reports whether the hook's target is an MQTT topic rather
// than an executable path.
func (h Hook) IsMQTT() bool {
	return strings.HasPrefix(h.Target, "mqtt://")
}

// Publisher publishes a hook's event payload to an MQTT broker. The
// concrete implementation (backed by eclipse/paho.golang) is supplied
// by the bot composition root; Registry works against the interface so
// it never depends on MQTT being configured.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Registry holds the bot's hook id -> target associations.
type Registry struct {
	mu    sync.RWMutex
	hooks map[string]Hook

	logger    *slog.Logger
	publisher Publisher
}

// New creates an empty hook registry. publisher may be nil; mqtt://
// hooks are then logged and skipped rather than published.
func New(logger *slog.Logger, publisher Publisher) *Registry {
	return &Registry{
		hooks:     make(map[string]Hook),
		logger:    logger,
		publisher: publisher,
	}
}

// Add registers a hook, failing if id is already taken.
func (r *Registry) Add(id, target string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.hooks[id]; ok {
		return fmt.Errorf("hook %q already exists", id)
	}
	r.hooks[id] = Hook{ID: id, Target: target}
	return nil
}

// Remove deletes a hook, failing if id is unknown.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.hooks[id]; !ok {
		return fmt.Errorf("hook %q not found", id)
	}
	delete(r.hooks, id)
	return nil
}

// List returns all registered hooks, sorted by id for deterministic
// responses.
func (r *Registry) List() []Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Hook, 0, len(r.hooks))
	for _, h := range r.hooks {
		out = append(out, h)
	}
	sortHooks(out)
	return out
}

func sortHooks(hooks []Hook) {
	for i := 1; i < len(hooks); i++ {
		for j := i; j > 0 && hooks[j-1].ID > hooks[j].ID; j-- {
			hooks[j-1], hooks[j] = hooks[j], hooks[j-1]
		}
	}
}

// Dispatch launches every registered hook for e, asynchronously and
// concurrently (spec.md §4.5: "the bot does not block awaiting
// completion, and concurrent hook instances are allowed"). Each hook's
// own launch failure is logged and does not affect the others.
func (r *Registry) Dispatch(e event.Event) {
	r.mu.RLock()
	hooks := make([]Hook, 0, len(r.hooks))
	for _, h := range r.hooks {
		hooks = append(hooks, h)
	}
	r.mu.RUnlock()

	if len(hooks) == 0 {
		return
	}

	argv := Argv(e)
	for _, h := range hooks {
		go r.run(h, e, argv)
	}
}

func (r *Registry) run(h Hook, e event.Event, argv []string) {
	if h.IsMQTT() {
		r.publishMQTT(h, e)
		return
	}

	cmd := exec.Command(h.Target, argv...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		r.logger.Warn("hook stdout pipe failed", "hook", h.ID, "error", err)
		return
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		r.logger.Warn("hook stderr pipe failed", "hook", h.ID, "error", err)
		return
	}

	if err := cmd.Start(); err != nil {
		r.logger.Warn("hook spawn failed", "hook", h.ID, "target", h.Target, "error", err)
		return
	}

	go r.drain(h.ID, "stdout", stdout)
	go r.drain(h.ID, "stderr", stderr)

	// Exit code is ignored per spec.md §4.5; Wait only to reap the
	// child and avoid leaking a zombie process.
	if err := cmd.Wait(); err != nil {
		r.logger.Debug("hook exited", "hook", h.ID, "error", err)
	}
}

func (r *Registry) drain(hookID, stream string, rc io.Reader) {
	scanner := bufio.NewScanner(rc)
	for scanner.Scan() {
		r.logger.Debug("hook output", "hook", hookID, "stream", stream, "line", scanner.Text())
	}
}

func (r *Registry) publishMQTT(h Hook, e event.Event) {
	if r.publisher == nil {
		r.logger.Debug("mqtt hook target but no publisher configured", "hook", h.ID)
		return
	}
	topic := strings.TrimPrefix(h.Target, "mqtt://")
	payload, err := json.Marshal(e)
	if err != nil {
		r.logger.Warn("mqtt hook marshal failed", "hook", h.ID, "error", err)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := r.publisher.Publish(ctx, topic, payload); err != nil {
		r.logger.Warn("mqtt hook publish failed", "hook", h.ID, "topic", topic, "error", err)
	}
}
