package plugin

import (
	"log/slog"
	"io"
	"testing"

	"github.com/markand/irccd/internal/config"
	"github.com/markand/irccd/internal/event"
)

type stubLoader struct {
	name    string
	path    string
	plugin  *Plugin
	loadErr error
}

func (s *stubLoader) Name() string { return s.name }
func (s *stubLoader) Accepts(nameOrPath string, paths []string) (string, bool) {
	if nameOrPath == s.path {
		return s.path, true
	}
	return "", false
}
func (s *stubLoader) Load(id, path string, cfg config.PluginConfig, facade Facade) (*Plugin, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	s.plugin.ID = id
	return s.plugin, nil
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegistryLoadUnload(t *testing.T) {
	var loaded, unloaded bool
	ldr := &stubLoader{
		name: "stub",
		path: "a",
		plugin: &Plugin{
			Handlers: Handlers{
				OnLoad:   func() error { loaded = true; return nil },
				OnUnload: func() { unloaded = true },
			},
		},
	}
	r := NewRegistry(silentLogger(), ldr)

	p, err := r.Load("greet", "a", nil, config.PluginConfig{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !loaded {
		t.Fatal("expected on_load to run")
	}
	if _, ok := r.Get("greet"); !ok {
		t.Fatal("expected plugin to be registered")
	}
	if p.ID != "greet" {
		t.Fatalf("unexpected id: %s", p.ID)
	}

	if err := r.Unload("greet"); err != nil {
		t.Fatal(err)
	}
	if !unloaded {
		t.Fatal("expected on_unload to run")
	}
	if _, ok := r.Get("greet"); ok {
		t.Fatal("expected plugin to be forgotten after unload")
	}
}

func TestRegistryLoadDuplicate(t *testing.T) {
	ldr := &stubLoader{name: "stub", path: "a", plugin: &Plugin{}}
	r := NewRegistry(silentLogger(), ldr)

	if _, err := r.Load("greet", "a", nil, config.PluginConfig{}, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Load("greet", "a", nil, config.PluginConfig{}, nil); err == nil {
		t.Fatal("expected duplicate load to fail")
	}
}

func TestRegistryLoadNoLoaderAccepts(t *testing.T) {
	ldr := &stubLoader{name: "stub", path: "a", plugin: &Plugin{}}
	r := NewRegistry(silentLogger(), ldr)

	if _, err := r.Load("greet", "nope", nil, config.PluginConfig{}, nil); err == nil {
		t.Fatal("expected load to fail when no loader accepts the path")
	}
}

func TestRegistryDispatchRecoversPanic(t *testing.T) {
	ldr := &stubLoader{
		name: "stub",
		path: "a",
		plugin: &Plugin{
			Handlers: Handlers{
				OnMessage: func(origin, channel, message string) { panic("boom") },
			},
		},
	}
	r := NewRegistry(silentLogger(), ldr)
	if _, err := r.Load("greet", "a", nil, config.PluginConfig{}, nil); err != nil {
		t.Fatal(err)
	}

	// Must not panic out of Dispatch.
	r.Dispatch(event.Message("local", "nick", "#chan", "hi"))
}

func TestInvalidID(t *testing.T) {
	ldr := &stubLoader{name: "stub", path: "a", plugin: &Plugin{}}
	r := NewRegistry(silentLogger(), ldr)
	if _, err := r.Load("bad id!", "a", nil, config.PluginConfig{}, nil); err == nil {
		t.Fatal("expected invalid identifier error")
	}
}
