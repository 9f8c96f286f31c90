package store

import (
	"path/filepath"
	"testing"

	"github.com/markand/irccd/internal/hook"
	"github.com/markand/irccd/internal/rule"
)

func open(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "irccd.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRulesRoundTrip(t *testing.T) {
	s := open(t)

	rules := []rule.Rule{
		{Servers: []string{"s1"}, Action: rule.Drop},
		{Channels: []string{"#a", "#b"}, Action: rule.Accept},
	}
	if err := s.SaveRules(rules); err != nil {
		t.Fatal(err)
	}
	got, err := s.LoadRules()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Action != rule.Drop || got[1].Channels[1] != "#b" {
		t.Fatalf("unexpected rules: %+v", got)
	}
}

func TestHooksRoundTrip(t *testing.T) {
	s := open(t)

	if err := s.SaveHook(hook.Hook{ID: "h1", Target: "/bin/true"}); err != nil {
		t.Fatal(err)
	}
	got, err := s.LoadHooks()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "h1" {
		t.Fatalf("unexpected hooks: %+v", got)
	}

	if err := s.DeleteHook("h1"); err != nil {
		t.Fatal(err)
	}
	got, err = s.LoadHooks()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no hooks after delete, got %+v", got)
	}
}

func TestPluginConfigRoundTrip(t *testing.T) {
	s := open(t)

	if err := s.SavePluginOption("logger", "path", "/tmp/log"); err != nil {
		t.Fatal(err)
	}
	if err := s.SavePluginTemplate("logger", "join", "#{origin} joined"); err != nil {
		t.Fatal(err)
	}

	options, templates, paths, err := s.LoadPluginConfig("logger")
	if err != nil {
		t.Fatal(err)
	}
	if options["path"] != "/tmp/log" {
		t.Fatalf("unexpected options: %+v", options)
	}
	if templates["join"] != "#{origin} joined" {
		t.Fatalf("unexpected templates: %+v", templates)
	}
	if len(paths) != 0 {
		t.Fatalf("unexpected paths: %+v", paths)
	}
}
