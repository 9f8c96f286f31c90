package command

import (
	"testing"

	"github.com/markand/irccd/internal/hook"
	"github.com/markand/irccd/internal/ircerr"
	"github.com/markand/irccd/internal/rule"
)

type fakePlugins struct {
	loaded       []string
	options      map[string]string
	setOptionLog []string
}

func (f *fakePlugins) List() []string { return f.loaded }
func (f *fakePlugins) Load(id, nameOrPath string) error {
	f.loaded = append(f.loaded, id)
	return nil
}
func (f *fakePlugins) Unload(id string) error { return nil }
func (f *fakePlugins) Reload(id string) error { return nil }
func (f *fakePlugins) Info(id string) (string, string, string, string, error) {
	return "me", "ISC", "a plugin", "1.0", nil
}
func (f *fakePlugins) Options(id string) (map[string]string, error) {
	if f.options == nil {
		return map[string]string{}, nil
	}
	return f.options, nil
}
func (f *fakePlugins) SetOption(id, key, value string) error {
	f.setOptionLog = append(f.setOptionLog, key+"="+value)
	if f.options == nil {
		f.options = map[string]string{}
	}
	f.options[key] = value
	return nil
}
func (f *fakePlugins) Templates(id string) (map[string]string, error) {
	return map[string]string{}, nil
}
func (f *fakePlugins) SetTemplate(id, key, value string) error { return nil }
func (f *fakePlugins) Paths(id string) (map[string]string, error) {
	return map[string]string{}, nil
}
func (f *fakePlugins) SetPath(id, key, value string) error { return nil }

type fakeServers struct{}

func (f *fakeServers) List() []string                     { return []string{"local"} }
func (f *fakeServers) Info(id string) (ServerInfo, error)  { return ServerInfo{ID: id}, nil }
func (f *fakeServers) Connect(p ServerConnectParams) error { return nil }
func (f *fakeServers) Disconnect(id string) error          { return nil }
func (f *fakeServers) Reconnect(id string) error           { return nil }
func (f *fakeServers) Join(id, channel, password string) error { return nil }
func (f *fakeServers) Part(id, channel, reason string) error   { return nil }
func (f *fakeServers) Message(id, target, text string) error   { return nil }
func (f *fakeServers) Notice(id, target, text string) error    { return nil }
func (f *fakeServers) Me(id, target, text string) error        { return nil }
func (f *fakeServers) Mode(id, channel, mode string, args []string) error { return nil }
func (f *fakeServers) Invite(id, channel, target string) error            { return nil }
func (f *fakeServers) Kick(id, channel, target, reason string) error      { return nil }
func (f *fakeServers) Nick(id, nickname string) error                    { return nil }
func (f *fakeServers) Topic(id, channel, topic string) error             { return nil }

type fakeRules struct{ list *rule.List }

func (f *fakeRules) List() []rule.Rule                { return f.list.Snapshot() }
func (f *fakeRules) Add(r rule.Rule, index int) int   { return f.list.Add(r, index) }
func (f *fakeRules) Edit(index int, patch rule.Patch) error { return f.list.Edit(index, patch) }
func (f *fakeRules) Move(from, to int) error          { return f.list.Move(from, to) }
func (f *fakeRules) Remove(index int) error            { return f.list.Remove(index) }

type fakeHooks struct{ reg *hook.Registry }

func (f *fakeHooks) List() []hook.Hook       { return f.reg.List() }
func (f *fakeHooks) Add(id, target string) error { return f.reg.Add(id, target) }
func (f *fakeHooks) Remove(id string) error      { return f.reg.Remove(id) }

type fakeSession struct {
	requiresAuth  bool
	authenticated bool
	watching      bool
	password      string
}

func (s *fakeSession) RequiresAuth() bool         { return s.requiresAuth }
func (s *fakeSession) Authenticated() bool        { return s.authenticated }
func (s *fakeSession) CheckPassword(p string) bool { return p == s.password }
func (s *fakeSession) Authenticate()               { s.authenticated = true }
func (s *fakeSession) Watch()                      { s.watching = true }

func newTestServices() *Services {
	return &Services{
		Plugin: &fakePlugins{},
		Server: &fakeServers{},
		Rule:   &fakeRules{list: rule.NewList()},
		Hook:   &fakeHooks{reg: hook.New(nil, nil)},
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	r := NewRegistry()
	_, err := r.Dispatch("nope", newTestServices(), nil, Request{})
	if e, ok := ircerr.As(err); !ok || e.Code != ircerr.InvalidCommand {
		t.Fatalf("expected invalid_command, got %v", err)
	}
}

func TestDispatchRequiresAuth(t *testing.T) {
	r := NewRegistry()
	sess := &fakeSession{requiresAuth: true, password: "secret"}

	_, err := r.Dispatch("plugin-list", newTestServices(), sess, Request{})
	if e, ok := ircerr.As(err); !ok || e.Code != ircerr.AuthRequired {
		t.Fatalf("expected auth_required, got %v", err)
	}

	_, err = r.Dispatch("auth", newTestServices(), sess, Request{"password": "wrong"})
	if e, ok := ircerr.As(err); !ok || e.Code != ircerr.InvalidAuth {
		t.Fatalf("expected invalid_auth, got %v", err)
	}

	if _, err := r.Dispatch("auth", newTestServices(), sess, Request{"password": "secret"}); err != nil {
		t.Fatal(err)
	}
	if !sess.authenticated {
		t.Fatal("expected session to be authenticated")
	}
	if _, err := r.Dispatch("plugin-list", newTestServices(), sess, Request{}); err != nil {
		t.Fatal(err)
	}
}

func TestPluginLoadAndList(t *testing.T) {
	r := NewRegistry()
	svc := newTestServices()

	if _, err := r.Dispatch("plugin-load", svc, nil, Request{"plugin": "greet"}); err != nil {
		t.Fatal(err)
	}
	resp, err := r.Dispatch("plugin-list", svc, nil, Request{})
	if err != nil {
		t.Fatal(err)
	}
	list := resp["list"].([]string)
	if len(list) != 1 || list[0] != "greet" {
		t.Fatalf("unexpected list: %v", list)
	}
}

func TestPluginConfigReadDoesNotOverwrite(t *testing.T) {
	r := NewRegistry()
	svc := newTestServices()
	fp := svc.Plugin.(*fakePlugins)
	fp.options = map[string]string{"x": "hello"}

	resp, err := r.Dispatch("plugin-config", svc, nil, Request{"plugin": "p", "variable": "x"})
	if err != nil {
		t.Fatal(err)
	}
	vars, ok := resp["variables"].(map[string]string)
	if !ok || vars["x"] != "hello" {
		t.Fatalf("expected read to return x=hello, got %+v", resp["variables"])
	}
	if len(fp.setOptionLog) != 0 {
		t.Fatalf("read-only request must not call SetOption, got %v", fp.setOptionLog)
	}
	if fp.options["x"] != "hello" {
		t.Fatalf("variable was overwritten: %q", fp.options["x"])
	}
}

func TestPluginConfigWriteRequiresValue(t *testing.T) {
	r := NewRegistry()
	svc := newTestServices()
	fp := svc.Plugin.(*fakePlugins)

	if _, err := r.Dispatch("plugin-config", svc, nil, Request{
		"plugin": "p", "variable": "x", "value": "",
	}); err != nil {
		t.Fatal(err)
	}
	if len(fp.setOptionLog) != 1 || fp.setOptionLog[0] != "x=" {
		t.Fatalf("expected a single write x=\"\", got %v", fp.setOptionLog)
	}
}

func TestRuleAddListRemove(t *testing.T) {
	r := NewRegistry()
	svc := newTestServices()

	if _, err := r.Dispatch("rule-add", svc, nil, Request{
		"channels": []any{"#a"},
		"action":   "drop",
	}); err != nil {
		t.Fatal(err)
	}
	resp, err := r.Dispatch("rule-list", svc, nil, Request{})
	if err != nil {
		t.Fatal(err)
	}
	list := resp["list"].([]map[string]any)
	if len(list) != 1 || list[0]["action"] != "drop" {
		t.Fatalf("unexpected rule list: %+v", list)
	}

	if _, err := r.Dispatch("rule-remove", svc, nil, Request{"index": float64(0)}); err != nil {
		t.Fatal(err)
	}
	resp, err = r.Dispatch("rule-list", svc, nil, Request{})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp["list"].([]map[string]any)) != 0 {
		t.Fatal("expected empty rule list after remove")
	}
}

func TestHookAddRemove(t *testing.T) {
	r := NewRegistry()
	svc := newTestServices()

	if _, err := r.Dispatch("hook-add", svc, nil, Request{"hook": "h1", "target": "/bin/true"}); err != nil {
		t.Fatal(err)
	}
	resp, err := r.Dispatch("hook-list", svc, nil, Request{})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp["list"].([]map[string]any)) != 1 {
		t.Fatalf("unexpected hook list: %+v", resp)
	}

	if _, err := r.Dispatch("hook-remove", svc, nil, Request{"hook": "h1"}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Dispatch("hook-remove", svc, nil, Request{"hook": "h1"}); err == nil {
		t.Fatal("expected error removing an already-removed hook")
	}
}

func TestServerMessageMissingField(t *testing.T) {
	r := NewRegistry()
	svc := newTestServices()
	_, err := r.Dispatch("server-message", svc, nil, Request{"server": "local"})
	if e, ok := ircerr.As(err); !ok || e.Code != ircerr.InvalidMessage {
		t.Fatalf("expected invalid_message, got %v", err)
	}
}
