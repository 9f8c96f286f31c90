package jsplugin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/markand/irccd/internal/config"
)

type fakeFacade struct {
	sent []string
}

func (f *fakeFacade) Servers() []string { return []string{"local"} }
func (f *fakeFacade) Message(id, channel, text string) error {
	f.sent = append(f.sent, channel+":"+text)
	return nil
}
func (f *fakeFacade) Notice(id, channel, text string) error               { return nil }
func (f *fakeFacade) Me(id, channel, text string) error                  { return nil }
func (f *fakeFacade) Join(id, channel, password string) error            { return nil }
func (f *fakeFacade) Part(id, channel, reason string) error              { return nil }
func (f *fakeFacade) Kick(id, channel, target, reason string) error      { return nil }
func (f *fakeFacade) Invite(id, channel, target string) error            { return nil }
func (f *fakeFacade) Mode(id, channel, mode string, args []string) error { return nil }
func (f *fakeFacade) Topic(id, channel, topic string) error              { return nil }
func (f *fakeFacade) Nick(id, nickname string) error                     { return nil }
func (f *fakeFacade) Log(pluginID, level, message string)                {}
func (f *fakeFacade) CreateTimer(periodic bool, delayMs int64, callback func()) string {
	return "t1"
}
func (f *fakeFacade) StopTimer(id string) {}

func writeScript(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.js")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAndInvokeOnMessage(t *testing.T) {
	path := writeScript(t, `
		var author = "test";
		var version = "1.0";
		function onMessage(origin, channel, message) {
			Irccd.Server.message("local", channel, "echo:" + message);
		}
	`)

	facade := &fakeFacade{}
	ldr := New()
	p, err := ldr.Load("sample", path, config.PluginConfig{}, facade)
	if err != nil {
		t.Fatal(err)
	}
	if p.Author != "test" || p.Version != "1.0" {
		t.Fatalf("unexpected metadata: %+v", p)
	}
	if p.Handlers.OnMessage == nil {
		t.Fatal("expected OnMessage handler to be bound")
	}
	p.Handlers.OnMessage("nick!u@h", "#chan", "hello")
	if len(facade.sent) != 1 || facade.sent[0] != "#chan:echo:hello" {
		t.Fatalf("unexpected sends: %+v", facade.sent)
	}
}

func TestAcceptsJSSuffix(t *testing.T) {
	path := writeScript(t, `function onLoad() {}`)
	ldr := New()
	dir := filepath.Dir(path)
	resolved, ok := ldr.Accepts(filepath.Base(path[:len(path)-3]), []string{dir})
	if !ok || resolved != path {
		t.Fatalf("expected Accepts to resolve %s, got %s ok=%v", path, resolved, ok)
	}
}
