package hook

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/markand/irccd/internal/event"
)

func TestRegistryAddRemoveList(t *testing.T) {
	r := New(slog.New(slog.NewTextHandler(os.Stderr, nil)), nil)

	if err := r.Add("logger", "/usr/bin/logger.sh"); err != nil {
		t.Fatal(err)
	}
	if err := r.Add("logger", "/other"); err == nil {
		t.Fatal("expected already-exists error")
	}
	if err := r.Remove("nope"); err == nil {
		t.Fatal("expected not-found error")
	}

	list := r.List()
	if len(list) != 1 || list[0].ID != "logger" {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestArgvMessage(t *testing.T) {
	e := event.Message("s1", "jean", "#test", "hello")
	argv := Argv(e)
	want := []string{"onMessage", "s1", "jean", "#test", "hello"}
	if len(argv) != len(want) {
		t.Fatalf("got %v, want %v", argv, want)
	}
	for i := range want {
		if argv[i] != want[i] {
			t.Fatalf("argv[%d] = %q, want %q", i, argv[i], want[i])
		}
	}
}

func TestDispatchSpawnsExecutable(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "hook.sh")
	marker := filepath.Join(dir, "ran")
	if err := os.WriteFile(script, []byte("#!/bin/sh\ntouch \""+marker+"\"\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var buf []byte
	logger := slog.New(slog.NewTextHandler(discard(&mu, &buf), nil))

	r := New(logger, nil)
	if err := r.Add("h1", script); err != nil {
		t.Fatal(err)
	}

	r.Dispatch(event.Join("s1", "jean", "#test"))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(marker); err == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("hook did not run within timeout")
}

type discardWriter struct {
	mu  *sync.Mutex
	buf *[]byte
}

func (w discardWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	*w.buf = append(*w.buf, p...)
	return len(p), nil
}

func discard(mu *sync.Mutex, buf *[]byte) discardWriter {
	return discardWriter{mu: mu, buf: buf}
}
