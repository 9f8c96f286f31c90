package paths

import (
	"path/filepath"
	"testing"
)

func TestResolve(t *testing.T) {
	r := New(map[string]string{
		"data":  "/data/plugin/history",
		"cache": "/data/cache/history",
	})

	tests := []struct {
		name string
		path string
		want string
	}{
		{"data prefix", "data:seen.json", filepath.Join("/data/plugin/history", "seen.json")},
		{"data nested", "data:archive/2026.json", filepath.Join("/data/plugin/history", "archive", "2026.json")},
		{"cache prefix", "cache:last-quote", filepath.Join("/data/cache/history", "last-quote")},
		{"bare data prefix", "data:", "/data/plugin/history"},
		{"bare cache prefix", "cache:", "/data/cache/history"},
		{"absolute path unchanged", "/absolute/path", "/absolute/path"},
		{"relative path unchanged", "relative/path", "relative/path"},
		{"empty string unchanged", "", ""},
		{"tilde unchanged", "~/notes.md", "~/notes.md"},
		{"no match", "unknown:foo", "unknown:foo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(tt.path)
			if err != nil {
				t.Fatalf("Resolve(%q) error: %v", tt.path, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestResolve_NilReceiver(t *testing.T) {
	var r *Resolver
	got, err := r.Resolve("data:seen.json")
	if err != nil {
		t.Fatalf("nil Resolve error: %v", err)
	}
	if got != "data:seen.json" {
		t.Errorf("nil Resolve(%q) = %q, want unchanged", "data:seen.json", got)
	}
}

func TestResolve_LongerPrefixFirst(t *testing.T) {
	r := New(map[string]string{
		"data":     "/short",
		"database": "/long",
	})

	got, err := r.Resolve("database:doc.md")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join("/long", "doc.md") {
		t.Errorf("expected longer prefix to match, got %q", got)
	}

	got, err = r.Resolve("data:doc.md")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join("/short", "doc.md") {
		t.Errorf("expected shorter prefix to match, got %q", got)
	}
}

func TestNew_EmptyMap(t *testing.T) {
	if r := New(nil); r != nil {
		t.Error("New(nil) should return nil")
	}
	if r := New(map[string]string{}); r != nil {
		t.Error("New(empty) should return nil")
	}
}

func TestHasPrefix(t *testing.T) {
	r := New(map[string]string{"data": "/plugin/data"})

	tests := []struct {
		path string
		want bool
	}{
		{"data:seen.json", true},
		{"data:", true},
		{"/absolute", false},
		{"relative", false},
		{"", false},
		{"unknown:bar", false},
	}

	for _, tt := range tests {
		if got := r.HasPrefix(tt.path); got != tt.want {
			t.Errorf("HasPrefix(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestHasPrefix_NilReceiver(t *testing.T) {
	var r *Resolver
	if r.HasPrefix("data:seen.json") {
		t.Error("nil HasPrefix should return false")
	}
}

func TestPrefixes(t *testing.T) {
	r := New(map[string]string{
		"cache":  "/cache",
		"data":   "/data",
		"config": "/config",
	})

	got := r.Prefixes()
	want := []string{"cache", "config", "data"}
	if len(got) != len(want) {
		t.Fatalf("Prefixes() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Prefixes()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPrefixes_NilReceiver(t *testing.T) {
	var r *Resolver
	if got := r.Prefixes(); got != nil {
		t.Errorf("nil Prefixes() = %v, want nil", got)
	}
}

func TestExpandHome(t *testing.T) {
	// Verify that ~ paths in base directories are expanded at
	// construction time by checking that the resolved path does not
	// contain a tilde.
	r := New(map[string]string{"data": "~/irccd/data"})
	if r == nil {
		t.Fatal("expected non-nil resolver")
	}

	got, err := r.Resolve("data:seen.json")
	if err != nil {
		t.Fatal(err)
	}
	if got == "~/irccd/data/seen.json" {
		t.Error("expected tilde expansion in base directory, but got literal ~")
	}
	// The path should be absolute (home dir is always absolute).
	if !filepath.IsAbs(got) {
		t.Errorf("expected absolute path after tilde expansion, got %q", got)
	}
}

func TestFromXDG(t *testing.T) {
	x := XDG{
		ConfigHome: "/home/u/.config",
		DataHome:   "/home/u/.local/share",
		CacheHome:  "/home/u/.cache",
	}
	r := FromXDG(x, "ask")

	got, err := r.Resolve("config:")
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join("/home/u/.config", "irccd", "plugin", "ask")
	if got != want {
		t.Errorf("config: resolved to %q, want %q", got, want)
	}
}
