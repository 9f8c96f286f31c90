package paths

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Resolver maps a plugin's named path entries (its "paths" config
// table — §3 Plugin data model) to absolute directory paths. It is
// nil-safe:
// calling [Resolver.Resolve] on a nil *Resolver returns the input path
// unchanged, so a plugin with no "paths" entries needs no special
// casing at call sites.
type Resolver struct {
	prefixes map[string]string // "data:" -> "/abs/path"
	sorted   []string          // prefixes sorted by descending length
}

// New creates a Resolver from a prefix-to-directory map. Keys are
// prefix names without the trailing colon (e.g., "data", not
// "data:"). Home directory tildes (~) in values are expanded at
// construction time. Returns nil if the map is empty or nil.
func New(prefixes map[string]string) *Resolver {
	if len(prefixes) == 0 {
		return nil
	}
	m := make(map[string]string, len(prefixes))
	sorted := make([]string, 0, len(prefixes))
	for name, dir := range prefixes {
		key := name
		if !strings.HasSuffix(key, ":") {
			key += ":"
		}
		m[key] = expandHome(dir)
		sorted = append(sorted, key)
	}
	// Sort by descending length so longer prefixes match first.
	// Prevents "data:" from stealing matches intended for "database:".
	sort.Slice(sorted, func(i, j int) bool {
		return len(sorted[i]) > len(sorted[j])
	})
	return &Resolver{prefixes: m, sorted: sorted}
}

// FromXDG builds the standard three-entry Resolver every plugin
// receives by default — "config:", "data:" and "cache:" rooted under
// the plugin's own subdirectory of each XDG base dir, matching the
// original implementation's plugin::path() layout.
func FromXDG(x XDG, pluginID string) *Resolver {
	return New(map[string]string{
		"config": joinPath(x.ConfigHome, "irccd", "plugin", pluginID),
		"data":   joinPath(x.DataHome, "irccd", "plugin", pluginID),
		"cache":  joinPath(x.CacheHome, "irccd", "plugin", pluginID),
	})
}

// Resolve expands a prefixed path to an absolute path. If no
// registered prefix matches, the original path is returned unchanged.
// A bare prefix (e.g., "data:" with no trailing path) returns the root
// directory for that prefix.
func (r *Resolver) Resolve(path string) (string, error) {
	if r == nil {
		return path, nil
	}
	for _, prefix := range r.sorted {
		if strings.HasPrefix(path, prefix) {
			rel := strings.TrimPrefix(path, prefix)
			base := r.prefixes[prefix]
			if rel == "" {
				return base, nil
			}
			return filepath.Join(base, rel), nil
		}
	}
	return path, nil
}

// HasPrefix reports whether the path starts with a registered prefix.
func (r *Resolver) HasPrefix(path string) bool {
	if r == nil {
		return false
	}
	for _, prefix := range r.sorted {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Prefixes returns the registered prefix names sorted alphabetically,
// without trailing colons.
func (r *Resolver) Prefixes() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.prefixes))
	for prefix := range r.prefixes {
		names = append(names, strings.TrimSuffix(prefix, ":"))
	}
	sort.Strings(names)
	return names
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") || strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		return filepath.Join(home, path[2:])
	}
	return path
}
