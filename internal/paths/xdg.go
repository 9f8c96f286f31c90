// Package paths resolves the filesystem locations irccd searches for
// its configuration file, plugin scripts, and plugin data/cache/config
// directories, following the XDG Base Directory specification exactly
// as the original implementation's xdg.hpp does — plus a named-prefix
// resolver used to satisfy a plugin's "paths" configuration map
// (§3 Plugin data model).
package paths

import (
	"os"
	"strings"
)

// XDG holds the resolved set of XDG base directories for the current
// user, computed once at startup.
type XDG struct {
	ConfigHome string
	DataHome   string
	CacheHome  string
	RuntimeDir string
	ConfigDirs []string
	DataDirs   []string
}

// LoadXDG reads the XDG_* environment variables, falling back to the
// spec-mandated defaults relative to $HOME exactly as upstream irccd's
// xdg.hpp does: XDG_CONFIG_HOME → ~/.config, XDG_DATA_HOME →
// ~/.local/share, XDG_CACHE_HOME → ~/.cache, XDG_CONFIG_DIRS →
// /etc/xdg, XDG_DATA_DIRS → /usr/local/share:/usr/share.
func LoadXDG() (XDG, error) {
	var x XDG
	var err error

	if x.ConfigHome, err = envOrHome("XDG_CONFIG_HOME", ".config"); err != nil {
		return XDG{}, err
	}
	if x.DataHome, err = envOrHome("XDG_DATA_HOME", ".local/share"); err != nil {
		return XDG{}, err
	}
	if x.CacheHome, err = envOrHome("XDG_CACHE_HOME", ".cache"); err != nil {
		return XDG{}, err
	}

	if runtime := os.Getenv("XDG_RUNTIME_DIR"); isAbsolute(runtime) {
		x.RuntimeDir = runtime
	}

	x.ConfigDirs = listOrDefault("XDG_CONFIG_DIRS", []string{"/etc/xdg"})
	x.DataDirs = listOrDefault("XDG_DATA_DIRS", []string{"/usr/local/share", "/usr/share"})

	return x, nil
}

// ConfigSearchPath returns the ordered list of directories irccd
// searches for its config file (irccd.conf): the user config home
// first, then each system config dir, each with "irccd" appended.
func (x XDG) ConfigSearchPath() []string {
	dirs := make([]string, 0, 1+len(x.ConfigDirs))
	dirs = append(dirs, joinPath(x.ConfigHome, "irccd"))
	for _, d := range x.ConfigDirs {
		dirs = append(dirs, joinPath(d, "irccd"))
	}
	return dirs
}

// PluginSearchPath returns the ordered list of directories the plugin
// loaders search for "<id>.js"/"<id>.so", mirroring ConfigSearchPath's
// precedence but rooted under the data directories.
func (x XDG) PluginSearchPath() []string {
	dirs := make([]string, 0, 1+len(x.DataDirs))
	dirs = append(dirs, joinPath(x.DataHome, "irccd", "plugins"))
	for _, d := range x.DataDirs {
		dirs = append(dirs, joinPath(d, "irccd", "plugins"))
	}
	return dirs
}

func envOrHome(name, fallbackRel string) (string, error) {
	if v := os.Getenv(name); isAbsolute(v) {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return joinPath(home, fallbackRel), nil
}

func listOrDefault(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(raw, ":") {
		if isAbsolute(item) {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func isAbsolute(p string) bool {
	return len(p) > 0 && p[0] == '/'
}

func joinPath(base string, parts ...string) string {
	elems := append([]string{base}, parts...)
	out := elems[0]
	for _, e := range elems[1:] {
		out += "/" + e
	}
	return out
}
