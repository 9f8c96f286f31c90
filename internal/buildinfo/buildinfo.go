// Package buildinfo holds version and build metadata stamped at compile
// time via ldflags, plus the numeric major/minor/patch triple the
// transport greeting advertises to connecting clients.
package buildinfo

import (
	"fmt"
	"runtime"
	"time"
)

// These variables are set at build time via -ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	GitBranch = "unknown"
	BuildTime = "unknown"
)

// Major, Minor and Patch are the numeric version components sent in
// the transport greeting's "major"/"minor"/"patch" fields (§4.6).
// Bumped by hand at release time; Version may carry a richer string
// (e.g. "3.2.0-4-gdeadbee") derived from the same release.
const (
	Major = 3
	Minor = 2
	Patch = 0
)

// startTime records when the process started.
var startTime = time.Now()

// Info returns compile-time and platform metadata, suitable for the
// "irccd -v" / "version" CLI output.
func Info() map[string]string {
	return map[string]string{
		"version":    Version,
		"git_commit": GitCommit,
		"git_branch": GitBranch,
		"build_time": BuildTime,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
	}
}

// RuntimeInfo returns build metadata plus runtime state (uptime).
func RuntimeInfo() map[string]string {
	info := Info()
	info["uptime"] = Uptime().String()
	return info
}

// Uptime returns the duration since process start.
func Uptime() time.Duration {
	return time.Since(startTime).Truncate(time.Second)
}

// String returns a one-line summary for logging.
func String() string {
	return fmt.Sprintf("irccd %s (%s@%s) built %s", Version, GitCommit, GitBranch, BuildTime)
}
