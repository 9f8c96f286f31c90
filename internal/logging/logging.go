// Package logging builds the bot-wide structured logger. irccd defines
// exactly three message levels (debug, info, warning — §7) plus two
// run modes that gate them: silent (suppresses info, keeps warning)
// and verbose (adds debug). There is no process-wide singleton: main()
// constructs one *slog.Logger and every service receives it through
// its constructor (§9 "Global mutable services").
package logging

import (
	"io"
	"log/slog"
)

// Mode selects which levels a Logger emits.
type Mode int

const (
	// ModeNormal emits info and warning, dropping debug.
	ModeNormal Mode = iota
	// ModeSilent emits warning only.
	ModeSilent
	// ModeVerbose emits debug, info and warning.
	ModeVerbose
)

// levelFor maps a Mode to the slog.Level threshold that implements it.
func levelFor(m Mode) slog.Level {
	switch m {
	case ModeSilent:
		return slog.LevelWarn
	case ModeVerbose:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// New builds a text-handler logger writing to w at the level implied
// by mode. component, when non-empty, is attached to every record so
// multiplexed subsystem logs (server, plugin, transport, hook) stay
// attributable.
func New(w io.Writer, mode Mode, component string) *slog.Logger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       levelFor(mode),
		ReplaceAttr: replaceLevelNames,
	})
	logger := slog.New(h)
	if component != "" {
		logger = logger.With("component", component)
	}
	return logger
}

// replaceLevelNames renders irccd's three levels with lowercase names
// matching the vocabulary used throughout spec.md §7 ("debug", "info",
// "warning") instead of slog's default "INFO"/"WARN" spelling.
func replaceLevelNames(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	level, ok := a.Value.Any().(slog.Level)
	if !ok {
		return a
	}
	switch {
	case level < slog.LevelInfo:
		a.Value = slog.StringValue("debug")
	case level < slog.LevelWarn:
		a.Value = slog.StringValue("info")
	default:
		a.Value = slog.StringValue("warning")
	}
	return a
}

// ParseMode converts a CLI/config verbosity pair into a Mode. When both
// silent and verbose are set, verbose takes priority.
func ParseMode(silent, verbose bool) Mode {
	switch {
	case verbose:
		return ModeVerbose
	case silent:
		return ModeSilent
	default:
		return ModeNormal
	}
}
