package bot

import (
	"fmt"
	"time"

	"github.com/markand/irccd/internal/ircerr"
	"github.com/markand/irccd/internal/plugin"
	"github.com/markand/irccd/internal/server"
	"github.com/markand/irccd/internal/timer"
)

// facade implements plugin.Facade by resolving servers through the
// Bot's live server map on every call, never capturing a *server.Server
// across a suspension point (spec.md §9).
type facade struct {
	b *Bot
}

var _ plugin.Facade = (*facade)(nil)

func (f *facade) resolve(id string) (*server.Server, error) {
	srv, ok := f.b.getServer(id)
	if !ok {
		return nil, ircerr.Server(ircerr.ServerNotFound, fmt.Sprintf("server %s not found", id))
	}
	return srv, nil
}

func (f *facade) Servers() []string {
	return f.b.serverIDs()
}

func (f *facade) Message(serverID, channel, text string) error {
	srv, err := f.resolve(serverID)
	if err != nil {
		return err
	}
	srv.Message(channel, text)
	return nil
}

func (f *facade) Notice(serverID, channel, text string) error {
	srv, err := f.resolve(serverID)
	if err != nil {
		return err
	}
	srv.Notice(channel, text)
	return nil
}

func (f *facade) Me(serverID, channel, text string) error {
	srv, err := f.resolve(serverID)
	if err != nil {
		return err
	}
	srv.Me(channel, text)
	return nil
}

func (f *facade) Join(serverID, channel, password string) error {
	srv, err := f.resolve(serverID)
	if err != nil {
		return err
	}
	srv.Join(channel, password)
	return nil
}

func (f *facade) Part(serverID, channel, reason string) error {
	srv, err := f.resolve(serverID)
	if err != nil {
		return err
	}
	srv.Part(channel, reason)
	return nil
}

func (f *facade) Kick(serverID, channel, target, reason string) error {
	srv, err := f.resolve(serverID)
	if err != nil {
		return err
	}
	srv.Kick(channel, target, reason)
	return nil
}

func (f *facade) Invite(serverID, channel, target string) error {
	srv, err := f.resolve(serverID)
	if err != nil {
		return err
	}
	srv.Invite(channel, target)
	return nil
}

func (f *facade) Mode(serverID, channel, mode string, args []string) error {
	srv, err := f.resolve(serverID)
	if err != nil {
		return err
	}
	srv.Mode(channel, mode, args)
	return nil
}

func (f *facade) Topic(serverID, channel, topic string) error {
	srv, err := f.resolve(serverID)
	if err != nil {
		return err
	}
	srv.Topic(channel, topic)
	return nil
}

func (f *facade) Nick(serverID, nickname string) error {
	srv, err := f.resolve(serverID)
	if err != nil {
		return err
	}
	srv.Nick(nickname)
	return nil
}

func (f *facade) Log(pluginID, level, message string) {
	logger := f.b.logger.With("plugin", pluginID)
	switch level {
	case "debug":
		logger.Debug(message)
	case "warning":
		logger.Warn(message)
	default:
		logger.Info(message)
	}
}

func (f *facade) CreateTimer(periodic bool, delayMs int64, callback func()) string {
	kind := timer.Single
	if periodic {
		kind = timer.Periodic
	}
	return f.b.timers.Create(kind, time.Duration(delayMs)*time.Millisecond, callback)
}

func (f *facade) StopTimer(id string) {
	f.b.timers.Stop(id)
}
