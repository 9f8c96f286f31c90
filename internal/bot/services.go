package bot

import (
	"fmt"
	"sort"

	"github.com/markand/irccd/internal/command"
	"github.com/markand/irccd/internal/config"
	"github.com/markand/irccd/internal/event"
	"github.com/markand/irccd/internal/ircerr"
	"github.com/markand/irccd/internal/server"
)

// serverService implements command.ServerService against the Bot's
// live server map, letting the transport command layer connect,
// disconnect and act on servers without depending on internal/server
// directly.
type serverService struct {
	b *Bot
}

var _ command.ServerService = (*serverService)(nil)

func (s *serverService) List() []string {
	ids := s.b.serverIDs()
	sort.Strings(ids)
	return ids
}

func (s *serverService) get(id string) (*server.Server, error) {
	srv, ok := s.b.getServer(id)
	if !ok {
		return nil, ircerr.Server(ircerr.ServerNotFound, fmt.Sprintf("server %s not found", id))
	}
	return srv, nil
}

func (s *serverService) Info(id string) (command.ServerInfo, error) {
	srv, err := s.get(id)
	if err != nil {
		return command.ServerInfo{}, err
	}
	cfg := srv.Config()
	channels := srv.Channels()
	names := make([]string, 0, len(channels))
	for _, ch := range channels {
		names = append(names, ch.Name)
	}
	sort.Strings(names)
	return command.ServerInfo{
		ID:       srv.ID(),
		Hostname: cfg.Hostname,
		Port:     cfg.Port,
		SSL:      cfg.SSL,
		Nickname: srv.Nickname(),
		State:    srv.State().String(),
		Channels: names,
	}, nil
}

// Connect builds a new configured server from params, applying the
// same defaults parseServer gives a config-file entry, and starts its
// connection goroutine immediately.
func (s *serverService) Connect(params command.ServerConnectParams) error {
	if _, exists := s.b.getServer(params.ID); exists {
		return ircerr.Server(ircerr.ServerAlreadyExists, fmt.Sprintf("server %s already exists", params.ID))
	}

	channels := make([]config.ChannelConfig, 0, len(params.Channels))
	for _, c := range params.Channels {
		channels = append(channels, config.ChannelConfig{Name: c})
	}

	cfg := config.ServerConfig{
		ID:               params.ID,
		Hostname:         params.Hostname,
		Port:             orDefaultInt(params.Port, 6667),
		SSL:              params.SSL,
		SSLVerify:        params.SSLVerify,
		IPv6:             params.IPv6,
		Nickname:         orDefault(params.Nickname, "irccd"),
		Username:         orDefault(params.Username, "irccd"),
		Realname:         orDefault(params.Realname, "irccd"),
		CtcpVersion:      "irccd",
		CommandChar:      "!",
		Channels:         channels,
		ReconnectTries:   -1,
		ReconnectDelay:   30,
		PingTimeout:      300,
		AutoJoinOnInvite: false,
	}

	s.b.addServer(params.ID, cfg)
	srv, _ := s.b.getServer(params.ID)
	go srv.Run()
	return nil
}

func (s *serverService) Disconnect(id string) error {
	srv, err := s.get(id)
	if err != nil {
		return err
	}
	srv.Stop()
	return nil
}

func (s *serverService) Reconnect(id string) error {
	srv, err := s.get(id)
	if err != nil {
		return err
	}
	srv.Stop()
	go srv.Run()
	return nil
}

func (s *serverService) Join(id, channel, password string) error {
	srv, err := s.get(id)
	if err != nil {
		return err
	}
	srv.Join(channel, password)
	return nil
}

func (s *serverService) Part(id, channel, reason string) error {
	srv, err := s.get(id)
	if err != nil {
		return err
	}
	srv.Part(channel, reason)
	return nil
}

func (s *serverService) Message(id, target, text string) error {
	srv, err := s.get(id)
	if err != nil {
		return err
	}
	srv.Message(target, text)
	return nil
}

func (s *serverService) Notice(id, target, text string) error {
	srv, err := s.get(id)
	if err != nil {
		return err
	}
	srv.Notice(target, text)
	return nil
}

func (s *serverService) Me(id, target, text string) error {
	srv, err := s.get(id)
	if err != nil {
		return err
	}
	srv.Me(target, text)
	return nil
}

func (s *serverService) Mode(id, channel, mode string, args []string) error {
	srv, err := s.get(id)
	if err != nil {
		return err
	}
	srv.Mode(channel, mode, args)
	return nil
}

func (s *serverService) Invite(id, channel, target string) error {
	srv, err := s.get(id)
	if err != nil {
		return err
	}
	srv.Invite(channel, target)
	return nil
}

func (s *serverService) Kick(id, channel, target, reason string) error {
	srv, err := s.get(id)
	if err != nil {
		return err
	}
	srv.Kick(channel, target, reason)
	return nil
}

func (s *serverService) Nick(id, nickname string) error {
	srv, err := s.get(id)
	if err != nil {
		return err
	}
	srv.Nick(nickname)
	return nil
}

func (s *serverService) Topic(id, channel, topic string) error {
	srv, err := s.get(id)
	if err != nil {
		return err
	}
	srv.Topic(channel, topic)
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

// pluginService implements command.PluginService against the Bot's
// plugin registry, additionally persisting configuration edits to the
// store when one is open (spec.md §4.3 plugin-config/-template/-path,
// made durable by SPEC_FULL.md §4.8).
type pluginService struct {
	b *Bot
}

var _ command.PluginService = (*pluginService)(nil)

func (p *pluginService) List() []string {
	return p.b.plugins.List()
}

func (p *pluginService) Load(id, nameOrPath string) error {
	return p.b.loadPlugin(id, nameOrPath)
}

func (p *pluginService) Unload(id string) error {
	return p.b.plugins.Unload(id)
}

func (p *pluginService) Reload(id string) error {
	return p.b.plugins.Reload(id)
}

func (p *pluginService) Info(id string) (author, license, summary, version string, err error) {
	pl, ok := p.b.plugins.Get(id)
	if !ok {
		return "", "", "", "", ircerr.Plugin(ircerr.PluginNotFound, fmt.Sprintf("plugin %s not found", id))
	}
	return pl.Author, pl.License, pl.Summary, pl.Version, nil
}

func (p *pluginService) Options(id string) (map[string]string, error) {
	pl, ok := p.b.plugins.Get(id)
	if !ok {
		return nil, ircerr.Plugin(ircerr.PluginNotFound, fmt.Sprintf("plugin %s not found", id))
	}
	return cloneStrMap(pl.Options), nil
}

func (p *pluginService) SetOption(id, key, value string) error {
	pl, ok := p.b.plugins.Get(id)
	if !ok {
		return ircerr.Plugin(ircerr.PluginNotFound, fmt.Sprintf("plugin %s not found", id))
	}
	pl.Options[key] = value
	if p.b.store != nil {
		if err := p.b.store.SavePluginOption(id, key, value); err != nil {
			p.b.logger.Warn("failed to persist plugin option", "plugin", id, "error", err)
		}
	}
	return nil
}

func (p *pluginService) Templates(id string) (map[string]string, error) {
	pl, ok := p.b.plugins.Get(id)
	if !ok {
		return nil, ircerr.Plugin(ircerr.PluginNotFound, fmt.Sprintf("plugin %s not found", id))
	}
	return cloneStrMap(pl.Templates), nil
}

func (p *pluginService) SetTemplate(id, key, value string) error {
	pl, ok := p.b.plugins.Get(id)
	if !ok {
		return ircerr.Plugin(ircerr.PluginNotFound, fmt.Sprintf("plugin %s not found", id))
	}
	pl.Templates[key] = value
	if p.b.store != nil {
		if err := p.b.store.SavePluginTemplate(id, key, value); err != nil {
			p.b.logger.Warn("failed to persist plugin template", "plugin", id, "error", err)
		}
	}
	return nil
}

func (p *pluginService) Paths(id string) (map[string]string, error) {
	pl, ok := p.b.plugins.Get(id)
	if !ok {
		return nil, ircerr.Plugin(ircerr.PluginNotFound, fmt.Sprintf("plugin %s not found", id))
	}
	return cloneStrMap(pl.Paths), nil
}

func (p *pluginService) SetPath(id, key, value string) error {
	pl, ok := p.b.plugins.Get(id)
	if !ok {
		return ircerr.Plugin(ircerr.PluginNotFound, fmt.Sprintf("plugin %s not found", id))
	}
	pl.Paths[key] = value
	if p.b.store != nil {
		if err := p.b.store.SavePluginPath(id, key, value); err != nil {
			p.b.logger.Warn("failed to persist plugin path", "plugin", id, "error", err)
		}
	}
	return nil
}

var _ = event.KindMessage // keep event import if unused elsewhere in package build
