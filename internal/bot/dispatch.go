package bot

import (
	"github.com/markand/irccd/internal/event"
	"github.com/markand/irccd/internal/events"
	"github.com/markand/irccd/internal/rule"
)

// dispatchEvent is the sole entry point for an IRC occurrence once it
// reaches the reactor goroutine (always via loop.Post from a server's
// own goroutine): publish it to the bus and every watching transport
// client, then rule-gate it once per loaded plugin (a command event only
// for the plugin it addresses) and once for the hook registry as a
// whole, exactly as spec.md §4.4 describes ("rule
// evaluation runs before every plugin invocation").
func (b *Bot) dispatchEvent(e event.Event) {
	b.bus.PublishIRC(e)
	for _, ts := range b.transports {
		ts.Broadcast(e)
	}

	channel, origin := eventLocus(e)
	bare := e.Kind.Bare()

	if e.Kind == event.KindCommand {
		pluginID := e.Command.Plugin
		tuple := rule.Tuple{Server: e.Server, Channel: channel, Origin: origin, Plugin: pluginID, Event: bare}
		if b.rules.Evaluate(tuple) == rule.Accept {
			b.invokePlugin(pluginID, e)
		}
	} else {
		for _, id := range b.plugins.List() {
			tuple := rule.Tuple{Server: e.Server, Channel: channel, Origin: origin, Plugin: id, Event: bare}
			if b.rules.Evaluate(tuple) == rule.Accept {
				b.invokePlugin(id, e)
			}
		}
	}

	hookTuple := rule.Tuple{Server: e.Server, Channel: channel, Origin: origin, Event: bare}
	if b.rules.Evaluate(hookTuple) == rule.Accept {
		b.hooks.Dispatch(e)
	}
}

func (b *Bot) invokePlugin(id string, e event.Event) {
	p, ok := b.plugins.Get(id)
	if !ok {
		return
	}
	if rec := p.Invoke(e); rec != nil {
		b.logger.Warn("plugin handler panicked", "plugin", id, "event", e.Kind, "recovered", rec)
		b.bus.Publish(events.Envelope{
			Source: events.SourcePlugin,
			Kind:   events.KindPluginError,
			Data:   map[string]any{"plugin": id, "event": string(e.Kind), "recovered": rec},
		})
	}
}

// eventLocus extracts the (channel, origin) pair a rule tuple needs
// from whichever payload field e.Kind populates; kinds with no notion
// of one or the other (onConnect, onDisconnect, onNick, onNames,
// onWhois) leave it empty, which an empty rule match-set already
// treats as "matches any value".
func eventLocus(e event.Event) (channel, origin string) {
	switch e.Kind {
	case event.KindInvite:
		return e.Invite.Channel, e.Invite.Origin
	case event.KindJoin:
		return e.Join.Channel, e.Join.Origin
	case event.KindKick:
		return e.Kick.Channel, e.Kick.Origin
	case event.KindMe:
		return e.Me.Channel, e.Me.Origin
	case event.KindMessage:
		return e.Message.Channel, e.Message.Origin
	case event.KindMode:
		return e.Mode.Channel, e.Mode.Origin
	case event.KindNames:
		return e.Names.Channel, ""
	case event.KindNick:
		return "", e.Nick.Origin
	case event.KindNotice:
		return e.Notice.Channel, e.Notice.Origin
	case event.KindPart:
		return e.Part.Channel, e.Part.Origin
	case event.KindTopic:
		return e.Topic.Channel, e.Topic.Origin
	case event.KindCommand:
		return e.Command.Channel, e.Command.Origin
	default:
		return "", ""
	}
}
