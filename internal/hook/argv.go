package hook

import "github.com/markand/irccd/internal/event"

// Argv builds the fixed-position argument list spec.md §6 specifies
// for hook process invocation: `hook <event-name> <server-id>
// [<origin> [<channel> [<param> …]]]`, with event-specific trailing
// arguments (e.g. `onMessage <server> <origin> <channel> <message>`).
// The leading "hook" token is the program name, supplied by exec
// itself — Argv returns only the arguments after it.
func Argv(e event.Event) []string {
	base := []string{string(e.Kind), e.Server}

	switch e.Kind {
	case event.KindConnect, event.KindDisconnect:
		return base
	case event.KindInvite:
		p := e.Invite
		return append(base, p.Origin, p.Channel, p.Target)
	case event.KindJoin:
		p := e.Join
		return append(base, p.Origin, p.Channel)
	case event.KindKick:
		p := e.Kick
		return append(base, p.Origin, p.Channel, p.Target, p.Reason)
	case event.KindMe:
		p := e.Me
		return append(base, p.Origin, p.Channel, p.Message)
	case event.KindMessage:
		p := e.Message
		return append(base, p.Origin, p.Channel, p.Message)
	case event.KindMode:
		p := e.Mode
		args := append([]string{p.Origin, p.Channel, p.Mode}, p.Args...)
		return append(base, args...)
	case event.KindNames:
		p := e.Names
		args := append([]string{p.Channel}, p.Names...)
		return append(base, args...)
	case event.KindNick:
		p := e.Nick
		return append(base, p.Origin, p.Nick)
	case event.KindNotice:
		p := e.Notice
		return append(base, p.Origin, p.Channel, p.Message)
	case event.KindPart:
		p := e.Part
		return append(base, p.Origin, p.Channel, p.Reason)
	case event.KindTopic:
		p := e.Topic
		return append(base, p.Origin, p.Channel, p.Topic)
	case event.KindWhois:
		p := e.Whois
		return append(base, p.Nick, p.User, p.Host, p.Realname)
	case event.KindCommand:
		p := e.Command
		return append(base, p.Plugin, p.Origin, p.Channel, p.Message)
	default:
		return base
	}
}
