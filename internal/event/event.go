// Package event defines the tagged union of IRC occurrences the
// server state machine produces (spec.md §3 "Event"): a fixed set of
// kinds, each carrying a server handle plus kind-specific fields.
// Events are value types passed by reference to plugins and
// serialized to JSON for transport `watch` subscribers (§4.6) and the
// dashboard stream (§4.10).
package event

import "strings"

// Kind names one of the fourteen IRC occurrences plus the synthetic
// "command" kind (a prefixed message addressed to a loaded plugin).
type Kind string

const (
	KindConnect    Kind = "onConnect"
	KindDisconnect Kind = "onDisconnect"
	KindInvite     Kind = "onInvite"
	KindJoin       Kind = "onJoin"
	KindKick       Kind = "onKick"
	KindMe         Kind = "onMe"
	KindMessage    Kind = "onMessage"
	KindMode       Kind = "onMode"
	KindNames      Kind = "onNames"
	KindNick       Kind = "onNick"
	KindNotice     Kind = "onNotice"
	KindPart       Kind = "onPart"
	KindTopic      Kind = "onTopic"
	KindWhois      Kind = "onWhois"
	KindCommand    Kind = "onCommand"
)

// Bare returns the rule-engine/config spelling of a kind (spec.md §3's
// tagged union names: "connect", "message", …, without the "on"
// prefix the wire/plugin-handler spelling uses), used wherever a rule
// tuple's event dimension is compared against a live Event.
func (k Kind) Bare() string {
	s := string(k)
	if len(s) > 2 && s[:2] == "on" {
		return strings.ToLower(s[2:3]) + s[3:]
	}
	return s
}

// Event is the common envelope: Kind selects which of the pointer
// fields below is populated. Exactly one non-nil payload field is set
// per event; the rest are nil. This shape (one struct, optional
// pointer fields, a discriminant) keeps JSON marshaling flat — exactly
// the wire shape spec.md §6 describes ({"event":"onJoin","server":...}).
type Event struct {
	Kind   Kind   `json:"event"`
	Server string `json:"server"`

	Connect    *ConnectPayload    `json:"-"`
	Disconnect *DisconnectPayload `json:"-"`
	Invite     *InvitePayload     `json:"-"`
	Join       *JoinPayload       `json:"-"`
	Kick       *KickPayload       `json:"-"`
	Me         *MePayload         `json:"-"`
	Message    *MessagePayload    `json:"-"`
	Mode       *ModePayload       `json:"-"`
	Names      *NamesPayload      `json:"-"`
	Nick       *NickPayload       `json:"-"`
	Notice     *NoticePayload     `json:"-"`
	Part       *PartPayload       `json:"-"`
	Topic      *TopicPayload      `json:"-"`
	Whois      *WhoisPayload      `json:"-"`
	Command    *CommandPayload    `json:"-"`
}

type ConnectPayload struct{}

type DisconnectPayload struct{}

type InvitePayload struct {
	Channel string `json:"channel"`
	Target  string `json:"target"`
	Origin  string `json:"origin"`
}

type JoinPayload struct {
	Channel string `json:"channel"`
	Origin  string `json:"origin"`
}

type KickPayload struct {
	Channel string `json:"channel"`
	Target  string `json:"target"`
	Origin  string `json:"origin"`
	Reason  string `json:"reason"`
}

type MePayload struct {
	Channel string `json:"channel"`
	Origin  string `json:"origin"`
	Message string `json:"message"`
}

type MessagePayload struct {
	Channel string `json:"channel"`
	Origin  string `json:"origin"`
	Message string `json:"message"`
}

type ModePayload struct {
	Channel string   `json:"channel"`
	Origin  string   `json:"origin"`
	Mode    string   `json:"mode"`
	Limit   string   `json:"limit,omitempty"`
	User    string   `json:"user,omitempty"`
	Mask    string   `json:"mask,omitempty"`
	Args    []string `json:"args,omitempty"`
}

type NamesPayload struct {
	Channel string   `json:"channel"`
	Names   []string `json:"names"`
}

type NickPayload struct {
	Origin string `json:"origin"`
	Nick   string `json:"nickname"`
}

type NoticePayload struct {
	Channel string `json:"channel,omitempty"`
	Origin  string `json:"origin"`
	Message string `json:"message"`
}

type PartPayload struct {
	Channel string `json:"channel"`
	Origin  string `json:"origin"`
	Reason  string `json:"reason,omitempty"`
}

type TopicPayload struct {
	Channel string `json:"channel"`
	Origin  string `json:"origin"`
	Topic   string `json:"topic"`
}

type WhoisPayload struct {
	Nick     string   `json:"nickname"`
	User     string   `json:"username"`
	Host     string   `json:"hostname"`
	Realname string   `json:"realname"`
	Channels []string `json:"channels,omitempty"`
}

// CommandPayload describes a PRIVMSG beginning with the server's
// command prefix followed by a loaded plugin's id (spec.md §4.2): the
// bot emits a "command" event for that plugin instead of "message".
type CommandPayload struct {
	Plugin  string `json:"plugin"`
	Channel string `json:"channel"`
	Origin  string `json:"origin"`
	Message string `json:"message"`
}

// Connect builds an onConnect event for server.
func Connect(server string) Event {
	return Event{Kind: KindConnect, Server: server, Connect: &ConnectPayload{}}
}

// Disconnect builds an onDisconnect event for server.
func Disconnect(server string) Event {
	return Event{Kind: KindDisconnect, Server: server, Disconnect: &DisconnectPayload{}}
}

// Message builds an onMessage event.
func Message(server, origin, channel, text string) Event {
	return Event{Kind: KindMessage, Server: server, Message: &MessagePayload{Channel: channel, Origin: origin, Message: text}}
}

// Command builds an onCommand event for the given plugin.
func Command(server, plugin, origin, channel, text string) Event {
	return Event{Kind: KindCommand, Server: server, Command: &CommandPayload{Plugin: plugin, Channel: channel, Origin: origin, Message: text}}
}

// Join builds an onJoin event.
func Join(server, origin, channel string) Event {
	return Event{Kind: KindJoin, Server: server, Join: &JoinPayload{Channel: channel, Origin: origin}}
}

// Part builds an onPart event.
func Part(server, origin, channel, reason string) Event {
	return Event{Kind: KindPart, Server: server, Part: &PartPayload{Channel: channel, Origin: origin, Reason: reason}}
}

// Kick builds an onKick event.
func Kick(server, origin, channel, target, reason string) Event {
	return Event{Kind: KindKick, Server: server, Kick: &KickPayload{Channel: channel, Target: target, Origin: origin, Reason: reason}}
}

// Nick builds an onNick event.
func Nick(server, origin, newNick string) Event {
	return Event{Kind: KindNick, Server: server, Nick: &NickPayload{Origin: origin, Nick: newNick}}
}

// Notice builds an onNotice event.
func Notice(server, origin, channel, text string) Event {
	return Event{Kind: KindNotice, Server: server, Notice: &NoticePayload{Channel: channel, Origin: origin, Message: text}}
}

// Me builds an onMe (CTCP ACTION) event.
func Me(server, origin, channel, text string) Event {
	return Event{Kind: KindMe, Server: server, Me: &MePayload{Channel: channel, Origin: origin, Message: text}}
}

// Topic builds an onTopic event.
func Topic(server, origin, channel, topic string) Event {
	return Event{Kind: KindTopic, Server: server, Topic: &TopicPayload{Channel: channel, Origin: origin, Topic: topic}}
}

// Invite builds an onInvite event.
func Invite(server, origin, target, channel string) Event {
	return Event{Kind: KindInvite, Server: server, Invite: &InvitePayload{Channel: channel, Target: target, Origin: origin}}
}

// Mode builds an onMode (channel or user mode) event.
func Mode(server, origin, channel, mode string, args []string) Event {
	return Event{Kind: KindMode, Server: server, Mode: &ModePayload{Channel: channel, Origin: origin, Mode: mode, Args: args}}
}

// Names builds an onNames event from a completed NAMES (353/366) exchange.
func Names(server, channel string, names []string) Event {
	return Event{Kind: KindNames, Server: server, Names: &NamesPayload{Channel: channel, Names: names}}
}

// Whois builds an onWhois event from a completed WHOIS exchange.
func Whois(server string, payload WhoisPayload) Event {
	return Event{Kind: KindWhois, Server: server, Whois: &payload}
}
