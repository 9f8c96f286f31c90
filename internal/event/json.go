package event

import "encoding/json"

// MarshalJSON renders the event as a single flat JSON object:
// {"event":"onJoin","server":"freenode","channel":"#staff",...} per
// spec.md §4.6's broadcast shape — the active payload's fields are
// merged alongside "event" and "server" rather than nested under a
// sub-key.
func (e Event) MarshalJSON() ([]byte, error) {
	payload := e.activePayload()

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]json.RawMessage{}
	}

	eventJSON, err := json.Marshal(e.Kind)
	if err != nil {
		return nil, err
	}
	serverJSON, err := json.Marshal(e.Server)
	if err != nil {
		return nil, err
	}
	fields["event"] = eventJSON
	fields["server"] = serverJSON

	return json.Marshal(fields)
}

// activePayload returns whichever payload field is non-nil for e.Kind.
func (e Event) activePayload() any {
	switch e.Kind {
	case KindConnect:
		return e.Connect
	case KindDisconnect:
		return e.Disconnect
	case KindInvite:
		return e.Invite
	case KindJoin:
		return e.Join
	case KindKick:
		return e.Kick
	case KindMe:
		return e.Me
	case KindMessage:
		return e.Message
	case KindMode:
		return e.Mode
	case KindNames:
		return e.Names
	case KindNick:
		return e.Nick
	case KindNotice:
		return e.Notice
	case KindPart:
		return e.Part
	case KindTopic:
		return e.Topic
	case KindWhois:
		return e.Whois
	case KindCommand:
		return e.Command
	default:
		return struct{}{}
	}
}
