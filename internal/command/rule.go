package command

import (
	"github.com/markand/irccd/internal/rule"
)

// registerRule wires the five rule-* commands (spec.md §4.7/§4.4).
func (r *Registry) registerRule() {
	r.register("rule-list", func(svc *Services, sess Session, req Request) (Response, error) {
		rules := svc.Rule.List()
		list := make([]map[string]any, 0, len(rules))
		for _, rl := range rules {
			list = append(list, map[string]any{
				"servers":  rl.Servers,
				"channels": rl.Channels,
				"origins":  rl.Origins,
				"plugins":  rl.Plugins,
				"events":   rl.Events,
				"action":   string(rl.Action),
			})
		}
		return Response{"list": list}, nil
	})

	r.register("rule-add", func(svc *Services, sess Session, req Request) (Response, error) {
		action := rule.Accept
		if a := optString(req, "action"); a != "" {
			action = rule.Action(a)
		}
		rl := rule.Rule{
			Servers:  optStrings(req, "servers"),
			Channels: optStrings(req, "channels"),
			Origins:  optStrings(req, "origins"),
			Plugins:  optStrings(req, "plugins"),
			Events:   optStrings(req, "events"),
			Action:   action,
		}
		index := optInt(req, "index", -1)
		svc.Rule.Add(rl, index)
		return Response{}, nil
	})

	r.register("rule-edit", func(svc *Services, sess Session, req Request) (Response, error) {
		index, err := reqInt(req, "index")
		if err != nil {
			return nil, err
		}
		patch := rule.Patch{
			AddServers:     optStrings(req, "addServers"),
			RemoveServers:  optStrings(req, "removeServers"),
			AddChannels:    optStrings(req, "addChannels"),
			RemoveChannels: optStrings(req, "removeChannels"),
			AddOrigins:     optStrings(req, "addOrigins"),
			RemoveOrigins:  optStrings(req, "removeOrigins"),
			AddPlugins:     optStrings(req, "addPlugins"),
			RemovePlugins:  optStrings(req, "removePlugins"),
			AddEvents:      optStrings(req, "addEvents"),
			RemoveEvents:   optStrings(req, "removeEvents"),
		}
		if a := optString(req, "action"); a != "" {
			action := rule.Action(a)
			patch.Action = &action
		}
		if err := svc.Rule.Edit(index, patch); err != nil {
			return nil, err
		}
		return Response{}, nil
	})

	r.register("rule-move", func(svc *Services, sess Session, req Request) (Response, error) {
		from, err := reqInt(req, "from")
		if err != nil {
			return nil, err
		}
		to, err := reqInt(req, "to")
		if err != nil {
			return nil, err
		}
		if err := svc.Rule.Move(from, to); err != nil {
			return nil, err
		}
		return Response{}, nil
	})

	r.register("rule-remove", func(svc *Services, sess Session, req Request) (Response, error) {
		index, err := reqInt(req, "index")
		if err != nil {
			return nil, err
		}
		if err := svc.Rule.Remove(index); err != nil {
			return nil, err
		}
		return Response{}, nil
	})
}
