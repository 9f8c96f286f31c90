package command

import (
	"fmt"

	"github.com/markand/irccd/internal/ircerr"
)

// registerHook wires the three hook-* commands (spec.md §4.7, the
// hook subsystem SUPPLEMENT).
func (r *Registry) registerHook() {
	r.register("hook-list", func(svc *Services, sess Session, req Request) (Response, error) {
		hooks := svc.Hook.List()
		list := make([]map[string]any, 0, len(hooks))
		for _, h := range hooks {
			list = append(list, map[string]any{"id": h.ID, "target": h.Target})
		}
		return Response{"list": list}, nil
	})

	r.register("hook-add", func(svc *Services, sess Session, req Request) (Response, error) {
		id, err := reqString(req, "hook")
		if err != nil {
			return nil, err
		}
		target, err := reqString(req, "target")
		if err != nil {
			return nil, err
		}
		if err := svc.Hook.Add(id, target); err != nil {
			return nil, ircerr.Irccd(ircerr.InvalidCommand, fmt.Sprintf("hook-add: %s", err))
		}
		return Response{}, nil
	})

	r.register("hook-remove", func(svc *Services, sess Session, req Request) (Response, error) {
		id, err := reqString(req, "hook")
		if err != nil {
			return nil, err
		}
		if err := svc.Hook.Remove(id); err != nil {
			return nil, ircerr.Irccd(ircerr.InvalidCommand, fmt.Sprintf("hook-remove: %s", err))
		}
		return Response{}, nil
	})
}
