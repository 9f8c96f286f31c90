package command

import (
	"github.com/markand/irccd/internal/ircerr"
)

// registerControl wires the "auth" and "watch" commands (spec.md §4.7
// control group). Both mutate session state rather than bot services,
// so they don't touch svc at all.
func (r *Registry) registerControl() {
	r.register("auth", func(svc *Services, sess Session, req Request) (Response, error) {
		password, err := reqString(req, "password")
		if err != nil {
			return nil, err
		}
		if sess == nil {
			return Response{}, nil
		}
		if !sess.CheckPassword(password) {
			return nil, ircerr.Irccd(ircerr.InvalidAuth, "invalid password")
		}
		sess.Authenticate()
		return Response{}, nil
	})

	r.register("watch", func(svc *Services, sess Session, req Request) (Response, error) {
		if sess != nil {
			sess.Watch()
		}
		return Response{}, nil
	})
}
