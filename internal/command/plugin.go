package command

// registerPlugin wires the eight plugin-* commands (spec.md §4.7).
func (r *Registry) registerPlugin() {
	r.register("plugin-list", func(svc *Services, sess Session, req Request) (Response, error) {
		return Response{"list": svc.Plugin.List()}, nil
	})

	r.register("plugin-load", func(svc *Services, sess Session, req Request) (Response, error) {
		id, err := reqString(req, "plugin")
		if err != nil {
			return nil, err
		}
		if err := svc.Plugin.Load(id, id); err != nil {
			return nil, err
		}
		return Response{}, nil
	})

	r.register("plugin-unload", func(svc *Services, sess Session, req Request) (Response, error) {
		id, err := reqString(req, "plugin")
		if err != nil {
			return nil, err
		}
		if err := svc.Plugin.Unload(id); err != nil {
			return nil, err
		}
		return Response{}, nil
	})

	r.register("plugin-reload", func(svc *Services, sess Session, req Request) (Response, error) {
		id, err := reqString(req, "plugin")
		if err != nil {
			return nil, err
		}
		if err := svc.Plugin.Reload(id); err != nil {
			return nil, err
		}
		return Response{}, nil
	})

	r.register("plugin-info", func(svc *Services, sess Session, req Request) (Response, error) {
		id, err := reqString(req, "plugin")
		if err != nil {
			return nil, err
		}
		author, license, summary, version, err := svc.Plugin.Info(id)
		if err != nil {
			return nil, err
		}
		return Response{
			"author":  author,
			"license": license,
			"summary": summary,
			"version": version,
		}, nil
	})

	r.register("plugin-config", func(svc *Services, sess Session, req Request) (Response, error) {
		id, err := reqString(req, "plugin")
		if err != nil {
			return nil, err
		}
		variable := optString(req, "variable")
		if _, hasValue := req["value"]; hasValue {
			if err := svc.Plugin.SetOption(id, variable, optString(req, "value")); err != nil {
				return nil, err
			}
			return Response{}, nil
		}
		options, err := svc.Plugin.Options(id)
		if err != nil {
			return nil, err
		}
		return Response{"variables": selectVariable(options, variable)}, nil
	})

	r.register("plugin-template", func(svc *Services, sess Session, req Request) (Response, error) {
		id, err := reqString(req, "plugin")
		if err != nil {
			return nil, err
		}
		variable := optString(req, "variable")
		if _, hasValue := req["value"]; hasValue {
			if err := svc.Plugin.SetTemplate(id, variable, optString(req, "value")); err != nil {
				return nil, err
			}
			return Response{}, nil
		}
		templates, err := svc.Plugin.Templates(id)
		if err != nil {
			return nil, err
		}
		return Response{"variables": selectVariable(templates, variable)}, nil
	})

	r.register("plugin-path", func(svc *Services, sess Session, req Request) (Response, error) {
		id, err := reqString(req, "plugin")
		if err != nil {
			return nil, err
		}
		variable := optString(req, "variable")
		if _, hasValue := req["value"]; hasValue {
			if err := svc.Plugin.SetPath(id, variable, optString(req, "value")); err != nil {
				return nil, err
			}
			return Response{}, nil
		}
		paths, err := svc.Plugin.Paths(id)
		if err != nil {
			return nil, err
		}
		return Response{"variables": selectVariable(paths, variable)}, nil
	})
}

// selectVariable narrows all to a single-entry map when variable is
// set, matching the original's execGet: requesting a named variable
// without a value returns just that entry, never the whole set.
func selectVariable(all map[string]string, variable string) map[string]string {
	if variable == "" {
		return all
	}
	return map[string]string{variable: all[variable]}
}
