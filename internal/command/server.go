package command

// registerServer wires the fifteen server-* commands (spec.md §4.7).
func (r *Registry) registerServer() {
	r.register("server-list", func(svc *Services, sess Session, req Request) (Response, error) {
		return Response{"list": svc.Server.List()}, nil
	})

	r.register("server-info", func(svc *Services, sess Session, req Request) (Response, error) {
		id, err := reqString(req, "server")
		if err != nil {
			return nil, err
		}
		info, err := svc.Server.Info(id)
		if err != nil {
			return nil, err
		}
		return Response{
			"name":     info.ID,
			"hostname": info.Hostname,
			"port":     info.Port,
			"ssl":      info.SSL,
			"nickname": info.Nickname,
			"state":    info.State,
			"channels": info.Channels,
		}, nil
	})

	r.register("server-connect", func(svc *Services, sess Session, req Request) (Response, error) {
		id, err := reqString(req, "name")
		if err != nil {
			return nil, err
		}
		hostname, err := reqString(req, "host")
		if err != nil {
			return nil, err
		}
		params := ServerConnectParams{
			ID:        id,
			Hostname:  hostname,
			Port:      optInt(req, "port", 6667),
			SSL:       optBool(req, "ssl"),
			SSLVerify: optBool(req, "sslVerify"),
			IPv6:      optBool(req, "ipv6"),
			Nickname:  optString(req, "nickname"),
			Username:  optString(req, "username"),
			Realname:  optString(req, "realname"),
			Channels:  optStrings(req, "channels"),
		}
		if err := svc.Server.Connect(params); err != nil {
			return nil, err
		}
		return Response{}, nil
	})

	r.register("server-disconnect", func(svc *Services, sess Session, req Request) (Response, error) {
		id := optString(req, "server")
		if err := svc.Server.Disconnect(id); err != nil {
			return nil, err
		}
		return Response{}, nil
	})

	r.register("server-reconnect", func(svc *Services, sess Session, req Request) (Response, error) {
		id := optString(req, "server")
		if err := svc.Server.Reconnect(id); err != nil {
			return nil, err
		}
		return Response{}, nil
	})

	r.register("server-join", func(svc *Services, sess Session, req Request) (Response, error) {
		id, channel, err := reqServerChannel(req)
		if err != nil {
			return nil, err
		}
		if err := svc.Server.Join(id, channel, optString(req, "password")); err != nil {
			return nil, err
		}
		return Response{}, nil
	})

	r.register("server-part", func(svc *Services, sess Session, req Request) (Response, error) {
		id, channel, err := reqServerChannel(req)
		if err != nil {
			return nil, err
		}
		if err := svc.Server.Part(id, channel, optString(req, "reason")); err != nil {
			return nil, err
		}
		return Response{}, nil
	})

	r.register("server-message", func(svc *Services, sess Session, req Request) (Response, error) {
		id, target, text, err := reqServerTargetMessage(req)
		if err != nil {
			return nil, err
		}
		if err := svc.Server.Message(id, target, text); err != nil {
			return nil, err
		}
		return Response{}, nil
	})

	r.register("server-notice", func(svc *Services, sess Session, req Request) (Response, error) {
		id, target, text, err := reqServerTargetMessage(req)
		if err != nil {
			return nil, err
		}
		if err := svc.Server.Notice(id, target, text); err != nil {
			return nil, err
		}
		return Response{}, nil
	})

	r.register("server-me", func(svc *Services, sess Session, req Request) (Response, error) {
		id, target, text, err := reqServerTargetMessage(req)
		if err != nil {
			return nil, err
		}
		if err := svc.Server.Me(id, target, text); err != nil {
			return nil, err
		}
		return Response{}, nil
	})

	r.register("server-mode", func(svc *Services, sess Session, req Request) (Response, error) {
		id, channel, err := reqServerChannel(req)
		if err != nil {
			return nil, err
		}
		mode, err := reqString(req, "mode")
		if err != nil {
			return nil, err
		}
		if err := svc.Server.Mode(id, channel, mode, optArgs(req, "args")); err != nil {
			return nil, err
		}
		return Response{}, nil
	})

	r.register("server-invite", func(svc *Services, sess Session, req Request) (Response, error) {
		id, channel, err := reqServerChannel(req)
		if err != nil {
			return nil, err
		}
		target, err := reqString(req, "target")
		if err != nil {
			return nil, err
		}
		if err := svc.Server.Invite(id, channel, target); err != nil {
			return nil, err
		}
		return Response{}, nil
	})

	r.register("server-kick", func(svc *Services, sess Session, req Request) (Response, error) {
		id, channel, err := reqServerChannel(req)
		if err != nil {
			return nil, err
		}
		target, err := reqString(req, "target")
		if err != nil {
			return nil, err
		}
		if err := svc.Server.Kick(id, channel, target, optString(req, "reason")); err != nil {
			return nil, err
		}
		return Response{}, nil
	})

	r.register("server-nick", func(svc *Services, sess Session, req Request) (Response, error) {
		id, err := reqString(req, "server")
		if err != nil {
			return nil, err
		}
		nickname, err := reqString(req, "nickname")
		if err != nil {
			return nil, err
		}
		if err := svc.Server.Nick(id, nickname); err != nil {
			return nil, err
		}
		return Response{}, nil
	})

	r.register("server-topic", func(svc *Services, sess Session, req Request) (Response, error) {
		id, channel, err := reqServerChannel(req)
		if err != nil {
			return nil, err
		}
		topic, err := reqString(req, "topic")
		if err != nil {
			return nil, err
		}
		if err := svc.Server.Topic(id, channel, topic); err != nil {
			return nil, err
		}
		return Response{}, nil
	})
}

func reqServerChannel(req Request) (id, channel string, err error) {
	id, err = reqString(req, "server")
	if err != nil {
		return "", "", err
	}
	channel, err = reqString(req, "channel")
	if err != nil {
		return "", "", err
	}
	return id, channel, nil
}

func reqServerTargetMessage(req Request) (id, target, message string, err error) {
	id, err = reqString(req, "server")
	if err != nil {
		return "", "", "", err
	}
	target, err = reqString(req, "target")
	if err != nil {
		return "", "", "", err
	}
	message, err = reqString(req, "message")
	if err != nil {
		return "", "", "", err
	}
	return id, target, message, nil
}
