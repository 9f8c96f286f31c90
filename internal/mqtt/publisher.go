// Package mqtt implements the hook.Publisher a bot wires in when any
// configured hook targets an "mqtt://" topic (SPEC_FULL.md §4.5): a
// thin wrapper over eclipse/paho.golang's autopaho connection manager,
// publishing raw JSON payloads rather than Home-Assistant discovery
// sensors — irccd's hooks have no sensor model, only topics.
package mqtt

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
)

// Config names the broker a Publisher connects to.
type Config struct {
	Broker   string // e.g. "mqtt://localhost:1883" or "mqtts://host:8883"
	ClientID string
	Username string
	Password string
}

// Publisher publishes hook event payloads to MQTT topics. It satisfies
// internal/hook's Publisher interface.
type Publisher struct {
	cfg    Config
	logger *slog.Logger
	cm     *autopaho.ConnectionManager
}

// New creates a Publisher but does not connect; call Start to begin
// connecting (autopaho retries in the background on its own).
func New(cfg Config, logger *slog.Logger) *Publisher {
	return &Publisher{cfg: cfg, logger: logger}
}

// Start establishes the broker connection. It returns once the
// connection manager has been created; autopaho reconnects
// transparently afterward, so a broker that is briefly unreachable at
// startup does not fail the bot.
func (p *Publisher) Start(ctx context.Context) error {
	brokerURL, err := url.Parse(p.cfg.Broker)
	if err != nil {
		return fmt.Errorf("parse mqtt broker url: %w", err)
	}

	clientID := p.cfg.ClientID
	if clientID == "" {
		clientID = "irccd"
	}

	pahoCfg := autopaho.ClientConfig{
		ServerUrls:      []*url.URL{brokerURL},
		KeepAlive:       30,
		ConnectUsername: p.cfg.Username,
		ConnectPassword: []byte(p.cfg.Password),
		OnConnectionUp: func(*autopaho.ConnectionManager, *paho.Connack) {
			p.logger.Info("mqtt connected", "broker", p.cfg.Broker)
		},
		OnConnectError: func(err error) {
			p.logger.Warn("mqtt connection error", "error", err)
		},
		ClientConfig: paho.ClientConfig{ClientID: clientID},
	}
	if brokerURL.Scheme == "mqtts" || brokerURL.Scheme == "ssl" {
		pahoCfg.TlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	cm, err := autopaho.NewConnection(ctx, pahoCfg)
	if err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	p.cm = cm

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := cm.AwaitConnection(connCtx); err != nil {
		p.logger.Warn("mqtt initial connection timed out, retrying in background", "error", err)
	}
	return nil
}

// Publish sends payload to topic with QoS 0, matching the
// fire-and-forget delivery the hook subsystem's process-spawn path
// already uses (spec.md §4.5: the bot does not await completion).
func (p *Publisher) Publish(ctx context.Context, topic string, payload []byte) error {
	if p.cm == nil {
		return fmt.Errorf("mqtt publisher not started")
	}
	_, err := p.cm.Publish(ctx, &paho.Publish{Topic: topic, Payload: payload, QoS: 0})
	return err
}

// AwaitConnection blocks until the broker connection is established or
// ctx expires. Exposed for a connwatch.Watcher probe whose transitions
// the bot logs as MQTT reachability changes.
func (p *Publisher) AwaitConnection(ctx context.Context) error {
	if p.cm == nil {
		return fmt.Errorf("mqtt publisher not started")
	}
	return p.cm.AwaitConnection(ctx)
}

// Stop disconnects from the broker.
func (p *Publisher) Stop(ctx context.Context) error {
	if p.cm == nil {
		return nil
	}
	return p.cm.Disconnect(ctx)
}
