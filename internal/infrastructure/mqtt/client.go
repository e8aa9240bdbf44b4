package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-devicesettings/internal/infrastructure/config"
)

// Logger receives connection events and handler failures.
// *logging.Logger and *slog.Logger both satisfy it.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// MessageHandler handles one inbound message. It runs on a paho goroutine;
// an error is logged and the message is still acknowledged.
type MessageHandler func(topic string, payload []byte) error

// hooks are the caller-supplied callbacks, swapped as a unit.
type hooks struct {
	logger       Logger
	onConnect    func()
	onDisconnect func(err error)
}

// Client is the service's broker connection. It keeps the retained
// devicesettings/system/status topic current and re-subscribes command
// topics after every reconnect. Safe for concurrent use.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig

	online atomic.Bool

	hooksMu sync.RWMutex
	hooks   hooks

	subs subscriptions
}

func newClient(cfg config.MQTTConfig) *Client {
	return &Client{
		cfg:   cfg,
		hooks: hooks{logger: noopLogger{}},
		subs:  subscriptions{byTopic: make(map[string]subscription)},
	}
}

// Connect dials the broker and waits for the first connection.
//
// The will message marks the service offline if the link drops without
// Close. After every (re)connect the retained status is set to online and
// tracked subscriptions are restored.
//
// Returns:
//   - *Client: connected client
//   - error: ErrBrokerUnreachable if the broker does not accept the
//     connection within the connect timeout
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := newClient(cfg)

	opts := buildClientOptions(cfg)
	configureLWT(opts, cfg.Broker.ClientID)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.connected() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.lost(err) })
	opts.SetReconnectingHandler(func(pahomqtt.Client, *pahomqtt.ClientOptions) {
		c.currentHooks().logger.Info("reconnecting to MQTT broker",
			"host", cfg.Broker.Host, "port", cfg.Broker.Port)
	})

	c.client = pahomqtt.NewClient(opts)
	if err := await(c.client.Connect(), ErrBrokerUnreachable, defaultConnectTimeout); err != nil {
		return nil, err
	}

	// The on-connect handler runs asynchronously.
	c.online.Store(true)
	return c, nil
}

func (c *Client) connected() {
	c.online.Store(true)
	c.subs.restore(c)
	c.publishStatus(StatusOnline, "")

	if fn := c.currentHooks().onConnect; fn != nil {
		fn()
	}
}

func (c *Client) lost(err error) {
	c.online.Store(false)

	h := c.currentHooks()
	h.logger.Warn("MQTT connection lost", "error", err)
	if h.onDisconnect != nil {
		h.onDisconnect(err)
	}
}

// publishStatus sends the retained service status and does not wait for
// the broker.
func (c *Client) publishStatus(status, reason string) pahomqtt.Token {
	return c.client.Publish(Topics{}.SystemStatus(), c.QoS(), true,
		buildStatusPayload(status, c.cfg.Broker.ClientID, reason))
}

// Close marks the service offline on the status topic and disconnects.
// It always returns nil.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	if c.IsConnected() {
		c.publishStatus(StatusOffline, reasonShutdown).WaitTimeout(defaultPublishTimeout)
	}
	c.client.Disconnect(defaultDisconnectQuiesce)
	c.online.Store(false)

	return nil
}

// HealthCheck returns ErrOffline while the broker link is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrOffline
	}
	return nil
}

// IsConnected reports the current link state as seen by paho.
func (c *Client) IsConnected() bool {
	return c.online.Load() && c.client != nil && c.client.IsConnected()
}

// QoS is the configured default QoS level.
func (c *Client) QoS() byte {
	return byte(c.cfg.QoS)
}

// SetOnConnect installs a callback run after the first connect and after
// each reconnect, typically to republish retained state.
func (c *Client) SetOnConnect(fn func()) {
	c.hooksMu.Lock()
	c.hooks.onConnect = fn
	c.hooksMu.Unlock()
}

// SetOnDisconnect installs a callback run when the link drops.
func (c *Client) SetOnDisconnect(fn func(err error)) {
	c.hooksMu.Lock()
	c.hooks.onDisconnect = fn
	c.hooksMu.Unlock()
}

// SetLogger sets the logger. A nil logger discards output.
func (c *Client) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	c.hooksMu.Lock()
	c.hooks.logger = logger
	c.hooksMu.Unlock()
}

func (c *Client) currentHooks() hooks {
	c.hooksMu.RLock()
	defer c.hooksMu.RUnlock()
	return c.hooks
}

// wrapHandler adapts a MessageHandler to paho, logging returned errors and
// recovering panics so one bad command cannot take down the paho router.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		log := c.currentHooks().logger
		defer func() {
			if r := recover(); r != nil {
				log.Error("MQTT handler panic recovered", "topic", msg.Topic(), "panic", r)
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			log.Warn("MQTT handler returned error", "topic", msg.Topic(), "error", err)
		}
	}
}
