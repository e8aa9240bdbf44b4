package publish

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-devicesettings/internal/facet/fpd"
	"github.com/nerrad567/gray-logic-devicesettings/internal/facet/hdmiin"
	"github.com/nerrad567/gray-logic-devicesettings/internal/hal"
	"github.com/nerrad567/gray-logic-devicesettings/internal/infrastructure/mqtt"
)

// commandTimeout bounds the hardware and storage work of one command.
const commandTimeout = 5 * time.Second

// ErrUnknownCommand is returned for a command topic no facet handles.
var ErrUnknownCommand = errors.New("publish: unknown command")

// Subscriber is the part of the MQTT client the Commander needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// HDMIInControl is the set side of the HDMI input facet.
type HDMIInControl interface {
	SetEdidVersion(ctx context.Context, port hal.Port, v hal.EdidVersion) error
	SetAllmSupport(ctx context.Context, port hal.Port, enabled bool) error
	SetVRRSupport(ctx context.Context, port hal.Port, enabled bool) error
	SelectPort(ctx context.Context, port hal.Port) error
}

// FPDControl is the set side of the front-panel facet.
type FPDControl interface {
	SetBrightness(ctx context.Context, ind hal.Indicator, v int, persistent bool) error
	SetState(ctx context.Context, ind hal.Indicator, st hal.IndicatorState) error
	SetColor(ctx context.Context, ind hal.Indicator, c hal.Color) error
}

// AttributeRecorder is told about every setting a command changed.
type AttributeRecorder interface {
	AttributeChanged(facet, target, attribute string, value any)
}

// CommanderOptions configures a Commander. A nil facet disables its commands.
type CommanderOptions struct {
	Subscriber Subscriber
	QoS        byte
	HDMIIn     HDMIInControl
	FPD        FPDControl
	Recorder   AttributeRecorder
	Logger     Logger
}

// Commander applies set commands received over MQTT. The payload is the
// plain value, for example "2.0" for an EDID version, "true" for a support
// bit, "40" for a brightness or "#FF0000" for a color.
type Commander struct {
	opts   CommanderOptions
	logger Logger
}

// NewCommander creates a Commander. It does not subscribe until Start.
func NewCommander(opts CommanderOptions) *Commander {
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Commander{opts: opts, logger: logger}
}

// Start subscribes to every command topic.
func (c *Commander) Start() error {
	if err := c.opts.Subscriber.Subscribe(mqtt.Topics{}.AllCommands(), c.opts.QoS, c.handle); err != nil {
		return fmt.Errorf("subscribing to commands: %w", err)
	}
	c.logger.Info("listening for commands", "topic", mqtt.Topics{}.AllCommands())
	return nil
}

// Stop unsubscribes from command topics.
func (c *Commander) Stop() error {
	return c.opts.Subscriber.Unsubscribe(mqtt.Topics{}.AllCommands())
}

func (c *Commander) handle(topic string, payload []byte) error {
	facet, target, attribute, ok := mqtt.Topics{}.ParseCommand(topic)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, topic)
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	value := strings.TrimSpace(string(payload))
	applied, err := c.Apply(ctx, facet, target, attribute, value)
	if err != nil {
		return fmt.Errorf("%s: %w", topic, err)
	}

	c.logger.Info("command applied", "facet", facet, "target", target, "attribute", attribute, "value", applied)
	if c.opts.Recorder != nil {
		c.opts.Recorder.AttributeChanged(facet, target, attribute, applied)
	}
	return nil
}

// Apply parses value and applies it to the named attribute. It returns the
// value as recorded (for example the canonical color string).
func (c *Commander) Apply(ctx context.Context, facet, target, attribute, value string) (any, error) {
	switch {
	case facet == hdmiin.Name && c.opts.HDMIIn != nil:
		return c.applyHDMIIn(ctx, target, attribute, value)
	case facet == fpd.Name && c.opts.FPD != nil:
		return c.applyFPD(ctx, target, attribute, value)
	default:
		return nil, fmt.Errorf("%w: facet %q", ErrUnknownCommand, facet)
	}
}

func (c *Commander) applyHDMIIn(ctx context.Context, target, attribute, value string) (any, error) {
	port, err := hal.ParsePort(target)
	if err != nil {
		return nil, err
	}
	ctl := c.opts.HDMIIn

	switch attribute {
	case "edid":
		v, err := hal.ParseEdidVersion(value)
		if err != nil {
			return nil, err
		}
		return v.String(), ctl.SetEdidVersion(ctx, port, v)
	case "allm":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("allm: %w", err)
		}
		return enabled, ctl.SetAllmSupport(ctx, port, enabled)
	case "vrr":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("vrr: %w", err)
		}
		return enabled, ctl.SetVRRSupport(ctx, port, enabled)
	case "select":
		return port.String(), ctl.SelectPort(ctx, port)
	default:
		return nil, fmt.Errorf("%w: hdmiin attribute %q", ErrUnknownCommand, attribute)
	}
}

func (c *Commander) applyFPD(ctx context.Context, target, attribute, value string) (any, error) {
	ind, err := hal.ParseIndicator(target)
	if err != nil {
		return nil, err
	}
	ctl := c.opts.FPD

	switch attribute {
	case "brightness":
		v, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("%w: brightness %q", hal.ErrOutOfRange, value)
		}
		return v, ctl.SetBrightness(ctx, ind, v, true)
	case "state":
		st, err := hal.ParseIndicatorState(value)
		if err != nil {
			return nil, err
		}
		return st.String(), ctl.SetState(ctx, ind, st)
	case "color":
		col, err := hal.ParseColor(value)
		if err != nil {
			return nil, err
		}
		return col.String(), ctl.SetColor(ctx, ind, col)
	default:
		return nil, fmt.Errorf("%w: fpd attribute %q", ErrUnknownCommand, attribute)
	}
}
