// Package publish republishes facet events to remote consumers.
//
// Publisher is registered as an observer with every facet. Each event is
// wrapped in an Envelope and published on MQTT under
// devicesettings/event/{facet}/{kind}; events about a specific port also
// update the retained state topic of that port. When InfluxDB is enabled
// every event is written to the device_events measurement as well.
//
// Commander is the reverse direction: it applies set commands received on
// devicesettings/command/{facet}/{target}/{attribute}.
package publish

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-devicesettings/internal/facet/diagnostics"
	"github.com/nerrad567/gray-logic-devicesettings/internal/facet/hdmiin"
	"github.com/nerrad567/gray-logic-devicesettings/internal/hal"
	"github.com/nerrad567/gray-logic-devicesettings/internal/infrastructure/mqtt"
)

// Logger defines the logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// MQTTPublisher is the part of the MQTT client the Publisher needs.
type MQTTPublisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// EventWriter is the part of the InfluxDB client the Publisher needs.
type EventWriter interface {
	WriteEvent(facet, kind string, tags map[string]string, fields map[string]any)
	WriteAttribute(facet, target, attribute string, value any)
}

// Envelope is the JSON message published for every event.
type Envelope struct {
	ID        string         `json:"id"`
	Facet     string         `json:"facet"`
	Kind      string         `json:"kind"`
	Target    string         `json:"target,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload"`
}

// Options configures a Publisher. MQTT and Influx are both optional.
type Options struct {
	MQTT   MQTTPublisher
	Influx EventWriter
	Logger Logger
}

// Publisher forwards facet events to MQTT and InfluxDB. Publishing failures
// are logged and counted; they never reach the dispatcher.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Publisher struct {
	mqtt   MQTTPublisher
	influx EventWriter
	logger Logger
	now    func() time.Time

	published atomic.Uint64
	failed    atomic.Uint64
}

// New creates a Publisher.
func New(opts Options) *Publisher {
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Publisher{
		mqtt:   opts.MQTT,
		influx: opts.Influx,
		logger: logger,
		now:    time.Now,
	}
}

// ObserverName identifies the publisher in dispatcher logs.
func (p *Publisher) ObserverName() string {
	return "publish.Publisher"
}

// Stats returns how many envelopes were published and how many MQTT
// publishes failed.
func (p *Publisher) Stats() (published, failed uint64) {
	return p.published.Load(), p.failed.Load()
}

// ============================================================================
// Observers
// ============================================================================

// OnAVDecoderStatusChanged implements diagnostics.Observer.
func (p *Publisher) OnAVDecoderStatusChanged(status hal.DecoderStatus) {
	p.event(diagnostics.Name, diagnostics.KindDecoderStatusChanged, "decoder", map[string]any{
		"status": status.String(),
	})
}

// OnHotPlug implements hdmiin.Observer.
func (p *Publisher) OnHotPlug(port hal.Port, connected bool) {
	p.event(hdmiin.Name, hdmiin.KindHotPlug, port.String(), map[string]any{"connected": connected})
}

// OnSignalStatus implements hdmiin.Observer.
func (p *Publisher) OnSignalStatus(port hal.Port, status hal.SignalStatus) {
	p.event(hdmiin.Name, hdmiin.KindSignalStatus, port.String(), map[string]any{"status": status.String()})
}

// OnStatus implements hdmiin.Observer.
func (p *Publisher) OnStatus(activePort hal.Port, presented bool) {
	p.event(hdmiin.Name, hdmiin.KindStatus, "", map[string]any{
		"active_port": activePort.String(),
		"presented":   presented,
	})
}

// OnVideoModeUpdate implements hdmiin.Observer.
func (p *Publisher) OnVideoModeUpdate(port hal.Port, mode hal.VideoMode) {
	p.event(hdmiin.Name, hdmiin.KindVideoMode, port.String(), map[string]any{
		"resolution": mode.Resolution,
		"interlaced": mode.Interlaced,
		"frame_rate": mode.FrameRate,
	})
}

// OnAllmStatus implements hdmiin.Observer.
func (p *Publisher) OnAllmStatus(port hal.Port, active bool) {
	p.event(hdmiin.Name, hdmiin.KindAllmStatus, port.String(), map[string]any{"active": active})
}

// OnAVIContentType implements hdmiin.Observer.
func (p *Publisher) OnAVIContentType(port hal.Port, content hal.AVIContentType) {
	p.event(hdmiin.Name, hdmiin.KindAVIContentType, port.String(), map[string]any{"content_type": content.String()})
}

// OnAVLatency implements hdmiin.Observer.
func (p *Publisher) OnAVLatency(latency hal.AVLatency) {
	p.event(hdmiin.Name, hdmiin.KindAVLatency, "", map[string]any{
		"audio_delay": latency.AudioDelay,
		"video_delay": latency.VideoDelay,
	})
}

// OnVRRStatus implements hdmiin.Observer.
func (p *Publisher) OnVRRStatus(port hal.Port, vrr hal.VRRType) {
	p.event(hdmiin.Name, hdmiin.KindVRRStatus, port.String(), map[string]any{"vrr": vrr.String()})
}

// AttributeChanged records a setting written through the API or a command:
// the value is published retained on the attribute's state topic and written
// to InfluxDB.
func (p *Publisher) AttributeChanged(facet, target, attribute string, value any) {
	if p.mqtt != nil {
		topic := mqtt.Topics{}.State(facet, target, attribute)
		if err := p.mqtt.PublishJSON(topic, map[string]any{"value": value}, true); err != nil {
			p.failed.Add(1)
			p.logger.Warn("attribute state not published", "topic", topic, "error", err)
		}
	}
	if p.influx != nil {
		p.influx.WriteAttribute(facet, target, attribute, value)
	}
}

// event publishes one envelope. A non-empty target that names a port also
// refreshes the retained state topic for that kind.
func (p *Publisher) event(facet, kind, target string, payload map[string]any) {
	env := Envelope{
		ID:        uuid.NewString(),
		Facet:     facet,
		Kind:      kind,
		Target:    target,
		Timestamp: p.now().UTC(),
		Payload:   payload,
	}

	if p.mqtt != nil {
		topic := mqtt.Topics{}.Event(facet, kind)
		if err := p.mqtt.PublishJSON(topic, env, false); err != nil {
			p.failed.Add(1)
			p.logger.Warn("event not published", "topic", topic, "event_id", env.ID, "error", err)
		} else {
			p.published.Add(1)
			p.logger.Debug("event published", "topic", topic, "event_id", env.ID)
		}

		if target != "" {
			stateTopic := mqtt.Topics{}.State(facet, target, kind)
			if err := p.mqtt.PublishJSON(stateTopic, payload, true); err != nil {
				p.failed.Add(1)
				p.logger.Warn("event state not published", "topic", stateTopic, "error", err)
			}
		}
	}

	if p.influx != nil {
		var tags map[string]string
		if target != "" {
			tags = map[string]string{"target": target}
		}
		p.influx.WriteEvent(facet, kind, tags, payload)
	}
}
