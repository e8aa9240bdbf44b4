package publish

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-devicesettings/internal/capability"
	"github.com/nerrad567/gray-logic-devicesettings/internal/facet/diagnostics"
	"github.com/nerrad567/gray-logic-devicesettings/internal/facet/hdmiin"
	"github.com/nerrad567/gray-logic-devicesettings/internal/hal"
	"github.com/nerrad567/gray-logic-devicesettings/internal/infrastructure/mqtt"
)

// Compile-time checks that Publisher observes every facet.
var (
	_ diagnostics.Observer = (*Publisher)(nil)
	_ hdmiin.Observer      = (*Publisher)(nil)
)

// ============================================================================
// Mocks
// ============================================================================

type published struct {
	topic    string
	payload  []byte
	retained bool
}

// MockMQTTClient records publishes and subscriptions.
type MockMQTTClient struct {
	mu       sync.Mutex
	messages []published
	fail     error
	handlers map[string]mqtt.MessageHandler
}

func newMockMQTT() *MockMQTTClient {
	return &MockMQTTClient{handlers: make(map[string]mqtt.MessageHandler)}
}

func (m *MockMQTTClient) PublishJSON(topic string, v any, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.messages = append(m.messages, published{topic: topic, payload: payload, retained: retained})
	return nil
}

func (m *MockMQTTClient) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[topic] = handler
	return nil
}

func (m *MockMQTTClient) Unsubscribe(topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, topic)
	return nil
}

func (m *MockMQTTClient) deliver(topic, payload string) error {
	m.mu.Lock()
	handler := m.handlers[mqtt.Topics{}.AllCommands()]
	m.mu.Unlock()
	return handler(topic, []byte(payload))
}

func (m *MockMQTTClient) find(topic string) (published, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.topic == topic {
			return msg, true
		}
	}
	return published{}, false
}

type influxWrite struct {
	facet, kind string
	tags        map[string]string
	fields      map[string]any
}

type mockInflux struct {
	mu         sync.Mutex
	events     []influxWrite
	attributes []string
}

func (m *mockInflux) WriteEvent(facet, kind string, tags map[string]string, fields map[string]any) {
	m.mu.Lock()
	m.events = append(m.events, influxWrite{facet: facet, kind: kind, tags: tags, fields: fields})
	m.mu.Unlock()
}

func (m *mockInflux) WriteAttribute(facet, target, attribute string, _ any) {
	m.mu.Lock()
	m.attributes = append(m.attributes, facet+"/"+target+"/"+attribute)
	m.mu.Unlock()
}

// ============================================================================
// Publisher
// ============================================================================

func TestPublisher_EventEnvelope(t *testing.T) {
	client := newMockMQTT()
	p := New(Options{MQTT: client})
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	p.OnHotPlug(1, true)

	msg, ok := client.find("devicesettings/event/hdmiin/hotplug")
	if !ok {
		t.Fatal("event not published")
	}
	if msg.retained {
		t.Error("event published retained")
	}

	var env Envelope
	if err := json.Unmarshal(msg.payload, &env); err != nil {
		t.Fatalf("envelope is not JSON: %v", err)
	}
	if _, err := uuid.Parse(env.ID); err != nil {
		t.Errorf("envelope ID %q is not a UUID", env.ID)
	}
	if env.Facet != "hdmiin" || env.Kind != "hotplug" || env.Target != "HDMI1" {
		t.Errorf("envelope = %+v", env)
	}
	if !env.Timestamp.Equal(fixed) {
		t.Errorf("Timestamp = %v, want %v", env.Timestamp, fixed)
	}
	if env.Payload["connected"] != true {
		t.Errorf("Payload = %v", env.Payload)
	}

	state, ok := client.find("devicesettings/state/hdmiin/HDMI1/hotplug")
	if !ok || !state.retained {
		t.Error("retained port state not published")
	}
}

func TestPublisher_UntargetedEventHasNoState(t *testing.T) {
	client := newMockMQTT()
	p := New(Options{MQTT: client})

	p.OnAVLatency(hal.AVLatency{AudioDelay: 20, VideoDelay: 40})
	p.OnStatus(2, true)

	if len(client.messages) != 2 {
		t.Errorf("published %d messages, want 2 events only", len(client.messages))
	}
}

func TestPublisher_DecoderEvent(t *testing.T) {
	client := newMockMQTT()
	influx := &mockInflux{}
	p := New(Options{MQTT: client, Influx: influx})

	p.OnAVDecoderStatusChanged(hal.DecoderActive)

	msg, ok := client.find("devicesettings/event/diagnostics/av_decoder_status_changed")
	if !ok {
		t.Fatal("decoder event not published")
	}
	var env Envelope
	if err := json.Unmarshal(msg.payload, &env); err != nil {
		t.Fatalf("envelope is not JSON: %v", err)
	}
	if env.Payload["status"] != "ACTIVE" {
		t.Errorf("Payload = %v, want status ACTIVE", env.Payload)
	}

	if len(influx.events) != 1 || influx.events[0].kind != diagnostics.KindDecoderStatusChanged {
		t.Errorf("influx events = %+v", influx.events)
	}
	if influx.events[0].tags["target"] != "decoder" {
		t.Errorf("influx tags = %v", influx.events[0].tags)
	}
}

func TestPublisher_FailuresAreCountedNotReturned(t *testing.T) {
	client := newMockMQTT()
	client.fail = errors.New("broker gone")
	influx := &mockInflux{}
	p := New(Options{MQTT: client, Influx: influx})

	p.OnSignalStatus(0, hal.SignalStable)

	sent, failed := p.Stats()
	if sent != 0 || failed != 2 {
		t.Errorf("Stats() = (%d, %d), want (0, 2)", sent, failed)
	}
	if len(influx.events) != 1 {
		t.Error("influx write skipped after MQTT failure")
	}
}

func TestPublisher_NoSinks(t *testing.T) {
	p := New(Options{})
	p.OnVRRStatus(0, hal.VRRHDMI)
	p.AttributeChanged("fpd", "power", "brightness", 40)
}

func TestPublisher_AttributeChanged(t *testing.T) {
	client := newMockMQTT()
	influx := &mockInflux{}
	p := New(Options{MQTT: client, Influx: influx})

	p.AttributeChanged("fpd", "power", "brightness", 40)

	msg, ok := client.find("devicesettings/state/fpd/power/brightness")
	if !ok || !msg.retained || string(msg.payload) != `{"value":40}` {
		t.Errorf("state message = %+v (found %v)", msg, ok)
	}
	if len(influx.attributes) != 1 || influx.attributes[0] != "fpd/power/brightness" {
		t.Errorf("influx attributes = %v", influx.attributes)
	}
}

// ============================================================================
// Commander
// ============================================================================

type fakeControls struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeControls) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeControls) SetEdidVersion(_ context.Context, p hal.Port, v hal.EdidVersion) error {
	return f.record("edid " + p.String() + " " + v.String())
}

func (f *fakeControls) SetAllmSupport(_ context.Context, p hal.Port, enabled bool) error {
	if enabled {
		return f.record("allm " + p.String() + " on")
	}
	return f.record("allm " + p.String() + " off")
}

func (f *fakeControls) SetVRRSupport(_ context.Context, p hal.Port, _ bool) error {
	return f.record("vrr " + p.String())
}

func (f *fakeControls) SelectPort(_ context.Context, p hal.Port) error {
	return f.record("select " + p.String())
}

func (f *fakeControls) SetBrightness(_ context.Context, ind hal.Indicator, _ int, persistent bool) error {
	if !persistent {
		return f.record("brightness " + string(ind) + " transient")
	}
	return f.record("brightness " + string(ind))
}

func (f *fakeControls) SetState(_ context.Context, ind hal.Indicator, st hal.IndicatorState) error {
	return f.record("state " + string(ind) + " " + st.String())
}

func (f *fakeControls) SetColor(_ context.Context, ind hal.Indicator, c hal.Color) error {
	return f.record("color " + string(ind) + " " + c.String())
}

func newTestCommander(t *testing.T) (*Commander, *MockMQTTClient, *fakeControls, *MockMQTTClient) {
	t.Helper()
	sub := newMockMQTT()
	controls := &fakeControls{}
	recorderSink := newMockMQTT()
	c := NewCommander(CommanderOptions{
		Subscriber: sub,
		QoS:        1,
		HDMIIn:     controls,
		FPD:        controls,
		Recorder:   New(Options{MQTT: recorderSink}),
	})
	if err := c.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return c, sub, controls, recorderSink
}

func TestCommander_Applies(t *testing.T) {
	_, sub, controls, sink := newTestCommander(t)

	commands := []struct {
		topic   string
		payload string
		want    string
	}{
		{"devicesettings/command/hdmiin/HDMI0/edid", "2.0", "edid HDMI0 2.0"},
		{"devicesettings/command/hdmiin/HDMI0/allm", "true", "allm HDMI0 on"},
		{"devicesettings/command/hdmiin/1/vrr", "false", "vrr HDMI1"},
		{"devicesettings/command/hdmiin/HDMI2/select", "", "select HDMI2"},
		{"devicesettings/command/fpd/power/brightness", " 40\n", "brightness power"},
		{"devicesettings/command/fpd/record/state", "on", "state record ON"},
		{"devicesettings/command/fpd/message/color", "#ff0000", "color message #FF0000"},
	}

	for _, cmd := range commands {
		if err := sub.deliver(cmd.topic, cmd.payload); err != nil {
			t.Errorf("%s: error = %v", cmd.topic, err)
		}
	}

	if len(controls.calls) != len(commands) {
		t.Fatalf("calls = %v", controls.calls)
	}
	for i, cmd := range commands {
		if controls.calls[i] != cmd.want {
			t.Errorf("call[%d] = %q, want %q", i, controls.calls[i], cmd.want)
		}
	}

	if msg, ok := sink.find("devicesettings/state/fpd/message/color"); !ok || string(msg.payload) != `{"value":"#FF0000"}` {
		t.Errorf("recorded color = %s (found %v)", msg.payload, ok)
	}
}

func TestCommander_Rejects(t *testing.T) {
	_, sub, controls, sink := newTestCommander(t)

	tests := []struct {
		name    string
		topic   string
		payload string
		wantErr error
	}{
		{"unknown facet", "devicesettings/command/diagnostics/decoder/status", "ACTIVE", ErrUnknownCommand},
		{"unknown attribute", "devicesettings/command/fpd/power/blink", "1", ErrUnknownCommand},
		{"bad port", "devicesettings/command/hdmiin/DVI0/edid", "2.0", hal.ErrInvalidPort},
		{"bad indicator", "devicesettings/command/fpd/clock/state", "ON", hal.ErrInvalidIndicator},
		{"bad edid", "devicesettings/command/hdmiin/HDMI0/edid", "3.0", hal.ErrOutOfRange},
		{"bad brightness", "devicesettings/command/fpd/power/brightness", "bright", hal.ErrOutOfRange},
		{"bad color", "devicesettings/command/fpd/power/color", "blue", hal.ErrOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := sub.deliver(tt.topic, tt.payload); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if len(controls.calls) != 0 {
		t.Errorf("controls called for rejected commands: %v", controls.calls)
	}
	if len(sink.messages) != 0 {
		t.Errorf("rejected commands were recorded: %d messages", len(sink.messages))
	}
}

func TestCommander_FacetErrorNotRecorded(t *testing.T) {
	_, sub, controls, sink := newTestCommander(t)
	controls.err = capability.ErrGateClosed

	err := sub.deliver("devicesettings/command/hdmiin/HDMI0/allm", "true")
	if !errors.Is(err, capability.ErrGateClosed) {
		t.Errorf("error = %v, want ErrGateClosed", err)
	}
	if len(sink.messages) != 0 {
		t.Error("failed command was recorded")
	}
}

func TestCommander_Stop(t *testing.T) {
	c, sub, _, _ := newTestCommander(t)
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if len(sub.handlers) != 0 {
		t.Error("command subscription still active after Stop")
	}
}
