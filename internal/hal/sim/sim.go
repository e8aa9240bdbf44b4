// Package sim is an in-process hardware platform implementing the hal
// interfaces.
//
// It holds hardware state in memory, lets callers drive hardware-originated
// events (hotplug, signal changes, decoder activity) and injects failures per
// operation, so every facet can be run and tested without a device.
package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-devicesettings/internal/hal"
)

// Logger defines the logging interface used by the Platform.
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

// Op names a platform operation for failure injection and call counting.
type Op string

const (
	OpDecoderStatus Op = "decoder.status"

	OpEdidVersion    Op = "hdmiin.edid_version"
	OpSetEdidVersion Op = "hdmiin.set_edid_version"
	OpSetAllmSupport Op = "hdmiin.set_allm_support"
	OpSetVRRSupport  Op = "hdmiin.set_vrr_support"
	OpAllmStatus     Op = "hdmiin.allm_status"
	OpVRRStatus      Op = "hdmiin.vrr_status"
	OpSignalStatus   Op = "hdmiin.signal_status"
	OpConnected      Op = "hdmiin.connected"
	OpSelectPort     Op = "hdmiin.select_port"
	OpVideoMode      Op = "hdmiin.video_mode"
	OpAVLatency      Op = "hdmiin.av_latency"

	OpBrightness    Op = "fpd.brightness"
	OpSetBrightness Op = "fpd.set_brightness"
	OpState         Op = "fpd.state"
	OpSetState      Op = "fpd.set_state"
	OpColor         Op = "fpd.color"
	OpSetColor      Op = "fpd.set_color"
	OpTimeFormat    Op = "fpd.time_format"
	OpSetTimeFormat Op = "fpd.set_time_format"
	OpClockDisplay  Op = "fpd.clock_display"
)

type hdmiPort struct {
	edid        hal.EdidVersion
	allmSupport bool
	vrrSupport  bool
	allmActive  bool
	vrr         hal.VRRType
	signal      hal.SignalStatus
	connected   bool
	content     hal.AVIContentType
}

type led struct {
	brightness int
	state      hal.IndicatorState
	color      hal.Color
}

// Platform is a simulated set-top box. It implements hal.Decoder, hal.HDMIIn
// and hal.FPD.
//
// Thread Safety:
//   - All methods are safe for concurrent use. Callbacks are invoked without
//     the platform lock held.
type Platform struct {
	mu sync.Mutex

	decoder hal.DecoderStatus

	ports     []hdmiPort
	active    hal.Port
	videoMode hal.VideoMode
	latency   hal.AVLatency
	callbacks hal.HDMIInCallbacks

	leds       map[hal.Indicator]*led
	timeFormat hal.TimeFormat
	clock      bool

	failures map[Op]error
	calls    map[Op]int

	logger Logger
}

var (
	_ hal.Decoder = (*Platform)(nil)
	_ hal.HDMIIn  = (*Platform)(nil)
	_ hal.FPD     = (*Platform)(nil)
)

// New creates a Platform with numPorts HDMI inputs, all disconnected and
// advertising EDID 1.4, and every front-panel indicator off, blue and at
// full brightness.
func New(numPorts int, logger Logger) *Platform {
	if logger == nil {
		logger = noopLogger{}
	}
	p := &Platform{
		decoder:   hal.DecoderIdle,
		ports:     make([]hdmiPort, numPorts),
		videoMode: hal.VideoMode{Resolution: "1920x1080", FrameRate: "60"},
		latency:   hal.AVLatency{AudioDelay: 5, VideoDelay: 10},
		leds:      make(map[hal.Indicator]*led, len(hal.Indicators)),
		failures:  make(map[Op]error),
		calls:     make(map[Op]int),
		logger:    logger,
	}
	for i := range p.ports {
		p.ports[i].content = hal.ContentInvalid
	}
	for _, ind := range hal.Indicators {
		p.leds[ind] = &led{brightness: hal.MaxBrightness, state: hal.StateOff, color: hal.ColorBlue}
	}
	return p
}

// Fail makes every subsequent call of op return err. A nil err clears it.
func (p *Platform) Fail(op Op, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		delete(p.failures, op)
		return
	}
	p.failures[op] = err
}

// Calls returns how many times op has been invoked, including failed calls.
func (p *Platform) Calls(op Op) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[op]
}

// enter records a call and returns the injected failure, if any.
// It must be called with p.mu held.
func (p *Platform) enter(op Op) error {
	p.calls[op]++
	if err := p.failures[op]; err != nil {
		return fmt.Errorf("sim %s: %w", op, err)
	}
	return nil
}

// port validates port. It must be called with p.mu held.
func (p *Platform) port(port hal.Port) (*hdmiPort, error) {
	if port < 0 || int(port) >= len(p.ports) {
		return nil, fmt.Errorf("%w: %s", hal.ErrInvalidPort, port)
	}
	return &p.ports[port], nil
}

// led validates ind. It must be called with p.mu held.
func (p *Platform) led(ind hal.Indicator) (*led, error) {
	l, ok := p.leds[ind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", hal.ErrInvalidIndicator, ind)
	}
	return l, nil
}

// ============================================================================
// Decoder
// ============================================================================

// MostActiveDecoderStatus implements hal.Decoder.
func (p *Platform) MostActiveDecoderStatus(context.Context) (hal.DecoderStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter(OpDecoderStatus); err != nil {
		return hal.DecoderIdle, err
	}
	return p.decoder, nil
}

// SetDecoderStatus changes what the decoder reports. There is no callback;
// the change is only visible to pollers.
func (p *Platform) SetDecoderStatus(s hal.DecoderStatus) {
	p.mu.Lock()
	p.decoder = s
	p.mu.Unlock()
}

// ============================================================================
// Activity
// ============================================================================

// Animate drives simulated activity until ctx ends: the decoder cycles
// through idle, active and paused, and the last HDMI port is plugged and
// unplugged. It is meant for running the service without a device.
//
// Returns:
//   - error: nil once ctx ends, or an error if interval is not positive
func (p *Platform) Animate(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("sim: animate interval must be positive, got %v", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	statuses := []hal.DecoderStatus{hal.DecoderActive, hal.DecoderPaused, hal.DecoderActive, hal.DecoderIdle}
	for step := 0; ; step++ {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		p.SetDecoderStatus(statuses[step%len(statuses)])
		if n := p.NumPorts(); n > 0 && step%2 == 0 {
			last := hal.Port(n - 1)
			connected, err := p.Connected(ctx, last)
			if err != nil {
				p.logger.Warn("simulated hot-plug skipped", "port", last, "error", err)
			} else {
				p.PlugIn(last, !connected)
			}
		}
		p.logger.Debug("simulated activity", "step", step)
	}
}
