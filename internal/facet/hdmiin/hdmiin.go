// Package hdmiin implements the HDMI input facet.
//
// Each port carries an EDID version (1.4 or 2.0) and two support bits, ALLM
// and VRR, that the hardware only accepts while the port advertises EDID 2.0.
// All three are persisted. Hardware callbacks (hotplug, signal, ALLM, VRR,
// video mode, content type, latency) are turned into events and delivered to
// registered observers on the shared work queue.
//
// Signal status is also polled per port, because some platforms never report
// it through a callback.
package hdmiin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-devicesettings/internal/capability"
	"github.com/nerrad567/gray-logic-devicesettings/internal/hal"
	"github.com/nerrad567/gray-logic-devicesettings/internal/notify"
	"github.com/nerrad567/gray-logic-devicesettings/internal/persist"
)

// Name identifies the facet in logs and published events.
const Name = "hdmiin"

// ReassertPolicy decides when cached ALLM/VRR bits are pushed back to
// hardware after an EDID version change.
type ReassertPolicy string

const (
	// ReassertOnTransition re-asserts only when the version moves to 2.0
	// from something else.
	ReassertOnTransition ReassertPolicy = "on_transition"

	// ReassertAlways re-asserts on every successful set to 2.0.
	ReassertAlways ReassertPolicy = "always"
)

// Logger defines the logging interface used by the facet.
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

// Options configures a Service.
type Options struct {
	Hardware hal.HDMIIn
	Store    persist.Store
	Queue    notify.Submitter

	// Ports is the number of inputs managed; zero means all the hardware has.
	Ports int

	ReassertPolicy ReassertPolicy

	// SignalPollInterval enables per-port signal polling when positive.
	SignalPollInterval time.Duration

	Logger Logger
}

// PortStatus is a snapshot of one input.
type PortStatus struct {
	Port        hal.Port
	Connected   bool
	Signal      hal.SignalStatus
	EdidVersion hal.EdidVersion
	AllmSupport bool
	VRRSupport  bool
	AllmActive  bool
	VRR         hal.VRRType
}

// Service is the HDMI input facet.
type Service struct {
	hw     hal.HDMIIn
	policy ReassertPolicy
	logger Logger

	registry   *notify.Registry[Observer]
	dispatcher *notify.Dispatcher[Observer]

	ports []*portState

	videoMode *capability.Cached[hal.VideoMode]
	latency   *capability.Cached[hal.AVLatency]
}

// New creates the facet. Persisted values are not loaded and hardware
// callbacks are not installed until Start.
func New(opts Options) (*Service, error) {
	if opts.Hardware == nil || opts.Store == nil || opts.Queue == nil {
		return nil, errors.New("hdmiin: hardware, store and queue are required")
	}
	switch opts.ReassertPolicy {
	case "":
		opts.ReassertPolicy = ReassertOnTransition
	case ReassertOnTransition, ReassertAlways:
	default:
		return nil, fmt.Errorf("hdmiin: unknown reassert policy %q", opts.ReassertPolicy)
	}
	available := opts.Hardware.NumPorts()
	if opts.Ports <= 0 || opts.Ports > available {
		opts.Ports = available
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	s := &Service{
		hw:       opts.Hardware,
		policy:   opts.ReassertPolicy,
		logger:   logger,
		registry: notify.NewRegistry[Observer](),
	}
	s.dispatcher = notify.NewDispatcher(Name, s.registry, opts.Queue, logger)

	for i := range opts.Ports {
		p, err := newPortState(hal.Port(i), opts.Hardware, opts.Store, logger)
		if err != nil {
			return nil, fmt.Errorf("hdmiin: %w", err)
		}
		if opts.SignalPollInterval > 0 {
			port := p.id
			onChange := func(_, next hal.SignalStatus) {
				s.dispatcher.Dispatch(signalStatusEvent{port: port, status: next})
			}
			if err := p.enableSignalPolling(opts.Hardware, opts.SignalPollInterval, onChange, logger); err != nil {
				return nil, fmt.Errorf("hdmiin: %w", err)
			}
		}
		s.ports = append(s.ports, p)
	}

	var err error
	s.videoMode, err = capability.NewCached(capability.CachedConfig[hal.VideoMode]{
		Name:   "videoMode",
		Read:   opts.Hardware.VideoMode,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("hdmiin: %w", err)
	}
	s.latency, err = capability.NewCached(capability.CachedConfig[hal.AVLatency]{
		Name:   "avLatency",
		Read:   opts.Hardware.AVLatency,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("hdmiin: %w", err)
	}

	return s, nil
}

// Start restores persisted port settings to hardware, installs the hardware
// callbacks and starts signal polling.
func (s *Service) Start(ctx context.Context) {
	for _, p := range s.ports {
		p.restore(ctx, s.logger)
	}
	s.hw.SetCallbacks(s.callbacks())
	for _, p := range s.ports {
		if p.signalLoop != nil {
			p.signalLoop.Start()
		}
	}
	s.logger.Info("hdmi input facet started", "ports", len(s.ports), "reassert_policy", s.policy)
}

// Close removes the hardware callbacks and stops every signal poll loop,
// waiting for each to exit.
func (s *Service) Close() {
	s.hw.SetCallbacks(hal.HDMIInCallbacks{})
	for _, p := range s.ports {
		if p.signalLoop != nil {
			p.signalLoop.Stop()
		}
	}
}

func (s *Service) callbacks() hal.HDMIInCallbacks {
	return hal.HDMIInCallbacks{
		HotPlug: func(port hal.Port, connected bool) {
			s.dispatcher.Dispatch(hotPlugEvent{port: port, connected: connected})
			s.wakeSignalLoop(port)
		},
		SignalStatus: func(port hal.Port, status hal.SignalStatus) {
			if s.wakeSignalLoop(port) {
				return
			}
			s.dispatcher.Dispatch(signalStatusEvent{port: port, status: status})
		},
		Status: func(active hal.Port, presented bool) {
			s.dispatcher.Dispatch(statusEvent{active: active, presented: presented})
		},
		VideoMode: func(port hal.Port, mode hal.VideoMode) {
			s.dispatcher.Dispatch(videoModeEvent{port: port, mode: mode})
		},
		AllmStatus: func(port hal.Port, active bool) {
			s.dispatcher.Dispatch(allmStatusEvent{port: port, active: active})
		},
		AVIContentType: func(port hal.Port, content hal.AVIContentType) {
			s.dispatcher.Dispatch(contentTypeEvent{port: port, content: content})
		},
		AVLatency: func(latency hal.AVLatency) {
			s.dispatcher.Dispatch(latencyEvent{latency: latency})
		},
		VRRStatus: func(port hal.Port, vrr hal.VRRType) {
			s.dispatcher.Dispatch(vrrStatusEvent{port: port, vrr: vrr})
		},
	}
}

// wakeSignalLoop asks the port's signal loop to sample now. It reports
// false when the port has no loop, in which case the loop cannot report
// the change and the caller must.
func (s *Service) wakeSignalLoop(port hal.Port) bool {
	p, err := s.port(port)
	if err != nil || p.signalLoop == nil {
		return false
	}
	p.signalLoop.Signal()
	return true
}

func (s *Service) port(port hal.Port) (*portState, error) {
	if port < 0 || int(port) >= len(s.ports) {
		return nil, fmt.Errorf("%w: %s", hal.ErrInvalidPort, port)
	}
	return s.ports[port], nil
}

// Register adds an observer.
func (s *Service) Register(o Observer) error {
	if err := s.registry.Register(o); err != nil {
		s.logger.Warn("hdmiin observer not registered", "error", err)
		return err
	}
	return nil
}

// Unregister removes an observer.
func (s *Service) Unregister(o Observer) error {
	if err := s.registry.Unregister(o); err != nil {
		s.logger.Warn("hdmiin observer not unregistered", "error", err)
		return err
	}
	return nil
}

// NumPorts returns the number of managed inputs.
func (s *Service) NumPorts() int {
	return len(s.ports)
}

// Ports lists the managed inputs.
func (s *Service) Ports() []hal.Port {
	out := make([]hal.Port, len(s.ports))
	for i, p := range s.ports {
		out[i] = p.id
	}
	return out
}

// Policy returns the configured re-assertion policy.
func (s *Service) Policy() ReassertPolicy {
	return s.policy
}

// ============================================================================
// EDID and gated support bits
// ============================================================================

// GetEdidVersion reads the EDID version from hardware, falling back to the
// cached value if the read fails. Reading 2.0 after another version
// re-asserts the cached ALLM and VRR support bits.
func (s *Service) GetEdidVersion(ctx context.Context, port hal.Port) (hal.EdidVersion, error) {
	p, err := s.port(port)
	if err != nil {
		return hal.Edid14, err
	}
	return p.readEdidVersion(ctx, s.logger), nil
}

// SetEdidVersion writes and persists the EDID version of port.
//
// Parameters:
//   - ctx: Context for the hardware and storage calls
//   - port: Input to change
//   - v: New version
//
// Returns:
//   - error: hal.ErrInvalidPort, capability.ErrInvalidValue or
//     capability.ErrHardware; re-assertion failures are only logged
func (s *Service) SetEdidVersion(ctx context.Context, port hal.Port, v hal.EdidVersion) error {
	p, err := s.port(port)
	if err != nil {
		return err
	}
	return p.setEdidVersion(ctx, v, s.policy, s.logger)
}

// GetAllmSupport returns the cached ALLM support bit.
func (s *Service) GetAllmSupport(port hal.Port) (bool, error) {
	p, err := s.port(port)
	if err != nil {
		return false, err
	}
	return p.allm.Get(), nil
}

// SetAllmSupport writes the ALLM support bit. It returns
// capability.ErrGateClosed unless the port advertises EDID 2.0.
func (s *Service) SetAllmSupport(ctx context.Context, port hal.Port, enabled bool) error {
	p, err := s.port(port)
	if err != nil {
		return err
	}
	return p.setAllmSupport(ctx, enabled)
}

// GetVRRSupport returns the cached VRR support bit.
func (s *Service) GetVRRSupport(port hal.Port) (bool, error) {
	p, err := s.port(port)
	if err != nil {
		return false, err
	}
	return p.vrr.Get(), nil
}

// SetVRRSupport writes the VRR support bit. It returns
// capability.ErrGateClosed unless the port advertises EDID 2.0.
func (s *Service) SetVRRSupport(ctx context.Context, port hal.Port, enabled bool) error {
	p, err := s.port(port)
	if err != nil {
		return err
	}
	return p.setVRRSupport(ctx, enabled)
}

// ============================================================================
// Live status
// ============================================================================

// GetAllmStatus reports whether the source currently requests ALLM.
func (s *Service) GetAllmStatus(ctx context.Context, port hal.Port) (bool, error) {
	p, err := s.port(port)
	if err != nil {
		return false, err
	}
	return p.allmStatus.Get(ctx), nil
}

// GetVRRStatus reports the VRR mode currently negotiated on port.
func (s *Service) GetVRRStatus(ctx context.Context, port hal.Port) (hal.VRRType, error) {
	p, err := s.port(port)
	if err != nil {
		return hal.VRRNone, err
	}
	return p.vrrStatus.Get(ctx), nil
}

// GetSignalStatus reads the signal status of port.
func (s *Service) GetSignalStatus(ctx context.Context, port hal.Port) (hal.SignalStatus, error) {
	p, err := s.port(port)
	if err != nil {
		return hal.SignalNone, err
	}
	return p.signal.Get(ctx), nil
}

// Status returns a snapshot of port. Live values fall back to their last
// known reading if hardware does not answer.
func (s *Service) Status(ctx context.Context, port hal.Port) (PortStatus, error) {
	p, err := s.port(port)
	if err != nil {
		return PortStatus{}, err
	}
	return PortStatus{
		Port:        p.id,
		Connected:   p.connected.Get(ctx),
		Signal:      p.signal.Get(ctx),
		EdidVersion: p.readEdidVersion(ctx, s.logger),
		AllmSupport: p.allm.Get(),
		VRRSupport:  p.vrr.Get(),
		AllmActive:  p.allmStatus.Get(ctx),
		VRR:         p.vrrStatus.Get(ctx),
	}, nil
}

// SelectPort makes port the presented input. Observers hear about it
// through the Status event.
func (s *Service) SelectPort(ctx context.Context, port hal.Port) error {
	if _, err := s.port(port); err != nil {
		return err
	}
	if err := s.hw.SelectPort(ctx, port); err != nil {
		s.logger.Error("port selection failed", "port", port, "error", err)
		return fmt.Errorf("select %s: %w: %w", port, capability.ErrHardware, err)
	}
	return nil
}

// VideoMode returns the video mode of the presented input.
func (s *Service) VideoMode(ctx context.Context) hal.VideoMode {
	return s.videoMode.Get(ctx)
}

// AVLatency returns the audio and video latency of the presented input.
func (s *Service) AVLatency(ctx context.Context) hal.AVLatency {
	return s.latency.Get(ctx)
}
