// Package diagnostics implements the device diagnostics facet: it watches the
// most active A/V decoder and notifies observers when its status changes.
//
// The decoder has no change callback, so a poll loop samples it (every 30
// seconds by default) and dispatches an event only when the status differs
// from the last observed one.
package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-devicesettings/internal/capability"
	"github.com/nerrad567/gray-logic-devicesettings/internal/hal"
	"github.com/nerrad567/gray-logic-devicesettings/internal/notify"
	"github.com/nerrad567/gray-logic-devicesettings/internal/poll"
)

// Name identifies the facet in logs and published events.
const Name = "diagnostics"

// DefaultPollInterval is how often the decoder is sampled when not configured.
const DefaultPollInterval = 30 * time.Second

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

// Observer receives diagnostics notifications. Implementations must be
// comparable (use a pointer receiver).
type Observer interface {
	OnAVDecoderStatusChanged(status hal.DecoderStatus)
}

// KindDecoderStatusChanged is the event kind for decoder status changes.
const KindDecoderStatusChanged = "av_decoder_status_changed"

// DecoderStatusChanged is dispatched when the decoder status changes.
type DecoderStatusChanged struct {
	Status hal.DecoderStatus
}

// Kind implements notify.Event.
func (DecoderStatusChanged) Kind() string { return KindDecoderStatusChanged }

// Deliver implements notify.Event.
func (e DecoderStatusChanged) Deliver(o Observer) { o.OnAVDecoderStatusChanged(e.Status) }

// Options configures a Service.
type Options struct {
	Decoder      hal.Decoder
	Queue        notify.Submitter
	PollInterval time.Duration
	Logger       Logger
}

// Service is the diagnostics facet.
type Service struct {
	registry   *notify.Registry[Observer]
	dispatcher *notify.Dispatcher[Observer]
	loop       *poll.Loop[hal.DecoderStatus]
	status     *capability.Cached[hal.DecoderStatus]
	logger     Logger
}

// New creates the facet. The poll loop does not run until Start.
func New(opts Options) (*Service, error) {
	if opts.Decoder == nil || opts.Queue == nil {
		return nil, errors.New("diagnostics: decoder and queue are required")
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	s := &Service{
		registry: notify.NewRegistry[Observer](),
		logger:   logger,
	}
	s.dispatcher = notify.NewDispatcher(Name, s.registry, opts.Queue, logger)

	status, err := capability.NewCached(capability.CachedConfig[hal.DecoderStatus]{
		Name:    "decoder.status",
		Default: hal.DecoderIdle,
		Read:    opts.Decoder.MostActiveDecoderStatus,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("diagnostics: %w", err)
	}
	s.status = status

	loop, err := poll.New(poll.Config[hal.DecoderStatus]{
		Name:     "decoder",
		Interval: opts.PollInterval,
		Initial:  hal.DecoderIdle,
		Query:    opts.Decoder.MostActiveDecoderStatus,
		OnChange: s.onDecoderChange,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("diagnostics: %w", err)
	}
	s.loop = loop

	return s, nil
}

func (s *Service) onDecoderChange(prev, next hal.DecoderStatus) {
	s.logger.Info("decoder status changed", "from", prev, "to", next)
	s.dispatcher.Dispatch(DecoderStatusChanged{Status: next})
}

// Start begins polling the decoder.
func (s *Service) Start() {
	s.loop.Start()
}

// Close stops polling and waits for the poll goroutine to exit.
func (s *Service) Close() {
	s.loop.Stop()
}

// Register adds an observer. Registering the same observer twice is
// reported and logged but otherwise harmless.
func (s *Service) Register(o Observer) error {
	if err := s.registry.Register(o); err != nil {
		s.logger.Warn("diagnostics observer not registered", "error", err)
		return err
	}
	return nil
}

// Unregister removes an observer.
func (s *Service) Unregister(o Observer) error {
	if err := s.registry.Unregister(o); err != nil {
		s.logger.Warn("diagnostics observer not unregistered", "error", err)
		return err
	}
	return nil
}

// GetAVDecoderStatus reads the decoder status from hardware. If the read
// fails, the last known status is returned.
func (s *Service) GetAVDecoderStatus(ctx context.Context) hal.DecoderStatus {
	return s.status.Get(ctx)
}

// LastObserved returns the status most recently seen by the poll loop.
func (s *Service) LastObserved() hal.DecoderStatus {
	return s.loop.Last()
}

// Refresh asks the poll loop to sample now instead of waiting for the interval.
func (s *Service) Refresh() {
	s.loop.Signal()
}

// Running reports whether the poll loop is running.
func (s *Service) Running() bool {
	return s.loop.State() == poll.StateRunning
}
