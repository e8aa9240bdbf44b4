// Package fpd implements the front-panel display facet: brightness, state
// and color of each indicator LED, plus the clock format.
//
// Reads go to hardware and fall back to the last known value when the
// hardware does not answer. Brightness and clock format survive restarts.
// The front panel raises no events.
package fpd

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/gray-logic-devicesettings/internal/capability"
	"github.com/nerrad567/gray-logic-devicesettings/internal/hal"
	"github.com/nerrad567/gray-logic-devicesettings/internal/persist"
)

// Name identifies the facet in logs.
const Name = "fpd"

// Keys under which settings are persisted.
const timeFormatKey = "FPD.timeformat"

func brightnessKey(ind hal.Indicator) string {
	return fmt.Sprintf("FPD.%s.brightness", ind)
}

var (
	brightnessCodec = capability.IntCodec
	timeFormatCodec = capability.EnumCodec(map[hal.TimeFormat]string{
		hal.TimeFormat12Hour: "12_HOUR",
		hal.TimeFormat24Hour: "24_HOUR",
	})
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
	Hardware hal.FPD
	Store    persist.Store

	// Indicators limits the managed LEDs; empty means all of hal.Indicators.
	Indicators []hal.Indicator

	Logger Logger
}

type indicator struct {
	brightness *capability.Cached[int]
	state      *capability.Cached[hal.IndicatorState]
	color      *capability.Cached[hal.Color]
}

// Settings is a snapshot of one indicator.
type Settings struct {
	Indicator  hal.Indicator
	Brightness int
	State      hal.IndicatorState
	Color      hal.Color
}

// Service is the front-panel display facet.
type Service struct {
	logger     Logger
	order      []hal.Indicator
	indicators map[hal.Indicator]*indicator

	timeFormat   *capability.Cached[hal.TimeFormat]
	clockDisplay *capability.Cached[bool]
}

// New creates the facet. Persisted values are applied by Start.
func New(opts Options) (*Service, error) {
	if opts.Hardware == nil || opts.Store == nil {
		return nil, errors.New("fpd: hardware and store are required")
	}
	if len(opts.Indicators) == 0 {
		opts.Indicators = hal.Indicators
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	s := &Service{
		logger:     logger,
		indicators: make(map[hal.Indicator]*indicator, len(opts.Indicators)),
	}
	hw := opts.Hardware

	for _, name := range opts.Indicators {
		ind, err := hal.ParseIndicator(string(name))
		if err != nil {
			return nil, fmt.Errorf("fpd: %w", err)
		}
		if _, dup := s.indicators[ind]; dup {
			continue
		}
		led, err := newIndicator(ind, hw, opts.Store, logger)
		if err != nil {
			return nil, fmt.Errorf("fpd: %w", err)
		}
		s.indicators[ind] = led
		s.order = append(s.order, ind)
	}

	var err error
	s.timeFormat, err = capability.NewCached(capability.CachedConfig[hal.TimeFormat]{
		Name:    timeFormatKey,
		Default: hal.TimeFormat12Hour,
		Read:    hw.TimeFormat,
		Write:   hw.SetTimeFormat,
		Validate: func(f hal.TimeFormat) error {
			if f != hal.TimeFormat12Hour && f != hal.TimeFormat24Hour {
				return fmt.Errorf("%w: time format %d", hal.ErrOutOfRange, int(f))
			}
			return nil
		},
		Store:  opts.Store,
		Key:    timeFormatKey,
		Codec:  timeFormatCodec,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("fpd: %w", err)
	}

	s.clockDisplay, err = capability.NewCached(capability.CachedConfig[bool]{
		Name:   "FPD.clockDisplay",
		Write:  hw.SetClockDisplay,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("fpd: %w", err)
	}

	return s, nil
}

func newIndicator(ind hal.Indicator, hw hal.FPD, store persist.Store, logger Logger) (*indicator, error) {
	brightness, err := capability.NewCached(capability.CachedConfig[int]{
		Name:    string(ind) + ".brightness",
		Default: hal.MaxBrightness,
		Read: func(ctx context.Context) (int, error) {
			return hw.Brightness(ctx, ind)
		},
		Write: func(ctx context.Context, v int) error {
			return hw.SetBrightness(ctx, ind, v)
		},
		Validate: func(v int) error {
			if v < hal.MinBrightness || v > hal.MaxBrightness {
				return fmt.Errorf("%w: brightness %d not in %d..%d", hal.ErrOutOfRange, v, hal.MinBrightness, hal.MaxBrightness)
			}
			return nil
		},
		Store:  store,
		Key:    brightnessKey(ind),
		Codec:  brightnessCodec,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	state, err := capability.NewCached(capability.CachedConfig[hal.IndicatorState]{
		Name:    string(ind) + ".state",
		Default: hal.StateOff,
		Read: func(ctx context.Context) (hal.IndicatorState, error) {
			return hw.State(ctx, ind)
		},
		Write: func(ctx context.Context, st hal.IndicatorState) error {
			return hw.SetState(ctx, ind, st)
		},
		Validate: func(st hal.IndicatorState) error {
			if st != hal.StateOff && st != hal.StateOn {
				return fmt.Errorf("%w: state %d", hal.ErrOutOfRange, int(st))
			}
			return nil
		},
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	color, err := capability.NewCached(capability.CachedConfig[hal.Color]{
		Name:    string(ind) + ".color",
		Default: hal.ColorBlue,
		Read: func(ctx context.Context) (hal.Color, error) {
			return hw.Color(ctx, ind)
		},
		Write: func(ctx context.Context, c hal.Color) error {
			return hw.SetColor(ctx, ind, c)
		},
		Validate: func(c hal.Color) error {
			if c > hal.MaxColor {
				return fmt.Errorf("%w: color %#x", hal.ErrOutOfRange, uint32(c))
			}
			return nil
		},
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	return &indicator{brightness: brightness, state: state, color: color}, nil
}

// Start loads persisted brightness and clock format and applies them to
// hardware. Failures are logged; the facet keeps running on its cache.
func (s *Service) Start(ctx context.Context) {
	for _, ind := range s.order {
		led := s.indicators[ind]
		v := led.brightness.LoadFromPersistence(ctx)
		if err := led.brightness.Set(ctx, v); err != nil {
			s.logger.Warn("persisted brightness not applied", "indicator", ind, "brightness", v, "error", err)
		}
	}

	f := s.timeFormat.LoadFromPersistence(ctx)
	if err := s.timeFormat.Set(ctx, f); err != nil {
		s.logger.Warn("persisted time format not applied", "time_format", f, "error", err)
	}

	s.logger.Info("front panel facet started", "indicators", len(s.order))
}

// Close is a no-op; the front panel runs no background work.
func (s *Service) Close() {}

// Indicators lists the managed indicators in configuration order.
func (s *Service) Indicators() []hal.Indicator {
	return append([]hal.Indicator(nil), s.order...)
}

func (s *Service) indicator(ind hal.Indicator) (*indicator, error) {
	led, ok := s.indicators[ind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", hal.ErrInvalidIndicator, ind)
	}
	return led, nil
}

// GetBrightness reads the brightness of ind, falling back to the cached
// value if the hardware read fails.
func (s *Service) GetBrightness(ctx context.Context, ind hal.Indicator) (int, error) {
	led, err := s.indicator(ind)
	if err != nil {
		return 0, err
	}
	return led.brightness.Get(ctx), nil
}

// SetBrightness sets the brightness of ind.
//
// Parameters:
//   - ctx: Context for the hardware and storage calls
//   - ind: Indicator to change
//   - v: Brightness, 0 to 100
//   - persistent: Also save v so it is restored at next start
//
// Returns:
//   - error: hal.ErrInvalidIndicator, hal.ErrOutOfRange (wrapped in
//     capability.ErrInvalidValue) or capability.ErrHardware
func (s *Service) SetBrightness(ctx context.Context, ind hal.Indicator, v int, persistent bool) error {
	led, err := s.indicator(ind)
	if err != nil {
		return err
	}
	if persistent {
		return led.brightness.SetPersistent(ctx, v)
	}
	return led.brightness.Set(ctx, v)
}

// GetState reads whether ind is lit.
func (s *Service) GetState(ctx context.Context, ind hal.Indicator) (hal.IndicatorState, error) {
	led, err := s.indicator(ind)
	if err != nil {
		return hal.StateOff, err
	}
	return led.state.Get(ctx), nil
}

// SetState turns ind on or off.
func (s *Service) SetState(ctx context.Context, ind hal.Indicator, st hal.IndicatorState) error {
	led, err := s.indicator(ind)
	if err != nil {
		return err
	}
	return led.state.Set(ctx, st)
}

// GetColor reads the color of ind.
func (s *Service) GetColor(ctx context.Context, ind hal.Indicator) (hal.Color, error) {
	led, err := s.indicator(ind)
	if err != nil {
		return hal.ColorBlue, err
	}
	return led.color.Get(ctx), nil
}

// SetColor sets the color of ind.
func (s *Service) SetColor(ctx context.Context, ind hal.Indicator, c hal.Color) error {
	led, err := s.indicator(ind)
	if err != nil {
		return err
	}
	return led.color.Set(ctx, c)
}

// Settings returns a snapshot of ind.
func (s *Service) Settings(ctx context.Context, ind hal.Indicator) (Settings, error) {
	led, err := s.indicator(ind)
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		Indicator:  ind,
		Brightness: led.brightness.Get(ctx),
		State:      led.state.Get(ctx),
		Color:      led.color.Get(ctx),
	}, nil
}

// GetTimeFormat reads the clock format.
func (s *Service) GetTimeFormat(ctx context.Context) hal.TimeFormat {
	return s.timeFormat.Get(ctx)
}

// SetTimeFormat sets and persists the clock format.
func (s *Service) SetTimeFormat(ctx context.Context, f hal.TimeFormat) error {
	return s.timeFormat.SetPersistent(ctx, f)
}

// SetClockDisplay shows or hides the clock.
func (s *Service) SetClockDisplay(ctx context.Context, enabled bool) error {
	return s.clockDisplay.Set(ctx, enabled)
}

// ClockDisplay returns the last clock display setting written.
func (s *Service) ClockDisplay() bool {
	return s.clockDisplay.Cached()
}
