package sim

import (
	"context"
	"fmt"

	"github.com/nerrad567/gray-logic-devicesettings/internal/hal"
)

// Brightness implements hal.FPD.
func (p *Platform) Brightness(_ context.Context, ind hal.Indicator) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter(OpBrightness); err != nil {
		return 0, err
	}
	l, err := p.led(ind)
	if err != nil {
		return 0, err
	}
	return l.brightness, nil
}

// SetBrightness implements hal.FPD.
func (p *Platform) SetBrightness(_ context.Context, ind hal.Indicator, v int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter(OpSetBrightness); err != nil {
		return err
	}
	l, err := p.led(ind)
	if err != nil {
		return err
	}
	if v < hal.MinBrightness || v > hal.MaxBrightness {
		return fmt.Errorf("%w: brightness %d", hal.ErrOutOfRange, v)
	}
	l.brightness = v
	return nil
}

// State implements hal.FPD.
func (p *Platform) State(_ context.Context, ind hal.Indicator) (hal.IndicatorState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter(OpState); err != nil {
		return hal.StateOff, err
	}
	l, err := p.led(ind)
	if err != nil {
		return hal.StateOff, err
	}
	return l.state, nil
}

// SetState implements hal.FPD.
func (p *Platform) SetState(_ context.Context, ind hal.Indicator, s hal.IndicatorState) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter(OpSetState); err != nil {
		return err
	}
	l, err := p.led(ind)
	if err != nil {
		return err
	}
	l.state = s
	return nil
}

// Color implements hal.FPD.
func (p *Platform) Color(_ context.Context, ind hal.Indicator) (hal.Color, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter(OpColor); err != nil {
		return 0, err
	}
	l, err := p.led(ind)
	if err != nil {
		return 0, err
	}
	return l.color, nil
}

// SetColor implements hal.FPD.
func (p *Platform) SetColor(_ context.Context, ind hal.Indicator, c hal.Color) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter(OpSetColor); err != nil {
		return err
	}
	l, err := p.led(ind)
	if err != nil {
		return err
	}
	if c > hal.MaxColor {
		return fmt.Errorf("%w: color %s", hal.ErrOutOfRange, c)
	}
	l.color = c
	return nil
}

// TimeFormat implements hal.FPD.
func (p *Platform) TimeFormat(context.Context) (hal.TimeFormat, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter(OpTimeFormat); err != nil {
		return hal.TimeFormat12Hour, err
	}
	return p.timeFormat, nil
}

// SetTimeFormat implements hal.FPD.
func (p *Platform) SetTimeFormat(_ context.Context, f hal.TimeFormat) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter(OpSetTimeFormat); err != nil {
		return err
	}
	p.timeFormat = f
	return nil
}

// SetClockDisplay implements hal.FPD.
func (p *Platform) SetClockDisplay(_ context.Context, enabled bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter(OpClockDisplay); err != nil {
		return err
	}
	p.clock = enabled
	return nil
}

// ClockDisplay reports whether the front-panel clock is enabled.
func (p *Platform) ClockDisplay() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clock
}
