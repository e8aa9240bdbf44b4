package sim

import (
	"context"

	"github.com/nerrad567/gray-logic-devicesettings/internal/hal"
)

// NumPorts implements hal.HDMIIn.
func (p *Platform) NumPorts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.ports)
}

// SetCallbacks implements hal.HDMIIn.
func (p *Platform) SetCallbacks(cb hal.HDMIInCallbacks) {
	p.mu.Lock()
	p.callbacks = cb
	p.mu.Unlock()
}

// EdidVersion implements hal.HDMIIn.
func (p *Platform) EdidVersion(_ context.Context, port hal.Port) (hal.EdidVersion, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter(OpEdidVersion); err != nil {
		return hal.Edid14, err
	}
	hp, err := p.port(port)
	if err != nil {
		return hal.Edid14, err
	}
	return hp.edid, nil
}

// SetEdidVersion implements hal.HDMIIn.
func (p *Platform) SetEdidVersion(_ context.Context, port hal.Port, v hal.EdidVersion) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter(OpSetEdidVersion); err != nil {
		return err
	}
	hp, err := p.port(port)
	if err != nil {
		return err
	}
	if !v.Valid() {
		return hal.ErrOutOfRange
	}
	hp.edid = v
	return nil
}

// SetAllmSupport implements hal.HDMIIn.
func (p *Platform) SetAllmSupport(_ context.Context, port hal.Port, enabled bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter(OpSetAllmSupport); err != nil {
		return err
	}
	hp, err := p.port(port)
	if err != nil {
		return err
	}
	hp.allmSupport = enabled
	return nil
}

// SetVRRSupport implements hal.HDMIIn.
func (p *Platform) SetVRRSupport(_ context.Context, port hal.Port, enabled bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter(OpSetVRRSupport); err != nil {
		return err
	}
	hp, err := p.port(port)
	if err != nil {
		return err
	}
	hp.vrrSupport = enabled
	return nil
}

// AllmSupport returns the ALLM support bit currently held by the hardware.
func (p *Platform) AllmSupport(port hal.Port) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if hp, err := p.port(port); err == nil {
		return hp.allmSupport
	}
	return false
}

// VRRSupport returns the VRR support bit currently held by the hardware.
func (p *Platform) VRRSupport(port hal.Port) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if hp, err := p.port(port); err == nil {
		return hp.vrrSupport
	}
	return false
}

// AllmStatus implements hal.HDMIIn.
func (p *Platform) AllmStatus(_ context.Context, port hal.Port) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter(OpAllmStatus); err != nil {
		return false, err
	}
	hp, err := p.port(port)
	if err != nil {
		return false, err
	}
	return hp.allmActive, nil
}

// VRRStatus implements hal.HDMIIn.
func (p *Platform) VRRStatus(_ context.Context, port hal.Port) (hal.VRRType, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter(OpVRRStatus); err != nil {
		return hal.VRRNone, err
	}
	hp, err := p.port(port)
	if err != nil {
		return hal.VRRNone, err
	}
	return hp.vrr, nil
}

// SignalStatus implements hal.HDMIIn.
func (p *Platform) SignalStatus(_ context.Context, port hal.Port) (hal.SignalStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter(OpSignalStatus); err != nil {
		return hal.SignalNone, err
	}
	hp, err := p.port(port)
	if err != nil {
		return hal.SignalNone, err
	}
	return hp.signal, nil
}

// Connected implements hal.HDMIIn.
func (p *Platform) Connected(_ context.Context, port hal.Port) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter(OpConnected); err != nil {
		return false, err
	}
	hp, err := p.port(port)
	if err != nil {
		return false, err
	}
	return hp.connected, nil
}

// SelectPort implements hal.HDMIIn. It reports the new active port through
// the Status callback.
func (p *Platform) SelectPort(_ context.Context, port hal.Port) error {
	p.mu.Lock()
	if err := p.enter(OpSelectPort); err != nil {
		p.mu.Unlock()
		return err
	}
	hp, err := p.port(port)
	if err != nil {
		p.mu.Unlock()
		return err
	}
	p.active = port
	presented := hp.connected
	cb := p.callbacks.Status
	p.mu.Unlock()

	if cb != nil {
		cb(port, presented)
	}
	return nil
}

// VideoMode implements hal.HDMIIn.
func (p *Platform) VideoMode(context.Context) (hal.VideoMode, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter(OpVideoMode); err != nil {
		return hal.VideoMode{}, err
	}
	return p.videoMode, nil
}

// AVLatency implements hal.HDMIIn.
func (p *Platform) AVLatency(context.Context) (hal.AVLatency, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enter(OpAVLatency); err != nil {
		return hal.AVLatency{}, err
	}
	return p.latency, nil
}

// ============================================================================
// Hardware-originated events
// ============================================================================

// PlugIn connects or disconnects a source on port and fires HotPlug. The
// signal status follows silently (STABLE when connected, NO_SIGNAL when not);
// it is only observable by polling, as on platforms without a signal callback.
func (p *Platform) PlugIn(port hal.Port, connected bool) {
	p.mu.Lock()
	hp, err := p.port(port)
	if err != nil {
		p.mu.Unlock()
		return
	}
	hp.connected = connected
	if connected {
		hp.signal = hal.SignalStable
	} else {
		hp.signal = hal.SignalNone
		hp.allmActive = false
		hp.vrr = hal.VRRNone
	}
	cb := p.callbacks.HotPlug
	p.mu.Unlock()

	p.logger.Debug("simulated hotplug", "port", port, "connected", connected)
	if cb != nil {
		cb(port, connected)
	}
}

// SetSignal changes the signal status on port. When notify is true the
// SignalStatus callback fires as well.
func (p *Platform) SetSignal(port hal.Port, s hal.SignalStatus, notify bool) {
	p.mu.Lock()
	hp, err := p.port(port)
	if err != nil {
		p.mu.Unlock()
		return
	}
	hp.signal = s
	cb := p.callbacks.SignalStatus
	p.mu.Unlock()

	if notify && cb != nil {
		cb(port, s)
	}
}

// SetAllmActive changes the ALLM status reported by the source and fires AllmStatus.
func (p *Platform) SetAllmActive(port hal.Port, active bool) {
	p.mu.Lock()
	hp, err := p.port(port)
	if err != nil {
		p.mu.Unlock()
		return
	}
	hp.allmActive = active
	cb := p.callbacks.AllmStatus
	p.mu.Unlock()

	if cb != nil {
		cb(port, active)
	}
}

// SetVRR changes the negotiated VRR mode and fires VRRStatus.
func (p *Platform) SetVRR(port hal.Port, t hal.VRRType) {
	p.mu.Lock()
	hp, err := p.port(port)
	if err != nil {
		p.mu.Unlock()
		return
	}
	hp.vrr = t
	cb := p.callbacks.VRRStatus
	p.mu.Unlock()

	if cb != nil {
		cb(port, t)
	}
}

// SetVideoMode changes the detected video mode and fires VideoMode.
func (p *Platform) SetVideoMode(port hal.Port, mode hal.VideoMode) {
	p.mu.Lock()
	p.videoMode = mode
	cb := p.callbacks.VideoMode
	p.mu.Unlock()

	if cb != nil {
		cb(port, mode)
	}
}

// SetContentType changes the AVI content type and fires AVIContentType.
func (p *Platform) SetContentType(port hal.Port, c hal.AVIContentType) {
	p.mu.Lock()
	if hp, err := p.port(port); err == nil {
		hp.content = c
	}
	cb := p.callbacks.AVIContentType
	p.mu.Unlock()

	if cb != nil {
		cb(port, c)
	}
}

// SetLatency changes the reported A/V latency and fires AVLatency.
func (p *Platform) SetLatency(l hal.AVLatency) {
	p.mu.Lock()
	p.latency = l
	cb := p.callbacks.AVLatency
	p.mu.Unlock()

	if cb != nil {
		cb(l)
	}
}
