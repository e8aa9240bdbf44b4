package hdmiin

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-devicesettings/internal/capability"
	"github.com/nerrad567/gray-logic-devicesettings/internal/hal"
	"github.com/nerrad567/gray-logic-devicesettings/internal/persist"
	"github.com/nerrad567/gray-logic-devicesettings/internal/poll"
)

// Persisted values of the EDID version.
const (
	edidName14 = "HDMI_EDID_VER_14"
	edidName20 = "HDMI_EDID_VER_20"
)

var edidCodec = capability.EnumCodec(map[hal.EdidVersion]string{
	hal.Edid14: edidName14,
	hal.Edid20: edidName20,
})

// Storage keys. The spelling matches what earlier firmware persisted.
func edidKey(p hal.Port) string { return fmt.Sprintf("%s.edidversion", p) }
func allmKey(p hal.Port) string { return fmt.Sprintf("%s.edidallmEnable", p) }
func vrrKey(p hal.Port) string  { return fmt.Sprintf("%s.vrrSupport", p) }

// portState holds the attributes of one HDMI input.
type portState struct {
	id hal.Port

	// edidMu orders EDID changes against ALLM/VRR writes: SetEdidVersion
	// holds it exclusively across the write and the re-assertion, gated
	// writes hold it shared. It is always taken before any attribute lock.
	edidMu sync.RWMutex

	edid *capability.Cached[hal.EdidVersion]
	allm *capability.Gated[bool]
	vrr  *capability.Gated[bool]

	allmStatus *capability.Cached[bool]
	vrrStatus  *capability.Cached[hal.VRRType]
	signal     *capability.Cached[hal.SignalStatus]
	connected  *capability.Cached[bool]

	// signalLoop is nil when signal polling is disabled.
	signalLoop *poll.Loop[hal.SignalStatus]
}

func newPortState(id hal.Port, hw hal.HDMIIn, store persist.Store, logger Logger) (*portState, error) {
	p := &portState{id: id}
	var err error

	p.edid, err = capability.NewCached(capability.CachedConfig[hal.EdidVersion]{
		Name:    edidKey(id),
		Default: hal.Edid14,
		Read: func(ctx context.Context) (hal.EdidVersion, error) {
			return hw.EdidVersion(ctx, id)
		},
		Write: func(ctx context.Context, v hal.EdidVersion) error {
			return hw.SetEdidVersion(ctx, id, v)
		},
		Validate: func(v hal.EdidVersion) error {
			if !v.Valid() {
				return fmt.Errorf("%w: EDID version %d", hal.ErrOutOfRange, int(v))
			}
			return nil
		},
		Store:  store,
		Key:    edidKey(id),
		Codec:  edidCodec,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	gate := func() bool { return p.edid.Cached() == hal.Edid20 }

	p.allm, err = capability.NewGated(capability.GatedConfig[bool]{
		Key:   allmKey(id),
		Codec: capability.BoolCodec,
		Gate:  gate,
		Write: func(ctx context.Context, v bool) error {
			return hw.SetAllmSupport(ctx, id, v)
		},
		Store:  store,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	p.vrr, err = capability.NewGated(capability.GatedConfig[bool]{
		Key:   vrrKey(id),
		Codec: capability.BoolCodec,
		Gate:  gate,
		Write: func(ctx context.Context, v bool) error {
			return hw.SetVRRSupport(ctx, id, v)
		},
		Store:  store,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	p.allmStatus, err = capability.NewCached(capability.CachedConfig[bool]{
		Name: id.String() + ".allmStatus",
		Read: func(ctx context.Context) (bool, error) {
			return hw.AllmStatus(ctx, id)
		},
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	p.vrrStatus, err = capability.NewCached(capability.CachedConfig[hal.VRRType]{
		Name:    id.String() + ".vrrStatus",
		Default: hal.VRRNone,
		Read: func(ctx context.Context) (hal.VRRType, error) {
			return hw.VRRStatus(ctx, id)
		},
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	p.signal, err = capability.NewCached(capability.CachedConfig[hal.SignalStatus]{
		Name:    id.String() + ".signalStatus",
		Default: hal.SignalNone,
		Read: func(ctx context.Context) (hal.SignalStatus, error) {
			return hw.SignalStatus(ctx, id)
		},
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	p.connected, err = capability.NewCached(capability.CachedConfig[bool]{
		Name: id.String() + ".connected",
		Read: func(ctx context.Context) (bool, error) {
			return hw.Connected(ctx, id)
		},
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	return p, nil
}

// enableSignalPolling creates the per-port signal poll loop.
func (p *portState) enableSignalPolling(hw hal.HDMIIn, interval time.Duration, onChange func(prev, next hal.SignalStatus), logger Logger) error {
	loop, err := poll.New(poll.Config[hal.SignalStatus]{
		Name:     p.id.String() + ".signal",
		Interval: interval,
		Initial:  hal.SignalNone,
		Query: func(ctx context.Context) (hal.SignalStatus, error) {
			return hw.SignalStatus(ctx, p.id)
		},
		OnChange: onChange,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	p.signalLoop = loop
	return nil
}

// setEdidVersion writes v and, when the gate has just opened (or on every
// set to 2.0 with ReassertAlways), pushes the cached ALLM and VRR bits to
// hardware again. Re-assertion failures are logged, not returned.
func (p *portState) setEdidVersion(ctx context.Context, v hal.EdidVersion, policy ReassertPolicy, logger Logger) error {
	p.edidMu.Lock()
	defer p.edidMu.Unlock()

	prev := p.edid.Cached()
	if err := p.edid.SetPersistent(ctx, v); err != nil {
		return err
	}
	logger.Info("EDID version set", "port", p.id, "from", prev, "to", v)

	if v != hal.Edid20 {
		return nil
	}
	if policy == ReassertOnTransition && prev == hal.Edid20 {
		return nil
	}
	p.reassertGated(ctx, logger)
	return nil
}

// readEdidVersion refreshes the EDID version from hardware. A read that
// finds 2.0 where the cache held another version reopens the gate, so the
// cached ALLM and VRR bits are pushed to hardware just as a set would.
// The EDID lock is only taken on that transition.
func (p *portState) readEdidVersion(ctx context.Context, logger Logger) hal.EdidVersion {
	prev := p.edid.Cached()
	v := p.edid.Get(ctx)
	if prev == hal.Edid20 || v != hal.Edid20 {
		return v
	}

	p.edidMu.Lock()
	defer p.edidMu.Unlock()
	if p.edid.Cached() != hal.Edid20 {
		return v
	}
	logger.Info("EDID 2.0 read back from hardware", "port", p.id, "from", prev)
	p.reassertGated(ctx, logger)
	return v
}

func (p *portState) reassertGated(ctx context.Context, logger Logger) {
	if err := p.allm.Reassert(ctx); err != nil {
		logger.Warn("ALLM support not re-asserted", "port", p.id, "error", err)
	}
	if err := p.vrr.Reassert(ctx); err != nil {
		logger.Warn("VRR support not re-asserted", "port", p.id, "error", err)
	}
}

func (p *portState) setAllmSupport(ctx context.Context, enabled bool) error {
	p.edidMu.RLock()
	defer p.edidMu.RUnlock()
	return p.allm.Set(ctx, enabled)
}

func (p *portState) setVRRSupport(ctx context.Context, enabled bool) error {
	p.edidMu.RLock()
	defer p.edidMu.RUnlock()
	return p.vrr.Set(ctx, enabled)
}

// restore loads persisted attributes and pushes them to hardware.
func (p *portState) restore(ctx context.Context, logger Logger) {
	p.edidMu.Lock()
	defer p.edidMu.Unlock()

	v := p.edid.LoadFromPersistence(ctx)
	p.allm.LoadFromPersistence(ctx)
	p.vrr.LoadFromPersistence(ctx)

	if err := p.edid.Set(ctx, v); err != nil {
		logger.Warn("persisted EDID version not applied", "port", p.id, "version", v, "error", err)
		return
	}
	if v == hal.Edid20 {
		p.reassertGated(ctx, logger)
	}
}
