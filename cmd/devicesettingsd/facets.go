package main

import (
	"context"
	"fmt"

	"github.com/nerrad567/gray-logic-devicesettings/internal/facet/diagnostics"
	"github.com/nerrad567/gray-logic-devicesettings/internal/facet/fpd"
	"github.com/nerrad567/gray-logic-devicesettings/internal/facet/hdmiin"
	"github.com/nerrad567/gray-logic-devicesettings/internal/hal"
	"github.com/nerrad567/gray-logic-devicesettings/internal/hal/sim"
	"github.com/nerrad567/gray-logic-devicesettings/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-devicesettings/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-devicesettings/internal/notify"
	"github.com/nerrad567/gray-logic-devicesettings/internal/persist"
)

// facets holds the enabled facet services. A disabled facet is nil.
type facets struct {
	Diagnostics *diagnostics.Service
	HDMIIn      *hdmiin.Service
	FPD         *fpd.Service
}

// eventObserver receives events from every eventing facet.
type eventObserver interface {
	diagnostics.Observer
	hdmiin.Observer
}

// startFacets builds and starts every facet enabled in cfg. Persisted
// settings are applied to the platform as each facet starts.
//
// Parameters:
//   - ctx: Context for the initial hardware writes
//   - cfg: Service configuration
//   - platform: Hardware backend shared by all facets
//   - store: Settings store
//   - queue: Event queue for observer callbacks
//   - log: Root logger; each facet gets its own component logger
//
// Returns:
//   - *facets: Started facets; call Close on shutdown
//   - error: If any facet cannot be created
func startFacets(ctx context.Context, cfg *config.Config, platform *sim.Platform, store persist.Store, queue notify.Submitter, log *logging.Logger) (*facets, error) {
	f := &facets{}
	fc := cfg.Facets

	if fc.Diagnostics.Enabled {
		svc, err := diagnostics.New(diagnostics.Options{
			Decoder:      platform,
			Queue:        queue,
			PollInterval: fc.Diagnostics.PollInterval,
			Logger:       log.Facet(diagnostics.Name),
		})
		if err != nil {
			return nil, fmt.Errorf("creating diagnostics facet: %w", err)
		}
		f.Diagnostics = svc
	}

	if fc.HDMIIn.Enabled {
		svc, err := hdmiin.New(hdmiin.Options{
			Hardware:           platform,
			Store:              store,
			Queue:              queue,
			Ports:              fc.HDMIIn.Ports,
			ReassertPolicy:     hdmiin.ReassertPolicy(fc.HDMIIn.ReassertPolicy),
			SignalPollInterval: fc.HDMIIn.SignalPollInterval,
			Logger:             log.Facet(hdmiin.Name),
		})
		if err != nil {
			return nil, fmt.Errorf("creating hdmiin facet: %w", err)
		}
		f.HDMIIn = svc
	}

	if fc.FPD.Enabled {
		indicators := make([]hal.Indicator, 0, len(fc.FPD.Indicators))
		for _, name := range fc.FPD.Indicators {
			ind, err := hal.ParseIndicator(name)
			if err != nil {
				return nil, fmt.Errorf("fpd indicators: %w", err)
			}
			indicators = append(indicators, ind)
		}
		svc, err := fpd.New(fpd.Options{
			Hardware:   platform,
			Store:      store,
			Indicators: indicators,
			Logger:     log.Facet(fpd.Name),
		})
		if err != nil {
			return nil, fmt.Errorf("creating fpd facet: %w", err)
		}
		f.FPD = svc
	}

	if f.Diagnostics != nil {
		f.Diagnostics.Start()
	}
	if f.HDMIIn != nil {
		f.HDMIIn.Start(ctx)
	}
	if f.FPD != nil {
		f.FPD.Start(ctx)
	}

	log.Info("facets started",
		"diagnostics", f.Diagnostics != nil,
		"hdmiin", f.HDMIIn != nil,
		"fpd", f.FPD != nil,
	)
	return f, nil
}

// Register adds o to every eventing facet. The returned func removes it again.
func (f *facets) Register(o eventObserver) (func(), error) {
	if f.Diagnostics != nil {
		if err := f.Diagnostics.Register(o); err != nil {
			return nil, err
		}
	}
	if f.HDMIIn != nil {
		if err := f.HDMIIn.Register(o); err != nil {
			if f.Diagnostics != nil {
				_ = f.Diagnostics.Unregister(o) //nolint:errcheck // best-effort rollback
			}
			return nil, err
		}
	}

	return func() {
		if f.Diagnostics != nil {
			_ = f.Diagnostics.Unregister(o) //nolint:errcheck // shutdown path
		}
		if f.HDMIIn != nil {
			_ = f.HDMIIn.Unregister(o) //nolint:errcheck // shutdown path
		}
	}, nil
}

// Close stops every facet's background work.
func (f *facets) Close() {
	if f.FPD != nil {
		f.FPD.Close()
	}
	if f.HDMIIn != nil {
		f.HDMIIn.Close()
	}
	if f.Diagnostics != nil {
		f.Diagnostics.Close()
	}
}
