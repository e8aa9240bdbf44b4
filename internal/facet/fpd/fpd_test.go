package fpd

import (
	"context"
	"errors"
	"testing"

	"github.com/nerrad567/gray-logic-devicesettings/internal/capability"
	"github.com/nerrad567/gray-logic-devicesettings/internal/hal"
	"github.com/nerrad567/gray-logic-devicesettings/internal/hal/sim"
	"github.com/nerrad567/gray-logic-devicesettings/internal/persist"
)

func newTestService(t *testing.T, store *persist.MemoryStore, indicators ...hal.Indicator) (*Service, *sim.Platform) {
	t.Helper()
	platform := sim.New(1, nil)
	svc, err := New(Options{Hardware: platform, Store: store, Indicators: indicators})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return svc, platform
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		wantErr  bool
		wantLEDs int
	}{
		{name: "missing hardware", opts: Options{Store: persist.NewMemoryStore()}, wantErr: true},
		{
			name:     "all indicators by default",
			opts:     Options{Hardware: sim.New(0, nil), Store: persist.NewMemoryStore()},
			wantLEDs: len(hal.Indicators),
		},
		{
			name: "subset with duplicate",
			opts: Options{
				Hardware:   sim.New(0, nil),
				Store:      persist.NewMemoryStore(),
				Indicators: []hal.Indicator{"POWER", hal.IndicatorRecord, hal.IndicatorPower},
			},
			wantLEDs: 2,
		},
		{
			name: "unknown indicator",
			opts: Options{
				Hardware:   sim.New(0, nil),
				Store:      persist.NewMemoryStore(),
				Indicators: []hal.Indicator{"clock"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := New(tt.opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && len(svc.Indicators()) != tt.wantLEDs {
				t.Errorf("Indicators() = %v, want %d entries", svc.Indicators(), tt.wantLEDs)
			}
		})
	}
}

func TestSetBrightness(t *testing.T) {
	ctx := context.Background()

	t.Run("persisted", func(t *testing.T) {
		store := persist.NewMemoryStore()
		svc, platform := newTestService(t, store)

		if err := svc.SetBrightness(ctx, hal.IndicatorPower, 40, true); err != nil {
			t.Fatalf("SetBrightness() error = %v", err)
		}
		if got, _ := platform.Brightness(ctx, hal.IndicatorPower); got != 40 {
			t.Errorf("hardware brightness = %d, want 40", got)
		}
		if v, _ := store.Lookup("FPD.power.brightness"); v != "40" {
			t.Errorf("persisted FPD.power.brightness = %q, want 40", v)
		}
	})

	t.Run("not persisted", func(t *testing.T) {
		store := persist.NewMemoryStore()
		svc, _ := newTestService(t, store)

		if err := svc.SetBrightness(ctx, hal.IndicatorPower, 40, false); err != nil {
			t.Fatalf("SetBrightness() error = %v", err)
		}
		if store.SetCalls() != 0 {
			t.Errorf("store written %d times, want 0", store.SetCalls())
		}
	})

	t.Run("out of range", func(t *testing.T) {
		svc, platform := newTestService(t, persist.NewMemoryStore())

		for _, v := range []int{-1, 101} {
			err := svc.SetBrightness(ctx, hal.IndicatorPower, v, true)
			if !errors.Is(err, hal.ErrOutOfRange) || !errors.Is(err, capability.ErrInvalidValue) {
				t.Errorf("SetBrightness(%d) error = %v, want ErrOutOfRange", v, err)
			}
		}
		if platform.Calls(sim.OpSetBrightness) != 0 {
			t.Error("hardware written for out-of-range brightness")
		}
	})

	t.Run("storage failure is not an error", func(t *testing.T) {
		store := persist.NewMemoryStore()
		store.FailWrites(errors.New("read-only filesystem"))
		svc, _ := newTestService(t, store)

		if err := svc.SetBrightness(ctx, hal.IndicatorRecord, 10, true); err != nil {
			t.Errorf("SetBrightness() error = %v, want nil", err)
		}
		if got, _ := svc.GetBrightness(ctx, hal.IndicatorRecord); got != 10 {
			t.Errorf("GetBrightness() = %d, want 10", got)
		}
	})

	t.Run("unknown indicator", func(t *testing.T) {
		svc, _ := newTestService(t, persist.NewMemoryStore(), hal.IndicatorPower)
		if err := svc.SetBrightness(ctx, hal.IndicatorMessage, 10, false); !errors.Is(err, hal.ErrInvalidIndicator) {
			t.Errorf("SetBrightness(unmanaged) error = %v, want ErrInvalidIndicator", err)
		}
	})
}

func TestGet_FallsBackToCache(t *testing.T) {
	ctx := context.Background()
	svc, platform := newTestService(t, persist.NewMemoryStore())

	if err := svc.SetColor(ctx, hal.IndicatorMessage, hal.ColorRed); err != nil {
		t.Fatalf("SetColor() error = %v", err)
	}
	if err := svc.SetState(ctx, hal.IndicatorMessage, hal.StateOn); err != nil {
		t.Fatalf("SetState() error = %v", err)
	}

	platform.Fail(sim.OpColor, errors.New("led driver reset"))
	platform.Fail(sim.OpState, errors.New("led driver reset"))
	platform.Fail(sim.OpBrightness, errors.New("led driver reset"))

	st, err := svc.Settings(ctx, hal.IndicatorMessage)
	if err != nil {
		t.Fatalf("Settings() error = %v", err)
	}
	want := Settings{Indicator: hal.IndicatorMessage, Brightness: hal.MaxBrightness, State: hal.StateOn, Color: hal.ColorRed}
	if st != want {
		t.Errorf("Settings() = %+v, want %+v", st, want)
	}
}

func TestSet_HardwareFailure(t *testing.T) {
	ctx := context.Background()
	svc, platform := newTestService(t, persist.NewMemoryStore())
	platform.Fail(sim.OpSetColor, errors.New("led driver reset"))

	err := svc.SetColor(ctx, hal.IndicatorPower, hal.ColorGreen)
	if !errors.Is(err, capability.ErrHardware) {
		t.Fatalf("SetColor() error = %v, want ErrHardware", err)
	}

	platform.Fail(sim.OpColor, errors.New("led driver reset"))
	if got, _ := svc.GetColor(ctx, hal.IndicatorPower); got != hal.ColorBlue {
		t.Errorf("GetColor() = %v, want unchanged blue", got)
	}
}

func TestStart_RestoresPersistedSettings(t *testing.T) {
	ctx := context.Background()
	store := persist.NewMemoryStore()
	_ = store.SetProperty(ctx, "FPD.power.brightness", "25") //nolint:errcheck // Memory store
	_ = store.SetProperty(ctx, "FPD.record.brightness", "x") //nolint:errcheck // Memory store
	_ = store.SetProperty(ctx, "FPD.timeformat", "24_HOUR")  //nolint:errcheck // Memory store

	svc, platform := newTestService(t, store)
	svc.Start(ctx)

	if got, _ := platform.Brightness(ctx, hal.IndicatorPower); got != 25 {
		t.Errorf("power brightness = %d, want persisted 25", got)
	}
	if got, _ := platform.Brightness(ctx, hal.IndicatorRecord); got != hal.MaxBrightness {
		t.Errorf("record brightness = %d, want default %d", got, hal.MaxBrightness)
	}
	if got := svc.GetTimeFormat(ctx); got != hal.TimeFormat24Hour {
		t.Errorf("GetTimeFormat() = %v, want 24_HOUR", got)
	}
}

func TestTimeFormatAndClock(t *testing.T) {
	ctx := context.Background()
	store := persist.NewMemoryStore()
	svc, platform := newTestService(t, store)

	if err := svc.SetTimeFormat(ctx, hal.TimeFormat24Hour); err != nil {
		t.Fatalf("SetTimeFormat() error = %v", err)
	}
	if v, _ := store.Lookup("FPD.timeformat"); v != "24_HOUR" {
		t.Errorf("persisted FPD.timeformat = %q, want 24_HOUR", v)
	}
	if err := svc.SetTimeFormat(ctx, hal.TimeFormat(7)); !errors.Is(err, hal.ErrOutOfRange) {
		t.Errorf("SetTimeFormat(7) error = %v, want ErrOutOfRange", err)
	}

	if err := svc.SetClockDisplay(ctx, true); err != nil {
		t.Fatalf("SetClockDisplay() error = %v", err)
	}
	if !platform.ClockDisplay() || !svc.ClockDisplay() {
		t.Error("clock display not enabled")
	}
}
