// Package hal defines the hardware collaborators the facets call into: the
// A/V decoder, HDMI inputs and the front-panel display.
//
// Register-level I/O lives behind these interfaces. The sim subpackage
// provides an in-process platform used for development and tests.
package hal

import "context"

// Decoder reports A/V decoder activity. The hardware offers no change
// notification, so the diagnostics facet polls it.
type Decoder interface {
	MostActiveDecoderStatus(ctx context.Context) (DecoderStatus, error)
}

// HDMIInCallbacks receives hardware-originated HDMI input events. Nil fields
// are ignored. Callbacks may run on a platform goroutine and must not block.
type HDMIInCallbacks struct {
	HotPlug        func(port Port, connected bool)
	SignalStatus   func(port Port, status SignalStatus)
	Status         func(activePort Port, presented bool)
	VideoMode      func(port Port, mode VideoMode)
	AllmStatus     func(port Port, active bool)
	AVIContentType func(port Port, content AVIContentType)
	AVLatency      func(latency AVLatency)
	VRRStatus      func(port Port, vrr VRRType)
}

// HDMIIn is the HDMI input hardware.
type HDMIIn interface {
	NumPorts() int
	SetCallbacks(cb HDMIInCallbacks)

	EdidVersion(ctx context.Context, port Port) (EdidVersion, error)
	SetEdidVersion(ctx context.Context, port Port, v EdidVersion) error

	SetAllmSupport(ctx context.Context, port Port, enabled bool) error
	SetVRRSupport(ctx context.Context, port Port, enabled bool) error

	AllmStatus(ctx context.Context, port Port) (bool, error)
	VRRStatus(ctx context.Context, port Port) (VRRType, error)
	SignalStatus(ctx context.Context, port Port) (SignalStatus, error)
	Connected(ctx context.Context, port Port) (bool, error)

	SelectPort(ctx context.Context, port Port) error
	VideoMode(ctx context.Context) (VideoMode, error)
	AVLatency(ctx context.Context) (AVLatency, error)
}

// FPD is the front-panel display hardware.
type FPD interface {
	Brightness(ctx context.Context, ind Indicator) (int, error)
	SetBrightness(ctx context.Context, ind Indicator, v int) error

	State(ctx context.Context, ind Indicator) (IndicatorState, error)
	SetState(ctx context.Context, ind Indicator, s IndicatorState) error

	Color(ctx context.Context, ind Indicator) (Color, error)
	SetColor(ctx context.Context, ind Indicator, c Color) error

	TimeFormat(ctx context.Context) (TimeFormat, error)
	SetTimeFormat(ctx context.Context, f TimeFormat) error
	SetClockDisplay(ctx context.Context, enabled bool) error
}
