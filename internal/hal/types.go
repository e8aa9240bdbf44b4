package hal

import (
	"fmt"
	"strconv"
	"strings"
)

// DecoderStatus is the activity of the most active A/V decoder.
type DecoderStatus int

const (
	DecoderIdle DecoderStatus = iota
	DecoderPaused
	DecoderActive
)

var decoderStatusNames = map[DecoderStatus]string{
	DecoderIdle:   "IDLE",
	DecoderPaused: "PAUSED",
	DecoderActive: "ACTIVE",
}

func (s DecoderStatus) String() string {
	if name, ok := decoderStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("DecoderStatus(%d)", int(s))
}

// ParseDecoderStatus parses "IDLE", "PAUSED" or "ACTIVE" (case-insensitive).
func ParseDecoderStatus(s string) (DecoderStatus, error) {
	for v, name := range decoderStatusNames {
		if strings.EqualFold(s, name) {
			return v, nil
		}
	}
	return DecoderIdle, fmt.Errorf("%w: unknown decoder status %q", ErrOutOfRange, s)
}

// Port is an HDMI input port number, HDMI0 upwards.
type Port int

func (p Port) String() string {
	return "HDMI" + strconv.Itoa(int(p))
}

// ParsePort accepts "HDMI1", "hdmi1" or "1".
func ParsePort(s string) (Port, error) {
	digits := s
	if len(s) > 4 && strings.EqualFold(s[:4], "HDMI") {
		digits = s[4:]
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPort, s)
	}
	return Port(n), nil
}

// EdidVersion is the EDID version advertised on an HDMI input.
type EdidVersion int

const (
	Edid14 EdidVersion = iota
	Edid20
)

func (v EdidVersion) String() string {
	switch v {
	case Edid14:
		return "1.4"
	case Edid20:
		return "2.0"
	default:
		return fmt.Sprintf("EdidVersion(%d)", int(v))
	}
}

// ParseEdidVersion accepts "1.4" or "2.0".
func ParseEdidVersion(s string) (EdidVersion, error) {
	switch strings.TrimSpace(s) {
	case "1.4":
		return Edid14, nil
	case "2.0":
		return Edid20, nil
	default:
		return Edid14, fmt.Errorf("%w: unknown EDID version %q", ErrOutOfRange, s)
	}
}

// Valid reports whether v is a known version.
func (v EdidVersion) Valid() bool {
	return v == Edid14 || v == Edid20
}

// SignalStatus is the state of the signal on an HDMI input.
type SignalStatus int

const (
	SignalNone SignalStatus = iota
	SignalUnstable
	SignalNotSupported
	SignalStable
)

func (s SignalStatus) String() string {
	switch s {
	case SignalNone:
		return "NO_SIGNAL"
	case SignalUnstable:
		return "UNSTABLE"
	case SignalNotSupported:
		return "NOT_SUPPORTED"
	case SignalStable:
		return "STABLE"
	default:
		return fmt.Sprintf("SignalStatus(%d)", int(s))
	}
}

// VRRType is the variable refresh rate mode negotiated on an HDMI input.
type VRRType int

const (
	VRRNone VRRType = iota
	VRRHDMI
	VRRFreeSync
	VRRFreeSyncPremium
	VRRFreeSyncPremiumPro
)

func (t VRRType) String() string {
	switch t {
	case VRRNone:
		return "NONE"
	case VRRHDMI:
		return "HDMI_VRR"
	case VRRFreeSync:
		return "AMD_FREESYNC"
	case VRRFreeSyncPremium:
		return "AMD_FREESYNC_PREMIUM"
	case VRRFreeSyncPremiumPro:
		return "AMD_FREESYNC_PREMIUM_PRO"
	default:
		return fmt.Sprintf("VRRType(%d)", int(t))
	}
}

// AVIContentType is the content type signalled in the AVI InfoFrame.
type AVIContentType int

const (
	ContentGraphics AVIContentType = iota
	ContentPhoto
	ContentCinema
	ContentGame
	ContentInvalid
)

func (c AVIContentType) String() string {
	switch c {
	case ContentGraphics:
		return "GRAPHICS"
	case ContentPhoto:
		return "PHOTO"
	case ContentCinema:
		return "CINEMA"
	case ContentGame:
		return "GAME"
	default:
		return "INVALID"
	}
}

// VideoMode describes the resolution detected on an HDMI input.
type VideoMode struct {
	Resolution string `json:"resolution"`
	Interlaced bool   `json:"interlaced"`
	FrameRate  string `json:"frame_rate"`
}

// AVLatency holds the audio and video delays reported by the source, in ms.
type AVLatency struct {
	AudioDelay int `json:"audio_delay"`
	VideoDelay int `json:"video_delay"`
}

// Indicator names a front-panel LED.
type Indicator string

const (
	IndicatorMessage  Indicator = "message"
	IndicatorPower    Indicator = "power"
	IndicatorRecord   Indicator = "record"
	IndicatorRemote   Indicator = "remote"
	IndicatorRFBypass Indicator = "rf_bypass"
)

// Indicators lists every known indicator in display order.
var Indicators = []Indicator{IndicatorMessage, IndicatorPower, IndicatorRecord, IndicatorRemote, IndicatorRFBypass}

// ParseIndicator validates an indicator name.
func ParseIndicator(s string) (Indicator, error) {
	for _, ind := range Indicators {
		if strings.EqualFold(s, string(ind)) {
			return ind, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidIndicator, s)
}

// IndicatorState is whether an indicator is lit.
type IndicatorState int

const (
	StateOff IndicatorState = iota
	StateOn
)

func (s IndicatorState) String() string {
	if s == StateOn {
		return "ON"
	}
	return "OFF"
}

// ParseIndicatorState accepts "ON" or "OFF" (case-insensitive).
func ParseIndicatorState(s string) (IndicatorState, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ON":
		return StateOn, nil
	case "OFF":
		return StateOff, nil
	default:
		return StateOff, fmt.Errorf("%w: unknown indicator state %q", ErrOutOfRange, s)
	}
}

// Brightness limits for front-panel indicators.
const (
	MinBrightness = 0
	MaxBrightness = 100
)

// Color is a 24-bit 0xRRGGBB indicator color.
type Color uint32

const (
	ColorBlue   Color = 0x0000FF
	ColorGreen  Color = 0x00FF00
	ColorRed    Color = 0xFF0000
	ColorYellow Color = 0xFFFF00
	ColorOrange Color = 0xFF8000
	ColorWhite  Color = 0xFFFFFF
)

// MaxColor is the largest valid Color.
const MaxColor Color = 0xFFFFFF

func (c Color) String() string {
	return fmt.Sprintf("#%06X", uint32(c))
}

// ParseColor accepts "#RRGGBB", "0xRRGGBB" or "RRGGBB".
func ParseColor(s string) (Color, error) {
	hex := strings.TrimSpace(s)
	hex = strings.TrimPrefix(hex, "#")
	hex = strings.TrimPrefix(strings.TrimPrefix(hex, "0x"), "0X")
	if len(hex) != 6 {
		return 0, fmt.Errorf("%w: color %q is not RRGGBB", ErrOutOfRange, s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: color %q: %w", ErrOutOfRange, s, err)
	}
	return Color(v), nil
}

// TimeFormat is the front-panel clock format.
type TimeFormat int

const (
	TimeFormat12Hour TimeFormat = iota
	TimeFormat24Hour
)

func (f TimeFormat) String() string {
	if f == TimeFormat24Hour {
		return "24_HOUR"
	}
	return "12_HOUR"
}

// ParseTimeFormat accepts "12_HOUR" or "24_HOUR".
func ParseTimeFormat(s string) (TimeFormat, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "12_HOUR":
		return TimeFormat12Hour, nil
	case "24_HOUR":
		return TimeFormat24Hour, nil
	default:
		return TimeFormat12Hour, fmt.Errorf("%w: unknown time format %q", ErrOutOfRange, s)
	}
}
