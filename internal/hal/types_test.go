package hal

import (
	"errors"
	"testing"
)

func TestParsePort(t *testing.T) {
	tests := []struct {
		in      string
		want    Port
		wantErr bool
	}{
		{in: "HDMI0", want: 0},
		{in: "hdmi2", want: 2},
		{in: "1", want: 1},
		{in: "HDMI", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "DP0", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePort(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPort) {
					t.Errorf("ParsePort(%q) error = %v, want ErrInvalidPort", tt.in, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParsePort(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
			}
		})
	}
	if Port(3).String() != "HDMI3" {
		t.Errorf("Port(3).String() = %q", Port(3).String())
	}
}

func TestParseColor(t *testing.T) {
	for in, want := range map[string]Color{
		"#0000FF":  ColorBlue,
		"0xff0000": ColorRed,
		"00FF00":   ColorGreen,
	} {
		got, err := ParseColor(in)
		if err != nil || got != want {
			t.Errorf("ParseColor(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	for _, bad := range []string{"blue", "#FFF", "#GGGGGG"} {
		if _, err := ParseColor(bad); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("ParseColor(%q) error = %v, want ErrOutOfRange", bad, err)
		}
	}
	if ColorBlue.String() != "#0000FF" {
		t.Errorf("ColorBlue.String() = %q", ColorBlue.String())
	}
}

func TestEnumStrings(t *testing.T) {
	checks := map[string]string{
		DecoderPaused.String():         "PAUSED",
		Edid20.String():                "2.0",
		SignalNotSupported.String():    "NOT_SUPPORTED",
		VRRFreeSyncPremiumPro.String(): "AMD_FREESYNC_PREMIUM_PRO",
		ContentGame.String():           "GAME",
		StateOn.String():               "ON",
		TimeFormat24Hour.String():      "24_HOUR",
	}
	for got, want := range checks {
		if got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}

func TestParseRoundTrips(t *testing.T) {
	for _, s := range []DecoderStatus{DecoderIdle, DecoderPaused, DecoderActive} {
		got, err := ParseDecoderStatus(s.String())
		if err != nil || got != s {
			t.Errorf("ParseDecoderStatus(%q) = %v, %v", s, got, err)
		}
	}
	if _, err := ParseEdidVersion("2.1"); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("ParseEdidVersion(2.1) error = %v", err)
	}
	if ind, err := ParseIndicator("RF_BYPASS"); err != nil || ind != IndicatorRFBypass {
		t.Errorf("ParseIndicator(RF_BYPASS) = %v, %v", ind, err)
	}
	if _, err := ParseIndicator("clock"); !errors.Is(err, ErrInvalidIndicator) {
		t.Errorf("ParseIndicator(clock) error = %v", err)
	}
	if s, err := ParseIndicatorState("on"); err != nil || s != StateOn {
		t.Errorf("ParseIndicatorState(on) = %v, %v", s, err)
	}
	if f, err := ParseTimeFormat("24_hour"); err != nil || f != TimeFormat24Hour {
		t.Errorf("ParseTimeFormat(24_hour) = %v, %v", f, err)
	}
}
