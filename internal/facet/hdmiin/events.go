package hdmiin

import "github.com/nerrad567/gray-logic-devicesettings/internal/hal"

// Event kinds, used as the last MQTT topic segment and in logs.
const (
	KindHotPlug        = "hotplug"
	KindSignalStatus   = "signal_status"
	KindStatus         = "status"
	KindVideoMode      = "video_mode"
	KindAllmStatus     = "allm_status"
	KindAVIContentType = "avi_content_type"
	KindAVLatency      = "av_latency"
	KindVRRStatus      = "vrr_status"
)

// Observer receives HDMI input notifications. Implementations must be
// comparable (use a pointer receiver). Embed or use ObserverFuncs to handle
// only some events.
type Observer interface {
	OnHotPlug(port hal.Port, connected bool)
	OnSignalStatus(port hal.Port, status hal.SignalStatus)
	OnStatus(activePort hal.Port, presented bool)
	OnVideoModeUpdate(port hal.Port, mode hal.VideoMode)
	OnAllmStatus(port hal.Port, active bool)
	OnAVIContentType(port hal.Port, content hal.AVIContentType)
	OnAVLatency(latency hal.AVLatency)
	OnVRRStatus(port hal.Port, vrr hal.VRRType)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are ignored.
// Register a pointer to it.
type ObserverFuncs struct {
	HotPlug         func(port hal.Port, connected bool)
	SignalStatus    func(port hal.Port, status hal.SignalStatus)
	Status          func(activePort hal.Port, presented bool)
	VideoModeUpdate func(port hal.Port, mode hal.VideoMode)
	AllmStatus      func(port hal.Port, active bool)
	AVIContentType  func(port hal.Port, content hal.AVIContentType)
	AVLatency       func(latency hal.AVLatency)
	VRRStatus       func(port hal.Port, vrr hal.VRRType)
}

func (f *ObserverFuncs) OnHotPlug(port hal.Port, connected bool) {
	if f.HotPlug != nil {
		f.HotPlug(port, connected)
	}
}

func (f *ObserverFuncs) OnSignalStatus(port hal.Port, status hal.SignalStatus) {
	if f.SignalStatus != nil {
		f.SignalStatus(port, status)
	}
}

func (f *ObserverFuncs) OnStatus(activePort hal.Port, presented bool) {
	if f.Status != nil {
		f.Status(activePort, presented)
	}
}

func (f *ObserverFuncs) OnVideoModeUpdate(port hal.Port, mode hal.VideoMode) {
	if f.VideoModeUpdate != nil {
		f.VideoModeUpdate(port, mode)
	}
}

func (f *ObserverFuncs) OnAllmStatus(port hal.Port, active bool) {
	if f.AllmStatus != nil {
		f.AllmStatus(port, active)
	}
}

func (f *ObserverFuncs) OnAVIContentType(port hal.Port, content hal.AVIContentType) {
	if f.AVIContentType != nil {
		f.AVIContentType(port, content)
	}
}

func (f *ObserverFuncs) OnAVLatency(latency hal.AVLatency) {
	if f.AVLatency != nil {
		f.AVLatency(latency)
	}
}

func (f *ObserverFuncs) OnVRRStatus(port hal.Port, vrr hal.VRRType) {
	if f.VRRStatus != nil {
		f.VRRStatus(port, vrr)
	}
}

type hotPlugEvent struct {
	port      hal.Port
	connected bool
}

func (hotPlugEvent) Kind() string         { return KindHotPlug }
func (e hotPlugEvent) Deliver(o Observer) { o.OnHotPlug(e.port, e.connected) }

type signalStatusEvent struct {
	port   hal.Port
	status hal.SignalStatus
}

func (signalStatusEvent) Kind() string         { return KindSignalStatus }
func (e signalStatusEvent) Deliver(o Observer) { o.OnSignalStatus(e.port, e.status) }

type statusEvent struct {
	active    hal.Port
	presented bool
}

func (statusEvent) Kind() string         { return KindStatus }
func (e statusEvent) Deliver(o Observer) { o.OnStatus(e.active, e.presented) }

type videoModeEvent struct {
	port hal.Port
	mode hal.VideoMode
}

func (videoModeEvent) Kind() string         { return KindVideoMode }
func (e videoModeEvent) Deliver(o Observer) { o.OnVideoModeUpdate(e.port, e.mode) }

type allmStatusEvent struct {
	port   hal.Port
	active bool
}

func (allmStatusEvent) Kind() string         { return KindAllmStatus }
func (e allmStatusEvent) Deliver(o Observer) { o.OnAllmStatus(e.port, e.active) }

type contentTypeEvent struct {
	port    hal.Port
	content hal.AVIContentType
}

func (contentTypeEvent) Kind() string         { return KindAVIContentType }
func (e contentTypeEvent) Deliver(o Observer) { o.OnAVIContentType(e.port, e.content) }

type latencyEvent struct {
	latency hal.AVLatency
}

func (latencyEvent) Kind() string         { return KindAVLatency }
func (e latencyEvent) Deliver(o Observer) { o.OnAVLatency(e.latency) }

type vrrStatusEvent struct {
	port hal.Port
	vrr  hal.VRRType
}

func (vrrStatusEvent) Kind() string         { return KindVRRStatus }
func (e vrrStatusEvent) Deliver(o Observer) { o.OnVRRStatus(e.port, e.vrr) }
