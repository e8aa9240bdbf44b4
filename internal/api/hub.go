package api

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-devicesettings/internal/facet/diagnostics"
	"github.com/nerrad567/gray-logic-devicesettings/internal/facet/hdmiin"
	"github.com/nerrad567/gray-logic-devicesettings/internal/hal"
	"github.com/nerrad567/gray-logic-devicesettings/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-devicesettings/internal/infrastructure/logging"
)

const (
	// ChannelAll subscribes a client to every channel.
	ChannelAll = "*"

	// ChannelAttribute is the event kind for settings written through the
	// API, e.g. "fpd.attribute_changed".
	ChannelAttribute = "attribute_changed"
)

// Channel names the WebSocket channel of a facet event kind, e.g.
// "hdmiin.hotplug". Clients may also subscribe to "hdmiin.*".
func Channel(facet, kind string) string {
	return facet + "." + kind
}

// Hub fans facet events out to WebSocket clients.
//
// It is registered once with each eventing facet, so facets see a single
// observer however many clients are connected. Sends never block: a client
// whose buffer is full misses the event.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	mu      sync.RWMutex
	clients map[*WSClient]struct{}
}

var (
	_ diagnostics.Observer = (*Hub)(nil)
	_ hdmiin.Observer      = (*Hub)(nil)
)

// NewHub creates an empty hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
	}
}

// ObserverName identifies the hub in dispatcher logs.
func (h *Hub) ObserverName() string {
	return "api.Hub"
}

// Run blocks until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*WSClient]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.shutdown()
	}
}

// Register adds a client.
func (h *Hub) Register(c *WSClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "client_id", c.id, "clients", n)
}

// Unregister removes a client and closes its send queue. Calling it twice
// is harmless.
func (h *Hub) Unregister(c *WSClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		c.closeSend()
		h.logger.Debug("websocket client disconnected", "client_id", c.id, "clients", n)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends an event on channel to every client subscribed to it.
func (h *Hub) Broadcast(channel string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		ID:        uuid.NewString(),
		EventType: channel,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("encoding websocket event", "channel", channel, "error", err)
		return
	}

	// Client locks are taken only after the hub lock is released.
	h.mu.RLock()
	clients := make([]*WSClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if c.wants(channel) {
			c.enqueue(data)
		}
	}
}

// ============================================================================
// Facet observers
// ============================================================================

func portEvent(port hal.Port, key string, value any) map[string]any {
	return map[string]any{"port": port.String(), key: value}
}

// OnAVDecoderStatusChanged implements diagnostics.Observer.
func (h *Hub) OnAVDecoderStatusChanged(status hal.DecoderStatus) {
	h.Broadcast(Channel(diagnostics.Name, diagnostics.KindDecoderStatusChanged),
		map[string]any{"status": status.String()})
}

// OnHotPlug implements hdmiin.Observer.
func (h *Hub) OnHotPlug(port hal.Port, connected bool) {
	h.Broadcast(Channel(hdmiin.Name, hdmiin.KindHotPlug), portEvent(port, "connected", connected))
}

// OnSignalStatus implements hdmiin.Observer.
func (h *Hub) OnSignalStatus(port hal.Port, status hal.SignalStatus) {
	h.Broadcast(Channel(hdmiin.Name, hdmiin.KindSignalStatus), portEvent(port, "status", status.String()))
}

// OnStatus implements hdmiin.Observer.
func (h *Hub) OnStatus(activePort hal.Port, presented bool) {
	h.Broadcast(Channel(hdmiin.Name, hdmiin.KindStatus), map[string]any{
		"active_port": activePort.String(),
		"presented":   presented,
	})
}

// OnVideoModeUpdate implements hdmiin.Observer.
func (h *Hub) OnVideoModeUpdate(port hal.Port, mode hal.VideoMode) {
	h.Broadcast(Channel(hdmiin.Name, hdmiin.KindVideoMode), portEvent(port, "mode", mode))
}

// OnAllmStatus implements hdmiin.Observer.
func (h *Hub) OnAllmStatus(port hal.Port, active bool) {
	h.Broadcast(Channel(hdmiin.Name, hdmiin.KindAllmStatus), portEvent(port, "active", active))
}

// OnAVIContentType implements hdmiin.Observer.
func (h *Hub) OnAVIContentType(port hal.Port, content hal.AVIContentType) {
	h.Broadcast(Channel(hdmiin.Name, hdmiin.KindAVIContentType), portEvent(port, "content_type", content.String()))
}

// OnAVLatency implements hdmiin.Observer.
func (h *Hub) OnAVLatency(latency hal.AVLatency) {
	h.Broadcast(Channel(hdmiin.Name, hdmiin.KindAVLatency), latency)
}

// OnVRRStatus implements hdmiin.Observer.
func (h *Hub) OnVRRStatus(port hal.Port, vrr hal.VRRType) {
	h.Broadcast(Channel(hdmiin.Name, hdmiin.KindVRRStatus), portEvent(port, "vrr", vrr.String()))
}
