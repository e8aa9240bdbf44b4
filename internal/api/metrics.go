package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string            `json:"timestamp"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Runtime       RuntimeMetrics    `json:"runtime"`
	WebSocket     WSMetrics         `json:"websocket"`
	MQTT          MQTTMetrics       `json:"mqtt"`
	Publisher     *PublisherMetrics `json:"publisher,omitempty"`
	Facets        FacetMetrics      `json:"facets"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// MQTTMetrics contains MQTT client statistics.
type MQTTMetrics struct {
	Enabled   bool `json:"enabled"`
	Connected bool `json:"connected"`
}

// PublisherMetrics contains event publisher counters.
type PublisherMetrics struct {
	Published uint64 `json:"published"`
	Failed    uint64 `json:"failed"`
}

// FacetMetrics reports which facets are enabled and their basic state.
type FacetMetrics struct {
	Diagnostics *DiagnosticsMetrics `json:"diagnostics,omitempty"`
	HDMIIn      *HDMIInMetrics      `json:"hdmiin,omitempty"`
	FPD         *FPDMetrics         `json:"fpd,omitempty"`
}

// DiagnosticsMetrics contains decoder polling state.
type DiagnosticsMetrics struct {
	Polling      bool   `json:"polling"`
	LastObserved string `json:"last_observed"`
}

// HDMIInMetrics contains HDMI input facet state.
type HDMIInMetrics struct {
	Ports          int    `json:"ports"`
	ReassertPolicy string `json:"reassert_policy"`
}

// FPDMetrics contains front-panel facet state.
type FPDMetrics struct {
	Indicators int `json:"indicators"`
}

// handleMetrics returns system and facet metrics. It never touches
// hardware, so it is safe to poll.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{
			ConnectedClients: s.hub.ClientCount(),
		},
	}

	if s.mqtt != nil {
		metrics.MQTT = MQTTMetrics{
			Enabled:   true,
			Connected: s.mqtt.IsConnected(),
		}
	}

	if s.publisher != nil {
		published, failed := s.publisher.Stats()
		metrics.Publisher = &PublisherMetrics{Published: published, Failed: failed}
	}

	if s.diagnostics != nil {
		metrics.Facets.Diagnostics = &DiagnosticsMetrics{
			Polling:      s.diagnostics.Running(),
			LastObserved: s.diagnostics.LastObserved().String(),
		}
	}
	if s.hdmiin != nil {
		metrics.Facets.HDMIIn = &HDMIInMetrics{
			Ports:          s.hdmiin.NumPorts(),
			ReassertPolicy: string(s.hdmiin.Policy()),
		}
	}
	if s.fpd != nil {
		metrics.Facets.FPD = &FPDMetrics{
			Indicators: len(s.fpd.Indicators()),
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}
