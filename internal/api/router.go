package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// defaultWSPath is used when the WebSocket path is not configured.
const defaultWSPath = "/ws"

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		if s.diagnostics != nil {
			r.Get("/diagnostics/decoder", s.handleGetDecoderStatus)
		}

		if s.hdmiin != nil {
			r.Route("/hdmiin", func(r chi.Router) {
				r.Get("/", s.handleListPorts)
				r.Get("/video_mode", s.handleGetVideoMode)
				r.Get("/latency", s.handleGetLatency)

				r.Route("/{port}", func(r chi.Router) {
					r.Get("/status", s.handleGetPortStatus)
					r.Get("/edid", s.handleGetEdidVersion)
					r.Put("/edid", s.handleSetEdidVersion)
					r.Get("/allm", s.handleGetAllmSupport)
					r.Put("/allm", s.handleSetAllmSupport)
					r.Get("/vrr", s.handleGetVRRSupport)
					r.Put("/vrr", s.handleSetVRRSupport)
					r.Post("/select", s.handleSelectPort)
				})
			})
		}

		if s.changes != nil {
			r.Get("/changes", s.handleListChanges)
		}

		if s.fpd != nil {
			r.Route("/fpd", func(r chi.Router) {
				r.Get("/", s.handleListIndicators)
				r.Get("/timeformat", s.handleGetTimeFormat)
				r.Put("/timeformat", s.handleSetTimeFormat)
				r.Put("/clock", s.handleSetClockDisplay)

				r.Route("/{indicator}", func(r chi.Router) {
					r.Get("/", s.handleGetIndicator)
					r.Get("/brightness", s.handleGetBrightness)
					r.Put("/brightness", s.handleSetBrightness)
					r.Get("/state", s.handleGetState)
					r.Put("/state", s.handleSetState)
					r.Get("/color", s.handleGetColor)
					r.Put("/color", s.handleSetColor)
				})
			})
		}
	})

	wsPath := s.wsCfg.Path
	if wsPath == "" {
		wsPath = defaultWSPath
	}
	r.Get(wsPath, s.handleWebSocket)

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
