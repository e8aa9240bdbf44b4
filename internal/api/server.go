// Package api provides the HTTP REST API and WebSocket server for the device
// settings service.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/gray-logic-devicesettings/internal/audit"
	"github.com/nerrad567/gray-logic-devicesettings/internal/facet/diagnostics"
	"github.com/nerrad567/gray-logic-devicesettings/internal/facet/fpd"
	"github.com/nerrad567/gray-logic-devicesettings/internal/facet/hdmiin"
	"github.com/nerrad567/gray-logic-devicesettings/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-devicesettings/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// AttributeRecorder is told about every setting changed through the API.
type AttributeRecorder interface {
	AttributeChanged(facet, target, attribute string, value any)
}

// PublisherStats reports event publisher counters.
type PublisherStats interface {
	Stats() (published, failed uint64)
}

// ConnectionChecker reports whether an optional backend is connected.
type ConnectionChecker interface {
	IsConnected() bool
}

// Deps holds the dependencies required by the API server. Facets and the
// change history are optional; a nil one has no routes.
type Deps struct {
	Config      config.APIConfig
	WS          config.WebSocketConfig
	Logger      *logging.Logger
	Diagnostics *diagnostics.Service
	HDMIIn      *hdmiin.Service
	FPD         *fpd.Service
	Recorder    AttributeRecorder
	Changes     audit.Repository
	Publisher   PublisherStats
	MQTT        ConnectionChecker
	Version     string
}

// Server is the HTTP API server for the device settings service.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	logger      *logging.Logger
	diagnostics *diagnostics.Service
	hdmiin      *hdmiin.Service
	fpd         *fpd.Service
	recorder    AttributeRecorder
	changes     audit.Repository
	publisher   PublisherStats
	mqtt        ConnectionChecker
	version     string
	startTime   time.Time
	server      *http.Server
	hub         *Hub
	cancel      context.CancelFunc // cancels the hub on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger) and the enabled facets
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	s := &Server{
		cfg:         deps.Config,
		wsCfg:       deps.WS,
		logger:      deps.Logger,
		diagnostics: deps.Diagnostics,
		hdmiin:      deps.HDMIIn,
		fpd:         deps.FPD,
		recorder:    deps.Recorder,
		changes:     deps.Changes,
		publisher:   deps.Publisher,
		mqtt:        deps.MQTT,
		version:     deps.Version,
		startTime:   time.Now(),
	}
	s.hub = NewHub(s.wsCfg, s.logger)
	return s, nil
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub, registers it with the eventing facets, and
// launches the HTTP listener in a background goroutine. The server can be
// stopped with Close().
//
// Parameters:
//   - ctx: Parent context for the hub (not used for listener lifetime)
//
// Returns:
//   - error: If the hub cannot be registered with a facet
func (s *Server) Start(ctx context.Context) error {
	if err := s.startHub(ctx); err != nil {
		return err
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// startHub runs the hub and registers it as an observer of every eventing facet.
func (s *Server) startHub(ctx context.Context) error {
	var hubCtx context.Context
	hubCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(hubCtx)

	if s.diagnostics != nil {
		if err := s.diagnostics.Register(s.hub); err != nil {
			return fmt.Errorf("registering hub with diagnostics: %w", err)
		}
	}
	if s.hdmiin != nil {
		if err := s.hdmiin.Register(s.hub); err != nil {
			return fmt.Errorf("registering hub with hdmiin: %w", err)
		}
	}
	return nil
}

// Close gracefully shuts down the API server.
//
// The hub is unregistered from the facets first so no events are queued
// for clients that are about to be disconnected. It then waits up to 10
// seconds for in-flight requests to complete.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.cancel == nil {
		return nil
	}

	if s.diagnostics != nil {
		s.diagnostics.Unregister(s.hub) //nolint:errcheck // Not registered if Start failed early
	}
	if s.hdmiin != nil {
		s.hdmiin.Unregister(s.hub) //nolint:errcheck // Not registered if Start failed early
	}
	s.cancel()

	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}

// recordChange forwards a successful write to the recorder and broadcasts it
// on the hub's attribute channel.
func (s *Server) recordChange(facet, target, attribute string, value any) {
	if s.recorder != nil {
		s.recorder.AttributeChanged(facet, target, attribute, value)
	}
	s.hub.Broadcast(facet+"."+ChannelAttribute, map[string]any{
		"target":    target,
		"attribute": attribute,
		"value":     value,
	})
}
