// Package api implements the HTTP REST API and WebSocket event stream for
// the device settings service.
//
// This package provides:
//   - REST endpoints for every facet attribute (GET reads, PUT writes)
//   - WebSocket hub that relays facet events to connected clients
//   - Paginated history of setting changes
//   - Request body validation with go-playground/validator
//   - Middleware stack (request ID, logging, recovery, body limit)
//
// # Architecture
//
// The API is a thin forwarding layer over the facets. Handlers parse the
// path and body, call the facet, and map facet errors onto HTTP status codes:
//
//	capability.ErrGateClosed    409 gate_closed
//	capability.ErrHardware      503 hardware_error
//	invalid value or body       400 bad_request / validation_error
//	unknown port or indicator   404 not_found
//	hal.ErrUnsupported          501 unsupported
//
// The Hub registers once with each eventing facet and fans events out to
// the WebSocket clients subscribed to "{facet}.{kind}" channels. A client
// may subscribe to "{facet}.*" for every kind of one facet, or "*".
//
// # Graceful Degradation
//
// A facet that is disabled in configuration simply has no routes; the rest
// of the API keeps working.
package api
