package influxdb

import "errors"

var (
	// ErrDisabled is returned by Connect when influxdb.enabled is false.
	// Callers treat it as "no telemetry sink", not as a failure.
	ErrDisabled = errors.New("influxdb: telemetry sink disabled")

	// ErrUnreachable means the server did not answer the startup ping or
	// reported itself unhealthy.
	ErrUnreachable = errors.New("influxdb: server unreachable")

	// ErrClosed is returned by HealthCheck once Close has been called.
	ErrClosed = errors.New("influxdb: client closed")
)
