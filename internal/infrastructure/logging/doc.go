// Package logging provides structured logging for the device settings service.
//
// This package wraps Go's standard log/slog package so every component logs
// with the same shape: JSON in production, text in development, and the
// service and version attributes on every entry.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("starting service", "port", 8090)
//	pollLogger := logger.Component("poll")
//
// Components take a narrow Logger interface (Debug/Info/Warn/Error), which
// *Logger satisfies through its embedded *slog.Logger.
package logging
