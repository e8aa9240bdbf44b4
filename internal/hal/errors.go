package hal

import "errors"

var (
	// ErrUnsupported means the platform does not implement the operation.
	ErrUnsupported = errors.New("hal: operation not supported")

	// ErrInvalidPort means the HDMI input port does not exist.
	ErrInvalidPort = errors.New("hal: invalid HDMI input port")

	// ErrInvalidIndicator means the front-panel indicator does not exist.
	ErrInvalidIndicator = errors.New("hal: invalid front-panel indicator")

	// ErrOutOfRange means a numeric value is outside the range the hardware accepts.
	ErrOutOfRange = errors.New("hal: value out of range")
)
