package capability

import "errors"

var (
	// ErrGateClosed means the precondition for a gated write does not hold.
	// Nothing was written, cached or persisted.
	ErrGateClosed = errors.New("capability: gate closed")

	// ErrHardware means the hardware write failed. The cached and persisted
	// values are unchanged.
	ErrHardware = errors.New("capability: hardware error")

	// ErrInvalidValue means the value was rejected before reaching hardware.
	ErrInvalidValue = errors.New("capability: invalid value")

	// ErrReadOnly means the attribute has no hardware write path.
	ErrReadOnly = errors.New("capability: read-only")
)
