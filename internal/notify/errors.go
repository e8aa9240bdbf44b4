package notify

import "errors"

// Registry errors. Both are benign; callers log them at warning level.
var (
	ErrAlreadyRegistered = errors.New("notify: observer already registered")
	ErrNotFound          = errors.New("notify: observer not found")
	ErrNilObserver       = errors.New("notify: nil observer")
)
