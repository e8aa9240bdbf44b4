package workqueue

import "errors"

// ErrStopped is returned by Submit once Stop has been called.
var ErrStopped = errors.New("workqueue: stopped")
