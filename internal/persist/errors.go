package persist

import "errors"

// ErrPropertyNotFound is returned by GetProperty when no value is stored under the key.
var ErrPropertyNotFound = errors.New("persist: property not found")
