package storage

import "errors"

// ErrNotFound is returned when the requested signal ID is not in the store
var ErrNotFound = errors.New("signal not found")
