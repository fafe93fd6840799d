package store

import "errors"

// ErrNotFound is returned by repository lookups when no matching row exists.
var ErrNotFound = errors.New("store: not found")
