package store

import "errors"

// ErrNotFound covers both a missing record and an id owned by another
// tenant; callers must not be able to tell the two apart.
var ErrNotFound = errors.New("not found")
