package store

import "errors"

// Sentinel kinds for store errors.
var (
	ErrOpen = errors.New("open snapshot store failed")
)
