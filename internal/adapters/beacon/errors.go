package beacon

import "errors"

// Sentinel kinds for beacon errors.
var (
	ErrBadChain = errors.New("invalid beacon chain parameters")
	ErrFetch    = errors.New("beacon fetch failed")
)
