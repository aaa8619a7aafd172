package random

import "errors"

// Sentinel kinds for selection errors.
var (
	ErrNoCandidates = errors.New("no candidates to pick from")
	ErrExhausted    = errors.New("randomness exhausted before a valid index")
)
