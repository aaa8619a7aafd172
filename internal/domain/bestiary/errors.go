package bestiary

import "errors"

// Sentinel kinds for taxonomy loading errors.
var (
	ErrParse = errors.New("bestiary taxonomy parse failed")
)
