package hypixel

import "errors"

// Sentinel kinds for outbound API errors.
var (
	ErrFetch = errors.New("game api fetch failed")
)
