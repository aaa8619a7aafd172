package service

import "errors"

// Sentinel kinds for service lifecycle and request errors.
var (
	ErrNotConfigured = errors.New("service missing store, engine or fetcher")
	ErrNotStarted    = errors.New("service not started")
	ErrNoBeacon      = errors.New("no randomness source configured")
	ErrBadMetricDef  = errors.New("invalid metric definition")
)
