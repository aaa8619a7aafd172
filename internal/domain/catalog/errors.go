package catalog

import "errors"

// Sentinel kinds for catalog errors. A malformed catalog is fatal at
// startup; ingestion must not run against an inconsistent definition set.
var (
	ErrParse           = errors.New("catalog parse failed")
	ErrDuplicateMetric = errors.New("duplicate metric name")
	ErrBadRule         = errors.New("invalid extraction rule")
)
