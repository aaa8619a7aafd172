package compute

import "errors"

// Sentinel kinds for engine construction errors. The engine never errors on
// missing snapshot data; only an inconsistent catalog is fatal.
var (
	ErrBadCatalog     = errors.New("invalid catalog")
	ErrUnknownFormula = errors.New("unknown formula reference")
)
