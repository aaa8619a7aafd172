package catalog

import (
	_ "embed"
	"os"
)

//go:embed data/metrics.yaml
var defaultCatalog []byte

// LoadDefault parses the embedded metric catalog, or the file at path when
// path is non-empty.
func LoadDefault(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		data = b
	}
	return Parse(data)
}
