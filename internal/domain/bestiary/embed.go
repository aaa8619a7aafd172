package bestiary

import (
	_ "embed"
	"os"
)

//go:embed data/bestiary.yaml
var defaultTaxonomy []byte

// LoadDefault parses the embedded taxonomy, or the file at path when path
// is non-empty.
func LoadDefault(path string) (*Taxonomy, error) {
	data := defaultTaxonomy
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		data = b
	}
	return Parse(data)
}
