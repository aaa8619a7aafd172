package compute

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Creatures groups mob ids into the named lists the kill-sum formulas draw
// from.
type Creatures struct {
	Shark   []string `yaml:"shark"`
	Water   []string `yaml:"water"`
	Special []string `yaml:"special"`
	Crimson []string `yaml:"crimson"`
}

//go:embed data/creatures.yaml
var defaultCreatures []byte

// LoadCreatures parses the embedded creature index, or the file at path
// when path is non-empty.
func LoadCreatures(path string) (*Creatures, error) {
	data := defaultCreatures
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		data = b
	}
	var c Creatures
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadCatalog, err)
	}
	return &c, nil
}
