// Package catalog holds the versionable table of metric definitions.
//
// A metric is either extracted by walking a dotted field path through the
// raw snapshot, or computed by a named formula registered in the compute
// engine. The catalog is pure data; formula names are resolved against the
// engine's registry when the engine is built.
package catalog

import (
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Metric defines one named numeric observation.
type Metric struct {
	// Name is the stable key used everywhere else.
	Name string `yaml:"name"`

	// Counter is the human-readable unit label, e.g. "xp" or "kills".
	Counter string `yaml:"counter"`

	// Path is a dotted field path into the raw snapshot. Mutually
	// exclusive with Formula.
	Path string `yaml:"path,omitempty"`

	// Formula names a bespoke calculation registered in the compute engine.
	Formula string `yaml:"formula,omitempty"`
}

// Catalog is a set of metric definitions keyed by name. Readers and hot
// redefinition via Put may run concurrently.
type Catalog struct {
	mu     sync.RWMutex
	byName map[string]Metric
	order  []string
}

type catalogFile struct {
	Metrics []Metric `yaml:"metrics"`
}

// New builds a Catalog from definitions, rejecting duplicates and
// definitions that carry both or neither extraction rule.
func New(defs []Metric) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]Metric, len(defs))}
	for _, def := range defs {
		if err := c.put(def); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Parse decodes a YAML catalog document and builds a Catalog from it.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return New(f.Metrics)
}

func (c *Catalog) put(def Metric) error {
	if def.Name == "" {
		return fmt.Errorf("%w: metric with empty name", ErrBadRule)
	}
	if (def.Path == "") == (def.Formula == "") {
		return fmt.Errorf("%w: metric %q must set exactly one of path or formula", ErrBadRule, def.Name)
	}
	if _, exists := c.byName[def.Name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateMetric, def.Name)
	}
	c.byName[def.Name] = def
	c.order = append(c.order, def.Name)
	return nil
}

// Put upserts a definition by name. Redefining a metric changes future
// computations only; stored observations are never rewritten.
func (c *Catalog) Put(def Metric) error {
	if def.Name == "" {
		return fmt.Errorf("%w: metric with empty name", ErrBadRule)
	}
	if (def.Path == "") == (def.Formula == "") {
		return fmt.Errorf("%w: metric %q must set exactly one of path or formula", ErrBadRule, def.Name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.byName[def.Name]; !exists {
		c.order = append(c.order, def.Name)
	}
	c.byName[def.Name] = def
	return nil
}

// Get returns the definition for name.
func (c *Catalog) Get(name string) (Metric, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.byName[name]
	return def, ok
}

// Metrics returns all definitions in insertion order.
func (c *Catalog) Metrics() []Metric {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Metric, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.byName[name])
	}
	return out
}

// Names returns all metric names sorted lexically, e.g. for event candidate lists.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.byName))
	for name := range c.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of definitions.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byName)
}
