// Package compute turns raw nested snapshots into flat named observations.
//
// The engine is a pure function of its inputs: a metric catalog, a creature
// index, and a flattened bestiary taxonomy, all injected at construction.
// Absence is a first-class result: a metric whose prerequisite sub-document
// is missing is omitted from the output, never reported as zero.
package compute

import (
	"fmt"

	"github.com/shrimple-guild/leaderboard/internal/domain/bestiary"
	"github.com/shrimple-guild/leaderboard/internal/domain/catalog"
)

// Formula is a named pure calculation over the full raw snapshot.
// The boolean result distinguishes a genuine zero from absence.
type Formula func(s Snapshot) (float64, bool)

// Engine evaluates every catalog metric against raw snapshots.
type Engine struct {
	catalog   *catalog.Catalog
	taxonomy  *bestiary.Taxonomy
	creatures *Creatures
	formulas  map[string]Formula

	// trophyWeights is the base x multiplier cross product, built once.
	trophyWeights map[string]float64
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithFormula registers (or overrides) a bespoke formula before catalog
// validation runs.
func WithFormula(name string, f Formula) Option {
	return func(e *Engine) {
		e.formulas[name] = f
	}
}

// NewEngine builds an Engine and validates that every catalog formula
// reference resolves. A malformed catalog is the only construction error;
// missing snapshot data never errors later.
func NewEngine(cat *catalog.Catalog, taxonomy *bestiary.Taxonomy, creatures *Creatures, opts ...Option) (*Engine, error) {
	if cat == nil {
		return nil, fmt.Errorf("%w: nil catalog", ErrBadCatalog)
	}
	e := &Engine{
		catalog:       cat,
		taxonomy:      taxonomy,
		creatures:     creatures,
		formulas:      make(map[string]Formula),
		trophyWeights: buildTrophyWeights(),
	}
	e.registerBuiltins()
	for _, opt := range opts {
		opt(e)
	}

	for _, def := range cat.Metrics() {
		if def.Formula == "" {
			continue
		}
		if _, ok := e.formulas[def.Formula]; !ok {
			return nil, fmt.Errorf("%w: metric %q references formula %q", ErrUnknownFormula, def.Name, def.Formula)
		}
	}
	return e, nil
}

// Compute evaluates the whole catalog against one raw snapshot, omitting
// any metric whose value cannot be determined.
func (e *Engine) Compute(s Snapshot) map[string]float64 {
	out := make(map[string]float64, e.catalog.Len())
	for _, def := range e.catalog.Metrics() {
		if v, ok := e.computeOne(s, def); ok {
			out[def.Name] = v
		}
	}
	return out
}

// ComputeMetric evaluates a single named metric.
func (e *Engine) ComputeMetric(s Snapshot, name string) (float64, bool) {
	def, ok := e.catalog.Get(name)
	if !ok {
		return 0, false
	}
	return e.computeOne(s, def)
}

func (e *Engine) computeOne(s Snapshot, def catalog.Metric) (float64, bool) {
	if def.Path != "" {
		return s.Number(def.Path)
	}
	f, ok := e.formulas[def.Formula]
	if !ok {
		return 0, false
	}
	return f(s)
}

// HasFormula reports whether a named formula is registered. Hot catalog
// updates use it to reject definitions the engine cannot evaluate.
func (e *Engine) HasFormula(name string) bool {
	_, ok := e.formulas[name]
	return ok
}

// Catalog returns the engine's metric catalog.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}
