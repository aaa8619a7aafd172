// Package bestiary implements the categorical kill-count sub-engine.
//
// A nested taxonomy (category -> family -> member mobs) is flattened once at
// startup into family entries carrying a kill cap and a tier bracket. Per
// snapshot the engine sums member kills per family, clips to the cap, and
// resolves the milestone tier from the bracket ladder. Aggregate metrics
// (total tiers, mythological kills, rare sea creature score) derive from the
// flattened structure.
package bestiary

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Family is one taxonomy leaf: a named group of mobs sharing a cap and bracket.
type Family struct {
	Name    string   `yaml:"name"`
	Cap     float64  `yaml:"cap"`
	Mobs    []string `yaml:"mobs"`
	Bracket int      `yaml:"bracket"`
}

// FamilyStats is the per-snapshot result for one family.
type FamilyStats struct {
	// Tier is the highest milestone not exceeding the clipped kill sum,
	// 1-based; zero kills resolve to tier 0.
	Tier int

	// Kills is the raw, unclipped sum across member mobs.
	Kills float64

	// Maxed reports whether raw kills reached the family cap.
	Maxed bool
}

// Stats maps category key -> family key -> per-family results.
type Stats map[string]map[string]FamilyStats

// Taxonomy is the flattened, immutable lookup structure built at startup.
type Taxonomy struct {
	brackets map[int][]float64
	families map[string][]Family // category key -> families
}

var formattingCodes = regexp.MustCompile("§[0-9a-fklmnor]")

type taxonomyFile struct {
	Brackets   map[int][]float64    `yaml:"brackets"`
	Categories map[string]yaml.Node `yaml:"categories"`
}

// Parse decodes a taxonomy document and flattens its nested categories.
// Nested category keys are joined with underscores, mirroring the upstream
// constants layout.
func Parse(data []byte) (*Taxonomy, error) {
	var f taxonomyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	if len(f.Brackets) == 0 {
		return nil, fmt.Errorf("%w: no brackets defined", ErrParse)
	}

	t := &Taxonomy{
		brackets: f.Brackets,
		families: make(map[string][]Family),
	}
	for key, node := range f.Categories {
		if err := t.flatten(key, node); err != nil {
			return nil, err
		}
	}
	for category, families := range t.families {
		for _, family := range families {
			if _, ok := t.brackets[family.Bracket]; !ok {
				return nil, fmt.Errorf("%w: family %q in %q references bracket %d", ErrParse, family.Name, category, family.Bracket)
			}
		}
	}
	return t, nil
}

// flatten walks one category node. A node holding a "mobs" key is a leaf
// carrying the family list; anything else is a nested category whose key is
// prefixed onto its children.
func (t *Taxonomy) flatten(key string, node yaml.Node) error {
	var leaf struct {
		Mobs []Family `yaml:"mobs"`
	}
	if err := node.Decode(&leaf); err == nil && len(leaf.Mobs) > 0 {
		t.families[key] = leaf.Mobs
		return nil
	}

	var nested map[string]yaml.Node
	if err := node.Decode(&nested); err != nil {
		return fmt.Errorf("%w: category %q: %w", ErrParse, key, err)
	}
	for sub, subNode := range nested {
		if err := t.flatten(key+"_"+sub, subNode); err != nil {
			return err
		}
	}
	return nil
}

// familyKey normalizes a display name into the stable lookup key.
func familyKey(name string) string {
	cleaned := formattingCodes.ReplaceAllString(name, "")
	return strings.ReplaceAll(strings.ToLower(cleaned), " ", "_")
}

// milestoneTier returns the 1-based index of the highest threshold not
// exceeding kills, or 0 when even the first threshold is unmet.
func milestoneTier(kills float64, bracket []float64) int {
	highest := -1
	for tier := 0; tier < len(bracket) && kills >= bracket[tier]; tier++ {
		highest = tier
	}
	return highest + 1
}

// Compute resolves per-family stats from a raw profile document. The whole
// sub-engine is gated on the snapshot exposing migrated bestiary data: when
// the gate fails it returns (nil, false) and every derived categorical
// metric is absent, never zero.
func (t *Taxonomy) Compute(member map[string]any) (Stats, bool) {
	section, ok := member["bestiary"].(map[string]any)
	if !ok {
		return nil, false
	}
	if !truthy(section["migration"]) || !truthy(section["migrated_stats"]) {
		return nil, false
	}
	kills, _ := section["kills"].(map[string]any)

	stats := make(Stats, len(t.families))
	for category, families := range t.families {
		perFamily := make(map[string]FamilyStats, len(families))
		for _, family := range families {
			var sum float64
			for _, mob := range family.Mobs {
				sum += number(kills[mob])
			}
			clipped := sum
			if clipped > family.Cap {
				clipped = family.Cap
			}
			perFamily[familyKey(family.Name)] = FamilyStats{
				Tier:  milestoneTier(clipped, t.brackets[family.Bracket]),
				Kills: sum,
				Maxed: sum >= family.Cap,
			}
		}
		stats[category] = perFamily
	}
	return stats, true
}

// TierTotals sums milestone tiers per category and overall.
func (s Stats) TierTotals() (total int, perCategory map[string]int) {
	perCategory = make(map[string]int, len(s))
	for category, families := range s {
		for _, f := range families {
			perCategory[category] += f.Tier
		}
		total += perCategory[category]
	}
	return total, perCategory
}

// FamilyKills returns the raw kill sum for one family in one category.
func (s Stats) FamilyKills(category, family string) (float64, bool) {
	families, ok := s[category]
	if !ok {
		return 0, false
	}
	f, ok := families[family]
	if !ok {
		return 0, false
	}
	return f.Kills, true
}

// CategoryKills sums raw kills across every family in a category.
func (s Stats) CategoryKills(category string) (float64, bool) {
	families, ok := s[category]
	if !ok {
		return 0, false
	}
	var sum float64
	for _, f := range families {
		sum += f.Kills
	}
	return sum, true
}

// WeightedKills sums family kills scaled by a per-family point table,
// searching every category for the named families.
func (s Stats) WeightedKills(points map[string]float64) float64 {
	var score float64
	for _, families := range s {
		for key, f := range families {
			if weight, ok := points[key]; ok {
				score += f.Kills * weight
			}
		}
	}
	return score
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	default:
		return false
	}
}

func number(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	default:
		return 0
	}
}
