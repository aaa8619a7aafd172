package compute

import "strconv"

// Reference coefficient tables. Values must match the scoring constants the
// community agreed on; do not round or reorder terms.

// Peak-of-the-mountain milestone bonuses, indexed by the special_0 node tier.
var (
	potmMithril  = []float64{0, 0, 50_000, 125_000, 225_000, 350_000, 350_000, 350_000}
	potmGemstone = []float64{0, 0, 0, 0, 0, 0, 500_000, 1_250_000}
)

// Catacombs completion weights by floor, normal and master mode.
var (
	lincFloorWeights       = []float64{0, 25_000, 25_000, 25_000, 42_000, 33_000, 50_000, 110_000}
	lincMasterFloorWeights = []float64{0, 33_000, 33_000, 42_000, 50_000, 42_000, 59_000, 125_000}
	bossCollectionWeights  = []float64{0, 33, 33, 38, 50, 42, 45, 116}
)

const (
	bossCollectionCap     = 1000
	bossCollectionPenalty = 0.75
)

// Rare sea creature point table, keyed by flattened bestiary family.
var rareSeaCreaturePoints = map[string]float64{
	"night_squid":       18_000,
	"grim_reaper":       252_000,
	"yeti":              74_000,
	"reindrake":         191_000,
	"great_white_shark": 38_000,
	"thunder":           77_000,
	"lord_jawbus":       306_000,
	"abyssal_miner":     22_000,
	"flaming_worm":      800,
	"sea_emperor":       60_000,
	"water_hydra":       15_000,
	"lava_blaze":        1_300,
	"lava_pigman":       1_300,
}

var trophyFishBase = map[string]float64{
	"golden_fish":           400,
	"karate_fish":           160,
	"soul_fish":             80,
	"moldfin":               80,
	"skeleton_fish":         80,
	"vanille":               80,
	"volcanic_stonefish":    24,
	"mana_ray":              40,
	"lava_horse":            32,
	"flyfish":               12,
	"slugfish":              250,
	"obfuscated_fish_3":     40,
	"blobfish":              8,
	"obfuscated_fish_2":     22,
	"gusher":                8,
	"obfuscated_fish_1":     64,
	"steaming_hot_flounder": 4,
	"sulphur_skitter":       2,
}

var trophyFishMultipliers = map[string]float64{
	"bronze":  1,
	"silver":  2.5,
	"gold":    25,
	"diamond": 100,
}

// buildTrophyWeights expands base x multiplier into the per-key table.
func buildTrophyWeights() map[string]float64 {
	weights := make(map[string]float64, len(trophyFishBase)*len(trophyFishMultipliers))
	for fish, base := range trophyFishBase {
		for tier, mult := range trophyFishMultipliers {
			weights[fish+"_"+tier] = base * mult
		}
	}
	return weights
}

// skillPaths is the full experience subsystem; the skill weight guard
// requires at least one of these to be present.
var skillGuardPaths = []string{
	"experience_skill_fishing",
	"experience_skill_mining",
	"experience_skill_combat",
	"experience_skill_foraging",
	"experience_skill_farming",
	"experience_skill_enchanting",
	"experience_skill_alchemy",
	"experience_skill_carpentry",
}

func (e *Engine) registerBuiltins() {
	e.formulas["shark_kills"] = func(s Snapshot) (float64, bool) {
		return e.sumKills(s, e.creatures.Shark), true
	}
	e.formulas["water_kills"] = func(s Snapshot) (float64, bool) {
		total := e.sumKills(s, e.creatures.Shark) +
			e.sumKills(s, e.creatures.Special) +
			e.sumKills(s, e.creatures.Water)
		return total, true
	}
	e.formulas["crimson_kills"] = func(s Snapshot) (float64, bool) {
		return e.sumKills(s, e.creatures.Crimson), true
	}
	e.formulas["dungeon_completions"] = dungeonCompletions
	e.formulas["slayer_weight"] = slayerWeight
	e.formulas["mithril_powder"] = mithrilPowder
	e.formulas["gemstone_powder"] = gemstonePowder
	e.formulas["powder_score"] = func(s Snapshot) (float64, bool) {
		mithril, _ := mithrilPowder(s)
		gemstone, _ := gemstonePowder(s)
		return mithril + gemstone, true
	}
	e.formulas["linc_weight"] = lincWeight
	e.formulas["skill_weight"] = skillWeight
	e.formulas["fishing_actions"] = func(s Snapshot) (float64, bool) {
		return s.NumberOr("stats.pet_milestone_sea_creatures_killed", 0) + s.NumberOr("stats.items_fished", 0), true
	}
	e.formulas["trophy_fish_weight"] = func(s Snapshot) (float64, bool) {
		var total float64
		for key, weight := range e.trophyWeights {
			total += s.NumberOr("trophy_fish."+key, 0) * weight
		}
		return total, true
	}
	e.formulas["marina_fishing_weight"] = func(s Snapshot) (float64, bool) {
		// Scoring a profile that has fishing disabled as zero would let it
		// pollute the bottom of the leaderboard; absent means absent.
		xp, ok := s.Number("experience_skill_fishing")
		if !ok {
			return 0, false
		}
		return e.sumKills(s, e.creatures.Shark)*9_000 + xp, true
	}
	e.formulas["dungeon_boss_collections"] = bossCollections

	e.formulas["bestiary_tiers"] = func(s Snapshot) (float64, bool) {
		stats, ok := e.taxonomy.Compute(s)
		if !ok {
			return 0, false
		}
		total, _ := stats.TierTotals()
		return float64(total), true
	}
	e.formulas["inquisitor_bestiary"] = func(s Snapshot) (float64, bool) {
		stats, ok := e.taxonomy.Compute(s)
		if !ok {
			return 0, false
		}
		return stats.FamilyKills("mythological", "minos_inquisitor")
	}
	e.formulas["mythological_bestiary"] = func(s Snapshot) (float64, bool) {
		stats, ok := e.taxonomy.Compute(s)
		if !ok {
			return 0, false
		}
		return stats.CategoryKills("mythological")
	}
	e.formulas["rare_sea_creature_score"] = func(s Snapshot) (float64, bool) {
		stats, ok := e.taxonomy.Compute(s)
		if !ok {
			return 0, false
		}
		return stats.WeightedKills(rareSeaCreaturePoints), true
	}
}

// sumKills totals stats.kills_<mob> over a creature list, treating missing
// entries as zero.
func (e *Engine) sumKills(s Snapshot, mobs []string) float64 {
	var total float64
	for _, mob := range mobs {
		total += s.NumberOr("stats.kills_"+mob, 0)
	}
	return total
}

func dungeonCompletions(s Snapshot) (float64, bool) {
	var total float64
	for _, path := range []string{
		"dungeons.dungeon_types.catacombs.tier_completions",
		"dungeons.dungeon_types.master_catacombs.tier_completions",
	} {
		if completions, ok := s.Section(path); ok {
			for _, v := range completions {
				if n, ok := toNumber(v); ok {
					total += n
				}
			}
		}
	}
	return total, true
}

func slayerWeight(s Snapshot) (float64, bool) {
	w := s.NumberOr("slayer_bosses.zombie.xp", 0)*0.06 +
		s.NumberOr("slayer_bosses.spider.xp", 0)*0.09 +
		s.NumberOr("slayer_bosses.wolf.xp", 0)*0.3 +
		s.NumberOr("slayer_bosses.enderman.xp", 0)*0.33 +
		s.NumberOr("slayer_bosses.blaze.xp", 0) +
		s.NumberOr("slayer_bosses.vampire.xp", 0)*10
	return w, true
}

// potmBonus looks up a milestone bonus by achievement tier. Out-of-range
// and non-integer tiers contribute nothing.
func potmBonus(s Snapshot, table []float64) float64 {
	raw := s.NumberOr("mining_core.nodes.special_0", 0)
	tier := int(raw)
	if float64(tier) != raw || tier < 0 || tier >= len(table) {
		return 0
	}
	return table[tier]
}

// The powder composites stay meaningful when only one component is present,
// so current, banked and milestone terms default to zero independently.
func mithrilPowder(s Snapshot) (float64, bool) {
	total := s.NumberOr("mining_core.powder_mithril", 0) +
		s.NumberOr("mining_core.powder_spent_mithril", 0) +
		potmBonus(s, potmMithril)
	return total, true
}

func gemstonePowder(s Snapshot) (float64, bool) {
	total := s.NumberOr("mining_core.powder_gemstone", 0) +
		s.NumberOr("mining_core.powder_spent_gemstone", 0) +
		potmBonus(s, potmGemstone)
	return total, true
}

func lincWeight(s Snapshot) (float64, bool) {
	w := s.NumberOr("experience_skill_fishing", 0)*0.2 +
		s.NumberOr("experience_skill_mining", 0)*0.2 +
		s.NumberOr("experience_skill_foraging", 0)*1.33 +
		s.NumberOr("experience_skill_farming", 0) +
		s.NumberOr("experience_skill_enchanting", 0)*0.01 +
		s.NumberOr("experience_skill_carpentry", 0)*0.01 +
		s.NumberOr("slayer_bosses.zombie.xp", 0)*3.12 +
		s.NumberOr("slayer_bosses.spider.xp", 0)*4.88 +
		s.NumberOr("slayer_bosses.wolf.xp", 0)*16.13 +
		s.NumberOr("slayer_bosses.enderman.xp", 0)*18.18 +
		s.NumberOr("slayer_bosses.blaze.xp", 0)*52.63
	for floor := 1; floor <= 7; floor++ {
		w += floorCompletions(s, "catacombs", floor) * lincFloorWeights[floor]
		w += floorCompletions(s, "master_catacombs", floor) * lincMasterFloorWeights[floor]
	}
	w += s.NumberOr("stats.mythos_kills", 0)*3_650 +
		s.NumberOr("leveling.experience", 0)*1_000
	return w, true
}

func skillWeight(s Snapshot) (float64, bool) {
	present := false
	for _, path := range skillGuardPaths {
		if s.Has(path) {
			present = true
			break
		}
	}
	// No experience data at all means the whole subsystem is disabled for
	// this profile, not that every skill is at zero.
	if !present {
		return 0, false
	}
	w := s.NumberOr("experience_skill_fishing", 0)*0.4 +
		s.NumberOr("experience_skill_mining", 0)*0.2 +
		s.NumberOr("experience_skill_combat", 0)*1.2 +
		s.NumberOr("experience_skill_foraging", 0)*1.33 +
		s.NumberOr("experience_skill_farming", 0) +
		s.NumberOr("experience_skill_enchanting", 0)*0.01 +
		s.NumberOr("experience_skill_alchemy", 0)*0.002 +
		s.NumberOr("experience_skill_carpentry", 0)*0.002 +
		s.NumberOr("experience_skill_social2", 0)*7.77
	return w, true
}

func bossCollections(s Snapshot) (float64, bool) {
	var total float64
	for floor := 1; floor <= 7; floor++ {
		runs := floorCompletions(s, "catacombs", floor) + 2*floorCompletions(s, "master_catacombs", floor)
		capped := runs
		overflow := 0.0
		if runs > bossCollectionCap {
			capped = bossCollectionCap
			overflow = (runs - bossCollectionCap) * bossCollectionPenalty
		}
		total += (capped + overflow) * bossCollectionWeights[floor]
	}
	return total, true
}

func floorCompletions(s Snapshot, mode string, floor int) float64 {
	return s.NumberOr("dungeons.dungeon_types."+mode+".tier_completions."+strconv.Itoa(floor), 0)
}
