package tech

// Tier bands. Tier 4 ("revolutionary and beyond") repeats its economics for
// every higher level.
const (
	TierBasic = iota
	TierStandard
	TierAdvanced
	TierCutting
	TierRevolutionary

	MaxTier = TierRevolutionary

	// LevelsPerTier is the width of one tier band in tech levels.
	LevelsPerTier = 30
)

var (
	monthlyCost = [MaxTier + 1]int64{500000, 800000, 1500000, 3000000, 5000000}
	threshold   = [MaxTier + 1]float64{800, 1200, 1800, 2500, 4000}
)

// Tier derives the tier band from a tech level: min(4, floor(level/30)).
func Tier(level int) int {
	if level < 0 {
		return TierBasic
	}
	t := level / LevelsPerTier
	if t > MaxTier {
		return MaxTier
	}
	return t
}

// MonthlyCost is the research cost per month for a tier, in minor units.
func MonthlyCost(tier int) int64 {
	return monthlyCost[clampTier(tier)]
}

// Threshold is the innovation points required for a breakthrough in a tier.
func Threshold(tier int) float64 {
	return threshold[clampTier(tier)]
}

// BreakthroughGain is the tech-level jump awarded by a breakthrough.
func BreakthroughGain(tier int) int {
	switch {
	case tier <= TierAdvanced:
		return 10
	case tier == TierCutting:
		return 8
	default:
		return 5
	}
}

func clampTier(tier int) int {
	if tier < 0 {
		return 0
	}
	if tier > MaxTier {
		return MaxTier
	}
	return tier
}
