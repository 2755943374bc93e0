// Package hazard maps GHS hazard statement codes onto a summary risk taxonomy.
package hazard

import (
	"strings"

	"github.com/agritox/agritox/internal/core"
)

const defaultEnvironmental = "Low to moderate"

// Normalize summarizes a set of hazard codes.
//
// The mammalian level is taken from the first tier, scanned low, moderate,
// high, that holds any of the codes. A set holding both a low and a high code
// therefore reports Low. Codes outside every tier leave the level at
// "Low to moderate".
func Normalize(codes core.CodeSet) core.ToxicitySummary {
	sorted := codes.Sorted()

	mammalian := make([]string, 0)
	environmental := make([]string, 0)
	for _, code := range sorted {
		if phrase, ok := mammalianPhrases[code]; ok {
			mammalian = append(mammalian, phrase)
		}
		if phrase, ok := environmentalPhrases[code]; ok {
			environmental = append(environmental, phrase)
		}
	}

	level := core.MammalianLowToModerate
	for _, tier := range tierOrder {
		if containsAny(codes, tierCodes[tier]) {
			level = levelForTier(tier)
			break
		}
	}

	if len(environmental) == 0 {
		environmental = []string{defaultEnvironmental}
	}

	return core.ToxicitySummary{
		MammalianLevel:       level,
		MammalianDetails:     mammalian,
		EnvironmentalDetails: environmental,
	}
}

// MentionsAquatic reports whether any environmental phrase concerns aquatic life.
func MentionsAquatic(summary core.ToxicitySummary) bool {
	for _, detail := range summary.EnvironmentalDetails {
		if strings.Contains(strings.ToLower(detail), "aquatic") {
			return true
		}
	}
	return false
}

func containsAny(codes core.CodeSet, candidates []string) bool {
	for _, candidate := range candidates {
		if codes.Has(candidate) {
			return true
		}
	}
	return false
}

func levelForTier(tier Tier) core.MammalianLevel {
	switch tier {
	case TierLow:
		return core.MammalianLow
	case TierModerate:
		return core.MammalianModerate
	case TierHigh:
		return core.MammalianHigh
	default:
		return core.MammalianUnknown
	}
}
