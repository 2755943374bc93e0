package hazard

import (
	"regexp"
	"strings"

	"github.com/agritox/agritox/internal/core"
)

var (
	hazardCodePattern        = regexp.MustCompile(`\bH\d{3}\b`)
	precautionaryCodePattern = regexp.MustCompile(`\bP\d{3}\b`)
)

// ExtractHazardCodes returns the sorted, deduplicated H-codes found in text.
// EU supplemental codes (EUH###) are not matched.
func ExtractHazardCodes(text string) []string {
	return extract(hazardCodePattern, text)
}

// ExtractPrecautionaryCodes returns the sorted, deduplicated P-codes found in text.
// Combined statements such as "P301+P312" yield each code.
func ExtractPrecautionaryCodes(text string) []string {
	return extract(precautionaryCodePattern, text)
}

func extract(pattern *regexp.Regexp, text string) []string {
	matches := pattern.FindAllString(strings.ToUpper(text), -1)
	set := core.NewCodeSet(matches...)
	return set.Sorted()
}

// PrecautionLines renders P-codes as "P273: Avoid release to the environment."
// lines in code order. Unknown codes are listed bare.
func PrecautionLines(codes core.CodeSet) []string {
	sorted := codes.Sorted()
	lines := make([]string, 0, len(sorted))
	for _, code := range sorted {
		if phrase, ok := precautionPhrases[code]; ok {
			lines = append(lines, code+": "+phrase)
			continue
		}
		lines = append(lines, code)
	}
	return lines
}
