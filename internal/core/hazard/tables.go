package hazard

// Tier groups hazard codes by severity.
type Tier string

const (
	TierLow      Tier = "low"
	TierModerate Tier = "moderate"
	TierHigh     Tier = "high"
)

// mammalianPhrases maps acute mammalian toxicity codes to phrases.
var mammalianPhrases = map[string]string{
	"H300": "Fatal if swallowed",
	"H301": "Toxic if swallowed",
	"H302": "Harmful if swallowed",
	"H310": "Fatal in contact with skin",
	"H311": "Toxic in contact with skin",
	"H312": "Harmful in contact with skin",
	"H330": "Fatal if inhaled",
	"H331": "Toxic if inhaled",
	"H332": "Harmful if inhaled",
}

// environmentalPhrases maps environmental toxicity codes to phrases.
var environmentalPhrases = map[string]string{
	"H400": "Very toxic to aquatic life",
	"H401": "Toxic to aquatic life",
	"H402": "Harmful to aquatic life",
	"H410": "Very toxic to aquatic life with long lasting effects",
	"H411": "Toxic to aquatic life with long lasting effects",
	"H412": "Harmful to aquatic life with long lasting effects",
	"H420": "Harms bees",
}

// tierOrder is the scan order used by Normalize. The first tier holding any
// code decides the level.
var tierOrder = []Tier{TierLow, TierModerate, TierHigh}

var tierCodes = map[Tier][]string{
	TierLow:      {"H302", "H312", "H332"},
	TierModerate: {"H311", "H331", "H401", "H412"},
	TierHigh:     {"H300", "H301", "H310", "H330", "H400", "H410"},
}

// precautionPhrases covers the precautionary statements common on pesticide labels.
var precautionPhrases = map[string]string{
	"P102": "Keep out of reach of children.",
	"P201": "Obtain special instructions before use.",
	"P202": "Do not handle until all safety precautions have been read and understood.",
	"P260": "Do not breathe dust/fume/gas/mist/vapours/spray.",
	"P261": "Avoid breathing dust/fume/gas/mist/vapours/spray.",
	"P262": "Do not get in eyes, on skin, or on clothing.",
	"P264": "Wash hands thoroughly after handling.",
	"P270": "Do not eat, drink or smoke when using this product.",
	"P271": "Use only outdoors or in a well-ventilated area.",
	"P272": "Contaminated work clothing should not be allowed out of the workplace.",
	"P273": "Avoid release to the environment.",
	"P280": "Wear protective gloves/protective clothing/eye protection/face protection.",
	"P284": "Wear respiratory protection.",
	"P301": "IF SWALLOWED:",
	"P302": "IF ON SKIN:",
	"P304": "IF INHALED:",
	"P305": "IF IN EYES:",
	"P308": "IF exposed or concerned:",
	"P310": "Immediately call a POISON CENTER or doctor.",
	"P312": "Call a POISON CENTER or doctor if you feel unwell.",
	"P330": "Rinse mouth.",
	"P337": "If eye irritation persists:",
	"P338": "Remove contact lenses, if present and easy to do. Continue rinsing.",
	"P351": "Rinse cautiously with water for several minutes.",
	"P352": "Wash with plenty of water.",
	"P362": "Take off contaminated clothing.",
	"P391": "Collect spillage.",
	"P403": "Store in a well-ventilated place.",
	"P405": "Store locked up.",
	"P501": "Dispose of contents/container in accordance with local regulations.",
}

// TierCodes returns a copy of the codes grouped under tier.
func TierCodes(tier Tier) []string {
	codes := tierCodes[tier]
	out := make([]string, len(codes))
	copy(out, codes)
	return out
}
