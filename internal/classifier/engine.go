package classifier

import (
	"regexp"
	"sort"
	"strings"
)

// Engine performs deterministic keyword/code classification of award text.
// It carries no state and no learned weights; identical inputs always
// produce identical results.
type Engine struct{}

// NewEngine creates a new classification engine
func NewEngine() *Engine {
	return &Engine{}
}

// Result represents the classification of a single award record
type Result struct {
	PrimaryCategory     string   `json:"primary_category"`
	SecondaryCategories []string `json:"secondary_categories"`
	Capabilities        []string `json:"capabilities"`
	Confidence          float64  `json:"confidence"`
}

// DefaultCategory is assigned when neither keywords nor codes match
const DefaultCategory = "Professional Services"

const (
	naicsBoost = 3
	pscBoost   = 2

	maxSecondaryCategories = 3
	maxConfidence          = 0.95
)

// categoryKeywords maps each category to the keywords that score it.
// Matching is case-insensitive substring.
var categoryKeywords = map[string][]string{
	"IT Services": {
		"software", "information technology", "it services", "cybersecurity",
		"network", "cloud", "data center", "help desk", "system integration",
		"application development",
	},
	"Professional Services": {
		"consulting", "advisory", "management support", "staffing",
		"professional services", "technical assistance",
	},
	"Construction": {
		"construction", "renovation", "building", "facility repair",
		"infrastructure", "paving", "roofing", "demolition",
	},
	"Research & Development": {
		"research", "development", "laboratory", "scientific", "prototype",
		"innovation", "sbir", "sttr",
	},
	"Healthcare": {
		"medical", "health", "clinical", "pharmaceutical", "hospital",
		"nursing", "behavioral",
	},
	"Logistics & Transportation": {
		"logistics", "transportation", "freight", "shipping", "warehouse",
		"distribution", "fleet",
	},
	"Engineering": {
		"engineering", "mechanical", "electrical", "civil", "structural",
		"aerospace", "naval",
	},
	"Manufacturing": {
		"manufacturing", "production", "fabrication", "assembly", "machining",
		"industrial",
	},
	"Facilities Management": {
		"janitorial", "custodial", "maintenance", "landscaping", "grounds",
		"housekeeping",
	},
	"Security Services": {
		"guard", "security services", "surveillance", "protective services",
		"access control",
	},
	"Training & Education": {
		"training", "education", "curriculum", "instruction", "courseware",
	},
}

// naicsPrefixCategories maps 2-digit NAICS prefixes to categories. A code
// match adds a fixed boost so structured codes dominate noisy free text.
var naicsPrefixCategories = map[string]string{
	"23": "Construction",
	"31": "Manufacturing",
	"32": "Manufacturing",
	"33": "Manufacturing",
	"48": "Logistics & Transportation",
	"49": "Logistics & Transportation",
	"51": "IT Services",
	"54": "Professional Services",
	"56": "Facilities Management",
	"61": "Training & Education",
	"62": "Healthcare",
}

// pscPrefixCategories maps PSC leading letters to categories, with a
// smaller boost than NAICS
var pscPrefixCategories = map[string]string{
	"D": "IT Services",
	"Q": "Healthcare",
	"R": "Professional Services",
	"U": "Training & Education",
	"V": "Logistics & Transportation",
	"Y": "Construction",
	"Z": "Construction",
}

// capabilityPatterns maps capability tags to the regex that detects them.
// Capabilities are independent of categories and not mutually exclusive.
var capabilityPatterns = map[string]*regexp.Regexp{
	"Cloud Computing":       regexp.MustCompile(`(?i)\bcloud\b|\baws\b|\bazure\b|\bsaas\b|\biaas\b`),
	"Cybersecurity":         regexp.MustCompile(`(?i)cyber|information assurance|threat|zero trust|\brmf\b|fisma`),
	"AI & Machine Learning": regexp.MustCompile(`(?i)artificial intelligence|machine learning|deep learning|\bai\b|\bml\b`),
	"Data Analytics":        regexp.MustCompile(`(?i)data analytics|big data|business intelligence|data warehouse`),
	"Program Management":    regexp.MustCompile(`(?i)program management|project management|\bpmo\b|\bpmp\b`),
	"Quality Assurance":     regexp.MustCompile(`(?i)quality assurance|\bqa\b|iso 9001|quality control`),
	"DevSecOps":             regexp.MustCompile(`(?i)devops|devsecops|ci/cd|continuous integration`),
	"Systems Engineering":   regexp.MustCompile(`(?i)systems engineering|systems integration|enterprise architecture`),
}

// Classify produces category and capability tags for a single award.
// naicsCode and pscCode may be empty.
func (e *Engine) Classify(text, naicsCode, pscCode string) Result {
	scores := e.scoreCategories(text, naicsCode, pscCode)

	type categoryScore struct {
		category string
		score    int
	}

	ranked := make([]categoryScore, 0, len(scores))
	for category, score := range scores {
		if score > 0 {
			ranked = append(ranked, categoryScore{category, score})
		}
	}

	// Deterministic order: score descending, name ascending on ties
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].category < ranked[j].category
	})

	result := Result{
		PrimaryCategory:     DefaultCategory,
		SecondaryCategories: []string{},
	}

	topScore := 0
	if len(ranked) > 0 {
		result.PrimaryCategory = ranked[0].category
		topScore = ranked[0].score
		for _, cs := range ranked[1:] {
			if len(result.SecondaryCategories) == maxSecondaryCategories {
				break
			}
			result.SecondaryCategories = append(result.SecondaryCategories, cs.category)
		}
	}

	result.Capabilities = e.detectCapabilities(text)
	result.Confidence = confidence(topScore, len(result.Capabilities))

	return result
}

// scoreCategories counts keyword hits per category and applies code boosts
func (e *Engine) scoreCategories(text, naicsCode, pscCode string) map[string]int {
	lowered := strings.ToLower(text)
	scores := make(map[string]int)

	for category, keywords := range categoryKeywords {
		for _, keyword := range keywords {
			if strings.Contains(lowered, keyword) {
				scores[category]++
			}
		}
	}

	if len(naicsCode) >= 2 {
		if category, ok := naicsPrefixCategories[naicsCode[:2]]; ok {
			scores[category] += naicsBoost
		}
	}

	if len(pscCode) >= 1 {
		if category, ok := pscPrefixCategories[strings.ToUpper(pscCode[:1])]; ok {
			scores[category] += pscBoost
		}
	}

	return scores
}

// detectCapabilities collects every capability whose pattern matches,
// in deterministic order
func (e *Engine) detectCapabilities(text string) []string {
	if text == "" {
		return []string{}
	}

	capabilities := make([]string, 0, 4)
	for capability, pattern := range capabilityPatterns {
		if pattern.MatchString(text) {
			capabilities = append(capabilities, capability)
		}
	}
	sort.Strings(capabilities)

	return capabilities
}

// confidence derives a reproducible confidence from match counts, capped
// below 0.95 because no keyword classifier deserves more
func confidence(topScore, capabilityCount int) float64 {
	c := 0.3 + 0.1*float64(topScore) + 0.05*float64(capabilityCount)
	if c > maxConfidence {
		return maxConfidence
	}
	return c
}
