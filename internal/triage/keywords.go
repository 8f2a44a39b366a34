package triage

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category groups symptom keywords by clinical weight
type Category string

const (
	CategoryCritical Category = "critical"
	CategoryHigh     Category = "high"
	CategoryMedium   Category = "medium"
	CategoryMild     Category = "mild"
)

var validCategories = map[Category]bool{
	CategoryCritical: true,
	CategoryHigh:     true,
	CategoryMedium:   true,
	CategoryMild:     true,
}

// KeywordEntry maps one symptom keyword to its category. Emergency
// entries force the emergency override regardless of the composite score.
type KeywordEntry struct {
	Keyword   string   `yaml:"keyword"`
	Category  Category `yaml:"category"`
	Emergency bool     `yaml:"emergency"`
}

// KeywordTable is the versioned severity keyword table consumed by the
// severity assessor as an injected dependency.
type KeywordTable struct {
	Version  int              `yaml:"version"`
	Weights  map[Category]int `yaml:"weights"`
	Keywords []KeywordEntry   `yaml:"keywords"`
}

// Match is the result of matching one reported symptom against the table
type Match struct {
	Keyword   string
	Weight    int
	Emergency bool
}

// LoadTable reads and validates a keyword table from a YAML file.
func LoadTable(path string) (*KeywordTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keyword table: %w", err)
	}

	var table KeywordTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse keyword table: %w", err)
	}

	if err := table.Validate(); err != nil {
		return nil, err
	}

	return &table, nil
}

// Validate checks that the table has positive weights for every category
// and no duplicate or uncategorized keywords.
func (t *KeywordTable) Validate() error {
	if t.Version < 1 {
		return fmt.Errorf("keyword table: missing or invalid version")
	}

	for category := range validCategories {
		weight, ok := t.Weights[category]
		if !ok {
			return fmt.Errorf("keyword table: missing weight for category %q", category)
		}
		if weight <= 0 {
			return fmt.Errorf("keyword table: weight for category %q must be positive", category)
		}
	}

	seen := make(map[string]struct{}, len(t.Keywords))
	for i, entry := range t.Keywords {
		keyword := strings.ToLower(strings.TrimSpace(entry.Keyword))
		if keyword == "" {
			return fmt.Errorf("keyword table: entry at index %d has empty keyword", i)
		}
		if _, dup := seen[keyword]; dup {
			return fmt.Errorf("keyword table: duplicate keyword %q", keyword)
		}
		seen[keyword] = struct{}{}

		if !validCategories[entry.Category] {
			return fmt.Errorf("keyword table: keyword %q has invalid category %q", entry.Keyword, entry.Category)
		}
	}

	return nil
}

// MatchSymptom matches one reported symptom against the table. Matching is
// case-insensitive and tolerant of underscore/space variants so provider
// output like "chest_pain" and free text like "severe chest pain" both
// hit. Entries are scanned in table order, so more specific keywords must
// precede their substrings.
func (t *KeywordTable) MatchSymptom(symptom string) (Match, bool) {
	normalized := normalize(symptom)
	if normalized == "" {
		return Match{}, false
	}

	for _, entry := range t.Keywords {
		if strings.Contains(normalized, normalize(entry.Keyword)) {
			return Match{
				Keyword:   entry.Keyword,
				Weight:    t.Weights[entry.Category],
				Emergency: entry.Emergency,
			}, true
		}
	}

	return Match{}, false
}

// UnmatchedWeight is the weight applied to reported symptoms the table
// does not recognize; an unknown complaint still counts for something.
func (t *KeywordTable) UnmatchedWeight() int {
	weight := t.Weights[CategoryMild]
	if weight > 10 {
		weight = 10
	}
	return weight
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(s, "_", " ")
}
