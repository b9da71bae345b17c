package models

// FindingKind classifies a recommendation
type FindingKind string

const (
	FindingKindMissing    FindingKind = "missing"    // expected clause not found
	FindingKindDisfavored FindingKind = "disfavored" // present but should go or change
	FindingKindQualify    FindingKind = "qualify"    // present, needs qualification
	FindingKindReminder   FindingKind = "reminder"   // blanket reminder
)

// Finding is one (category, recommendation) pair. Rule and Kind are
// informational and do not take part in equality.
type Finding struct {
	Category       string      `json:"category"`
	Recommendation string      `json:"recommendation"`
	Rule           string      `json:"rule,omitempty"`
	Kind           FindingKind `json:"kind,omitempty"`
}

// Key identity of a finding
func (f Finding) Key() FindingKey {
	return FindingKey{Category: f.Category, Recommendation: f.Recommendation}
}

// FindingKey comparable identity
type FindingKey struct {
	Category       string
	Recommendation string
}

// FindingsList ordered, duplicate-free findings of one evaluation
type FindingsList []Finding

// Dedupe drops exact (category, recommendation) repeats, keeping the first.
func Dedupe(findings []Finding) FindingsList {
	out := make(FindingsList, 0, len(findings))
	seen := make(map[FindingKey]struct{}, len(findings))
	for _, f := range findings {
		k := f.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, f)
	}
	return out
}

// Empty reports a clean review
func (l FindingsList) Empty() bool {
	return len(l) == 0
}

// Categories in first-seen order
func (l FindingsList) Categories() []string {
	var cats []string
	seen := make(map[string]bool)
	for _, f := range l {
		if !seen[f.Category] {
			seen[f.Category] = true
			cats = append(cats, f.Category)
		}
	}
	return cats
}

// ByCategory filters findings of one category
func (l FindingsList) ByCategory(category string) FindingsList {
	var out FindingsList
	for _, f := range l {
		if f.Category == category {
			out = append(out, f)
		}
	}
	return out
}
