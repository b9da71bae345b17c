package differ

import (
	"fmt"

	"github.com/ndacheck/ndacheck/internal/models"
)

// SeverityLevel 0=safe, 1=mod, 2=crit
type SeverityLevel int

const (
	SeveritySafe SeverityLevel = iota
	SeverityModerate
	SeverityCritical
)

// severityFor a finding that newly appears
func severityFor(kind models.FindingKind) SeverityLevel {
	switch kind {
	case models.FindingKindMissing, models.FindingKindDisfavored:
		return SeverityCritical
	default:
		return SeverityModerate
	}
}

func added(category, rec string, e findingEntry) DriftItem {
	return DriftItem{
		Type:           DriftAdded,
		Severity:       severityFor(e.Kind),
		Category:       category,
		Recommendation: rec,
		Rule:           e.Rule,
		NewKind:        e.Kind,
		Message:        fmt.Sprintf("New issue in [%s]: %s", category, rec),
	}
}

func resolved(category, rec string, e findingEntry) DriftItem {
	return DriftItem{
		Type:           DriftResolved,
		Severity:       SeveritySafe,
		Category:       category,
		Recommendation: rec,
		Rule:           e.Rule,
		OldKind:        e.Kind,
		Message:        fmt.Sprintf("Resolved in [%s]: %s", category, rec),
	}
}

func changed(category, rec string, old, cur findingEntry) DriftItem {
	return DriftItem{
		Type:           DriftChanged,
		Severity:       SeverityModerate,
		Category:       category,
		Recommendation: rec,
		Rule:           cur.Rule,
		OldKind:        old.Kind,
		NewKind:        cur.Kind,
		Message:        fmt.Sprintf("[%s] is now %s (was %s): %s", category, kindLabel(cur.Kind), kindLabel(old.Kind), rec),
	}
}

func kindLabel(k models.FindingKind) string {
	if k == "" {
		return "unclassified"
	}
	return string(k)
}
