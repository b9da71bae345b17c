package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/ndacheck/ndacheck/internal/differ"
	"github.com/ndacheck/ndacheck/internal/models"
)

// FailOnLevel threshold for failure
type FailOnLevel string

const (
	FailOnNone     FailOnLevel = "none"
	FailOnCritical FailOnLevel = "critical"
	FailOnModerate FailOnLevel = "moderate"
	FailOnInfo     FailOnLevel = "info"
)

// ParseFailOnLevel from string
func ParseFailOnLevel(s string) (FailOnLevel, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return FailOnNone, nil
	case "critical":
		return FailOnCritical, nil
	case "moderate":
		return FailOnModerate, nil
	case "info":
		return FailOnInfo, nil
	default:
		return "", fmt.Errorf("invalid fail-on level: %s (use none, critical, moderate, or info)", s)
	}
}

// ShouldFail checks limits
func (f FailOnLevel) ShouldFail(severity differ.SeverityLevel) bool {
	switch f {
	case FailOnNone:
		return false
	case FailOnCritical:
		return severity == differ.SeverityCritical
	case FailOnModerate:
		return severity >= differ.SeverityModerate
	case FailOnInfo:
		return true
	default:
		return severity == differ.SeverityCritical
	}
}

// CompareResult output structure
type CompareResult struct {
	Previous        CompareSide        `json:"previous"`
	Current         CompareSide        `json:"current"`
	DocumentChanged bool               `json:"documentChanged"`
	PlaybookChanged bool               `json:"playbookChanged"`
	Summary         CompareSummary     `json:"summary"`
	Drift           []differ.DriftItem `json:"drift"`
	FailOn          string             `json:"failOn"`
	Outcome         string             `json:"outcome"` // "PASS" or "FAIL"
}

// CompareSide identifies one of the two reviews
type CompareSide struct {
	Document   string `json:"document"`
	SHA256     string `json:"sha256,omitempty"`
	Playbook   string `json:"playbook"`
	ReviewedAt string `json:"reviewedAt"`
	Findings   int    `json:"findings"`
}

// CompareSummary by drift type and severity
type CompareSummary struct {
	Added    int `json:"added"`
	Changed  int `json:"changed"`
	Resolved int `json:"resolved"`
	Critical int `json:"critical"`
	Moderate int `json:"moderate"`
	Total    int `json:"total"`
}

// BuildCompareResult assembles the output of a comparison
func BuildCompareResult(previous, current *models.Review, drift *differ.Result, failOn FailOnLevel) *CompareResult {
	result := &CompareResult{
		Previous:        compareSide(previous),
		Current:         compareSide(current),
		DocumentChanged: drift.DocumentChanged,
		PlaybookChanged: drift.PlaybookChanged,
		Summary:         calculateSummary(drift),
		Drift:           drift.Drifts,
		FailOn:          string(failOn),
		Outcome:         "PASS",
	}
	if shouldFailOnDrift(drift, failOn) {
		result.Outcome = "FAIL"
	}
	return result
}

func compareSide(rev *models.Review) CompareSide {
	return CompareSide{
		Document:   rev.Document.Name,
		SHA256:     rev.Document.SHA256,
		Playbook:   rev.Playbook,
		ReviewedAt: rev.ReviewedAt.Format(time.RFC3339),
		Findings:   len(rev.Findings),
	}
}

// calculateSummary counts
func calculateSummary(drift *differ.Result) CompareSummary {
	summary := CompareSummary{}
	if drift == nil {
		return summary
	}
	for _, d := range drift.Drifts {
		switch d.Type {
		case differ.DriftAdded:
			summary.Added++
		case differ.DriftChanged:
			summary.Changed++
		case differ.DriftResolved:
			summary.Resolved++
		}
		switch d.Severity {
		case differ.SeverityCritical:
			summary.Critical++
		case differ.SeverityModerate:
			summary.Moderate++
		}
		summary.Total++
	}
	return summary
}

// shouldFailOnDrift checks threshold
func shouldFailOnDrift(drift *differ.Result, failOn FailOnLevel) bool {
	if drift == nil || !drift.HasDrift {
		return false
	}
	for _, d := range drift.Drifts {
		if failOn.ShouldFail(d.Severity) {
			return true
		}
	}
	return false
}
