package models

import "time"

// ReviewSchemaVersion current
const ReviewSchemaVersion = "1.0"

// DocumentRef identifies the reviewed document
type DocumentRef struct {
	Name   string `json:"name"`
	Path   string `json:"path,omitempty"`
	Format string `json:"format"`
	SHA256 string `json:"sha256"`
	Bytes  int64  `json:"bytes"`
	Chars  int    `json:"chars"`
}

// Review is the exported result of one document review
type Review struct {
	SchemaVersion string       `json:"schemaVersion"`
	Document      DocumentRef  `json:"document"`
	Playbook      string       `json:"playbook"`
	ReviewedAt    time.Time    `json:"reviewedAt"`
	Findings      FindingsList `json:"findings"`
	Summary       Summary      `json:"summary"`
}

// Summary counts by finding kind
type Summary struct {
	Total      int `json:"total"`
	Missing    int `json:"missing"`
	Disfavored int `json:"disfavored"`
	Qualify    int `json:"qualify"`
	Reminder   int `json:"reminder"`
}

// Summarize counts findings
func Summarize(findings FindingsList) Summary {
	var s Summary
	for _, f := range findings {
		switch f.Kind {
		case FindingKindMissing:
			s.Missing++
		case FindingKindDisfavored:
			s.Disfavored++
		case FindingKindQualify:
			s.Qualify++
		case FindingKindReminder:
			s.Reminder++
		}
		s.Total++
	}
	return s
}

// NewReview assembles a review from its parts
func NewReview(doc DocumentRef, playbook string, findings FindingsList, at time.Time) *Review {
	if findings == nil {
		findings = FindingsList{}
	}
	return &Review{
		SchemaVersion: ReviewSchemaVersion,
		Document:      doc,
		Playbook:      playbook,
		ReviewedAt:    at.UTC(),
		Findings:      findings,
		Summary:       Summarize(findings),
	}
}
