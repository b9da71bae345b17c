// Package receipt writes one audit record per ndacheck invocation: what was
// reviewed, against which playbook, and what came of it.
package receipt

// ReceiptSchemaVersion current
const ReceiptSchemaVersion = "1.0"

// Result statuses
const (
	StatusSuccess = "success"
	StatusFail    = "fail"
)

// Receipt structure
type Receipt struct {
	SchemaVersion string           `json:"schema_version"`
	OpID          string           `json:"op_id"`
	TsStart       string           `json:"ts_start"`
	TsEnd         string           `json:"ts_end"`
	Command       string           `json:"command"`
	Args          []string         `json:"args"`
	ArgsRedacted  bool             `json:"args_redacted,omitempty"`
	Result        Result           `json:"result"`
	Documents     []DocumentRef    `json:"documents,omitempty"`
	Playbook      *PlaybookSummary `json:"playbook,omitempty"`
	Batch         *BatchSummary    `json:"batch,omitempty"`
	Comparison    *CompareSummary  `json:"comparison,omitempty"`
}

// Result status
type Result struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// DocumentRef identifies a reviewed file without storing its text
type DocumentRef struct {
	Path   string `json:"path"`
	Format string `json:"format,omitempty"`
	SHA256 string `json:"sha256,omitempty"`
	Chars  int    `json:"chars,omitempty"`
}

// PlaybookSummary detail
type PlaybookSummary struct {
	Name     string    `json:"name"`
	Preset   string    `json:"preset,omitempty"` // standard|strict|custom
	Status   string    `json:"status"`           // clear|findings
	Findings int       `json:"findings"`
	RulesHit []RuleHit `json:"rules_hit,omitempty"`
}

// RuleHit detail
type RuleHit struct {
	Rule     string `json:"rule"`
	Category string `json:"category"`
	Kind     string `json:"kind"`
}

// BatchSummary detail
type BatchSummary struct {
	Documents    int `json:"documents"`
	Failed       int `json:"failed"`
	WithFindings int `json:"with_findings"`
}

// CompareSummary detail
type CompareSummary struct {
	Added    int `json:"added"`
	Resolved int `json:"resolved"`
}
