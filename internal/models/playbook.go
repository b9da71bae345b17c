package models

// RuleKind selects how a rule's patterns turn into findings
type RuleKind string

const (
	// RuleKindRequire fires when none of the alternatives match.
	RuleKindRequire RuleKind = "require"
	// RuleKindForbid fires when any alternative matches.
	RuleKindForbid RuleKind = "forbid"
	// RuleKindEach emits one finding per matching term.
	RuleKindEach RuleKind = "each"
	// RuleKindSubterms fires when any required sub-term is absent.
	RuleKindSubterms RuleKind = "subterms"
	// RuleKindMention fires whenever a keyword appears at all.
	RuleKindMention RuleKind = "mention"
	// RuleKindExpr fires when a CEL expression evaluates to true.
	RuleKindExpr RuleKind = "expr"
)

// RuleKinds lists every supported kind in documentation order.
var RuleKinds = []RuleKind{
	RuleKindRequire,
	RuleKindForbid,
	RuleKindEach,
	RuleKindSubterms,
	RuleKindMention,
	RuleKindExpr,
}

// PlaybookConfig from yaml
type PlaybookConfig struct {
	Name        string       `yaml:"name" json:"name"`
	Description string       `yaml:"description,omitempty" json:"description,omitempty"`
	Extends     string       `yaml:"extends,omitempty" json:"extends,omitempty"`
	Rules       []RuleConfig `yaml:"rules" json:"rules"`
}

// RuleConfig one playbook check
type RuleConfig struct {
	ID          string          `yaml:"id" json:"id"`
	Category    string          `yaml:"category" json:"category"`
	Kind        RuleKind        `yaml:"kind" json:"kind"`
	FindingKind FindingKind     `yaml:"finding_kind,omitempty" json:"finding_kind,omitempty"`
	Description string          `yaml:"description,omitempty" json:"description,omitempty"`
	Patterns    []string        `yaml:"patterns,omitempty" json:"patterns,omitempty"`
	AllOf       [][]string      `yaml:"all_of,omitempty" json:"all_of,omitempty"`
	Terms       []TermConfig    `yaml:"terms,omitempty" json:"terms,omitempty"`
	Subterms    []SubtermConfig `yaml:"subterms,omitempty" json:"subterms,omitempty"`
	Expr        string          `yaml:"expr,omitempty" json:"expr,omitempty"`
	Message     string          `yaml:"message,omitempty" json:"message,omitempty"`
}

// TermConfig pattern -> recommendation entry of an each rule
type TermConfig struct {
	Pattern     string      `yaml:"pattern" json:"pattern"`
	Message     string      `yaml:"message" json:"message"`
	Addendum    string      `yaml:"addendum,omitempty" json:"addendum,omitempty"`
	FindingKind FindingKind `yaml:"finding_kind,omitempty" json:"finding_kind,omitempty"`
}

// SubtermConfig required sub-term; Pattern defaults to the name as a whole word
type SubtermConfig struct {
	Name    string `yaml:"name" json:"name"`
	Pattern string `yaml:"pattern,omitempty" json:"pattern,omitempty"`
}

// DefaultFindingKind for findings of a rule kind when the playbook does not say
func DefaultFindingKind(kind RuleKind) FindingKind {
	switch kind {
	case RuleKindRequire, RuleKindSubterms:
		return FindingKindMissing
	case RuleKindForbid, RuleKindEach:
		return FindingKindDisfavored
	case RuleKindMention:
		return FindingKindReminder
	default:
		return FindingKindQualify
	}
}
