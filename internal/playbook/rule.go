package playbook

import (
	"regexp"
	"strings"

	"github.com/google/cel-go/cel"

	"github.com/ndacheck/ndacheck/internal/models"
)

// missingPlaceholder is replaced with the absent sub-terms of a subterms rule
const missingPlaceholder = "{missing}"

// document is the evaluation input, lowered once per pass
type document struct {
	text  string
	lower string
}

// alternative matches when every pattern matches somewhere in the text
type alternative []*regexp.Regexp

func (a alternative) matches(text string) bool {
	for _, re := range a {
		if !re.MatchString(text) {
			return false
		}
	}
	return len(a) > 0
}

type term struct {
	re      *regexp.Regexp
	message string
	kind    models.FindingKind
}

type subterm struct {
	name string
	re   *regexp.Regexp
}

// rule is a compiled, immutable playbook check
type rule struct {
	id           string
	category     string
	kind         models.RuleKind
	findingKind  models.FindingKind
	message      string
	alternatives []alternative
	terms        []term
	subterms     []subterm
	program      cel.Program
}

// anyMatch
func (r *rule) anyMatch(text string) bool {
	for _, alt := range r.alternatives {
		if alt.matches(text) {
			return true
		}
	}
	return false
}

func (r *rule) finding(message string, kind models.FindingKind) models.Finding {
	return models.Finding{
		Category:       r.category,
		Recommendation: message,
		Rule:           r.id,
		Kind:           kind,
	}
}

// evaluate appends this rule's findings for doc
func (r *rule) evaluate(doc document, out []models.Finding) []models.Finding {
	switch r.kind {
	case models.RuleKindRequire:
		if !r.anyMatch(doc.text) {
			out = append(out, r.finding(r.message, r.findingKind))
		}

	case models.RuleKindForbid, models.RuleKindMention:
		if r.anyMatch(doc.text) {
			out = append(out, r.finding(r.message, r.findingKind))
		}

	case models.RuleKindEach:
		for _, t := range r.terms {
			if t.re.MatchString(doc.text) {
				out = append(out, r.finding(t.message, t.kind))
			}
		}

	case models.RuleKindSubterms:
		var missing []string
		for _, st := range r.subterms {
			if !st.re.MatchString(doc.text) {
				missing = append(missing, st.name)
			}
		}
		if len(missing) > 0 {
			msg := strings.ReplaceAll(r.message, missingPlaceholder, strings.Join(missing, ", "))
			out = append(out, r.finding(msg, r.findingKind))
		}

	case models.RuleKindExpr:
		if r.evalExpr(doc) {
			out = append(out, r.finding(r.message, r.findingKind))
		}
	}
	return out
}

// evalExpr runs the CEL program; a runtime error means the rule does not fire
func (r *rule) evalExpr(doc document) bool {
	if r.program == nil {
		return false
	}
	val, _, err := r.program.Eval(map[string]any{
		"text":  doc.text,
		"lower": doc.lower,
	})
	if err != nil {
		return false
	}
	fired, ok := val.Value().(bool)
	return ok && fired
}
