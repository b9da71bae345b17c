// Package playbook compiles declarative NDA playbooks and evaluates them
// against document text.
package playbook

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/cel-go/cel"

	"github.com/ndacheck/ndacheck/internal/models"
)

// Engine is a compiled playbook. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	name  string
	rules []*rule
}

// newExprEnv declares the variables visible to expr rules
func newExprEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable("text", cel.StringType),
		cel.Variable("lower", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return env, nil
}

// Compile validates config and builds an engine. All rule problems are
// reported together.
func Compile(config *models.PlaybookConfig) (*Engine, error) {
	if config == nil {
		return nil, fmt.Errorf("playbook is nil")
	}
	if len(config.Rules) == 0 {
		return nil, fmt.Errorf("playbook must have at least one rule")
	}

	env, err := newExprEnv()
	if err != nil {
		return nil, err
	}

	var problems []string
	seen := make(map[string]bool, len(config.Rules))
	rules := make([]*rule, 0, len(config.Rules))

	for i, rc := range config.Rules {
		r, err := compileRule(env, rc)
		if err != nil {
			problems = append(problems, fmt.Sprintf("rule #%d %q: %v", i+1, ruleLabel(rc), err))
			continue
		}
		if seen[r.id] {
			problems = append(problems, fmt.Sprintf("rule #%d %q: duplicate id", i+1, r.id))
			continue
		}
		seen[r.id] = true
		rules = append(rules, r)
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("playbook validation failed:\n  %s", strings.Join(problems, "\n  "))
	}

	return &Engine{name: config.Name, rules: rules}, nil
}

// Name of the compiled playbook
func (e *Engine) Name() string {
	return e.name
}

// RuleCount number of compiled rules
func (e *Engine) RuleCount() int {
	return len(e.rules)
}

// Evaluate runs every rule in catalog order over text and returns the
// de-duplicated findings. It never fails; blank text yields no findings.
func (e *Engine) Evaluate(text string) models.FindingsList {
	if strings.TrimSpace(text) == "" {
		return models.FindingsList{}
	}

	doc := document{text: text, lower: strings.ToLower(text)}
	var findings []models.Finding
	for _, r := range e.rules {
		findings = r.evaluate(doc, findings)
	}
	return models.Dedupe(findings)
}

// compileRule
func compileRule(env *cel.Env, rc models.RuleConfig) (*rule, error) {
	category := strings.TrimSpace(rc.Category)
	if category == "" {
		return nil, fmt.Errorf("category is required")
	}

	r := &rule{
		id:          rc.ID,
		category:    category,
		kind:        rc.Kind,
		findingKind: rc.FindingKind,
		message:     strings.TrimSpace(rc.Message),
	}
	if r.id == "" {
		r.id = slug(category)
	}
	if r.findingKind == "" {
		r.findingKind = models.DefaultFindingKind(rc.Kind)
	}

	switch rc.Kind {
	case models.RuleKindRequire, models.RuleKindForbid, models.RuleKindMention:
		alts, err := compileAlternatives(rc.Patterns, rc.AllOf)
		if err != nil {
			return nil, err
		}
		if len(alts) == 0 {
			return nil, fmt.Errorf("%s rule needs patterns or all_of", rc.Kind)
		}
		if r.message == "" {
			return nil, fmt.Errorf("message is required")
		}
		r.alternatives = alts

	case models.RuleKindEach:
		if len(rc.Terms) == 0 {
			return nil, fmt.Errorf("each rule needs terms")
		}
		for j, tc := range rc.Terms {
			re, err := compilePattern(tc.Pattern)
			if err != nil {
				return nil, fmt.Errorf("term #%d: %w", j+1, err)
			}
			msg := strings.TrimSpace(tc.Message)
			if msg == "" {
				return nil, fmt.Errorf("term #%d: message is required", j+1)
			}
			if add := strings.TrimSpace(tc.Addendum); add != "" {
				msg = msg + " " + add
			}
			kind := tc.FindingKind
			if kind == "" {
				kind = r.findingKind
			}
			r.terms = append(r.terms, term{re: re, message: msg, kind: kind})
		}

	case models.RuleKindSubterms:
		if len(rc.Subterms) == 0 {
			return nil, fmt.Errorf("subterms rule needs subterms")
		}
		if !strings.Contains(r.message, missingPlaceholder) {
			return nil, fmt.Errorf("subterms message must contain %s", missingPlaceholder)
		}
		for j, sc := range rc.Subterms {
			name := strings.TrimSpace(sc.Name)
			if name == "" {
				return nil, fmt.Errorf("subterm #%d: name is required", j+1)
			}
			pattern := sc.Pattern
			if pattern == "" {
				pattern = `\b` + regexp.QuoteMeta(name) + `\b`
			}
			re, err := compilePattern(pattern)
			if err != nil {
				return nil, fmt.Errorf("subterm %q: %w", name, err)
			}
			r.subterms = append(r.subterms, subterm{name: name, re: re})
		}

	case models.RuleKindExpr:
		if r.message == "" {
			return nil, fmt.Errorf("message is required")
		}
		prg, err := compileExpr(env, rc.Expr)
		if err != nil {
			return nil, err
		}
		r.program = prg

	case "":
		return nil, fmt.Errorf("kind is required")

	default:
		return nil, fmt.Errorf("unknown kind %q", rc.Kind)
	}

	return r, nil
}

// compileAlternatives
func compileAlternatives(patterns []string, allOf [][]string) ([]alternative, error) {
	alts := make([]alternative, 0, len(patterns)+len(allOf))
	for _, p := range patterns {
		re, err := compilePattern(p)
		if err != nil {
			return nil, err
		}
		alts = append(alts, alternative{re})
	}
	for i, group := range allOf {
		if len(group) == 0 {
			return nil, fmt.Errorf("all_of group #%d is empty", i+1)
		}
		alt := make(alternative, 0, len(group))
		for _, p := range group {
			re, err := compilePattern(p)
			if err != nil {
				return nil, fmt.Errorf("all_of group #%d: %w", i+1, err)
			}
			alt = append(alt, re)
		}
		alts = append(alts, alt)
	}
	return alts, nil
}

// compilePattern forces case-insensitive matching
func compilePattern(p string) (*regexp.Regexp, error) {
	if strings.TrimSpace(p) == "" {
		return nil, fmt.Errorf("empty pattern")
	}
	re, err := regexp.Compile("(?i)" + p)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
	}
	return re, nil
}

// compileExpr
func compileExpr(env *cel.Env, expr string) (cel.Program, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("expr rule needs expr")
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL compile error: %v", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("expr must return boolean, got %v", ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("CEL program error: %v", err)
	}
	return prg, nil
}

func ruleLabel(rc models.RuleConfig) string {
	if rc.ID != "" {
		return rc.ID
	}
	return rc.Category
}

// slug lowercases and joins words with underscores
func slug(s string) string {
	var sb strings.Builder
	underscore := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && sb.Len() > 0 {
			sb.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimSuffix(sb.String(), "_")
}
