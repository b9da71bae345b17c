package playbook

import (
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/ndacheck/ndacheck/internal/models"
)

const cleanNDA = `This Agreement shall be governed by the laws of the State of Delaware.
The parties consent to the exclusive jurisdiction and venue of the courts located in Delaware.
Confidential Information includes information concerning the Disclosing Party and its
affiliates, suppliers, customers and employees. The Receiving Party may disclose Confidential
Information to its directors, officers, employees and advisors (collectively, "Representatives").
If the Receiving Party is required by law to disclose Confidential Information, it shall give
prompt notice. All notices hereunder shall be in writing. Money damages may not be sufficient
for any breach or threatened breach of this Agreement. The prevailing party shall be entitled
to reasonable attorneys' fees. Neither party may assign this Agreement without the prior
written consent of the other party. All Confidential Information is provided "AS IS".
No license is granted under any intellectual property right. Upon request, the Receiving
Party shall return or destroy all Confidential Information.`

func mustDefault(t *testing.T) *Engine {
	t.Helper()
	e, err := Default()
	if err != nil {
		t.Fatalf("standard playbook failed to compile: %v", err)
	}
	return e
}

func countCategory(findings models.FindingsList, category string) int {
	return len(findings.ByCategory(category))
}

func TestEvaluate_Deterministic(t *testing.T) {
	e := mustDefault(t)
	text := "The Recipient shall immediately certify the opinion. Indemnification applies."

	first := e.Evaluate(text)
	for i := 0; i < 5; i++ {
		if got := e.Evaluate(text); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs:\n got %v\nwant %v", i, got, first)
		}
	}
}

func TestEvaluate_EmptyInput(t *testing.T) {
	e := mustDefault(t)
	for _, text := range []string{"", "   ", "\n\n\t"} {
		got := e.Evaluate(text)
		if got == nil {
			t.Fatalf("Evaluate(%q) returned nil, want empty list", text)
		}
		if len(got) != 0 {
			t.Errorf("Evaluate(%q) = %d findings, want 0", text, len(got))
		}
	}
}

func TestEvaluate_CaseInsensitive(t *testing.T) {
	e := mustDefault(t)
	for _, text := range []string{"GOVERNED BY DELAWARE LAW", "governed by delaware law"} {
		if n := countCategory(e.Evaluate(text), "Governing State"); n != 0 {
			t.Errorf("Evaluate(%q) produced %d Governing State findings, want 0", text, n)
		}
	}
}

func TestEvaluate_StateAbbreviationBoundary(t *testing.T) {
	e := mustDefault(t)

	tests := []struct {
		text      string
		satisfied bool
	}{
		{"ANDY", false},
		{"SUNNY weather clause", false},
		{"Governed by the laws of NY.", true},
		{"NY", true},
		{"laws of the state of ny, without regard", true},
		{"Governed by DE law", true},
		{"DEFINITIONS", false},
		{"Governed by N.Y. law", true},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			n := countCategory(e.Evaluate(tt.text), "Governing State")
			if tt.satisfied && n != 0 {
				t.Errorf("%q should satisfy governing state, got %d findings", tt.text, n)
			}
			if !tt.satisfied && n != 1 {
				t.Errorf("%q should not satisfy governing state, got %d findings", tt.text, n)
			}
		})
	}
}

func TestEvaluate_BurdensomeTermsIndependent(t *testing.T) {
	e := mustDefault(t)

	both := e.Evaluate("The Recipient shall immediately certify destruction.")
	burdens := both.ByCategory("Burdensome Requests")
	if len(burdens) != 2 {
		t.Fatalf("got %d burdensome findings, want 2: %v", len(burdens), burdens)
	}
	if !strings.Contains(burdens[0].Recommendation, "'promptly'") {
		t.Errorf("first finding = %q, want the 'Immediately' recommendation", burdens[0].Recommendation)
	}
	if !strings.Contains(burdens[1].Recommendation, "'confirm'") {
		t.Errorf("second finding = %q, want the 'Certify' recommendation", burdens[1].Recommendation)
	}

	onlyCertify := e.Evaluate("The Recipient shall certify destruction.").ByCategory("Burdensome Requests")
	if len(onlyCertify) != 1 || onlyCertify[0].Recommendation != burdens[1].Recommendation {
		t.Errorf("removing 'immediately' changed the certify finding: %v", onlyCertify)
	}

	onlyImmediately := e.Evaluate("The Recipient shall immediately destroy.").ByCategory("Burdensome Requests")
	if len(onlyImmediately) != 1 || onlyImmediately[0].Recommendation != burdens[0].Recommendation {
		t.Errorf("removing 'certify' changed the immediately finding: %v", onlyImmediately)
	}
}

func TestEvaluate_ImmediateDoesNotMatchImmediately(t *testing.T) {
	e := mustDefault(t)
	burdens := e.Evaluate("Notify immediately.").ByCategory("Burdensome Requests")
	if len(burdens) != 1 {
		t.Fatalf("got %d findings, want 1", len(burdens))
	}
	if strings.Contains(burdens[0].Recommendation, "'prompt'.") {
		t.Errorf("'Immediate' rule fired on 'immediately'")
	}
}

func TestEvaluate_IndemnityAddendum(t *testing.T) {
	e := mustDefault(t)
	want := "Indemnities are burdensome. Delete entire clause. If cannot delete, limit to third-party claims and make mutual."

	for _, text := range []string{"Recipient shall provide indemnification.", "An INDEMNITY applies."} {
		burdens := e.Evaluate(text).ByCategory("Burdensome Requests")
		if len(burdens) != 1 {
			t.Fatalf("%q: got %d findings, want 1", text, len(burdens))
		}
		if burdens[0].Recommendation != want {
			t.Errorf("%q: recommendation = %q, want %q", text, burdens[0].Recommendation, want)
		}
	}

	other := e.Evaluate("Recipient shall certify.").ByCategory("Burdensome Requests")
	if strings.Contains(other[0].Recommendation, "third-party claims") {
		t.Error("mitigation sentence leaked into a non-indemnity finding")
	}
}

func TestEvaluate_NonSolicitIsQualify(t *testing.T) {
	e := mustDefault(t)
	burdens := e.Evaluate("The Non-Solicitation covenant and the non-solicit period.").ByCategory("Burdensome Requests")
	if len(burdens) != 2 {
		t.Fatalf("got %d findings, want 2", len(burdens))
	}
	for _, f := range burdens {
		if f.Kind != models.FindingKindQualify {
			t.Errorf("kind = %q, want qualify", f.Kind)
		}
	}
}

func TestEvaluate_MissingSubterms(t *testing.T) {
	e := mustDefault(t)
	text := "Confidential Information includes information regarding affiliates and customers."

	ci := e.Evaluate(text).ByCategory("Confidential Information")
	if len(ci) != 1 {
		t.Fatalf("got %d Confidential Information findings, want 1", len(ci))
	}
	if !strings.Contains(ci[0].Recommendation, "does not reference: suppliers, employees.") {
		t.Errorf("recommendation = %q, want it to list exactly 'suppliers, employees'", ci[0].Recommendation)
	}
	if strings.Contains(ci[0].Recommendation, missingPlaceholder) {
		t.Error("placeholder was not substituted")
	}
}

func TestEvaluate_AllSubtermsPresent(t *testing.T) {
	e := mustDefault(t)
	text := "Information of its Affiliates, Suppliers, Customers and Employees."
	if n := countCategory(e.Evaluate(text), "Confidential Information"); n != 0 {
		t.Errorf("got %d findings, want 0", n)
	}
}

func TestEvaluate_TermMention(t *testing.T) {
	e := mustDefault(t)
	if n := countCategory(e.Evaluate("The term of this Agreement is one year."), "Term"); n != 1 {
		t.Errorf("term mention: got %d findings, want 1", n)
	}
	if n := countCategory(e.Evaluate("These terms and conditions apply."), "Term"); n != 0 {
		t.Errorf("'terms' should not trigger the reminder, got %d", n)
	}
}

func TestEvaluate_NonDisparagement(t *testing.T) {
	e := mustDefault(t)
	got := e.Evaluate("Neither party shall disparage the other.").ByCategory("Non-Disparagement")
	if len(got) != 1 {
		t.Fatalf("got %d findings, want 1", len(got))
	}
	if got[0].Kind != models.FindingKindDisfavored {
		t.Errorf("kind = %q, want disfavored", got[0].Kind)
	}
}

func TestEvaluate_ConjunctivePatterns(t *testing.T) {
	e := mustDefault(t)

	// return alone is not enough
	if n := countCategory(e.Evaluate("Recipient shall return all materials."), "Return or Destruction"); n != 1 {
		t.Errorf("return without destroy: got %d findings, want 1", n)
	}
	// words need not be adjacent
	text := "Recipient shall return all materials.\n\nSection 9. Recipient shall destroy all notes."
	if n := countCategory(e.Evaluate(text), "Return or Destruction"); n != 0 {
		t.Errorf("return + destroy anywhere: got %d findings, want 0", n)
	}
}

func TestEvaluate_EndToEndNewYork(t *testing.T) {
	e := mustDefault(t)
	text := "This Agreement is governed by the laws of the State of New York.\n" +
		"The parties submit to exclusive jurisdiction and venue in the state courts of New York.\n"

	got := e.Evaluate(text)

	for _, cat := range []string{"Governing State", "Exclusive Jurisdiction", "Burdensome Requests"} {
		if n := countCategory(got, cat); n != 0 {
			t.Errorf("%s: got %d findings, want 0", cat, n)
		}
	}
	for _, cat := range []string{"Attorney's Fees", "Notices", "Representatives", "Return or Destruction"} {
		if n := countCategory(got, cat); n == 0 {
			t.Errorf("%s: expected a finding for the missing clause", cat)
		}
	}
}

func TestEvaluate_CleanAgreement(t *testing.T) {
	e := mustDefault(t)
	if got := e.Evaluate(cleanNDA); len(got) != 0 {
		for _, f := range got {
			t.Errorf("unexpected finding: %s: %s", f.Category, f.Recommendation)
		}
	}
}

func TestEvaluate_CatalogOrder(t *testing.T) {
	e := mustDefault(t)
	got := e.Evaluate("Hello world").Categories()
	want := []string{
		"Governing State",
		"Exclusive Jurisdiction",
		"Confidential Information",
		"Attorney's Fees",
		"Notices",
		"Representatives",
		"Legal Requirement",
		"Breach or Threatened Breach",
		"Assignments",
		"AS IS",
		"No Licenses",
		"Return or Destruction",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("categories =\n%v\nwant\n%v", got, want)
	}
}

func TestEvaluate_Dedupe(t *testing.T) {
	config := &models.PlaybookConfig{
		Name: "dupes",
		Rules: []models.RuleConfig{
			{ID: "a", Category: "Burdensome Requests", Kind: models.RuleKindForbid, Patterns: []string{`\bshall\b`}, Message: "Same advice."},
			{ID: "b", Category: "Burdensome Requests", Kind: models.RuleKindForbid, Patterns: []string{`\bmust\b`}, Message: "Same advice."},
			{ID: "c", Category: "Burdensome Requests", Kind: models.RuleKindEach, Terms: []models.TermConfig{
				{Pattern: `\bshall\b`, Message: "Same advice."},
				{Pattern: `\bshall\b`, Message: "Other advice."},
				{Pattern: `\bshall\s+\w+`, Message: "Other advice."},
			}},
		},
	}
	e, err := Compile(config)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	got := e.Evaluate("Recipient shall and must comply.")
	if len(got) != 2 {
		t.Fatalf("got %d findings, want 2: %v", len(got), got)
	}
	if got[0].Recommendation != "Same advice." || got[0].Rule != "a" {
		t.Errorf("first = %+v, want rule a kept", got[0])
	}
	if got[1].Recommendation != "Other advice." {
		t.Errorf("second = %+v", got[1])
	}
}

func TestEvaluate_ExprRule(t *testing.T) {
	config := &models.PlaybookConfig{
		Name: "expr",
		Rules: []models.RuleConfig{{
			ID:       "perpetual",
			Category: "Term",
			Kind:     models.RuleKindExpr,
			Expr:     `lower.contains("perpetuity") && text.matches("(?i)survive")`,
			Message:  "Limit perpetual obligations.",
		}},
	}
	e, err := Compile(config)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	if got := e.Evaluate("Obligations SURVIVE in PERPETUITY."); len(got) != 1 {
		t.Errorf("got %d findings, want 1", len(got))
	} else if got[0].Kind != models.FindingKindQualify {
		t.Errorf("kind = %q, want qualify", got[0].Kind)
	}
	if got := e.Evaluate("Obligations survive for two years."); len(got) != 0 {
		t.Errorf("got %d findings, want 0", len(got))
	}
}

func TestEvaluate_Concurrent(t *testing.T) {
	e := mustDefault(t)
	want := e.Evaluate(cleanNDA + " immediately")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := e.Evaluate(cleanNDA + " immediately"); !reflect.DeepEqual(got, want) {
				t.Errorf("concurrent evaluation differs")
			}
		}()
	}
	wg.Wait()
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		rule models.RuleConfig
		want string
	}{
		{"missing category", models.RuleConfig{Kind: models.RuleKindRequire, Patterns: []string{"x"}, Message: "m"}, "category is required"},
		{"missing kind", models.RuleConfig{Category: "C", Patterns: []string{"x"}, Message: "m"}, "kind is required"},
		{"unknown kind", models.RuleConfig{Category: "C", Kind: "maybe", Patterns: []string{"x"}, Message: "m"}, "unknown kind"},
		{"lookbehind", models.RuleConfig{Category: "C", Kind: models.RuleKindRequire, Patterns: []string{`(?<![a-z])NY`}, Message: "m"}, "invalid pattern"},
		{"no patterns", models.RuleConfig{Category: "C", Kind: models.RuleKindForbid, Message: "m"}, "needs patterns"},
		{"empty all_of group", models.RuleConfig{Category: "C", Kind: models.RuleKindRequire, AllOf: [][]string{{}}, Message: "m"}, "all_of group #1 is empty"},
		{"no message", models.RuleConfig{Category: "C", Kind: models.RuleKindRequire, Patterns: []string{"x"}}, "message is required"},
		{"no terms", models.RuleConfig{Category: "C", Kind: models.RuleKindEach}, "needs terms"},
		{"term without message", models.RuleConfig{Category: "C", Kind: models.RuleKindEach, Terms: []models.TermConfig{{Pattern: "x"}}}, "term #1: message is required"},
		{"subterms without placeholder", models.RuleConfig{Category: "C", Kind: models.RuleKindSubterms, Subterms: []models.SubtermConfig{{Name: "a"}}, Message: "m"}, "must contain {missing}"},
		{"expr not bool", models.RuleConfig{Category: "C", Kind: models.RuleKindExpr, Expr: `size(text)`, Message: "m"}, "must return boolean"},
		{"expr syntax", models.RuleConfig{Category: "C", Kind: models.RuleKindExpr, Expr: `text.contains(`, Message: "m"}, "CEL compile error"},
		{"expr unknown var", models.RuleConfig{Category: "C", Kind: models.RuleKindExpr, Expr: `input.x == 1`, Message: "m"}, "CEL compile error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(&models.PlaybookConfig{Name: "t", Rules: []models.RuleConfig{tt.rule}})
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.want)
			}
		})
	}
}

func TestCompile_ReportsAllProblems(t *testing.T) {
	config := &models.PlaybookConfig{
		Name: "broken",
		Rules: []models.RuleConfig{
			{ID: "one", Category: "A", Kind: models.RuleKindRequire, Patterns: []string{"("}, Message: "m"},
			{ID: "two", Category: "B", Kind: "nope", Message: "m"},
			{ID: "ok", Category: "C", Kind: models.RuleKindForbid, Patterns: []string{"x"}, Message: "m"},
			{ID: "ok", Category: "D", Kind: models.RuleKindForbid, Patterns: []string{"y"}, Message: "m"},
		},
	}
	_, err := Compile(config)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{`"one"`, `"two"`, "duplicate id"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %s", err.Error(), want)
		}
	}
}

func TestCompile_EmptyPlaybook(t *testing.T) {
	if _, err := Compile(&models.PlaybookConfig{Name: "empty"}); err == nil {
		t.Error("expected error for playbook without rules")
	}
	if _, err := Compile(nil); err == nil {
		t.Error("expected error for nil playbook")
	}
}

func TestCompile_DefaultIDFromCategory(t *testing.T) {
	e, err := Compile(&models.PlaybookConfig{Name: "t", Rules: []models.RuleConfig{
		{Category: "Attorney's Fees", Kind: models.RuleKindRequire, Patterns: []string{"fees"}, Message: "m"},
	}})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	got := e.Evaluate("nothing here")
	if len(got) != 1 || got[0].Rule != "attorney_s_fees" {
		t.Errorf("findings = %+v, want rule id attorney_s_fees", got)
	}
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Governing State":             "governing_state",
		"AS IS":                       "as_is",
		"Breach or Threatened Breach": "breach_or_threatened_breach",
		"  Notices!  ":                "notices",
	}
	for in, want := range tests {
		if got := slug(in); got != want {
			t.Errorf("slug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPackageEvaluate(t *testing.T) {
	if got := Evaluate(cleanNDA); len(got) != 0 {
		t.Errorf("Evaluate(cleanNDA) = %v, want no findings", got)
	}
}
