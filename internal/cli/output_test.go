package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/ndacheck/ndacheck/internal/differ"
	"github.com/ndacheck/ndacheck/internal/models"
)

func testReview(findings ...models.Finding) *models.Review {
	doc := models.DocumentRef{Name: "acme-nda.txt", Format: "text", SHA256: "abc", Chars: 100}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return models.NewReview(doc, "Standard NDA Playbook", findings, at)
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{"md", FormatMarkdown, false},
		{"markdown", FormatMarkdown, false},
		{"csv", FormatCSV, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseOutputFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOutputFormat_Extension(t *testing.T) {
	want := map[OutputFormat]string{
		FormatText:     ".txt",
		FormatJSON:     ".json",
		FormatMarkdown: ".md",
		FormatCSV:      ".csv",
	}
	for f, ext := range want {
		if got := f.Extension(); got != ext {
			t.Errorf("%s.Extension() = %q, want %q", f, got, ext)
		}
	}
}

func TestBannerText(t *testing.T) {
	if got := bannerText(0); !strings.HasPrefix(got, "All clear!") {
		t.Errorf("bannerText(0) = %q", got)
	}
	if got := bannerText(1); got != "Found 1 item that requires your attention." {
		t.Errorf("bannerText(1) = %q", got)
	}
	if got := bannerText(4); got != "Found 4 items that require your attention." {
		t.Errorf("bannerText(4) = %q", got)
	}
}

func TestRenderCSV(t *testing.T) {
	var buf bytes.Buffer
	findings := models.FindingsList{
		{Category: "Governing State", Recommendation: "Strike New York, insert Delaware"},
		{Category: "Notices", Recommendation: `Insert "in writing", delivered by hand`},
	}
	if err := renderCSV(&buf, findings); err != nil {
		t.Fatalf("renderCSV failed: %v", err)
	}
	want := "Category,Recommendation\n" +
		"Governing State,\"Strike New York, insert Delaware\"\n" +
		"Notices,\"Insert \"\"in writing\"\", delivered by hand\"\n"
	if buf.String() != want {
		t.Errorf("renderCSV =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestRenderCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := renderCSV(&buf, models.FindingsList{}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "Category,Recommendation\n" {
		t.Errorf("empty CSV = %q, want header only", buf.String())
	}
}

func TestRenderMarkdown(t *testing.T) {
	rev := testReview(
		models.Finding{Category: "Term", Recommendation: "Limit to 2 years | not perpetual"},
		models.Finding{Category: "Notices", Recommendation: "Insert notice clause"},
	)
	var buf bytes.Buffer
	if err := renderMarkdown(&buf, rev); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{
		"# NDA Review: acme-nda.txt",
		"**Playbook**: Standard NDA Playbook",
		"Found 2 items that require your attention.",
		"| Category | Recommendation |",
		`| Term | Limit to 2 years \| not perpetual |`,
		"| Notices | Insert notice clause |",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q\n%s", want, out)
		}
	}
}

func TestRenderMarkdown_Clean(t *testing.T) {
	var buf bytes.Buffer
	if err := renderMarkdown(&buf, testReview()); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "| Category |") {
		t.Error("clean review should not render a table")
	}
	if !strings.Contains(buf.String(), "All clear!") {
		t.Error("clean review should say all clear")
	}
}

func TestEscapeMDCell(t *testing.T) {
	if got := escapeMDCell("a|b\nc\r\nd"); got != `a\|b<br>c<br>d` {
		t.Errorf("escapeMDCell = %q", got)
	}
}

func TestRenderText(t *testing.T) {
	rev := testReview(models.Finding{Category: "Notices", Recommendation: "Insert notice clause", Kind: models.FindingKindMissing})
	var buf bytes.Buffer
	if err := renderText(&buf, rev); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"acme-nda.txt", "Found 1 item", "Notices", "Insert notice clause", "missing"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q\n%s", want, out)
		}
	}
}

func TestRenderReviews_CSV(t *testing.T) {
	second := testReview(models.Finding{Category: "Term", Recommendation: "Limit to 2 years"})
	second.Document.Name = "globex-nda.pdf"
	revs := []*models.Review{
		testReview(models.Finding{Category: "Notices", Recommendation: "Insert notice clause"}),
		second,
		testReview(),
	}

	var buf bytes.Buffer
	if err := renderReviews(&buf, revs, FormatCSV); err != nil {
		t.Fatal(err)
	}
	want := "Document,Category,Recommendation\n" +
		"acme-nda.txt,Notices,Insert notice clause\n" +
		"globex-nda.pdf,Term,Limit to 2 years\n"
	if buf.String() != want {
		t.Errorf("renderReviews csv =\n%s\nwant\n%s", buf.String(), want)
	}

	buf.Reset()
	if err := renderReviews(&buf, revs[:1], FormatCSV); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "Category,Recommendation\n") {
		t.Errorf("single review csv = %q, want two-column table", buf.String())
	}
}

func TestRenderReviews_JSON(t *testing.T) {
	revs := []*models.Review{
		testReview(models.Finding{Category: "Notices", Recommendation: "Insert notice clause"}),
		testReview(),
	}

	var buf bytes.Buffer
	if err := renderReviews(&buf, revs, FormatJSON); err != nil {
		t.Fatal(err)
	}
	var decoded []models.Review
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("multiple reviews should render as a JSON array: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("got %d reviews, want 2", len(decoded))
	}
	if decoded[1].Findings == nil || len(decoded[1].Findings) != 0 {
		t.Errorf("clean review findings = %v, want empty list", decoded[1].Findings)
	}

	buf.Reset()
	if err := renderReviews(&buf, revs[:1], FormatJSON); err != nil {
		t.Fatal(err)
	}
	var single models.Review
	if err := json.Unmarshal(buf.Bytes(), &single); err != nil {
		t.Fatalf("a single review should render as an object: %v", err)
	}
	if single.Summary.Total != 1 {
		t.Errorf("summary total = %d, want 1", single.Summary.Total)
	}
}

func TestRenderDrift(t *testing.T) {
	prev := testReview(models.Finding{Category: "Term", Recommendation: "Limit to 2 years", Kind: models.FindingKindDisfavored})
	cur := testReview(models.Finding{Category: "Notices", Recommendation: "Insert notice clause", Kind: models.FindingKindMissing})

	result, err := differ.Compare(prev, cur)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	renderDrift(&buf, result)
	out := buf.String()
	for _, want := range []string{"1 new, 0 changed, 1 resolved", "[+]", "New issue in [Notices]", "[-]", "Resolved in [Term]"} {
		if !strings.Contains(out, want) {
			t.Errorf("drift output missing %q\n%s", want, out)
		}
	}

	same, err := differ.Compare(cur, cur)
	if err != nil {
		t.Fatal(err)
	}
	buf.Reset()
	renderDrift(&buf, same)
	if !strings.Contains(buf.String(), "No changes in findings") {
		t.Errorf("no-drift output = %q", buf.String())
	}
}
