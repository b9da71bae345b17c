package models

import (
	"testing"
	"time"
)

func TestDedupe_KeepsFirstOccurrence(t *testing.T) {
	in := []Finding{
		{Category: "A", Recommendation: "one", Rule: "r1"},
		{Category: "B", Recommendation: "two", Rule: "r2"},
		{Category: "A", Recommendation: "one", Rule: "r3"},
		{Category: "A", Recommendation: "three", Rule: "r1"},
	}

	got := Dedupe(in)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Rule != "r1" {
		t.Errorf("first finding rule = %q, want r1 (first occurrence kept)", got[0].Rule)
	}
	want := []string{"one", "two", "three"}
	for i, w := range want {
		if got[i].Recommendation != w {
			t.Errorf("got[%d] = %q, want %q", i, got[i].Recommendation, w)
		}
	}
}

func TestDedupe_SameTextDifferentCategory(t *testing.T) {
	in := []Finding{
		{Category: "A", Recommendation: "same"},
		{Category: "B", Recommendation: "same"},
	}
	if got := Dedupe(in); len(got) != 2 {
		t.Errorf("len = %d, want 2 (category is part of identity)", len(got))
	}
}

func TestDedupe_Empty(t *testing.T) {
	got := Dedupe(nil)
	if got == nil {
		t.Fatal("Dedupe(nil) should return an empty, non-nil list")
	}
	if !got.Empty() {
		t.Errorf("expected empty list, got %d", len(got))
	}
}

func TestFindingsList_Categories(t *testing.T) {
	l := FindingsList{
		{Category: "Burdensome Requests", Recommendation: "a"},
		{Category: "Notices", Recommendation: "b"},
		{Category: "Burdensome Requests", Recommendation: "c"},
	}
	cats := l.Categories()
	if len(cats) != 2 || cats[0] != "Burdensome Requests" || cats[1] != "Notices" {
		t.Errorf("Categories() = %v", cats)
	}
	if n := len(l.ByCategory("Burdensome Requests")); n != 2 {
		t.Errorf("ByCategory = %d, want 2", n)
	}
}

func TestSummarize(t *testing.T) {
	l := FindingsList{
		{Kind: FindingKindMissing},
		{Kind: FindingKindMissing},
		{Kind: FindingKindDisfavored},
		{Kind: FindingKindQualify},
		{Kind: FindingKindReminder},
	}
	s := Summarize(l)
	if s.Total != 5 || s.Missing != 2 || s.Disfavored != 1 || s.Qualify != 1 || s.Reminder != 1 {
		t.Errorf("Summarize = %+v", s)
	}
}

func TestNewReview_NilFindings(t *testing.T) {
	r := NewReview(DocumentRef{Name: "nda.pdf"}, "standard", nil, time.Now())
	if r.Findings == nil {
		t.Error("Findings should be non-nil so JSON renders []")
	}
	if r.SchemaVersion != ReviewSchemaVersion {
		t.Errorf("schema = %q", r.SchemaVersion)
	}
}

func TestDefaultFindingKind(t *testing.T) {
	tests := []struct {
		kind RuleKind
		want FindingKind
	}{
		{RuleKindRequire, FindingKindMissing},
		{RuleKindSubterms, FindingKindMissing},
		{RuleKindForbid, FindingKindDisfavored},
		{RuleKindEach, FindingKindDisfavored},
		{RuleKindMention, FindingKindReminder},
		{RuleKindExpr, FindingKindQualify},
	}
	for _, tt := range tests {
		if got := DefaultFindingKind(tt.kind); got != tt.want {
			t.Errorf("DefaultFindingKind(%s) = %s, want %s", tt.kind, got, tt.want)
		}
	}
}
