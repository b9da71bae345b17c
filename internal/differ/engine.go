package differ

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/wI2L/jsondiff"

	"github.com/ndacheck/ndacheck/internal/digest"
	"github.com/ndacheck/ndacheck/internal/models"
)

// DriftType indicates what kind of difference was detected
type DriftType string

const (
	DriftAdded    DriftType = "added"
	DriftChanged  DriftType = "changed"
	DriftResolved DriftType = "resolved"
)

// DriftItem is one finding that appeared, changed or went away
type DriftItem struct {
	Type           DriftType          `json:"type"`
	Severity       SeverityLevel      `json:"-"`
	Category       string             `json:"category"`
	Recommendation string             `json:"recommendation"`
	Rule           string             `json:"rule,omitempty"`
	OldKind        models.FindingKind `json:"oldKind,omitempty"`
	NewKind        models.FindingKind `json:"newKind,omitempty"`
	Message        string             `json:"message"`
}

// Result of comparing two reviews
type Result struct {
	HasDrift        bool           `json:"hasDrift"`
	DocumentChanged bool           `json:"documentChanged"`
	PlaybookChanged bool           `json:"playbookChanged"`
	Drifts          []DriftItem    `json:"drifts"`
	Patches         jsondiff.Patch `json:"-"`
}

// Count drifts of one type
func (r *Result) Count(t DriftType) int {
	n := 0
	for _, d := range r.Drifts {
		if d.Type == t {
			n++
		}
	}
	return n
}

// findingEntry is the JSON leaf compared for each finding
type findingEntry struct {
	Rule  string             `json:"rule,omitempty"`
	Kind  models.FindingKind `json:"kind,omitempty"`
	Index int                `json:"-"`
}

// findingTree maps category -> recommendation -> entry
type findingTree map[string]map[string]findingEntry

func buildTree(findings models.FindingsList) findingTree {
	t := make(findingTree)
	for i, f := range findings {
		recs, ok := t[f.Category]
		if !ok {
			recs = make(map[string]findingEntry)
			t[f.Category] = recs
		}
		if _, dup := recs[f.Recommendation]; !dup {
			recs[f.Recommendation] = findingEntry{Rule: f.Rule, Kind: f.Kind, Index: i}
		}
	}
	return t
}

// Compare reports how the findings of current differ from previous. Added
// drifts follow current's finding order, resolved ones follow previous's.
func Compare(previous, current *models.Review) (*Result, error) {
	if previous == nil || current == nil {
		return nil, fmt.Errorf("both reviews are required")
	}

	if digest.Findings(previous.Findings) == digest.Findings(current.Findings) {
		return &Result{
			DocumentChanged: previous.Document.SHA256 != current.Document.SHA256,
			PlaybookChanged: previous.Playbook != current.Playbook,
			Drifts:          []DriftItem{},
		}, nil
	}

	oldTree := buildTree(previous.Findings)
	newTree := buildTree(current.Findings)

	patches, err := ComputePatch(oldTree, newTree)
	if err != nil {
		return nil, err
	}

	result := &Result{
		DocumentChanged: previous.Document.SHA256 != current.Document.SHA256,
		PlaybookChanged: previous.Playbook != current.Playbook,
		Drifts:          []DriftItem{},
		Patches:         patches,
	}

	seen := make(map[string]bool)
	for _, op := range patches {
		for _, d := range driftsFor(op, oldTree, newTree) {
			key := string(d.Type) + "\x00" + d.Category + "\x00" + d.Recommendation
			if seen[key] {
				continue
			}
			seen[key] = true
			result.Drifts = append(result.Drifts, d)
		}
	}

	sortDrifts(result.Drifts, oldTree, newTree)
	result.HasDrift = len(result.Drifts) > 0
	return result, nil
}

// ComputePatch diffs two finding trees as JSON
func ComputePatch(previous, current findingTree) (jsondiff.Patch, error) {
	oldJSON, err := json.Marshal(previous)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal previous findings: %w", err)
	}
	newJSON, err := json.Marshal(current)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal current findings: %w", err)
	}

	patches, err := jsondiff.CompareJSON(oldJSON, newJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to compute diff: %w", err)
	}
	return patches, nil
}

// driftsFor maps one patch operation back onto findings. Paths are
// /category, /category/recommendation or /category/recommendation/field.
func driftsFor(op jsondiff.Operation, oldTree, newTree findingTree) []DriftItem {
	parts := splitPointer(op.Path)
	if len(parts) == 0 {
		return wholeTreeDrifts(oldTree, newTree)
	}

	category := parts[0]
	if len(parts) == 1 {
		return categoryDrifts(category, oldTree[category], newTree[category])
	}

	rec := parts[1]
	oldEntry, inOld := oldTree[category][rec]
	newEntry, inNew := newTree[category][rec]
	switch {
	case inNew && !inOld:
		return []DriftItem{added(category, rec, newEntry)}
	case inOld && !inNew:
		return []DriftItem{resolved(category, rec, oldEntry)}
	case inOld && inNew && oldEntry.Kind != newEntry.Kind:
		return []DriftItem{changed(category, rec, oldEntry, newEntry)}
	}
	return nil
}

func wholeTreeDrifts(oldTree, newTree findingTree) []DriftItem {
	var out []DriftItem
	for category := range unionKeys(oldTree, newTree) {
		out = append(out, categoryDrifts(category, oldTree[category], newTree[category])...)
	}
	return out
}

func categoryDrifts(category string, oldRecs, newRecs map[string]findingEntry) []DriftItem {
	var out []DriftItem
	for rec, e := range newRecs {
		if o, ok := oldRecs[rec]; !ok {
			out = append(out, added(category, rec, e))
		} else if o.Kind != e.Kind {
			out = append(out, changed(category, rec, o, e))
		}
	}
	for rec, e := range oldRecs {
		if _, ok := newRecs[rec]; !ok {
			out = append(out, resolved(category, rec, e))
		}
	}
	return out
}

func unionKeys(a, b findingTree) map[string]bool {
	keys := make(map[string]bool, len(a)+len(b))
	for k := range a {
		keys[k] = true
	}
	for k := range b {
		keys[k] = true
	}
	return keys
}

// splitPointer decodes an RFC 6901 JSON pointer
func splitPointer(p string) []string {
	if p == "" || p == "/" {
		return nil
	}
	parts := strings.Split(strings.TrimPrefix(p, "/"), "/")
	for i, s := range parts {
		s = strings.ReplaceAll(s, "~1", "/")
		parts[i] = strings.ReplaceAll(s, "~0", "~")
	}
	return parts
}

var driftOrder = map[DriftType]int{DriftAdded: 0, DriftChanged: 1, DriftResolved: 2}

func sortDrifts(drifts []DriftItem, oldTree, newTree findingTree) {
	position := func(d DriftItem) int {
		if d.Type == DriftResolved {
			return oldTree[d.Category][d.Recommendation].Index
		}
		return newTree[d.Category][d.Recommendation].Index
	}
	sort.SliceStable(drifts, func(i, j int) bool {
		if driftOrder[drifts[i].Type] != driftOrder[drifts[j].Type] {
			return driftOrder[drifts[i].Type] < driftOrder[drifts[j].Type]
		}
		return position(drifts[i]) < position(drifts[j])
	})
}
