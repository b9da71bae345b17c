package digest

import (
	"crypto/sha256"
	"fmt"

	"github.com/ndacheck/ndacheck/internal/models"
)

// Prefix of every digest string
const Prefix = "sha256:"

// HashString sha256
func HashString(s string) string {
	return fmt.Sprintf("%s%x", Prefix, sha256.Sum256([]byte(s)))
}

// HashJSON hashes the canonical JSON form of v
func HashJSON(v any) (string, error) {
	canonical, err := Canonicalize(v)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize JSON: %w", err)
	}
	return fmt.Sprintf("%s%x", Prefix, sha256.Sum256(canonical)), nil
}

// Findings fingerprints a finding set. Only (category, recommendation) and
// kind take part; order and rule ids do not.
func Findings(findings models.FindingsList) string {
	tree := make(map[string]any)
	for _, f := range findings {
		recs, ok := tree[f.Category].(map[string]any)
		if !ok {
			recs = make(map[string]any)
			tree[f.Category] = recs
		}
		recs[f.Recommendation] = string(f.Kind)
	}
	// strings and maps only, canonicalization cannot fail
	h, _ := HashJSON(tree)
	return h
}

// Short trims a digest for display
func Short(d string) string {
	if len(d) > len(Prefix)+12 {
		return d[len(Prefix) : len(Prefix)+12]
	}
	return d
}
