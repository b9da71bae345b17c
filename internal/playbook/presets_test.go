package playbook

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/ndacheck/ndacheck/internal/models"
)

func TestPresets_AllCompile(t *testing.T) {
	for _, name := range ListPresetNames() {
		t.Run(name, func(t *testing.T) {
			config := GetPreset(name)
			if config == nil {
				t.Fatalf("preset %q not found", name)
			}
			e, err := Compile(config)
			if err != nil {
				t.Fatalf("preset %q does not compile: %v", name, err)
			}
			if e.RuleCount() != len(config.Rules) {
				t.Errorf("RuleCount = %d, want %d", e.RuleCount(), len(config.Rules))
			}
		})
	}
}

func TestListPresetNames(t *testing.T) {
	want := []string{"standard", "strict"}
	if got := ListPresetNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("ListPresetNames() = %v, want %v", got, want)
	}
}

func TestGetPreset_Unknown(t *testing.T) {
	if p := GetPreset("lenient"); p != nil {
		t.Errorf("expected nil for unknown preset, got %+v", p)
	}
}

func TestGetPreset_Cached(t *testing.T) {
	a := GetPreset("standard")
	b := GetPreset("standard")
	if a != b {
		t.Error("expected the same cached config")
	}
}

func TestStandardPreset_Catalog(t *testing.T) {
	config := MustGetPreset(DefaultPreset)

	wantIDs := []string{
		"governing_state",
		"exclusive_jurisdiction",
		"burdensome_requests",
		"confidential_information",
		"term",
		"non_disparagement",
		"attorneys_fees",
		"notices",
		"representatives",
		"legal_requirement",
		"breach",
		"assignments",
		"as_is",
		"no_licenses",
		"return_or_destruction",
	}
	var gotIDs []string
	for _, r := range config.Rules {
		gotIDs = append(gotIDs, r.ID)
	}
	if !reflect.DeepEqual(gotIDs, wantIDs) {
		t.Errorf("rule ids =\n%v\nwant\n%v", gotIDs, wantIDs)
	}

	for _, r := range config.Rules {
		if r.ID == "burdensome_requests" && len(r.Terms) != 16 {
			t.Errorf("burdensome terms = %d, want 16", len(r.Terms))
		}
	}
}

func TestStrictPreset_ExtendsStandard(t *testing.T) {
	standard := MustGetPreset("standard")
	strict := MustGetPreset("strict")

	if len(strict.Rules) <= len(standard.Rules) {
		t.Fatalf("strict has %d rules, standard has %d", len(strict.Rules), len(standard.Rules))
	}
	for i, r := range standard.Rules {
		if strict.Rules[i].ID != r.ID {
			t.Errorf("strict rule #%d = %q, want inherited %q", i+1, strict.Rules[i].ID, r.ID)
		}
	}
	if strict.Extends != "standard" {
		t.Errorf("Extends = %q", strict.Extends)
	}
}

func TestStrictPreset_Findings(t *testing.T) {
	e, err := Compile(MustGetPreset("strict"))
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	if got := e.Evaluate(cleanNDA); len(got) != 0 {
		t.Errorf("clean agreement produced %d findings under strict: %v", len(got), got)
	}

	text := cleanNDA + "\nThese obligations continue in perpetuity. Recipient shall not compete with Discloser."
	got := e.Evaluate(text)
	if n := len(got.ByCategory("Non-Compete")); n != 1 {
		t.Errorf("Non-Compete findings = %d, want 1", n)
	}
	term := got.ByCategory("Term")
	if len(term) != 1 || term[0].Rule != "perpetual_term" {
		t.Errorf("Term findings = %+v, want the perpetual_term finding", term)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("rules: [:")); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	custom := `name: "House"
extends: standard
rules:
  - id: governing_law_ca
    category: "Governing State"
    kind: forbid
    patterns: ['California']
    message: "California law is not acceptable."
`
	path := filepath.Join(dir, "house.yaml")
	if err := os.WriteFile(path, []byte(custom), 0o644); err != nil {
		t.Fatal(err)
	}

	config, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if config.Name != "House" {
		t.Errorf("Name = %q", config.Name)
	}
	if len(config.Rules) != len(MustGetPreset("standard").Rules)+1 {
		t.Errorf("rules = %d, want standard plus one", len(config.Rules))
	}

	e, err := Compile(config)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	got := e.Evaluate(cleanNDA + " California").ByCategory("Governing State")
	if len(got) != 1 || got[0].Rule != "governing_law_ca" {
		t.Errorf("findings = %+v", got)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"no rules", "name: empty\n", "at least one rule"},
		{"unknown parent", "extends: lenient\nrules: []\n", "extends unknown preset"},
		{"bad yaml", "rules: [:", "failed to parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "_")+".yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadFile(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("LoadFile error = %v, want it to contain %q", err, tt.want)
			}
		})
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad(t *testing.T) {
	config, err := Load("", "")
	if err != nil {
		t.Fatalf("Load default failed: %v", err)
	}
	if config != MustGetPreset(DefaultPreset) {
		t.Error("empty preset should resolve to the standard playbook")
	}

	if _, err := Load("", "lenient"); err == nil || !strings.Contains(err.Error(), "standard, strict") {
		t.Errorf("Load unknown preset error = %v", err)
	}
}

func TestLoad_BrokenPreset(t *testing.T) {
	origSource := presetSource
	presetSource = fstest.MapFS{
		"presets/broken.yaml": {Data: []byte("rules: [:")},
	}
	presetFiles["broken"] = "presets/broken.yaml"
	t.Cleanup(func() {
		presetSource = origSource
		delete(presetFiles, "broken")
	})

	_, err := Load("", "broken")
	if err == nil {
		t.Fatal("expected an error for a preset that does not parse")
	}
	if strings.Contains(err.Error(), "unknown preset") {
		t.Errorf("broken preset reported as unknown: %v", err)
	}
	if !strings.Contains(err.Error(), "preset broken") || !strings.Contains(err.Error(), "failed to parse") {
		t.Errorf("Load error = %v, want the parse failure", err)
	}
	if GetPreset("broken") != nil {
		t.Error("GetPreset should return nil for an invalid preset")
	}
}

func TestResolve_NoExtends(t *testing.T) {
	config := &models.PlaybookConfig{Name: "solo", Rules: []models.RuleConfig{{ID: "x"}}}
	got, err := resolve(config, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got != config {
		t.Error("config without extends should be returned as-is")
	}
}

func TestResolve_DepthLimit(t *testing.T) {
	config := &models.PlaybookConfig{Extends: "standard"}
	if _, err := resolve(config, maxExtendsDepth); err == nil {
		t.Error("expected depth error")
	}
}
