package playbook

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/ndacheck/ndacheck/internal/models"
)

// DefaultPreset is the canonical playbook
const DefaultPreset = "standard"

// maxExtendsDepth bounds extends chains
const maxExtendsDepth = 8

//go:embed presets/*.yaml
var presetFS embed.FS

// presetSource is where preset files are read from
var presetSource fs.FS = presetFS

// presetFiles maps preset names to embedded file paths
var presetFiles = map[string]string{
	"standard": "presets/standard.yaml",
	"strict":   "presets/strict.yaml",
}

var (
	presetMu    sync.Mutex
	presetCache = map[string]*models.PlaybookConfig{}
)

// GetPreset returns a resolved preset by name, or nil if it is unknown or invalid
func GetPreset(name string) *models.PlaybookConfig {
	config, err := LookupPreset(name)
	if err != nil {
		return nil
	}
	return config
}

// LookupPreset returns a resolved preset by name. Only successful loads are cached.
func LookupPreset(name string) (*models.PlaybookConfig, error) {
	presetMu.Lock()
	defer presetMu.Unlock()

	if cached, ok := presetCache[name]; ok {
		return cached, nil
	}

	config, err := loadPreset(name)
	if err != nil {
		return nil, err
	}
	presetCache[name] = config
	return config, nil
}

// loadPreset parses an embedded preset without resolving extends
func loadPreset(name string) (*models.PlaybookConfig, error) {
	path, ok := presetFiles[name]
	if !ok {
		return nil, fmt.Errorf("unknown preset: %s (valid: %s)", name, strings.Join(ListPresetNames(), ", "))
	}
	data, err := fs.ReadFile(presetSource, path)
	if err != nil {
		return nil, fmt.Errorf("preset %s: %w", name, err)
	}
	config, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("preset %s: %w", name, err)
	}
	return resolve(config, 0)
}

// ListPresetNames returns the names of all available presets, sorted
func ListPresetNames() []string {
	names := make([]string, 0, len(presetFiles))
	for name := range presetFiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MustGetPreset returns a preset or panics (for tests)
func MustGetPreset(name string) *models.PlaybookConfig {
	p := GetPreset(name)
	if p == nil {
		panic(fmt.Sprintf("preset %q not found", name))
	}
	return p
}

// Parse decodes a playbook document
func Parse(data []byte) (*models.PlaybookConfig, error) {
	var config models.PlaybookConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse playbook YAML: %w", err)
	}
	return &config, nil
}

// LoadFile reads a playbook file and resolves its extends chain
func LoadFile(path string) (*models.PlaybookConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read playbook file: %w", err)
	}
	config, err := Parse(data)
	if err != nil {
		return nil, err
	}
	config, err = resolve(config, 0)
	if err != nil {
		return nil, err
	}
	if len(config.Rules) == 0 {
		return nil, fmt.Errorf("playbook must have at least one rule")
	}
	return config, nil
}

// Load picks a playbook: file path wins over preset, preset defaults to standard
func Load(path, preset string) (*models.PlaybookConfig, error) {
	if path != "" {
		return LoadFile(path)
	}
	if preset == "" {
		preset = DefaultPreset
	}
	return LookupPreset(preset)
}

// resolve prepends the rules of the extended preset
func resolve(config *models.PlaybookConfig, depth int) (*models.PlaybookConfig, error) {
	if config.Extends == "" {
		return config, nil
	}
	if depth >= maxExtendsDepth {
		return nil, fmt.Errorf("extends chain too deep at %q", config.Extends)
	}

	path, ok := presetFiles[config.Extends]
	if !ok {
		return nil, fmt.Errorf("extends unknown preset: %s", config.Extends)
	}
	data, err := fs.ReadFile(presetSource, path)
	if err != nil {
		return nil, fmt.Errorf("preset %s: %w", config.Extends, err)
	}
	parent, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("preset %s: %w", config.Extends, err)
	}
	parent, err = resolve(parent, depth+1)
	if err != nil {
		return nil, err
	}

	rules := make([]models.RuleConfig, 0, len(parent.Rules)+len(config.Rules))
	rules = append(rules, parent.Rules...)
	rules = append(rules, config.Rules...)

	resolved := *config
	resolved.Rules = rules
	if resolved.Description == "" {
		resolved.Description = parent.Description
	}
	return &resolved, nil
}

var defaultEngine = sync.OnceValues(func() (*Engine, error) {
	config, err := LookupPreset(DefaultPreset)
	if err != nil {
		return nil, err
	}
	return Compile(config)
})

// Default returns the compiled standard playbook
func Default() (*Engine, error) {
	return defaultEngine()
}

// Evaluate reviews text against the standard playbook
func Evaluate(text string) models.FindingsList {
	e, err := Default()
	if err != nil {
		panic(fmt.Sprintf("standard playbook does not compile: %v", err))
	}
	return e.Evaluate(text)
}
