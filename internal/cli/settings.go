package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/viper"

	"github.com/ndacheck/ndacheck/internal/extract"
	"github.com/ndacheck/ndacheck/internal/history"
	"github.com/ndacheck/ndacheck/internal/observability/logging"
	"github.com/ndacheck/ndacheck/internal/playbook"
)

// Settings is the resolved configuration: flags > NDACHECK_* env > config file > defaults.
type Settings struct {
	Playbook PlaybookSettings `yaml:"playbook" mapstructure:"playbook"`
	Output   OutputSettings   `yaml:"output" mapstructure:"output"`
	Log      LogSettings      `yaml:"log" mapstructure:"log"`
	History  HistorySettings  `yaml:"history" mapstructure:"history"`
	Extract  ExtractSettings  `yaml:"extract" mapstructure:"extract"`
	Batch    BatchSettings    `yaml:"batch" mapstructure:"batch"`
}

type PlaybookSettings struct {
	Preset string `yaml:"preset" mapstructure:"preset"`
	Path   string `yaml:"path" mapstructure:"path"`
}

type OutputSettings struct {
	Format string `yaml:"format" mapstructure:"format"`
}

type LogSettings struct {
	Format string `yaml:"format" mapstructure:"format"`
	Level  string `yaml:"level" mapstructure:"level"`
	Output string `yaml:"output" mapstructure:"output"`
}

type HistorySettings struct {
	Path string `yaml:"path" mapstructure:"path"`
}

type ExtractSettings struct {
	PDFTool  string        `yaml:"pdftotext" mapstructure:"pdftotext"`
	CacheTTL time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

type BatchSettings struct {
	Concurrency int     `yaml:"concurrency" mapstructure:"concurrency"`
	Rate        float64 `yaml:"rate" mapstructure:"rate"`
}

// DefaultSettings returns built-in defaults
func DefaultSettings() Settings {
	historyPath, err := history.DefaultPath()
	if err != nil {
		historyPath = filepath.Join(".ndacheck", history.DefaultFile)
	}
	log := logging.DefaultConfig()
	return Settings{
		Playbook: PlaybookSettings{Preset: playbook.DefaultPreset},
		Output:   OutputSettings{Format: string(FormatText)},
		Log:      LogSettings{Format: log.Format, Level: log.Level, Output: log.Output},
		History:  HistorySettings{Path: historyPath},
		Extract:  ExtractSettings{PDFTool: extract.DefaultPDFTool, CacheTTL: extract.DefaultCacheTTL},
		Batch:    BatchSettings{Concurrency: runtime.NumCPU()},
	}
}

// setDefaults registers defaults with viper so env vars resolve for every key
func setDefaults(v *viper.Viper) {
	d := DefaultSettings()
	v.SetDefault("playbook.preset", d.Playbook.Preset)
	v.SetDefault("playbook.path", d.Playbook.Path)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.output", d.Log.Output)
	v.SetDefault("history.path", d.History.Path)
	v.SetDefault("extract.pdftotext", d.Extract.PDFTool)
	v.SetDefault("extract.cache_ttl", d.Extract.CacheTTL)
	v.SetDefault("batch.concurrency", d.Batch.Concurrency)
	v.SetDefault("batch.rate", d.Batch.Rate)
}

// loadSettings resolves settings from v
func loadSettings(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return s, fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := ParseOutputFormat(s.Output.Format); err != nil {
		return s, err
	}
	cfg := logging.Config{Format: s.Log.Format, Level: s.Log.Level, Output: s.Log.Output}
	if err := cfg.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// configDir is ~/.ndacheck
func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("error finding home directory: %w", err)
	}
	return filepath.Join(home, ".ndacheck"), nil
}
