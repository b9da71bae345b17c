package logging

import "fmt"

// Config selects the log sink. Format is "pretty" (human, stderr) or "jsonl".
type Config struct {
	Format string
	Level  string
	Output string
}

func DefaultConfig() Config {
	return Config{
		Format: FormatPretty,
		Level:  LevelWarn,
		Output: "stderr",
	}
}

const (
	FormatPretty = "pretty"
	FormatJSONL  = "jsonl"
)

const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Validate rejects unknown formats and levels
func (c Config) Validate() error {
	switch c.Format {
	case "", FormatPretty, FormatJSONL:
	default:
		return fmt.Errorf("log format must be %q or %q, got %q", FormatPretty, FormatJSONL, c.Format)
	}
	switch c.Level {
	case "", LevelDebug, LevelInfo, LevelWarn, LevelError:
	default:
		return fmt.Errorf("log level must be debug, info, warn or error, got %q", c.Level)
	}
	return nil
}

func levelPriority(level string) int {
	switch level {
	case LevelDebug:
		return 0
	case LevelInfo:
		return 1
	case LevelWarn:
		return 2
	case LevelError:
		return 3
	default:
		return 1 // default to info
	}
}
