package receipt

import (
	"path/filepath"
	"regexp"
	"strings"
)

const redactedValue = "[REDACTED]"

// sensitiveFlags have their values dropped from receipts.
var sensitiveFlags = map[string]bool{
	"token":         true,
	"api-key":       true,
	"apikey":        true,
	"password":      true,
	"secret":        true,
	"auth":          true,
	"bearer":        true,
	"otel-headers":  true,
	"headers":       true,
	"access-token":  true,
	"client-secret": true,
}

// secretPrefixes mark values that look like credentials regardless of flag.
var secretPrefixes = []string{
	"sk-",
	"ghp_",
	"github_pat_",
	"xoxb-",
	"xoxp-",
	"AKIA",
	"ya29.",
	"AIza",
	"Bearer ",
}

var jwtRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}$`)

// documentExts are reviewed inputs; only their base name is kept because
// folder names tend to carry the counterparty or deal name.
var documentExts = map[string]bool{
	".pdf":  true,
	".docx": true,
	".txt":  true,
	".md":   true,
}

// RedactArgs sanitizes CLI arguments before they are stored.
// Returns the redacted args and whether anything was changed.
func RedactArgs(args []string) ([]string, bool) {
	if len(args) == 0 {
		return args, false
	}

	out := make([]string, len(args))
	changed := false

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") {
			name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
			name = strings.ToLower(name)
			switch {
			case hasValue && (sensitiveFlags[name] || looksSecret(value)):
				out[i] = arg[:len(arg)-len(value)] + redactedValue
				changed = true
			case !hasValue && sensitiveFlags[name] && i+1 < len(args):
				out[i] = arg
				i++
				out[i] = redactedValue
				changed = true
			default:
				out[i] = arg
			}
			continue
		}

		if looksSecret(arg) {
			out[i] = redactedValue
			changed = true
			continue
		}

		if short, ok := trimDocumentPath(arg); ok {
			out[i] = short
			changed = true
			continue
		}

		out[i] = arg
	}

	return out, changed
}

func looksSecret(value string) bool {
	for _, prefix := range secretPrefixes {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}
	return jwtRegex.MatchString(value)
}

// trimDocumentPath reduces a document path with a directory to its base name
func trimDocumentPath(arg string) (string, bool) {
	if !documentExts[strings.ToLower(filepath.Ext(arg))] {
		return "", false
	}
	base := filepath.Base(arg)
	if base == arg {
		return "", false
	}
	return base, true
}
