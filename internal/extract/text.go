package extract

import (
	"bytes"
	"context"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type textExtractor struct{}

func (textExtractor) Format() Format { return FormatText }

// Extract decodes UTF-8, replacing invalid sequences, and normalizes line endings.
func (textExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	text := strings.ToValidUTF8(string(data), "\uFFFD")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n"), nil
}
