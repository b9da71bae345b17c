package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

type htmlExtractor struct{}

func (htmlExtractor) Format() Format { return FormatHTML }

var skipElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"head":     true,
	"svg":      true,
	"iframe":   true,
	"template": true,
}

var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "hr": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "table": true, "section": true, "article": true,
	"ul": true, "ol": true, "dl": true, "dt": true, "dd": true,
	"thead": true, "tbody": true, "tfoot": true, "caption": true,
}

// cellElements are separated by a space within their row
var cellElements = map[string]bool{
	"td": true, "th": true,
}

// Extract returns the visible text, one block element per line.
func (htmlExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", newError(KindUnreadable, "", fmt.Errorf("parse html: %w", err))
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipElements[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			switch {
			case blockElements[n.Data]:
				sb.WriteByte('\n')
			case cellElements[n.Data]:
				sb.WriteByte(' ')
			}
		}
	}
	walk(doc)

	return collapseLines(sb.String()), nil
}

// collapseLines squeezes runs of spaces and drops blank lines
func collapseLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
