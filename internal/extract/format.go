package extract

import (
	"bytes"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Format of a source document
type Format string

const (
	FormatUnknown Format = ""
	FormatPDF     Format = "pdf"
	FormatDOCX    Format = "docx"
	FormatHTML    Format = "html"
	FormatText    Format = "text"
)

var extFormats = map[string]Format{
	".pdf":  FormatPDF,
	".docx": FormatDOCX,
	".html": FormatHTML,
	".htm":  FormatHTML,
	".txt":  FormatText,
	".text": FormatText,
	".md":   FormatText,
}

// sniffLen is how much of the content is inspected when the extension is unknown
const sniffLen = 512

var (
	pdfMagic = []byte("%PDF-")
	zipMagic = []byte("PK\x03\x04")
)

// DetectFormat picks a format from the file extension, falling back to the
// leading bytes when the extension is missing or unknown.
func DetectFormat(name string, data []byte) Format {
	if f, ok := extFormats[strings.ToLower(filepath.Ext(name))]; ok {
		return f
	}

	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	switch {
	case bytes.HasPrefix(head, pdfMagic):
		return FormatPDF
	case bytes.HasPrefix(head, zipMagic):
		return FormatDOCX
	}

	lower := bytes.ToLower(bytes.TrimSpace(head))
	if bytes.HasPrefix(lower, []byte("<!doctype html")) || bytes.Contains(lower, []byte("<html")) {
		return FormatHTML
	}
	if len(head) > 0 && utf8.Valid(trimPartialRune(head)) && !bytes.Contains(head, []byte{0}) {
		return FormatText
	}
	return FormatUnknown
}

// trimPartialRune drops a rune cut in half by the sniff window
func trimPartialRune(b []byte) []byte {
	for i := 0; i < utf8.UTFMax && len(b) > 0; i++ {
		if utf8.Valid(b) {
			return b
		}
		b = b[:len(b)-1]
	}
	return b
}

// SupportedExtensions lists extensions the registry recognizes, for directory scans
func SupportedExtensions() []string {
	return []string{".pdf", ".docx", ".html", ".htm", ".txt", ".text", ".md"}
}

// IsSupportedPath reports whether path has a recognized extension
func IsSupportedPath(path string) bool {
	_, ok := extFormats[strings.ToLower(filepath.Ext(path))]
	return ok
}
