package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const docxBody = "word/document.xml"

// maxDocxBody caps the decompressed body
const maxDocxBody = 64 << 20

type docxExtractor struct{}

func (docxExtractor) Format() Format { return FormatDOCX }

// Extract reads the main document part. Paragraphs, including those inside
// tables, become lines; tabs and breaks are kept.
func (docxExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", newError(KindUnreadable, "", fmt.Errorf("not a zip archive: %w", err))
	}

	for _, f := range zr.File {
		if f.Name != docxBody {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", newError(KindUnreadable, "", err)
		}
		defer rc.Close()
		return parseDocumentXML(io.LimitReader(rc, maxDocxBody))
	}
	return "", newError(KindUnreadable, "", errors.New("missing "+docxBody))
}

// parseDocumentXML walks WordprocessingML tokens
func parseDocumentXML(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var sb strings.Builder
	inText := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", newError(KindUnreadable, "", fmt.Errorf("parse %s: %w", docxBody, err))
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t", "delText":
				inText = t.Name.Local == "t"
			case "tab":
				sb.WriteByte('\t')
			case "br", "cr":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t", "delText":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}

	return strings.TrimSpace(sb.String()), nil
}
