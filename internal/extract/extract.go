// Package extract turns agreement files (PDF, DOCX, HTML, plain text) into
// the text the playbook engine reviews.
package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ndacheck/ndacheck/internal/models"
	"github.com/ndacheck/ndacheck/internal/observability/logging"
	otelobs "github.com/ndacheck/ndacheck/internal/observability/otel"
)

// MaxDocumentBytes rejects inputs larger than this
const MaxDocumentBytes = 50 << 20

// Extractor converts raw bytes of one format into text.
type Extractor interface {
	Format() Format
	Extract(ctx context.Context, data []byte) (string, error)
}

// Document is extracted text plus a reference to its source.
type Document struct {
	Ref  models.DocumentRef
	Text string
}

// Registry dispatches to an Extractor by detected format. Safe for
// concurrent use.
type Registry struct {
	extractors map[Format]Extractor
	cache      *Cache
}

// Option configures a Registry
type Option func(*registryOptions)

type registryOptions struct {
	pdfTool    string
	runner     CommandRunner
	cacheTTL   time.Duration
	noCache    bool
	extractors []Extractor
}

// WithPDFTool sets the pdftotext binary (name or path)
func WithPDFTool(tool string) Option {
	return func(o *registryOptions) { o.pdfTool = tool }
}

// WithRunner replaces how pdftotext is executed
func WithRunner(r CommandRunner) Option {
	return func(o *registryOptions) { o.runner = r }
}

// WithCacheTTL sets how long extracted text is kept; negative disables caching
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *registryOptions) {
		if ttl < 0 {
			o.noCache = true
			return
		}
		o.cacheTTL = ttl
	}
}

// WithExtractor registers or overrides the extractor for its format
func WithExtractor(e Extractor) Option {
	return func(o *registryOptions) { o.extractors = append(o.extractors, e) }
}

// New builds a registry with the built-in extractors.
func New(opts ...Option) *Registry {
	var o registryOptions
	for _, opt := range opts {
		opt(&o)
	}

	r := &Registry{
		extractors: map[Format]Extractor{
			FormatPDF:  newPDFExtractor(o.pdfTool, o.runner),
			FormatDOCX: docxExtractor{},
			FormatHTML: htmlExtractor{},
			FormatText: textExtractor{},
		},
	}
	for _, e := range o.extractors {
		r.extractors[e.Format()] = e
	}
	if !o.noCache {
		r.cache = NewCache(o.cacheTTL)
	}
	return r
}

// File reads and extracts a document from disk.
func (r *Registry) File(ctx context.Context, path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, newError(KindUnreadable, path, err)
	}
	if info.IsDir() {
		return nil, newError(KindUnreadable, path, errors.New("is a directory"))
	}
	if info.Size() > MaxDocumentBytes {
		return nil, newError(KindUnreadable, path, fmt.Errorf("file is %d bytes, limit is %d", info.Size(), MaxDocumentBytes))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newError(KindUnreadable, path, err)
	}

	doc, err := r.Bytes(ctx, path, data)
	if err != nil {
		return nil, err
	}
	doc.Ref.Path = path
	return doc, nil
}

// Bytes extracts in-memory content; name is used for format detection and
// error messages only.
func (r *Registry) Bytes(ctx context.Context, name string, data []byte) (doc *Document, err error) {
	log := logging.From(ctx)
	ctx, end := otelobs.StartSpan(ctx, "ndacheck.extract", attribute.String("ndacheck.document", filepath.Base(name)))
	defer func() { end(err) }()

	if len(data) > MaxDocumentBytes {
		return nil, newError(KindUnreadable, name, fmt.Errorf("content is %d bytes, limit is %d", len(data), MaxDocumentBytes))
	}

	format := DetectFormat(name, data)
	ext, ok := r.extractors[format]
	if !ok {
		return nil, newError(KindUnsupported, name, nil)
	}

	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])
	key := CacheKey(digest, format)

	text, cached := "", false
	if r.cache != nil {
		text, cached = r.cache.Get(key)
	}
	if !cached {
		start := time.Now()
		text, err = ext.Extract(ctx, data)
		if err != nil {
			var xerr *Error
			if errors.As(err, &xerr) {
				if xerr.Path == "" {
					xerr.Path = name
				}
				return nil, xerr
			}
			return nil, fmt.Errorf("extract %s: %w", name, err)
		}
		log.Debug("extract", "extracted", "format", string(format), "bytes", len(data), "duration_ms", time.Since(start).Milliseconds())
	}

	if strings.TrimSpace(text) == "" {
		return nil, newError(KindNoText, name, nil)
	}
	if r.cache != nil && !cached {
		r.cache.Set(key, text)
	}

	otelobs.SetAttributes(ctx,
		attribute.String("ndacheck.format", string(format)),
		attribute.Bool("ndacheck.cache_hit", cached),
	)

	return &Document{
		Ref: models.DocumentRef{
			Name:   filepath.Base(name),
			Format: string(format),
			SHA256: digest,
			Bytes:  int64(len(data)),
			Chars:  utf8.RuneCountInString(text),
		},
		Text: text,
	}, nil
}

// CacheLen reports cached entries, zero when caching is off
func (r *Registry) CacheLen() int {
	if r.cache == nil {
		return 0
	}
	return r.cache.Len()
}
