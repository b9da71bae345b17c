// Package review extracts a document and evaluates it against a compiled
// playbook.
package review

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ndacheck/ndacheck/internal/extract"
	"github.com/ndacheck/ndacheck/internal/models"
	"github.com/ndacheck/ndacheck/internal/observability/logging"
	otelobs "github.com/ndacheck/ndacheck/internal/observability/otel"
	"github.com/ndacheck/ndacheck/internal/playbook"
)

// Service runs reviews. Safe for concurrent use.
type Service struct {
	registry *extract.Registry
	engine   *playbook.Engine
	now      func() time.Time
}

// New builds a service; a nil registry uses extract.New()
func New(registry *extract.Registry, engine *playbook.Engine) *Service {
	if registry == nil {
		registry = extract.New()
	}
	return &Service{registry: registry, engine: engine, now: time.Now}
}

// Playbook name of the engine in use
func (s *Service) Playbook() string {
	return s.engine.Name()
}

// File extracts and reviews one document. Extraction failures are returned
// before any evaluation and wrap *extract.Error.
func (s *Service) File(ctx context.Context, path string) (rev *models.Review, err error) {
	ctx, end := otelobs.StartSpan(ctx, "ndacheck.review", attribute.String("ndacheck.playbook", s.engine.Name()))
	defer func() { end(err) }()

	log := logging.From(ctx)
	log.Event(ctx, "review.start", map[string]any{"playbook": s.engine.Name()})

	doc, err := s.registry.File(ctx, path)
	if err != nil {
		log.Event(ctx, "review.failed", map[string]any{"error": err.Error()})
		return nil, fmt.Errorf("cannot review %s: %w", path, err)
	}

	rev = s.Document(ctx, doc)
	return rev, nil
}

// Document evaluates already extracted text
func (s *Service) Document(ctx context.Context, doc *extract.Document) *models.Review {
	_, end := otelobs.StartSpan(ctx, "ndacheck.evaluate",
		attribute.Int("ndacheck.rules", s.engine.RuleCount()),
		attribute.Int("ndacheck.chars", doc.Ref.Chars),
	)
	findings := s.engine.Evaluate(doc.Text)
	end(nil)

	rev := models.NewReview(doc.Ref, s.engine.Name(), findings, s.now())

	logging.From(ctx).Event(ctx, "review.finish", map[string]any{
		"playbook": rev.Playbook,
		"format":   rev.Document.Format,
		"findings": rev.Summary.Total,
		"missing":  rev.Summary.Missing,
	})
	return rev
}
