package receipt

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"time"

	"github.com/ndacheck/ndacheck/internal/models"
	"github.com/ndacheck/ndacheck/internal/observability"
)

// MaxErrorLength is the maximum length for error strings in receipts.
const MaxErrorLength = 2048

type writerKey struct{}

// WithWriter stores a receipt writer in the context.
func WithWriter(ctx context.Context, w Writer) context.Context {
	return context.WithValue(ctx, writerKey{}, w)
}

// From retrieves the receipt writer from context, or nil.
func From(ctx context.Context) Writer {
	if w, ok := ctx.Value(writerKey{}).(Writer); ok {
		return w
	}
	return nil
}

// Session tracks command execution
type Session struct {
	ctx     context.Context
	start   time.Time
	command string
	args    []string
}

// Start session
func Start(ctx context.Context, cmd string, args []string) *Session {
	return &Session{
		ctx:     ctx,
		start:   time.Now(),
		command: cmd,
		args:    args,
	}
}

// Option configures receipt
type Option func(*Receipt)

// WithDocument records a reviewed document
func WithDocument(doc models.DocumentRef) Option {
	return func(r *Receipt) {
		r.Documents = append(r.Documents, DocumentRef{
			Path:   doc.Path,
			Format: doc.Format,
			SHA256: doc.SHA256,
			Chars:  doc.Chars,
		})
	}
}

// WithDocumentFile records a document by path, hashing it from disk
func WithDocumentFile(path string) Option {
	return func(r *Receipt) {
		if path == "" {
			return
		}
		ref := DocumentRef{Path: path}
		if hash, err := computeSHA256(path); err == nil {
			ref.SHA256 = hash
		}
		r.Documents = append(r.Documents, ref)
	}
}

// WithPlaybook records the playbook outcome and each finding's rule
func WithPlaybook(name, preset string, findings models.FindingsList) Option {
	return func(r *Receipt) {
		sum := &PlaybookSummary{
			Name:     name,
			Preset:   preset,
			Status:   "clear",
			Findings: len(findings),
		}
		if len(findings) > 0 {
			sum.Status = "findings"
		}
		for _, f := range findings {
			sum.RulesHit = append(sum.RulesHit, RuleHit{
				Rule:     f.Rule,
				Category: f.Category,
				Kind:     string(f.Kind),
			})
		}
		r.Playbook = sum
	}
}

// WithBatch option
func WithBatch(documents, failed, withFindings int) Option {
	return func(r *Receipt) {
		r.Batch = &BatchSummary{
			Documents:    documents,
			Failed:       failed,
			WithFindings: withFindings,
		}
	}
}

// WithComparison option
func WithComparison(added, resolved int) Option {
	return func(r *Receipt) {
		r.Comparison = &CompareSummary{Added: added, Resolved: resolved}
	}
}

// Finish and write receipt. Without a writer in the context it does nothing.
func (s *Session) Finish(err error, opts ...Option) error {
	w := From(s.ctx)
	if w == nil {
		return nil
	}

	redactedArgs, wasRedacted := RedactArgs(s.args)

	r := Receipt{
		SchemaVersion: ReceiptSchemaVersion,
		OpID:          observability.OpID(s.ctx),
		TsStart:       s.start.UTC().Format(time.RFC3339Nano),
		TsEnd:         time.Now().UTC().Format(time.RFC3339Nano),
		Command:       s.command,
		Args:          redactedArgs,
		ArgsRedacted:  wasRedacted,
		Result:        Result{Status: StatusSuccess},
	}
	if err != nil {
		r.Result = Result{
			Status: StatusFail,
			Error:  truncateError(err.Error()),
		}
	}

	for _, opt := range opts {
		opt(&r)
	}

	return w.Write(r)
}

func computeSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func truncateError(s string) string {
	if len(s) <= MaxErrorLength {
		return s
	}
	return s[:MaxErrorLength-3] + "..."
}
