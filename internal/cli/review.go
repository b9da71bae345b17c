package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ndacheck/ndacheck/internal/extract"
	"github.com/ndacheck/ndacheck/internal/history"
	"github.com/ndacheck/ndacheck/internal/models"
	"github.com/ndacheck/ndacheck/internal/observability/logging"
	"github.com/ndacheck/ndacheck/internal/observability/receipt"
	"github.com/ndacheck/ndacheck/internal/playbook"
	"github.com/ndacheck/ndacheck/internal/review"
)

// reviewCmd extracts and reviews one or more agreements
var reviewCmd = &cobra.Command{
	Use:   "review <file>...",
	Short: "Review NDAs against the playbook",
	Long: `Extracts the text of each agreement (PDF, DOCX, HTML or plain text)
and checks it against the playbook.

Exit codes:
  0  reviewed (or clean, with --fail)
  1  findings present and --fail was given
  2  a document could not be reviewed, or the playbook is invalid

Examples:
  ndacheck review acme-nda.pdf
  ndacheck review acme-nda.docx --preset strict --format markdown --output review.md
  ndacheck review acme-nda.pdf --format json --save --fail`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReview,
}

var (
	reviewFormatFlag  string
	reviewOutputFlag  string
	reviewFailFlag    bool
	reviewSaveFlag    bool
	reviewTimeoutFlag time.Duration
)

func init() {
	reviewCmd.Flags().StringVarP(&reviewFormatFlag, "format", "f", "", "Output format: text, json, markdown, or csv (default from config)")
	reviewCmd.Flags().StringVarP(&reviewOutputFlag, "output", "o", "", "Write output to file (default: stdout)")
	reviewCmd.Flags().BoolVar(&reviewFailFlag, "fail", false, "Exit 1 when any finding is reported")
	reviewCmd.Flags().BoolVar(&reviewSaveFlag, "save", false, "Store the review in history")
	reviewCmd.Flags().DurationVarP(&reviewTimeoutFlag, "timeout", "t", 2*time.Minute, "Timeout for text extraction")
}

// GetReviewCmd export
func GetReviewCmd() *cobra.Command {
	return reviewCmd
}

// buildService compiles the configured playbook and an extractor registry
func buildService() (*review.Service, error) {
	config, err := playbook.Load(settings.Playbook.Path, settings.Playbook.Preset)
	if err != nil {
		return nil, err
	}
	engine, err := playbook.Compile(config)
	if err != nil {
		return nil, err
	}
	registry := extract.New(
		extract.WithPDFTool(settings.Extract.PDFTool),
		extract.WithCacheTTL(settings.Extract.CacheTTL),
	)
	return review.New(registry, engine), nil
}

// playbookPreset names the preset for receipts, or "custom" for a file
func playbookPreset() string {
	if settings.Playbook.Path != "" {
		return "custom"
	}
	if settings.Playbook.Preset == "" {
		return playbook.DefaultPreset
	}
	return settings.Playbook.Preset
}

// outputFormat resolves a per-command flag against config
func outputFormat(flag string) (OutputFormat, error) {
	if flag != "" {
		return ParseOutputFormat(flag)
	}
	return ParseOutputFormat(settings.Output.Format)
}

// openOutput returns stdout or a created file
func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

func runReview(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()
	sess := receipt.Start(ctx, "ndacheck review", os.Args[1:])
	var receiptOpts []receipt.Option
	defer func() {
		_ = sess.Finish(err, receiptOpts...)
	}()

	log := logging.From(ctx)
	start := time.Now()

	format, err := outputFormat(reviewFormatFlag)
	if err != nil {
		return err
	}

	svc, err := buildService()
	if err != nil {
		return err
	}

	var findings models.FindingsList
	defer func() {
		log.Event(ctx, "review.complete", map[string]any{
			"documents":   len(args),
			"findings":    len(findings),
			"duration_ms": time.Since(start).Milliseconds(),
		})
	}()

	reviews := make([]*models.Review, 0, len(args))
	for _, path := range args {
		rev, err := reviewWithTimeout(ctx, svc, path)
		if err != nil {
			return err
		}
		reviews = append(reviews, rev)
		findings = append(findings, rev.Findings...)
		receiptOpts = append(receiptOpts, receipt.WithDocument(rev.Document))
	}
	receiptOpts = append(receiptOpts, receipt.WithPlaybook(svc.Playbook(), playbookPreset(), findings))

	if reviewSaveFlag {
		if err := saveReviews(reviews); err != nil {
			return err
		}
	}

	w, closeOut, err := openOutput(reviewOutputFlag)
	if err != nil {
		return err
	}
	if err := renderReviews(w, reviews, format); err != nil {
		_ = closeOut()
		return err
	}
	if err := closeOut(); err != nil {
		return err
	}
	if reviewOutputFlag != "" {
		fmt.Fprintf(os.Stderr, "Output written to %s\n", reviewOutputFlag)
	}

	if reviewFailFlag && len(findings) > 0 {
		return ErrFindings
	}
	return nil
}

func reviewWithTimeout(ctx context.Context, svc *review.Service, path string) (*models.Review, error) {
	if reviewTimeoutFlag > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, reviewTimeoutFlag)
		defer cancel()
	}
	rev, err := svc.File(ctx, path)
	if err != nil {
		return nil, withHint(err)
	}
	return rev, nil
}

// withHint appends install instructions when pdftotext is missing
func withHint(err error) error {
	if errors.Is(err, extract.ErrToolMissing) {
		return fmt.Errorf("%w\n\n%s", err, extract.InstallInstructions())
	}
	return err
}

func saveReviews(reviews []*models.Review) error {
	store, err := history.Open(settings.History.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	for _, rev := range reviews {
		id, err := store.Save(rev)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved review %s of %s\n", id, rev.Document.Name)
	}
	return nil
}
