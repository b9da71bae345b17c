package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ndacheck/ndacheck/internal/extract"
	"github.com/ndacheck/ndacheck/internal/history"
	"github.com/ndacheck/ndacheck/internal/models"
	"github.com/ndacheck/ndacheck/internal/observability/logging"
	otelobs "github.com/ndacheck/ndacheck/internal/observability/otel"
	"github.com/ndacheck/ndacheck/internal/observability/receipt"
	"github.com/ndacheck/ndacheck/internal/worker"
)

var batchCmd = &cobra.Command{
	Use:   "batch <dir|list-file>",
	Short: "Review many NDAs concurrently",
	Long: `Reviews every supported document under a directory, or every path
listed in a file (one per line, # comments allowed).

Failures are reported per document and do not stop the batch.

Examples:
  ndacheck batch ./inbound-ndas
  ndacheck batch ndas.txt --concurrency 4 --output-dir ./reviews --format markdown
  ndacheck batch ./inbound-ndas --rate 2 --save`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

var (
	batchConcurrencyFlag int
	batchRateFlag        float64
	batchFormatFlag      string
	batchOutputDirFlag   string
	batchFailFlag        bool
	batchSaveFlag        bool
	batchTimeoutFlag     time.Duration
)

func init() {
	batchCmd.Flags().IntVarP(&batchConcurrencyFlag, "concurrency", "c", 0, "Parallel reviews (default from config, then CPU count)")
	batchCmd.Flags().Float64Var(&batchRateFlag, "rate", 0, "Maximum reviews started per second (0 = unlimited)")
	batchCmd.Flags().StringVarP(&batchFormatFlag, "format", "f", "", "Output format: text, json, markdown, or csv")
	batchCmd.Flags().StringVar(&batchOutputDirFlag, "output-dir", "", "Write one result file per document to this directory")
	batchCmd.Flags().BoolVar(&batchFailFlag, "fail", false, "Exit 1 when any document has findings")
	batchCmd.Flags().BoolVar(&batchSaveFlag, "save", false, "Store successful reviews in history")
	batchCmd.Flags().DurationVarP(&batchTimeoutFlag, "timeout", "t", 10*time.Minute, "Timeout for the whole batch")
}

// GetBatchCmd export
func GetBatchCmd() *cobra.Command {
	return batchCmd
}

func runBatch(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()
	sess := receipt.Start(ctx, "ndacheck batch", os.Args[1:])
	var receiptOpts []receipt.Option
	defer func() {
		_ = sess.Finish(err, receiptOpts...)
	}()

	log := logging.From(ctx)
	start := time.Now()

	format, err := outputFormat(batchFormatFlag)
	if err != nil {
		return err
	}

	paths, err := worker.ExpandInput(args[0], extract.IsSupportedPath)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no supported documents found in %s (supported: %s)",
			args[0], strings.Join(extract.SupportedExtensions(), ", "))
	}

	if err := checkPDFTool(paths, settings.Extract.PDFTool); err != nil {
		return withHint(err)
	}

	svc, err := buildService()
	if err != nil {
		return err
	}

	concurrency := batchConcurrencyFlag
	if concurrency <= 0 {
		concurrency = settings.Batch.Concurrency
	}
	rate := batchRateFlag
	if !cmd.Flags().Changed("rate") {
		rate = settings.Batch.Rate
	}

	if batchTimeoutFlag > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, batchTimeoutFlag)
		defer cancel()
	}

	ctx, end := otelobs.StartSpan(ctx, "ndacheck.batch",
		attribute.Int("ndacheck.documents", len(paths)),
		attribute.Int("ndacheck.concurrency", concurrency),
	)
	defer func() { end(err) }()

	log.Info("batch", "starting batch", "documents", len(paths), "concurrency", concurrency)

	processor := worker.NewBatchProcessor(svc, concurrency, worker.WithRate(rate))
	results := processor.ProcessPaths(ctx, paths)
	summary := worker.Summarize(results)

	var findings models.FindingsList
	var reviews []*models.Review
	for _, r := range results {
		if r.Error != nil {
			log.Warn("batch", "review failed", "path", r.Path, "error", r.Error.Error())
			continue
		}
		reviews = append(reviews, r.Review)
		findings = append(findings, r.Review.Findings...)
		receiptOpts = append(receiptOpts, receipt.WithDocument(r.Review.Document))
	}
	receiptOpts = append(receiptOpts,
		receipt.WithPlaybook(svc.Playbook(), playbookPreset(), findings),
		receipt.WithBatch(summary.Documents, summary.Failed, summary.WithFindings),
	)

	log.Event(ctx, "batch.complete", map[string]any{
		"documents":     summary.Documents,
		"failed":        summary.Failed,
		"with_findings": summary.WithFindings,
		"duration_ms":   time.Since(start).Milliseconds(),
	})

	if batchSaveFlag && len(reviews) > 0 {
		if err := saveBatch(reviews); err != nil {
			return err
		}
	}

	if batchOutputDirFlag != "" {
		if err := writeBatchFiles(batchOutputDirFlag, results, format); err != nil {
			return err
		}
	} else if err := renderReviews(os.Stdout, reviews, format); err != nil {
		return err
	}

	printBatchSummary(results, summary)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("batch interrupted: %w", ctxErr)
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d documents could not be reviewed", summary.Failed, summary.Documents)
	}
	if batchFailFlag && summary.WithFindings > 0 {
		return ErrFindings
	}
	return nil
}

func saveBatch(reviews []*models.Review) error {
	store, err := history.Open(settings.History.Path)
	if err != nil {
		return err
	}
	defer store.Close()
	for _, rev := range reviews {
		if _, err := store.Save(rev); err != nil {
			return err
		}
	}
	return nil
}

// writeBatchFiles writes <base>.<ext> per reviewed document
func writeBatchFiles(dir string, results []*worker.ReviewResult, format OutputFormat) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	used := make(map[string]int)
	for _, r := range results {
		if r.Error != nil {
			continue
		}
		name := batchFileName(r.Path, format, used)
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		if err := renderReview(f, r.Review, format); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}

// batchFileName derives a unique output name; same-named documents in
// different directories get a numeric suffix
func batchFileName(path string, format OutputFormat, used map[string]int) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	used[base]++
	if n := used[base]; n > 1 {
		base = fmt.Sprintf("%s-%d", base, n)
	}
	return base + format.Extension()
}

func printBatchSummary(results []*worker.ReviewResult, s worker.Summary) {
	fmt.Fprintln(os.Stderr)
	for _, r := range results {
		if r.Error != nil {
			fmt.Fprintf(os.Stderr, "%s %s: %v\n", errorMark.Render("✗"), r.Path, r.Error)
		}
	}
	fmt.Fprintf(os.Stderr, "Reviewed %d documents: %d with findings, %d clear, %d failed\n",
		s.Documents, s.WithFindings, s.Documents-s.WithFindings-s.Failed, s.Failed)
}

// checkPDFTool fails fast when paths include PDFs and the extractor is missing
func checkPDFTool(paths []string, tool string) error {
	for _, p := range paths {
		if strings.EqualFold(filepath.Ext(p), ".pdf") {
			return extract.CheckPDFTool(tool)
		}
	}
	return nil
}
