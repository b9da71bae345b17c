package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ndacheck/ndacheck/internal/differ"
	"github.com/ndacheck/ndacheck/internal/history"
	"github.com/ndacheck/ndacheck/internal/models"
	"github.com/ndacheck/ndacheck/internal/observability/logging"
	"github.com/ndacheck/ndacheck/internal/observability/receipt"
)

var compareCmd = &cobra.Command{
	Use:   "compare <old.json> <new.json> | compare <document>",
	Short: "Show how findings changed between two reviews",
	Long: `Compares two reviews and lists findings that are new, changed, or
resolved.

With two arguments both must be JSON reviews (ndacheck review --format json).
With one argument the document is reviewed now and compared against its most
recent saved review, or against --against <history-id>.

Examples:
  ndacheck compare v1-review.json v2-review.json
  ndacheck compare acme-nda-v2.docx --save --fail-on critical
  ndacheck compare acme-nda-v2.docx --against 01927c3e-...`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runCompare,
}

var (
	compareFormatFlag  string
	compareFailOnFlag  string
	compareAgainstFlag string
	compareSaveFlag    bool
	compareTimeoutFlag time.Duration
)

func init() {
	compareCmd.Flags().StringVarP(&compareFormatFlag, "format", "f", "text", "Output format: text or json")
	compareCmd.Flags().StringVar(&compareFailOnFlag, "fail-on", "none", "Exit 1 on drift at this severity: none, critical, moderate, info")
	compareCmd.Flags().StringVar(&compareAgainstFlag, "against", "", "History id of the previous review")
	compareCmd.Flags().BoolVar(&compareSaveFlag, "save", false, "Store the new review in history")
	compareCmd.Flags().DurationVarP(&compareTimeoutFlag, "timeout", "t", 2*time.Minute, "Timeout for text extraction")
}

// GetCompareCmd export
func GetCompareCmd() *cobra.Command {
	return compareCmd
}

func runCompare(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()
	sess := receipt.Start(ctx, "ndacheck compare", os.Args[1:])
	var receiptOpts []receipt.Option
	defer func() {
		_ = sess.Finish(err, receiptOpts...)
	}()

	log := logging.From(ctx)

	failOn, err := ParseFailOnLevel(compareFailOnFlag)
	if err != nil {
		return err
	}
	format, err := ParseOutputFormat(compareFormatFlag)
	if err != nil {
		return err
	}
	if format != FormatText && format != FormatJSON {
		return fmt.Errorf("compare supports text or json output, not %s", format)
	}

	var previous, current *models.Review
	if len(args) == 2 {
		if compareAgainstFlag != "" || compareSaveFlag {
			return fmt.Errorf("--against and --save need a single document argument")
		}
		if previous, err = loadReviewFile(args[0]); err != nil {
			return err
		}
		if current, err = loadReviewFile(args[1]); err != nil {
			return err
		}
	} else {
		previous, current, err = compareWithHistory(cmd, args[0])
		if err != nil {
			return err
		}
		receiptOpts = append(receiptOpts, receipt.WithDocument(current.Document))
	}

	drift, err := differ.Compare(previous, current)
	if err != nil {
		return err
	}
	receiptOpts = append(receiptOpts,
		receipt.WithComparison(drift.Count(differ.DriftAdded), drift.Count(differ.DriftResolved)))

	log.Event(ctx, "compare.complete", map[string]any{
		"added":    drift.Count(differ.DriftAdded),
		"changed":  drift.Count(differ.DriftChanged),
		"resolved": drift.Count(differ.DriftResolved),
	})

	result := BuildCompareResult(previous, current, drift, failOn)
	w := cmd.OutOrStdout()
	if format == FormatJSON {
		if err := writeJSON(w, result); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(w, "%s  %s → %s\n\n", titleStyle.Render(current.Document.Name),
			mutedStyle.Render(result.Previous.ReviewedAt), mutedStyle.Render(result.Current.ReviewedAt))
		renderDrift(w, drift)
	}

	if result.Outcome == "FAIL" {
		return ErrFindings
	}
	return nil
}

// compareWithHistory reviews path and loads the review to compare it with
func compareWithHistory(cmd *cobra.Command, path string) (*models.Review, *models.Review, error) {
	svc, err := buildService()
	if err != nil {
		return nil, nil, err
	}

	ctx := cmd.Context()
	if compareTimeoutFlag > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, compareTimeoutFlag)
		defer cancel()
	}
	current, err := svc.File(ctx, path)
	if err != nil {
		return nil, nil, withHint(err)
	}

	store, err := history.Open(settings.History.Path)
	if err != nil {
		return nil, nil, err
	}
	defer store.Close()

	var entry *history.Entry
	if compareAgainstFlag != "" {
		entry, err = store.Get(compareAgainstFlag)
	} else {
		entry, err = store.Latest(current.Document.Name)
	}
	if err != nil {
		return nil, nil, err
	}

	if compareSaveFlag {
		id, err := store.Save(current)
		if err != nil {
			return nil, nil, err
		}
		fmt.Fprintf(os.Stderr, "Saved review %s of %s\n", id, current.Document.Name)
	}
	return &entry.Review, current, nil
}

// loadReviewFile reads a JSON review written by review --format json
func loadReviewFile(path string) (*models.Review, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read review: %w", err)
	}
	var rev models.Review
	if err := json.Unmarshal(data, &rev); err != nil {
		return nil, fmt.Errorf("failed to parse review %s: %w", path, err)
	}
	if rev.SchemaVersion == "" {
		return nil, fmt.Errorf("%s is not an ndacheck review", path)
	}
	if rev.Findings == nil {
		rev.Findings = models.FindingsList{}
	}
	return &rev, nil
}
