package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ndacheck/ndacheck/internal/differ"
	"github.com/ndacheck/ndacheck/internal/history"
	"github.com/ndacheck/ndacheck/internal/models"
	"github.com/ndacheck/ndacheck/internal/observability/logging"
	"github.com/ndacheck/ndacheck/internal/review"
	"github.com/ndacheck/ndacheck/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch <file>...",
	Short: "Re-review documents whenever they are saved",
	Long: `Reviews each document once, then again every time it changes on disk,
printing only what changed since the previous review.

Stop with Ctrl-C.

Examples:
  ndacheck watch acme-nda.docx
  ndacheck watch acme-nda.docx --save --debounce 1s`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

var (
	watchDebounceFlag time.Duration
	watchSaveFlag     bool
	watchFormatFlag   string
)

func init() {
	watchCmd.Flags().DurationVar(&watchDebounceFlag, "debounce", watch.DefaultDebounce, "Quiet period before re-reviewing")
	watchCmd.Flags().BoolVar(&watchSaveFlag, "save", false, "Store every review in history")
	watchCmd.Flags().StringVarP(&watchFormatFlag, "format", "f", "", "Output format of the initial review")
}

// GetWatchCmd export
func GetWatchCmd() *cobra.Command {
	return watchCmd
}

// watchKey matches argument paths with the absolute paths the watcher reports
func watchKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// watchSession holds the last review of each watched document
type watchSession struct {
	svc   *review.Service
	store *history.Store
	last  map[string]*models.Review
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := logging.From(ctx)

	format, err := outputFormat(watchFormatFlag)
	if err != nil {
		return err
	}
	svc, err := buildService()
	if err != nil {
		return err
	}

	s := &watchSession{svc: svc, last: make(map[string]*models.Review)}
	if watchSaveFlag {
		s.store, err = history.Open(settings.History.Path)
		if err != nil {
			return err
		}
		defer s.store.Close()
	}

	w, err := watch.New(args, watchDebounceFlag)
	if err != nil {
		return err
	}
	defer w.Stop()

	out := cmd.OutOrStdout()
	for _, path := range args {
		rev, err := s.review(ctx, path)
		if err != nil {
			return err
		}
		if err := renderReview(out, rev, format); err != nil {
			return err
		}
	}
	fmt.Fprintln(os.Stderr, mutedStyle.Render("Watching for changes (Ctrl-C to stop)"))

	err = w.Run(ctx, func(path string) {
		s.onChange(ctx, cmd, path)
	})
	if errors.Is(err, context.Canceled) {
		log.Info("watch", "stopped")
		return nil
	}
	return err
}

func (s *watchSession) review(ctx context.Context, path string) (*models.Review, error) {
	rev, err := s.svc.File(ctx, path)
	if err != nil {
		return nil, withHint(err)
	}
	if s.store != nil {
		if _, err := s.store.Save(rev); err != nil {
			return nil, err
		}
	}
	s.last[watchKey(path)] = rev
	return rev, nil
}

// onChange re-reviews path and prints the drift from its last review.
// Failures are reported and the watch continues.
func (s *watchSession) onChange(ctx context.Context, cmd *cobra.Command, path string) {
	log := logging.From(ctx)
	out := cmd.OutOrStdout()

	previous := s.last[watchKey(path)]
	rev, err := s.review(ctx, path)
	if err != nil {
		log.Warn("watch", "review failed", "path", path, "error", err.Error())
		fmt.Fprintf(os.Stderr, "%s %v\n", errorMark.Render("✗"), err)
		return
	}

	fmt.Fprintf(out, "\n%s  %s\n", titleStyle.Render(rev.Document.Name),
		mutedStyle.Render(rev.ReviewedAt.Local().Format("15:04:05")))
	if previous == nil {
		fmt.Fprintln(out, bannerText(len(rev.Findings)))
		return
	}

	drift, err := differ.Compare(previous, rev)
	if err != nil {
		log.Warn("watch", "compare failed", "path", path, "error", err.Error())
		return
	}
	renderDrift(out, drift)
	fmt.Fprintln(out, mutedStyle.Render(bannerText(len(rev.Findings))))
}
