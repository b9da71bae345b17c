package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ndacheck/ndacheck/internal/digest"
	"github.com/ndacheck/ndacheck/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history [document]",
	Short: "List saved reviews",
	Long: `Lists reviews saved with --save, newest first. With a document name,
only reviews of that file are shown (matched by base name).

Examples:
  ndacheck history
  ndacheck history acme-nda.pdf --limit 5
  ndacheck history --documents`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one saved review",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var (
	historyLimitFlag     int
	historyJSONFlag      bool
	historyDocumentsFlag bool
	historyShowFormat    string
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimitFlag, "limit", "n", 20, "Maximum entries to list (0 = all)")
	historyCmd.Flags().BoolVar(&historyJSONFlag, "json", false, "Output JSON")
	historyCmd.Flags().BoolVar(&historyDocumentsFlag, "documents", false, "List document names instead of reviews")
	historyShowCmd.Flags().StringVarP(&historyShowFormat, "format", "f", "", "Output format: text, json, markdown, or csv")
	historyCmd.AddCommand(historyShowCmd)
}

// GetHistoryCmd export
func GetHistoryCmd() *cobra.Command {
	return historyCmd
}

// historyRow is the JSON form of a listed review
type historyRow struct {
	ID         string `json:"id"`
	Digest     string `json:"digest"`
	Document   string `json:"document"`
	Playbook   string `json:"playbook"`
	ReviewedAt string `json:"reviewedAt"`
	Findings   int    `json:"findings"`
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := history.Open(settings.History.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	w := cmd.OutOrStdout()

	if historyDocumentsFlag {
		names, err := store.Documents()
		if err != nil {
			return err
		}
		if historyJSONFlag {
			if names == nil {
				names = []string{}
			}
			return writeJSON(w, names)
		}
		for _, name := range names {
			fmt.Fprintln(w, name)
		}
		return nil
	}

	document := ""
	if len(args) == 1 {
		document = args[0]
	}
	entries, err := store.List(document, historyLimitFlag)
	if err != nil {
		return err
	}

	rows := make([]historyRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, historyRow{
			ID:         e.ID,
			Digest:     e.Digest,
			Document:   e.Review.Document.Name,
			Playbook:   e.Review.Playbook,
			ReviewedAt: e.Review.ReviewedAt.Local().Format("2006-01-02 15:04"),
			Findings:   len(e.Review.Findings),
		})
	}

	if historyJSONFlag {
		return writeJSON(w, rows)
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No saved reviews"))
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDOCUMENT\tREVIEWED\tFINDINGS\tDIGEST\tPLAYBOOK")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n", r.ID, r.Document, r.ReviewedAt, r.Findings, digest.Short(r.Digest), r.Playbook)
	}
	return tw.Flush()
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	format, err := outputFormat(historyShowFormat)
	if err != nil {
		return err
	}

	store, err := history.Open(settings.History.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	entry, err := store.Get(args[0])
	if err != nil {
		return err
	}
	return renderReview(cmd.OutOrStdout(), &entry.Review, format)
}
