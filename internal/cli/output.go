package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ndacheck/ndacheck/internal/differ"
	"github.com/ndacheck/ndacheck/internal/models"
)

// OutputFormat of review results
type OutputFormat string

const (
	FormatText     OutputFormat = "text"
	FormatJSON     OutputFormat = "json"
	FormatMarkdown OutputFormat = "markdown"
	FormatCSV      OutputFormat = "csv"
)

// ParseOutputFormat from string
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(s) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("invalid output format: %s (use text, json, markdown, or csv)", s)
	}
}

// Extension for files written with --output-dir
func (f OutputFormat) Extension() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatMarkdown:
		return ".md"
	case FormatCSV:
		return ".csv"
	default:
		return ".txt"
	}
}

var (
	colorRed    = lipgloss.Color("#F38BA8")
	colorYellow = lipgloss.Color("#F9E2AF")
	colorGreen  = lipgloss.Color("#A6E3A1")
	colorMuted  = lipgloss.Color("#6C7086")
	colorBorder = lipgloss.Color("#45475A")

	titleStyle   = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	warnBanner   = lipgloss.NewStyle().Bold(true).Foreground(colorYellow)
	clearBanner  = lipgloss.NewStyle().Bold(true).Foreground(colorGreen)
	cardStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorBorder).Padding(0, 1).Width(78)
	categoryText = lipgloss.NewStyle().Bold(true)
	errorMark    = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
)

var kindStyles = map[models.FindingKind]lipgloss.Style{
	models.FindingKindMissing:    lipgloss.NewStyle().Foreground(colorRed),
	models.FindingKindDisfavored: lipgloss.NewStyle().Foreground(colorRed),
	models.FindingKindQualify:    lipgloss.NewStyle().Foreground(colorYellow),
	models.FindingKindReminder:   lipgloss.NewStyle().Foreground(colorMuted),
}

// bannerText summarizes a review in one line
func bannerText(n int) string {
	if n == 0 {
		return "All clear! No major issues were found based on the playbook."
	}
	if n == 1 {
		return "Found 1 item that requires your attention."
	}
	return fmt.Sprintf("Found %d items that require your attention.", n)
}

// renderReview writes one review in the requested format
func renderReview(w io.Writer, rev *models.Review, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, rev)
	case FormatMarkdown:
		return renderMarkdown(w, rev)
	case FormatCSV:
		return renderCSV(w, rev.Findings)
	default:
		return renderText(w, rev)
	}
}

// renderReviews writes several reviews; JSON becomes one array
func renderReviews(w io.Writer, revs []*models.Review, format OutputFormat) error {
	if len(revs) == 1 {
		return renderReview(w, revs[0], format)
	}
	switch format {
	case FormatJSON:
		return writeJSON(w, revs)
	case FormatCSV:
		return renderCSVMulti(w, revs)
	}
	for i, rev := range revs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if err := renderReview(w, rev, format); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// renderText prints a banner and one card per finding
func renderText(w io.Writer, rev *models.Review) error {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(rev.Document.Name))
	sb.WriteString(mutedStyle.Render(fmt.Sprintf("  (%s, %s)", rev.Document.Format, rev.Playbook)))
	sb.WriteString("\n\n")

	n := len(rev.Findings)
	if n == 0 {
		sb.WriteString(clearBanner.Render("✓ " + bannerText(0)))
		sb.WriteString("\n")
		_, err := io.WriteString(w, sb.String())
		return err
	}

	sb.WriteString(warnBanner.Render("! " + bannerText(n)))
	sb.WriteString("\n")

	for _, f := range rev.Findings {
		header := categoryText.Render(f.Category)
		if f.Kind != "" {
			style, ok := kindStyles[f.Kind]
			if !ok {
				style = mutedStyle
			}
			header += "  " + style.Render(string(f.Kind))
		}
		sb.WriteString(cardStyle.Render(header + "\n" + f.Recommendation))
		sb.WriteString("\n")
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// renderMarkdown produces a two-column table
func renderMarkdown(w io.Writer, rev *models.Review) error {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# NDA Review: %s\n\n", rev.Document.Name))
	sb.WriteString(fmt.Sprintf("**Playbook**: %s  \n", rev.Playbook))
	sb.WriteString(fmt.Sprintf("**Reviewed**: %s\n\n", rev.ReviewedAt.Format("2006-01-02 15:04 MST")))
	sb.WriteString(bannerText(len(rev.Findings)))
	sb.WriteString("\n\n")

	if len(rev.Findings) > 0 {
		sb.WriteString("| Category | Recommendation |\n")
		sb.WriteString("|----------|----------------|\n")
		for _, f := range rev.Findings {
			sb.WriteString(fmt.Sprintf("| %s | %s |\n", escapeMDCell(f.Category), escapeMDCell(f.Recommendation)))
		}
		sb.WriteString("\n")
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// escapeMDCell keeps a value inside one table cell
func escapeMDCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r\n", "<br>")
	return strings.ReplaceAll(s, "\n", "<br>")
}

// renderCSV writes Category,Recommendation rows with a header
func renderCSV(w io.Writer, findings models.FindingsList) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Category", "Recommendation"}); err != nil {
		return err
	}
	for _, f := range findings {
		if err := cw.Write([]string{f.Category, f.Recommendation}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// renderCSVMulti writes one table for several reviews, led by a Document column
func renderCSVMulti(w io.Writer, revs []*models.Review) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Document", "Category", "Recommendation"}); err != nil {
		return err
	}
	for _, rev := range revs {
		for _, f := range rev.Findings {
			if err := cw.Write([]string{rev.Document.Name, f.Category, f.Recommendation}); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// renderDrift prints a comparison in text form
func renderDrift(w io.Writer, result *differ.Result) {
	if !result.HasDrift {
		fmt.Fprintln(w, clearBanner.Render("✓ No changes in findings"))
		return
	}

	fmt.Fprintln(w, warnBanner.Render(fmt.Sprintf("%d new, %d changed, %d resolved",
		result.Count(differ.DriftAdded), result.Count(differ.DriftChanged), result.Count(differ.DriftResolved))))
	if result.PlaybookChanged {
		fmt.Fprintln(w, mutedStyle.Render("note: the two reviews used different playbooks"))
	}
	fmt.Fprintln(w)

	for _, d := range result.Drifts {
		style := severityStyle(d.Severity)
		fmt.Fprintf(w, "%s %s\n", style.Render("["+differ.DriftSymbol(d.Type)+"]"), d.Message)
	}
}

func severityStyle(s differ.SeverityLevel) lipgloss.Style {
	switch s {
	case differ.SeverityCritical:
		return lipgloss.NewStyle().Foreground(colorRed)
	case differ.SeverityModerate:
		return lipgloss.NewStyle().Foreground(colorYellow)
	default:
		return lipgloss.NewStyle().Foreground(colorGreen)
	}
}
