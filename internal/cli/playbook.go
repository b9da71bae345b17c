package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ndacheck/ndacheck/internal/models"
	"github.com/ndacheck/ndacheck/internal/playbook"
)

var playbookCmd = &cobra.Command{
	Use:   "playbook",
	Short: "Inspect and validate playbooks",
}

var playbookListCmd = &cobra.Command{
	Use:   "list",
	Short: "List built-in playbooks",
	Args:  cobra.NoArgs,
	RunE:  runPlaybookList,
}

// playbookExplainCmd outputs the rules of a playbook
var playbookExplainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Output playbook rules as Markdown or JSON",
	Long: `Display the rules of a playbook: category, kind, and the finding each
rule produces. Uses --preset or --playbook from the root command.

Example:
  ndacheck playbook explain --preset strict
  ndacheck playbook explain --json
  ndacheck playbook explain --playbook ./house.yaml --output rules.md`,
	Args: cobra.NoArgs,
	RunE: runPlaybookExplain,
}

var playbookValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check that a playbook file loads and compiles",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlaybookValidate,
}

var (
	explainJSON   bool
	explainOutput string
)

func init() {
	playbookExplainCmd.Flags().BoolVar(&explainJSON, "json", false, "Output JSON instead of Markdown")
	playbookExplainCmd.Flags().StringVarP(&explainOutput, "output", "o", "", "Write output to file (default: stdout)")

	playbookCmd.AddCommand(playbookListCmd)
	playbookCmd.AddCommand(playbookExplainCmd)
	playbookCmd.AddCommand(playbookValidateCmd)
}

// GetPlaybookCmd export
func GetPlaybookCmd() *cobra.Command {
	return playbookCmd
}

// ExplainOutput is the JSON output schema
type ExplainOutput struct {
	SchemaVersion string        `json:"schema_version"`
	Source        ExplainSource `json:"source"`
	Name          string        `json:"name"`
	Description   string        `json:"description,omitempty"`
	GeneratedAt   string        `json:"generated_at"`
	Rules         []ExplainRule `json:"rules"`
}

// ExplainSource identifies where the playbook came from
type ExplainSource struct {
	Type string `json:"type"` // "preset" or "file"
	Name string `json:"name"` // preset name or file path
}

// ExplainRule is one rule with the finding it produces
type ExplainRule struct {
	ID          string   `json:"id"`
	Category    string   `json:"category"`
	Kind        string   `json:"kind"`
	FindingKind string   `json:"finding_kind"`
	Description string   `json:"description,omitempty"`
	Findings    []string `json:"findings"`
}

func runPlaybookList(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	for _, name := range playbook.ListPresetNames() {
		config, err := playbook.LookupPreset(name)
		if err != nil {
			return err
		}
		marker := " "
		if name == playbook.DefaultPreset {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %-10s %s (%d rules)\n", marker, name, config.Name, len(config.Rules))
	}
	return nil
}

func runPlaybookExplain(cmd *cobra.Command, args []string) error {
	config, err := playbook.Load(settings.Playbook.Path, settings.Playbook.Preset)
	if err != nil {
		return err
	}
	source := ExplainSource{Type: "preset", Name: playbookPreset()}
	if settings.Playbook.Path != "" {
		source = ExplainSource{Type: "file", Name: settings.Playbook.Path}
	}

	var output string
	if explainJSON {
		output, err = generateExplainJSON(config, source)
	} else {
		output, err = generateExplainMarkdown(config, source)
	}
	if err != nil {
		return err
	}

	if explainOutput != "" {
		if err := os.WriteFile(explainOutput, []byte(output), 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Output written to %s\n", explainOutput)
		return nil
	}

	_, err = io.WriteString(cmd.OutOrStdout(), output)
	return err
}

func runPlaybookValidate(cmd *cobra.Command, args []string) error {
	config, err := playbook.LoadFile(args[0])
	if err != nil {
		return err
	}
	engine, err := playbook.Compile(config)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %d rules compiled\n",
		clearBanner.Render("✓"), engine.Name(), engine.RuleCount())
	return nil
}

// ruleFindings lists the recommendations a rule can produce
func ruleFindings(rc models.RuleConfig) []string {
	switch rc.Kind {
	case models.RuleKindEach:
		out := make([]string, 0, len(rc.Terms))
		for _, t := range rc.Terms {
			out = append(out, t.Message)
		}
		return out
	case models.RuleKindSubterms:
		names := make([]string, 0, len(rc.Subterms))
		for _, s := range rc.Subterms {
			names = append(names, s.Name)
		}
		return []string{fmt.Sprintf("%s (%s)", rc.Message, strings.Join(names, ", "))}
	default:
		if rc.Message == "" {
			return []string{}
		}
		return []string{rc.Message}
	}
}

func ruleFindingKind(rc models.RuleConfig) models.FindingKind {
	if rc.FindingKind != "" {
		return rc.FindingKind
	}
	return models.DefaultFindingKind(rc.Kind)
}

// generateExplainJSON produces JSON output
func generateExplainJSON(config *models.PlaybookConfig, source ExplainSource) (string, error) {
	output := ExplainOutput{
		SchemaVersion: "1.0",
		Source:        source,
		Name:          config.Name,
		Description:   config.Description,
		GeneratedAt:   time.Now().UTC().Format(time.RFC3339Nano),
		Rules:         make([]ExplainRule, 0, len(config.Rules)),
	}

	for _, rc := range config.Rules {
		output.Rules = append(output.Rules, ExplainRule{
			ID:          rc.ID,
			Category:    rc.Category,
			Kind:        string(rc.Kind),
			FindingKind: string(ruleFindingKind(rc)),
			Description: rc.Description,
			Findings:    ruleFindings(rc),
		})
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data) + "\n", nil
}

// generateExplainMarkdown produces Markdown table output
func generateExplainMarkdown(config *models.PlaybookConfig, source ExplainSource) (string, error) {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Playbook: %s\n\n", config.Name))
	sb.WriteString(fmt.Sprintf("**Source**: %s (`%s`)\n\n", source.Type, source.Name))
	if config.Description != "" {
		sb.WriteString(strings.TrimSpace(config.Description))
		sb.WriteString("\n\n")
	}

	sb.WriteString("| Rule | Category | Kind | Finding | Recommendation |\n")
	sb.WriteString("|------|----------|------|---------|----------------|\n")

	for _, rc := range config.Rules {
		findings := ruleFindings(rc)
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
			escapeMDCell(rc.ID),
			escapeMDCell(rc.Category),
			rc.Kind,
			ruleFindingKind(rc),
			formatFindingsForMD(findings)))
	}

	sb.WriteString("\n")
	return sb.String(), nil
}

// formatFindingsForMD joins recommendations into one table cell
func formatFindingsForMD(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	escaped := make([]string, len(items))
	for i, s := range items {
		escaped[i] = escapeMDCell(truncateText(s, 160))
	}
	return strings.Join(escaped, "<br>")
}

// truncateText shortens long recommendations for table display
func truncateText(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-1]) + "…"
}
