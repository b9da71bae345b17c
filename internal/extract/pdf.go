package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// DefaultPDFTool is looked up on PATH unless configured
const DefaultPDFTool = "pdftotext"

// CommandRunner runs an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, err
	}
	return out, nil
}

// pdfExtractor shells out to poppler's pdftotext
type pdfExtractor struct {
	tool     string
	runner   CommandRunner
	lookPath func(string) (string, error)
}

func newPDFExtractor(tool string, runner CommandRunner) *pdfExtractor {
	if tool == "" {
		tool = DefaultPDFTool
	}
	if runner == nil {
		runner = execRunner{}
	}
	return &pdfExtractor{tool: tool, runner: runner, lookPath: exec.LookPath}
}

func (p *pdfExtractor) Format() Format { return FormatPDF }

// Extract writes data to a temp file and reads pdftotext's UTF-8 output.
// Pages are separated by form feeds, which become newlines.
func (p *pdfExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	bin, err := p.lookPath(p.tool)
	if err != nil {
		return "", newError(KindToolMissing, "", fmt.Errorf("%s: %w", p.tool, err))
	}

	tmp, err := os.CreateTemp("", "ndacheck-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	out, err := p.runner.Run(ctx, bin, "-enc", "UTF-8", "-q", tmp.Name(), "-")
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", newError(KindUnreadable, "", err)
	}

	text := strings.ReplaceAll(string(out), "\f", "\n")
	return strings.TrimRight(text, "\n"), nil
}

// CheckPDFTool reports whether tool (or pdftotext) is on PATH
func CheckPDFTool(tool string) error {
	if tool == "" {
		tool = DefaultPDFTool
	}
	if _, err := exec.LookPath(tool); err != nil {
		return newError(KindToolMissing, "", fmt.Errorf("%s: %w", tool, err))
	}
	return nil
}

// InstallInstructions returns how to install pdftotext
func InstallInstructions() string {
	return `PDF review requires pdftotext (poppler).
  macOS:          brew install poppler
  Debian/Ubuntu:  apt install poppler-utils
  Fedora:         dnf install poppler-utils
Or point extract.pdftotext at an existing binary.`
}
