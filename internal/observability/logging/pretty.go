package logging

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	levelStyles = map[string]lipgloss.Style{
		LevelDebug: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		LevelInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		LevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		LevelError: lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	}
	componentStyle = lipgloss.NewStyle().Faint(true)
)

// prettyLogger writes one short line per record for humans at a terminal.
// Events are only shown at debug level.
type prettyLogger struct {
	writer   io.Writer
	closer   io.Closer
	minLevel int
	mu       sync.Mutex
}

func (p *prettyLogger) log(level, component, msg string, fields map[string]any) {
	if levelPriority(level) < p.minLevel {
		return
	}

	var sb strings.Builder
	sb.WriteString(levelStyles[level].Render(strings.ToUpper(level)))
	sb.WriteByte(' ')
	sb.WriteString(componentStyle.Render(component + ":"))
	sb.WriteByte(' ')
	sb.WriteString(msg)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, fields[k])
	}
	sb.WriteByte('\n')

	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = io.WriteString(p.writer, sb.String())
}

func (p *prettyLogger) Debug(component, msg string, fields ...any) {
	p.log(LevelDebug, component, msg, pairs(fields))
}

func (p *prettyLogger) Info(component, msg string, fields ...any) {
	p.log(LevelInfo, component, msg, pairs(fields))
}

func (p *prettyLogger) Warn(component, msg string, fields ...any) {
	p.log(LevelWarn, component, msg, pairs(fields))
}

func (p *prettyLogger) Error(component, msg string, fields ...any) {
	p.log(LevelError, component, msg, pairs(fields))
}

func (p *prettyLogger) Event(ctx context.Context, event string, fields map[string]any) {
	p.log(LevelDebug, componentOf(event), event, fields)
}

func (p *prettyLogger) Close() error {
	if p.closer != nil {
		return p.closer.Close()
	}
	return nil
}
