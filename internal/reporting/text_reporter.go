// File: internal/reporting/text_reporter.go
package reporting

import (
	"fmt"
	"io"
	"strings"

	"github.com/gookit/color"

	"github.com/xkilldash9x/phpflow/internal/analysis/taint"
)

// TextReporter writes one human-readable line per interesting verdict.
type TextReporter struct {
	writer io.WriteCloser
	color  bool
}

func NewTextReporter(writer io.WriteCloser, colorize bool) *TextReporter {
	return &TextReporter{writer: writer, color: colorize}
}

// Write prints a warning per violated pattern and the active endorsers of
// clear patterns. A run with nothing to say prints a single summary line.
func (r *TextReporter) Write(result *taint.Result) error {
	var lines []string
	for _, v := range result.Verdicts {
		switch {
		case v.IsViolated():
			lines = append(lines, r.paint(color.FgRed,
				fmt.Sprintf("WARNING: found possible vulnerability: %s (sink: %s)", v.Pattern, v.Sink)))
		case len(v.ActiveEndorsers) > 0:
			lines = append(lines, r.paint(color.FgGreen,
				fmt.Sprintf("No %s vulnerability found; endorsers: %s", v.Pattern, strings.Join(v.ActiveEndorsers, ", "))))
		}
	}
	if len(lines) == 0 {
		lines = append(lines, r.paint(color.FgGreen, "No vulnerabilities found."))
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(r.writer, line); err != nil {
			return fmt.Errorf("failed to write text report: %w", err)
		}
	}
	return nil
}

func (r *TextReporter) paint(c color.Color, s string) string {
	if !r.color {
		return s
	}
	return c.Render(s)
}

func (r *TextReporter) Close() error {
	return r.writer.Close()
}
