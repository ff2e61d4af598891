// File: internal/reporting/reporter.go
// Package reporting renders analysis results as text, JSON or SARIF.
package reporting

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/xkilldash9x/phpflow/internal/analysis/taint"
)

// Reporter consumes analysis results and writes them to an output.
type Reporter interface {
	Write(result *taint.Result) error
	// Close flushes buffered output and releases the writer.
	Close() error
}

// Options carries presentation settings shared by all formats.
type Options struct {
	ToolVersion string
	// Source is the analyzed AST file, used as the SARIF artifact location.
	Source string
	// Color enables ANSI colors in the text format.
	Color bool
}

// New creates a reporter for the given format. An empty path, "-" or "stdout"
// writes to standard output.
func New(format, outputPath string, logger *zap.Logger, opts Options) (Reporter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var writer io.WriteCloser
	if isStdout(outputPath) {
		writer = &nopWriteCloser{os.Stdout}
	} else {
		file, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = file
	}

	// Ensure the file handle is closed if reporter creation fails.
	cleanup := func() {
		if f, ok := writer.(*os.File); ok {
			f.Close()
		}
	}

	logger = logger.Named("reporter").With(zap.String("format", format))

	switch format {
	case "text":
		return NewTextReporter(writer, opts.Color), nil
	case "json":
		return NewJSONReporter(writer), nil
	case "sarif":
		return NewSARIFReporter(writer, opts.ToolVersion, opts.Source, logger), nil
	default:
		cleanup()
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

func isStdout(path string) bool {
	return path == "" || path == "-" || path == "stdout"
}

// nopWriteCloser keeps Close from closing os.Stdout.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error { return nil }
