// File: internal/reporting/json_reporter.go
package reporting

import (
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/phpflow/internal/analysis/taint"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONReporter writes each result as an indented JSON document.
type JSONReporter struct {
	writer  io.WriteCloser
	encoder *jsoniter.Encoder
}

func NewJSONReporter(writer io.WriteCloser) *JSONReporter {
	enc := json.NewEncoder(writer)
	enc.SetIndent("", "  ")
	return &JSONReporter{writer: writer, encoder: enc}
}

func (r *JSONReporter) Write(result *taint.Result) error {
	if err := r.encoder.Encode(result); err != nil {
		return fmt.Errorf("failed to encode JSON report: %w", err)
	}
	return nil
}

func (r *JSONReporter) Close() error {
	return r.writer.Close()
}
