// File: internal/analysis/taint/errors.go
package taint

import (
	"errors"
	"fmt"

	"github.com/xkilldash9x/phpflow/internal/analysis/ast"
)

// UnsupportedConstructError is returned when the evaluator meets a syntax
// shape it has no model for. It aborts the whole analysis: guessing a taint
// level for unknown code would defeat the point of the tool.
type UnsupportedConstructError struct {
	Kind   ast.Kind
	Reason string
}

func (e *UnsupportedConstructError) Error() string {
	return fmt.Sprintf("unsupported construct %q: %s", e.Kind, e.Reason)
}

func unsupported(n ast.Node, format string, args ...any) error {
	var kind ast.Kind
	if n != nil {
		kind = n.Kind()
	}
	return &UnsupportedConstructError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// SinkViolation signals that tainted data reached a sink. It is the normal
// way a finding is reported and only ends the current pattern's pass.
type SinkViolation struct {
	Pattern string
	Sink    string
}

func (e *SinkViolation) Error() string {
	return fmt.Sprintf("pattern %q: tainted data reaches sink %q", e.Pattern, e.Sink)
}

// ErrNoPatterns is returned when there is nothing to check a program against.
var ErrNoPatterns = errors.New("no vulnerability patterns loaded")

// ConfigurationError reports a pattern record with a missing field.
type ConfigurationError struct {
	Pattern string
	Index   int
	Field   string
}

func (e *ConfigurationError) Error() string {
	if e.Pattern == "" {
		return fmt.Sprintf("pattern #%d: missing required field %q", e.Index, e.Field)
	}
	return fmt.Sprintf("pattern %q (#%d): missing required field %q", e.Pattern, e.Index, e.Field)
}
