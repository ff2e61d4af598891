// File: internal/analysis/taint/offset.go
package taint

import (
	"regexp"
	"strings"

	"github.com/xkilldash9x/phpflow/internal/analysis/ast"
)

// PHP casts decimal integer string keys to integers, so "5" and 5 address
// the same array slot.
var integerKey = regexp.MustCompile(`^(0|-?[1-9][0-9]*)$`)

// literalOffset renders a literal array offset as a definition key suffix.
// Quote style is kept so distinct spellings stay distinct, except where PHP
// itself treats them as one key: integer strings fold to the number form and
// double-quoted strings without escapes or interpolation fold to single-quote
// form. The second result is false for non-literal offsets.
func literalOffset(n ast.Node) (string, bool) {
	switch o := n.(type) {
	case *ast.NumberLiteral:
		return o.Value, o.Value != ""
	case *ast.BoolLiteral:
		if o.Value {
			return "true", true
		}
		return "false", true
	case *ast.ConstRef:
		switch strings.ToLower(o.Name) {
		case "true", "false":
			return strings.ToLower(o.Name), true
		}
		return "", false
	case *ast.StringLiteral:
		if integerKey.MatchString(o.Value) {
			return o.Value, true
		}
		if o.DoubleQuoted && strings.ContainsAny(o.Value, `\$`) {
			return `"` + o.Value + `"`, true
		}
		return "'" + o.Value + "'", true
	default:
		return "", false
	}
}
