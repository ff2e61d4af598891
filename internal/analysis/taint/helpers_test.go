// File: internal/analysis/taint/helpers_test.go
package taint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/phpflow/internal/analysis/ast"
)

// -- AST builders --

func prog(stmts ...ast.Node) *ast.Program { return &ast.Program{Children: stmts} }
func block(stmts ...ast.Node) *ast.Block  { return &ast.Block{Children: stmts} }
func variable(name string) *ast.Variable  { return &ast.Variable{Name: name} }
func str(s string) *ast.StringLiteral     { return &ast.StringLiteral{Value: s} }
func dqstr(s string) *ast.StringLiteral   { return &ast.StringLiteral{Value: s, DoubleQuoted: true} }
func num(n string) *ast.NumberLiteral     { return &ast.NumberLiteral{Value: n} }
func echo(args ...ast.Node) *ast.Echo     { return &ast.Echo{Arguments: args} }

func assign(left, right ast.Node) *ast.Assign {
	return &ast.Assign{Operator: "=", Left: left, Right: right}
}

func compound(op string, left, right ast.Node) *ast.Assign {
	return &ast.Assign{Operator: op, Left: left, Right: right}
}

func call(name string, args ...ast.Node) *ast.Call {
	return &ast.Call{Callee: &ast.Identifier{Name: name}, Arguments: args}
}

func offset(base string, off ast.Node) *ast.OffsetLookup {
	return &ast.OffsetLookup{What: variable(base), Offset: off}
}

func concat(left, right ast.Node) *ast.BinaryOp {
	return &ast.BinaryOp{Type: ".", Left: left, Right: right}
}

// -- Fixtures --

func xssPattern() Pattern {
	return Pattern{
		Name:      "XSS",
		Sources:   []string{"$_GET", "_POST"},
		Endorsers: []string{"htmlspecialchars", "mysql_escape_string"},
		Sinks:     []string{"echo", "print"},
	}
}

func mustCatalog(t *testing.T, p Pattern) *Catalog {
	t.Helper()
	c, err := NewCatalog(0, p)
	require.NoError(t, err)
	return c
}

func newTestEvaluator(t *testing.T, opts Options) *evaluator {
	t.Helper()
	return newEvaluator(context.Background(), zaptest.NewLogger(t), opts.withDefaults())
}

// runPass evaluates program for p and returns the resulting verdict.
func runPass(t *testing.T, p Pattern, program ast.Node) (Verdict, error) {
	t.Helper()
	a := NewAnalyzer(zaptest.NewLogger(t), Options{Concurrency: 1})
	res, err := a.Analyze(context.Background(), program, []Pattern{p})
	if err != nil {
		return Verdict{}, err
	}
	require.Len(t, res.Verdicts, 1)
	return res.Verdicts[0], nil
}
