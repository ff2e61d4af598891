// File: internal/analysis/taint/evaluator.go
package taint

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/phpflow/internal/analysis/ast"
)

// evaluator walks one program for one pattern. It is not safe for concurrent
// use; the Analyzer creates one per pass.
type evaluator struct {
	ctx    context.Context
	logger *zap.Logger
	opts   Options
}

func newEvaluator(ctx context.Context, logger *zap.Logger, opts Options) *evaluator {
	return &evaluator{ctx: ctx, logger: logger, opts: opts}
}

// eval returns the taint level of n, mutating env along the way. A
// *SinkViolation error ends the pass; any other error is fatal.
func (v *evaluator) eval(n ast.Node, env *Environment) (Level, error) {
	switch n := n.(type) {
	case nil:
		// Absent optional child (empty else, missing loop body, ...).
		return Level{}, nil

	case *ast.Program:
		return Level{}, v.evalStatements(n.Children, env)
	case *ast.Block:
		return Level{}, v.evalStatements(n.Children, env)

	case *ast.Variable:
		return env.IsTainted(n.Name, ""), nil
	case *ast.OffsetLookup:
		return v.evalOffsetLookup(n, env)
	case *ast.PropertyLookup:
		if _, err := v.eval(n.Offset, env); err != nil {
			return Level{}, err
		}
		return v.eval(n.What, env)

	case *ast.StringLiteral, *ast.NumberLiteral, *ast.BoolLiteral, *ast.ConstRef, *ast.Identifier:
		return Level{}, nil

	case *ast.BinaryOp:
		left, err := v.eval(n.Left, env)
		if err != nil {
			return Level{}, err
		}
		right, err := v.eval(n.Right, env)
		if err != nil {
			return Level{}, err
		}
		return Combine(left, right), nil
	case *ast.Encapsed:
		return v.fold(n.Parts, env)
	case *ast.Array:
		return v.fold(n.Items, env)

	case *ast.IncDec:
		return v.eval(n.What, env)
	case *ast.Unary:
		return v.eval(n.What, env)
	case *ast.Cast:
		return v.eval(n.What, env)
	case *ast.Ternary:
		return v.evalTernary(n, env)

	case *ast.Assign:
		return v.evalAssign(n, env)
	case *ast.Call:
		return v.evalCall(n, n.Callee, n.Arguments, env)
	case *ast.New:
		return v.evalCall(n, n.Class, n.Arguments, env)

	case *ast.Echo:
		return v.evalOutput("echo", n.Arguments, env)
	case *ast.Print:
		return v.evalOutput("print", optionalList(n.Argument), env)
	case *ast.Exit:
		return v.evalOutput("exit", optionalList(n.Status), env)

	case *ast.If:
		return Level{}, v.evalIf(n, env)
	case *ast.While:
		return Level{}, v.evalWhile(n.Test, n.Body, env)
	case *ast.DoWhile:
		if _, err := v.eval(n.Body, env); err != nil {
			return Level{}, err
		}
		return Level{}, v.evalWhile(n.Test, n.Body, env)
	case *ast.For:
		return Level{}, v.evalFor(n, env)
	case *ast.Try:
		return Level{}, v.evalTry(n, env)
	case *ast.Catch:
		_, err := v.eval(n.Body, env)
		return Level{}, err
	case *ast.Throw:
		if _, err := v.eval(n.What, env); err != nil {
			return Level{}, err
		}
		return Level{}, nil

	default:
		return Level{}, unsupported(n, "no evaluation rule for %T", n)
	}
}

func (v *evaluator) evalStatements(stmts []ast.Node, env *Environment) error {
	for _, s := range stmts {
		if _, err := v.eval(s, env); err != nil {
			return err
		}
	}
	return nil
}

// fold combines the levels of nodes, evaluating each in order.
func (v *evaluator) fold(nodes []ast.Node, env *Environment) (Level, error) {
	acc := Level{}
	for _, n := range nodes {
		l, err := v.eval(n, env)
		if err != nil {
			return Level{}, err
		}
		acc = Combine(acc, l)
	}
	return acc, nil
}

func optionalList(n ast.Node) []ast.Node {
	if n == nil {
		return nil
	}
	return []ast.Node{n}
}

func (v *evaluator) evalOffsetLookup(n *ast.OffsetLookup, env *Environment) (Level, error) {
	if base, ok := n.What.(*ast.Variable); ok {
		if off, ok := literalOffset(n.Offset); ok {
			return env.IsTainted(base.Name, off), nil
		}
	}
	// Non-literal or absent offset: lose precision and read the base.
	if _, err := v.eval(n.Offset, env); err != nil {
		return Level{}, err
	}
	return v.eval(n.What, env)
}

func (v *evaluator) evalTernary(n *ast.Ternary, env *Environment) (Level, error) {
	test, err := v.eval(n.Test, env)
	if err != nil {
		return Level{}, err
	}
	whenTrue := test
	if n.IfTrue != nil {
		if whenTrue, err = v.eval(n.IfTrue, env); err != nil {
			return Level{}, err
		}
	}
	whenFalse, err := v.eval(n.IfFalse, env)
	if err != nil {
		return Level{}, err
	}
	return Combine(whenTrue, whenFalse), nil
}

// assignTarget is a resolved left-hand side. weak is set when the written
// slot cannot be named, i.e. `$a[] = ...` or `$a[$i] = ...`.
type assignTarget struct {
	name   string
	offset string
	weak   bool
}

func (v *evaluator) resolveTarget(assign *ast.Assign, env *Environment) (assignTarget, error) {
	switch left := assign.Left.(type) {
	case *ast.Variable:
		return assignTarget{name: left.Name}, nil
	case *ast.OffsetLookup:
		base, ok := left.What.(*ast.Variable)
		if !ok {
			return assignTarget{}, unsupported(assign, "assignment to an offset of %s", kindOf(left.What))
		}
		if off, ok := literalOffset(left.Offset); ok {
			return assignTarget{name: base.Name, offset: off}, nil
		}
		if _, err := v.eval(left.Offset, env); err != nil {
			return assignTarget{}, err
		}
		return assignTarget{name: base.Name, weak: true}, nil
	default:
		return assignTarget{}, unsupported(assign, "assignment to %s", kindOf(assign.Left))
	}
}

func (v *evaluator) evalAssign(n *ast.Assign, env *Environment) (Level, error) {
	target, err := v.resolveTarget(n, env)
	if err != nil {
		return Level{}, err
	}
	value, err := v.eval(n.Right, env)
	if err != nil {
		return Level{}, err
	}
	if n.Operator != "=" {
		value = Combine(env.IsTainted(target.name, target.offset), value)
	}

	if target.weak {
		// The written slot is unknown: the array as a whole absorbs the value.
		merged := Combine(env.IsTainted(target.name, ""), value)
		if merged.tainted {
			env.Taint(target.name, "")
		} else {
			env.define(target.name, merged)
		}
		return env.IsTainted(target.name, ""), nil
	}

	if value.tainted {
		env.Taint(target.name, target.offset)
	} else {
		env.untaintLevel(target.name, target.offset, value)
	}
	return env.IsTainted(target.name, target.offset), nil
}

// evalCall classifies a call or construction by callee name. Endorsers
// launder their result without looking at the arguments; everything else
// propagates argument taint to its result.
func (v *evaluator) evalCall(n, callee ast.Node, args []ast.Node, env *Environment) (Level, error) {
	id, ok := callee.(*ast.Identifier)
	if !ok {
		return Level{}, unsupported(n, "callee must be a plain name, got %s", kindOf(callee))
	}
	name := strings.TrimPrefix(id.Name, `\`)
	catalog := env.Catalog()

	if endorser, ok := catalog.Endorser(name); ok {
		return Untainted(endorser), nil
	}

	level, err := v.fold(args, env)
	if err != nil {
		return Level{}, err
	}
	if sink, ok := catalog.Sink(name); ok {
		return v.reachSink(sink, level, env)
	}
	return level, nil
}

// evalOutput handles echo, print and exit. Arguments are always evaluated;
// the construct only matters when its own name is a sink.
func (v *evaluator) evalOutput(name string, args []ast.Node, env *Environment) (Level, error) {
	level, err := v.fold(args, env)
	if err != nil {
		return Level{}, err
	}
	sink, ok := env.Catalog().Sink(name)
	if !ok {
		return Level{}, nil
	}
	return v.reachSink(sink, level, env)
}

func (v *evaluator) reachSink(sink string, level Level, env *Environment) (Level, error) {
	if level.tainted {
		v.logger.Debug("Tainted data reaches sink.", zap.String("sink", sink))
		return Level{}, &SinkViolation{Pattern: env.Catalog().Name(), Sink: sink}
	}
	env.recordEndorsers(level)
	return level, nil
}

func kindOf(n ast.Node) string {
	if n == nil {
		return "nothing"
	}
	return string(n.Kind())
}
