// File: internal/analysis/taint/controlflow.go
package taint

import (
	"go.uber.org/zap"

	"github.com/xkilldash9x/phpflow/internal/analysis/ast"
)

// evalIf runs each arm in its own clone of the pre-branch environment. With
// no else arm, env itself stands in for the path where the test is false.
func (v *evaluator) evalIf(n *ast.If, env *Environment) error {
	if _, err := v.eval(n.Test, env); err != nil {
		return err
	}

	ifEnv := env.Clone()
	if _, err := v.eval(n.Body, ifEnv); err != nil {
		return err
	}
	if n.Alternate != nil {
		altEnv := env.Clone()
		if _, err := v.eval(n.Alternate, altEnv); err != nil {
			return err
		}
		ifEnv.Merge(altEnv)
	}
	env.Merge(ifEnv)
	return nil
}

func (v *evaluator) evalWhile(test, body ast.Node, env *Environment) error {
	if _, err := v.eval(test, env); err != nil {
		return err
	}
	loopEnv := env.Clone()
	return v.iterate(body, env, loopEnv, func(e *Environment) error {
		if _, err := v.eval(body, e); err != nil {
			return err
		}
		_, err := v.eval(test, e)
		return err
	})
}

func (v *evaluator) evalFor(n *ast.For, env *Environment) error {
	if err := v.evalStatements(n.Init, env); err != nil {
		return err
	}
	if err := v.evalStatements(n.Test, env); err != nil {
		return err
	}
	loopEnv := env.Clone()
	return v.iterate(n.Body, env, loopEnv, func(e *Environment) error {
		if _, err := v.eval(n.Body, e); err != nil {
			return err
		}
		if err := v.evalStatements(n.Increment, e); err != nil {
			return err
		}
		return v.evalStatements(n.Test, e)
	})
}

// iterate approximates a loop's fixed point. Each round runs step in loopEnv
// and merges the result into env, so taint only ever accumulates.
//
// With LoopChildCount the number of rounds is the body's statement count,
// a heuristic with no convergence guarantee. LoopFixedPoint instead stops
// once a round leaves loopEnv unchanged. Both are capped by
// MaxLoopIterations.
func (v *evaluator) iterate(body ast.Node, env, loopEnv *Environment, step func(*Environment) error) error {
	bound := v.opts.MaxLoopIterations
	fixedPoint := v.opts.LoopStrategy == LoopFixedPoint
	if !fixedPoint {
		if n := ast.StatementCount(body); n < bound {
			bound = n
		}
	}

	rounds, converged := 0, false
	for rounds < bound && !converged {
		if err := v.ctx.Err(); err != nil {
			return err
		}
		var before *Environment
		if fixedPoint {
			before = loopEnv.Clone()
		}
		if err := step(loopEnv); err != nil {
			return err
		}
		env.Merge(loopEnv)
		rounds++
		converged = fixedPoint && loopEnv.equal(before)
	}

	if fixedPoint && !converged && bound > 0 {
		v.logger.Debug("Loop did not converge within the iteration cap.", zap.Int("cap", bound))
	}
	v.logger.Debug("Loop evaluated.", zap.Int("rounds", rounds), zap.String("strategy", string(v.opts.LoopStrategy)))
	return nil
}

// evalTry runs the try body in a clone. Each catch starts from the try
// body's end state, since any statement in it may have thrown. The finally
// block, when present, runs on the joined state.
func (v *evaluator) evalTry(n *ast.Try, env *Environment) error {
	tryEnv := env.Clone()
	if _, err := v.eval(n.Body, tryEnv); err != nil {
		return err
	}
	for _, c := range n.Catches {
		catchEnv := tryEnv.Clone()
		if _, err := v.eval(c.Body, catchEnv); err != nil {
			return err
		}
		tryEnv.Merge(catchEnv)
	}
	env.Merge(tryEnv)

	_, err := v.eval(n.Finally, env)
	return err
}
