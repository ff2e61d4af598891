// File: internal/analysis/taint/analyzer.go
package taint

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/phpflow/internal/analysis/ast"
)

// LoopStrategy selects how loops approximate their fixed point.
type LoopStrategy string

const (
	// LoopChildCount iterates a loop body as many times as it has
	// immediate statements.
	LoopChildCount LoopStrategy = "child-count"
	// LoopFixedPoint iterates until the loop environment stops changing.
	LoopFixedPoint LoopStrategy = "fixed-point"
)

const DefaultMaxLoopIterations = 64

// Options tune an Analyzer. Zero values are replaced by defaults.
type Options struct {
	LoopStrategy LoopStrategy
	// MaxLoopIterations caps the rounds of either strategy.
	MaxLoopIterations int
	// Concurrency limits how many patterns are analyzed at once.
	Concurrency int
}

func DefaultOptions() Options {
	return Options{
		LoopStrategy:      LoopChildCount,
		MaxLoopIterations: DefaultMaxLoopIterations,
		Concurrency:       runtime.NumCPU(),
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.LoopStrategy == "" {
		o.LoopStrategy = d.LoopStrategy
	}
	if o.MaxLoopIterations <= 0 {
		o.MaxLoopIterations = d.MaxLoopIterations
	}
	if o.Concurrency <= 0 {
		o.Concurrency = d.Concurrency
	}
	return o
}

// ParseLoopStrategy validates a strategy name from configuration.
func ParseLoopStrategy(s string) (LoopStrategy, error) {
	switch LoopStrategy(s) {
	case LoopChildCount, LoopFixedPoint:
		return LoopStrategy(s), nil
	case "":
		return LoopChildCount, nil
	}
	return "", fmt.Errorf("unknown loop strategy %q (want %q or %q)", s, LoopChildCount, LoopFixedPoint)
}

// Analyzer runs the taint interpreter once per pattern over a program.
type Analyzer struct {
	logger *zap.Logger
	opts   Options
}

func NewAnalyzer(logger *zap.Logger, opts Options) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		logger: logger.Named("taint_analyzer"),
		opts:   opts.withDefaults(),
	}
}

// Analyze validates patterns and analyzes program against each of them.
// Configuration errors surface before any tree walk begins.
func (a *Analyzer) Analyze(ctx context.Context, program ast.Node, patterns []Pattern) (*Result, error) {
	catalogs, err := Compile(patterns)
	if err != nil {
		return nil, err
	}
	return a.AnalyzeCatalogs(ctx, program, catalogs)
}

// AnalyzeCatalogs runs one independent pass per catalog. Passes share only
// the read-only tree, so they run concurrently up to Options.Concurrency.
// A sink violation only settles its own pattern; any other error aborts
// the run.
func (a *Analyzer) AnalyzeCatalogs(ctx context.Context, program ast.Node, catalogs []*Catalog) (*Result, error) {
	if len(catalogs) == 0 {
		return nil, ErrNoPatterns
	}
	runID := uuid.New()
	logger := a.logger.With(zap.String("run_id", runID.String()))
	logger.Debug("Starting taint analysis.", zap.Int("patterns", len(catalogs)))

	verdicts := make([]Verdict, len(catalogs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Concurrency)

	for i, c := range catalogs {
		g.Go(func() error {
			v, err := a.runPattern(gctx, logger, program, c)
			if err != nil {
				return fmt.Errorf("pattern %q: %w", c.Name(), err)
			}
			verdicts[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Result{
		RunID:     runID,
		CreatedAt: time.Now().UTC(),
		Verdicts:  verdicts,
	}, nil
}

func (a *Analyzer) runPattern(ctx context.Context, logger *zap.Logger, program ast.Node, c *Catalog) (Verdict, error) {
	if err := ctx.Err(); err != nil {
		return Verdict{}, err
	}
	logger = logger.With(zap.String("pattern", c.Name()))

	env := NewEnvironment(c)
	_, err := newEvaluator(ctx, logger, a.opts).eval(program, env)

	var violation *SinkViolation
	switch {
	case errors.As(err, &violation):
		logger.Debug("Pattern violated.", zap.String("sink", violation.Sink))
		return Violated(c.Name(), violation.Sink), nil
	case err != nil:
		return Verdict{}, err
	}

	endorsers := env.ActiveEndorsers()
	logger.Debug("Pattern clear.", zap.Strings("active_endorsers", endorsers))
	return Clear(c.Name(), endorsers), nil
}
