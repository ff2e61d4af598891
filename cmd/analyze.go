// File: cmd/analyze.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/xkilldash9x/phpflow/internal/analysis/ast"
	"github.com/xkilldash9x/phpflow/internal/analysis/taint"
	"github.com/xkilldash9x/phpflow/internal/config"
	"github.com/xkilldash9x/phpflow/internal/observability"
	"github.com/xkilldash9x/phpflow/internal/patterns"
	"github.com/xkilldash9x/phpflow/internal/reporting"
)

func newAnalyzeCmd(provider storeProvider) *cobra.Command {
	var (
		patternsFile string
		loopStrategy string
		format       string
		output       string
		colorMode    string
		persist      bool
	)

	analyzeCmd := &cobra.Command{
		Use:   "analyze <ast.json>",
		Short: "Check a php-parser AST against the vulnerability patterns",
		Long: `Reads a program AST in php-parser JSON form ("-" for stdin), runs one
taint pass per pattern and reports the verdicts. Exits with status 1 when a
pattern is violated and 2 when the analysis could not run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}

			// Flags win over the config file, but only when given.
			flags := cmd.Flags()
			if flags.Changed("patterns") {
				cfg.SetAnalysisPatternsFile(patternsFile)
			}
			if flags.Changed("loop-strategy") {
				cfg.SetAnalysisLoopStrategy(loopStrategy)
			}
			if flags.Changed("format") {
				cfg.SetReportFormat(format)
			}
			if flags.Changed("output") {
				cfg.SetReportOutput(output)
			}
			if flags.Changed("persist") {
				cfg.SetDatabasePersist(persist)
			}
			if flags.Changed("color") {
				cfg.SetReportColor(colorMode)
			}

			return runAnalyze(ctx, observability.GetLogger(), cfg, args[0], cmd.InOrStdin(), provider)
		},
	}

	analyzeCmd.Flags().StringVarP(&patternsFile, "patterns", "p", "", "pattern file (.txt, .yaml or .json)")
	analyzeCmd.Flags().StringVar(&loopStrategy, "loop-strategy", "", "loop evaluation: child-count or fixed-point")
	analyzeCmd.Flags().StringVarP(&format, "format", "f", "", "report format: text, json or sarif")
	analyzeCmd.Flags().StringVarP(&output, "output", "o", "", "report file (default stdout)")
	analyzeCmd.Flags().StringVar(&colorMode, "color", "", "colorize text output: auto, always or never")
	analyzeCmd.Flags().BoolVar(&persist, "persist", false, "store the run in the configured database")

	return analyzeCmd
}

// runAnalyze contains the testable core of the analyze command.
func runAnalyze(
	ctx context.Context,
	logger *zap.Logger,
	cfg config.Interface,
	astPath string,
	stdin io.Reader,
	provider storeProvider,
) error {
	analysisCfg := cfg.Analysis()
	if analysisCfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, analysisCfg.Timeout)
		defer cancel()
	}

	// Flags may have changed values after validation.
	if err := cfg.Report().Validate(); err != nil {
		return err
	}
	opts, err := analysisCfg.Options()
	if err != nil {
		return err
	}

	program, err := readProgram(astPath, stdin)
	if err != nil {
		return err
	}

	patternsFile := analysisCfg.PatternsFile
	pats, err := patterns.LoadFile(patternsFile)
	if err != nil {
		return err
	}

	logger.Info("Starting analysis",
		zap.String("ast", astPath),
		zap.String("patterns_file", patternsFile),
		zap.Int("patterns", len(pats)),
		zap.String("loop_strategy", string(opts.LoopStrategy)),
	)

	result, err := taint.NewAnalyzer(logger, opts).Analyze(ctx, program, pats)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if cfg.Database().Persist {
		if err := persistResult(ctx, logger, cfg, provider, result, astPath); err != nil {
			return err
		}
	}

	if err := writeReport(logger, cfg.Report(), result, astPath); err != nil {
		return err
	}

	logger.Info("Analysis complete",
		zap.Stringer("run_id", result.RunID),
		zap.Bool("vulnerable", result.Vulnerable()),
	)
	if result.Vulnerable() {
		return ErrVulnerable
	}
	return nil
}

func readProgram(path string, stdin io.Reader) (ast.Node, error) {
	if path == "-" {
		program, err := ast.DecodeReader(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to decode AST from stdin: %w", err)
		}
		return program, nil
	}

	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("error expanding path %q: %w", path, err)
	}
	f, err := os.Open(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to open AST file: %w", err)
	}
	defer f.Close()

	program, err := ast.DecodeReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode AST %s: %w", path, err)
	}
	return program, nil
}

func persistResult(
	ctx context.Context,
	logger *zap.Logger,
	cfg config.Interface,
	provider storeProvider,
	result *taint.Result,
	source string,
) error {
	s, cleanup, err := provider.Create(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	if cleanup != nil {
		defer cleanup()
	}
	if err := s.SaveResult(ctx, result, source); err != nil {
		return fmt.Errorf("failed to persist run: %w", err)
	}
	logger.Info("Run persisted", zap.Stringer("run_id", result.RunID))
	return nil
}

// writeReport renders a result in the configured format. The error from
// Close matters because SARIF is only written there.
func writeReport(logger *zap.Logger, reportCfg config.ReportConfig, result *taint.Result, source string) (err error) {
	reporter, err := reporting.New(reportCfg.Format, reportCfg.Output, logger, reporting.Options{
		ToolVersion: Version,
		Source:      source,
		Color:       colorEnabled(reportCfg.Color, reportCfg.Output, stdoutIsTerminal),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize reporter: %w", err)
	}
	defer func() {
		if closeErr := reporter.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to finalize report: %w", closeErr)
		}
	}()

	if err := reporter.Write(result); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// colorEnabled resolves the color mode. auto colors only a terminal stdout
// and honors NO_COLOR.
func colorEnabled(mode, output string, isTerminal func() bool) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if output != "" && output != "-" && output != "stdout" {
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return isTerminal()
}

func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
