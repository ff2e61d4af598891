// File: cmd/history.go
package cmd

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/phpflow/internal/config"
	"github.com/xkilldash9x/phpflow/internal/observability"
)

func newHistoryCmd(provider storeProvider) *cobra.Command {
	var (
		runID  string
		format string
		output string
	)

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Report the verdicts of a stored analysis run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("format") {
				cfg.SetReportFormat(format)
			}
			if cmd.Flags().Changed("output") {
				cfg.SetReportOutput(output)
			}
			return runHistory(ctx, observability.GetLogger(), cfg, runID, provider)
		},
	}

	historyCmd.Flags().StringVar(&runID, "run-id", "", "ID of the stored run (required)")
	_ = historyCmd.MarkFlagRequired("run-id")
	historyCmd.Flags().StringVarP(&format, "format", "f", "", "report format: text, json or sarif")
	historyCmd.Flags().StringVarP(&output, "output", "o", "", "report file (default stdout)")

	return historyCmd
}

// runHistory loads a run and reports it. A stored violation is not an
// error for this command.
func runHistory(ctx context.Context, logger *zap.Logger, cfg config.Interface, runID string, provider storeProvider) error {
	id, err := uuid.Parse(runID)
	if err != nil {
		return fmt.Errorf("invalid run ID %q: %w", runID, err)
	}
	if err := cfg.Report().Validate(); err != nil {
		return err
	}

	s, cleanup, err := provider.Create(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	if cleanup != nil {
		defer cleanup()
	}

	result, err := s.GetResult(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load run: %w", err)
	}
	logger.Debug("Loaded stored run", zap.Stringer("run_id", id), zap.Int("verdicts", len(result.Verdicts)))

	return writeReport(logger, cfg.Report(), result, "")
}
