// File: cmd/root.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/phpflow/internal/config"
	"github.com/xkilldash9x/phpflow/internal/observability"
)

// ErrVulnerable is returned when at least one pattern was violated. It maps
// to exit status 1 so callers can tell findings apart from failures.
var ErrVulnerable = errors.New("possible vulnerabilities found")

const (
	ExitClean      = 0
	ExitVulnerable = 1
	ExitError      = 2
)

type contextKey string

const configKey contextKey = "phpflow.config"

// getConfigFromContext returns the configuration installed by the root
// command's PersistentPreRunE.
func getConfigFromContext(ctx context.Context) (config.Interface, error) {
	if ctx == nil {
		return nil, fmt.Errorf("command context is nil")
	}
	cfg, ok := ctx.Value(configKey).(config.Interface)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("configuration not found in context")
	}
	return cfg, nil
}

// NewRootCommand builds the phpflow command tree.
func NewRootCommand() *cobra.Command {
	return newRootCmd(NewStoreProvider())
}

func newRootCmd(provider storeProvider) *cobra.Command {
	var cfgFile string
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:   "phpflow",
		Short: "phpflow finds tainted data flows in PHP programs.",
		Long: `phpflow walks a php-parser AST and reports, for each vulnerability
pattern, whether data from a source can reach a sensitive sink without
passing through an endorser.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v, cfgFile)
			if err != nil {
				// Still give the user a logger for the failure path.
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "phpflow"})
				return err
			}
			observability.InitializeLogger(cfg.Logger())
			observability.GetLogger().Debug("Starting phpflow", zap.String("version", Version))

			cmd.SetContext(context.WithValue(cmd.Context(), configKey, config.Interface(cfg)))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./phpflow.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	_ = v.BindPFlag("logger.level", rootCmd.PersistentFlags().Lookup("log-level"))
	rootCmd.SetVersionTemplate(`{{printf "%s version %s\n" .Name .Version}}`)

	rootCmd.AddCommand(
		newAnalyzeCmd(provider),
		newHistoryCmd(provider),
		newVersionCmd(),
	)
	return rootCmd
}

// loadConfig reads the config file and PHPFLOW_ environment variables on
// top of the defaults.
func loadConfig(v *viper.Viper, cfgFile string) (*config.Config, error) {
	config.SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("phpflow")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("PHPFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return config.NewConfigFromViper(v)
}

// Execute runs the command tree and returns the process exit status.
func Execute(ctx context.Context) int {
	rootCmd := NewRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	return exitCode(rootCmd.ErrOrStderr(), err)
}

func exitCode(w io.Writer, err error) int {
	switch {
	case err == nil:
		return ExitClean
	case errors.Is(err, ErrVulnerable):
		return ExitVulnerable
	default:
		fmt.Fprintln(w, "Error:", err)
		return ExitError
	}
}
