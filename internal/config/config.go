// File: internal/config/config.go
package config

import (
	"fmt"
	"runtime"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/xkilldash9x/phpflow/internal/analysis/taint"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Analysis() AnalysisConfig
	Report() ReportConfig
	Database() DatabaseConfig

	// Setters for values that CLI flags override.
	SetAnalysisPatternsFile(string)
	SetAnalysisLoopStrategy(string)
	SetReportFormat(string)
	SetReportOutput(string)
	SetReportColor(string)
	SetDatabasePersist(bool)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	AnalysisCfg AnalysisConfig `mapstructure:"analysis" yaml:"analysis"`
	ReportCfg   ReportConfig   `mapstructure:"report" yaml:"report"`
	DatabaseCfg DatabaseConfig `mapstructure:"database" yaml:"database"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig     { return c.LoggerCfg }
func (c *Config) Analysis() AnalysisConfig { return c.AnalysisCfg }
func (c *Config) Report() ReportConfig     { return c.ReportCfg }
func (c *Config) Database() DatabaseConfig { return c.DatabaseCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetAnalysisPatternsFile(p string) { c.AnalysisCfg.PatternsFile = p }
func (c *Config) SetAnalysisLoopStrategy(s string) { c.AnalysisCfg.LoopStrategy = s }
func (c *Config) SetReportFormat(f string)         { c.ReportCfg.Format = f }
func (c *Config) SetReportOutput(o string)         { c.ReportCfg.Output = o }
func (c *Config) SetReportColor(m string)          { c.ReportCfg.Color = m }
func (c *Config) SetDatabasePersist(b bool)        { c.DatabaseCfg.Persist = b }

// LoggerConfig defines the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// AnalysisConfig tunes the taint analyzer.
type AnalysisConfig struct {
	PatternsFile      string        `mapstructure:"patterns_file" yaml:"patterns_file"`
	LoopStrategy      string        `mapstructure:"loop_strategy" yaml:"loop_strategy"`
	MaxLoopIterations int           `mapstructure:"max_loop_iterations" yaml:"max_loop_iterations"`
	Concurrency       int           `mapstructure:"concurrency" yaml:"concurrency"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Options converts the section into analyzer options.
func (a AnalysisConfig) Options() (taint.Options, error) {
	strategy, err := taint.ParseLoopStrategy(a.LoopStrategy)
	if err != nil {
		return taint.Options{}, err
	}
	return taint.Options{
		LoopStrategy:      strategy,
		MaxLoopIterations: a.MaxLoopIterations,
		Concurrency:       a.Concurrency,
	}, nil
}

// ReportConfig controls how verdicts are presented.
type ReportConfig struct {
	Format string `mapstructure:"format" yaml:"format"`
	// Output is a file path; empty or "-" means stdout.
	Output string `mapstructure:"output" yaml:"output"`
	// Color is one of auto, always or never.
	Color string `mapstructure:"color" yaml:"color"`
}

// DatabaseConfig holds the database connection details.
type DatabaseConfig struct {
	URL            string        `mapstructure:"url" yaml:"url"`
	Persist        bool          `mapstructure:"persist" yaml:"persist"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "phpflow")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Analysis --
	v.SetDefault("analysis.patterns_file", "patterns.txt")
	v.SetDefault("analysis.loop_strategy", string(taint.LoopChildCount))
	v.SetDefault("analysis.max_loop_iterations", taint.DefaultMaxLoopIterations)
	v.SetDefault("analysis.concurrency", runtime.NumCPU())
	v.SetDefault("analysis.timeout", "1m")

	// -- Report --
	v.SetDefault("report.format", "text")
	v.SetDefault("report.output", "")
	v.SetDefault("report.color", "auto")

	// -- Database --
	v.SetDefault("database.url", "")
	v.SetDefault("database.persist", false)
	v.SetDefault("database.connect_timeout", "10s")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// The connection string is commonly provided without the app prefix.
	_ = v.BindEnv("database.url", "PHPFLOW_DATABASE_URL", "DATABASE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	for _, p := range []*string{&cfg.AnalysisCfg.PatternsFile, &cfg.LoggerCfg.LogFile} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return nil, fmt.Errorf("error expanding path %q: %w", *p, err)
		}
		*p = expanded
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if _, err := c.AnalysisCfg.Options(); err != nil {
		return fmt.Errorf("analysis.loop_strategy: %w", err)
	}
	if c.AnalysisCfg.MaxLoopIterations <= 0 {
		return fmt.Errorf("analysis.max_loop_iterations must be a positive integer")
	}
	if c.AnalysisCfg.Concurrency <= 0 {
		return fmt.Errorf("analysis.concurrency must be a positive integer")
	}
	if c.AnalysisCfg.Timeout < 0 {
		return fmt.Errorf("analysis.timeout must not be negative")
	}
	if err := c.ReportCfg.Validate(); err != nil {
		return fmt.Errorf("report configuration invalid: %w", err)
	}
	if c.DatabaseCfg.Persist && c.DatabaseCfg.URL == "" {
		return fmt.Errorf("database.url is required when database.persist is enabled")
	}
	return nil
}

// Validate checks the report section.
func (r ReportConfig) Validate() error {
	switch r.Format {
	case "text", "json", "sarif":
	default:
		return fmt.Errorf("unknown format %q (want text, json or sarif)", r.Format)
	}
	switch r.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("unknown color mode %q (want auto, always or never)", r.Color)
	}
	return nil
}
