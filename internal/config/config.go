// Package config loads tool-level settings for smurff: where the engine
// lives, where runs go, and how results are scored.
//
// These are distinct from session settings files (--ini), which describe
// one training session and are read by package assemble.
//
// Configuration hierarchy (highest to lowest priority):
//  1. Environment variables (SMURFF_*, nested keys joined by underscores)
//  2. Project config (.smurff/config.yml in the working directory)
//  3. User config (~/.smurff/config.yml), used only when no project config exists
//  4. Built-in defaults
package config

import (
	"github.com/mvp-joe/smurffctl/internal/logging"
	"github.com/mvp-joe/smurffctl/internal/matrix"
	"github.com/mvp-joe/smurffctl/internal/results"
)

// Config represents the complete smurff tool configuration.
type Config struct {
	Engine  EngineConfig  `yaml:"engine" mapstructure:"engine"`
	Runs    RunsConfig    `yaml:"runs" mapstructure:"runs"`
	Results ResultsConfig `yaml:"results" mapstructure:"results"`
	Matrix  MatrixConfig  `yaml:"matrix" mapstructure:"matrix"`
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
}

// EngineConfig locates the training engine.
type EngineConfig struct {
	Binary string   `yaml:"binary" mapstructure:"binary"` // engine executable, name or path
	Args   []string `yaml:"args" mapstructure:"args"`     // extra arguments placed before --ini
}

// RunsConfig controls where run directories are created.
type RunsConfig struct {
	BaseDir string `yaml:"base_dir" mapstructure:"base_dir"` // parent of generated run directories
}

// ResultsConfig controls results collection.
type ResultsConfig struct {
	Threshold          float64 `yaml:"threshold" mapstructure:"threshold"`                     // label = actual > threshold
	PredictionsPattern string  `yaml:"predictions_pattern" mapstructure:"predictions_pattern"` // glob for predictions files
	ActualColumn       string  `yaml:"actual_column" mapstructure:"actual_column"`
	PredictionColumn   string  `yaml:"prediction_column" mapstructure:"prediction_column"`
	ResultFile         string  `yaml:"result_file" mapstructure:"result_file"`   // per-run result file name
	SummaryFile        string  `yaml:"summary_file" mapstructure:"summary_file"` // CSV written at the collection root
	DBFile             string  `yaml:"db_file" mapstructure:"db_file"`           // SQLite history at the collection root
}

// MatrixConfig controls matrix loading.
type MatrixConfig struct {
	CacheSize int `yaml:"cache_size" mapstructure:"cache_size"` // 0 disables the cache
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // "console" or "json"
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	scoring := results.DefaultOptions()
	logCfg := logging.DefaultConfig()
	return &Config{
		Engine: EngineConfig{
			Binary: "smurff-engine",
			Args:   []string{},
		},
		Runs: RunsConfig{
			BaseDir: "runs",
		},
		Results: ResultsConfig{
			Threshold:          scoring.Threshold,
			PredictionsPattern: scoring.PredictionsPattern,
			ActualColumn:       scoring.ActualColumn,
			PredictionColumn:   scoring.PredictionColumn,
			ResultFile:         scoring.ResultFile,
			SummaryFile:        scoring.SummaryFile,
			DBFile:             scoring.DBFile,
		},
		Matrix: MatrixConfig{
			CacheSize: matrix.DefaultCacheSize,
		},
		Logging: LoggingConfig{
			Level:  logCfg.Level,
			Format: logCfg.Format,
		},
	}
}

// ScoringOptions converts the results section for package results.
func (c *ResultsConfig) ScoringOptions() results.Options {
	return results.Options{
		Threshold:          c.Threshold,
		PredictionsPattern: c.PredictionsPattern,
		ActualColumn:       c.ActualColumn,
		PredictionColumn:   c.PredictionColumn,
		ResultFile:         c.ResultFile,
		SummaryFile:        c.SummaryFile,
		DBFile:             c.DBFile,
	}
}

// LoggerConfig converts the logging section for package logging.
func (c *LoggingConfig) LoggerConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.Level
	cfg.Format = c.Format
	return cfg
}
