package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DirName is the configuration directory under the project and home directories.
const DirName = ".smurff"

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir string
	homeDir string
}

// NewLoader creates a loader that reads <rootDir>/.smurff/config.yml and
// falls back to ~/.smurff/config.yml.
func NewLoader(rootDir string) Loader {
	home, _ := os.UserHomeDir()
	return &loader{rootDir: rootDir, homeDir: home}
}

// newLoaderWithHome is NewLoader with an explicit home directory.
func newLoaderWithHome(rootDir, homeDir string) Loader {
	return &loader{rootDir: rootDir, homeDir: homeDir}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (SMURFF_*)
// 2. Config file (.smurff/config.yml or .smurff/config.yaml, project first)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(l.rootDir, DirName))
	if l.homeDir != "" {
		v.AddConfigPath(filepath.Join(l.homeDir, DirName))
	}

	// SMURFF_RESULTS_THRESHOLD overrides results.threshold
	v.SetEnvPrefix("SMURFF")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Env values reach Unmarshal only for keys with a default.
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("engine.binary", defaults.Engine.Binary)
	v.SetDefault("engine.args", defaults.Engine.Args)

	v.SetDefault("runs.base_dir", defaults.Runs.BaseDir)

	v.SetDefault("results.threshold", defaults.Results.Threshold)
	v.SetDefault("results.predictions_pattern", defaults.Results.PredictionsPattern)
	v.SetDefault("results.actual_column", defaults.Results.ActualColumn)
	v.SetDefault("results.prediction_column", defaults.Results.PredictionColumn)
	v.SetDefault("results.result_file", defaults.Results.ResultFile)
	v.SetDefault("results.summary_file", defaults.Results.SummaryFile)
	v.SetDefault("results.db_file", defaults.Results.DBFile)

	v.SetDefault("matrix.cache_size", defaults.Matrix.CacheSize)

	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)
}

// LoadConfig is a convenience function that creates a loader and loads config.
// It uses the current working directory as the root.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}
