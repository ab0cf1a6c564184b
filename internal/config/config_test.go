package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Config System:
// - Default() returns valid configuration with all expected defaults
// - Load() uses defaults when no config file exists
// - Load() loads from .smurff/config.yml and .smurff/config.yaml
// - Load() merges a partial config file with defaults
// - Load() prefers the project config over the user config
// - Environment variables override config file values and defaults
// - Load() returns error for malformed YAML and invalid values
// - Validate() rejects each invalid field with its sentinel error
// - Validate() reports multiple errors at once
// - ScoringOptions() and LoggerConfig() carry every field across

func writeConfig(t *testing.T, root, name, content string) {
	t.Helper()
	dir := filepath.Join(root, DirName)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestDefault_ReturnsValidConfiguration(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "smurff-engine", cfg.Engine.Binary)
	assert.Empty(t, cfg.Engine.Args)
	assert.Equal(t, "runs", cfg.Runs.BaseDir)
	assert.Equal(t, 5.0, cfg.Results.Threshold)
	assert.Equal(t, "*predictions*csv", cfg.Results.PredictionsPattern)
	assert.Equal(t, "y", cfg.Results.ActualColumn)
	assert.Equal(t, "pred_avg", cfg.Results.PredictionColumn)
	assert.Equal(t, "result", cfg.Results.ResultFile)
	assert.Equal(t, "results.csv", cfg.Results.SummaryFile)
	assert.Equal(t, "results.db", cfg.Results.DBFile)
	assert.Equal(t, 64, cfg.Matrix.CacheSize)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)

	assert.NoError(t, Validate(cfg))
}

func TestLoad_UsesDefaultsWhenNoConfigFile(t *testing.T) {
	cfg, err := newLoaderWithHome(t.TempDir(), t.TempDir()).Load()
	require.NoError(t, err)

	expected := Default()
	assert.Equal(t, expected.Engine.Binary, cfg.Engine.Binary)
	assert.Empty(t, cfg.Engine.Args)
	assert.Equal(t, expected.Runs, cfg.Runs)
	assert.Equal(t, expected.Results, cfg.Results)
	assert.Equal(t, expected.Matrix, cfg.Matrix)
	assert.Equal(t, expected.Logging, cfg.Logging)
}

func TestLoad_LoadsFromConfigYml(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "config.yml", `
engine:
  binary: /opt/smurff/bin/smurff
  args: ["--bist"]

runs:
  base_dir: /data/runs

results:
  threshold: 0.5
  predictions_pattern: "*pred*.csv"
  actual_column: rating
  prediction_column: pred_1sample
  result_file: result.json
  summary_file: summary.csv
  db_file: history.db

matrix:
  cache_size: 8

logging:
  level: debug
  format: json
`)

	cfg, err := newLoaderWithHome(root, t.TempDir()).Load()
	require.NoError(t, err)

	assert.Equal(t, "/opt/smurff/bin/smurff", cfg.Engine.Binary)
	assert.Equal(t, []string{"--bist"}, cfg.Engine.Args)
	assert.Equal(t, "/data/runs", cfg.Runs.BaseDir)
	assert.Equal(t, 0.5, cfg.Results.Threshold)
	assert.Equal(t, "*pred*.csv", cfg.Results.PredictionsPattern)
	assert.Equal(t, "rating", cfg.Results.ActualColumn)
	assert.Equal(t, "pred_1sample", cfg.Results.PredictionColumn)
	assert.Equal(t, "result.json", cfg.Results.ResultFile)
	assert.Equal(t, "summary.csv", cfg.Results.SummaryFile)
	assert.Equal(t, "history.db", cfg.Results.DBFile)
	assert.Equal(t, 8, cfg.Matrix.CacheSize)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_LoadsFromConfigYaml(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "config.yaml", "engine:\n  binary: engine-from-yaml\n")

	cfg, err := newLoaderWithHome(root, t.TempDir()).Load()
	require.NoError(t, err)
	assert.Equal(t, "engine-from-yaml", cfg.Engine.Binary)
}

func TestLoad_MergesConfigWithDefaults(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "config.yml", "results:\n  threshold: 3.5\n")

	cfg, err := newLoaderWithHome(root, t.TempDir()).Load()
	require.NoError(t, err)

	assert.Equal(t, 3.5, cfg.Results.Threshold)
	assert.Equal(t, Default().Results.PredictionsPattern, cfg.Results.PredictionsPattern)
	assert.Equal(t, Default().Engine.Binary, cfg.Engine.Binary)
}

func TestLoad_ProjectConfigWinsOverUserConfig(t *testing.T) {
	root := t.TempDir()
	home := t.TempDir()
	writeConfig(t, home, "config.yml", "engine:\n  binary: from-home\n")

	cfg, err := newLoaderWithHome(root, home).Load()
	require.NoError(t, err)
	assert.Equal(t, "from-home", cfg.Engine.Binary, "user config applies without a project config")

	writeConfig(t, root, "config.yml", "engine:\n  binary: from-project\n")
	cfg, err = newLoaderWithHome(root, home).Load()
	require.NoError(t, err)
	assert.Equal(t, "from-project", cfg.Engine.Binary)
}

func TestLoad_EnvironmentVariablesOverrideConfigFile(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "config.yml", "engine:\n  binary: from-file\nresults:\n  threshold: 1.0\n")

	t.Setenv("SMURFF_ENGINE_BINARY", "from-env")
	t.Setenv("SMURFF_RESULTS_THRESHOLD", "2.5")

	cfg, err := newLoaderWithHome(root, t.TempDir()).Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Engine.Binary)
	assert.Equal(t, 2.5, cfg.Results.Threshold)
}

func TestLoad_EnvironmentVariablesOverrideDefaults(t *testing.T) {
	t.Setenv("SMURFF_MATRIX_CACHE_SIZE", "0")
	t.Setenv("SMURFF_LOGGING_LEVEL", "warn")

	cfg, err := newLoaderWithHome(t.TempDir(), t.TempDir()).Load()
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Matrix.CacheSize)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_ReturnsErrorForMalformedYaml(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "config.yml", "engine:\n  binary: [unclosed\n")

	cfg, err := newLoaderWithHome(root, t.TempDir()).Load()
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_ReturnsErrorForInvalidValues(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "config.yml", "matrix:\n  cache_size: -1\nlogging:\n  format: xml\n")

	cfg, err := newLoaderWithHome(root, t.TempDir()).Load()
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.ErrorIs(t, err, ErrInvalidCacheSize)
	assert.ErrorIs(t, err, ErrInvalidLogFormat)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestValidate_RejectsInvalidFields(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		want   error
	}{
		{"empty engine", func(c *Config) { c.Engine.Binary = " " }, ErrEmptyEngine},
		{"empty runs dir", func(c *Config) { c.Runs.BaseDir = "" }, ErrEmptyRunsDir},
		{"empty pattern", func(c *Config) { c.Results.PredictionsPattern = "" }, ErrInvalidPattern},
		{"bad pattern", func(c *Config) { c.Results.PredictionsPattern = "[unclosed" }, ErrInvalidPattern},
		{"empty actual column", func(c *Config) { c.Results.ActualColumn = "" }, ErrEmptyColumn},
		{"empty prediction column", func(c *Config) { c.Results.PredictionColumn = "" }, ErrEmptyColumn},
		{"empty db file", func(c *Config) { c.Results.DBFile = "" }, ErrEmptyFileName},
		{"negative cache", func(c *Config) { c.Matrix.CacheSize = -5 }, ErrInvalidCacheSize},
		{"unknown level", func(c *Config) { c.Logging.Level = "loud" }, ErrInvalidLogLevel},
		{"unknown format", func(c *Config) { c.Logging.Format = "xml" }, ErrInvalidLogFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidate_ReturnsMultipleErrorsForMultipleInvalidFields(t *testing.T) {
	cfg := Default()
	cfg.Engine.Binary = ""
	cfg.Results.ActualColumn = ""
	cfg.Results.SummaryFile = ""
	cfg.Logging.Format = "xml"

	err := Validate(cfg)
	require.Error(t, err)

	errMsg := err.Error()
	assert.Contains(t, errMsg, "validation failed")
	assert.Contains(t, errMsg, "engine.binary")
	assert.Contains(t, errMsg, "results.actual_column")
	assert.Contains(t, errMsg, "results.summary_file")
	assert.Contains(t, errMsg, "xml")
	assert.ErrorIs(t, err, ErrEmptyFileName)
}

func TestConversions(t *testing.T) {
	cfg := Default()
	cfg.Results.Threshold = 0.5
	cfg.Results.DBFile = "h.db"
	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "json"

	opts := cfg.Results.ScoringOptions()
	assert.Equal(t, 0.5, opts.Threshold)
	assert.Equal(t, "h.db", opts.DBFile)
	assert.Equal(t, cfg.Results.PredictionsPattern, opts.PredictionsPattern)

	lc := cfg.Logging.LoggerConfig()
	assert.Equal(t, "debug", lc.Level)
	assert.Equal(t, "json", lc.Format)
	assert.NotNil(t, lc.Output)
}
