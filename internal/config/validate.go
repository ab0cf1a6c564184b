package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/gobwas/glob"
	"github.com/rs/zerolog"
)

var (
	// ErrEmptyEngine indicates a missing engine binary
	ErrEmptyEngine = errors.New("empty engine binary")

	// ErrEmptyRunsDir indicates a missing base directory for runs
	ErrEmptyRunsDir = errors.New("empty runs directory")

	// ErrInvalidThreshold indicates a non-finite classification threshold
	ErrInvalidThreshold = errors.New("invalid threshold")

	// ErrInvalidPattern indicates a predictions pattern that does not compile
	ErrInvalidPattern = errors.New("invalid predictions pattern")

	// ErrEmptyColumn indicates a missing predictions column name
	ErrEmptyColumn = errors.New("empty column name")

	// ErrEmptyFileName indicates a missing results file name
	ErrEmptyFileName = errors.New("empty file name")

	// ErrInvalidCacheSize indicates a negative matrix cache size
	ErrInvalidCacheSize = errors.New("invalid cache size")

	// ErrInvalidLogLevel indicates an unknown log level
	ErrInvalidLogLevel = errors.New("invalid log level")

	// ErrInvalidLogFormat indicates an unknown log format
	ErrInvalidLogFormat = errors.New("invalid log format")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if strings.TrimSpace(cfg.Engine.Binary) == "" {
		errs = append(errs, fmt.Errorf("%w: engine.binary is required", ErrEmptyEngine))
	}

	if strings.TrimSpace(cfg.Runs.BaseDir) == "" {
		errs = append(errs, fmt.Errorf("%w: runs.base_dir is required", ErrEmptyRunsDir))
	}

	if err := validateResults(&cfg.Results); err != nil {
		errs = append(errs, err)
	}

	if cfg.Matrix.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("%w: matrix.cache_size cannot be negative, got %d", ErrInvalidCacheSize, cfg.Matrix.CacheSize))
	}

	if err := validateLogging(&cfg.Logging); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateResults(cfg *ResultsConfig) error {
	var errs []error

	if math.IsNaN(cfg.Threshold) || math.IsInf(cfg.Threshold, 0) {
		errs = append(errs, fmt.Errorf("%w: results.threshold must be finite, got %v", ErrInvalidThreshold, cfg.Threshold))
	}

	if strings.TrimSpace(cfg.PredictionsPattern) == "" {
		errs = append(errs, fmt.Errorf("%w: results.predictions_pattern is required", ErrInvalidPattern))
	} else if _, err := glob.Compile(cfg.PredictionsPattern); err != nil {
		errs = append(errs, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, cfg.PredictionsPattern, err))
	}

	columns := []struct{ key, value string }{
		{"results.actual_column", cfg.ActualColumn},
		{"results.prediction_column", cfg.PredictionColumn},
	}
	for _, c := range columns {
		if strings.TrimSpace(c.value) == "" {
			errs = append(errs, fmt.Errorf("%w: %s is required", ErrEmptyColumn, c.key))
		}
	}

	files := []struct{ key, value string }{
		{"results.result_file", cfg.ResultFile},
		{"results.summary_file", cfg.SummaryFile},
		{"results.db_file", cfg.DBFile},
	}
	for _, f := range files {
		if strings.TrimSpace(f.value) == "" {
			errs = append(errs, fmt.Errorf("%w: %s is required", ErrEmptyFileName, f.key))
		}
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateLogging(cfg *LoggingConfig) error {
	var errs []error

	if _, err := zerolog.ParseLevel(strings.ToLower(cfg.Level)); err != nil {
		errs = append(errs, fmt.Errorf("%w: '%s'", ErrInvalidLogLevel, cfg.Level))
	}

	format := strings.ToLower(cfg.Format)
	if format != "console" && format != "json" {
		errs = append(errs, fmt.Errorf("%w: must be 'console' or 'json', got '%s'", ErrInvalidLogFormat, cfg.Format))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

// joinErrors combines multiple errors into a single error with clear formatting.
// Every error stays reachable through errors.Is.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}

	return &validationError{errs: errs, msg: "validation failed:\n  - " + strings.Join(msgs, "\n  - ")}
}

type validationError struct {
	errs []error
	msg  string
}

func (e *validationError) Error() string   { return e.msg }
func (e *validationError) Unwrap() []error { return e.errs }
