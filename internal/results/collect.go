// Package results scores finished run directories and summarizes them.
//
// A run directory is any directory holding an exit_code file. Each one is
// scored from its newest predictions file (AUC of ROC and RMSE) and gets a
// result file; a collection writes results.csv at the root and appends every
// run to the results.db history.
package results

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/mvp-joe/smurffctl/internal/logging"
)

// ProgressReporter receives collection progress.
type ProgressReporter interface {
	OnDiscoveryComplete(runDirs int)
	OnRunProcessed(run *Run)
	OnRunSkipped(dir string, err error)
	OnComplete(summary *Summary)
}

// NoOpProgressReporter ignores all progress.
type NoOpProgressReporter struct{}

func (NoOpProgressReporter) OnDiscoveryComplete(int) {}
func (NoOpProgressReporter) OnRunProcessed(*Run) {}
func (NoOpProgressReporter) OnRunSkipped(string, error) {}
func (NoOpProgressReporter) OnComplete(*Summary) {}

// Summary describes one collection.
type Summary struct {
	CollectionID string
	Runs         []*Run
	Skipped      []string
	SummaryPath  string
	DBPath       string
	Duration     time.Duration
}

// Collector scores every run directory under a root.
type Collector struct {
	scorer   *scorer
	progress ProgressReporter
	now      func() time.Time
}

// NewCollector creates a collector. A nil progress reporter is replaced by a no-op.
func NewCollector(opts Options, progress ProgressReporter) (*Collector, error) {
	s, err := newScorer(opts)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		progress = NoOpProgressReporter{}
	}
	return &Collector{scorer: s, progress: progress, now: time.Now}, nil
}

// Collect scores the run directories under root, writes the summary CSV and
// appends the runs to the history database. Directories whose args or
// exit_code cannot be read are skipped and listed in the summary.
func (c *Collector) Collect(ctx context.Context, root string) (*Summary, error) {
	start := c.now()
	dirs, err := FindRunDirs(root)
	if err != nil {
		return nil, err
	}
	c.progress.OnDiscoveryComplete(len(dirs))
	logging.Info().Str("root", root).Int("run_dirs", len(dirs)).Msg("Collecting results")

	summary := &Summary{
		CollectionID: uuid.New().String(),
		SummaryPath:  c.rootPath(root, c.scorer.opts.SummaryFile),
		DBPath:       c.rootPath(root, c.scorer.opts.DBFile),
	}

	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		run, err := c.scorer.process(dir)
		if err != nil {
			logging.Warn().Err(err).Str("run_dir", dir).Msg("Skipping run directory")
			summary.Skipped = append(summary.Skipped, dir)
			c.progress.OnRunSkipped(dir, err)
			continue
		}
		summary.Runs = append(summary.Runs, run)
		c.progress.OnRunProcessed(run)
	}

	if err := WriteSummary(summary.SummaryPath, summary.Runs); err != nil {
		return nil, err
	}

	store, err := OpenStore(summary.DBPath)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	if err := store.Append(summary.CollectionID, summary.Runs, c.now()); err != nil {
		return nil, err
	}

	summary.Duration = c.now().Sub(start)
	c.progress.OnComplete(summary)
	return summary, nil
}

func (c *Collector) rootPath(root, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(root, name)
}

var summaryHeader = []string{"dir", "args", "auc", "rmse", "real_time", "exit_code", "time"}

// WriteSummary writes one CSV row per run.
func WriteSummary(path string, runs []*Run) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create summary: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(summaryHeader); err != nil {
		return err
	}
	for _, run := range runs {
		r := run.Result
		rec := []string{
			run.Dir,
			string(run.Args),
			formatMetric(r.AUC),
			formatMetric(r.RMSE),
			formatMetric(r.RealTime),
			strconv.Itoa(r.ExitCode),
			r.Time.Format(time.RFC3339),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return f.Close()
}

func formatMetric(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
