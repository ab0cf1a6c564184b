package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/mvp-joe/smurffctl/internal/results"
)

// CLIProgressReporter reports results collection with a progress bar.
type CLIProgressReporter struct {
	quiet  bool
	out    io.Writer
	bar    *progressbar.ProgressBar
	failed int
}

// NewCLIProgressReporter creates a new CLI progress reporter writing to out.
func NewCLIProgressReporter(out io.Writer, quiet bool) *CLIProgressReporter {
	return &CLIProgressReporter{quiet: quiet, out: out}
}

func (c *CLIProgressReporter) OnDiscoveryComplete(runDirs int) {
	if c.quiet {
		return
	}
	fmt.Fprintf(c.out, "Found %d run directories\n", runDirs)
	if runDirs == 0 {
		return
	}

	c.bar = progressbar.NewOptions(runDirs,
		progressbar.OptionSetWriter(c.out),
		progressbar.OptionSetDescription("Scoring runs"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("runs/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(c.out)
		}),
	)
}

func (c *CLIProgressReporter) OnRunProcessed(run *results.Run) {
	if run.Result.ExitCode != 0 || run.Result.AUC == results.Failed {
		c.failed++
	}
	c.advance()
}

func (c *CLIProgressReporter) OnRunSkipped(dir string, err error) {
	c.advance()
}

func (c *CLIProgressReporter) advance() {
	if c.quiet || c.bar == nil {
		return
	}
	c.bar.Add(1)
}

func (c *CLIProgressReporter) OnComplete(summary *results.Summary) {
	if c.quiet {
		return
	}
	if c.bar != nil {
		c.bar.Finish()
		c.bar = nil
	}

	fmt.Fprintln(c.out)
	fmt.Fprintf(c.out, "✓ Collected %d runs in %.1fs\n", len(summary.Runs), summary.Duration.Seconds())
	if c.failed > 0 {
		fmt.Fprintf(c.out, "  Failed or unscored: %d\n", c.failed)
	}
	if len(summary.Skipped) > 0 {
		fmt.Fprintf(c.out, "  Skipped: %d\n", len(summary.Skipped))
	}
	fmt.Fprintf(c.out, "  Summary: %s\n", summary.SummaryPath)
	fmt.Fprintf(c.out, "  History: %s (collection %s)\n", summary.DBPath, summary.CollectionID)
}
