package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/smurffctl/internal/config"
	"github.com/mvp-joe/smurffctl/internal/logging"
	"github.com/mvp-joe/smurffctl/internal/results"
)

var (
	collectQuiet bool
	historyRun   string
)

// collectCmd scores finished runs.
var collectCmd = &cobra.Command{
	Use:   "collect [root]",
	Short: "Score run directories and record the results",
	Long: `Collect walks a directory tree for finished runs (directories holding an
exit_code file), scores the newest predictions file of each run and writes:

  <run>/result       JSON with auc, rmse, real_time, exit_code and time
  <root>/results.csv one row per run
  <root>/results.db  SQLite history, appended to on every collection

The root defaults to runs.base_dir from the configuration.`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadToolConfig(cmd)
		if err != nil {
			return err
		}
		root := cfg.Runs.BaseDir
		if len(args) == 1 {
			root = args[0]
		}
		progress := NewCLIProgressReporter(cmd.OutOrStdout(), collectQuiet)
		_, err = runCollect(cmd.Context(), cfg, root, progress)
		return err
	},
}

// historyCmd prints the recorded results history.
var historyCmd = &cobra.Command{
	Use:   "history [root]",
	Short: "Show results recorded by previous collections",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadToolConfig(cmd)
		if err != nil {
			return err
		}
		root := cfg.Runs.BaseDir
		if len(args) == 1 {
			root = args[0]
		}
		return runHistory(cfg, root, historyRun, cmd.OutOrStdout())
	},
}

func init() {
	collectCmd.Flags().BoolVarP(&collectQuiet, "quiet", "q", false, "suppress progress output")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "only show this run directory")

	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(historyCmd)
}

func loadToolConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	logCfg := cfg.Logging.LoggerConfig()
	logCfg.Output = cmd.ErrOrStderr()
	logging.Init(logCfg)
	return cfg, nil
}

func runCollect(ctx context.Context, cfg *config.Config, root string, progress results.ProgressReporter) (*results.Summary, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	collector, err := results.NewCollector(cfg.Results.ScoringOptions(), progress)
	if err != nil {
		return nil, err
	}
	summary, err := collector.Collect(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("failed to collect results under %s: %w", root, err)
	}
	return summary, nil
}

func runHistory(cfg *config.Config, root, runDir string, out io.Writer) error {
	dbPath := cfg.Results.DBFile
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(root, dbPath)
	}

	store, err := results.OpenStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.History(runDir)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(out, "No results recorded")
		return nil
	}

	fmt.Fprintf(out, "%-20s %-40s %-8s %-8s %-10s %s\n", "COLLECTED", "RUN", "AUC", "RMSE", "REAL_TIME", "EXIT")
	for _, r := range records {
		fmt.Fprintf(out, "%-20s %-40s %-8.4f %-8.4f %-10.3f %d\n",
			r.CollectedAt.Format("2006-01-02 15:04:05"),
			r.Run.Dir,
			r.Run.Result.AUC,
			r.Run.Result.RMSE,
			r.Run.Result.RealTime,
			r.Run.Result.ExitCode)
	}
	return nil
}
