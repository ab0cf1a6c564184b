package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/smurffctl/internal/config"
	"github.com/mvp-joe/smurffctl/internal/runner"
)

var (
	// Version information - typically set via ldflags at build time
	Version   = "dev"
	GitCommit = "none"
	BuildDate = "unknown"
)

// versionCmd prints build information and the engine this tool would start.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the smurff version and the configured engine",
	Long: `Print the smurff build information followed by the training engine
selected by engine.binary in the configuration, and where it resolves on PATH.

An engine that cannot be found is reported, not treated as an error, so the
command also works on machines that only collect results.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		printVersion(cmd.OutOrStdout())
		printEngine(cmd.OutOrStdout(), runner.NewExecEngine(cfg.Engine.Binary, cfg.Engine.Args...))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "smurff %s\n", Version)
	fmt.Fprintf(w, "Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "Build date: %s\n", BuildDate)
}

func printEngine(w io.Writer, e *runner.ExecEngine) {
	path, err := e.Locate()
	if err != nil {
		fmt.Fprintf(w, "Engine:     %s (not found in PATH)\n", e.Binary)
		return
	}
	fmt.Fprintf(w, "Engine:     %s\n", path)
}
