package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mvp-joe/smurffctl/internal/assemble"
	"github.com/mvp-joe/smurffctl/internal/config"
	"github.com/mvp-joe/smurffctl/internal/logging"
	"github.com/mvp-joe/smurffctl/internal/matrix"
	"github.com/mvp-joe/smurffctl/internal/override"
	"github.com/mvp-joe/smurffctl/internal/runner"
	"github.com/mvp-joe/smurffctl/internal/session"
)

const (
	flagVersion = "version"
	flagIni     = "ini"
	flagRunDir  = "run-dir"
	flagDryRun  = "dry-run"
)

// flags holds the root command flags. Environment variables SMURFF_<FLAG>
// (dashes as underscores) count as given on the command line.
var flags = viper.New()

// rootCmd trains one session: settings file, then command-line overrides,
// then the engine.
var rootCmd = &cobra.Command{
	Use:   "smurff",
	Short: "Train a SMURFF matrix factorization session",
	Long: `smurff resolves a training session from a settings file (--ini) and
command-line overrides, writes it to a run directory and starts the engine.

Command-line values always win over the settings file. Without --ini the
session starts from built-in defaults and needs at least --train and --prior.

Examples:
  # Train from a settings file
  smurff --ini movielens.ini

  # Same settings, more latent dimensions and a fixed seed
  smurff --ini movielens.ini --num-latent 32 --seed 1234

  # Everything on the command line
  smurff --train train.mtx --test test.mtx --prior macau,normal \
         --row-features feat.mtx --burnin 200 --nsamples 800

  # Write the run directory without starting the engine
  smurff --ini movielens.ini --dry-run --run-dir runs/check
`,
	SilenceUsage: true,
	RunE:         runRoot,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		cancel()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	fs := rootCmd.Flags()
	fs.Bool(flagVersion, false, "print version info and exit")
	fs.String(flagIni, "", "read session settings from this .ini file")
	fs.String(flagRunDir, "", "run directory (default <runs.base_dir>/<timestamp>-<id>)")
	fs.Bool(flagDryRun, false, "write the run directory but do not start the engine")
	override.RegisterFlags(fs)

	flags.SetEnvPrefix("SMURFF")
	flags.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	flags.AutomaticEnv()
	if err := flags.BindPFlags(fs); err != nil {
		panic(err)
	}
}

// trainOptions is everything runTrain needs from the command line.
type trainOptions struct {
	iniPath   string
	runDir    string
	dryRun    bool
	overrides *override.Overrides
	argv      []string
}

func runRoot(cmd *cobra.Command, args []string) error {
	if flags.GetBool(flagVersion) {
		printVersion(cmd.OutOrStdout())
		return nil
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	o, err := override.FromViper(flags)
	if err != nil {
		return err
	}

	logCfg := cfg.Logging.LoggerConfig()
	logCfg.Output = cmd.ErrOrStderr()
	logging.Init(logCfg)
	if o.Verbose != nil && *o.Verbose >= 2 {
		logging.SetLevel(logging.ParseLevel("debug"))
	}

	opts := trainOptions{
		iniPath:   flags.GetString(flagIni),
		runDir:    flags.GetString(flagRunDir),
		dryRun:    flags.GetBool(flagDryRun),
		overrides: o,
		argv:      os.Args,
	}
	engine := runner.NewExecEngine(cfg.Engine.Binary, cfg.Engine.Args...)

	out, err := runTrain(cmd.Context(), cfg, opts, engine, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if out.ExitCode != 0 {
		return fmt.Errorf("engine exited with status %d (see %s)", out.ExitCode, out.RunDir)
	}
	return nil
}

// runTrain assembles the session, applies overrides and runs it.
func runTrain(ctx context.Context, cfg *config.Config, opts trainOptions, engine runner.Engine, stdout, stderr io.Writer) (*runner.Outcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var reader matrix.Reader = matrix.NewFileReader()
	if cfg.Matrix.CacheSize > 0 {
		cached, err := matrix.NewCachedReader(reader, cfg.Matrix.CacheSize)
		if err != nil {
			return nil, err
		}
		defer cached.Close()
		reader = cached
	}

	var d *session.Description
	if opts.iniPath != "" {
		var err error
		d, err = assemble.New(reader).AssembleFile(opts.iniPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", opts.iniPath, err)
		}
		logging.Info().Str("ini", opts.iniPath).Msg("Loaded session settings")
	} else {
		d = session.NewEmpty()
	}

	if opts.overrides != nil && !opts.overrides.Empty() {
		logging.Info().Strs("overrides", opts.overrides.Set()).Msg("Applying command-line overrides")
	}
	if _, err := override.Apply(d, opts.overrides, reader); err != nil {
		return nil, err
	}

	runDir := opts.runDir
	if runDir == "" {
		runDir = newRunDir(cfg.Runs.BaseDir, time.Now())
	}

	inv := runner.Invocation{Argv: opts.argv}
	if opts.overrides != nil {
		inv.Overrides = opts.overrides.Set()
	}

	r := runner.New(engine, runner.WithOutput(stdout, stderr), runner.WithDryRun(opts.dryRun))
	out, err := r.Run(ctx, d, runDir, inv)
	if err != nil {
		return nil, err
	}

	if out.DryRun {
		fmt.Fprintf(stdout, "✓ Run directory prepared: %s\n", out.RunDir)
	} else {
		fmt.Fprintf(stdout, "✓ Run finished in %.1fs (exit code %d): %s\n", out.Elapsed.Seconds(), out.ExitCode, out.RunDir)
	}
	return out, nil
}

func newRunDir(base string, now time.Time) string {
	return filepath.Join(base, now.Format("20060102-150405")+"-"+uuid.New().String()[:8])
}
