// Package runner hands an assembled session to the engine and records the
// run in a directory that results collection can later score.
//
// Run directory layout:
//
//	options.ini   session settings passed to the engine
//	<section>.mtx in-memory matrices written out for the engine, e.g. train.mtx
//	args          JSON description of the invocation
//	stdout        engine standard output
//	stderr        engine standard error
//	exit_code     engine exit status, one line
//	time          "real <seconds>"
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mvp-joe/smurffctl/internal/assemble"
	"github.com/mvp-joe/smurffctl/internal/logging"
	"github.com/mvp-joe/smurffctl/internal/matrix"
	"github.com/mvp-joe/smurffctl/internal/session"
)

// Files written to a run directory.
const (
	OptionsFile  = "options.ini"
	ArgsFile     = "args"
	StdoutFile   = "stdout"
	StderrFile   = "stderr"
	ExitCodeFile = "exit_code"
	TimeFile     = "time"
)

// Invocation is the content of the args file.
type Invocation struct {
	Argv      []string `json:"argv"`
	Overrides []string `json:"overrides,omitempty"`
	Priors    []string `json:"priors"`
	NumLatent int      `json:"num_latent"`
	Burnin    int      `json:"burnin"`
	NSamples  int      `json:"nsamples"`
	Seed      *int64   `json:"seed,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
	SaveName  string   `json:"save_name"`
}

// Outcome summarizes a finished run.
type Outcome struct {
	RunDir      string
	OptionsPath string
	ExitCode    int
	Elapsed     time.Duration
	DryRun      bool
}

// Runner executes sessions through an Engine.
type Runner struct {
	engine Engine
	stdout io.Writer
	stderr io.Writer
	dryRun bool
	now    func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithOutput tees engine output to stdout and stderr in addition to the run directory.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(r *Runner) {
		r.stdout = stdout
		r.stderr = stderr
	}
}

// WithDryRun prepares the run directory without starting the engine.
func WithDryRun(dryRun bool) Option {
	return func(r *Runner) {
		r.dryRun = dryRun
	}
}

// WithClock replaces time.Now for elapsed-time measurement.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// New creates a runner for engine.
func New(engine Engine, opts ...Option) *Runner {
	r := &Runner{engine: engine, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run validates and hands off d, writes the run directory and starts the
// engine. A non-zero engine exit is recorded in the outcome and is not an
// error; failing to start the engine is.
func (r *Runner) Run(ctx context.Context, d *session.Description, runDir string, inv Invocation) (*Outcome, error) {
	if err := d.Init(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}
	if err := materialize(d, runDir); err != nil {
		return nil, err
	}

	out := &Outcome{
		RunDir:      runDir,
		OptionsPath: filepath.Join(runDir, OptionsFile),
		DryRun:      r.dryRun,
	}
	if err := assemble.SaveOptions(out.OptionsPath, d); err != nil {
		return nil, err
	}

	p := d.Params
	inv.Priors = p.Priors
	inv.NumLatent = p.NumLatent
	inv.Burnin = p.Burnin
	inv.NSamples = p.NSamples
	inv.Seed = p.Seed
	inv.Threshold = p.Threshold
	inv.SaveName = p.SaveName
	if err := writeJSON(filepath.Join(runDir, ArgsFile), inv); err != nil {
		return nil, err
	}

	if r.dryRun {
		logging.Info().Str("run_dir", runDir).Msg("Dry run, engine not started")
		return out, nil
	}

	stdout, err := os.Create(filepath.Join(runDir, StdoutFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout log: %w", err)
	}
	defer stdout.Close()
	stderr, err := os.Create(filepath.Join(runDir, StderrFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr log: %w", err)
	}
	defer stderr.Close()

	logging.Info().Str("run_dir", runDir).Strs("priors", p.Priors).Int("num_latent", p.NumLatent).Msg("Starting engine")

	start := r.now()
	runErr := r.engine.Run(ctx, out.OptionsPath, tee(stdout, r.stdout), tee(stderr, r.stderr))
	out.Elapsed = r.now().Sub(start)

	code, ok := ExitCode(runErr)
	if !ok {
		return nil, fmt.Errorf("failed to run engine: %w", runErr)
	}
	out.ExitCode = code

	if err := writeLine(filepath.Join(runDir, ExitCodeFile), fmt.Sprintf("%d", code)); err != nil {
		return nil, err
	}
	if err := writeLine(filepath.Join(runDir, TimeFile), fmt.Sprintf("real %.3f", out.Elapsed.Seconds())); err != nil {
		return nil, err
	}

	ev := logging.Info()
	if code != 0 {
		ev = logging.Warn()
	}
	ev.Str("run_dir", runDir).Int("exit_code", code).Dur("elapsed", out.Elapsed).Msg("Engine finished")
	return out, nil
}

func tee(file io.Writer, extra io.Writer) io.Writer {
	if extra == nil {
		return file
	}
	return io.MultiWriter(file, extra)
}

func writeLine(path, line string) error {
	if err := os.WriteFile(path, []byte(line+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	return writeLine(path, string(data))
}

// materialize writes every dataset matrix without a source path into runDir
// as <section>.mtx so the options file can reference it.
func materialize(d *session.Description, runDir string) error {
	records := map[string]*session.DatasetRecord{
		assemble.SectionTrain: d.Train,
		assemble.SectionTest:  d.Test,
	}
	for mode, rec := range d.SideInfo {
		records[assemble.SideInfoSection(mode)] = rec
	}

	for section, rec := range records {
		if rec == nil || rec.Matrix == nil || rec.Matrix.Path != "" {
			continue
		}
		path := filepath.Join(runDir, section+".mtx")
		if err := saveMatrix(path, rec.Matrix); err != nil {
			return err
		}
		m := *rec.Matrix
		m.Path = path
		rec.Matrix = &m
		logging.Debug().Str("section", section).Str("file", path).Msg("Wrote in-memory matrix")
	}
	return nil
}

func saveMatrix(path string, m *matrix.Matrix) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := matrix.WriteMatrixMarket(f, m); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
