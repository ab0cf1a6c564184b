package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/ini.v1"

	"github.com/mvp-joe/smurffctl/internal/config"
	"github.com/mvp-joe/smurffctl/internal/override"
	"github.com/mvp-joe/smurffctl/internal/runner"
	"github.com/mvp-joe/smurffctl/internal/session"
)

// Test Plan for the train command:
// - A settings file runs through the engine and leaves options.ini in the run directory
// - Command-line overrides win over the settings file
// - Without --ini the session is built from defaults plus overrides
// - Missing train data fails before the engine starts
// - Dry runs prepare the directory without calling the engine
// - A non-zero engine exit is reported in the outcome
// - Generated run directories live under the configured base directory
// - The version output names the tool and reports whether the engine binary resolves

const sampleMTX = `%%MatrixMarket matrix coordinate real general
3 4 3
1 1 4.0
2 3 1.5
3 4 2.0
`

type recordingEngine struct {
	calls   int
	options string
	err     error
}

func (e *recordingEngine) Run(ctx context.Context, optionsPath string, stdout, stderr io.Writer) error {
	e.calls++
	e.options = optionsPath
	fmt.Fprintln(stdout, "sampling")
	return e.err
}

type exitStatus int

func (e exitStatus) Error() string { return fmt.Sprintf("exit status %d", int(e)) }
func (e exitStatus) ExitCode() int { return int(e) }

func ptr[T any](v T) *T { return &v }

// writeDataset writes train/test matrices and a settings file into dir and
// returns the settings path.
func writeDataset(t *testing.T, dir string) string {
	t.Helper()
	train := filepath.Join(dir, "train.mtx")
	test := filepath.Join(dir, "test.mtx")
	require.NoError(t, os.WriteFile(train, []byte(sampleMTX), 0644))
	require.NoError(t, os.WriteFile(test, []byte(sampleMTX), 0644))

	settings := fmt.Sprintf(`[global]
prior_0 = normal
prior_1 = normal
num_latent = 4
burnin = 10
nsamples = 20
save_name = %s

[train]
file = %s

[test]
file = %s
`, filepath.Join(dir, "model.h5"), train, test)
	path := filepath.Join(dir, "session.ini")
	require.NoError(t, os.WriteFile(path, []byte(settings), 0644))
	return path
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Runs.BaseDir = filepath.Join(t.TempDir(), "runs")
	return cfg
}

func optionsIn(t *testing.T, runDir string) *ini.File {
	t.Helper()
	f, err := ini.Load(filepath.Join(runDir, runner.OptionsFile))
	require.NoError(t, err)
	return f
}

func TestRunTrain_FromSettingsFile(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t)
	engine := &recordingEngine{}
	var stdout bytes.Buffer

	out, err := runTrain(context.Background(), cfg, trainOptions{
		iniPath: writeDataset(t, dir),
		runDir:  filepath.Join(dir, "run"),
		argv:    []string{"smurff", "--ini", "session.ini"},
	}, engine, &stdout, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, 1, engine.calls)
	assert.Equal(t, out.OptionsPath, engine.options)
	assert.Equal(t, 0, out.ExitCode)
	assert.FileExists(t, filepath.Join(dir, "run", runner.OptionsFile))
	assert.FileExists(t, filepath.Join(dir, "run", runner.ExitCodeFile))
	assert.Contains(t, stdout.String(), "sampling")
	assert.Contains(t, stdout.String(), "Run finished")

	global := optionsIn(t, out.RunDir).Section("global")
	assert.Equal(t, "4", global.Key("num_latent").String())
}

func TestRunTrain_OverridesWin(t *testing.T) {
	dir := t.TempDir()
	engine := &recordingEngine{}

	o := &override.Overrides{
		NumLatent: ptr(16),
		Burnin:    ptr(50),
		Seed:      ptr(int64(1234)),
	}
	out, err := runTrain(context.Background(), testConfig(t), trainOptions{
		iniPath:   writeDataset(t, dir),
		runDir:    filepath.Join(dir, "run"),
		overrides: o,
	}, engine, io.Discard, io.Discard)
	require.NoError(t, err)

	global := optionsIn(t, out.RunDir).Section("global")
	assert.Equal(t, "16", global.Key("num_latent").String())
	assert.Equal(t, "50", global.Key("burnin").String())
	assert.Equal(t, "20", global.Key("nsamples").String(), "untouched values keep the file setting")
	assert.Equal(t, "1234", global.Key("random_seed").String())

	args, err := os.ReadFile(filepath.Join(out.RunDir, runner.ArgsFile))
	require.NoError(t, err)
	assert.Contains(t, string(args), override.NameNumLatent)
}

func TestRunTrain_WithoutSettingsFile(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir)
	engine := &recordingEngine{}

	o := &override.Overrides{
		Train:  ptr(filepath.Join(dir, "train.mtx")),
		Test:   ptr(filepath.Join(dir, "test.mtx")),
		Priors: []string{"normal", "normal"},
	}
	out, err := runTrain(context.Background(), testConfig(t), trainOptions{
		runDir:    filepath.Join(dir, "run"),
		overrides: o,
	}, engine, io.Discard, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 1, engine.calls)

	global := optionsIn(t, out.RunDir).Section("global")
	assert.Equal(t, fmt.Sprint(session.DefaultNumLatent), global.Key("num_latent").String())
	assert.Equal(t, fmt.Sprint(session.DefaultBurnin), global.Key("burnin").String())
}

func TestRunTrain_MissingTrainFailsBeforeEngine(t *testing.T) {
	engine := &recordingEngine{}
	runDir := filepath.Join(t.TempDir(), "run")
	_, err := runTrain(context.Background(), testConfig(t), trainOptions{
		runDir:    runDir,
		overrides: &override.Overrides{Priors: []string{"normal", "normal"}},
	}, engine, io.Discard, io.Discard)

	require.Error(t, err)
	assert.ErrorIs(t, err, session.ErrMissingTrain)
	assert.Equal(t, 0, engine.calls)
	assert.NoDirExists(t, runDir)
}

func TestRunTrain_BadSettingsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.ini")
	require.NoError(t, os.WriteFile(path, []byte("[global]\nprior_0 = normal\n"), 0644))

	_, err := runTrain(context.Background(), testConfig(t), trainOptions{iniPath: path}, &recordingEngine{}, io.Discard, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.ini")
}

func TestRunTrain_DryRun(t *testing.T) {
	dir := t.TempDir()
	engine := &recordingEngine{}
	var stdout bytes.Buffer

	out, err := runTrain(context.Background(), testConfig(t), trainOptions{
		iniPath: writeDataset(t, dir),
		runDir:  filepath.Join(dir, "run"),
		dryRun:  true,
	}, engine, &stdout, io.Discard)
	require.NoError(t, err)

	assert.True(t, out.DryRun)
	assert.Equal(t, 0, engine.calls)
	assert.FileExists(t, filepath.Join(out.RunDir, runner.OptionsFile))
	assert.NoFileExists(t, filepath.Join(out.RunDir, runner.ExitCodeFile))
	assert.Contains(t, stdout.String(), "Run directory prepared")
}

func TestRunTrain_EngineFailure(t *testing.T) {
	dir := t.TempDir()
	out, err := runTrain(context.Background(), testConfig(t), trainOptions{
		iniPath: writeDataset(t, dir),
		runDir:  filepath.Join(dir, "run"),
	}, &recordingEngine{err: exitStatus(3)}, io.Discard, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 3, out.ExitCode)
}

func TestRunTrain_GeneratedRunDir(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t)
	out, err := runTrain(context.Background(), cfg, trainOptions{
		iniPath: writeDataset(t, dir),
		dryRun:  true,
	}, &recordingEngine{}, io.Discard, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, cfg.Runs.BaseDir, filepath.Dir(out.RunDir))
}

func TestNewRunDir(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	a := newRunDir("runs", now)
	b := newRunDir("runs", now)

	assert.True(t, strings.HasPrefix(a, filepath.Join("runs", "20260314-150926-")))
	assert.NotEqual(t, a, b)
}

func TestPrintVersion(t *testing.T) {
	var buf bytes.Buffer
	printVersion(&buf)
	assert.Contains(t, buf.String(), "smurff "+Version)
	assert.Contains(t, buf.String(), "Git commit:")
}

func TestPrintEngine(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no-such-engine")
	var buf bytes.Buffer
	printEngine(&buf, runner.NewExecEngine(missing))
	assert.Contains(t, buf.String(), missing+" (not found in PATH)")

	found := filepath.Join(t.TempDir(), "engine")
	require.NoError(t, os.WriteFile(found, []byte("#!/bin/sh\n"), 0755))
	buf.Reset()
	printEngine(&buf, runner.NewExecEngine(found))
	assert.Equal(t, "Engine:     "+found+"\n", buf.String())
}
