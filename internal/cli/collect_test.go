package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/smurffctl/internal/results"
)

// Test Plan for collect and history:
// - runCollect scores every run directory and writes the summary and history files
// - runHistory prints one row per recorded run, filtered by --run
// - runHistory reports an empty history
// - The progress reporter prints counts and paths, and nothing when quiet

func writeRun(t *testing.T, root, name, exitCode string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "args"), []byte(`{"argv":["smurff"]}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "exit_code"), []byte(exitCode+"\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "time"), []byte("real 1.250\n"), 0644))
	preds := "y,pred_avg\n6,5.5\n4,4.5\n7,6.0\n3,3.5\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test-predictions.csv"), []byte(preds), 0644))
	return dir
}

func TestRunCollect(t *testing.T) {
	root := t.TempDir()
	writeRun(t, root, "a", "0")
	writeRun(t, root, "b", "1")
	cfg := testConfig(t)

	summary, err := runCollect(context.Background(), cfg, root, nil)
	require.NoError(t, err)

	assert.Len(t, summary.Runs, 2)
	assert.FileExists(t, filepath.Join(root, cfg.Results.SummaryFile))
	assert.FileExists(t, filepath.Join(root, cfg.Results.DBFile))
	assert.FileExists(t, filepath.Join(root, "a", cfg.Results.ResultFile))
}

func TestRunCollect_InvalidOptions(t *testing.T) {
	cfg := testConfig(t)
	cfg.Results.PredictionsPattern = "[unclosed"

	_, err := runCollect(context.Background(), cfg, t.TempDir(), nil)
	assert.Error(t, err)
}

func TestRunHistory(t *testing.T) {
	root := t.TempDir()
	a := writeRun(t, root, "a", "0")
	writeRun(t, root, "b", "0")
	cfg := testConfig(t)

	_, err := runCollect(context.Background(), cfg, root, nil)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runHistory(cfg, root, "", &out))
	assert.Contains(t, out.String(), "COLLECTED")
	assert.Contains(t, out.String(), a)
	assert.Contains(t, out.String(), filepath.Join(root, "b"))

	out.Reset()
	require.NoError(t, runHistory(cfg, root, a, &out))
	assert.Contains(t, out.String(), a)
	assert.NotContains(t, out.String(), filepath.Join(root, "b"))
}

func TestRunHistory_Empty(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runHistory(testConfig(t), t.TempDir(), "", &out))
	assert.Contains(t, out.String(), "No results recorded")
}

func TestCLIProgressReporter(t *testing.T) {
	var out bytes.Buffer
	p := NewCLIProgressReporter(&out, false)

	p.OnDiscoveryComplete(3)
	p.OnRunProcessed(&results.Run{Dir: "a"})
	p.OnRunProcessed(&results.Run{Dir: "b", Result: results.Result{ExitCode: 1}})
	p.OnRunSkipped("c", errors.New("no args"))
	p.OnComplete(&results.Summary{
		CollectionID: "c-1",
		Runs:         []*results.Run{{Dir: "a"}, {Dir: "b"}},
		Skipped:      []string{"c"},
		SummaryPath:  "runs/results.csv",
		DBPath:       "runs/results.db",
		Duration:     1500 * time.Millisecond,
	})

	s := out.String()
	assert.Contains(t, s, "Found 3 run directories")
	assert.Contains(t, s, "Collected 2 runs")
	assert.Contains(t, s, "Failed or unscored: 1")
	assert.Contains(t, s, "Skipped: 1")
	assert.Contains(t, s, "runs/results.csv")
	assert.Contains(t, s, "collection c-1")
}

func TestCLIProgressReporter_Quiet(t *testing.T) {
	var out bytes.Buffer
	p := NewCLIProgressReporter(&out, true)

	p.OnDiscoveryComplete(1)
	p.OnRunProcessed(&results.Run{Dir: "a"})
	p.OnComplete(&results.Summary{})

	assert.Empty(t, out.String())
}
