package results

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gobwas/glob"

	"github.com/mvp-joe/smurffctl/internal/logging"
	"github.com/mvp-joe/smurffctl/internal/runner"
)

// Failed is the metric value recorded when a run could not be scored.
const Failed = -1

// ErrNoPredictionsFile indicates a run directory without a predictions file.
var ErrNoPredictionsFile = errors.New("no predictions file")

// Options controls how run directories are scored and where summaries go.
type Options struct {
	Threshold          float64
	PredictionsPattern string
	ActualColumn       string
	PredictionColumn   string
	ResultFile         string
	SummaryFile        string
	DBFile             string
}

// DefaultOptions returns the scoring defaults.
func DefaultOptions() Options {
	return Options{
		Threshold:          5.0,
		PredictionsPattern: "*predictions*csv",
		ActualColumn:       "y",
		PredictionColumn:   "pred_avg",
		ResultFile:         "result",
		SummaryFile:        "results.csv",
		DBFile:             "results.db",
	}
}

// Result holds the scores of one run.
type Result struct {
	AUC      float64   `json:"auc"`
	RMSE     float64   `json:"rmse"`
	RealTime float64   `json:"real_time"`
	ExitCode int       `json:"exit_code"`
	Time     time.Time `json:"time"`
}

// Run is one scored run directory.
type Run struct {
	Dir    string          `json:"dir"`
	Args   json.RawMessage `json:"args"`
	Result Result          `json:"result"`
}

// FindRunDirs returns every directory under root, root included, that holds
// an exit_code file, sorted by path.
func FindRunDirs(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == runner.ExitCodeFile {
			dirs = append(dirs, filepath.Dir(path))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	sort.Strings(dirs)
	return dirs, nil
}

// scorer scores run directories with compiled options.
type scorer struct {
	opts    Options
	matcher glob.Glob
}

func newScorer(opts Options) (*scorer, error) {
	g, err := glob.Compile(opts.PredictionsPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid predictions pattern %q: %w", opts.PredictionsPattern, err)
	}
	return &scorer{opts: opts, matcher: g}, nil
}

// ProcessRunDir scores one run directory with opts and writes its result file.
func ProcessRunDir(dir string, opts Options) (*Run, error) {
	s, err := newScorer(opts)
	if err != nil {
		return nil, err
	}
	return s.process(dir)
}

// process reads args and exit_code, which must be present, then scores the
// newest predictions file. A scoring failure is not an error: AUC, RMSE and
// real time are recorded as Failed.
func (s *scorer) process(dir string) (*Run, error) {
	args, err := readArgs(filepath.Join(dir, runner.ArgsFile))
	if err != nil {
		return nil, err
	}

	exitPath := filepath.Join(dir, runner.ExitCodeFile)
	line, err := firstLine(exitPath)
	if err != nil {
		return nil, err
	}
	exitCode, err := strconv.Atoi(line)
	if err != nil {
		return nil, fmt.Errorf("invalid exit code in %s: %w", exitPath, err)
	}
	info, err := os.Stat(exitPath)
	if err != nil {
		return nil, err
	}

	run := &Run{
		Dir:  dir,
		Args: args,
		Result: Result{
			ExitCode: exitCode,
			Time:     info.ModTime().UTC(),
		},
	}

	if err := s.score(dir, &run.Result); err != nil {
		logging.Warn().Err(err).Str("run_dir", dir).Msg("Failed to score run")
		run.Result.AUC = Failed
		run.Result.RMSE = Failed
		run.Result.RealTime = Failed
	}

	data, err := json.MarshalIndent(run.Result, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, s.opts.ResultFile), append(data, '\n'), 0644); err != nil {
		return nil, fmt.Errorf("failed to write result: %w", err)
	}
	return run, nil
}

func (s *scorer) score(dir string, res *Result) error {
	predPath, err := s.newestPredictions(dir)
	if err != nil {
		return err
	}
	logging.Debug().Str("file", predPath).Msg("Processing predictions")

	f, err := os.Open(predPath)
	if err != nil {
		return err
	}
	defer f.Close()

	preds, err := ReadPredictions(f, s.opts.ActualColumn, s.opts.PredictionColumn)
	if err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(predPath), err)
	}
	auc, err := AUC(preds, s.opts.Threshold)
	if err != nil {
		return err
	}
	rmse, err := RMSE(preds)
	if err != nil {
		return err
	}

	line, err := firstLine(filepath.Join(dir, runner.TimeFile))
	if err != nil {
		return err
	}
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return fmt.Errorf("malformed time file: %q", line)
	}
	realTime, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return fmt.Errorf("malformed time file: %w", err)
	}

	res.AUC = auc
	res.RMSE = rmse
	res.RealTime = realTime
	return nil
}

// newestPredictions picks the most recently modified file in dir matching the
// predictions pattern.
func (s *scorer) newestPredictions(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var best string
	var bestTime time.Time
	for _, e := range entries {
		if e.IsDir() || !s.matcher.Match(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return "", err
		}
		if best == "" || !info.ModTime().Before(bestTime) {
			best = e.Name()
			bestTime = info.ModTime()
		}
	}
	if best == "" {
		return "", ErrNoPredictionsFile
	}
	return filepath.Join(dir, best), nil
}

// readArgs returns the args file as JSON. Files that are not JSON are kept as
// a JSON string.
func readArgs(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read args: %w", err)
	}
	trimmed := strings.TrimSpace(string(data))
	if json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed), nil
	}
	quoted, err := json.Marshal(trimmed)
	if err != nil {
		return nil, err
	}
	return quoted, nil
}

func firstLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if sc.Scan() {
		return strings.TrimSpace(sc.Text()), nil
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	return "", nil
}
