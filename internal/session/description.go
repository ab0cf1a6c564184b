package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/mvp-joe/smurffctl/internal/matrix"
)

var (
	// ErrInvalidValue indicates a setter argument outside its allowed range.
	ErrInvalidValue = errors.New("invalid session value")

	// ErrHandedOff indicates a change to a description already handed to the engine.
	ErrHandedOff = errors.New("session already handed off")

	// ErrMissingTrain indicates a session without train data.
	ErrMissingTrain = errors.New("train data is required")
)

// Description is the canonical, engine-ready session.
type Description struct {
	Params   GlobalParams
	Train    *DatasetRecord
	Test     *DatasetRecord
	SideInfo map[int]*DatasetRecord

	state State
}

// New creates a description from resolved global parameters.
// The caller attaches datasets and then calls MarkAssembled.
func New(params GlobalParams) *Description {
	return &Description{
		Params:   params,
		SideInfo: make(map[int]*DatasetRecord),
		state:    StateBuilding,
	}
}

// NewEmpty creates an assembled description holding only engine defaults,
// used when no settings file is given and every value comes from overrides.
func NewEmpty() *Description {
	d := New(GlobalParams{
		NumLatent: DefaultNumLatent,
		Burnin:    DefaultBurnin,
		NSamples:  DefaultNSamples,
		Verbose:   DefaultVerbose,
		SaveName:  TempSaveName(),
	})
	d.MarkAssembled()
	return d
}

// TempSaveName generates a fresh save name in the system temp directory.
func TempSaveName() string {
	return filepath.Join(os.TempDir(), "smurff-"+uuid.New().String()[:8]+".h5")
}

// State returns the lifecycle stage.
func (d *Description) State() State {
	return d.state
}

// MarkAssembled ends the building stage.
func (d *Description) MarkAssembled() {
	if d.state == StateBuilding {
		d.state = StateAssembled
	}
}

// SideInfoModes returns the modes that carry side information, ascending.
func (d *Description) SideInfoModes() []int {
	modes := make([]int, 0, len(d.SideInfo))
	for m := range d.SideInfo {
		modes = append(modes, m)
	}
	sort.Ints(modes)
	return modes
}

// change guards every mutation and advances Assembled to Overridden.
func (d *Description) change() error {
	switch d.state {
	case StateHandedOff:
		return ErrHandedOff
	case StateAssembled:
		d.state = StateOverridden
	}
	return nil
}

func invalid(field string, format string, args ...any) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidValue, field, fmt.Sprintf(format, args...))
}

// Attach stores a fully read dataset record under its role, keeping the
// matrix type tag and positions as given. mode is used only for side
// information. Train and test replace earlier records, as does side
// information for the same mode.
func (d *Description) Attach(mode int, rec *DatasetRecord) error {
	if rec == nil || rec.Matrix == nil {
		return invalid("dataset", "matrix is nil")
	}
	if rec.Role != RoleTrain && rec.Role != RoleTest && rec.Role != RoleSideInfo {
		return invalid("dataset", "unknown role %v", rec.Role)
	}
	if rec.Role == RoleSideInfo {
		if mode < 0 {
			return invalid("side_info", "mode must be non-negative, got %d", mode)
		}
		if rec.Tolerance != nil && *rec.Tolerance <= 0 {
			return invalid("tol", "must be positive, got %g", *rec.Tolerance)
		}
	}
	for _, p := range rec.Positions {
		if p < 0 {
			return invalid("pos", "must be non-negative, got %v", rec.Positions)
		}
	}
	if err := d.change(); err != nil {
		return err
	}

	switch rec.Role {
	case RoleTrain:
		d.Train = rec
	case RoleTest:
		d.Test = rec
	case RoleSideInfo:
		d.SideInfo[mode] = rec
	}
	return nil
}

// SetTrain attaches the train matrix.
func (d *Description) SetTrain(m *matrix.Matrix, noise *NoiseSpec, scarce bool) error {
	rec := &DatasetRecord{Matrix: m, Role: RoleTrain, Noise: noise}
	if scarce {
		rec.MatrixType = ScarceType
	}
	return d.Attach(0, rec)
}

// SetTest attaches the test matrix.
func (d *Description) SetTest(m *matrix.Matrix, noise *NoiseSpec) error {
	return d.Attach(0, &DatasetRecord{Matrix: m, Role: RoleTest, Noise: noise})
}

// AddSideInfo attaches side information to mode, replacing any earlier record
// for the same mode. direct and tol are optional solver hints.
func (d *Description) AddSideInfo(mode int, m *matrix.Matrix, noise *NoiseSpec, direct *bool, tol *float64) error {
	return d.Attach(mode, &DatasetRecord{
		Matrix:    m,
		Role:      RoleSideInfo,
		Noise:     noise,
		Direct:    direct,
		Tolerance: tol,
	})
}

func (d *Description) SetVerbose(v int) error {
	if v < 0 {
		return invalid("verbose", "must be non-negative, got %d", v)
	}
	if err := d.change(); err != nil {
		return err
	}
	d.Params.Verbose = v
	return nil
}

// SetNumThreads sets the thread count; 0 lets the engine decide.
func (d *Description) SetNumThreads(n int) error {
	if n < 0 {
		return invalid("num_threads", "must be non-negative, got %d", n)
	}
	if err := d.change(); err != nil {
		return err
	}
	d.Params.NumThreads = &n
	return nil
}

func (d *Description) SetRandomSeed(seed int64) error {
	if err := d.change(); err != nil {
		return err
	}
	d.Params.Seed = &seed
	return nil
}

func (d *Description) SetPriorTypes(priors []string) error {
	if len(priors) == 0 {
		return invalid("priors", "at least one prior is required")
	}
	for _, p := range priors {
		if !isKnownPrior(p) {
			return invalid("priors", "unknown prior %q", p)
		}
	}
	if err := d.change(); err != nil {
		return err
	}
	d.Params.Priors = append([]string(nil), priors...)
	return nil
}

func (d *Description) SetBurnin(n int) error {
	if n < 0 {
		return invalid("burnin", "must be non-negative, got %d", n)
	}
	if err := d.change(); err != nil {
		return err
	}
	d.Params.Burnin = n
	return nil
}

func (d *Description) SetNSamples(n int) error {
	if n < 0 {
		return invalid("nsamples", "must be non-negative, got %d", n)
	}
	if err := d.change(); err != nil {
		return err
	}
	d.Params.NSamples = n
	return nil
}

func (d *Description) SetNumLatent(n int) error {
	if n < 1 {
		return invalid("num_latent", "must be positive, got %d", n)
	}
	if err := d.change(); err != nil {
		return err
	}
	d.Params.NumLatent = n
	return nil
}

// SetThreshold enables classification mode with the given threshold.
func (d *Description) SetThreshold(t float64) error {
	if err := d.change(); err != nil {
		return err
	}
	d.Params.Threshold = &t
	return nil
}

func (d *Description) SetRestoreName(name string) error {
	if name == "" {
		return invalid("restore_name", "must not be empty")
	}
	if err := d.change(); err != nil {
		return err
	}
	d.Params.RestoreName = name
	return nil
}

func (d *Description) SetSaveName(name string) error {
	if name == "" {
		return invalid("save_name", "must not be empty")
	}
	if err := d.change(); err != nil {
		return err
	}
	d.Params.SaveName = name
	return nil
}

// SetSaveFreq sets how often samples are saved: 0 never, -1 only the final model.
func (d *Description) SetSaveFreq(n int) error {
	if n < -1 {
		return invalid("save_freq", "must be >= -1, got %d", n)
	}
	if err := d.change(); err != nil {
		return err
	}
	d.Params.SaveFreq = &n
	return nil
}

// SetCheckpointFreq sets the checkpoint interval in seconds.
func (d *Description) SetCheckpointFreq(n int) error {
	if n < 0 {
		return invalid("checkpoint_freq", "must be non-negative, got %d", n)
	}
	if err := d.change(); err != nil {
		return err
	}
	d.Params.CheckpointFreq = &n
	return nil
}

func isKnownPrior(p string) bool {
	for _, k := range KnownPriors {
		if p == k {
			return true
		}
	}
	return false
}
