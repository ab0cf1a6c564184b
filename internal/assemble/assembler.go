package assemble

import (
	"github.com/mvp-joe/smurffctl/internal/logging"
	"github.com/mvp-joe/smurffctl/internal/matrix"
	"github.com/mvp-joe/smurffctl/internal/session"
	"github.com/mvp-joe/smurffctl/internal/settings"
)

// Assembler builds session descriptions from settings.
type Assembler struct {
	reader   matrix.Reader
	saveName func() string
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithSaveName overrides the generator used when save_name is absent.
func WithSaveName(gen func() string) Option {
	return func(a *Assembler) {
		a.saveName = gen
	}
}

// New creates an assembler that loads matrices through reader.
func New(reader matrix.Reader, opts ...Option) *Assembler {
	a := &Assembler{
		reader:   reader,
		saveName: session.TempSaveName,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AssembleFile reads the settings file at path and assembles it.
func (a *Assembler) AssembleFile(path string) (*session.Description, error) {
	src, err := settings.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return a.Assemble(settings.NewResolver(src))
}

// Assemble resolves global parameters and dataset sections into a description.
// Resolution is all-or-nothing: the first error aborts and nothing is returned.
func (a *Assembler) Assemble(r *settings.Resolver) (*session.Description, error) {
	params, err := a.readGlobal(r)
	if err != nil {
		return nil, err
	}
	d := session.New(params)

	train, err := ReadSection(r, SectionTrain, session.RoleTrain, a.reader)
	if err != nil {
		return nil, err
	}
	if err := d.Attach(0, train); err != nil {
		return nil, err
	}
	logging.Debug().Str("section", SectionTrain).Stringer("matrix", train.Matrix).
		Str("type", train.MatrixType).Msg("Resolved dataset")

	if r.HasSection(SectionTest) {
		test, err := ReadSection(r, SectionTest, session.RoleTest, a.reader)
		if err != nil {
			return nil, err
		}
		if err := d.Attach(0, test); err != nil {
			return nil, err
		}
		logging.Debug().Str("section", SectionTest).Stringer("matrix", test.Matrix).Msg("Resolved dataset")
	}

	// Only modes that have a prior are consulted; side_info_<n> beyond the
	// prior list is never read.
	for mode := range params.Priors {
		section := SideInfoSection(mode)
		if !r.HasSection(section) {
			continue
		}
		side, err := ReadSection(r, section, session.RoleSideInfo, a.reader)
		if err != nil {
			return nil, err
		}
		if err := d.Attach(mode, side); err != nil {
			return nil, err
		}
		logging.Debug().Str("section", section).Int("mode", mode).Stringer("matrix", side.Matrix).Msg("Resolved dataset")
	}

	d.MarkAssembled()
	return d, nil
}

func (a *Assembler) readGlobal(r *settings.Resolver) (session.GlobalParams, error) {
	var p session.GlobalParams
	var err error

	for _, key := range r.KeysWithPrefix(SectionGlobal, priorKeyPrefix) {
		prior, err := settings.Required[string](r, SectionGlobal, key)
		if err != nil {
			return p, err
		}
		p.Priors = append(p.Priors, prior)
	}
	if len(p.Priors) == 0 {
		return p, &settings.FieldError{Section: SectionGlobal, Key: priorKeyPrefix + "*", Err: settings.ErrMissingField}
	}

	if p.NumLatent, err = settings.Required[int](r, SectionGlobal, KeyNumLatent); err != nil {
		return p, err
	}
	if p.NumThreads, err = settings.Optional[int](r, SectionGlobal, KeyNumThreads); err != nil {
		return p, err
	}
	if p.Burnin, err = settings.Required[int](r, SectionGlobal, KeyBurnin); err != nil {
		return p, err
	}
	if p.NSamples, err = settings.Required[int](r, SectionGlobal, KeyNSamples); err != nil {
		return p, err
	}

	// seed and threshold are guarded by a flag so that a stray zero value is
	// never mistaken for an explicit setting.
	seedSet, err := settings.Default(r, SectionGlobal, KeySeedSet, false)
	if err != nil {
		return p, err
	}
	if seedSet {
		seed, err := settings.Required[int64](r, SectionGlobal, KeySeed)
		if err != nil {
			return p, err
		}
		p.Seed = &seed
	}

	classify, err := settings.Default(r, SectionGlobal, KeyClassify, false)
	if err != nil {
		return p, err
	}
	if classify {
		threshold, err := settings.Required[float64](r, SectionGlobal, KeyThreshold)
		if err != nil {
			return p, err
		}
		p.Threshold = &threshold
	}

	if p.Verbose, err = settings.Default(r, SectionGlobal, KeyVerbose, session.DefaultVerbose); err != nil {
		return p, err
	}

	saveName, ok, err := settings.Lookup[string](r, SectionGlobal, KeySaveName)
	if err != nil {
		return p, err
	}
	if !ok || saveName == "" {
		saveName = a.saveName()
	}
	p.SaveName = saveName

	if p.SaveFreq, err = settings.Optional[int](r, SectionGlobal, KeySaveFreq); err != nil {
		return p, err
	}
	if p.CheckpointFreq, err = settings.Optional[int](r, SectionGlobal, KeyCheckpointFreq); err != nil {
		return p, err
	}
	if p.RestoreName, err = settings.Default(r, SectionGlobal, KeyRestoreName, ""); err != nil {
		return p, err
	}

	return p, nil
}
