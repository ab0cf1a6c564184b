// Package override applies command-line values on top of an assembled
// session description.
//
// Each recognized name maps to exactly one setter through a fixed table.
// File-valued overrides are applied first, each loading its matrix once,
// followed by scalar overrides in declaration order.
//
// Only side information for modes 0 (row features) and 1 (column features)
// can be set from here; further modes need a settings file.
package override

import (
	"fmt"

	"github.com/mvp-joe/smurffctl/internal/logging"
	"github.com/mvp-joe/smurffctl/internal/matrix"
	"github.com/mvp-joe/smurffctl/internal/session"
)

// Names of the recognized overrides, matching the CLI flag names.
const (
	NameTrain          = "train"
	NameTest           = "test"
	NameRowFeatures    = "row-features"
	NameColFeatures    = "col-features"
	NameVerbose        = "verbose"
	NameNumThreads     = "num-threads"
	NameSeed           = "seed"
	NamePrior          = "prior"
	NameBurnin         = "burnin"
	NameNSamples       = "nsamples"
	NameNumLatent      = "num-latent"
	NameThreshold      = "threshold"
	NameRestoreFrom    = "restore-from"
	NameSaveName       = "save-name"
	NameSaveFreq       = "save-freq"
	NameCheckpointFreq = "checkpoint-freq"
)

// Overrides holds the values supplied on the command line. A nil field was not
// supplied and leaves the session untouched.
type Overrides struct {
	Train       *string
	Test        *string
	RowFeatures *string
	ColFeatures *string

	Verbose        *int
	NumThreads     *int
	Seed           *int64
	Priors         []string
	Burnin         *int
	NSamples       *int
	NumLatent      *int
	Threshold      *float64
	RestoreFrom    *string
	SaveName       *string
	SaveFreq       *int
	CheckpointFreq *int
}

type fileOverride struct {
	name  string
	path  func(o *Overrides) *string
	apply func(d *session.Description, m *matrix.Matrix) error
}

type scalarOverride struct {
	name  string
	isSet func(o *Overrides) bool
	apply func(d *session.Description, o *Overrides) error
}

var fileOverrides = []fileOverride{
	{NameTrain, func(o *Overrides) *string { return o.Train },
		func(d *session.Description, m *matrix.Matrix) error { return d.SetTrain(m, nil, false) }},
	{NameTest, func(o *Overrides) *string { return o.Test },
		func(d *session.Description, m *matrix.Matrix) error { return d.SetTest(m, nil) }},
	{NameRowFeatures, func(o *Overrides) *string { return o.RowFeatures },
		func(d *session.Description, m *matrix.Matrix) error { return d.AddSideInfo(0, m, nil, nil, nil) }},
	{NameColFeatures, func(o *Overrides) *string { return o.ColFeatures },
		func(d *session.Description, m *matrix.Matrix) error { return d.AddSideInfo(1, m, nil, nil, nil) }},
}

var scalarOverrides = []scalarOverride{
	{NameVerbose, func(o *Overrides) bool { return o.Verbose != nil },
		func(d *session.Description, o *Overrides) error { return d.SetVerbose(*o.Verbose) }},
	{NameNumThreads, func(o *Overrides) bool { return o.NumThreads != nil },
		func(d *session.Description, o *Overrides) error { return d.SetNumThreads(*o.NumThreads) }},
	{NameSeed, func(o *Overrides) bool { return o.Seed != nil },
		func(d *session.Description, o *Overrides) error { return d.SetRandomSeed(*o.Seed) }},
	{NamePrior, func(o *Overrides) bool { return o.Priors != nil },
		func(d *session.Description, o *Overrides) error { return d.SetPriorTypes(o.Priors) }},
	{NameBurnin, func(o *Overrides) bool { return o.Burnin != nil },
		func(d *session.Description, o *Overrides) error { return d.SetBurnin(*o.Burnin) }},
	{NameNSamples, func(o *Overrides) bool { return o.NSamples != nil },
		func(d *session.Description, o *Overrides) error { return d.SetNSamples(*o.NSamples) }},
	{NameNumLatent, func(o *Overrides) bool { return o.NumLatent != nil },
		func(d *session.Description, o *Overrides) error { return d.SetNumLatent(*o.NumLatent) }},
	{NameThreshold, func(o *Overrides) bool { return o.Threshold != nil },
		func(d *session.Description, o *Overrides) error { return d.SetThreshold(*o.Threshold) }},
	{NameRestoreFrom, func(o *Overrides) bool { return o.RestoreFrom != nil },
		func(d *session.Description, o *Overrides) error { return d.SetRestoreName(*o.RestoreFrom) }},
	{NameSaveName, func(o *Overrides) bool { return o.SaveName != nil },
		func(d *session.Description, o *Overrides) error { return d.SetSaveName(*o.SaveName) }},
	{NameSaveFreq, func(o *Overrides) bool { return o.SaveFreq != nil },
		func(d *session.Description, o *Overrides) error { return d.SetSaveFreq(*o.SaveFreq) }},
	{NameCheckpointFreq, func(o *Overrides) bool { return o.CheckpointFreq != nil },
		func(d *session.Description, o *Overrides) error { return d.SetCheckpointFreq(*o.CheckpointFreq) }},
}

// Names returns every recognized override name in application order.
func Names() []string {
	names := make([]string, 0, len(fileOverrides)+len(scalarOverrides))
	for _, f := range fileOverrides {
		names = append(names, f.name)
	}
	for _, s := range scalarOverrides {
		names = append(names, s.name)
	}
	return names
}

// Set returns the names of the supplied overrides in application order.
func (o *Overrides) Set() []string {
	var names []string
	for _, f := range fileOverrides {
		if f.path(o) != nil {
			names = append(names, f.name)
		}
	}
	for _, s := range scalarOverrides {
		if s.isSet(o) {
			names = append(names, s.name)
		}
	}
	return names
}

// Empty reports whether no override was supplied.
func (o *Overrides) Empty() bool {
	return len(o.Set()) == 0
}

// Apply mutates d with every supplied override and returns d. Setters do their
// own range checks; the first failure aborts and is returned with the name of
// the override that caused it.
func Apply(d *session.Description, o *Overrides, reader matrix.Reader) (*session.Description, error) {
	if o == nil {
		return d, nil
	}

	for _, f := range fileOverrides {
		path := f.path(o)
		if path == nil {
			continue
		}
		m, err := reader.Read(*path)
		if err != nil {
			return nil, fmt.Errorf("--%s: %w", f.name, err)
		}
		if err := f.apply(d, m); err != nil {
			return nil, fmt.Errorf("--%s: %w", f.name, err)
		}
		logging.Debug().Str("override", f.name).Str("file", *path).Msg("Applied override")
	}

	for _, s := range scalarOverrides {
		if !s.isSet(o) {
			continue
		}
		if err := s.apply(d, o); err != nil {
			return nil, fmt.Errorf("--%s: %w", s.name, err)
		}
		logging.Debug().Str("override", s.name).Msg("Applied override")
	}
	return d, nil
}
