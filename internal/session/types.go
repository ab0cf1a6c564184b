// Package session describes a fully resolved training session: the global
// training parameters plus the train, test and side-information datasets.
//
// A Description moves through a one-way lifecycle:
//
//	Building -> Assembled -> Overridden -> HandedOff
//
// The assembler builds it, the override layer adjusts single fields, and Init
// validates it and hands it off to the engine. A handed-off description
// rejects every further change.
package session

import (
	"fmt"
	"strings"

	"github.com/mvp-joe/smurffctl/internal/matrix"
)

// Engine defaults used for sessions started without a settings file.
const (
	DefaultVerbose   = 1
	DefaultNumLatent = 96
	DefaultBurnin    = 200
	DefaultNSamples  = 800
)

// Priors understood by the engine.
var KnownPriors = []string{"normal", "normalone", "spikeandslab", "macau", "macauone"}

// NoiseModel is the kind of observation-noise model.
type NoiseModel string

const (
	NoiseFixed    NoiseModel = "fixed"
	NoiseSampled  NoiseModel = "sampled"
	NoiseAdaptive NoiseModel = "adaptive"
	NoiseProbit   NoiseModel = "probit"
	NoiseUnused   NoiseModel = "unused"
)

// ParseNoiseModel converts a settings value into a NoiseModel.
func ParseNoiseModel(s string) (NoiseModel, error) {
	switch m := NoiseModel(strings.ToLower(strings.TrimSpace(s))); m {
	case NoiseFixed, NoiseSampled, NoiseAdaptive, NoiseProbit, NoiseUnused:
		return m, nil
	}
	return "", fmt.Errorf("unknown noise model %q (valid: fixed, sampled, adaptive, probit, unused)", s)
}

// NoiseSpec is a complete noise-model override. It is either fully specified
// or absent (a nil *NoiseSpec); there is no partial form.
type NoiseSpec struct {
	Model     NoiseModel
	Precision float64
	SNInit    float64
	SNMax     float64
	Threshold float64
}

// Role is what a dataset is used for.
type Role int

const (
	RoleTrain Role = iota
	RoleTest
	RoleSideInfo
)

func (r Role) String() string {
	switch r {
	case RoleTrain:
		return "train"
	case RoleTest:
		return "test"
	case RoleSideInfo:
		return "side_info"
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// ScarceType is the matrix type tag marking a train matrix as scarce:
// only observed entries contribute to the likelihood.
const ScarceType = "scarce"

// DatasetRecord is one dataset section.
//
// Positions, Direct and Tolerance are read for every section but only
// side-information records use Direct and Tolerance; train and test records
// ignore them.
type DatasetRecord struct {
	Matrix     *matrix.Matrix
	Role       Role
	MatrixType string // empty means dense/default
	Noise      *NoiseSpec
	Positions  []int
	Direct     *bool
	Tolerance  *float64
}

// IsScarce reports whether the record is tagged as a scarce matrix.
func (r *DatasetRecord) IsScarce() bool {
	return r.MatrixType == ScarceType
}

// GlobalParams are the scalar training parameters.
type GlobalParams struct {
	// Priors holds one prior type per factorization dimension, in mode order.
	Priors         []string `validate:"min=1,dive,oneof=normal normalone spikeandslab macau macauone"`
	NumLatent      int      `validate:"min=1"`
	NumThreads     *int     `validate:"omitempty,min=0"` // nil: engine default
	Burnin         int      `validate:"min=0"`
	NSamples       int      `validate:"min=0"`
	Seed           *int64   // nil: engine default
	Threshold      *float64 // set only in classification mode
	Verbose        int      `validate:"min=0"`
	SaveName       string
	SaveFreq       *int `validate:"omitempty,min=-1"` // nil: engine default
	CheckpointFreq *int `validate:"omitempty,min=0"`  // nil: engine default
	RestoreName    string
}

// State is a Description's lifecycle stage.
type State int

const (
	StateBuilding State = iota
	StateAssembled
	StateOverridden
	StateHandedOff
)

func (s State) String() string {
	switch s {
	case StateBuilding:
		return "building"
	case StateAssembled:
		return "assembled"
	case StateOverridden:
		return "overridden"
	case StateHandedOff:
		return "handed-off"
	}
	return fmt.Sprintf("State(%d)", int(s))
}
