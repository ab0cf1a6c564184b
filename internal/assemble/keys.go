// Package assemble turns layered settings into an engine-ready
// session.Description.
//
// Settings file layout (comments must sit on their own line):
//
//	[global]
//	; one prior_* key per dimension, in mode order
//	prior_0 = macau
//	prior_1 = normal
//	num_latent = 16
//	burnin = 200
//	nsamples = 800
//	; random_seed is read only when random_seed_set is true,
//	; threshold only when classify is true
//	random_seed_set = true
//	random_seed = 1234
//	classify = false
//	verbose = 1
//	save_name = run.h5
//
//	[train]
//	file = train.mtx
//	type = scarce
//
//	[test]
//	file = test.mtx
//
//	; side information for mode 0
//	[side_info_0]
//	file = row_features.mtx
//	direct = true
package assemble

import "strconv"

// Section names.
const (
	SectionGlobal  = "global"
	SectionTrain   = "train"
	SectionTest    = "test"
	sideInfoPrefix = "side_info_"
	priorKeyPrefix = "prior_"
)

// SideInfoSection returns the section name holding side information for mode.
func SideInfoSection(mode int) string {
	return sideInfoPrefix + strconv.Itoa(mode)
}

// Global keys.
const (
	KeyNumLatent      = "num_latent"
	KeyNumThreads     = "num_threads"
	KeyBurnin         = "burnin"
	KeyNSamples       = "nsamples"
	KeySeedSet        = "random_seed_set"
	KeySeed           = "random_seed"
	KeyClassify       = "classify"
	KeyThreshold      = "threshold"
	KeyVerbose        = "verbose"
	KeySaveName       = "save_name"
	KeySaveFreq       = "save_freq"
	KeyCheckpointFreq = "checkpoint_freq"
	KeyRestoreName    = "restore_name"
)

// Dataset section keys.
const (
	KeyFile           = "file"
	KeyType           = "type"
	KeyPos            = "pos"
	KeyNoiseModel     = "noise_model"
	KeyPrecision      = "precision"
	KeySNInit         = "sn_init"
	KeySNMax          = "sn_max"
	KeyNoiseThreshold = "noise_threshold"
	KeyDirect         = "direct"
	KeyTol            = "tol"
)
