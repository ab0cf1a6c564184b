package override

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mvp-joe/smurffctl/internal/session"
)

// PriorCount is the number of prior types accepted by --prior.
const PriorCount = 2

// RegisterFlags declares one flag per recognized override on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(NameTrain, "", "train data file")
	fs.String(NameTest, "", "test data file")
	fs.String(NameRowFeatures, "", "sparse/dense row features (side information for mode 0)")
	fs.String(NameColFeatures, "", "sparse/dense column features (side information for mode 1)")

	fs.Int(NameVerbose, session.DefaultVerbose, "verbosity level")
	fs.Int(NameNumThreads, 0, "number of threads (0 = engine default)")
	fs.Int64(NameSeed, 0, "random number generator seed")
	fs.StringSlice(NamePrior, nil, "prior type for each dimension of train, e.g. macau,normal; types: "+strings.Join(session.KnownPriors, "|"))
	fs.Int(NameBurnin, 0, "number of samples to discard")
	fs.Int(NameNSamples, 0, "number of samples to collect")
	fs.Int(NameNumLatent, 0, "number of latent dimensions")
	fs.Float64(NameThreshold, 0, "threshold for binary classification and AUC calculation")

	fs.String(NameRestoreFrom, "", "restore the session from a saved .h5 file")
	fs.String(NameSaveName, "", "save model and/or predictions to this .h5 file")
	fs.Int(NameSaveFreq, 0, "save every n iterations (0 = never, -1 = final model)")
	fs.Int(NameCheckpointFreq, 0, "save state every n seconds; only one checkpoint is kept")
}

// FromViper builds overrides from the keys set in v. Flags bound to v count
// only when given on the command line; environment values bound to v count
// as well. Defaults never produce an override.
func FromViper(v *viper.Viper) (*Overrides, error) {
	o := &Overrides{}
	b := binder{v: v}

	o.Train = b.str(NameTrain)
	o.Test = b.str(NameTest)
	o.RowFeatures = b.str(NameRowFeatures)
	o.ColFeatures = b.str(NameColFeatures)

	o.Verbose = b.int(NameVerbose)
	o.NumThreads = b.int(NameNumThreads)
	o.Seed = b.int64(NameSeed)
	o.Priors = b.list(NamePrior)
	o.Burnin = b.int(NameBurnin)
	o.NSamples = b.int(NameNSamples)
	o.NumLatent = b.int(NameNumLatent)
	o.Threshold = b.float(NameThreshold)
	o.RestoreFrom = b.str(NameRestoreFrom)
	o.SaveName = b.str(NameSaveName)
	o.SaveFreq = b.int(NameSaveFreq)
	o.CheckpointFreq = b.int(NameCheckpointFreq)

	if b.err != nil {
		return nil, b.err
	}
	if o.Priors != nil && len(o.Priors) != PriorCount {
		return nil, fmt.Errorf("--%s: %w: expected %d prior types, got %d",
			NamePrior, session.ErrInvalidValue, PriorCount, len(o.Priors))
	}
	return o, nil
}

// binder reads typed values from viper and keeps the first conversion error.
type binder struct {
	v   *viper.Viper
	err error
}

func (b *binder) fail(name string, err error) {
	if b.err == nil {
		b.err = fmt.Errorf("--%s: %w: %v", name, session.ErrInvalidValue, err)
	}
}

func (b *binder) str(name string) *string {
	if !b.v.IsSet(name) {
		return nil
	}
	s, err := cast.ToStringE(b.v.Get(name))
	if err != nil {
		b.fail(name, err)
		return nil
	}
	return &s
}

func (b *binder) int(name string) *int {
	if !b.v.IsSet(name) {
		return nil
	}
	n, err := cast.ToIntE(b.v.Get(name))
	if err != nil {
		b.fail(name, err)
		return nil
	}
	return &n
}

func (b *binder) int64(name string) *int64 {
	if !b.v.IsSet(name) {
		return nil
	}
	n, err := cast.ToInt64E(b.v.Get(name))
	if err != nil {
		b.fail(name, err)
		return nil
	}
	return &n
}

func (b *binder) float(name string) *float64 {
	if !b.v.IsSet(name) {
		return nil
	}
	f, err := cast.ToFloat64E(b.v.Get(name))
	if err != nil {
		b.fail(name, err)
		return nil
	}
	return &f
}

// list accepts a string slice from a flag or a comma-separated string from
// the environment.
func (b *binder) list(name string) []string {
	if !b.v.IsSet(name) {
		return nil
	}
	raw := b.v.Get(name)
	if s, ok := raw.(string); ok {
		raw = strings.Split(s, ",")
	}
	items, err := cast.ToStringSliceE(raw)
	if err != nil {
		b.fail(name, err)
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
