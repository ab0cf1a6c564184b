package override

import (
	"errors"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/smurffctl/internal/assemble"
	"github.com/mvp-joe/smurffctl/internal/matrix"
	"github.com/mvp-joe/smurffctl/internal/session"
	"github.com/mvp-joe/smurffctl/internal/settings"
)

// Test Plan for the override layer:
// - A CLI value replaces the file value (num_latent 4 -> 8)
// - row-features attaches side information to mode 0, loading the file exactly once
// - col-features attaches to mode 1; train/test replace the file matrices
// - Nothing supplied leaves the description untouched and loads nothing
// - Setter range errors abort and name the offending override
// - Reader errors abort before any setter runs
// - Applying to a handed-off description fails with ErrHandedOff
// - Set() lists supplied names in application order
// - FromViper only picks up flags that were given, plus environment values
// - FromViper rejects a prior list that is not exactly two types and malformed env values

func ptr[T any](v T) *T { return &v }

func assembled(t *testing.T, reader *matrix.MockReader) *session.Description {
	t.Helper()
	reader.Add("train.mtx")
	src, err := settings.LoadBytes("base.ini", []byte(`
[global]
prior_0 = macau
prior_1 = normal
num_latent = 4
burnin = 10
nsamples = 20

[train]
file = train.mtx
type = scarce
`))
	require.NoError(t, err)

	d, err := assemble.New(reader, assemble.WithSaveName(func() string { return "x.h5" })).
		Assemble(settings.NewResolver(src))
	require.NoError(t, err)
	return d
}

func TestApply_ScalarPrecedence(t *testing.T) {
	reader := matrix.NewMockReader()
	d := assembled(t, reader)
	require.Equal(t, 4, d.Params.NumLatent)

	got, err := Apply(d, &Overrides{NumLatent: ptr(8)}, reader)
	require.NoError(t, err)
	assert.Same(t, d, got)
	assert.Equal(t, 8, d.Params.NumLatent)
	assert.Equal(t, session.StateOverridden, d.State())
}

func TestApply_RowFeatures(t *testing.T) {
	reader := matrix.NewMockReader()
	d := assembled(t, reader)
	b := reader.Add("b.mtx")

	_, err := Apply(d, &Overrides{RowFeatures: ptr("b.mtx")}, reader)
	require.NoError(t, err)

	assert.Equal(t, 1, reader.Calls("b.mtx"))
	require.Contains(t, d.SideInfo, 0)
	assert.Same(t, b, d.SideInfo[0].Matrix)
	assert.Equal(t, session.RoleSideInfo, d.SideInfo[0].Role)
	assert.Equal(t, []int{0}, d.SideInfoModes())
}

func TestApply_FileOverrides(t *testing.T) {
	reader := matrix.NewMockReader()
	d := assembled(t, reader)
	reader.Add("other-train.mtx")
	reader.Add("test.mtx")
	reader.Add("cols.mtx")

	_, err := Apply(d, &Overrides{
		Train:       ptr("other-train.mtx"),
		Test:        ptr("test.mtx"),
		ColFeatures: ptr("cols.mtx"),
	}, reader)
	require.NoError(t, err)

	assert.Equal(t, "other-train.mtx", d.Train.Matrix.Path)
	assert.False(t, d.Train.IsScarce(), "train from the command line carries no type tag")
	assert.Equal(t, "test.mtx", d.Test.Matrix.Path)
	assert.Equal(t, []int{1}, d.SideInfoModes())
	for _, p := range []string{"other-train.mtx", "test.mtx", "cols.mtx"} {
		assert.Equal(t, 1, reader.Calls(p), p)
	}
}

func TestApply_AllScalars(t *testing.T) {
	reader := matrix.NewMockReader()
	d := assembled(t, reader)

	_, err := Apply(d, &Overrides{
		Verbose:        ptr(2),
		NumThreads:     ptr(4),
		Seed:           ptr(int64(7)),
		Priors:         []string{"normal", "spikeandslab"},
		Burnin:         ptr(1),
		NSamples:       ptr(2),
		Threshold:      ptr(0.5),
		RestoreFrom:    ptr("old.h5"),
		SaveName:       ptr("new.h5"),
		SaveFreq:       ptr(-1),
		CheckpointFreq: ptr(60),
	}, reader)
	require.NoError(t, err)

	p := d.Params
	assert.Equal(t, 2, p.Verbose)
	assert.Equal(t, 4, *p.NumThreads)
	assert.Equal(t, int64(7), *p.Seed)
	assert.Equal(t, []string{"normal", "spikeandslab"}, p.Priors)
	assert.Equal(t, 1, p.Burnin)
	assert.Equal(t, 2, p.NSamples)
	assert.Equal(t, 0.5, *p.Threshold)
	assert.Equal(t, "old.h5", p.RestoreName)
	assert.Equal(t, "new.h5", p.SaveName)
	assert.Equal(t, -1, *p.SaveFreq)
	assert.Equal(t, 60, *p.CheckpointFreq)
	assert.Equal(t, 4, p.NumLatent, "untouched")
}

func TestApply_NothingSupplied(t *testing.T) {
	reader := matrix.NewMockReader()
	d := assembled(t, reader)
	before := d.Params

	_, err := Apply(d, &Overrides{}, reader)
	require.NoError(t, err)
	_, err = Apply(d, nil, reader)
	require.NoError(t, err)

	assert.Equal(t, before, d.Params)
	assert.Equal(t, session.StateAssembled, d.State())
	assert.Equal(t, 1, reader.Calls("train.mtx"))
}

func TestApply_Errors(t *testing.T) {
	t.Run("setter range check", func(t *testing.T) {
		reader := matrix.NewMockReader()
		d := assembled(t, reader)
		_, err := Apply(d, &Overrides{NumLatent: ptr(0)}, reader)
		require.Error(t, err)
		assert.ErrorIs(t, err, session.ErrInvalidValue)
		assert.Contains(t, err.Error(), "--num-latent")
	})

	t.Run("reader failure", func(t *testing.T) {
		reader := matrix.NewMockReader()
		d := assembled(t, reader)
		boom := errors.New("boom")
		reader.Fail("bad.mtx", boom)

		_, err := Apply(d, &Overrides{Test: ptr("bad.mtx"), NumLatent: ptr(8)}, reader)
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "--test")
		assert.Equal(t, 4, d.Params.NumLatent, "scalars run after files")
	})

	t.Run("handed off", func(t *testing.T) {
		reader := matrix.NewMockReader()
		d := assembled(t, reader)
		require.NoError(t, d.Init())

		_, err := Apply(d, &Overrides{Burnin: ptr(3)}, reader)
		assert.ErrorIs(t, err, session.ErrHandedOff)
	})
}

func TestOverrides_Set(t *testing.T) {
	o := &Overrides{
		SaveName:    ptr("a.h5"),
		Verbose:     ptr(0),
		RowFeatures: ptr("b.mtx"),
		Train:       ptr("t.mtx"),
	}
	assert.Equal(t, []string{NameTrain, NameRowFeatures, NameVerbose, NameSaveName}, o.Set())
	assert.False(t, o.Empty())
	assert.True(t, (&Overrides{}).Empty())

	names := Names()
	assert.Len(t, names, 16)
	assert.Equal(t, NameTrain, names[0])
	assert.Equal(t, NameCheckpointFreq, names[len(names)-1])
}

func newFlagViper(t *testing.T, args ...string) *viper.Viper {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))

	v := viper.New()
	v.SetEnvPrefix("SMURFF")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	require.NoError(t, v.BindPFlags(fs))
	return v
}

func TestFromViper_Flags(t *testing.T) {
	v := newFlagViper(t,
		"--num-latent", "8",
		"--row-features", "b.mtx",
		"--prior", "macau,normal",
		"--seed", "42",
		"--threshold", "0.25",
	)

	o, err := FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, []string{NameRowFeatures, NameSeed, NamePrior, NameNumLatent, NameThreshold}, o.Set())
	assert.Equal(t, 8, *o.NumLatent)
	assert.Equal(t, "b.mtx", *o.RowFeatures)
	assert.Equal(t, []string{"macau", "normal"}, o.Priors)
	assert.Equal(t, int64(42), *o.Seed)
	assert.Equal(t, 0.25, *o.Threshold)
	assert.Nil(t, o.Verbose, "flag default is not an override")
}

func TestFromViper_Env(t *testing.T) {
	t.Setenv("SMURFF_NUM_THREADS", "3")
	t.Setenv("SMURFF_PRIOR", "normal, macau")

	o, err := FromViper(newFlagViper(t))
	require.NoError(t, err)
	assert.Equal(t, 3, *o.NumThreads)
	assert.Equal(t, []string{"normal", "macau"}, o.Priors)
}

func TestFromViper_Invalid(t *testing.T) {
	_, err := FromViper(newFlagViper(t, "--prior", "macau"))
	assert.ErrorIs(t, err, session.ErrInvalidValue)
	assert.Contains(t, err.Error(), "--prior")

	t.Setenv("SMURFF_BURNIN", "lots")
	_, err = FromViper(newFlagViper(t))
	assert.ErrorIs(t, err, session.ErrInvalidValue)
	assert.Contains(t, err.Error(), "--burnin")
}
