package assemble

import (
	"errors"
	"fmt"

	"github.com/mvp-joe/smurffctl/internal/matrix"
	"github.com/mvp-joe/smurffctl/internal/session"
	"github.com/mvp-joe/smurffctl/internal/settings"
)

// ErrPartialNoise indicates a noise_model without all of its numeric companions.
var ErrPartialNoise = errors.New("incomplete noise model")

// ReadSection reads one dataset section into a record tagged with role.
//
// Every key is resolved before the matrix is loaded, so a malformed section
// fails without touching the file. Errors from the reader are returned as-is.
// direct and tol are read for every role; only side information uses them.
func ReadSection(r *settings.Resolver, section string, role session.Role, reader matrix.Reader) (*session.DatasetRecord, error) {
	file, err := settings.Required[string](r, section, KeyFile)
	if err != nil {
		return nil, err
	}

	matrixType, err := settings.Default(r, section, KeyType, "")
	if err != nil {
		return nil, err
	}

	pos, err := settings.IntList(r, section, KeyPos)
	if err != nil {
		return nil, err
	}

	noise, err := BuildNoise(r, section)
	if err != nil {
		return nil, err
	}

	direct, err := settings.Optional[bool](r, section, KeyDirect)
	if err != nil {
		return nil, err
	}

	tol, err := settings.Optional[float64](r, section, KeyTol)
	if err != nil {
		return nil, err
	}

	m, err := reader.Read(file)
	if err != nil {
		return nil, err
	}

	return &session.DatasetRecord{
		Matrix:     m,
		Role:       role,
		MatrixType: matrixType,
		Noise:      noise,
		Positions:  pos,
		Direct:     direct,
		Tolerance:  tol,
	}, nil
}

// BuildNoise reads the noise model of section. It returns nil when
// noise_model is absent; otherwise precision, sn_init, sn_max and
// noise_threshold are all required.
func BuildNoise(r *settings.Resolver, section string) (*session.NoiseSpec, error) {
	kind, ok, err := settings.Lookup[string](r, section, KeyNoiseModel)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	model, err := session.ParseNoiseModel(kind)
	if err != nil {
		return nil, &settings.FieldError{
			Section: section,
			Key:     KeyNoiseModel,
			Value:   kind,
			Err:     fmt.Errorf("%w: %v", settings.ErrInvalidValue, err),
		}
	}

	spec := &session.NoiseSpec{Model: model}
	fields := []struct {
		key string
		dst *float64
	}{
		{KeyPrecision, &spec.Precision},
		{KeySNInit, &spec.SNInit},
		{KeySNMax, &spec.SNMax},
		{KeyNoiseThreshold, &spec.Threshold},
	}
	for _, f := range fields {
		v, err := settings.Required[float64](r, section, f.key)
		if err != nil {
			if errors.Is(err, settings.ErrMissingField) {
				return nil, fmt.Errorf("%w (noise_model %s): %w", ErrPartialNoise, kind, err)
			}
			return nil, err
		}
		*f.dst = v
	}
	return spec, nil
}
