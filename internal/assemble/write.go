package assemble

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/mvp-joe/smurffctl/internal/session"
)

// ErrNoMatrixPath indicates a dataset whose matrix was not loaded from a file
// and therefore cannot be referenced from a settings file.
var ErrNoMatrixPath = errors.New("matrix has no source path")

// WriteOptions serializes d in the settings layout Assemble reads, so the
// written file assembles back into an equivalent description.
func WriteOptions(w io.Writer, d *session.Description) error {
	f, err := buildOptions(d)
	if err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}

// SaveOptions writes d to path, creating parent directories as needed.
func SaveOptions(path string, d *session.Description) error {
	f, err := buildOptions(d)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create options directory: %w", err)
	}
	if err := f.SaveTo(path); err != nil {
		return fmt.Errorf("failed to write options file %s: %w", path, err)
	}
	return nil
}

func buildOptions(d *session.Description) (*ini.File, error) {
	f := ini.Empty()
	p := d.Params

	g, err := f.NewSection(SectionGlobal)
	if err != nil {
		return nil, err
	}
	kv := &keyWriter{sec: g}
	for i, prior := range p.Priors {
		kv.set(priorKeyPrefix+strconv.Itoa(i), prior)
	}
	kv.set(KeyNumLatent, strconv.Itoa(p.NumLatent))
	if p.NumThreads != nil {
		kv.set(KeyNumThreads, strconv.Itoa(*p.NumThreads))
	}
	kv.set(KeyBurnin, strconv.Itoa(p.Burnin))
	kv.set(KeyNSamples, strconv.Itoa(p.NSamples))
	kv.set(KeySeedSet, strconv.FormatBool(p.Seed != nil))
	if p.Seed != nil {
		kv.set(KeySeed, strconv.FormatInt(*p.Seed, 10))
	}
	kv.set(KeyClassify, strconv.FormatBool(p.Threshold != nil))
	if p.Threshold != nil {
		kv.set(KeyThreshold, formatFloat(*p.Threshold))
	}
	kv.set(KeyVerbose, strconv.Itoa(p.Verbose))
	kv.set(KeySaveName, p.SaveName)
	if p.SaveFreq != nil {
		kv.set(KeySaveFreq, strconv.Itoa(*p.SaveFreq))
	}
	if p.CheckpointFreq != nil {
		kv.set(KeyCheckpointFreq, strconv.Itoa(*p.CheckpointFreq))
	}
	if p.RestoreName != "" {
		kv.set(KeyRestoreName, p.RestoreName)
	}
	if kv.err != nil {
		return nil, kv.err
	}

	if d.Train != nil {
		if err := writeRecord(f, SectionTrain, d.Train); err != nil {
			return nil, err
		}
	}
	if d.Test != nil {
		if err := writeRecord(f, SectionTest, d.Test); err != nil {
			return nil, err
		}
	}
	for _, mode := range d.SideInfoModes() {
		if err := writeRecord(f, SideInfoSection(mode), d.SideInfo[mode]); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func writeRecord(f *ini.File, section string, rec *session.DatasetRecord) error {
	if rec.Matrix == nil || rec.Matrix.Path == "" {
		return fmt.Errorf("%w: section %s", ErrNoMatrixPath, section)
	}
	sec, err := f.NewSection(section)
	if err != nil {
		return err
	}

	kv := &keyWriter{sec: sec}
	kv.set(KeyFile, rec.Matrix.Path)
	if rec.MatrixType != "" {
		kv.set(KeyType, rec.MatrixType)
	}
	if len(rec.Positions) > 0 {
		parts := make([]string, len(rec.Positions))
		for i, p := range rec.Positions {
			parts[i] = strconv.Itoa(p)
		}
		kv.set(KeyPos, strings.Join(parts, ","))
	}
	if n := rec.Noise; n != nil {
		kv.set(KeyNoiseModel, string(n.Model))
		kv.set(KeyPrecision, formatFloat(n.Precision))
		kv.set(KeySNInit, formatFloat(n.SNInit))
		kv.set(KeySNMax, formatFloat(n.SNMax))
		kv.set(KeyNoiseThreshold, formatFloat(n.Threshold))
	}
	if rec.Direct != nil {
		kv.set(KeyDirect, strconv.FormatBool(*rec.Direct))
	}
	if rec.Tolerance != nil {
		kv.set(KeyTol, formatFloat(*rec.Tolerance))
	}
	return kv.err
}

// keyWriter keeps the first error from a run of NewKey calls.
type keyWriter struct {
	sec *ini.Section
	err error
}

func (w *keyWriter) set(key, value string) {
	if w.err != nil {
		return
	}
	_, w.err = w.sec.NewKey(key, value)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
