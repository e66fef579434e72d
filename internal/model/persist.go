package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/pgzip"
)

// Artifact file names under the model directory.
const (
	FlareFile       = "flare_classifier.json.gz"
	StormFile       = "storm_forecaster.json.gz"
	StormScalerFile = "storm_scaler.json.gz"
	RiskFile        = "risk_regressor.json.gz"
)

// SaveFlare writes a trained flare classifier to dir.
func SaveFlare(dir string, m *FlareClassifier) error {
	if m.Booster == nil || !m.Booster.Fitted() {
		return ErrNotTrained
	}
	return writeArtifact(filepath.Join(dir, FlareFile), m)
}

// LoadFlare reads a flare classifier saved by SaveFlare.
func LoadFlare(dir string) (*FlareClassifier, error) {
	m := &FlareClassifier{}
	if err := readArtifact(filepath.Join(dir, FlareFile), m); err != nil {
		return nil, err
	}
	return m, nil
}

// SaveRisk writes a trained risk regressor to dir.
func SaveRisk(dir string, m *RiskRegressor) error {
	if m.Booster == nil || !m.Booster.Fitted() {
		return ErrNotTrained
	}
	return writeArtifact(filepath.Join(dir, RiskFile), m)
}

// LoadRisk reads a risk regressor saved by SaveRisk.
func LoadRisk(dir string) (*RiskRegressor, error) {
	m := &RiskRegressor{}
	if err := readArtifact(filepath.Join(dir, RiskFile), m); err != nil {
		return nil, err
	}
	return m, nil
}

// SaveStorm writes the network and its scaler as two artifacts in dir.
func SaveStorm(dir string, m *StormForecaster) error {
	if m.Net == nil || !m.Scaler.Fitted() {
		return ErrNotTrained
	}
	if err := writeArtifact(filepath.Join(dir, StormFile), m); err != nil {
		return err
	}
	return writeArtifact(filepath.Join(dir, StormScalerFile), &m.Scaler)
}

// LoadStorm reads a forecaster saved by SaveStorm.
func LoadStorm(dir string) (*StormForecaster, error) {
	m := &StormForecaster{}
	if err := readArtifact(filepath.Join(dir, StormFile), m); err != nil {
		return nil, err
	}
	if err := readArtifact(filepath.Join(dir, StormScalerFile), &m.Scaler); err != nil {
		return nil, err
	}
	return m, nil
}

// writeArtifact gzips v as JSON into a temporary file and renames it into
// place, so readers never observe a partial artifact.
func writeArtifact(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	defer os.Remove(tmp.Name())

	zw := pgzip.NewWriter(tmp)
	if err := json.NewEncoder(zw).Encode(v); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := zw.Close(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("compress %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("install artifact: %w", err)
	}
	return nil
}

func readArtifact(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("decompress %s: %w", filepath.Base(path), err)
	}
	defer zr.Close()
	if err := json.NewDecoder(zr).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}
