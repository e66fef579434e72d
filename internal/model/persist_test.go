package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/space-weather-forecaster/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoad_FlareReproducesPredictions(t *testing.T) {
	dir := t.TempDir()
	f := engineered(t, 300, []string{domain.ColXRayFlux})
	m := NewFlareClassifier(smallBoostParams())
	ds, err := m.Prepare(f, "")
	require.NoError(t, err)
	require.NoError(t, m.Train(ds.X, ds.Y))

	require.NoError(t, SaveFlare(dir, m))
	assert.FileExists(t, filepath.Join(dir, FlareFile))

	loaded, err := LoadFlare(dir)
	require.NoError(t, err)
	assert.Equal(t, m.Features, loaded.Features)

	want, err := m.Predict(ds.X)
	require.NoError(t, err)
	got, err := loaded.Predict(ds.X)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want.Values, got.Values, 1e-6)
	assert.Equal(t, want.Labels, got.Labels)
}

func TestSaveLoad_RiskReproducesPredictions(t *testing.T) {
	dir := t.TempDir()
	f := engineered(t, 300, []string{domain.ColBz})
	m := NewRiskRegressor(smallBoostParams())
	ds, err := m.Prepare(f, "")
	require.NoError(t, err)
	require.NoError(t, m.Train(ds.X, ds.Y))
	require.NoError(t, SaveRisk(dir, m))

	loaded, err := LoadRisk(dir)
	require.NoError(t, err)
	want, err := m.Predict(ds.X)
	require.NoError(t, err)
	got, err := loaded.Predict(ds.X)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want.Values, got.Values, 1e-6)
}

func TestSaveLoad_StormReproducesPredictions(t *testing.T) {
	dir := t.TempDir()
	cfg := tinyStormConfig()
	cfg.Epochs = 3
	X, y := sineSeries(40, cfg.Lookback)
	m := NewStormForecaster(cfg)
	require.NoError(t, m.Train(X, y))
	require.NoError(t, SaveStorm(dir, m))
	assert.FileExists(t, filepath.Join(dir, StormFile))
	assert.FileExists(t, filepath.Join(dir, StormScalerFile))

	loaded, err := LoadStorm(dir)
	require.NoError(t, err)
	assert.Equal(t, m.Config, loaded.Config)
	want, err := m.Predict(X)
	require.NoError(t, err)
	got, err := loaded.Predict(X)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want.Values, got.Values, 1e-6)
}

func TestSave_UntrainedModels(t *testing.T) {
	dir := t.TempDir()
	assert.ErrorIs(t, SaveFlare(dir, NewFlareClassifier(DefaultBoostParams())), ErrNotTrained)
	assert.ErrorIs(t, SaveRisk(dir, &RiskRegressor{}), ErrNotTrained)
	assert.ErrorIs(t, SaveStorm(dir, NewStormForecaster(DefaultStormConfig())), ErrNotTrained)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadRisk(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open artifact")

	require.NoError(t, os.WriteFile(filepath.Join(dir, FlareFile), []byte("not gzip"), 0o600))
	_, err = LoadFlare(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decompress")
}
