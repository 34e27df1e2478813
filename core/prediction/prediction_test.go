package prediction

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockPredictor(t *testing.T) {
	m := &MockPredictor{Days: 9}
	v, err := m.PredictShelfLife(Features{Temperature: 4, RoadCode: 2})
	require.NoError(t, err)
	assert.Equal(t, 9.0, v)
	require.Len(t, m.Calls(), 1)
	assert.Equal(t, 2, m.Calls()[0].RoadCode)

	boom := errors.New("boom")
	m = &MockPredictor{Err: boom}
	_, err = m.PredictShelfLife(Features{})
	assert.ErrorIs(t, err, boom)
}

func TestLinearModel_Predict(t *testing.T) {
	m := &LinearModel{
		Means:        []float64{4, 50, 0.2, 0},
		Scales:       []float64{2, 10, 0.1, 1},
		Coefficients: []float64{-1, -0.5, -0.5, -0.25},
		Intercept:    12,
	}
	require.NoError(t, m.Validate())
	// standardized: [2, 1, 1, 1]
	v, err := m.PredictShelfLife(Features{Temperature: 8, Humidity: 60, Vibration: 0.3, RoadCode: 1})
	require.NoError(t, err)
	assert.InDelta(t, 12-2-0.5-0.5-0.25, v, 1e-9)
}

func TestLoadLinearModel(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadLinearModel(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, ErrPredictorUnavailable)

	path := filepath.Join(dir, "model.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"coefficients":[0,0,0,0],"intercept":7}`), 0o600))
	m, err := LoadLinearModel(path)
	require.NoError(t, err)
	v, _ := m.PredictShelfLife(Features{Temperature: 30})
	assert.Equal(t, 7.0, v)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"coefficients":[1]}`), 0o600))
	_, err = LoadLinearModel(bad)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrPredictorUnavailable)
}
