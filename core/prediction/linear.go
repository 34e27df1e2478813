package prediction

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gonum.org/v1/gonum/floats"
)

const featureCount = 4

// LinearModel is a standardized linear regression exported by the offline
// training job: y = coef · ((x - mean) / scale) + intercept.
type LinearModel struct {
	Means        []float64 `json:"feature_means"`
	Scales       []float64 `json:"feature_scales"`
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
}

// LoadLinearModel reads a model file. A missing file yields
// ErrPredictorUnavailable so callers can run without a model.
func LoadLinearModel(path string) (*LinearModel, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s not found", ErrPredictorUnavailable, path)
		}
		return nil, fmt.Errorf("read model: %w", err)
	}
	var m LinearModel
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode model %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks vector sizes and scales.
func (m *LinearModel) Validate() error {
	if len(m.Coefficients) != featureCount {
		return fmt.Errorf("model needs %d coefficients, got %d", featureCount, len(m.Coefficients))
	}
	if len(m.Means) != 0 && len(m.Means) != featureCount {
		return fmt.Errorf("model needs %d feature means, got %d", featureCount, len(m.Means))
	}
	if len(m.Scales) != 0 && len(m.Scales) != featureCount {
		return fmt.Errorf("model needs %d feature scales, got %d", featureCount, len(m.Scales))
	}
	for i, s := range m.Scales {
		if s == 0 {
			return fmt.Errorf("feature scale %d is zero", i)
		}
	}
	return nil
}

// PredictShelfLife evaluates the model.
func (m *LinearModel) PredictShelfLife(f Features) (float64, error) {
	x := f.Vector()
	if len(m.Means) == featureCount {
		floats.Sub(x, m.Means)
	}
	if len(m.Scales) == featureCount {
		floats.Div(x, m.Scales)
	}
	return floats.Dot(m.Coefficients, x) + m.Intercept, nil
}
