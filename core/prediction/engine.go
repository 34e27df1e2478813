package prediction

import "errors"

// ErrPredictorUnavailable reports that no usable model could be loaded.
var ErrPredictorUnavailable = errors.New("shelf-life predictor unavailable")

// Features is the input vector of the learned model, in training order.
type Features struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Vibration   float64 `json:"vibration"`
	RoadCode    int     `json:"road_code"`
}

// Vector returns the features as [temperature, humidity, vibration, road].
func (f Features) Vector() []float64 {
	return []float64{f.Temperature, f.Humidity, f.Vibration, float64(f.RoadCode)}
}

// ShelfLifePredictor estimates the remaining shelf life in days.
type ShelfLifePredictor interface {
	PredictShelfLife(f Features) (float64, error)
}
