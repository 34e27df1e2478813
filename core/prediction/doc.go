// Package prediction provides the contract for the external shelf-life model.
// Predictions are optional: the estimator degrades to its physics model when
// no predictor is configured or the predictor fails.
package prediction
