// Package engine fits a small autoregressive model to a daily closing-price
// series and projects it forward.
//
// The model is linear on standardized log prices: Lags autoregressive terms,
// weekly Fourier seasonality, a linear trend and a bias. It is trained from
// scratch on every call, so results for the same input are deterministic.
package engine

import (
	"fmt"

	"stock_forecast/internal/shared/apperr"
)

// Config controls the model shape and training loop.
type Config struct {
	Lags            int     // autoregressive window in calendar days
	WeeklyOrder     int     // Fourier order of the day-of-week seasonality, 0 disables it
	Epochs          int     // full passes over the training rows
	LearningRate    float64 // peak step size, annealed to zero over training
	BatchSize       int     // rows per gradient step
	MaxGradNorm     float64 // gradients are rescaled to at most this L2 norm
	HuberDelta      float64 // residual size where the loss turns from quadratic to linear
	MinObservations int     // fewer input rows than this is ErrInsufficientData
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		Lags:            14,
		WeeklyOrder:     3,
		Epochs:          50,
		LearningRate:    0.1,
		BatchSize:       32,
		MaxGradNorm:     1.0,
		HuberDelta:      1.0,
		MinObservations: 30,
	}
}

// Validate reports a configuration the trainer cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Lags < 1:
		return fmt.Errorf("engine: lags must be >= 1, got %d: %w", c.Lags, apperr.ErrInvalidArgument)
	case c.WeeklyOrder < 0 || c.WeeklyOrder > 3:
		return fmt.Errorf("engine: weekly order must be in 0..3, got %d: %w", c.WeeklyOrder, apperr.ErrInvalidArgument)
	case c.Epochs < 1:
		return fmt.Errorf("engine: epochs must be >= 1, got %d: %w", c.Epochs, apperr.ErrInvalidArgument)
	case c.LearningRate <= 0:
		return fmt.Errorf("engine: learning rate must be > 0, got %g: %w", c.LearningRate, apperr.ErrInvalidArgument)
	case c.BatchSize < 1:
		return fmt.Errorf("engine: batch size must be >= 1, got %d: %w", c.BatchSize, apperr.ErrInvalidArgument)
	case c.MinObservations <= c.Lags:
		return fmt.Errorf("engine: min observations (%d) must exceed lags (%d): %w", c.MinObservations, c.Lags, apperr.ErrInvalidArgument)
	}
	return nil
}

// features is the width of one design row.
func (c Config) features() int {
	return c.Lags + 2*c.WeeklyOrder + 2 // lags, seasonality, trend, bias
}
