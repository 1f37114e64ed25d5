// Package entity defines the domain models for the forecast feature.
package entity

import "time"

// ForecastResult is the projected closing-price path for a symbol.
type ForecastResult struct {
	Symbol                 string    `json:"symbol"`
	Dates                  []string  `json:"dates"`  // YYYY-MM-DD, strictly after the last observed day
	Prices                 []float64 `json:"prices"` // same length as Dates
	CurrentPrice           float64   `json:"current_price"`
	PredictedChange        float64   `json:"predicted_change"`
	PredictedChangePercent float64   `json:"predicted_change_percent"`
}

// JobStatus is the lifecycle state of an asynchronous forecast.
type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// Finished reports whether the job reached a terminal state.
func (s JobStatus) Finished() bool {
	return s == JobDone || s == JobFailed
}

// Job tracks one forecast submitted for background execution.
type Job struct {
	ID           string
	Symbol       string
	Days         int
	Status       JobStatus
	Result       *ForecastResult // set when Status is JobDone
	ErrorKind    string          // apperr.Kind name, set when Status is JobFailed
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
