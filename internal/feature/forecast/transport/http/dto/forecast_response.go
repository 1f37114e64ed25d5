package dto

import "time"

// Predictions は予測日付と価格の並列配列です。
type Predictions struct {
	Dates  []string  `json:"dates"`
	Prices []float64 `json:"prices"`
}

// ForecastResponse は予測エンドポイントのレスポンスです。
type ForecastResponse struct {
	Symbol                 string      `json:"symbol"`
	Predictions            Predictions `json:"predictions"`
	CurrentPrice           float64     `json:"current_price"`
	PredictedChange        float64     `json:"predicted_change"`
	PredictedChangePercent float64     `json:"predicted_change_percent"`
}

// JobAcceptedResponse はジョブ受付時のレスポンスです。
type JobAcceptedResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// JobError は失敗したジョブの理由です。
type JobError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// JobResponse はジョブ照会のレスポンスです。
type JobResponse struct {
	JobID     string            `json:"job_id"`
	Symbol    string            `json:"symbol"`
	Days      int               `json:"days"`
	Status    string            `json:"status"`
	Result    *ForecastResponse `json:"result,omitempty"`
	Error     *JobError         `json:"error,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
