// Package usecase は株価予測のビジネスロジックを実装します。
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"stock_forecast/internal/feature/forecast/domain/entity"
	"stock_forecast/internal/feature/forecast/engine"
	marketentity "stock_forecast/internal/feature/market/domain/entity"
	"stock_forecast/internal/shared/apperr"
)

const (
	// HistoryPeriod は学習に使う履歴の期間です。
	HistoryPeriod = "3mo"
	// DefaultDays は予測日数のデフォルト値です。
	DefaultDays = 7
	// DefaultMaxDays は予測日数の上限のデフォルト値です。
	DefaultMaxDays = 90
	// DefaultJobTimeout はバックグラウンド予測1件あたりの制限時間です。
	DefaultJobTimeout = 2 * time.Minute
)

// HistoryRepository は学習用の日足を取得します。
// market.usecase.MarketRepository のサブセットで、同じアダプターが満たします。
type HistoryRepository interface {
	GetHistory(ctx context.Context, symbol, period string) ([]marketentity.Bar, error)
}

// JobRepository はバックグラウンド予測ジョブを保存します。
type JobRepository interface {
	Create(ctx context.Context, job entity.Job) error
	Update(ctx context.Context, job entity.Job) error
	// Get は該当ジョブが無い場合にapperr.ErrNotFoundを返します。
	Get(ctx context.Context, id string) (entity.Job, error)
	// DeleteFinishedBefore は終了済みでupdated_atがbeforeより古いジョブを削除します。
	DeleteFinishedBefore(ctx context.Context, before time.Time) (int64, error)
}

// Pool はCPUを使う学習処理の同時実行数を制限します。
type Pool interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
	Go(fn func())
}

// Options はForecastUsecaseの調整値です。ゼロ値の項目はデフォルトになります。
type Options struct {
	Engine     engine.Config
	MaxDays    int
	JobTimeout time.Duration
}

// ForecastUsecase は履歴を取得し、ワーカープール上でモデルを学習して予測します。
// 予測結果はキャッシュしません。
type ForecastUsecase struct {
	history HistoryRepository
	jobs    JobRepository
	pool    Pool
	opts    Options
	now     func() time.Time
	newID   func() string
}

// NewForecastUsecase はForecastUsecaseの新しいインスタンスを生成します。
func NewForecastUsecase(history HistoryRepository, jobs JobRepository, pool Pool, opts Options) *ForecastUsecase {
	if opts.Engine == (engine.Config{}) {
		opts.Engine = engine.DefaultConfig()
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = DefaultMaxDays
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = DefaultJobTimeout
	}
	return &ForecastUsecase{
		history: history,
		jobs:    jobs,
		pool:    pool,
		opts:    opts,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Predict はsymbolの今後days日分の終値を予測します。
// 履歴が30行未満（0行を含む）の場合はapperr.ErrInsufficientDataを返します。
func (u *ForecastUsecase) Predict(ctx context.Context, symbol string, days int) (entity.ForecastResult, error) {
	if err := u.validate(symbol, days); err != nil {
		return entity.ForecastResult{}, err
	}

	bars, err := u.history.GetHistory(ctx, symbol, HistoryPeriod)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return entity.ForecastResult{}, fmt.Errorf("forecast %s: %w", symbol, apperr.ErrInsufficientData)
		}
		return entity.ForecastResult{}, err
	}
	if len(bars) < u.opts.Engine.MinObservations {
		return entity.ForecastResult{}, fmt.Errorf("forecast %s: %d rows: %w", symbol, len(bars), apperr.ErrInsufficientData)
	}

	series := make([]engine.Point, len(bars))
	for i, b := range bars {
		series[i] = engine.Point{Date: b.Time, Value: b.Close}
	}

	var out engine.Output
	start := time.Now()
	err = u.pool.Do(ctx, func(ctx context.Context) error {
		var ferr error
		out, ferr = engine.Forecast(ctx, series, days, u.opts.Engine)
		return ferr
	})
	if err != nil {
		return entity.ForecastResult{}, err
	}
	slog.Debug("forecast trained", "symbol", symbol, "rows", len(bars), "days", days, "elapsed", time.Since(start))

	return NormalizeForecast(symbol, bars[len(bars)-1].Close, out), nil
}

// SubmitJob は予測をバックグラウンドで開始し、pendingのジョブを返します。
func (u *ForecastUsecase) SubmitJob(ctx context.Context, symbol string, days int) (entity.Job, error) {
	if err := u.validate(symbol, days); err != nil {
		return entity.Job{}, err
	}

	now := u.now()
	job := entity.Job{
		ID:        u.newID(),
		Symbol:    strings.ToUpper(symbol),
		Days:      days,
		Status:    entity.JobPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := u.jobs.Create(ctx, job); err != nil {
		return entity.Job{}, fmt.Errorf("create job: %w", err)
	}

	u.pool.Go(func() { u.runJob(job) })
	return job, nil
}

// GetJob はジョブの現在の状態を返します。
func (u *ForecastUsecase) GetJob(ctx context.Context, id string) (entity.Job, error) {
	if strings.TrimSpace(id) == "" {
		return entity.Job{}, fmt.Errorf("job id is required: %w", apperr.ErrInvalidArgument)
	}
	return u.jobs.Get(ctx, id)
}

// PurgeJobs は保持期間を過ぎた終了済みジョブを削除します。
func (u *ForecastUsecase) PurgeJobs(ctx context.Context, retention time.Duration) (int64, error) {
	return u.jobs.DeleteFinishedBefore(ctx, u.now().Add(-retention))
}

// runJob はリクエストのコンテキストから切り離して実行されます。
func (u *ForecastUsecase) runJob(job entity.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), u.opts.JobTimeout)
	defer cancel()

	job.Status = entity.JobRunning
	job.UpdatedAt = u.now()
	if err := u.jobs.Update(ctx, job); err != nil {
		slog.Error("failed to mark job running", "job_id", job.ID, "error", err)
	}

	res, err := u.Predict(ctx, job.Symbol, job.Days)
	job.UpdatedAt = u.now()
	if err != nil {
		job.Status = entity.JobFailed
		job.ErrorKind = apperr.KindOf(err).String()
		job.ErrorMessage = err.Error()
		slog.Warn("forecast job failed", "job_id", job.ID, "symbol", job.Symbol, "kind", job.ErrorKind, "error", err)
	} else {
		job.Status = entity.JobDone
		job.Result = &res
		slog.Info("forecast job done", "job_id", job.ID, "symbol", job.Symbol, "days", job.Days)
	}

	// 実行用のコンテキストが期限切れでも結果は保存する
	if err := u.jobs.Update(context.WithoutCancel(ctx), job); err != nil {
		slog.Error("failed to store job result", "job_id", job.ID, "error", err)
	}
}

func (u *ForecastUsecase) validate(symbol string, days int) error {
	if strings.TrimSpace(symbol) == "" {
		return fmt.Errorf("symbol is required: %w", apperr.ErrInvalidArgument)
	}
	if days < 1 || days > u.opts.MaxDays {
		return fmt.Errorf("days must be between 1 and %d: %w", u.opts.MaxDays, apperr.ErrInvalidArgument)
	}
	return nil
}
