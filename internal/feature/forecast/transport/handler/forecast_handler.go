// Package handler はforecastフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"stock_forecast/internal/feature/forecast/domain/entity"
	"stock_forecast/internal/feature/forecast/transport/http/dto"
	"stock_forecast/internal/feature/forecast/usecase"
	"stock_forecast/internal/platform/http/httperr"
	"stock_forecast/internal/shared/apperr"
)

// ForecastUsecase は予測のユースケースインターフェースを定義します。
type ForecastUsecase interface {
	Predict(ctx context.Context, symbol string, days int) (entity.ForecastResult, error)
	SubmitJob(ctx context.Context, symbol string, days int) (entity.Job, error)
	GetJob(ctx context.Context, id string) (entity.Job, error)
}

// ForecastHandler は予測関連のHTTPリクエストを処理します。
type ForecastHandler struct {
	uc ForecastUsecase
}

// NewForecastHandler はForecastHandlerの新しいインスタンスを生成します。
func NewForecastHandler(uc ForecastUsecase) *ForecastHandler {
	return &ForecastHandler{uc: uc}
}

// Predict は銘柄の将来価格を同期的に予測して返します。
//
// エンドポイント例:
// GET /api/predict/:symbol?days=7
func (h *ForecastHandler) Predict(c *gin.Context) {
	symbol := c.Param("symbol")
	days, ok := parseDays(c)
	if !ok {
		return
	}

	res, err := h.uc.Predict(c.Request.Context(), symbol, days)
	if err != nil {
		status, body := httperr.Response(err, "")
		logFailure("predict", symbol, err, status)
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, toForecastResponse(res))
}

// SubmitJob は予測をバックグラウンドで開始し、ジョブIDを返します。
//
// エンドポイント例:
// POST /api/predict/:symbol/jobs?days=30
func (h *ForecastHandler) SubmitJob(c *gin.Context) {
	symbol := c.Param("symbol")
	days, ok := parseDays(c)
	if !ok {
		return
	}

	job, err := h.uc.SubmitJob(c.Request.Context(), symbol, days)
	if err != nil {
		status, body := httperr.Response(err, "")
		logFailure("submit_job", symbol, err, status)
		c.JSON(status, body)
		return
	}

	c.Header("Location", "/api/jobs/"+job.ID)
	c.JSON(http.StatusAccepted, dto.JobAcceptedResponse{JobID: job.ID, Status: string(job.Status)})
}

// GetJob はジョブの状態と、完了していれば結果を返します。
//
// エンドポイント例:
// GET /api/jobs/:id
func (h *ForecastHandler) GetJob(c *gin.Context) {
	id := c.Param("id")

	job, err := h.uc.GetJob(c.Request.Context(), id)
	if err != nil {
		status, body := httperr.Response(err, "Job not found")
		logFailure("job", id, err, status)
		c.JSON(status, body)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, toJobResponse(job))
}

// parseDays はクエリのdaysを読み取ります。整数でない場合は400を書き込んでfalseを返します。
// 範囲の検証はユースケースで行います。
func parseDays(c *gin.Context) (int, bool) {
	raw := c.DefaultQuery("days", strconv.Itoa(usecase.DefaultDays))
	days, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{Error: "days must be an integer"})
		return 0, false
	}
	return days, true
}

func toForecastResponse(r entity.ForecastResult) dto.ForecastResponse {
	return dto.ForecastResponse{
		Symbol:                 r.Symbol,
		Predictions:            dto.Predictions{Dates: r.Dates, Prices: r.Prices},
		CurrentPrice:           r.CurrentPrice,
		PredictedChange:        r.PredictedChange,
		PredictedChangePercent: r.PredictedChangePercent,
	}
}

func toJobResponse(j entity.Job) dto.JobResponse {
	out := dto.JobResponse{
		JobID:     j.ID,
		Symbol:    j.Symbol,
		Days:      j.Days,
		Status:    string(j.Status),
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
	if j.Result != nil {
		r := toForecastResponse(*j.Result)
		out.Result = &r
	}
	if j.Status == entity.JobFailed {
		out.Error = &dto.JobError{Kind: j.ErrorKind, Message: j.ErrorMessage}
	}
	return out
}

func logFailure(route, subject string, err error, status int) {
	attrs := []any{"route", route, "subject", subject, "kind", apperr.KindOf(err).String(), "status", status, "error", err}
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", attrs...)
		return
	}
	slog.Warn("request failed", attrs...)
}
