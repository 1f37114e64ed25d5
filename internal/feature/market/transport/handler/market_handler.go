// Package handler はmarketフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"stock_forecast/internal/feature/market/domain/entity"
	"stock_forecast/internal/feature/market/transport/http/dto"
	"stock_forecast/internal/feature/market/usecase"
	"stock_forecast/internal/platform/http/httperr"
	"stock_forecast/internal/shared/apperr"
)

// MarketUsecase はマーケットデータ取得のユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type MarketUsecase interface {
	GetQuote(ctx context.Context, symbol string) (entity.Quote, error)
	GetHistory(ctx context.Context, symbol, period string) (entity.HistorySeries, error)
	Search(ctx context.Context, query string) []entity.SearchResult
}

// MarketHandler は株価・履歴・検索のHTTPリクエストを処理します。
type MarketHandler struct {
	uc MarketUsecase
}

// NewMarketHandler はMarketHandlerの新しいインスタンスを生成します。
func NewMarketHandler(uc MarketUsecase) *MarketHandler {
	return &MarketHandler{uc: uc}
}

// GetQuote は銘柄の現在値をJSONで返します。
//
// エンドポイント例:
// GET /api/stock/:symbol
func (h *MarketHandler) GetQuote(c *gin.Context) {
	symbol := c.Param("symbol")

	q, err := h.uc.GetQuote(c.Request.Context(), symbol)
	if err != nil {
		status, body := httperr.Response(err, "Stock not found")
		logFailure("quote", symbol, err, status)
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, dto.QuoteResponse{
		Symbol:        q.Symbol,
		Name:          q.Name,
		Price:         q.Price,
		Currency:      q.Currency,
		Change:        q.Change,
		ChangePercent: q.ChangePercent,
	})
}

// GetHistory は銘柄の価格履歴をJSONで返します。
//
// エンドポイント例:
// GET /api/history/:symbol?period=1mo
func (h *MarketHandler) GetHistory(c *gin.Context) {
	symbol := c.Param("symbol")
	// 未指定の場合はデフォルト値を使用
	period := c.DefaultQuery("period", usecase.DefaultPeriod)

	hist, err := h.uc.GetHistory(c.Request.Context(), symbol, period)
	if err != nil {
		status, body := httperr.Response(err, "No historical data found")
		logFailure("history", symbol, err, status)
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, dto.HistoryResponse{
		Dates:   hist.Dates,
		Prices:  hist.Prices,
		Volumes: hist.Volumes,
	})
}

// Search は銘柄を検索します。検索は失敗しても常に200を返します。
//
// エンドポイント例:
// GET /api/search/:query
func (h *MarketHandler) Search(c *gin.Context) {
	results := h.uc.Search(c.Request.Context(), c.Param("query"))

	out := make([]dto.SearchItem, 0, len(results))
	for _, r := range results {
		out = append(out, dto.SearchItem{Symbol: r.Symbol, Name: r.Name, Exchange: r.Exchange})
	}
	c.JSON(http.StatusOK, dto.SearchResponse{Results: out})
}

func logFailure(route, symbol string, err error, status int) {
	attrs := []any{"route", route, "symbol", symbol, "kind", apperr.KindOf(err).String(), "status", status, "error", err}
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", attrs...)
		return
	}
	slog.Warn("request failed", attrs...)
}
