package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	forecasthandler "stock_forecast/internal/feature/forecast/transport/handler"
	markethandler "stock_forecast/internal/feature/market/transport/handler"
	"stock_forecast/internal/platform/http/handler"
	"stock_forecast/internal/platform/http/httperr"
)

// Handlers は登録するすべてのハンドラーです。
type Handlers struct {
	Market   *markethandler.MarketHandler
	Forecast *forecasthandler.ForecastHandler
	Health   *handler.HealthHandler
}

// NewRouter はルーティングとミドルウェアを設定したgin.Engineを返します。
// allowOriginsは "http://localhost:*" のようなワイルドカードを含められます。
func NewRouter(h Handlers, allowOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger())
	// パニックはプロセスを落とさず500で返す
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		slog.Error("panic recovered", "path", c.Request.URL.Path, "panic", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, httperr.ErrorResponse{Error: "internal server error"})
	}))
	r.Use(cors.New(cors.Config{
		AllowOrigins:  allowOrigins,
		AllowWildcard: true,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodHead, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Location"},
		MaxAge:        12 * time.Hour,
	}))

	// 導通確認用
	r.GET("/healthz", h.Health.Health)
	r.HEAD("/healthz", h.Health.Health)
	r.OPTIONS("/healthz", h.Health.Health)

	api := r.Group("/api")
	{
		api.GET("/stock/:symbol", h.Market.GetQuote)
		api.GET("/history/:symbol", h.Market.GetHistory)
		api.GET("/search/:query", h.Market.Search)

		api.GET("/predict/:symbol", h.Forecast.Predict)
		api.POST("/predict/:symbol/jobs", h.Forecast.SubmitJob)
		api.GET("/jobs/:id", h.Forecast.GetJob)
	}

	return r
}

// Endpoints は起動ログ用のルート一覧です。
func Endpoints() []string {
	return []string{
		"GET  /api/stock/:symbol          current quote",
		"GET  /api/history/:symbol?period historical prices (default 1mo)",
		"GET  /api/predict/:symbol?days   price forecast (default 7 days)",
		"GET  /api/search/:query          symbol lookup",
		"POST /api/predict/:symbol/jobs   background forecast",
		"GET  /api/jobs/:id               background forecast status",
		"GET  /healthz                    health check",
	}
}
