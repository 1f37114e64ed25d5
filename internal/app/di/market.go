// Package di provides dependency injection factories for creating application components.
package di

import (
	"stock_forecast/internal/platform/config"
	"stock_forecast/internal/platform/externalapi/yahoo"
	infrahttp "stock_forecast/internal/platform/http"
	"stock_forecast/internal/shared/ratelimiter"
)

// NewMarket creates a fully configured YahooMarket with HTTP client and settle delay.
func NewMarket(cfg *config.Config) *yahoo.YahooMarket {
	ycfg := yahoo.Config{BaseURL: cfg.Provider.BaseURL, Timeout: cfg.Provider.Timeout}
	httpClient := infrahttp.NewHTTPClient(cfg.Provider.Timeout, cfg.Provider.UserAgent)
	return yahoo.NewYahooMarket(ycfg, httpClient, ratelimiter.NewSettleDelay(cfg.Provider.SettleDelay))
}
