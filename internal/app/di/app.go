package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"stock_forecast/internal/app/router"
	forecastadapters "stock_forecast/internal/feature/forecast/adapters"
	forecasthandler "stock_forecast/internal/feature/forecast/transport/handler"
	forecastusecase "stock_forecast/internal/feature/forecast/usecase"
	markethandler "stock_forecast/internal/feature/market/transport/handler"
	marketusecase "stock_forecast/internal/feature/market/usecase"
	"stock_forecast/internal/platform/cache"
	"stock_forecast/internal/platform/config"
	infradb "stock_forecast/internal/platform/db"
	"stock_forecast/internal/platform/http/handler"
	"stock_forecast/internal/platform/scheduler"
	"stock_forecast/internal/platform/workerpool"
)

const (
	// SweepSchedule はインメモリキャッシュの期限切れエントリを掃除する周期です。
	SweepSchedule = "@every 1m"
	// PurgeSchedule は終了済みジョブを削除する周期です。
	PurgeSchedule = "@every 5m"
)

// App は組み立て済みのアプリケーションです。
type App struct {
	Router    *gin.Engine
	Scheduler *scheduler.Scheduler
	Pool      *workerpool.Pool
	Store     cache.Store

	closers []func() error
}

// Build wires every component from cfg.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{}

	// Cache
	store, closeStore := NewCacheStore(ctx, cfg)
	app.Store = store
	app.closers = append(app.closers, closeStore)
	memo := cache.NewMemo(store)

	// Repository
	market := NewMarket(cfg)
	db, err := infradb.OpenInMemory(&forecastadapters.JobModel{})
	if err != nil {
		_ = app.Close(ctx)
		return nil, fmt.Errorf("open job store: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		app.closers = append(app.closers, sqlDB.Close)
	}
	jobRepo := forecastadapters.NewJobRepository(db)

	// Usecase
	app.Pool = workerpool.New(cfg.Forecast.Workers)
	marketUC := marketusecase.NewMarketUsecase(market, memo, cfg.Cache.TTL)
	forecastUC := forecastusecase.NewForecastUsecase(market, jobRepo, app.Pool, forecastusecase.Options{
		MaxDays:    cfg.Forecast.MaxDays,
		JobTimeout: cfg.Forecast.JobTimeout,
	})

	// Scheduler
	app.Scheduler = scheduler.New(30 * time.Second)
	if ms, ok := store.(*cache.MemoryStore); ok {
		if err := app.Scheduler.Register("cache-sweep", SweepSchedule, func(context.Context) error {
			ms.Sweep()
			return nil
		}); err != nil {
			_ = app.Close(ctx)
			return nil, err
		}
	}
	retention := cfg.Forecast.JobRetention
	if err := app.Scheduler.Register("job-purge", PurgeSchedule, func(ctx context.Context) error {
		_, err := forecastUC.PurgeJobs(ctx, retention)
		return err
	}); err != nil {
		_ = app.Close(ctx)
		return nil, err
	}

	// Handler
	app.Router = router.NewRouter(router.Handlers{
		Market:   markethandler.NewMarketHandler(marketUC),
		Forecast: forecasthandler.NewForecastHandler(forecastUC),
		Health:   handler.NewHealthHandler(store),
	}, cfg.Server.AllowOrigins)

	return app, nil
}

// Close stops background work and releases resources. Jobs still running
// when ctx ends are abandoned.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Scheduler != nil {
		errs = append(errs, a.Scheduler.Stop(ctx))
	}
	if a.Pool != nil {
		errs = append(errs, a.Pool.Wait(ctx))
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}
