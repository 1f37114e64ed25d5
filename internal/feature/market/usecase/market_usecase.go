// Package usecase はマーケットデータ（株価・履歴・銘柄検索）のビジネスロジックを実装します。
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"stock_forecast/internal/feature/market/domain/entity"
	"stock_forecast/internal/platform/cache"
	"stock_forecast/internal/shared/apperr"
)

const (
	// DefaultPeriod は履歴取得のデフォルト期間です。
	DefaultPeriod = "1mo"
	// QuotePeriod は現在値の算出に使う期間です。
	QuotePeriod = "1d"
)

// MarketRepository は外部のマーケットデータプロバイダーを抽象化します。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type MarketRepository interface {
	// GetQuote は銘柄のプロファイルと当日の足を取得します。
	GetQuote(ctx context.Context, symbol string) (entity.RawQuote, error)
	// GetHistory は指定期間の日足を昇順で取得します。データが無い場合はapperr.ErrNotFoundを返します。
	GetHistory(ctx context.Context, symbol, period string) ([]entity.Bar, error)
	// GetProfile は銘柄のプロファイルを取得します。
	GetProfile(ctx context.Context, symbol string) (entity.Profile, error)
}

// MarketUsecase はキャッシュ越しにプロバイダーを呼び出し、レスポンス形状に正規化します。
type MarketUsecase struct {
	market MarketRepository
	memo   *cache.Memo
	ttl    time.Duration
}

// NewMarketUsecase はMarketUsecaseの新しいインスタンスを生成します。ttlが0以下の場合は60秒を使用します。
func NewMarketUsecase(market MarketRepository, memo *cache.Memo, ttl time.Duration) *MarketUsecase {
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	return &MarketUsecase{market: market, memo: memo, ttl: ttl}
}

// GetQuote は銘柄の現在値を返します。当日の足が無い場合はapperr.ErrNotFoundを返します。
func (u *MarketUsecase) GetQuote(ctx context.Context, symbol string) (entity.Quote, error) {
	if strings.TrimSpace(symbol) == "" {
		return entity.Quote{}, fmt.Errorf("symbol is required: %w", apperr.ErrInvalidArgument)
	}
	key := cache.Key("stock", symbol)
	return cache.GetOrCompute(ctx, u.memo, key, u.ttl, func(ctx context.Context) (entity.Quote, error) {
		raw, err := u.market.GetQuote(ctx, symbol)
		if err != nil {
			return entity.Quote{}, err
		}
		if len(raw.Bars) == 0 {
			return entity.Quote{}, fmt.Errorf("quote %s: %w", symbol, apperr.ErrNotFound)
		}
		return NormalizeQuote(symbol, raw), nil
	})
}

// GetHistory は指定期間の終値・出来高の履歴を返します。periodが空の場合は"1mo"を使用します。
func (u *MarketUsecase) GetHistory(ctx context.Context, symbol, period string) (entity.HistorySeries, error) {
	if strings.TrimSpace(symbol) == "" {
		return entity.HistorySeries{}, fmt.Errorf("symbol is required: %w", apperr.ErrInvalidArgument)
	}
	if period == "" {
		period = DefaultPeriod
	}
	key := cache.Key("history", symbol, period)
	return cache.GetOrCompute(ctx, u.memo, key, u.ttl, func(ctx context.Context) (entity.HistorySeries, error) {
		bars, err := u.market.GetHistory(ctx, symbol, period)
		if err != nil {
			return entity.HistorySeries{}, err
		}
		if len(bars) == 0 {
			return entity.HistorySeries{}, fmt.Errorf("history %s %s: %w", symbol, period, apperr.ErrNotFound)
		}
		return NormalizeHistory(bars), nil
	})
}

// Search は完全一致で銘柄を検索します。検索は補助的な機能のため、
// プロバイダーのどんな失敗も空の結果として扱い、エラーを返しません。
func (u *MarketUsecase) Search(ctx context.Context, query string) (results []entity.SearchResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("search lookup panicked", "query", query, "panic", r)
			results = []entity.SearchResult{}
		}
	}()
	if strings.TrimSpace(query) == "" {
		return []entity.SearchResult{}
	}
	p, err := u.market.GetProfile(ctx, query)
	if err != nil {
		slog.Info("search lookup failed", "query", query, "kind", apperr.KindOf(err).String(), "error", err)
		return []entity.SearchResult{}
	}
	if p.Symbol == "" {
		return []entity.SearchResult{}
	}
	return []entity.SearchResult{NormalizeSearch(query, p)}
}
