package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"stock_forecast/internal/feature/market/domain/entity"
	"stock_forecast/internal/feature/market/usecase"
	"stock_forecast/internal/platform/externalapi/yahoo/dto"
	"stock_forecast/internal/shared/apperr"
	"stock_forecast/internal/shared/ratelimiter"
)

// quoteRange は現在値の算出に使う期間です。
const quoteRange = usecase.QuotePeriod

// notFoundCode はchart APIが未知の銘柄に返すエラーコードです。
const notFoundCode = "Not Found"

// YahooMarket はYahoo Finance chart APIから株価データを取得するMarketRepository実装です。
type YahooMarket struct {
	cfg    Config
	client *http.Client
	waiter ratelimiter.Waiter
}

// YahooMarketがMarketRepositoryを実装していることをコンパイル時に検証します。
var _ usecase.MarketRepository = (*YahooMarket)(nil)

// NewYahooMarket は指定された設定とHTTPクライアントでYahooMarketの新しいインスタンスを生成します。
// waiterがnilの場合は待機しません。
func NewYahooMarket(cfg Config, client *http.Client, waiter ratelimiter.Waiter) *YahooMarket {
	cfg = cfg.withDefaults()
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if waiter == nil {
		waiter = ratelimiter.NoWait{}
	}
	return &YahooMarket{cfg: cfg, client: client, waiter: waiter}
}

// GetQuote は銘柄のプロファイルと当日の足を取得します。
func (y *YahooMarket) GetQuote(ctx context.Context, symbol string) (entity.RawQuote, error) {
	res, err := y.fetchChart(ctx, symbol, quoteRange)
	if err != nil {
		return entity.RawQuote{}, err
	}
	bars, err := toBars(res)
	if err != nil {
		return entity.RawQuote{}, err
	}
	return entity.RawQuote{Profile: toProfile(res.Meta), Bars: bars}, nil
}

// GetHistory は指定期間の日足を昇順で取得します。
// periodは検証せずそのまま渡します（不正な値はプロバイダー側でエラーになります）。
func (y *YahooMarket) GetHistory(ctx context.Context, symbol, period string) ([]entity.Bar, error) {
	res, err := y.fetchChart(ctx, symbol, period)
	if err != nil {
		return nil, err
	}
	bars, err := toBars(res)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("yahoo: %s %s: %w", symbol, period, apperr.ErrNotFound)
	}
	return bars, nil
}

// GetProfile は銘柄のプロファイルを取得します。
func (y *YahooMarket) GetProfile(ctx context.Context, symbol string) (entity.Profile, error) {
	res, err := y.fetchChart(ctx, symbol, quoteRange)
	if err != nil {
		return entity.Profile{}, err
	}
	if res.Meta.Symbol == "" {
		return entity.Profile{}, fmt.Errorf("yahoo: %s: empty profile: %w", symbol, apperr.ErrNotFound)
	}
	return toProfile(res.Meta), nil
}

// fetchChart はchart APIを1回呼び出し、最初の結果を返します。
func (y *YahooMarket) fetchChart(ctx context.Context, symbol, period string) (dto.ChartResult, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return dto.ChartResult{}, fmt.Errorf("yahoo: empty symbol: %w", apperr.ErrInvalidArgument)
	}

	// プロバイダーのスロットリングを避けるため、呼び出し前に待機
	if err := y.waiter.Wait(ctx); err != nil {
		return dto.ChartResult{}, err
	}

	q := url.Values{}
	q.Set("interval", "1d")
	q.Set("range", period)
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", strings.TrimRight(y.cfg.BaseURL, "/"), url.PathEscape(symbol), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return dto.ChartResult{}, fmt.Errorf("yahoo: build request: %w: %v", apperr.ErrProvider, err)
	}

	res, err := y.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return dto.ChartResult{}, ctx.Err()
		}
		return dto.ChartResult{}, fmt.Errorf("yahoo: %w: %v", apperr.ErrProvider, err)
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	switch {
	case res.StatusCode == http.StatusTooManyRequests:
		return dto.ChartResult{}, fmt.Errorf("yahoo http %d: %w", res.StatusCode, apperr.ErrRateLimited)
	case res.StatusCode == http.StatusNotFound:
		return dto.ChartResult{}, fmt.Errorf("yahoo http %d: %s: %w", res.StatusCode, symbol, apperr.ErrNotFound)
	case res.StatusCode >= 400:
		// 本文は診断用にだけ読む
		b, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		slog.Warn("yahoo request failed", "symbol", symbol, "range", period, "status", res.StatusCode, "body", string(b))
		return dto.ChartResult{}, fmt.Errorf("yahoo http %d: %w", res.StatusCode, apperr.ErrProvider)
	}

	// JSONレスポンスをDTOにデコード
	var body dto.ChartResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return dto.ChartResult{}, fmt.Errorf("yahoo decode: %w: %v", apperr.ErrProvider, err)
	}
	if e := body.Chart.Error; e != nil {
		if e.Code == notFoundCode {
			return dto.ChartResult{}, fmt.Errorf("yahoo: %s: %w", e.Description, apperr.ErrNotFound)
		}
		return dto.ChartResult{}, fmt.Errorf("yahoo: %s: %s: %w", e.Code, e.Description, apperr.ErrProvider)
	}
	if len(body.Chart.Result) == 0 {
		return dto.ChartResult{}, fmt.Errorf("yahoo: %s: empty result: %w", symbol, apperr.ErrNotFound)
	}
	return body.Chart.Result[0], nil
}

func toProfile(m dto.ChartMeta) entity.Profile {
	return entity.Profile{
		Symbol:    m.Symbol,
		LongName:  m.LongName,
		ShortName: m.ShortName,
		Currency:  m.Currency,
		Exchange:  m.ExchangeName,
	}
}

// toBars は並列配列をBarに変換します。欠損値を含む足はスキップし、昇順に並べます。
func toBars(r dto.ChartResult) ([]entity.Bar, error) {
	if len(r.Timestamp) == 0 {
		return []entity.Bar{}, nil
	}
	if len(r.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo: missing quote indicators: %w", apperr.ErrProvider)
	}
	q := r.Indicators.Quote[0]
	loc := time.FixedZone(r.Meta.Timezone, r.Meta.GMTOffset)

	bars := make([]entity.Bar, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		o, h, l, c := at(q.Open, i), at(q.High, i), at(q.Low, i), at(q.Close, i)
		if o == nil || h == nil || l == nil || c == nil {
			continue
		}
		var vol int64
		if i < len(q.Volume) && q.Volume[i] != nil {
			vol = *q.Volume[i]
		}
		bars = append(bars, entity.Bar{
			Time:   time.Unix(ts, 0).In(loc),
			Open:   *o,
			High:   *h,
			Low:    *l,
			Close:  *c,
			Volume: vol,
		})
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return collapseDays(bars), nil
}

// collapseDays keeps the last bar of each exchange-local calendar day. Yahoo
// may append a live intraday row next to the day's regular bar.
func collapseDays(bars []entity.Bar) []entity.Bar {
	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && sameDay(out[n-1].Time, b.Time) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func at(s []*float64, i int) *float64 {
	if i >= len(s) {
		return nil
	}
	return s[i]
}
