package yahoo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock_forecast/internal/feature/market/domain/entity"
	"stock_forecast/internal/shared/apperr"
)

const chartBody = `{
	"chart": {
		"result": [{
			"meta": {
				"symbol": "AAPL",
				"longName": "Apple Inc.",
				"shortName": "Apple",
				"currency": "USD",
				"exchangeName": "NMS",
				"timezone": "EST",
				"gmtoffset": -18000
			},
			"timestamp": [1736951400, 1736865000, 1736778600],
			"indicators": {
				"quote": [{
					"open":   [150.0, 148.0, null],
					"high":   [155.0, 151.0, null],
					"low":    [149.0, 147.5, null],
					"close":  [154.5, 150.0, null],
					"volume": [1000000, 900000, null]
				}]
			}
		}],
		"error": null
	}
}`

func newTestServer(t *testing.T, status int, body string, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewYahooMarket_Defaults(t *testing.T) {
	t.Parallel()

	m := NewYahooMarket(Config{}, nil, nil)

	require.NotNil(t, m)
	assert.Equal(t, DefaultBaseURL, m.cfg.BaseURL)
	assert.Equal(t, 10*time.Second, m.cfg.Timeout)
	assert.NotNil(t, m.client)
	assert.NotNil(t, m.waiter)
}

func TestYahooMarket_GetHistory_Success(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, http.StatusOK, chartBody, func(r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/AAPL", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		assert.Equal(t, "1mo", r.URL.Query().Get("range"))
	})
	m := NewYahooMarket(Config{BaseURL: srv.URL}, srv.Client(), nil)

	bars, err := m.GetHistory(context.Background(), "AAPL", "1mo")
	require.NoError(t, err)

	// null行はスキップされ、昇順に並ぶ
	require.Len(t, bars, 2)
	assert.True(t, bars[0].Time.Before(bars[1].Time))
	assert.Equal(t, 148.0, bars[0].Open)
	assert.Equal(t, 150.0, bars[0].Close)
	assert.Equal(t, int64(900000), bars[0].Volume)
	assert.Equal(t, 154.5, bars[1].Close)
	assert.Equal(t, "2025-01-15", bars[1].Time.Format("2006-01-02"))
	_, offset := bars[1].Time.Zone()
	assert.Equal(t, -18000, offset)
}

func TestYahooMarket_GetHistory_SameDayKeepsLastBar(t *testing.T) {
	t.Parallel()

	// 2025-01-14 09:30, 2025-01-15 09:30, 2025-01-15 15:59 (EST)
	body := `{"chart":{"result":[{
		"meta":{"symbol":"AAPL","gmtoffset":-18000},
		"timestamp":[1736865000,1736951400,1736974740],
		"indicators":{"quote":[{
			"open":[100,101,101],
			"high":[102,103,104],
			"low":[99,100,100],
			"close":[101,102,103.5],
			"volume":[10,20,35]
		}]}
	}],"error":null}}`
	srv := newTestServer(t, http.StatusOK, body, nil)
	m := NewYahooMarket(Config{BaseURL: srv.URL}, srv.Client(), nil)

	bars, err := m.GetHistory(context.Background(), "AAPL", "1mo")
	require.NoError(t, err)

	require.Len(t, bars, 2)
	assert.Equal(t, "2025-01-14", bars[0].Time.Format(time.DateOnly))
	assert.Equal(t, "2025-01-15", bars[1].Time.Format(time.DateOnly))
	assert.Equal(t, 103.5, bars[1].Close)
	assert.Equal(t, int64(35), bars[1].Volume)
}

func TestCollapseDays_UsesExchangeLocalDate(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("EST", -5*3600)
	// どちらもUTCでは1/16だが、現地日付は1/15と1/16
	bars := []entity.Bar{
		{Time: time.Unix(1736989200, 0).In(loc), Close: 1},
		{Time: time.Unix(1737037800, 0).In(loc), Close: 2},
	}

	got := collapseDays(bars)

	require.Len(t, got, 2)
	assert.Equal(t, 1.0, got[0].Close)
	assert.Equal(t, 2.0, got[1].Close)
}

func TestYahooMarket_GetQuote_Success(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, http.StatusOK, chartBody, func(r *http.Request) {
		assert.Equal(t, "1d", r.URL.Query().Get("range"))
	})
	m := NewYahooMarket(Config{BaseURL: srv.URL}, srv.Client(), nil)

	raw, err := m.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", raw.Profile.Symbol)
	assert.Equal(t, "Apple Inc.", raw.Profile.LongName)
	assert.Equal(t, "Apple", raw.Profile.ShortName)
	assert.Equal(t, "USD", raw.Profile.Currency)
	assert.Equal(t, "NMS", raw.Profile.Exchange)
	assert.Len(t, raw.Bars, 2)
}

func TestYahooMarket_GetQuote_NoBars(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, http.StatusOK, `{"chart":{"result":[{"meta":{"symbol":"AAPL"},"indicators":{"quote":[{}]}}],"error":null}`, nil)
	m := NewYahooMarket(Config{BaseURL: srv.URL}, srv.Client(), nil)

	raw, err := m.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Empty(t, raw.Bars)
}

func TestYahooMarket_GetProfile(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t, http.StatusOK, chartBody, nil)
		m := NewYahooMarket(Config{BaseURL: srv.URL}, srv.Client(), nil)

		p, err := m.GetProfile(context.Background(), "AAPL")
		require.NoError(t, err)
		assert.Equal(t, "AAPL", p.Symbol)
	})

	t.Run("empty meta", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t, http.StatusOK, `{"chart":{"result":[{"meta":{}}],"error":null}`, nil)
		m := NewYahooMarket(Config{BaseURL: srv.URL}, srv.Client(), nil)

		_, err := m.GetProfile(context.Background(), "ZZZZ")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestYahooMarket_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{
			name:    "http 404",
			status:  http.StatusNotFound,
			body:    `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`,
			wantErr: apperr.ErrNotFound,
		},
		{
			name:    "chart error not found with 200",
			status:  http.StatusOK,
			body:    `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`,
			wantErr: apperr.ErrNotFound,
		},
		{
			name:    "empty result set",
			status:  http.StatusOK,
			body:    `{"chart":{"result":[],"error":null}}`,
			wantErr: apperr.ErrNotFound,
		},
		{
			name:    "no rows",
			status:  http.StatusOK,
			body:    `{"chart":{"result":[{"meta":{"symbol":"AAPL"},"timestamp":[]}],"error":null}}`,
			wantErr: apperr.ErrNotFound,
		},
		{
			name:    "rate limited",
			status:  http.StatusTooManyRequests,
			body:    `Too Many Requests`,
			wantErr: apperr.ErrRateLimited,
		},
		{
			name:    "invalid range",
			status:  http.StatusUnprocessableEntity,
			body:    `{"chart":{"result":null,"error":{"code":"Unprocessable Entity","description":"Invalid input - range"}}}`,
			wantErr: apperr.ErrProvider,
		},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			body:    `oops`,
			wantErr: apperr.ErrProvider,
		},
		{
			name:    "other chart error",
			status:  http.StatusOK,
			body:    `{"chart":{"result":null,"error":{"code":"Bad Request","description":"Invalid"}}}`,
			wantErr: apperr.ErrProvider,
		},
		{
			name:    "invalid json",
			status:  http.StatusOK,
			body:    `{not json`,
			wantErr: apperr.ErrProvider,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := newTestServer(t, tt.status, tt.body, nil)
			m := NewYahooMarket(Config{BaseURL: srv.URL}, srv.Client(), nil)

			_, err := m.GetHistory(context.Background(), "AAPL", "1mo")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestYahooMarket_EmptySymbol(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := newTestServer(t, http.StatusOK, chartBody, func(*http.Request) { calls.Add(1) })
	m := NewYahooMarket(Config{BaseURL: srv.URL}, srv.Client(), nil)

	_, err := m.GetHistory(context.Background(), "  ", "1mo")
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
	assert.Zero(t, calls.Load())
}

type countingWaiter struct {
	calls atomic.Int32
	err   error
}

func (w *countingWaiter) Wait(ctx context.Context) error {
	w.calls.Add(1)
	return w.err
}

func TestYahooMarket_WaitsBeforeEachCall(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, http.StatusOK, chartBody, nil)
	w := &countingWaiter{}
	m := NewYahooMarket(Config{BaseURL: srv.URL}, srv.Client(), w)

	_, err := m.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	_, err = m.GetHistory(context.Background(), "AAPL", "5d")
	require.NoError(t, err)

	assert.Equal(t, int32(2), w.calls.Load())
}

func TestYahooMarket_WaitCancelled(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := newTestServer(t, http.StatusOK, chartBody, func(*http.Request) { calls.Add(1) })
	w := &countingWaiter{err: context.Canceled}
	m := NewYahooMarket(Config{BaseURL: srv.URL}, srv.Client(), w)

	_, err := m.GetHistory(context.Background(), "AAPL", "1mo")
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, calls.Load())
}
