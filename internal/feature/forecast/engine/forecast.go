package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"

	"stock_forecast/internal/shared/apperr"
)

// ErrDiverged is returned when training produced non-finite or non-positive
// predictions.
var ErrDiverged = errors.New("engine: model diverged")

// Output holds in-sample fitted values followed by the forecast horizon, in
// ascending date order. Callers that only want the future keep the points
// dated after LastObserved.
type Output struct {
	Points       []Point
	LastObserved time.Time
}

// Forecast trains a fresh model on series and predicts horizon consecutive
// days starting the day after the last observation.
func Forecast(ctx context.Context, series []Point, horizon int, cfg Config) (Output, error) {
	if err := cfg.Validate(); err != nil {
		return Output{}, err
	}
	if horizon < 1 {
		return Output{}, fmt.Errorf("engine: horizon must be >= 1, got %d: %w", horizon, apperr.ErrInvalidArgument)
	}
	if len(series) < cfg.MinObservations {
		return Output{}, fmt.Errorf("engine: %d observations, need %d: %w", len(series), cfg.MinObservations, apperr.ErrInsufficientData)
	}
	for _, p := range series {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			return Output{}, fmt.Errorf("engine: non-finite value on %s: %w", p.Date.Format(time.DateOnly), apperr.ErrInvalidArgument)
		}
		if p.Value <= 0 {
			return Output{}, fmt.Errorf("engine: non-positive value %g on %s: %w", p.Value, p.Date.Format(time.DateOnly), apperr.ErrInvalidArgument)
		}
	}
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}

	start, values := resampleDaily(series)
	n := len(values)
	if n <= cfg.Lags {
		return Output{}, fmt.Errorf("engine: %d distinct days, need more than %d: %w", n, cfg.Lags, apperr.ErrInsufficientData)
	}
	last := start.Add(time.Duration(n-1) * day)
	out := Output{
		Points:       make([]Point, 0, n-cfg.Lags+horizon),
		LastObserved: last,
	}

	logs := make([]float64, n)
	for i, v := range values {
		logs[i] = math.Log(v)
	}
	sc := fitScaler(logs)
	if sc.constant() {
		for t := cfg.Lags; t < n; t++ {
			out.Points = append(out.Points, Point{Date: start.Add(time.Duration(t) * day), Value: values[t]})
		}
		for h := 1; h <= horizon; h++ {
			out.Points = append(out.Points, Point{Date: last.Add(time.Duration(h) * day), Value: values[n-1]})
		}
		return out, nil
	}

	z := sc.transform(logs)
	m := newModel(cfg, n, start.Weekday())
	if err := m.train(ctx, z); err != nil {
		return Output{}, err
	}

	x := make([]float64, cfg.features())
	for t := cfg.Lags; t < n; t++ {
		m.row(x, z[:t], t)
		out.Points = append(out.Points, Point{Date: start.Add(time.Duration(t) * day), Value: math.Exp(sc.inverse(m.predict(x)))})
	}

	// 再帰予測は学習範囲をその幅だけ広げた帯に収める（トレンドの暴走防止）
	zlo, zhi := floats.Min(z), floats.Max(z)
	lo, hi := zlo-(zhi-zlo), zhi+(zhi-zlo)

	// 予測値を次の入力として再帰的に使う
	buf := make([]float64, n, n+horizon)
	copy(buf, z)
	for h := 1; h <= horizon; h++ {
		t := n - 1 + h
		m.row(x, buf, t)
		yhat := m.predict(x)
		if math.IsNaN(yhat) {
			return Output{}, ErrDiverged
		}
		yhat = math.Min(math.Max(yhat, lo), hi)
		buf = append(buf, yhat)
		out.Points = append(out.Points, Point{Date: last.Add(time.Duration(h) * day), Value: math.Exp(sc.inverse(yhat))})
	}

	for _, p := range out.Points {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) || p.Value <= 0 {
			return Output{}, ErrDiverged
		}
	}
	return out, nil
}
