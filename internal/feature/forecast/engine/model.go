package engine

import (
	"context"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
)

const (
	adamBeta1 = 0.9
	adamBeta2 = 0.999
	adamEps   = 1e-8
)

// model is the linear AR-Net: one weight per design column.
type model struct {
	cfg      Config
	w        []float64
	n        int // length of the training series, fixes the trend scale
	startDow int // weekday of index 0
}

func newModel(cfg Config, n int, start time.Weekday) *model {
	w := make([]float64, cfg.features())
	// 持続予測（直前の値）から学習を始める
	w[0] = 1
	return &model{cfg: cfg, w: w, n: n, startDow: int(start)}
}

// row fills dst with the design row for index t. hist holds the standardized
// values before t; only its last Lags entries are read.
func (m *model) row(dst, hist []float64, t int) {
	i := 0
	for l := 1; l <= m.cfg.Lags; l++ {
		dst[i] = hist[len(hist)-l]
		i++
	}
	dow := float64((m.startDow + t) % 7)
	for k := 1; k <= m.cfg.WeeklyOrder; k++ {
		a := 2 * math.Pi * float64(k) * dow / 7
		dst[i] = math.Sin(a)
		dst[i+1] = math.Cos(a)
		i += 2
	}
	dst[i] = float64(t) / float64(m.n-1)
	dst[i+1] = 1
}

func (m *model) predict(x []float64) float64 {
	return floats.Dot(m.w, x)
}

// train fits the weights to z by mini-batch Adam with a cosine-annealed step
// size and a Huber loss. Rows are visited in chronological order every epoch.
func (m *model) train(ctx context.Context, z []float64) error {
	cfg := m.cfg
	dim := len(m.w)

	rows := len(z) - cfg.Lags
	xs := make([][]float64, rows)
	ys := make([]float64, rows)
	for r := 0; r < rows; r++ {
		t := r + cfg.Lags
		xs[r] = make([]float64, dim)
		m.row(xs[r], z[:t], t)
		ys[r] = z[t]
	}

	batches := (rows + cfg.BatchSize - 1) / cfg.BatchSize
	total := float64(cfg.Epochs * batches)
	grad := make([]float64, dim)
	mom := make([]float64, dim)
	vel := make([]float64, dim)
	step := 0

	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for lo := 0; lo < rows; lo += cfg.BatchSize {
			hi := min(lo+cfg.BatchSize, rows)

			for j := range grad {
				grad[j] = 0
			}
			for r := lo; r < hi; r++ {
				res := huberGrad(m.predict(xs[r])-ys[r], cfg.HuberDelta)
				floats.AddScaled(grad, res, xs[r])
			}
			floats.Scale(1/float64(hi-lo), grad)
			if norm := floats.Norm(grad, 2); cfg.MaxGradNorm > 0 && norm > cfg.MaxGradNorm {
				floats.Scale(cfg.MaxGradNorm/norm, grad)
			}

			lr := cfg.LearningRate * 0.5 * (1 + math.Cos(math.Pi*float64(step)/total))
			step++
			c1 := 1 - math.Pow(adamBeta1, float64(step))
			c2 := 1 - math.Pow(adamBeta2, float64(step))
			for j, g := range grad {
				mom[j] = adamBeta1*mom[j] + (1-adamBeta1)*g
				vel[j] = adamBeta2*vel[j] + (1-adamBeta2)*g*g
				m.w[j] -= lr * (mom[j] / c1) / (math.Sqrt(vel[j]/c2) + adamEps)
			}
		}
	}
	return nil
}

// huberGrad is the derivative of the Huber loss with respect to the residual.
func huberGrad(r, delta float64) float64 {
	if delta <= 0 {
		return r
	}
	return math.Max(-delta, math.Min(delta, r))
}
