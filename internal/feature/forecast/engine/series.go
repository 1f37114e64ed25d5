package engine

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

const day = 24 * time.Hour

// Point is one dated observation.
type Point struct {
	Date  time.Time
	Value float64
}

// calendarDay truncates t to midnight UTC of its local calendar date.
func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// resampleDaily maps the series onto consecutive calendar days. Several rows
// on the same day keep the last one; missing days are linearly interpolated
// between their neighbours.
func resampleDaily(series []Point) (start time.Time, values []float64) {
	pts := make([]Point, len(series))
	for i, p := range series {
		pts[i] = Point{Date: calendarDay(p.Date), Value: p.Value}
	}
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].Date.Before(pts[j].Date) })

	// 同日の重複は最後の値を採用
	uniq := pts[:0]
	for _, p := range pts {
		if n := len(uniq); n > 0 && uniq[n-1].Date.Equal(p.Date) {
			uniq[n-1] = p
			continue
		}
		uniq = append(uniq, p)
	}

	start = uniq[0].Date
	last := uniq[len(uniq)-1].Date
	values = make([]float64, int(last.Sub(start)/day)+1)
	for i := 0; i < len(uniq)-1; i++ {
		a, b := uniq[i], uniq[i+1]
		ia := int(a.Date.Sub(start) / day)
		ib := int(b.Date.Sub(start) / day)
		for k := ia; k < ib; k++ {
			frac := float64(k-ia) / float64(ib-ia)
			values[k] = a.Value + frac*(b.Value-a.Value)
		}
	}
	values[len(values)-1] = uniq[len(uniq)-1].Value
	return start, values
}

// scaler standardizes values to zero mean and unit variance.
type scaler struct {
	mean, std float64
}

func fitScaler(values []float64) scaler {
	mean, std := stat.MeanStdDev(values, nil)
	return scaler{mean: mean, std: std}
}

// constant reports whether the series has no usable variance.
func (s scaler) constant() bool {
	return s.std == 0 || math.IsNaN(s.std) || s.std < 1e-12*math.Max(1, math.Abs(s.mean))
}

func (s scaler) transform(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = (v - s.mean) / s.std
	}
	return out
}

func (s scaler) inverse(z float64) float64 {
	return z*s.std + s.mean
}
