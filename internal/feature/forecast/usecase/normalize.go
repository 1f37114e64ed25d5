package usecase

import (
	"strings"

	"stock_forecast/internal/feature/forecast/domain/entity"
	"stock_forecast/internal/feature/forecast/engine"
	"stock_forecast/internal/shared/money"
)

// dateLayout は予測日付のフォーマットです。
const dateLayout = "2006-01-02"

// NormalizeForecast はエンジン出力から将来分だけを取り出し、レスポンス形状に整えます。
// 変化量と変化率は丸める前の値から計算し、最後に小数第2位へ丸めます。
func NormalizeForecast(symbol string, lastClose float64, out engine.Output) entity.ForecastResult {
	res := entity.ForecastResult{
		Symbol:       strings.ToUpper(symbol),
		Dates:        []string{},
		Prices:       []float64{},
		CurrentPrice: money.Round2(lastClose),
	}

	var lastPred float64
	for _, p := range out.Points {
		// 学習期間の当てはめ値は捨てる
		if !p.Date.After(out.LastObserved) {
			continue
		}
		res.Dates = append(res.Dates, p.Date.Format(dateLayout))
		res.Prices = append(res.Prices, money.Round2(p.Value))
		lastPred = p.Value
	}
	if len(res.Prices) == 0 {
		return res
	}

	change := lastPred - lastClose
	res.PredictedChange = money.Round2(change)
	res.PredictedChangePercent = money.Round2(money.PercentChange(lastClose, lastPred))
	return res
}
