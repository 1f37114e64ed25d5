package usecase

import (
	"strings"

	"stock_forecast/internal/feature/market/domain/entity"
	"stock_forecast/internal/shared/money"
)

const (
	// DateLayout is the wire format of every date in API responses.
	DateLayout = "2006-01-02"

	defaultCurrency = "USD"
	unknownExchange = "Unknown"
)

// NormalizeQuote builds a Quote from a raw provider answer.
// Change is measured from the first bar's open to the last bar's close.
// An empty bar list yields zero price and zero change.
func NormalizeQuote(symbol string, raw entity.RawQuote) entity.Quote {
	q := entity.Quote{
		Symbol:   strings.ToUpper(symbol),
		Name:     firstNonEmpty(raw.Profile.LongName, raw.Profile.ShortName, symbol),
		Currency: firstNonEmpty(raw.Profile.Currency, defaultCurrency),
	}
	if len(raw.Bars) == 0 {
		return q
	}

	open := raw.Bars[0].Open
	last := raw.Bars[len(raw.Bars)-1].Close
	change := last - open

	q.Price = money.Round2(last)
	q.Change = money.Round2(change)
	q.ChangePercent = money.Round2(money.PercentChange(open, last))
	return q
}

// NormalizeHistory converts ascending bars into the parallel-array history
// shape. Bars sharing a date collapse to the last one.
func NormalizeHistory(bars []entity.Bar) entity.HistorySeries {
	h := entity.HistorySeries{
		Dates:   make([]string, 0, len(bars)),
		Prices:  make([]float64, 0, len(bars)),
		Volumes: make([]int64, 0, len(bars)),
	}
	for _, b := range bars {
		date := b.Time.Format(DateLayout)
		if n := len(h.Dates); n > 0 && h.Dates[n-1] == date {
			h.Prices[n-1] = money.Round2(b.Close)
			h.Volumes[n-1] = b.Volume
			continue
		}
		h.Dates = append(h.Dates, date)
		h.Prices = append(h.Prices, money.Round2(b.Close))
		h.Volumes = append(h.Volumes, b.Volume)
	}
	return h
}

// NormalizeSearch converts a profile into a search hit for query.
func NormalizeSearch(query string, p entity.Profile) entity.SearchResult {
	upper := strings.ToUpper(query)
	return entity.SearchResult{
		Symbol:   firstNonEmpty(p.Symbol, upper),
		Name:     firstNonEmpty(p.LongName, upper),
		Exchange: firstNonEmpty(p.Exchange, unknownExchange),
	}
}

func firstNonEmpty(vs ...string) string {
	for _, v := range vs {
		if v != "" {
			return v
		}
	}
	return ""
}
