// Package entity defines the domain models for the market feature.
package entity

import "time"

// Bar represents one OHLCV row of a daily price series.
type Bar struct {
	Time   time.Time // Trading day, in the exchange's local time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Profile is the provider's descriptive metadata for a symbol.
type Profile struct {
	Symbol    string
	LongName  string
	ShortName string
	Currency  string
	Exchange  string
}

// RawQuote is the unnormalized provider answer used to build a Quote:
// the symbol profile plus the bars of the current trading day.
type RawQuote struct {
	Profile Profile
	Bars    []Bar
}

// Quote is the latest price snapshot for a symbol.
type Quote struct {
	Symbol        string
	Name          string
	Price         float64
	Currency      string
	Change        float64
	ChangePercent float64
}

// HistorySeries holds parallel date/close/volume sequences in ascending date order.
type HistorySeries struct {
	Dates   []string
	Prices  []float64
	Volumes []int64
}

// SearchResult is a single symbol match.
type SearchResult struct {
	Symbol   string
	Name     string
	Exchange string
}
