// Package dto defines data transfer objects for the market HTTP API.
package dto

// QuoteResponse は現在値レスポンスのDTOです。
type QuoteResponse struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	Currency      string  `json:"currency"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
}

// HistoryResponse は価格履歴レスポンスのDTOです。3つの配列は常に同じ長さです。
type HistoryResponse struct {
	Dates   []string  `json:"dates"`
	Prices  []float64 `json:"prices"`
	Volumes []int64   `json:"volumes"`
}

// SearchItem は検索結果1件分のDTOです。
type SearchItem struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
}

// SearchResponse は銘柄検索レスポンスのDTOです。
type SearchResponse struct {
	Results []SearchItem `json:"results"`
}
