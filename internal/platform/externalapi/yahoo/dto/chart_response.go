package dto

// ChartResponse はYahoo Finance chart APIのレスポンスです。
type ChartResponse struct {
	Chart struct {
		Result []ChartResult `json:"result"`
		Error  *ChartError   `json:"error"`
	} `json:"chart"`
}

// ChartError はchart APIがエラー時に返すオブジェクトです。
type ChartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// ChartResult は1銘柄分のメタデータと時系列です。
type ChartResult struct {
	Meta       ChartMeta `json:"meta"`
	Timestamp  []int64   `json:"timestamp"`
	Indicators struct {
		Quote []QuoteIndicator `json:"quote"`
	} `json:"indicators"`
}

// ChartMeta は銘柄のプロファイル情報です。
type ChartMeta struct {
	Symbol       string `json:"symbol"`
	LongName     string `json:"longName"`
	ShortName    string `json:"shortName"`
	Currency     string `json:"currency"`
	ExchangeName string `json:"exchangeName"`
	Timezone     string `json:"timezone"`
	GMTOffset    int    `json:"gmtoffset"`
}

// QuoteIndicator はOHLCVの並列配列です。休場日などの欠損値はnullになります。
type QuoteIndicator struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}
