package yahooModel

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawChartResponse mirrors the v8 chart payload, trimmed to the fields we read.
type RawChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				Currency           string  `json:"currency"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type Quote struct {
	Symbol   string
	Currency string
	Price    decimal.Decimal
	AsOf     time.Time
}
