package yahooApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/arjundixit/portfolio_tracker/config"
	"github.com/arjundixit/portfolio_tracker/internal/externalApi"
	"github.com/arjundixit/portfolio_tracker/internal/model/yahooModel"
	"github.com/arjundixit/portfolio_tracker/utils"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

type YahooApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *YahooApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.YahooApi.Url).
		SetHeader("User-Agent", "Mozilla/5.0")
	return &YahooApi{client: client}
}

// GetQuote returns the latest regular market price for a chart symbol,
// e.g. "^NSEI" or "AAPL".
func (a *YahooApi) GetQuote(ctx context.Context, symbol string) (yahooModel.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	url := fmt.Sprintf("/v8/finance/chart/%s", symbol)
	params := map[string]string{
		"interval": "1d",
		"range":    "1d",
	}

	slog.Debug("YahooApi.GetQuote request start", slog.String("rqID", rqID), slog.String("symbol", symbol))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParams(params).
		Get(url)

	if err != nil {
		slog.Error("error while dialing YahooApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return yahooModel.Quote{}, err
	}

	rawChart := yahooModel.RawChartResponse{}
	err = json.Unmarshal(resp.Body(), &rawChart)
	if err != nil {
		slog.Error("can't unmarshal response into yahooModel.RawChartResponse", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return yahooModel.Quote{}, err
	}

	quote, err := a.parseRawChart(rawChart)
	if err != nil {
		slog.Error("can't parse chart data", slog.String("err", err.Error()), slog.String("rqID", rqID), slog.String("symbol", symbol))
		return yahooModel.Quote{}, err
	}

	slog.Debug("YahooApi.GetQuote request complete", slog.String("rqID", rqID), slog.String("symbol", symbol))

	return quote, nil
}

// GetRate returns the conversion rate between two currencies using the
// "FROMTO=X" chart pair, e.g. USDINR=X.
func (a *YahooApi) GetRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	quote, err := a.GetQuote(ctx, fmt.Sprintf("%s%s=X", from, to))
	if err != nil {
		return decimal.Decimal{}, err
	}
	return quote.Price, nil
}

func (a *YahooApi) parseRawChart(rawChart yahooModel.RawChartResponse) (yahooModel.Quote, error) {
	if rawChart.Chart.Error != nil {
		if rawChart.Chart.Error.Code == "Not Found" {
			return yahooModel.Quote{}, externalApi.ErrNotFound
		}
		return yahooModel.Quote{}, fmt.Errorf("chart error: %s - %s", rawChart.Chart.Error.Code, rawChart.Chart.Error.Description)
	}

	if len(rawChart.Chart.Result) == 0 {
		return yahooModel.Quote{}, externalApi.ErrNotFound
	}

	meta := rawChart.Chart.Result[0].Meta
	if meta.RegularMarketPrice == 0 {
		return yahooModel.Quote{}, externalApi.ErrNotFound
	}

	return yahooModel.Quote{
		Symbol:   meta.Symbol,
		Currency: meta.Currency,
		Price:    decimal.NewFromFloat(meta.RegularMarketPrice),
		AsOf:     time.Unix(meta.RegularMarketTime, 0).UTC(),
	}, nil
}
