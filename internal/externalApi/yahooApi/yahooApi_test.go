package yahooApi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/arjundixit/portfolio_tracker/config"
	"github.com/arjundixit/portfolio_tracker/internal/externalApi"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApi(t *testing.T, handler http.HandlerFunc) *YahooApi {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{
		API: config.API{
			Timeout:  5 * time.Second,
			YahooApi: config.YahooApi{Url: server.URL},
		},
	}

	return New(cfg)
}

func TestGetQuote(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/USDINR=X", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"chart": {
				"result": [{
					"meta": {
						"symbol": "USDINR=X",
						"currency": "INR",
						"regularMarketPrice": 90.17,
						"regularMarketTime": 1710489600
					}
				}],
				"error": null
			}
		}`))
	})

	quote, err := api.GetQuote(context.Background(), "USDINR=X")
	require.NoError(t, err)

	assert.Equal(t, "USDINR=X", quote.Symbol)
	assert.Equal(t, "INR", quote.Currency)
	assert.True(t, quote.Price.Equal(decimal.NewFromFloat(90.17)))
	assert.Equal(t, time.Unix(1710489600, 0).UTC(), quote.AsOf)
}

func TestGetRate_BuildsPairSymbol(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/USDINR=X", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"chart":{"result":[{"meta":{"symbol":"USDINR=X","currency":"INR","regularMarketPrice":83.42,"regularMarketTime":1710489600}}],"error":null}}`))
	})

	rate, err := api.GetRate(context.Background(), "USD", "INR")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromFloat(83.42)))
}

func TestGetQuote_EmptyResult(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"chart":{"result":[],"error":null}}`))
	})

	_, err := api.GetQuote(context.Background(), "NOPE")
	assert.ErrorIs(t, err, externalApi.ErrNotFound)
}

func TestGetQuote_NotFoundError(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	})

	_, err := api.GetQuote(context.Background(), "DELISTED")
	assert.ErrorIs(t, err, externalApi.ErrNotFound)
}
