package statementParser

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func foreignWorkbook(t *testing.T, summaryRows [][]any) io.Reader {
	summary := [][]any{
		{"Security", "Quantity", "Cost Basis (USD)", "Market Value (USD)", "Profit/Loss (USD)", "Profit/Loss (%)", "Market Price (USD)"},
	}
	summary = append(summary, summaryRows...)

	return buildWorkbook(t, map[string][][]any{
		"User Details": {
			{"Account", "U1234567"},
			{"Period", "2024-01-01 to 2024-03-15"},
		},
		// real exports carry the trailing space in the sheet name
		"Unrealized P&L - Summary ": summary,
	})
}

func TestParseForeignEquity(t *testing.T) {
	r := foreignWorkbook(t, [][]any{
		{"AAPL", "5", "750.00", "850.00", "100.00", "13.33", "170.00"},
	})

	res, err := ParseForeignEquity(context.Background(), r)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), res.SnapshotDate, "snapshot date is the period end date")
	require.Len(t, res.Rows, 1)

	row := res.Rows[0]
	require.NotNil(t, row.Symbol)
	assert.Equal(t, "AAPL", *row.Symbol)
	assert.Nil(t, row.ExternalID)
	assert.Equal(t, "USD", row.Currency)
	assert.True(t, row.Units.Equal(mustDecimal(t, "5")))
	assert.True(t, row.AvgPrice.Equal(mustDecimal(t, "150")), "avg price derived from cost basis")
	assert.True(t, row.InvestedValue.Equal(mustDecimal(t, "750.00")))
	assert.True(t, row.CurrentPrice.Equal(mustDecimal(t, "170.00")))
	assert.True(t, row.CurrentValue.Equal(mustDecimal(t, "850.00")))
	assert.True(t, row.UnrealizedPL.Equal(mustDecimal(t, "100.00")))
}

func TestParseForeignEquity_DerivesMarketPrice(t *testing.T) {
	summary := [][]any{
		{"Security", "Quantity", "Cost Basis (USD)", "Market Value (USD)", "Profit/Loss (USD)", "Profit/Loss (%)"},
		{"MSFT", "4", "1200.00", "1600.00", "400.00", "33.33"},
	}

	r := buildWorkbook(t, map[string][][]any{
		"User Details":              {{"Period", "2024-01-01 to 2024-06-30"}},
		"Unrealized P&L - Summary ": summary,
	})

	res, err := ParseForeignEquity(context.Background(), r)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.True(t, res.Rows[0].CurrentPrice.Equal(mustDecimal(t, "400")), "market price falls back to marketValue/units")
}

func TestParseForeignEquity_DropsEmptySymbol(t *testing.T) {
	r := foreignWorkbook(t, [][]any{
		{"", "5", "750.00", "850.00", "100.00", "13.33", "170.00"},
		{"AAPL", "5", "750.00", "850.00", "100.00", "13.33", "170.00"},
	})

	res, err := ParseForeignEquity(context.Background(), r)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 1)
	assert.Equal(t, 0, res.Rejected)
}

func TestParseForeignEquity_InvalidPeriod(t *testing.T) {
	r := buildWorkbook(t, map[string][][]any{
		"User Details":              {{"Period", "first quarter"}},
		"Unrealized P&L - Summary ": {{"Security", "Quantity", "Cost Basis (USD)", "Market Value (USD)", "Profit/Loss (USD)", "Profit/Loss (%)"}},
	})

	_, err := ParseForeignEquity(context.Background(), r)

	var formatErr *FormatError
	require.True(t, errors.As(err, &formatErr))
}

func TestParseForeignEquity_MissingSummarySheet(t *testing.T) {
	r := buildWorkbook(t, map[string][][]any{
		"User Details": {{"Period", "2024-01-01 to 2024-03-15"}},
	})

	_, err := ParseForeignEquity(context.Background(), r)

	var formatErr *FormatError
	require.True(t, errors.As(err, &formatErr))
	assert.Contains(t, formatErr.Missing, "Unrealized P&L - Summary")
}
