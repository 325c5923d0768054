package standardizer

import (
	"time"

	"github.com/arjundixit/portfolio_tracker/internal/model"
	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	// relative tolerance for units*price against the stated value columns
	relTolerance = decimal.NewFromFloat(1e-2)
)

// ConvertCurrency multiplies every monetary field of a row by the resolved
// rate. Units stay untouched. The P&L percent is recomputed from the
// converted values instead of being scaled, so rounding drift from the
// source file does not compound.
func ConvertCurrency(row model.StatementRow, rate decimal.Decimal) model.StatementRow {
	row.AvgPrice = row.AvgPrice.Mul(rate)
	row.InvestedValue = row.InvestedValue.Mul(rate)
	row.CurrentPrice = row.CurrentPrice.Mul(rate)
	row.CurrentValue = row.CurrentValue.Mul(rate)
	row.UnrealizedPL = row.UnrealizedPL.Mul(rate)
	if row.InvestedValue.IsZero() {
		row.UnrealizedPLPct = decimal.Decimal{}
	} else {
		row.UnrealizedPLPct = row.CurrentValue.Sub(row.InvestedValue).Div(row.InvestedValue).Mul(hundred)
	}
	return row
}

// Standardize turns normalized statement rows into canonical holdings for one
// snapshot date. Rows failing the units*price consistency check or carrying
// negative quantities are rejected and counted. P&L is always recomputed as
// currentValue - investedValue.
func Standardize(date time.Time, rows []model.StatementRow, assetType model.AssetType) (holdings []model.Holding, rejected int) {
	holdings = make([]model.Holding, 0, len(rows))

	for _, row := range rows {
		if !valid(row) {
			rejected++
			continue
		}

		pl := row.CurrentValue.Sub(row.InvestedValue)
		plPct := decimal.Decimal{}
		if !row.InvestedValue.IsZero() {
			plPct = pl.Div(row.InvestedValue).Mul(hundred)
		}

		holdings = append(holdings, model.Holding{
			SnapshotDate:    date,
			AssetType:       assetType,
			Name:            row.Name,
			Symbol:          row.Symbol,
			ExternalID:      row.ExternalID,
			Units:           row.Units,
			AvgPrice:        row.AvgPrice,
			InvestedValue:   row.InvestedValue,
			CurrentPrice:    row.CurrentPrice,
			CurrentValue:    row.CurrentValue,
			UnrealizedPL:    pl,
			UnrealizedPLPct: plPct,
		})
	}

	return holdings, rejected
}

func valid(row model.StatementRow) bool {
	if row.Name == "" {
		return false
	}
	if row.Units.IsNegative() {
		return false
	}
	if !consistent(row.Units.Mul(row.AvgPrice), row.InvestedValue) {
		return false
	}
	if !consistent(row.Units.Mul(row.CurrentPrice), row.CurrentValue) {
		return false
	}
	return true
}

// consistent checks |computed - stated| <= relTolerance * |stated|, with an
// absolute bound when the stated value is zero.
func consistent(computed, stated decimal.Decimal) bool {
	diff := computed.Sub(stated).Abs()
	if stated.IsZero() {
		return diff.LessThanOrEqual(relTolerance)
	}
	return diff.LessThanOrEqual(stated.Abs().Mul(relTolerance))
}
