package statementParser

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"time"

	"github.com/arjundixit/portfolio_tracker/internal/model"
	"github.com/arjundixit/portfolio_tracker/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	userDetailsSheet = "User Details"
	// exported with a trailing space, hence the tolerant lookup below
	plSummarySheet = "Unrealized P&L - Summary"
)

var periodRe = regexp.MustCompile(`to\s+(\d{4})-(\d{2})-(\d{2})`)

var foreignSchema = tableSchema{
	anchor: "Security",
	columns: []column{
		{key: "symbol", aliases: []string{"Security"}},
		{key: "units", aliases: []string{"Quantity"}},
		{key: "invested", aliases: []string{"Cost Basis (USD)"}},
		{key: "curValue", aliases: []string{"Market Value (USD)"}},
		{key: "pl", aliases: []string{"Profit/Loss (USD)"}},
		{key: "plPct", aliases: []string{"Profit/Loss (%)"}},
		{key: "curPrice", aliases: []string{"Market Price (USD)"}, optional: true},
	},
}

// ParseForeignEquity reads a US broker statement workbook. The statement
// period sits on the user details sheet as "YYYY-MM-DD to YYYY-MM-DD" and its
// end date becomes the snapshot date. Positions come from the unrealized P&L
// summary sheet. Values stay in the source currency.
func ParseForeignEquity(ctx context.Context, r io.Reader) (res Result, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("ParseForeignEquity start", slog.String("rqID", rqID))
	defer func() {
		if err != nil {
			slog.Error("ParseForeignEquity failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("ParseForeignEquity completed", slog.String("rqID", rqID), slog.Int("rows", len(res.Rows)), slog.Int("rejected", res.Rejected))
		}
	}()

	f, err := excelize.OpenReader(r)
	if err != nil {
		return Result{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Result{}, nil
	}

	detailsSheet, ok := findSheet(sheets, userDetailsSheet)
	if !ok {
		return Result{}, &FormatError{Reason: "sheet not found", Missing: []string{userDetailsSheet}}
	}

	summarySheet, ok := findSheet(sheets, plSummarySheet)
	if !ok {
		return Result{}, &FormatError{Reason: "sheet not found", Missing: []string{plSummarySheet}}
	}

	detailRows, err := f.GetRows(detailsSheet)
	if err != nil {
		return Result{}, fmt.Errorf("read rows: %w", err)
	}

	snapshotDate, err := findPeriodEndDate(detailRows)
	if err != nil {
		return Result{}, err
	}

	rows, err := f.GetRows(summarySheet)
	if err != nil {
		return Result{}, fmt.Errorf("read rows: %w", err)
	}

	res.SnapshotDate = snapshotDate

	if len(rows) == 0 {
		return res, nil
	}

	headerIdx, colIdx, err := foreignSchema.locate(rows)
	if err != nil {
		return Result{}, err
	}

	for _, row := range rows[headerIdx+1:] {
		symbol := cellAt(row, colIdx["symbol"])
		if symbol == "" {
			continue
		}

		units, okUnits := parseDecimal(cellAt(row, colIdx["units"]))
		invested, okInv := parseDecimal(cellAt(row, colIdx["invested"]))
		curValue, okCurV := parseDecimal(cellAt(row, colIdx["curValue"]))
		pl, okPL := parseDecimal(cellAt(row, colIdx["pl"]))
		plPct, okPLPct := parseDecimal(cellAt(row, colIdx["plPct"]))
		if !okUnits || !okInv || !okCurV || !okPL || !okPLPct || units.IsZero() {
			res.Rejected++
			continue
		}

		curPrice, okCurP := decimalOrZero(row, colIdx, "curPrice")
		if !okCurP {
			curPrice = curValue.Div(units)
		}

		symbolCopy := symbol
		res.Rows = append(res.Rows, model.StatementRow{
			Name:            symbol,
			Symbol:          &symbolCopy,
			Units:           units,
			AvgPrice:        invested.Div(units),
			InvestedValue:   invested,
			CurrentPrice:    curPrice,
			CurrentValue:    curValue,
			UnrealizedPL:    pl,
			UnrealizedPLPct: plPct,
			Currency:        "USD",
		})
	}

	return res, nil
}

func decimalOrZero(row []string, colIdx map[string]int, key string) (d decimal.Decimal, ok bool) {
	idx, present := colIdx[key]
	if !present {
		return decimal.Decimal{}, false
	}
	return parseDecimal(cellAt(row, idx))
}

func findSheet(sheets []string, name string) (string, bool) {
	want := normalizeHeader(name)
	for _, s := range sheets {
		if normalizeHeader(s) == want {
			return s, true
		}
	}
	return "", false
}

func findPeriodEndDate(rows [][]string) (time.Time, error) {
	for _, row := range rows {
		for _, cell := range row {
			m := periodRe.FindStringSubmatch(cell)
			if m == nil {
				continue
			}
			date, err := time.Parse(time.DateOnly, fmt.Sprintf("%s-%s-%s", m[1], m[2], m[3]))
			if err != nil {
				return time.Time{}, &FormatError{Reason: fmt.Sprintf("invalid period end date in %q", cell)}
			}
			return date, nil
		}
	}
	return time.Time{}, &FormatError{Reason: "statement period not found", Missing: []string{"YYYY-MM-DD to YYYY-MM-DD"}}
}
