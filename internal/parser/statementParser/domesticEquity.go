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
	"github.com/xuri/excelize/v2"
)

const dateMarkerScanRows = 10

var domesticDateRe = regexp.MustCompile(`(?i)as on\s+(\d{2})-(\d{2})-(\d{4})`)

var domesticSchema = tableSchema{
	anchor: "Stock Name",
	columns: []column{
		{key: "name", aliases: []string{"Stock Name"}},
		{key: "isin", aliases: []string{"ISIN"}},
		{key: "units", aliases: []string{"Quantity"}},
		{key: "avgPrice", aliases: []string{"Average buy price"}},
		{key: "invested", aliases: []string{"Buy value"}},
		{key: "curPrice", aliases: []string{"Closing price"}},
		{key: "curValue", aliases: []string{"Closing value"}},
		{key: "pl", aliases: []string{"Unrealised P&L", "Unrealized P&L"}},
	},
}

// ParseDomesticEquity reads a domestic stock holdings statement. The snapshot
// date comes from an "as on DD-MM-YYYY" marker near the top of the sheet.
// Rows without an ISIN or with non-numeric values are dropped, not errors.
func ParseDomesticEquity(ctx context.Context, r io.Reader) (res Result, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("ParseDomesticEquity start", slog.String("rqID", rqID))
	defer func() {
		if err != nil {
			slog.Error("ParseDomesticEquity failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("ParseDomesticEquity completed", slog.String("rqID", rqID), slog.Int("rows", len(res.Rows)), slog.Int("rejected", res.Rejected))
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

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Result{}, fmt.Errorf("read rows: %w", err)
	}

	if len(rows) == 0 {
		return Result{}, nil
	}

	snapshotDate, err := findDomesticSnapshotDate(rows)
	if err != nil {
		return Result{}, err
	}

	headerIdx, colIdx, err := domesticSchema.locate(rows)
	if err != nil {
		return Result{}, err
	}

	res.SnapshotDate = snapshotDate

	for _, row := range rows[headerIdx+1:] {
		isin := cellAt(row, colIdx["isin"])
		if isin == "" {
			continue
		}

		units, okUnits := parseDecimal(cellAt(row, colIdx["units"]))
		avgPrice, okAvg := parseDecimal(cellAt(row, colIdx["avgPrice"]))
		invested, okInv := parseDecimal(cellAt(row, colIdx["invested"]))
		curPrice, okCurP := parseDecimal(cellAt(row, colIdx["curPrice"]))
		curValue, okCurV := parseDecimal(cellAt(row, colIdx["curValue"]))
		pl, okPL := parseDecimal(cellAt(row, colIdx["pl"]))
		if !okUnits || !okAvg || !okInv || !okCurP || !okCurV || !okPL {
			res.Rejected++
			continue
		}

		res.Rows = append(res.Rows, model.StatementRow{
			Name:          cellAt(row, colIdx["name"]),
			ExternalID:    &isin,
			Units:         units,
			AvgPrice:      avgPrice,
			InvestedValue: invested,
			CurrentPrice:  curPrice,
			CurrentValue:  curValue,
			UnrealizedPL:  pl,
		})
	}

	return res, nil
}

func findDomesticSnapshotDate(rows [][]string) (time.Time, error) {
	limit := min(dateMarkerScanRows, len(rows))
	for _, row := range rows[:limit] {
		for _, cell := range row {
			m := domesticDateRe.FindStringSubmatch(cell)
			if m == nil {
				continue
			}
			date, err := time.Parse("02-01-2006", fmt.Sprintf("%s-%s-%s", m[1], m[2], m[3]))
			if err != nil {
				return time.Time{}, &FormatError{Reason: fmt.Sprintf("invalid date in marker %q", cell)}
			}
			return date, nil
		}
	}
	return time.Time{}, &FormatError{Reason: "date marker not found", Missing: []string{"as on DD-MM-YYYY"}}
}
