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

var fundDateRe = regexp.MustCompile(`(?i)HOLDINGS AS ON\s+(\d{4})-(\d{2})-(\d{2})`)

var fundSchema = tableSchema{
	anchor: "Scheme Name",
	columns: []column{
		{key: "name", aliases: []string{"Scheme Name"}},
		{key: "folio", aliases: []string{"Folio No."}},
		{key: "units", aliases: []string{"Units"}},
		{key: "invested", aliases: []string{"Invested Value"}},
		{key: "curValue", aliases: []string{"Current Value"}},
		{key: "returns", aliases: []string{"Returns"}},
	},
}

// ParseMutualFund reads a mutual fund holdings statement. Values are already
// in the reporting currency. Per-unit prices are derived from the value
// columns since the export carries no NAV column.
func ParseMutualFund(ctx context.Context, r io.Reader) (res Result, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("ParseMutualFund start", slog.String("rqID", rqID))
	defer func() {
		if err != nil {
			slog.Error("ParseMutualFund failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("ParseMutualFund completed", slog.String("rqID", rqID), slog.Int("rows", len(res.Rows)), slog.Int("rejected", res.Rejected))
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

	snapshotDate, err := findFundSnapshotDate(rows)
	if err != nil {
		return Result{}, err
	}

	headerIdx, colIdx, err := fundSchema.locate(rows)
	if err != nil {
		return Result{}, err
	}

	res.SnapshotDate = snapshotDate

	for _, row := range rows[headerIdx+1:] {
		folio := cellAt(row, colIdx["folio"])
		if folio == "" {
			continue
		}

		units, okUnits := parseDecimal(cellAt(row, colIdx["units"]))
		invested, okInv := parseDecimal(cellAt(row, colIdx["invested"]))
		curValue, okCurV := parseDecimal(cellAt(row, colIdx["curValue"]))
		pl, okPL := parseDecimal(cellAt(row, colIdx["returns"]))
		if !okUnits || !okInv || !okCurV || !okPL || units.IsZero() {
			res.Rejected++
			continue
		}

		res.Rows = append(res.Rows, model.StatementRow{
			Name:          cellAt(row, colIdx["name"]),
			ExternalID:    &folio,
			Units:         units,
			AvgPrice:      invested.Div(units),
			InvestedValue: invested,
			CurrentPrice:  curValue.Div(units),
			CurrentValue:  curValue,
			UnrealizedPL:  pl,
		})
	}

	return res, nil
}

func findFundSnapshotDate(rows [][]string) (time.Time, error) {
	limit := min(dateMarkerScanRows, len(rows))
	for _, row := range rows[:limit] {
		for _, cell := range row {
			m := fundDateRe.FindStringSubmatch(cell)
			if m == nil {
				continue
			}
			date, err := time.Parse(time.DateOnly, fmt.Sprintf("%s-%s-%s", m[1], m[2], m[3]))
			if err != nil {
				return time.Time{}, &FormatError{Reason: fmt.Sprintf("invalid date in marker %q", cell)}
			}
			return date, nil
		}
	}
	return time.Time{}, &FormatError{Reason: "date marker not found", Missing: []string{"HOLDINGS AS ON YYYY-MM-DD"}}
}
