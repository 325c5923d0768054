package xlsxGenerator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/arjundixit/portfolio_tracker/internal/model"
	"github.com/arjundixit/portfolio_tracker/utils"
	"github.com/xuri/excelize/v2"
)

var assetTypeSheets = []struct {
	assetType model.AssetType
	name      string
	color     string
}{
	{model.AssetDomesticEquity, "Domestic Equity", "#cfe2f3"},
	{model.AssetForeignEquity, "Foreign Equity", "#d9ead3"},
	{model.AssetMutualFund, "Mutual Funds", "#f9cb9c"},
	{model.AssetCrypto, "Crypto", "#f4cccc"},
}

type XLSXGenerator struct{}

func New() *XLSXGenerator {
	return &XLSXGenerator{}
}

func (g *XLSXGenerator) Generate(ctx context.Context, overview model.PortfolioOverview) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.Generate"

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	if err := g.fillSummarySheet(f, overview.Snapshot); err != nil {
		return nil, "", err
	}

	for _, sheet := range assetTypeSheets {
		holdings := filterByType(overview.Holdings, sheet.assetType)
		if len(holdings) == 0 {
			continue
		}
		if err := g.fillHoldingsSheet(f, sheet.name, sheet.color, holdings); err != nil {
			return nil, "", err
		}
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		slog.Error("got error while deleting Sheet1", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

func (g *XLSXGenerator) fillSummarySheet(f *excelize.File, snapshot model.Snapshot) error {
	const sheetName = "Summary"

	_, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	if err := f.MergeCell(sheetName, "A1", "B1"); err != nil {
		return err
	}

	f.SetCellValue(sheetName, "A1", fmt.Sprintf("Portfolio as on %s", snapshot.SnapshotDate.Format(time.DateOnly)))

	styleID, err := headerStyle(f, "#cccccc")
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(sheetName, "A1", "A1", styleID); err != nil {
		return fmt.Errorf("apply style: %w", err)
	}

	rows := []struct {
		label string
		value any
	}{
		{"Total value", snapshot.TotalValue.InexactFloat64()},
		{"Total invested", snapshot.TotalInvested.InexactFloat64()},
		{"Total P&L", snapshot.TotalPL.InexactFloat64()},
		{"Total P&L %", snapshot.TotalPLPct.InexactFloat64()},
		{"Domestic equity value", snapshot.DomesticEquityValue.InexactFloat64()},
		{"Foreign equity value", snapshot.ForeignEquityValue.InexactFloat64()},
		{"Mutual fund value", snapshot.FundValue.InexactFloat64()},
		{"Crypto value", snapshot.CryptoValue.InexactFloat64()},
	}

	if snapshot.BenchmarkNifty != nil {
		rows = append(rows, struct {
			label string
			value any
		}{"Nifty 50", snapshot.BenchmarkNifty.InexactFloat64()})
	}
	if snapshot.BenchmarkSensex != nil {
		rows = append(rows, struct {
			label string
			value any
		}{"Sensex", snapshot.BenchmarkSensex.InexactFloat64()})
	}

	for i, row := range rows {
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", i+2), row.label)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", i+2), row.value)
	}

	return nil
}

func (g *XLSXGenerator) fillHoldingsSheet(f *excelize.File, sheetName, color string, holdings []model.Holding) error {
	_, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	if err := f.MergeCell(sheetName, "A1", "I1"); err != nil {
		return err
	}

	f.SetCellValue(sheetName, "A1", sheetName)

	styleID, err := headerStyle(f, color)
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(sheetName, "A1", "A1", styleID); err != nil {
		return fmt.Errorf("apply style: %w", err)
	}

	_ = f.SetCellStr(sheetName, "A2", "name")
	_ = f.SetCellStr(sheetName, "B2", "symbol")
	_ = f.SetCellStr(sheetName, "C2", "identifier")
	_ = f.SetCellStr(sheetName, "D2", "units")
	_ = f.SetCellStr(sheetName, "E2", "avg price")
	_ = f.SetCellStr(sheetName, "F2", "invested")
	_ = f.SetCellStr(sheetName, "G2", "current value")
	_ = f.SetCellStr(sheetName, "H2", "P&L")
	_ = f.SetCellStr(sheetName, "I2", "P&L %")

	for i, h := range holdings {
		row := i + 3
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", row), h.Name)
		if h.Symbol != nil {
			_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", row), *h.Symbol)
		}
		if h.ExternalID != nil {
			_ = f.SetCellStr(sheetName, fmt.Sprintf("C%d", row), *h.ExternalID)
		}
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), h.Units.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), h.AvgPrice.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), h.InvestedValue.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), h.CurrentValue.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), h.UnrealizedPL.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("I%d", row), h.UnrealizedPLPct.InexactFloat64())
	}

	return nil
}

func headerStyle(f *excelize.File, color string) (int, error) {
	return f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{color},
		},
	})
}

func filterByType(holdings []model.Holding, assetType model.AssetType) []model.Holding {
	res := make([]model.Holding, 0, len(holdings))
	for _, h := range holdings {
		if h.AssetType == assetType {
			res = append(res, h)
		}
	}
	return res
}
