package dbConverter

import (
	"github.com/arjundixit/portfolio_tracker/internal/model"
	"github.com/arjundixit/portfolio_tracker/internal/model/dbModel"
)

func ConvertHolding(h dbModel.Holding) model.Holding {
	return model.Holding{
		SnapshotDate:    h.SnapshotDate,
		AssetType:       model.AssetType(h.AssetType),
		Name:            h.Name,
		Symbol:          h.Symbol,
		ExternalID:      h.ExternalID,
		Units:           h.Units,
		AvgPrice:        h.AvgPrice,
		InvestedValue:   h.InvestedValue,
		CurrentPrice:    h.CurrentPrice,
		CurrentValue:    h.CurrentValue,
		UnrealizedPL:    h.UnrealizedPL,
		UnrealizedPLPct: h.UnrealizedPLPct,
	}
}

func ConvertSnapshot(s dbModel.Snapshot) model.Snapshot {
	return model.Snapshot{
		SnapshotDate:        s.SnapshotDate,
		TotalValue:          s.TotalValue,
		DomesticEquityValue: s.DomesticEquityValue,
		ForeignEquityValue:  s.ForeignEquityValue,
		FundValue:           s.FundValue,
		CryptoValue:         s.CryptoValue,
		TotalInvested:       s.TotalInvested,
		TotalPL:             s.TotalPL,
		TotalPLPct:          s.TotalPLPct,
		BenchmarkNifty:      s.BenchmarkNifty,
		BenchmarkSensex:     s.BenchmarkSensex,
	}
}

func ConvertUploadRecord(u dbModel.UploadRecord) model.UploadRecord {
	return model.UploadRecord{
		UploadedAt:    u.UploadedAt,
		SnapshotDate:  u.SnapshotDate,
		Filename:      u.Filename,
		AssetType:     model.AssetType(u.AssetType),
		RowCount:      u.RowCount,
		Status:        u.Status,
		FailureReason: u.FailureReason,
	}
}
