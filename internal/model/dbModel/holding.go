package dbModel

import (
	"time"

	"github.com/shopspring/decimal"
)

type Holding struct {
	HoldingID       int64           `db:"holding_id"`
	SnapshotDate    time.Time       `db:"snapshot_date"`
	AssetType       string          `db:"asset_type"`
	Name            string          `db:"name"`
	Symbol          *string         `db:"symbol"`
	ExternalID      *string         `db:"external_id"`
	Units           decimal.Decimal `db:"units"`
	AvgPrice        decimal.Decimal `db:"avg_price"`
	InvestedValue   decimal.Decimal `db:"invested_value"`
	CurrentPrice    decimal.Decimal `db:"current_price"`
	CurrentValue    decimal.Decimal `db:"current_value"`
	UnrealizedPL    decimal.Decimal `db:"unrealized_pl"`
	UnrealizedPLPct decimal.Decimal `db:"unrealized_pl_pct"`
}

type Snapshot struct {
	SnapshotDate        time.Time        `db:"snapshot_date"`
	TotalValue          decimal.Decimal  `db:"total_value"`
	DomesticEquityValue decimal.Decimal  `db:"domestic_equity_value"`
	ForeignEquityValue  decimal.Decimal  `db:"foreign_equity_value"`
	FundValue           decimal.Decimal  `db:"fund_value"`
	CryptoValue         decimal.Decimal  `db:"crypto_value"`
	TotalInvested       decimal.Decimal  `db:"total_invested"`
	TotalPL             decimal.Decimal  `db:"total_pl"`
	TotalPLPct          decimal.Decimal  `db:"total_pl_pct"`
	BenchmarkNifty      *decimal.Decimal `db:"benchmark_nifty"`
	BenchmarkSensex     *decimal.Decimal `db:"benchmark_sensex"`
}

type UploadRecord struct {
	UploadID      int64      `db:"upload_id"`
	UploadedAt    time.Time  `db:"uploaded_at"`
	SnapshotDate  *time.Time `db:"snapshot_date"`
	Filename      string     `db:"filename"`
	AssetType     string     `db:"asset_type"`
	RowCount      int        `db:"row_count"`
	Status        string     `db:"status"`
	FailureReason *string    `db:"failure_reason"`
}
