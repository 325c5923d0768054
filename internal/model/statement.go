package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatementSource identifies the broker export format of an uploaded file.
type StatementSource string

const (
	SourceStocks      StatementSource = "stocks"
	SourceMutualFunds StatementSource = "mutual_funds"
	SourceUSStocks    StatementSource = "us_stocks"
)

// AssetType maps a statement source onto the asset type its rows produce.
func (s StatementSource) AssetType() AssetType {
	switch s {
	case SourceStocks:
		return AssetDomesticEquity
	case SourceMutualFunds:
		return AssetMutualFund
	case SourceUSStocks:
		return AssetForeignEquity
	}
	return ""
}

// StatementRow is one holding candidate parsed out of a statement, still in
// the currency of the source file.
type StatementRow struct {
	Name            string
	Symbol          *string
	ExternalID      *string
	Units           decimal.Decimal
	AvgPrice        decimal.Decimal
	InvestedValue   decimal.Decimal
	CurrentPrice    decimal.Decimal
	CurrentValue    decimal.Decimal
	UnrealizedPL    decimal.Decimal
	UnrealizedPLPct decimal.Decimal
	Currency        string
}

// IngestResult summarizes one completed ingestion call.
type IngestResult struct {
	SnapshotDate time.Time
	AssetType    AssetType
	Accepted     int
	Rejected     int
	RateOrigin   string
	Snapshot     Snapshot
}
