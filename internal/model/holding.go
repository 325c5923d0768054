package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type AssetType string

const (
	AssetDomesticEquity AssetType = "domestic_equity"
	AssetForeignEquity  AssetType = "foreign_equity"
	AssetMutualFund     AssetType = "mutual_fund"
	AssetCrypto         AssetType = "crypto"
)

func (t AssetType) Valid() bool {
	switch t {
	case AssetDomesticEquity, AssetForeignEquity, AssetMutualFund, AssetCrypto:
		return true
	}
	return false
}

// Holding is one position in one asset as of one snapshot date. All monetary
// fields are in the reporting currency. Symbol and ExternalID are nil when the
// source format does not carry them (funds have no ticker, foreign equities no
// ISIN) so storage can distinguish absent from empty.
type Holding struct {
	SnapshotDate    time.Time
	AssetType       AssetType
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
}
