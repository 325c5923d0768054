package model

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Snapshot is the materialized aggregate over all holdings stored for one
// calendar date. It is always recomputed from the full holding set, never
// edited field by field.
type Snapshot struct {
	SnapshotDate        time.Time
	TotalValue          decimal.Decimal
	DomesticEquityValue decimal.Decimal
	ForeignEquityValue  decimal.Decimal
	FundValue           decimal.Decimal
	CryptoValue         decimal.Decimal
	TotalInvested       decimal.Decimal
	TotalPL             decimal.Decimal
	TotalPLPct          decimal.Decimal
	BenchmarkNifty      *decimal.Decimal
	BenchmarkSensex     *decimal.Decimal
}

// BuildSnapshot aggregates holdings into the snapshot row for date. Benchmark
// fields are left nil, the caller fills them when quotes are available.
func BuildSnapshot(date time.Time, holdings []Holding) Snapshot {
	s := Snapshot{SnapshotDate: date}

	for _, h := range holdings {
		s.TotalValue = s.TotalValue.Add(h.CurrentValue)
		s.TotalInvested = s.TotalInvested.Add(h.InvestedValue)
		s.TotalPL = s.TotalPL.Add(h.UnrealizedPL)

		switch h.AssetType {
		case AssetDomesticEquity:
			s.DomesticEquityValue = s.DomesticEquityValue.Add(h.CurrentValue)
		case AssetForeignEquity:
			s.ForeignEquityValue = s.ForeignEquityValue.Add(h.CurrentValue)
		case AssetMutualFund:
			s.FundValue = s.FundValue.Add(h.CurrentValue)
		case AssetCrypto:
			s.CryptoValue = s.CryptoValue.Add(h.CurrentValue)
		}
	}

	if s.TotalInvested.IsPositive() {
		s.TotalPLPct = s.TotalPL.Div(s.TotalInvested).Mul(hundred)
	}

	return s
}

// PortfolioOverview is what presentation collaborators consume: the snapshot
// aggregate plus the holdings behind it.
type PortfolioOverview struct {
	Snapshot Snapshot
	Holdings []Holding
}
