package contracts

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RentResolver decides which statutory rent ceiling applies to a ZIP.
// ZIP-level values strictly override county-level values for ZIPs in
// the per-year eligibility set; the two sources are never blended.
type RentResolver interface {
	Resolve(ctx context.Context, zip string, fiscalYear, bedrooms int) (*float64, error)
}

// DemandResolver looks up the 0-100 demand value for a ZIP's metro at
// a given month. Returns nil when the metro labels cannot be joined.
type DemandResolver interface {
	Resolve(ctx context.Context, zip string, month time.Time) (*float64, error)
}

// BatchRequest describes one scoring run.
type BatchRequest struct {
	State       string
	FiscalYear  int
	Bedrooms    []int
	MedianYield float64
	TaxFallback *float64
}

// BatchResult summarizes one scoring run.
type BatchResult struct {
	BatchID      uuid.UUID
	Version      DataVersion
	ZIPCount     int
	Scored       int
	Insufficient int
	Failed       int
}

// ScoreEngine runs the full resolve, calculate, adjust pipeline for a
// batch of ZIPs and persists the resulting records.
type ScoreEngine interface {
	ScoreBatch(ctx context.Context, req BatchRequest) (*BatchResult, error)
}

// Aggregator rolls ZIP records up to a city, county or state figure
// over a version-consistent subset.
type Aggregator interface {
	Aggregate(geoType GeoType, geoKey string, records []*InvestmentScoreRecord, version DataVersion) (*AggregateResult, error)
}
