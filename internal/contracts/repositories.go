package contracts

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// GeoUnit is reference geography for one ZIP code. Each ZIP belongs to
// exactly one county; city membership lives in a separate mapping.
type GeoUnit struct {
	ZIP        string
	CountyFIPS string
	CountyName string
	State      string
}

// GeoRepository manages ZIP reference geography
type GeoRepository interface {
	GetZIP(ctx context.Context, zip string) (*GeoUnit, error)
	ListByState(ctx context.Context, state string) ([]*GeoUnit, error)
	ListByCounty(ctx context.Context, countyFIPS, state string) ([]*GeoUnit, error)
	ListByCity(ctx context.Context, city, state string) ([]*GeoUnit, error)
	SaveBatch(ctx context.Context, units []*GeoUnit) error
}

// CountyRentCeiling is a county-level statutory rent ceiling row
type CountyRentCeiling struct {
	CountyFIPS string
	State      string
	FiscalYear int
	Bedrooms   int
	Amount     *float64
}

// ZIPRentCeiling is a ZIP-level statutory rent ceiling row, present
// only for ZIPs in designated metro areas
type ZIPRentCeiling struct {
	ZIP        string
	FiscalYear int
	Bedrooms   int
	Amount     *float64
}

// RentRepository manages rent ceilings and the per-year ZIP
// eligibility set
type RentRepository interface {
	GetCountyCeiling(ctx context.Context, countyFIPS, state string, fiscalYear, bedrooms int) (*float64, error)
	GetZIPCeiling(ctx context.Context, zip string, fiscalYear, bedrooms int) (*float64, error)
	IsZIPRentRequired(ctx context.Context, zip string, fiscalYear int) (bool, error)
	SaveCountyBatch(ctx context.Context, ceilings []*CountyRentCeiling) error
	SaveZIPBatch(ctx context.Context, ceilings []*ZIPRentCeiling) error
	SaveZIPRequired(ctx context.Context, zip string, fiscalYear int) error
}

// HomeValueObservation is one point of the monthly home-value series
type HomeValueObservation struct {
	ZIP      string
	Bedrooms int
	Month    time.Time
	Value    float64
}

// HomeValueRepository manages the monthly home-value series
type HomeValueRepository interface {
	GetValue(ctx context.Context, zip string, bedrooms int, month time.Time) (*float64, error)
	GetLatestMonth(ctx context.Context, zip string, bedrooms int) (*time.Time, error)
	SaveBatch(ctx context.Context, observations []*HomeValueObservation) error
}

// TaxRateObservation is one effective tax rate for a ZIP and vintage
type TaxRateObservation struct {
	ZIP     string
	Vintage int
	Rate    float64
}

// TaxRateRepository manages effective property-tax rates by vintage
type TaxRateRepository interface {
	GetRate(ctx context.Context, zip string, vintage int) (*float64, error)
	GetLatestVintage(ctx context.Context, zip string) (*int, error)
	SaveBatch(ctx context.Context, observations []*TaxRateObservation) error
}

// RentIndexObservation carries the metro label used for the demand join
type RentIndexObservation struct {
	ZIP   string
	Month time.Time
	Value float64
	Metro string
}

// DemandIndexObservation is one metro-level demand reading, 0 to 100
type DemandIndexObservation struct {
	Metro string
	Month time.Time
	Value float64
}

// DemandRepository manages the rent-index and demand-index series
type DemandRepository interface {
	GetRentIndex(ctx context.Context, zip string, month time.Time) (*RentIndexObservation, error)
	ListDemandIndexByMonth(ctx context.Context, month time.Time) ([]*DemandIndexObservation, error)
	SaveRentIndexBatch(ctx context.Context, observations []*RentIndexObservation) error
	SaveDemandIndexBatch(ctx context.Context, observations []*DemandIndexObservation) error
}

// YieldRepository manages the externally derived population median
// yield per fiscal year
type YieldRepository interface {
	GetMedianYield(ctx context.Context, fiscalYear int) (*float64, error)
	Save(ctx context.Context, fiscalYear int, medianYield float64) error
}

// ScoreRepository manages computed investment scores
type ScoreRepository interface {
	UpsertBatch(ctx context.Context, records []*InvestmentScoreRecord) error
	GetByKey(ctx context.Context, zip string, bedrooms int, version DataVersion) (*InvestmentScoreRecord, error)
	ListByZIP(ctx context.Context, zip string, fiscalYear int) ([]*InvestmentScoreRecord, error)
	ListByVersion(ctx context.Context, zips []string, bedrooms int, version DataVersion) ([]*InvestmentScoreRecord, error)
	GetLatestVersion(ctx context.Context, fiscalYear int) (*DataVersion, error)
}

// BatchRepository manages recompute run bookkeeping
type BatchRepository interface {
	Create(ctx context.Context, batch *ScoreBatch) error
	Update(ctx context.Context, batch *ScoreBatch) error
	GetByID(ctx context.Context, id uuid.UUID) (*ScoreBatch, error)
	ListRecent(ctx context.Context, limit int) ([]*ScoreBatch, error)
}
