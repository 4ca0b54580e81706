package scoring

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rentscope/backend/internal/contracts"
	"github.com/rentscope/backend/pkg/config"
	"github.com/rentscope/backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{LogLevel: "error", LogFormat: "json", Env: "development"})
}

func ptr(v float64) *float64 { return &v }

func month(year int, m time.Month) time.Time {
	return time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)
}

// In-memory repositories backing the pipeline tests.

type fakeGeoRepo struct {
	units map[string]*contracts.GeoUnit
}

func newFakeGeoRepo(units ...*contracts.GeoUnit) *fakeGeoRepo {
	repo := &fakeGeoRepo{units: make(map[string]*contracts.GeoUnit)}
	for _, u := range units {
		repo.units[u.ZIP] = u
	}
	return repo
}

func (f *fakeGeoRepo) GetZIP(_ context.Context, zip string) (*contracts.GeoUnit, error) {
	return f.units[zip], nil
}

func (f *fakeGeoRepo) ListByState(_ context.Context, state string) ([]*contracts.GeoUnit, error) {
	var out []*contracts.GeoUnit
	for _, u := range f.units {
		if u.State == state {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ZIP < out[j].ZIP })
	return out, nil
}

func (f *fakeGeoRepo) ListByCounty(_ context.Context, countyFIPS, state string) ([]*contracts.GeoUnit, error) {
	var out []*contracts.GeoUnit
	for _, u := range f.units {
		if u.CountyFIPS == countyFIPS && u.State == state {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ZIP < out[j].ZIP })
	return out, nil
}

func (f *fakeGeoRepo) ListByCity(_ context.Context, _, _ string) ([]*contracts.GeoUnit, error) {
	return nil, nil
}

func (f *fakeGeoRepo) SaveBatch(_ context.Context, units []*contracts.GeoUnit) error {
	for _, u := range units {
		f.units[u.ZIP] = u
	}
	return nil
}

type fakeRentRepo struct {
	county   map[string]float64
	zips     map[string]float64
	required map[string]bool
	err      error
}

func newFakeRentRepo() *fakeRentRepo {
	return &fakeRentRepo{
		county:   make(map[string]float64),
		zips:     make(map[string]float64),
		required: make(map[string]bool),
	}
}

func (f *fakeRentRepo) setCounty(countyFIPS, state string, fiscalYear, bedrooms int, amount float64) {
	f.county[fmt.Sprintf("%s|%s|%d|%d", countyFIPS, state, fiscalYear, bedrooms)] = amount
}

func (f *fakeRentRepo) setZIP(zip string, fiscalYear, bedrooms int, amount float64) {
	f.zips[fmt.Sprintf("%s|%d|%d", zip, fiscalYear, bedrooms)] = amount
}

func (f *fakeRentRepo) setRequired(zip string, fiscalYear int) {
	f.required[fmt.Sprintf("%s|%d", zip, fiscalYear)] = true
}

func (f *fakeRentRepo) GetCountyCeiling(_ context.Context, countyFIPS, state string, fiscalYear, bedrooms int) (*float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.county[fmt.Sprintf("%s|%s|%d|%d", countyFIPS, state, fiscalYear, bedrooms)]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (f *fakeRentRepo) GetZIPCeiling(_ context.Context, zip string, fiscalYear, bedrooms int) (*float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.zips[fmt.Sprintf("%s|%d|%d", zip, fiscalYear, bedrooms)]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (f *fakeRentRepo) IsZIPRentRequired(_ context.Context, zip string, fiscalYear int) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.required[fmt.Sprintf("%s|%d", zip, fiscalYear)], nil
}

func (f *fakeRentRepo) SaveCountyBatch(_ context.Context, ceilings []*contracts.CountyRentCeiling) error {
	for _, c := range ceilings {
		if c.Amount != nil {
			f.setCounty(c.CountyFIPS, c.State, c.FiscalYear, c.Bedrooms, *c.Amount)
		}
	}
	return nil
}

func (f *fakeRentRepo) SaveZIPBatch(_ context.Context, ceilings []*contracts.ZIPRentCeiling) error {
	for _, c := range ceilings {
		if c.Amount != nil {
			f.setZIP(c.ZIP, c.FiscalYear, c.Bedrooms, *c.Amount)
		}
	}
	return nil
}

func (f *fakeRentRepo) SaveZIPRequired(_ context.Context, zip string, fiscalYear int) error {
	f.setRequired(zip, fiscalYear)
	return nil
}

type fakeHomeValueRepo struct {
	obs []*contracts.HomeValueObservation
}

func (f *fakeHomeValueRepo) add(zip string, bedrooms int, m time.Time, value float64) {
	f.obs = append(f.obs, &contracts.HomeValueObservation{ZIP: zip, Bedrooms: bedrooms, Month: m, Value: value})
}

func (f *fakeHomeValueRepo) GetValue(_ context.Context, zip string, bedrooms int, m time.Time) (*float64, error) {
	for _, o := range f.obs {
		if o.ZIP == zip && o.Bedrooms == bedrooms && o.Month.Equal(m) {
			v := o.Value
			return &v, nil
		}
	}
	return nil, nil
}

func (f *fakeHomeValueRepo) GetLatestMonth(_ context.Context, zip string, bedrooms int) (*time.Time, error) {
	var latest *time.Time
	for _, o := range f.obs {
		if o.ZIP != zip || o.Bedrooms != bedrooms {
			continue
		}
		if latest == nil || o.Month.After(*latest) {
			m := o.Month
			latest = &m
		}
	}
	return latest, nil
}

func (f *fakeHomeValueRepo) SaveBatch(_ context.Context, observations []*contracts.HomeValueObservation) error {
	f.obs = append(f.obs, observations...)
	return nil
}

type fakeTaxRepo struct {
	obs []*contracts.TaxRateObservation
}

func (f *fakeTaxRepo) add(zip string, vintage int, rate float64) {
	f.obs = append(f.obs, &contracts.TaxRateObservation{ZIP: zip, Vintage: vintage, Rate: rate})
}

func (f *fakeTaxRepo) GetRate(_ context.Context, zip string, vintage int) (*float64, error) {
	for _, o := range f.obs {
		if o.ZIP == zip && o.Vintage == vintage {
			r := o.Rate
			return &r, nil
		}
	}
	return nil, nil
}

func (f *fakeTaxRepo) GetLatestVintage(_ context.Context, zip string) (*int, error) {
	var latest *int
	for _, o := range f.obs {
		if o.ZIP != zip {
			continue
		}
		if latest == nil || o.Vintage > *latest {
			v := o.Vintage
			latest = &v
		}
	}
	return latest, nil
}

func (f *fakeTaxRepo) SaveBatch(_ context.Context, observations []*contracts.TaxRateObservation) error {
	f.obs = append(f.obs, observations...)
	return nil
}

type fakeDemandRepo struct {
	mu          sync.Mutex
	rentIndex   []*contracts.RentIndexObservation
	demandIndex []*contracts.DemandIndexObservation
	listCalls   int
}

func (f *fakeDemandRepo) addRentIndex(zip string, m time.Time, value float64, metro string) {
	f.rentIndex = append(f.rentIndex, &contracts.RentIndexObservation{ZIP: zip, Month: m, Value: value, Metro: metro})
}

func (f *fakeDemandRepo) addDemandIndex(metro string, m time.Time, value float64) {
	f.demandIndex = append(f.demandIndex, &contracts.DemandIndexObservation{Metro: metro, Month: m, Value: value})
}

func (f *fakeDemandRepo) GetRentIndex(_ context.Context, zip string, m time.Time) (*contracts.RentIndexObservation, error) {
	for _, o := range f.rentIndex {
		if o.ZIP == zip && o.Month.Equal(m) {
			return o, nil
		}
	}
	return nil, nil
}

func (f *fakeDemandRepo) ListDemandIndexByMonth(_ context.Context, m time.Time) ([]*contracts.DemandIndexObservation, error) {
	f.mu.Lock()
	f.listCalls++
	f.mu.Unlock()

	var out []*contracts.DemandIndexObservation
	for _, o := range f.demandIndex {
		if o.Month.Equal(m) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeDemandRepo) SaveRentIndexBatch(_ context.Context, observations []*contracts.RentIndexObservation) error {
	f.rentIndex = append(f.rentIndex, observations...)
	return nil
}

func (f *fakeDemandRepo) SaveDemandIndexBatch(_ context.Context, observations []*contracts.DemandIndexObservation) error {
	f.demandIndex = append(f.demandIndex, observations...)
	return nil
}

type fakeScoreRepo struct {
	mu      sync.Mutex
	records map[string]*contracts.InvestmentScoreRecord
}

func newFakeScoreRepo() *fakeScoreRepo {
	return &fakeScoreRepo{records: make(map[string]*contracts.InvestmentScoreRecord)}
}

func scoreKey(zip string, bedrooms int, version contracts.DataVersion) string {
	return fmt.Sprintf("%s|%d|%s", zip, bedrooms, version.Key())
}

func (f *fakeScoreRepo) UpsertBatch(_ context.Context, records []*contracts.InvestmentScoreRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range records {
		f.records[scoreKey(r.ZIP, r.Bedrooms, r.Version)] = r
	}
	return nil
}

func (f *fakeScoreRepo) GetByKey(_ context.Context, zip string, bedrooms int, version contracts.DataVersion) (*contracts.InvestmentScoreRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[scoreKey(zip, bedrooms, version)], nil
}

func (f *fakeScoreRepo) ListByZIP(_ context.Context, zip string, fiscalYear int) ([]*contracts.InvestmentScoreRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*contracts.InvestmentScoreRecord
	for _, r := range f.records {
		if r.ZIP == zip && r.Version.FiscalYear == fiscalYear {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Bedrooms < out[j].Bedrooms })
	return out, nil
}

func (f *fakeScoreRepo) ListByVersion(_ context.Context, zips []string, bedrooms int, version contracts.DataVersion) ([]*contracts.InvestmentScoreRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*contracts.InvestmentScoreRecord
	for _, zip := range zips {
		if r, ok := f.records[scoreKey(zip, bedrooms, version)]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeScoreRepo) GetLatestVersion(_ context.Context, fiscalYear int) (*contracts.DataVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *contracts.DataVersion
	for _, r := range f.records {
		if r.Version.FiscalYear != fiscalYear {
			continue
		}
		if latest == nil || r.Version.HomeValueMonth.After(latest.HomeValueMonth) ||
			(r.Version.HomeValueMonth.Equal(latest.HomeValueMonth) && r.Version.TaxVintage > latest.TaxVintage) {
			v := r.Version
			latest = &v
		}
	}
	return latest, nil
}

type fakeBatchRepo struct {
	mu      sync.Mutex
	batches map[uuid.UUID]*contracts.ScoreBatch
	updates int
}

func newFakeBatchRepo() *fakeBatchRepo {
	return &fakeBatchRepo{batches: make(map[uuid.UUID]*contracts.ScoreBatch)}
}

func (f *fakeBatchRepo) Create(_ context.Context, batch *contracts.ScoreBatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *batch
	f.batches[batch.ID] = &copied
	return nil
}

func (f *fakeBatchRepo) Update(_ context.Context, batch *contracts.ScoreBatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *batch
	f.batches[batch.ID] = &copied
	f.updates++
	return nil
}

func (f *fakeBatchRepo) GetByID(_ context.Context, id uuid.UUID) (*contracts.ScoreBatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.batches[id], nil
}

func (f *fakeBatchRepo) ListRecent(_ context.Context, limit int) ([]*contracts.ScoreBatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*contracts.ScoreBatch, 0, len(f.batches))
	for _, b := range f.batches {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
