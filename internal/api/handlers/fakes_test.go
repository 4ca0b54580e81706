package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/rentscope/backend/internal/contracts"
	"github.com/rentscope/backend/pkg/config"
	"github.com/rentscope/backend/pkg/logger"
	"github.com/rentscope/backend/pkg/redis"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{LogLevel: "error", LogFormat: "json", Env: "development"})
}

func disabledCache(t *testing.T) *redis.Cache {
	t.Helper()
	client, err := redis.New(&config.Config{})
	require.NoError(t, err)
	return redis.NewCache(client, "rentscope-test")
}

func ptr(v float64) *float64 { return &v }

func month(year int, m time.Month) time.Time {
	return time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)
}

func decodeBody(rr *httptest.ResponseRecorder, v interface{}) error {
	return json.NewDecoder(rr.Body).Decode(v)
}

// In-memory doubles for the repository and engine interfaces.

type fakeScoreRepo struct {
	records map[string]*contracts.InvestmentScoreRecord
}

func newFakeScoreRepo() *fakeScoreRepo {
	return &fakeScoreRepo{records: make(map[string]*contracts.InvestmentScoreRecord)}
}

func scoreKey(zip string, bedrooms int, version contracts.DataVersion) string {
	return fmt.Sprintf("%s|%d|%s", zip, bedrooms, version.Key())
}

func (f *fakeScoreRepo) add(rec *contracts.InvestmentScoreRecord) {
	f.records[scoreKey(rec.ZIP, rec.Bedrooms, rec.Version)] = rec
}

func (f *fakeScoreRepo) UpsertBatch(_ context.Context, records []*contracts.InvestmentScoreRecord) error {
	for _, r := range records {
		f.add(r)
	}
	return nil
}

func (f *fakeScoreRepo) GetByKey(_ context.Context, zip string, bedrooms int, version contracts.DataVersion) (*contracts.InvestmentScoreRecord, error) {
	return f.records[scoreKey(zip, bedrooms, version)], nil
}

func (f *fakeScoreRepo) ListByZIP(_ context.Context, zip string, fiscalYear int) ([]*contracts.InvestmentScoreRecord, error) {
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
	var out []*contracts.InvestmentScoreRecord
	for _, zip := range zips {
		if r, ok := f.records[scoreKey(zip, bedrooms, version)]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeScoreRepo) GetLatestVersion(_ context.Context, fiscalYear int) (*contracts.DataVersion, error) {
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

type fakeYieldRepo struct {
	yields map[int]float64
}

func newFakeYieldRepo() *fakeYieldRepo {
	return &fakeYieldRepo{yields: make(map[int]float64)}
}

func (f *fakeYieldRepo) GetMedianYield(_ context.Context, fiscalYear int) (*float64, error) {
	v, ok := f.yields[fiscalYear]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (f *fakeYieldRepo) Save(_ context.Context, fiscalYear int, medianYield float64) error {
	f.yields[fiscalYear] = medianYield
	return nil
}

// fakeEngine records the last request and returns a canned result.
type fakeEngine struct {
	lastRequest *contracts.BatchRequest
	result      *contracts.BatchResult
	err         error
}

func (f *fakeEngine) ScoreBatch(_ context.Context, req contracts.BatchRequest) (*contracts.BatchResult, error) {
	f.lastRequest = &req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeBatchRepo struct {
	batches map[uuid.UUID]*contracts.ScoreBatch
}

func newFakeBatchRepo() *fakeBatchRepo {
	return &fakeBatchRepo{batches: make(map[uuid.UUID]*contracts.ScoreBatch)}
}

func (f *fakeBatchRepo) Create(_ context.Context, batch *contracts.ScoreBatch) error {
	copied := *batch
	f.batches[batch.ID] = &copied
	return nil
}

func (f *fakeBatchRepo) Update(_ context.Context, batch *contracts.ScoreBatch) error {
	copied := *batch
	f.batches[batch.ID] = &copied
	return nil
}

func (f *fakeBatchRepo) GetByID(_ context.Context, id uuid.UUID) (*contracts.ScoreBatch, error) {
	return f.batches[id], nil
}

func (f *fakeBatchRepo) ListRecent(_ context.Context, limit int) ([]*contracts.ScoreBatch, error) {
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

// stubAggregateService returns a fixed result or error and records the
// arguments it was called with.
type stubAggregateService struct {
	result *contracts.AggregateResult
	err    error

	geoType    contracts.GeoType
	geoKey     string
	state      string
	fiscalYear int
	bedrooms   int
}

func (s *stubAggregateService) GetAggregate(_ context.Context, geoType contracts.GeoType, geoKey, state string, fiscalYear, bedrooms int) (*contracts.AggregateResult, error) {
	s.geoType = geoType
	s.geoKey = geoKey
	s.state = state
	s.fiscalYear = fiscalYear
	s.bedrooms = bedrooms
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}
