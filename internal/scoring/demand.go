package scoring

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rentscope/backend/internal/contracts"
	"github.com/rentscope/backend/pkg/logger"
)

var metroStateSuffix = regexp.MustCompile(`,\s*[a-z]{2}$`)

// NormalizeMetro canonicalizes a metro label for the demand join. The two
// source vocabularies disagree on compound names, so both sides are
// lower-cased, cut at the first hyphen and stripped of a trailing ", XX"
// state suffix before the exact match.
func NormalizeMetro(label string) string {
	s := strings.ToLower(strings.TrimSpace(label))
	if i := strings.Index(s, "-"); i >= 0 {
		s = s[:i]
	}
	s = metroStateSuffix.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// DemandResolver joins a ZIP's rent-index metro label to the metro demand
// index for a month. The join is exact after normalization; a miss yields
// nil, never a fuzzy fallback.
type DemandResolver struct {
	repo   contracts.DemandRepository
	logger *logger.Logger

	mu    sync.Mutex
	month time.Time
	index map[string]float64
}

func NewDemandResolver(repo contracts.DemandRepository, log *logger.Logger) *DemandResolver {
	return &DemandResolver{
		repo:   repo,
		logger: log.WithField("component", "demand_resolver"),
	}
}

// Resolve returns the demand score for a ZIP at the given month, or nil
// when the ZIP has no rent-index row, no metro label, or no demand row
// matches the normalized label.
func (d *DemandResolver) Resolve(ctx context.Context, zip string, month time.Time) (*float64, error) {
	row, err := d.repo.GetRentIndex(ctx, zip, month)
	if err != nil {
		return nil, fmt.Errorf("get rent index: %w", err)
	}
	if row == nil || row.Metro == "" {
		return nil, nil
	}

	index, err := d.demandIndex(ctx, month)
	if err != nil {
		return nil, err
	}

	value, ok := index[NormalizeMetro(row.Metro)]
	if !ok {
		d.logger.WithFields(map[string]interface{}{
			"zip":   zip,
			"metro": row.Metro,
		}).Debug("No demand index match for metro")
		return nil, nil
	}
	return &value, nil
}

// demandIndex loads the normalized demand table for one month and keeps
// it until a different month is requested. A batch holds the month
// constant, so one load serves every worker.
func (d *DemandResolver) demandIndex(ctx context.Context, month time.Time) (map[string]float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.index != nil && d.month.Equal(month) {
		return d.index, nil
	}

	rows, err := d.repo.ListDemandIndexByMonth(ctx, month)
	if err != nil {
		return nil, fmt.Errorf("list demand index: %w", err)
	}

	index := make(map[string]float64, len(rows))
	for _, row := range rows {
		index[NormalizeMetro(row.Metro)] = row.Value
	}

	d.month = month
	d.index = index
	return index, nil
}
