package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/rentscope/backend/internal/aggregate"
	"github.com/rentscope/backend/internal/contracts"
	"github.com/rentscope/backend/pkg/logger"
)

// AggregateService answers rollup queries for one geography
type AggregateService interface {
	GetAggregate(ctx context.Context, geoType contracts.GeoType, geoKey, state string, fiscalYear, bedrooms int) (*contracts.AggregateResult, error)
}

// AggregateHandler handles city/county/state rollup endpoints
type AggregateHandler struct {
	service    AggregateService
	fiscalYear int
	logger     *logger.Logger
}

// NewAggregateHandler creates a new aggregate handler
func NewAggregateHandler(service AggregateService, fiscalYear int, log *logger.Logger) *AggregateHandler {
	return &AggregateHandler{
		service:    service,
		fiscalYear: fiscalYear,
		logger:     log,
	}
}

// Get returns the score rollup for one geography
// GET /api/aggregates/{geoType}/{geoKey}?state=TX&fiscal_year=2026&bedrooms=3
func (h *AggregateHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)

	var geoType contracts.GeoType
	switch vars["geoType"] {
	case "city":
		geoType = contracts.GeoCity
	case "county":
		geoType = contracts.GeoCounty
	case "state":
		geoType = contracts.GeoState
	default:
		respondError(w, http.StatusBadRequest, "Invalid geography type (valid: city, county, state)")
		return
	}

	geoKey := vars["geoKey"]

	state := strings.ToUpper(r.URL.Query().Get("state"))
	if geoType == contracts.GeoState {
		// The key is the state itself; no separate parameter needed.
		state = strings.ToUpper(geoKey)
		geoKey = state
	}
	if state == "" {
		respondError(w, http.StatusBadRequest, "state is required for city and county rollups")
		return
	}

	fiscalYear := h.fiscalYear
	if yearStr := r.URL.Query().Get("fiscal_year"); yearStr != "" {
		y, err := strconv.Atoi(yearStr)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid fiscal_year")
			return
		}
		fiscalYear = y
	}

	// Three-bedroom is the product's headline rollup.
	bedrooms := 3
	if bedroomsStr := r.URL.Query().Get("bedrooms"); bedroomsStr != "" {
		b, err := strconv.Atoi(bedroomsStr)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid bedrooms")
			return
		}
		bedrooms = b
	}

	result, err := h.service.GetAggregate(ctx, geoType, geoKey, state, fiscalYear, bedrooms)
	if err != nil {
		if errors.Is(err, aggregate.ErrNoRecords) {
			respondError(w, http.StatusNotFound, "No aggregate available for this geography")
			return
		}
		h.logger.WithError(err).WithFields(map[string]interface{}{
			"geo_type": string(geoType),
			"geo_key":  geoKey,
		}).Error("Failed to compute aggregate")
		respondError(w, http.StatusInternalServerError, "Failed to compute aggregate")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    result,
	})
}
