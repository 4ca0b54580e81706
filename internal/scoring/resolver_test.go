package scoring

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentscope/backend/internal/contracts"
)

func TestRentResolverZIPOverridesCounty(t *testing.T) {
	geo := newFakeGeoRepo(&contracts.GeoUnit{ZIP: "77449", CountyFIPS: "48201", CountyName: "Harris", State: "TX"})
	rent := newFakeRentRepo()
	rent.setCounty("48201", "TX", 2026, 3, 1700)
	rent.setZIP("77449", 2026, 3, 1850)
	rent.setRequired("77449", 2026)

	resolver := NewRentResolver(geo, rent, testLogger())

	got, err := resolver.Resolve(context.Background(), "77449", 2026, 3)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1850.0, *got)
}

func TestRentResolverCountyWhenNotRequired(t *testing.T) {
	geo := newFakeGeoRepo(&contracts.GeoUnit{ZIP: "77449", CountyFIPS: "48201", CountyName: "Harris", State: "TX"})
	rent := newFakeRentRepo()
	rent.setCounty("48201", "TX", 2026, 3, 1700)
	// A ZIP value exists but the ZIP is not in this year's small-area
	// set, so the county value wins.
	rent.setZIP("77449", 2026, 3, 1850)

	resolver := NewRentResolver(geo, rent, testLogger())

	got, err := resolver.Resolve(context.Background(), "77449", 2026, 3)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1700.0, *got)
}

func TestRentResolverCountyFallbackWhenZIPValueMissing(t *testing.T) {
	geo := newFakeGeoRepo(&contracts.GeoUnit{ZIP: "77449", CountyFIPS: "48201", CountyName: "Harris", State: "TX"})
	rent := newFakeRentRepo()
	rent.setCounty("48201", "TX", 2026, 3, 1700)
	rent.setRequired("77449", 2026)
	// Required, but no ZIP ceiling for this bedroom count.

	resolver := NewRentResolver(geo, rent, testLogger())

	got, err := resolver.Resolve(context.Background(), "77449", 2026, 3)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1700.0, *got)
}

func TestRentResolverNoData(t *testing.T) {
	geo := newFakeGeoRepo(&contracts.GeoUnit{ZIP: "77449", CountyFIPS: "48201", CountyName: "Harris", State: "TX"})
	resolver := NewRentResolver(geo, newFakeRentRepo(), testLogger())

	got, err := resolver.Resolve(context.Background(), "77449", 2026, 3)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRentResolverUnknownZIP(t *testing.T) {
	resolver := NewRentResolver(newFakeGeoRepo(), newFakeRentRepo(), testLogger())

	got, err := resolver.Resolve(context.Background(), "00000", 2026, 3)
	require.NoError(t, err)
	assert.Nil(t, got)
}
