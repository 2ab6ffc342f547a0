package geo

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/airsense/airmap/internal/service"
)

func TestStationCollection(t *testing.T) {
	stations := map[string]service.Station{
		"b": {ID: "b", Name: "Beta", Lon: 10, Lat: 50, Active: true},
		"a": {ID: "a", Name: "Alpha", Lon: 13.4, Lat: 52.5, Pollutants: []string{"no2"}},
	}
	latest := map[string][]service.Reading{
		"a": {{StationID: "a", Pollutant: "no2", Value: 42.5}},
	}

	fc := StationCollection(stations, latest)
	if len(fc.Features) != 2 {
		t.Fatalf("features=%d, want 2", len(fc.Features))
	}
	// Stable ID order.
	if fc.Features[0].ID != "a" || fc.Features[1].ID != "b" {
		t.Fatalf("order=[%v %v], want [a b]", fc.Features[0].ID, fc.Features[1].ID)
	}
	if got := fc.Features[0].Properties["no2"]; got != 42.5 {
		t.Fatalf("no2=%v, want 42.5", got)
	}
	if _, ok := fc.Features[1].Properties["no2"]; ok {
		t.Fatal("reading leaked onto wrong station")
	}
}

func TestCollectionBound(t *testing.T) {
	if _, ok := CollectionBound(nil); ok {
		t.Fatal("nil collection has a bound")
	}
	if _, ok := CollectionBound(geojson.NewFeatureCollection()); ok {
		t.Fatal("empty collection has a bound")
	}

	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.Point{10, 50}))
	fc.Append(geojson.NewFeature(orb.Point{14, 53}))

	bound, ok := CollectionBound(fc)
	if !ok {
		t.Fatal("no bound")
	}
	if bound.Min != (orb.Point{10, 50}) || bound.Max != (orb.Point{14, 53}) {
		t.Fatalf("bound=%v", bound)
	}
}

func TestRegionAt(t *testing.T) {
	square := orb.Polygon{{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}}
	region := geojson.NewFeature(square)
	region.ID = "district-1"
	region.Properties["name"] = "District One"

	regions := geojson.NewFeatureCollection()
	regions.Append(region)

	if got := RegionAt(regions, orb.Point{5, 5}); got == nil || got.ID != "district-1" {
		t.Fatalf("got=%v, want district-1", got)
	}
	if got := RegionAt(regions, orb.Point{20, 20}); got != nil {
		t.Fatalf("got=%v, want nil outside boundary", got)
	}
	if got := RegionAt(nil, orb.Point{5, 5}); got != nil {
		t.Fatal("nil collection matched")
	}
}
