// Package geo assembles GeoJSON payloads for the dashboard map.
package geo

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/airsense/airmap/internal/service"
)

// StationCollection converts station records into a point feature
// collection, decorated with each station's latest readings when present.
// Features are emitted in stable ID order so repeated payloads diff cleanly.
func StationCollection(stations map[string]service.Station, latest map[string][]service.Reading) *geojson.FeatureCollection {
	ids := make([]string, 0, len(stations))
	for id := range stations {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fc := geojson.NewFeatureCollection()
	for _, id := range ids {
		st := stations[id]
		f := geojson.NewFeature(orb.Point{st.Lon, st.Lat})
		f.ID = st.ID
		f.Properties["name"] = st.Name
		f.Properties["active"] = st.Active
		if len(st.Pollutants) > 0 {
			f.Properties["pollutants"] = st.Pollutants
		}
		for _, r := range latest[id] {
			f.Properties[r.Pollutant] = r.Value
		}
		fc.Append(f)
	}
	return fc
}

// CollectionBound returns the bounding box of all geometries in fc.
// ok is false for a nil or empty collection.
func CollectionBound(fc *geojson.FeatureCollection) (bound orb.Bound, ok bool) {
	if fc == nil || len(fc.Features) == 0 {
		return orb.Bound{}, false
	}
	bound = fc.Features[0].Geometry.Bound()
	for _, f := range fc.Features[1:] {
		bound = bound.Union(f.Geometry.Bound())
	}
	return bound, true
}

// RegionAt returns the first region feature whose polygon contains pt, or
// nil when the point falls outside every boundary.
func RegionAt(regions *geojson.FeatureCollection, pt orb.Point) *geojson.Feature {
	if regions == nil {
		return nil
	}
	for _, f := range regions.Features {
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			if planar.PolygonContains(g, pt) {
				return f
			}
		case orb.MultiPolygon:
			if planar.MultiPolygonContains(g, pt) {
				return f
			}
		}
	}
	return nil
}
