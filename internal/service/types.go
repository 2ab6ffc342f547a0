// Package service contains business logic for the airmap platform.
package service

import "time"

// Station represents a monitoring station that reports pollutant readings.
type Station struct {
	ID         string   `json:"id,omitempty" doc:"Unique station identifier" example:"berlin_mitte"`
	Name       string   `json:"name" required:"true" minLength:"1" maxLength:"100" doc:"Display name" example:"Berlin Mitte"`
	Lon        float64  `json:"lon" required:"true" minimum:"-180" maximum:"180" doc:"Longitude" example:"13.405"`
	Lat        float64  `json:"lat" required:"true" minimum:"-90" maximum:"90" doc:"Latitude" example:"52.52"`
	Pollutants []string `json:"pollutants,omitempty" doc:"Pollutants measured at this station" example:"no2,pm25"`
	Active     bool     `json:"active" default:"true" doc:"Whether the station currently reports"`
}

// Overlay represents a pollutant overlay drawn on the dashboard map.
type Overlay struct {
	ID             string       `json:"id,omitempty" doc:"Unique overlay identifier" example:"no2_satellite"`
	Name           string       `json:"name" required:"true" minLength:"1" maxLength:"100" doc:"Display name" example:"NO2 (satellite)"`
	Pollutant      string       `json:"pollutant" required:"true" doc:"Pollutant code" example:"no2"`
	GeomType       string       `json:"geomType" required:"true" enum:"polygon,line,point" doc:"Geometry type" default:"polygon"`
	DefaultVisible bool         `json:"defaultVisible" default:"true" doc:"Whether the overlay is visible by default"`
	Fill           string       `json:"fill,omitempty" doc:"Fill color (CSS)" example:"#3388ff" default:"#3388ff"`
	Stroke         string       `json:"stroke,omitempty" doc:"Stroke color (CSS)" example:"#2266cc" default:"#2266cc"`
	Opacity        float64      `json:"opacity,omitempty" minimum:"0" maximum:"1" default:"0.7" doc:"Overlay opacity (0-1)"`
	DataURL        string       `json:"dataUrl,omitempty" format:"uri" doc:"GeoJSON endpoint the overlay data is fetched from"`
	BeforeLayer    string       `json:"beforeLayer,omitempty" doc:"Existing layer to paint this overlay beneath"`
	MinTier        int          `json:"minTier,omitempty" minimum:"0" doc:"Minimum subscription tier required to request this overlay"`
	Legend         []LegendItem `json:"legend,omitempty" doc:"Legend entries for this overlay"`
}

// LegendItem defines a legend entry.
type LegendItem struct {
	Label string `json:"label" doc:"Legend label"`
	Color string `json:"color" doc:"Legend color (CSS)"`
}

// Reading is one pollutant measurement reported by a station.
type Reading struct {
	StationID  string    `json:"stationId" required:"true" doc:"Reporting station" example:"berlin_mitte"`
	Pollutant  string    `json:"pollutant" required:"true" doc:"Pollutant code" example:"no2"`
	Value      float64   `json:"value" required:"true" doc:"Measured value" example:"38.2"`
	Unit       string    `json:"unit,omitempty" doc:"Measurement unit" example:"ug/m3" default:"ug/m3"`
	RecordedAt time.Time `json:"recordedAt" doc:"When the measurement was taken"`
}

// RegionFile describes an administrative boundary file on disk.
type RegionFile struct {
	Name string `json:"name" doc:"File name" example:"districts.geojson"`
	Size string `json:"size" doc:"Human-readable file size" example:"1.2 MB"`
}
