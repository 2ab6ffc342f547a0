// Package airclient is a small Go client for the airmap REST API.
package airclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Station is a monitoring station as returned by the API.
type Station struct {
	ID         string   `json:"id,omitempty"`
	Name       string   `json:"name"`
	Lon        float64  `json:"lon"`
	Lat        float64  `json:"lat"`
	Pollutants []string `json:"pollutants,omitempty"`
	Active     bool     `json:"active"`
}

// Overlay is a pollutant overlay configuration.
type Overlay struct {
	ID             string       `json:"id,omitempty"`
	Name           string       `json:"name"`
	Pollutant      string       `json:"pollutant"`
	GeomType       string       `json:"geomType"`
	DefaultVisible bool         `json:"defaultVisible"`
	Fill           string       `json:"fill,omitempty"`
	Stroke         string       `json:"stroke,omitempty"`
	Opacity        float64      `json:"opacity,omitempty"`
	DataURL        string       `json:"dataUrl,omitempty"`
	BeforeLayer    string       `json:"beforeLayer,omitempty"`
	MinTier        int          `json:"minTier,omitempty"`
	Legend         []LegendItem `json:"legend,omitempty"`
}

// LegendItem is one legend entry of an overlay.
type LegendItem struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

// Reading is one pollutant measurement.
type Reading struct {
	StationID  string    `json:"stationId"`
	Pollutant  string    `json:"pollutant"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit,omitempty"`
	RecordedAt time.Time `json:"recordedAt"`
}

// RegionFile describes a boundary file available on the server.
type RegionFile struct {
	Name string `json:"name"`
	Size string `json:"size"`
}

// HealthBody is the /health response.
type HealthBody struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// InfoBody is the /api/v1/info response.
type InfoBody struct {
	Name     string   `json:"name"`
	Version  string   `json:"version"`
	DataDir  string   `json:"data_dir"`
	DB       bool     `json:"db"`
	Features []string `json:"features"`
}

// CreatedStationBody is the station creation response.
type CreatedStationBody struct {
	ID      string  `json:"id"`
	Station Station `json:"station"`
	Message string  `json:"message"`
}

// CreatedOverlayBody is the overlay creation response.
type CreatedOverlayBody struct {
	ID      string  `json:"id"`
	Overlay Overlay `json:"overlay"`
	Message string  `json:"message"`
}

// MessageBody is a generic result message.
type MessageBody struct {
	Message string `json:"message"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status int
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("airmap: %d %s: %s", e.Status, e.Title, e.Detail)
	}
	return fmt.Sprintf("airmap: unexpected status %d", e.Status)
}

// Client talks to an airmap server.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the given base URL, e.g. "http://localhost:8090".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) (*http.Response, error) {
	var body *bytes.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		json.NewDecoder(resp.Body).Decode(apiErr)
		return resp, apiErr
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp, nil
}

// Health checks server health.
func (c *Client) Health(ctx context.Context) (*http.Response, HealthBody, error) {
	var body HealthBody
	resp, err := c.do(ctx, http.MethodGet, "/health", nil, &body)
	return resp, body, err
}

// GetInfo returns server metadata.
func (c *Client) GetInfo(ctx context.Context) (*http.Response, InfoBody, error) {
	var body InfoBody
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/info", nil, &body)
	return resp, body, err
}

// ListStations lists all stations keyed by ID.
func (c *Client) ListStations(ctx context.Context) (*http.Response, map[string]Station, error) {
	var body map[string]Station
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/stations", nil, &body)
	return resp, body, err
}

// CreateStation registers a new station.
func (c *Client) CreateStation(ctx context.Context, station Station) (*http.Response, CreatedStationBody, error) {
	var body CreatedStationBody
	resp, err := c.do(ctx, http.MethodPost, "/api/v1/stations", station, &body)
	return resp, body, err
}

// GetStation fetches one station.
func (c *Client) GetStation(ctx context.Context, id string) (*http.Response, Station, error) {
	var body Station
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/stations/"+url.PathEscape(id), nil, &body)
	return resp, body, err
}

// UpdateStation replaces a station's configuration.
func (c *Client) UpdateStation(ctx context.Context, id string, station Station) (*http.Response, Station, error) {
	var body Station
	resp, err := c.do(ctx, http.MethodPut, "/api/v1/stations/"+url.PathEscape(id), station, &body)
	return resp, body, err
}

// DeleteStation removes a station.
func (c *Client) DeleteStation(ctx context.Context, id string) (*http.Response, MessageBody, error) {
	var body MessageBody
	resp, err := c.do(ctx, http.MethodDelete, "/api/v1/stations/"+url.PathEscape(id), nil, &body)
	return resp, body, err
}

// ListOverlays lists all overlay configurations keyed by ID.
func (c *Client) ListOverlays(ctx context.Context) (*http.Response, map[string]Overlay, error) {
	var body map[string]Overlay
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/overlays", nil, &body)
	return resp, body, err
}

// CreateOverlay registers a new overlay.
func (c *Client) CreateOverlay(ctx context.Context, overlay Overlay) (*http.Response, CreatedOverlayBody, error) {
	var body CreatedOverlayBody
	resp, err := c.do(ctx, http.MethodPost, "/api/v1/overlays", overlay, &body)
	return resp, body, err
}

// GetOverlay fetches one overlay configuration.
func (c *Client) GetOverlay(ctx context.Context, id string) (*http.Response, Overlay, error) {
	var body Overlay
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/overlays/"+url.PathEscape(id), nil, &body)
	return resp, body, err
}

// UpdateOverlay replaces an overlay's configuration.
func (c *Client) UpdateOverlay(ctx context.Context, id string, overlay Overlay) (*http.Response, Overlay, error) {
	var body Overlay
	resp, err := c.do(ctx, http.MethodPut, "/api/v1/overlays/"+url.PathEscape(id), overlay, &body)
	return resp, body, err
}

// DeleteOverlay removes an overlay.
func (c *Client) DeleteOverlay(ctx context.Context, id string) (*http.Response, MessageBody, error) {
	var body MessageBody
	resp, err := c.do(ctx, http.MethodDelete, "/api/v1/overlays/"+url.PathEscape(id), nil, &body)
	return resp, body, err
}

// ListRegions lists boundary files available on the server.
func (c *Client) ListRegions(ctx context.Context) (*http.Response, []RegionFile, error) {
	var body []RegionFile
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/regions", nil, &body)
	return resp, body, err
}

// IngestReading stores one measurement.
func (c *Client) IngestReading(ctx context.Context, reading Reading) (*http.Response, MessageBody, error) {
	var body MessageBody
	resp, err := c.do(ctx, http.MethodPost, "/api/v1/readings", reading, &body)
	return resp, body, err
}

// LatestReadings returns the most recent reading per station and pollutant.
func (c *Client) LatestReadings(ctx context.Context) (*http.Response, map[string][]Reading, error) {
	var body map[string][]Reading
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/readings/latest", nil, &body)
	return resp, body, err
}

// ReadingRange returns readings for one station and pollutant in [from, to].
func (c *Client) ReadingRange(ctx context.Context, stationID, pollutant string, from, to time.Time) (*http.Response, []Reading, error) {
	q := url.Values{"pollutant": {pollutant}}
	if !from.IsZero() {
		q.Set("from", from.Format(time.RFC3339))
	}
	if !to.IsZero() {
		q.Set("to", to.Format(time.RFC3339))
	}
	var body []Reading
	path := "/api/v1/readings/" + url.PathEscape(stationID) + "?" + q.Encode()
	resp, err := c.do(ctx, http.MethodGet, path, nil, &body)
	return resp, body, err
}

// Navigate requests a viewport transition on the shared map.
func (c *Client) Navigate(ctx context.Context, lon, lat, zoom float64) (*http.Response, MessageBody, error) {
	var body MessageBody
	resp, err := c.do(ctx, http.MethodPost, "/api/v1/map/navigate", map[string]any{
		"lon": lon, "lat": lat, "zoom": zoom,
	}, &body)
	return resp, body, err
}

// SetOverlayVisibility toggles one overlay on the shared map.
func (c *Client) SetOverlayVisibility(ctx context.Context, id string, visible bool) (*http.Response, MessageBody, error) {
	var body MessageBody
	path := "/api/v1/map/overlays/" + url.PathEscape(id) + "/visibility"
	resp, err := c.do(ctx, http.MethodPost, path, map[string]any{"visible": visible}, &body)
	return resp, body, err
}
