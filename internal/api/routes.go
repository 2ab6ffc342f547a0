// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/airsense/airmap/internal/db"
	"github.com/airsense/airmap/internal/service"
)

// Services holds the service dependencies for API handlers.
type Services struct {
	Station  *service.StationService
	Overlay  *service.OverlayService
	Region   *service.RegionService
	Readings *db.ReadingStore
}

// Types

type IDInput struct {
	ID string `path:"id" doc:"Resource ID" example:"berlin_mitte"`
}

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

type InfoBody struct {
	Name     string   `json:"name" doc:"Service name"`
	Version  string   `json:"version" doc:"Service version"`
	DataDir  string   `json:"data_dir" doc:"Data directory path"`
	DB       bool     `json:"db" doc:"Whether database is available"`
	Features []string `json:"features" doc:"Available features"`
}

type CreatedStationBody struct {
	ID      string          `json:"id" doc:"Generated station ID"`
	Station service.Station `json:"station" doc:"Created station"`
	Message string          `json:"message" doc:"Result message"`
}

type CreatedOverlayBody struct {
	ID      string          `json:"id" doc:"Generated overlay ID"`
	Overlay service.Overlay `json:"overlay" doc:"Created overlay configuration"`
	Message string          `json:"message" doc:"Result message"`
}

// APIHandler holds all REST API handlers.
type APIHandler struct {
	svc     *Services
	dataDir string
}

func NewAPIHandler(svc *Services, dataDir string) *APIHandler {
	return &APIHandler{svc: svc, dataDir: dataDir}
}

// RegisterRoutes registers all REST routes.
func (h *APIHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))

	huma.Get(api, "/api/v1/stations", h.GetStations, huma.OperationTags("stations"))
	huma.Post(api, "/api/v1/stations", h.CreateStation, huma.OperationTags("stations"))
	huma.Get(api, "/api/v1/stations/{id}", h.GetStation, huma.OperationTags("stations"))
	huma.Put(api, "/api/v1/stations/{id}", h.PutStation, huma.OperationTags("stations"))
	huma.Delete(api, "/api/v1/stations/{id}", h.DeleteStation, huma.OperationTags("stations"))

	huma.Get(api, "/api/v1/overlays", h.GetOverlays, huma.OperationTags("overlays"))
	huma.Post(api, "/api/v1/overlays", h.CreateOverlay, huma.OperationTags("overlays"))
	huma.Get(api, "/api/v1/overlays/{id}", h.GetOverlay, huma.OperationTags("overlays"))
	huma.Put(api, "/api/v1/overlays/{id}", h.PutOverlay, huma.OperationTags("overlays"))
	huma.Delete(api, "/api/v1/overlays/{id}", h.DeleteOverlay, huma.OperationTags("overlays"))

	huma.Get(api, "/api/v1/regions", h.GetRegions, huma.OperationTags("regions"))

	huma.Post(api, "/api/v1/readings", h.IngestReading, huma.OperationTags("readings"))
	huma.Get(api, "/api/v1/readings/latest", h.GetLatestReadings, huma.OperationTags("readings"))
	huma.Get(api, "/api/v1/readings/{id}", h.GetReadingRange, huma.OperationTags("readings"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: "1.0.0"}}, nil
}

func (h *APIHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:     "airmap",
		Version:  "0.1.0",
		DataDir:  h.dataDir,
		DB:       h.svc != nil && h.svc.Readings != nil,
		Features: []string{"stations", "overlays", "regions", "duckdb", "map-stream"},
	}}, nil
}

func (h *APIHandler) GetStations(ctx context.Context, input *struct{}) (*struct {
	Body map[string]service.Station
}, error) {
	if h.svc == nil || h.svc.Station == nil {
		return &struct{ Body map[string]service.Station }{Body: map[string]service.Station{}}, nil
	}
	return &struct{ Body map[string]service.Station }{Body: h.svc.Station.List()}, nil
}

func (h *APIHandler) CreateStation(ctx context.Context, input *struct{ Body service.Station }) (*struct{ Body CreatedStationBody }, error) {
	if h.svc == nil || h.svc.Station == nil {
		return nil, huma.Error400BadRequest("service not available")
	}
	created, err := h.svc.Station.Create(input.Body)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	return &struct{ Body CreatedStationBody }{Body: CreatedStationBody{
		ID: created.ID, Station: created, Message: "Station created",
	}}, nil
}

func (h *APIHandler) GetStation(ctx context.Context, input *IDInput) (*struct{ Body service.Station }, error) {
	if h.svc == nil || h.svc.Station == nil {
		return nil, huma.Error404NotFound("service not available")
	}
	station, ok := h.svc.Station.Get(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("station not found")
	}
	return &struct{ Body service.Station }{Body: station}, nil
}

func (h *APIHandler) PutStation(ctx context.Context, input *struct {
	IDInput
	Body service.Station
}) (*struct{ Body service.Station }, error) {
	if h.svc == nil || h.svc.Station == nil {
		return nil, huma.Error400BadRequest("service not available")
	}
	updated, err := h.svc.Station.Update(input.ID, input.Body)
	if err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}
	return &struct{ Body service.Station }{Body: updated}, nil
}

func (h *APIHandler) DeleteStation(ctx context.Context, input *IDInput) (*struct{ Body MessageBody }, error) {
	if h.svc == nil || h.svc.Station == nil {
		return nil, huma.Error400BadRequest("service not available")
	}
	if err := h.svc.Station.Delete(input.ID); err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Station deleted"}}, nil
}

func (h *APIHandler) GetOverlays(ctx context.Context, input *struct{}) (*struct {
	Body map[string]service.Overlay
}, error) {
	if h.svc == nil || h.svc.Overlay == nil {
		return &struct{ Body map[string]service.Overlay }{Body: map[string]service.Overlay{}}, nil
	}
	return &struct{ Body map[string]service.Overlay }{Body: h.svc.Overlay.List()}, nil
}

func (h *APIHandler) CreateOverlay(ctx context.Context, input *struct{ Body service.Overlay }) (*struct{ Body CreatedOverlayBody }, error) {
	if h.svc == nil || h.svc.Overlay == nil {
		return nil, huma.Error400BadRequest("service not available")
	}
	created, err := h.svc.Overlay.Create(input.Body)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	return &struct{ Body CreatedOverlayBody }{Body: CreatedOverlayBody{
		ID: created.ID, Overlay: created, Message: "Overlay created",
	}}, nil
}

func (h *APIHandler) GetOverlay(ctx context.Context, input *IDInput) (*struct{ Body service.Overlay }, error) {
	if h.svc == nil || h.svc.Overlay == nil {
		return nil, huma.Error404NotFound("service not available")
	}
	overlay, ok := h.svc.Overlay.Get(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("overlay not found")
	}
	return &struct{ Body service.Overlay }{Body: overlay}, nil
}

func (h *APIHandler) PutOverlay(ctx context.Context, input *struct {
	IDInput
	Body service.Overlay
}) (*struct{ Body service.Overlay }, error) {
	if h.svc == nil || h.svc.Overlay == nil {
		return nil, huma.Error400BadRequest("service not available")
	}
	updated, err := h.svc.Overlay.Update(input.ID, input.Body)
	if err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}
	return &struct{ Body service.Overlay }{Body: updated}, nil
}

func (h *APIHandler) DeleteOverlay(ctx context.Context, input *IDInput) (*struct{ Body MessageBody }, error) {
	if h.svc == nil || h.svc.Overlay == nil {
		return nil, huma.Error400BadRequest("service not available")
	}
	if err := h.svc.Overlay.Delete(input.ID); err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Overlay deleted"}}, nil
}

func (h *APIHandler) GetRegions(ctx context.Context, input *struct{}) (*struct {
	Body []service.RegionFile
}, error) {
	if h.svc == nil || h.svc.Region == nil {
		return &struct{ Body []service.RegionFile }{Body: []service.RegionFile{}}, nil
	}
	regions, err := h.svc.Region.List()
	if err != nil {
		return &struct{ Body []service.RegionFile }{Body: []service.RegionFile{}}, nil
	}
	return &struct{ Body []service.RegionFile }{Body: regions}, nil
}

func (h *APIHandler) IngestReading(ctx context.Context, input *struct{ Body service.Reading }) (*struct{ Body MessageBody }, error) {
	if h.svc == nil || h.svc.Readings == nil {
		return nil, huma.Error503ServiceUnavailable("readings store not available")
	}
	if h.svc.Station != nil {
		if _, ok := h.svc.Station.Get(input.Body.StationID); !ok {
			return nil, huma.Error404NotFound("unknown station " + input.Body.StationID)
		}
	}
	if err := h.svc.Readings.Insert(ctx, input.Body); err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Reading stored"}}, nil
}

func (h *APIHandler) GetLatestReadings(ctx context.Context, input *struct{}) (*struct {
	Body map[string][]service.Reading
}, error) {
	if h.svc == nil || h.svc.Readings == nil {
		return nil, huma.Error503ServiceUnavailable("readings store not available")
	}
	latest, err := h.svc.Readings.Latest(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to query readings", err)
	}
	return &struct{ Body map[string][]service.Reading }{Body: latest}, nil
}

type ReadingRangeInput struct {
	ID        string    `path:"id" doc:"Station ID"`
	Pollutant string    `query:"pollutant" required:"true" doc:"Pollutant code" example:"no2"`
	From      time.Time `query:"from" doc:"Range start (RFC 3339)"`
	To        time.Time `query:"to" doc:"Range end (RFC 3339)"`
}

func (h *APIHandler) GetReadingRange(ctx context.Context, input *ReadingRangeInput) (*struct {
	Body []service.Reading
}, error) {
	if h.svc == nil || h.svc.Readings == nil {
		return nil, huma.Error503ServiceUnavailable("readings store not available")
	}
	from, to := input.From, input.To
	if to.IsZero() {
		to = time.Now().UTC()
	}
	if from.IsZero() {
		from = to.Add(-24 * time.Hour)
	}
	readings, err := h.svc.Readings.Range(ctx, input.ID, input.Pollutant, from, to)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to query readings", err)
	}
	return &struct{ Body []service.Reading }{Body: readings}, nil
}
