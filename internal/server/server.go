// Package server assembles the HTTP server: REST API, map stream and the
// dashboard controller that owns the map surface.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"

	"github.com/airsense/airmap/internal/api"
	"github.com/airsense/airmap/internal/dashboard"
	"github.com/airsense/airmap/internal/db"
	"github.com/airsense/airmap/internal/service"
)

var log = logrus.WithField("component", "server")

// Config holds the server configuration.
type Config struct {
	Host       string
	Port       string
	DataDir    string
	RegionFile string // boundary file under <DataDir>/regions drawn at startup
	Tier       int    // subscription tier, gates premium overlays
}

// Server is the airmap HTTP server.
type Server struct {
	config   Config
	mux      *http.ServeMux
	humaAPI  huma.API
	services *api.Services
	ctrl     *dashboard.Controller
}

// New creates a new airmap server.
func New(cfg Config) (*Server, error) {
	mux := http.NewServeMux()

	humaConfig := huma.DefaultConfig("airmap API", "1.0.0")
	humaConfig.Info.Description = "Air quality dashboard API: stations, overlays, readings and the live map stream."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}

	humaAPI := humago.New(mux, humaConfig)

	bus := service.NewEventBus()
	services := &api.Services{
		Station: service.NewStationService(cfg.DataDir, bus),
		Overlay: service.NewOverlayService(cfg.DataDir, bus),
		Region:  service.NewRegionService(cfg.DataDir),
	}

	if conn, err := db.Get(db.Config{DataDir: cfg.DataDir, DBName: "airmap"}); err != nil {
		log.WithError(err).Warn("DuckDB unavailable; readings endpoints disabled")
	} else {
		store, err := db.NewReadingStore(conn)
		if err != nil {
			return nil, fmt.Errorf("init readings store: %w", err)
		}
		services.Readings = store
	}

	ctrl, err := dashboard.New(dashboard.Config{
		Stations:   services.Station,
		Overlays:   services.Overlay,
		Regions:    services.Region,
		Readings:   services.Readings,
		Bus:        bus,
		Gate:       staticTier(cfg.Tier),
		Fetch:      overlayFetcher(envTokenSource{}),
		RegionFile: cfg.RegionFile,
	})
	if err != nil {
		return nil, fmt.Errorf("start dashboard controller: %w", err)
	}

	s := &Server{
		config:   cfg,
		mux:      mux,
		humaAPI:  humaAPI,
		services: services,
		ctrl:     ctrl,
	}
	s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI description.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Close stops the dashboard controller and closes server resources.
func (s *Server) Close() error {
	s.ctrl.Close()
	return db.Close()
}

func (s *Server) routes() {
	api.NewAPIHandler(s.services, s.config.DataDir).RegisterRoutes(s.humaAPI)
	api.NewMapHandler(s.ctrl).RegisterRoutes(s.humaAPI)

	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintln(w, `{"service":"airmap","status":"running"}`)
}

// staticTier is a fixed subscription tier configured at startup.
type staticTier int

func (t staticTier) Tier() int { return int(t) }

// envTokenSource reads the overlay API credential from the environment.
type envTokenSource struct{}

func (envTokenSource) Token() (string, error) {
	tok := os.Getenv("AIRMAP_API_TOKEN")
	if tok == "" {
		return "", fmt.Errorf("AIRMAP_API_TOKEN not set")
	}
	return tok, nil
}

// overlayFetcher loads overlay feature collections from each overlay's data
// URL, attaching a bearer credential when one is available. Overlays without
// a data URL render nothing.
func overlayFetcher(creds dashboard.CredentialSource) dashboard.FetchFunc {
	client := &http.Client{Timeout: 30 * time.Second}
	return func(ctx context.Context, o service.Overlay) (*geojson.FeatureCollection, error) {
		if o.DataURL == "" {
			return nil, nil
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.DataURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build overlay request: %w", err)
		}
		if tok, err := creds.Token(); err == nil {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch overlay %q: %w", o.ID, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch overlay %q: unexpected status %d", o.ID, resp.StatusCode)
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, 50<<20))
		if err != nil {
			return nil, fmt.Errorf("read overlay %q: %w", o.ID, err)
		}
		fc, err := geojson.UnmarshalFeatureCollection(body)
		if err != nil {
			return nil, fmt.Errorf("decode overlay %q: %w", o.ID, err)
		}
		return fc, nil
	}
}
