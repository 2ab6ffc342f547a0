package dashboard

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/airsense/airmap/internal/service"
	"github.com/airsense/airmap/internal/surface"
)

const regionsFixture = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "id": "district-1",
      "properties": {"name": "District One"},
      "geometry": {
        "type": "Polygon",
        "coordinates": [[[13.0, 52.0], [14.0, 52.0], [14.0, 53.0], [13.0, 53.0], [13.0, 52.0]]]
      }
    }
  ]
}`

// barrier blocks until every task enqueued before it has run.
func (c *Controller) barrier() {
	done := make(chan struct{})
	c.do(func() { close(done) })
	<-done
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func newTestController(t *testing.T, gate TierGate, fetch FetchFunc) (*Controller, *service.StationService, *service.OverlayService, *service.EventBus) {
	t.Helper()
	dir := t.TempDir()

	regionsDir := filepath.Join(dir, "regions")
	if err := os.MkdirAll(regionsDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(regionsDir, "districts.geojson"), []byte(regionsFixture), 0644); err != nil {
		t.Fatal(err)
	}

	bus := service.NewEventBus()
	stations := service.NewStationService(dir, bus)
	overlays := service.NewOverlayService(dir, bus)
	regions := service.NewRegionService(dir)

	ctrl, err := New(Config{
		Stations:   stations,
		Overlays:   overlays,
		Regions:    regions,
		Bus:        bus,
		Gate:       gate,
		Fetch:      fetch,
		RegionFile: "districts.geojson",
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(ctrl.Close)
	return ctrl, stations, overlays, bus
}

func TestControllerInitialSync(t *testing.T) {
	ctrl, _, _, _ := newTestController(t, nil, nil)
	ctrl.barrier()

	s := ctrl.Surface()
	if !s.HasSource("regions-source") {
		t.Fatal("regions source missing")
	}
	if !s.HasLayer("regions-fill") || !s.HasLayer("regions-outline") {
		t.Fatal("region layers missing")
	}
	if !s.HasSource("stations-source") || !s.HasLayer("stations-points") {
		t.Fatal("stations group missing")
	}
	if vp := s.Viewport(); vp.Bounds == nil {
		t.Fatal("initial sync did not fit the boundary bounds")
	}
}

func TestControllerStationChangeReconciles(t *testing.T) {
	ctrl, stations, _, _ := newTestController(t, nil, nil)
	ctrl.barrier()

	if _, err := stations.Create(service.Station{Name: "Berlin Mitte", Lon: 13.4, Lat: 52.5}); err != nil {
		t.Fatal(err)
	}

	waitFor(t, "station feature", func() bool {
		ctrl.barrier()
		for _, m := range ctrl.Surface().Snapshot() {
			if m.Op == surface.OpAddSource && m.SourceID == "stations-source" {
				return m.Data != nil && len(m.Data.Features) == 1
			}
		}
		return false
	})
}

func TestControllerOverlayFetchAndGate(t *testing.T) {
	fetch := func(ctx context.Context, o service.Overlay) (*geojson.FeatureCollection, error) {
		fc := geojson.NewFeatureCollection()
		f := geojson.NewFeature(orb.Point{13.4, 52.5})
		f.ID = o.Pollutant + "-cell"
		fc.Append(f)
		return fc, nil
	}
	ctrl, _, overlays, _ := newTestController(t, tierGate(1), fetch)
	ctrl.barrier()

	if _, err := overlays.Create(service.Overlay{
		ID: "no2", Name: "NO2", Pollutant: "no2", GeomType: "polygon", Opacity: 0.7, DefaultVisible: true,
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := overlays.Create(service.Overlay{
		ID: "hires", Name: "High-res imagery", Pollutant: "pm25", GeomType: "polygon", Opacity: 0.7, MinTier: 2,
	}); err != nil {
		t.Fatal(err)
	}

	waitFor(t, "overlay registration", func() bool {
		ctrl.barrier()
		return ctrl.Surface().HasSource("no2-source")
	})
	if ctrl.Surface().HasSource("hires-source") {
		t.Fatal("tier-gated overlay was requested")
	}
}

func TestControllerOverlayDeleteTearsDown(t *testing.T) {
	fetch := func(ctx context.Context, o service.Overlay) (*geojson.FeatureCollection, error) {
		return geojson.NewFeatureCollection(), nil
	}
	ctrl, _, overlays, _ := newTestController(t, nil, fetch)
	ctrl.barrier()

	if _, err := overlays.Create(service.Overlay{
		ID: "no2", Name: "NO2", Pollutant: "no2", GeomType: "polygon", Opacity: 0.7,
	}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "overlay registration", func() bool {
		ctrl.barrier()
		return ctrl.Surface().HasSource("no2-source")
	})

	if err := overlays.Delete("no2"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "overlay teardown", func() bool {
		ctrl.barrier()
		return !ctrl.Surface().HasSource("no2-source")
	})
}

func TestControllerVisibilityToggle(t *testing.T) {
	fetch := func(ctx context.Context, o service.Overlay) (*geojson.FeatureCollection, error) {
		return geojson.NewFeatureCollection(), nil
	}
	ctrl, _, overlays, _ := newTestController(t, nil, fetch)
	ctrl.barrier()

	if _, err := overlays.Create(service.Overlay{
		ID: "no2", Name: "NO2", Pollutant: "no2", GeomType: "polygon", Opacity: 0.7, DefaultVisible: true,
	}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "overlay registration", func() bool {
		ctrl.barrier()
		return ctrl.Surface().HasLayer("no2-layer")
	})

	ch := ctrl.Surface().Mutations().Subscribe()
	defer ctrl.Surface().Mutations().Unsubscribe(ch)

	ctrl.SetOverlayVisibility("no2", false)
	ctrl.barrier()

	saw := false
	for {
		select {
		case m := <-ch:
			if m.Op == surface.OpSetLayout && m.LayerID == "no2-layer" && m.Value == "none" {
				saw = true
			}
			continue
		default:
		}
		break
	}
	if !saw {
		t.Fatal("visibility toggle did not set layout property")
	}
	if !ctrl.Surface().HasLayer("no2-layer") {
		t.Fatal("visibility toggle removed the layer")
	}
}

func TestControllerCloseReleasesSurface(t *testing.T) {
	ctrl, _, _, _ := newTestController(t, nil, nil)
	ctrl.barrier()

	s := ctrl.Surface()
	ctrl.Close()
	ctrl.Close() // idempotent

	if !s.Destroyed() {
		t.Fatal("surface not destroyed on close")
	}
	// Late pointer events and navigations must be swallowed, not panic.
	ctrl.DispatchPointer(surface.PointerEvent{Type: surface.EventClick})
	ctrl.Navigate(surface.Viewport{Zoom: 5})
}

type tierGate int

func (g tierGate) Tier() int { return int(g) }
