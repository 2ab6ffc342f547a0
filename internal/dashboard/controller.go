// Package dashboard owns the shared map surface and reconciles platform
// data onto it. The Controller is the single component with create/destroy
// rights over the surface; every other consumer works through context
// snapshots or the REST/SSE endpoints.
package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"

	"github.com/airsense/airmap/internal/db"
	"github.com/airsense/airmap/internal/geo"
	"github.com/airsense/airmap/internal/service"
	"github.com/airsense/airmap/internal/surface"
)

var log = logrus.WithField("component", "dashboard")

// CredentialSource supplies the bearer credential used by overlay fetchers.
// The controller never inspects or stores the token itself.
type CredentialSource interface {
	Token() (string, error)
}

// TierGate decides which optional overlays are requested at all.
type TierGate interface {
	Tier() int
}

// FetchFunc loads the feature collection for one overlay. Fetches run off
// the reconciliation loop; completion is delivered back as a data-change
// task. A nil collection means nothing to render yet.
type FetchFunc func(ctx context.Context, overlay service.Overlay) (*geojson.FeatureCollection, error)

// Config wires the controller's collaborators.
type Config struct {
	Stations *service.StationService
	Overlays *service.OverlayService
	Regions  *service.RegionService
	Readings *db.ReadingStore // optional
	Bus      *service.EventBus
	Gate     TierGate  // optional; nil allows every overlay
	Fetch    FetchFunc // optional; overlays without a fetcher render nothing

	// RegionFile is the administrative boundary file drawn at startup.
	RegionFile string
}

// Controller keeps the surface in step with stations, overlays and
// boundaries. All reconciliation runs on one goroutine; public methods
// enqueue work instead of mutating shared state directly.
type Controller struct {
	cfg    Config
	handle *surface.Handle
	surf   *surface.StateSurface

	bindings map[string]*surface.Binding
	visible  map[string]bool // desired overlay visibility, keyed by overlay ID

	tasks     chan func()
	done      chan struct{}
	busCh     chan service.Event
	closeOnce sync.Once
}

// Group ids for the bindings the controller manages.
const (
	groupRegions  = "regions"
	groupStations = "stations"
)

// New acquires the surface and starts the reconciliation loop.
func New(cfg Config) (*Controller, error) {
	c := &Controller{
		cfg:      cfg,
		handle:   &surface.Handle{},
		bindings: make(map[string]*surface.Binding),
		visible:  make(map[string]bool),
		tasks:    make(chan func(), 64),
		done:     make(chan struct{}),
	}

	surf, err := c.handle.Acquire(func(onReady func()) (surface.Surface, error) {
		return surface.NewStateSurface(onReady), nil
	})
	if err != nil {
		return nil, fmt.Errorf("acquire surface: %w", err)
	}
	c.surf = surf.(*surface.StateSurface)

	c.handle.OnReady(func(surface.Surface) {
		c.do(c.syncAll)
	})

	if cfg.Bus != nil {
		c.busCh = cfg.Bus.Subscribe()
	}
	go c.loop()

	// The mirror is ready as soon as it exists; readiness flows through the
	// handle so bindings register on the loop, not here.
	c.surf.Load()
	return c, nil
}

// Surface returns the state mirror, for the SSE stream and pointer ingest.
func (c *Controller) Surface() *surface.StateSurface { return c.surf }

// DispatchPointer feeds a client pointer event into the surface handlers.
func (c *Controller) DispatchPointer(ev surface.PointerEvent) {
	c.do(func() { c.surf.Dispatch(ev) })
}

// Navigate requests an animated viewport transition; the latest call wins.
func (c *Controller) Navigate(v surface.Viewport) {
	c.do(func() { surface.Provide(c.handle).Navigate(v) })
}

// SetOverlayVisibility toggles one overlay's layers without re-creating
// them.
func (c *Controller) SetOverlayVisibility(overlayID string, visible bool) {
	c.do(func() {
		c.visible[overlayID] = visible
		b, ok := c.bindings[overlayID]
		if !ok {
			return
		}
		ctx := surface.Provide(c.handle)
		for _, layerID := range b.ManagedLayerIDs() {
			ctx.SetLayerVisibility(layerID, visible)
		}
	})
}

// Close tears down every binding and releases the surface. Idempotent.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		finished := make(chan struct{})
		select {
		case c.tasks <- func() {
			for _, b := range c.bindings {
				b.Teardown()
			}
			c.bindings = make(map[string]*surface.Binding)
			c.handle.Release()
			close(finished)
		}:
			<-finished
		case <-c.done:
		}
		close(c.done)
		if c.cfg.Bus != nil {
			c.cfg.Bus.Unsubscribe(c.busCh)
		}
	})
}

// do enqueues fn onto the reconciliation loop.
func (c *Controller) do(fn func()) {
	select {
	case c.tasks <- fn:
	case <-c.done:
	}
}

func (c *Controller) loop() {
	for {
		select {
		case fn := <-c.tasks:
			fn()
		case ev, ok := <-c.busCh:
			if !ok {
				return
			}
			c.handleEvent(ev)
		case <-c.done:
			return
		}
	}
}

func (c *Controller) handleEvent(ev service.Event) {
	switch ev.Resource {
	case "stations":
		c.syncStations()
	case "overlays":
		c.syncOverlays()
	}
}

func (c *Controller) syncAll() {
	c.syncRegions()
	c.syncStations()
	c.syncOverlays()
}

func (c *Controller) syncRegions() {
	if c.cfg.Regions == nil || c.cfg.RegionFile == "" {
		return
	}
	fc, err := c.cfg.Regions.Load(c.cfg.RegionFile)
	if err != nil {
		log.WithError(err).Warn("boundary file not loaded; map renders without regions")
		return
	}

	ctx := surface.Provide(c.handle)
	b := c.binding(groupRegions)
	b.Apply(ctx, surface.Options{
		GroupID: groupRegions,
		Data:    fc,
		Primary: surface.LayerSpec{
			ID:   "regions-fill",
			Type: "fill",
			Paint: map[string]any{
				"fill-color":   "#9aa7b8",
				"fill-opacity": 0.15,
			},
		},
		Extra: []surface.LayerSpec{
			{
				ID:   "regions-outline",
				Type: "line",
				Paint: map[string]any{
					"line-color": "#5b6b7d",
					"line-width": 1.0,
				},
			},
		},
		Visible: true,
	})

	if bound, ok := geo.CollectionBound(fc); ok {
		ctx.Navigate(surface.Viewport{Bounds: &bound})
	}
}

func (c *Controller) syncStations() {
	if c.cfg.Stations == nil {
		return
	}
	var latest map[string][]service.Reading
	if c.cfg.Readings != nil {
		readCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		var err error
		latest, err = c.cfg.Readings.Latest(readCtx)
		cancel()
		if err != nil {
			log.WithError(err).Debug("latest readings unavailable; stations render bare")
		}
	}

	data := geo.StationCollection(c.cfg.Stations.List(), latest)
	b := c.binding(groupStations)
	b.Apply(surface.Provide(c.handle), surface.Options{
		GroupID: groupStations,
		Data:    data,
		Primary: surface.LayerSpec{
			ID:   "stations-points",
			Type: "circle",
			Paint: map[string]any{
				"circle-radius": 6,
				"circle-color":  "#e8590c",
			},
		},
		Visible: true,
		OnFeatureClick: func(f *geojson.Feature, _ orb.Point) {
			c.publishSelection("station", f)
		},
		OnFeatureHover: func(f *geojson.Feature) {
			if f == nil {
				return
			}
			log.WithField("station", f.ID).Debug("station hovered")
		},
	})
}

func (c *Controller) syncOverlays() {
	if c.cfg.Overlays == nil {
		return
	}
	overlays := c.cfg.Overlays.List()
	allowed := make(map[string]service.Overlay, len(overlays))
	for id, o := range overlays {
		if c.cfg.Gate != nil && o.MinTier > c.cfg.Gate.Tier() {
			continue
		}
		allowed[id] = o
	}

	// Overlays deleted or newly gated out get torn down completely.
	for id, b := range c.bindings {
		if id == groupRegions || id == groupStations {
			continue
		}
		if _, ok := allowed[id]; !ok {
			b.Teardown()
			delete(c.bindings, id)
			delete(c.visible, id)
		}
	}

	for id, o := range allowed {
		if _, ok := c.visible[id]; !ok {
			c.visible[id] = o.DefaultVisible
		}
		c.startFetch(o)
	}
}

// startFetch loads overlay data off the loop and re-enters with the result
// as a data-change task. Stale results are superseded naturally: the
// binding only ever renders the latest value applied to it.
func (c *Controller) startFetch(o service.Overlay) {
	if c.cfg.Fetch == nil {
		c.applyOverlay(o, nil)
		return
	}
	go func() {
		fetchCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		fc, err := c.cfg.Fetch(fetchCtx, o)
		if err != nil {
			log.WithField("overlay", o.ID).WithError(err).Warn("overlay fetch failed; rendering nothing")
			return
		}
		c.do(func() { c.applyOverlay(o, fc) })
	}()
}

func (c *Controller) applyOverlay(o service.Overlay, data *geojson.FeatureCollection) {
	b := c.binding(o.ID)
	b.Apply(surface.Provide(c.handle), surface.Options{
		GroupID:  o.ID,
		Data:     data,
		Primary:  overlayLayerSpec(o),
		BeforeID: o.BeforeLayer,
		Visible:  c.visible[o.ID],
		OnFeatureClick: func(f *geojson.Feature, _ orb.Point) {
			c.publishSelection("overlay", f)
		},
	})
}

func (c *Controller) binding(groupID string) *surface.Binding {
	b, ok := c.bindings[groupID]
	if !ok {
		b = &surface.Binding{}
		c.bindings[groupID] = b
	}
	return b
}

func (c *Controller) publishSelection(kind string, f *geojson.Feature) {
	if c.cfg.Bus == nil || f == nil {
		return
	}
	c.cfg.Bus.Publish(service.Event{
		Resource: "selection",
		Action:   kind,
		ID:       fmt.Sprint(f.ID),
	})
}

func overlayLayerSpec(o service.Overlay) surface.LayerSpec {
	spec := surface.LayerSpec{ID: o.ID + "-layer"}
	switch o.GeomType {
	case "line":
		spec.Type = "line"
		spec.Paint = map[string]any{
			"line-color":   o.Stroke,
			"line-opacity": o.Opacity,
			"line-width":   2.0,
		}
	case "point":
		spec.Type = "circle"
		spec.Paint = map[string]any{
			"circle-color":   o.Fill,
			"circle-opacity": o.Opacity,
			"circle-radius":  5,
		}
	default:
		spec.Type = "fill"
		spec.Paint = map[string]any{
			"fill-color":         o.Fill,
			"fill-outline-color": o.Stroke,
			"fill-opacity":       o.Opacity,
		}
	}
	return spec
}
