// Package surface keeps declaratively described map layer groups in sync
// with a single long-lived, imperatively mutated map surface.
//
// The surface (a MapLibre instance on the dashboard client, mirrored
// server-side by [StateSurface]) has its own asynchronous lifecycle that
// does not line up with the lifecycle of the components feeding it data.
// This package provides the pieces that bridge the two:
//
//   - Handle: single owner of surface creation and destruction
//   - Context: immutable snapshot through which everything else mutates
//   - Binding: one source plus its layers, reconciled as a group
//   - Subscribe: pointer-event registration scoped to the surface lifetime
package surface

import (
	"errors"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "surface")

// Sentinel errors returned by Surface implementations. Callers inside this
// package treat all of them as skip conditions, never as failures.
var (
	ErrSurfaceDestroyed = errors.New("surface destroyed")
	ErrSourceExists     = errors.New("source already exists")
	ErrSourceMissing    = errors.New("source not found")
	ErrLayerExists      = errors.New("layer already exists")
	ErrLayerMissing     = errors.New("layer not found")
)

// Pointer event types understood by Dispatch and Subscribe.
const (
	EventClick        = "click"
	EventPointerMove  = "mousemove"
	EventPointerLeave = "mouseleave"
)

// LayerSpec describes a single style layer drawn from a source.
type LayerSpec struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"` // fill, line, circle, symbol, raster
	Source string         `json:"source,omitempty"`
	Paint  map[string]any `json:"paint,omitempty"`
	Layout map[string]any `json:"layout,omitempty"`
	Filter []any          `json:"filter,omitempty"`
}

// Viewport is a camera target for animated transitions.
type Viewport struct {
	Center  orb.Point  `json:"center"`
	Zoom    float64    `json:"zoom,omitempty"`
	Bearing float64    `json:"bearing,omitempty"`
	Pitch   float64    `json:"pitch,omitempty"`
	Bounds  *orb.Bound `json:"bounds,omitempty"` // when set, fit bounds instead of centering
}

// PointerEvent is a pointer interaction delivered to subscribed handlers.
// LayerID names the topmost hit layer as reported by the client.
type PointerEvent struct {
	Type     string
	Point    orb.Point
	LayerID  string
	Features []*geojson.Feature
}

// HandlerFunc receives pointer events for a subscription.
type HandlerFunc func(PointerEvent)

// Surface is the imperative, mutation-based API of the shared map instance.
// Mutations on a destroyed surface return ErrSurfaceDestroyed; callers are
// expected to guard with HasSource/HasLayer first and treat errors as no-ops.
type Surface interface {
	AddSource(id string, data *geojson.FeatureCollection) error
	SetSourceData(id string, data *geojson.FeatureCollection) error
	RemoveSource(id string) error
	HasSource(id string) bool

	// AddLayer inserts the layer above all others, or immediately before
	// beforeID when beforeID names an existing layer.
	AddLayer(spec LayerSpec, beforeID string) error
	RemoveLayer(id string) error
	HasLayer(id string) bool

	SetLayoutProperty(layerID, name string, value any) error
	SetPaintProperty(layerID, name string, value any) error
	SetFilter(layerID string, filter []any) error

	// On registers fn for event, optionally scoped to a layer. The returned
	// token identifies the registration for Off. Off is safe to call after
	// the surface has been destroyed.
	On(event, layerID string, fn HandlerFunc) (string, error)
	Off(event, layerID, token string)

	// EaseTo starts an animated transition to v, interrupting any
	// transition already in flight. The latest call wins.
	EaseTo(v Viewport) error

	Destroy()
	Destroyed() bool
}
