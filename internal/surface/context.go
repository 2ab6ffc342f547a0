package surface

import "sync"

var misuseOnce sync.Once

// Context is an immutable snapshot of the shared surface. It is recomputed
// by the owner whenever the instance or its readiness changes and passed by
// value to every consumer; consumers never hold a second owning reference.
//
// The zero Context is the misuse detector: every operation degrades to a
// no-op and a single diagnostic is logged per process. A component wired
// without a provider must not crash unrelated parts of the dashboard.
type Context struct {
	surf  Surface
	ready bool
}

// Provide snapshots the current state of h. Pure; no side effects.
func Provide(h *Handle) Context {
	return Context{surf: h.Surface(), ready: h.Ready()}
}

// NewContext builds a snapshot directly from a surface and readiness flag.
func NewContext(s Surface, ready bool) Context {
	return Context{surf: s, ready: ready}
}

// Ready reports whether the surface has finished loading.
func (c Context) Ready() bool { return c.ready && c.surf != nil }

// Surface returns the shared instance, or nil for the zero Context.
func (c Context) Surface() Surface { return c.surf }

// Navigate requests an animated viewport transition. A no-op unless the
// surface is ready. Calls are not queued: the surface's own
// interrupt-and-restart semantics make the latest call win.
func (c Context) Navigate(v Viewport) {
	if c.misused("Navigate") || !c.ready || c.surf.Destroyed() {
		return
	}
	if err := c.surf.EaseTo(v); err != nil {
		log.WithError(err).Debug("navigate skipped")
	}
}

// SetLayerVisibility toggles the visibility layout property of layerID.
// Silently a no-op when the layer does not exist, which it legitimately may
// not during teardown races.
func (c Context) SetLayerVisibility(layerID string, visible bool) {
	if c.misused("SetLayerVisibility") {
		return
	}
	value := "none"
	if visible {
		value = "visible"
	}
	withLayer(c.surf, layerID, func() error {
		return c.surf.SetLayoutProperty(layerID, "visibility", value)
	})
}

// SetLayerFilter replaces the filter expression of layerID if it exists.
func (c Context) SetLayerFilter(layerID string, filter []any) {
	if c.misused("SetLayerFilter") {
		return
	}
	withLayer(c.surf, layerID, func() error {
		return c.surf.SetFilter(layerID, filter)
	})
}

// SetLayerPaint sets a single paint property of layerID if it exists.
func (c Context) SetLayerPaint(layerID, name string, value any) {
	if c.misused("SetLayerPaint") {
		return
	}
	withLayer(c.surf, layerID, func() error {
		return c.surf.SetPaintProperty(layerID, name, value)
	})
}

func (c Context) misused(op string) bool {
	if c.surf != nil {
		return false
	}
	misuseOnce.Do(func() {
		log.Warnf("surface context used without a provider (%s); calls degrade to no-ops", op)
	})
	return true
}
