package surface

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
)

// Mutation is one imperative change applied to a StateSurface. Dashboard
// clients replay mutations in order to keep their own map in step.
type Mutation struct {
	Op       string                     `json:"op"`
	SourceID string                     `json:"sourceId,omitempty"`
	LayerID  string                     `json:"layerId,omitempty"`
	BeforeID string                     `json:"beforeId,omitempty"`
	Name     string                     `json:"name,omitempty"`
	Value    any                        `json:"value,omitempty"`
	Filter   []any                      `json:"filter,omitempty"`
	Data     *geojson.FeatureCollection `json:"data,omitempty"`
	Layer    *LayerSpec                 `json:"layer,omitempty"`
	Viewport *Viewport                  `json:"viewport,omitempty"`
}

// Mutation op names, matching the imperative surface API.
const (
	OpLoad         = "load"
	OpAddSource    = "add-source"
	OpSetData      = "set-data"
	OpRemoveSource = "remove-source"
	OpAddLayer     = "add-layer"
	OpRemoveLayer  = "remove-layer"
	OpSetLayout    = "set-layout"
	OpSetPaint     = "set-paint"
	OpSetFilter    = "set-filter"
	OpEaseTo       = "ease-to"
	OpDestroy      = "destroy"
)

// MutationBus fans mutations out to subscribers without blocking the
// surface. A subscriber that falls behind misses mutations and is expected
// to resync from Snapshot.
type MutationBus struct {
	mu   sync.RWMutex
	subs map[chan Mutation]struct{}
}

// NewMutationBus creates an empty bus.
func NewMutationBus() *MutationBus {
	return &MutationBus{subs: make(map[chan Mutation]struct{})}
}

// Publish sends m to all subscribers, skipping any with a full buffer.
func (b *MutationBus) Publish(m Mutation) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- m:
		default:
		}
	}
}

// Subscribe returns a buffered channel of mutations.
func (b *MutationBus) Subscribe() chan Mutation {
	ch := make(chan Mutation, 64)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *MutationBus) Unsubscribe(ch chan Mutation) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
	close(ch)
}

type handlerReg struct {
	token   string
	event   string
	layerID string
	fn      HandlerFunc
}

// StateSurface is the server-side mirror of the client map: an in-memory
// Surface that tracks registered sources, layers, handlers and viewport,
// and publishes every mutation on a bus for SSE streaming.
type StateSurface struct {
	mu        sync.Mutex
	sources   map[string]*geojson.FeatureCollection
	layers    []LayerSpec // paint order: later entries on top
	handlers  []handlerReg
	viewport  Viewport
	loaded    bool
	destroyed bool
	onReady   func()
	bus       *MutationBus
}

// NewStateSurface creates an unloaded surface. onReady, if non-nil, is
// invoked on every Load call; the owning Handle deduplicates.
func NewStateSurface(onReady func()) *StateSurface {
	return &StateSurface{
		sources: make(map[string]*geojson.FeatureCollection),
		onReady: onReady,
		bus:     NewMutationBus(),
	}
}

// Mutations returns the bus carrying this surface's mutation stream.
func (s *StateSurface) Mutations() *MutationBus { return s.bus }

// Load marks the surface as finished loading and signals readiness.
func (s *StateSurface) Load() {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.loaded = true
	onReady := s.onReady
	s.mu.Unlock()

	s.bus.Publish(Mutation{Op: OpLoad})
	if onReady != nil {
		onReady()
	}
}

// Loaded reports whether Load has run.
func (s *StateSurface) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// AddSource registers a named feature collection.
func (s *StateSurface) AddSource(id string, data *geojson.FeatureCollection) error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return ErrSurfaceDestroyed
	}
	if _, exists := s.sources[id]; exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrSourceExists, id)
	}
	s.sources[id] = data
	s.mu.Unlock()

	s.bus.Publish(Mutation{Op: OpAddSource, SourceID: id, Data: data})
	return nil
}

// SetSourceData replaces the contents of an existing source in place.
func (s *StateSurface) SetSourceData(id string, data *geojson.FeatureCollection) error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return ErrSurfaceDestroyed
	}
	if _, exists := s.sources[id]; !exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrSourceMissing, id)
	}
	s.sources[id] = data
	s.mu.Unlock()

	s.bus.Publish(Mutation{Op: OpSetData, SourceID: id, Data: data})
	return nil
}

// RemoveSource deletes a source. Layers still drawing from it must be
// removed first; the surface rejects the removal otherwise.
func (s *StateSurface) RemoveSource(id string) error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return ErrSurfaceDestroyed
	}
	if _, exists := s.sources[id]; !exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrSourceMissing, id)
	}
	for _, l := range s.layers {
		if l.Source == id {
			s.mu.Unlock()
			return fmt.Errorf("source %q still in use by layer %q", id, l.ID)
		}
	}
	delete(s.sources, id)
	s.mu.Unlock()

	s.bus.Publish(Mutation{Op: OpRemoveSource, SourceID: id})
	return nil
}

// HasSource reports whether a source is registered.
func (s *StateSurface) HasSource(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sources[id]
	return ok
}

// AddLayer inserts spec into the paint order, before beforeID when that
// layer exists, at the top otherwise.
func (s *StateSurface) AddLayer(spec LayerSpec, beforeID string) error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return ErrSurfaceDestroyed
	}
	if s.layerIndex(spec.ID) >= 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrLayerExists, spec.ID)
	}
	if spec.Source != "" {
		if _, ok := s.sources[spec.Source]; !ok {
			s.mu.Unlock()
			return fmt.Errorf("%w: layer %q references %q", ErrSourceMissing, spec.ID, spec.Source)
		}
	}
	if idx := s.layerIndex(beforeID); beforeID != "" && idx >= 0 {
		s.layers = append(s.layers[:idx], append([]LayerSpec{spec}, s.layers[idx:]...)...)
	} else {
		s.layers = append(s.layers, spec)
	}
	s.mu.Unlock()

	s.bus.Publish(Mutation{Op: OpAddLayer, LayerID: spec.ID, BeforeID: beforeID, Layer: &spec})
	return nil
}

// RemoveLayer deletes a layer from the paint order.
func (s *StateSurface) RemoveLayer(id string) error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return ErrSurfaceDestroyed
	}
	idx := s.layerIndex(id)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrLayerMissing, id)
	}
	s.layers = append(s.layers[:idx], s.layers[idx+1:]...)
	s.mu.Unlock()

	s.bus.Publish(Mutation{Op: OpRemoveLayer, LayerID: id})
	return nil
}

// HasLayer reports whether a layer is in the paint order.
func (s *StateSurface) HasLayer(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layerIndex(id) >= 0
}

// LayerOrder returns layer ids bottom to top.
func (s *StateSurface) LayerOrder() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(s.layers))
	for i, l := range s.layers {
		ids[i] = l.ID
	}
	return ids
}

// SetLayoutProperty sets one layout property on an existing layer.
func (s *StateSurface) SetLayoutProperty(layerID, name string, value any) error {
	if err := s.setLayerProp(layerID, func(l *LayerSpec) {
		if l.Layout == nil {
			l.Layout = make(map[string]any)
		}
		l.Layout[name] = value
	}); err != nil {
		return err
	}
	s.bus.Publish(Mutation{Op: OpSetLayout, LayerID: layerID, Name: name, Value: value})
	return nil
}

// SetPaintProperty sets one paint property on an existing layer.
func (s *StateSurface) SetPaintProperty(layerID, name string, value any) error {
	if err := s.setLayerProp(layerID, func(l *LayerSpec) {
		if l.Paint == nil {
			l.Paint = make(map[string]any)
		}
		l.Paint[name] = value
	}); err != nil {
		return err
	}
	s.bus.Publish(Mutation{Op: OpSetPaint, LayerID: layerID, Name: name, Value: value})
	return nil
}

// SetFilter replaces the filter expression of an existing layer.
func (s *StateSurface) SetFilter(layerID string, filter []any) error {
	if err := s.setLayerProp(layerID, func(l *LayerSpec) {
		l.Filter = filter
	}); err != nil {
		return err
	}
	s.bus.Publish(Mutation{Op: OpSetFilter, LayerID: layerID, Filter: filter})
	return nil
}

// On registers fn for event, optionally scoped to layerID.
func (s *StateSurface) On(event, layerID string, fn HandlerFunc) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return "", ErrSurfaceDestroyed
	}
	token := uuid.NewString()
	s.handlers = append(s.handlers, handlerReg{token: token, event: event, layerID: layerID, fn: fn})
	return token, nil
}

// Off removes the registration identified by token. Calling Off on a
// destroyed surface or with an unknown token is a no-op.
func (s *StateSurface) Off(event, layerID, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, h := range s.handlers {
		if h.token == token && h.event == event && h.layerID == layerID {
			s.handlers = append(s.handlers[:i], s.handlers[i+1:]...)
			return
		}
	}
}

// Dispatch routes a pointer event to matching handlers. Scoped handlers
// fire only when their layer both matches the reported hit layer and still
// exists on the surface.
func (s *StateSurface) Dispatch(ev PointerEvent) {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	var matched []HandlerFunc
	for _, h := range s.handlers {
		if h.event != ev.Type {
			continue
		}
		if h.layerID != "" {
			if h.layerID != ev.LayerID || s.layerIndex(h.layerID) < 0 {
				continue
			}
		}
		matched = append(matched, h.fn)
	}
	s.mu.Unlock()

	for _, fn := range matched {
		fn(ev)
	}
}

// EaseTo records the requested camera target, superseding any prior one.
func (s *StateSurface) EaseTo(v Viewport) error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return ErrSurfaceDestroyed
	}
	s.viewport = v
	s.mu.Unlock()

	s.bus.Publish(Mutation{Op: OpEaseTo, Viewport: &v})
	return nil
}

// Viewport returns the last requested camera target.
func (s *StateSurface) Viewport() Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewport
}

// Destroy tears the surface down. Every later mutation returns
// ErrSurfaceDestroyed; Destroy itself is idempotent.
func (s *StateSurface) Destroy() {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.destroyed = true
	s.sources = make(map[string]*geojson.FeatureCollection)
	s.layers = nil
	s.handlers = nil
	s.mu.Unlock()

	s.bus.Publish(Mutation{Op: OpDestroy})
}

// Destroyed reports whether Destroy has run.
func (s *StateSurface) Destroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

// Snapshot returns the mutation sequence that reconstructs the current
// state on a fresh client: sources first, then layers bottom to top, then
// the viewport. Used by the SSE stream to prime late subscribers.
func (s *StateSurface) Snapshot() []Mutation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return nil
	}
	muts := make([]Mutation, 0, len(s.sources)+len(s.layers)+1)
	for id, data := range s.sources {
		muts = append(muts, Mutation{Op: OpAddSource, SourceID: id, Data: data})
	}
	for i := range s.layers {
		l := s.layers[i]
		muts = append(muts, Mutation{Op: OpAddLayer, LayerID: l.ID, Layer: &l})
	}
	muts = append(muts, Mutation{Op: OpEaseTo, Viewport: &s.viewport})
	return muts
}

func (s *StateSurface) setLayerProp(layerID string, apply func(*LayerSpec)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return ErrSurfaceDestroyed
	}
	idx := s.layerIndex(layerID)
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrLayerMissing, layerID)
	}
	apply(&s.layers[idx])
	return nil
}

// layerIndex returns the paint-order index of id, or -1. Caller holds mu.
func (s *StateSurface) layerIndex(id string) int {
	if id == "" {
		return -1
	}
	for i, l := range s.layers {
		if l.ID == id {
			return i
		}
	}
	return -1
}
