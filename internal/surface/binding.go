package surface

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Options are the declared inputs of one layer group. GroupID must be
// unique across concurrently applied bindings; everything else may change
// between Apply calls.
type Options struct {
	GroupID string

	// Data is the feature collection to render. nil means nothing to
	// render yet; an already-registered group keeps its last data.
	Data *geojson.FeatureCollection

	// Primary is the main layer drawn from the group source. An empty ID
	// defaults to "<groupID>-layer"; an empty Source is filled in with the
	// group source.
	Primary LayerSpec

	// Extra layers are added after Primary, in order. Later entries paint
	// above earlier ones.
	Extra []LayerSpec

	// BeforeID anchors every added layer immediately before an existing
	// layer, giving the caller z-order control relative to layers the
	// binding does not manage. Empty appends at the top.
	BeforeID string

	Visible bool

	OnFeatureClick func(feature *geojson.Feature, at orb.Point)

	// OnFeatureHover fires once per hovered feature identity and once with
	// nil when the pointer leaves all features of the group.
	OnFeatureHover func(feature *geojson.Feature)
}

// Binding reconciles one source-plus-layers group against the surface.
//
// Apply is called on every input change; it registers the group the first
// time readiness and data are both present, then takes the cheap path
// (replace source data in place) for data-only changes. Teardown removes
// handlers, layers (reverse add order) and finally the source, guarded step
// by step so it can race whole-surface destruction without erroring.
type Binding struct {
	groupID          string
	surf             Surface
	sourceRegistered bool
	managedLayerIDs  []string
	cancels          []func()

	hovering  bool
	lastHover any
}

// SourceID returns the surface source id a group registers under.
func SourceID(groupID string) string { return groupID + "-source" }

// primaryLayerID is the default id for a group's primary layer.
func primaryLayerID(groupID string) string { return groupID + "-layer" }

// GroupID returns the group currently held by the binding.
func (b *Binding) GroupID() string { return b.groupID }

// Registered reports whether the group source is registered on the surface.
func (b *Binding) Registered() bool { return b.sourceRegistered }

// ManagedLayerIDs returns the ids of layers added by this binding, in add
// order (later entries paint above earlier ones).
func (b *Binding) ManagedLayerIDs() []string {
	ids := make([]string, len(b.managedLayerIDs))
	copy(ids, b.managedLayerIDs)
	return ids
}

// Apply reconciles the binding against the surface snapshot in ctx.
func (b *Binding) Apply(ctx Context, opts Options) {
	if opts.GroupID == "" {
		log.Debug("binding apply skipped: empty group id")
		return
	}
	if b.sourceRegistered && opts.GroupID != b.groupID {
		// Group identity changed: the old group is torn down completely
		// before anything for the new group touches the surface.
		b.Teardown()
	}
	b.groupID = opts.GroupID

	s := ctx.Surface()
	if s == nil || !ctx.Ready() || s.Destroyed() {
		return
	}
	if opts.Data == nil {
		if b.sourceRegistered {
			b.applyVisibility(s, opts.Visible)
		}
		return
	}

	srcID := SourceID(opts.GroupID)
	if b.sourceRegistered && s.HasSource(srcID) {
		// Cheap path: a data-only change replaces the source contents and
		// never re-adds the source or its layers.
		withSource(s, srcID, func() error {
			return s.SetSourceData(srcID, opts.Data)
		})
		b.applyVisibility(s, opts.Visible)
		return
	}

	b.register(ctx, s, opts)
}

// Teardown removes everything the binding added: handlers first (a click on
// a half-removed layer must never fire), then layers in reverse add order,
// then the source. Every step is independently guarded, so teardown never
// errors even when the surface is already destroyed, and running it twice
// is a no-op the second time.
func (b *Binding) Teardown() {
	for _, cancel := range b.cancels {
		cancel()
	}
	b.cancels = nil

	s := b.surf
	for i := len(b.managedLayerIDs) - 1; i >= 0; i-- {
		id := b.managedLayerIDs[i]
		withLayer(s, id, func() error { return s.RemoveLayer(id) })
	}
	b.managedLayerIDs = nil

	if b.sourceRegistered {
		srcID := SourceID(b.groupID)
		withSource(s, srcID, func() error { return s.RemoveSource(srcID) })
	}
	b.sourceRegistered = false
	b.surf = nil
	b.hovering = false
	b.lastHover = nil
}

func (b *Binding) register(ctx Context, s Surface, opts Options) {
	srcID := SourceID(opts.GroupID)
	if err := s.AddSource(srcID, opts.Data); err != nil {
		log.WithField("source", srcID).WithError(err).Debug("add source rejected")
		return
	}
	b.surf = s
	b.sourceRegistered = true
	b.managedLayerIDs = nil

	primary := opts.Primary
	if primary.ID == "" {
		primary.ID = primaryLayerID(opts.GroupID)
	}
	if primary.Source == "" {
		primary.Source = srcID
	}
	if err := s.AddLayer(primary, opts.BeforeID); err != nil {
		log.WithField("layer", primary.ID).WithError(err).Debug("add layer rejected")
	} else {
		b.managedLayerIDs = append(b.managedLayerIDs, primary.ID)
	}

	for _, extra := range opts.Extra {
		spec := extra
		if spec.Source == "" {
			spec.Source = srcID
		}
		if err := s.AddLayer(spec, opts.BeforeID); err != nil {
			log.WithField("layer", spec.ID).WithError(err).Debug("add layer rejected")
			continue
		}
		b.managedLayerIDs = append(b.managedLayerIDs, spec.ID)
	}

	b.applyVisibility(s, opts.Visible)

	// Interactions bind only once the primary layer verifiably exists; the
	// add above can be rejected by a surface that is mid-teardown.
	if !s.HasLayer(primary.ID) {
		return
	}
	b.bindInteractions(ctx, primary.ID, opts)
}

func (b *Binding) bindInteractions(ctx Context, primaryID string, opts Options) {
	if opts.OnFeatureClick != nil {
		cancel, ok := Subscribe(ctx, EventClick, primaryID, func(ev PointerEvent) {
			if len(ev.Features) == 0 {
				return
			}
			opts.OnFeatureClick(ev.Features[0], ev.Point)
		})
		if ok {
			b.cancels = append(b.cancels, cancel)
		}
	}

	if opts.OnFeatureHover == nil {
		return
	}
	move, ok := Subscribe(ctx, EventPointerMove, primaryID, func(ev PointerEvent) {
		if len(ev.Features) == 0 {
			return
		}
		f := ev.Features[0]
		// De-duplicate on feature identity so a callback fires per hovered
		// feature, not per pointer-move tick. Two records sharing an id
		// will not report a transition.
		if b.hovering && b.lastHover == f.ID {
			return
		}
		b.hovering = true
		b.lastHover = f.ID
		opts.OnFeatureHover(f)
	})
	if ok {
		b.cancels = append(b.cancels, move)
	}
	leave, ok := Subscribe(ctx, EventPointerLeave, primaryID, func(ev PointerEvent) {
		if !b.hovering {
			return
		}
		b.hovering = false
		b.lastHover = nil
		opts.OnFeatureHover(nil)
	})
	if ok {
		b.cancels = append(b.cancels, leave)
	}
}

func (b *Binding) applyVisibility(s Surface, visible bool) {
	value := "none"
	if visible {
		value = "visible"
	}
	for _, id := range b.managedLayerIDs {
		layerID := id
		withLayer(s, layerID, func() error {
			return s.SetLayoutProperty(layerID, "visibility", value)
		})
	}
}
