package surface

import (
	"testing"

	"github.com/paulmach/orb"
)

func TestZeroContextIsNoOp(t *testing.T) {
	var ctx Context
	// Misuse degrades to no-ops plus a diagnostic; it must never panic.
	ctx.Navigate(Viewport{Center: orb.Point{0, 0}, Zoom: 4})
	ctx.SetLayerVisibility("anything", true)
	ctx.SetLayerFilter("anything", []any{"==", "id", "x"})
	ctx.SetLayerPaint("anything", "fill-color", "#f00")
	if ctx.Ready() {
		t.Fatal("zero context reports ready")
	}
	if ctx.Surface() != nil {
		t.Fatal("zero context has a surface")
	}
}

func TestNavigateGatedOnReadiness(t *testing.T) {
	s := NewStateSurface(nil)
	notReady := NewContext(s, false)
	notReady.Navigate(Viewport{Zoom: 7})
	if got := s.Viewport().Zoom; got != 0 {
		t.Fatalf("zoom=%v, want 0 before ready", got)
	}

	s.Load()
	ready := NewContext(s, true)
	ready.Navigate(Viewport{Zoom: 7})
	ready.Navigate(Viewport{Zoom: 11}) // latest call wins
	if got := s.Viewport().Zoom; got != 11 {
		t.Fatalf("zoom=%v, want 11", got)
	}
}

func TestContextMutationsGuardMissingLayer(t *testing.T) {
	ctx, s := readyContext(t)

	// No layer registered: all three are silent no-ops.
	ctx.SetLayerVisibility("ghost", false)
	ctx.SetLayerFilter("ghost", []any{"==", "a", "b"})
	ctx.SetLayerPaint("ghost", "fill-opacity", 0.5)

	b := &Binding{}
	b.Apply(ctx, Options{GroupID: "g", Data: featureCollection("1"), Visible: true})

	ctx.SetLayerVisibility("g-layer", false)
	ctx.SetLayerPaint("g-layer", "fill-opacity", 0.25)
	ctx.SetLayerFilter("g-layer", []any{"==", "kind", "station"})

	if !s.HasLayer("g-layer") {
		t.Fatal("layer vanished")
	}
}

func TestContextMutationsAfterDestroy(t *testing.T) {
	ctx, s := readyContext(t)
	b := &Binding{}
	b.Apply(ctx, Options{GroupID: "g", Data: featureCollection("1"), Visible: true})

	s.Destroy()

	// Stale context snapshots race surface destruction; all calls no-op.
	ctx.SetLayerVisibility("g-layer", false)
	ctx.SetLayerPaint("g-layer", "fill-opacity", 0.1)
	ctx.Navigate(Viewport{Zoom: 3})
}

func TestProvideSnapshotsHandle(t *testing.T) {
	h := &Handle{}
	ctx := Provide(h)
	if ctx.Surface() != nil || ctx.Ready() {
		t.Fatal("snapshot of empty handle not empty")
	}

	surf, _ := h.Acquire(func(onReady func()) (Surface, error) {
		return NewStateSurface(onReady), nil
	})
	ctx = Provide(h)
	if ctx.Surface() == nil || ctx.Ready() {
		t.Fatal("snapshot after acquire should have instance but not readiness")
	}

	surf.(*StateSurface).Load()
	// The earlier snapshot is immutable; readiness shows up only in a
	// freshly provided one.
	if ctx.Ready() {
		t.Fatal("old snapshot mutated")
	}
	if !Provide(h).Ready() {
		t.Fatal("new snapshot missing readiness")
	}
}
