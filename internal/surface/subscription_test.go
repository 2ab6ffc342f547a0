package surface

import "testing"

func TestSubscribeSkippedWhenNotReady(t *testing.T) {
	s := NewStateSurface(nil)
	ctx := NewContext(s, false)

	cancel, attached := Subscribe(ctx, EventClick, "", func(PointerEvent) {})
	if attached {
		t.Fatal("attached before ready")
	}
	cancel() // no-op cancel must be safe
}

func TestSubscribeSkippedWhenScopeLayerMissing(t *testing.T) {
	ctx, _ := readyContext(t)
	_, attached := Subscribe(ctx, EventClick, "absent-layer", func(PointerEvent) {})
	if attached {
		t.Fatal("attached with missing scope layer")
	}
}

func TestSubscribeAndCancel(t *testing.T) {
	ctx, s := readyContext(t)

	var fired int
	cancel, attached := Subscribe(ctx, EventClick, "", func(PointerEvent) { fired++ })
	if !attached {
		t.Fatal("not attached")
	}

	s.Dispatch(PointerEvent{Type: EventClick})
	cancel()
	cancel() // second cancel is a no-op
	s.Dispatch(PointerEvent{Type: EventClick})

	if fired != 1 {
		t.Fatalf("fired=%d, want 1", fired)
	}
}

func TestCancelAfterSurfaceDestroyed(t *testing.T) {
	ctx, s := readyContext(t)
	cancel, attached := Subscribe(ctx, EventClick, "", func(PointerEvent) {})
	if !attached {
		t.Fatal("not attached")
	}
	s.Destroy()
	cancel() // must tolerate a destroyed surface
}

func TestHandlerChangeReregisters(t *testing.T) {
	ctx, s := readyContext(t)

	var first, second int
	cancel, _ := Subscribe(ctx, EventClick, "", func(PointerEvent) { first++ })

	// Handler identity change: deregister the old one before attaching the
	// replacement, keeping one active registration per tuple.
	cancel()
	_, attached := Subscribe(ctx, EventClick, "", func(PointerEvent) { second++ })
	if !attached {
		t.Fatal("replacement not attached")
	}

	s.Dispatch(PointerEvent{Type: EventClick})
	if first != 0 || second != 1 {
		t.Fatalf("first=%d second=%d, want 0/1", first, second)
	}
}
