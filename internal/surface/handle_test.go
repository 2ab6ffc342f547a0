package surface

import (
	"errors"
	"testing"
)

func TestAcquireIdempotent(t *testing.T) {
	var constructed int
	h := &Handle{}
	factory := func(onReady func()) (Surface, error) {
		constructed++
		return NewStateSurface(onReady), nil
	}

	first, err := h.Acquire(factory)
	if err != nil {
		t.Fatal(err)
	}
	second, err := h.Acquire(factory)
	if err != nil {
		t.Fatal(err)
	}
	if constructed != 1 {
		t.Fatalf("constructed=%d, want 1", constructed)
	}
	if first != second {
		t.Fatal("second acquire returned a different instance")
	}
}

func TestOnReadyFiresOncePerInstance(t *testing.T) {
	h := &Handle{}
	surf, err := h.Acquire(func(onReady func()) (Surface, error) {
		return NewStateSurface(onReady), nil
	})
	if err != nil {
		t.Fatal(err)
	}

	var fired int
	h.OnReady(func(Surface) { fired++ })

	ss := surf.(*StateSurface)
	ss.Load()
	ss.Load()
	ss.Load()

	if fired != 1 {
		t.Fatalf("fired=%d, want 1", fired)
	}
	if !h.Ready() {
		t.Fatal("handle not ready after load")
	}
}

func TestOnReadyAfterReadyRunsImmediately(t *testing.T) {
	h := &Handle{}
	surf, _ := h.Acquire(func(onReady func()) (Surface, error) {
		return NewStateSurface(onReady), nil
	})
	surf.(*StateSurface).Load()

	var fired int
	h.OnReady(func(Surface) { fired++ })
	if fired != 1 {
		t.Fatalf("fired=%d, want 1", fired)
	}
}

func TestReadyImpliesInstance(t *testing.T) {
	h := &Handle{}
	if h.Ready() {
		t.Fatal("empty handle reports ready")
	}
	surf, _ := h.Acquire(func(onReady func()) (Surface, error) {
		return NewStateSurface(onReady), nil
	})
	// Instance may exist before readiness; the converse never holds.
	if h.Ready() {
		t.Fatal("ready before load")
	}
	if h.Surface() == nil {
		t.Fatal("instance missing after acquire")
	}
	surf.(*StateSurface).Load()
	if !h.Ready() || h.Surface() == nil {
		t.Fatal("ready without instance")
	}
}

func TestReleaseIdempotent(t *testing.T) {
	h := &Handle{}
	surf, _ := h.Acquire(func(onReady func()) (Surface, error) {
		return NewStateSurface(onReady), nil
	})
	surf.(*StateSurface).Load()

	h.Release()
	h.Release()

	if !surf.Destroyed() {
		t.Fatal("surface not destroyed by release")
	}
	if h.Surface() != nil || h.Ready() {
		t.Fatal("handle not reset after release")
	}
}

func TestAcquireConstructionFailure(t *testing.T) {
	h := &Handle{}
	boom := errors.New("bad container")
	_, err := h.Acquire(func(func()) (Surface, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v, want wrapped %v", err, boom)
	}
	if h.Surface() != nil {
		t.Fatal("failed acquire left an instance behind")
	}

	// A later acquire may try again; failure is not sticky.
	surf, err := h.Acquire(func(onReady func()) (Surface, error) {
		return NewStateSurface(onReady), nil
	})
	if err != nil || surf == nil {
		t.Fatalf("retry acquire failed: %v", err)
	}
}

func TestReadySignaledDuringConstruction(t *testing.T) {
	h := &Handle{}
	var fired int
	h.OnReady(func(Surface) { fired++ })

	surf, err := h.Acquire(func(onReady func()) (Surface, error) {
		s := NewStateSurface(onReady)
		s.Load() // readiness races construction
		return s, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if fired != 1 {
		t.Fatalf("fired=%d, want 1", fired)
	}
	if !h.Ready() || h.Surface() != surf {
		t.Fatal("handle did not settle after racing ready signal")
	}
}
