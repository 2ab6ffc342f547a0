package surface

import (
	"fmt"
	"sync"
)

// Factory constructs a Surface. onReady must be invoked by the
// implementation once its internal loading completes; invoking it more than
// once is allowed and deduplicated by the handle.
type Factory func(onReady func()) (Surface, error)

// Handle is the single owner of one surface instance. Exactly one component
// holds a Handle; everyone else goes through a Context snapshot.
//
// Acquire is idempotent so that a double-invoked setup path (mount, cleanup,
// mount again in quick succession) never constructs a second instance while
// the first is alive. Release is likewise safe to run any number of times.
type Handle struct {
	mu           sync.Mutex
	surf         Surface
	acquiring    bool
	ready        bool
	readyFired   bool
	pendingReady bool
	callbacks    []func(Surface)
}

// Acquire constructs the surface via f, or returns the already-constructed
// instance. Construction errors are returned synchronously and are not
// retried; the handle stays empty and a later Acquire may try again.
func (h *Handle) Acquire(f Factory) (Surface, error) {
	h.mu.Lock()
	if h.surf != nil {
		s := h.surf
		h.mu.Unlock()
		return s, nil
	}
	if h.acquiring {
		h.mu.Unlock()
		return nil, fmt.Errorf("surface acquire already in progress")
	}
	// Sentinel before any fallible work. The factory may call onReady
	// synchronously, so construction happens outside the lock.
	h.acquiring = true
	h.mu.Unlock()

	surf, err := f(h.signalReady)

	h.mu.Lock()
	h.acquiring = false
	if err != nil {
		h.pendingReady = false
		h.mu.Unlock()
		return nil, fmt.Errorf("construct surface: %w", err)
	}
	h.surf = surf
	fireNow := h.pendingReady
	h.pendingReady = false
	h.mu.Unlock()

	if fireNow {
		h.signalReady()
	}
	return surf, nil
}

// OnReady registers fn to run once the surface reports readiness. Each
// acquired instance fires its callbacks exactly once, no matter how many
// times the implementation signals. If the surface is already ready, fn
// runs immediately.
func (h *Handle) OnReady(fn func(Surface)) {
	h.mu.Lock()
	if h.ready && h.surf != nil {
		s := h.surf
		h.mu.Unlock()
		fn(s)
		return
	}
	h.callbacks = append(h.callbacks, fn)
	h.mu.Unlock()
}

// Release destroys the surface and resets the handle. Releasing an empty or
// already-released handle is a no-op.
func (h *Handle) Release() {
	h.mu.Lock()
	surf := h.surf
	h.surf = nil
	h.ready = false
	h.readyFired = false
	h.pendingReady = false
	h.callbacks = nil
	h.mu.Unlock()

	if surf != nil {
		surf.Destroy()
	}
}

// Ready reports whether the surface has finished internal loading.
// Ready implies a non-nil Surface; the converse does not hold.
func (h *Handle) Ready() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ready
}

// Surface returns the owned instance, or nil before Acquire / after Release.
func (h *Handle) Surface() Surface {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.surf
}

func (h *Handle) signalReady() {
	h.mu.Lock()
	if h.surf == nil {
		// Readiness raced construction; replayed once Acquire stores the
		// instance. Signals after Release are dropped.
		if h.acquiring {
			h.pendingReady = true
		}
		h.mu.Unlock()
		return
	}
	if h.readyFired {
		h.mu.Unlock()
		return
	}
	h.readyFired = true
	h.ready = true
	cbs := h.callbacks
	h.callbacks = nil
	s := h.surf
	h.mu.Unlock()

	for _, fn := range cbs {
		fn(s)
	}
}
