package surface

import "sync"

// Subscribe attaches fn to a surface event, optionally scoped to a layer.
// The attach is skipped entirely, not queued, when the surface is not ready
// or a scoped layer does not exist; the caller's own lifecycle re-run is
// expected to subscribe again once conditions hold. The returned cancel
// func detaches the handler, tolerates a destroyed surface, and is safe to
// call more than once.
func Subscribe(ctx Context, event, scopeLayerID string, fn HandlerFunc) (cancel func(), attached bool) {
	s := ctx.Surface()
	if s == nil || !ctx.Ready() || s.Destroyed() {
		return func() {}, false
	}
	if scopeLayerID != "" && !s.HasLayer(scopeLayerID) {
		log.WithField("layer", scopeLayerID).Debug("subscribe skipped: scope layer not present")
		return func() {}, false
	}

	token, err := s.On(event, scopeLayerID, fn)
	if err != nil {
		log.WithError(err).Debug("subscribe rejected by surface")
		return func() {}, false
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			s.Off(event, scopeLayerID, token)
		})
	}, true
}
