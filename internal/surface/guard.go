package surface

// Existence-check combinators wrapping every mutation call. Teardown and
// data updates race the surface's own asynchronous destruction, so a
// missing id or a destroyed surface is a skip, never an error. Keeping the
// checks here keeps the failure surface narrow instead of relying on broad
// error suppression at call sites.

// withLayer runs fn only when layerID currently exists on s. Returns
// whether fn ran and succeeded.
func withLayer(s Surface, layerID string, fn func() error) bool {
	if s == nil || s.Destroyed() || !s.HasLayer(layerID) {
		log.WithField("layer", layerID).Debug("mutation skipped: layer not present")
		return false
	}
	if err := fn(); err != nil {
		log.WithField("layer", layerID).WithError(err).Debug("mutation rejected by surface")
		return false
	}
	return true
}

// withSource runs fn only when sourceID currently exists on s.
func withSource(s Surface, sourceID string, fn func() error) bool {
	if s == nil || s.Destroyed() || !s.HasSource(sourceID) {
		log.WithField("source", sourceID).Debug("mutation skipped: source not present")
		return false
	}
	if err := fn(); err != nil {
		log.WithField("source", sourceID).WithError(err).Debug("mutation rejected by surface")
		return false
	}
	return true
}
