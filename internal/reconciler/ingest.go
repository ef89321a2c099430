package reconciler

import (
	"github.com/qrstage/qrstage/internal/assoc"
	"github.com/qrstage/qrstage/internal/core"
	"github.com/qrstage/qrstage/internal/tracking"
)

// admit filters a tracking callback down to a normalized identity. Markers of
// other kinds and markers with no decodable payload are dropped here and
// never reach the rest of the pipeline.
func (e *Engine) admit(h tracking.Handle) (string, bool) {
	if h == nil {
		return "", false
	}
	if kind := h.Kind(); kind != core.KindQR {
		e.log.Debug("Ignoring marker of unhandled kind", "kind", kind.String())
		return "", false
	}
	payload, ok := h.Payload()
	if !ok {
		e.log.Debug("Ignoring marker with no payload")
		return "", false
	}
	identity := assoc.Normalize(payload)
	if identity == "" {
		e.log.Debug("Ignoring marker with empty payload")
		return "", false
	}
	return identity, true
}

// OnMarkerAdded handles a marker-added notification from the tracking
// subsystem. Depending on current state it records the handle, recovers from
// an externally-destroyed display, spawns immediately, or defers to the
// periodic pass.
func (e *Engine) OnMarkerAdded(h tracking.Handle) {
	identity, ok := e.admit(h)
	if !ok {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	entry, ok := e.table.Lookup(identity)
	if !ok {
		e.log.Debug("Marker has no configured association, dropping", "identity", identity)
		return
	}

	present := e.reg.Upsert(identity, h)
	if present {
		e.log.Debug("Marker re-detected", "identity", identity)
	} else {
		e.log.Info("Marker detected", "identity", identity)
	}
	if e.rec != nil {
		pos := core.Position3D{}
		if pose, okp := h.Pose(); okp {
			pos = pose.Position
		}
		e.rec.MarkerSeen(identity, pos, h.IsTracked())
	}

	wasActive := e.active == entry

	if !e.life.IsValid(entry) {
		// Recovers from instances destroyed externally: whatever the prior
		// state, residual display state is unusable and must go before any
		// further decision.
		e.forceCleanupLocked(entry)
	} else if wasActive {
		// Already correctly shown; the refreshed handle is all we needed.
		return
	}

	if _, inflight := e.tickets[identity]; inflight {
		// A creation is already in flight for this identity.
		return
	}

	if e.reg.Len() > 1 {
		// Several markers are visible; a single partial event cannot pick
		// the right one without flicker. The periodic pass sees the
		// aggregate view.
		return
	}

	e.claimLocked(entry, h)
}

// OnMarkerRemoved handles a marker-removed notification. If the removed
// marker held the active selection, an out-of-band reconciliation pass is
// kicked so the next closest marker takes over without waiting a full tick.
func (e *Engine) OnMarkerRemoved(h tracking.Handle) {
	identity, ok := e.admit(h)
	if !ok {
		return
	}

	e.mu.Lock()

	present := e.reg.Remove(identity)
	delete(e.tickets, identity)

	wasActive := false
	if entry, found := e.table.Lookup(identity); found {
		wasActive = e.active == entry
		e.teardownLocked(entry)
	}

	if present {
		e.log.Info("Marker lost", "identity", identity, "wasActive", wasActive)
	}
	if e.rec != nil {
		pos := core.Position3D{}
		if pose, okp := h.Pose(); okp {
			pos = pose.Position
		}
		e.rec.MarkerLost(identity, pos)
	}

	e.mu.Unlock()

	if wasActive {
		e.Kick()
	}
}
