package reconciler

import (
	"time"

	"github.com/qrstage/qrstage/internal/assoc"
	"github.com/qrstage/qrstage/internal/core"
	"github.com/qrstage/qrstage/internal/geo"
	"github.com/qrstage/qrstage/internal/tracking"
)

// Reconcile runs one full pass: a validity sweep over all registered markers
// followed by nearest-marker selection. Safe to call directly; the loop calls
// it on the cadence and after kicks.
func (e *Engine) Reconcile() {
	start := time.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	e.sweepLocked()
	e.selectLocked()

	e.lastPass = time.Since(start)
	e.passes++
}

// sweepLocked prunes registry entries whose handles are no longer valid or no
// longer tracked, clearing the active selection pointer when it referenced a
// pruned identity.
func (e *Engine) sweepLocked() {
	for _, tr := range e.reg.Snapshot() {
		if tr.Handle.Probe() == core.Alive && tr.Handle.IsTracked() {
			continue
		}
		e.reg.Remove(tr.Identity)
		if entry, ok := e.table.Lookup(tr.Identity); ok && e.active == entry {
			e.active = nil
		}
		e.log.Debug("Pruned stale marker", "identity", tr.Identity)
	}
}

type candidate struct {
	entry    *assoc.Entry
	handle   tracking.Handle
	distance float64
}

// selectLocked picks the minimum-distance eligible candidate and claims a
// spawn for it. Ties at exactly equal distance resolve first-seen-wins via
// the snapshot order; an active entry with an invalid display gets its
// distance forced to zero so the active slot is never left empty when it
// could be repaired.
func (e *Engine) selectLocked() {
	viewer, ok := e.viewer.ViewerPosition()
	if !ok {
		e.log.Debug("No viewer position, skipping selection ranking")
		return
	}

	var best *candidate

	// Captured up front: lazy invalidation may clear the pointer mid-pass,
	// but the repair override must still recognize the entry that held the
	// active slot when the pass began.
	activeAtStart := e.active

	for _, tr := range e.reg.Snapshot() {
		entry, found := e.table.Lookup(tr.Identity)
		if !found {
			continue
		}

		displayValid := e.life.IsValid(entry)
		wasActive := activeAtStart == entry

		if !displayValid && entry.Instance != nil {
			// Self-healing for instances destroyed asynchronously by
			// external code.
			e.forceCleanupLocked(entry)
		}

		if _, inflight := e.tickets[tr.Identity]; inflight {
			continue
		}

		pose, okp := tr.Handle.Pose()
		if !okp {
			continue
		}

		dist := geo.Distance(viewer, pose.Position)
		if wasActive && !displayValid {
			dist = 0
		}

		if best == nil || dist < best.distance {
			best = &candidate{entry: entry, handle: tr.Handle, distance: dist}
		}
	}

	if best == nil {
		return
	}

	// The winner is only spawned when it actually needs (re)display. An
	// invalid display always overrides a "don't redisplay" verdict:
	// correctness takes precedence over the dedup heuristic.
	if e.life.IsValid(best.entry) && !e.shouldDisplayLocked(best.entry) {
		return
	}

	// The handle may have gone invalid between the sweep and here.
	if best.handle.Probe() != core.Alive || !best.handle.IsTracked() {
		return
	}

	e.claimLocked(best.entry, best.handle)
}

// shouldDisplayLocked is the redisplay verdict: true when the candidate's
// display is invalid (repair takes priority) or when it is not the current
// active selection. A candidate that is already active and fully valid is not
// redisplayed. The active pointer itself is lazily invalidated first, which
// keeps the rest of the check simple.
func (e *Engine) shouldDisplayLocked(entry *assoc.Entry) bool {
	if e.active != nil {
		_, registered := e.reg.Get(e.active.Identity)
		if !registered || !e.life.IsValid(e.active) {
			e.active = nil
		}
	}

	if !e.life.IsValid(entry) {
		return true
	}
	return entry != e.active
}
