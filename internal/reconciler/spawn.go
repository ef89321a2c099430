package reconciler

import (
	"time"

	"github.com/qrstage/qrstage/internal/assoc"
	"github.com/qrstage/qrstage/internal/core"
	"github.com/qrstage/qrstage/internal/geo"
	"github.com/qrstage/qrstage/internal/render"
	"github.com/qrstage/qrstage/internal/tracking"
)

// claimLocked is the synchronous half of the creation protocol. Under the
// lock it tears down every competing display (the single-visible invariant is
// enforced proactively, not just reactively), marks the spawn ticket and
// takes the active slot, then schedules the materialize phase after the
// settle delay. Caller holds e.mu.
func (e *Engine) claimLocked(entry *assoc.Entry, h tracking.Handle) {
	for _, id := range e.table.Identities() {
		if other, ok := e.table.Lookup(id); ok && other != entry {
			e.teardownLocked(other)
		}
	}

	previous := activeIdentity(e.active)
	e.claimSeq++
	seq := e.claimSeq
	e.tickets[entry.Identity] = seq
	e.active = entry

	if previous != entry.Identity {
		viewer, _ := e.viewer.ViewerPosition()
		dist := 0.0
		if pose, ok := h.Pose(); ok {
			dist = geo.Distance(viewer, pose.Position)
		}
		e.recordSelection(previous, entry.Identity, viewer, dist)
		e.log.Info("Selection changed", "previous", previous, "current", entry.Identity, "distance", dist)
	}

	// The tracking pose needs time to settle after the subsystem reports a
	// handle; materialization re-validates the claim on resume.
	time.AfterFunc(e.cfg.SettleDelay, func() {
		e.materialize(entry, h, seq)
	})
}

// ownsClaimLocked reports whether the claim identified by seq still holds the
// ticket and the active slot. Caller holds e.mu.
func (e *Engine) ownsClaimLocked(entry *assoc.Entry, seq uint64) bool {
	cur, held := e.tickets[entry.Identity]
	return held && cur == seq && e.active == entry
}

// releaseClaimLocked clears the ticket, but only when it still belongs to
// this claim; a newer claim's ticket must survive so its own materialize can
// settle it. Caller holds e.mu.
func (e *Engine) releaseClaimLocked(entry *assoc.Entry, seq uint64) {
	if cur, held := e.tickets[entry.Identity]; held && cur == seq {
		delete(e.tickets, entry.Identity)
	}
}

// materialize is the asynchronous half of the creation protocol. It
// re-validates the claim after the settle delay, creates the instance outside
// the lock, then verifies once more that this entry is still the active
// selection; a claim that lost the race in either gap aborts and cleans up
// after itself. The spawn ticket is cleared on every path.
func (e *Engine) materialize(entry *assoc.Entry, h tracking.Handle, seq uint64) {
	e.mu.Lock()

	if !e.ownsClaimLocked(entry, seq) {
		// A competing claim won during the delay; only our own ticket may be
		// cleared here.
		e.releaseClaimLocked(entry, seq)
		e.mu.Unlock()
		return
	}
	if h.Probe() != core.Alive || !h.IsTracked() {
		e.releaseClaimLocked(entry, seq)
		e.mu.Unlock()
		e.log.Debug("Marker handle went invalid before materialize", "identity", entry.Identity)
		return
	}
	pose, ok := h.Pose()
	if !ok {
		e.releaseClaimLocked(entry, seq)
		e.mu.Unlock()
		return
	}
	assetRef := entry.AssetRef
	e.mu.Unlock()

	// Expensive instantiation never holds the lock.
	inst, err := e.life.Create(assetRef, pose)
	if err != nil {
		e.mu.Lock()
		e.releaseClaimLocked(entry, seq)
		e.mu.Unlock()
		e.log.Warn("Instance creation failed", "identity", entry.Identity, "assetRef", assetRef, "error", err)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.ownsClaimLocked(entry, seq) {
		// Lost the race after creation completed; destroying immediately is
		// cheaper than ever showing two instances at once.
		e.releaseClaimLocked(entry, seq)
		e.life.Destroy(inst)
		return
	}
	e.releaseClaimLocked(entry, seq)

	// A still-valid previous instance can survive into a re-claim: the sweep
	// prunes an untracked marker without touching its display, and re-detection
	// claims the same entry again. Replace it, never accumulate.
	if entry.Instance != nil {
		e.recordTeardown(entry)
		e.life.Teardown(entry)
	}

	entry.Instance = inst
	e.applyTransform(entry, pose, inst)

	if e.rec != nil {
		e.rec.InstanceSpawned(entry.Identity, assetRef, pose)
	}
	e.log.Info("Instance spawned", "identity", entry.Identity, "assetRef", assetRef)
}

// applyTransform applies position/rotation/scale per configuration: the
// instance-level override wins over the global default, and a zero-vector
// override is treated as unset.
func (e *Engine) applyTransform(entry *assoc.Entry, pose core.Pose, inst render.Instance) {
	pos := e.cfg.Defaults.PositionOffset
	if !entry.PositionOverride.IsZero() {
		pos = entry.PositionOverride
	}
	rot := e.cfg.Defaults.RotationOffset
	if !entry.RotationOverride.IsZero() {
		rot = entry.RotationOverride
	}
	if e.cfg.Defaults.FaceViewer {
		if viewer, ok := e.viewer.ViewerPosition(); ok {
			rot.Y = geo.YawTowards(pose.Position, viewer)
		}
	}
	inst.SetLocalTransform(pos, rot, e.cfg.Defaults.ScaleMultiplier)
}
