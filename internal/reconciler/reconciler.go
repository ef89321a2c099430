// Package reconciler is the selection/lifecycle core: it ingests marker
// add/remove notifications, maintains the registry of live markers, and
// drives the invariant that exactly one display instance exists at any time,
// belonging to the marker currently closest to the viewer.
//
// All shared state (registry, active selection, spawn tickets, per-entry
// instance handles) forms one causal group guarded by a single mutex.
// Creation is split into a synchronous claim under the lock and an
// asynchronous materialize phase after a settle delay, which re-validates the
// claim since the world may have changed in the gap.
package reconciler

import (
	"log/slog"
	"sync"
	"time"

	"github.com/qrstage/qrstage/internal/assoc"
	"github.com/qrstage/qrstage/internal/config"
	"github.com/qrstage/qrstage/internal/core"
	"github.com/qrstage/qrstage/internal/display"
	"github.com/qrstage/qrstage/internal/registry"
	"github.com/qrstage/qrstage/internal/tracking"
)

const (
	defaultInterval    = 200 * time.Millisecond
	defaultSettleDelay = 100 * time.Millisecond
)

// Recorder receives session events for later replay/analysis. All methods are
// called with the engine lock held and must not block.
type Recorder interface {
	MarkerSeen(identity string, pos core.Position3D, tracked bool)
	MarkerLost(identity string, pos core.Position3D)
	SelectionChanged(previous, current string, viewer core.Position3D, distance float64)
	InstanceSpawned(identity, assetRef string, pose core.Pose)
	InstanceTornDown(identity, assetRef string, pose core.Pose)
}

// Config holds engine timing and display defaults.
type Config struct {
	// Interval is the periodic reconciliation cadence.
	Interval time.Duration
	// SettleDelay is how long a claim waits before materializing, giving
	// the external pose transform time to stabilize after the subsystem
	// reports a handle.
	SettleDelay time.Duration
	// Defaults are the global display defaults; per-association overrides
	// win, zero-vector overrides fall back to these.
	Defaults config.Defaults
}

// Dependencies holds the engine's collaborators.
type Dependencies struct {
	Table     *assoc.Table
	Lifecycle *display.Lifecycle
	Viewer    tracking.ViewerProvider
	Logger    *slog.Logger
	Recorder  Recorder // optional
}

// Engine owns the reconciliation state and the decision loop.
type Engine struct {
	mu      sync.Mutex
	reg     *registry.Registry
	active  *assoc.Entry
	// tickets marks identities with a creation in flight. The value is the
	// claim sequence: a newer claim for the same identity overwrites it, and
	// a materialize phase only acts when the stored sequence is its own.
	// Absence of an entry is the only signal of idleness.
	tickets  map[string]uint64
	claimSeq uint64

	table  *assoc.Table
	life   *display.Lifecycle
	viewer tracking.ViewerProvider
	log    *slog.Logger
	rec    Recorder
	cfg    Config

	lastPass time.Duration
	passes   uint64

	kick      chan struct{}
	stopChan  chan struct{}
	isRunning bool
}

// New creates an engine. Zero durations in cfg fall back to the defaults
// (200ms cadence, 100ms settle delay).
func New(deps Dependencies, cfg Config) *Engine {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = defaultSettleDelay
	}
	if cfg.Defaults.ScaleMultiplier == 0 {
		cfg.Defaults.ScaleMultiplier = 1
	}
	return &Engine{
		reg:     registry.New(),
		tickets: make(map[string]uint64),
		table:   deps.Table,
		life:    deps.Lifecycle,
		viewer:  deps.Viewer,
		log:     deps.Logger,
		rec:     deps.Recorder,
		cfg:     cfg,
		kick:    make(chan struct{}, 1),
	}
}

// Start launches the periodic reconciliation loop.
func (e *Engine) Start() error {
	e.mu.Lock()
	if e.isRunning {
		e.mu.Unlock()
		return nil
	}
	e.isRunning = true
	e.stopChan = make(chan struct{})
	stop := e.stopChan
	e.mu.Unlock()

	go func() {
		defer func() {
			e.mu.Lock()
			e.isRunning = false
			e.mu.Unlock()
		}()

		e.log.Debug("Starting reconciliation loop", "interval", e.cfg.Interval)
		ticker := time.NewTicker(e.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				e.Reconcile()
			case <-e.kick:
				e.Reconcile()
			}
		}
	}()

	return nil
}

// Stop terminates the reconciliation loop.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.isRunning {
		close(e.stopChan)
		e.isRunning = false
	}
}

// IsRunning reports whether the loop is active.
func (e *Engine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isRunning
}

// Kick schedules an out-of-band reconciliation pass as soon as possible,
// without waiting for the next tick. Used after the active marker vanishes to
// minimize the window with no visible model.
func (e *Engine) Kick() {
	select {
	case e.kick <- struct{}{}:
	default:
	}
}

// ActiveIdentity returns the identity of the current active selection.
func (e *Engine) ActiveIdentity() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil {
		return "", false
	}
	return e.active.Identity, true
}

// Stats is a point-in-time snapshot of engine state for monitoring.
type Stats struct {
	Registered     int
	InFlight       int
	ActiveIdentity string
	LastPass       time.Duration
	Passes         uint64
}

// Snapshot returns current engine statistics.
func (e *Engine) Snapshot() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := Stats{
		Registered: e.reg.Len(),
		InFlight:   len(e.tickets),
		LastPass:   e.lastPass,
		Passes:     e.passes,
	}
	if e.active != nil {
		s.ActiveIdentity = e.active.Identity
	}
	return s
}

// teardownLocked tears down the entry's display and clears the active
// selection pointer when it referenced this entry. Caller holds e.mu.
func (e *Engine) teardownLocked(entry *assoc.Entry) {
	if entry.Instance != nil {
		e.recordTeardown(entry)
	}
	e.life.Teardown(entry)
	if e.active == entry {
		e.active = nil
	}
}

// forceCleanupLocked is the full recovery path: teardown plus clearing any
// in-flight spawn ticket for the identity. Caller holds e.mu.
func (e *Engine) forceCleanupLocked(entry *assoc.Entry) {
	e.teardownLocked(entry)
	delete(e.tickets, entry.Identity)
}

func (e *Engine) recordTeardown(entry *assoc.Entry) {
	if e.rec == nil {
		return
	}
	e.rec.InstanceTornDown(entry.Identity, entry.AssetRef, core.Pose{})
}

func (e *Engine) recordSelection(previous, current string, viewer core.Position3D, distance float64) {
	if e.rec == nil {
		return
	}
	e.rec.SelectionChanged(previous, current, viewer, distance)
}

func activeIdentity(entry *assoc.Entry) string {
	if entry == nil {
		return ""
	}
	return entry.Identity
}
