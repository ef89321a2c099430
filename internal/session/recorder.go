package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/qrstage/qrstage/internal/core"
	"github.com/qrstage/qrstage/internal/queue"
)

const defaultFlushInterval = 1 * time.Second

// Recorder buffers engine events in memory and flushes them to a backend on
// an interval. The record methods are called with the engine lock held, so
// they only append to queues and never touch storage.
type Recorder struct {
	backend Backend
	log     *slog.Logger

	markerQ    *queue.Buffer[core.MarkerEvent]
	selectionQ *queue.Buffer[core.SelectionEvent]
	spawnQ     *queue.Buffer[core.SpawnEvent]

	mu        sync.Mutex
	stopChan  chan struct{}
	isRunning bool
	interval  time.Duration
}

// NewRecorder creates a recorder flushing to backend every interval. A zero
// interval falls back to one second.
func NewRecorder(backend Backend, interval time.Duration, log *slog.Logger) *Recorder {
	if interval <= 0 {
		interval = defaultFlushInterval
	}
	return &Recorder{
		backend:    backend,
		log:        log,
		markerQ:    queue.NewBuffer[core.MarkerEvent](),
		selectionQ: queue.NewBuffer[core.SelectionEvent](),
		spawnQ:     queue.NewBuffer[core.SpawnEvent](),
		interval:   interval,
	}
}

// Begin starts a new recording session and launches the flush loop.
func (r *Recorder) Begin(tag string) error {
	s := &core.Session{StartedAt: time.Now().UTC(), Tag: tag}
	if err := r.backend.StartSession(s); err != nil {
		return fmt.Errorf("error starting session: %v", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.isRunning {
		return nil
	}
	r.isRunning = true
	r.stopChan = make(chan struct{})
	stop := r.stopChan

	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				r.Flush()
			}
		}
	}()

	r.log.Info("Session recording started", "tag", tag, "sessionID", s.ID)
	return nil
}

// End flushes any remaining events and finalizes the session.
func (r *Recorder) End() error {
	r.mu.Lock()
	if r.isRunning {
		close(r.stopChan)
		r.isRunning = false
	}
	r.mu.Unlock()

	r.Flush()
	if err := r.backend.EndSession(); err != nil {
		return fmt.Errorf("error ending session: %v", err)
	}
	r.log.Info("Session recording ended")
	return nil
}

// Flush drains all queues into the backend. Safe to call concurrently with
// the record methods.
func (r *Recorder) Flush() {
	for _, e := range r.markerQ.Drain() {
		if err := r.backend.RecordMarkerEvent(&e); err != nil {
			r.log.Warn("Failed to record marker event", "identity", e.Identity, "error", err)
		}
	}
	for _, e := range r.selectionQ.Drain() {
		if err := r.backend.RecordSelectionEvent(&e); err != nil {
			r.log.Warn("Failed to record selection event", "current", e.Current, "error", err)
		}
	}
	for _, e := range r.spawnQ.Drain() {
		if err := r.backend.RecordSpawnEvent(&e); err != nil {
			r.log.Warn("Failed to record spawn event", "identity", e.Identity, "error", err)
		}
	}
}

// QueueDepths reports pending event counts per queue for monitoring.
func (r *Recorder) QueueDepths() map[string]int {
	return map[string]int{
		"markerEvents":    r.markerQ.Len(),
		"selectionEvents": r.selectionQ.Len(),
		"spawnEvents":     r.spawnQ.Len(),
	}
}

// MarkerSeen records a marker detection.
func (r *Recorder) MarkerSeen(identity string, pos core.Position3D, tracked bool) {
	r.markerQ.Append(core.MarkerEvent{
		Time:     time.Now().UTC(),
		Kind:     core.EventMarkerSeen,
		Identity: identity,
		Position: pos,
		Tracked:  tracked,
	})
}

// MarkerLost records a marker disappearing.
func (r *Recorder) MarkerLost(identity string, pos core.Position3D) {
	r.markerQ.Append(core.MarkerEvent{
		Time:     time.Now().UTC(),
		Kind:     core.EventMarkerLost,
		Identity: identity,
		Position: pos,
	})
}

// SelectionChanged records the active selection moving between identities.
func (r *Recorder) SelectionChanged(previous, current string, viewer core.Position3D, distance float64) {
	r.selectionQ.Append(core.SelectionEvent{
		Time:     time.Now().UTC(),
		Previous: previous,
		Current:  current,
		Viewer:   viewer,
		Distance: distance,
	})
}

// InstanceSpawned records a display instance being created.
func (r *Recorder) InstanceSpawned(identity, assetRef string, pose core.Pose) {
	r.spawnQ.Append(core.SpawnEvent{
		Time:     time.Now().UTC(),
		Kind:     core.EventInstanceSpawned,
		Identity: identity,
		AssetRef: assetRef,
		Pose:     pose,
	})
}

// InstanceTornDown records a display instance being destroyed.
func (r *Recorder) InstanceTornDown(identity, assetRef string, pose core.Pose) {
	r.spawnQ.Append(core.SpawnEvent{
		Time:     time.Now().UTC(),
		Kind:     core.EventInstanceTorn,
		Identity: identity,
		AssetRef: assetRef,
		Pose:     pose,
	})
}
