package tracking

import (
	"sync"

	"github.com/qrstage/qrstage/internal/core"
)

// FakeHandle is a scripted Handle implementation used by tests and the
// simulator. All mutators are safe for concurrent use.
type FakeHandle struct {
	mu       sync.Mutex
	payload  string
	noData   bool
	kind     core.MarkerKind
	tracked  bool
	pose     core.Pose
	liveness core.Liveness
}

// NewFakeHandle creates a tracked, alive QR handle with the given payload.
func NewFakeHandle(payload string, pos core.Position3D) *FakeHandle {
	return &FakeHandle{
		payload: payload,
		kind:    core.KindQR,
		tracked: true,
		pose:    core.Pose{Position: pos},
	}
}

// Payload implements Handle.
func (h *FakeHandle) Payload() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.noData {
		return "", false
	}
	return h.payload, true
}

// Kind implements Handle.
func (h *FakeHandle) Kind() core.MarkerKind {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.kind
}

// IsTracked implements Handle.
func (h *FakeHandle) IsTracked() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tracked
}

// Pose implements Handle.
func (h *FakeHandle) Pose() (core.Pose, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.liveness != core.Alive {
		return core.Pose{}, false
	}
	return h.pose, true
}

// Probe implements Handle.
func (h *FakeHandle) Probe() core.Liveness {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.liveness
}

// SetKind changes the reported marker kind.
func (h *FakeHandle) SetKind(k core.MarkerKind) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.kind = k
}

// SetNoPayload makes the handle report a missing payload.
func (h *FakeHandle) SetNoPayload() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.noData = true
}

// SetTracked changes the tracked flag.
func (h *FakeHandle) SetTracked(tracked bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tracked = tracked
}

// SetPose moves the marker.
func (h *FakeHandle) SetPose(p core.Pose) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pose = p
}

// Invalidate marks the handle destroyed or invalid.
func (h *FakeHandle) Invalidate(l core.Liveness) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness = l
}
