// Package tracking defines the contracts the reconciliation core consumes
// from the external spatial-tracking subsystem. Handles are borrowed
// references: the subsystem may invalidate them at any time, so liveness must
// be re-probed before every use rather than cached.
package tracking

import "github.com/qrstage/qrstage/internal/core"

// Handle is one detected marker as reported by the tracking subsystem.
type Handle interface {
	// Payload returns the decoded marker payload. ok is false when the
	// marker carried no decodable payload.
	Payload() (payload string, ok bool)

	// Kind reports which variant of marker this handle represents.
	Kind() core.MarkerKind

	// IsTracked reports whether the subsystem currently has a live pose fix.
	IsTracked() bool

	// Pose returns the current marker pose. ok is false when the pose is
	// not available (handle invalidated mid-call).
	Pose() (core.Pose, bool)

	// Probe checks handle liveness without touching pose data.
	Probe() core.Liveness
}

// ViewerProvider supplies the viewer position used for distance ranking.
type ViewerProvider interface {
	// ViewerPosition returns the current viewer position. ok is false when
	// no camera pose is available this instant.
	ViewerPosition() (core.Position3D, bool)
}

// ViewerFunc adapts a function to the ViewerProvider interface.
type ViewerFunc func() (core.Position3D, bool)

// ViewerPosition implements ViewerProvider.
func (f ViewerFunc) ViewerPosition() (core.Position3D, bool) {
	return f()
}
