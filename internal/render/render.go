// Package render defines the contract the reconciliation core consumes from
// the rendering/instantiation collaborator. The core never renders anything
// itself: it asks the renderer to create and destroy instances and applies
// transforms through the Instance handle.
package render

import "github.com/qrstage/qrstage/internal/core"

// Instance is one displayed model owned by exactly one association.
// External code may destroy an instance out from under the core, so Probe
// must be consulted before any other method.
type Instance interface {
	// Probe checks instance liveness. Implementations must not panic; the
	// display lifecycle treats a panicking probe as Invalid anyway.
	Probe() core.Liveness

	// IsActive reports whether the instance is actually active in its scene
	// hierarchy (an ancestor may be disabled while the instance itself
	// still exists).
	IsActive() bool

	// SetLocalTransform applies position, rotation and uniform scale.
	SetLocalTransform(pos core.Position3D, rot core.Rotation3D, scale float64)
}

// Renderer creates and destroys display instances.
type Renderer interface {
	Create(assetRef string, pose core.Pose) (Instance, error)
	Destroy(inst Instance) error
}
