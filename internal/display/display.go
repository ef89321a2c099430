// Package display owns creation-adjacent state of the single shown instance
// per association: validity probing and teardown. Probes must tolerate the
// instance having been destroyed by external code between checks, so a probe
// that panics is treated as "invalid", never as fatal.
package display

import (
	"log/slog"

	"github.com/qrstage/qrstage/internal/assoc"
	"github.com/qrstage/qrstage/internal/core"
	"github.com/qrstage/qrstage/internal/render"
)

// Lifecycle manages display instances through the rendering collaborator.
type Lifecycle struct {
	renderer render.Renderer
	log      *slog.Logger
}

// NewLifecycle creates a lifecycle bound to a renderer.
func NewLifecycle(renderer render.Renderer, log *slog.Logger) *Lifecycle {
	return &Lifecycle{renderer: renderer, log: log}
}

// Probe checks instance liveness, converting any panic from the underlying
// handle into Invalid.
func (l *Lifecycle) Probe(inst render.Instance) (liveness core.Liveness) {
	if inst == nil {
		return core.Invalid
	}
	defer func() {
		if r := recover(); r != nil {
			l.log.Debug("Instance probe panicked, treating as invalid", "panic", r)
			liveness = core.Invalid
		}
	}()
	return inst.Probe()
}

// IsValid reports whether the association's display instance is usable:
// an instance is stored, it survives the liveness probe, and it reports
// itself active in its scene hierarchy.
func (l *Lifecycle) IsValid(e *assoc.Entry) (valid bool) {
	if e.Instance == nil {
		return false
	}
	if l.Probe(e.Instance) != core.Alive {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			l.log.Debug("Instance activity check panicked, treating as invalid", "identity", e.Identity, "panic", r)
			valid = false
		}
	}()
	return e.Instance.IsActive()
}

// Create asks the rendering collaborator for a new instance of the asset at
// the given pose.
func (l *Lifecycle) Create(assetRef string, pose core.Pose) (inst render.Instance, err error) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Warn("Instance creation panicked", "assetRef", assetRef, "panic", r)
			inst, err = nil, &createPanicError{value: r}
		}
	}()
	return l.renderer.Create(assetRef, pose)
}

// Destroy disposes an instance that is not (or no longer) attached to an
// association, e.g. one that lost the creation race after materializing.
// Failures are logged, not propagated.
func (l *Lifecycle) Destroy(inst render.Instance) {
	if inst == nil {
		return
	}
	if err := l.destroy(inst); err != nil {
		l.log.Warn("Failed to destroy orphaned instance", "error", err)
	}
}

// Teardown destroys the association's instance, if any, and clears the stored
// handle. Destroy failures are logged and treated as success: state is
// cleared regardless, since retrying destruction of a dead handle has no
// defined benefit. Safe to call when already torn down.
func (l *Lifecycle) Teardown(e *assoc.Entry) {
	if e.Instance == nil {
		return
	}
	if err := l.destroy(e.Instance); err != nil {
		l.log.Warn("Failed to destroy display instance", "identity", e.Identity, "error", err)
	}
	e.Instance = nil
}

// destroy calls the rendering collaborator, converting panics into errors.
func (l *Lifecycle) destroy(inst render.Instance) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &destroyPanicError{value: r}
		}
	}()
	return l.renderer.Destroy(inst)
}

type destroyPanicError struct {
	value any
}

func (e *destroyPanicError) Error() string {
	return "destroy panicked"
}

type createPanicError struct {
	value any
}

func (e *createPanicError) Error() string {
	return "create panicked"
}
