package render

import (
	"errors"
	"sync"

	"github.com/qrstage/qrstage/internal/core"
)

// FakeInstance is a scripted Instance used by tests and the simulator.
type FakeInstance struct {
	mu       sync.Mutex
	AssetRef string
	Pose     core.Pose

	liveness  core.Liveness
	active    bool
	panicking bool

	Position core.Position3D
	Rotation core.Rotation3D
	Scale    float64
}

// Probe implements Instance. When scripted with PanicOnProbe it panics, which
// exercises the lifecycle's probe tolerance.
func (i *FakeInstance) Probe() core.Liveness {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.panicking {
		panic("probe on destroyed native object")
	}
	return i.liveness
}

// IsActive implements Instance.
func (i *FakeInstance) IsActive() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.active
}

// SetLocalTransform implements Instance.
func (i *FakeInstance) SetLocalTransform(pos core.Position3D, rot core.Rotation3D, scale float64) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.Position = pos
	i.Rotation = rot
	i.Scale = scale
}

// DestroyExternally simulates external code destroying the instance.
func (i *FakeInstance) DestroyExternally() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.liveness = core.Destroyed
	i.active = false
}

// Deactivate simulates an ancestor in the hierarchy being disabled.
func (i *FakeInstance) Deactivate() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.active = false
}

// PanicOnProbe scripts the next probes to panic.
func (i *FakeInstance) PanicOnProbe() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.panicking = true
}

// FakeRenderer is a scripted Renderer recording creations and destructions.
type FakeRenderer struct {
	mu        sync.Mutex
	created   []*FakeInstance
	destroyed int

	FailDestroy bool
	FailCreate  bool
}

// Create implements Renderer.
func (r *FakeRenderer) Create(assetRef string, pose core.Pose) (Instance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailCreate {
		return nil, errors.New("asset instantiation failed")
	}
	inst := &FakeInstance{
		AssetRef: assetRef,
		Pose:     pose,
		liveness: core.Alive,
		active:   true,
	}
	r.created = append(r.created, inst)
	return inst, nil
}

// Destroy implements Renderer.
func (r *FakeRenderer) Destroy(inst Instance) error {
	r.mu.Lock()
	failDestroy := r.FailDestroy
	r.destroyed++
	r.mu.Unlock()

	if failDestroy {
		return errors.New("destroy failed")
	}
	if fi, ok := inst.(*FakeInstance); ok {
		fi.DestroyExternally()
	}
	return nil
}

// Created returns all instances created so far.
func (r *FakeRenderer) Created() []*FakeInstance {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*FakeInstance, len(r.created))
	copy(out, r.created)
	return out
}

// DestroyCount returns how many Destroy calls were made.
func (r *FakeRenderer) DestroyCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.destroyed
}

// LiveCount returns how many created instances are still alive.
func (r *FakeRenderer) LiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, inst := range r.created {
		inst.mu.Lock()
		if inst.liveness == core.Alive {
			n++
		}
		inst.mu.Unlock()
	}
	return n
}
