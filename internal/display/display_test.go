package display

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrstage/qrstage/internal/assoc"
	"github.com/qrstage/qrstage/internal/core"
	"github.com/qrstage/qrstage/internal/render"
)

func newLifecycle(r render.Renderer) *Lifecycle {
	return NewLifecycle(r, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func spawn(t *testing.T, r *render.FakeRenderer, e *assoc.Entry) *render.FakeInstance {
	t.Helper()
	inst, err := r.Create(e.AssetRef, core.Pose{})
	require.NoError(t, err)
	e.Instance = inst
	return inst.(*render.FakeInstance)
}

func TestIsValid(t *testing.T) {
	r := &render.FakeRenderer{}
	l := newLifecycle(r)
	e := &assoc.Entry{Identity: "x", AssetRef: "models/x.glb"}

	assert.False(t, l.IsValid(e), "no instance stored")

	inst := spawn(t, r, e)
	assert.True(t, l.IsValid(e))

	inst.Deactivate()
	assert.False(t, l.IsValid(e), "inactive in hierarchy is not valid")
}

func TestIsValid_ExternallyDestroyed(t *testing.T) {
	r := &render.FakeRenderer{}
	l := newLifecycle(r)
	e := &assoc.Entry{Identity: "x", AssetRef: "models/x.glb"}
	inst := spawn(t, r, e)

	inst.DestroyExternally()
	assert.False(t, l.IsValid(e))
}

func TestIsValid_ProbePanics(t *testing.T) {
	r := &render.FakeRenderer{}
	l := newLifecycle(r)
	e := &assoc.Entry{Identity: "x", AssetRef: "models/x.glb"}
	inst := spawn(t, r, e)

	inst.PanicOnProbe()
	assert.False(t, l.IsValid(e), "panicking probe means invalid, not fatal")
}

func TestProbe_NilInstance(t *testing.T) {
	l := newLifecycle(&render.FakeRenderer{})
	assert.Equal(t, core.Invalid, l.Probe(nil))
}

func TestTeardown(t *testing.T) {
	r := &render.FakeRenderer{}
	l := newLifecycle(r)
	e := &assoc.Entry{Identity: "x", AssetRef: "models/x.glb"}
	spawn(t, r, e)

	l.Teardown(e)
	assert.Nil(t, e.Instance)
	assert.Equal(t, 1, r.DestroyCount())
	assert.Equal(t, 0, r.LiveCount())
}

func TestTeardown_Idempotent(t *testing.T) {
	r := &render.FakeRenderer{}
	l := newLifecycle(r)
	e := &assoc.Entry{Identity: "x", AssetRef: "models/x.glb"}
	spawn(t, r, e)

	l.Teardown(e)
	l.Teardown(e)

	assert.Nil(t, e.Instance)
	assert.Equal(t, 1, r.DestroyCount(), "second teardown must be a no-op")
}

func TestTeardown_DestroyFailureClearsState(t *testing.T) {
	r := &render.FakeRenderer{FailDestroy: true}
	l := newLifecycle(r)
	e := &assoc.Entry{Identity: "x", AssetRef: "models/x.glb"}
	spawn(t, r, e)

	l.Teardown(e)
	assert.Nil(t, e.Instance, "state is cleared even when destroy fails")
}
