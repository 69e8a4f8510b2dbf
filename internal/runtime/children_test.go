package runtime_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/lattice/internal/runtime"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterChild_LoadsAndAppends(t *testing.T) {
	ctx := context.Background()
	parent := runtime.New("parent", &stubHooks{})
	child := runtime.New("child", &stubHooks{})

	require.NoError(t, parent.Load(ctx).Await(ctx))

	willChild, cancelWill := parent.Bus().Subscribe(domain.TopicWillLoadChild)
	defer cancelWill()
	didChild, cancelDid := parent.Bus().Subscribe(domain.TopicDidLoadChild)
	defer cancelDid()

	require.NoError(t, parent.RegisterChild(ctx, child))

	assert.Equal(t, domain.StateLoaded, child.State())
	require.Len(t, parent.Children(), 1)
	assert.Equal(t, "child", parent.Children()[0].Name())

	will := drain(willChild)
	require.Len(t, will, 1)
	assert.Equal(t, "child", will[0].Child)
	did := drain(didChild)
	require.Len(t, did, 1)
	assert.Equal(t, "child", did[0].Child)
}

func TestRegisterChild_DuplicateIsNoOp(t *testing.T) {
	ctx := context.Background()
	parent := runtime.New("parent", &stubHooks{})
	childHooks := &stubHooks{}
	child := runtime.New("child", childHooks)

	require.NoError(t, parent.RegisterChild(ctx, child))
	require.NoError(t, parent.RegisterChild(ctx, child))

	assert.Len(t, parent.Children(), 1)
	loads, _, _, _ := childHooks.counts()
	assert.Equal(t, 1, loads)
}

func TestRegisterChild_FailsOnUnloadedParent(t *testing.T) {
	ctx := context.Background()
	parent := runtime.New("parent", &stubHooks{})
	child := runtime.New("child", &stubHooks{})

	require.NoError(t, parent.Load(ctx).Await(ctx))
	require.NoError(t, parent.Unload(ctx).Await(ctx))

	err := parent.RegisterChild(ctx, child)
	require.ErrorIs(t, err, domain.ErrModuleUnloaded)
	assert.Equal(t, domain.StateInstantiated, child.State())
}

func TestRegisterChild_HookRejectionReleasesListeners(t *testing.T) {
	ctx := context.Background()
	rejection := errors.New("not welcome")
	parentHooks := &stubHooks{didLoadChildErr: rejection}
	parent := runtime.New("parent", parentHooks)
	child := runtime.New("child", &stubHooks{})

	err := parent.RegisterChild(ctx, child)
	require.ErrorIs(t, err, rejection)
	assert.Empty(t, parent.Children())

	didUnloadChild, cancel := parent.Bus().Subscribe(domain.TopicDidUnloadChild)
	defer cancel()

	// The listeners were released: the child's own unload must not reach
	// the parent anymore.
	require.NoError(t, child.Unload(ctx).Await(ctx))
	assert.Empty(t, drain(didUnloadChild))
}

func TestRegisterChild_ChildLoadFailurePropagates(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("child payload failed")
	parent := runtime.New("parent", &stubHooks{})
	child := runtime.New("child", &stubHooks{loadErr: boom})

	err := parent.RegisterChild(ctx, child)
	require.ErrorIs(t, err, boom)
	assert.Empty(t, parent.Children())
}

// A child unloaded directly (without going through the parent) must be
// removed from the parent's active children before its did-unload fires,
// and the parent must observe a did-unload-child event.
func TestChild_IndependentUnloadAutoDeregisters(t *testing.T) {
	ctx := context.Background()

	var childrenAtDidUnload []string
	parentHooks := &stubHooks{}
	parent := runtime.New("parent", parentHooks)
	child := runtime.New("child", &stubHooks{})

	parentHooks.onDidUnloadChild = func(m ports.Module) {
		for _, c := range parent.Children() {
			childrenAtDidUnload = append(childrenAtDidUnload, c.Name())
		}
	}

	require.NoError(t, parent.Load(ctx).Await(ctx))
	require.NoError(t, parent.RegisterChild(ctx, child))

	willUnloadChild, cancelWill := parent.Bus().Subscribe(domain.TopicWillUnloadChild)
	defer cancelWill()
	didUnloadChild, cancelDid := parent.Bus().Subscribe(domain.TopicDidUnloadChild)
	defer cancelDid()

	require.NoError(t, child.Unload(ctx).Await(ctx))

	assert.Empty(t, parent.Children())
	assert.Empty(t, childrenAtDidUnload, "removal happens before the child's did-unload")

	will := drain(willUnloadChild)
	require.Len(t, will, 1)
	assert.Equal(t, "child", will[0].Child)
	did := drain(didUnloadChild)
	require.Len(t, did, 1)
	assert.Equal(t, "child", did[0].Child)

	// Parent stays loaded; only the child terminated.
	assert.Equal(t, domain.StateLoaded, parent.State())
}

func TestParentUnload_TearsDownChildrenWithoutChildEvents(t *testing.T) {
	ctx := context.Background()
	parent := runtime.New("parent", &stubHooks{})
	childA := runtime.New("a", &stubHooks{})
	childB := runtime.New("b", &stubHooks{})

	require.NoError(t, parent.Load(ctx).Await(ctx))
	require.NoError(t, parent.RegisterChild(ctx, childA))
	require.NoError(t, parent.RegisterChild(ctx, childB))

	willUnloadChild, cancel := parent.Bus().Subscribe(domain.TopicWillUnloadChild)
	defer cancel()

	require.NoError(t, parent.Unload(ctx).Await(ctx))

	assert.Equal(t, domain.StateUnloaded, childA.State())
	assert.Equal(t, domain.StateUnloaded, childB.State())
	assert.Empty(t, parent.Children())

	// The parent-driven unload owns the teardown: the independent-unload
	// listeners were released first.
	assert.Empty(t, drain(willUnloadChild))
}
