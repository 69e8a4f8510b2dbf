package runtime_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/lattice/internal/runtime"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuspend_FansOutToAllChildren(t *testing.T) {
	ctx := context.Background()
	parent := runtime.New("parent", &stubHooks{})
	hooksA := &stubHooks{}
	hooksB := &stubHooks{}
	childA := runtime.New("a", hooksA)
	childB := runtime.New("b", hooksB)

	require.NoError(t, parent.Load(ctx).Await(ctx))
	require.NoError(t, parent.RegisterChild(ctx, childA))
	require.NoError(t, parent.RegisterChild(ctx, childB))

	require.NoError(t, parent.Suspend(ctx).Await(ctx))

	assert.Equal(t, domain.StateSuspended, parent.State())
	assert.Equal(t, domain.StateSuspended, childA.State())
	assert.Equal(t, domain.StateSuspended, childB.State())

	require.NoError(t, parent.Resume(ctx).Await(ctx))
	assert.Equal(t, domain.StateLoaded, childA.State())
	assert.Equal(t, domain.StateLoaded, childB.State())
}

// One failing child must not cancel its sibling: the barrier waits for all,
// the parent's did-suspend carries the error, and the parent state does not
// advance.
func TestSuspend_ChildFailureDoesNotCancelSibling(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("flush failed")

	parentHooks := &stubHooks{}
	failing := &stubHooks{suspendErr: boom}
	healthy := &stubHooks{}

	parent := runtime.New("parent", parentHooks)
	childA := runtime.New("a", failing)
	childB := runtime.New("b", healthy)

	require.NoError(t, parent.Load(ctx).Await(ctx))
	require.NoError(t, parent.RegisterChild(ctx, childA))
	require.NoError(t, parent.RegisterChild(ctx, childB))

	didSuspend, cancel := parent.Bus().Subscribe(domain.TopicDidSuspend)
	defer cancel()

	err := parent.Suspend(ctx).Await(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	// The sibling completed its suspend despite the failure.
	assert.Equal(t, domain.StateSuspended, childB.State())
	_, suspends, _, _ := healthy.counts()
	assert.Equal(t, 1, suspends)

	// The parent ran its own hook but did not commit.
	_, parentSuspends, _, _ := parentHooks.counts()
	assert.Equal(t, 1, parentSuspends)
	assert.NotEqual(t, domain.StateSuspended, parent.State())

	events := drain(didSuspend)
	require.Len(t, events, 1)
	assert.ErrorIs(t, events[0].Err, boom)
}

func TestUnload_ChildHookFailureStillReleasesEverything(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("teardown failed")

	parent := runtime.New("parent", &stubHooks{})
	child := runtime.New("child", &stubHooks{unloadErr: boom})

	require.NoError(t, parent.Load(ctx).Await(ctx))
	require.NoError(t, parent.RegisterChild(ctx, child))

	released := false
	parent.Bag().Add(func() { released = true })

	err := parent.Unload(ctx).Await(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	// Disposal obligations are released on the failure path too.
	assert.True(t, released)
}
