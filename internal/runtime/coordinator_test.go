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

func TestCoordinator_FullCycle(t *testing.T) {
	ctx := context.Background()
	hooks := &stubHooks{}
	c := runtime.New("app", hooks)

	assert.Equal(t, domain.StateInstantiated, c.State())

	require.NoError(t, c.Load(ctx).Await(ctx))
	assert.Equal(t, domain.StateLoaded, c.State())

	require.NoError(t, c.Suspend(ctx).Await(ctx))
	assert.Equal(t, domain.StateSuspended, c.State())

	require.NoError(t, c.Resume(ctx).Await(ctx))
	assert.Equal(t, domain.StateLoaded, c.State())

	require.NoError(t, c.Unload(ctx).Await(ctx))
	assert.Equal(t, domain.StateUnloaded, c.State())

	loads, suspends, resumes, unloads := hooks.counts()
	assert.Equal(t, 1, loads)
	assert.Equal(t, 1, suspends)
	assert.Equal(t, 1, resumes)
	assert.Equal(t, 1, unloads)
	assert.True(t, c.Idle())
}

func TestCoordinator_LoadHookFailure(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("payload init failed")
	c := runtime.New("broken", &stubHooks{loadErr: boom})

	didLoad, cancel := c.Bus().Subscribe(domain.TopicDidLoad)
	defer cancel()

	err := c.Load(ctx).Await(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	// State does not advance past the intermediate on failure.
	assert.Equal(t, domain.StateLoading, c.State())

	// Dual delivery: the same error identity reaches observers.
	events := drain(didLoad)
	require.Len(t, events, 1)
	assert.ErrorIs(t, events[0].Err, boom)
}

func TestCoordinator_IllegalSuspendFromInstantiated(t *testing.T) {
	ctx := context.Background()
	hooks := &stubHooks{}
	c := runtime.New("fresh", hooks)

	err := c.Suspend(ctx).Await(ctx)
	require.Error(t, err)

	var illegal *domain.IllegalTransitionError
	require.ErrorAs(t, err, &illegal)
	assert.Equal(t, domain.StateInstantiated, illegal.Current)
	assert.Equal(t, domain.StateSuspended, illegal.Target)
	assert.NotEmpty(t, illegal.Allowed)

	// State remains untouched and no hook ran.
	assert.Equal(t, domain.StateInstantiated, c.State())
	_, suspends, _, _ := hooks.counts()
	assert.Zero(t, suspends)
}

func TestCoordinator_LoadAfterUnloadIsIllegal(t *testing.T) {
	ctx := context.Background()
	c := runtime.New("one-shot", &stubHooks{})

	require.NoError(t, c.Load(ctx).Await(ctx))
	require.NoError(t, c.Unload(ctx).Await(ctx))

	err := c.Load(ctx).Await(ctx)
	var illegal *domain.IllegalTransitionError
	require.ErrorAs(t, err, &illegal)
	assert.Equal(t, domain.StateUnloaded, illegal.Current)
}

func TestCoordinator_UnloadFromSuspended(t *testing.T) {
	ctx := context.Background()
	c := runtime.New("sleeper", &stubHooks{})

	require.NoError(t, c.Load(ctx).Await(ctx))
	require.NoError(t, c.Suspend(ctx).Await(ctx))
	require.NoError(t, c.Unload(ctx).Await(ctx))
	assert.Equal(t, domain.StateUnloaded, c.State())
}
