package runtime_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/lattice/internal/runtime"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinator_ConcurrentLoadRunsHookOnce(t *testing.T) {
	ctx := context.Background()
	hooks := &stubHooks{loadDelay: 20 * time.Millisecond}
	c := runtime.New("racer", hooks)

	t1 := c.Load(ctx)
	t2 := c.Load(ctx)

	err1 := t1.Await(ctx)
	err2 := t2.Await(ctx)

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, domain.StateLoaded, c.State())

	loads, _, _, _ := hooks.counts()
	assert.Equal(t, 1, loads, "redundant load must not re-run the hook")
}

func TestCoordinator_UnloadOnUnloadedIsNoOp(t *testing.T) {
	ctx := context.Background()
	hooks := &stubHooks{}
	c := runtime.New("done", hooks)

	require.NoError(t, c.Load(ctx).Await(ctx))
	require.NoError(t, c.Unload(ctx).Await(ctx))

	handle := c.Unload(ctx)
	select {
	case <-handle.Done():
	default:
		t.Fatal("expected an already-resolved handle")
	}
	require.NoError(t, handle.Await(ctx))

	_, _, _, unloads := hooks.counts()
	assert.Equal(t, 1, unloads, "no hooks may run for a redundant unload")
}

// Back-to-back operations without awaiting must serialize FIFO on the
// pending-transition handle: suspend overtakes the loading state but its
// body only runs after the load body settled.
func TestCoordinator_BackToBackLoadSuspend(t *testing.T) {
	ctx := context.Background()
	hooks := &stubHooks{loadDelay: 20 * time.Millisecond}
	c := runtime.New("pipeline", hooks)

	lt := c.Load(ctx)
	st := c.Suspend(ctx)

	require.NoError(t, lt.Await(ctx))
	require.NoError(t, st.Await(ctx))

	// The nested suspend advanced the state past loading, so the load did
	// not commit loaded; the final state is the suspend's target.
	assert.Equal(t, domain.StateSuspended, c.State())

	loads, suspends, _, _ := hooks.counts()
	assert.Equal(t, 1, loads)
	assert.Equal(t, 1, suspends)
	assert.True(t, c.Idle())
}

func TestCoordinator_ResumeWhileSuspendingIsAllowed(t *testing.T) {
	ctx := context.Background()
	hooks := &stubHooks{suspendDelay: 20 * time.Millisecond}
	c := runtime.New("bouncer", hooks)

	require.NoError(t, c.Load(ctx).Await(ctx))

	st := c.Suspend(ctx)
	rt := c.Resume(ctx)

	// Suspend does not commit (state advanced to resuming underneath it),
	// resume commits loaded.
	_ = st.Await(ctx)
	require.NoError(t, rt.Await(ctx))
	assert.Equal(t, domain.StateLoaded, c.State())
}

func TestCoordinator_RedundantSuspendSharesHandle(t *testing.T) {
	ctx := context.Background()
	hooks := &stubHooks{suspendDelay: 20 * time.Millisecond}
	c := runtime.New("twice", hooks)

	require.NoError(t, c.Load(ctx).Await(ctx))

	t1 := c.Suspend(ctx)
	t2 := c.Suspend(ctx)
	assert.Equal(t, t1, t2, "a suspend while suspending returns the pending handle")

	require.NoError(t, t1.Await(ctx))
	_, suspends, _, _ := hooks.counts()
	assert.Equal(t, 1, suspends)
}
