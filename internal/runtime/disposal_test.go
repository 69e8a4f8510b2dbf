package runtime_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/internal/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBag_ReleaseExactlyOnce(t *testing.T) {
	bag := runtime.NewBag(logging.NewNop())

	count := 0
	bag.Add(func() { count++ })
	bag.Add(func() { count++ })
	assert.Equal(t, 2, bag.Len())

	bag.Release()
	bag.Release()

	assert.Equal(t, 2, count, "obligations run exactly once")
	assert.Equal(t, 0, bag.Len())
}

func TestBag_ReverseOrder(t *testing.T) {
	bag := runtime.NewBag(logging.NewNop())

	var order []string
	bag.Add(func() { order = append(order, "first") })
	bag.Add(func() { order = append(order, "second") })
	bag.Release()

	assert.Equal(t, []string{"second", "first"}, order)
}

func TestBag_LateRegistrationReleasesImmediately(t *testing.T) {
	bag := runtime.NewBag(logging.NewNop())
	bag.Release()

	ran := false
	bag.Add(func() { ran = true })
	assert.True(t, ran, "registration after release must not leak")
}

func TestBag_StopsTimersAndCancels(t *testing.T) {
	bag := runtime.NewBag(logging.NewNop())

	timer := time.NewTimer(time.Hour)
	ticker := time.NewTicker(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	bag.AddTimer(timer)
	bag.AddTicker(ticker)
	bag.AddCancel(cancel)

	bag.Release()

	select {
	case <-ctx.Done():
	default:
		t.Fatal("context cancellation was not released")
	}
}

func TestUnload_ReleasesRegisteredObligations(t *testing.T) {
	ctx := context.Background()
	c := runtime.New("holder", &stubHooks{})

	require.NoError(t, c.Load(ctx).Await(ctx))

	releases := 0
	c.Bag().Add(func() { releases++ })
	subCh, subCancel := c.Bus().Subscribe("will_suspend")
	c.Bag().AddSubscription(subCancel)

	require.NoError(t, c.Unload(ctx).Await(ctx))

	assert.Equal(t, 1, releases)
	_, open := <-subCh
	assert.False(t, open, "registered subscription was cancelled")
}
