// Package tests provides reusable contract suites for ports implementations.
package tests

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunJournalContract exercises the ports.Journal behavior every adapter
// must satisfy: ordered append, module filtering, empty-filter listing.
func RunJournalContract(t *testing.T, j ports.Journal) {
	t.Helper()
	ctx := context.Background()

	entries := []domain.TransitionEntry{
		{Module: "app", Op: domain.OpLoad, From: domain.StateInstantiated, To: domain.StateLoaded, Timestamp: time.Now()},
		{Module: "cache", Op: domain.OpLoad, From: domain.StateInstantiated, To: domain.StateLoaded, Timestamp: time.Now()},
		{Module: "app", Op: domain.OpSuspend, From: domain.StateLoaded, To: domain.StateSuspended, Timestamp: time.Now()},
		{Module: "app", Op: domain.OpUnload, From: domain.StateSuspended, To: domain.StateSuspended, Error: "unload of module \"app\" vetoed: busy", Timestamp: time.Now()},
	}
	for _, e := range entries {
		require.NoError(t, j.Append(ctx, e))
	}

	appEntries, err := j.List(ctx, "app")
	require.NoError(t, err)
	require.Len(t, appEntries, 3)
	assert.Equal(t, domain.OpLoad, appEntries[0].Op)
	assert.Equal(t, domain.OpSuspend, appEntries[1].Op)
	assert.Equal(t, domain.OpUnload, appEntries[2].Op)
	assert.Contains(t, appEntries[2].Error, "vetoed")

	all, err := j.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	none, err := j.List(ctx, "ghost")
	require.NoError(t, err)
	assert.Empty(t, none)
}
