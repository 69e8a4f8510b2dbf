package domain_test

import (
	"testing"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestCanStartFrom(t *testing.T) {
	cases := []struct {
		op    domain.Operation
		from  domain.LifecycleState
		legal bool
	}{
		{domain.OpLoad, domain.StateInstantiated, true},
		{domain.OpLoad, domain.StateLoaded, false},
		{domain.OpLoad, domain.StateUnloaded, false},
		{domain.OpSuspend, domain.StateLoaded, true},
		{domain.OpSuspend, domain.StateLoading, true},
		{domain.OpSuspend, domain.StateResuming, true},
		{domain.OpSuspend, domain.StateInstantiated, false},
		{domain.OpResume, domain.StateSuspended, true},
		{domain.OpResume, domain.StateSuspending, true},
		{domain.OpResume, domain.StateInstantiated, false},
		{domain.OpUnload, domain.StateLoaded, true},
		{domain.OpUnload, domain.StateLoading, true},
		{domain.OpUnload, domain.StateSuspending, true},
		{domain.OpUnload, domain.StateInstantiated, false},
	}

	for _, tc := range cases {
		got := domain.CanStartFrom(tc.op, tc.from)
		assert.Equal(t, tc.legal, got, "%s from %s", tc.op, tc.from)
	}
}

func TestOperationShape(t *testing.T) {
	assert.Equal(t, domain.StateLoading, domain.OpLoad.Intermediate())
	assert.Equal(t, domain.StateLoaded, domain.OpLoad.Target())
	assert.Equal(t, domain.StateLoaded, domain.OpResume.Target())
	assert.Equal(t, domain.StateUnloaded, domain.OpUnload.Target())
	assert.Equal(t, domain.StateUnloading, domain.OpUnload.Intermediate())
}

func TestCanUnloadResultMerge(t *testing.T) {
	r := domain.Eligible()
	r = r.Merge(domain.Ineligible("busy"))
	r = r.Merge(domain.Eligible())
	r = r.Merge(domain.Ineligible("uploading", "dirty"))

	assert.False(t, r.Eligible)
	// Approvals never suppress rejections, and order is preserved.
	assert.Equal(t, []string{"busy", "uploading", "dirty"}, r.Reasons)
}

func TestIsVeto(t *testing.T) {
	err := &domain.VetoError{Module: "editor", Reasons: []string{"unsaved changes"}}
	assert.True(t, domain.IsVeto(err))
	assert.Contains(t, err.Error(), "unsaved changes")
	assert.False(t, domain.IsVeto(domain.ErrModuleUnloaded))
}

func TestIllegalTransitionErrorMessage(t *testing.T) {
	err := &domain.IllegalTransitionError{
		Module:  "cache",
		Op:      domain.OpSuspend,
		Current: domain.StateInstantiated,
		Target:  domain.StateSuspended,
		Allowed: domain.AllowedSources(domain.OpSuspend),
	}
	msg := err.Error()
	assert.Contains(t, msg, "instantiated")
	assert.Contains(t, msg, "suspended")
	assert.Contains(t, msg, "loaded")
}
