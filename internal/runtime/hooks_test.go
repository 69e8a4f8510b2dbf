package runtime_test

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
)

// stubHooks is a configurable ports.Lifecycle used across the runtime tests.
// Zero value behaves like ports.BaseLifecycle but counts invocations.
type stubHooks struct {
	ports.BaseLifecycle

	mu       sync.Mutex
	loads    int
	suspends int
	resumes  int
	unloads  int

	loadErr    error
	suspendErr error
	resumeErr  error
	unloadErr  error

	loadDelay    time.Duration
	suspendDelay time.Duration

	shouldUnload *domain.CanUnloadResult

	onWillUnloadChild func(child ports.Module)
	onDidUnloadChild  func(child ports.Module)
	willLoadChildErr  error
	didLoadChildErr   error
}

func (h *stubHooks) bump(counter *int) {
	h.mu.Lock()
	*counter++
	h.mu.Unlock()
}

func (h *stubHooks) counts() (loads, suspends, resumes, unloads int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loads, h.suspends, h.resumes, h.unloads
}

func (h *stubHooks) OnLoad(ctx context.Context) error {
	h.bump(&h.loads)
	if h.loadDelay > 0 {
		time.Sleep(h.loadDelay)
	}
	return h.loadErr
}

func (h *stubHooks) OnSuspend(ctx context.Context) error {
	h.bump(&h.suspends)
	if h.suspendDelay > 0 {
		time.Sleep(h.suspendDelay)
	}
	return h.suspendErr
}

func (h *stubHooks) OnResume(ctx context.Context) error {
	h.bump(&h.resumes)
	return h.resumeErr
}

func (h *stubHooks) OnUnload(ctx context.Context) error {
	h.bump(&h.unloads)
	return h.unloadErr
}

func (h *stubHooks) OnShouldUnload(ctx context.Context) domain.CanUnloadResult {
	if h.shouldUnload != nil {
		return *h.shouldUnload
	}
	return domain.Eligible()
}

func (h *stubHooks) OnWillLoadChildModule(ctx context.Context, child ports.Module) error {
	return h.willLoadChildErr
}

func (h *stubHooks) OnDidLoadChildModule(ctx context.Context, child ports.Module) error {
	return h.didLoadChildErr
}

func (h *stubHooks) OnWillUnloadChildModule(ctx context.Context, child ports.Module) {
	if h.onWillUnloadChild != nil {
		h.onWillUnloadChild(child)
	}
}

func (h *stubHooks) OnDidUnloadChildModule(ctx context.Context, child ports.Module) {
	if h.onDidUnloadChild != nil {
		h.onDidUnloadChild(child)
	}
}

// drain collects everything currently buffered on an event channel.
func drain(ch <-chan domain.Event) []domain.Event {
	var out []domain.Event
	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, e)
		default:
			return out
		}
	}
}
