package main

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/registry"
)

// builtinRegistry returns the module kinds shipped with the CLI. They are
// deliberately small payloads, useful for demos and for smoke-testing a
// manifest before writing real kinds against the library.
func builtinRegistry() *registry.Registry {
	reg := registry.NewRegistry()
	reg.Register("worker", newWorker)
	reg.Register("echo", newEcho)
	return reg
}

type workerParams struct {
	Interval string `mapstructure:"interval"`
	Pinned   bool   `mapstructure:"pinned"`
	Reason   string `mapstructure:"reason"`
}

// worker ticks in the background while loaded, pauses while suspended, and
// optionally vetoes unload when pinned.
type worker struct {
	lattice.Hooks
	name     string
	interval time.Duration
	pinned   bool
	reason   string

	paused atomic.Bool
	ticks  atomic.Int64
	stop   chan struct{}
}

func newWorker(name string, params map[string]any, opts ...lattice.Option) (*lattice.Module, error) {
	var cfg workerParams
	if err := registry.DecodeParams(params, &cfg); err != nil {
		return nil, err
	}

	interval := time.Second
	if cfg.Interval != "" {
		parsed, err := time.ParseDuration(cfg.Interval)
		if err != nil {
			return nil, err
		}
		interval = parsed
	}
	reason := cfg.Reason
	if reason == "" {
		reason = name + " is pinned"
	}

	w := &worker{name: name, interval: interval, pinned: cfg.Pinned, reason: reason}
	return lattice.New(name, append(opts, lattice.WithLifecycle(w))...), nil
}

func (w *worker) OnLoad(ctx context.Context) error {
	w.stop = make(chan struct{})
	ticker := time.NewTicker(w.interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-w.stop:
				return
			case <-ticker.C:
				if w.paused.Load() {
					continue
				}
				n := w.ticks.Add(1)
				slog.Debug("worker tick", "module", w.name, "ticks", n)
			}
		}
	}()
	return nil
}

func (w *worker) OnSuspend(ctx context.Context) error {
	w.paused.Store(true)
	return nil
}

func (w *worker) OnResume(ctx context.Context) error {
	w.paused.Store(false)
	return nil
}

func (w *worker) OnShouldUnload(ctx context.Context) domain.CanUnloadResult {
	if w.pinned {
		return domain.Ineligible(w.reason)
	}
	return domain.Eligible()
}

func (w *worker) OnUnload(ctx context.Context) error {
	close(w.stop)
	return nil
}

type echoParams struct {
	Message string `mapstructure:"message"`
}

// echo logs its message on every lifecycle hook. Handy for watching
// propagation order in a manifest.
type echo struct {
	lattice.Hooks
	name    string
	message string
}

func newEcho(name string, params map[string]any, opts ...lattice.Option) (*lattice.Module, error) {
	var cfg echoParams
	if err := registry.DecodeParams(params, &cfg); err != nil {
		return nil, err
	}
	e := &echo{name: name, message: cfg.Message}
	return lattice.New(name, append(opts, lattice.WithLifecycle(e))...), nil
}

func (e *echo) log(hook string) {
	slog.Info("echo", "module", e.name, "hook", hook, "message", e.message)
}

func (e *echo) OnLoad(ctx context.Context) error    { e.log("load"); return nil }
func (e *echo) OnSuspend(ctx context.Context) error { e.log("suspend"); return nil }
func (e *echo) OnResume(ctx context.Context) error  { e.log("resume"); return nil }
func (e *echo) OnUnload(ctx context.Context) error  { e.log("unload"); return nil }
