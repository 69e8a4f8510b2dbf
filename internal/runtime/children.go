package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/lattice/pkg/domain"
)

// childLink tracks one active child and the listener handles the parent
// attached to the child's will/did-unload signals.
type childLink struct {
	coord      *Coordinator
	cancelWill func()
	cancelDid  func()
}

func (l *childLink) release() {
	if l.cancelWill != nil {
		l.cancelWill()
	}
	if l.cancelDid != nil {
		l.cancelDid()
	}
}

// Children returns the active children in load order.
func (c *Coordinator) Children() []*Coordinator {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Coordinator, len(c.children))
	for i, l := range c.children {
		out[i] = l.coord
	}
	return out
}

// RegisterChild wires a child module into this parent and loads it.
//
// Sequence: will-load-child hook, will-load-child event, attach listeners
// on the child's will/did-unload signals, await the child's load,
// did-load-child hook, append to the active children, did-load-child event.
// A failure at any step releases the just-attached listeners before
// propagating.
func (c *Coordinator) RegisterChild(ctx context.Context, child *Coordinator) error {
	c.mu.Lock()
	if c.state == domain.StateUnloading || c.state == domain.StateUnloaded {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("cannot register child %q on module %q in state %q: %w",
			child.Name(), c.name, state, domain.ErrModuleUnloaded)
	}
	for _, link := range c.children {
		if link.coord == child {
			c.mu.Unlock()
			c.logger.Debug("child already registered", "child", child.Name())
			return nil
		}
	}
	c.mu.Unlock()

	if err := c.hooks.OnWillLoadChildModule(ctx, child.Module()); err != nil {
		return fmt.Errorf("will-load-child hook rejected %q: %w", child.Name(), err)
	}
	c.publishChild(domain.TopicWillLoadChild, child, nil)

	// Listeners are attached before the load so an independent unload is
	// never missed, and released on every failure path below.
	link := &childLink{coord: child}
	link.cancelWill = child.bus.observe(domain.TopicWillUnload, func(domain.Event) {
		c.handleChildWillUnload(link)
	})
	link.cancelDid = child.bus.observe(domain.TopicDidUnload, func(e domain.Event) {
		c.handleChildDidUnload(link, e.Err)
	})

	if err := child.Load(ctx).Await(ctx); err != nil {
		link.release()
		return fmt.Errorf("child %q failed to load: %w", child.Name(), err)
	}

	if err := c.hooks.OnDidLoadChildModule(ctx, child.Module()); err != nil {
		link.release()
		return fmt.Errorf("did-load-child hook rejected %q: %w", child.Name(), err)
	}

	c.mu.Lock()
	c.children = append(c.children, link)
	c.mu.Unlock()

	c.publishChild(domain.TopicDidLoadChild, child, nil)
	c.logger.Debug("child registered", "child", child.Name())
	return nil
}

// handleChildWillUnload reacts to a child starting an independent unload:
// will-unload-child hook, will-unload-child event, then immediate removal
// from the active children — before the child's unload completes — so that
// subsequent fan-outs no longer include it.
func (c *Coordinator) handleChildWillUnload(link *childLink) {
	ctx := context.Background()
	c.hooks.OnWillUnloadChildModule(ctx, link.coord.Module())
	c.publishChild(domain.TopicWillUnloadChild, link.coord, nil)

	c.mu.Lock()
	for i, l := range c.children {
		if l == link {
			c.children = append(c.children[:i], c.children[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
}

// handleChildDidUnload reacts to the child's termination: did-unload-child
// hook, did-unload-child event, listener release.
func (c *Coordinator) handleChildDidUnload(link *childLink, err error) {
	c.hooks.OnDidUnloadChildModule(context.Background(), link.coord.Module())
	c.publishChild(domain.TopicDidUnloadChild, link.coord, err)
	link.release()
}

// detachChildren empties the children list and releases all independent-
// unload listeners. Called by the parent-driven unload, which owns the
// children's teardown from that point on.
func (c *Coordinator) detachChildren() []*childLink {
	c.mu.Lock()
	links := c.children
	c.children = nil
	c.mu.Unlock()

	for _, l := range links {
		l.release()
	}
	return links
}
