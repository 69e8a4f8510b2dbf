package runtime

import (
	"context"

	"github.com/aretw0/lattice/pkg/domain"
)

// CanUnload recursively polls every active child and then this module's own
// eligibility hook, aggregating into a single result. Every participant is
// always polled — no short-circuiting — so all rejection reasons surface
// together, in child order, self last.
func (c *Coordinator) CanUnload(ctx context.Context) domain.CanUnloadResult {
	result := domain.Eligible()
	for _, child := range c.Children() {
		result = result.Merge(child.CanUnload(ctx))
	}
	return result.Merge(c.hooks.OnShouldUnload(ctx))
}
