package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/pkg/assembly"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/spf13/cobra"
)

// buildTree loads the manifest named by the --manifest flag and assembles
// the module tree with the builtin kinds.
func buildTree(ctx context.Context, cmd *cobra.Command, opts ...lattice.Option) (*lattice.Module, error) {
	path, _ := cmd.Flags().GetString("manifest")

	manifest, err := assembly.Load(path)
	if err != nil {
		return nil, err
	}
	return manifest.Build(ctx, builtinRegistry(), opts...)
}

// tryUnload attempts a negotiated unload and reports the outcome. A veto is
// not an error for the caller: the tree keeps running.
func tryUnload(ctx context.Context, root *lattice.Module) (vetoed bool, err error) {
	if err := root.Unload(ctx).Await(ctx); err != nil {
		var veto *domain.VetoError
		if errors.As(err, &veto) {
			fmt.Println("Unload vetoed:")
			for _, reason := range veto.Reasons {
				fmt.Printf("  - %s\n", reason)
			}
			return true, nil
		}
		return false, err
	}
	return false, nil
}
