package main

import (
	"fmt"
	"os"
	"slices"

	"github.com/aretw0/lattice/pkg/assembly"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the manifest for consistency",
	Long:  `Parses the manifest and reports structural problems: missing or duplicate module names, unknown module kinds.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(cmd); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Manifest is valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("manifest")

	manifest, err := assembly.Load(path)
	if err != nil {
		return err
	}
	if err := manifest.Validate(); err != nil {
		return err
	}
	return checkKinds(manifest.Module, builtinRegistry().Kinds())
}

func checkKinds(spec assembly.Spec, known []string) error {
	if spec.Kind != "" && !slices.Contains(known, spec.Kind) {
		return fmt.Errorf("module %q uses unknown kind %q", spec.Name, spec.Kind)
	}
	for _, child := range spec.Children {
		if err := checkKinds(child, known); err != nil {
			return err
		}
	}
	return nil
}
