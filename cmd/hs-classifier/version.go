package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/spherical/hs-classifier/internal/llm"
)

// newVersionCmd creates the version subcommand.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputJSON {
				return NewUI(true, noColor).JSON(map[string]any{
					"version":   version,
					"go":        runtime.Version(),
					"providers": llm.Providers(),
				})
			}
			fmt.Printf("hs-classifier v%s (%s)\n", version, runtime.Version())
			return nil
		},
	}
}
