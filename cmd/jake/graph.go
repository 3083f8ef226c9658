package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/jake/internal/engine"
)

func newGraphCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "graph RECIPE",
		Short: "Print the dependency graph for a recipe without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, vars, err := loadRecipeFile(opts)
			if err != nil {
				return err
			}
			eng, err := engine.New(set, vars, engine.Options{Jobs: 1, DryRun: true})
			if err != nil {
				return err
			}
			target := args[0]
			edges, err := eng.GraphEdges(target)
			if err != nil {
				return err
			}
			stats, err := eng.GraphStats(target)
			if err != nil {
				return err
			}
			for _, e := range edges {
				fmt.Fprintf(os.Stdout, "%s -> %s\n", e[0], e[1])
			}
			if len(edges) == 0 {
				fmt.Fprintf(os.Stdout, "%s (no dependencies)\n", target)
			}
			fmt.Fprintf(os.Stdout, "\nnodes: %d  max parallel: %d  critical path: %d\n",
				stats.Nodes, stats.MaxParallel, stats.CriticalPathLength)
			return nil
		},
	}
}
