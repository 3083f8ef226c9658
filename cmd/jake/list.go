package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/example/jake/internal/recipe"
)

func newListCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the recipes defined in the jakefile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			set, _, err := loadRecipeFile(opts)
			if err != nil {
				return err
			}
			return printRecipeTable(set)
		},
	}
}

func printRecipeTable(set *recipe.Set) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RECIPE\tKIND\tDEPENDS ON")
	for _, name := range set.SortedNames() {
		r, _ := set.Lookup(name)
		deps := "-"
		if len(r.Deps) > 0 {
			deps = strings.Join(r.Deps, ", ")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, r.Kind, deps)
	}
	return w.Flush()
}
