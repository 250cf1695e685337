package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/safarnama/safarnama/internal/core/systems/ballfield"
)

// genresCmd lists backend genres with the route activating each one opens
var genresCmd = &cobra.Command{
	Use:   "genres",
	Short: "List blog genres and their activation routes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, cleanup, err := buildApp()
		if err != nil {
			return err
		}
		defer cleanup()

		genres, err := app.API.Genres.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("fetch genres: %w", err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tGENRE\tROUTE")
		for _, g := range genres {
			fmt.Fprintf(w, "%d\t%s\t%s\n", g.ID, g.Name, ballfield.GenreRoute(g.Name))
		}
		return w.Flush()
	},
}
