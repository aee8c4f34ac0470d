package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/htapia/convoca/internal/render"
	"github.com/htapia/convoca/store"
)

func newRunsCmd(a *app) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List stored runs, or show the entropy trajectory of one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				path = a.cfg.Store.Path
			}
			if path == "" {
				return errors.New("no store configured; pass --store or set store.path")
			}
			ctx := cmd.Context()
			s, err := store.Open(ctx, path)
			if err != nil {
				return err
			}
			defer s.Close()

			if len(args) == 1 {
				steps, err := s.Entropies(ctx, args[0])
				if err != nil {
					return err
				}
				trajectory := make([][]float64, len(steps))
				for i, st := range steps {
					trajectory[i] = st.Values
				}
				a.printf("%s\n", render.Trajectory(trajectory))
				return nil
			}

			runs, err := s.Runs(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "ID\tRULE\tGRID\tBATCH\tSTEPS\tSEED\tCREATED\n")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%dx%d\t%d\t%d\t%d\t%s\n",
					r.ID, r.Rule, r.Height, r.Width, r.Batch, r.Steps, r.Seed, r.CreatedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&path, "store", "", "SQLite database (default store.path from config)")
	return cmd
}
