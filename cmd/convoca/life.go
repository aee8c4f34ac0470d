package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/htapia/convoca/automaton"
	"github.com/htapia/convoca/internal/render"
	"github.com/htapia/convoca/rules"
)

func newLifeCmd(a *app) *cobra.Command {
	var (
		size  int
		steps int
		name  string
		plain bool
	)
	cmd := &cobra.Command{
		Use:   "life",
		Short: "Step a glider through the Game of Life network",
		Long: `Places a glider in the middle of a size x size torus and renders every
generation. By default Conway's Game of Life runs as the two-layer rectified
network (life-net); --automaton selects any registered automaton, including
the 512-word filter banks built from the preset rule tables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 0 {
				return fmt.Errorf("steps must be >= 0, got %d", steps)
			}
			state, err := rules.Glider(size)
			if err != nil {
				return err
			}

			step, err := automaton.Lookup(name)
			if err != nil {
				return err
			}
			a.logger.Info("life started", zap.String("automaton", name), zap.Int("size", size), zap.Int("steps", steps))

			grid := render.NewGrid()
			if plain {
				grid = &render.Grid{}
			}
			for gen := 0; ; gen++ {
				out, err := grid.Render(fmt.Sprintf("generation %d", gen), state)
				if err != nil {
					return err
				}
				a.printf("%s\n", out)
				if gen == steps {
					return nil
				}
				if err := cmd.Context().Err(); err != nil {
					return err
				}
				if state, err = step(state); err != nil {
					return err
				}
				automaton.Binarize(state)
			}
		},
	}
	cmd.Flags().IntVar(&size, "size", 8, "grid side length (at least 3)")
	cmd.Flags().IntVar(&steps, "steps", 4, "generations to compute")
	cmd.Flags().StringVar(&name, "automaton", "life-net", "registered automaton ("+joinNames(automaton.Names())+")")
	cmd.Flags().BoolVar(&plain, "plain", false, "render without colour or border")
	return cmd
}
