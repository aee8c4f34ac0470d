package main

import (
	"math/rand"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/htapia/convoca/core"
	"github.com/htapia/convoca/entropy"
	"github.com/htapia/convoca/internal/render"
	"github.com/htapia/convoca/rules"
)

func newEntropyCmd(a *app) *cobra.Command {
	var show bool
	cmd := &cobra.Command{
		Use:   "entropy <stack.cvca>...",
		Short: "Print the neighbourhood entropy of every image in stored stacks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			grid := render.NewGrid()
			for _, path := range args {
				stack, err := core.ReadFile(path)
				if err != nil {
					return err
				}
				ents, err := entropy.ImageEntropy(stack)
				if err != nil {
					return err
				}
				a.logger.Debug("stack measured", zap.String("path", path), zap.Ints("shape", stack.Shape))

				a.printf("%s\n", path)
				for i, h := range ents {
					a.printf("  image %d: %.6f\n", i, h)
				}
				if show && stack.Rank() == 2 {
					out, err := grid.Render("", stack)
					if err != nil {
						return err
					}
					a.printf("%s\n", out)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&show, "show", false, "render single images")
	return cmd
}

func newWalkCmd(a *app) *cobra.Command {
	var (
		bins  int
		known string
		seed  int64
	)
	cmd := &cobra.Command{
		Use:   "walk",
		Short: "Print a random walk through rule tables",
		Long: `Prints an N x N matrix whose row i switches on i+1 of the N table
entries, one more per row, in random order. With --known the entries that
are on in the known rule are switched on first, so that the walk passes
through it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var knownBits []float32
			if known != "" {
				var err error
				if knownBits, err = rules.ParseBits(known); err != nil {
					return err
				}
				if !cmd.Flags().Changed("bins") {
					bins = len(knownBits)
				}
			}
			walk, err := rules.TableWalk(bins, knownBits, newRand(seed))
			if err != nil {
				return err
			}
			for i := 0; i < walk.Dim(0); i++ {
				a.printf("%s\n", rules.FormatBits(walk.Row(i).Data))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&bins, "bins", 8, "number of table entries")
	cmd.Flags().StringVar(&known, "known", "", "known rule as 0/1 digits")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed")
	return cmd
}

func newGliderCmd(a *app) *cobra.Command {
	var (
		height, width int
		batch         int
		output        string
	)
	cmd := &cobra.Command{
		Use:   "glider",
		Short: "Write a glider initial condition to a stack file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("width") {
				width = height
			}
			g, err := rules.Glider(height, width)
			if err != nil {
				return err
			}
			out := g
			if batch > 1 {
				copies := make([]*core.Tensor, batch)
				for i := range copies {
					copies[i] = g
				}
				if out, err = core.Stack(copies...); err != nil {
					return err
				}
			}
			if err := core.WriteFile(output, out); err != nil {
				return err
			}
			a.logger.Info("glider written", zap.String("path", output), zap.Ints("shape", out.Shape))
			a.printf("wrote %v stack to %s\n", out.Shape, output)
			return nil
		},
	}
	cmd.Flags().IntVar(&height, "size", 8, "grid height, and width unless --width is given")
	cmd.Flags().IntVar(&width, "width", 0, "grid width")
	cmd.Flags().IntVar(&batch, "batch", 1, "number of copies; more than one writes an [M H W] stack")
	cmd.Flags().StringVarP(&output, "output", "o", "glider.cvca", "output file")
	return cmd
}

func joinNames(names []string) string {
	return strings.Join(names, ", ")
}

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
