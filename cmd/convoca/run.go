package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/htapia/convoca/automaton"
	"github.com/htapia/convoca/core"
	"github.com/htapia/convoca/entropy"
	"github.com/htapia/convoca/internal/render"
	"github.com/htapia/convoca/rules"
	"github.com/htapia/convoca/store"
)

type runFlags struct {
	preset     string
	ruleFile   string
	ruleString string
	output     string
	quiet      bool

	height, width  int
	steps, batch   int
	workers        int
	seed           int64
	density        float64
	storePath      string
	stopWhenFrozen bool
}

func newRunCmd(a *app) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Step a random batch through a rule table and report image entropy",
		Long: `Draws a batch of random images, steps them through the convolutional
automaton built from a rule table and prints the neighbourhood entropy of
every image after every generation.

The rule comes from --rule (YAML file), --rulestring (B/S notation) or
--preset. Grid and run settings default to the configuration and may be
overridden with flags. With a store path the trajectory is saved to SQLite.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f.resolve(cmd, a)
			return a.run(cmd.Context(), f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.preset, "preset", "life", "named life-like rule ("+joinNames(rules.Presets())+")")
	fl.StringVar(&f.ruleFile, "rule", "", "YAML rule table file")
	fl.StringVar(&f.ruleString, "rulestring", "", "rule in B/S notation, e.g. B36/S23")
	fl.StringVarP(&f.output, "output", "o", "", "write the final stack to this file")
	fl.BoolVarP(&f.quiet, "quiet", "q", false, "do not print the entropy table")
	fl.IntVar(&f.height, "height", 0, "image height")
	fl.IntVar(&f.width, "width", 0, "image width")
	fl.IntVar(&f.steps, "steps", 0, "generations to compute")
	fl.IntVar(&f.batch, "batch", 0, "images per batch")
	fl.IntVar(&f.workers, "workers", 0, "concurrent images (0 uses every CPU)")
	fl.Int64Var(&f.seed, "seed", 0, "random seed")
	fl.Float64Var(&f.density, "density", 0, "initial fraction of live cells")
	fl.StringVar(&f.storePath, "store", "", "SQLite database for the trajectory")
	fl.BoolVar(&f.stopWhenFrozen, "stop-frozen", false, "stop stepping images that reach a fixed point")
	cmd.MarkFlagsMutuallyExclusive("rule", "rulestring", "preset")
	return cmd
}

// resolve fills unset flags from the loaded configuration.
func (f *runFlags) resolve(cmd *cobra.Command, a *app) {
	changed := cmd.Flags().Changed
	c := a.cfg
	if !changed("height") {
		f.height = c.Grid.Height
	}
	if !changed("width") {
		f.width = c.Grid.Width
	}
	if !changed("steps") {
		f.steps = c.Run.Steps
	}
	if !changed("batch") {
		f.batch = c.Run.Batch
	}
	if !changed("workers") {
		f.workers = c.Run.Workers
	}
	if !changed("seed") {
		f.seed = c.Run.Seed
	}
	if !changed("density") {
		f.density = c.Run.Density
	}
	if !changed("store") {
		f.storePath = c.Store.Path
	}
}

func (f *runFlags) table() (*rules.Table, error) {
	switch {
	case f.ruleFile != "":
		return rules.Load(f.ruleFile)
	case f.ruleString != "":
		return rules.ParseRuleString(f.ruleString)
	default:
		return rules.Preset(f.preset)
	}
}

func (a *app) run(ctx context.Context, f *runFlags) error {
	if f.batch < 1 {
		return errors.New("batch must be at least 1")
	}
	table, err := f.table()
	if err != nil {
		return err
	}
	step, err := automaton.MakeCA(table)
	if err != nil {
		return err
	}

	initial, err := rules.RandomStack(newRand(f.seed), f.density, f.batch, f.height, f.width)
	if err != nil {
		return err
	}

	engine, err := automaton.NewEngine(step, &automaton.EngineOptions{
		Workers:        f.workers,
		Binarize:       a.cfg.Run.Binarize,
		StopWhenFrozen: f.stopWhenFrozen,
		Measure:        entropy.Measure,
		Logger:         a.logger,
	})
	if err != nil {
		return err
	}

	log := a.logger.With(zap.String("rule", table.Name))
	log.Info("run started",
		zap.Ints("shape", initial.Shape),
		zap.Int("steps", f.steps),
		zap.Int("workers", engine.Workers()))

	res, err := engine.Run(ctx, initial, f.steps)
	if err != nil {
		return err
	}
	stats := engine.Stats()
	log.Info("run finished",
		zap.Int64("steps", stats.TotalSteps),
		zap.Int64("frozen", stats.FrozenImages),
		zap.Duration("step_latency", stats.AverageLatency))

	if !f.quiet {
		a.printf("%s\n", render.Trajectory(res.Trajectory))
	}
	if f.output != "" {
		if err := core.WriteFile(f.output, res.Final); err != nil {
			return err
		}
		log.Info("final stack written", zap.String("path", f.output))
	}
	if f.storePath != "" {
		id, err := saveRun(ctx, f, table.Name, res.Trajectory)
		if err != nil {
			return err
		}
		log.Info("trajectory stored", zap.String("run", id), zap.String("store", f.storePath))
		a.printf("run %s\n", id)
	}
	return nil
}

func saveRun(ctx context.Context, f *runFlags, rule string, trajectory [][]float64) (string, error) {
	s, err := store.Open(ctx, f.storePath)
	if err != nil {
		return "", err
	}
	defer s.Close()

	r, err := s.CreateRun(ctx, store.Run{
		Rule:   rule,
		Height: f.height,
		Width:  f.width,
		Batch:  f.batch,
		Steps:  f.steps,
		Seed:   f.seed,
	})
	if err != nil {
		return "", err
	}
	for gen, values := range trajectory {
		if err := s.AppendEntropies(ctx, r.ID, gen, values); err != nil {
			return "", err
		}
	}
	return r.ID, nil
}
