package automaton

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/htapia/convoca/core"
)

// MeasureFunc computes a scalar statistic of one [H W] image, such as its
// neighbourhood entropy.
type MeasureFunc func(img *core.Tensor) (float64, error)

// EngineOptions configures engine behavior
type EngineOptions struct {
	Workers        int         // concurrent images; <=0 means runtime.NumCPU()
	Binarize       bool        // round every generation to {0, 1}
	StopWhenFrozen bool        // stop an image once a step leaves it unchanged
	Measure        MeasureFunc // optional per-generation statistic
	Logger         *zap.Logger
}

// DefaultEngineOptions provides sensible runtime defaults
func DefaultEngineOptions() EngineOptions {
	return EngineOptions{
		Workers:  runtime.NumCPU(),
		Binarize: true,
		Logger:   zap.NewNop(),
	}
}

// ExecutionStats tracks runtime performance metrics
type ExecutionStats struct {
	TotalRuns      int64
	TotalSteps     int64
	FrozenImages   int64
	AverageLatency time.Duration // mean wall time of one image step
}

// Result is the outcome of Engine.Run.
type Result struct {
	Final       *core.Tensor // same shape as the initial state
	Generations []int        // generations actually computed, per image
	// Trajectory[g][i] is Measure applied to image i after g generations,
	// g = 0 being the initial state. Nil without a Measure.
	Trajectory [][]float64
}

// Engine steps batches of images through a StepFunc with a bounded worker
// pool. Images are independent; each one is double-buffered in a core.Frame.
type Engine struct {
	step  StepFunc
	opts  EngineOptions
	log   *zap.Logger
	stats ExecutionStats
	mu    sync.RWMutex
}

// NewEngine creates a new runtime engine
func NewEngine(step StepFunc, opts *EngineOptions) (*Engine, error) {
	if step == nil {
		return nil, errors.New("step function cannot be nil")
	}
	engineOpts := DefaultEngineOptions()
	if opts != nil {
		engineOpts = *opts
		if opts.Workers <= 0 {
			engineOpts.Workers = DefaultEngineOptions().Workers
		}
		if opts.Logger == nil {
			engineOpts.Logger = zap.NewNop()
		}
	}
	return &Engine{
		step: step,
		opts: engineOpts,
		log:  engineOpts.Logger.Named("engine"),
	}, nil
}

// Workers returns the size of the worker pool.
func (e *Engine) Workers() int { return e.opts.Workers }

// Run advances initial ([H W] or [M H W]) by the given number of
// generations. The input is not modified.
func (e *Engine) Run(ctx context.Context, initial *core.Tensor, generations int) (*Result, error) {
	if generations < 0 {
		return nil, fmt.Errorf("negative generation count %d", generations)
	}
	batch, err := asBatch(initial)
	if err != nil {
		return nil, err
	}
	m := batch.Dim(0)

	res := &Result{Generations: make([]int, m)}
	if e.opts.Measure != nil {
		res.Trajectory = make([][]float64, generations+1)
		for g := range res.Trajectory {
			res.Trajectory[g] = make([]float64, m)
		}
	}

	start := time.Now()
	e.log.Debug("run started",
		zap.Ints("shape", initial.Shape),
		zap.Int("generations", generations),
		zap.Int("workers", e.opts.Workers))

	frames := make([]*core.Frame, m)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for i := 0; i < m; i++ {
		i := i
		frames[i] = core.NewFrame(batch.Row(i).Clone())
		g.Go(func() error {
			n, err := e.runImage(gctx, frames[i], generations, i, res.Trajectory)
			res.Generations[i] = n
			if err != nil {
				return fmt.Errorf("image %d: %w", i, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.log.Warn("run failed", zap.Error(err))
		return nil, err
	}

	final := make([]*core.Tensor, m)
	var steps, frozen int64
	for i, f := range frames {
		final[i] = f.Prev
		steps += int64(res.Generations[i])
		if f.HasFlag(core.FlagFrozen) {
			frozen++
		}
	}
	stacked, err := core.Stack(final...)
	if err != nil {
		return nil, err
	}
	if res.Final, err = stacked.Reshape(initial.Shape...); err != nil {
		return nil, err
	}

	e.record(steps, frozen, time.Since(start))
	e.log.Debug("run finished",
		zap.Int64("steps", steps),
		zap.Int64("frozen", frozen),
		zap.Duration("elapsed", time.Since(start)))
	return res, nil
}

// runImage steps one frame and fills column i of trajectory.
func (e *Engine) runImage(ctx context.Context, f *core.Frame, generations, i int, trajectory [][]float64) (int, error) {
	measure := func(g int) error {
		if trajectory == nil {
			return nil
		}
		v, err := e.opts.Measure(f.Prev)
		if err != nil {
			return fmt.Errorf("measure generation %d: %w", g, err)
		}
		trajectory[g][i] = v
		return nil
	}
	if err := measure(0); err != nil {
		return 0, err
	}

	for gen := 1; gen <= generations; gen++ {
		if err := ctx.Err(); err != nil {
			return f.Generation, err
		}
		next, err := e.step(f.Prev)
		if err != nil {
			return f.Generation, err
		}
		if e.opts.Binarize {
			Binarize(next)
		}
		if err := f.Commit(next); err != nil {
			return f.Generation, err
		}
		f.SwapBuffers()
		if err := measure(gen); err != nil {
			return f.Generation, err
		}

		if e.opts.StopWhenFrozen && f.HasFlag(core.FlagFrozen) {
			// a fixed point: the remaining generations repeat it
			for rest := gen + 1; rest <= generations && trajectory != nil; rest++ {
				trajectory[rest][i] = trajectory[gen][i]
			}
			break
		}
	}
	return f.Generation, nil
}

func (e *Engine) record(steps, frozen int64, elapsed time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats.TotalRuns++
	if steps > 0 {
		perStep := int64(elapsed) / steps
		e.stats.AverageLatency = time.Duration(
			(int64(e.stats.AverageLatency)*e.stats.TotalSteps + perStep*steps) /
				(e.stats.TotalSteps + steps),
		)
	}
	e.stats.TotalSteps += steps
	e.stats.FrozenImages += frozen
}

// Stats returns current execution statistics
func (e *Engine) Stats() ExecutionStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stats
}
