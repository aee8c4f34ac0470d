package main

import (
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/htapia/convoca/automaton"
	"github.com/htapia/convoca/core"
	"github.com/htapia/convoca/entropy"
	"github.com/htapia/convoca/kernels"
	"github.com/htapia/convoca/rules"
)

type perf struct {
	*app
	size int
	iter int
	seed int64
}

func newPerfCmd(a *app) *cobra.Command {
	p := &perf{app: a}
	var testType string
	cmd := &cobra.Command{
		Use:   "perf",
		Short: "Time the numeric kernels and automaton step functions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if p.size < 3 || p.iter < 1 {
				return fmt.Errorf("size must be at least 3 and iter at least 1")
			}
			p.printf("convoca performance analysis\n")
			p.printf("============================\n")
			p.printf("Go Version: %s\n", runtime.Version())
			p.printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			p.printf("CPUs: %d\n", runtime.NumCPU())
			p.printf("Test Size: %d\n", p.size)
			p.printf("Iterations: %d\n\n", p.iter)

			switch testType {
			case "all":
				p.runVectorTests()
				p.runMatrixTests()
				return p.runStepTests()
			case "vector":
				p.runVectorTests()
			case "matrix":
				p.runMatrixTests()
			case "step":
				return p.runStepTests()
			default:
				return fmt.Errorf("unknown test type: %s", testType)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&testType, "test", "all", "test type: all, vector, matrix, step")
	cmd.Flags().IntVar(&p.size, "size", 64, "grid side length; vectors use size*size elements")
	cmd.Flags().IntVar(&p.iter, "iter", 100, "number of iterations")
	cmd.Flags().Int64Var(&p.seed, "seed", 1, "random seed")
	return cmd
}

func (p *perf) runVectorTests() {
	p.printf("Vector Operations Performance\n")
	p.printf("-----------------------------\n")

	n := p.size * p.size
	a := p.generate(n)
	b := p.generate(n)
	scratch := core.AlignedFloat32s(n)

	tests := []struct {
		name string
		fn   func()
	}{
		{"Vector Add (in-place)", func() { copy(scratch, a); kernels.VectorAddInPlace(scratch, b) }},
		{"Vector Multiply", func() { copy(scratch, a); kernels.VectorMulInPlace(scratch, b) }},
		{"Dot Product", func() { _ = kernels.VectorDot(a, b) }},
		{"Axpy", func() { copy(scratch, a); kernels.Axpy(0.5, b, scratch) }},
	}
	for _, test := range tests {
		d := p.time(test.fn)
		p.printf("%-24s %v (%.2f Mops/s)\n", test.name+":", d, float64(n*p.iter)/d.Seconds()/1e6)
	}
	p.printf("\n")
}

func (p *perf) runMatrixTests() {
	p.printf("Matrix Operations Performance\n")
	p.printf("-----------------------------\n")

	for _, n := range []int{16, 32, 64} {
		a := p.generate(n * n)
		b := p.generate(n * n)
		d := p.time(func() { _ = kernels.MatMul(a, n, n, b, n, n) })
		ops := 2 * int64(n) * int64(n) * int64(n) * int64(p.iter)
		p.printf("%-24s %v (%.2f GFLOPS)\n", fmt.Sprintf("Matrix Multiply %dx%d:", n, n), d, float64(ops)/d.Seconds()/1e9)
	}
	p.printf("\n")
}

func (p *perf) runStepTests() error {
	p.printf("Automaton Step Performance (%dx%d)\n", p.size, p.size)
	p.printf("----------------------------------\n")

	state, err := rules.Random(newRand(p.seed), 0.5, p.size, p.size)
	if err != nil {
		return err
	}
	conv, err := automaton.MakeCA(rules.GameOfLife())
	if err != nil {
		return err
	}
	direct, err := automaton.Direct(rules.GameOfLife())
	if err != nil {
		return err
	}

	tests := []struct {
		name string
		fn   func() error
	}{
		{"Filter bank (512 ch)", func() error { _, err := conv(state); return err }},
		{"Life network (5 ch)", func() error { _, err := automaton.MakeGameOfLife()(state); return err }},
		{"Direct lookup", func() error { _, err := direct(state); return err }},
		{"Image entropy", func() error { _, err := entropy.Measure(state); return err }},
	}
	cells := float64(p.size * p.size * p.iter)
	for _, test := range tests {
		var stepErr error
		d := p.time(func() {
			if err := test.fn(); err != nil && stepErr == nil {
				stepErr = err
			}
		})
		if stepErr != nil {
			return stepErr
		}
		p.printf("%-24s %v (%.2f Mcells/s)\n", test.name+":", d, cells/d.Seconds()/1e6)
	}
	p.printf("\n")
	return nil
}

func (p *perf) time(fn func()) time.Duration {
	start := time.Now()
	for i := 0; i < p.iter; i++ {
		fn()
	}
	return time.Since(start)
}

func (p *perf) generate(n int) []float32 {
	rng := newRand(p.seed)
	data := make([]float32, n)
	for i := range data {
		data[i] = rng.Float32()*200 - 100
	}
	return data
}
