// Package automaton builds cellular automata out of convolutions.
//
// A binary rule table becomes a bank of 3×3 filters, one per neighbourhood
// word. Periodic padding, a VALID convolution, a bias and a rectifier turn
// every pixel into a one-hot vector over words; a weighted sum against the
// table's symbols then yields the next state. Conway's Game of Life also has
// a compact five-filter construction followed by a small dense layer.
//
// Key components:
//   - Bank: filter bank and biases encoding a set of words
//   - MakeCA / MakeGameOfLife: step functions over images or stacks
//   - Categorize: label every pixel with the index of its neighbourhood word
//   - Engine: runs a step function over a batch for many generations using a
//     bounded worker pool
//   - Registry of named automata
package automaton

import (
	"fmt"

	"github.com/htapia/convoca/core"
	"github.com/htapia/convoca/kernels"
	"github.com/htapia/convoca/rules"
)

// StepFunc advances an [H W] image or [M H W] stack by one generation. The
// result has the same shape as the input.
type StepFunc func(state *core.Tensor) (*core.Tensor, error)

// Labels holds one integer class per pixel.
type Labels struct {
	Shape []int
	Data  []int
}

// Row returns the labels of image i of a stack.
func (l *Labels) Row(i int) []int {
	size := len(l.Data) / l.Shape[0]
	return l.Data[i*size : (i+1)*size]
}

// Categorize labels every pixel of an image or stack with the index, in
// AllCombinations order, of the binary word its periodic neighbourhood
// forms. Useful for estimating the prior distribution of inputs in an image.
func Categorize(state *core.Tensor, nb rules.Neighborhood) (*Labels, error) {
	if err := nb.Validate(); err != nil {
		return nil, err
	}
	act, err := sharedVonNeumann().Activate(state)
	if err != nil {
		return nil, err
	}
	return &Labels{
		Shape: append([]int(nil), state.Shape...),
		Data:  kernels.ArgMax(act),
	}, nil
}

// MakeCA compiles a rule table into a step function. The filter bank is
// built once; each call pads, convolves and sums the one-hot response
// against the table's symbols. Neighbourhoods missing from a partial table
// map to 0.
func MakeCA(table *rules.Table) (StepFunc, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	bank, err := NewWordBank(table.Neighborhood, table.Words)
	if err != nil {
		return nil, err
	}
	symbols := append([]float32(nil), table.Symbols...)

	return func(state *core.Tensor) (*core.Tensor, error) {
		act, err := bank.Activate(state)
		if err != nil {
			return nil, err
		}
		next := kernels.WeightedSum(act, symbols)
		return next.Reshape(state.Shape...)
	}, nil
}

// Game of Life network constants. The five filters read the centre cell and
// four copies of the live neighbour count n; with the biases below the
// rectified channels are [c, relu(n-1), relu(n-2), relu(n-3), relu(n-4)].
var (
	lifeBiases = []float32{0, -1, -2, -3, -4}

	// lifeHidden is the 5×2 hidden layer, row-major by input channel.
	lifeHidden = []float32{
		0, 3.0 / 2,
		0, 5.0 / 4,
		4.0 / 3, -5,
		-8.0 / 3, -1.0 / 4,
		-1.0 / 3, -1.0 / 4,
	}
	lifeHiddenBias = []float32{-1.0 / 3, -7.0 / 4}
)

// MakeGameOfLife returns Conway's Game of Life as a convolution followed by
// a two-unit rectified layer whose outputs are summed. The first hidden unit
// fires for exactly three neighbours, the second for a live centre with two.
func MakeGameOfLife() StepFunc {
	const k, c = 3, 5
	filters := core.New(k, k, c)
	for tap := 0; tap < k*k; tap++ {
		if tap == rules.CenterIndex {
			filters.Data[tap*c] = 1
			continue
		}
		for ch := 1; ch < c; ch++ {
			filters.Data[tap*c+ch] = 1
		}
	}
	bank := &Bank{Neighborhood: rules.VonNeumann, Filters: filters, Biases: lifeBiases}

	return func(state *core.Tensor) (*core.Tensor, error) {
		act, err := bank.Activate(state)
		if err != nil {
			return nil, err
		}
		hidden := kernels.Dense(act, lifeHidden, c, 2, lifeHiddenBias)
		kernels.ReLU(hidden.Data)
		next := kernels.ReduceSum(hidden)
		return next.Reshape(state.Shape...)
	}
}

// Binarize rounds every cell to the nearest of 0 and 1 in place.
func Binarize(t *core.Tensor) {
	kernels.Step(t.Data, 0.5)
}

// Direct advances a binary image or stack with a plain table lookup per
// cell. It is the reference the convolution construction is checked against.
func Direct(table *rules.Table) (StepFunc, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	outputs := table.Outputs()
	nb := table.Neighborhood

	return func(state *core.Tensor) (*core.Tensor, error) {
		batch, err := asBatch(state)
		if err != nil {
			return nil, err
		}
		m, h, w := batch.Dim(0), batch.Dim(1), batch.Dim(2)
		r := nb.Padding()
		next := core.New(state.Shape...)
		for b := 0; b < m; b++ {
			img := batch.Data[b*h*w : (b+1)*h*w]
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					idx := 0
					for dy := -r; dy <= r; dy++ {
						for dx := -r; dx <= r; dx++ {
							v := img[((y+dy+h)%h)*w+(x+dx+w)%w]
							if v != 0 && v != 1 {
								return nil, fmt.Errorf("%w: cell (%d,%d) is %v", rules.ErrNotBinary, y, x, v)
							}
							idx = idx<<1 | int(v)
						}
					}
					next.Data[(b*h+y)*w+x] = outputs[idx]
				}
			}
		}
		return next, nil
	}, nil
}
