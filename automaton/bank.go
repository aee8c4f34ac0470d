package automaton

import (
	"fmt"
	"sync"

	"github.com/htapia/convoca/core"
	"github.com/htapia/convoca/kernels"
	"github.com/htapia/convoca/rules"
)

// Bank is a filter bank plus per-channel bias. Convolving a padded binary
// image with Filters, adding Biases and rectifying yields a one-hot vector
// per pixel marking which word the pixel's neighbourhood matches.
type Bank struct {
	Neighborhood rules.Neighborhood
	Filters      *core.Tensor // [K, K, C]
	Biases       []float32    // [C]
}

// NewWordBank encodes each row of words ([C, K*K], binary) as one filter.
// Ones stay 1, zeros become -K*K so that any live cell outside the word
// drives the response negative, and the bias is 1 - Σword. On a binary
// neighbourhood the rectified response is exactly 1 for the matching word
// and 0 for every other.
func NewWordBank(nb rules.Neighborhood, words *core.Tensor) (*Bank, error) {
	if err := nb.Validate(); err != nil {
		return nil, err
	}
	k, cells := nb.Size(), nb.Cells()
	if words.Rank() != 2 || words.Dim(1) != cells {
		return nil, fmt.Errorf("%w: words shape %v, want [C %d]", rules.ErrTable, words.Shape, cells)
	}
	c := words.Dim(0)
	penalty := -float32(cells)

	filters := core.New(k, k, c)
	biases := make([]float32, c)
	for ch := 0; ch < c; ch++ {
		ones := float32(0)
		for tap, v := range words.Data[ch*cells : (ch+1)*cells] {
			switch v {
			case 1:
				filters.Data[tap*c+ch] = 1
				ones++
			case 0:
				filters.Data[tap*c+ch] = penalty
			default:
				return nil, fmt.Errorf("%w: word %d holds %v", rules.ErrNotBinary, ch, v)
			}
		}
		biases[ch] = 1 - ones
	}
	return &Bank{Neighborhood: nb, Filters: filters, Biases: biases}, nil
}

// VonNeumannBank encodes all 512 binary 3×3 words in AllCombinations order.
func VonNeumannBank() *Bank {
	words, err := rules.AllCombinations(2, rules.VonNeumann.Cells())
	if err != nil {
		panic(err)
	}
	b, err := NewWordBank(rules.VonNeumann, words)
	if err != nil {
		panic(err)
	}
	return b
}

// sharedVonNeumann is the read-only bank used by Categorize.
var sharedVonNeumann = sync.OnceValue(VonNeumannBank)

// Channels is the number of filters.
func (b *Bank) Channels() int { return len(b.Biases) }

// Activate pads state periodically and returns the rectified bank response,
// shape [M, H, W, C]. Rank-2 input is treated as a batch of one.
func (b *Bank) Activate(state *core.Tensor) (*core.Tensor, error) {
	batch, err := asBatch(state)
	if err != nil {
		return nil, err
	}
	padded, err := core.PeriodicPad(batch, b.Neighborhood.Padding())
	if err != nil {
		return nil, err
	}
	act := kernels.Conv2DValid(padded, b.Filters)
	kernels.AddBias(act, b.Biases)
	kernels.ReLU(act.Data)
	return act, nil
}

// asBatch views a rank-2 image as a [1, H, W] stack.
func asBatch(state *core.Tensor) (*core.Tensor, error) {
	switch state.Rank() {
	case 2:
		return state.Reshape(1, state.Dim(0), state.Dim(1))
	case 3:
		return state, nil
	default:
		return nil, fmt.Errorf("%w: automaton state must be [H W] or [M H W], got %v", core.ErrRank, state.Shape)
	}
}
