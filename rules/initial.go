package rules

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/htapia/convoca/core"
)

// ErrGliderSize is returned when a grid is too small to hold a glider.
var ErrGliderSize = errors.New("glider needs at least a 3x3 grid")

var gliderCenter = [3][3]float32{
	{0, 1, 0},
	{0, 0, 1},
	{1, 1, 1},
}

// Glider returns a grid with a Game of Life glider centred on
// floor(dims/2). Pass one size for a square grid or height and width.
func Glider(dims ...int) (*core.Tensor, error) {
	var h, w int
	switch len(dims) {
	case 1:
		h, w = dims[0], dims[0]
	case 2:
		h, w = dims[0], dims[1]
	default:
		return nil, fmt.Errorf("%w: got %d dimensions", ErrGliderSize, len(dims))
	}
	if h < 3 || w < 3 {
		return nil, fmt.Errorf("%w: %dx%d", ErrGliderSize, h, w)
	}

	out := core.New(h, w)
	cy, cx := h/2, w/2
	for dy := 0; dy < 3; dy++ {
		for dx := 0; dx < 3; dx++ {
			out.Set(gliderCenter[dy][dx], cy-1+dy, cx-1+dx)
		}
	}
	return out, nil
}

// Random returns an h×w grid where each cell is alive with the given
// probability.
func Random(rng *rand.Rand, density float64, h, w int) (*core.Tensor, error) {
	if density < 0 || density > 1 {
		return nil, fmt.Errorf("%w: density %v outside [0, 1]", ErrTable, density)
	}
	if h < 1 || w < 1 {
		return nil, fmt.Errorf("%w: %dx%d", core.ErrShape, h, w)
	}
	out := core.New(h, w)
	for i := range out.Data {
		if rng.Float64() < density {
			out.Data[i] = 1
		}
	}
	return out, nil
}

// RandomStack returns m independent random grids as an [m, h, w] stack.
func RandomStack(rng *rand.Rand, density float64, m, h, w int) (*core.Tensor, error) {
	if m < 1 {
		return nil, fmt.Errorf("%w: batch of %d", core.ErrShape, m)
	}
	items := make([]*core.Tensor, m)
	for i := range items {
		g, err := Random(rng, density, h, w)
		if err != nil {
			return nil, err
		}
		items[i] = g
	}
	return core.Stack(items...)
}
