package rules

import (
	"fmt"
	"math/rand"

	"github.com/htapia/convoca/core"
)

// TableWalk builds a path through rule space that switches on one table
// entry per step. Row i of the [nbins, nbins] result is a 0/1 rule vector
// with i+1 entries on, each row adding one entry to the previous row.
//
// With a nil known rule the entries are switched on in uniformly random
// order. Otherwise known must be a 0/1 vector of length nbins: its on
// entries are switched on first, in random order, so that row numOn-1 equals
// known, and the remaining entries follow in random order.
func TableWalk(nbins int, known []float32, rng *rand.Rand) (*core.Tensor, error) {
	if nbins < 1 {
		return nil, fmt.Errorf("%w: table walk over %d bins", ErrTable, nbins)
	}
	walk := core.New(nbins, nbins)

	if len(known) == 0 {
		fillWalk(walk, 0, shuffled(rng, seq(nbins)))
		return walk, nil
	}

	if len(known) != nbins {
		return nil, fmt.Errorf("%w: known rule has %d entries, want %d", ErrTable, len(known), nbins)
	}
	var on, off []int
	for i, v := range known {
		switch v {
		case 1:
			on = append(on, i)
		case 0:
			off = append(off, i)
		default:
			return nil, fmt.Errorf("%w: known rule entry %d is %v", ErrNotBinary, i, v)
		}
	}

	fillWalk(walk, 0, shuffled(rng, on))
	fillWalk(walk, len(on), shuffled(rng, off))
	return walk, nil
}

// fillWalk switches on column order[i] in every row from start+i onwards.
func fillWalk(walk *core.Tensor, start int, order []int) {
	n := walk.Dim(1)
	for i, col := range order {
		for row := start + i; row < walk.Dim(0); row++ {
			walk.Data[row*n+col] = 1
		}
	}
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func shuffled(rng *rand.Rand, xs []int) []int {
	out := append([]int(nil), xs...)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
