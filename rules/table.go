// Package rules describes binary cellular automata as truth tables.
//
// A rule table pairs words, the 3×3 neighbourhood configurations read
// row-major, with symbols, the next state of the centre cell. Tables are
// consumed by the automaton package, which turns them into convolution
// filter banks. The package also provides table walks through rule space,
// standard initial conditions and a YAML file format for tables.
package rules

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/htapia/convoca/core"
)

var (
	ErrNeighborhood = errors.New("neighborhood type not implemented")
	ErrNotBinary    = errors.New("rule table is not binary")
	ErrTable        = errors.New("invalid rule table")
)

// Neighborhood names the window a rule looks at.
type Neighborhood string

// VonNeumann is the 3×3 window around a cell, evaluated with periodic
// padding of one cell.
const VonNeumann Neighborhood = "von neumann"

// ParseNeighborhood accepts the canonical name and common spellings.
func ParseNeighborhood(s string) (Neighborhood, error) {
	switch strings.ToLower(strings.TrimSpace(strings.NewReplacer("_", " ", "-", " ").Replace(s))) {
	case "", "von neumann", "vonneumann":
		return VonNeumann, nil
	}
	return "", fmt.Errorf("%w: %q", ErrNeighborhood, s)
}

// Size is the side of the square window.
func (n Neighborhood) Size() int { return 3 }

// Padding is the periodic padding needed so output and input sizes match.
func (n Neighborhood) Padding() int { return n.Size() / 2 }

// Cells is the number of cells in the window, the length of a word.
func (n Neighborhood) Cells() int { return n.Size() * n.Size() }

// Validate reports ErrNeighborhood for unknown values.
func (n Neighborhood) Validate() error {
	if n != VonNeumann {
		return fmt.Errorf("%w: %q", ErrNeighborhood, string(n))
	}
	return nil
}

// CenterIndex is the position of the centre cell inside a word.
const CenterIndex = 4

// AllCombinations enumerates every word of d digits in the given base. Row k
// holds the digits of k, most significant first, so the result has shape
// [base^d, d].
func AllCombinations(base, d int) (*core.Tensor, error) {
	if base < 2 || d < 1 {
		return nil, fmt.Errorf("%w: base %d, digits %d", ErrTable, base, d)
	}
	n := math.Pow(float64(base), float64(d))
	if n > 1<<24 {
		return nil, fmt.Errorf("%w: %d words is too many", ErrTable, int64(n))
	}
	rows := int(n)
	out := core.New(rows, d)
	for k := 0; k < rows; k++ {
		rem := k
		for j := d - 1; j >= 0; j-- {
			out.Data[k*d+j] = float32(rem % base)
			rem /= base
		}
	}
	return out, nil
}

// WordIndex returns the row of a binary word in AllCombinations(2, len(word)).
func WordIndex(word []float32) (int, error) {
	idx := 0
	for _, v := range word {
		switch v {
		case 0:
			idx <<= 1
		case 1:
			idx = idx<<1 | 1
		default:
			return 0, fmt.Errorf("%w: value %v in word", ErrNotBinary, v)
		}
	}
	return idx, nil
}

// Table is a binary automaton rule: Words[i] maps to Symbols[i]. Words not
// listed map to state 0.
type Table struct {
	Name         string
	Neighborhood Neighborhood
	Words        *core.Tensor // [N, cells]
	Symbols      []float32    // [N]
}

// NewTable checks and assembles a table from explicit words and symbols.
func NewTable(nb Neighborhood, words *core.Tensor, symbols []float32) (*Table, error) {
	t := &Table{Neighborhood: nb, Words: words, Symbols: symbols}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// FromOutputs builds a complete table in AllCombinations order; outputs[k]
// is the next state for word k.
func FromOutputs(nb Neighborhood, outputs []float32) (*Table, error) {
	if err := nb.Validate(); err != nil {
		return nil, err
	}
	words, err := AllCombinations(2, nb.Cells())
	if err != nil {
		return nil, err
	}
	if len(outputs) != words.Dim(0) {
		return nil, fmt.Errorf("%w: %d outputs, want %d", ErrTable, len(outputs), words.Dim(0))
	}
	return NewTable(nb, words, append([]float32(nil), outputs...))
}

// Validate checks shapes, that every word and symbol is binary and that no
// word repeats.
func (t *Table) Validate() error {
	if t == nil || t.Words == nil {
		return fmt.Errorf("%w: no words", ErrTable)
	}
	if err := t.Neighborhood.Validate(); err != nil {
		return err
	}
	cells := t.Neighborhood.Cells()
	if t.Words.Rank() != 2 || t.Words.Dim(1) != cells {
		return fmt.Errorf("%w: words shape %v, want [N %d]", ErrTable, t.Words.Shape, cells)
	}
	if t.Words.Dim(0) != len(t.Symbols) {
		return fmt.Errorf("%w: %d words but %d symbols", ErrTable, t.Words.Dim(0), len(t.Symbols))
	}
	seen := make(map[int]int, len(t.Symbols))
	for i := range t.Symbols {
		idx, err := WordIndex(t.Word(i))
		if err != nil {
			return fmt.Errorf("word %d: %w", i, err)
		}
		if prev, dup := seen[idx]; dup {
			return fmt.Errorf("%w: words %d and %d are identical", ErrTable, prev, i)
		}
		seen[idx] = i
		if s := t.Symbols[i]; s != 0 && s != 1 {
			return fmt.Errorf("%w: symbol %d is %v", ErrNotBinary, i, s)
		}
	}
	return nil
}

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.Symbols) }

// Word returns a view of entry i.
func (t *Table) Word(i int) []float32 {
	c := t.Words.Dim(1)
	return t.Words.Data[i*c : (i+1)*c]
}

// Lookup returns the symbol for word and whether the table lists it.
func (t *Table) Lookup(word []float32) (float32, bool) {
	want, err := WordIndex(word)
	if err != nil {
		return 0, false
	}
	for i := range t.Symbols {
		if idx, _ := WordIndex(t.Word(i)); idx == want {
			return t.Symbols[i], true
		}
	}
	return 0, false
}

// Outputs expands the table to a dense vector in AllCombinations order.
func (t *Table) Outputs() []float32 {
	out := make([]float32, 1<<t.Neighborhood.Cells())
	for i, s := range t.Symbols {
		idx, _ := WordIndex(t.Word(i))
		out[idx] = s
	}
	return out
}

// Apply evaluates the table on one binary word.
func (t *Table) Apply(word []float32) float32 {
	s, _ := t.Lookup(word)
	return s
}

// LifeLike builds an outer totalistic rule: a dead centre is born when its
// live neighbour count is in birth, a live centre survives when the count is
// in survive.
func LifeLike(name string, birth, survive []int) (*Table, error) {
	for _, n := range append(append([]int(nil), birth...), survive...) {
		if n < 0 || n > 8 {
			return nil, fmt.Errorf("%w: neighbour count %d", ErrTable, n)
		}
	}
	born := countSet(birth)
	stays := countSet(survive)

	nb := VonNeumann
	words, err := AllCombinations(2, nb.Cells())
	if err != nil {
		return nil, err
	}
	outputs := make([]float32, words.Dim(0))
	for k := range outputs {
		word := words.Data[k*nb.Cells() : (k+1)*nb.Cells()]
		neighbours := 0
		for j, v := range word {
			if j != CenterIndex && v == 1 {
				neighbours++
			}
		}
		alive := word[CenterIndex] == 1
		if (alive && stays[neighbours]) || (!alive && born[neighbours]) {
			outputs[k] = 1
		}
	}
	t, err := FromOutputs(nb, outputs)
	if err != nil {
		return nil, err
	}
	t.Name = name
	return t, nil
}

// GameOfLife returns Conway's rule, B3/S23.
func GameOfLife() *Table {
	t, err := LifeLike("life", []int{3}, []int{2, 3})
	if err != nil {
		panic(err)
	}
	return t
}

func countSet(ns []int) [9]bool {
	var set [9]bool
	for _, n := range ns {
		set[n] = true
	}
	return set
}
