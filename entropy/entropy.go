// Package entropy measures the Shannon entropy of firing patterns in
// activation maps and of neighbourhood symbol distributions in automaton
// images.
package entropy

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/htapia/convoca/automaton"
	"github.com/htapia/convoca/core"
	"github.com/htapia/convoca/rules"
)

var (
	// ErrDistribution is returned for an empty or invalid distribution.
	ErrDistribution = errors.New("invalid probability distribution")
	// ErrLayers is returned when the layers of a feature map disagree.
	ErrLayers = errors.New("inconsistent feature map")
)

// Shannon returns -Σ p·ln(p). Zero-probability terms contribute nothing.
func Shannon(p []float64) float64 {
	var h float64
	for _, v := range p {
		if v > 0 {
			h -= v * math.Log(v)
		}
	}
	return h
}

// ShannonBase returns the entropy of p measured in the given log base.
func ShannonBase(p []float64, base float64) (float64, error) {
	if base <= 0 || base == 1 {
		return 0, fmt.Errorf("%w: log base %v", ErrDistribution, base)
	}
	return Shannon(p) / math.Log(base), nil
}

// FromCounts normalises occurrence counts into probabilities.
func FromCounts(counts []int) ([]float64, error) {
	total := 0
	for _, c := range counts {
		if c < 0 {
			return nil, fmt.Errorf("%w: negative count %d", ErrDistribution, c)
		}
		total += c
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: no observations", ErrDistribution)
	}
	p := make([]float64, len(counts))
	for i, c := range counts {
		p[i] = float64(c) / float64(total)
	}
	return p, nil
}

// Histogram counts occurrences of integer patterns.
type Histogram struct {
	counts map[string]int
	total  int
	buf    []byte
}

// NewHistogram returns an empty histogram.
func NewHistogram() *Histogram {
	return &Histogram{counts: make(map[string]int)}
}

// Add records one occurrence of pattern.
func (h *Histogram) Add(pattern ...int) {
	h.buf = h.buf[:0]
	for i, v := range pattern {
		if i > 0 {
			h.buf = append(h.buf, ',')
		}
		h.buf = strconv.AppendInt(h.buf, int64(v), 10)
	}
	h.counts[string(h.buf)]++
	h.total++
}

// Total returns the number of recorded occurrences.
func (h *Histogram) Total() int { return h.total }

// Distinct returns the number of distinct patterns seen.
func (h *Histogram) Distinct() int { return len(h.counts) }

// Counts returns the occurrence counts in ascending order.
func (h *Histogram) Counts() []int {
	out := make([]int, 0, len(h.counts))
	for _, c := range h.counts {
		out = append(out, c)
	}
	sort.Ints(out)
	return out
}

// Entropy returns the Shannon entropy of the empirical distribution, or 0
// for an empty histogram.
func (h *Histogram) Entropy() float64 {
	if h.total == 0 {
		return 0
	}
	p, _ := FromCounts(h.Counts())
	return Shannon(p)
}

// Result holds the entropies of a network's firing patterns.
type Result struct {
	Whole  float64     // joint patterns across every layer
	Layer  []float64   // patterns of each layer
	Neuron [][]float64 // each neuron of each layer
}

// patterns flattens a layer to [-1, neurons] truncated to integers.
func patterns(layer *core.Tensor) (rows [][]int, err error) {
	if layer == nil || layer.Rank() == 0 {
		return nil, fmt.Errorf("%w: empty layer", ErrLayers)
	}
	flat, err := layer.Reshape(-1, layer.Dim(-1))
	if err != nil {
		return nil, err
	}
	n, width := flat.Dim(0), flat.Dim(1)
	rows = make([][]int, n)
	for r := range rows {
		row := make([]int, width)
		for c, v := range flat.Data[r*width : (r+1)*width] {
			row[c] = int(v)
		}
		rows[r] = row
	}
	return rows, nil
}

// LayerEntropy returns the entropy of every neuron (last axis) of layer,
// taken over all leading positions.
func LayerEntropy(layer *core.Tensor) ([]float64, error) {
	rows, err := patterns(layer)
	if err != nil {
		return nil, err
	}
	width := len(rows[0])
	out := make([]float64, width)
	for c := 0; c < width; c++ {
		h := NewHistogram()
		for _, row := range rows {
			h.Add(row[c])
		}
		out[c] = h.Entropy()
	}
	return out, nil
}

// NetworkEntropies measures single-neuron, whole-layer and joint firing
// entropy of a feature map, one activation tensor per layer. Every layer
// must flatten to the same number of rows.
func NetworkEntropies(featureMap []*core.Tensor) (*Result, error) {
	if len(featureMap) == 0 {
		return nil, fmt.Errorf("%w: no layers", ErrLayers)
	}
	res := &Result{
		Layer:  make([]float64, len(featureMap)),
		Neuron: make([][]float64, len(featureMap)),
	}
	all := make([][][]int, len(featureMap))
	for i, layer := range featureMap {
		rows, err := patterns(layer)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		if i > 0 && len(rows) != len(all[0]) {
			return nil, fmt.Errorf("%w: layer %d has %d rows, layer 0 has %d", ErrLayers, i, len(rows), len(all[0]))
		}
		all[i] = rows

		if res.Neuron[i], err = LayerEntropy(layer); err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		h := NewHistogram()
		for _, row := range rows {
			h.Add(row...)
		}
		res.Layer[i] = h.Entropy()
	}

	whole := NewHistogram()
	var joint []int
	for r := range all[0] {
		joint = joint[:0]
		for _, rows := range all {
			joint = append(joint, rows[r]...)
		}
		whole.Add(joint...)
	}
	res.Whole = whole.Entropy()
	return res, nil
}

// ImageEntropy returns, for each image of a binary stack ([M H W], or a
// single [H W] image), the entropy of the distribution of the 3×3
// neighbourhood words its pixels form under periodic boundaries.
func ImageEntropy(stack *core.Tensor) ([]float64, error) {
	labels, err := automaton.Categorize(stack, rules.VonNeumann)
	if err != nil {
		return nil, err
	}
	m := 1
	if stack.Rank() == 3 {
		m = stack.Dim(0)
	}
	out := make([]float64, m)
	for i := range out {
		h := NewHistogram()
		img := labels.Data
		if stack.Rank() == 3 {
			img = labels.Row(i)
		}
		for _, class := range img {
			h.Add(class)
		}
		out[i] = h.Entropy()
	}
	return out, nil
}

// Measure is ImageEntropy of a single [H W] image, shaped for use as an
// automaton.MeasureFunc.
func Measure(img *core.Tensor) (float64, error) {
	if img.Rank() != 2 {
		return 0, fmt.Errorf("%w: measure wants [H W], got %v", core.ErrRank, img.Shape)
	}
	ents, err := ImageEntropy(img)
	if err != nil {
		return 0, err
	}
	return ents[0], nil
}
