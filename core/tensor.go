// Package core provides the tensor primitives shared by every convoca package.
//
// A Tensor is a contiguous row-major block of float32 values with an explicit
// shape. Cellular automaton states are carried as rank-2 images (H×W) or
// rank-3 stacks (M×H×W, M indexing the batch), and activation maps of trained
// networks as tensors of any rank whose last axis indexes neurons.
//
// Key components:
//   - Tensor: shape plus flat data, with conversion constructors
//   - Frame: dual buffers for stepping an automaton without reallocating
//   - PeriodicPad: toroidal boundary padding ahead of convolution
//   - Serialization of stacks to a checksummed binary format
package core

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrShape is returned when data length and shape disagree or a shape has
	// a non-positive dimension.
	ErrShape = errors.New("invalid tensor shape")
	// ErrRank is returned when an operation does not support the tensor rank.
	ErrRank = errors.New("unsupported tensor rank")
)

// Tensor is a dense row-major float32 array.
type Tensor struct {
	Shape []int
	Data  []float32
}

// New allocates a zeroed, cache-line aligned tensor with the given shape.
func New(shape ...int) *Tensor {
	n, err := volume(shape)
	if err != nil {
		panic(err)
	}
	return &Tensor{Shape: append([]int(nil), shape...), Data: AlignedFloat32s(n)}
}

// FromSlice wraps data without copying. The length must match the shape.
func FromSlice(data []float32, shape ...int) (*Tensor, error) {
	n, err := volume(shape)
	if err != nil {
		return nil, err
	}
	if n != len(data) {
		return nil, fmt.Errorf("%w: %d values for shape %v", ErrShape, len(data), shape)
	}
	return &Tensor{Shape: append([]int(nil), shape...), Data: data}, nil
}

// FromFloat64 converts float64 data into a float32 tensor.
func FromFloat64(data []float64, shape ...int) (*Tensor, error) {
	out := make([]float32, len(data))
	for i, v := range data {
		out[i] = float32(v)
	}
	return FromSlice(out, shape...)
}

// FromInts converts integer data into a float32 tensor.
func FromInts(data []int, shape ...int) (*Tensor, error) {
	out := make([]float32, len(data))
	for i, v := range data {
		out[i] = float32(v)
	}
	return FromSlice(out, shape...)
}

// FromGrid copies a rectangular 2-D slice into a rank-2 tensor.
func FromGrid(grid [][]float32) (*Tensor, error) {
	if len(grid) == 0 || len(grid[0]) == 0 {
		return nil, fmt.Errorf("%w: empty grid", ErrShape)
	}
	h, w := len(grid), len(grid[0])
	t := New(h, w)
	for y, row := range grid {
		if len(row) != w {
			return nil, fmt.Errorf("%w: ragged row %d has %d columns, want %d", ErrShape, y, len(row), w)
		}
		copy(t.Data[y*w:(y+1)*w], row)
	}
	return t, nil
}

// Stack joins equally shaped tensors along a new leading axis.
func Stack(items ...*Tensor) (*Tensor, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: nothing to stack", ErrShape)
	}
	inner := items[0].Shape
	size := items[0].Len()
	out := New(append([]int{len(items)}, inner...)...)
	for i, it := range items {
		if !sameShape(it.Shape, inner) {
			return nil, fmt.Errorf("%w: item %d has shape %v, want %v", ErrShape, i, it.Shape, inner)
		}
		copy(out.Data[i*size:(i+1)*size], it.Data)
	}
	return out, nil
}

// Rank returns the number of axes.
func (t *Tensor) Rank() int { return len(t.Shape) }

// Len returns the number of elements.
func (t *Tensor) Len() int { return len(t.Data) }

// Dim returns the size of axis i. Negative indices count from the end.
func (t *Tensor) Dim(i int) int {
	if i < 0 {
		i += len(t.Shape)
	}
	return t.Shape[i]
}

// At returns the element at the given multi-index.
func (t *Tensor) At(idx ...int) float32 {
	return t.Data[t.offset(idx)]
}

// Set stores v at the given multi-index.
func (t *Tensor) Set(v float32, idx ...int) {
	t.Data[t.offset(idx)] = v
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	c := &Tensor{
		Shape: append([]int(nil), t.Shape...),
		Data:  AlignedFloat32s(len(t.Data)),
	}
	copy(c.Data, t.Data)
	return c
}

// Reshape returns a view with a new shape over the same data. A single -1
// dimension is inferred.
func (t *Tensor) Reshape(shape ...int) (*Tensor, error) {
	shape = append([]int(nil), shape...)
	infer := -1
	known := 1
	for i, d := range shape {
		switch {
		case d == -1 && infer == -1:
			infer = i
		case d <= 0:
			return nil, fmt.Errorf("%w: %v", ErrShape, shape)
		default:
			known *= d
		}
	}
	if infer >= 0 {
		if known == 0 || len(t.Data)%known != 0 {
			return nil, fmt.Errorf("%w: cannot infer %v from %d values", ErrShape, shape, len(t.Data))
		}
		shape[infer] = len(t.Data) / known
	}
	return FromSlice(t.Data, shape...)
}

// Row returns a view of entry i along the leading axis.
func (t *Tensor) Row(i int) *Tensor {
	if t.Rank() < 2 {
		panic(fmt.Sprintf("core: Row on rank %d tensor", t.Rank()))
	}
	inner := t.Shape[1:]
	size := len(t.Data) / t.Shape[0]
	return &Tensor{Shape: append([]int(nil), inner...), Data: t.Data[i*size : (i+1)*size : (i+1)*size]}
}

// Equal reports whether both tensors have the same shape and values.
func (t *Tensor) Equal(o *Tensor) bool {
	if t == nil || o == nil {
		return t == o
	}
	if !sameShape(t.Shape, o.Shape) {
		return false
	}
	for i := range t.Data {
		if t.Data[i] != o.Data[i] {
			return false
		}
	}
	return true
}

// Fill sets every element to v.
func (t *Tensor) Fill(v float32) {
	for i := range t.Data {
		t.Data[i] = v
	}
}

func (t *Tensor) offset(idx []int) int {
	if len(idx) != len(t.Shape) {
		panic(fmt.Sprintf("core: %d indices for rank %d tensor", len(idx), len(t.Shape)))
	}
	off := 0
	for i, ix := range idx {
		if ix < 0 || ix >= t.Shape[i] {
			panic(fmt.Sprintf("core: index %d out of range for axis %d (size %d)", ix, i, t.Shape[i]))
		}
		off = off*t.Shape[i] + ix
	}
	return off
}

func volume(shape []int) (int, error) {
	if len(shape) == 0 {
		return 0, fmt.Errorf("%w: empty shape", ErrShape)
	}
	n := 1
	for _, d := range shape {
		if d <= 0 {
			return 0, fmt.Errorf("%w: %v", ErrShape, shape)
		}
		if n > math.MaxInt/d {
			return 0, fmt.Errorf("%w: %v overflows", ErrShape, shape)
		}
		n *= d
	}
	return n, nil
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
