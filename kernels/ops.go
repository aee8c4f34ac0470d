// Package kernels provides the numeric operations behind convoca's
// convolution-built automata.
//
// Kernels work on core.Tensor values laid out row-major with channels on the
// last axis, matching how an automaton step is expressed: periodic padding,
// a VALID 2-D cross-correlation against a filter bank, a bias, a rectifier,
// and a reduction over channels.
//
// Available operations:
//   - Convolution: Conv2DValid over a [K, K, C] filter bank
//   - Activations: ReLU, Step
//   - Channel reductions: ArgMax, WeightedSum, ReduceSum
//   - Dense layers: Dense (matrix multiply plus bias)
//   - Vector helpers: add, multiply, dot, axpy, matrix multiply
package kernels

import (
	"fmt"

	"github.com/htapia/convoca/core"
)

// Conv2DValid cross-correlates every image of in ([M, PH, PW]) with each
// filter in bank ([K, K, C]) at stride 1 without padding. The result has
// shape [M, PH-K+1, PW-K+1, C].
func Conv2DValid(in, bank *core.Tensor) *core.Tensor {
	if in.Rank() != 3 || bank.Rank() != 3 || bank.Shape[0] != bank.Shape[1] {
		panic(fmt.Sprintf("kernels: conv2d shapes %v * %v", in.Shape, bank.Shape))
	}
	m, ph, pw := in.Shape[0], in.Shape[1], in.Shape[2]
	k, c := bank.Shape[0], bank.Shape[2]
	oh, ow := ph-k+1, pw-k+1
	if oh <= 0 || ow <= 0 {
		panic(fmt.Sprintf("kernels: filter %d larger than input %dx%d", k, ph, pw))
	}

	out := core.New(m, oh, ow, c)
	for b := 0; b < m; b++ {
		img := in.Data[b*ph*pw : (b+1)*ph*pw]
		for y := 0; y < oh; y++ {
			for x := 0; x < ow; x++ {
				pix := ((b*oh+y)*ow + x) * c
				acc := out.Data[pix : pix+c]
				for dy := 0; dy < k; dy++ {
					for dx := 0; dx < k; dx++ {
						v := img[(y+dy)*pw+x+dx]
						if v == 0 {
							continue
						}
						tap := (dy*k + dx) * c
						Axpy(v, bank.Data[tap:tap+c], acc)
					}
				}
			}
		}
	}
	return out
}

// AddBias adds bias to every vector along the last axis of x in place.
func AddBias(x *core.Tensor, bias []float32) {
	c := x.Dim(-1)
	if len(bias) != c {
		panic(fmt.Sprintf("kernels: bias of %d for %d channels", len(bias), c))
	}
	for off := 0; off < len(x.Data); off += c {
		VectorAddInPlace(x.Data[off:off+c], bias)
	}
}

// ReLU implements max(0, x) in place.
func ReLU(data []float32) {
	for i, v := range data {
		if v < 0 {
			data[i] = 0
		}
	}
}

// Step maps every value to 1 if it is at least threshold, else 0.
func Step(data []float32, threshold float32) {
	for i, v := range data {
		if v >= threshold {
			data[i] = 1
		} else {
			data[i] = 0
		}
	}
}

// ArgMax returns, for every vector along the last axis, the index of its
// largest element. Ties resolve to the lowest index. The result drops the
// last axis; a rank-1 input yields a single value.
func ArgMax(x *core.Tensor) []int {
	c := x.Dim(-1)
	out := make([]int, len(x.Data)/c)
	for i := range out {
		vec := x.Data[i*c : (i+1)*c]
		best := 0
		for j := 1; j < c; j++ {
			if vec[j] > vec[best] {
				best = j
			}
		}
		out[i] = best
	}
	return out
}

// WeightedSum reduces the last axis of x against weights, returning a tensor
// with the last axis removed.
func WeightedSum(x *core.Tensor, weights []float32) *core.Tensor {
	c := x.Dim(-1)
	if len(weights) != c {
		panic(fmt.Sprintf("kernels: %d weights for %d channels", len(weights), c))
	}
	out := core.New(leading(x)...)
	for i := range out.Data {
		out.Data[i] = VectorDot(x.Data[i*c:(i+1)*c], weights)
	}
	return out
}

// ReduceSum sums the last axis of x.
func ReduceSum(x *core.Tensor) *core.Tensor {
	c := x.Dim(-1)
	out := core.New(leading(x)...)
	for i := range out.Data {
		var sum float32
		for _, v := range x.Data[i*c : (i+1)*c] {
			sum += v
		}
		out.Data[i] = sum
	}
	return out
}

// Dense applies a fully connected layer to every vector along the last axis
// of x: y = x·w + bias, where w is in×out row-major. The result replaces the
// last axis with out.
func Dense(x *core.Tensor, w []float32, in, out int, bias []float32) *core.Tensor {
	if x.Dim(-1) != in || len(w) != in*out || len(bias) != out {
		panic(fmt.Sprintf("kernels: dense %dx%d on %v with %d bias", in, out, x.Shape, len(bias)))
	}
	rows := len(x.Data) / in
	y := MatMul(x.Data, rows, in, w, in, out)
	shape := append(leading(x), out)
	t, err := core.FromSlice(y, shape...)
	if err != nil {
		panic(err)
	}
	AddBias(t, bias)
	return t
}

func leading(x *core.Tensor) []int {
	if x.Rank() == 1 {
		return []int{1}
	}
	return append([]int(nil), x.Shape[:x.Rank()-1]...)
}
