package core

import (
	"errors"
	"fmt"
)

// Frame holds the current and next state of an automaton so each step can
// write into Next and then swap, keeping the previous generation readable
// until the step completes.
type Frame struct {
	Prev       *Tensor // state at Generation
	Next       *Tensor // scratch for Generation+1
	Generation int
	Flags      uint32
}

// Frame flag bits.
const (
	FlagBinary = 1 << 0 // states are restricted to {0, 1}
	FlagDirty  = 1 << 1 // Next holds a result not yet swapped in
	FlagFrozen = 1 << 2 // last step produced no change
)

// NewFrame wraps an initial state. Next is allocated with the same shape.
func NewFrame(initial *Tensor) *Frame {
	return &Frame{
		Prev: initial,
		Next: New(initial.Shape...),
	}
}

// Validate checks that both buffers exist and agree in shape.
func (f *Frame) Validate() error {
	if f == nil {
		return errors.New("frame is nil")
	}
	if f.Prev == nil || f.Next == nil {
		return errors.New("frame buffer is nil")
	}
	if !sameShape(f.Prev.Shape, f.Next.Shape) {
		return fmt.Errorf("%w: prev %v next %v", ErrShape, f.Prev.Shape, f.Next.Shape)
	}
	return nil
}

// Commit copies src into Next and marks the frame dirty.
func (f *Frame) Commit(src *Tensor) error {
	if !sameShape(src.Shape, f.Next.Shape) {
		return fmt.Errorf("%w: step produced %v, frame holds %v", ErrShape, src.Shape, f.Next.Shape)
	}
	copy(f.Next.Data, src.Data)
	f.SetFlag(FlagDirty)
	return nil
}

// SwapBuffers promotes Next to Prev and advances the generation.
func (f *Frame) SwapBuffers() {
	if f.Prev.Equal(f.Next) {
		f.SetFlag(FlagFrozen)
	} else {
		f.ClearFlag(FlagFrozen)
	}
	f.Prev, f.Next = f.Next, f.Prev
	f.Generation++
	f.ClearFlag(FlagDirty)
}

// SetFlag sets a flag bit.
func (f *Frame) SetFlag(flag uint32) { f.Flags |= flag }

// ClearFlag clears a flag bit.
func (f *Frame) ClearFlag(flag uint32) { f.Flags &^= flag }

// HasFlag reports whether a flag bit is set.
func (f *Frame) HasFlag(flag uint32) bool { return f.Flags&flag != 0 }

// Clone deep-copies both buffers.
func (f *Frame) Clone() *Frame {
	return &Frame{
		Prev:       f.Prev.Clone(),
		Next:       f.Next.Clone(),
		Generation: f.Generation,
		Flags:      f.Flags,
	}
}
