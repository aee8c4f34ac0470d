package core

import "fmt"

// PeriodicPad wraps the edges of an image (rank 2) or image stack (rank 3,
// padded along the last two axes) around a torus. The last padding rows are
// prepended and the first padding rows appended, then the same for columns,
// so a VALID convolution over the result sees periodic boundary conditions.
func PeriodicPad(t *Tensor, padding int) (*Tensor, error) {
	switch t.Rank() {
	case 2:
		out, err := padStack(t.Data, 1, t.Shape[0], t.Shape[1], padding)
		if err != nil {
			return nil, err
		}
		out.Shape = out.Shape[1:]
		return out, nil
	case 3:
		return padStack(t.Data, t.Shape[0], t.Shape[1], t.Shape[2], padding)
	default:
		return nil, fmt.Errorf("%w: periodic padding needs rank 2 or 3, got %d", ErrRank, t.Rank())
	}
}

func padStack(data []float32, m, h, w, padding int) (*Tensor, error) {
	if padding < 1 || padding > h || padding > w {
		return nil, fmt.Errorf("%w: padding %d for %dx%d image", ErrShape, padding, h, w)
	}
	ph, pw := h+2*padding, w+2*padding
	out := New(m, ph, pw)
	for b := 0; b < m; b++ {
		src := data[b*h*w : (b+1)*h*w]
		dst := out.Data[b*ph*pw : (b+1)*ph*pw]
		for y := 0; y < ph; y++ {
			sy := wrap(y-padding, h)
			row := src[sy*w : (sy+1)*w]
			drow := dst[y*pw : (y+1)*pw]
			copy(drow[:padding], row[w-padding:])
			copy(drow[padding:padding+w], row)
			copy(drow[padding+w:], row[:padding])
		}
	}
	return out, nil
}

func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}
