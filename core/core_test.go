package core

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"math"
	"path/filepath"
	"testing"
	"unsafe"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromSliceValidation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		data    []float32
		shape   []int
		wantErr bool
	}{
		{name: "empty shape", data: []float32{1}, shape: nil, wantErr: true},
		{name: "zero dim", data: nil, shape: []int{0, 3}, wantErr: true},
		{name: "length mismatch", data: []float32{1, 2, 3}, shape: []int{2, 2}, wantErr: true},
		{name: "valid", data: []float32{1, 2, 3, 4}, shape: []int{2, 2}, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromSlice(tt.data, tt.shape...)
			if (err != nil) != tt.wantErr {
				t.Errorf("FromSlice() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				assert.ErrorIs(t, err, ErrShape)
			}
		})
	}
}

func TestTensorIndexing(t *testing.T) {
	t.Parallel()
	x, err := FromInts([]int{0, 1, 2, 3, 4, 5}, 2, 3)
	require.NoError(t, err)

	assert.Equal(t, float32(5), x.At(1, 2))
	x.Set(9, 0, 1)
	assert.Equal(t, float32(9), x.Data[1])
	assert.Equal(t, 3, x.Dim(-1))
	assert.Panics(t, func() { x.At(2, 0) })
}

func TestReshapeInfersDimension(t *testing.T) {
	t.Parallel()
	x := New(2, 3, 4)
	r, err := x.Reshape(-1, 4)
	require.NoError(t, err)
	assert.Equal(t, []int{6, 4}, r.Shape)

	// shares storage
	r.Data[0] = 7
	assert.Equal(t, float32(7), x.Data[0])

	_, err = x.Reshape(-1, 5)
	assert.ErrorIs(t, err, ErrShape)
}

func TestRowAndStack(t *testing.T) {
	t.Parallel()
	a, _ := FromInts([]int{1, 2, 3, 4}, 2, 2)
	b, _ := FromInts([]int{5, 6, 7, 8}, 2, 2)

	s, err := Stack(a, b)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 2}, s.Shape)
	assert.True(t, s.Row(1).Equal(b))

	_, err = Stack(a, New(3, 3))
	assert.ErrorIs(t, err, ErrShape)
}

func TestFromGrid(t *testing.T) {
	t.Parallel()
	g, err := FromGrid([][]float32{{1, 0}, {0, 1}})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0, 1}, g.Data)

	_, err = FromGrid([][]float32{{1, 0}, {0}})
	assert.ErrorIs(t, err, ErrShape)
}

func TestCloneIsIndependent(t *testing.T) {
	t.Parallel()
	original, _ := FromInts([]int{1, 2, 3, 4}, 4)
	clone := original.Clone()
	clone.Data[0] = 99
	if original.Data[0] == 99 {
		t.Error("Clone and original share data")
	}
}

func TestPeriodicPad2D(t *testing.T) {
	t.Parallel()
	img, _ := FromInts([]int{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	}, 3, 3)

	padded, err := PeriodicPad(img, 1)
	require.NoError(t, err)

	want := []float32{
		9, 7, 8, 9, 7,
		3, 1, 2, 3, 1,
		6, 4, 5, 6, 4,
		9, 7, 8, 9, 7,
		3, 1, 2, 3, 1,
	}
	assert.Equal(t, []int{5, 5}, padded.Shape)
	if diff := cmp.Diff(want, padded.Data); diff != "" {
		t.Errorf("PeriodicPad mismatch (-want +got):\n%s", diff)
	}
}

func TestPeriodicPad3DKeepsBatch(t *testing.T) {
	t.Parallel()
	stack := New(2, 4, 3)
	for i := range stack.Data {
		stack.Data[i] = float32(i)
	}

	padded, err := PeriodicPad(stack, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 8, 7}, padded.Shape)

	// corner of the second image wraps to its own bottom-right element
	assert.Equal(t, stack.At(1, 2, 1), padded.At(1, 0, 0))
	assert.Equal(t, stack.At(1, 0, 0), padded.At(1, 2, 2))
}

func TestPeriodicPadErrors(t *testing.T) {
	t.Parallel()
	_, err := PeriodicPad(New(4), 1)
	assert.ErrorIs(t, err, ErrRank)

	_, err = PeriodicPad(New(2, 2), 3)
	assert.ErrorIs(t, err, ErrShape)

	_, err = PeriodicPad(New(2, 2), 0)
	assert.ErrorIs(t, err, ErrShape)
}

func TestSerializeRoundTrip(t *testing.T) {
	t.Parallel()
	x, _ := FromFloat64([]float64{0, 1, 0.5, -2, 3.25, 1}, 1, 2, 3)

	data, err := Serialize(x)
	require.NoError(t, err)
	assert.Len(t, data, HeaderSize+3*4+6*4)

	y, err := Deserialize(data)
	require.NoError(t, err)
	assert.True(t, x.Equal(y))
}

func TestDeserializeRejectsCorruption(t *testing.T) {
	t.Parallel()
	x, _ := FromInts([]int{1, 0, 1, 1}, 2, 2)
	good, err := Serialize(x)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func([]byte) []byte
		want   error
	}{
		{"short", func(b []byte) []byte { return b[:5] }, ErrTruncated},
		{"magic", func(b []byte) []byte { b[0] ^= 0xFF; return b }, ErrMagic},
		{"version", func(b []byte) []byte { b[4] = 9; return b }, ErrVersion},
		{"checksum", func(b []byte) []byte { b[len(b)-1] ^= 0x01; return b }, ErrChecksum},
		{"overflowing shape", func([]byte) []byte { return hugeShapeStream(t, 1<<22, 1<<22, 1<<20) }, ErrShape},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := append([]byte(nil), good...)
			_, err := Deserialize(tt.mutate(buf))
			if !errors.Is(err, tt.want) {
				t.Errorf("Deserialize() error = %v, want %v", err, tt.want)
			}
		})
	}
}

// hugeShapeStream encodes a header and shape with a valid checksum and no data.
func hugeShapeStream(t *testing.T, shape ...uint32) []byte {
	t.Helper()
	body := make([]byte, 4*len(shape))
	for i, d := range shape {
		binary.LittleEndian.PutUint32(body[4*i:], d)
	}
	var buf bytes.Buffer
	hdr := SerializationHeader{
		Magic:    SerializationMagic,
		Version:  SerializationVersion,
		Rank:     uint16(len(shape)),
		Checksum: crc32.ChecksumIEEE(body),
	}
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, hdr))
	buf.Write(body)
	return buf.Bytes()
}

func TestShapeVolumeOverflow(t *testing.T) {
	t.Parallel()
	for _, shape := range [][]int{{math.MaxInt/2 + 1, 2}, {1 << 16, 1 << 16, 1 << 16, 1 << 16}} {
		_, err := FromSlice(nil, shape...)
		assert.ErrorIs(t, err, ErrShape)
		assert.ErrorContains(t, err, "overflows")
	}
}

func TestFileRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "stack.cvca")
	x, _ := FromInts([]int{0, 1, 1, 0, 1, 0, 0, 1}, 2, 2, 2)

	require.NoError(t, WriteFile(path, x))
	y, err := ReadFile(path)
	require.NoError(t, err)
	assert.True(t, x.Equal(y))
}

func TestFrameSwap(t *testing.T) {
	t.Parallel()
	initial, _ := FromInts([]int{1, 0, 0, 1}, 2, 2)
	f := NewFrame(initial)
	require.NoError(t, f.Validate())

	next, _ := FromInts([]int{0, 1, 1, 0}, 2, 2)
	require.NoError(t, f.Commit(next))
	assert.True(t, f.HasFlag(FlagDirty))

	f.SwapBuffers()
	assert.Equal(t, 1, f.Generation)
	assert.False(t, f.HasFlag(FlagDirty))
	assert.False(t, f.HasFlag(FlagFrozen))
	assert.True(t, f.Prev.Equal(next))

	require.NoError(t, f.Commit(next))
	f.SwapBuffers()
	assert.True(t, f.HasFlag(FlagFrozen))

	assert.ErrorIs(t, f.Commit(New(3, 3)), ErrShape)
}

func TestFrameValidate(t *testing.T) {
	t.Parallel()
	var nilFrame *Frame
	assert.Error(t, nilFrame.Validate())
	assert.Error(t, (&Frame{Prev: New(2, 2)}).Validate())
	assert.Error(t, (&Frame{Prev: New(2, 2), Next: New(3, 2)}).Validate())
}

func TestAlignedFloat32s(t *testing.T) {
	t.Parallel()
	buf := AlignedFloat32s(100)
	assert.Len(t, buf, 100)
	assert.True(t, IsAligned(uintptr(unsafe.Pointer(&buf[0]))))
	assert.Nil(t, AlignedFloat32s(0))

	// tensors are allocated aligned
	x := New(3, 7)
	assert.True(t, IsAligned(uintptr(unsafe.Pointer(&x.Data[0]))))
	assert.Equal(t, 21, len(x.Data))
	assert.Equal(t, 21, cap(x.Data))
}

func BenchmarkPeriodicPad(b *testing.B) {
	stack := New(8, 128, 128)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = PeriodicPad(stack, 1)
	}
}

func BenchmarkSerialize(b *testing.B) {
	stack := New(8, 64, 64)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Serialize(stack)
	}
}
