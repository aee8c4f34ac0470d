package core

import "unsafe"

// CacheLineSize is a common cache line size, typically 64 bytes.
const CacheLineSize = 64

// IsAligned checks if addr sits on a cache line boundary.
func IsAligned(addr uintptr) bool {
	return addr%CacheLineSize == 0
}

// AlignedFloat32s allocates n float32 values whose backing array starts on a
// cache line boundary, so the rows of a batch handed to different workers
// do not begin mid-line.
func AlignedFloat32s(n int) []float32 {
	if n == 0 {
		return nil
	}
	const pad = CacheLineSize / 4
	buf := make([]float32, n+pad-1)
	offset := 0
	for !IsAligned(uintptr(unsafe.Pointer(&buf[offset]))) {
		offset++
	}
	return buf[offset : offset+n : offset+n]
}
