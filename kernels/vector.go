package kernels

// Dense float32 vector and matrix helpers. Length mismatches are programmer
// errors and panic.

// VectorAddInPlace performs in-place vector addition (a = a + b)
func VectorAddInPlace(a, b []float32) {
	if len(a) != len(b) {
		panic("vector length mismatch")
	}
	for i := range a {
		a[i] += b[i]
	}
}

// VectorMulInPlace performs in-place vector multiplication (a = a * b)
func VectorMulInPlace(a, b []float32) {
	if len(a) != len(b) {
		panic("vector length mismatch")
	}
	for i := range a {
		a[i] *= b[i]
	}
}

// VectorDot computes the dot product of a and b.
func VectorDot(a, b []float32) float32 {
	if len(a) != len(b) {
		panic("vector length mismatch")
	}
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Axpy performs y = alpha*x + y
func Axpy(alpha float32, x, y []float32) {
	if len(x) != len(y) {
		panic("vector length mismatch")
	}
	for i := range x {
		y[i] += alpha * x[i]
	}
}

// MatMul multiplies an aRows×aCols matrix by a bRows×bCols matrix.
func MatMul(a []float32, aRows, aCols int, b []float32, bRows, bCols int) []float32 {
	if aCols != bRows {
		panic("matrix dimension mismatch")
	}
	if len(a) < aRows*aCols || len(b) < bRows*bCols {
		panic("matrix data insufficient")
	}

	result := make([]float32, aRows*bCols)
	for i := 0; i < aRows; i++ {
		row := result[i*bCols : (i+1)*bCols]
		for k := 0; k < aCols; k++ {
			av := a[i*aCols+k]
			if av == 0 {
				continue
			}
			Axpy(av, b[k*bCols:(k+1)*bCols], row)
		}
	}
	return result
}
