// Package wavelet implements the standard 2D Haar decomposition and the
// top-wavelet ternary sign encoder used to turn a spectrogram tile into
// a binary fingerprint.
package wavelet

import "math"

var sqrt2 = math.Sqrt2

// haar1D applies the full-pyramid orthonormal Haar transform to a in
// place: length halves at each level until it reaches 1, following the
// step a' = (a+b)/sqrt2, d' = (a-b)/sqrt2. len(a) must be a power of
// two; the caller (Transform2D) guarantees this.
func haar1D(a []float64) {
	tmp := make([]float64, len(a))
	for length := len(a); length > 1; length /= 2 {
		half := length / 2
		for i := 0; i < half; i++ {
			x, y := a[2*i], a[2*i+1]
			tmp[i] = (x + y) / sqrt2
			tmp[half+i] = (x - y) / sqrt2
		}
		copy(a[:length], tmp[:length])
	}
}

// Transform2D performs the standard 2D Haar decomposition of tile in
// place: a full row-wise transform followed by a full column-wise
// transform. tile must be square with a power-of-two side length.
func Transform2D(tile [][]float64) {
	t := len(tile)
	for r := 0; r < t; r++ {
		haar1D(tile[r])
	}

	col := make([]float64, t)
	for c := 0; c < t; c++ {
		for r := 0; r < t; r++ {
			col[r] = tile[r][c]
		}
		haar1D(col)
		for r := 0; r < t; r++ {
			tile[r][c] = col[r]
		}
	}
}
