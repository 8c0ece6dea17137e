package wavelet

import "testing"

func TestEncodeTopWaveletsParity(t *testing.T) {
	tile := [][]float64{
		{5, -3, 0.5, 0.1},
		{-4, 2, 0.2, -0.2},
		{0.3, -0.1, 1, -1},
		{0.05, 0.4, -0.6, 0.7},
	}
	const top = 4
	bits := EncodeTopWavelets(tile, top)

	side := len(tile)
	if len(bits) != 2*side*side {
		t.Fatalf("expected %d bits, got %d", 2*side*side, len(bits))
	}

	setPairs := 0
	for i := 0; i < len(bits); i += 2 {
		a, b := bits[i], bits[i+1]
		if a == 1 && b == 1 {
			t.Fatalf("pair %d: both bits set, expected mutually exclusive ternary encoding", i/2)
		}
		if a == 1 || b == 1 {
			setPairs++
		}
	}
	if setPairs != top {
		t.Errorf("expected exactly %d pairs with a single set bit, got %d", top, setPairs)
	}
}

func TestEncodeTopWaveletsSignConvention(t *testing.T) {
	tile := [][]float64{
		{10, -10},
		{0, 0},
	}
	bits := EncodeTopWavelets(tile, 2)
	// index 0 -> value 10 (positive) -> (1,0)
	if bits[0] != 1 || bits[1] != 0 {
		t.Errorf("expected (1,0) for positive coefficient, got (%d,%d)", bits[0], bits[1])
	}
	// index 1 -> value -10 (negative) -> (0,1)
	if bits[2] != 0 || bits[3] != 1 {
		t.Errorf("expected (0,1) for negative coefficient, got (%d,%d)", bits[2], bits[3])
	}
}

func TestEncodeTopWaveletsCapsAtLength(t *testing.T) {
	tile := [][]float64{
		{1, 2},
		{3, 4},
	}
	bits := EncodeTopWavelets(tile, 999)
	set := 0
	for i := 0; i < len(bits); i += 2 {
		if bits[i] == 1 || bits[i+1] == 1 {
			set++
		}
	}
	if set != 4 {
		t.Errorf("expected all 4 coefficients selected when top exceeds tile size, got %d", set)
	}
}
