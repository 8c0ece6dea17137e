package minhash

import (
	"bytes"
	"math/rand"
	"testing"
)

func randomBits(f int, rng *rand.Rand, density float64) []byte {
	bits := make([]byte, f)
	for i := range bits {
		if rng.Float64() < density {
			bits[i] = 1
		}
	}
	return bits
}

func jaccard(a, b []byte) float64 {
	var inter, union int
	for i := range a {
		if a[i] != 0 || b[i] != 0 {
			union++
		}
		if a[i] != 0 && b[i] != 0 {
			inter++
		}
	}
	if union == 0 {
		return 1
	}
	return float64(inter) / float64(union)
}

func TestGenerateWriteReadRoundTrip(t *testing.T) {
	table := Generate(8, 32, 42)
	var buf bytes.Buffer
	if err := Write(&buf, table); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got.K() != table.K() || got.F() != table.F() {
		t.Fatalf("round trip shape mismatch: got K=%d F=%d, want K=%d F=%d", got.K(), got.F(), table.K(), table.F())
	}
	for p := range table {
		for i := range table[p] {
			if got[p][i] != table[p][i] {
				t.Fatalf("round trip mismatch at [%d][%d]: got %d want %d", p, i, got[p][i], table[p][i])
			}
		}
	}
}

func TestComputeSignatureSentinelOnEmptyVector(t *testing.T) {
	table := Generate(4, 16, 7)
	bits := make([]byte, 16)
	sig, err := ComputeSignature(bits, table)
	if err != nil {
		t.Fatalf("ComputeSignature failed: %v", err)
	}
	for p, v := range sig {
		if v != 16 {
			t.Errorf("slot %d: expected sentinel 16 for all-zero fingerprint, got %d", p, v)
		}
	}
}

func TestComputeSignatureSchemaMismatch(t *testing.T) {
	table := Generate(4, 16, 7)
	bits := make([]byte, 8)
	if _, err := ComputeSignature(bits, table); err != ErrSchemaMismatch {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestGroupToBandsDeterministic(t *testing.T) {
	sig := []int{1, 2, 3, 4, 5, 6, 7, 8}
	b1, err := GroupToBands(sig, 2, 4)
	if err != nil {
		t.Fatalf("GroupToBands failed: %v", err)
	}
	b2, err := GroupToBands(sig, 2, 4)
	if err != nil {
		t.Fatalf("GroupToBands failed: %v", err)
	}
	if len(b1) != 2 {
		t.Fatalf("expected 2 bands, got %d", len(b1))
	}
	for band, key := range b1 {
		if b2[band] != key {
			t.Errorf("band %d: keys differ across calls: %d vs %d", band, key, b2[band])
		}
	}
}

func TestGroupToBandsInvalidLayout(t *testing.T) {
	sig := make([]int, 10)
	if _, err := GroupToBands(sig, 3, 4); err != ErrInvalidLayout {
		t.Fatalf("expected ErrInvalidLayout, got %v", err)
	}
}

func TestGroupToBandsWideBandUsesFNV(t *testing.T) {
	sig := make([]int, 10)
	for i := range sig {
		sig[i] = i
	}
	bands, err := GroupToBands(sig, 2, 5)
	if err != nil {
		t.Fatalf("GroupToBands failed: %v", err)
	}
	if len(bands) != 2 {
		t.Fatalf("expected 2 bands, got %d", len(bands))
	}
	if bands[0] != fnvMix(sig[0:5]) || bands[1] != fnvMix(sig[5:10]) {
		t.Errorf("expected FNV-1a keys for 5-wide bands, got %d and %d", bands[0], bands[1])
	}
}

func TestMinHashMonotonicity(t *testing.T) {
	const f = 256
	const k = 128
	table := Generate(k, f, 99)
	rng := rand.New(rand.NewSource(1234))

	const trials = 1000
	var totalErr float64
	for i := 0; i < trials; i++ {
		a := randomBits(f, rng, 0.3)
		b := randomBits(f, rng, 0.3)
		want := jaccard(a, b)

		sigA, err := ComputeSignature(a, table)
		if err != nil {
			t.Fatalf("ComputeSignature failed: %v", err)
		}
		sigB, err := ComputeSignature(b, table)
		if err != nil {
			t.Fatalf("ComputeSignature failed: %v", err)
		}

		equal := 0
		for p := range sigA {
			if sigA[p] == sigB[p] {
				equal++
			}
		}
		got := float64(equal) / float64(k)
		totalErr += abs(got - want)
	}
	meanErr := totalErr / trials
	if meanErr > 0.1 {
		t.Errorf("mean |empirical - jaccard| = %f exceeds tolerance", meanErr)
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
